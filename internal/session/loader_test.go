package session

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memoryCache struct {
	sessions map[Key]*Session
	getErr   error
	puts     int
}

func newMemoryCache() *memoryCache {
	return &memoryCache{sessions: map[Key]*Session{}}
}

func (m *memoryCache) Get(key Key) (*Session, bool, error) {
	if m.getErr != nil {
		return nil, false, m.getErr
	}
	s, ok := m.sessions[key]
	return s, ok, nil
}

func (m *memoryCache) Put(s *Session) error {
	m.puts++
	m.sessions[s.Key] = s
	return nil
}

type countingObserver struct {
	hits, misses int
}

func (o *countingObserver) CacheHit()  { o.hits++ }
func (o *countingObserver) CacheMiss() { o.misses++ }

func stubLoader(calls *int, err error) Loader {
	return LoaderFunc(func(_ context.Context, year int, event string, kind Kind) (*Session, error) {
		*calls++
		if err != nil {
			return nil, err
		}
		return &Session{
			Key:  Key{Year: year, Event: event, Kind: kind},
			Laps: []Lap{{Driver: "VER", Number: 1, Time: 80 * time.Second}},
		}, nil
	})
}

func TestCachedLoader_HitSkipsUpstream(t *testing.T) {
	calls := 0
	cache := newMemoryCache()
	observer := &countingObserver{}
	loader := NewCachedLoader(stubLoader(&calls, nil), cache, WithObserver(observer))

	first, err := loader.Load(context.Background(), 2025, "Italian Grand Prix", FP1)
	require.NoError(t, err)
	second, err := loader.Load(context.Background(), 2025, "Italian Grand Prix", FP1)
	require.NoError(t, err)

	assert.Equal(t, 1, calls)
	assert.Equal(t, first, second)
	assert.Equal(t, 1, observer.hits)
	assert.Equal(t, 1, observer.misses)
}

func TestCachedLoader_FailureIsNotCached(t *testing.T) {
	calls := 0
	cause := errors.New("connection refused")
	cache := newMemoryCache()
	loader := NewCachedLoader(stubLoader(&calls, cause), cache)

	_, err := loader.Load(context.Background(), 2025, "Italian Grand Prix", FP2)
	require.Error(t, err)

	var dataErr *DataUnavailableError
	require.ErrorAs(t, err, &dataErr)
	assert.Equal(t, FP2, dataErr.Key.Kind)
	assert.ErrorIs(t, err, cause)
	assert.Zero(t, cache.puts)
}

func TestCachedLoader_CacheReadErrorFallsThrough(t *testing.T) {
	calls := 0
	cache := newMemoryCache()
	cache.getErr = errors.New("corrupt")
	loader := NewCachedLoader(stubLoader(&calls, nil), cache)

	s, err := loader.Load(context.Background(), 2025, "Italian Grand Prix", FP3)
	require.NoError(t, err)
	assert.Equal(t, FP3, s.Kind)
	assert.Equal(t, 1, calls)
}

func TestCachedLoader_EmptySessionIsNotCached(t *testing.T) {
	calls := 0
	upstream := LoaderFunc(func(_ context.Context, year int, event string, kind Kind) (*Session, error) {
		calls++
		s := &Session{Key: Key{Year: year, Event: event, Kind: kind}}
		if calls > 1 {
			s.Laps = []Lap{{Driver: "NOR", Number: 1, Time: 81 * time.Second}}
		}
		return s, nil
	})
	cache := newMemoryCache()
	loader := NewCachedLoader(upstream, cache)

	first, err := loader.Load(context.Background(), 2025, "Italian Grand Prix", FP1)
	require.NoError(t, err)
	assert.Empty(t, first.Laps)
	assert.Zero(t, cache.puts)

	second, err := loader.Load(context.Background(), 2025, "Italian Grand Prix", FP1)
	require.NoError(t, err)
	assert.Equal(t, 2, calls)
	assert.Len(t, second.TimedLaps(), 1)
	assert.Equal(t, 1, cache.puts)
}

func TestSession_HasData(t *testing.T) {
	tests := []struct {
		name    string
		session Session
		want    bool
	}{
		{"empty", Session{}, false},
		{"untimed laps", Session{Laps: []Lap{{Driver: "VER", Number: 1}}}, false},
		{"timed lap", Session{Laps: []Lap{{Driver: "VER", Number: 1, Time: time.Minute}}}, true},
		{"unclassified results", Session{Results: []Result{{Abbreviation: "VER"}}}, false},
		{"classified result", Session{Results: []Result{{Abbreviation: "VER", Position: 1}}}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.session.HasData())
		})
	}
}

func TestRouter(t *testing.T) {
	primaryCalls, qualifyingCalls := 0, 0
	router := &Router{
		Primary:    stubLoader(&primaryCalls, nil),
		Qualifying: stubLoader(&qualifyingCalls, nil),
	}
	_, err := router.Load(context.Background(), 2025, "Italian Grand Prix", Qualifying)
	require.NoError(t, err)
	_, err = router.Load(context.Background(), 2025, "Italian Grand Prix", FP1)
	require.NoError(t, err)
	assert.Equal(t, 1, primaryCalls)
	assert.Equal(t, 1, qualifyingCalls)

	router.Qualifying = nil
	_, err = router.Load(context.Background(), 2025, "Italian Grand Prix", Qualifying)
	require.NoError(t, err)
	assert.Equal(t, 2, primaryCalls)
}

func TestChecked(t *testing.T) {
	calls := 0
	loader := Checked(stubLoader(&calls, nil))

	_, err := loader.Load(context.Background(), 2025, "Italian Grand Prix", Kind("FP9"))
	assert.ErrorIs(t, err, ErrUnsupportedKind)
	assert.Zero(t, calls)

	s, err := loader.Load(context.Background(), 2025, "Italian Grand Prix", Qualifying)
	require.NoError(t, err)
	assert.Equal(t, Key{Year: 2025, Event: "Italian Grand Prix", Kind: Qualifying}, s.Key)
}

func TestSession_TimedLaps(t *testing.T) {
	s := &Session{Laps: []Lap{
		{Driver: "VER", Number: 1, Time: 0},
		{Driver: "VER", Number: 2, Time: 81 * time.Second},
		{Driver: "NOR", Number: 1, Time: 82 * time.Second},
	}}
	timed := s.TimedLaps()
	assert.Len(t, timed, 2)
	assert.Equal(t, 2, timed[0].Number)
}

func TestParseKind(t *testing.T) {
	tests := []struct {
		in      string
		want    Kind
		wantErr bool
	}{
		{in: "FP1", want: FP1},
		{in: "Practice 3", want: FP3},
		{in: "Q", want: Qualifying},
		{in: "Sprint Qualifying", want: SprintQualifying},
		{in: "warmup", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseKind(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestUnavailable_DoesNotDoubleWrap(t *testing.T) {
	key := Key{Year: 2025, Event: "Italian Grand Prix", Kind: FP1}
	err := Unavailable(key, ErrSessionNotFound)
	again := Unavailable(Key{Year: 2024}, err)
	assert.Same(t, err, again)
	assert.Contains(t, err.Error(), "2025/Italian Grand Prix/FP1")
}
