package wiki

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"podium/internal/session"
)

const qualifyingPage = `<html><body>
<h2>Race</h2>
<table class="wikitable"><tbody>
<tr><th>Pos.</th><th>Driver</th><th>Laps</th></tr>
<tr><th>1</th><td>4</td><td><a href="/wiki/Lando_Norris">Lando Norris</a></td></tr>
</tbody></table>
<h3 id="Qualifying_classification">Qualifying classification</h3>
<table class="wikitable sortable" style="font-size: 95%;"><tbody>
<tr><th rowspan="2">Pos.</th><th rowspan="2">No.</th><th rowspan="2">Driver</th><th rowspan="2">Constructor</th><th colspan="3">Qualifying times</th><th rowspan="2">Final grid</th></tr>
<tr><th>Q1</th><th>Q2</th><th>Q3</th></tr>
<tr><th scope="row">1</th><td>1</td><td><span class="flagicon"><a href="/wiki/Netherlands" title="Netherlands"><img alt=""/></a></span>&#160;<a href="/wiki/Max_Verstappen">Max Verstappen</a></td><td>Red Bull Racing-Honda RBPT</td><td>1:19.662</td><td>1:19.138</td><td>1:18.792</td><td>1</td></tr>
<tr><th scope="row">2</th><td>4</td><td><span class="flagicon"><a href="/wiki/United_Kingdom" title="United Kingdom"><img alt=""/></a></span>&#160;<a href="/wiki/Lando_Norris">Lando Norris</a></td><td>McLaren-Mercedes</td><td>1:19.6</td><td>1:19.2</td><td>1:18.8</td><td>2</td></tr>
<tr><th scope="row">3</th><td>27</td><td><a href="/wiki/Nico_H%C3%BClkenberg">Nico Hülkenberg</a></td><td>Kick Sauber-Ferrari</td><td>1:20.1</td><td>1:19.9</td><td>1:19.5</td><td>3</td></tr>
<tr><th scope="row">4</th><td>55</td><td><a href="/wiki/Carlos_Sainz_Jr.">Carlos Sainz Jr.</a></td><td>Williams-Mercedes</td><td>1:20.2</td><td>1:20.0</td><td>1:19.6</td><td>4</td></tr>
<tr><th scope="row">5</th><td>24</td><td><a href="/wiki/Zhou_Guanyu">Zhou Guanyu</a></td><td>Kick Sauber-Ferrari</td><td>1:20.3</td><td>1:20.1</td><td></td><td>5</td></tr>
<tr><td colspan="8">107% time: 1:25.238</td></tr>
<tr><th scope="row">NC</th><td>18</td><td><a href="/wiki/Lance_Stroll">Lance Stroll</a></td><td>Aston Martin</td><td></td><td></td><td></td><td>PL</td></tr>
<tr><td colspan="8">Source:</td></tr>
</tbody></table>
</body></html>`

func TestAbbreviate(t *testing.T) {
	overrides := map[string]string{"Zhou Guanyu": "zho"}
	tests := []struct {
		name string
		want string
	}{
		{name: "Max Verstappen", want: "VER"},
		{name: "Sergio Pérez", want: "PER"},
		{name: "Nico Hülkenberg", want: "HUL"},
		{name: "Carlos Sainz Jr.", want: "SAI"},
		{name: "Andrea Kimi Antonelli", want: "ANT"},
		{name: "Zhou Guanyu", want: "ZHO"},
		{name: "", want: ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Abbreviate(tt.name, overrides))
		})
	}
}

func TestParseQualifying(t *testing.T) {
	results, err := ParseQualifying(strings.NewReader(qualifyingPage), map[string]string{"Zhou Guanyu": "ZHO"})
	require.NoError(t, err)
	assert.Equal(t, []session.Result{
		{Abbreviation: "VER", Position: 1},
		{Abbreviation: "NOR", Position: 2},
		{Abbreviation: "HUL", Position: 3},
		{Abbreviation: "SAI", Position: 4},
		{Abbreviation: "ZHO", Position: 5},
	}, results)
}

func TestParseQualifying_NoTable(t *testing.T) {
	_, err := ParseQualifying(strings.NewReader("<html><body><p>TBD</p></body></html>"), nil)
	assert.ErrorIs(t, err, session.ErrSessionNotFound)
}

func TestSource_DownloadsOnce(t *testing.T) {
	requests := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests++
		if r.URL.Path != "/2025_Italian_Grand_Prix" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte(qualifyingPage))
	}))
	defer server.Close()

	dataDirectory := t.TempDir()
	source := New(server.URL, dataDirectory, nil, time.Second)
	for i := 0; i < 2; i++ {
		s, err := source.Load(context.Background(), 2025, "Italian Grand Prix", session.Qualifying)
		require.NoError(t, err)
		assert.Len(t, s.Results, 5)
	}
	assert.Equal(t, 1, requests)
	_, err := os.Stat(filepath.Join(dataDirectory, "2025_Italian_Grand_Prix.html"))
	assert.NoError(t, err)

	_, err = source.Load(context.Background(), 2025, "Atlantis Grand Prix", session.Qualifying)
	assert.ErrorIs(t, err, session.ErrSessionNotFound)
}

func TestSource_QualifyingOnly(t *testing.T) {
	source := New("http://127.0.0.1:0", t.TempDir(), nil, time.Second)
	_, err := source.Load(context.Background(), 2025, "Italian Grand Prix", session.FP1)
	assert.ErrorIs(t, err, session.ErrUnsupportedKind)
}
