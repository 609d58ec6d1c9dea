// Package openf1 loads sessions from the OpenF1 REST API.
package openf1

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/rs/zerolog/log"

	"podium/internal/session"
)

const (
	DefaultBaseURL = "https://api.openf1.org/v1"
	DefaultTimeout = 30 * time.Second
)

type Client struct {
	base string
	rest *resty.Client
}

func New(base string, timeout time.Duration) *Client {
	if base == "" {
		base = DefaultBaseURL
	}
	r := resty.New()
	if timeout > 0 {
		r.SetTimeout(timeout)
	} else {
		r.SetTimeout(DefaultTimeout)
	}
	r.SetHeader("Accept", "application/json")
	return &Client{base: base, rest: r}
}

type meeting struct {
	MeetingKey  int    `json:"meeting_key"`
	MeetingName string `json:"meeting_name"`
	Year        int    `json:"year"`
}

type sessionInfo struct {
	SessionKey  int    `json:"session_key"`
	SessionName string `json:"session_name"`
	MeetingKey  int    `json:"meeting_key"`
}

type driver struct {
	DriverNumber int    `json:"driver_number"`
	NameAcronym  string `json:"name_acronym"`
}

type lap struct {
	DriverNumber int      `json:"driver_number"`
	LapNumber    int      `json:"lap_number"`
	LapDuration  *float64 `json:"lap_duration"`
}

type sessionResult struct {
	DriverNumber int  `json:"driver_number"`
	Position     *int `json:"position"`
}

// Load resolves the meeting and session keys and fetches laps, drivers
// and, for sessions with a classification, the results.
func (c *Client) Load(ctx context.Context, year int, event string, kind session.Kind) (*session.Session, error) {
	logger := log.With().Str("component", "openf1").Int("year", year).Str("event", event).Str("session", string(kind)).Logger()
	meetingKey, err := c.meetingKey(ctx, year, event)
	if err != nil {
		return nil, err
	}
	sessionKey, err := c.sessionKey(ctx, meetingKey, kind)
	if err != nil {
		return nil, err
	}
	logger.Debug().Int("session_key", sessionKey).Msg("Resolved session")
	acronyms, err := c.drivers(ctx, sessionKey)
	if err != nil {
		return nil, err
	}
	laps, err := c.laps(ctx, sessionKey, acronyms)
	if err != nil {
		return nil, err
	}
	s := &session.Session{
		Key:  session.Key{Year: year, Event: event, Kind: kind},
		Laps: laps,
	}
	if !kind.IsPractice() {
		s.Results, err = c.results(ctx, sessionKey, acronyms)
		if err != nil {
			return nil, err
		}
	}
	logger.Info().Int("laps", len(s.Laps)).Int("results", len(s.Results)).Msg("Loaded session")
	return s, nil
}

func (c *Client) get(ctx context.Context, path string, params map[string]string, result interface{}) error {
	resp, err := c.rest.R().
		SetContext(ctx).
		SetQueryParams(params).
		SetResult(result).
		Get(c.base + path)
	if err != nil {
		return fmt.Errorf("request %s failed: %w", path, err)
	}
	if resp.IsError() {
		return fmt.Errorf("API error on %s: status %d, body: %s", path, resp.StatusCode(), resp.String())
	}
	return nil
}

func (c *Client) meetingKey(ctx context.Context, year int, event string) (int, error) {
	var meetings []meeting
	params := map[string]string{
		"year":         strconv.Itoa(year),
		"meeting_name": event,
	}
	if err := c.get(ctx, "/meetings", params, &meetings); err != nil {
		return 0, err
	}
	if len(meetings) == 0 {
		return 0, fmt.Errorf("%w: no meeting %q in %d", session.ErrSessionNotFound, event, year)
	}
	return meetings[0].MeetingKey, nil
}

func (c *Client) sessionKey(ctx context.Context, meetingKey int, kind session.Kind) (int, error) {
	var sessions []sessionInfo
	params := map[string]string{
		"meeting_key":  strconv.Itoa(meetingKey),
		"session_name": kind.Name(),
	}
	if err := c.get(ctx, "/sessions", params, &sessions); err != nil {
		return 0, err
	}
	if len(sessions) == 0 {
		return 0, fmt.Errorf("%w: no %s in meeting %d", session.ErrSessionNotFound, kind.Name(), meetingKey)
	}
	return sessions[0].SessionKey, nil
}

func (c *Client) drivers(ctx context.Context, sessionKey int) (map[int]string, error) {
	var drivers []driver
	params := map[string]string{"session_key": strconv.Itoa(sessionKey)}
	if err := c.get(ctx, "/drivers", params, &drivers); err != nil {
		return nil, err
	}
	acronyms := make(map[int]string, len(drivers))
	for _, d := range drivers {
		acronyms[d.DriverNumber] = d.NameAcronym
	}
	return acronyms, nil
}

// acronym falls back to the car number for drivers missing from /drivers.
func acronym(acronyms map[int]string, number int) string {
	if a, ok := acronyms[number]; ok && a != "" {
		return a
	}
	return strconv.Itoa(number)
}

func (c *Client) laps(ctx context.Context, sessionKey int, acronyms map[int]string) ([]session.Lap, error) {
	var raw []lap
	params := map[string]string{"session_key": strconv.Itoa(sessionKey)}
	if err := c.get(ctx, "/laps", params, &raw); err != nil {
		return nil, err
	}
	laps := make([]session.Lap, 0, len(raw))
	for _, l := range raw {
		var duration time.Duration
		if l.LapDuration != nil {
			duration = time.Duration(*l.LapDuration * float64(time.Second))
		}
		laps = append(laps, session.Lap{
			Driver: acronym(acronyms, l.DriverNumber),
			Number: l.LapNumber,
			Time:   duration,
		})
	}
	return laps, nil
}

func (c *Client) results(ctx context.Context, sessionKey int, acronyms map[int]string) ([]session.Result, error) {
	var raw []sessionResult
	params := map[string]string{"session_key": strconv.Itoa(sessionKey)}
	if err := c.get(ctx, "/session_result", params, &raw); err != nil {
		return nil, err
	}
	results := make([]session.Result, 0, len(raw))
	for _, r := range raw {
		position := 0
		if r.Position != nil {
			position = *r.Position
		}
		results = append(results, session.Result{
			Abbreviation: acronym(acronyms, r.DriverNumber),
			Position:     position,
		})
	}
	return results, nil
}
