// Package wiki reads qualifying classifications from Wikipedia race
// articles. Pages are downloaded once into a data directory and parsed
// from disk on later runs.
package wiki

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
	"unicode"

	"github.com/antchfx/htmlquery"
	"github.com/go-resty/resty/v2"
	"github.com/rs/zerolog/log"
	"golang.org/x/net/html"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"podium/internal/session"
)

const (
	DefaultBaseURL       = "https://en.wikipedia.org/wiki"
	DefaultDataDirectory = "data"
	qualifyingTableQuery = "//table[contains(@class, 'wikitable') and .//th[normalize-space(.)='Q1'] and .//th[normalize-space(.)='Q3']]"
	minimumRows          = 2
)

var nameSuffixes = map[string]bool{
	"jr":  true,
	"jr.": true,
	"sr":  true,
	"sr.": true,
	"ii":  true,
	"iii": true,
}

type Source struct {
	base          string
	dataDirectory string
	abbreviations map[string]string
	rest          *resty.Client
}

func New(base, dataDirectory string, abbreviations map[string]string, timeout time.Duration) *Source {
	if base == "" {
		base = DefaultBaseURL
	}
	if dataDirectory == "" {
		dataDirectory = DefaultDataDirectory
	}
	r := resty.New()
	if timeout > 0 {
		r.SetTimeout(timeout)
	}
	return &Source{
		base:          strings.TrimSuffix(base, "/"),
		dataDirectory: dataDirectory,
		abbreviations: abbreviations,
		rest:          r,
	}
}

// PageName is the article title, e.g. "2025_Italian_Grand_Prix".
func PageName(year int, event string) string {
	return fmt.Sprintf("%d_%s", year, strings.ReplaceAll(strings.TrimSpace(event), " ", "_"))
}

func (s *Source) Load(ctx context.Context, year int, event string, kind session.Kind) (*session.Session, error) {
	if kind != session.Qualifying {
		return nil, fmt.Errorf("%w: wikipedia serves qualifying only, not %s", session.ErrUnsupportedKind, kind)
	}
	path, err := s.download(ctx, PageName(year, event))
	if err != nil {
		return nil, err
	}
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()
	results, err := ParseQualifying(file, s.abbreviations)
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	return &session.Session{
		Key:     session.Key{Year: year, Event: event, Kind: kind},
		Results: results,
	}, nil
}

func (s *Source) download(ctx context.Context, page string) (string, error) {
	if err := os.MkdirAll(s.dataDirectory, 0o755); err != nil {
		return "", fmt.Errorf("create data directory: %w", err)
	}
	outputPath := filepath.Join(s.dataDirectory, page+".html")
	if _, err := os.Stat(outputPath); err == nil {
		return outputPath, nil
	}
	url := s.base + "/" + page
	resp, err := s.rest.R().SetContext(ctx).Get(url)
	if err != nil {
		return "", fmt.Errorf("download %s: %w", url, err)
	}
	if resp.StatusCode() == 404 {
		return "", fmt.Errorf("%w: %s", session.ErrSessionNotFound, url)
	}
	if resp.IsError() {
		return "", fmt.Errorf("download %s: status %d", url, resp.StatusCode())
	}
	if err := os.WriteFile(outputPath, resp.Body(), 0o644); err != nil {
		return "", err
	}
	log.Info().Str("component", "wiki").Str("page", page).Msg("Downloaded qualifying page")
	return outputPath, nil
}

// ParseQualifying extracts (abbreviation, position) pairs from the
// qualifying classification table of a race article. Rows whose position
// cell is not a number (footnotes, 107% lines, source lines) are skipped.
func ParseQualifying(r io.Reader, abbreviations map[string]string) ([]session.Result, error) {
	doc, err := htmlquery.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("failed to parse HTML: %w", err)
	}
	table := htmlquery.FindOne(doc, qualifyingTableQuery)
	if table == nil {
		return nil, fmt.Errorf("%w: no qualifying table", session.ErrSessionNotFound)
	}
	results := []session.Result{}
	for _, row := range htmlquery.Find(table, ".//tr[td]") {
		cells := htmlquery.Find(row, "./*[self::th or self::td]")
		if len(cells) < 3 {
			continue
		}
		position, err := strconv.Atoi(strings.TrimSpace(htmlquery.InnerText(cells[0])))
		if err != nil {
			continue
		}
		name := driverName(cells[2])
		if name == "" {
			continue
		}
		results = append(results, session.Result{
			Abbreviation: Abbreviate(name, abbreviations),
			Position:     position,
		})
	}
	if len(results) < minimumRows {
		return nil, fmt.Errorf("qualifying table has %d usable rows", len(results))
	}
	return results, nil
}

func driverName(cell *html.Node) string {
	links := htmlquery.Find(cell, ".//a[normalize-space(text())]")
	if len(links) > 0 {
		return clean(htmlquery.InnerText(links[len(links)-1]))
	}
	return clean(htmlquery.InnerText(cell))
}

func clean(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// Abbreviate returns the three letter driver code for a full name. Names
// in overrides win; otherwise the first three letters of the surname are
// used with diacritics removed.
func Abbreviate(name string, overrides map[string]string) string {
	if code, ok := overrides[name]; ok {
		return strings.ToUpper(code)
	}
	plain, _, err := transform.String(transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC), name)
	if err != nil {
		plain = name
	}
	parts := strings.Fields(plain)
	for len(parts) > 1 && nameSuffixes[strings.ToLower(parts[len(parts)-1])] {
		parts = parts[:len(parts)-1]
	}
	if len(parts) == 0 {
		return ""
	}
	letters := []rune{}
	for _, r := range parts[len(parts)-1] {
		if unicode.IsLetter(r) {
			letters = append(letters, unicode.ToUpper(r))
		}
		if len(letters) == 3 {
			break
		}
	}
	return string(letters)
}
