package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"podium/internal/cache"
	"podium/internal/model"
	"podium/internal/openf1"
	"podium/internal/wiki"
)

const (
	configurationPath = "configuration/configuration.yaml"
	envPrefix         = "PODIUM_"

	sourceOpenF1        = "openf1"
	sourceCSV           = "csv"
	qualifyingWikipedia = "wikipedia"
	classifierForest    = "forest"
	classifierLogistic  = "logistic"
)

type Configuration struct {
	Year             int                    `yaml:"year"`
	Event            string                 `yaml:"event"`
	Source           string                 `yaml:"source"`
	OpenF1           OpenF1Configuration    `yaml:"openf1"`
	CSVDirectory     string                 `yaml:"csv_directory"`
	CacheDirectory   string                 `yaml:"cache_directory"`
	CacheEntries     int                    `yaml:"cache_entries"`
	QualifyingSource string                 `yaml:"qualifying_source"`
	Wikipedia        WikipediaConfiguration `yaml:"wikipedia"`
	Classifier       string                 `yaml:"classifier"`
	Seed             int64                  `yaml:"seed"`
	Trees            TreesConfiguration     `yaml:"trees"`
}

type OpenF1Configuration struct {
	BaseURL string               `yaml:"base_url"`
	Timeout SerializableDuration `yaml:"timeout"`
}

type WikipediaConfiguration struct {
	BaseURL       string            `yaml:"base_url"`
	DataDirectory string            `yaml:"data_directory"`
	Abbreviations map[string]string `yaml:"abbreviations"`
}

type TreesConfiguration struct {
	Podium int `yaml:"podium"`
	Winner int `yaml:"winner"`
	Top10  int `yaml:"top10"`
}

type SerializableDuration struct {
	time.Duration
}

func defaultConfiguration() *Configuration {
	return &Configuration{
		Year:           2025,
		Event:          "Italian Grand Prix",
		Source:         sourceOpenF1,
		CacheDirectory: "f1_cache",
		CacheEntries:   cache.DefaultEntries,
		OpenF1: OpenF1Configuration{
			BaseURL: openf1.DefaultBaseURL,
			Timeout: SerializableDuration{openf1.DefaultTimeout},
		},
		Wikipedia: WikipediaConfiguration{
			BaseURL:       wiki.DefaultBaseURL,
			DataDirectory: wiki.DefaultDataDirectory,
		},
		Classifier: classifierForest,
		Seed:       model.DefaultSeed,
		Trees: TreesConfiguration{
			Podium: model.Podium.DefaultTrees(),
			Winner: model.Winner.DefaultTrees(),
			Top10:  model.Top10.DefaultTrees(),
		},
	}
}

// loadConfiguration reads the YAML file over the defaults. The default
// path may be missing, an explicitly requested one may not.
func loadConfiguration(path string) (*Configuration, error) {
	explicit := path != ""
	if !explicit {
		path = configurationPath
	}
	configuration := defaultConfiguration()
	yamlData, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(yamlData, configuration); err != nil {
			return nil, fmt.Errorf("failed to unmarshal YAML in %s: %w", path, err)
		}
	case errors.Is(err, fs.ErrNotExist) && !explicit:
	default:
		return nil, fmt.Errorf("failed to read configuration: %w", err)
	}
	if err := configuration.applyEnvironment(os.LookupEnv); err != nil {
		return nil, err
	}
	return configuration, nil
}

func (c *Configuration) applyEnvironment(lookup func(string) (string, bool)) error {
	if value, ok := lookup(envPrefix + "YEAR"); ok {
		year, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid %sYEAR: %q", envPrefix, value)
		}
		c.Year = year
	}
	if value, ok := lookup(envPrefix + "EVENT"); ok {
		c.Event = value
	}
	if value, ok := lookup(envPrefix + "SOURCE"); ok {
		c.Source = value
	}
	if value, ok := lookup(envPrefix + "CACHE_DIR"); ok {
		c.CacheDirectory = value
	}
	return nil
}

func (c *Configuration) validate() error {
	if c.Year < 1950 {
		return fmt.Errorf("invalid year in configuration: %d", c.Year)
	}
	if c.Event == "" {
		return errors.New("event missing from configuration file")
	}
	switch c.Source {
	case sourceOpenF1:
	case sourceCSV:
		if c.CSVDirectory == "" {
			return errors.New("csv_directory is required for the csv source")
		}
	default:
		return fmt.Errorf("unknown source %q", c.Source)
	}
	if c.QualifyingSource != "" && c.QualifyingSource != qualifyingWikipedia {
		return fmt.Errorf("unknown qualifying source %q", c.QualifyingSource)
	}
	if c.Classifier != classifierForest && c.Classifier != classifierLogistic {
		return fmt.Errorf("unknown classifier %q", c.Classifier)
	}
	for _, outcome := range model.Outcomes {
		if c.Trees.forOutcome(outcome) <= 0 {
			return fmt.Errorf("invalid number of trees for %s: %d", outcome, c.Trees.forOutcome(outcome))
		}
	}
	if c.OpenF1.Timeout.Duration < 0 {
		return fmt.Errorf("invalid OpenF1 timeout: %s", c.OpenF1.Timeout)
	}
	return nil
}

func (t TreesConfiguration) forOutcome(outcome model.Outcome) int {
	switch outcome {
	case model.Winner:
		return t.Winner
	case model.Podium:
		return t.Podium
	default:
		return t.Top10
	}
}

// classifierFactory builds the classifiers selected in the configuration.
func (c *Configuration) classifierFactory() model.Factory {
	if c.Classifier == classifierLogistic {
		return func(model.Outcome) model.Classifier {
			return model.NewLogistic()
		}
	}
	return func(outcome model.Outcome) model.Classifier {
		return model.NewForest(c.Trees.forOutcome(outcome), c.Seed)
	}
}

func (d *SerializableDuration) UnmarshalYAML(value *yaml.Node) error {
	duration, err := time.ParseDuration(value.Value)
	if err != nil {
		return fmt.Errorf("failed to parse duration: %s", value.Value)
	}
	d.Duration = duration
	return nil
}
