package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"os/signal"
	"syscall"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"podium/internal/cache"
	"podium/internal/csvsource"
	"podium/internal/metrics"
	"podium/internal/openf1"
	"podium/internal/pipeline"
	"podium/internal/session"
	"podium/internal/wiki"
)

type options struct {
	config      string
	year        int
	event       string
	logLevel    string
	export      string
	metricsFile string
	summary     bool
	noCache     bool
}

func main() {
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := newRootCommand().ExecuteContext(ctx); err != nil {
		stop()
		log.Fatal().Err(err).Msg("Prediction failed")
	}
}

func newRootCommand() *cobra.Command {
	o := &options{}
	command := &cobra.Command{
		Use:           "podium",
		Short:         "Predict the winner, podium and top 10 of a Formula 1 race",
		Long:          "Predicts race outcomes from free practice lap times and the qualifying classification.",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return run(cmd.Context(), cmd.Flags(), o)
		},
	}
	flags := command.Flags()
	flags.StringVar(&o.config, "config", "", fmt.Sprintf("configuration file (default is %s)", configurationPath))
	flags.IntVar(&o.year, "year", 0, "season of the event")
	flags.StringVar(&o.event, "event", "", "event name, e.g. \"Italian Grand Prix\"")
	flags.StringVar(&o.logLevel, "log-level", "info", "log level: debug, info, warn, error")
	flags.StringVar(&o.export, "export", "", "write the predicted dataset to this CSV file")
	flags.StringVar(&o.metricsFile, "metrics-file", "", "write Prometheus metrics to this textfile")
	flags.BoolVar(&o.summary, "summary", false, "print the probability summary of each outcome")
	flags.BoolVar(&o.noCache, "no-cache", false, "bypass the session cache")
	return command
}

func setupLogging(level string) {
	parsed, err := zerolog.ParseLevel(level)
	if err != nil {
		log.Warn().Str("level", level).Msg("Unknown log level, using info")
		parsed = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(parsed)
}

// apply copies explicitly set flags over the configuration.
func (o *options) apply(flags *pflag.FlagSet, c *Configuration) {
	if flags.Changed("year") {
		c.Year = o.year
	}
	if flags.Changed("event") {
		c.Event = o.event
	}
}

func run(ctx context.Context, flags *pflag.FlagSet, o *options) error {
	setupLogging(o.logLevel)
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		log.Warn().Err(err).Msg("Failed to load .env")
	}
	configuration, err := loadConfiguration(o.config)
	if err != nil {
		return err
	}
	o.apply(flags, configuration)
	if err := configuration.validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	log.Logger = log.With().Str("run", uuid.NewString()).Logger()

	m := metrics.New()
	loader, closeLoader, err := newLoader(configuration, o.noCache, m)
	if err != nil {
		return err
	}
	defer closeLoader()

	p := pipeline.New(loader, configuration.classifierFactory(), m)
	report, err := p.Run(ctx, configuration.Year, configuration.Event)
	if err != nil {
		return err
	}
	if err := report.Write(os.Stdout); err != nil {
		return err
	}
	if o.summary {
		if err := report.WriteSummary(os.Stdout); err != nil {
			return err
		}
	}
	if o.export != "" {
		if err := report.Export(o.export); err != nil {
			return err
		}
		log.Info().Str("path", o.export).Msg("Exported dataset")
	}
	if o.metricsFile != "" {
		if err := m.WriteTextfile(o.metricsFile); err != nil {
			return fmt.Errorf("failed to write metrics: %w", err)
		}
	}
	return nil
}

// newLoader wires the configured sources behind the session cache. The
// returned function releases the cache.
func newLoader(c *Configuration, noCache bool, m *metrics.Metrics) (session.Loader, func(), error) {
	var primary session.Loader
	switch c.Source {
	case sourceCSV:
		primary = csvsource.New(c.CSVDirectory)
	default:
		primary = openf1.New(c.OpenF1.BaseURL, c.OpenF1.Timeout.Duration)
	}
	router := &session.Router{Primary: primary}
	if c.QualifyingSource == qualifyingWikipedia {
		router.Qualifying = wiki.New(
			c.Wikipedia.BaseURL,
			c.Wikipedia.DataDirectory,
			c.Wikipedia.Abbreviations,
			c.OpenF1.Timeout.Duration,
		)
	}
	loader := session.Checked(router)
	if noCache {
		return loader, func() {}, nil
	}
	store, err := cache.Open(c.CacheDirectory, c.CacheEntries)
	if err != nil {
		return nil, nil, err
	}
	log.Debug().Str("directory", c.CacheDirectory).Msg("Opened session cache")
	closeStore := func() {
		if err := store.Close(); err != nil {
			log.Warn().Err(err).Msg("Failed to close session cache")
		}
	}
	return session.NewCachedLoader(loader, store, session.WithObserver(m)), closeStore, nil
}
