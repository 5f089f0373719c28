package app

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"os/signal"
	"sort"
	"strings"
	"syscall"
	"time"

	"github.com/michalovjan/depalign/internal/cache"
	"github.com/michalovjan/depalign/internal/config"
	"github.com/michalovjan/depalign/internal/props"
	"github.com/michalovjan/depalign/internal/rest"
)

const defaultPropertiesPath = "./depalign.properties"

// propertyDefs collects repeatable -D key=value flags.
type propertyDefs []string

func (d *propertyDefs) String() string { return strings.Join(*d, ",") }

func (d *propertyDefs) Set(v string) error {
	*d = append(*d, v)
	return nil
}

func lookupCmd(args []string) int {
	return runLookupCmd(args, os.Stdout, os.Stderr)
}

func runLookupCmd(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("lookup", flag.ContinueOnError)
	fs.SetOutput(stderr)
	propsPath := fs.String("properties", defaultPropertiesPath, "path to the alignment properties file")
	var defs propertyDefs
	fs.Var(&defs, "D", "set a property as key=value (repeatable, wins over the file)")
	gavsFile := fs.String("gavs-file", "", "file with one group:artifact:version per line")
	format := fs.String("format", "text", "output format: json|text")
	cacheDB := fs.String("cache-db", "./depalign-cache.db", "path to the sqlite cache db file")
	cacheDSN := fs.String("cache-postgres-dsn", "", "postgres cache DSN (default: $DEPALIGN_POSTGRES_DSN)")
	tracing := fs.Bool("tracing", false, "export lookup spans over OTLP (endpoint from OTEL_EXPORTER_OTLP_* env)")
	logLevel := fs.String("log-level", "info", "log level (debug|info|warn|error)")
	dotenvPath := fs.String("dotenv", "", "load environment variables from file (dev only)")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if *format != "json" && *format != "text" {
		fmt.Fprintf(stderr, "lookup: invalid --format %q (use: json|text)\n", *format)
		return 2
	}

	logger, err := newLogger(*logLevel)
	if err != nil {
		fmt.Fprintln(stderr, err.Error())
		return 2
	}
	slog.SetDefault(logger)

	if strings.TrimSpace(*dotenvPath) != "" {
		if err := loadDotenv(strings.TrimSpace(*dotenvPath)); err != nil {
			logger.Error("dotenv_failed", slog.Any("err", err))
			return 1
		}
	}

	p, err := loadProperties(*propsPath, *propsPath == defaultPropertiesPath, defs)
	if err != nil {
		logger.Error("read_properties_failed", slog.Any("err", err))
		return 1
	}

	state, err := config.Load(p)
	if err != nil {
		logger.Error("properties_invalid", slog.String("error", err.Error()))
		return 1
	}

	gavs, err := collectGAVs(*gavsFile, fs.Args())
	if err != nil {
		logger.Error("parse_gavs_failed", slog.Any("err", err))
		return 1
	}
	if len(gavs) == 0 {
		fmt.Fprintln(stderr, "lookup: no artifacts given (positional group:artifact:version or --gavs-file)")
		return 2
	}

	if !state.Enabled() {
		logger.Info("lookup_disabled", slog.Int("requested", len(gavs)))
		rep := newLookupOutput(nil, gavs, rest.Stats{})
		if err := writeLookupOutput(stdout, *format, rep); err != nil {
			logger.Error("write_report_failed", slog.Any("err", err))
			return 1
		}
		return 0
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if *tracing {
		shutdownTracing, err := initTracing(ctx, func(err error) {
			logger.Error("tracing_export_failed", slog.Any("err", err))
		})
		if err != nil {
			logger.Error("tracing_init_failed", slog.Any("err", err))
			return 1
		}
		defer func() {
			sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = shutdownTracing(sctx)
		}()
		logger.Info("tracing_enabled")
	}

	store, err := newCacheStore(state, *cacheDB, *cacheDSN)
	if err != nil {
		logger.Error("cache_init_failed", slog.Any("err", err))
		return 1
	}
	if store != nil {
		defer func() { _ = store.Close() }()
		logger.Info("cache_enabled", slog.String("backend", state.CacheMode()))
	}

	opts := []rest.Option{
		rest.WithLogger(logger),
		rest.WithHTTPClient(rest.NewHTTPClient(state.ConnectionTimeout(), tracingTransport(*tracing))),
	}
	if store != nil {
		opts = append(opts, rest.WithCache(store))
	}
	translator := rest.NewDefaultTranslator(state.TranslatorSettings(), opts...)

	logger.Info("lookup_started",
		slog.String("endpoint", state.URL()),
		slog.Int("requested", len(gavs)),
		slog.String("mode", state.Mode()),
	)

	versions, err := translator.LookupVersions(ctx, gavs)
	if err != nil {
		logger.Error("lookup_failed", slog.Any("err", err))
		return 1
	}

	rep := newLookupOutput(versions, gavs, translator.Stats())
	if err := writeLookupOutput(stdout, *format, rep); err != nil {
		logger.Error("write_report_failed", slog.Any("err", err))
		return 1
	}
	logger.Info("lookup_done",
		slog.Int("requested", len(gavs)),
		slog.Int("aligned", len(rep.Aligned)),
		slog.Int("unmatched", len(rep.Unmatched)),
		slog.Int64("requests", rep.Stats.Requests),
		slog.Int64("splits", rep.Stats.Splits),
		slog.Int64("cache_hits", rep.Stats.CacheHits),
	)
	return 0
}

// loadProperties reads the properties file and applies -D overrides on top.
// A missing file is tolerated only for the default path, so running next to
// no depalign.properties still works with pure -D configuration.
func loadProperties(path string, optional bool, defs []string) (*props.Properties, error) {
	p, err := props.ParseFile(path)
	if err != nil {
		if !optional || !errors.Is(err, fs.ErrNotExist) {
			return nil, err
		}
		p = props.New()
	}
	for _, def := range defs {
		key, value, err := props.ParseFlag(def)
		if err != nil {
			return nil, err
		}
		p.Set(key, value)
	}
	return p, nil
}

func collectGAVs(path string, coords []string) ([]rest.GAV, error) {
	var out []rest.GAV
	seen := make(map[rest.GAV]bool)
	add := func(coord string) error {
		g, err := rest.ParseGAV(coord)
		if err != nil {
			return err
		}
		if !seen[g] {
			seen[g] = true
			out = append(out, g)
		}
		return nil
	}

	if path != "" {
		f, err := os.Open(path)
		if err != nil {
			return nil, err
		}
		defer f.Close()

		sc := bufio.NewScanner(f)
		lineNo := 0
		for sc.Scan() {
			lineNo++
			line := strings.TrimSpace(sc.Text())
			if line == "" || strings.HasPrefix(line, "#") {
				continue
			}
			if err := add(line); err != nil {
				return nil, fmt.Errorf("%s line %d: %w", path, lineNo, err)
			}
		}
		if err := sc.Err(); err != nil {
			return nil, err
		}
	}

	for _, coord := range coords {
		if err := add(coord); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func newCacheStore(state *config.State, dbPath, dsn string) (cache.Store, error) {
	switch state.CacheMode() {
	case config.CacheOff:
		return nil, nil
	case config.CacheMemory:
		return cache.NewMemoryStore(state.CacheTTL()), nil
	case config.CacheSQLite:
		return cache.NewSQLiteStore(dbPath, state.CacheTTL())
	case config.CachePostgres:
		if strings.TrimSpace(dsn) == "" {
			dsn = os.Getenv("DEPALIGN_POSTGRES_DSN")
		}
		if strings.TrimSpace(dsn) == "" {
			return nil, errors.New("postgres cache requires --cache-postgres-dsn or DEPALIGN_POSTGRES_DSN")
		}
		return cache.NewPostgresStore(dsn, state.CacheTTL())
	default:
		return nil, fmt.Errorf("unsupported cache mode %q", state.CacheMode())
	}
}

// lookupOutput is the printed result: recommended versions keyed by the
// requested coordinate, plus the coordinates the service had no match for.
type lookupOutput struct {
	Aligned   map[string]string `json:"aligned"`
	Unmatched []string          `json:"unmatched,omitempty"`
	Stats     rest.Stats        `json:"stats"`
}

func newLookupOutput(versions map[rest.GAV]string, requested []rest.GAV, stats rest.Stats) lookupOutput {
	out := lookupOutput{
		Aligned: make(map[string]string, len(versions)),
		Stats:   stats,
	}
	for g, v := range versions {
		out.Aligned[g.String()] = v
	}
	for _, g := range requested {
		if _, ok := versions[g]; !ok {
			out.Unmatched = append(out.Unmatched, g.String())
		}
	}
	sort.Strings(out.Unmatched)
	return out
}

func writeLookupOutput(w io.Writer, format string, out lookupOutput) error {
	if format == "json" {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(out)
	}

	keys := make([]string, 0, len(out.Aligned))
	for k := range out.Aligned {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(w, "%s -> %s\n", k, out.Aligned[k])
	}
	for _, k := range out.Unmatched {
		fmt.Fprintf(w, "%s (no match)\n", k)
	}
	return nil
}
