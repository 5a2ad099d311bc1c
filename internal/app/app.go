package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/nmarshall23/vuetify-loader/internal/artifact"
	"github.com/nmarshall23/vuetify-loader/internal/bundler"
	"github.com/nmarshall23/vuetify-loader/internal/config"
	"github.com/nmarshall23/vuetify-loader/internal/ctxlog"
	"github.com/nmarshall23/vuetify-loader/internal/devserver"
	"github.com/nmarshall23/vuetify-loader/internal/finalize"
	"github.com/nmarshall23/vuetify-loader/internal/fsutil"
	"github.com/nmarshall23/vuetify-loader/internal/memgraph"
	"github.com/nmarshall23/vuetify-loader/internal/plugin"
	"github.com/nmarshall23/vuetify-loader/internal/styles"
)

// App encapsulates the one-shot aggregation driver: scan a directory for
// style fragments, register them, run a settle cycle against an in-memory
// graph, and write the aggregated artifact.
type App struct {
	outW   io.Writer
	logger *slog.Logger
	cfg    *Config
	opts   *config.Options
}

// NewApp is the constructor for the main application. It returns a fully
// initialized App instance with its own isolated logger. A config file that
// cannot be loaded is a fatal startup error and panics; main recovers it.
func NewApp(outW io.Writer, cfg *Config, loader config.Loader) *App {
	logger := newLogger(cfg.LogLevel, cfg.LogFormat, outW)
	ctx := ctxlog.WithLogger(context.Background(), logger)
	logger.Debug("Logger configured successfully.")

	opts := &config.Options{Mode: config.ModeAggregated}
	if cfg.OptionsPath != "" {
		loaded, err := loader.Load(ctx, cfg.OptionsPath)
		if err != nil {
			panic(fmt.Errorf("failed to load configuration: %w", err))
		}
		opts = loaded
	} else if err := opts.Normalize(); err != nil {
		panic(err)
	}
	if cfg.ArtifactPath != "" {
		opts.ArtifactPath = cfg.ArtifactPath
	}
	logger.Debug("Options resolved.", "mode", opts.Mode, "artifact", opts.ArtifactPath)

	return &App{outW: outW, logger: logger, cfg: cfg, opts: opts}
}

// Options returns the resolved plugin options. This is primarily for testing.
func (a *App) Options() *config.Options {
	return a.opts
}

// Run scans, registers, settles, and writes.
func (a *App) Run(ctx context.Context) error {
	ctx = ctxlog.WithLogger(ctx, a.logger)
	a.logger.Debug("App.Run method started.")

	if a.opts.ArtifactPath == "" {
		return fmt.Errorf("no artifact path configured: set artifact in the options file or pass -artifact")
	}

	matcher := styles.NewMatcher(a.opts.StylePackage, a.opts.LibraryRoot, a.opts.Extensions)
	fragments, err := fsutil.FindStyleFiles(a.cfg.ScanPath, matcher.IsStyleFile)
	if err != nil {
		return fmt.Errorf("failed to scan for style fragments: %w", err)
	}
	a.logger.Info("Style fragments discovered.", "count", len(fragments), "path", a.cfg.ScanPath)

	writer := artifact.NewWriter(a.opts.ArtifactPath)

	// With a dev address configured the run doubles as a refresh signal:
	// connected watchers get styles:updated once the artifact lands.
	mode := bundler.HostBuild
	var notifier finalize.Notifier
	if a.opts.DevAddr != "" {
		n, err := devserver.NewNotifier(ctx, a.opts.DevAddr)
		if err != nil {
			return fmt.Errorf("failed to start dev notifier: %w", err)
		}
		defer n.Close()
		a.logger.Info("Dev notifier listening.", "addr", n.Addr())
		mode = bundler.HostDev
		notifier = n
	}

	p := plugin.New(a.opts, mode, memgraph.New(), nullResolver{}, writer, artifact.Toucher{}, notifier)

	for _, fragment := range fragments {
		p.Registry().RegisterFragment(fragment)
	}

	if err := p.RequestSettle(ctx); err != nil {
		return fmt.Errorf("settle cycle failed: %w", err)
	}

	a.logger.Info("Aggregated stylesheet written.", "path", a.opts.ArtifactPath, "fragments", len(fragments))
	a.logger.Debug("App.Run method finished.")
	return nil
}

// nullResolver never resolves anything. The one-shot driver registers
// fragments straight from the disk scan, so no specifier resolution exists.
type nullResolver struct{}

func (nullResolver) Resolve(context.Context, string, string) (string, error) {
	return "", nil
}
