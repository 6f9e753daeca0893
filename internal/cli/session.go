package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/roach88/playscript/internal/catalog"
	"github.com/roach88/playscript/internal/config"
	"github.com/roach88/playscript/internal/engine"
	"github.com/roach88/playscript/internal/expr"
	"github.com/roach88/playscript/internal/library"
	"github.com/roach88/playscript/internal/spotify"
	"github.com/roach88/playscript/internal/store"
)

// DefaultQueueFile is the offline queue written inside the library
// directory when no queue file is configured.
const DefaultQueueFile = "queue.m3u"

// Backend is the catalog a session resolves from and the sink it plays to.
type Backend struct {
	Source catalog.Source
	Sink   engine.Sink

	// TrackPrefix marks queries that are track ids. Empty means the
	// resolver default.
	TrackPrefix string
}

// BackendFunc builds the backend for a configuration.
type BackendFunc func(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Backend, error)

// SessionOptions holds the flags and test hooks shared by run and repl.
type SessionOptions struct {
	Library   string
	QueueFile string
	Seed      uint64
	HasSeed   bool

	// Backend overrides backend selection (for testing).
	Backend BackendFunc

	// RunIDs overrides the run id generator (for testing).
	// If nil, defaults to UUIDv7Generator.
	RunIDs engine.RunIDGenerator

	// Sleep overrides the settle pause (for testing).
	Sleep engine.SleepFunc
}

// session is an opened store plus an interpreter wired to a backend.
type session struct {
	cfg      *config.Config
	store    *store.Store
	resolver *catalog.Resolver
	interp   *engine.Interpreter
	logger   *slog.Logger
}

func openSession(ctx context.Context, root *RootOptions, opts *SessionOptions, logger *slog.Logger) (*session, error) {
	cfg, err := root.loadConfig()
	if err != nil {
		return nil, err
	}
	if opts.Library != "" {
		cfg.Library.Dir = opts.Library
	}
	if opts.QueueFile != "" {
		cfg.Library.QueueFile = opts.QueueFile
	}

	st, err := openStore(cfg.Database)
	if err != nil {
		return nil, err
	}
	s := &session{cfg: cfg, store: st, logger: logger}
	if err := s.wire(ctx, opts); err != nil {
		_ = st.Close()
		return nil, err
	}
	return s, nil
}

// openStore opens the database, creating its directory.
func openStore(path string) (*store.Store, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, WrapExitError(ExitCommandError, "failed to create database directory", err)
		}
	}
	slog.Debug("opening database", "path", path)
	st, err := store.Open(path)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to open database", err)
	}
	return st, nil
}

func (s *session) wire(ctx context.Context, opts *SessionOptions) error {
	cache, err := loadCache(ctx, s.store, s.cfg.Aliases)
	if err != nil {
		return err
	}

	newBackend := opts.Backend
	if newBackend == nil {
		newBackend = DefaultBackend
	}
	backend, err := newBackend(ctx, s.cfg, s.logger)
	if err != nil {
		return err
	}

	ropts := []catalog.ResolverOption{catalog.WithResolverLogger(s.logger)}
	if backend.TrackPrefix != "" {
		ropts = append(ropts, catalog.WithTrackPrefix(backend.TrackPrefix))
	}
	s.resolver = catalog.NewResolver(backend.Source, cache, ropts...)

	var eopts []expr.Option
	if opts.HasSeed {
		eopts = append(eopts, expr.WithRand(rand.New(rand.NewPCG(opts.Seed, opts.Seed))))
	}
	ev := expr.New(expr.NewEnv(), s.resolver, eopts...)

	iopts := []engine.Option{
		engine.WithRecorder(s.store),
		engine.WithLogger(s.logger),
		engine.WithSettle(s.cfg.Settle()),
	}
	if opts.RunIDs != nil {
		iopts = append(iopts, engine.WithRunIDs(opts.RunIDs))
	}
	if opts.Sleep != nil {
		iopts = append(iopts, engine.WithSleep(opts.Sleep))
	}
	s.interp = engine.New(ev, backend.Sink, iopts...)
	return nil
}

// loadCache seeds configured aliases into the store, then loads cached
// tracks and every stored alias.
func loadCache(ctx context.Context, st *store.Store, aliases map[string]string) (*catalog.Cache, error) {
	for name, id := range aliases {
		if err := st.SetAlias(ctx, name, id); err != nil {
			return nil, WrapExitError(ExitCommandError, "failed to store alias", err)
		}
	}

	cache := catalog.NewCache()
	tracks, err := st.LoadTracks(ctx)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to load track cache", err)
	}
	cache.Preload(tracks)

	stored, err := st.Aliases(ctx)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to load aliases", err)
	}
	for _, a := range stored {
		cache.SetAlias(a.Name, a.PlaylistID)
	}
	slog.Debug("cache loaded", "tracks", len(tracks), "aliases", len(stored))
	return cache, nil
}

// DefaultBackend uses the local library when one is configured and the
// Spotify Web API otherwise.
func DefaultBackend(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Backend, error) {
	if cfg.Offline() {
		return libraryBackend(cfg)
	}
	return spotifyBackend(ctx, cfg, logger)
}

func libraryBackend(cfg *config.Config) (*Backend, error) {
	lib, err := library.Scan(cfg.Library.Dir)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to scan library", err)
	}
	queue := cfg.Library.QueueFile
	if queue == "" {
		queue = filepath.Join(cfg.Library.Dir, DefaultQueueFile)
	}
	slog.Info("offline library", "dir", lib.Dir, "tracks", lib.Len(), "queue", queue)
	return &Backend{
		Source:      lib,
		Sink:        library.NewQueueFile(queue, lib),
		TrackPrefix: library.TrackPrefix,
	}, nil
}

func spotifyBackend(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Backend, error) {
	if cfg.ClientID == "" {
		return nil, NewExitError(ExitCommandError, "no client_id configured (set it in the config file, or use --library)")
	}
	httpClient, err := spotify.HTTPClient(ctx, spotify.OAuthConfig(credentials(cfg)), cfg.TokenFile)
	if errors.Is(err, spotify.ErrNoToken) {
		return nil, NewExitError(ExitCommandError, "not logged in: run 'playscript login' first")
	}
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to load token", err)
	}
	client := spotify.NewClient(httpClient,
		spotify.WithMarket(cfg.Market),
		spotify.WithLogger(logger),
	)
	return &Backend{Source: client, Sink: spotify.NewPlayer(client)}, nil
}

func credentials(cfg *config.Config) spotify.Credentials {
	return spotify.Credentials{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		RedirectURI:  cfg.RedirectURI,
		Scopes:       cfg.Scopes,
	}
}

// close persists tracks resolved during the session and closes the store.
// It runs after quit and after failures too.
func (s *session) close(ctx context.Context) error {
	ctx = context.WithoutCancel(ctx)
	added := s.resolver.Cache().Added()
	var saveErr error
	if len(added) > 0 {
		n, err := s.store.SaveTracks(ctx, added)
		if err != nil {
			saveErr = fmt.Errorf("save track cache: %w", err)
		} else {
			s.logger.Debug("track cache saved", "tracks", n)
		}
	}
	if err := s.store.Close(); err != nil && saveErr == nil {
		saveErr = fmt.Errorf("close database: %w", err)
	}
	return saveErr
}

// withSignals returns a context cancelled on SIGINT or SIGTERM.
func withSignals(parent context.Context) (context.Context, context.CancelFunc) {
	if parent == nil {
		parent = context.Background()
	}
	ctx, cancel := context.WithCancel(parent)
	stop := notifySignals(ctx, cancel)
	return ctx, func() {
		stop()
		cancel()
	}
}

func notifySignals(ctx context.Context, cancel context.CancelFunc) func() {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		select {
		case sig := <-sigChan:
			slog.Info("received signal, stopping", "signal", sig)
			cancel()
		case <-ctx.Done():
			// Parent context cancelled (e.g., from test)
		}
	}()
	return func() { signal.Stop(sigChan) } // Prevent signal handler leak
}
