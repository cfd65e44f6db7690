package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"time"

	"golang.org/x/text/language"
	"golang.org/x/time/rate"

	"github.com/rebano/rebano-go/internal/authclient"
	"github.com/rebano/rebano-go/internal/config"
	"github.com/rebano/rebano-go/internal/contentcache"
	"github.com/rebano/rebano-go/internal/controller"
	"github.com/rebano/rebano-go/internal/gateway"
	"github.com/rebano/rebano-go/internal/notify"
	"github.com/rebano/rebano-go/internal/view"
)

// clientID names this process as a client of the content cache.
const clientID = "cli"

const requestTimeout = 30 * time.Second

// app is the set of collaborators one command invocation works with.
type app struct {
	cfg    config.Client
	log    *slog.Logger
	out    io.Writer
	errOut io.Writer

	storage   *contentcache.DirStorage
	container *contentcache.Container
	tokens    gateway.TokenStore
	gateway   *gateway.Gateway
	session   *authclient.Session
	registry  *controller.Registry
	doc       *view.MemoryDocument
}

func defaultConfigPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ""
	}
	return filepath.Join(dir, "rebano", "config.yaml")
}

func newApp(ctx context.Context, opts *RootOptions, out, errOut io.Writer) (*app, error) {
	cfg, err := config.LoadClient(opts.ConfigPath)
	if err != nil {
		return nil, err
	}

	level := slog.LevelWarn
	if opts.Verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(errOut, &slog.HandlerOptions{Level: level}))

	lang, err := language.Parse(cfg.Locale)
	if err != nil {
		return nil, fmt.Errorf("locale %q: %w", cfg.Locale, err)
	}
	formatter, err := view.NewFormatter(cfg.Locale, cfg.Currency)
	if err != nil {
		return nil, err
	}

	a := &app{
		cfg:     cfg,
		log:     logger,
		out:     out,
		errOut:  errOut,
		storage: contentcache.NewDirStorage(cfg.Cache.Dir),
		tokens:  gateway.NewFileTokenStore(cfg.CredentialFile),
		doc:     view.NewMemoryDocument(),
	}
	notifier := notify.NewWriterNotifier(errOut)

	network := &http.Client{Timeout: requestTimeout}
	a.container = contentcache.NewContainer(a.storage, network, logger)
	a.container.Attach(clientID)

	// A previously installed generation serves this run without refetching.
	cacheCfg, err := a.cacheConfig()
	if err != nil {
		return nil, err
	}
	if w, err := a.resume(ctx, cacheCfg); err != nil {
		logger.Warn("content cache unavailable", "error", err)
	} else if w != nil {
		logger.Debug("content cache resumed", "version", w.Version())
	}

	httpClient := &http.Client{
		Transport: &contentcache.Transport{Container: a.container, ClientID: clientID},
		Timeout:   requestTimeout,
	}

	var limiter *rate.Limiter
	if cfg.RatePerSecond > 0 {
		limiter = rate.NewLimiter(rate.Limit(cfg.RatePerSecond), 1)
	}

	a.gateway = gateway.New(gateway.Config{
		BaseURL:  cfg.APIURL,
		Client:   httpClient,
		Tokens:   a.tokens,
		Notifier: notifier,
		OnSessionExpired: func() {
			fmt.Fprintln(errOut, "Sesión expirada. Ejecuta `rebano login` para continuar.")
		},
		Limiter: limiter,
		Logger:  logger,
	})

	var renderer view.Renderer = view.Text{}
	if opts.Format == "html" {
		renderer = view.HTML{}
	}

	a.registry = controller.NewRegistry(controller.Deps{
		Caller:    a.gateway,
		Document:  a.doc,
		Renderer:  renderer,
		Notifier:  notifier,
		Formatter: formatter,
		Logger:    logger,
		Strict:    cfg.Strict || opts.Strict,
	})
	a.session = authclient.NewSession(authclient.NewClient(cfg.AuthURL, httpClient), a.gateway, a.tokens, notifier, logger, lang)

	return a, nil
}

func (a *app) cacheConfig() (contentcache.Config, error) {
	origin, err := url.Parse(a.cfg.Cache.Origin)
	if err != nil {
		return contentcache.Config{}, fmt.Errorf("cache origin: %w", err)
	}
	return contentcache.Config{
		Version:        a.cfg.Cache.Version,
		Origin:         origin,
		Manifest:       a.cfg.Cache.Manifest,
		WaitForClients: a.cfg.Cache.WaitForClients,
	}, nil
}

// resume activates the configured generation from disk. When it was never
// installed, the most recently stored generation keeps control until the configured
// one is installed, as an outdated worker would in a browser.
func (a *app) resume(ctx context.Context, cfg contentcache.Config) (*contentcache.Worker, error) {
	w, ok, err := a.container.Resume(ctx, cfg)
	if err != nil || ok {
		return w, err
	}
	newest, ok, err := contentcache.Newest(ctx, a.storage)
	if err != nil || !ok {
		return nil, err
	}
	cfg.Version = newest
	w, _, err = a.container.Resume(ctx, cfg)
	return w, err
}

// close detaches this process from the content cache, letting a waiting
// generation take over.
func (a *app) close(ctx context.Context) error {
	return a.container.Detach(ctx, clientID)
}

func (a *app) writeList(list string) error {
	return a.doc.WriteList(a.out, list)
}
