// Package app is the PoliteMail web application: sign-in by emailed link,
// a compose form with a growable list of options, and stored messages.
package app

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/sessions"
	"go.uber.org/zap"

	"github.com/goliatone/go-politemail/internal/config"
	"github.com/goliatone/go-politemail/internal/mailer"
	"github.com/goliatone/go-politemail/internal/store"
	rendertemplate "github.com/goliatone/go-politemail/pkg/render/template"
	gotemplate "github.com/goliatone/go-politemail/pkg/render/template/gotemplate"
)

//go:embed templates/*.html
var embeddedTemplates embed.FS

//go:embed assets/*
var embeddedAssets embed.FS

// StylesheetName is the embedded stylesheet linked from every page.
const StylesheetName = "politemail.css"

// TemplatesFS exposes the built-in page templates.
func TemplatesFS() fs.FS {
	sub, err := fs.Sub(embeddedTemplates, "templates")
	if err != nil {
		return embeddedTemplates
	}
	return sub
}

// AssetsFS exposes the embedded stylesheet bundle so callers can serve it or
// copy it into their own asset pipeline.
func AssetsFS() fs.FS {
	sub, err := fs.Sub(embeddedAssets, "assets")
	if err != nil {
		return embeddedAssets
	}
	return sub
}

// Option configures an App.
type Option func(*App)

// WithStore injects an already opened store. The App will not close it.
func WithStore(s *store.Store) Option {
	return func(a *App) {
		if s != nil {
			a.store = s
		}
	}
}

// WithMailer sets the sender used for login links.
func WithMailer(sender mailer.Sender) Option {
	return func(a *App) {
		if sender != nil {
			a.mailer = sender
		}
	}
}

// WithLogger sets the application logger.
func WithLogger(logger *zap.Logger) Option {
	return func(a *App) {
		if logger != nil {
			a.logger = logger
		}
	}
}

// WithClock overrides the time source used to age login links.
func WithClock(now func() time.Time) Option {
	return func(a *App) {
		if now != nil {
			a.now = now
		}
	}
}

// WithTemplatesFS replaces the embedded page templates.
func WithTemplatesFS(files fs.FS) Option {
	return func(a *App) {
		if files != nil {
			a.templateFS = files
		}
	}
}

// App holds everything a request handler needs.
type App struct {
	cfg          config.Config
	templates    rendertemplate.TemplateRenderer
	templateFS   fs.FS
	store        *store.Store
	ownsStore    bool
	mailer       mailer.Sender
	sessionStore *sessions.CookieStore
	logger       *zap.Logger
	now          func() time.Time
	router       chi.Router
}

// New builds the application from cfg. The database named in cfg is opened
// unless a store is injected.
func New(ctx context.Context, cfg config.Config, options ...Option) (*App, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	a := &App{
		cfg:        cfg,
		templateFS: TemplatesFS(),
		logger:     zap.NewNop(),
		now:        time.Now,
	}
	for _, opt := range options {
		if opt != nil {
			opt(a)
		}
	}
	if a.mailer == nil {
		a.mailer = mailer.LogSender{Logger: a.logger.Named("mailer")}
	}

	if dir := strings.TrimSpace(cfg.TemplatesDir); dir != "" {
		a.templateFS = os.DirFS(dir)
	}
	engine, err := gotemplate.New(
		gotemplate.WithFS(a.templateFS),
		gotemplate.WithExtension(".html"),
		gotemplate.WithReload(cfg.Debug),
		gotemplate.WithGlobalData(map[string]any{
			"logout_url":     "/logout",
			"stylesheet_url": "/" + StylesheetName,
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("app: configure templates: %w", err)
	}
	a.templates = engine

	if a.store == nil {
		s, err := store.Open(ctx, cfg.Database)
		if err != nil {
			return nil, fmt.Errorf("app: %w", err)
		}
		a.store = s
		a.ownsStore = true
	}

	a.sessionStore = sessions.NewCookieStore([]byte(cfg.SecretKey))
	a.sessionStore.Options.HttpOnly = true
	a.sessionStore.Options.SameSite = http.SameSiteLaxMode
	a.sessionStore.Options.Secure = strings.HasPrefix(cfg.BaseURL, "https://")

	return a, nil
}

// Close releases resources the App opened itself.
func (a *App) Close() error {
	if a == nil || !a.ownsStore {
		return nil
	}
	return a.store.Close()
}

// Store exposes the message store for CLI commands sharing the App setup.
func (a *App) Store() *store.Store {
	return a.store
}

// Handler returns the routed HTTP handler. The router is built once.
func (a *App) Handler() http.Handler {
	if a.router != nil {
		return a.router
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(a.logRequests)
	r.Use(a.loadState)

	r.Get("/", a.handleHome)
	r.Get("/compose", a.handleCompose)
	r.Post("/message", a.handleMessage)
	r.Get("/messages", a.handleMessages)
	r.Post("/login", a.handleLogin)
	r.Get("/login/{key}", a.handleLoginCallback)
	r.Get("/logout", a.handleLogout)
	r.Handle("/"+StylesheetName, http.FileServer(http.FS(AssetsFS())))

	// Static assets are normally served by a frontend; this is for local use.
	if dir := strings.TrimSpace(a.cfg.StaticDir); dir != "" {
		r.NotFound(http.FileServer(http.Dir(dir)).ServeHTTP)
	}

	a.router = r
	return r
}

// Serve runs the HTTP server until ctx is canceled, then shuts down
// gracefully.
func (a *App) Serve(ctx context.Context) error {
	srv := &http.Server{
		Addr:              a.cfg.Addr,
		Handler:           a.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		a.logger.Info("listening", zap.String("addr", a.cfg.Addr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("app: serve: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("app: shutdown: %w", err)
	}
	return nil
}

func (a *App) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := a.now()
		next.ServeHTTP(ww, r)
		a.logger.Debug("request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Duration("elapsed", a.now().Sub(start)),
			zap.String("request_id", middleware.GetReqID(r.Context())),
		)
	})
}
