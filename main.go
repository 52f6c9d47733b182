package main

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	cfg "github.com/cybercare/previewgate/internal/config"
	"github.com/gorilla/mux"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	_ "modernc.org/sqlite"
)

type App struct {
	cfg        *cfg.Config
	log        *zap.SugaredLogger
	db         DB
	gate       *Gate
	renderer   *Renderer
	mailer     Sender
	reqLimiter *RequestLimiter
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v == nil {
		return
	}
	json.NewEncoder(w).Encode(v)
}

func (a *App) routes() *mux.Router {
	r := mux.NewRouter()

	// Apply global middleware
	r.Use(SecurityHeaders)
	r.Use(a.Logging)
	r.Use(a.CORS)

	// Health check endpoints (no auth required)
	r.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(200)
		w.Write([]byte(`{"status":"ok"}`))
	}).Methods("GET")
	r.HandleFunc("/ready", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if p, ok := a.db.(interface{ ping() bool }); ok {
			if !p.ping() {
				w.WriteHeader(503)
				w.Write([]byte(`{"ready":false}`))
				return
			}
		}
		w.WriteHeader(200)
		w.Write([]byte(`{"ready":true}`))
	}).Methods("GET")

	// Marketing pages. The nav links use plain filenames, so both the
	// filename routes and the friendly aliases resolve.
	r.HandleFunc("/", a.HandlePage("index.html")).Methods("GET")
	r.HandleFunc("/index.html", a.HandlePage("index.html")).Methods("GET")
	r.HandleFunc("/about_us.html", a.HandlePage("about_us.html")).Methods("GET")
	r.HandleFunc("/our_services.html", a.HandlePage("our_services.html")).Methods("GET")
	r.HandleFunc("/contact_us.html", a.HandlePage("contact_us.html")).Methods("GET")
	r.HandleFunc("/about", a.HandlePage("about_us.html")).Methods("GET")
	r.HandleFunc("/services", a.HandlePage("our_services.html")).Methods("GET")
	r.HandleFunc("/contact", a.HandlePage("contact_us.html")).Methods("GET")

	// Preview gate
	r.HandleFunc("/preview/{pageKey}", a.HandlePreviewPage).Methods("GET")

	// API routes with per-client request limiting
	api := r.PathPrefix("/api").Subrouter()
	api.Use(a.RateLimit)
	api.HandleFunc("/preview/submit", a.HandleSubmitCode).Methods("POST")
	api.HandleFunc("/contact", a.HandleContact).Methods("POST")

	// Admin endpoints (operator seeding, API-key gated)
	admin := api.PathPrefix("/admin").Subrouter()
	admin.Use(a.AdminAuth)
	admin.HandleFunc("/pages", a.HandleUpsertPage).Methods("POST")
	admin.HandleFunc("/pages/{pageKey}/active", a.HandleSetPageActive).Methods("POST")
	admin.HandleFunc("/codes", a.HandleCreateCode).Methods("POST")
	admin.HandleFunc("/codes/{fingerprint}/active", a.HandleSetCodeActive).Methods("POST")

	return r
}

func main() {
	c, err := cfg.New()
	if err != nil {
		// Config failures include a missing CODE_SALT: the gate must not
		// start with a guessable salt, so there is no fallback here.
		log.Fatalf("config: %v", err)
	}

	logger := NewLogger(c.Env)
	defer logger.Sync()
	sugar := logger.Sugar()

	var db DB
	switch c.DBAdapter {
	case "sqlite":
		s, err := NewSQLiteDB(c.SQLiteFile)
		if err != nil {
			sugar.Fatalw("sqlite init failed", "error", err)
		}
		db = s
	case "postgres":
		sugar.Infow("applying database migrations")
		if err := ApplyMigrations("./migrations", c.PostgresDSN); err != nil {
			sugar.Fatalw("migrations failed", "error", err)
		}
		p, err := NewPostgresDB(c.PostgresDSN)
		if err != nil {
			sugar.Fatalw("postgres init failed", "error", err)
		}
		db = p
		sugar.Infow("connected to PostgreSQL")
	case "memory":
		sugar.Warnw("using in-memory database (not recommended for production)")
		db = NewMemoryDB()
	default:
		sugar.Fatalw("unsupported DB_ADAPTER", "adapter", c.DBAdapter)
	}

	var attempts AttemptStore
	if c.RedisAddr != "" {
		client := redis.NewClient(&redis.Options{Addr: c.RedisAddr})
		attempts = NewRedisAttemptStore(client, c.RateLimitMax, c.RateLimitWindow)
		sugar.Infow("attempt counters in Redis", "addr", c.RedisAddr)
	} else {
		// Process-local counters: lost on restart, not shared between
		// instances. Acceptable for a single-instance deployment.
		attempts = NewMemoryAttemptStore(c.RateLimitMax, c.RateLimitWindow, nil)
	}

	renderer, err := NewRenderer(c.TemplatesDir)
	if err != nil {
		sugar.Fatalw("template init failed", "error", err)
	}

	app := &App{
		cfg:        c,
		log:        sugar,
		db:         db,
		gate:       NewGate(db, attempts, c.CodeSalt, []byte(c.SessionSecret), c.GrantTTL, sugar),
		renderer:   renderer,
		mailer:     NewBrevoSender(c.BrevoAPIKey, c.MailFrom, c.MailFromName),
		reqLimiter: NewRequestLimiter(120, 30),
	}

	srv := &http.Server{Handler: app.routes(), Addr: ":" + c.Port, ReadTimeout: 5 * time.Second, WriteTimeout: 10 * time.Second}

	go func() {
		sugar.Infow("starting server", "port", c.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			sugar.Fatalw("server error", "error", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if closer, ok := app.db.(interface{ close() error }); ok {
		_ = closer.close()
	}
	if err := srv.Shutdown(ctx); err != nil {
		sugar.Fatalw("shutdown failed", "error", err)
	}
	sugar.Infow("server exited properly")
}
