package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"syscall"
	"time"

	embeddedpostgres "github.com/fergusstrange/embedded-postgres"
	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/sailchat/internal/chat"
	"github.com/sailchat/internal/config"
	"github.com/sailchat/internal/email"
	"github.com/sailchat/internal/handler"
	"github.com/sailchat/internal/logger"
	"github.com/sailchat/internal/middleware"
	"github.com/sailchat/internal/notify"
	"github.com/sailchat/internal/presence"
	"github.com/sailchat/internal/push"
	"github.com/sailchat/internal/repository"
	"github.com/sailchat/internal/startup"
	"github.com/sailchat/internal/storage"
	"github.com/sailchat/internal/storage/memory"
	"github.com/sailchat/internal/ws"
	"github.com/sailchat/migrations"
)

func main() {
	logger.SetPrefix("api")
	defer logger.Flush()
	migrate := flag.Bool("migrate", false, "run database migrations and exit")
	dev := flag.Bool("dev", false, "start with embedded PostgreSQL and in-memory sessions (no external services required)")
	flag.Parse()

	logger.Info("starting chat API service")
	cfg := config.Load()

	var embeddedDB *embeddedpostgres.EmbeddedPostgres
	if *dev {
		var err error
		embeddedDB, err = startEmbeddedPostgres(cfg)
		if err != nil {
			fatalf("embedded postgres: %v", err)
		}
		defer func() {
			logger.Info("stopping embedded postgres...")
			if err := embeddedDB.Stop(); err != nil {
				logger.Errorf("embedded postgres stop: %v", err)
			}
		}()
	}

	poolCfg, err := pgxpool.ParseConfig(cfg.DatabaseURL())
	if err != nil {
		fatalf("parse db config: %v", err)
	}
	poolCfg.MaxConns = int32(cfg.DBMaxConnections())
	poolCfg.MinConns = 4

	pool := startup.ConnectDBWithRetry(poolCfg, 60*time.Second, "")
	defer pool.Close()

	runMigrations(pool)
	if *migrate && !*dev {
		return
	}
	logger.Info("database connected, migrations applied")

	// Сессии и push-подписки: Redis в prod, память в -dev.
	var store storage.SessionPushStore
	if *dev {
		store = memory.New()
	} else {
		store = startup.ConnectRedisWithRetry(cfg.Redis.URL, 60*time.Second, "")
	}
	defer store.Close()

	userRepo := repository.NewUserRepository(pool)
	chatRepo := repository.NewChatRepository(pool)
	msgRepo := repository.NewMessageRepository(pool)
	sailRepo := repository.NewSailRepository(pool)
	agreementRepo := repository.NewAgreementRepository(pool)
	attachmentRepo := repository.NewAttachmentRepository(pool)
	notificationRepo := repository.NewNotificationRepository(pool)

	registry := presence.NewRegistry()
	hub := ws.NewHub(registry, cfg.MaxWSConnections)

	hubCtx, hubCancel := context.WithCancel(context.Background())
	var hubWg sync.WaitGroup
	hubWg.Add(1)
	go func() {
		defer hubWg.Done()
		hub.Run(hubCtx)
	}()

	mailer := email.NewSender(&cfg.SMTP)
	pushSender := push.NewSender("mailto:"+cfg.SMTP.FromEmail, cfg.PushVAPIDPublicKey, cfg.PushVAPIDPrivateKey)
	if pushSender == nil {
		logger.Info("web push disabled: no VAPID keys")
	}
	notifier := notify.NewService(notificationRepo, hub, store, pushSender, cfg.AppName)

	chatSvc := chat.NewService(
		chat.Config{
			MailFromAddress: cfg.SMTP.FromEmail,
			MailFromName:    cfg.SMTP.FromName,
			AppName:         cfg.AppName,
		},
		chatRepo, msgRepo, userRepo, sailRepo, agreementRepo, attachmentRepo,
		registry, hub, mailer,
	)

	chatH := handler.NewChatHandler(chatSvc)
	agreementH := handler.NewAgreementHandler(chatSvc, notifier)
	notificationH := handler.NewNotificationHandler(notifier)
	pushH := handler.NewPushHandler(store)
	sessionH := handler.NewSessionHandler(store)
	configH := handler.NewConfigHandler(cfg)
	wsH := handler.NewWSHandler(hub, cfg.CORSAllowedOrigins)

	r := chi.NewRouter()
	r.Use(chimw.RealIP)
	r.Use(chimw.Logger)
	r.Use(middleware.RecoverJSON)
	// Не сжимать WebSocket — иначе ResponseWriter не реализует http.Hijacker и upgrade даёт 500.
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			if strings.EqualFold(req.Header.Get("Upgrade"), "websocket") {
				next.ServeHTTP(w, req)
				return
			}
			chimw.Compress(5)(next).ServeHTTP(w, req)
		})
	})
	r.Use(middleware.RequestLog)
	r.Use(middleware.SecureHeaders)
	r.Use(middleware.RateLimitAPI)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{cfg.CORSAllowedOrigins},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK); w.Write([]byte("ok")) })
	r.Get("/api/config/push", configH.GetPushConfig)

	// Платформа маркетплейса регистрирует сессии после своего логина.
	r.Group(func(r chi.Router) {
		r.Use(middleware.InternalOnly)
		r.Post("/internal/session", sessionH.Put)
		r.Delete("/internal/session", sessionH.Delete)
	})

	r.Group(func(r chi.Router) {
		r.Use(middleware.SessionAuth(store))
		r.Get("/api/chats", chatH.ListChats)
		r.Post("/api/chats", chatH.InitiateChat)
		r.Get("/api/chats/unread-count", chatH.UnreadCount)
		r.Get("/api/chats/{chatID}/messages", chatH.History)
		r.Post("/api/chats/{chatID}/messages", chatH.SendMessage)
		r.Post("/api/chats/{chatID}/agreement", agreementH.Generate)
		r.Post("/api/agreements/{agreementID}/accept", agreementH.Accept)
		r.Post("/api/agreements/{agreementID}/reject", agreementH.Reject)
		r.Post("/api/enquiries", chatH.ExpressInterest)
		r.Get("/api/notifications", notificationH.List)
		r.Post("/api/notifications/read", notificationH.MarkAllRead)
		r.Post("/api/push/subscribe", pushH.Subscribe)
		r.Delete("/api/push/subscribe", pushH.Unsubscribe)
		r.Get("/ws", wsH.ServeWS)
	})

	srv := &http.Server{
		Addr:         cfg.ServerAddr,
		Handler:      r,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}

	var srvWg sync.WaitGroup
	errCh := make(chan error, 1)
	srvWg.Add(1)
	go func() {
		defer srvWg.Done()
		logger.Infof("server listening on %s", cfg.ServerAddr)
		errCh <- srv.ListenAndServe()
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-quit:
		logger.Info("shutdown signal received")
	case err := <-errCh:
		if err != nil && err != http.ErrServerClosed {
			fatalf("server error: %v", err)
		}
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Errorf("server shutdown: %v", err)
	}
	logger.Info("server stopped accepting connections")
	hubCancel()
	hubWg.Wait()
	logger.Info("hub stopped")
	srvWg.Wait()
	logger.Info("server goroutine exited")
}

func runMigrations(pool *pgxpool.Pool) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	entries, err := migrations.Files.ReadDir(".")
	if err != nil {
		fatalf("read migrations: %v", err)
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if strings.HasSuffix(e.Name(), ".sql") {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)

	for _, name := range names {
		data, err := migrations.Files.ReadFile(name)
		if err != nil {
			fatalf("read migration %s: %v", name, err)
		}
		if _, err := pool.Exec(ctx, string(data)); err != nil {
			fatalf("run migration %s: %v", name, err)
		}
	}
	logger.Info("migrations applied")
}

func startEmbeddedPostgres(cfg *config.Config) (*embeddedpostgres.EmbeddedPostgres, error) {
	const (
		port     = 5432
		user     = "sailchat"
		password = "sailchat_secret"
		database = "sailchat"
	)

	dataDir := filepath.Join(".", ".pgdata")
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return nil, fmt.Errorf("create pgdata dir: %w", err)
	}

	db := embeddedpostgres.NewDatabase(
		embeddedpostgres.DefaultConfig().
			Port(port).
			Username(user).
			Password(password).
			Database(database).
			DataPath(dataDir).
			RuntimePath(filepath.Join(os.TempDir(), "embedded-pg-runtime")),
	)

	logger.Info("starting embedded PostgreSQL...")
	if err := db.Start(); err != nil {
		return nil, fmt.Errorf("start: %w", err)
	}

	cfg.Database.URL = fmt.Sprintf(
		"postgres://%s:%s@localhost:%d/%s?sslmode=disable",
		user, password, port, database,
	)
	logger.Infof("embedded PostgreSQL running on port %d", port)
	return db, nil
}

// fatalf логирует ошибку, дожидается записи лога и завершает процесс.
func fatalf(format string, v ...any) {
	logger.Errorf(format, v...)
	logger.Flush()
	os.Exit(1)
}
