package main

import (
	"context"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"kosmicapps.com/internal/adminauth"
	"kosmicapps.com/internal/httpapi"
	"kosmicapps.com/internal/mailer"
	"kosmicapps.com/internal/obs"
	"kosmicapps.com/internal/site"
	"kosmicapps.com/internal/store/pg"
)

var (
	version = "0.3.1"
	commit  = "dev"
)

func main() {
	// .env is optional; real deployments set the environment directly.
	_ = godotenv.Load()

	obs.Init()
	obs.InitBuildInfo(version, commit)

	if os.Getenv("KOSMIC_SESSION_SECRET") == "" {
		log.Fatal("KOSMIC_SESSION_SECRET is required")
	}
	// An unset admin identity is surfaced per request as a configuration
	// error, so the public site keeps serving without it.
	authCfg := adminauth.Config{
		AdminUsername: os.Getenv("KOSMIC_ADMIN_USERNAME"),
		AdminEmail:    os.Getenv("KOSMIC_ADMIN_EMAIL"),
	}
	if authCfg.AdminUsername == "" || authCfg.AdminEmail == "" {
		log.Print("KOSMIC_ADMIN_USERNAME/KOSMIC_ADMIN_EMAIL not set; admin auth requests will fail with a configuration error")
	}

	// Key and lockout state: Redis when configured, otherwise in-process.
	var (
		keys    adminauth.KeyStore
		limiter adminauth.RateLimiter
	)
	if addr := os.Getenv("KOSMIC_REDIS_ADDR"); addr != "" {
		rk, rl, err := adminauth.NewRedisStores(adminauth.RedisConfig{
			Addr:     addr,
			Username: os.Getenv("KOSMIC_REDIS_USERNAME"),
			Password: os.Getenv("KOSMIC_REDIS_PASSWORD"),
		})
		if err != nil {
			log.Fatalf("redis: %v", err)
		}
		defer rk.Close()
		keys, limiter = rk, rl
		log.Printf("adminauth state in redis at %s", addr)
	} else {
		mk := adminauth.NewMemoryKeyStore()
		ml := adminauth.NewMemoryRateLimiter()
		defer mk.Close()
		defer ml.Close()
		keys, limiter = mk, ml
		log.Print("adminauth state in memory")
	}

	// Signups and interaction events: Postgres when configured.
	var (
		store site.Store
		ready httpapi.ReadyProbe
	)
	if dsn := os.Getenv("KOSMIC_PG_DSN"); dsn != "" {
		pgStore, err := pg.Open(dsn)
		if err != nil {
			log.Fatalf("open db: %v", err)
		}
		defer pgStore.Close()
		store = pgStore
		ready = httpapi.ReadyProbe{DB: pgStore.DB()}
		log.Print("site store in postgres")
	} else {
		store = site.NewMemoryStore()
		log.Print("site store in memory")
	}

	var mail mailer.Sender
	if apiKey := os.Getenv("KOSMIC_RESEND_API_KEY"); apiKey != "" {
		resend, err := mailer.NewResend(apiKey)
		if err != nil {
			log.Fatalf("mailer: %v", err)
		}
		mail = resend
	} else {
		mail = mailer.NewLogSender(slog.Default())
		log.Print("no KOSMIC_RESEND_API_KEY, logging outbound mail instead")
	}

	auth := adminauth.NewService(authCfg, keys, limiter, mail)

	api := httpapi.New(httpapi.Config{
		Auth:          auth,
		Store:         store,
		Mail:          mail,
		Ready:         ready,
		Version:       version,
		SecureCookies: os.Getenv("KOSMIC_ENV") == "production",
	})

	addr := os.Getenv("KOSMIC_HTTP_ADDR")
	if addr == "" {
		addr = ":8080"
	}
	srv := &http.Server{
		Addr:              addr,
		Handler:           api.Handler(),
		ReadTimeout:       15 * time.Second,
		ReadHeaderTimeout: 15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	log.Printf("Starting kosmic-api %s on %s", version, srv.Addr)

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("listen: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	<-stop
	log.Println("Shutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	_ = srv.Shutdown(ctx)
	log.Println("Stopped")
}
