package main

import (
	"context"
	"crypto/ecdsa"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"git.sr.ht/~jakintosh/authform/internal/api"
	"git.sr.ht/~jakintosh/authform/internal/app"
	"git.sr.ht/~jakintosh/authform/internal/config"
	"git.sr.ht/~jakintosh/authform/internal/database"
	"git.sr.ht/~jakintosh/authform/internal/identity"
	"git.sr.ht/~jakintosh/authform/internal/resources"
	"git.sr.ht/~jakintosh/authform/internal/routing"
	"git.sr.ht/~jakintosh/authform/internal/session"
	"git.sr.ht/~jakintosh/authform/internal/tracing"
	"github.com/redis/go-redis/v9"
)

const serviceName = "authform"

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := tracing.Setup(ctx, serviceName, cfg.OTelEndpoint)
	if err != nil {
		log.Fatalf("Failed to set up tracing: %v", err)
	}

	db := database.NewSQLiteStore(cfg.DBPath)
	tokens := identity.NewTokenIssuer(
		readSigningKey(cfg.SigningKeyPath),
		cfg.Issuer,
		cfg.Audience,
		cfg.IDTokenTTL,
	)
	provider := identity.New(db.AccountStore(), tokens, identity.PasswordModeProduction)

	var sessions session.Store
	if cfg.RedisAddr != "" {
		sessions = openRedis(ctx, cfg.RedisAddr)
	} else {
		sessions = db.SessionStore()
		go pruneSessions(ctx, db, cfg.SessionPruneInterval)
	}
	registrar := session.NewRegistrar(db.ProfileStore(), sessions, tokens, cfg.SessionTTL)

	templates, err := resources.LoadTemplates(cfg.TemplatesDir)
	if err != nil {
		log.Fatalf("Failed to load templates: %v", err)
	}
	if cfg.WatchTemplates {
		if err := templates.Watch(); err != nil {
			log.Fatalf("Failed to start template watcher: %v", err)
		}
	}

	cookie := session.CookieConfig{
		Name:   session.DefaultCookieName,
		Secure: cfg.CookieSecure,
	}
	a := app.New(app.Options{
		Provider:  provider,
		Registrar: registrar,
		Templates: templates,
		Cookie:    cookie,
		Brand:     cfg.AppName,
		Tagline:   cfg.AppTagline,
	})
	s := api.New(registrar, cookie)

	server := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           routing.BuildRouter(a, s),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Printf("Listening on %s\n", cfg.Addr())
		err := server.ListenAndServe()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("Server failed: %v", err)
		}
	}()

	<-ctx.Done()
	log.Printf("Shutting down\n")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("Server shutdown failed: %v\n", err)
	}
	if err := templates.Close(); err != nil {
		log.Printf("Template watcher shutdown failed: %v\n", err)
	}
	if err := shutdownTracing(shutdownCtx); err != nil {
		log.Printf("Tracing shutdown failed: %v\n", err)
	}
	if err := db.Close(); err != nil {
		log.Printf("Database close failed: %v\n", err)
	}
}

// readSigningKey loads the token signing key, or generates a throwaway one
// when no path is configured. Tokens signed by a throwaway key do not survive
// a restart.
func readSigningKey(path string) *ecdsa.PrivateKey {
	if path != "" {
		key, err := identity.LoadSigningKey(path)
		if err != nil {
			log.Fatalf("Failed to load signing key: %v", err)
		}
		return key
	}

	log.Printf("WARNING: SIGNING_KEY_PATH not set, using an ephemeral signing key\n")
	key, err := identity.GenerateSigningKey()
	if err != nil {
		log.Fatalf("Failed to generate signing key: %v", err)
	}
	return key
}

func openRedis(ctx context.Context, addr string) *session.RedisStore {
	client := redis.NewClient(&redis.Options{Addr: addr})
	if err := client.Ping(ctx).Err(); err != nil {
		log.Fatalf("Failed to connect to redis at %s: %v", addr, err)
	}
	log.Printf("Storing sessions in redis at %s\n", addr)
	return session.NewRedisStore(client)
}

// pruneSessions removes expired SQLite sessions until ctx is done. Redis
// expires its own keys.
func pruneSessions(
	ctx context.Context,
	db *database.SQLiteStore,
	interval time.Duration,
) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			n, err := db.DeleteExpiredSessions(ctx, now)
			if err != nil {
				log.Printf("Failed to prune sessions: %v\n", err)
				continue
			}
			if n > 0 {
				log.Printf("Pruned %d expired sessions\n", n)
			}
		}
	}
}
