// Command corsaird is a demo server wiring every corsair package
// together: TLS-sniffing listener, router with a REST resource, a
// WebSocket echo endpoint, JWT auth and rate-limit policies, and
// cookie-backed sessions.
package main

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/joho/godotenv"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/corsair-io/corsair/config"
	"github.com/corsair-io/corsair/httpx"
	"github.com/corsair-io/corsair/listener"
	"github.com/corsair-io/corsair/policy"
	"github.com/corsair-io/corsair/rest"
	"github.com/corsair-io/corsair/router"
	"github.com/corsair-io/corsair/session"
	"github.com/corsair-io/corsair/session/storepg"
	"github.com/corsair-io/corsair/transport"
)

type echoPayload struct {
	Message string `json:"message" validate:"required,max=500"`
}

type echoResult struct {
	ID      string `json:"id"`
	Message string `json:"message"`
}

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	if err := godotenv.Load(); err != nil {
		logger.Warn("no .env file loaded", slog.String("error", err.Error()))
	}

	cfg := config.Load()

	sessionStore := sessionStoreFor(cfg, logger)
	sessions := session.NewManager(sessionStore, cfg.SessionTTL, "")

	jwt := policy.NewJWT([]byte(cfg.JWTSecret), "corsair", 15*time.Minute)
	limiter := policy.NewRateLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst, 3*time.Minute)

	root := router.New(logger)
	root.SetServerString("corsair/1.0")
	root.EnablePreflights(router.DefaultPreflightConfig)

	if err := root.AddPolicy(`^/.*$`, limiter.Policy(func(h *httpx.Header) string {
		return h.Get("X-Forwarded-For")
	})); err != nil {
		logger.Error("FATAL: registering rate-limit policy", slog.String("error", err.Error()))
		os.Exit(1)
	}

	if err := root.AddPolicy(`^/api/secure/.*$`, jwt.RequireBearer()); err != nil {
		logger.Error("FATAL: registering auth policy", slog.String("error", err.Error()))
		os.Exit(1)
	}

	echoes := map[string]echoResult{}
	if err := rest.Bind(root, "echoes", rest.Handlers[echoPayload, echoPayload, echoResult]{
		List: func(*httpx.Request) ([]echoResult, error) {
			out := make([]echoResult, 0, len(echoes))
			for _, e := range echoes {
				out = append(out, e)
			}
			return out, nil
		},
		Get: func(id string, _ *httpx.Request) (echoResult, error) {
			e, ok := echoes[id]
			if !ok {
				return echoResult{}, rest.NewStatusError(http.StatusNotFound, 404, "no such echo")
			}
			return e, nil
		},
		Create: func(body echoPayload, _ *httpx.Request) (echoResult, error) {
			id := uuid.New().String()
			e := echoResult{ID: id, Message: body.Message}
			echoes[id] = e
			return e, nil
		},
	}); err != nil {
		logger.Error("FATAL: binding echoes resource", slog.String("error", err.Error()))
		os.Exit(1)
	}

	demoUser, err := policy.HashPassword("change-me")
	if err != nil {
		logger.Error("FATAL: hashing demo password", slog.String("error", err.Error()))
		os.Exit(1)
	}

	if err := root.Add(http.MethodPost, `^/login$`, func(req *httpx.Request) *httpx.Response {
		raw, err := httpx.ReadAll(req.Body)
		if err != nil {
			return httpx.BadRequest("could not read request body")
		}
		var creds struct {
			Email    string `json:"email"`
			Password string `json:"password"`
		}
		if err := json.Unmarshal(raw, &creds); err != nil {
			return httpx.BadRequest("malformed JSON body")
		}
		if creds.Email != "demo@corsair.io" || !policy.VerifyPassword(demoUser, creds.Password) {
			resp := httpx.NewResponse(http.StatusUnauthorized)
			resp.Body = &httpx.StringBody{Data: `{"error":{"code":"invalid_credentials"}}`}
			resp.Set("Content-Type", "application/json")
			return resp
		}

		_, cookie, err := sessions.Start(context.Background(), map[string]string{"email": creds.Email})
		if err != nil {
			return httpx.ServerError("could not start session")
		}
		resp := httpx.Ok(&httpx.EmptyBody{})
		resp.SetCookie(cookie)
		return resp
	}); err != nil {
		logger.Error("FATAL: registering login endpoint", slog.String("error", err.Error()))
		os.Exit(1)
	}

	if err := root.Add(http.MethodPost, `^/logout$`, func(req *httpx.Request) *httpx.Response {
		sess, err := sessions.Resolve(context.Background(), req.Header)
		if err != nil {
			return httpx.Ok(&httpx.EmptyBody{})
		}
		cookie, err := sessions.Destroy(context.Background(), sess.ID)
		if err != nil {
			return httpx.ServerError("could not destroy session")
		}
		resp := httpx.Ok(&httpx.EmptyBody{})
		resp.SetCookie(cookie)
		return resp
	}); err != nil {
		logger.Error("FATAL: registering logout endpoint", slog.String("error", err.Error()))
		os.Exit(1)
	}

	if err := root.AddWebSocket(`^/ws/echo$`, func(_ *httpx.Header, conn router.WSConn) {
		conn.OnMessage(func(messageType int, data []byte) {
			_ = conn.Send(messageType, data)
		})
		conn.Serve()
	}); err != nil {
		logger.Error("FATAL: registering websocket endpoint", slog.String("error", err.Error()))
		os.Exit(1)
	}

	tlsConfig := tlsConfigFor(cfg, logger)

	l := listener.New(listener.Config{
		Addr:         cfg.Addr,
		TLSConfig:    tlsConfig,
		MaxBodyBytes: cfg.MaxBodyBytes,
		Logger:       logger,
	}, root)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	errs, err := l.Start(ctx)
	if err != nil {
		logger.Error("FATAL: failed to bind listener", slog.String("error", err.Error()))
		os.Exit(1)
	}
	logger.Info("corsair listening", slog.String("addr", cfg.Addr))

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	select {
	case <-stop:
		logger.Info("shutting down")
	case err := <-errs:
		if err != nil {
			logger.Error("listener stopped", slog.String("error", err.Error()))
		}
	}

	cancel()
	if err := l.Close(); err != nil && !errors.Is(err, net.ErrClosed) {
		logger.Error("error during shutdown", slog.String("error", err.Error()))
	}
}

func sessionStoreFor(cfg *config.Config, logger *slog.Logger) session.Store {
	if cfg.DatabaseURL == "" {
		return session.NewMemoryStore()
	}
	db, err := sqlx.Connect("pgx", cfg.DatabaseURL)
	if err != nil {
		logger.Warn("falling back to in-memory sessions: could not connect to postgres",
			slog.String("error", err.Error()))
		return session.NewMemoryStore()
	}
	return storepg.New(db)
}

func tlsConfigFor(cfg *config.Config, logger *slog.Logger) *tls.Config {
	if cfg.TLSCertPath == "" || cfg.TLSKeyPath == "" {
		logger.Warn("no TLS material configured; serving plain HTTP only")
		return nil
	}
	tlsCfg, err := transport.NewServerTLSConfig(transport.ServerTLSConfig{
		CertPath: cfg.TLSCertPath,
		KeyPath:  cfg.TLSKeyPath,
	})
	if err != nil {
		logger.Error("FATAL: invalid TLS material", slog.String("error", err.Error()))
		os.Exit(1)
	}
	return tlsCfg
}
