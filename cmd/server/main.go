package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	_ "github.com/lib/pq"
	"github.com/npezzotti/go-chatlive/internal/api"
	"github.com/npezzotti/go-chatlive/internal/chat"
	"github.com/npezzotti/go-chatlive/internal/config"
	"github.com/npezzotti/go-chatlive/internal/database"
	"github.com/npezzotti/go-chatlive/internal/fanout"
	"github.com/npezzotti/go-chatlive/internal/rooms"
	"github.com/npezzotti/go-chatlive/internal/server"
	"github.com/npezzotti/go-chatlive/internal/stats"
	"golang.org/x/sync/errgroup"
)

const (
	defaultSigningKey = "wT0phFUusHZIrDhL9bUKPUhwaxKhpi/SaI6PtgB+MgU="
	shutdownTimeout   = 10 * time.Second
)

type stringSliceFlag []string

func (s *stringSliceFlag) String() string {
	return strings.Join(*s, ",")
}

func (s *stringSliceFlag) Set(value string) error {
	*s = append(*s, strings.Split(value, ",")...)
	return nil
}

var (
	addr           string
	dsn            string
	signingKey     string
	storeTimeout   time.Duration
	runMigrations  bool
	allowedOrigins stringSliceFlag
)

func main() {
	logger := log.New(os.Stderr, "[go-chat] ", log.LstdFlags)

	if err := config.LoadEnv(); err != nil {
		logger.Fatal("env:", err)
	}

	flag.StringVar(&addr, "addr", config.EnvOr("ADDR", "localhost:8000"), "server address")
	flag.StringVar(&dsn, "dsn", config.EnvOr("DATABASE_URL", "host=localhost user=postgres password=postgres dbname=postgres sslmode=disable"), "database connection string")
	flag.StringVar(&signingKey, "signing-key", config.EnvOr("SIGNING_KEY", defaultSigningKey), "base64 encoded signing key")
	flag.DurationVar(&storeTimeout, "store-timeout", config.EnvDurationOr("STORE_TIMEOUT", config.DefaultStoreTimeout), "deadline for each database call")
	flag.BoolVar(&runMigrations, "migrate", false, "apply database migrations before starting")
	flag.Var(&allowedOrigins, "allowed-origins", "comma-separated list of allowed origins for CORS")
	flag.Parse()

	if len(allowedOrigins) == 0 {
		if v := os.Getenv("ALLOWED_ORIGINS"); v != "" {
			allowedOrigins.Set(v)
		}
	}

	cfg, err := config.NewConfig(addr, dsn, signingKey, allowedOrigins, storeTimeout)
	if err != nil {
		logger.Fatal("config:", err)
	}

	dbConn, err := database.NewPgGoChatRepository(cfg.DatabaseDSN, cfg.StoreTimeout)
	if err != nil {
		logger.Fatal("db open:", err)
	}
	defer func() {
		if err := dbConn.Close(); err != nil {
			logger.Println("db close:", err)
		}
	}()

	if runMigrations {
		logger.Println("applying migrations...")
		if err := dbConn.Migrate(); err != nil {
			logger.Fatal("migrate:", err)
		}
	}

	mux := http.NewServeMux()

	statsUpdater := stats.NewStatsUpdater(mux)

	router := rooms.NewRouter(logger)
	fo := fanout.New(router, logger)
	chats := chat.NewService(dbConn, fo, logger, statsUpdater)
	chatServer := server.NewChatServer(logger, dbConn, chats, router, fo, statsUpdater)

	srv := api.NewGoChatApp(mux, logger, chatServer, chats, dbConn, cfg)

	statsUpdater.Run()
	defer statsUpdater.Stop()

	go chatServer.Run()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		logger.Println("shutting down...")

		shutDownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		if err := srv.Shutdown(shutDownCtx); err != nil {
			return err
		}

		logger.Println("shutting down chat server...")
		return chatServer.Shutdown(shutDownCtx)
	})

	if err := g.Wait(); err != nil {
		logger.Println("server:", err)
	}

	logger.Println("shutdown complete")
}
