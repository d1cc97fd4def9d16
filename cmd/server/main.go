package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"ctchen222/tictactoe-minimax/internal/api/controller"
	apirepository "ctchen222/tictactoe-minimax/internal/api/repository"
	"ctchen222/tictactoe-minimax/internal/api/service"
	"ctchen222/tictactoe-minimax/internal/auth"
	"ctchen222/tictactoe-minimax/internal/bot"
	"ctchen222/tictactoe-minimax/internal/config"
	"ctchen222/tictactoe-minimax/internal/db"
	"ctchen222/tictactoe-minimax/internal/events"
	"ctchen222/tictactoe-minimax/internal/hub"
	"ctchen222/tictactoe-minimax/internal/logger"
	"ctchen222/tictactoe-minimax/internal/repository"
	"ctchen222/tictactoe-minimax/internal/server"
	"ctchen222/tictactoe-minimax/internal/telemetry"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

func main() {
	conf := config.MustLoad(os.Getenv("CONFIG_PATH"))
	logger.Init(os.Stdout, conf.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, conf); err != nil {
		slog.Error("Server exited with error", "error", err)
		os.Exit(1)
	}
	slog.Info("Server exiting")
}

func run(ctx context.Context, conf *config.Config) error {
	// Initialize telemetry
	shutdown, err := telemetry.InitOtel(ctx, conf.Telemetry)
	if err != nil {
		return err
	}
	defer func() {
		if err := shutdown(context.Background()); err != nil {
			slog.Error("Error shutting down telemetry", "error", err)
		}
	}()

	// Initialize Redis
	rdb, err := db.NewRedisClient(ctx, conf.Redis.Addr)
	if err != nil {
		return err
	}
	defer rdb.Close()

	// Initialize SQLite DB
	sqliteDB, err := db.OpenSQLite(ctx, conf.SQLite.Path)
	if err != nil {
		return err
	}
	defer sqliteDB.Close()
	if err := db.Migrate(ctx, sqliteDB); err != nil {
		return err
	}

	defaultDifficulty, err := bot.ParseDifficulty(conf.Bot.DefaultDifficulty)
	if err != nil {
		return err
	}
	calculator, err := bot.NewCalculator(conf.Bot.ParallelSearch)
	if err != nil {
		return err
	}

	// Create repositories
	gameRepo := repository.NewGameRepository(rdb, conf.Redis.GameTTL)
	userRepo := apirepository.NewUserRepository(sqliteDB)
	resultRepo := apirepository.NewResultRepository(sqliteDB)

	// Create services
	issuer := auth.NewIssuer(conf.Auth.JWTSecret, conf.Auth.TokenTTL)
	userService := service.NewUserService(userRepo, issuer)
	gameService := service.NewGameService(gameRepo, resultRepo, events.NewRedisPublisher(rdb), calculator, defaultDifficulty)

	// Create hub
	h := hub.NewHub(rdb, resultRepo)
	hubErr := make(chan error, 1)
	go func() { hubErr <- h.Run(ctx) }()

	if conf.LogLevel != "debug" {
		gin.SetMode(gin.ReleaseMode)
	}
	srv := server.NewServer(h, issuer, controller.NewUserController(userService), gameService)

	httpServer := &http.Server{
		Addr:    conf.HTTP.Addr,
		Handler: otelhttp.NewHandler(srv.Engine(), "tictactoe"),
	}

	serveErr := make(chan error, 1)
	go func() {
		slog.Info("HTTP server started", "addr", conf.HTTP.Addr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case <-ctx.Done():
	case err := <-serveErr:
		return err
	case err := <-hubErr:
		if !errors.Is(err, context.Canceled) {
			return err
		}
	}

	slog.Info("Shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), conf.HTTP.ShutdownTimeout)
	defer cancel()
	return httpServer.Shutdown(shutdownCtx)
}
