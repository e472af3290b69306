package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/wb-go/wbf/config"
	"github.com/wb-go/wbf/dbpg"
	"github.com/wb-go/wbf/zlog"

	"campusbooker/cmd/buildcfg"
	"campusbooker/internal/api/api"
	"campusbooker/internal/client"
	"campusbooker/internal/rabbit"
	"campusbooker/internal/repo"
	"campusbooker/internal/service"
)

func main() {
	zlog.Init()
	log := zlog.Logger
	log.Info().Msg("Starting booking service")

	cfg := config.New()
	if err := cfg.Load("config.yaml", "", "'"); err != nil {
		log.Fatal().Msgf("failed to load configuration: %v", err)
	}
	serverCfg := buildcfg.BuildServerConfig(cfg, &log)
	port := serverCfg.Port

	masterDSN, slaveDSNs, poolOptions, err := buildcfg.BuildDBConfig(cfg, &log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to build DB config")
	}
	db, err := dbpg.New(masterDSN, slaveDSNs, poolOptions)
	if err != nil {
		log.Fatal().Msgf("failed to connect to DB: %v", err)
	}
	if err := db.Master.Ping(); err != nil {
		log.Fatal().Msgf("DB ping failed: %v", err)
	}
	log.Info().Msg("Database connected successfully")

	cwd, err := os.Getwd()
	if err != nil {
		log.Fatal().Err(err).Msg("cannot get working directory")
	}
	migrationPath := filepath.Join(cwd, "migrations/postgres")
	if err := repo.MigrateUp(db, migrationPath, &log); err != nil {
		log.Fatal().Err(err).Msg("migration failed")
	}
	log.Info().Msg("Migrations applied successfully")

	bookingRepo, err := repo.NewBookingRepository(db, &log)
	if err != nil {
		log.Fatal().Msgf("failed to initialize booking repository: %v", err)
	}

	rabbitCfg, err := buildcfg.BuildRabbitConfig(cfg, &log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load RabbitMQ config")
	}
	rmq, err := rabbit.NewRabbit(rabbitCfg.Url, rabbitCfg.Exchange, rabbitCfg.Queue)
	if err != nil {
		log.Fatal().Msgf("Failed to connect to RabbitMQ: %v", err)
	}
	defer rmq.Close()

	userBase, err := buildcfg.CollaboratorBaseURL(cfg, "user")
	if err != nil {
		log.Fatal().Err(err).Msg("failed to resolve user service URL")
	}
	roomBase, err := buildcfg.CollaboratorBaseURL(cfg, "room")
	if err != nil {
		log.Fatal().Err(err).Msg("failed to resolve room service URL")
	}
	users := client.NewUsersHTTP(userBase, buildcfg.BuildResilienceConfig(cfg, "user"), &log)
	rooms := client.NewRoomsHTTP(roomBase, buildcfg.BuildResilienceConfig(cfg, "room"), &log)

	bookings := service.NewBookingService(bookingRepo, users, rooms, rmq, &log)
	app := api.NewBookingRouters(&api.BookingRouters{Bookings: bookings})

	serverErrChan := make(chan error, 1)
	go func() {
		log.Info().Msgf("Starting server on %s", port)
		if err := app.Run(":" + port); err != nil {
			serverErrChan <- fmt.Errorf("failed to start server: %w", err)
		}
	}()

	signalChan := make(chan os.Signal, 1)
	signal.Notify(signalChan, os.Interrupt, syscall.SIGTERM)

	select {
	case sig := <-signalChan:
		log.Info().Msgf("Received signal %s. Initiating shutdown...", sig)
	case err := <-serverErrChan:
		log.Error().Msgf("Server error: %v", err)
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if closer, ok := interface{}(app).(interface{ Close(context.Context) error }); ok {
		if err := closer.Close(shutdownCtx); err != nil {
			log.Error().Msgf("Error shutting down server: %v", err)
		}
	}

	if cfg.GetString("database.rollback_on_shutdown") == "true" {
		log.Info().Msg("Rolling back migrations...")
		if err := repo.MigrateDown(db, migrationPath, &log); err != nil {
			log.Error().Err(err).Msg("failed to rollback migrations")
		}
	}

	log.Info().Msg("Shutdown complete")
}
