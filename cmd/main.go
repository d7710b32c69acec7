package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"coinfolio/app"
	"coinfolio/app/middleware"
	"coinfolio/config"
	"coinfolio/internal/auth"
	"coinfolio/internal/db"

	"github.com/rs/zerolog"
)

func main() {

	lg := zerolog.New(os.Stdout).With().Str("Module", "Main").Timestamp().Logger()

	conf, err := config.NewConfig()
	if err != nil {
		panic(err)
	}

	level, err := conf.LogLevel()
	if err != nil {
		lg.Warn().Err(err).Msg("Unknown log level, using info")
	}
	/*
		memo.
		zerolog.SetGlobalLevel()는 이후에 생성되는 모든 zerolog.Logger의 로그 레벨을 설정함.
		gorm logger도 zerolog를 통해 출력하므로 같이 적용됨.
	*/
	zerolog.SetGlobalLevel(level)

	ctx, cancel := context.WithTimeout(context.Background(), conf.DbTimeout())
	stg, err := db.NewStorage(ctx, conf.Db.Driver, conf.MongoConfig(), conf.MysqlConfig())
	cancel()
	if err != nil {
		lg.Fatal().Err(err).Str("driver", conf.Db.Driver).Msg("Failed to connect storage")
	}

	gate := auth.NewGate(conf.App.JwtKey, conf.TokenTTL())

	server := app.New(stg, gate, app.Options{
		AdminAuth: conf.App.AdminAuth,
		Middleware: middleware.Config{
			AllowOrigins: conf.App.CorsOrigins,
			DbTimeout:    conf.DbTimeout(),
		},
	})

	go func() {
		if err := server.Listen(conf.Addr()); err != nil {
			lg.Error().Err(err).Msg("Server stopped")
		}
	}()
	lg.Info().Str("addr", conf.Addr()).Str("driver", conf.Db.Driver).Msg("Server started")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	lg.Info().Msg("Shutting down")

	shutdownCtx, stop := context.WithTimeout(context.Background(), 10*time.Second)
	defer stop()

	if err := server.ShutdownWithContext(shutdownCtx); err != nil {
		lg.Error().Err(err).Msg("Failed to shut down server")
	}
	if err := stg.Close(shutdownCtx); err != nil {
		lg.Error().Err(err).Msg("Failed to close storage")
	}
}
