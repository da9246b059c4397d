package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	goCrud "github.com/MrEthical07/goCrud"
	"github.com/MrEthical07/goCrud/httpapi"
	"github.com/MrEthical07/goCrud/internal/serverconfig"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/pflag"
	"go.uber.org/zap"
)

func main() {
	cfg, err := serverconfig.Load(os.Args[1:], nil)
	if errors.Is(err, pflag.ErrHelp) {
		fmt.Fprintf(os.Stdout, "Usage of gocrud-server:\n%s", serverconfig.Usage())
		return
	}
	if err != nil {
		log.Fatal(fmt.Errorf("error loading config: %w", err))
	}

	l, err := newLogger(cfg.Debug)
	if err != nil {
		log.Fatal(fmt.Errorf("error initializing logger: %w", err))
	}
	defer func() { _ = l.Sync() }()

	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	defer func() { _ = rdb.Close() }()

	pingCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	err = rdb.Ping(pingCtx).Err()
	cancel()
	if err != nil {
		l.Fatal("error connecting to Redis", zap.String("addr", cfg.RedisAddr), zap.Error(err))
	}

	engineCfg, err := cfg.Engine()
	if err != nil {
		l.Fatal("invalid engine config", zap.Error(err))
	}
	engine, err := goCrud.New().
		WithConfig(engineCfg).
		WithRedis(rdb).
		WithLogger(l.Named("engine")).
		WithAuditSink(goCrud.NewZapSink(l)).
		Build()
	if err != nil {
		l.Fatal("error initializing engine", zap.Error(err))
	}
	defer engine.Close()

	report := engine.SecurityReport()
	l.Info("engine ready",
		zap.String("codec", report.RecordCodec),
		zap.String("same_site", report.SameSite),
		zap.Bool("login_throttle", report.LoginThrottleActive),
		zap.Bool("ip_throttle", report.IPThrottleActive),
	)
	for _, w := range report.Warnings {
		l.Warn("security", zap.String("warning", w))
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogURI:     true,
		LogStatus:  true,
		LogMethod:  true,
		LogLatency: true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			l.Info("request",
				zap.String("method", v.Method),
				zap.String("URI", v.URI),
				zap.Int("status", v.Status),
				zap.Duration("latency", v.Latency),
			)
			return nil
		},
	}))
	e.Use(middleware.Recover())
	e.Use(middleware.Secure())
	if len(cfg.CORSOrigins) > 0 {
		e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
			AllowOrigins:     cfg.CORSOrigins,
			AllowMethods:     []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete},
			AllowCredentials: true,
		}))
	}

	httpapi.New(engine, l.Named("http")).Register(e)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		l.Info("listening", zap.String("addr", cfg.Listen))
		if err := e.Start(cfg.Listen); err != nil && !errors.Is(err, http.ErrServerClosed) {
			l.Error("server stopped", zap.Error(err))
			stop()
		}
	}()

	<-ctx.Done()
	l.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		l.Error("graceful shutdown failed", zap.Error(err))
	}
}

func newLogger(debug bool) (l *zap.Logger, err error) {
	if debug {
		l, err = zap.NewDevelopment()
	} else {
		l, err = zap.NewProduction()
	}
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}

	return l, nil
}
