// Package main — точка входа бота.
// Загружает конфигурацию, инициализирует приложение и запускает.
// Поддерживает graceful shutdown по SIGINT/SIGTERM.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	log "github.com/sirupsen/logrus"

	"serotonyl.ru/resource-bot/internal/app"
	"serotonyl.ru/resource-bot/internal/config"
)

func main() {
	setupLogging()

	log.Info("=== Бот запускается ===")

	cfg, err := config.Load()
	if err != nil {
		log.WithError(err).Fatal("Не удалось загрузить конфигурацию")
	}

	if level, err := log.ParseLevel(cfg.AppLogLevel); err == nil {
		log.SetLevel(level)
	}
	if cfg.AppEnv == "production" {
		log.SetFormatter(&log.JSONFormatter{})
	}

	// Fatal только здесь: defer'ы внутри run к этому моменту отработали
	if err := run(cfg); err != nil {
		log.WithError(err).Fatal("Бот завершился с ошибкой")
	}

	log.Info("=== Бот остановлен ===")
}

// run собирает приложение и работает до сигнала остановки.
func run(cfg *config.Config) error {
	// отмена по Ctrl+C / docker stop
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	application, err := app.New(ctx, cfg)
	if err != nil {
		return fmt.Errorf("инициализация приложения: %w", err)
	}
	defer application.Close()

	application.ServeMetrics()

	if err := application.Scheduler.Start(ctx); err != nil {
		return fmt.Errorf("запуск планировщика: %w", err)
	}
	defer application.Scheduler.Stop()

	log.Info("=== Бот готов к работе ===")

	return application.Bot.Start(ctx)
}

// setupLogging настраивает формат логов.
func setupLogging() {
	log.SetFormatter(&log.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: "2006-01-02 15:04:05",
	})
	log.SetOutput(os.Stdout)
	log.SetLevel(log.DebugLevel)
}
