package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"tailor-be/internal/config"
	"tailor-be/internal/logger"
	"tailor-be/internal/notify"

	"go.uber.org/zap"
)

var consumeFunc = notify.Consume

func main() {
	if err := run(); err != nil {
		logger.L().Fatal("mailer stopped", zap.Error(err))
	}
}

func run() error {
	cfg := config.LoadConfig()
	logger.Init(cfg.AppEnv)
	defer logger.Sync()

	if cfg.RabbitMQURL == "" {
		return errors.New("RABBITMQ_URL not set")
	}
	if cfg.SMTPHost == "" {
		return errors.New("SMTP_HOST not set")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	mailer := notify.NewMailer(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUser, cfg.SMTPPass, cfg.MailFrom)
	return consumeLoop(ctx, cfg.RabbitMQURL, cfg.MailQueue, mailer.Handle, 5*time.Second)
}

// consumeLoop reconnects after broker failures until ctx is cancelled.
func consumeLoop(ctx context.Context, url, queue string, h notify.Handler, backoff time.Duration) error {
	for {
		err := consumeFunc(ctx, url, queue, h)
		if ctx.Err() != nil {
			return nil
		}
		logger.L().Warn("mail consumer disconnected, retrying", zap.Error(err), zap.Duration("backoff", backoff))

		select {
		case <-ctx.Done():
			return nil
		case <-time.After(backoff):
		}
	}
}
