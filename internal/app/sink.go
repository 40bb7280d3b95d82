package app

import (
	"log/slog"

	"gorm.io/gorm"

	"github.com/oggyb/discovery/internal/config"
	"github.com/oggyb/discovery/internal/notify"
	"github.com/oggyb/discovery/internal/repository"
)

// NewSink always persists notifications and also publishes them when AMQP is configured.
// The returned closer releases the broker connection.
func NewSink(cfg *config.Config, db *gorm.DB, logger *slog.Logger) (notify.Sink, func() error, error) {
	store := notify.NewStore(repository.NewNotificationRepository(db))
	if cfg.AMQP.URL == "" {
		logger.Info("amqp disabled, notifications are stored only")
		return store, func() error { return nil }, nil
	}

	pub, closer, err := notify.DialAMQP(cfg.AMQP.URL, cfg.AMQP.Exchange)
	if err != nil {
		return nil, nil, err
	}
	logger.Info("amqp notification sink ready", "exchange", cfg.AMQP.Exchange)
	return notify.Fanout{store, pub}, closer, nil
}
