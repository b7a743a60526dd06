package app

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"go-payroll/internal/messaging/kafka/consumer"
	"go-payroll/internal/shared/config"
	"go-payroll/internal/shared/connection"

	kafkago "github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

// RunConsumer feeds payroll events from kafka into the audit trail,
// notifications and payslip mail until SIGINT or SIGTERM.
func RunConsumer(cfg *config.Config) error {
	logger := zap.L().Named("app.consumer")

	if cfg.Kafka.Broker == "" {
		return errors.New("KAFKA_BROKER is required")
	}

	gormDB, err := connection.ConnectGORMWithRetry(cfg.Database)
	if err != nil {
		return err
	}

	sqlDB, err := gormDB.DB()
	if err != nil {
		return err
	}
	defer sqlDB.Close()

	fanout := newFanout(cfg, gormDB, newTrail(gormDB, logger), logger)

	reader := kafkago.NewReader(kafkago.ReaderConfig{
		Brokers:        []string{cfg.Kafka.Broker},
		GroupID:        cfg.Kafka.GroupID,
		GroupTopics:    consumer.Topics(),
		CommitInterval: 0,
		StartOffset:    kafkago.FirstOffset,
	})
	defer reader.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	consumer.ConsumePayrollEvents(ctx, reader, fanout, logger)

	logger.Info("consumer shutting down")
	return nil
}
