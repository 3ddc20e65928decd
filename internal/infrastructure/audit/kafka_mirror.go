package audit

import (
	"context"
	"encoding/json"

	"github.com/segmentio/kafka-go"

	"github.com/edusight/edusight/internal/config"
	"github.com/edusight/edusight/internal/domain/models"
	"github.com/edusight/edusight/pkg/logger"
)

// KafkaMirror publishes an asynchronous copy of each audit record for
// downstream consumers. The relational sink remains the source of truth;
// mirror failures are logged and never block the triggering operation.
type KafkaMirror struct {
	writer *kafka.Writer
	logger logger.Logger
}

// NewKafkaMirror creates the mirror from the audit configuration.
func NewKafkaMirror(cfg config.AuditConfig, log logger.Logger) *KafkaMirror {
	writer := &kafka.Writer{
		Addr:         kafka.TCP(cfg.Brokers...),
		Topic:        cfg.Topic,
		Balancer:     &kafka.LeastBytes{},
		WriteTimeout: cfg.WriteTimeout,
		BatchSize:    cfg.BatchSize,
	}
	return &KafkaMirror{
		writer: writer,
		logger: log.WithComponent("KafkaMirror"),
	}
}

// Publish sends one record to the audit topic, keyed by principal so one
// principal's actions stay ordered within a partition.
func (m *KafkaMirror) Publish(ctx context.Context, record *models.AuditRecord) {
	payload, err := json.Marshal(record)
	if err != nil {
		m.logger.Error(ctx, "Failed to marshal audit record for mirror", err)
		return
	}
	err = m.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(record.PrincipalID),
		Value: payload,
	})
	if err != nil {
		m.logger.Warn(ctx, "Audit mirror publish failed",
			logger.String("event_id", record.EventID.String()),
			logger.Error(err))
	}
}

// Close closes the underlying Kafka writer.
func (m *KafkaMirror) Close() error {
	return m.writer.Close()
}
