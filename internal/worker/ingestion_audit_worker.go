package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"

	"ragdesk/internal/console"
	"ragdesk/internal/model"
	"ragdesk/internal/platform/rabbitmq"
)

type RecordStore interface {
	Create(ctx context.Context, record *model.IngestionRecord) error
}

// IngestionAuditWorker stores ingestion events from the audit queue.
type IngestionAuditWorker struct {
	conn      *amqp.Connection
	store     RecordStore
	queueName string
	logger    *zap.Logger

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func NewIngestionAuditWorker(conn *amqp.Connection, store RecordStore, queueName string, logger *zap.Logger) *IngestionAuditWorker {
	return &IngestionAuditWorker{
		conn:      conn,
		store:     store,
		queueName: queueName,
		logger:    logger,
	}
}

func (w *IngestionAuditWorker) Start(ctx context.Context) error {
	if w.cancel != nil {
		return nil
	}

	workerCtx, cancel := context.WithCancel(ctx)
	w.cancel = cancel

	ch, err := w.conn.Channel()
	if err != nil {
		cancel()
		return fmt.Errorf("open worker channel failed: %w", err)
	}
	if err := rabbitmq.DeclareQueue(ch, w.queueName); err != nil {
		_ = ch.Close()
		cancel()
		return err
	}
	if err := ch.Qos(16, 0, false); err != nil {
		_ = ch.Close()
		cancel()
		return fmt.Errorf("set worker qos failed: %w", err)
	}

	deliveries, err := ch.Consume(
		w.queueName,
		"",
		false,
		false,
		false,
		false,
		nil,
	)
	if err != nil {
		_ = ch.Close()
		cancel()
		return fmt.Errorf("consume queue failed: %w", err)
	}

	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		defer ch.Close()

		for {
			select {
			case <-workerCtx.Done():
				return
			case d, ok := <-deliveries:
				if !ok {
					return
				}
				if err := w.handle(workerCtx, d.Body); err != nil {
					w.logger.Warn("audit worker drop event", zap.String("message_id", d.MessageId), zap.Error(err))
					_ = d.Nack(false, false)
					continue
				}
				_ = d.Ack(false)
			}
		}
	}()

	w.logger.Info("audit worker started", zap.String("queue", w.queueName))
	return nil
}

func (w *IngestionAuditWorker) handle(ctx context.Context, body []byte) error {
	var event console.IngestionEvent
	if err := json.Unmarshal(body, &event); err != nil {
		return fmt.Errorf("decode ingestion event failed: %w", err)
	}
	record, err := recordFromEvent(event)
	if err != nil {
		return err
	}
	return w.store.Create(ctx, record)
}

func recordFromEvent(event console.IngestionEvent) (*model.IngestionRecord, error) {
	if event.ID == "" {
		return nil, fmt.Errorf("ingestion event without id")
	}
	return &model.IngestionRecord{
		EventID:     event.ID,
		Actor:       event.Actor,
		FileNames:   strings.Join(event.FileNames, "\n"),
		FileCount:   event.FileCount,
		AddedChunks: event.AddedChunks,
		Outcome:     string(event.Outcome),
		Message:     event.Message,
		OccurredAt:  event.At,
	}, nil
}

func (w *IngestionAuditWorker) Close() {
	if w.cancel != nil {
		w.cancel()
	}
	w.wg.Wait()
}
