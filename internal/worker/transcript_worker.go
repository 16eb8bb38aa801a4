package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"

	"prayogai-rag/internal/model"
)

// MessageStore persists one transcript message.
type MessageStore interface {
	Create(ctx context.Context, message *model.Message) error
}

// TranscriptWorker consumes chat transcript messages from RabbitMQ and
// writes them to the registry.
type TranscriptWorker struct {
	conn  *amqp.Connection
	store MessageStore
	queue string
	log   *zap.Logger

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func NewTranscriptWorker(conn *amqp.Connection, store MessageStore, queue string, log *zap.Logger) *TranscriptWorker {
	return &TranscriptWorker{
		conn:  conn,
		store: store,
		queue: queue,
		log:   log.With(zap.String("worker", "transcript"), zap.String("queue", queue)),
	}
}

func (w *TranscriptWorker) Start(ctx context.Context) error {
	if w.cancel != nil {
		return nil
	}

	ch, err := w.conn.Channel()
	if err != nil {
		return fmt.Errorf("open worker channel failed: %w", err)
	}
	if err := ch.Qos(32, 0, false); err != nil {
		_ = ch.Close()
		return fmt.Errorf("set worker qos failed: %w", err)
	}
	deliveries, err := ch.Consume(w.queue, "", false, false, false, false, nil)
	if err != nil {
		_ = ch.Close()
		return fmt.Errorf("consume queue failed: %w", err)
	}

	workerCtx, cancel := context.WithCancel(ctx)
	w.cancel = cancel

	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		defer ch.Close()

		w.log.Info("transcript worker started")
		for {
			select {
			case <-workerCtx.Done():
				return
			case d, ok := <-deliveries:
				if !ok {
					w.log.Warn("delivery channel closed")
					return
				}
				w.handle(workerCtx, d)
			}
		}
	}()

	return nil
}

func (w *TranscriptWorker) handle(ctx context.Context, d amqp.Delivery) {
	msg, err := Decode(d.Body)
	if err != nil {
		w.log.Error("decode transcript message failed", zap.Error(err))
		_ = d.Nack(false, false)
		return
	}

	if err := w.store.Create(ctx, msg); err != nil {
		w.log.Error("persist transcript message failed", zap.String("bot_id", msg.BotID), zap.Error(err))
		// Redeliver once; a second failure drops the message.
		_ = d.Nack(false, !d.Redelivered)
		return
	}
	_ = d.Ack(false)
}

// Decode parses a queued transcript message and checks the fields the
// registry requires.
func Decode(body []byte) (*model.Message, error) {
	var msg model.Message
	if err := json.Unmarshal(body, &msg); err != nil {
		return nil, err
	}
	if msg.BotID == "" || (msg.Role != model.RoleUser && msg.Role != model.RoleAssistant) {
		return nil, fmt.Errorf("%w: transcript message needs bot_id and a known role", model.ErrInvalidInput)
	}
	msg.ID = 0
	return &msg, nil
}

func (w *TranscriptWorker) Close() {
	if w.cancel != nil {
		w.cancel()
	}
	w.wg.Wait()
}
