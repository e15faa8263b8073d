package kafka

import (
	"context"
	"database/sql"
	"encoding/json"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"leaveflow/internal/events"
	"leaveflow/internal/shared/contextutil"
)

// Notifier enqueues lifecycle notifications for the outbox worker. Enqueue
// inside the caller's transaction commits the event together with the state
// transition it announces; a Kafka outage only delays delivery.
type Notifier struct {
	repo   OutboxRepository
	logger *zap.Logger
}

func NewNotifier(repo OutboxRepository, logger ...*zap.Logger) *Notifier {
	l := zap.L().Named("kafka.notifier")
	if len(logger) > 0 && logger[0] != nil {
		l = logger[0].Named("kafka.notifier")
	}
	return &Notifier{repo: repo, logger: l}
}

// EnqueueInTx stores the event in the outbox as part of tx. The returned
// error should be treated as a warning by callers whose primary operation
// already succeeded.
func (n *Notifier) EnqueueInTx(ctx context.Context, tx *sql.Tx, event events.LeaveLifecycleEvent) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return err
	}

	outboxEvent := OutboxEvent{
		ID:            uuid.New().String(),
		RequestID:     contextutil.GetRequestID(ctx),
		AggregateType: "leave_request",
		AggregateID:   event.RequestID,
		EventType:     event.EventType,
		Topic:         events.LeaveLifecycleTopic,
		Payload:       payload,
		Status:        OutboxStatusPending,
	}
	if err := ValidateOutboxEvent(outboxEvent); err != nil {
		return err
	}

	if err := n.repo.WithTx(tx).Create(ctx, outboxEvent); err != nil {
		n.logger.Error("enqueue lifecycle event failed",
			zap.String("event_type", event.EventType),
			zap.String("request_id", event.RequestID),
			zap.Error(err),
		)
		return err
	}
	return nil
}
