package events

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
	"go.uber.org/zap"
)

// SyncRequestHandler runs an on-demand sync for one store
type SyncRequestHandler interface {
	SyncStoreDailyMetrics(ctx context.Context, storeID uuid.UUID) (string, error)
}

// Subscriber handles NATS event subscriptions
type Subscriber struct {
	nc      *nats.Conn
	logger  *zap.Logger
	handler SyncRequestHandler
	timeout time.Duration
	subs    []*nats.Subscription
}

// NewSubscriber creates a new NATS subscriber
func NewSubscriber(nc *nats.Conn, handler SyncRequestHandler, logger *zap.Logger) *Subscriber {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Subscriber{
		nc:      nc,
		logger:  logger,
		handler: handler,
		timeout: 10 * time.Minute,
		subs:    make([]*nats.Subscription, 0),
	}
}

// Start subscribes to sync requests
func (s *Subscriber) Start() error {
	sub, err := s.nc.Subscribe(SubjectSyncRequested, s.handleSyncRequested)
	if err != nil {
		return err
	}
	s.subs = append(s.subs, sub)
	s.logger.Info("Subscribed to event", zap.String("subject", SubjectSyncRequested))
	return nil
}

// Stop unsubscribes from all events
func (s *Subscriber) Stop() {
	for _, sub := range s.subs {
		_ = sub.Unsubscribe()
	}
	s.subs = nil
	s.logger.Info("NATS subscriber stopped")
}

func (s *Subscriber) handleSyncRequested(msg *nats.Msg) {
	s.dispatch(msg.Data)
}

// dispatch decodes a request and runs the sync synchronously.
func (s *Subscriber) dispatch(data []byte) {
	event, err := DecodeSyncRequested(data)
	if err != nil {
		s.logger.Error("Failed to decode sync requested event", zap.Error(err))
		return
	}

	s.logger.Info("Received sync requested event", zap.String("store_id", event.StoreID.String()))

	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	jobID, err := s.handler.SyncStoreDailyMetrics(ctx, event.StoreID)
	if err != nil {
		s.logger.Error("Failed to handle sync requested event",
			zap.String("store_id", event.StoreID.String()),
			zap.String("job_id", jobID),
			zap.Error(err),
		)
	}
}
