package events

import (
	"encoding/json"

	"github.com/nats-io/nats.go"
	"go.uber.org/zap"
)

// Publisher handles publishing events to NATS
type Publisher struct {
	nc     *nats.Conn
	logger *zap.Logger
}

// NewPublisher creates a new NATS publisher
func NewPublisher(nc *nats.Conn, logger *zap.Logger) *Publisher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Publisher{nc: nc, logger: logger}
}

// PublishSyncCompleted publishes a sync completed event
func (p *Publisher) PublishSyncCompleted(event *SyncCompletedEvent) error {
	return p.publish(SubjectSyncCompleted, event)
}

// PublishSyncFailed publishes a sync failed event
func (p *Publisher) PublishSyncFailed(event *SyncFailedEvent) error {
	return p.publish(SubjectSyncFailed, event)
}

func (p *Publisher) publish(subject string, event interface{}) error {
	if p == nil || p.nc == nil {
		return nil
	}
	data, err := json.Marshal(event)
	if err != nil {
		return err
	}
	if err := p.nc.Publish(subject, data); err != nil {
		p.logger.Warn("Failed to publish event", zap.String("subject", subject), zap.Error(err))
		return err
	}
	return nil
}
