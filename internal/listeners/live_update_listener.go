package listeners

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"tax-portal/internal/dto"
	"tax-portal/internal/events"
	"tax-portal/pkg/constants"
	"tax-portal/pkg/eventbus"
)

// LivePusher delivers one message to every open connection of a user.
type LivePusher interface {
	SendToUser(userID uint64, messageType string, payload interface{}) (int, error)
}

// LiveUpdateListener forwards status transitions to the submitter's open browser tabs.
type LiveUpdateListener struct {
	pusher LivePusher
	grace  time.Duration
	logger *zap.Logger
}

func NewLiveUpdateListener(pusher LivePusher, grace time.Duration, logger *zap.Logger) *LiveUpdateListener {
	return &LiveUpdateListener{pusher: pusher, grace: grace, logger: logger}
}

func (l *LiveUpdateListener) Register(bus *eventbus.Bus) func() {
	unsubscribe := bus.Subscribe(constants.EventServiceRequestStatus, l.handleStatusChanged)
	l.logger.Info("LiveUpdateListener subscribed", zap.String("event", constants.EventServiceRequestStatus))
	return unsubscribe
}

func (l *LiveUpdateListener) handleStatusChanged(_ context.Context, event eventbus.Event) error {
	e, ok := event.(events.ServiceRequestStatusChangedEvent)
	if !ok {
		return fmt.Errorf("unexpected event type %T", event)
	}
	req := e.Request
	// anonymous submissions have nobody to push to
	if !req.UserID.Valid {
		return nil
	}

	payload := dto.StatusUpdateDTO{
		From:        string(e.From),
		StatusLabel: req.Status.Label(),
		Request:     dto.ServiceRequestToDTO(&req, l.grace),
	}
	n, err := l.pusher.SendToUser(req.UserID.Uint64, constants.LiveMessageStatusChanged, payload)
	if err != nil {
		return err
	}
	l.logger.Debug("live update pushed",
		zap.String("requestId", req.ID),
		zap.Uint64("userID", req.UserID.Uint64),
		zap.Int("connections", n),
	)
	return nil
}
