package notify

import (
	"context"
	"fmt"

	"trade_engine/internal/models"
	"trade_engine/internal/store"
)

// InApp stores notifications for the dashboard.
type InApp struct {
	store store.NotificationStore
}

func NewInApp(st store.NotificationStore) *InApp {
	return &InApp{store: st}
}

func (c *InApp) Name() string { return string(models.ChannelInApp) }

func (c *InApp) Deliver(ctx context.Context, n *models.Notification) error {
	n.Channel = models.ChannelInApp
	if err := c.store.SaveNotification(ctx, n); err != nil {
		return fmt.Errorf("in_app: %w", err)
	}
	return nil
}
