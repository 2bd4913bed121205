package notify

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/playrise/questengine/cache"
	"github.com/playrise/questengine/model"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Notifier delivers in-app notifications. Delivery is fire-and-forget:
// the row is persisted for later listing and the event is published on
// the user's pubsub channel; any failure is logged and swallowed.
type Notifier struct {
	db     *gorm.DB
	pubsub cache.PubSub
	logger *zap.Logger
}

// New creates a Notifier. pubsub may be nil to disable live publishing.
func New(db *gorm.DB, pubsub cache.PubSub, logger *zap.Logger) *Notifier {
	return &Notifier{db: db, pubsub: pubsub, logger: logger}
}

// Notify stores a notification for the user and publishes it.
// It never returns an error; callers must not depend on delivery.
func (n *Notifier) Notify(ctx context.Context, userID int64, title, body string, payload map[string]interface{}) {
	payloadJSON, _ := json.Marshal(payload)
	record := &model.Notification{
		UserID:  userID,
		Title:   title,
		Body:    body,
		Payload: datatypes.JSON(payloadJSON),
	}
	if err := n.db.WithContext(ctx).Create(record).Error; err != nil {
		n.logger.Warn("notification write failed",
			zap.Int64("user_id", userID),
			zap.String("title", title),
			zap.Error(err))
		return
	}
	if n.pubsub != nil {
		channel := fmt.Sprintf("notify:%d", userID)
		msg, _ := json.Marshal(record)
		if err := n.pubsub.Publish(ctx, channel, string(msg)); err != nil {
			n.logger.Warn("notification publish failed",
				zap.String("channel", channel), zap.Error(err))
		}
	}
}
