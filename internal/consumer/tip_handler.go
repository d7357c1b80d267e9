package consumer

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/siyabuilds/carbontrackr/internal/domain"
	"github.com/siyabuilds/carbontrackr/internal/events"
	"github.com/siyabuilds/carbontrackr/internal/tips"
)

// TipPublisher delivers an activity tip to the user.
type TipPublisher interface {
	PublishActivityTip(ctx context.Context, tip tips.Response) error
}

// TipHandler turns activity.logged events into realtime tips.
type TipHandler struct {
	catalog   *tips.Catalog
	publisher TipPublisher
	logger    *slog.Logger
	pick      func(n int) int
}

// NewTipHandler constructs a TipHandler. pick may be nil for a random suggestion.
func NewTipHandler(catalog *tips.Catalog, publisher TipPublisher, logger *slog.Logger, pick func(n int) int) *TipHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &TipHandler{catalog: catalog, publisher: publisher, logger: logger, pick: pick}
}

// Handle publishes the tip for the logged activity. Activities without tip
// content are skipped without error.
func (h *TipHandler) Handle(ctx context.Context, msg Message) error {
	var event events.ActivityLogged
	if err := json.Unmarshal(msg.Payload, &event); err != nil {
		return fmt.Errorf("decode %s: %w", msg.EventType, err)
	}
	if event.UserID == "" {
		event.UserID = msg.UserID
	}

	category, err := domain.ParseCategory(event.Category)
	if err != nil {
		h.logger.Warn("activity event with unknown category", "category", event.Category, "activity_id", event.ActivityID)
		return nil
	}

	response, ok := h.catalog.Response(category, event.Activity, event.UserID, h.pick)
	if !ok {
		h.logger.Debug("no tip content for activity", "category", category, "activity", event.Activity)
		return nil
	}
	return h.publisher.PublishActivityTip(ctx, response)
}
