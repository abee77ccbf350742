// Package notify publishes order update events for downstream consumers
// (email, dashboards). Emission is fire-and-forget: a broker outage must
// never roll back the state transition it describes.
package notify

import (
	"context"

	"github.com/develoddy/fulfillment/pkg/common/kafka"
	"github.com/develoddy/fulfillment/pkg/common/logger"
)

type Notifier struct {
	producer *kafka.Producer
	source   string
}

func New(producer *kafka.Producer, source string) *Notifier {
	return &Notifier{producer: producer, source: source}
}

func (n *Notifier) Notify(ctx context.Context, orderID, summary string, data map[string]interface{}) {
	payload := map[string]interface{}{
		"order_id": orderID,
		"summary":  summary,
	}
	for k, v := range data {
		payload[k] = v
	}

	if err := n.producer.PublishEvent(ctx, "order_update", n.source, payload); err != nil {
		logger.WithOrder(orderID).WithError(err).Warn("order update notification dropped")
	}
}
