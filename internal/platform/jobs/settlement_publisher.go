package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"cloud.google.com/go/pubsub"

	"github.com/CaoNhatLinh/squareup-sub002/internal/services"
)

// PubSubSettlementPublisher publishes settled cart discounts to a Pub/Sub topic so downstream
// reporting sees exactly what was charged.
type PubSubSettlementPublisher struct {
	topic   *pubsub.Topic
	marshal func(any) ([]byte, error)
}

// NewPubSubSettlementPublisher constructs a Pub/Sub backed settlement publisher.
func NewPubSubSettlementPublisher(topic *pubsub.Topic) (*PubSubSettlementPublisher, error) {
	if topic == nil {
		return nil, errors.New("pubsub settlement publisher: topic is required")
	}
	return &PubSubSettlementPublisher{topic: topic, marshal: json.Marshal}, nil
}

// PublishSettlement sends the event and waits for the server-assigned message id.
func (p *PubSubSettlementPublisher) PublishSettlement(ctx context.Context, event services.SettlementEvent) (string, error) {
	if p == nil || p.topic == nil {
		return "", errors.New("pubsub settlement publisher: not initialised")
	}

	data, err := p.marshal(event)
	if err != nil {
		return "", fmt.Errorf("marshal settlement event: %w", err)
	}

	attrs := map[string]string{
		"eventType":    services.SettlementEventType,
		"settlementId": event.SettlementID,
		"settledAt":    event.SettledAt.UTC().Format(time.RFC3339),
		"appliedRules": strconv.Itoa(len(event.Result.AppliedRules)),
	}
	if ref := strings.TrimSpace(event.OrderReference); ref != "" {
		attrs["orderReference"] = ref
	}

	id, err := p.topic.Publish(ctx, &pubsub.Message{Data: data, Attributes: attrs}).Get(ctx)
	if err != nil {
		return "", fmt.Errorf("publish settlement %s: %w", event.SettlementID, err)
	}
	return id, nil
}

// Stop flushes pending messages.
func (p *PubSubSettlementPublisher) Stop() {
	if p != nil && p.topic != nil {
		p.topic.Stop()
	}
}
