package jobs

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"cloud.google.com/go/pubsub"
	"cloud.google.com/go/pubsub/pstest"
	"github.com/shopspring/decimal"
	"google.golang.org/api/option"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/CaoNhatLinh/squareup-sub002/internal/services"
)

func TestPubSubSettlementPublisherPublishesEvent(t *testing.T) {
	ctx := context.Background()
	srv := pstest.NewServer()
	defer srv.Close()

	client, err := pubsub.NewClient(ctx, "test-project",
		option.WithEndpoint(srv.Addr),
		option.WithoutAuthentication(),
		option.WithGRPCDialOption(grpc.WithTransportCredentials(insecure.NewCredentials())),
	)
	if err != nil {
		t.Fatalf("pubsub.NewClient: %v", err)
	}
	defer func() {
		_ = client.Close()
	}()

	topic, err := client.CreateTopic(ctx, "discount-settlements")
	if err != nil {
		t.Fatalf("CreateTopic: %v", err)
	}

	publisher, err := NewPubSubSettlementPublisher(topic)
	if err != nil {
		t.Fatalf("NewPubSubSettlementPublisher: %v", err)
	}
	defer publisher.Stop()

	settledAt := time.Date(2025, 3, 14, 19, 45, 0, 0, time.UTC)
	event := services.SettlementEvent{
		SettlementID:   "01JPBQ7ZK9Y3N8M2W4X6R5T1VA",
		OrderReference: "table-12",
		SettledAt:      settledAt,
		Lines: []services.CartLineInput{
			{LineKey: "a", ItemID: "pho", CategoryID: "noodles", UnitPrice: decimal.RequireFromString("9.50"), Quantity: 2},
		},
		Result: services.CartDiscountResult{
			Subtotal:      decimal.RequireFromString("19"),
			TotalDiscount: decimal.RequireFromString("1.90"),
			Total:         decimal.RequireFromString("17.10"),
			AppliedRules: []services.AppliedDiscount{
				{RuleID: "lunch", Name: "Lunch 10%", Kind: "flat", DiscountAmount: decimal.RequireFromString("1.90"), LineKeys: []string{"a"}},
			},
		},
	}

	if _, err := publisher.PublishSettlement(ctx, event); err != nil {
		t.Fatalf("PublishSettlement: %v", err)
	}

	messages := srv.Messages()
	if len(messages) != 1 {
		t.Fatalf("expected 1 message, got %d", len(messages))
	}

	var payload services.SettlementEvent
	if err := json.Unmarshal(messages[0].Data, &payload); err != nil {
		t.Fatalf("unmarshal payload: %v", err)
	}
	if payload.SettlementID != event.SettlementID || !payload.Result.Total.Equal(event.Result.Total) {
		t.Fatalf("unexpected payload %#v", payload)
	}
	attrs := messages[0].Attributes
	if attrs["settlementId"] != event.SettlementID {
		t.Fatalf("expected settlementId attribute, got %q", attrs["settlementId"])
	}
	if attrs["appliedRules"] != "1" || attrs["orderReference"] != "table-12" {
		t.Fatalf("unexpected attributes %v", attrs)
	}
	if attrs["settledAt"] != "2025-03-14T19:45:00Z" {
		t.Fatalf("unexpected settledAt attribute %q", attrs["settledAt"])
	}
}

func TestNewPubSubSettlementPublisherRequiresTopic(t *testing.T) {
	if _, err := NewPubSubSettlementPublisher(nil); err == nil {
		t.Fatal("expected error for nil topic")
	}
}
