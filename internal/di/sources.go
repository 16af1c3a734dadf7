package di

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"cloud.google.com/go/pubsub"
	"google.golang.org/api/option"

	"github.com/CaoNhatLinh/squareup-sub002/internal/platform/config"
	pfirestore "github.com/CaoNhatLinh/squareup-sub002/internal/platform/firestore"
	"github.com/CaoNhatLinh/squareup-sub002/internal/platform/jobs"
	"github.com/CaoNhatLinh/squareup-sub002/internal/repositories"
	firestoreRepo "github.com/CaoNhatLinh/squareup-sub002/internal/repositories/firestore"
	"github.com/CaoNhatLinh/squareup-sub002/internal/repositories/yamlfile"
)

const userAgent = "squareup-discounts-api"

// NewRegistry opens the rule and catalog sources selected by cfg: Firestore collections, or the
// YAML files when a rules file is configured.
func NewRegistry(ctx context.Context, cfg config.Config) (repositories.Registry, error) {
	if cfg.UsesFirestore() {
		return newFirestoreRegistry(ctx, cfg)
	}
	return newFileRegistry(cfg)
}

func newFirestoreRegistry(_ context.Context, cfg config.Config) (repositories.Registry, error) {
	provider := pfirestore.NewProvider(cfg.Firestore,
		pfirestore.WithDialTimeout(cfg.Firestore.DialTimeout),
		pfirestore.WithClientOptions(option.WithUserAgent(userAgent)),
	)
	closeProvider := func(context.Context) error { return provider.Close() }

	rules, err := firestoreRepo.NewDiscountRuleRepository(provider, cfg.Discounts.RulesCollection)
	if err != nil {
		_ = provider.Close()
		return nil, fmt.Errorf("discount rule repository: %w", err)
	}
	catalog, err := firestoreRepo.NewMenuItemRepository(provider, cfg.Discounts.CatalogCollection)
	if err != nil {
		_ = provider.Close()
		return nil, fmt.Errorf("menu item repository: %w", err)
	}
	health, err := repositories.NewDependencyHealthRepository([]repositories.DependencyCheck{{
		Name:  "firestore",
		Check: func(ctx context.Context) error { return provider.Ping(ctx, cfg.Discounts.RulesCollection) },
	}}, repositories.WithDependencyTimeout(cfg.Server.ProbeTimeout))
	if err != nil {
		_ = provider.Close()
		return nil, err
	}
	return repositories.NewRegistry(rules, catalog, health, closeProvider)
}

func newFileRegistry(cfg config.Config) (repositories.Registry, error) {
	rules, err := yamlfile.NewRuleRepository(cfg.Discounts.RulesFile)
	if err != nil {
		return nil, fmt.Errorf("rules file: %w", err)
	}
	catalog := yamlfile.NewMenuRepository(cfg.Discounts.CatalogFile)
	health, err := repositories.NewDependencyHealthRepository([]repositories.DependencyCheck{{
		Name:  "rules_file",
		Check: rules.Ping,
	}}, repositories.WithDependencyTimeout(cfg.Server.ProbeTimeout))
	if err != nil {
		return nil, err
	}
	return repositories.NewRegistry(rules, catalog, health)
}

// NewSettlementPublisher connects to the settlement topic. The returned stop function flushes
// pending messages and closes the client.
func NewSettlementPublisher(ctx context.Context, cfg config.Config) (*jobs.PubSubSettlementPublisher, func() error, error) {
	projectID := strings.TrimSpace(cfg.PubSub.ProjectID)
	if projectID == "" {
		return nil, nil, errors.New("pubsub project id is required for settlement events")
	}
	client, err := pubsub.NewClient(ctx, projectID, option.WithUserAgent(userAgent))
	if err != nil {
		return nil, nil, fmt.Errorf("pubsub client: %w", err)
	}
	topic := client.Topic(cfg.PubSub.SettlementTopic)
	publisher, err := jobs.NewPubSubSettlementPublisher(topic)
	if err != nil {
		_ = client.Close()
		return nil, nil, err
	}
	stop := func() error {
		publisher.Stop()
		return client.Close()
	}
	return publisher, stop, nil
}
