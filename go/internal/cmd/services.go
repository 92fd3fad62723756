package main

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/Mohitmhatre32/MonadVelocity/go/internal/race"
	"github.com/Mohitmhatre32/MonadVelocity/go/internal/race/directory"
	"github.com/Mohitmhatre32/MonadVelocity/go/internal/race/events"
	"github.com/Mohitmhatre32/MonadVelocity/go/internal/race/gateway"
)

type Services struct {
	Store     *race.Store
	Gateway   *gateway.Service
	Directory *directory.Service
	Relay     *events.Relay
	// Events is nil when event stats are disabled
	Events *events.Counters

	closePublisher func() error
}

func setupServices(ctx context.Context, cfg Config, rules race.Rules) (*Services, error) {
	// Wire up dependency injection chain
	// Publisher → Relay → Store (rooms) → Gateway / Directory

	publisher, closePublisher, err := setupPublisher(ctx, cfg.NATS)
	if err != nil {
		return nil, err
	}
	var (
		counters  *events.Counters
		collector events.MetricsCollector = events.NoOpMetricsCollector{}
	)
	if cfg.EventStats {
		counters = events.NewCounters()
		collector = counters
	}
	relay := events.NewRelay(events.NewMetricPublisher(publisher, collector), cfg.EventBuffer)

	// the pool is the store's outbound path and the gateway's connection set
	pool := gateway.NewPool()
	store, err := race.NewStore(rules, pool, race.WithEmitter(relay))
	if err != nil {
		closePublisher()
		return nil, err
	}

	gatewayConfig := gateway.DefaultConfig()
	gatewayConfig.ConnectionConfig.PingInterval = cfg.Gateway.PingInterval
	gatewayConfig.ConnectionConfig.ReadTimeout = cfg.Gateway.ReadTimeout
	gatewayConfig.ConnectionConfig.MaxMessageSize = int64(cfg.Gateway.MaxMessageSize)
	gatewayConfig.ConnectionConfig.SendBufferSize = cfg.Gateway.SendBufferSize

	return &Services{
		Store:          store,
		Gateway:        gateway.NewService(gatewayConfig, pool, store),
		Directory:      directory.NewService(store),
		Relay:          relay,
		Events:         counters,
		closePublisher: closePublisher,
	}, nil
}

func setupPublisher(ctx context.Context, cfg NATSConfig) (events.Publisher, func() error, error) {
	if cfg.URL == "" {
		log.Info().Msg("NATS_URL not set, logging room events instead of publishing")
		return events.NewLogPublisher(), func() error { return nil }, nil
	}

	jsConfig := events.DefaultJetStreamConfig()
	jsConfig.URL = cfg.URL
	jsConfig.StreamName = cfg.Stream
	jsConfig.SubjectPrefix = cfg.SubjectPrefix

	publisher, err := events.NewJetStreamPublisher(ctx, jsConfig)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create event publisher: %w", err)
	}

	log.Info().
		Str("nats_url", cfg.URL).
		Str("stream", cfg.Stream).
		Msg("publishing room events to JetStream")
	return publisher, publisher.Close, nil
}

// Close stops every room and flushes the event publisher
func (s *Services) Close() {
	s.Store.Close()
	if err := s.closePublisher(); err != nil {
		log.Error().Err(err).Msg("failed to close event publisher")
	}
}
