package events

import (
	"context"
	"sync"
	"time"
)

// MetricsCollector defines the interface for collecting publish metrics
type MetricsCollector interface {
	RecordEventPublished(eventType EventType, success bool, duration time.Duration)
}

// NoOpMetricsCollector is a no-op implementation for when metrics aren't needed
type NoOpMetricsCollector struct{}

func (NoOpMetricsCollector) RecordEventPublished(EventType, bool, time.Duration) {}

// MetricPublisher wraps a Publisher with metrics collection
type MetricPublisher struct {
	publisher Publisher
	metrics   MetricsCollector
}

func NewMetricPublisher(publisher Publisher, metrics MetricsCollector) *MetricPublisher {
	return &MetricPublisher{
		publisher: publisher,
		metrics:   metrics,
	}
}

func (p *MetricPublisher) Publish(ctx context.Context, event Event) error {
	start := time.Now()

	err := p.publisher.Publish(ctx, event)

	p.metrics.RecordEventPublished(event.Type, err == nil, time.Since(start))
	return err
}

// PublishStats is a snapshot of Counters
type PublishStats struct {
	Published   uint64               `json:"published"`
	Failed      uint64               `json:"failed"`
	ByType      map[EventType]uint64 `json:"by_type"`
	LastLatency string               `json:"last_latency"`
}

// Counters is an in-memory MetricsCollector
type Counters struct {
	mu          sync.Mutex
	published   uint64
	failed      uint64
	byType      map[EventType]uint64
	lastLatency time.Duration
}

func NewCounters() *Counters {
	return &Counters{byType: make(map[EventType]uint64)}
}

func (c *Counters) RecordEventPublished(eventType EventType, success bool, duration time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.lastLatency = duration
	if !success {
		c.failed++
		return
	}
	c.published++
	c.byType[eventType]++
}

// Snapshot returns a copy of the current counts
func (c *Counters) Snapshot() PublishStats {
	c.mu.Lock()
	defer c.mu.Unlock()

	byType := make(map[EventType]uint64, len(c.byType))
	for t, n := range c.byType {
		byType[t] = n
	}
	return PublishStats{
		Published:   c.published,
		Failed:      c.failed,
		ByType:      byType,
		LastLatency: c.lastLatency.String(),
	}
}
