package observer

import (
	"context"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// MutationEvent represents one step of an optimistic mutation's lifecycle
type MutationEvent struct {
	EventType    EventType     `json:"event_type"`
	Timestamp    time.Time     `json:"timestamp"`
	UserID       string        `json:"user_id"`
	Action       string        `json:"action,omitempty"`
	Duration     time.Duration `json:"duration,omitempty"`
	Success      bool          `json:"success"`
	ErrorMessage string        `json:"error_message,omitempty"`
}

// EventType represents the type of mutation event
type EventType string

const (
	// MutationSpeculated when the optimistic write lands in the cache
	MutationSpeculated EventType = "mutation_speculated"
	// MutationSucceeded when the remote call confirms the mutation
	MutationSucceeded EventType = "mutation_succeeded"
	// MutationRolledBack when a failed remote call restored the snapshot
	MutationRolledBack EventType = "mutation_rolled_back"
	// RefetchCompleted when a reconciling refetch applied server truth
	RefetchCompleted EventType = "refetch_completed"
	// RefetchSuppressed when a refetch result was discarded as stale
	RefetchSuppressed EventType = "refetch_suppressed"
	// RefetchFailed when a reconciling refetch could not reach the remote
	RefetchFailed EventType = "refetch_failed"
)

// Observer defines the interface for event observers
type Observer interface {
	OnEvent(ctx context.Context, event MutationEvent)
	GetObserverName() string
}

// Subject defines the interface for event publishers
type Subject interface {
	Subscribe(observer Observer)
	Unsubscribe(observer Observer)
	NotifyObservers(ctx context.Context, event MutationEvent)
}

// LoggingObserver logs mutation events
type LoggingObserver struct {
	logger *logrus.Logger
}

// NewLoggingObserver creates a new logging observer
func NewLoggingObserver(logger *logrus.Logger) Observer {
	return &LoggingObserver{
		logger: logger,
	}
}

// OnEvent handles mutation events by logging them
func (o *LoggingObserver) OnEvent(ctx context.Context, event MutationEvent) {
	fields := logrus.Fields{
		"event_type": event.EventType,
		"user_id":    event.UserID,
		"success":    event.Success,
	}
	if event.Action != "" {
		fields["action"] = event.Action
	}
	if event.Duration > 0 {
		fields["duration_ms"] = event.Duration.Milliseconds()
	}
	if event.ErrorMessage != "" {
		fields["error"] = event.ErrorMessage
	}

	switch event.EventType {
	case MutationSpeculated:
		o.logger.WithFields(fields).Debug("Optimistic write applied")
	case MutationSucceeded:
		o.logger.WithFields(fields).Info("Mutation settled successfully")
	case MutationRolledBack:
		o.logger.WithFields(fields).Warn("Mutation rolled back to snapshot")
	case RefetchCompleted:
		o.logger.WithFields(fields).Debug("Cache reconciled with server truth")
	case RefetchSuppressed:
		o.logger.WithFields(fields).Debug("Stale refetch discarded")
	case RefetchFailed:
		o.logger.WithFields(fields).Error("Cache refetch failed")
	default:
		o.logger.WithFields(fields).Info("Mutation event occurred")
	}
}

// GetObserverName returns the observer name
func (o *LoggingObserver) GetObserverName() string {
	return "logging_observer"
}

// MetricsObserver collects counters from mutation events
type MetricsObserver struct {
	mu              sync.RWMutex
	totalMutations  int64
	settledOK       int64
	rolledBack      int64
	refetches       int64
	suppressed      int64
	totalSettleTime time.Duration
}

// NewMetricsObserver creates a new metrics observer
func NewMetricsObserver() *MetricsObserver {
	return &MetricsObserver{}
}

// OnEvent handles mutation events by collecting metrics
func (o *MetricsObserver) OnEvent(ctx context.Context, event MutationEvent) {
	o.mu.Lock()
	defer o.mu.Unlock()

	switch event.EventType {
	case MutationSpeculated:
		o.totalMutations++
	case MutationSucceeded:
		o.settledOK++
		o.totalSettleTime += event.Duration
	case MutationRolledBack:
		o.rolledBack++
	case RefetchCompleted:
		o.refetches++
	case RefetchSuppressed:
		o.suppressed++
	}
}

// GetObserverName returns the observer name
func (o *MetricsObserver) GetObserverName() string {
	return "metrics_observer"
}

// GetMetrics returns current counters
func (o *MetricsObserver) GetMetrics() map[string]interface{} {
	o.mu.RLock()
	defer o.mu.RUnlock()

	avgSettleTime := time.Duration(0)
	if o.settledOK > 0 {
		avgSettleTime = o.totalSettleTime / time.Duration(o.settledOK)
	}

	return map[string]interface{}{
		"total_mutations":      o.totalMutations,
		"settled_ok":           o.settledOK,
		"rolled_back":          o.rolledBack,
		"refetches_applied":    o.refetches,
		"refetches_suppressed": o.suppressed,
		"avg_settle_time":      avgSettleTime,
	}
}

// EventPublisher implements the Subject interface
type EventPublisher struct {
	mu        sync.RWMutex
	observers []Observer
}

// NewEventPublisher creates a new event publisher
func NewEventPublisher() Subject {
	return &EventPublisher{
		observers: make([]Observer, 0),
	}
}

// Subscribe adds an observer
func (p *EventPublisher) Subscribe(observer Observer) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.observers = append(p.observers, observer)
}

// Unsubscribe removes an observer
func (p *EventPublisher) Unsubscribe(observer Observer) {
	p.mu.Lock()
	defer p.mu.Unlock()

	for i, obs := range p.observers {
		if obs.GetObserverName() == observer.GetObserverName() {
			p.observers = append(p.observers[:i], p.observers[i+1:]...)
			break
		}
	}
}

// NotifyObservers notifies all observers of an event
func (p *EventPublisher) NotifyObservers(ctx context.Context, event MutationEvent) {
	p.mu.RLock()
	observers := make([]Observer, len(p.observers))
	copy(observers, p.observers)
	p.mu.RUnlock()

	// Notify observers concurrently
	for _, observer := range observers {
		go func(obs Observer) {
			defer func() {
				if r := recover(); r != nil {
					// Log panic but don't crash the application
					logrus.WithField("observer", obs.GetObserverName()).
						WithField("panic", r).
						Error("Observer panicked while handling event")
				}
			}()
			obs.OnEvent(ctx, event)
		}(observer)
	}
}
