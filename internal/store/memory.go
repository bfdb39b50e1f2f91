/**
 * @description
 * This file provides the in-memory implementation of the IdempotencyStore
 * interface. It is the default backend and is only safe for single-instance
 * deployments: the records live in a mutex-guarded map with no cross-process
 * visibility. Expired entries are pruned inline on each Begin call to keep
 * the map from growing without bound.
 *
 * @dependencies
 * - context, sync, time: Standard Go libraries.
 * - internal/domain: Record and decision models.
 */

package store

import (
	"context"
	"sync"
	"time"

	"github.com/isaacadu1245/MY-APP/internal/domain"
)

// MemoryStore is a process-local IdempotencyStore.
type MemoryStore struct {
	mu             sync.Mutex
	records        map[string]*domain.IdempotencyRecord
	retention      time.Duration
	pendingTimeout time.Duration
}

// NewMemoryStore creates a MemoryStore. Retention bounds how long completed
// and failed records are remembered; pendingTimeout bounds how long a
// Pending claim blocks other deliveries when its owner never completes.
func NewMemoryStore(retention, pendingTimeout time.Duration) *MemoryStore {
	return &MemoryStore{
		records:        make(map[string]*domain.IdempotencyRecord),
		retention:      retention,
		pendingTimeout: pendingTimeout,
	}
}

// Begin implements IdempotencyStore.
func (s *MemoryStore) Begin(ctx context.Context, reference string) (domain.Decision, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	s.pruneLocked(now)

	record, exists := s.records[reference]
	if exists {
		switch record.State {
		case domain.RecordCompleted:
			return domain.Decision{Outcome: domain.DecisionAlreadyCompleted, Message: record.ResultMessage}, nil
		case domain.RecordFailed:
			return domain.Decision{Outcome: domain.DecisionAlreadyFailed, Message: record.ResultMessage}, nil
		case domain.RecordPending:
			if now.Sub(record.FirstSeenAt) < s.pendingTimeout {
				return domain.Decision{Outcome: domain.DecisionAlreadyInFlight}, nil
			}
			// The previous owner crashed or stalled; reclaim.
			record.FirstSeenAt = now
			return domain.Decision{Outcome: domain.DecisionProceed}, nil
		}
	}

	s.records[reference] = &domain.IdempotencyRecord{
		Reference:   reference,
		State:       domain.RecordPending,
		FirstSeenAt: now,
	}
	return domain.Decision{Outcome: domain.DecisionProceed}, nil
}

// Complete implements IdempotencyStore.
func (s *MemoryStore) Complete(ctx context.Context, reference string, outcome domain.FulfillmentOutcome) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	record, exists := s.records[reference]
	if !exists {
		return nil
	}

	switch {
	case outcome.Succeeded:
		record.State = domain.RecordCompleted
		record.ResultMessage = outcome.Message
	case outcome.Retryable:
		// Evict so the gateway's next redelivery starts fresh.
		delete(s.records, reference)
	default:
		record.State = domain.RecordFailed
		record.ResultMessage = outcome.Message
	}
	return nil
}

// pruneLocked drops records past their lifetime. Caller holds s.mu.
func (s *MemoryStore) pruneLocked(now time.Time) {
	for reference, record := range s.records {
		if record.State == domain.RecordPending {
			continue // reclaimed by Begin via pendingTimeout
		}
		if now.Sub(record.FirstSeenAt) > s.retention {
			delete(s.records, reference)
		}
	}
}
