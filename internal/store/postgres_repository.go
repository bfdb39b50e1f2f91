/**
 * @description
 * This file provides the PostgreSQL implementation of the IdempotencyStore
 * interface. The atomic claim is an INSERT .. ON CONFLICT DO NOTHING on the
 * reference primary key: exactly one concurrent delivery inserts the Pending
 * row, every other one reads the existing row and classifies it. Stale
 * Pending rows are reclaimed with a guarded UPDATE so that a crashed owner
 * cannot wedge a reference. Expired rows are removed by Sweep, which the
 * scheduler runs periodically.
 *
 * @dependencies
 * - context, errors, fmt, time: Standard Go libraries.
 * - github.com/jackc/pgx/v5: The PostgreSQL driver.
 * - internal/domain: Record and decision models.
 */

package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/isaacadu1245/MY-APP/internal/domain"
)

// PostgresStore is a PostgreSQL-backed IdempotencyStore shared across
// instances.
type PostgresStore struct {
	db             *pgxpool.Pool
	retention      time.Duration
	pendingTimeout time.Duration
}

// NewPostgresStore creates a PostgresStore.
func NewPostgresStore(db *pgxpool.Pool, retention, pendingTimeout time.Duration) *PostgresStore {
	return &PostgresStore{db: db, retention: retention, pendingTimeout: pendingTimeout}
}

// EnsureSchema creates the receipts table when it does not exist yet. The
// service owns this table exclusively.
func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	_, err := s.db.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS fulfillment_receipts (
			reference      TEXT PRIMARY KEY,
			state          TEXT NOT NULL,
			result_message TEXT NOT NULL DEFAULT '',
			first_seen_at  TIMESTAMPTZ NOT NULL DEFAULT now()
		)`)
	if err != nil {
		return fmt.Errorf("ensure fulfillment_receipts schema: %w", err)
	}
	return nil
}

// Begin implements IdempotencyStore.
func (s *PostgresStore) Begin(ctx context.Context, reference string) (domain.Decision, error) {
	// Two rounds cover the window where another instance's sweep or
	// eviction deletes the row between our conflicting insert and read.
	for attempt := 0; attempt < 2; attempt++ {
		tag, err := s.db.Exec(ctx, `
			INSERT INTO fulfillment_receipts (reference, state, first_seen_at)
			VALUES ($1, 'pending', now())
			ON CONFLICT (reference) DO NOTHING`, reference)
		if err != nil {
			return domain.Decision{}, fmt.Errorf("claim reference %s: %w", reference, err)
		}
		if tag.RowsAffected() == 1 {
			return domain.Decision{Outcome: domain.DecisionProceed}, nil
		}

		var state, message string
		err = s.db.QueryRow(ctx,
			`SELECT state, result_message FROM fulfillment_receipts WHERE reference = $1`,
			reference).Scan(&state, &message)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				continue
			}
			return domain.Decision{}, fmt.Errorf("read receipt %s: %w", reference, err)
		}

		switch state {
		case domain.RecordCompleted:
			return domain.Decision{Outcome: domain.DecisionAlreadyCompleted, Message: message}, nil
		case domain.RecordFailed:
			return domain.Decision{Outcome: domain.DecisionAlreadyFailed, Message: message}, nil
		}

		// Pending: reclaim only when the claim is stale. The guarded
		// UPDATE keeps this atomic across instances.
		tag, err = s.db.Exec(ctx, `
			UPDATE fulfillment_receipts
			SET first_seen_at = now()
			WHERE reference = $1
			  AND state = 'pending'
			  AND first_seen_at < now() - $2 * interval '1 millisecond'`,
			reference, s.pendingTimeout.Milliseconds())
		if err != nil {
			return domain.Decision{}, fmt.Errorf("reclaim receipt %s: %w", reference, err)
		}
		if tag.RowsAffected() == 1 {
			return domain.Decision{Outcome: domain.DecisionProceed}, nil
		}
		return domain.Decision{Outcome: domain.DecisionAlreadyInFlight}, nil
	}

	return domain.Decision{Outcome: domain.DecisionAlreadyInFlight}, nil
}

// Complete implements IdempotencyStore.
func (s *PostgresStore) Complete(ctx context.Context, reference string, outcome domain.FulfillmentOutcome) error {
	if !outcome.Succeeded && outcome.Retryable {
		if _, err := s.db.Exec(ctx,
			`DELETE FROM fulfillment_receipts WHERE reference = $1`, reference); err != nil {
			return fmt.Errorf("evict receipt %s: %w", reference, err)
		}
		return nil
	}

	state := domain.RecordCompleted
	if !outcome.Succeeded {
		state = domain.RecordFailed
	}
	if _, err := s.db.Exec(ctx, `
		UPDATE fulfillment_receipts
		SET state = $2, result_message = $3
		WHERE reference = $1`,
		reference, state, outcome.Message); err != nil {
		return fmt.Errorf("complete receipt %s: %w", reference, err)
	}
	return nil
}

// Sweep implements Sweeper. It removes records past the retention window,
// including abandoned Pending rows whose reference was never redelivered.
func (s *PostgresStore) Sweep(ctx context.Context) error {
	_, err := s.db.Exec(ctx, `
		DELETE FROM fulfillment_receipts
		WHERE first_seen_at < now() - $1 * interval '1 millisecond'`,
		s.retention.Milliseconds())
	if err != nil {
		return fmt.Errorf("sweep fulfillment_receipts: %w", err)
	}
	return nil
}
