package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/repairjunction/repairjunction-api/internal/models"
)

// LedgerRepository applies capacity changes to technician profiles. Every write
// moves active_request_count and can_receive_requests in the same statement.
type LedgerRepository struct {
	db *sqlx.DB
}

// NewLedgerRepository constructs a LedgerRepository.
func NewLedgerRepository(db *sqlx.DB) *LedgerRepository {
	return &LedgerRepository{db: db}
}

func (r *LedgerRepository) exec(exec sqlx.ExtContext) sqlx.ExtContext {
	if exec != nil {
		return exec
	}
	return r.db
}

// Increment takes one slot for technicianID as long as the stored count is still
// below max. It returns sql.ErrNoRows when the technician is full, closed or unknown.
func (r *LedgerRepository) Increment(ctx context.Context, exec sqlx.ExtContext, technicianID string, max int) (*models.LedgerEntry, error) {
	const query = `UPDATE profiles
SET active_request_count = active_request_count + 1,
    can_receive_requests = (active_request_count + 1) < $2,
    updated_at = NOW()
WHERE id = $1 AND role = 'technician' AND can_receive_requests = TRUE AND active_request_count < $2
RETURNING active_request_count, can_receive_requests`
	var entry models.LedgerEntry
	if err := sqlx.GetContext(ctx, r.exec(exec), &entry, query, technicianID, max); err != nil {
		return nil, err
	}
	return &entry, nil
}

// Decrement releases one slot, never dropping below zero, and reopens the technician.
func (r *LedgerRepository) Decrement(ctx context.Context, exec sqlx.ExtContext, technicianID string) (*models.LedgerEntry, error) {
	const query = `UPDATE profiles
SET active_request_count = GREATEST(active_request_count - 1, 0),
    can_receive_requests = TRUE,
    updated_at = NOW()
WHERE id = $1
RETURNING active_request_count, can_receive_requests`
	var entry models.LedgerEntry
	if err := sqlx.GetContext(ctx, r.exec(exec), &entry, query, technicianID); err != nil {
		return nil, err
	}
	return &entry, nil
}

// Drift lists technicians whose counters disagree with their open requests or
// whose availability flag disagrees with their counter.
func (r *LedgerRepository) Drift(ctx context.Context, max int) ([]models.LedgerDrift, error) {
	const query = `SELECT p.id, p.active_request_count, p.can_receive_requests, COUNT(r.id) AS open_assignments
FROM profiles p
LEFT JOIN repair_requests r ON r.technician_id = p.id AND r.status <> 'completed'
WHERE p.role = 'technician'
GROUP BY p.id, p.active_request_count, p.can_receive_requests
HAVING p.active_request_count <> COUNT(r.id) OR p.can_receive_requests <> (p.active_request_count < $1)
ORDER BY p.id`
	var drift []models.LedgerDrift
	if err := r.db.SelectContext(ctx, &drift, query, max); err != nil {
		return nil, fmt.Errorf("audit technician ledger: %w", err)
	}
	return drift, nil
}
