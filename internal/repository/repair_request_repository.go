package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/repairjunction/repairjunction-api/internal/models"
)

const repairRequestColumns = `id, user_id, customer_name, appliance_type, model_name, serial_number, service_type, description, address, address_id, status, repair_status, technician_id, scheduled_pickup_datetime, completion_date, created_at`

// RepairRequestRepository persists repair requests.
type RepairRequestRepository struct {
	db *sqlx.DB
}

// NewRepairRequestRepository constructs a RepairRequestRepository.
func NewRepairRequestRepository(db *sqlx.DB) *RepairRequestRepository {
	return &RepairRequestRepository{db: db}
}

func (r *RepairRequestRepository) exec(exec sqlx.ExtContext) sqlx.ExtContext {
	if exec != nil {
		return exec
	}
	return r.db
}

// Create inserts a request and fills its generated id and created_at.
func (r *RepairRequestRepository) Create(ctx context.Context, req *models.RepairRequest) error {
	if req == nil {
		return fmt.Errorf("repair request payload is nil")
	}
	if req.Status == "" {
		req.Status = models.StatusPendingAssignment
	}
	if req.RepairStatus == "" {
		req.RepairStatus = models.RepairRequestSubmitted
	}

	const query = `INSERT INTO repair_requests (user_id, customer_name, appliance_type, model_name, serial_number, service_type, description, address, address_id, status, repair_status, technician_id, scheduled_pickup_datetime)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
RETURNING id, created_at`
	row := r.db.QueryRowxContext(ctx, query,
		req.UserID,
		req.CustomerName,
		req.ApplianceType,
		req.ModelName,
		req.SerialNumber,
		req.ServiceType,
		req.Description,
		req.Address,
		req.AddressID,
		req.Status,
		req.RepairStatus,
		req.TechnicianID,
		req.ScheduledPickupDatetime,
	)
	if err := row.Scan(&req.ID, &req.CreatedAt); err != nil {
		return fmt.Errorf("insert repair request: %w", err)
	}
	return nil
}

// FindByID fetches a request by id.
func (r *RepairRequestRepository) FindByID(ctx context.Context, exec sqlx.ExtContext, id int64) (*models.RepairRequest, error) {
	query := `SELECT ` + repairRequestColumns + ` FROM repair_requests WHERE id = $1`
	var req models.RepairRequest
	if err := sqlx.GetContext(ctx, r.exec(exec), &req, query, id); err != nil {
		return nil, err
	}
	return &req, nil
}

// ListByUser returns a customer's requests, newest first.
func (r *RepairRequestRepository) ListByUser(ctx context.Context, userID string) ([]models.RepairRequest, error) {
	query := `SELECT ` + repairRequestColumns + ` FROM repair_requests WHERE user_id = $1 ORDER BY created_at DESC`
	var requests []models.RepairRequest
	if err := r.db.SelectContext(ctx, &requests, query, userID); err != nil {
		return nil, fmt.Errorf("list repair requests by user: %w", err)
	}
	return requests, nil
}

// ListPending returns requests still awaiting a technician, newest first.
func (r *RepairRequestRepository) ListPending(ctx context.Context) ([]models.RepairRequest, error) {
	query := `SELECT ` + repairRequestColumns + ` FROM repair_requests WHERE status = ANY($1) ORDER BY created_at DESC`
	var requests []models.RepairRequest
	if err := r.db.SelectContext(ctx, &requests, query, pq.Array(statusStrings(models.ClaimableStatuses))); err != nil {
		return nil, fmt.Errorf("list pending repair requests: %w", err)
	}
	return requests, nil
}

// ListUnassigned returns unassigned requests, oldest first. A positive limit
// caps the result; zero or less returns every one of them.
func (r *RepairRequestRepository) ListUnassigned(ctx context.Context, limit int) ([]models.RepairRequest, error) {
	query := `SELECT ` + repairRequestColumns + ` FROM repair_requests WHERE status = $1 AND technician_id IS NULL ORDER BY created_at ASC`
	args := []interface{}{models.StatusPendingAssignment}
	if limit > 0 {
		query += ` LIMIT $2`
		args = append(args, limit)
	}
	var requests []models.RepairRequest
	if err := r.db.SelectContext(ctx, &requests, query, args...); err != nil {
		return nil, fmt.Errorf("list unassigned repair requests: %w", err)
	}
	return requests, nil
}

// ListAssignedToTechnician returns requests technicianID still holds in the
// assigned status, created at or after since.
func (r *RepairRequestRepository) ListAssignedToTechnician(ctx context.Context, technicianID string, since time.Time) ([]models.RepairRequest, error) {
	query := `SELECT ` + repairRequestColumns + ` FROM repair_requests WHERE technician_id = $1 AND status = $2 AND created_at >= $3 ORDER BY created_at DESC`
	var requests []models.RepairRequest
	if err := r.db.SelectContext(ctx, &requests, query, technicianID, models.StatusAssigned, since); err != nil {
		return nil, fmt.Errorf("list assigned repair requests: %w", err)
	}
	return requests, nil
}

// ListByTechnicianAndStatus returns requests held by technicianID in status, newest first.
func (r *RepairRequestRepository) ListByTechnicianAndStatus(ctx context.Context, technicianID string, status models.RequestStatus) ([]models.RepairRequest, error) {
	query := `SELECT ` + repairRequestColumns + ` FROM repair_requests WHERE technician_id = $1 AND status = $2 ORDER BY created_at DESC`
	var requests []models.RepairRequest
	if err := r.db.SelectContext(ctx, &requests, query, technicianID, status); err != nil {
		return nil, fmt.Errorf("list technician repair requests: %w", err)
	}
	return requests, nil
}

// AssignIfUnassigned hands the request to technicianID only while it has no
// technician and is still claimable. It returns sql.ErrNoRows otherwise.
func (r *RepairRequestRepository) AssignIfUnassigned(ctx context.Context, exec sqlx.ExtContext, requestID int64, technicianID string) error {
	const query = `UPDATE repair_requests
SET technician_id = $2, status = $3, repair_status = $4
WHERE id = $1 AND technician_id IS NULL AND status = ANY($5)`
	result, err := r.exec(exec).ExecContext(ctx, query,
		requestID,
		technicianID,
		models.StatusAssigned,
		models.RepairRequestAccepted,
		pq.Array(statusStrings(models.ClaimableStatuses)),
	)
	if err != nil {
		return fmt.Errorf("assign repair request: %w", err)
	}
	return expectAffected(result, "assign repair request")
}

// UpdateTracking moves a request held by technicianID from one repair status to the next.
// The update only applies while the stored repair status still equals from.
func (r *RepairRequestRepository) UpdateTracking(ctx context.Context, exec sqlx.ExtContext, update models.TrackingUpdate) error {
	const query = `UPDATE repair_requests
SET repair_status = $4,
    status = COALESCE($5, status),
    scheduled_pickup_datetime = COALESCE($6, scheduled_pickup_datetime)
WHERE id = $1 AND technician_id = $2 AND repair_status = $3`
	var status *models.RequestStatus
	if update.Status != "" {
		status = &update.Status
	}
	result, err := r.exec(exec).ExecContext(ctx, query,
		update.RequestID,
		update.TechnicianID,
		update.From,
		update.To,
		status,
		update.ScheduledPickup,
	)
	if err != nil {
		return fmt.Errorf("update repair tracking: %w", err)
	}
	return expectAffected(result, "update repair tracking")
}

// Complete closes an open request held by the completion's technician.
func (r *RepairRequestRepository) Complete(ctx context.Context, exec sqlx.ExtContext, c models.Completion) error {
	const query = `UPDATE repair_requests
SET status = $3, repair_status = $4, completion_date = NOW()
WHERE id = $1 AND technician_id = $2 AND status <> $3 AND ($5::text = '' OR repair_status::text = $5::text)`
	result, err := r.exec(exec).ExecContext(ctx, query,
		c.RequestID,
		c.TechnicianID,
		models.StatusCompleted,
		c.To,
		string(c.From),
	)
	if err != nil {
		return fmt.Errorf("complete repair request: %w", err)
	}
	return expectAffected(result, "complete repair request")
}

func expectAffected(result sql.Result, op string) error {
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s rows affected: %w", op, err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

func statusStrings(statuses []models.RequestStatus) []string {
	out := make([]string, len(statuses))
	for i, s := range statuses {
		out[i] = string(s)
	}
	return out
}
