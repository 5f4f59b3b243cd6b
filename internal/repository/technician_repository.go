package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"

	"github.com/repairjunction/repairjunction-api/internal/models"
)

const technicianColumns = `id, full_name, phone_number, pincode, city_town, state, role, active_request_count, can_receive_requests, updated_at`

// available technicians only; least loaded first, id breaks ties so results are stable.
const availableTechnicianFilter = `role = 'technician' AND can_receive_requests = TRUE`
const availableTechnicianOrder = `ORDER BY active_request_count ASC, id ASC LIMIT 1`

// TechnicianRepository reads technician profiles.
type TechnicianRepository struct {
	db *sqlx.DB
}

// NewTechnicianRepository constructs a TechnicianRepository.
func NewTechnicianRepository(db *sqlx.DB) *TechnicianRepository {
	return &TechnicianRepository{db: db}
}

func (r *TechnicianRepository) exec(exec sqlx.ExtContext) sqlx.ExtContext {
	if exec != nil {
		return exec
	}
	return r.db
}

// FindByID fetches a profile by ID. Callers inside a transaction pass it as exec.
func (r *TechnicianRepository) FindByID(ctx context.Context, exec sqlx.ExtContext, id string) (*models.TechnicianProfile, error) {
	query := `SELECT ` + technicianColumns + ` FROM profiles WHERE id = $1`
	var profile models.TechnicianProfile
	if err := sqlx.GetContext(ctx, r.exec(exec), &profile, query, id); err != nil {
		return nil, err
	}
	return &profile, nil
}

// FindAvailableByPincode returns the least loaded available technician registered on pincode.
func (r *TechnicianRepository) FindAvailableByPincode(ctx context.Context, pincode string) (*models.TechnicianProfile, error) {
	query := `SELECT ` + technicianColumns + ` FROM profiles WHERE ` + availableTechnicianFilter + ` AND pincode = $1 ` + availableTechnicianOrder
	return r.findOne(ctx, "find technician by pincode", query, pincode)
}

// FindAvailableByCityState matches city and state exactly, after trimming the inputs.
func (r *TechnicianRepository) FindAvailableByCityState(ctx context.Context, city, state string) (*models.TechnicianProfile, error) {
	query := `SELECT ` + technicianColumns + ` FROM profiles WHERE ` + availableTechnicianFilter + ` AND city_town = $1 AND state = $2 ` + availableTechnicianOrder
	return r.findOne(ctx, "find technician by city and state", query, strings.TrimSpace(city), strings.TrimSpace(state))
}

// FindAvailableByPincodePrefix matches technicians whose pincode starts with prefix.
func (r *TechnicianRepository) FindAvailableByPincodePrefix(ctx context.Context, prefix string) (*models.TechnicianProfile, error) {
	query := `SELECT ` + technicianColumns + ` FROM profiles WHERE ` + availableTechnicianFilter + ` AND LEFT(pincode, $2) = $1 ` + availableTechnicianOrder
	return r.findOne(ctx, "find technician by pincode prefix", query, prefix, len(prefix))
}

// findOne returns nil, nil when no row matches.
func (r *TechnicianRepository) findOne(ctx context.Context, op, query string, args ...interface{}) (*models.TechnicianProfile, error) {
	var profile models.TechnicianProfile
	if err := r.db.GetContext(ctx, &profile, query, args...); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return &profile, nil
}
