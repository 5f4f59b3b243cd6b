package repository

import (
	"context"

	"github.com/jmoiron/sqlx"

	"github.com/repairjunction/repairjunction-api/internal/models"
)

// AddressRepository reads saved customer addresses.
type AddressRepository struct {
	db *sqlx.DB
}

// NewAddressRepository constructs an AddressRepository.
func NewAddressRepository(db *sqlx.DB) *AddressRepository {
	return &AddressRepository{db: db}
}

// FindByID fetches an address by ID.
func (r *AddressRepository) FindByID(ctx context.Context, id string) (*models.Address, error) {
	const query = `SELECT id, user_id, street_address, city, state, pincode, created_at FROM addresses WHERE id = $1`
	var address models.Address
	if err := r.db.GetContext(ctx, &address, query, id); err != nil {
		return nil, err
	}
	return &address, nil
}
