package store

import (
	"errors"

	"github.com/google/uuid"
	"github.com/mcclellann/repayplan/pkg/models"
)

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = errors.New("record not found")

// Storage defines the persistence operations for products and investments.
type Storage interface {
	CreateProduct(p *models.ProductRecord) error
	GetProduct(id uuid.UUID) (*models.ProductRecord, error)
	GetAllProducts() ([]*models.ProductRecord, error)
	DeleteProduct(id uuid.UUID) error

	CreateInvestment(inv *models.InvestmentRecord) error
	GetInvestment(id uuid.UUID) (*models.InvestmentRecord, error)
	GetInvestmentsForProduct(productID uuid.UUID) ([]*models.InvestmentRecord, error)

	Close() error
}
