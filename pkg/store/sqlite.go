package store

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/mcclellann/repayplan/pkg/models"
	"github.com/mcclellann/repayplan/pkg/product"

	_ "github.com/mattn/go-sqlite3"
)

const dateLayout = "2006-01-02"

// SQLiteStore manages the database connection and operations for SQLite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens the database and creates the schema.
func NewSQLiteStore(dataSourceName string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", dataSourceName)
	if err != nil {
		return nil, fmt.Errorf("could not open database: %w", err)
	}
	// PRAGMAs are per connection.
	db.SetMaxOpenConns(1)

	_, err = db.Exec("PRAGMA foreign_keys = ON;")
	if err != nil {
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}
	_, err = db.Exec("PRAGMA journal_mode = WAL;")
	if err != nil {
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("could not connect to database: %w", err)
	}

	s := &SQLiteStore{db: db}
	if err := s.initSchema(); err != nil {
		return nil, fmt.Errorf("could not initialize schema: %w", err)
	}
	slog.Info("sqlite store ready", "dsn", dataSourceName)
	return s, nil
}

// initSchema creates the tables. Decimals are TEXT so no precision is lost;
// found_date is a plain YYYY-MM-DD so it never shifts across time zones.
func (s *SQLiteStore) initSchema() error {
	const schema = `
	CREATE TABLE IF NOT EXISTS products (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		rate TEXT NOT NULL,
		loan_term INTEGER NOT NULL,
		term_unit TEXT NOT NULL,
		repay_mode INTEGER NOT NULL,
		found_date TEXT NOT NULL,
		repay_day INTEGER NOT NULL DEFAULT 0,
		repay_month INTEGER NOT NULL DEFAULT 0,
		advance_interest INTEGER NOT NULL DEFAULT 0,
		advance_interest_type TEXT NOT NULL DEFAULT 'plain',
		delay_days INTEGER NOT NULL DEFAULT 1,
		days_of_year INTEGER NOT NULL DEFAULT 365,
		holidays TEXT NOT NULL DEFAULT '[]',
		created_at DATETIME NOT NULL
	);
	CREATE TABLE IF NOT EXISTS investments (
		id TEXT PRIMARY KEY,
		product_id TEXT NOT NULL,
		invest_date_time TEXT NOT NULL,
		amount INTEGER NOT NULL,
		extra TEXT NOT NULL DEFAULT '{}',
		created_at DATETIME NOT NULL,
		FOREIGN KEY(product_id) REFERENCES products(id)
	);
	CREATE INDEX IF NOT EXISTS idx_investments_product ON investments(product_id);
	`
	_, err := s.db.Exec(schema)
	return err
}

const productColumns = `id, name, rate, loan_term, term_unit, repay_mode, found_date, repay_day, repay_month, advance_interest, advance_interest_type, delay_days, days_of_year, holidays, created_at`

// CreateProduct inserts a new product.
func (s *SQLiteStore) CreateProduct(p *models.ProductRecord) error {
	holidays, err := json.Marshal(nonNilStrings(p.Holidays))
	if err != nil {
		return fmt.Errorf("failed to encode holidays: %w", err)
	}
	_, err = s.db.Exec(
		`INSERT INTO products (`+productColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		p.ID.String(), p.Name, p.Rate, p.LoanTerm, string(p.TermUnit), int(p.RepayMode), p.FoundDate.Format(dateLayout),
		p.RepayDay, p.RepayMonth, p.AdvanceInterest, string(p.AdvanceInterestType), p.DelayDays, p.DaysOfYear,
		string(holidays), p.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create product: %w", err)
	}
	return nil
}

// GetProduct retrieves a product by its ID.
func (s *SQLiteStore) GetProduct(id uuid.UUID) (*models.ProductRecord, error) {
	row := s.db.QueryRow(`SELECT `+productColumns+` FROM products WHERE id = ?`, id.String())
	p, err := scanProduct(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get product: %w", err)
	}
	return p, nil
}

// GetAllProducts retrieves all products ordered by creation time.
func (s *SQLiteStore) GetAllProducts() ([]*models.ProductRecord, error) {
	rows, err := s.db.Query(`SELECT ` + productColumns + ` FROM products ORDER BY created_at ASC`)
	if err != nil {
		return nil, fmt.Errorf("failed to get all products: %w", err)
	}
	defer rows.Close()

	var products []*models.ProductRecord
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan product row: %w", err)
		}
		products = append(products, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error during rows iteration: %w", err)
	}
	return products, nil
}

// DeleteProduct removes a product and its investments within a transaction.
func (s *SQLiteStore) DeleteProduct(id uuid.UUID) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.Exec(`DELETE FROM investments WHERE product_id = ?`, id.String())
	if err != nil {
		return fmt.Errorf("failed to delete associated investments: %w", err)
	}

	result, err := tx.Exec(`DELETE FROM products WHERE id = ?`, id.String())
	if err != nil {
		return fmt.Errorf("failed to delete product: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return ErrNotFound
	}

	return tx.Commit()
}

// CreateInvestment inserts a new investment.
func (s *SQLiteStore) CreateInvestment(inv *models.InvestmentRecord) error {
	extra := inv.Extra
	if extra == nil {
		extra = map[string]string{}
	}
	encoded, err := json.Marshal(extra)
	if err != nil {
		return fmt.Errorf("failed to encode extra: %w", err)
	}
	_, err = s.db.Exec(
		`INSERT INTO investments (id, product_id, invest_date_time, amount, extra, created_at) VALUES (?, ?, ?, ?, ?, ?)`,
		inv.ID.String(), inv.ProductID.String(), inv.InvestDateTime.Format(time.RFC3339Nano), inv.Amount, string(encoded), inv.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create investment: %w", err)
	}
	return nil
}

// GetInvestment retrieves an investment by its ID.
func (s *SQLiteStore) GetInvestment(id uuid.UUID) (*models.InvestmentRecord, error) {
	row := s.db.QueryRow(`SELECT id, product_id, invest_date_time, amount, extra, created_at FROM investments WHERE id = ?`, id.String())
	inv, err := scanInvestment(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get investment: %w", err)
	}
	return inv, nil
}

// GetInvestmentsForProduct retrieves all investments of a product ordered by subscription time.
func (s *SQLiteStore) GetInvestmentsForProduct(productID uuid.UUID) ([]*models.InvestmentRecord, error) {
	rows, err := s.db.Query(`SELECT id, product_id, invest_date_time, amount, extra, created_at FROM investments WHERE product_id = ? ORDER BY invest_date_time ASC`, productID.String())
	if err != nil {
		return nil, fmt.Errorf("failed to get investments for product %s: %w", productID, err)
	}
	defer rows.Close()

	var investments []*models.InvestmentRecord
	for rows.Next() {
		inv, err := scanInvestment(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan investment row: %w", err)
		}
		investments = append(investments, inv)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error during rows iteration for product investments: %w", err)
	}
	return investments, nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanProduct(row scanner) (*models.ProductRecord, error) {
	var p models.ProductRecord
	var idStr, termUnit, foundDate, advanceType, holidays string
	var repayMode int
	if err := row.Scan(&idStr, &p.Name, &p.Rate, &p.LoanTerm, &termUnit, &repayMode, &foundDate,
		&p.RepayDay, &p.RepayMonth, &p.AdvanceInterest, &advanceType, &p.DelayDays, &p.DaysOfYear,
		&holidays, &p.CreatedAt); err != nil {
		return nil, err
	}

	id, err := uuid.Parse(idStr)
	if err != nil {
		return nil, fmt.Errorf("invalid product id %q: %w", idStr, err)
	}
	found, err := time.Parse(dateLayout, foundDate)
	if err != nil {
		return nil, fmt.Errorf("invalid found date %q: %w", foundDate, err)
	}
	if err := json.Unmarshal([]byte(holidays), &p.Holidays); err != nil {
		return nil, fmt.Errorf("invalid holidays: %w", err)
	}
	if len(p.Holidays) == 0 {
		p.Holidays = nil
	}

	p.ID = id
	p.TermUnit = product.TermUnit(termUnit)
	p.RepayMode = product.RepayMode(repayMode)
	p.AdvanceInterestType = product.AdvanceInterestType(advanceType)
	p.FoundDate = found
	return &p, nil
}

func scanInvestment(row scanner) (*models.InvestmentRecord, error) {
	var inv models.InvestmentRecord
	var idStr, productIDStr, investAt, extra string
	if err := row.Scan(&idStr, &productIDStr, &investAt, &inv.Amount, &extra, &inv.CreatedAt); err != nil {
		return nil, err
	}

	var err error
	if inv.ID, err = uuid.Parse(idStr); err != nil {
		return nil, fmt.Errorf("invalid investment id %q: %w", idStr, err)
	}
	if inv.ProductID, err = uuid.Parse(productIDStr); err != nil {
		return nil, fmt.Errorf("invalid product id %q: %w", productIDStr, err)
	}
	if inv.InvestDateTime, err = time.Parse(time.RFC3339Nano, investAt); err != nil {
		return nil, fmt.Errorf("invalid invest time %q: %w", investAt, err)
	}
	if err := json.Unmarshal([]byte(extra), &inv.Extra); err != nil {
		return nil, fmt.Errorf("invalid extra: %w", err)
	}
	if len(inv.Extra) == 0 {
		inv.Extra = nil
	}
	return &inv, nil
}

func nonNilStrings(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
