package store

import (
	"encoding/json"
	"log/slog"
	"sort"
	"time"

	bolt "github.com/boltdb/bolt"
	"github.com/google/uuid"

	"github.com/mcclellann/repayplan/pkg/models"
)

var (
	productsBucket    = []byte("products")
	investmentsBucket = []byte("investments")
)

// BoltStore keeps products and investments as JSON values in an embedded
// BoltDB file, one bucket per record type.
type BoltStore struct {
	db *bolt.DB
}

// NewBoltStore opens (or creates) the database at path and ensures the buckets exist.
func NewBoltStore(path string) (*BoltStore, error) {
	db, err := bolt.Open(path, 0600, &bolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, err
	}

	err = db.Update(func(tx *bolt.Tx) error {
		for _, name := range [][]byte{productsBucket, investmentsBucket} {
			if _, err := tx.CreateBucketIfNotExists(name); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, err
	}

	slog.Info("bolt store ready", "path", path)
	return &BoltStore{db: db}, nil
}

// Close releases the database file lock.
func (s *BoltStore) Close() error {
	return s.db.Close()
}

// CreateProduct stores p unless a product with the same ID already exists,
// in which case the call is a no-op.
func (s *BoltStore) CreateProduct(p *models.ProductRecord) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(productsBucket)
		if b.Get([]byte(p.ID.String())) != nil {
			return nil
		}
		data, err := json.Marshal(p)
		if err != nil {
			return err
		}
		return b.Put([]byte(p.ID.String()), data)
	})
}

// GetProduct returns the product with the given ID or ErrNotFound.
func (s *BoltStore) GetProduct(id uuid.UUID) (*models.ProductRecord, error) {
	var p models.ProductRecord
	err := s.db.View(func(tx *bolt.Tx) error {
		v := tx.Bucket(productsBucket).Get([]byte(id.String()))
		if v == nil {
			return ErrNotFound
		}
		return json.Unmarshal(v, &p)
	})
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// GetAllProducts returns every product ordered by creation time.
func (s *BoltStore) GetAllProducts() ([]*models.ProductRecord, error) {
	var products []*models.ProductRecord
	err := s.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket(productsBucket).ForEach(func(_, v []byte) error {
			var p models.ProductRecord
			if err := json.Unmarshal(v, &p); err != nil {
				return err
			}
			products = append(products, &p)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	sort.SliceStable(products, func(i, j int) bool {
		return products[i].CreatedAt.Before(products[j].CreatedAt)
	})
	return products, nil
}

// DeleteProduct removes a product together with its investments.
func (s *BoltStore) DeleteProduct(id uuid.UUID) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		products := tx.Bucket(productsBucket)
		key := []byte(id.String())
		if products.Get(key) == nil {
			return ErrNotFound
		}

		investments := tx.Bucket(investmentsBucket)
		var orphans [][]byte
		err := investments.ForEach(func(k, v []byte) error {
			var inv models.InvestmentRecord
			if err := json.Unmarshal(v, &inv); err != nil {
				return err
			}
			if inv.ProductID == id {
				orphans = append(orphans, append([]byte(nil), k...))
			}
			return nil
		})
		if err != nil {
			return err
		}
		for _, k := range orphans {
			if err := investments.Delete(k); err != nil {
				return err
			}
		}
		return products.Delete(key)
	})
}

// CreateInvestment stores inv; the product must exist. An existing
// investment with the same ID is left untouched.
func (s *BoltStore) CreateInvestment(inv *models.InvestmentRecord) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		if tx.Bucket(productsBucket).Get([]byte(inv.ProductID.String())) == nil {
			return ErrNotFound
		}
		b := tx.Bucket(investmentsBucket)
		if b.Get([]byte(inv.ID.String())) != nil {
			return nil
		}
		data, err := json.Marshal(inv)
		if err != nil {
			return err
		}
		return b.Put([]byte(inv.ID.String()), data)
	})
}

// GetInvestment returns the investment with the given ID or ErrNotFound.
func (s *BoltStore) GetInvestment(id uuid.UUID) (*models.InvestmentRecord, error) {
	var inv models.InvestmentRecord
	err := s.db.View(func(tx *bolt.Tx) error {
		v := tx.Bucket(investmentsBucket).Get([]byte(id.String()))
		if v == nil {
			return ErrNotFound
		}
		return json.Unmarshal(v, &inv)
	})
	if err != nil {
		return nil, err
	}
	return &inv, nil
}

// GetInvestmentsForProduct returns the product's investments ordered by subscription time.
func (s *BoltStore) GetInvestmentsForProduct(productID uuid.UUID) ([]*models.InvestmentRecord, error) {
	var out []*models.InvestmentRecord
	err := s.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket(investmentsBucket).ForEach(func(_, v []byte) error {
			var inv models.InvestmentRecord
			if err := json.Unmarshal(v, &inv); err != nil {
				return err
			}
			if inv.ProductID == productID {
				out = append(out, &inv)
			}
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].InvestDateTime.Before(out[j].InvestDateTime)
	})
	return out, nil
}
