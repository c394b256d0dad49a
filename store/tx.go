package store

import (
	"database/sql"
	"fmt"
)

// ProductTx groups product writes so they commit or roll back together.
// While it is open, callers must not use the parent DB: the SQLite pool
// has a single connection.
type ProductTx struct {
	db *DB
	tx *sql.Tx
}

func (db *DB) BeginProducts() (*ProductTx, error) {
	tx, err := db.Begin()
	if err != nil {
		return nil, fmt.Errorf("begin: %w", err)
	}
	return &ProductTx{db: db, tx: tx}, nil
}

func (t *ProductTx) Commit() error {
	if err := t.tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// Rollback is a no-op after Commit.
func (t *ProductTx) Rollback() error {
	err := t.tx.Rollback()
	if err == sql.ErrTxDone {
		return nil
	}
	return err
}

func (t *ProductTx) CreateProduct(p *Product) error        { return t.db.createProduct(t.tx, p) }
func (t *ProductTx) UpdateProduct(p *Product) error        { return t.db.updateProduct(t.tx, p) }
func (t *ProductTx) DeleteProduct(id int64) error          { return t.db.deleteProduct(t.tx, id) }
func (t *ProductTx) GetProduct(id int64) (*Product, error) { return t.db.getProduct(t.tx, id) }

// SetProductCode rewrites only the code column. It parks a row on a
// placeholder code so another row can take its old code in the same
// transaction.
func (t *ProductTx) SetProductCode(id int64, code string) error {
	if err := t.db.execOneOn(t.tx, `UPDATE products SET code=? WHERE id=?`, code, id); err != nil {
		return fmt.Errorf("set code of product %d: %w", id, err)
	}
	return nil
}
