package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"math"
	"strings"
	"time"
)

// Image is one entry of a product's gallery.
type Image struct {
	URL         string `json:"url"`
	Caption     string `json:"caption,omitempty"`
	Description string `json:"description,omitempty"`
}

// Product is a row of the products table. Root products (ParentID nil) are
// routes; products with a ParentID are the stops of that route's flex table.
type Product struct {
	ID              int64     `json:"id"`
	Code            string    `json:"code"`
	Name            string    `json:"name"`
	Description     string    `json:"description"`
	Image           string    `json:"image"`
	Price           float64   `json:"price"`
	Category        string    `json:"category"`
	Quantity        int       `json:"quantity"`
	InventoryStatus string    `json:"inventory_status"`
	Rating          *int      `json:"rating"`
	Shift           string    `json:"shift"`
	Location        string    `json:"location"`
	Latitude        string    `json:"latitude"`
	Longitude       string    `json:"longitude"`
	Address         string    `json:"address"`
	OperatingHours  string    `json:"operating_hours"`
	MachineType     string    `json:"machine_type"`
	PaymentMethods  string    `json:"payment_methods"`
	LastMaintenance string    `json:"last_maintenance"`
	Status          string    `json:"status"`
	ParentID        *int64    `json:"parent_id"`
	PowerMode       string    `json:"power_mode"`
	Images          []Image   `json:"images"`
	CreatedAt       time.Time `json:"created_at"`
}

const productSelectCols = `id, code, name, description, image, price, category, quantity, inventory_status,
	rating, shift, location, latitude, longitude, address, operating_hours, machine_type, payment_methods,
	last_maintenance, status, parent_id, power_mode, images, created_at`

func scanProduct(row interface{ Scan(...any) error }) (*Product, error) {
	var p Product
	var description, image, category, status, shift, location, latitude, longitude, address sql.NullString
	var hours, machine, payments, maintenance, opStatus, powerMode, images sql.NullString
	var price sql.NullFloat64
	var quantity, rating, parentID sql.NullInt64
	var createdAt any
	err := row.Scan(&p.ID, &p.Code, &p.Name, &description, &image, &price, &category, &quantity, &status,
		&rating, &shift, &location, &latitude, &longitude, &address, &hours, &machine, &payments,
		&maintenance, &opStatus, &parentID, &powerMode, &images, &createdAt)
	if err != nil {
		return nil, err
	}
	p.Description = description.String
	p.Image = image.String
	p.Price = price.Float64
	p.Category = category.String
	p.Quantity = int(quantity.Int64)
	p.InventoryStatus = status.String
	if rating.Valid {
		r := int(rating.Int64)
		p.Rating = &r
	}
	p.Shift = shift.String
	p.Location = location.String
	p.Latitude = latitude.String
	p.Longitude = longitude.String
	p.Address = address.String
	p.OperatingHours = hours.String
	p.MachineType = machine.String
	p.PaymentMethods = payments.String
	p.LastMaintenance = maintenance.String
	p.Status = opStatus.String
	if parentID.Valid {
		id := parentID.Int64
		p.ParentID = &id
	}
	p.PowerMode = powerMode.String
	if images.Valid && images.String != "" {
		if err := json.Unmarshal([]byte(images.String), &p.Images); err != nil {
			return nil, fmt.Errorf("decode images for product %d: %w", p.ID, err)
		}
	}
	p.CreatedAt = parseTime(createdAt)
	return &p, nil
}

func scanProducts(rows *sql.Rows) ([]*Product, error) {
	var products []*Product
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		products = append(products, p)
	}
	return products, rows.Err()
}

// SanitizeProduct replaces a non-finite price with 0. Missing quantity and
// rating already decode to 0 and nil.
func SanitizeProduct(p *Product) {
	if math.IsNaN(p.Price) || math.IsInf(p.Price, 0) {
		p.Price = 0
	}
}

// ValidateProduct enforces the required-field policy shared by every write path.
func ValidateProduct(p *Product) error {
	if strings.TrimSpace(p.Name) == "" {
		return &RequiredFieldError{Entity: "product", Field: "name"}
	}
	if strings.TrimSpace(p.Code) == "" {
		return &RequiredFieldError{Entity: "product", Field: "code"}
	}
	return nil
}

// productArgs returns the writable columns in productWriteCols order.
func (db *DB) productArgs(p *Product) ([]any, error) {
	images, err := db.imagesArg(p.Images)
	if err != nil {
		return nil, err
	}
	var rating, parentID, powerMode any
	if p.Rating != nil {
		rating = *p.Rating
	}
	if p.ParentID != nil {
		parentID = *p.ParentID
	}
	if p.PowerMode != "" {
		powerMode = p.PowerMode
	}
	return []any{p.Code, p.Name, p.Description, p.Image, p.Price, p.Category, p.Quantity, p.InventoryStatus,
		rating, p.Shift, p.Location, p.Latitude, p.Longitude, p.Address, p.OperatingHours, p.MachineType,
		p.PaymentMethods, p.LastMaintenance, p.Status, parentID, powerMode, images}, nil
}

// imagesArg encodes a gallery for the images column. PostgreSQL takes raw
// JSON bytes for JSONB; SQLite stores the text form.
func (db *DB) imagesArg(images []Image) (any, error) {
	if len(images) == 0 {
		return nil, nil
	}
	data, err := json.Marshal(images)
	if err != nil {
		return nil, fmt.Errorf("encode images: %w", err)
	}
	if db.driver == "postgres" {
		return data, nil
	}
	return string(data), nil
}

const productWriteCols = `code, name, description, image, price, category, quantity, inventory_status,
	rating, shift, location, latitude, longitude, address, operating_hours, machine_type, payment_methods,
	last_maintenance, status, parent_id, power_mode, images`

func (db *DB) CreateProduct(p *Product) error        { return db.createProduct(db.DB, p) }
func (db *DB) UpdateProduct(p *Product) error        { return db.updateProduct(db.DB, p) }
func (db *DB) DeleteProduct(id int64) error          { return db.deleteProduct(db.DB, id) }
func (db *DB) GetProduct(id int64) (*Product, error) { return db.getProduct(db.DB, id) }

func (db *DB) createProduct(q querier, p *Product) error {
	SanitizeProduct(p)
	if err := ValidateProduct(p); err != nil {
		return err
	}
	args, err := db.productArgs(p)
	if err != nil {
		return err
	}
	id, err := db.insertIDOn(q, `INSERT INTO products (`+productWriteCols+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`, args...)
	if err != nil {
		return fmt.Errorf("create product: %w", err)
	}
	p.ID = id
	return nil
}

func (db *DB) updateProduct(q querier, p *Product) error {
	SanitizeProduct(p)
	if err := ValidateProduct(p); err != nil {
		return err
	}
	args, err := db.productArgs(p)
	if err != nil {
		return err
	}
	args = append(args, p.ID)
	err = db.execOneOn(q, fmt.Sprintf(`UPDATE products SET code=?, name=?, description=?, image=?, price=?, category=?,
		quantity=?, inventory_status=?, rating=?, shift=?, location=?, latitude=?, longitude=?, address=?,
		operating_hours=?, machine_type=?, payment_methods=?, last_maintenance=?, status=?, parent_id=?,
		power_mode=?, images=?, updated_at=%s WHERE id=?`, db.dialect.Now()), args...)
	if err != nil {
		return fmt.Errorf("update product %d: %w", p.ID, err)
	}
	return nil
}

func (db *DB) deleteProduct(q querier, id int64) error {
	if err := db.execOneOn(q, `DELETE FROM products WHERE id=?`, id); err != nil {
		return fmt.Errorf("delete product %d: %w", id, err)
	}
	return nil
}

func (db *DB) getProduct(q querier, id int64) (*Product, error) {
	row := q.QueryRow(db.Q(fmt.Sprintf(`SELECT %s FROM products WHERE id=?`, productSelectCols)), id)
	p, err := scanProduct(row)
	if err != nil {
		return nil, notFound(err)
	}
	return p, nil
}

// ListRootProducts returns the main-table rows, those without a parent.
func (db *DB) ListRootProducts() ([]*Product, error) {
	rows, err := db.Query(fmt.Sprintf(`SELECT %s FROM products WHERE parent_id IS NULL ORDER BY id`, productSelectCols))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanProducts(rows)
}

func (db *DB) ListAllProducts() ([]*Product, error) {
	rows, err := db.Query(fmt.Sprintf(`SELECT %s FROM products ORDER BY id`, productSelectCols))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanProducts(rows)
}

// ListProductsByParent returns the flex table rows of a parent.
func (db *DB) ListProductsByParent(parentID int64) ([]*Product, error) {
	rows, err := db.Query(db.Q(fmt.Sprintf(`SELECT %s FROM products WHERE parent_id=? ORDER BY id`, productSelectCols)), parentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanProducts(rows)
}

func (db *DB) CountProducts() (int, error) {
	var n int
	err := db.QueryRow(`SELECT COUNT(*) FROM products`).Scan(&n)
	return n, err
}
