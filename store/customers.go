package store

import (
	"database/sql"
	"fmt"
	"strings"
	"time"
)

type Country struct {
	Name string `json:"name"`
	Code string `json:"code"`
}

type Representative struct {
	Name  string `json:"name"`
	Image string `json:"image"`
}

type Customer struct {
	ID             int64          `json:"id"`
	Name           string         `json:"name"`
	Country        Country        `json:"country"`
	Company        string         `json:"company"`
	Representative Representative `json:"representative"`
	CreatedAt      time.Time      `json:"-"`
}

const customerSelectCols = `id, name, country_name, country_code, company, representative_name, representative_image, created_at`

func scanCustomer(row interface{ Scan(...any) error }) (*Customer, error) {
	var c Customer
	var countryName, countryCode, company, repName, repImage sql.NullString
	var createdAt any
	if err := row.Scan(&c.ID, &c.Name, &countryName, &countryCode, &company, &repName, &repImage, &createdAt); err != nil {
		return nil, err
	}
	c.Country = Country{Name: countryName.String, Code: countryCode.String}
	c.Company = company.String
	c.Representative = Representative{Name: repName.String, Image: repImage.String}
	c.CreatedAt = parseTime(createdAt)
	return &c, nil
}

func ValidateCustomer(c *Customer) error {
	if strings.TrimSpace(c.Name) == "" {
		return &RequiredFieldError{Entity: "customer", Field: "name"}
	}
	return nil
}

func (db *DB) CreateCustomer(c *Customer) error {
	if err := ValidateCustomer(c); err != nil {
		return err
	}
	id, err := db.insertID(`INSERT INTO customers (name, country_name, country_code, company, representative_name, representative_image) VALUES (?, ?, ?, ?, ?, ?)`,
		c.Name, c.Country.Name, c.Country.Code, c.Company, c.Representative.Name, c.Representative.Image)
	if err != nil {
		return fmt.Errorf("create customer: %w", err)
	}
	c.ID = id
	return nil
}

func (db *DB) UpdateCustomer(c *Customer) error {
	if err := ValidateCustomer(c); err != nil {
		return err
	}
	err := db.execOne(fmt.Sprintf(`UPDATE customers SET name=?, country_name=?, country_code=?, company=?, representative_name=?, representative_image=?, updated_at=%s WHERE id=?`, db.dialect.Now()),
		c.Name, c.Country.Name, c.Country.Code, c.Company, c.Representative.Name, c.Representative.Image, c.ID)
	if err != nil {
		return fmt.Errorf("update customer %d: %w", c.ID, err)
	}
	return nil
}

func (db *DB) DeleteCustomer(id int64) error {
	if err := db.execOne(`DELETE FROM customers WHERE id=?`, id); err != nil {
		return fmt.Errorf("delete customer %d: %w", id, err)
	}
	return nil
}

func (db *DB) GetCustomer(id int64) (*Customer, error) {
	row := db.QueryRow(db.Q(fmt.Sprintf(`SELECT %s FROM customers WHERE id=?`, customerSelectCols)), id)
	c, err := scanCustomer(row)
	if err != nil {
		return nil, notFound(err)
	}
	return c, nil
}

func (db *DB) ListCustomers() ([]*Customer, error) {
	rows, err := db.Query(fmt.Sprintf(`SELECT %s FROM customers ORDER BY id`, customerSelectCols))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var customers []*Customer
	for rows.Next() {
		c, err := scanCustomer(rows)
		if err != nil {
			return nil, err
		}
		customers = append(customers, c)
	}
	return customers, rows.Err()
}

func (db *DB) CountCustomers() (int, error) {
	var n int
	err := db.QueryRow(`SELECT COUNT(*) FROM customers`).Scan(&n)
	return n, err
}
