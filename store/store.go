package store

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"vendroute/config"

	_ "github.com/jackc/pgx/v5/stdlib"
	_ "modernc.org/sqlite"
)

// ErrNotFound is returned when a lookup, update or delete targets a missing id.
var ErrNotFound = errors.New("not found")

type DB struct {
	*sql.DB
	dialect Dialect
	driver  string
}

func Open(cfg *config.DatabaseConfig) (*DB, error) {
	switch cfg.Driver {
	case "sqlite":
		return openSQLite(cfg.SQLite.Path)
	case "postgres":
		return openPostgres(&cfg.Postgres)
	default:
		return nil, fmt.Errorf("unsupported database driver: %s", cfg.Driver)
	}
}

func openSQLite(path string) (*DB, error) {
	dsn := fmt.Sprintf("file:%s?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=on&_pragma=foreign_keys(1)", path)
	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	sqlDB.SetMaxOpenConns(1)
	db := &DB{DB: sqlDB, dialect: sqliteDialect{}, driver: "sqlite"}
	if err := db.migrate(); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("migrate sqlite: %w", err)
	}
	return db, nil
}

func openPostgres(cfg *config.PostgresConfig) (*DB, error) {
	dsn := cfg.URL
	if dsn == "" {
		dsn = fmt.Sprintf("host=%s port=%d dbname=%s user=%s password=%s sslmode=%s",
			cfg.Host, cfg.Port, cfg.Database, cfg.User, cfg.Password, cfg.SSLMode)
	}
	sqlDB, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	sqlDB.SetMaxOpenConns(20)
	db := &DB{DB: sqlDB, dialect: postgresDialect{}, driver: "postgres"}
	if err := db.migrate(); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("migrate postgres: %w", err)
	}
	return db, nil
}

func (db *DB) Dialect() Dialect { return db.dialect }
func (db *DB) Driver() string   { return db.driver }

// Q rewrites ? placeholders and datetime literals for PostgreSQL, passes through for SQLite.
func (db *DB) Q(query string) string {
	if db.driver == "postgres" {
		query = strings.ReplaceAll(query, "datetime('now','localtime')", "NOW()")
		return Rebind(query)
	}
	return query
}

// querier is satisfied by both *sql.DB and *sql.Tx.
type querier interface {
	Exec(query string, args ...any) (sql.Result, error)
	QueryRow(query string, args ...any) *sql.Row
}

// insertID runs an INSERT and returns the new row id. PostgreSQL has no
// LastInsertId support, so the query is extended with RETURNING there.
func (db *DB) insertID(query string, args ...any) (int64, error) {
	return db.insertIDOn(db.DB, query, args...)
}

func (db *DB) insertIDOn(q querier, query string, args ...any) (int64, error) {
	if db.driver == "postgres" {
		var id int64
		err := q.QueryRow(db.Q(query+" RETURNING id"), args...).Scan(&id)
		return id, err
	}
	result, err := q.Exec(query, args...)
	if err != nil {
		return 0, err
	}
	return result.LastInsertId()
}

// execOne runs a statement that must touch exactly one row.
func (db *DB) execOne(query string, args ...any) error {
	return db.execOneOn(db.DB, query, args...)
}

func (db *DB) execOneOn(q querier, query string, args ...any) error {
	result, err := q.Exec(db.Q(query), args...)
	if err != nil {
		return err
	}
	n, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func (db *DB) migrate() error {
	var schema string
	switch db.driver {
	case "sqlite":
		schema = schemaSQLite
	case "postgres":
		schema = schemaPostgres
	default:
		return fmt.Errorf("no schema for driver: %s", db.driver)
	}
	if _, err := db.Exec(schema); err != nil {
		return err
	}
	return db.migrateColumns()
}

// migrateColumns idempotently adds columns that older product tables lack.
// Databases created before the flex table feature have neither parent_id nor
// the per-stop columns.
func (db *DB) migrateColumns() error {
	d := db.dialect
	adds := []struct{ table, column, def string }{
		{"products", "shift", "TEXT"},
		{"products", "location", "TEXT"},
		{"products", "latitude", "TEXT"},
		{"products", "longitude", "TEXT"},
		{"products", "address", "TEXT"},
		{"products", "operating_hours", "TEXT"},
		{"products", "machine_type", "TEXT"},
		{"products", "payment_methods", "TEXT"},
		{"products", "last_maintenance", "TEXT"},
		{"products", "status", "TEXT"},
		{"products", "parent_id", "INTEGER"},
		{"products", "power_mode", "TEXT"},
		{"products", "images", d.JSONType()},
		{"products", "updated_at", d.TimestampType()},
		{"customers", "updated_at", d.TimestampType()},
	}
	for _, a := range adds {
		if db.columnExists(a.table, a.column) {
			continue
		}
		if _, err := db.Exec(fmt.Sprintf(`ALTER TABLE %s ADD COLUMN %s %s`, a.table, a.column, a.def)); err != nil {
			return fmt.Errorf("add column %s.%s: %w", a.table, a.column, err)
		}
	}
	_, err := db.Exec(`CREATE INDEX IF NOT EXISTS idx_products_parent ON products(parent_id)`)
	return err
}

// columnExists checks if a column exists in a table.
func (db *DB) columnExists(table, column string) bool {
	switch db.driver {
	case "sqlite":
		rows, err := db.Query(fmt.Sprintf("PRAGMA table_info(%s)", table))
		if err != nil {
			return false
		}
		defer rows.Close()
		for rows.Next() {
			var cid int
			var name, typ string
			var notnull int
			var dflt sql.NullString
			var pk int
			if err := rows.Scan(&cid, &name, &typ, &notnull, &dflt, &pk); err != nil {
				return false
			}
			if name == column {
				return true
			}
		}
		return false
	case "postgres":
		var exists bool
		db.QueryRow(`SELECT EXISTS (SELECT 1 FROM information_schema.columns WHERE table_name=$1 AND column_name=$2)`, table, column).Scan(&exists)
		return exists
	}
	return false
}

// notFound converts sql.ErrNoRows into ErrNotFound.
func notFound(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	return err
}
