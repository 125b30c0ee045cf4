package db

import (
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/tsenart/nap"
)

const (
	DriverSqlite   = "sqlite"
	DriverPostgres = "postgres"
)

// DB is a master/replica connection paired with a statement builder using
// the placeholder format of its driver.
type DB struct {
	*nap.DB
	Driver  string
	Builder sq.StatementBuilderType
}

func Open(driver, dsn string) (*DB, error) {
	conn, err := nap.Open(driver, dsn)
	if err != nil {
		return nil, err
	}

	db := &DB{DB: conn, Driver: driver}

	switch driver {
	case DriverSqlite:
		// sqlite allows a single writer at a time.
		conn.Master().SetMaxOpenConns(1)
		db.Builder = sq.StatementBuilder.PlaceholderFormat(sq.Question)
	case DriverPostgres:
		db.Builder = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)
	default:
		_ = conn.Close()
		return nil, fmt.Errorf("unsupported db driver %q", driver)
	}

	return db, nil
}
