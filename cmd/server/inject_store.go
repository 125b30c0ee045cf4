package main

import (
	"github.com/google/wire"
	"github.com/pandodao/paybridge/store/db"
	"github.com/pandodao/paybridge/store/eligibility"
	"github.com/pandodao/paybridge/store/property"
	"github.com/pandodao/paybridge/store/wallet"
	"github.com/pandodao/paybridge/store/watch"
	"github.com/spf13/viper"

	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"
)

var storeSet = wire.NewSet(
	provideDB,
	wallet.New,
	eligibility.New,
	watch.New,
	property.New,
)

func provideDB(v *viper.Viper) (*db.DB, func(), error) {
	v.SetDefault("db.driver", db.DriverSqlite)
	v.SetDefault("db.dsn", "file:paybridge.db?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)")

	driver := v.GetString("db.driver")
	dsn := v.GetString("db.dsn")

	for _, replica := range v.GetStringSlice("db.replicas") {
		dsn += ";" + replica
	}

	conn, err := db.Open(driver, dsn)
	if err != nil {
		return nil, nil, err
	}

	if err := db.Migrate(conn); err != nil {
		_ = conn.Close()
		return nil, nil, err
	}

	return conn, func() { _ = conn.Close() }, nil
}
