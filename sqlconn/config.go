// Copyright 2024 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

package sqlconn

import (
	"database/sql"
	"os"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/canonical/sqlrecord/dialect"
	"github.com/canonical/sqlrecord/driver"
)

// Config describes a database connection. It is usually read from YAML:
//
//	dialect: mysql
//	mysql:
//	  user: app
//	  addr: localhost:3306
//	  dbname: shop
//	max-open-conns: 10
//	slow-threshold: 250ms
type Config struct {
	Dialect string `yaml:"dialect"`
	// Driver is the database/sql driver name. It defaults to the driver
	// registered for the dialect by this package.
	Driver string `yaml:"driver,omitempty"`
	DSN    string `yaml:"dsn,omitempty"`
	// MySQL is used to build the DSN when DSN is empty.
	MySQL *MySQLConfig `yaml:"mysql,omitempty"`

	MaxOpenConns    int           `yaml:"max-open-conns,omitempty"`
	MaxIdleConns    int           `yaml:"max-idle-conns,omitempty"`
	ConnMaxLifetime time.Duration `yaml:"conn-max-lifetime,omitempty"`

	// PrepareStatements enables the prepared statement cache.
	PrepareStatements bool `yaml:"prepare-statements,omitempty"`
	// SlowThreshold enables statistics collection when non-zero.
	SlowThreshold time.Duration `yaml:"slow-threshold,omitempty"`
}

// MySQLConfig holds the parts of a MySQL DSN.
type MySQLConfig struct {
	User     string            `yaml:"user"`
	Password string            `yaml:"password,omitempty"`
	Net      string            `yaml:"net,omitempty"`
	Addr     string            `yaml:"addr"`
	DBName   string            `yaml:"dbname"`
	Params   map[string]string `yaml:"params,omitempty"`
}

// defaultDrivers are the database/sql drivers registered by this package.
// T-SQL and CQL connections need Driver set to a driver registered by the
// caller.
var defaultDrivers = map[string]string{
	dialect.MySQL:    "mysql",
	dialect.Postgres: "postgres",
	dialect.SQLite:   "sqlite3",
}

// ParseConfig reads a Config from YAML and validates it.
func ParseConfig(data []byte) (Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, errors.Wrap(err, "cannot parse database config")
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// LoadConfig reads a Config from the YAML file at path.
func LoadConfig(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, errors.Wrapf(err, "cannot read database config")
	}
	return ParseConfig(data)
}

// Validate checks that the dialect is known and that a driver and data
// source can be derived.
func (c Config) Validate() error {
	if _, err := dialect.Get(c.Dialect); err != nil {
		return err
	}
	if _, err := c.DriverName(); err != nil {
		return err
	}
	if _, err := c.DataSourceName(); err != nil {
		return err
	}
	if c.MaxOpenConns < 0 || c.MaxIdleConns < 0 {
		return errors.New("connection pool sizes cannot be negative")
	}
	return nil
}

// DriverName returns the database/sql driver to open.
func (c Config) DriverName() (string, error) {
	if c.Driver != "" {
		return c.Driver, nil
	}
	p, err := dialect.Get(c.Dialect)
	if err != nil {
		return "", err
	}
	name, ok := defaultDrivers[p.Name()]
	if !ok {
		return "", errors.Errorf("no default database/sql driver for dialect %q", p.Name())
	}
	return name, nil
}

// DataSourceName returns the DSN, formatting the MySQL section if DSN is
// empty. MySQL connections always parse DATE and DATETIME columns into
// time.Time.
func (c Config) DataSourceName() (string, error) {
	if c.DSN != "" {
		return c.DSN, nil
	}
	if c.MySQL == nil {
		return "", errors.New("database config needs a dsn")
	}
	mc := mysql.NewConfig()
	mc.User = c.MySQL.User
	mc.Passwd = c.MySQL.Password
	mc.Net = c.MySQL.Net
	if mc.Net == "" {
		mc.Net = "tcp"
	}
	mc.Addr = c.MySQL.Addr
	mc.DBName = c.MySQL.DBName
	mc.Params = c.MySQL.Params
	mc.ParseTime = true
	return mc.FormatDSN(), nil
}

// Open opens the database described by cfg. The returned connection
// collects statistics when cfg.SlowThreshold is set.
func Open(cfg Config) (driver.Conn, *DB, error) {
	if err := cfg.Validate(); err != nil {
		return nil, nil, err
	}
	driverName, _ := cfg.DriverName()
	dsn, _ := cfg.DataSourceName()
	sqldb, err := sql.Open(driverName, dsn)
	if err != nil {
		return nil, nil, errors.Wrapf(err, "cannot open %s database", driverName)
	}
	if cfg.MaxOpenConns > 0 {
		sqldb.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		sqldb.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	if cfg.ConnMaxLifetime > 0 {
		sqldb.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	}
	var opts []Option
	if cfg.PrepareStatements {
		opts = append(opts, WithPreparedStatements())
	}
	db, err := New(sqldb, cfg.Dialect, opts...)
	if err != nil {
		sqldb.Close()
		return nil, nil, err
	}
	if cfg.SlowThreshold > 0 {
		return NewStatsConn(db, WithSlowThreshold(cfg.SlowThreshold), WithSlowQueryLog(nil)), db, nil
	}
	return db, db, nil
}
