// Package database provides support for access the database.
package database

import (
	"context"
	"net/url"

	_ "github.com/jackc/pgx/stdlib"
	"github.com/jmoiron/sqlx"
)

// Config is the required properties to use the database.
type Config struct {
	User       string
	Password   string
	Host       string
	Name       string
	DisableTLS bool
}

// ConnectionURL builds the postgres url for cfg
func ConnectionURL(cfg Config) string {
	sslMode := "require"
	if cfg.DisableTLS {
		sslMode = "disable"
	}

	q := make(url.Values)
	q.Set("sslmode", sslMode)
	q.Set("timezone", "utc")

	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(cfg.User, cfg.Password),
		Host:     cfg.Host,
		Path:     cfg.Name,
		RawQuery: q.Encode(),
	}
	return u.String()
}

// Open knows how to open a database connection based on the configuration.
func Open(cfg Config) (*sqlx.DB, error) {
	return sqlx.Connect("pgx", ConnectionURL(cfg))
}

// StatusCheck returns nil if it can successfully talk to the database
func StatusCheck(ctx context.Context, db *sqlx.DB) error {
	const q = `SELECT true`
	var tmp bool
	return db.QueryRowContext(ctx, q).Scan(&tmp)
}

// PrepareNamedQueryFromMap wraps boilerplate sqlx to prepare named query from map of ddl parameters
// returns rebound query string and arguments slice
func PrepareNamedQueryFromMap(
	statementString string,
	db *sqlx.DB,
	sqlArgMap map[string]interface{}) (string, []interface{}, error) {

	query, args, err := sqlx.Named(statementString, sqlArgMap)
	if err != nil {
		return query, nil, err
	}
	query, args, err = sqlx.In(query, args...)
	if err != nil {
		return query, nil, err
	}
	query = db.Rebind(query)
	return query, args, nil
}
