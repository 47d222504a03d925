package database

import (
	"context"
	"database/sql"
	"fmt"
	"net/url"
	"time"

	_ "github.com/lib/pq"
	"github.com/rs/zerolog"
)

type Config struct {
	Host         string `json:"host"`
	Port         string `json:"port"`
	User         string `json:"user"`
	Password     string `json:"password"`
	DBName       string `json:"name"`
	SSLMode      string `json:"sslmode"`
	MaxOpenConns int    `json:"max_open_conns"`
	MaxRetries   int    `json:"max_retries"`
}

func (c Config) DSN() string {
	sslMode := c.SSLMode
	if sslMode == "" {
		sslMode = "disable"
	}

	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(c.User, c.Password),
		Host:     c.Host + ":" + c.Port,
		Path:     c.DBName,
		RawQuery: "sslmode=" + sslMode,
	}

	return u.String()
}

// NewPostgresDB opens the pool and waits for the server, retrying every two
// seconds up to cfg.MaxRetries times.
func NewPostgresDB(ctx context.Context, cfg Config, log zerolog.Logger) (*sql.DB, error) {
	maxRetries := cfg.MaxRetries
	if maxRetries <= 0 {
		maxRetries = 10
	}

	var db *sql.DB
	var err error

	for i := 1; i <= maxRetries; i++ {
		log.Info().Int("attempt", i).Int("max", maxRetries).Str("host", cfg.Host).Msg("connecting to database")

		db, err = sql.Open("postgres", cfg.DSN())
		if err == nil {
			err = db.PingContext(ctx)
		}

		if err == nil {
			if cfg.MaxOpenConns > 0 {
				db.SetMaxOpenConns(cfg.MaxOpenConns)
				db.SetMaxIdleConns(cfg.MaxOpenConns)
			}
			db.SetConnMaxLifetime(30 * time.Minute)

			log.Info().Msg("database connected")
			return db, nil
		}

		if db != nil {
			db.Close()
		}

		log.Warn().Err(err).Msg("database not ready, retrying in 2s")

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(2 * time.Second):
		}
	}

	return nil, fmt.Errorf("connect database: %w", err)
}
