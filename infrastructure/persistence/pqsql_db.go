package persistence

import (
	"database/sql"
	"fmt"
	"time"

	"socialdesk/infrastructure/configuration"
	"socialdesk/infrastructure/logger"

	_ "github.com/lib/pq"
)

// NewPostgreSQLDB opens the connection pool described in configuration.
func NewPostgreSQLDB() (*sql.DB, error) {
	cfg := configuration.C.Database.Psql
	dsn := fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=disable",
		cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.Name)

	db, err := sql.Open("postgres", dsn)
	if err != nil {
		logger.GetLogger().WithField("error", err).Error("opening postgres connection failed")
		return nil, err
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(30 * time.Minute)

	if err := db.Ping(); err != nil {
		logger.GetLogger().WithField("error", err).Error("pinging postgres failed")
		return db, err
	}
	return db, nil
}
