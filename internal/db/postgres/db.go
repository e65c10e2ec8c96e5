package dbpostgres

import (
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"

	"github.com/tpq-digital/payment-service/internal/config"
)

func NewDBConn(cfg *config.PostgresConfig) (*sqlx.DB, error) {
	if cfg == nil {
		cfg = config.NewPostgresConfig()
	}
	db, err := sqlx.Connect("postgres", cfg.ConnString())
	if err != nil {
		return nil, err
	}
	return db, nil
}
