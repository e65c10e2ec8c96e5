package config

import (
	"fmt"
	"os"
)

type PostgresConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
}

func NewPostgresConfig() *PostgresConfig {
	var postgres PostgresConfig

	postgres.Host = getEnv("POSTGRES_HOST", "localhost")
	postgres.Port = getEnv("POSTGRES_PORT", "5432")
	postgres.User = getEnv("POSTGRES_USER", "user")
	postgres.Password = getEnv("POSTGRES_PASSWORD", "pass")
	postgres.DBName = getEnv("POSTGRES_DATABASE", "tpq_payments")

	return &postgres
}

func (c *PostgresConfig) ConnString() string {
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=disable", c.Host, c.Port, c.User, c.Password, c.DBName)
}

func (c *PostgresConfig) URL() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=disable", c.User, c.Password, c.Host, c.Port, c.DBName)
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}
