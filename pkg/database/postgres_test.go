package database

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/noah-isme/office-hours-api/pkg/config"
)

func TestDSN(t *testing.T) {
	dsn := DSN(config.DatabaseConfig{
		Host:     "db",
		Port:     5433,
		User:     "app",
		Password: "secret",
		Name:     "office_hours",
		SSLMode:  "disable",
	})
	assert.Equal(t, "host=db port=5433 user=app password=secret dbname=office_hours sslmode=disable", dsn)
}
