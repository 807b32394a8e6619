package config_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"storefront/internal/config"
)

func TestDefaults(t *testing.T) {
	cfg, err := config.FromMap(map[string]string{})
	require.NoError(t, err)
	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, "storefront.db", cfg.DBDSN)
	assert.Equal(t, "mongo", cfg.DocstoreDriver)
	assert.Equal(t, "mongodb://localhost:27017", cfg.Mongo.URI)
	assert.Equal(t, "storefront", cfg.Mongo.Name)
	assert.False(t, cfg.Mongo.Transactions)
	assert.Equal(t, 5*time.Second, cfg.Mongo.SelectTimeout)
	assert.Equal(t, 10*time.Second, cfg.Mongo.ConnectTimeout)
	assert.Equal(t, 10*time.Second, cfg.Mongo.OpTimeout)
	assert.Equal(t, 0.16, cfg.TaxRate)
	assert.Equal(t, "FAC", cfg.InvoicePrefix)
	assert.Equal(t, config.DevJWTSecret, cfg.JWTSecret)
	assert.Equal(t, 24*time.Hour, cfg.TokenTTL)
	assert.True(t, cfg.OTelEnabled)
	assert.Equal(t, []string{"*"}, cfg.Origins())
}

func TestOverrides(t *testing.T) {
	cfg, err := config.FromMap(map[string]string{
		"PORT":                 "9090",
		"DOCSTORE_DRIVER":      "Memory",
		"MONGODB_URI":          "mongodb://db:27017",
		"MONGODB_TRANSACTIONS": "true",
		"MONGODB_OP_TIMEOUT":   "3s",
		"TAX_RATE":             "0.08",
		"CORS_ORIGINS":         "https://a.example, https://b.example",
		"JWT_SECRET":           "s3cret",
	})
	require.NoError(t, err)
	assert.Equal(t, "9090", cfg.Port)
	assert.Equal(t, "memory", cfg.DocstoreDriver)
	assert.Equal(t, "mongodb://db:27017", cfg.Mongo.URI)
	assert.True(t, cfg.Mongo.Transactions)
	assert.Equal(t, 3*time.Second, cfg.Mongo.OpTimeout)
	assert.Equal(t, 0.08, cfg.TaxRate)
	assert.Equal(t, "s3cret", cfg.JWTSecret)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.Origins())
}

func TestValidation(t *testing.T) {
	_, err := config.FromMap(map[string]string{"TAX_RATE": "1.5"})
	assert.ErrorContains(t, err, "TAX_RATE")

	_, err = config.FromMap(map[string]string{"DOCSTORE_DRIVER": "postgres"})
	assert.ErrorContains(t, err, "DOCSTORE_DRIVER")

	_, err = config.FromMap(map[string]string{"APP_ENV": "prod"})
	assert.ErrorContains(t, err, "JWT_SECRET")

	_, err = config.FromMap(map[string]string{"TOKEN_TTL": "soon"})
	assert.Error(t, err)
}
