package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_ValoresPorDefecto(t *testing.T) {
	t.Setenv("APP_ENV", "development")
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "postgres", cfg.DB.Driver)
	assert.Equal(t, 3, cfg.DB.TxRetries)
	assert.False(t, cfg.DB.AutoMigrate)
	assert.Equal(t, 5*time.Second, cfg.DB.LockTimeout)
	assert.Equal(t, 10*time.Minute, cfg.Redis.StageTTL)
	assert.Equal(t, time.Minute, cfg.Sweeper.Interval)
	assert.Equal(t, "Proposal Issued", cfg.Pipeline.ProposalIssued)
	assert.False(t, cfg.Ledger.RejectOverpayment)
}

func TestLoad_DesdeEntorno(t *testing.T) {
	t.Setenv("APP_ENV", "development")
	t.Setenv("DB_DRIVER", "MEMORY")
	t.Setenv("DB_TX_RETRIES", "5")
	t.Setenv("DB_AUTO_MIGRATE", "true")
	t.Setenv("STAGE_CACHE_TTL", "90")
	t.Setenv("SWEEPER_INTERVAL", "30s")
	t.Setenv("PIPELINE_STAGE_SOLD", "Vendido")
	t.Setenv("LEDGER_REJECT_OVERPAYMENT", "1")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "memory", cfg.DB.Driver)
	assert.Equal(t, 5, cfg.DB.TxRetries)
	assert.True(t, cfg.DB.AutoMigrate)
	assert.Equal(t, 90*time.Second, cfg.Redis.StageTTL)
	assert.Equal(t, 30*time.Second, cfg.Sweeper.Interval)
	assert.Equal(t, "Vendido", cfg.Pipeline.Sold)
	assert.True(t, cfg.Ledger.RejectOverpayment)
}

func TestLoad_DriverInvalido(t *testing.T) {
	t.Setenv("DB_DRIVER", "mongo")
	_, err := Load()
	assert.Error(t, err)
}

func TestLoad_ProduccionExigeSecreto(t *testing.T) {
	t.Setenv("APP_ENV", "production")
	t.Setenv("JWT_SECRET", "")
	_, err := Load()
	assert.Error(t, err)
}

func TestDSN_EscapaPassword(t *testing.T) {
	c := DBConfig{User: "app", Password: "p@ss", Host: "db", Port: 5432, DBName: "crm", SSLMode: "disable"}
	assert.Equal(t, "postgres://app:p%40ss@db:5432/crm?sslmode=disable", c.DSN())
	c.DatabaseURL = "postgres://x"
	assert.Equal(t, "postgres://x", c.ConnectionString())
}
