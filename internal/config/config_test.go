package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const minimalYAML = `
server:
  port: 50051
database:
  host: db
  user: siterent
  database: siterent
jwt:
  secret: 0123456789abcdef0123456789abcdef
`

func TestParse_Defaults(t *testing.T) {
	cfg, err := Parse([]byte(minimalYAML))
	require.NoError(t, err)

	assert.Equal(t, "postgres", cfg.Database.Driver)
	assert.Equal(t, "disable", cfg.Database.SSLMode)
	assert.Equal(t, "INV", cfg.Ledger.InvoicePrefix)
	assert.Equal(t, 3, cfg.Ledger.TxMaxRetries)
	assert.Equal(t, 60, cfg.Redis.TTLSeconds)
	assert.Equal(t, "0 0 2 * * *", cfg.Scheduler.ReconcileBalances)
	assert.Equal(t, "0 30 2 * * *", cfg.Scheduler.RepairHistories)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "postgres://siterent:@db:0/siterent?sslmode=disable", cfg.GetDatabaseConnectionString())
}

func TestParse_EnvOverrides(t *testing.T) {
	t.Setenv("DB_DRIVER", "pgx")
	t.Setenv("INVOICE_PREFIX", "SITE")
	t.Setenv("TX_MAX_RETRIES", "5")
	t.Setenv("SERVER_PORT", "6000")

	cfg, err := Parse([]byte(minimalYAML))
	require.NoError(t, err)
	assert.Equal(t, "pgx", cfg.Database.Driver)
	assert.Equal(t, "SITE", cfg.Ledger.InvoicePrefix)
	assert.Equal(t, 5, cfg.Ledger.TxMaxRetries)
	assert.Equal(t, ":6000", cfg.GetServerAddress())
}

func TestParse_Invalid(t *testing.T) {
	cases := map[string]string{
		"bad port":     "server:\n  port: 0\n",
		"bad driver":   "server:\n  port: 1\ndatabase:\n  driver: mysql\n  host: h\n  user: u\n  database: d\njwt:\n  disabled: true\n",
		"short secret": "server:\n  port: 1\ndatabase:\n  host: h\n  user: u\n  database: d\njwt:\n  secret: short\n",
		"not yaml":     "server: [",
	}
	for name, doc := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Parse([]byte(doc))
			assert.Error(t, err)
		})
	}
}

func TestParse_JWTDisabledSkipsSecret(t *testing.T) {
	doc := "server:\n  port: 1\ndatabase:\n  host: h\n  user: u\n  database: d\njwt:\n  disabled: true\n"
	_, err := Parse([]byte(doc))
	assert.NoError(t, err)
}

func TestGetSecurityLevel(t *testing.T) {
	assert.Equal(t, SecurityPublic, GetSecurityLevel("/grpc.health.v1.Health/Check"))
	assert.Equal(t, SecurityAccess, GetSecurityLevel("/siterent.ledger.v1.LedgerService/CreateOrder"))
}
