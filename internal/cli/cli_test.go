package cli

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tripbudget/internal/core"
)

const testRates = `currencies:
  - {id: c-usd, code: USD, name: US Dollar, symbol: $, exchange_rate_to_usd: 1}
  - {id: c-eur, code: EUR, name: Euro, symbol: €, exchange_rate_to_usd: 0.92}
`

func isolateEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"PORT", "SQLITE_DB_PATH", "AMQP_URL", "DEFAULT_CURRENCY_CODE", "CURRENCY_CACHE_POLICY",
		"CURRENCY_CACHE_SIZE", "CURRENCY_CACHE_TTL", "CURRENCY_RATES_FILE", "FETCH_TIMEOUT",
		"CACHE_CLEANUP_SCHEDULE", "LOG_FORMAT",
	} {
		t.Setenv(key, "")
	}
	t.Setenv("DATA_BACKEND", "sqlite")
	t.Setenv("LOG_LEVEL", "error")
}

func runCLI(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := NewRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func seedTrip(t *testing.T, dbPath string) {
	t.Helper()
	db, err := sql.Open("sqlite", dbPath)
	require.NoError(t, err)
	defer db.Close()

	for _, stmt := range []string{
		`INSERT INTO trips (id, user_id, name, budget, currency_code) VALUES ('t1', 'u1', 'Rome', 1500, 'USD')`,
		`INSERT INTO accommodations (id, trip_id, name, price_per_night, nights, currency_id) VALUES ('a1', 't1', 'Hotel Roma', 250, 3, 'c-eur')`,
		`INSERT INTO transport_legs (id, trip_id, mode, cost, currency_id) VALUES ('l1', 't1', 'flight', 650, 'c-usd')`,
		`INSERT INTO transport_legs (id, trip_id, mode, cost, currency_id) VALUES ('l2', 't1', 'train', 85, 'c-eur')`,
	} {
		_, err := db.Exec(stmt)
		require.NoError(t, err, stmt)
	}
}

func TestCommandsAgainstSQLite(t *testing.T) {
	isolateEnv(t)
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "trips.db")
	ratesPath := filepath.Join(dir, "rates.yaml")
	require.NoError(t, os.WriteFile(ratesPath, []byte(testRates), 0644))

	out, err := runCLI(t, "migrate", "--db", dbPath)
	require.NoError(t, err)
	assert.Contains(t, out, "schema version 1")

	out, err = runCLI(t, "currencies", "import", ratesPath, "--db", dbPath)
	require.NoError(t, err)
	assert.Contains(t, out, "imported 2 currencies")

	out, err = runCLI(t, "currencies", "list", "--db", dbPath)
	require.NoError(t, err)
	assert.Contains(t, out, "EUR")
	assert.Contains(t, out, "0.9200")

	seedTrip(t, dbPath)

	out, err = runCLI(t, "budget", "t1", "--user", "u1", "--json", "--db", dbPath)
	require.NoError(t, err)
	var snap core.BudgetSnapshot
	require.NoError(t, json.Unmarshal([]byte(out), &snap))
	assert.Equal(t, 1557.61, snap.TotalEstimatedCost)
	assert.Equal(t, []string{"Trip is over budget by 3.8%"}, snap.Alerts)

	out, err = runCLI(t, "budget", "t1", "--user", "u1", "--db", dbPath)
	require.NoError(t, err)
	assert.Contains(t, out, "Rome")
	assert.Contains(t, out, "Hotel Roma")
	assert.Contains(t, out, "Trip is over budget by 3.8%")

	_, err = runCLI(t, "budget", "missing", "--user", "u1", "--db", dbPath)
	require.Error(t, err)
	assert.ErrorIs(t, err, core.ErrTripNotFound)

	out, err = runCLI(t, "trips", "--user", "u1", "--db", dbPath)
	require.NoError(t, err)
	assert.Contains(t, out, "Rome")
	assert.Contains(t, out, string(core.StatusWithinBudget))

	out, err = runCLI(t, "trips", "--user", "nobody", "--db", dbPath)
	require.NoError(t, err)
	assert.Contains(t, out, "No trips found.")
}

func TestBudgetRequiresUser(t *testing.T) {
	isolateEnv(t)
	_, err := runCLI(t, "budget", "t1", "--db", filepath.Join(t.TempDir(), "x.db"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), `"user" not set`)
}

func TestMigrateRejectsMemoryBackend(t *testing.T) {
	isolateEnv(t)
	t.Setenv("DATA_BACKEND", "memory")

	_, err := runCLI(t, "migrate")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "DATA_BACKEND=sqlite")
}

func TestInvalidConfigFailsCommand(t *testing.T) {
	isolateEnv(t)
	t.Setenv("DATA_BACKEND", "sheets")

	_, err := runCLI(t, "currencies", "list")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid data backend")
}
