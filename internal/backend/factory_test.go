package backend

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"spendlog/internal/amqp"
	"spendlog/internal/config"
	"spendlog/internal/core"
	"spendlog/internal/services"
)

type nopPublisher struct{ published int }

func (p *nopPublisher) Publish(context.Context, *amqp.ExpenseEvent) error {
	p.published++
	return nil
}

func TestFromAppConfig(t *testing.T) {
	cfg, err := FromAppConfig(&config.Config{DataBackend: "sqlite", SQLiteDBPath: "x.db", AMQPQueue: "q"})
	require.NoError(t, err)
	assert.Equal(t, SQLiteBackend, cfg.Type)
	assert.Equal(t, "x.db", cfg.SQLiteDBPath)
	assert.Equal(t, "q", cfg.AMQPQueue)

	_, err = FromAppConfig(&config.Config{DataBackend: "sheets"})
	assert.Error(t, err)

	_, err = FromAppConfig(nil)
	assert.Error(t, err)
}

func TestConfig_Validate(t *testing.T) {
	assert.NoError(t, Config{Type: MemoryBackend}.Validate())
	assert.Error(t, Config{Type: SQLiteBackend}.Validate())
	assert.Error(t, Config{Type: SupabaseBackend, SupabaseURL: "https://x.supabase.co"}.Validate())
	assert.Error(t, Config{Type: "redis"}.Validate())

	err := Config{Type: SupabaseBackend, AMQPURL: "amqp://localhost"}.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "SUPABASE_URL")
	assert.Contains(t, err.Error(), "SUPABASE_KEY")
	assert.Contains(t, err.Error(), "AMQP_EXCHANGE")
}

func TestFactory_MemoryBackend(t *testing.T) {
	f := NewFactory(nil)
	res, err := f.CreateBackend(context.Background(), Config{Type: MemoryBackend})
	require.NoError(t, err)
	defer res.Cleanup()

	_, err = res.Expenses.Create(context.Background(), core.ExpenseInput{
		Title: "Tea", Amount: core.Money{Cents: 300}, ExpenseDate: core.Today(),
	})
	require.NoError(t, err)

	dash, err := res.Dashboard.Dashboard(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3.0, dash.KPIs.TotalExpenses.Value)
}

func TestFactory_SQLiteBackend(t *testing.T) {
	f := NewFactory(nil)
	res, err := f.CreateBackend(context.Background(), Config{
		Type:         SQLiteBackend,
		SQLiteDBPath: filepath.Join(t.TempDir(), "spendlog.db"),
	})
	require.NoError(t, err)
	assert.NoError(t, res.Expenses.Ping(context.Background()))
	assert.NoError(t, res.Cleanup())
}

func TestFactory_WiresPublisherWhenConfigured(t *testing.T) {
	pub := &nopPublisher{}
	f := NewFactory(nil)
	f.dial = func(string, string, string) (services.Publisher, error) { return pub, nil }

	res, err := f.CreateBackend(context.Background(), Config{Type: MemoryBackend, AMQPURL: "amqp://localhost/", AMQPExchange: "spendlog", AMQPQueue: "expense_changes"})
	require.NoError(t, err)

	_, err = res.Expenses.Create(context.Background(), core.ExpenseInput{
		Title: "Tea", Amount: core.Money{Cents: 300}, ExpenseDate: core.Today(),
	})
	require.NoError(t, err)
	assert.Equal(t, 1, pub.published)
}

func TestFactory_ContinuesWhenBrokerUnreachable(t *testing.T) {
	f := NewFactory(nil)
	f.dial = func(string, string, string) (services.Publisher, error) {
		return nil, errors.New("dial AMQP: connection refused")
	}

	res, err := f.CreateBackend(context.Background(), Config{Type: MemoryBackend, AMQPURL: "amqp://localhost/", AMQPExchange: "spendlog", AMQPQueue: "expense_changes"})
	require.NoError(t, err)
	assert.NotNil(t, res.Expenses)
}
