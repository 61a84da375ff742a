package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_ValoresPorDefecto(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "postgres", cfg.Storage.Driver)
	assert.Equal(t, 300*time.Second, cfg.Webhook.MaxAge, "la antigüedad máxima por defecto es 300 s")
	assert.Equal(t, []string{"merchant_order"}, cfg.Webhook.RelaxedTopics)
	assert.Equal(t, "America/Bogota", cfg.Expiration.Timezone)
	assert.False(t, cfg.App.IsProduction())
}

func TestLoad_LeeVariablesDeEntorno(t *testing.T) {
	t.Setenv("APP_ENV", "production")
	t.Setenv("PAYMENT_GATEWAY_ACCESS_TOKEN", "tok")
	t.Setenv("WEBHOOK_MAX_AGE_SECONDS", "60")
	t.Setenv("WEBHOOK_RELAXED_TOPICS", "merchant_order, chargebacks")
	t.Setenv("CARRIER_TIMEOUT", "3s")
	t.Setenv("STORAGE_TIMEOUT", "2")
	t.Setenv("EVENTS_BROADCAST", "true")

	cfg, err := Load()
	require.NoError(t, err)

	assert.True(t, cfg.App.IsProduction())
	assert.Equal(t, 60*time.Second, cfg.Webhook.MaxAge)
	assert.Equal(t, []string{"merchant_order", "chargebacks"}, cfg.Webhook.RelaxedTopics)
	assert.Equal(t, 3*time.Second, cfg.Carrier.Timeout)
	assert.Equal(t, 2*time.Second, cfg.Storage.Timeout)
	assert.True(t, cfg.Events.Broadcast)
}

func TestLoad_RechazaMaxAgeNoPositivo(t *testing.T) {
	t.Setenv("WEBHOOK_MAX_AGE_SECONDS", "0")
	_, err := Load()
	assert.Error(t, err)
}

func TestLoad_ProduccionExigeTokenDeLaPasarela(t *testing.T) {
	t.Setenv("APP_ENV", "production")
	t.Setenv("PAYMENT_GATEWAY_ACCESS_TOKEN", "")
	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "PAYMENT_GATEWAY_ACCESS_TOKEN")

	t.Setenv("APP_ENV", "development")
	_, err = Load()
	assert.NoError(t, err)
}

func TestDBConfig_DSNEscapaPassword(t *testing.T) {
	c := DBConfig{Host: "db", Port: 5432, User: "app", Password: "p@ss:word", DBName: "ventas", SSLMode: "disable"}
	assert.Equal(t, "postgres://app:p%40ss%3Aword@db:5432/ventas?sslmode=disable", c.DSN())
	c.DatabaseURL = "postgres://otro"
	assert.Equal(t, "postgres://otro", c.ConnectionString())
}
