package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoadDefaults(t *testing.T) {
	for _, k := range []string{"SERVER_PORT", "SHOP_NAME", "MAIL_TRANSPORT", "ASSET_BACKEND", "NOTIFY_ADMIN_INTERVAL", "FRONTEND_URL"} {
		t.Setenv(k, "")
	}

	cfg := Load()
	assert.Equal(t, "8080", cfg.ServerPort)
	assert.Equal(t, "The Outfit Oracle", cfg.ShopName)
	assert.Equal(t, "log", cfg.Mail.Transport)
	assert.Equal(t, "local", cfg.Assets.Backend)
	assert.Equal(t, 10*time.Second, cfg.Notify.AdminInterval)
	assert.Equal(t, time.Second, cfg.Notify.CustomerInterval)
	assert.Equal(t, time.Hour, cfg.ResetTokenTTL)
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("FRONTEND_URL", "https://shop.example.com/")
	t.Setenv("CORS_ORIGINS", "https://a.example.com, https://b.example.com")
	t.Setenv("KAFKA_BROKERS", "k1:9092,k2:9092")
	t.Setenv("NOTIFY_CUSTOMER_INTERVAL", "250ms")
	t.Setenv("IMAGE_MAX_WIDTH", "800")
	t.Setenv("ASSET_BACKEND", "MINIO")

	cfg := Load()
	assert.Equal(t, "https://shop.example.com", cfg.FrontendURL)
	assert.Equal(t, []string{"https://a.example.com", "https://b.example.com"}, cfg.CORSOrigins)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.KafkaBrokers)
	assert.Equal(t, 250*time.Millisecond, cfg.Notify.CustomerInterval)
	assert.Equal(t, uint(800), cfg.Assets.MaxWidth)
	assert.Equal(t, "minio", cfg.Assets.Backend)
}
