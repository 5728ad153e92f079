package providerconfig

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/payway/internal/cache"
	"github.com/smallbiznis/payway/internal/config"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func setupTestService(t *testing.T, secret string) *Service {
	t.Helper()
	db, err := gorm.Open(sqlite.Open("file:"+t.Name()+"?mode=memory&cache=shared"), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := db.AutoMigrate(&ProviderConfig{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	node, err := snowflake.NewNode(1)
	if err != nil {
		t.Fatalf("snowflake: %v", err)
	}
	return NewService(Params{
		DB:    db,
		Log:   zap.NewNop(),
		GenID: node,
		Cfg:   config.Config{ProviderConfigSecret: secret},
	})
}

func TestSaveAndGetRoundTrip(t *testing.T) {
	svc := setupTestService(t, "super_secret")
	ctx := context.Background()

	creds := map[string]any{"api_key": "sk_test_123", "webhook_secret": "whsec_1"}
	if err := svc.Save(ctx, "Stripe", creds); err != nil {
		t.Fatalf("Save: %v", err)
	}

	got, err := svc.Get(ctx, "stripe")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got["api_key"] != "sk_test_123" || got["webhook_secret"] != "whsec_1" {
		t.Fatalf("got = %v", got)
	}
}

func TestConfigStoredEncrypted(t *testing.T) {
	svc := setupTestService(t, "super_secret")
	ctx := context.Background()

	if err := svc.Save(ctx, "revolut", map[string]any{"token": "sk_revolut"}); err != nil {
		t.Fatalf("Save: %v", err)
	}

	var row ProviderConfig
	if err := svc.db.Where("provider = ?", "revolut").First(&row).Error; err != nil {
		t.Fatalf("load row: %v", err)
	}
	if len(row.Config) == 0 {
		t.Fatal("config column empty")
	}
	if stored := string(row.Config); strings.Contains(stored, "sk_revolut") || strings.Contains(stored, `"token"`) {
		t.Fatalf("plaintext credential leaked into storage: %s", stored)
	}
}

func TestSaveReplacesExisting(t *testing.T) {
	svc := setupTestService(t, "super_secret")
	ctx := context.Background()

	if err := svc.Save(ctx, "stripe", map[string]any{"api_key": "old"}); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if err := svc.Save(ctx, "stripe", map[string]any{"api_key": "new"}); err != nil {
		t.Fatalf("Save again: %v", err)
	}

	got, err := svc.Get(ctx, "stripe")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got["api_key"] != "new" {
		t.Fatalf("api_key = %v", got["api_key"])
	}

	var count int64
	if err := svc.db.Model(&ProviderConfig{}).Where("provider = ?", "stripe").Count(&count).Error; err != nil {
		t.Fatalf("count: %v", err)
	}
	if count != 1 {
		t.Fatalf("rows = %d, want 1", count)
	}
}

func TestGetMissingProvider(t *testing.T) {
	svc := setupTestService(t, "super_secret")
	if _, err := svc.Get(context.Background(), "bitvora"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestDeactivateHidesConfig(t *testing.T) {
	svc := setupTestService(t, "super_secret")
	ctx := context.Background()

	if err := svc.Save(ctx, "stripe", map[string]any{"api_key": "sk"}); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if err := svc.Deactivate(ctx, "stripe"); err != nil {
		t.Fatalf("Deactivate: %v", err)
	}
	if _, err := svc.Get(ctx, "stripe"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
	if err := svc.Deactivate(ctx, "stripe"); err != nil {
		t.Fatalf("Deactivate twice: %v", err)
	}
	if err := svc.Deactivate(ctx, "unknown"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestSaveWithoutSecret(t *testing.T) {
	svc := setupTestService(t, "")
	err := svc.Save(context.Background(), "stripe", map[string]any{"api_key": "sk"})
	if !errors.Is(err, ErrEncryptionKeyMissing) {
		t.Fatalf("err = %v, want ErrEncryptionKeyMissing", err)
	}
}

func TestDecryptRejectsTamperedPayload(t *testing.T) {
	key := deriveKey("super_secret")
	encrypted, err := encryptConfig(key, map[string]any{"api_key": "sk"})
	if err != nil {
		t.Fatalf("encrypt: %v", err)
	}

	otherKey := deriveKey("different_secret")
	if _, err := decryptConfig(otherKey, encrypted); !errors.Is(err, ErrInvalidConfig) {
		t.Fatalf("err = %v, want ErrInvalidConfig", err)
	}
	if _, err := decryptConfig(key, []byte(`{"version":2}`)); !errors.Is(err, ErrInvalidConfig) {
		t.Fatalf("err = %v, want ErrInvalidConfig for unknown version", err)
	}
}

func TestGetUsesCache(t *testing.T) {
	svc := setupTestService(t, "super_secret")
	ctx := context.Background()

	if err := svc.Save(ctx, "stripe", map[string]any{"api_key": "sk"}); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if _, err := svc.Get(ctx, "stripe"); err != nil {
		t.Fatalf("Get: %v", err)
	}

	// Drop the table; a cached read must still succeed.
	if err := svc.db.Migrator().DropTable(&ProviderConfig{}); err != nil {
		t.Fatalf("drop table: %v", err)
	}
	if _, err := svc.Get(ctx, "stripe"); err != nil {
		t.Fatalf("Get from cache: %v", err)
	}
}

var _ cache.Cache[string, map[string]any] = (*cache.TTLCache[string, map[string]any])(nil)
