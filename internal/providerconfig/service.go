package providerconfig

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/payway/internal/cache"
	"github.com/smallbiznis/payway/internal/config"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const cacheTTL = time.Minute

type Params struct {
	fx.In

	DB    *gorm.DB
	Log   *zap.Logger
	GenID *snowflake.Node
	Cfg   config.Config
}

type Service struct {
	db     *gorm.DB
	log    *zap.Logger
	genID  *snowflake.Node
	encKey []byte
	cache  cache.Cache[string, map[string]any]
}

func NewService(p Params) *Service {
	return &Service{
		db:     p.DB,
		log:    p.Log.Named("providerconfig.service"),
		genID:  p.GenID,
		encKey: deriveKey(p.Cfg.ProviderConfigSecret),
		cache:  cache.NewTTLCache[string, map[string]any](),
	}
}

// Save encrypts and upserts the credentials for a provider, replacing
// any previous row.
func (s *Service) Save(ctx context.Context, provider string, cfg map[string]any) error {
	provider = normalize(provider)
	if provider == "" {
		return ErrInvalidConfig
	}
	encrypted, err := encryptConfig(s.encKey, cfg)
	if err != nil {
		return err
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing ProviderConfig
		err := tx.Where("provider = ?", provider).First(&existing).Error
		switch {
		case err == nil:
			return tx.Model(&existing).Updates(map[string]any{
				"config": encrypted,
				"active": true,
			}).Error
		case errors.Is(err, gorm.ErrRecordNotFound):
			return tx.Create(&ProviderConfig{
				ID:       s.genID.Generate(),
				Provider: provider,
				Config:   encrypted,
				Active:   true,
			}).Error
		default:
			return err
		}
	})
	if err != nil {
		return err
	}

	s.cache.Delete(provider)
	s.log.Info("provider config saved", zap.String("provider", provider))
	return nil
}

// Get returns the decrypted credentials for a provider. Results are
// cached briefly since webhook handling reads them on every event.
func (s *Service) Get(ctx context.Context, provider string) (map[string]any, error) {
	provider = normalize(provider)
	if cached, ok := s.cache.Get(provider); ok {
		return cached, nil
	}

	var row ProviderConfig
	err := s.db.WithContext(ctx).
		Where("provider = ? AND active = ?", provider, true).
		First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	decrypted, err := decryptConfig(s.encKey, row.Config)
	if err != nil {
		return nil, err
	}
	s.cache.Set(provider, decrypted, cacheTTL)
	return decrypted, nil
}

// Deactivate disables a provider's stored credentials without deleting
// the row.
func (s *Service) Deactivate(ctx context.Context, provider string) error {
	provider = normalize(provider)
	result := s.db.WithContext(ctx).
		Model(&ProviderConfig{}).
		Where("provider = ?", provider).
		Update("active", false)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	s.cache.Delete(provider)
	return nil
}

func normalize(provider string) string {
	return strings.ToLower(strings.TrimSpace(provider))
}
