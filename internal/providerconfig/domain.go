// Package providerconfig stores per-provider API credentials encrypted
// at rest. Plaintext credentials never reach the database; rows hold an
// AES-GCM envelope keyed from the configured secret.
package providerconfig

import (
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
)

var (
	ErrEncryptionKeyMissing = errors.New("encryption_key_missing")
	ErrInvalidConfig        = errors.New("invalid_provider_config")
	ErrNotFound             = errors.New("provider_config_not_found")
)

type ProviderConfig struct {
	ID       snowflake.ID   `gorm:"primaryKey"`
	Provider string         `gorm:"size:32;uniqueIndex"`
	Config   datatypes.JSON `gorm:"type:jsonb"`
	Active   bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (ProviderConfig) TableName() string {
	return "provider_configs"
}
