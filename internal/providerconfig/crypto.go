package providerconfig

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"io"
	"strings"

	"gorm.io/datatypes"
)

type encryptedPayload struct {
	Version    int    `json:"version"`
	Nonce      string `json:"nonce"`
	Ciphertext string `json:"ciphertext"`
}

// deriveKey turns the configured secret into a 32-byte AES key. An empty
// secret yields a nil key, which disables the store.
func deriveKey(secret string) []byte {
	secret = strings.TrimSpace(secret)
	if secret == "" {
		return nil
	}
	sum := sha256.Sum256([]byte(secret))
	return sum[:]
}

func encryptConfig(key []byte, cfg map[string]any) (datatypes.JSON, error) {
	if len(key) == 0 {
		return nil, ErrEncryptionKeyMissing
	}
	if len(cfg) == 0 {
		return nil, ErrInvalidConfig
	}
	plain, err := json.Marshal(cfg)
	if err != nil {
		return nil, ErrInvalidConfig
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, err
	}
	nonce := make([]byte, gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, err
	}

	payload := encryptedPayload{
		Version:    1,
		Nonce:      base64.RawStdEncoding.EncodeToString(nonce),
		Ciphertext: base64.RawStdEncoding.EncodeToString(gcm.Seal(nil, nonce, plain, nil)),
	}
	return json.Marshal(payload)
}

func decryptConfig(key []byte, encrypted datatypes.JSON) (map[string]any, error) {
	if len(key) == 0 {
		return nil, ErrEncryptionKeyMissing
	}
	if len(encrypted) == 0 {
		return nil, ErrInvalidConfig
	}

	var payload encryptedPayload
	if err := json.Unmarshal(encrypted, &payload); err != nil {
		return nil, ErrInvalidConfig
	}
	if payload.Version != 1 {
		return nil, ErrInvalidConfig
	}

	nonce, err := base64.RawStdEncoding.DecodeString(payload.Nonce)
	if err != nil {
		return nil, ErrInvalidConfig
	}
	ciphertext, err := base64.RawStdEncoding.DecodeString(payload.Ciphertext)
	if err != nil {
		return nil, ErrInvalidConfig
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, err
	}
	plain, err := gcm.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return nil, ErrInvalidConfig
	}

	var out map[string]any
	if err := json.Unmarshal(plain, &out); err != nil {
		return nil, ErrInvalidConfig
	}
	if len(out) == 0 {
		return nil, ErrInvalidConfig
	}
	return out, nil
}
