package encryption

import (
	"fmt"

	"tidy-go/internal/config"
	"tidy-go/internal/tidy"
)

// NewEncryptorFromConfig creates an Encryptor based on the configuration
// type. "none" returns nil: snapshots are archived in plaintext.
func NewEncryptorFromConfig(cfg config.EncryptionConfig) (tidy.Encryptor, error) {
	switch cfg.Type {
	case "age", "":
		return NewAgeEncryptor(cfg), nil
	case "test":
		return NewTestEncryptor(), nil
	case "none":
		return nil, nil
	default:
		return nil, fmt.Errorf("unknown encryption type: %q", cfg.Type)
	}
}
