package encryption

import (
	"errors"

	"datatime/internal/config"
)

// ErrNoIdentity is returned when an encrypted input is read but no identity
// file has been configured.
var ErrNoIdentity = errors.New("no age identity configured (set [encryption] identity_path)")

// NewDecryptorFromConfig loads the identity named by the configuration.
func NewDecryptorFromConfig(cfg config.EncryptionConfig, passphrase PassphraseFunc) (*AgeDecryptor, error) {
	if cfg.IdentityPath == "" {
		return nil, ErrNoIdentity
	}
	return LoadIdentityFile(cfg.IdentityPath, passphrase)
}
