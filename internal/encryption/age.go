// Package encryption reads age-encrypted evidence files.
package encryption

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"filippo.io/age"
)

// ageHeader starts every binary age file, including passphrase-protected
// identity files.
const ageHeader = "age-encryption.org/v1"

// PassphraseFunc supplies the passphrase for a protected identity file.
type PassphraseFunc func() (string, error)

// AgeDecryptor decrypts age streams with a fixed set of X25519 identities.
type AgeDecryptor struct {
	identities []age.Identity
}

// NewAgeDecryptor wraps already parsed identities.
func NewAgeDecryptor(identities ...age.Identity) *AgeDecryptor {
	return &AgeDecryptor{identities: identities}
}

// LoadIdentityFile reads identities from path. When the file is itself
// encrypted with a passphrase, passphrase is called to unlock it.
func LoadIdentityFile(path string, passphrase PassphraseFunc) (*AgeDecryptor, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading identity file: %w", err)
	}

	if bytes.HasPrefix(data, []byte(ageHeader)) {
		if passphrase == nil {
			return nil, fmt.Errorf("identity file %s is passphrase protected", path)
		}
		data, err = unlock(data, passphrase)
		if err != nil {
			return nil, err
		}
	}

	identities, err := age.ParseIdentities(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("parsing identity file: %w", err)
	}

	return &AgeDecryptor{identities: identities}, nil
}

func unlock(data []byte, passphrase PassphraseFunc) ([]byte, error) {
	pass, err := passphrase()
	if err != nil {
		return nil, fmt.Errorf("reading passphrase: %w", err)
	}

	identity, err := age.NewScryptIdentity(pass)
	if err != nil {
		return nil, fmt.Errorf("creating scrypt identity: %w", err)
	}

	decReader, err := age.Decrypt(bytes.NewReader(data), identity)
	if err != nil {
		return nil, fmt.Errorf("decrypting identity file: %w", err)
	}

	keyData, err := io.ReadAll(decReader)
	if err != nil {
		return nil, fmt.Errorf("reading decrypted identity file: %w", err)
	}
	return keyData, nil
}

// Decrypt returns a reader yielding the plaintext of the age stream r.
func (d *AgeDecryptor) Decrypt(r io.Reader) (io.Reader, error) {
	decReader, err := age.Decrypt(bufio.NewReader(r), d.identities...)
	if err != nil {
		return nil, fmt.Errorf("creating decrypted reader: %w", err)
	}
	return decReader, nil
}

// GenerateIdentity creates a new X25519 identity, writes it to path encrypted
// with passphrase, and returns the matching recipient string to hand to
// whoever collects the body files.
func GenerateIdentity(path, passphrase string) (string, error) {
	identity, err := age.GenerateX25519Identity()
	if err != nil {
		return "", fmt.Errorf("generating key pair: %w", err)
	}

	recipient, err := age.NewScryptRecipient(passphrase)
	if err != nil {
		return "", fmt.Errorf("creating scrypt recipient: %w", err)
	}

	var buf bytes.Buffer
	w, err := age.Encrypt(&buf, recipient)
	if err != nil {
		return "", fmt.Errorf("creating encrypted writer: %w", err)
	}
	if _, err := io.WriteString(w, identity.String()+"\n"); err != nil {
		return "", fmt.Errorf("writing encrypted identity: %w", err)
	}
	if err := w.Close(); err != nil {
		return "", fmt.Errorf("finalizing encrypted identity: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return "", fmt.Errorf("creating identity directory: %w", err)
	}
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0600)
	if err != nil {
		return "", fmt.Errorf("creating identity file: %w", err)
	}
	_, err = f.Write(buf.Bytes())
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		os.Remove(path)
		return "", fmt.Errorf("writing identity file: %w", err)
	}

	return identity.Recipient().String(), nil
}
