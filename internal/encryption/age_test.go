package encryption

import (
	"bytes"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"filippo.io/age"

	"datatime/internal/config"
)

func encryptTo(t *testing.T, recipient age.Recipient, plaintext []byte) []byte {
	t.Helper()
	var buf bytes.Buffer
	w, err := age.Encrypt(&buf, recipient)
	if err != nil {
		t.Fatalf("age.Encrypt() error = %v", err)
	}
	if _, err := w.Write(plaintext); err != nil {
		t.Fatalf("Write() error = %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	return buf.Bytes()
}

func decryptAll(t *testing.T, d *AgeDecryptor, ciphertext []byte) []byte {
	t.Helper()
	r, err := d.Decrypt(bytes.NewReader(ciphertext))
	if err != nil {
		t.Fatalf("Decrypt() error = %v", err)
	}
	got, err := io.ReadAll(r)
	if err != nil {
		t.Fatalf("ReadAll() error = %v", err)
	}
	return got
}

func TestLoadIdentityFile_Plain(t *testing.T) {
	t.Parallel()
	identity, err := age.GenerateX25519Identity()
	if err != nil {
		t.Fatalf("GenerateX25519Identity() error = %v", err)
	}
	path := filepath.Join(t.TempDir(), "case.key")
	if err := os.WriteFile(path, []byte(identity.String()+"\n"), 0600); err != nil {
		t.Fatal(err)
	}

	d, err := LoadIdentityFile(path, nil)
	if err != nil {
		t.Fatalf("LoadIdentityFile() error = %v", err)
	}

	body := []byte("0|/etc/passwd|1|-rw-r--r--|0|0|10|1|2|3|4\n")
	if got := decryptAll(t, d, encryptTo(t, identity.Recipient(), body)); !bytes.Equal(got, body) {
		t.Errorf("Decrypt() = %q, want %q", got, body)
	}
}

func TestGenerateIdentity_Unlock(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "keys", "case.key")

	recipientStr, err := GenerateIdentity(path, "correct horse")
	if err != nil {
		t.Fatalf("GenerateIdentity() error = %v", err)
	}
	if !strings.HasPrefix(recipientStr, "age1") {
		t.Errorf("GenerateIdentity() recipient = %q, want age1 prefix", recipientStr)
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if bytes.Contains(raw, []byte("AGE-SECRET-KEY")) {
		t.Error("identity file contains the plaintext secret key")
	}

	if _, err := GenerateIdentity(path, "again"); err == nil {
		t.Error("GenerateIdentity() expected error when the file exists")
	}

	recipient, err := age.ParseX25519Recipient(recipientStr)
	if err != nil {
		t.Fatalf("ParseX25519Recipient() error = %v", err)
	}
	ciphertext := encryptTo(t, recipient, []byte("evidence"))

	t.Run("no passphrase source", func(t *testing.T) {
		if _, err := LoadIdentityFile(path, nil); err == nil {
			t.Fatal("LoadIdentityFile() expected error without passphrase")
		}
	})

	t.Run("passphrase error", func(t *testing.T) {
		boom := errors.New("no tty")
		_, err := LoadIdentityFile(path, func() (string, error) { return "", boom })
		if !errors.Is(err, boom) {
			t.Fatalf("LoadIdentityFile() error = %v, want %v", err, boom)
		}
	})

	t.Run("wrong passphrase", func(t *testing.T) {
		_, err := LoadIdentityFile(path, func() (string, error) { return "wrong", nil })
		if err == nil {
			t.Fatal("LoadIdentityFile() expected error for wrong passphrase")
		}
	})

	t.Run("correct passphrase", func(t *testing.T) {
		d, err := LoadIdentityFile(path, func() (string, error) { return "correct horse", nil })
		if err != nil {
			t.Fatalf("LoadIdentityFile() error = %v", err)
		}
		if got := decryptAll(t, d, ciphertext); string(got) != "evidence" {
			t.Errorf("Decrypt() = %q, want %q", got, "evidence")
		}
	})
}

func TestGenerateIdentity_FailureLeavesNoFile(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "case.key")

	if _, err := GenerateIdentity(path, ""); err == nil {
		t.Fatal("GenerateIdentity() expected error for empty passphrase")
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Fatalf("Stat() error = %v, want not exist after failed generation", err)
	}

	if _, err := GenerateIdentity(path, "correct horse"); err != nil {
		t.Fatalf("GenerateIdentity() retry error = %v", err)
	}
}

func TestLoadIdentityFile_Errors(t *testing.T) {
	t.Parallel()

	if _, err := LoadIdentityFile(filepath.Join(t.TempDir(), "missing.key"), nil); err == nil {
		t.Error("LoadIdentityFile() expected error for missing file")
	}

	garbage := filepath.Join(t.TempDir(), "garbage.key")
	if err := os.WriteFile(garbage, []byte("not a key\n"), 0600); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadIdentityFile(garbage, nil); err == nil {
		t.Error("LoadIdentityFile() expected error for malformed identity")
	}
}

func TestAgeDecryptor_WrongIdentity(t *testing.T) {
	t.Parallel()
	sender, err := age.GenerateX25519Identity()
	if err != nil {
		t.Fatal(err)
	}
	other, err := age.GenerateX25519Identity()
	if err != nil {
		t.Fatal(err)
	}

	d := NewAgeDecryptor(other)
	if _, err := d.Decrypt(bytes.NewReader(encryptTo(t, sender.Recipient(), []byte("x")))); err == nil {
		t.Fatal("Decrypt() expected error for wrong identity")
	}
}

func TestNewDecryptorFromConfig(t *testing.T) {
	t.Parallel()

	if _, err := NewDecryptorFromConfig(config.EncryptionConfig{}, nil); !errors.Is(err, ErrNoIdentity) {
		t.Errorf("NewDecryptorFromConfig() error = %v, want ErrNoIdentity", err)
	}

	identity, err := age.GenerateX25519Identity()
	if err != nil {
		t.Fatal(err)
	}
	path := filepath.Join(t.TempDir(), "case.key")
	if err := os.WriteFile(path, []byte(identity.String()+"\n"), 0600); err != nil {
		t.Fatal(err)
	}
	if _, err := NewDecryptorFromConfig(config.EncryptionConfig{IdentityPath: path}, nil); err != nil {
		t.Errorf("NewDecryptorFromConfig() error = %v", err)
	}
}
