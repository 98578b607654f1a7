// Package source resolves input names to body-file streams. Inputs may be
// local files, directories, standard input, or s3:// objects and prefixes.
// Any input whose name ends in ".age" is decrypted on the fly.
package source

import (
	"context"
	"io"
	"strings"
)

// AgeSuffix marks inputs that are age-encrypted.
const AgeSuffix = ".age"

// Opener opens a named input for reading.
type Opener interface {
	Open(ctx context.Context, name string) (io.ReadCloser, error)
}

// Expander lists the concrete inputs named by a file, directory, or prefix.
type Expander interface {
	Expand(ctx context.Context, name string, exclude *ExcludeMatcher) ([]string, error)
}

// Decryptor turns a ciphertext stream into plaintext.
type Decryptor interface {
	Decrypt(r io.Reader) (io.Reader, error)
}

// IsEncrypted reports whether name should be decrypted before parsing.
func IsEncrypted(name string) bool {
	return strings.HasSuffix(name, AgeSuffix)
}
