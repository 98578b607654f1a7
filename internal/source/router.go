package source

import (
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/spf13/afero"

	"datatime/internal/config"
)

// Router dispatches input names to the file or S3 opener and decrypts .age
// inputs. The S3 client and the decryptor are built on first use so that
// plain local runs never touch AWS credentials or prompt for a passphrase.
type Router struct {
	files   *FileOpener
	exclude *ExcludeMatcher

	newS3     func(context.Context) (*S3Opener, error)
	s3Once    sync.Once
	s3        *S3Opener
	s3Err     error
	newDec    func() (Decryptor, error)
	decOnce   sync.Once
	decryptor Decryptor
	decErr    error
}

var _ Opener = (*Router)(nil)

// RouterOption configures a Router.
type RouterOption func(*Router)

// WithS3 sets the constructor used for s3:// inputs.
func WithS3(newS3 func(context.Context) (*S3Opener, error)) RouterOption {
	return func(r *Router) { r.newS3 = newS3 }
}

// WithDecryptor sets the constructor used for .age inputs.
func WithDecryptor(newDec func() (Decryptor, error)) RouterOption {
	return func(r *Router) { r.newDec = newDec }
}

// WithExclude sets the patterns skipped while expanding directories and
// prefixes.
func WithExclude(m *ExcludeMatcher) RouterOption {
	return func(r *Router) { r.exclude = m }
}

// NewRouter creates a Router reading local inputs through files.
func NewRouter(files *FileOpener, opts ...RouterOption) *Router {
	r := &Router{files: files}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// NewOpenerFromConfig creates a Router on the operating system filesystem.
// decrypt is called at most once, the first time an encrypted input is opened.
func NewOpenerFromConfig(cfg *config.Config, stdin io.Reader, decrypt func() (Decryptor, error)) *Router {
	s3cfg := cfg.S3
	return NewRouter(
		NewFileOpener(afero.NewOsFs(), stdin),
		WithExclude(NewExcludeMatcher(cfg.Input.Exclude)),
		WithS3(func(ctx context.Context) (*S3Opener, error) {
			return NewS3OpenerFromConfig(ctx, s3cfg)
		}),
		WithDecryptor(decrypt),
	)
}

// Expand resolves every name to the list of concrete inputs it covers,
// preserving the order of names.
func (r *Router) Expand(ctx context.Context, names []string) ([]string, error) {
	if len(names) == 0 {
		names = []string{Stdin}
	}

	var out []string
	for _, name := range names {
		var expanded []string
		var err error
		if IsS3(name) {
			s3, serr := r.s3Opener(ctx)
			if serr != nil {
				return nil, serr
			}
			expanded, err = s3.Expand(ctx, name, r.exclude)
		} else {
			expanded, err = r.files.Expand(ctx, name, r.exclude)
		}
		if err != nil {
			return nil, err
		}
		out = append(out, expanded...)
	}
	return out, nil
}

// Open opens name, decrypting it when it carries the .age suffix.
func (r *Router) Open(ctx context.Context, name string) (io.ReadCloser, error) {
	var rc io.ReadCloser
	var err error
	if IsS3(name) {
		s3, serr := r.s3Opener(ctx)
		if serr != nil {
			return nil, serr
		}
		rc, err = s3.Open(ctx, name)
	} else {
		rc, err = r.files.Open(ctx, name)
	}
	if err != nil {
		return nil, err
	}

	if !IsEncrypted(name) {
		return rc, nil
	}

	dec, err := r.decryptorOnce()
	if err != nil {
		rc.Close()
		return nil, err
	}
	plain, err := dec.Decrypt(rc)
	if err != nil {
		rc.Close()
		return nil, fmt.Errorf("decrypting %s: %w", name, err)
	}
	return &decryptedReader{Reader: plain, closer: rc}, nil
}

func (r *Router) s3Opener(ctx context.Context) (*S3Opener, error) {
	r.s3Once.Do(func() {
		if r.newS3 == nil {
			r.s3Err = fmt.Errorf("s3 inputs are not supported by this opener")
			return
		}
		r.s3, r.s3Err = r.newS3(ctx)
	})
	return r.s3, r.s3Err
}

func (r *Router) decryptorOnce() (Decryptor, error) {
	r.decOnce.Do(func() {
		if r.newDec == nil {
			r.decErr = fmt.Errorf("encrypted inputs are not supported by this opener")
			return
		}
		r.decryptor, r.decErr = r.newDec()
	})
	return r.decryptor, r.decErr
}

// decryptedReader reads plaintext and closes the underlying ciphertext stream.
type decryptedReader struct {
	io.Reader
	closer io.Closer
}

func (d *decryptedReader) Close() error {
	return d.closer.Close()
}
