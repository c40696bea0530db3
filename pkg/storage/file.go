package storage

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/tidechat/tidechat-go/pkg/crypto/seal"
)

// fileVersion is the on-disk format version.
const fileVersion = 1

// FileStoreConfig configures a FileStore.
type FileStoreConfig struct {
	// Path is the credentials file location.
	Path string

	// Passphrase enables at-rest encryption when non-empty. The key is
	// derived with Argon2id; the salt is kept in the file header.
	Passphrase []byte

	// Algorithm overrides the hardware-selected AEAD. Optional.
	Algorithm seal.Algorithm
}

// fileEnvelope is the on-disk wrapper. For sealed files Payload is the
// base64 ciphertext of the JSON item map; for plain files Items is
// populated directly.
type fileEnvelope struct {
	Version   int               `json:"version"`
	Sealed    bool              `json:"sealed"`
	Algorithm string            `json:"algorithm,omitempty"`
	Salt      string            `json:"salt,omitempty"`
	Payload   string            `json:"payload,omitempty"`
	Items     map[string]string `json:"items,omitempty"`
}

// FileStore is a file-backed TokenStore. The whole file is rewritten
// atomically (temp file + rename) on every mutation.
type FileStore struct {
	mu     sync.Mutex
	path   string
	cfg    FileStoreConfig
	cipher *seal.Cipher
	salt   []byte
}

// NewFileStore creates a FileStore and loads or initializes the backing
// file. The parent directory is created with 0700 if missing.
func NewFileStore(cfg FileStoreConfig) (*FileStore, error) {
	if cfg.Path == "" {
		return nil, fmt.Errorf("storage: file store path is required")
	}
	if err := os.MkdirAll(filepath.Dir(cfg.Path), 0o700); err != nil {
		return nil, fmt.Errorf("storage: create dir: %w", err)
	}

	s := &FileStore{path: cfg.Path, cfg: cfg}

	if len(cfg.Passphrase) > 0 {
		// Reuse the salt from an existing sealed file so the same key is
		// derived across runs.
		env, err := s.readEnvelope()
		if err != nil {
			return nil, err
		}
		var salt []byte
		if env != nil && env.Salt != "" {
			salt, err = base64.StdEncoding.DecodeString(env.Salt)
			if err != nil {
				return nil, fmt.Errorf("storage: decode salt: %w", err)
			}
		}
		key, usedSalt, err := seal.DeriveKey(cfg.Passphrase, salt)
		if err != nil {
			return nil, err
		}
		s.salt = usedSalt

		if cfg.Algorithm != "" {
			s.cipher, err = seal.NewWithAlgorithm(key, cfg.Algorithm)
		} else {
			s.cipher, err = seal.New(key)
		}
		seal.Zero(key)
		if err != nil {
			return nil, err
		}
	}

	return s, nil
}

// Path returns the backing file path.
func (s *FileStore) Path() string {
	return s.path
}

// Store implements TokenStore.
func (s *FileStore) Store(ctx context.Context, key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.mutate(ctx, func(items map[string]string) {
		items[key] = value
	})
}

// Retrieve implements TokenStore.
func (s *FileStore) Retrieve(ctx context.Context, key string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return "", err
	}
	items, err := s.load()
	if err != nil {
		return "", err
	}
	v, ok := items[key]
	if !ok {
		return "", ErrNotFound
	}
	return v, nil
}

// Clear implements TokenStore.
func (s *FileStore) Clear(ctx context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.mutate(ctx, func(items map[string]string) {
		delete(items, key)
	})
}

// mutate loads the item map, applies fn, and writes the file back
// atomically.
func (s *FileStore) mutate(ctx context.Context, fn func(map[string]string)) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	items, err := s.load()
	if err != nil {
		return err
	}
	fn(items)
	return s.write(items)
}

// load reads and (if sealed) decrypts the item map. A missing file is an
// empty map.
func (s *FileStore) load() (map[string]string, error) {
	env, err := s.readEnvelope()
	if err != nil {
		return nil, err
	}
	if env == nil {
		return make(map[string]string), nil
	}

	if !env.Sealed {
		if env.Items == nil {
			return make(map[string]string), nil
		}
		return env.Items, nil
	}

	if s.cipher == nil {
		return nil, fmt.Errorf("storage: file is sealed but no passphrase configured")
	}
	ct, err := base64.StdEncoding.DecodeString(env.Payload)
	if err != nil {
		return nil, fmt.Errorf("storage: decode payload: %w", err)
	}
	plain, err := s.cipher.Decrypt(ct, []byte(s.path))
	if err != nil {
		return nil, fmt.Errorf("storage: unseal: %w", err)
	}

	items := make(map[string]string)
	if err := json.Unmarshal(plain, &items); err != nil {
		return nil, fmt.Errorf("storage: parse items: %w", err)
	}
	return items, nil
}

// write serializes the item map and replaces the file via rename.
func (s *FileStore) write(items map[string]string) error {
	env := fileEnvelope{Version: fileVersion}

	if s.cipher != nil {
		plain, err := json.Marshal(items)
		if err != nil {
			return fmt.Errorf("storage: marshal items: %w", err)
		}
		ct, err := s.cipher.Encrypt(plain, []byte(s.path))
		if err != nil {
			return fmt.Errorf("storage: seal: %w", err)
		}
		env.Sealed = true
		env.Algorithm = string(s.cipher.Algorithm())
		env.Salt = base64.StdEncoding.EncodeToString(s.salt)
		env.Payload = base64.StdEncoding.EncodeToString(ct)
	} else {
		env.Items = items
	}

	data, err := json.Marshal(&env)
	if err != nil {
		return fmt.Errorf("storage: marshal envelope: %w", err)
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return fmt.Errorf("storage: write temp file: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("storage: replace file: %w", err)
	}
	return nil
}

// readEnvelope reads the raw envelope, or nil when the file is absent.
func (s *FileStore) readEnvelope() (*fileEnvelope, error) {
	data, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("storage: read file: %w", err)
	}
	if len(data) == 0 {
		return nil, nil
	}

	var env fileEnvelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("storage: parse file: %w", err)
	}
	return &env, nil
}
