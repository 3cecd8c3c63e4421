// Package keyfile persists the secret that seals session cookies. The file is
// written atomically with owner-only permissions so a restart keeps existing
// sessions readable.
package keyfile

import (
	"crypto/rand"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"
)

// FilePerms restricts key files to owner-only read/write.
const FilePerms = 0o600

// DirPerms is used when creating the key directory.
const DirPerms = 0o700

// SecretSize is the length in bytes of a generated secret.
const SecretSize = 32

// ErrShortSecret is returned when a key file holds fewer than SecretSize bytes.
var ErrShortSecret = errors.New("keyfile: secret too short")

// File is the on-disk format. Secret is base64 encoded by encoding/json.
type File struct {
	Secret    []byte    `json:"secret"`
	CreatedAt time.Time `json:"created_at"`
}

// Load reads a key file. Returns (nil, nil) if the file does not exist.
func Load(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}

	if err != nil {
		return nil, fmt.Errorf("keyfile: reading %s: %w", path, err)
	}

	var kf File
	if err := json.Unmarshal(data, &kf); err != nil {
		return nil, fmt.Errorf("keyfile: decoding %s: %w", path, err)
	}

	if len(kf.Secret) < SecretSize {
		return nil, fmt.Errorf("%w: %s holds %d bytes, need %d", ErrShortSecret, path, len(kf.Secret), SecretSize)
	}

	return kf.Secret, nil
}

// Save writes a key file to disk atomically (write-to-temp + rename)
// with 0600 permissions. Never logs the secret.
func Save(path string, secret []byte) error {
	if len(secret) < SecretSize {
		return fmt.Errorf("%w: got %d bytes, need %d", ErrShortSecret, len(secret), SecretSize)
	}

	data, err := json.MarshalIndent(File{Secret: secret, CreatedAt: time.Now().UTC()}, "", "  ")
	if err != nil {
		return fmt.Errorf("keyfile: encoding: %w", err)
	}

	dir := filepath.Dir(path)
	if mkErr := os.MkdirAll(dir, DirPerms); mkErr != nil {
		return fmt.Errorf("keyfile: creating directory %s: %w", dir, mkErr)
	}

	// Same directory guarantees same filesystem for rename(2).
	tmp, err := os.CreateTemp(dir, ".key-*.tmp")
	if err != nil {
		return fmt.Errorf("keyfile: creating temp file: %w", err)
	}

	tmpPath := tmp.Name()

	success := false
	defer func() {
		if !success {
			_ = os.Remove(tmpPath)
		}
	}()

	if err := os.Chmod(tmpPath, FilePerms); err != nil {
		tmp.Close()
		return fmt.Errorf("keyfile: setting permissions: %w", err)
	}

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("keyfile: writing: %w", err)
	}

	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("keyfile: syncing: %w", err)
	}

	if err := tmp.Close(); err != nil {
		return fmt.Errorf("keyfile: closing: %w", err)
	}

	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("keyfile: renaming: %w", err)
	}

	success = true

	return nil
}

// LoadOrCreate returns the secret stored at path, generating and saving a
// fresh random one when the file does not exist. created reports whether a
// new secret was written.
func LoadOrCreate(path string) (secret []byte, created bool, err error) {
	secret, err = Load(path)
	if err != nil {
		return nil, false, err
	}

	if secret != nil {
		return secret, false, nil
	}

	secret = make([]byte, SecretSize)
	if _, err := rand.Read(secret); err != nil {
		return nil, false, fmt.Errorf("keyfile: generating secret: %w", err)
	}

	if err := Save(path, secret); err != nil {
		return nil, false, err
	}

	return secret, true, nil
}
