package store

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"

	"haulgate/internal/credential/models"
)

// DefaultFilePath is used when no path is configured.
const DefaultFilePath = "token_data.json"

// legacyExpiresLayout is the GMT timestamp layout of the token endpoint's
// ".expires" field.
const legacyExpiresLayout = time.RFC1123

// File persists the credential as one JSON document on disk. Writes go to a
// temporary file in the same directory followed by a rename, so readers see
// either the previous record or the new one and never a partial write.
type File struct {
	path string
	mu   sync.Mutex
}

// NewFile returns a file-backed store. The file need not exist yet.
func NewFile(path string) (*File, error) {
	if path == "" {
		path = DefaultFilePath
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolve credential file path: %w", err)
	}
	return &File{path: abs}, nil
}

// Path returns the absolute location of the credential file.
func (f *File) Path() string { return f.path }

// Load reads the stored credential.
//
// Errors: ErrNotFound when the file does not exist, ErrCorrupt (wrapped) when
// it cannot be decoded.
func (f *File) Load(_ context.Context) (*models.AccessCredential, error) {
	data, err := os.ReadFile(f.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("read credential file: %w", err)
	}
	return decodeFile(data)
}

func decodeFile(data []byte) (*models.AccessCredential, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: empty file", ErrCorrupt)
	}
	if data[0] == '"' {
		return decodeLegacy(data)
	}
	var doc document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorrupt, err)
	}
	return doc.credential()
}

// legacyTokenResponse is the raw token endpoint body that older deployments
// stored as a JSON-encoded string.
type legacyTokenResponse struct {
	AccessToken string `json:"access_token"`
	Issued      string `json:".issued"`
	Expires     string `json:".expires"`
}

// decodeLegacy reads a token file written by the previous tooling, which
// stored the token endpoint response text as a JSON string.
func decodeLegacy(data []byte) (*models.AccessCredential, error) {
	var inner string
	if err := json.Unmarshal(data, &inner); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorrupt, err)
	}
	var resp legacyTokenResponse
	if err := json.Unmarshal([]byte(inner), &resp); err != nil {
		return nil, fmt.Errorf("%w: legacy payload: %v", ErrCorrupt, err)
	}
	expires, err := time.Parse(legacyExpiresLayout, resp.Expires)
	if err != nil {
		return nil, fmt.Errorf("%w: legacy expiry: %v", ErrCorrupt, err)
	}
	issued, _ := time.Parse(legacyExpiresLayout, resp.Issued)
	return document{
		AccessToken: resp.AccessToken,
		ExpiresAt:   expires.UTC(),
		ObtainedAt:  issued.UTC(),
	}.credential()
}

// Save replaces the stored credential atomically.
func (f *File) Save(_ context.Context, cred models.AccessCredential) (err error) {
	if err := validate(cred); err != nil {
		return err
	}
	payload, err := json.MarshalIndent(toDocument(cred), "", "    ")
	if err != nil {
		return fmt.Errorf("encode credential: %w", err)
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	dir := filepath.Dir(f.path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("create credential directory: %w", err)
	}
	tmp, err := os.CreateTemp(dir, ".credential-*.tmp")
	if err != nil {
		return fmt.Errorf("create temp credential file: %w", err)
	}
	defer func() {
		if err != nil {
			_ = os.Remove(tmp.Name())
		}
	}()

	if _, err = tmp.Write(payload); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("write credential file: %w", err)
	}
	if err = tmp.Sync(); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("sync credential file: %w", err)
	}
	if err = tmp.Close(); err != nil {
		return fmt.Errorf("close credential file: %w", err)
	}
	if err = os.Rename(tmp.Name(), f.path); err != nil {
		return fmt.Errorf("replace credential file: %w", err)
	}
	return nil
}

// Health verifies the credential directory exists.
func (f *File) Health(_ context.Context) error {
	info, err := os.Stat(filepath.Dir(f.path))
	if err != nil {
		return fmt.Errorf("credential directory: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("credential directory %s is not a directory", filepath.Dir(f.path))
	}
	return nil
}
