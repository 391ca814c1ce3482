package store

import (
	"context"
	"sync"

	"haulgate/internal/credential/models"
)

// Memory keeps the credential in process memory. Used by tests and by
// single-shot CLI runs that do not want a file on disk.
type Memory struct {
	mu   sync.RWMutex
	cred *models.AccessCredential
}

func NewMemory() *Memory {
	return &Memory{}
}

func (m *Memory) Load(_ context.Context) (*models.AccessCredential, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.cred == nil {
		return nil, ErrNotFound
	}
	cred := *m.cred
	return &cred, nil
}

func (m *Memory) Save(_ context.Context, cred models.AccessCredential) error {
	if err := validate(cred); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cred = &cred
	return nil
}

func (m *Memory) Health(_ context.Context) error {
	return nil
}
