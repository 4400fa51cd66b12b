package services

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"

	"github.com/climajusto/iacolhe/internal/analyzer"
	"github.com/climajusto/iacolhe/internal/db"
	"github.com/climajusto/iacolhe/internal/models"
	"github.com/climajusto/iacolhe/internal/repository"
	"github.com/climajusto/iacolhe/internal/storage"
	"github.com/climajusto/iacolhe/internal/utils"

	"github.com/stretchr/testify/require"
)

type repos struct {
	benefits    repository.BenefitRepository
	transcripts repository.TranscriptRepository
	documents   repository.DocumentRepository
	roles       repository.RoleRepository
}

func newRepos(t *testing.T) repos {
	t.Helper()
	database, err := db.Open(filepath.Join(t.TempDir(), "services.db"))
	require.NoError(t, err)
	t.Cleanup(func() { database.Close() })

	return repos{
		benefits:    repository.NewBenefitRepository(database),
		transcripts: repository.NewTranscriptRepository(database),
		documents:   repository.NewDocumentRepository(database),
		roles:       repository.NewRoleRepository(database),
	}
}

// fakeCompleter records every outgoing message sequence and answers from a script.
type fakeCompleter struct {
	mu    sync.Mutex
	calls [][]analyzer.Message
	reply func(call int, msgs []analyzer.Message) (string, error)
}

func (f *fakeCompleter) Complete(ctx context.Context, msgs []analyzer.Message) (string, error) {
	f.mu.Lock()
	f.calls = append(f.calls, msgs)
	n := len(f.calls)
	f.mu.Unlock()
	return f.reply(n, msgs)
}

func (f *fakeCompleter) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

type fakeChatRelay struct {
	mu    sync.Mutex
	calls [][]models.Message
	reply func(msgs []models.Message) (string, error)
}

func (f *fakeChatRelay) Chat(ctx context.Context, msgs []models.Message) (string, error) {
	f.mu.Lock()
	f.calls = append(f.calls, append([]models.Message(nil), msgs...))
	f.mu.Unlock()
	return f.reply(msgs)
}

func (f *fakeChatRelay) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

type fakeExtractionRelay struct {
	mu    sync.Mutex
	calls []models.ExtractionRelayRequest
	reply func(req *models.ExtractionRelayRequest) (*models.ExtractionRelayResponse, error)
}

func (f *fakeExtractionRelay) ExtractDocument(ctx context.Context, req *models.ExtractionRelayRequest) (*models.ExtractionRelayResponse, error) {
	f.mu.Lock()
	f.calls = append(f.calls, *req)
	f.mu.Unlock()
	return f.reply(req)
}

func (f *fakeExtractionRelay) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

// memStorage is an in-memory object store.
type memStorage struct {
	mu      sync.Mutex
	objects map[string]storage.Object
}

func newMemStorage() *memStorage {
	return &memStorage{objects: make(map[string]storage.Object)}
}

func (m *memStorage) Put(ctx context.Context, obj storage.Object) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	obj.Data = append([]byte(nil), obj.Data...)
	m.objects[obj.Key] = obj
	return nil
}

func (m *memStorage) Get(ctx context.Context, key string) (*storage.Object, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	obj, ok := m.objects[key]
	if !ok {
		return nil, errors.New("no such object")
	}
	return &obj, nil
}

func (m *memStorage) Remove(ctx context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.objects, key)
	return nil
}

func (m *memStorage) len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.objects)
}

func requireAppError(t *testing.T, err error, status int) *utils.AppError {
	t.Helper()
	require.Error(t, err)
	appErr, ok := utils.AsAppError(err)
	require.True(t, ok, "expected *AppError, got %T", err)
	require.Equal(t, status, appErr.StatusCode)
	return appErr
}
