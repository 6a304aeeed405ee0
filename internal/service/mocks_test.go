package service

import (
	"bytes"
	"context"
	"io"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/dtroode/flashcards-server/internal/model"
	"github.com/dtroode/flashcards-server/internal/testutil"
)

// MockUserStore mocks the UserStore interface
type MockUserStore struct {
	mock.Mock
}

func (m *MockUserStore) GetByUsername(ctx context.Context, username string) (model.User, error) {
	args := m.Called(ctx, username)
	return args.Get(0).(model.User), args.Error(1)
}

func (m *MockUserStore) GetByName(ctx context.Context, name string) ([]model.User, error) {
	args := m.Called(ctx, name)
	return args.Get(0).([]model.User), args.Error(1)
}

func (m *MockUserStore) Create(ctx context.Context, user model.User) (model.User, error) {
	args := m.Called(ctx, user)
	return args.Get(0).(model.User), args.Error(1)
}

func (m *MockUserStore) UpdatePassword(ctx context.Context, username string, passwordHash string) error {
	args := m.Called(ctx, username, passwordHash)
	return args.Error(0)
}

func (m *MockUserStore) Delete(ctx context.Context, username string) error {
	args := m.Called(ctx, username)
	return args.Error(0)
}

// MockTokenManager mocks the TokenManager interface
type MockTokenManager struct {
	mock.Mock
}

func (m *MockTokenManager) GenerateAccessToken(username string) (string, error) {
	args := m.Called(username)
	return args.String(0), args.Error(1)
}

func (m *MockTokenManager) ParseAccessToken(token string) (string, error) {
	args := m.Called(token)
	return args.String(0), args.Error(1)
}

// MockDocumentStore mocks the DocumentStore interface
type MockDocumentStore struct {
	mock.Mock
}

func (m *MockDocumentStore) Load(ctx context.Context, username string) (model.Document, error) {
	args := m.Called(ctx, username)
	return args.Get(0).(model.Document), args.Error(1)
}

func (m *MockDocumentStore) Save(ctx context.Context, username string, doc model.Document) error {
	args := m.Called(ctx, username, doc)
	return args.Error(0)
}

func (m *MockDocumentStore) Delete(ctx context.Context, username string) error {
	args := m.Called(ctx, username)
	return args.Error(0)
}

// memDocuments keeps documents in memory, round-tripping them through JSON
// like the real stores do.
type memDocuments struct {
	mu    sync.Mutex
	docs  map[string][]byte
	saves int
}

func newMemDocuments() *memDocuments {
	return &memDocuments{docs: make(map[string][]byte)}
}

func (m *memDocuments) Load(_ context.Context, username string) (model.Document, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	data, ok := m.docs[username]
	if !ok {
		return model.Document{}, model.ErrNotFound
	}
	var doc model.Document
	if err := doc.UnmarshalJSON(data); err != nil {
		return model.Document{}, model.ErrCorruptDocument
	}
	return doc, nil
}

func (m *memDocuments) Save(_ context.Context, username string, doc model.Document) error {
	data, err := doc.MarshalJSON()
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.docs[username] = data
	m.saves++
	return nil
}

func (m *memDocuments) Delete(_ context.Context, username string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.docs, username)
	return nil
}

// memStorage is an in-memory model.Storage.
type memStorage struct {
	mu        sync.Mutex
	objects   map[string][]byte
	modified  map[string]time.Time
	uploadErr error
}

func newMemStorage() *memStorage {
	return &memStorage{objects: make(map[string][]byte), modified: make(map[string]time.Time)}
}

func (s *memStorage) put(key, content string, at time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.objects[key] = []byte(content)
	s.modified[key] = at
}

func (s *memStorage) content(key string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	data, ok := s.objects[key]
	return string(data), ok
}

func (s *memStorage) keys() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	keys := make([]string, 0, len(s.objects))
	for k := range s.objects {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func (s *memStorage) Upload(_ context.Context, key string, reader io.Reader) error {
	if s.uploadErr != nil {
		return s.uploadErr
	}
	data, err := io.ReadAll(reader)
	if err != nil {
		return err
	}
	s.put(key, string(data), time.Now())
	return nil
}

func (s *memStorage) Download(_ context.Context, key string) (io.ReadCloser, error) {
	data, ok := s.content(key)
	if !ok {
		return nil, model.ErrNotFound
	}
	return io.NopCloser(bytes.NewReader([]byte(data))), nil
}

func (s *memStorage) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.objects, key)
	delete(s.modified, key)
	return nil
}

func (s *memStorage) Exists(_ context.Context, key string) (bool, error) {
	_, ok := s.content(key)
	return ok, nil
}

func (s *memStorage) List(_ context.Context, prefix string) ([]model.ObjectInfo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []model.ObjectInfo
	for k, v := range s.objects {
		if strings.HasPrefix(k, prefix) {
			out = append(out, model.ObjectInfo{Key: k, Size: int64(len(v)), LastModified: s.modified[k]})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out, nil
}

var testDomains = []string{"DB", "보안"}

// seed stores doc for username.
func seed(t *testing.T, store *memDocuments, username string, doc model.Document) {
	t.Helper()
	require.NoError(t, store.Save(context.Background(), username, doc))
}

func newTestDocuments(store model.DocumentStore) *Documents {
	return NewDocuments(store, testDomains, testutil.MakeNoopLogger())
}

func fixedClock() time.Time {
	return time.Date(2024, 3, 1, 9, 30, 0, 0, time.UTC)
}
