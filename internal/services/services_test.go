package services

import (
	"context"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/charlesng35/catalog/internal/database/testutil"
	"github.com/charlesng35/catalog/internal/storage"
	"github.com/charlesng35/catalog/pkg/mail"
)

// recordingStore is an in-memory cache.Store that counts calls and can be told to fail.
type recordingStore struct {
	mu      sync.Mutex
	data    map[string][]byte
	gets    int
	sets    int
	deletes int

	failGet    bool
	failSet    bool
	failDelete bool
}

func newRecordingStore() *recordingStore {
	return &recordingStore{data: map[string][]byte{}}
}

func (s *recordingStore) Get(_ context.Context, key string) ([]byte, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.gets++
	if s.failGet {
		return nil, false, errors.New("cache unavailable")
	}
	v, ok := s.data[key]
	return v, ok, nil
}

func (s *recordingStore) Set(_ context.Context, key string, value []byte, _ time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sets++
	if s.failSet {
		return errors.New("cache unavailable")
	}
	s.data[key] = append([]byte(nil), value...)
	return nil
}

func (s *recordingStore) Delete(_ context.Context, keys ...string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.deletes++
	if s.failDelete {
		return errors.New("cache unavailable")
	}
	for _, key := range keys {
		delete(s.data, key)
	}
	return nil
}

func (s *recordingStore) has(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.data[key]
	return ok
}

func (s *recordingStore) setCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sets
}

type failingBlobs struct {
	deleted []string
}

func (f *failingBlobs) Put(context.Context, string, io.Reader, int64, string) (string, error) {
	return "", errors.New("bucket offline")
}

func (f *failingBlobs) Delete(_ context.Context, name string) error {
	f.deleted = append(f.deleted, name)
	return nil
}

// flakyBlobs delegates to next and fails the Put numbered failOn (1-based, 0 never fails).
type flakyBlobs struct {
	next    storage.Store
	failOn  int
	puts    int
	stored  []string
	deleted []string

	failDelete bool
}

func (f *flakyBlobs) Put(ctx context.Context, name string, body io.Reader, size int64, contentType string) (string, error) {
	f.puts++
	if f.puts == f.failOn {
		return "", errors.New("bucket offline")
	}
	url, err := f.next.Put(ctx, name, body, size, contentType)
	if err == nil {
		f.stored = append(f.stored, name)
	}
	return url, err
}

func (f *flakyBlobs) Delete(ctx context.Context, name string) error {
	f.deleted = append(f.deleted, name)
	if f.failDelete {
		return errors.New("bucket offline")
	}
	return f.next.Delete(ctx, name)
}

type capturingMailer struct {
	sent []mail.Message
	err  error
}

func (m *capturingMailer) Send(_ context.Context, msg mail.Message) error {
	if m.err != nil {
		return m.err
	}
	m.sent = append(m.sent, msg)
	return nil
}

type fixture struct {
	db          *gorm.DB
	store       *recordingStore
	collections *Collections
	blobs       *storage.LocalStore
	fs          afero.Fs
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	db := testutil.MustOpenTestDB(t, testutil.WithAutoMigrate())
	store := newRecordingStore()
	collections, err := NewCollections(store, CollectionConfig{
		CategoriesTTL: time.Hour,
		ProductsTTL:   time.Hour,
		UsersTTL:      time.Hour,
	})
	require.NoError(t, err)

	fs := afero.NewMemMapFs()
	return &fixture{
		db:          db,
		store:       store,
		collections: collections,
		blobs:       storage.NewLocalStoreWithFs(fs, storage.LocalConfig{BaseURL: "/uploads"}),
		fs:          fs,
	}
}

func pngUpload(name string) Upload {
	return Upload{Filename: name, ContentType: "image/png", Data: []byte("\x89PNG\r\n\x1a\nfake")}
}

func TestNewCollectionsRejectsUnknownCodec(t *testing.T) {
	_, err := NewCollections(newRecordingStore(), CollectionConfig{
		CategoriesTTL: time.Hour,
		ProductsTTL:   time.Hour,
		UsersTTL:      time.Hour,
		Codec:         "gob",
	})
	require.Error(t, err)
}

func TestNewCollectionsRejectsZeroTTL(t *testing.T) {
	_, err := NewCollections(newRecordingStore(), CollectionConfig{CategoriesTTL: time.Hour, ProductsTTL: time.Hour})
	require.Error(t, err)
}
