package state

import (
	"bytes"
	"encoding/json"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/securevibes/authgate/internal/domain/session"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

func newTestStorage(t *testing.T) (*FileStorage, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "session.json")
	return NewFileStorage(path, testLogger()), path
}

// ---------------------------------------------------------------------------
// Load tests
// ---------------------------------------------------------------------------

func TestLoad_NoFile_ReturnsNotFound(t *testing.T) {
	s, _ := newTestStorage(t)

	_, err := s.Load("auth")
	if !errors.Is(err, session.ErrNotFound) {
		t.Fatalf("Load() error = %v, want ErrNotFound", err)
	}
	if s.Exists() {
		t.Error("Load() must not create the file")
	}
}

func TestLoad_MissingKey_ReturnsNotFound(t *testing.T) {
	s, _ := newTestStorage(t)
	if err := s.Save("other", []byte("x")); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	if _, err := s.Load("auth"); !errors.Is(err, session.ErrNotFound) {
		t.Fatalf("Load() error = %v, want ErrNotFound", err)
	}
}

func TestLoad_CorruptFile_ReturnsError(t *testing.T) {
	s, path := newTestStorage(t)

	if err := os.WriteFile(path, []byte("{invalid json"), 0600); err != nil {
		t.Fatalf("failed to write corrupt file: %v", err)
	}

	_, err := s.Load("auth")
	if err == nil {
		t.Fatal("expected error for corrupt JSON, got nil")
	}
	if errors.Is(err, session.ErrNotFound) {
		t.Error("corrupt file must not be reported as not found")
	}
}

// ---------------------------------------------------------------------------
// Save tests
// ---------------------------------------------------------------------------

func TestSave_RoundTrip(t *testing.T) {
	s, _ := newTestStorage(t)
	record := []byte(`{"token":"tok1","user":{"id":"1","username":"alice","email":"a@x.com","role":"admin"},"isAuthenticated":true}`)

	if err := s.Save("auth", record); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	// A second instance over the same path sees the record.
	reopened := NewFileStorage(s.Path(), testLogger())
	got, err := reopened.Load("auth")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if !bytes.Equal(got, record) {
		t.Errorf("Load() = %s, want %s", got, record)
	}
}

func TestSave_WritesVersionedDocument(t *testing.T) {
	s, path := newTestStorage(t)
	if err := s.Save("auth", []byte("v")); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("failed to read saved file: %v", err)
	}
	var doc document
	if err := json.Unmarshal(data, &doc); err != nil {
		t.Fatalf("failed to unmarshal saved file: %v", err)
	}
	if doc.Version != "1" {
		t.Errorf("Version = %q, want 1", doc.Version)
	}
	if doc.Records["auth"] != "v" {
		t.Errorf("Records[auth] = %q, want v", doc.Records["auth"])
	}
	if doc.UpdatedAt.IsZero() {
		t.Error("expected UpdatedAt to be set after Save")
	}
}

func TestSave_CreatesParentDirectory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "dir", "session.json")
	s := NewFileStorage(path, testLogger())

	if err := s.Save("auth", []byte("v")); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	if !s.Exists() {
		t.Error("expected storage file to exist")
	}
}

func TestSave_SetsFilePermissions0600(t *testing.T) {
	s, path := newTestStorage(t)
	if err := s.Save("auth", []byte("v")); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("failed to stat file: %v", err)
	}
	if perm := info.Mode().Perm(); perm != 0600 {
		t.Errorf("expected permissions 0600, got %04o", perm)
	}
}

func TestSave_ExplicitChmod0600(t *testing.T) {
	s, path := newTestStorage(t)
	if err := s.Save("auth", []byte("v1")); err != nil {
		t.Fatalf("Save() error: %v", err)
	}
	if err := os.Chmod(path, 0644); err != nil {
		t.Fatalf("chmod: %v", err)
	}
	if err := s.Save("auth", []byte("v2")); err != nil {
		t.Fatalf("Save() error: %v", err)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("stat: %v", err)
	}
	if perm := info.Mode().Perm(); perm != 0600 {
		t.Errorf("expected 0600 after save, got %04o", perm)
	}
}

func TestSave_CreatesBackup(t *testing.T) {
	s, path := newTestStorage(t)

	if err := s.Save("auth", []byte("original")); err != nil {
		t.Fatalf("first Save() failed: %v", err)
	}
	if err := s.Save("auth", []byte("updated")); err != nil {
		t.Fatalf("second Save() failed: %v", err)
	}

	data, err := os.ReadFile(path + ".bak")
	if err != nil {
		t.Fatalf("failed to read backup file: %v", err)
	}
	var backup document
	if err := json.Unmarshal(data, &backup); err != nil {
		t.Fatalf("failed to unmarshal backup: %v", err)
	}
	if backup.Records["auth"] != "original" {
		t.Errorf("expected backup to contain 'original', got %q", backup.Records["auth"])
	}

	got, err := s.Load("auth")
	if err != nil || string(got) != "updated" {
		t.Errorf("Load() = %q, %v; want updated", got, err)
	}
}

func TestSave_AtomicWrite_NoTmpFileLeftBehind(t *testing.T) {
	s, path := newTestStorage(t)
	if err := s.Save("auth", []byte("v")); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	if _, err := os.Stat(path + ".tmp"); !os.IsNotExist(err) {
		t.Error("temp file should not exist after successful save")
	}
}

func TestSave_ReplacesCorruptFile(t *testing.T) {
	s, path := newTestStorage(t)
	if err := os.WriteFile(path, []byte("garbage"), 0600); err != nil {
		t.Fatal(err)
	}

	if err := s.Save("auth", []byte("v")); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	got, err := s.Load("auth")
	if err != nil || string(got) != "v" {
		t.Errorf("Load() = %q, %v; want v", got, err)
	}
}

func TestSave_ConcurrentWriters(t *testing.T) {
	s, _ := newTestStorage(t)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			key := "k" + string(rune('a'+i))
			if err := s.Save(key, []byte(key)); err != nil {
				t.Errorf("Save(%s) error = %v", key, err)
			}
		}(i)
	}
	wg.Wait()

	for i := 0; i < 20; i++ {
		key := "k" + string(rune('a'+i))
		if got, err := s.Load(key); err != nil || string(got) != key {
			t.Errorf("Load(%s) = %q, %v", key, got, err)
		}
	}
}

// ---------------------------------------------------------------------------
// Delete tests
// ---------------------------------------------------------------------------

func TestDelete_Idempotent(t *testing.T) {
	s, _ := newTestStorage(t)
	if err := s.Save("auth", []byte("v")); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	if err := s.Delete("auth"); err != nil {
		t.Fatalf("first Delete() error = %v", err)
	}
	if err := s.Delete("auth"); err != nil {
		t.Fatalf("second Delete() error = %v", err)
	}
	if _, err := s.Load("auth"); !errors.Is(err, session.ErrNotFound) {
		t.Errorf("Load() after Delete error = %v, want ErrNotFound", err)
	}
}

func TestDelete_NoFile(t *testing.T) {
	s, _ := newTestStorage(t)
	if err := s.Delete("auth"); err != nil {
		t.Errorf("Delete() on missing file error = %v", err)
	}
}

func TestDelete_LastRecordRemovesFileAndBackup(t *testing.T) {
	s, path := newTestStorage(t)
	_ = s.Save("auth", []byte("v1"))
	_ = s.Save("auth", []byte("v2"))

	if err := s.Delete("auth"); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if s.Exists() {
		t.Error("storage file should be removed with its last record")
	}
	if _, err := os.Stat(path + ".bak"); !os.IsNotExist(err) {
		t.Error("backup must not outlive the deleted record")
	}
}

func TestDelete_KeepsOtherRecords(t *testing.T) {
	s, path := newTestStorage(t)
	_ = s.Save("auth", []byte("secret"))
	_ = s.Save("prefs", []byte("dark"))

	if err := s.Delete("auth"); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	got, err := s.Load("prefs")
	if err != nil || string(got) != "dark" {
		t.Errorf("Load(prefs) = %q, %v; want dark", got, err)
	}
	if data, _ := os.ReadFile(path + ".bak"); bytes.Contains(data, []byte("secret")) {
		t.Error("backup still contains the deleted record")
	}
}

// ---------------------------------------------------------------------------
// Permission tests
// ---------------------------------------------------------------------------

func TestLoad_TooOpenPermissions_WarnsButSucceeds(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "session.json")

	data := []byte(`{"version":"1","records":{"auth":"v"}}`)
	if err := os.WriteFile(path, data, 0644); err != nil {
		t.Fatalf("failed to write test file: %v", err)
	}

	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelWarn}))
	s := NewFileStorage(path, logger)

	got, err := s.Load("auth")
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if string(got) != "v" {
		t.Errorf("Load() = %q, want v", got)
	}

	if !strings.Contains(buf.String(), "too-open permissions") {
		t.Errorf("expected warning about too-open permissions, got log output: %q", buf.String())
	}
}

func TestLoad_CorrectPermissions_NoWarning(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "session.json")

	data := []byte(`{"version":"1","records":{"auth":"v"}}`)
	if err := os.WriteFile(path, data, 0600); err != nil {
		t.Fatalf("failed to write test file: %v", err)
	}

	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelWarn}))
	s := NewFileStorage(path, logger)

	if _, err := s.Load("auth"); err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if strings.Contains(buf.String(), "too-open permissions") {
		t.Errorf("unexpected warning for correctly permissioned file, got: %q", buf.String())
	}
}

// ---------------------------------------------------------------------------
// Session store integration
// ---------------------------------------------------------------------------

func TestFileStorage_SessionReload(t *testing.T) {
	s, _ := newTestStorage(t)

	first := session.NewStore(s, session.WithLogger(testLogger()))
	first.Initialize()
	if err := first.Login("tok1", session.User{ID: "1", Username: "alice", Email: "a@x.com", Role: "admin"}); err != nil {
		t.Fatalf("Login() error = %v", err)
	}

	second := session.NewStore(NewFileStorage(s.Path(), testLogger()), session.WithLogger(testLogger()))
	second.Initialize()
	got := second.Current()
	if !got.IsAuthenticated || got.Token != "tok1" || got.User.Username != "alice" {
		t.Errorf("reloaded session = %+v", got)
	}

	second.Logout()
	if s.Exists() {
		t.Error("storage file should be gone after logout")
	}
}
