package state

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"sync"
	"time"

	"github.com/securevibes/authgate/internal/domain/session"
)

// FileStorage implements session.Storage on top of a single JSON file.
// It provides atomic writes (write-tmp-then-rename), a backup of the previous
// file on save, file locking (flock for cross-process, mutex for in-process),
// and 0600 permissions.
type FileStorage struct {
	path   string
	mu     sync.Mutex
	logger *slog.Logger
}

// Compile-time check that FileStorage implements session.Storage.
var _ session.Storage = (*FileStorage)(nil)

// NewFileStorage creates a FileStorage for the given file path.
func NewFileStorage(path string, logger *slog.Logger) *FileStorage {
	if logger == nil {
		logger = slog.Default()
	}
	return &FileStorage{
		path:   path,
		logger: logger,
	}
}

// Load returns the record stored under key.
// Returns session.ErrNotFound if the file or the record does not exist, and
// an error if the file cannot be read or parsed.
// Warns if the file has permissions more open than 0600.
func (s *FileStorage) Load(key string) ([]byte, error) {
	doc, err := s.read()
	if err != nil {
		return nil, err
	}
	if doc == nil {
		return nil, session.ErrNotFound
	}
	value, ok := doc.Records[key]
	if !ok {
		return nil, session.ErrNotFound
	}
	return []byte(value), nil
}

// Save stores data under key.
//
// The write sequence is:
//  1. Acquire in-process mutex
//  2. Acquire flock on path+".lock"
//  3. Copy current file to path+".bak" (ignored if no current file)
//  4. Marshal the document as indented JSON
//  5. Write to path+".tmp" with 0600 permissions
//  6. Fsync the temp file
//  7. Rename path+".tmp" -> path
//  8. Release flock
//  9. Release mutex
func (s *FileStorage) Save(key string, data []byte) error {
	return s.update(func(doc *document) bool {
		doc.Records[key] = string(data)
		return true
	}, true)
}

// Delete removes the record under key. Deleting an absent record, or
// deleting from a file that does not exist, is not an error. When the last
// record is removed the file itself is removed.
//
// The backup file is removed as well so no copy of the deleted record
// survives on disk.
func (s *FileStorage) Delete(key string) error {
	return s.update(func(doc *document) bool {
		if _, ok := doc.Records[key]; !ok {
			return false
		}
		delete(doc.Records, key)
		return true
	}, false)
}

// update applies fn to the current document under both locks and writes the
// result if fn reports a change.
func (s *FileStorage) update(fn func(doc *document) bool, backup bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(s.path), 0700); err != nil {
		return fmt.Errorf("create storage directory: %w", err)
	}

	// Acquire cross-process file lock.
	lockPath := s.path + ".lock"
	lockFile, err := os.OpenFile(lockPath, os.O_CREATE|os.O_RDWR, 0600)
	if err != nil {
		return fmt.Errorf("open lock file: %w", err)
	}
	defer func() { _ = lockFile.Close() }()

	if err := lockFD(lockFile.Fd()); err != nil {
		return fmt.Errorf("acquire file lock: %w", err)
	}
	defer unlockFD(lockFile.Fd()) //nolint:errcheck

	doc, err := s.read()
	if err != nil {
		// A corrupt file is replaced rather than blocking every write.
		s.logger.Warn("replacing unreadable storage file", "path", s.path, "error", err)
		doc = nil
	}
	if doc == nil {
		doc = newDocument()
	}

	if !fn(doc) {
		return nil
	}

	if len(doc.Records) == 0 {
		return s.removeAll()
	}

	if backup {
		if currentData, readErr := os.ReadFile(s.path); readErr == nil {
			if writeErr := os.WriteFile(s.path+".bak", currentData, 0600); writeErr != nil {
				s.logger.Warn("failed to create backup", "error", writeErr)
			}
		}
	} else {
		s.removeBackup()
	}

	doc.Version = documentVersion
	doc.UpdatedAt = time.Now().UTC()
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal storage document: %w", err)
	}
	data = append(data, '\n')

	// Atomic write: tmp -> fsync -> rename.
	if err := s.writeAtomic(data); err != nil {
		return err
	}

	// Explicitly ensure 0600 permissions after rename as a safety net.
	if err := os.Chmod(s.path, 0600); err != nil {
		s.logger.Warn("failed to set permissions on storage file", "error", err)
	}

	s.logger.Debug("storage saved", "path", s.path, "records", len(doc.Records))
	return nil
}

// read parses the storage file. It returns (nil, nil) if the file does not
// exist.
func (s *FileStorage) read() (*document, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("read storage file: %w", err)
	}

	// Skip on Windows where Unix file permission bits are not supported.
	if runtime.GOOS != "windows" {
		if info, statErr := os.Stat(s.path); statErr == nil {
			mode := info.Mode().Perm()
			if mode&0077 != 0 { // group or other has access
				s.logger.Warn("session storage file has too-open permissions, should be 0600",
					"path", s.path, "current_mode", fmt.Sprintf("%04o", mode))
			}
		}
	}

	var doc document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse storage file: %w", err)
	}
	if doc.Records == nil {
		doc.Records = make(map[string]string)
	}
	return &doc, nil
}

// writeAtomic writes data to a temp file, fsyncs it, and renames it
// over the target path. On any error the temp file is cleaned up.
func (s *FileStorage) writeAtomic(data []byte) error {
	tmpPath := s.path + ".tmp"

	f, err := os.OpenFile(tmpPath, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}

	// cleanup closes and removes the temp file on error.
	cleanup := func() {
		_ = f.Close()
		_ = os.Remove(tmpPath)
	}

	if _, err := f.Write(data); err != nil {
		cleanup()
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := f.Sync(); err != nil {
		cleanup()
		return fmt.Errorf("fsync temp file: %w", err)
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("close temp file: %w", err)
	}

	if err := os.Rename(tmpPath, s.path); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("rename temp to storage file: %w", err)
	}
	return nil
}

// removeAll deletes the storage file and its backup.
func (s *FileStorage) removeAll() error {
	if err := os.Remove(s.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("remove storage file: %w", err)
	}
	s.removeBackup()
	s.logger.Debug("storage file removed", "path", s.path)
	return nil
}

func (s *FileStorage) removeBackup() {
	if err := os.Remove(s.path + ".bak"); err != nil && !errors.Is(err, os.ErrNotExist) {
		s.logger.Warn("failed to remove backup", "error", err)
	}
}

// Exists returns true if the storage file exists on disk.
func (s *FileStorage) Exists() bool {
	_, err := os.Stat(s.path)
	return err == nil
}

// Path returns the configured file path.
func (s *FileStorage) Path() string {
	return s.path
}
