package session

import (
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
)

// Listener observes session values. It is called synchronously.
type Listener func(Session)

type listenerEntry struct {
	id uint64
	fn Listener
}

// Option configures a Store.
type Option func(*Store)

// WithKey sets the name of the durable record. Default: DefaultKey.
func WithKey(key string) Option {
	return func(s *Store) {
		if key != "" {
			s.key = key
		}
	}
}

// WithLogger sets the logger. Default: slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(s *Store) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// Store is the single source of truth for the authentication session.
// Only Initialize, Login and Logout write the session; everything else reads
// snapshots.
//
// Mutations and listener delivery are serialized, so every listener sees
// values in the order they were applied. Listeners must not call Login,
// Logout or Subscribe; unsubscribing from a listener is allowed.
type Store struct {
	storage Storage
	key     string
	logger  *slog.Logger

	current atomic.Pointer[Session]

	// mu serializes mutation and delivery.
	mu sync.Mutex
	// mutated is set by the first Login or Logout. Guarded by mu.
	mutated bool

	listenersMu sync.Mutex
	listeners   []listenerEntry
	nextID      uint64

	initOnce sync.Once
}

// NewStore creates a Store in the anonymous state backed by storage.
// Call Initialize to restore a persisted session.
func NewStore(storage Storage, opts ...Option) *Store {
	if storage == nil {
		storage = NopStorage{}
	}
	s := &Store{
		storage: storage,
		key:     DefaultKey,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	anon := Anonymous()
	s.current.Store(&anon)
	return s
}

// Initialize seeds the session from durable storage and starts persisting
// every subsequent change. It runs once; later calls do nothing.
//
// A restored session reaches existing listeners like any other change. A
// missing record, an unreadable storage backend, or a malformed record all
// leave the store anonymous.
//
// If Login or Logout ran before Initialize, that session is kept and written
// to storage in place of the stored record.
func (s *Store) Initialize() {
	s.initOnce.Do(func() {
		seeded := s.restore()

		s.mu.Lock()
		if s.mutated {
			s.logger.Debug("session changed before initialize, ignoring stored record", "key", s.key)
		} else if seeded.IsAuthenticated {
			s.publish(seeded)
		}
		s.mu.Unlock()

		s.Subscribe(s.persist)
	})
}

func (s *Store) restore() Session {
	data, err := s.storage.Load(s.key)
	if err != nil {
		if !errors.Is(err, ErrNotFound) {
			s.logger.Warn("session storage unavailable, starting anonymous",
				"key", s.key, "error", err)
		}
		return Anonymous()
	}

	restored, err := Decode(data)
	if err != nil {
		s.logger.Warn("discarding malformed session record", "key", s.key, "error", err)
		if delErr := s.storage.Delete(s.key); delErr != nil {
			s.logger.Warn("failed to delete malformed session record", "key", s.key, "error", delErr)
		}
		return Anonymous()
	}

	if restored.IsAuthenticated {
		s.logger.Info("session restored",
			"user", restored.User.Username,
			"token_fp", Fingerprint(restored.Token))
	}
	return restored
}

// persist mirrors the session into durable storage.
// Storage failures are logged and otherwise ignored.
func (s *Store) persist(value Session) {
	if value.IsAuthenticated {
		data, err := Encode(value)
		if err == nil {
			err = s.storage.Save(s.key, data)
		}
		if err != nil {
			s.logger.Warn("failed to persist session", "key", s.key, "error", err)
		}
		return
	}
	if err := s.storage.Delete(s.key); err != nil {
		s.logger.Warn("failed to remove persisted session", "key", s.key, "error", err)
	}
}

// Login replaces the session with an authenticated one.
// It returns an error, and leaves the session untouched, if the token is
// empty or the user is invalid.
func (s *Store) Login(token string, user User) error {
	next := Session{Token: token, User: &user, IsAuthenticated: true}
	if err := next.Validate(); err != nil {
		return err
	}
	s.set(next)
	s.logger.Info("logged in", "user", user.Username, "role", user.Role, "token_fp", Fingerprint(token))
	return nil
}

// Logout replaces the session with the anonymous default. Calling it on an
// anonymous session is harmless.
func (s *Store) Logout() {
	wasAuthenticated := s.Current().IsAuthenticated
	s.set(Anonymous())
	if wasAuthenticated {
		s.logger.Info("logged out")
	}
}

// Current returns a snapshot of the latest session. It never blocks.
func (s *Store) Current() Session {
	return s.current.Load().clone()
}

// Subscribe registers fn. It is called immediately with the current value and
// again after every mutation until the returned function is called.
// The returned function is idempotent and may be called from within fn.
func (s *Store) Subscribe(fn Listener) func() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.listenersMu.Lock()
	s.nextID++
	id := s.nextID
	s.listeners = append(s.listeners, listenerEntry{id: id, fn: fn})
	s.listenersMu.Unlock()

	fn(s.current.Load().clone())

	var once sync.Once
	return func() {
		once.Do(func() { s.unsubscribe(id) })
	}
}

func (s *Store) unsubscribe(id uint64) {
	s.listenersMu.Lock()
	defer s.listenersMu.Unlock()
	for i, l := range s.listeners {
		if l.id == id {
			s.listeners = append(s.listeners[:i:i], s.listeners[i+1:]...)
			return
		}
	}
}

func (s *Store) set(next Session) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.mutated = true
	s.publish(next)
}

// publish stores next and delivers it to every listener. Callers hold mu.
func (s *Store) publish(next Session) {
	stored := next.clone()
	s.current.Store(&stored)

	s.listenersMu.Lock()
	snapshot := make([]listenerEntry, len(s.listeners))
	copy(snapshot, s.listeners)
	s.listenersMu.Unlock()

	for _, l := range snapshot {
		l.fn(stored.clone())
	}
}
