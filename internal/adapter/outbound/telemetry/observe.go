package telemetry

import (
	"errors"

	"github.com/securevibes/authgate/internal/domain/session"
)

// SessionPublisher is the subscription side of the session store.
type SessionPublisher interface {
	Subscribe(fn session.Listener) func()
}

// ObserveSession keeps the session gauge current and counts state
// transitions. The initial value sets the gauge without counting a
// transition. It returns the unsubscribe function.
func ObserveSession(pub SessionPublisher, m *Metrics) func() {
	var last session.State
	first := true
	return pub.Subscribe(func(s session.Session) {
		state := s.State()
		if state == session.StateAuthenticated {
			m.SessionActive.Set(1)
		} else {
			m.SessionActive.Set(0)
		}
		if !first && state != last {
			m.SessionTransitions.WithLabelValues(state.String()).Inc()
		}
		first = false
		last = state
	})
}

// instrumentedStorage counts storage failures. A missing record is not a
// failure.
type instrumentedStorage struct {
	next    session.Storage
	metrics *Metrics
}

// InstrumentStorage wraps next so every failed operation increments
// storage_errors_total.
func InstrumentStorage(next session.Storage, m *Metrics) session.Storage {
	return &instrumentedStorage{next: next, metrics: m}
}

func (s *instrumentedStorage) Load(key string) ([]byte, error) {
	data, err := s.next.Load(key)
	if err != nil && !errors.Is(err, session.ErrNotFound) {
		s.metrics.StorageErrors.WithLabelValues("load").Inc()
	}
	return data, err
}

func (s *instrumentedStorage) Save(key string, data []byte) error {
	err := s.next.Save(key, data)
	if err != nil {
		s.metrics.StorageErrors.WithLabelValues("save").Inc()
	}
	return err
}

func (s *instrumentedStorage) Delete(key string) error {
	err := s.next.Delete(key)
	if err != nil {
		s.metrics.StorageErrors.WithLabelValues("delete").Inc()
	}
	return err
}
