package relation

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"days-together/internal/metrics"
	"days-together/internal/notify"
)

// ErrRecordMissing is returned for transitions that need an existing record.
var ErrRecordMissing = errors.New("record missing")

var (
	errAlreadyActive = errors.New("already active")
	errNotActive     = errors.New("not active")
)

// StartResult tells a fresh start apart from a counter that was already running.
type StartResult int

const (
	Started StartResult = iota
	AlreadyActive
)

// Notifier delivers a composed message to the chat behind identity.
type Notifier interface {
	Notify(ctx context.Context, identity string, msg notify.Message) error
}

// Machine runs the per-chat transitions. Calls for the same identity are
// serialized from the first read to the end of the notification.
type Machine struct {
	store    *Store
	composer notify.Composer
	notifier Notifier
	metrics  metrics.Recorder
	locks    keyedMutex
}

// NewMachine wires the machine to its store and delivery path. A nil rec
// disables metrics.
func NewMachine(store *Store, composer notify.Composer, notifier Notifier, rec metrics.Recorder) *Machine {
	if rec == nil {
		rec = metrics.NoopRecorder{}
	}
	m := &Machine{store: store, composer: composer, notifier: notifier, metrics: rec}
	rec.SetActive(store.CountActive())
	return m
}

// Start begins a counter at day 1 and notifies it. An Active record is left
// untouched and AlreadyActive is returned. The state is persisted even when
// delivery fails.
func (m *Machine) Start(ctx context.Context, id string) (StartResult, error) {
	unlock := m.locks.Lock(id)
	defer unlock()
	rec, err := m.store.Update(id, func(cur UserRecord, exists bool) (UserRecord, error) {
		if exists && cur.Status == StatusActive {
			return cur, errAlreadyActive
		}
		return UserRecord{Day: 1, Status: StatusActive}, nil
	})
	if errors.Is(err, errAlreadyActive) {
		return AlreadyActive, nil
	}
	if err != nil {
		return Started, err
	}
	m.metrics.IncTransition("start")
	m.metrics.SetActive(m.store.CountActive())
	return Started, m.send(ctx, rec)
}

// RequestEnd only checks that there is something to end.
func (m *Machine) RequestEnd(_ context.Context, id string) error {
	unlock := m.locks.Lock(id)
	defer unlock()
	if _, ok := m.store.Get(id); !ok {
		return fmt.Errorf("request end %s: %w", id, ErrRecordMissing)
	}
	return nil
}

// ConfirmEnd marks the record Ended and persists it.
func (m *Machine) ConfirmEnd(_ context.Context, id string) error {
	unlock := m.locks.Lock(id)
	defer unlock()
	_, err := m.store.Update(id, func(cur UserRecord, exists bool) (UserRecord, error) {
		if !exists {
			return cur, ErrRecordMissing
		}
		cur.Status = StatusEnded
		return cur, nil
	})
	if err != nil {
		return fmt.Errorf("confirm end %s: %w", id, err)
	}
	m.metrics.IncTransition("end")
	m.metrics.SetActive(m.store.CountActive())
	return nil
}

// CancelEnd leaves the record as it is; it only checks that one exists.
func (m *Machine) CancelEnd(_ context.Context, id string) error {
	unlock := m.locks.Lock(id)
	defer unlock()
	if _, ok := m.store.Get(id); !ok {
		return fmt.Errorf("cancel end %s: %w", id, ErrRecordMissing)
	}
	return nil
}

// AdvanceDay moves an active counter one day forward and notifies the chat.
// Records that are not active are skipped without error. The new day is
// persisted even if delivery fails; the delivery error is returned.
func (m *Machine) AdvanceDay(ctx context.Context, id string) (bool, error) {
	unlock := m.locks.Lock(id)
	defer unlock()
	rec, err := m.store.Update(id, func(cur UserRecord, exists bool) (UserRecord, error) {
		if !exists {
			return cur, ErrRecordMissing
		}
		if cur.Status != StatusActive {
			return cur, errNotActive
		}
		cur.Day++
		return cur, nil
	})
	if errors.Is(err, errNotActive) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("advance day %s: %w", id, err)
	}
	m.metrics.IncTransition("advance")
	return true, m.send(ctx, rec)
}

// Status returns the record of id, or an inactive record if there is none.
func (m *Machine) Status(id string) (UserRecord, bool) {
	rec, ok := m.store.Get(id)
	if !ok {
		return UserRecord{Identity: id, Status: StatusInactive}, false
	}
	return rec, true
}

// Identities lists every stored identity, sorted.
func (m *Machine) Identities() []string {
	return m.store.Identities()
}

// Snapshot copies all stored records.
func (m *Machine) Snapshot() []UserRecord {
	return m.store.Snapshot()
}

func (m *Machine) send(ctx context.Context, rec UserRecord) error {
	if m.notifier == nil {
		return nil
	}
	msg := m.composer.Compose(rec.Day)
	if err := m.notifier.Notify(ctx, rec.Identity, msg); err != nil {
		m.metrics.IncNotification(metrics.ResultFailure)
		return fmt.Errorf("notify %s day %d: %w", rec.Identity, rec.Day, err)
	}
	m.metrics.IncNotification(metrics.ResultSuccess)
	return nil
}

// keyedMutex hands out one mutex per identity. Identities are never removed.
type keyedMutex struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func (k *keyedMutex) Lock(id string) func() {
	k.mu.Lock()
	if k.locks == nil {
		k.locks = make(map[string]*sync.Mutex)
	}
	l, ok := k.locks[id]
	if !ok {
		l = &sync.Mutex{}
		k.locks[id] = l
	}
	k.mu.Unlock()
	l.Lock()
	return l.Unlock
}
