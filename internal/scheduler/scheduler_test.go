package scheduler

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"days-together/internal/notify"
	"days-together/internal/relation"
	"days-together/internal/storage"
)

var msk = time.FixedZone("UTC+3", 3*3600)

type fakeAdvancer struct {
	mu     sync.Mutex
	ids    []string
	calls  []string
	fail   map[string]bool
	noSend map[string]bool
	skip   map[string]bool
	sweeps chan struct{}
}

func (f *fakeAdvancer) Identities() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string{}, f.ids...)
}

func (f *fakeAdvancer) AdvanceDay(_ context.Context, id string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, id)
	last := id == f.ids[len(f.ids)-1]
	defer func() {
		if last && f.sweeps != nil {
			f.sweeps <- struct{}{}
		}
	}()
	if f.fail[id] {
		return false, errors.New("load failed")
	}
	if f.noSend[id] {
		return true, errors.New("send failed")
	}
	if f.skip[id] {
		return false, nil
	}
	return true, nil
}

func TestNext_TodayOrTomorrow(t *testing.T) {
	s, err := New("0 12 * * *", msk, &fakeAdvancer{})
	require.NoError(t, err)

	before := time.Date(2026, 10, 19, 9, 30, 0, 0, msk)
	assertSameInstant(t, time.Date(2026, 10, 19, 12, 0, 0, 0, msk), s.Next(before))

	after := time.Date(2026, 10, 19, 12, 0, 1, 0, msk)
	assertSameInstant(t, time.Date(2026, 10, 20, 12, 0, 0, 0, msk), s.Next(after))

	exact := time.Date(2026, 10, 19, 12, 0, 0, 0, msk)
	assertSameInstant(t, time.Date(2026, 10, 20, 12, 0, 0, 0, msk), s.Next(exact))

	// 08:00 UTC is 11:00 in the schedule zone.
	utc := time.Date(2026, 10, 19, 8, 0, 0, 0, time.UTC)
	assertSameInstant(t, time.Date(2026, 10, 19, 12, 0, 0, 0, msk), s.Next(utc))
}

func assertSameInstant(t *testing.T, want, got time.Time) {
	t.Helper()
	assert.True(t, want.Equal(got), "want %s, got %s", want, got)
}

func TestNextAfter_ClockSteppedBack(t *testing.T) {
	s, err := New("0 12 * * *", msk, &fakeAdvancer{})
	require.NoError(t, err)

	fired := time.Date(2026, 10, 19, 12, 0, 0, 0, msk)
	// wall clock corrected back to 11:59:58 right after the 12:00 sweep
	stepped := fired.Add(-2 * time.Second)
	assertSameInstant(t, time.Date(2026, 10, 20, 12, 0, 0, 0, msk), s.nextAfter(stepped, fired))

	// no previous fire
	assertSameInstant(t, fired, s.nextAfter(stepped, time.Time{}))

	later := time.Date(2026, 10, 21, 9, 0, 0, 0, msk)
	assertSameInstant(t, time.Date(2026, 10, 21, 12, 0, 0, 0, msk), s.nextAfter(later, fired))
}

func TestNew_InvalidSpec(t *testing.T) {
	_, err := New("every day", msk, &fakeAdvancer{})
	require.Error(t, err)
}

func TestSweep_IsolatesFailures(t *testing.T) {
	adv := &fakeAdvancer{
		ids:  []string{"a", "b", "c", "d"},
		fail: map[string]bool{"b": true},
		skip: map[string]bool{"c": true},
	}
	s, err := New("0 12 * * *", msk, adv)
	require.NoError(t, err)

	r := s.Sweep(context.Background())
	assert.Equal(t, Report{Advanced: 2, Skipped: 1, Failed: 1}, r)
	assert.Equal(t, []string{"a", "b", "c", "d"}, adv.calls)
}

func TestSweep_SendFailureStillCountsAdvance(t *testing.T) {
	adv := &fakeAdvancer{
		ids:    []string{"a", "b", "c"},
		fail:   map[string]bool{"c": true},
		noSend: map[string]bool{"b": true},
	}
	s, err := New("0 12 * * *", msk, adv)
	require.NoError(t, err)

	r := s.Sweep(context.Background())
	assert.Equal(t, Report{Advanced: 2, Failed: 1, SendFailed: 1}, r)
}

func TestStart_FiresAtConfiguredTime(t *testing.T) {
	fc := clockwork.NewFakeClockAt(time.Date(2026, 10, 19, 10, 0, 0, 0, msk))
	adv := &fakeAdvancer{ids: []string{"a"}, sweeps: make(chan struct{}, 4)}
	s, err := New("0 12 * * *", msk, adv, WithClock(fc))
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, s.Start(ctx))
	require.True(t, s.IsRunning())

	require.NoError(t, fc.BlockUntilContext(ctx, 1))
	fc.Advance(time.Hour + 59*time.Minute)
	select {
	case <-adv.sweeps:
		t.Fatal("sweep fired before the configured time")
	default:
	}

	fc.Advance(time.Minute)
	select {
	case <-adv.sweeps:
	case <-ctx.Done():
		t.Fatal("sweep did not fire")
	}

	// next fire is a full day later
	require.NoError(t, fc.BlockUntilContext(ctx, 1))
	fc.Advance(23 * time.Hour)
	select {
	case <-adv.sweeps:
		t.Fatal("second sweep fired early")
	default:
	}
	fc.Advance(time.Hour)
	select {
	case <-adv.sweeps:
	case <-ctx.Done():
		t.Fatal("second sweep did not fire")
	}

	s.Stop()
	assert.False(t, s.IsRunning())
	assert.Equal(t, []string{"a", "a"}, adv.calls)
}

func TestStop_CancelsWait(t *testing.T) {
	fc := clockwork.NewFakeClock()
	s, err := New("0 12 * * *", msk, &fakeAdvancer{ids: []string{"a"}}, WithClock(fc))
	require.NoError(t, err)
	require.NoError(t, s.Start(context.Background()))
	require.Error(t, s.Start(context.Background()))

	s.Stop()
	assert.False(t, s.IsRunning())
	s.Stop()
}

type recordingNotifier struct {
	mu   sync.Mutex
	sent map[string][]notify.Message
	down map[string]bool
}

func (n *recordingNotifier) Notify(_ context.Context, id string, msg notify.Message) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.down[id] {
		return errors.New("chat not found")
	}
	n.sent[id] = append(n.sent[id], msg)
	return nil
}

// A never started, B active on day 5, C ended.
func TestSweep_MixedStates(t *testing.T) {
	repo, err := storage.NewFileRepository(t.TempDir() + "/users.json")
	require.NoError(t, err)
	require.NoError(t, repo.SaveAll(map[string]storage.Record{
		"B": {Day: 5, Active: true},
		"C": {Day: 9, Active: false},
	}))
	notifier := &recordingNotifier{sent: map[string][]notify.Message{}}
	m := relation.NewMachine(relation.NewStore(repo), notify.Composer{}, notifier, nil)

	s, err := New("0 12 * * *", msk, m)
	require.NoError(t, err)
	r := s.Sweep(context.Background())
	assert.Equal(t, Report{Advanced: 1, Skipped: 1}, r)

	b, _ := m.Status("B")
	assert.Equal(t, 6, b.Day)
	c, _ := m.Status("C")
	assert.Equal(t, 9, c.Day)
	assert.Equal(t, relation.StatusEnded, c.Status)
	_, ok := m.Status("A")
	assert.False(t, ok)

	require.Len(t, notifier.sent["B"], 1)
	assert.Equal(t, "Day 6: still together", notifier.sent["B"][0].Text)
	assert.Empty(t, notifier.sent["A"])
	assert.Empty(t, notifier.sent["C"])

	stored, err := repo.LoadAll()
	require.NoError(t, err)
	assert.Equal(t, map[string]storage.Record{
		"B": {Day: 6, Active: true},
		"C": {Day: 9, Active: false},
	}, stored)
}

func TestSweep_UndeliveredDayIsCountedAsAdvanced(t *testing.T) {
	repo, err := storage.NewFileRepository(t.TempDir() + "/users.json")
	require.NoError(t, err)
	require.NoError(t, repo.SaveAll(map[string]storage.Record{
		"B": {Day: 5, Active: true},
		"D": {Day: 2, Active: true},
	}))
	notifier := &recordingNotifier{sent: map[string][]notify.Message{}, down: map[string]bool{"D": true}}
	m := relation.NewMachine(relation.NewStore(repo), notify.Composer{}, notifier, nil)

	s, err := New("0 12 * * *", msk, m)
	require.NoError(t, err)
	r := s.Sweep(context.Background())
	assert.Equal(t, Report{Advanced: 2, SendFailed: 1}, r)

	d, _ := m.Status("D")
	assert.Equal(t, 3, d.Day)
}
