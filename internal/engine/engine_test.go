package engine

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"auction_display/internal/persist"
	"auction_display/internal/record"
)

type fakeSource struct {
	mu    sync.Mutex
	fetch func(ctx context.Context) ([]record.Record, error)
}

func (s *fakeSource) FetchOpen(ctx context.Context) ([]record.Record, error) {
	s.mu.Lock()
	f := s.fetch
	s.mu.Unlock()
	return f(ctx)
}

func (s *fakeSource) set(f func(ctx context.Context) ([]record.Record, error)) {
	s.mu.Lock()
	s.fetch = f
	s.mu.Unlock()
}

func staticRows(rows []record.Record) func(ctx context.Context) ([]record.Record, error) {
	return func(ctx context.Context) ([]record.Record, error) {
		return rows, nil
	}
}

// recordingNotifier appends one line per event and signals a channel so
// tests can wait without sleeping.
type recordingNotifier struct {
	mu     sync.Mutex
	events []string
	signal chan struct{}
}

func newRecordingNotifier() *recordingNotifier {
	return &recordingNotifier{signal: make(chan struct{}, 1024)}
}

func (n *recordingNotifier) add(event string) {
	n.mu.Lock()
	n.events = append(n.events, event)
	n.mu.Unlock()
	select {
	case n.signal <- struct{}{}:
	default:
	}
}

func (n *recordingNotifier) OnSlideChanged(index, total int, slide Slide) {
	n.add(fmt.Sprintf("slide %d/%d %s", index, total, slide.Kind))
}

func (n *recordingNotifier) OnTablePage(page, totalPages int, rows []record.Record) {
	n.add(fmt.Sprintf("page %d/%d", page, totalPages))
}

func (n *recordingNotifier) OnRowHighlighted(row int) {
	n.add(fmt.Sprintf("row %d", row))
}

func (n *recordingNotifier) OnEmpty()   { n.add("empty") }
func (n *recordingNotifier) OnStopped() { n.add("stopped") }

func (n *recordingNotifier) snapshot() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]string, len(n.events))
	copy(out, n.events)
	return out
}

func (n *recordingNotifier) count(event string) int {
	c := 0
	for _, e := range n.snapshot() {
		if e == event {
			c++
		}
	}
	return c
}

// waitFor polls the notifier until cond holds or the deadline passes.
func waitFor(t *testing.T, n *recordingNotifier, cond func([]string) bool) {
	t.Helper()
	deadline := time.After(5 * time.Second)
	for {
		if cond(n.snapshot()) {
			return
		}
		select {
		case <-n.signal:
		case <-deadline:
			t.Fatalf("Timed out waiting for events; got %v", n.snapshot())
		}
	}
}

// slowConfig keeps timers from firing during a test.
func slowConfig() Config {
	return Config{
		ImageDuration:        time.Hour,
		ItemsPerTable:        5,
		RowsPerPage:          10,
		RowHighlightDuration: time.Hour,
	}
}

func newTestEngine(cfg Config, rows []record.Record) (*Engine, *recordingNotifier, *fakeSource, *persist.Memory) {
	source := &fakeSource{}
	source.set(staticRows(rows))
	notifier := newRecordingNotifier()
	store := persist.NewMemory()
	e := New(cfg, source, mapResolver{}, notifier, store)
	return e, notifier, source, store
}

func TestRefreshStartsPlayback(t *testing.T) {
	e, notifier, _, store := newTestEngine(slowConfig(), openRows(3))

	if err := e.Refresh(context.Background()); err != nil {
		t.Fatalf("Refresh failed: %v", err)
	}

	snap := e.Snapshot()
	if snap.State != StatePlayingItem {
		t.Errorf("Expected playing_item, got %s", snap.State)
	}
	if snap.Index != 0 || snap.SlideCount != 3 {
		t.Errorf("Expected slide 0/3, got %d/%d", snap.Index, snap.SlideCount)
	}
	if notifier.count("slide 0/3 item") != 1 {
		t.Errorf("Expected one slide-changed event, got %v", notifier.snapshot())
	}
	if idx, ok := store.Load(persist.KeySlideIndex); !ok || idx != "0" {
		t.Errorf("Expected persisted slide index 0, got %q", idx)
	}
}

func TestRefreshEmptyData(t *testing.T) {
	e, notifier, _, _ := newTestEngine(slowConfig(), []record.Record{})

	err := e.Refresh(context.Background())
	if !errors.Is(err, ErrNoOpenItems) {
		t.Fatalf("Expected ErrNoOpenItems, got %v", err)
	}
	if e.Snapshot().State != StateIdle {
		t.Errorf("Expected idle, got %s", e.Snapshot().State)
	}
	if notifier.count("empty") != 1 {
		t.Errorf("Expected one empty event, got %v", notifier.snapshot())
	}
}

func TestFailedRefreshKeepsCurrentSlides(t *testing.T) {
	e, _, source, _ := newTestEngine(slowConfig(), openRows(3))
	if err := e.Refresh(context.Background()); err != nil {
		t.Fatalf("Refresh failed: %v", err)
	}

	source.set(func(ctx context.Context) ([]record.Record, error) {
		return nil, errors.New("network down")
	})

	if err := e.Refresh(context.Background()); err == nil {
		t.Fatal("Expected refresh error")
	}

	snap := e.Snapshot()
	if snap.SlideCount != 3 || snap.State != StatePlayingItem {
		t.Errorf("Expected playback untouched, got %d slides in %s", snap.SlideCount, snap.State)
	}
}

func TestStaleRefreshIsDiscarded(t *testing.T) {
	e, _, source, _ := newTestEngine(slowConfig(), nil)

	release := make(chan struct{})
	source.set(func(ctx context.Context) ([]record.Record, error) {
		<-release
		return openRows(9), nil
	})

	done := make(chan error, 1)
	go func() { done <- e.Refresh(context.Background()) }()

	// Give the slow fetch time to claim its generation, then supersede it.
	time.Sleep(20 * time.Millisecond)
	source.set(staticRows(openRows(2)))
	if err := e.Refresh(context.Background()); err != nil {
		t.Fatalf("Second refresh failed: %v", err)
	}

	close(release)
	if err := <-done; err != nil {
		t.Fatalf("Superseded refresh should return nil, got %v", err)
	}

	if snap := e.Snapshot(); snap.SlideCount != 2 {
		t.Errorf("Expected the newer sequence of 2 slides, got %d", snap.SlideCount)
	}
}

func TestPauseIsIdempotent(t *testing.T) {
	e, _, _, _ := newTestEngine(slowConfig(), openRows(3))
	e.Refresh(context.Background())

	e.Pause()
	first := e.Snapshot()
	e.Pause()
	second := e.Snapshot()

	if first != second {
		t.Errorf("Pause twice diverged: %+v vs %+v", first, second)
	}
	if first.State != StatePaused {
		t.Errorf("Expected paused, got %s", first.State)
	}
}

func TestResumeWhenNotPausedIsNoOp(t *testing.T) {
	e, notifier, _, _ := newTestEngine(slowConfig(), openRows(3))
	e.Refresh(context.Background())

	before := len(notifier.snapshot())
	e.Resume()
	if got := len(notifier.snapshot()); got != before {
		t.Errorf("Resume while playing emitted events: %v", notifier.snapshot()[before:])
	}
}

func TestPauseResumeRestartsSlide(t *testing.T) {
	e, notifier, _, _ := newTestEngine(slowConfig(), openRows(3))
	e.Refresh(context.Background())

	e.Pause()
	e.Resume()

	// The same slide is re-rendered from scratch, not resumed mid-count.
	if notifier.count("slide 0/3 item") != 2 {
		t.Errorf("Expected slide 0 rendered twice, got %v", notifier.snapshot())
	}
	if snap := e.Snapshot(); snap.Index != 0 || snap.State != StatePlayingItem {
		t.Errorf("Expected playing slide 0, got %+v", snap)
	}
}

func TestNextWrapsAround(t *testing.T) {
	e, _, _, _ := newTestEngine(slowConfig(), openRows(2))
	e.Refresh(context.Background())

	e.Next()
	if snap := e.Snapshot(); snap.Index != 1 {
		t.Fatalf("Expected index 1, got %d", snap.Index)
	}
	e.Next()
	if snap := e.Snapshot(); snap.Index != 0 {
		t.Errorf("Expected wraparound to 0, got %d", snap.Index)
	}
}

func TestPreviousWrapsAround(t *testing.T) {
	e, _, _, _ := newTestEngine(slowConfig(), openRows(2))
	e.Refresh(context.Background())

	e.Previous()
	if snap := e.Snapshot(); snap.Index != 1 {
		t.Errorf("Expected previous from 0 to wrap to 1, got %d", snap.Index)
	}
}

func TestManualNavigationUnpauses(t *testing.T) {
	e, _, _, _ := newTestEngine(slowConfig(), openRows(3))
	e.Refresh(context.Background())

	e.Pause()
	e.Next()

	snap := e.Snapshot()
	if snap.State != StatePlayingItem {
		t.Errorf("Expected navigation to resume playback, got %s", snap.State)
	}
	if snap.Index != 1 {
		t.Errorf("Expected index 1, got %d", snap.Index)
	}
}

func TestNavigationOnIdleEngineIsNoOp(t *testing.T) {
	e, notifier, _, _ := newTestEngine(slowConfig(), nil)
	e.Next()
	e.Previous()
	if len(notifier.snapshot()) != 0 {
		t.Errorf("Expected no events, got %v", notifier.snapshot())
	}
}

func TestItemSlideAutoAdvances(t *testing.T) {
	cfg := slowConfig()
	cfg.ImageDuration = 20 * time.Millisecond

	e, notifier, _, _ := newTestEngine(cfg, openRows(3))
	e.Refresh(context.Background())

	waitFor(t, notifier, func(events []string) bool {
		for _, ev := range events {
			if ev == "slide 1/3 item" {
				return true
			}
		}
		return false
	})
}

func TestPauseStopsAutoAdvance(t *testing.T) {
	cfg := slowConfig()
	cfg.ImageDuration = 20 * time.Millisecond

	e, notifier, _, _ := newTestEngine(cfg, openRows(3))
	e.Refresh(context.Background())
	e.Pause()

	before := len(notifier.snapshot())
	time.Sleep(80 * time.Millisecond)
	if got := len(notifier.snapshot()); got != before {
		t.Errorf("Timers fired while paused: %v", notifier.snapshot()[before:])
	}
}

func TestTableSubPlayback(t *testing.T) {
	cfg := Config{
		ImageDuration:        time.Hour,
		ItemsPerTable:        5,
		RowsPerPage:          5,
		RowHighlightDuration: 5 * time.Millisecond,
	}

	// Inject a lone table slide of 12 rows: pages of 5, 5 and 2.
	e, notifier, _, _ := newTestEngine(cfg, nil)
	e.mu.Lock()
	e.slides = []Slide{{Kind: SlideTable, Rows: openRows(12)}}
	e.index = 0
	e.playLocked()
	e.mu.Unlock()

	// All three pages play through; the lone slide then wraps onto itself,
	// so page 0 renders a second time.
	waitFor(t, notifier, func(events []string) bool {
		return notifier.count("page 2/3") >= 1 && notifier.count("page 0/3") >= 2
	})

	events := notifier.snapshot()
	sawPage1 := false
	for _, ev := range events {
		if ev == "page 1/3" {
			sawPage1 = true
		}
	}
	if !sawPage1 {
		t.Errorf("Expected page 1 between pages 0 and 2: %v", events)
	}
}

func TestResumeRestartsCurrentTablePage(t *testing.T) {
	cfg := slowConfig()
	cfg.RowsPerPage = 5

	e, notifier, _, _ := newTestEngine(cfg, nil)
	e.mu.Lock()
	e.slides = []Slide{{Kind: SlideTable, Rows: openRows(12)}}
	e.index = 0
	e.playLocked()
	e.mu.Unlock()

	e.Pause()
	e.mu.Lock()
	e.pageIdx = 1 // pretend the show was paused mid-table
	e.mu.Unlock()

	e.Resume()

	// The paused page restarts from its first row; the table does not
	// rewind to page 0.
	if notifier.count("page 1/3") != 1 {
		t.Errorf("Expected page 1 re-rendered, got %v", notifier.snapshot())
	}
	snap := e.Snapshot()
	if snap.State != StatePlayingTable || snap.Page != 1 || snap.Row != 0 {
		t.Errorf("Expected table page 1 row 0, got %+v", snap)
	}
}

func TestStopDropsSequence(t *testing.T) {
	e, notifier, _, _ := newTestEngine(slowConfig(), openRows(3))
	e.Refresh(context.Background())

	e.Stop()

	snap := e.Snapshot()
	if snap.State != StateIdle || snap.SlideCount != 0 {
		t.Errorf("Expected idle with no slides, got %+v", snap)
	}
	if notifier.count("stopped") != 1 {
		t.Errorf("Expected one stopped event, got %v", notifier.snapshot())
	}
}
