// Package engine drives the timed slideshow: item slides on a fixed
// duration, table slides paged with a row-highlight cadence, and the
// pause/resume/navigation commands the operator surface exposes.
package engine

import (
	"context"
	"errors"
	"strconv"
	"sync"
	"time"

	"auction_display/internal/persist"
	"auction_display/internal/record"

	"github.com/rs/zerolog/log"
)

// ErrNoOpenItems means a fetch succeeded but no rows are open; the surface
// shows an explicit empty state instead of a slideshow.
var ErrNoOpenItems = errors.New("no open items")

// State is the engine's playback state.
type State int

const (
	StateIdle State = iota
	StatePlayingItem
	StatePlayingTable
	StatePaused
)

func (s State) String() string {
	switch s {
	case StatePlayingItem:
		return "playing_item"
	case StatePlayingTable:
		return "playing_table"
	case StatePaused:
		return "paused"
	default:
		return "idle"
	}
}

// Config carries the playback timings.
type Config struct {
	ImageDuration        time.Duration
	ItemsPerTable        int
	RowsPerPage          int
	RowHighlightDuration time.Duration
}

// DefaultConfig returns the timings the display has always used.
func DefaultConfig() Config {
	return Config{
		ImageDuration:        5 * time.Second,
		ItemsPerTable:        5,
		RowsPerPage:          10,
		RowHighlightDuration: time.Second,
	}
}

// RowSource fetches the current open rows.
type RowSource interface {
	FetchOpen(ctx context.Context) ([]record.Record, error)
}

// Notifier receives every display change. Implementations must not call
// back into the engine; calls are made with the engine lock held.
type Notifier interface {
	OnSlideChanged(index, total int, slide Slide)
	OnTablePage(page, totalPages int, rows []record.Record)
	OnRowHighlighted(row int)
	OnEmpty()
	OnStopped()
}

// Engine owns the slide sequence, the playback position and every timer.
// All mutation happens under one mutex; timer callbacks carry the playback
// generation current at scheduling time and fire into nothing when any
// state change has bumped it since.
type Engine struct {
	mu sync.Mutex

	cfg      Config
	source   RowSource
	images   Resolver
	notifier Notifier
	store    persist.Gateway

	slides []Slide
	index  int
	state  State

	pages   [][]record.Record
	pageIdx int
	rowIdx  int

	playGen    uint64
	refreshGen uint64

	slideTimer *time.Timer
	rowTimer   *time.Timer
}

func New(cfg Config, source RowSource, images Resolver, notifier Notifier, store persist.Gateway) *Engine {
	def := DefaultConfig()
	if cfg.ImageDuration <= 0 {
		cfg.ImageDuration = def.ImageDuration
	}
	if cfg.ItemsPerTable <= 0 {
		cfg.ItemsPerTable = def.ItemsPerTable
	}
	if cfg.RowsPerPage <= 0 {
		cfg.RowsPerPage = def.RowsPerPage
	}
	if cfg.RowHighlightDuration <= 0 {
		cfg.RowHighlightDuration = def.RowHighlightDuration
	}
	return &Engine{
		cfg:      cfg,
		source:   source,
		images:   images,
		notifier: notifier,
		store:    store,
	}
}

// Refresh re-runs the fetch pipeline and, on success, replaces the slide
// sequence, resets to slide 0 unpaused and restarts playback. On a failed
// fetch the running show is left untouched. A refresh issued while an older
// fetch is still in flight supersedes it; the stale response is discarded.
func (e *Engine) Refresh(ctx context.Context) error {
	e.mu.Lock()
	e.refreshGen++
	gen := e.refreshGen
	e.mu.Unlock()

	rows, err := e.source.FetchOpen(ctx)

	e.mu.Lock()
	defer e.mu.Unlock()

	if gen != e.refreshGen {
		log.Debug().Uint64("generation", gen).Msg("Discarding superseded refresh")
		return nil
	}
	if err != nil {
		log.Warn().Err(err).Msg("Refresh fetch failed, keeping current slides")
		return err
	}

	e.cancelTimersLocked()
	e.slides = BuildSlides(rows, e.images, e.cfg.ItemsPerTable)
	e.index = 0

	if len(e.slides) == 0 {
		e.state = StateIdle
		e.persistIndexLocked()
		e.notifier.OnEmpty()
		log.Info().Msg("Refresh found no open items")
		return ErrNoOpenItems
	}

	log.Info().Int("slides", len(e.slides)).Int("rows", len(rows)).Msg("Rebuilt slide sequence")
	e.playLocked()
	return nil
}

// Pause cancels all timers and freezes on the current slide. Idempotent.
func (e *Engine) Pause() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.state == StateIdle || e.state == StatePaused {
		return
	}
	e.cancelTimersLocked()
	e.state = StatePaused
	log.Debug().Int("index", e.index).Msg("Playback paused")
}

// Resume restarts playback at the current slide. The item timer restarts at
// full duration and a table slide restarts its current page from row 0;
// there is no carry-over of elapsed time. No-op when not paused.
func (e *Engine) Resume() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.state != StatePaused {
		return
	}
	log.Debug().Int("index", e.index).Msg("Playback resumed")

	slide := e.slides[e.index]
	if slide.Kind == SlideTable && e.pageIdx < len(e.pages) {
		e.resumeTablePageLocked()
		return
	}
	e.playLocked()
}

// resumeTablePageLocked restarts the page that was showing at pause time
// from its first row.
func (e *Engine) resumeTablePageLocked() {
	e.cancelTimersLocked()
	gen := e.playGen
	e.state = StatePlayingTable
	e.rowIdx = 0
	e.notifier.OnTablePage(e.pageIdx, len(e.pages), e.pages[e.pageIdx])
	e.notifier.OnRowHighlighted(0)
	e.rowTimer = time.AfterFunc(e.cfg.RowHighlightDuration, func() { e.rowTick(gen) })
}

// Next advances one slide with wraparound. Implicitly un-pauses.
func (e *Engine) Next() {
	e.step(1)
}

// Previous steps back one slide with wraparound. Implicitly un-pauses.
func (e *Engine) Previous() {
	e.step(-1)
}

func (e *Engine) step(delta int) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if len(e.slides) == 0 {
		return
	}
	e.cancelTimersLocked()
	e.index = (e.index + delta + len(e.slides)) % len(e.slides)
	e.playLocked()
}

// Stop cancels playback and drops the slide sequence.
func (e *Engine) Stop() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.cancelTimersLocked()
	e.slides = nil
	e.index = 0
	e.state = StateIdle
	e.notifier.OnStopped()
	log.Debug().Msg("Playback stopped")
}

// Snapshot reports the current playback position for the status surface.
type Snapshot struct {
	State      State
	Index      int
	SlideCount int
	Page       int
	PageCount  int
	Row        int
}

func (e *Engine) Snapshot() Snapshot {
	e.mu.Lock()
	defer e.mu.Unlock()
	return Snapshot{
		State:      e.state,
		Index:      e.index,
		SlideCount: len(e.slides),
		Page:       e.pageIdx,
		PageCount:  len(e.pages),
		Row:        e.rowIdx,
	}
}

// playLocked renders the slide at the current index and schedules its
// timers. Must be called with the lock held and a non-empty sequence.
func (e *Engine) playLocked() {
	e.cancelTimersLocked()
	e.persistIndexLocked()

	slide := e.slides[e.index]
	gen := e.playGen

	e.notifier.OnSlideChanged(e.index, len(e.slides), slide)

	if slide.Kind == SlideItem {
		e.state = StatePlayingItem
		e.slideTimer = time.AfterFunc(e.cfg.ImageDuration, func() { e.advance(gen) })
		return
	}

	e.state = StatePlayingTable
	e.pages = Paginate(slide.Rows, e.cfg.RowsPerPage)
	e.pageIdx = 0
	e.rowIdx = 0
	e.notifier.OnTablePage(0, len(e.pages), e.pages[0])
	e.notifier.OnRowHighlighted(0)
	e.rowTimer = time.AfterFunc(e.cfg.RowHighlightDuration, func() { e.rowTick(gen) })
}

func (e *Engine) advance(gen uint64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if gen != e.playGen || len(e.slides) == 0 {
		return
	}
	e.index = (e.index + 1) % len(e.slides)
	e.playLocked()
}

func (e *Engine) rowTick(gen uint64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if gen != e.playGen || e.state != StatePlayingTable {
		return
	}

	e.rowIdx++
	if e.rowIdx < len(e.pages[e.pageIdx]) {
		e.notifier.OnRowHighlighted(e.rowIdx)
		e.rowTimer = time.AfterFunc(e.cfg.RowHighlightDuration, func() { e.rowTick(gen) })
		return
	}

	e.pageIdx++
	if e.pageIdx < len(e.pages) {
		e.rowIdx = 0
		e.notifier.OnTablePage(e.pageIdx, len(e.pages), e.pages[e.pageIdx])
		e.notifier.OnRowHighlighted(0)
		e.rowTimer = time.AfterFunc(e.cfg.RowHighlightDuration, func() { e.rowTick(gen) })
		return
	}

	// Table finished; advance like any other slide.
	e.index = (e.index + 1) % len(e.slides)
	e.playLocked()
}

// cancelTimersLocked invalidates every pending timer fire. Must precede any
// playback state mutation.
func (e *Engine) cancelTimersLocked() {
	e.playGen++
	if e.slideTimer != nil {
		e.slideTimer.Stop()
		e.slideTimer = nil
	}
	if e.rowTimer != nil {
		e.rowTimer.Stop()
		e.rowTimer = nil
	}
}

func (e *Engine) persistIndexLocked() {
	if err := e.store.Save(persist.KeySlideIndex, strconv.Itoa(e.index)); err != nil {
		log.Error().Err(err).Msg("Failed to persist slide index")
	}
}
