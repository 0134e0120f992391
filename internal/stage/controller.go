// Package stage governs the setup lifecycle: LINK (waiting for images and a
// sheet link), READY (link validated), RUNNING (slideshow live).
package stage

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"auction_display/internal/persist"
	"auction_display/internal/record"
	"auction_display/internal/sheet"

	"github.com/rs/zerolog/log"
)

// Stage is the coarse lifecycle phase.
type Stage string

const (
	StageLink    Stage = "LINK"
	StageReady   Stage = "READY"
	StageRunning Stage = "RUNNING"
)

var (
	ErrImagesRequired = errors.New("images must be uploaded first")
	ErrWrongStage     = errors.New("action not available in current stage")
)

// Fetcher performs the preliminary row fetch that gates LINK -> READY.
type Fetcher interface {
	FetchRows(ctx context.Context, link sheet.Link) ([]record.Record, error)
}

// Engine is the playback engine as the controller sees it.
type Engine interface {
	Refresh(ctx context.Context) error
	Stop()
}

// ImageStore gates progression and supports the reset wipe.
type ImageStore interface {
	Has() bool
	Count() int
	Clear() error
}

// Controller owns the current stage and the persisted setup state.
type Controller struct {
	mu sync.Mutex

	stage   Stage
	link    sheet.Link
	hasLink bool

	requireImages bool

	store   persist.Gateway
	fetcher Fetcher
	engine  Engine
	images  ImageStore
}

func NewController(store persist.Gateway, fetcher Fetcher, engine Engine, images ImageStore, requireImages bool) *Controller {
	return &Controller{
		stage:         StageLink,
		store:         store,
		fetcher:       fetcher,
		engine:        engine,
		images:        images,
		requireImages: requireImages,
	}
}

// Restore reads the persisted stage on startup. RUNNING is never resumed
// directly: with a valid persisted link the controller lands in READY, so a
// rebooted host waits for an operator instead of blasting a stale show.
func (c *Controller) Restore() {
	c.mu.Lock()
	defer c.mu.Unlock()

	savedStage, _ := c.store.Load(persist.KeyStage)
	savedLink, hasLink := c.store.Load(persist.KeySheetLink)

	if hasLink {
		link, err := sheet.ParseLink(savedLink)
		if err != nil {
			log.Warn().Err(err).Msg("Persisted sheet link no longer parses, dropping it")
			c.store.Delete(persist.KeySheetLink)
			c.store.Delete(persist.KeyCSVEndpoint)
			hasLink = false
		} else {
			c.link = link
			c.hasLink = true
		}
	}

	switch {
	case c.hasLink && (savedStage == string(StageReady) || savedStage == string(StageRunning)):
		c.stage = StageReady
	default:
		c.stage = StageLink
	}

	if err := c.store.Save(persist.KeyStage, string(c.stage)); err != nil {
		log.Error().Err(err).Msg("Failed to persist restored stage")
	}

	log.Info().
		Str("persisted", savedStage).
		Str("restored", string(c.stage)).
		Bool("has_link", c.hasLink).
		Msg("Restored setup stage")
}

// Current returns the current stage.
func (c *Controller) Current() Stage {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stage
}

// RawLink returns the originally supplied sheet URL, for the
// open-raw-sheet action.
func (c *Controller) RawLink() (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.hasLink {
		return "", false
	}
	return c.link.RawURL, true
}

// LinkSheet validates a sheet URL and performs the preliminary fetch; on
// success the link is persisted and the stage moves to READY.
func (c *Controller) LinkSheet(ctx context.Context, raw string) error {
	c.mu.Lock()
	if c.stage != StageLink {
		c.mu.Unlock()
		return fmt.Errorf("%w: linking requires stage %s", ErrWrongStage, StageLink)
	}
	if c.requireImages && !c.images.Has() {
		c.mu.Unlock()
		return ErrImagesRequired
	}
	c.mu.Unlock()

	link, err := sheet.ParseLink(raw)
	if err != nil {
		return err
	}

	// A dead link caught here beats one caught on the projector.
	rows, err := c.fetcher.FetchRows(ctx, link)
	if err != nil {
		return err
	}
	log.Info().Str("doc_id", link.DocID).Int("rows", len(rows)).Msg("Preliminary fetch succeeded")

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.stage != StageLink {
		return fmt.Errorf("%w: stage changed during link validation", ErrWrongStage)
	}

	c.link = link
	c.hasLink = true
	c.stage = StageReady

	if err := c.store.Save(persist.KeySheetLink, link.RawURL); err != nil {
		return err
	}
	if err := c.store.Save(persist.KeyCSVEndpoint, link.CSVURL()); err != nil {
		return err
	}
	if err := c.store.Save(persist.KeyStage, string(StageReady)); err != nil {
		return err
	}

	log.Info().Str("doc_id", link.DocID).Msg("Sheet linked, stage READY")
	return nil
}

// Start moves READY -> RUNNING and kicks off the first refresh. A refresh
// failure is reported but does not revert the stage; the operator retries
// with the refresh action.
func (c *Controller) Start(ctx context.Context) error {
	c.mu.Lock()
	if c.stage != StageReady {
		c.mu.Unlock()
		return fmt.Errorf("%w: starting requires stage %s", ErrWrongStage, StageReady)
	}
	c.stage = StageRunning
	if err := c.store.Save(persist.KeyStage, string(StageRunning)); err != nil {
		log.Error().Err(err).Msg("Failed to persist RUNNING stage")
	}
	c.mu.Unlock()

	log.Info().Msg("Stage RUNNING, starting playback")
	return c.engine.Refresh(ctx)
}

// Refresh re-runs the data pipeline; only meaningful while RUNNING.
func (c *Controller) Refresh(ctx context.Context) error {
	if c.Current() != StageRunning {
		return fmt.Errorf("%w: refresh requires stage %s", ErrWrongStage, StageRunning)
	}
	return c.engine.Refresh(ctx)
}

// Link returns the validated link for the data pipeline.
func (c *Controller) Link() (sheet.Link, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.link, c.hasLink
}

// Back resets to LINK from any stage: playback stops, the persisted setup
// state is cleared, and stored images are wiped only when asked.
func (c *Controller) Back(purgeImages bool) error {
	c.engine.Stop()

	c.mu.Lock()
	defer c.mu.Unlock()

	c.stage = StageLink
	c.link = sheet.Link{}
	c.hasLink = false

	for _, key := range []string{persist.KeyStage, persist.KeySheetLink, persist.KeyCSVEndpoint, persist.KeySlideIndex} {
		if err := c.store.Delete(key); err != nil {
			return err
		}
	}

	if purgeImages {
		if err := c.images.Clear(); err != nil {
			return err
		}
	}

	log.Info().Bool("purged_images", purgeImages).Msg("Reset to stage LINK")
	return nil
}
