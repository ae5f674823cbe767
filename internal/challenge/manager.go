// Package challenge issues tile challenges and verifies answers to them.
package challenge

import (
	"context"
	"errors"
	"fmt"
	"image"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"tileCaptcha/internal/grid"
	"tileCaptcha/internal/imageio"
	"tileCaptcha/internal/pool"
	"tileCaptcha/internal/render"
	"tileCaptcha/internal/session"
	"tileCaptcha/internal/vision"
)

// issueAttempts bounds how many pool images Issue tries before giving up.
const issueAttempts = 5

// ErrUnsuitable means the image produced too few correct cells, or all of
// them when Config.AllowFullGrid is off.
var ErrUnsuitable = errors.New("image unsuitable for a challenge")

// Artifacts are the files a client needs to present a challenge.
type Artifacts struct {
	Original  string
	Segmented string
	Mask      string
	Grid      string
}

// Challenge is an issued challenge. Correct never leaves the server except in
// debug responses.
type Challenge struct {
	ID        string
	Source    string
	GridSize  int
	Correct   grid.CorrectSet
	Artifacts Artifacts
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// Manager issues challenges and hands out their answers exactly once.
type Manager struct {
	cfg    Config
	seg    *vision.Segmenter
	store  session.Store
	images *pool.Pool
	now    func() time.Time
	newID  func() string
}

// Option customizes a Manager.
type Option func(*Manager)

// WithClock replaces time.Now, used for issuance and expiry.
func WithClock(now func() time.Time) Option {
	return func(m *Manager) { m.now = now }
}

// WithIDFunc replaces the uuid session id generator.
func WithIDFunc(f func() string) Option {
	return func(m *Manager) { m.newID = f }
}

// NewManager validates cfg and builds a Manager. images may be nil when
// challenges are only issued with IssueFrom.
func NewManager(cfg Config, store session.Store, images *pool.Pool, opts ...Option) (*Manager, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	seg, err := vision.NewSegmenter(cfg.Ranges, cfg.Invert)
	if err != nil {
		return nil, err
	}
	m := &Manager{
		cfg:    cfg,
		seg:    seg,
		store:  store,
		images: images,
		now:    time.Now,
		newID:  func() string { return uuid.New().String() },
	}
	for _, o := range opts {
		o(m)
	}
	return m, nil
}

// Config returns the manager's configuration.
func (m *Manager) Config() Config { return m.cfg }

// Issue draws a random image from the pool and issues a challenge for it,
// retrying with another image when one is unsuitable.
func (m *Manager) Issue(ctx context.Context) (*Challenge, error) {
	if m.images == nil {
		return nil, errors.New("issue challenge: no image pool configured")
	}
	var lastErr error
	for attempt := 0; attempt < issueAttempts; attempt++ {
		path, err := m.images.Pick()
		if err != nil {
			return nil, err
		}
		ch, err := m.IssueFrom(ctx, path)
		if err == nil {
			return ch, nil
		}
		lastErr = err
		var le *imageio.LoadError
		if !errors.Is(err, ErrUnsuitable) && !errors.As(err, &le) {
			return nil, err
		}
		log.Warn().Err(err).Str("source", path).Int("attempt", attempt+1).Msg("skipping challenge image")
	}
	return nil, fmt.Errorf("issue challenge: %d attempts failed: %w", issueAttempts, lastErr)
}

// IssueFrom builds a challenge from the image at path and stores its answer.
// Decoding, scoring and artifact encoding all finish before the session store
// is touched.
func (m *Manager) IssueFrom(ctx context.Context, path string) (*Challenge, error) {
	img, mask, err := m.seg.SegmentFile(path)
	if err != nil {
		return nil, err
	}
	correct, err := grid.Score(mask, m.cfg.GridSize, m.cfg.Threshold)
	if err != nil {
		return nil, err
	}
	if !m.cfg.Usable(len(correct)) {
		return nil, fmt.Errorf("%w: %s has %d of %d cells covered", ErrUnsuitable, path, len(correct), m.cfg.GridSize*m.cfg.GridSize)
	}

	id := m.newID()
	arts, files, err := m.writeArtifacts(id, path, img, mask)
	if err != nil {
		removeAll(files)
		return nil, err
	}

	now := m.now()
	e := session.Entry{
		ID:        id,
		Correct:   correct,
		Source:    path,
		Artifacts: files,
		IssuedAt:  now,
		ExpiresAt: now.Add(m.cfg.TTL),
	}
	if err := m.store.Put(ctx, e); err != nil {
		removeAll(files)
		return nil, fmt.Errorf("store session: %w", err)
	}

	log.Debug().Str("session", id).Str("source", path).Ints("correct", correct).Msg("challenge issued")
	return &Challenge{
		ID:        id,
		Source:    path,
		GridSize:  m.cfg.GridSize,
		Correct:   correct,
		Artifacts: arts,
		IssuedAt:  e.IssuedAt,
		ExpiresAt: e.ExpiresAt,
	}, nil
}

func (m *Manager) writeArtifacts(id, src string, img image.Image, mask *vision.Mask) (Artifacts, []string, error) {
	arts := Artifacts{
		Original:  src,
		Segmented: filepath.Join(m.cfg.OutputDir, pool.ArtifactName(src, id, "segmented", ".jpg")),
		Mask:      filepath.Join(m.cfg.OutputDir, pool.ArtifactName(src, id, "mask", ".jpg")),
		Grid:      filepath.Join(m.cfg.OutputDir, pool.ArtifactName(src, id, "grid", ".png")),
	}
	var written []string

	if err := imageio.SaveJPEG(arts.Segmented, render.Segmented(img, mask)); err != nil {
		return arts, written, err
	}
	written = append(written, arts.Segmented)

	if err := imageio.SaveJPEG(arts.Mask, render.Silhouette(mask)); err != nil {
		return arts, written, err
	}
	written = append(written, arts.Mask)

	overlay, err := render.GridOverlay(img, m.cfg.GridSize)
	if err != nil {
		return arts, written, err
	}
	if err := imageio.SavePNG(arts.Grid, overlay); err != nil {
		return arts, written, err
	}
	written = append(written, arts.Grid)

	return arts, written, nil
}

// Consume returns the session's correct set and invalidates the session. Any
// later call for the same id returns session.ErrNotFound.
func (m *Manager) Consume(ctx context.Context, id string) (grid.CorrectSet, error) {
	e, err := m.store.Consume(ctx, id, m.now())
	if e.ID != "" {
		removeAll(e.Artifacts)
	}
	if err != nil {
		return nil, err
	}
	return e.Correct, nil
}

// ReapOnce removes expired sessions and their artifacts, returning how many
// were removed.
func (m *Manager) ReapOnce(ctx context.Context) (int, error) {
	expired, err := m.store.Sweep(ctx, m.now())
	if err != nil {
		return 0, err
	}
	for _, e := range expired {
		removeAll(e.Artifacts)
	}
	return len(expired), nil
}

// Reap runs ReapOnce every interval until ctx is done.
func (m *Manager) Reap(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := m.ReapOnce(ctx)
			if err != nil {
				log.Err(err).Msg("reap expired sessions")
				continue
			}
			if n > 0 {
				log.Info().Int("expired", n).Msg("reaped challenge sessions")
			}
		}
	}
}

func removeAll(files []string) {
	for _, f := range files {
		if err := os.Remove(f); err != nil && !errors.Is(err, os.ErrNotExist) {
			log.Warn().Err(err).Str("file", f).Msg("remove challenge artifact")
		}
	}
}
