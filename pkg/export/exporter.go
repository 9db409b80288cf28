package export

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Prometheus metrics for extraction runs.
var (
	exportPagesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "stash_export_pages_total",
		Help: "Total scene catalog pages fetched",
	})

	exportScenesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "stash_export_scenes_total",
		Help: "Total scenes normalized into export records",
	})

	exportScenesSkippedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "stash_export_scenes_skipped_total",
		Help: "Total malformed scenes skipped during export",
	})

	exportRunDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "stash_export_run_duration_seconds",
		Help:    "Full extraction run duration in seconds",
		Buckets: []float64{0.5, 1, 5, 10, 30, 60, 300},
	})
)

// Errors returned when the server contradicts itself between pages.
var (
	// ErrCountChanged is returned when a later page reports a different
	// total than page 1. The catalog mutated mid-run; results would be
	// unreliable, so the run aborts instead of under- or over-counting.
	ErrCountChanged = errors.New("scene count changed between pages")

	// ErrShortPage is returned when the server hands back an empty page
	// while the frozen total says more scenes remain.
	ErrShortPage = errors.New("empty page before catalog exhausted")
)

// SceneReader is the catalog capability the extractor consumes. FindScenes
// must be idempotent per (pageSize, page) pair within one run and must
// return scenes in a stable server-side order.
type SceneReader interface {
	FindScenes(ctx context.Context, pageSize, page int) (scenes []json.RawMessage, total int, err error)
}

// ProgressFunc receives the completed fraction of the run, in [0, 1].
// Called once per processed scene; values never decrease.
type ProgressFunc func(fraction float64)

// MalformedPolicy decides what an extraction run does with a scene the
// transform cannot handle.
type MalformedPolicy int

const (
	// SkipMalformed drops the offending scene, logs a warning and keeps
	// going. The default: one broken scene should not cost the export.
	SkipMalformed MalformedPolicy = iota

	// AbortOnMalformed fails the whole run on the first broken scene.
	AbortOnMalformed
)

// Config holds extractor configuration for one run.
type Config struct {
	// PageSize is the fixed catalog page size for the whole run.
	PageSize int

	// Malformed is the policy for scenes the transform rejects.
	Malformed MalformedPolicy

	// Progress, when set, receives the completed fraction per scene.
	// Fire-and-forget; it must not block.
	Progress ProgressFunc
}

// DefaultConfig returns a safe default configuration.
func DefaultConfig() Config {
	return Config{
		PageSize:  120,
		Malformed: SkipMalformed,
	}
}

// Extractor drives a SceneReader across the whole catalog exactly once.
type Extractor struct {
	reader SceneReader
	config Config
	logger zerolog.Logger
}

// New creates a new extractor.
func New(reader SceneReader, cfg Config) (*Extractor, error) {
	if reader == nil {
		return nil, fmt.Errorf("scene reader is required")
	}

	if cfg.PageSize <= 0 {
		return nil, fmt.Errorf("page size must be positive (got %d)", cfg.PageSize)
	}

	logger := log.With().Str("component", "extractor").Logger()

	return &Extractor{
		reader: reader,
		config: cfg,
		logger: logger,
	}, nil
}

// Run fetches every catalog page in order and returns one SceneMetadata per
// scene, in server order, minus any scenes skipped under SkipMalformed.
// An empty catalog yields a nil slice and no error. Fetch failures abort the
// run immediately with no partial result.
func (e *Extractor) Run(ctx context.Context) ([]SceneMetadata, error) {
	startTime := time.Now()
	defer func() {
		exportRunDuration.Observe(time.Since(startTime).Seconds())
	}()

	var (
		total   int
		results []SceneMetadata
	)

	for page := 1; ; page++ {
		scenes, count, err := e.reader.FindScenes(ctx, e.config.PageSize, page)
		if err != nil {
			return nil, fmt.Errorf("fetch page %d: %w", page, err)
		}
		exportPagesTotal.Inc()

		if page == 1 {
			// The count from page 1 is frozen for the rest of the run.
			total = count
			e.logger.Info().Int("total", total).Msg("Found scenes")
			if total == 0 {
				return nil, nil
			}
		} else if count != total {
			return nil, fmt.Errorf("page %d reported %d scenes, expected %d: %w",
				page, count, total, ErrCountChanged)
		}

		if len(scenes) == 0 {
			return nil, fmt.Errorf("page %d with %d of %d scenes processed: %w",
				page, len(results), total, ErrShortPage)
		}

		processed := e.config.PageSize * (page - 1)
		e.logger.Info().
			Int("page", page).
			Int("scenes", len(scenes)).
			Int("processed", processed).
			Msg("Processing page")

		for _, raw := range scenes {
			meta, err := NormalizeScene(raw)
			if err != nil {
				var malformed *MalformedSceneError
				if errors.As(err, &malformed) && e.config.Malformed == SkipMalformed {
					exportScenesSkippedTotal.Inc()
					e.logger.Warn().
						Str("scene_id", malformed.ID).
						Str("reason", malformed.Reason).
						Msg("Skipping malformed scene")
					processed++
					e.emitProgress(processed, total)
					continue
				}
				return nil, fmt.Errorf("normalize scene on page %d: %w", page, err)
			}

			results = append(results, meta)
			exportScenesTotal.Inc()
			processed++
			e.emitProgress(processed, total)
		}

		// Termination is driven by the frozen total, not page length:
		// a short final page is fine, the count says when we are done.
		if e.config.PageSize*page >= total {
			break
		}
	}

	e.logger.Info().
		Int("scenes", len(results)).
		Dur("duration", time.Since(startTime)).
		Msg("Extraction complete")

	return results, nil
}

// emitProgress reports the completed fraction, clamped to [0, 1].
func (e *Extractor) emitProgress(processed, total int) {
	if e.config.Progress == nil || total <= 0 {
		return
	}

	fraction := float64(processed) / float64(total)
	if fraction > 1 {
		fraction = 1
	}
	e.config.Progress(fraction)
}
