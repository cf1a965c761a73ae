package background

import (
	"context"
	"log/slog"
	"math/rand"
	"time"

	"github.com/stilln0thing/Matiks-Assignment/internal/models"
)

// sampleLimit is the largest page the ranking service will return
const sampleLimit = 100

// maxDelta bounds a single simulated rating change in either direction
const maxDelta = 100

// UserSource lists ranked users to pick simulation targets from
type UserSource interface {
	FetchPage(ctx context.Context, limit, offset int) (*models.Page, error)
}

// RatingWriter writes a new rating for a user
type RatingWriter interface {
	UpdateRating(ctx context.Context, userID int64, rating int) error
}

// RatingSimulator periodically nudges random users' ratings so a demo
// leaderboard moves between refreshes
type RatingSimulator struct {
	source    UserSource
	writer    RatingWriter
	logger    *slog.Logger
	interval  time.Duration
	batchSize int
	rnd       *rand.Rand
	stopCh    chan struct{}
}

// NewRatingSimulator creates a new rating simulator. rnd may be nil.
func NewRatingSimulator(
	source UserSource,
	writer RatingWriter,
	logger *slog.Logger,
	interval time.Duration,
	batchSize int,
	rnd *rand.Rand,
) *RatingSimulator {
	if rnd == nil {
		rnd = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return &RatingSimulator{
		source:    source,
		writer:    writer,
		logger:    logger,
		interval:  interval,
		batchSize: batchSize,
		rnd:       rnd,
		stopCh:    make(chan struct{}),
	}
}

// Start runs the simulation until Stop is called or ctx is cancelled
func (rs *RatingSimulator) Start(ctx context.Context) {
	ticker := time.NewTicker(rs.interval)
	defer ticker.Stop()

	rs.logger.Info("rating simulator started",
		slog.Int("batch_size", rs.batchSize),
		slog.String("interval", rs.interval.String()))

	for {
		select {
		case <-ticker.C:
			rs.RunOnce(ctx)
		case <-rs.stopCh:
			rs.logger.Info("rating simulator stopped")
			return
		case <-ctx.Done():
			rs.logger.Info("rating simulator context cancelled")
			return
		}
	}
}

// RunOnce updates up to batchSize random users and returns how many writes succeeded
func (rs *RatingSimulator) RunOnce(ctx context.Context) int {
	runCtx, cancel := context.WithTimeout(ctx, rs.interval+10*time.Second)
	defer cancel()

	page, err := rs.source.FetchPage(runCtx, sampleLimit, 0)
	if err != nil {
		rs.logger.Error("failed to sample users", slog.Any("error", err))
		return 0
	}
	if len(page.Users) == 0 {
		return 0
	}

	picks := rs.rnd.Perm(len(page.Users))
	if len(picks) > rs.batchSize {
		picks = picks[:rs.batchSize]
	}

	updated := 0
	for _, i := range picks {
		u := page.Users[i]
		rating := Nudge(u.Rating, rs.rnd.Intn(2*maxDelta+1)-maxDelta)
		if err := rs.writer.UpdateRating(runCtx, u.ID, rating); err != nil {
			rs.logger.Warn("failed to update rating",
				slog.Int64("user_id", u.ID),
				slog.Any("error", err))
			continue
		}
		updated++
	}

	if updated > 0 {
		rs.logger.Debug("simulated rating changes", slog.Int("updated", updated))
	}
	return updated
}

// Stop signals the simulator to stop
func (rs *RatingSimulator) Stop() {
	close(rs.stopCh)
}

// Nudge applies delta to rating and clamps the result to the service's bounds
func Nudge(rating, delta int) int {
	return min(max(rating+delta, models.MinRating), models.MaxRating)
}
