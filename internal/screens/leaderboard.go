package screens

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/stilln0thing/Matiks-Assignment/internal/models"
	"github.com/stilln0thing/Matiks-Assignment/internal/pager"
)

// ErrClosed is returned by screen calls made after Close
var ErrClosed = errors.New("screen closed")

// PageFetcher loads one page of the leaderboard
type PageFetcher interface {
	FetchPage(ctx context.Context, limit, offset int) (*models.Page, error)
}

type LeaderboardSnapshot = Snapshot[pager.State]

type leaderboardMsg interface{ isLeaderboardMsg() }

type refreshMsg struct{}
type scrollNearEndMsg struct{}
type pageLoadedMsg struct {
	req  pager.Request
	page *models.Page
	err  error
}
type subscribeLeaderboardMsg struct {
	ch    chan LeaderboardSnapshot
	reply chan int
}
type unsubscribeLeaderboardMsg struct{ id int }
type leaderboardStateMsg struct{ reply chan LeaderboardSnapshot }

func (refreshMsg) isLeaderboardMsg()                {}
func (scrollNearEndMsg) isLeaderboardMsg()          {}
func (pageLoadedMsg) isLeaderboardMsg()             {}
func (subscribeLeaderboardMsg) isLeaderboardMsg()   {}
func (unsubscribeLeaderboardMsg) isLeaderboardMsg() {}
func (leaderboardStateMsg) isLeaderboardMsg()       {}

// Leaderboard owns one pager for as long as the leaderboard view is mounted.
// All state lives on the loop goroutine; fetches run on their own goroutines
// and report back through the inbox.
type Leaderboard struct {
	inbox   chan leaderboardMsg
	fetcher PageFetcher
	pager   *pager.Pager
	version int
	subs    *subscribers[pager.State]
	logger  *slog.Logger

	ctx     context.Context
	cancel  context.CancelFunc
	done    chan struct{}
	workers sync.WaitGroup
}

// MountLeaderboard starts the screen and immediately requests the first page
func MountLeaderboard(parent context.Context, fetcher PageFetcher, pageSize int, logger *slog.Logger) *Leaderboard {
	ctx, cancel := context.WithCancel(parent)

	l := &Leaderboard{
		inbox:   make(chan leaderboardMsg, 16),
		fetcher: fetcher,
		pager:   pager.New(pageSize),
		subs:    newSubscribers[pager.State](),
		logger:  logger.With(slog.String("screen", "leaderboard")),
		ctx:     ctx,
		cancel:  cancel,
		done:    make(chan struct{}),
	}

	l.fetch(l.pager.Mount())
	go l.loop()
	return l
}

// Refresh is the pull-to-refresh gesture
func (l *Leaderboard) Refresh() { l.post(refreshMsg{}) }

// ScrollNearEnd signals that the list was scrolled close to its last item
func (l *Leaderboard) ScrollNearEnd() { l.post(scrollNearEndMsg{}) }

// Subscribe returns a channel that receives the current snapshot followed by
// every later one. A subscriber that falls buffer snapshots behind is dropped
// and its channel closed. The returned func unsubscribes.
func (l *Leaderboard) Subscribe(buffer int) (<-chan LeaderboardSnapshot, func()) {
	ch := make(chan LeaderboardSnapshot, max(buffer, 1))
	reply := make(chan int, 1)
	if !l.post(subscribeLeaderboardMsg{ch: ch, reply: reply}) {
		close(ch)
		return ch, func() {}
	}

	var id int
	select {
	case id = <-reply:
	case <-l.done:
		select {
		case <-reply:
			// registered before shutdown, already closed by the loop
		default:
			close(ch)
		}
		return ch, func() {}
	}
	return ch, func() { l.post(unsubscribeLeaderboardMsg{id: id}) }
}

// State returns the current snapshot
func (l *Leaderboard) State(ctx context.Context) (LeaderboardSnapshot, error) {
	reply := make(chan LeaderboardSnapshot, 1)
	if !l.post(leaderboardStateMsg{reply: reply}) {
		return LeaderboardSnapshot{}, ErrClosed
	}
	select {
	case snap := <-reply:
		return snap, nil
	case <-l.done:
		return LeaderboardSnapshot{}, ErrClosed
	case <-ctx.Done():
		return LeaderboardSnapshot{}, ctx.Err()
	}
}

// Close unmounts the screen: in-flight fetches are cancelled, state is
// discarded and subscriber channels are closed.
func (l *Leaderboard) Close() {
	l.cancel()
	<-l.done
	l.workers.Wait()
}

func (l *Leaderboard) post(m leaderboardMsg) bool {
	select {
	case <-l.ctx.Done():
		return false
	default:
	}
	select {
	case l.inbox <- m:
		return true
	case <-l.ctx.Done():
		return false
	}
}

func (l *Leaderboard) loop() {
	defer close(l.done)
	defer l.subs.closeAll()

	for {
		select {
		case <-l.ctx.Done():
			return

		case m := <-l.inbox:
			switch msg := m.(type) {
			case refreshMsg:
				if req, ok := l.pager.Refresh(); ok {
					l.fetch(req)
					l.publish()
				}

			case scrollNearEndMsg:
				if req, ok := l.pager.ScrollNearEnd(); ok {
					l.fetch(req)
					l.publish()
				}

			case pageLoadedMsg:
				if !l.pager.Resolve(msg.req, msg.page, msg.err) {
					l.logger.Debug("discarded superseded page", slog.Uint64("seq", msg.req.Seq))
					break
				}
				if msg.err != nil {
					l.logger.Warn("leaderboard fetch failed",
						slog.Int("offset", msg.req.Offset),
						slog.Any("error", msg.err))
				}
				l.publish()

			case subscribeLeaderboardMsg:
				msg.reply <- l.subs.add(msg.ch)
				msg.ch <- l.snapshot()

			case unsubscribeLeaderboardMsg:
				l.subs.remove(msg.id)

			case leaderboardStateMsg:
				msg.reply <- l.snapshot()
			}
		}
	}
}

// fetch performs req off the loop and posts the outcome back
func (l *Leaderboard) fetch(req pager.Request) {
	l.workers.Add(1)
	go func() {
		defer l.workers.Done()
		page, err := l.fetcher.FetchPage(l.ctx, req.Limit, req.Offset)
		l.post(pageLoadedMsg{req: req, page: page, err: err})
	}()
}

func (l *Leaderboard) publish() {
	l.version++
	l.subs.broadcast(l.snapshot())
}

func (l *Leaderboard) snapshot() LeaderboardSnapshot {
	return LeaderboardSnapshot{Version: l.version, State: l.pager.State()}
}
