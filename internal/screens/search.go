package screens

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/stilln0thing/Matiks-Assignment/internal/models"
	"github.com/stilln0thing/Matiks-Assignment/internal/search"
)

// Searcher runs one username search
type Searcher interface {
	Search(ctx context.Context, text string) (*models.SearchResult, error)
}

type SearchSnapshot = Snapshot[search.State]

type searchMsg interface{ isSearchMsg() }

type queryChangedMsg struct{ text string }
type timerFiredMsg struct{ gen uint64 }
type searchDoneMsg struct {
	req    search.Request
	result *models.SearchResult
	err    error
}
type subscribeSearchMsg struct {
	ch    chan SearchSnapshot
	reply chan int
}
type unsubscribeSearchMsg struct{ id int }
type searchStateMsg struct{ reply chan SearchSnapshot }

func (queryChangedMsg) isSearchMsg()      {}
func (timerFiredMsg) isSearchMsg()        {}
func (searchDoneMsg) isSearchMsg()        {}
func (subscribeSearchMsg) isSearchMsg()   {}
func (unsubscribeSearchMsg) isSearchMsg() {}
func (searchStateMsg) isSearchMsg()       {}

// Search owns one debouncer for as long as the search view is mounted.
// At most one debounce timer is armed at a time; every keystroke stops it.
type Search struct {
	inbox     chan searchMsg
	searcher  Searcher
	debouncer *search.Debouncer
	timer     *time.Timer
	version   int
	subs      *subscribers[search.State]
	logger    *slog.Logger

	ctx     context.Context
	cancel  context.CancelFunc
	done    chan struct{}
	workers sync.WaitGroup
}

// MountSearch starts the search screen with an empty query
func MountSearch(parent context.Context, searcher Searcher, debounce time.Duration, logger *slog.Logger) *Search {
	ctx, cancel := context.WithCancel(parent)

	s := &Search{
		inbox:     make(chan searchMsg, 64),
		searcher:  searcher,
		debouncer: search.New(debounce),
		subs:      newSubscribers[search.State](),
		logger:    logger.With(slog.String("screen", "search")),
		ctx:       ctx,
		cancel:    cancel,
		done:      make(chan struct{}),
	}

	go s.loop()
	return s
}

// QueryChanged is one edit of the search field
func (s *Search) QueryChanged(text string) { s.post(queryChangedMsg{text: text}) }

// Subscribe behaves like Leaderboard.Subscribe
func (s *Search) Subscribe(buffer int) (<-chan SearchSnapshot, func()) {
	ch := make(chan SearchSnapshot, max(buffer, 1))
	reply := make(chan int, 1)
	if !s.post(subscribeSearchMsg{ch: ch, reply: reply}) {
		close(ch)
		return ch, func() {}
	}

	var id int
	select {
	case id = <-reply:
	case <-s.done:
		select {
		case <-reply:
		default:
			close(ch)
		}
		return ch, func() {}
	}
	return ch, func() { s.post(unsubscribeSearchMsg{id: id}) }
}

// State returns the current snapshot
func (s *Search) State(ctx context.Context) (SearchSnapshot, error) {
	reply := make(chan SearchSnapshot, 1)
	if !s.post(searchStateMsg{reply: reply}) {
		return SearchSnapshot{}, ErrClosed
	}
	select {
	case snap := <-reply:
		return snap, nil
	case <-s.done:
		return SearchSnapshot{}, ErrClosed
	case <-ctx.Done():
		return SearchSnapshot{}, ctx.Err()
	}
}

// Close unmounts the screen, stopping the debounce timer and any search
func (s *Search) Close() {
	s.cancel()
	<-s.done
	s.workers.Wait()
}

func (s *Search) post(m searchMsg) bool {
	select {
	case <-s.ctx.Done():
		return false
	default:
	}
	select {
	case s.inbox <- m:
		return true
	case <-s.ctx.Done():
		return false
	}
}

func (s *Search) loop() {
	defer close(s.done)
	defer s.subs.closeAll()
	defer s.stopTimer()

	for {
		select {
		case <-s.ctx.Done():
			return

		case m := <-s.inbox:
			switch msg := m.(type) {
			case queryChangedMsg:
				s.stopTimer()
				t := s.debouncer.QueryChanged(msg.text)
				s.timer = time.AfterFunc(t.Delay, func() {
					s.post(timerFiredMsg{gen: t.Gen})
				})
				s.publish()

			case timerFiredMsg:
				// A timer stopped too late may still deliver; only the latest counts
				if !s.debouncer.IsCurrent(msg.gen) {
					break
				}
				if req, ok := s.debouncer.TimerFired(msg.gen); ok {
					s.run(req)
				}
				s.publish()

			case searchDoneMsg:
				if !s.debouncer.Resolve(msg.req, msg.result, msg.err) {
					s.logger.Debug("discarded superseded search", slog.Uint64("seq", msg.req.Seq))
					break
				}
				if msg.err != nil {
					s.logger.Warn("search failed", slog.Any("error", msg.err))
				}
				s.publish()

			case subscribeSearchMsg:
				msg.reply <- s.subs.add(msg.ch)
				msg.ch <- s.snapshot()

			case unsubscribeSearchMsg:
				s.subs.remove(msg.id)

			case searchStateMsg:
				msg.reply <- s.snapshot()
			}
		}
	}
}

// run performs req off the loop and posts the outcome back
func (s *Search) run(req search.Request) {
	s.workers.Add(1)
	go func() {
		defer s.workers.Done()
		result, err := s.searcher.Search(s.ctx, req.Text)
		s.post(searchDoneMsg{req: req, result: result, err: err})
	}()
}

func (s *Search) stopTimer() {
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
}

func (s *Search) publish() {
	s.version++
	s.subs.broadcast(s.snapshot())
}

func (s *Search) snapshot() SearchSnapshot {
	return SearchSnapshot{Version: s.version, State: s.debouncer.State()}
}
