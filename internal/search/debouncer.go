// Package search holds the username search state: the live query text, the
// debounce timer generation and the results of the latest completed search.
//
// Like the pager, the Debouncer performs no I/O and owns no real timer. The
// owner arms a timer for every Timer returned by QueryChanged, reports it via
// TimerFired, performs the returned Request and reports the outcome via Resolve.
package search

import (
	"slices"
	"strings"
	"time"

	"github.com/stilln0thing/Matiks-Assignment/internal/models"
)

// DebounceInterval is the quiet period after the last keystroke before searching
const DebounceInterval = 300 * time.Millisecond

type Phase int

const (
	Idle Phase = iota
	Searching
	Error
)

func (p Phase) String() string {
	switch p {
	case Idle:
		return "idle"
	case Searching:
		return "searching"
	case Error:
		return "error"
	default:
		return "unknown"
	}
}

// Timer asks the owner to call TimerFired(Gen) after Delay
type Timer struct {
	Gen   uint64
	Delay time.Duration
}

// Request is a search the owner must perform
type Request struct {
	Seq  uint64
	Text string
}

type State struct {
	Query                  string
	DebouncedQuery         string
	Results                []models.RankedUser
	Phase                  Phase
	HasSearchedAtLeastOnce bool
	LastError              string
}

type Debouncer struct {
	interval time.Duration
	state    State
	gen      uint64
	seq      uint64
	inflight uint64
}

// New creates a debouncer; a non-positive interval falls back to DebounceInterval
func New(interval time.Duration) *Debouncer {
	if interval <= 0 {
		interval = DebounceInterval
	}
	return &Debouncer{
		interval: interval,
		state:    State{Results: []models.RankedUser{}},
	}
}

// QueryChanged records the new text immediately and restarts the debounce.
// Every previously returned Timer is dead from this point on.
func (d *Debouncer) QueryChanged(text string) Timer {
	d.state.Query = text
	d.gen++
	return Timer{Gen: d.gen, Delay: d.interval}
}

// IsCurrent reports whether gen belongs to the latest QueryChanged
func (d *Debouncer) IsCurrent(gen uint64) bool {
	return gen == d.gen
}

// TimerFired commits the query if gen is the latest timer. A blank query
// clears the results without a request and abandons any in-flight search.
func (d *Debouncer) TimerFired(gen uint64) (Request, bool) {
	if gen != d.gen {
		return Request{}, false
	}
	d.state.DebouncedQuery = d.state.Query

	d.seq++
	if strings.TrimSpace(d.state.Query) == "" {
		d.inflight = 0
		d.state.Results = []models.RankedUser{}
		d.state.HasSearchedAtLeastOnce = false
		d.state.Phase = Idle
		d.state.LastError = ""
		return Request{}, false
	}

	d.inflight = d.seq
	d.state.Phase = Searching
	return Request{Seq: d.seq, Text: d.state.Query}, true
}

// Resolve applies a search outcome unless a newer search was issued since.
func (d *Debouncer) Resolve(req Request, result *models.SearchResult, err error) bool {
	if req.Seq == 0 || req.Seq != d.inflight {
		return false
	}
	d.inflight = 0

	if err != nil || result == nil {
		d.state.Phase = Error
		d.state.LastError = errorMessage(err)
		return true
	}

	d.state.Results = slices.Clone(result.Users)
	if d.state.Results == nil {
		d.state.Results = []models.RankedUser{}
	}
	d.state.HasSearchedAtLeastOnce = true
	d.state.Phase = Idle
	d.state.LastError = ""
	return true
}

// Pending reports whether a search is outstanding
func (d *Debouncer) Pending() bool {
	return d.inflight != 0
}

// State returns a copy of the current state
func (d *Debouncer) State() State {
	s := d.state
	s.Results = slices.Clone(d.state.Results)
	return s
}

func errorMessage(err error) string {
	if err == nil {
		return "search failed"
	}
	return "search failed: " + err.Error()
}
