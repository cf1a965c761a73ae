// Package pager holds the paginated leaderboard list state and decides when a
// page must be fetched and how its result is merged.
//
// The Pager performs no I/O. Each event that needs data returns a Request; the
// owner performs it and reports the outcome through Resolve. Only the most
// recently issued request is ever applied.
package pager

import (
	"slices"

	"github.com/stilln0thing/Matiks-Assignment/internal/models"
)

// PageSize is the number of users requested per page
const PageSize = 50

type Phase int

const (
	Idle Phase = iota
	InitialLoading
	Refreshing
	LoadingMore
	Error
)

func (p Phase) String() string {
	switch p {
	case Idle:
		return "idle"
	case InitialLoading:
		return "initial_loading"
	case Refreshing:
		return "refreshing"
	case LoadingMore:
		return "loading_more"
	case Error:
		return "error"
	default:
		return "unknown"
	}
}

// Kind says how a fetched page is merged into the list
type Kind int

const (
	KindInitial Kind = iota
	KindRefresh
	KindMore
)

// Request is a page fetch the owner must perform
type Request struct {
	Seq    uint64
	Kind   Kind
	Limit  int
	Offset int
}

// State is a snapshot of the list. Items are in ascending rank order.
type State struct {
	Items     []models.RankedUser
	Total     int64
	Phase     Phase
	LastError string
}

type Pager struct {
	pageSize int
	state    State
	seq      uint64
	inflight uint64 // seq of the outstanding request, 0 when none
}

// New creates a pager; a non-positive pageSize falls back to PageSize
func New(pageSize int) *Pager {
	if pageSize <= 0 {
		pageSize = PageSize
	}
	return &Pager{pageSize: pageSize}
}

// Mount starts a fresh list and always requests the first page
func (p *Pager) Mount() Request {
	p.state = State{Phase: InitialLoading}
	return p.issue(KindInitial, 0)
}

// Refresh reloads the first page. It is ignored while the initial load or
// another refresh is outstanding. A pending load-more is superseded.
func (p *Pager) Refresh() (Request, bool) {
	switch p.state.Phase {
	case InitialLoading, Refreshing:
		return Request{}, false
	}
	p.state.Phase = Refreshing
	return p.issue(KindRefresh, 0), true
}

// ScrollNearEnd requests the next page unless a fetch is outstanding or every
// known user is already loaded.
func (p *Pager) ScrollNearEnd() (Request, bool) {
	switch p.state.Phase {
	case InitialLoading, Refreshing, LoadingMore:
		return Request{}, false
	}
	if !p.HasMore() {
		return Request{}, false
	}
	p.state.Phase = LoadingMore
	return p.issue(KindMore, len(p.state.Items)), true
}

// Resolve applies the outcome of req. It reports false when req was
// superseded or already resolved, in which case nothing changes.
func (p *Pager) Resolve(req Request, page *models.Page, err error) bool {
	if req.Seq == 0 || req.Seq != p.inflight {
		return false
	}
	p.inflight = 0

	if err != nil || page == nil {
		p.state.Phase = Error
		p.state.LastError = errorMessage(err)
		return true
	}

	switch req.Kind {
	case KindMore:
		p.state.Items = append(p.state.Items, page.Users...)
	default:
		p.state.Items = slices.Clone(page.Users)
	}
	if p.state.Items == nil {
		p.state.Items = []models.RankedUser{}
	}
	p.state.Total = page.Total
	p.state.Phase = Idle
	p.state.LastError = ""
	return true
}

// HasMore reports whether the service knows of users not yet loaded
func (p *Pager) HasMore() bool {
	return int64(len(p.state.Items)) < p.state.Total
}

// Pending reports whether a request is outstanding
func (p *Pager) Pending() bool {
	return p.inflight != 0
}

// State returns a copy of the current state
func (p *Pager) State() State {
	s := p.state
	s.Items = slices.Clone(p.state.Items)
	return s
}

func (p *Pager) issue(kind Kind, offset int) Request {
	p.seq++
	p.inflight = p.seq
	return Request{Seq: p.seq, Kind: kind, Limit: p.pageSize, Offset: offset}
}

func errorMessage(err error) string {
	if err == nil {
		return "failed to load leaderboard"
	}
	return "failed to load leaderboard: " + err.Error()
}
