package main

import (
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/stilln0thing/Matiks-Assignment/internal/models"
	"github.com/stilln0thing/Matiks-Assignment/internal/pager"
	"github.com/stilln0thing/Matiks-Assignment/internal/screens"
	"github.com/stilln0thing/Matiks-Assignment/internal/search"
)

type renderer struct {
	mu       sync.Mutex
	w        io.Writer
	rendered int    // leaderboard rows already printed
	lastKey  string // last search outcome printed
}

func newRenderer(w io.Writer) *renderer {
	return &renderer{w: w}
}

func (r *renderer) printf(format string, args ...any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	fmt.Fprintf(r.w, format, args...)
}

func (r *renderer) help() {
	r.printf("commands: more | refresh | /<text> to search | rank <id> | quit\n")
}

func (r *renderer) run(ctx context.Context, board <-chan screens.LeaderboardSnapshot, finder <-chan screens.SearchSnapshot) {
	for board != nil || finder != nil {
		select {
		case <-ctx.Done():
			return
		case snap, ok := <-board:
			if !ok {
				board = nil
				continue
			}
			r.leaderboard(snap.State)
		case snap, ok := <-finder:
			if !ok {
				finder = nil
				continue
			}
			r.search(snap.State)
		}
	}
}

func (r *renderer) leaderboard(s pager.State) {
	r.mu.Lock()
	defer r.mu.Unlock()

	switch s.Phase {
	case pager.InitialLoading:
		fmt.Fprintln(r.w, "Loading leaderboard...")
		return
	case pager.Refreshing:
		r.rendered = 0
		fmt.Fprintln(r.w, "Refreshing...")
		return
	case pager.LoadingMore:
		fmt.Fprintln(r.w, "Loading more...")
		return
	case pager.Error:
		fmt.Fprintf(r.w, "Error: %s\n", s.LastError)
		return
	}

	if r.rendered == 0 {
		fmt.Fprintf(r.w, "Leaderboard: %d players competing\n", s.Total)
		if len(s.Items) == 0 {
			fmt.Fprintln(r.w, "No players yet")
		}
	}
	for _, u := range s.Items[r.rendered:] {
		fmt.Fprintln(r.w, row(u))
	}
	r.rendered = len(s.Items)
}

func (r *renderer) search(s search.State) {
	r.mu.Lock()
	defer r.mu.Unlock()

	// Keystrokes publish too; only print settled outcomes, once each
	key := fmt.Sprintf("%s|%s|%d|%t", s.DebouncedQuery, s.Phase, len(s.Results), s.HasSearchedAtLeastOnce)
	if s.Query != s.DebouncedQuery || key == r.lastKey {
		return
	}
	r.lastKey = key

	switch {
	case s.Phase == search.Searching:
		fmt.Fprintln(r.w, "Searching...")
	case s.Phase == search.Error:
		fmt.Fprintf(r.w, "Error: %s\n", s.LastError)
	case s.Status() == search.StatusHint:
		fmt.Fprintln(r.w, "Search for players by username")
	case s.Status() == search.StatusNoResults:
		fmt.Fprintf(r.w, "No players found for %q\n", s.DebouncedQuery)
	default:
		suffix := "s"
		if len(s.Results) == 1 {
			suffix = ""
		}
		fmt.Fprintf(r.w, "%d result%s found for %q\n", len(s.Results), suffix, s.DebouncedQuery)
		for _, u := range s.Results {
			fmt.Fprintln(r.w, row(u))
		}
	}
}

func row(u models.RankedUser) string {
	return fmt.Sprintf("  #%-6d %-24s %5d", u.Rank, u.Username, u.Rating)
}
