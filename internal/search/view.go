package search

// Status is what the search screen shows in place of, or above, the result list
type Status int

const (
	StatusHint      Status = iota // nothing searched yet
	StatusSearching               // request outstanding and nothing to show
	StatusError                   // last search failed and nothing to show
	StatusNoResults               // a search completed with zero matches
	StatusResults
)

func (s Status) String() string {
	switch s {
	case StatusHint:
		return "hint"
	case StatusSearching:
		return "searching"
	case StatusError:
		return "error"
	case StatusNoResults:
		return "no_results"
	case StatusResults:
		return "results"
	default:
		return "unknown"
	}
}

// Status derives the screen status. Existing results always stay visible,
// even while a newer search runs or after it fails.
func (s State) Status() Status {
	if len(s.Results) > 0 {
		return StatusResults
	}
	switch {
	case s.Phase == Searching:
		return StatusSearching
	case s.Phase == Error:
		return StatusError
	case !s.HasSearchedAtLeastOnce:
		return StatusHint
	default:
		return StatusNoResults
	}
}
