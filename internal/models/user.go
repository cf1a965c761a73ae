package models

// RankedUser is a snapshot of one user's position on the leaderboard.
// Values are owned by the ranking service and never mutated locally.
type RankedUser struct {
	Rank     int64  `json:"rank"`
	ID       int64  `json:"id"`
	Username string `json:"username"`
	Rating   int    `json:"rating"`
}

// Page is one offset/limit slice of the leaderboard ordered by ascending rank
type Page struct {
	Users  []RankedUser `json:"users"`
	Total  int64        `json:"total"`
	Limit  int          `json:"limit"`
	Offset int          `json:"offset"`
}

// SearchResult is the response to a username search
type SearchResult struct {
	Users []RankedUser `json:"users"`
	Count int          `json:"count"`
}

// Rating bounds enforced by the ranking service
const (
	MinRating = 100
	MaxRating = 5000
)

// RatingUpdate is the body of a rating write
type RatingUpdate struct {
	UserID int64 `json:"user_id" validate:"required,gt=0"`
	Rating int   `json:"rating" validate:"required,min=100,max=5000"`
}
