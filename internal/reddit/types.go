package reddit

import "encoding/json"

// Listing categories accepted by the Reddit API for subreddit listings.
const (
	CategoryHot           = "hot"
	CategoryNew           = "new"
	CategoryTop           = "top"
	CategoryRising        = "rising"
	CategoryControversial = "controversial"
)

// ValidCategory reports whether c is a listing category this client supports.
func ValidCategory(c string) bool {
	switch c {
	case CategoryHot, CategoryNew, CategoryTop, CategoryRising, CategoryControversial:
		return true
	}
	return false
}

// tokenResponse is the OAuth2 client-credentials grant response.
type tokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int    `json:"expires_in"`
}

// thing is Reddit's generic kind/data envelope. Data stays raw because its
// shape depends on kind ("t1" comment, "t3" submission, "Listing").
type thing struct {
	Kind string          `json:"kind"`
	Data json.RawMessage `json:"data"`
}

// listing wraps a page of things.
type listing struct {
	After    string  `json:"after"`
	Children []thing `json:"children"`
}

// submissionData is the subset of a t3 submission the service uses.
type submissionData struct {
	ID         string  `json:"id"`
	Title      string  `json:"title"`
	Selftext   string  `json:"selftext"`
	Author     string  `json:"author"`
	Subreddit  string  `json:"subreddit"`
	Ups        int     `json:"ups"`
	Score      int     `json:"score"`
	CreatedUTC float64 `json:"created_utc"`
}

// commentData is the subset of a t1 comment the service uses. Replies is kept
// raw: Reddit sends a nested listing when replies exist and the empty string
// when they don't.
type commentData struct {
	Body    string          `json:"body"`
	Author  string          `json:"author"`
	Replies json.RawMessage `json:"replies"`
}
