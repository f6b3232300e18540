// Package post defines the Reddit post record exchanged between the Reddit
// client, the RAG pipeline, and the HTTP layer.
package post

import (
	"fmt"
	"strings"
)

// Post is the service's view of a Reddit submission. Listing endpoints fill
// only the summary fields; fetching a single post also fills Body and
// Comments. Optional fields are omitted from JSON when absent.
type Post struct {
	ID       string   `json:"post_id"`
	Title    string   `json:"title"`
	Upvotes  *int     `json:"upvotes,omitempty"`
	Username string   `json:"username,omitempty"`
	Body     string   `json:"body,omitempty"`
	Comments []string `json:"comments,omitempty"`
}

// Content assembles the text that gets chunked and embedded: title, body,
// and all comments in one block.
func (p *Post) Content() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Title: %s\n", p.Title)
	fmt.Fprintf(&b, "Body: %s\n", p.Body)
	fmt.Fprintf(&b, "Comments: %s", strings.Join(p.Comments, " "))
	return b.String()
}

// UpvoteCount returns the upvote count, or 0 when unknown.
func (p *Post) UpvoteCount() int {
	if p.Upvotes == nil {
		return 0
	}
	return *p.Upvotes
}
