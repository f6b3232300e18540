package api

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/threadlens/threadlens/internal/log"
	"github.com/threadlens/threadlens/internal/post"
	"github.com/threadlens/threadlens/internal/reddit"
)

type postHandler struct {
	posts    PostSource
	pipeline Pipeline
	logger   log.Logger
}

// list handles GET /reddit/posts. Categories are comma-separated and each
// category contributes up to limit posts.
func (h *postHandler) list(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	subreddit := q.Get("subreddit")
	if subreddit == "" {
		subreddit = DefaultSubreddit
	}

	categoriesParam := q.Get("categories")
	if categoriesParam == "" {
		categoriesParam = DefaultCategory
	}
	var categories []string
	for _, c := range strings.Split(categoriesParam, ",") {
		c = strings.TrimSpace(c)
		if c == "" {
			continue
		}
		if !reddit.ValidCategory(c) {
			writeError(w, h.logger, http.StatusBadRequest, codeInvalidRequest,
				fmt.Sprintf("unknown listing category %q", c))
			return
		}
		categories = append(categories, c)
	}
	if len(categories) == 0 {
		categories = []string{DefaultCategory}
	}

	limit := DefaultLimit
	if raw := q.Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			writeError(w, h.logger, http.StatusBadRequest, codeInvalidRequest,
				"limit must be an integer")
			return
		}
		limit = n
	}
	if limit < 1 {
		limit = 1
	}
	if limit > reddit.MaxListingLimit {
		limit = reddit.MaxListingLimit
	}

	posts := make([]post.Post, 0, limit*len(categories))
	for _, category := range categories {
		page, err := h.posts.ListPosts(r.Context(), subreddit, category, limit)
		if err != nil {
			h.logger.Error("listing posts", "subreddit", subreddit, "category", category, "error", err)
			writeError(w, h.logger, http.StatusBadGateway, codeUpstreamError,
				"fetching posts from Reddit failed")
			return
		}
		posts = append(posts, page...)
	}

	writeJSON(w, h.logger, http.StatusOK, posts)
}

// get handles GET /reddit/post. The post is fetched with its full comment
// tree, re-indexed into the vector store, and returned.
func (h *postHandler) get(w http.ResponseWriter, r *http.Request) {
	postID := r.URL.Query().Get("post_id")
	if postID == "" {
		writeError(w, h.logger, http.StatusBadRequest, codeInvalidRequest, "post_id is required")
		return
	}

	p, err := h.posts.FetchPost(r.Context(), postID)
	if err != nil {
		h.logger.Error("fetching post", "post_id", postID, "error", err)
		writeError(w, h.logger, http.StatusBadGateway, codeUpstreamError,
			"fetching post from Reddit failed")
		return
	}

	chunks, err := h.pipeline.IndexPost(r.Context(), p)
	if err != nil {
		h.logger.Error("indexing post", "post_id", postID, "error", err)
		writeError(w, h.logger, http.StatusBadGateway, codeUpstreamError,
			"indexing post failed")
		return
	}
	h.logger.Info("post ready for chat", "post_id", postID, "chunks", chunks)

	writeJSON(w, h.logger, http.StatusOK, p)
}
