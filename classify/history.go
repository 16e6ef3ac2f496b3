package classify

import (
	"fmt"
	"time"
)

// HistoryItem is a single browsing history entry
type HistoryItem struct {
	URL         string    `json:"url"`
	Title       *string   `json:"title,omitempty"`
	VisitCount  int64     `json:"visit_count"`
	LastVisited time.Time `json:"last_visited"`
}

// DisplayTitle returns the title, falling back to the URL when it is missing
func (h HistoryItem) DisplayTitle() string {
	if h.Title == nil || *h.Title == "" {
		return h.URL
	}
	return *h.Title
}

// EmbeddingText builds the text sent to the embedder for this item.
// The "query: " prefix is what e5 style embedding models expect.
func (h HistoryItem) EmbeddingText() string {
	title := ""
	if h.Title != nil {
		title = *h.Title
	}
	return fmt.Sprintf("query: %s %s", title, h.URL)
}
