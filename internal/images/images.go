// Package images resolves placeholder picture URLs for quiz items. The URLs
// are cosmetic: a failed lookup never changes what the learner can answer.
package images

import (
	"context"
	"net/url"
	"strings"

	"github.com/abhisek/cardquiz/internal/content"
	"github.com/abhisek/cardquiz/internal/logger"
)

const placeholderBase = "https://source.unsplash.com/400x300/?"

// maxKeywords is how many description words go into a URL.
const maxKeywords = 3

var stopWords = map[string]bool{
	"a": true, "an": true, "the": true, "is": true, "are": true, "in": true,
	"on": true, "at": true, "to": true, "for": true, "with": true, "very": true,
}

// Keywords picks up to three meaningful words from a description.
func Keywords(description string) []string {
	var out []string
	for _, w := range strings.Fields(strings.ToLower(description)) {
		if stopWords[w] || len([]rune(w)) <= 2 {
			continue
		}
		out = append(out, w)
		if len(out) == maxKeywords {
			break
		}
	}
	return out
}

// PlaceholderURL builds the stock-photo URL for a description.
func PlaceholderURL(description string) string {
	kws := Keywords(description)
	for i, k := range kws {
		kws[i] = url.QueryEscape(k)
	}
	return placeholderBase + strings.Join(kws, ",")
}

// Lookup memoizes placeholder URLs in a Cache.
type Lookup struct {
	cache Cache
	log   *logger.Logger
}

// New creates a Lookup. A nil cache means an in-memory one.
func New(cache Cache, log *logger.Logger) *Lookup {
	if cache == nil {
		cache = NewMemoryCache()
	}
	if log == nil {
		log = logger.Nop()
	}
	return &Lookup{cache: cache, log: log}
}

// URL returns the picture URL for description, or "" for a blank one.
func (l *Lookup) URL(ctx context.Context, description string) string {
	description = strings.TrimSpace(description)
	if description == "" {
		return ""
	}

	if u, ok, err := l.cache.Get(ctx, description); err != nil {
		l.log.Warn("image cache get failed", "error", err)
	} else if ok {
		return u
	}

	u := PlaceholderURL(description)
	if err := l.cache.Set(ctx, description, u); err != nil {
		l.log.Warn("image cache set failed", "error", err)
	}
	return u
}

// Decorate fills ImageURL on items that describe a picture.
func (l *Lookup) Decorate(ctx context.Context, items []content.Item) {
	for i := range items {
		if items[i].ImageURL != "" || items[i].ImageDescription == "" {
			continue
		}
		items[i].ImageURL = l.URL(ctx, items[i].ImageDescription)
	}
}
