package query

import (
	"strings"
	"time"

	"campus-desk-be/internal/entity"
	"campus-desk-be/pkg/remote"

	"github.com/patrickmn/go-cache"
)

type cachedAnswer struct {
	Text     string
	Shape    remote.Shape
	Answered time.Time
}

// answerCache lives as long as one engine and is emptied by Reset.
type answerCache struct {
	c *cache.Cache
}

func newAnswerCache() *answerCache {
	return &answerCache{c: cache.New(cache.NoExpiration, 0)}
}

func (a *answerCache) get(key string) (cachedAnswer, bool) {
	v, ok := a.c.Get(key)
	if !ok {
		return cachedAnswer{}, false
	}
	return v.(cachedAnswer), true
}

func (a *answerCache) set(key string, answer cachedAnswer) {
	a.c.Set(key, answer, cache.NoExpiration)
}

func (a *answerCache) flush() {
	a.c.Flush()
}

func (a *answerCache) len() int {
	return a.c.ItemCount()
}

// cacheKey combines the document kind, the normalized question, the sorted
// options and the trimmed refinement.
func cacheKey(kind entity.DocumentKind, question string, options []string, refinement string) string {
	return string(kind) + "|" + normalizeQuestion(question) + "|" + strings.Join(options, ",") + "|" + strings.TrimSpace(refinement)
}

func normalizeQuestion(q string) string {
	return strings.Join(strings.Fields(strings.ToLower(q)), " ")
}
