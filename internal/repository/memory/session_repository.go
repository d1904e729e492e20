package memory

import (
	"time"

	"campus-desk-be/pkg/query"

	"github.com/google/uuid"
	"github.com/patrickmn/go-cache"
)

// QuerySession binds a query engine to the user that opened it.
type QuerySession struct {
	ID        string
	OwnerId   uuid.UUID
	Engine    *query.Engine
	CreatedAt time.Time
}

type SessionRepository struct {
	cache *cache.Cache
}

// NewSessionRepository keeps sessions for an hour after their last use and
// purges expired ones every 10 minutes.
func NewSessionRepository() *SessionRepository {
	return &SessionRepository{
		cache: cache.New(1*time.Hour, 10*time.Minute),
	}
}

func (r *SessionRepository) Save(session *QuerySession) {
	r.cache.Set(session.ID, session, cache.DefaultExpiration)
}

// Get returns the session and extends its lifetime.
func (r *SessionRepository) Get(sessionID string) (*QuerySession, bool) {
	x, found := r.cache.Get(sessionID)
	if !found {
		return nil, false
	}
	session := x.(*QuerySession)
	r.cache.Set(sessionID, session, cache.DefaultExpiration)
	return session, true
}

func (r *SessionRepository) Delete(sessionID string) {
	r.cache.Delete(sessionID)
}

func (r *SessionRepository) Count() int {
	return r.cache.ItemCount()
}
