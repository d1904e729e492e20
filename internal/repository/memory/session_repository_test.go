package memory

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSessionRepository(t *testing.T) {
	repo := NewSessionRepository()
	session := &QuerySession{ID: "s1", OwnerId: uuid.New(), CreatedAt: time.Now()}

	repo.Save(session)
	got, ok := repo.Get("s1")
	require.True(t, ok)
	assert.Same(t, session, got)
	assert.Equal(t, 1, repo.Count())

	repo.Delete("s1")
	_, ok = repo.Get("s1")
	assert.False(t, ok)
}
