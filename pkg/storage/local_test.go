package storage

import (
	"context"
	"net/url"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestLocalStore(t *testing.T) *LocalStore {
	t.Helper()
	s, err := NewLocalStore(t.TempDir(), "http://localhost:3000/files/", "test-secret")
	require.NoError(t, err)
	return s
}

func TestLocalStore_PutRemove(t *testing.T) {
	s := newTestLocalStore(t)
	ctx := context.Background()
	key := "user-handbooks/u1/1700000000000-abc.pdf"

	require.NoError(t, s.Put(ctx, key, "application/pdf", strings.NewReader("%PDF-1.4 body")))

	p, err := s.pathFor(key)
	require.NoError(t, err)
	data, err := os.ReadFile(p)
	require.NoError(t, err)
	assert.Equal(t, "%PDF-1.4 body", string(data))

	err = s.Put(ctx, key, "application/pdf", strings.NewReader("again"))
	assert.Error(t, err, "existing objects are never overwritten")

	require.NoError(t, s.Remove(ctx, key))
	_, err = os.Stat(p)
	assert.True(t, os.IsNotExist(err))

	assert.NoError(t, s.Remove(ctx, key), "removing a missing object is not an error")
}

func TestLocalStore_RejectsEscapingKeys(t *testing.T) {
	s := newTestLocalStore(t)
	ctx := context.Background()

	for _, key := range []string{"", "../etc/passwd", "/abs/path.pdf", "a/../../b.pdf", "a//b.pdf"} {
		t.Run(key, func(t *testing.T) {
			assert.Error(t, s.Put(ctx, key, "application/pdf", strings.NewReader("x")))
		})
	}
}

func TestLocalStore_SignedURLRoundTrip(t *testing.T) {
	s := newTestLocalStore(t)
	key := "course-syllabi/u1/c1/1700000000000-abc.pdf"

	signed, err := s.SignedURL(context.Background(), key, time.Minute)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(signed, "http://localhost:3000/files/"+key+"?token="))

	u, err := url.Parse(signed)
	require.NoError(t, err)
	token := u.Query().Get("token")

	p, err := s.Resolve(key, token)
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(p, "1700000000000-abc.pdf"))

	_, err = s.Resolve("course-syllabi/u1/c1/other.pdf", token)
	assert.Error(t, err, "token is bound to its key")

	expired, err := s.SignedURL(context.Background(), key, -time.Minute)
	require.NoError(t, err)
	u, _ = url.Parse(expired)
	_, err = s.Resolve(key, u.Query().Get("token"))
	assert.Error(t, err)
}
