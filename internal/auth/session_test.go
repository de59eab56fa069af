package auth

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSessions_IssueAndParse(t *testing.T) {
	s, err := NewSessions("super-secret", time.Hour)
	require.NoError(t, err)

	token, expires, err := s.Issue(42, "alice")
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(time.Hour), expires, 5*time.Second)

	id, err := s.Parse(token)
	require.NoError(t, err)
	assert.Equal(t, int64(42), id)
}

func TestSessions_TokensAreUnique(t *testing.T) {
	s, err := NewSessions("super-secret", time.Hour)
	require.NoError(t, err)

	a, _, err := s.Issue(1, "alice")
	require.NoError(t, err)
	b, _, err := s.Issue(1, "alice")
	require.NoError(t, err)
	assert.NotEqual(t, a, b)
}

func TestSessions_Expired(t *testing.T) {
	s, err := NewSessions("secret", time.Minute)
	require.NoError(t, err)

	token, _, err := s.Issue(1, "alice")
	require.NoError(t, err)

	s.now = func() time.Time { return time.Now().Add(2 * time.Minute) }
	_, err = s.Parse(token)
	require.ErrorIs(t, err, ErrInvalidToken)
}

func TestSessions_WrongSecret(t *testing.T) {
	issuer, err := NewSessions("right-secret", time.Hour)
	require.NoError(t, err)
	verifier, err := NewSessions("wrong-secret", time.Hour)
	require.NoError(t, err)

	token, _, err := issuer.Issue(1, "alice")
	require.NoError(t, err)

	_, err = verifier.Parse(token)
	require.ErrorIs(t, err, ErrInvalidToken)
}

func TestSessions_Garbage(t *testing.T) {
	s, err := NewSessions("secret", time.Hour)
	require.NoError(t, err)

	for _, raw := range []string{"", "abc", strings.Repeat("x.", 3)} {
		_, err := s.Parse(raw)
		assert.ErrorIs(t, err, ErrInvalidToken, raw)
	}
}

func TestNewSessions_Validation(t *testing.T) {
	_, err := NewSessions("", time.Hour)
	require.Error(t, err)

	_, err = NewSessions("secret", 0)
	require.Error(t, err)
}
