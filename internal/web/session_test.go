package web

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSessions_RoundTrip(t *testing.T) {
	s := NewSessions([]byte("test-secret"), time.Hour)

	token, err := s.Issue("alice")
	require.NoError(t, err)
	require.NotEmpty(t, token)

	username, err := s.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, "alice", username)
}

func TestSessions_Expired(t *testing.T) {
	s := NewSessions([]byte("test-secret"), -time.Minute)

	token, err := s.Issue("alice")
	require.NoError(t, err)

	_, err = s.Verify(token)
	assert.ErrorIs(t, err, ErrExpiredSession)
}

func TestSessions_WrongSecret(t *testing.T) {
	token, err := NewSessions([]byte("secret-a"), time.Hour).Issue("alice")
	require.NoError(t, err)

	_, err = NewSessions([]byte("secret-b"), time.Hour).Verify(token)
	assert.ErrorIs(t, err, ErrInvalidSession)
}

func TestSessions_Garbage(t *testing.T) {
	s := NewSessions([]byte("test-secret"), time.Hour)

	_, err := s.Verify("not.a.token")
	assert.ErrorIs(t, err, ErrInvalidSession)
}
