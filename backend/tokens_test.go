package main

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"gomokubot/engine"
)

func TestSeatTokensRoundTrip(t *testing.T) {
	tokens := NewSeatTokens("test-secret", time.Hour)
	raw, err := tokens.Issue("room-1", engine.MarkPlayer)
	require.NoError(t, err)

	claims, err := tokens.Verify(raw)
	require.NoError(t, err)
	require.Equal(t, "room-1", claims.RoomID)
	require.Equal(t, engine.MarkPlayer, claims.Mark)
	require.WithinDuration(t, time.Now().Add(time.Hour), claims.ExpiresAt, 5*time.Second)
}

func TestSeatTokensRejectForeignSecret(t *testing.T) {
	raw, err := NewSeatTokens("secret-a", time.Hour).Issue("room-1", engine.MarkPlayer)
	require.NoError(t, err)
	_, err = NewSeatTokens("secret-b", time.Hour).Verify(raw)
	require.ErrorIs(t, err, ErrInvalidToken)
}

func TestSeatTokensRejectExpired(t *testing.T) {
	tokens := NewSeatTokens("test-secret", -time.Minute)
	raw, err := tokens.Issue("room-1", engine.MarkPlayer)
	require.NoError(t, err)
	_, err = tokens.Verify(raw)
	require.ErrorIs(t, err, ErrInvalidToken)
}

func TestSeatTokensRejectGarbage(t *testing.T) {
	_, err := NewSeatTokens("test-secret", time.Hour).Verify("not-a-token")
	require.ErrorIs(t, err, ErrInvalidToken)

	_, err = NewSeatTokens("", time.Hour).Issue("room-1", engine.MarkPlayer)
	require.Error(t, err)
}
