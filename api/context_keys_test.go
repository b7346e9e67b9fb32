package api

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestContextKeys(t *testing.T) {
	ctx := context.Background()

	_, ok := GetUserID(ctx)
	assert.False(t, ok)
	_, ok = GetRequestID(ctx)
	assert.False(t, ok)

	ctx = withUserID(ctx, aliceID)
	ctx = contextWithRequestID(ctx, "req-1")

	id, ok := GetUserID(ctx)
	assert.True(t, ok)
	assert.Equal(t, aliceID, id)

	requestID, ok := GetRequestID(ctx)
	assert.True(t, ok)
	assert.Equal(t, "req-1", requestID)
}

func TestContextKeys_ForeignKeyIgnored(t *testing.T) {
	// A plain string key must not collide with the typed key
	ctx := context.WithValue(context.Background(), "user_id", aliceID) //nolint:staticcheck
	_, ok := GetUserID(ctx)
	assert.False(t, ok)
}
