package checkout

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cardforgehq/cardforge/internal/pkg/apperr"
)

func newTestIntentStore(t *testing.T) IntentStore {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	return NewIntentStore(client)
}

func TestIntentPutConsume(t *testing.T) {
	t.Parallel()

	store := newTestIntentStore(t)
	ctx := context.Background()

	want := Intent{UserID: "auth0|abc", Credits: 120, AmountCents: 1000}
	require.NoError(t, store.Put(ctx, "cs_test_1", want))

	got, err := store.Consume(ctx, "cs_test_1")
	require.NoError(t, err)
	assert.Equal(t, want, *got)

	// Consume removed the intent; a second consume must miss.
	_, err = store.Consume(ctx, "cs_test_1")
	assert.ErrorIs(t, err, apperr.ErrIntentNotFound)
}

func TestConsumeUnknownSession(t *testing.T) {
	t.Parallel()

	store := newTestIntentStore(t)

	_, err := store.Consume(context.Background(), "cs_never_seen")
	assert.ErrorIs(t, err, apperr.ErrIntentNotFound)
}
