//go:build unit

package offer_test

import (
	"testing"
	"time"

	"rota-claims/internal/domain/offer"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var sentAt = time.Date(2026, 3, 2, 8, 0, 0, 0, time.UTC)

func TestOfferAccept(t *testing.T) {
	t.Run("accepts a sent offer", func(t *testing.T) {
		o := offer.NewOffer(uuid.New(), uuid.New(), uuid.New(), 1, sentAt)
		at := sentAt.Add(5 * time.Minute)

		require.NoError(t, o.Accept(at))

		assert.Equal(t, offer.StatusAccepted, o.Status())
		require.NotNil(t, o.AcceptedAt())
		assert.Equal(t, at, *o.AcceptedAt())
	})

	t.Run("every transition out of sent is final", func(t *testing.T) {
		o := offer.NewOffer(uuid.New(), uuid.New(), uuid.New(), 1, sentAt)
		require.NoError(t, o.Close())

		assert.ErrorIs(t, o.Accept(sentAt.Add(time.Minute)), offer.ErrNotSent)
		assert.ErrorIs(t, o.Expire(), offer.ErrNotSent)
		assert.ErrorIs(t, o.Close(), offer.ErrAlreadySettled)
	})
}

func TestOfferExpire(t *testing.T) {
	o := offer.NewOffer(uuid.New(), uuid.New(), uuid.New(), 1, sentAt)
	require.NoError(t, o.Expire())
	assert.Equal(t, offer.StatusExpired, o.Status())
	assert.ErrorIs(t, o.Accept(sentAt.Add(time.Minute)), offer.ErrNotSent)
}

func TestOfferOverdue(t *testing.T) {
	ttl := 30 * time.Minute
	o := offer.NewOffer(uuid.New(), uuid.New(), uuid.New(), 1, sentAt)

	assert.False(t, o.Overdue(sentAt.Add(ttl), ttl))
	assert.True(t, o.Overdue(sentAt.Add(ttl+time.Second), ttl))

	require.NoError(t, o.Accept(sentAt.Add(time.Minute)))
	assert.False(t, o.Overdue(sentAt.Add(2*ttl), ttl))
}
