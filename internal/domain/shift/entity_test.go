//go:build unit

package shift_test

import (
	"testing"
	"time"

	"rota-claims/internal/domain/shift"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newPublishedShift(t *testing.T) *shift.Shift {
	t.Helper()
	tr, err := shift.NewTimeRange(
		time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC),
		time.Date(2026, 3, 2, 17, 0, 0, 0, time.UTC),
	)
	require.NoError(t, err)

	s, err := shift.NewShift(uuid.New(), "bartender", tr, shift.StatusPublished, shift.SourceRota)
	require.NoError(t, err)
	return s
}

func TestNewShift(t *testing.T) {
	t.Run("creates draft and published shifts", func(t *testing.T) {
		s := newPublishedShift(t)
		assert.NotEqual(t, uuid.Nil, s.ID())
		assert.Equal(t, shift.StatusPublished, s.Status())
		assert.Nil(t, s.AssignedStaffID())
		assert.True(t, s.Claimable())
	})

	t.Run("rejects terminal initial status", func(t *testing.T) {
		tr, err := shift.NewTimeRange(
			time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC),
			time.Date(2026, 3, 2, 17, 0, 0, 0, time.UTC),
		)
		require.NoError(t, err)

		_, err = shift.NewShift(uuid.New(), "bartender", tr, shift.StatusFilled, shift.SourceRota)
		assert.ErrorIs(t, err, shift.ErrInvalidStatus)
	})
}

func TestShiftAssign(t *testing.T) {
	t.Run("assigns once and fills the shift", func(t *testing.T) {
		s := newPublishedShift(t)
		winner := uuid.New()

		require.NoError(t, s.Assign(winner))

		require.NotNil(t, s.AssignedStaffID())
		assert.Equal(t, winner, *s.AssignedStaffID())
		assert.Equal(t, shift.StatusFilled, s.Status())
		assert.False(t, s.Claimable())
	})

	t.Run("second assignment fails", func(t *testing.T) {
		s := newPublishedShift(t)
		first := uuid.New()
		require.NoError(t, s.Assign(first))

		err := s.Assign(uuid.New())

		assert.ErrorIs(t, err, shift.ErrAlreadyAssigned)
		assert.Equal(t, first, *s.AssignedStaffID())
	})

	t.Run("rejects nil assignee", func(t *testing.T) {
		s := newPublishedShift(t)
		assert.ErrorIs(t, s.Assign(uuid.Nil), shift.ErrAssigneeRequired)
	})

	t.Run("draft shift is not claimable", func(t *testing.T) {
		tr, err := shift.NewTimeRange(
			time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC),
			time.Date(2026, 3, 2, 17, 0, 0, 0, time.UTC),
		)
		require.NoError(t, err)
		s, err := shift.NewShift(uuid.New(), "bartender", tr, shift.StatusDraft, shift.SourceRota)
		require.NoError(t, err)

		assert.ErrorIs(t, s.Assign(uuid.New()), shift.ErrNotClaimable)
		assert.False(t, s.Claimable())
	})
}

func TestShiftCancel(t *testing.T) {
	t.Run("cancels open shift", func(t *testing.T) {
		s := newPublishedShift(t)
		require.NoError(t, s.Cancel())
		assert.Equal(t, shift.StatusCancelled, s.Status())
	})

	t.Run("filled shift cannot be cancelled", func(t *testing.T) {
		s := newPublishedShift(t)
		require.NoError(t, s.Assign(uuid.New()))
		assert.ErrorIs(t, s.Cancel(), shift.ErrNotCancellable)
	})
}

func TestNewTimeRange(t *testing.T) {
	start := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)

	t.Run("rejects inverted range", func(t *testing.T) {
		_, err := shift.NewTimeRange(start, start.Add(-time.Hour))
		assert.Error(t, err)
	})

	t.Run("rejects zero-length range", func(t *testing.T) {
		_, err := shift.NewTimeRange(start, start)
		assert.Error(t, err)
	})

	t.Run("overlap detection", func(t *testing.T) {
		a, err := shift.NewTimeRange(start, start.Add(8*time.Hour))
		require.NoError(t, err)
		b, err := shift.NewTimeRange(start.Add(4*time.Hour), start.Add(12*time.Hour))
		require.NoError(t, err)
		c, err := shift.NewTimeRange(start.Add(8*time.Hour), start.Add(16*time.Hour))
		require.NoError(t, err)

		assert.True(t, a.Overlaps(b))
		assert.True(t, b.Overlaps(a))
		assert.False(t, a.Overlaps(c))
	})
}
