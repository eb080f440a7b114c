package cart

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ray-remotestate/preorder/apperr"
	"github.com/ray-remotestate/preorder/models"
)

func newItem(vendor uuid.UUID, price int64) Item {
	return Item{ID: uuid.New(), VendorID: vendor, Name: "item", Price: models.FromMajor(price)}
}

func TestAdd_LocksVendorAndIncrements(t *testing.T) {
	v1 := uuid.New()
	a := newItem(v1, 50)

	var s State
	assert.True(t, s.IsEmpty())

	s, err := s.Add(a)
	require.NoError(t, err)
	s, err = s.Add(a)
	require.NoError(t, err)

	vendor, locked := s.VendorID()
	assert.True(t, locked)
	assert.Equal(t, v1, vendor)
	assert.Equal(t, 2, s.Quantity(a.ID))
	assert.Len(t, s.Entries(), 1)
}

func TestAdd_OtherVendorRejected(t *testing.T) {
	a := newItem(uuid.New(), 50)
	b := newItem(uuid.New(), 30)

	s, err := State{}.Add(a)
	require.NoError(t, err)
	s, err = s.Add(a)
	require.NoError(t, err)

	after, err := s.Add(b)
	assert.ErrorIs(t, err, apperr.ErrVendorMismatch)
	assert.Equal(t, s, after)
	assert.Equal(t, 2, after.Quantity(a.ID))
	assert.Equal(t, 0, after.Quantity(b.ID))

	// Remove once, then the estimate covers the single remaining unit.
	after = after.Remove(a.ID)
	assert.Equal(t, 1, after.Quantity(a.ID))
	assert.Equal(t, models.FromMajor(50), after.Total())
}

func TestAdd_VendorLockHoldsForAnySequence(t *testing.T) {
	v1, v2 := uuid.New(), uuid.New()
	own := []Item{newItem(v1, 10), newItem(v1, 20), newItem(v1, 30)}
	foreign := newItem(v2, 5)

	var s State
	for i := 0; i < 20; i++ {
		var err error
		s, err = s.Add(own[i%len(own)])
		require.NoError(t, err)

		before := s.Entries()
		next, err := s.Add(foreign)
		require.ErrorIs(t, err, apperr.ErrVendorMismatch)
		require.Equal(t, before, next.Entries())
	}
}

func TestAdd_RequiresIDs(t *testing.T) {
	_, err := State{}.Add(Item{ID: uuid.New()})
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))
}

func TestRemove_UnlocksWhenEmpty(t *testing.T) {
	v1, v2 := uuid.New(), uuid.New()
	a := newItem(v1, 50)

	s, err := State{}.Add(a)
	require.NoError(t, err)

	s = s.Remove(a.ID)
	assert.True(t, s.IsEmpty())
	_, locked := s.VendorID()
	assert.False(t, locked)

	s, err = s.Add(newItem(v2, 10))
	require.NoError(t, err)
	vendor, _ := s.VendorID()
	assert.Equal(t, v2, vendor)
}

func TestRemove_AbsentIsNoop(t *testing.T) {
	s, err := State{}.Add(newItem(uuid.New(), 50))
	require.NoError(t, err)

	assert.Equal(t, s, s.Remove(uuid.New()))
}

func TestTransitions_DoNotMutateReceiver(t *testing.T) {
	a := newItem(uuid.New(), 50)
	one, err := State{}.Add(a)
	require.NoError(t, err)

	two, err := one.Add(a)
	require.NoError(t, err)
	_ = two.Remove(a.ID).Remove(a.ID)

	assert.Equal(t, 1, one.Quantity(a.ID))
	assert.Equal(t, 2, two.Quantity(a.ID))
}

func TestTotalAndLines(t *testing.T) {
	v := uuid.New()
	a := newItem(v, 50)
	b := Item{ID: uuid.New(), VendorID: v, Name: "chai", Price: 1250}

	s, _ := State{}.Add(a)
	s, _ = s.Add(b)
	s, _ = s.Add(a)

	assert.Equal(t, models.Money(10000+1250), s.Total())
	assert.Equal(t, []models.LineEntry{
		{MenuItemID: a.ID, Quantity: 2},
		{MenuItemID: b.ID, Quantity: 1},
	}, s.Lines())

	assert.True(t, s.Clear().IsEmpty())
}
