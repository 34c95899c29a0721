package lcore_test

import (
	"errors"
	"testing"

	"github.com/panicnic/panicrx/core/hwinfo"
	"github.com/panicnic/panicrx/core/lcore"
)

func TestLCore(t *testing.T) {
	assert, _ := makeAR(t)

	var zero lcore.LCore
	assert.False(zero.Valid())
	assert.Equal("invalid", zero.String())

	lc := lcore.FromID(0)
	assert.True(lc.Valid())
	assert.Equal(0, lc.ID())
	assert.Equal("0", lc.String())

	assert.False(lcore.FromID(-1).Valid())
	assert.False(lcore.FromID(lcore.MaxLCoreID + 1).Valid())

	e := error(&lcore.AffinityError{LCore: lcore.FromID(7), Err: lcore.ErrUnsupported})
	var ae *lcore.AffinityError
	assert.True(errors.As(e, &ae))
	assert.Equal(7, ae.LCore.ID())
	assert.ErrorIs(e, lcore.ErrUnsupported)
	assert.Contains(e.Error(), "lcore 7")
}

func TestMask(t *testing.T) {
	assert, require := makeAR(t)

	m, e := lcore.ParseMask("0x5")
	require.NoError(e)
	assert.Equal([]lcore.LCore{lcore.FromID(0), lcore.FromID(2)}, m.List())
	assert.True(m.Has(lcore.FromID(2)))
	assert.False(m.Has(lcore.FromID(1)))
	assert.Equal("0x5", m.String())

	m, e = lcore.ParseMask("ff,00000000")
	require.NoError(e)
	assert.Len(m.List(), 8)
	assert.Equal(32, m.List()[0].ID())

	m, e = lcore.ParseMask("")
	require.NoError(e)
	assert.True(m.Empty())

	_, e = lcore.ParseMask("0xZZ")
	assert.Error(e)

	assert.Equal([]lcore.LCore{lcore.FromID(1), lcore.FromID(3)}, lcore.MaskOf(1, 3).List())
}

func TestAllocator(t *testing.T) {
	assert, require := makeAR(t)

	la := lcore.NewAllocator(hwinfo.Static{{ID: 0}, {ID: 1}, {ID: 2}, {ID: 3}, {ID: 5}})
	defer la.Clear()

	list, unpinned := la.AllocQueues(3, map[int]lcore.Mask{1: lcore.MaskOf(4, 5)})
	require.Empty(unpinned)
	assert.Equal([]int{0, 5, 2}, []int{list[0].ID(), list[1].ID(), list[2].ID()})

	// lcore 3 is the only one left
	lc, e := la.Alloc(7, lcore.MaskOf(0, 3))
	require.NoError(e)
	assert.Equal(3, lc.ID())

	_, e = la.Alloc(4, lcore.Mask{})
	assert.ErrorIs(e, lcore.ErrNoLCore)
	var ae *lcore.AffinityError
	require.ErrorAs(e, &ae)
	assert.Equal(4, ae.LCore.ID())
	_, e = la.Alloc(1, lcore.Mask{})
	assert.NoError(e)

	la.Free(lc)
	assert.Panics(func() { la.Free(lc) })
	assert.NotPanics(func() { la.Free(lcore.LCore{}) })
}

func TestAllocatorUnpinned(t *testing.T) {
	assert, require := makeAR(t)

	la := lcore.NewAllocator(hwinfo.Static{{ID: 0}, {ID: 1}})
	list, unpinned := la.AllocQueues(4, map[int]lcore.Mask{1: lcore.MaskOf(0), 3: lcore.MaskOf(6, 7)})
	require.Len(list, 4)
	assert.Equal(0, list[0].ID())
	assert.False(list[1].Valid())
	assert.False(list[2].Valid())
	assert.False(list[3].Valid())

	require.Len(unpinned, 3)
	assert.Equal(0, unpinned[0].LCore.ID())
	assert.Equal(2, unpinned[1].LCore.ID())
	assert.Equal(6, unpinned[2].LCore.ID())
	for _, ae := range unpinned {
		assert.ErrorIs(ae, lcore.ErrNoLCore)
	}

	for _, lc := range list {
		la.Free(lc)
	}
	list, unpinned = la.AllocQueues(2, nil)
	assert.Empty(unpinned)
	assert.Equal(1, list[1].ID())
	la.Clear()
}

func TestAllocatorUnknownCores(t *testing.T) {
	assert, require := makeAR(t)

	la := lcore.NewAllocator(hwinfo.Static{})
	list, unpinned := la.AllocQueues(64, nil)
	require.Empty(unpinned)
	assert.Equal(63, list[63].ID())
	la.Clear()
}
