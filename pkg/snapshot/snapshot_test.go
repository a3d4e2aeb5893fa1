package snapshot

import (
	"errors"
	"testing"

	"github.com/marketflow/lob/pkg/book"
	"github.com/nikolaydubina/fpdecimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseObjectForm(t *testing.T) {
	data := []byte(`{
		"time": "2024-05-01T12:00:00Z",
		"bids": [{"price": 100, "size": 2, "count": 2}, {"price": 99.5, "size": 1}],
		"asks": [{"price": 100.5, "size": 3, "count": 1}]
	}`)

	snap, err := Parse(data)
	require.NoError(t, err)
	require.Len(t, snap.Bids, 2)
	require.Len(t, snap.Asks, 1)
	assert.Equal(t, 100.0, snap.Bids[0].Price)
	assert.Equal(t, 2, snap.Bids[0].Count)
	assert.Equal(t, 0, snap.Bids[1].Count)
}

func TestParseTupleForm(t *testing.T) {
	// Compact string-tuple levels as venue level2 feeds publish them
	data := []byte(`{
		"bids": [["100.0", "2.0", 2], ["99.5", "1.0"]],
		"asks": [["100.5", "3.0", 1]]
	}`)

	snap, err := Parse(data)
	require.NoError(t, err)
	require.Len(t, snap.Bids, 2)
	assert.Equal(t, 100.0, snap.Bids[0].Price)
	assert.Equal(t, 2.0, snap.Bids[0].Size)
	assert.Equal(t, 2, snap.Bids[0].Count)
	assert.Equal(t, 99.5, snap.Bids[1].Price)
	assert.Equal(t, 0, snap.Bids[1].Count)
}

func TestParseRejectsCrossed(t *testing.T) {
	data := []byte(`{
		"bids": [["101.0", "1.0"]],
		"asks": [["100.0", "1.0"]]
	}`)

	_, err := Parse(data)
	assert.ErrorIs(t, err, ErrCrossedSnapshot)
}

func TestValidate(t *testing.T) {
	empty := &Snapshot{}
	assert.ErrorIs(t, empty.Validate(), ErrEmptySnapshot)

	touching := &Snapshot{
		Bids: []Level{{Price: 100, Size: 1}},
		Asks: []Level{{Price: 100, Size: 1}},
	}
	assert.ErrorIs(t, touching.Validate(), ErrCrossedSnapshot)

	badLevel := &Snapshot{
		Bids: []Level{{Price: 100, Size: 0}},
	}
	assert.Error(t, badLevel.Validate())

	oneSided := &Snapshot{
		Asks: []Level{{Price: 100, Size: 1}},
	}
	assert.NoError(t, oneSided.Validate())
}

func TestApply(t *testing.T) {
	snap := &Snapshot{
		Bids: []Level{
			{Price: 100, Size: 4, Count: 2},
			{Price: 99, Size: 1},
		},
		Asks: []Level{
			{Price: 101, Size: 3, Count: 3},
		},
	}

	ob := book.NewOrderBook()
	require.NoError(t, snap.Apply(ob))

	// Level volumes and counts survive the load exactly
	assert.True(t, ob.VolumeAt(book.Buy, fpdecimal.FromFloat(100.0)).Equal(fpdecimal.FromFloat(4.0)))
	assert.Equal(t, 2, ob.CountAt(book.Buy, fpdecimal.FromFloat(100.0)))
	assert.True(t, ob.VolumeAt(book.Sell, fpdecimal.FromFloat(101.0)).Equal(fpdecimal.FromFloat(3.0)))
	assert.Equal(t, 3, ob.CountAt(book.Sell, fpdecimal.FromFloat(101.0)))
	assert.Equal(t, 6, ob.CountAll())

	// Synthetic IDs are addressable, so loaded orders can be canceled
	assert.True(t, ob.Has("bid-0-0"))
	assert.True(t, ob.Has("bid-0-1"))
	assert.True(t, ob.Has("ask-0-2"))
	_, err := ob.Cancel("bid-0-1")
	assert.NoError(t, err)
	assert.True(t, ob.VolumeAt(book.Buy, fpdecimal.FromFloat(100.0)).Equal(fpdecimal.FromFloat(2.0)))

	// The book the load produced must not be crossed
	bid, err := ob.BestBid()
	require.NoError(t, err)
	ask, err := ob.BestAsk()
	require.NoError(t, err)
	assert.True(t, bid.LessThan(ask))
}

func TestApplyRejectsCrossed(t *testing.T) {
	snap := &Snapshot{
		Bids: []Level{{Price: 102, Size: 1}},
		Asks: []Level{{Price: 101, Size: 1}},
	}

	ob := book.NewOrderBook()
	err := snap.Apply(ob)
	assert.ErrorIs(t, err, ErrCrossedSnapshot)
	assert.Equal(t, 0, ob.CountAll())
}

func TestCaptureRoundTrip(t *testing.T) {
	snap := &Snapshot{
		Bids: []Level{
			{Price: 100, Size: 4, Count: 2},
			{Price: 99, Size: 1, Count: 1},
		},
		Asks: []Level{
			{Price: 101, Size: 3, Count: 3},
		},
	}

	ob := book.NewOrderBook()
	require.NoError(t, snap.Apply(ob))

	captured := Capture(ob, 0)
	require.Len(t, captured.Bids, 2)
	require.Len(t, captured.Asks, 1)
	assert.Equal(t, 100.0, captured.Bids[0].Price)
	assert.Equal(t, 4.0, captured.Bids[0].Size)
	assert.Equal(t, 2, captured.Bids[0].Count)
	assert.Equal(t, 101.0, captured.Asks[0].Price)
	assert.Equal(t, 3, captured.Asks[0].Count)

	// Depth-limited capture keeps only the best level
	top := Capture(ob, 1)
	require.Len(t, top.Bids, 1)
	assert.Equal(t, 100.0, top.Bids[0].Price)
}

func TestApplySplitsLevelVolume(t *testing.T) {
	// 1.0 across 3 orders does not divide evenly; the last order absorbs
	// the remainder so the level total is exact
	snap := &Snapshot{
		Asks: []Level{{Price: 100, Size: 1, Count: 3}},
	}

	ob := book.NewOrderBook()
	require.NoError(t, snap.Apply(ob))

	assert.Equal(t, 3, ob.CountAt(book.Sell, fpdecimal.FromFloat(100.0)))
	assert.True(t, ob.VolumeAt(book.Sell, fpdecimal.FromFloat(100.0)).Equal(fpdecimal.FromFloat(1.0)),
		"expected exact level volume, got %s", ob.VolumeAt(book.Sell, fpdecimal.FromFloat(100.0)).String())
}

func TestApplyTinyLevelKeepsVolume(t *testing.T) {
	// 0.002 split ten ways rounds each share below decimal precision;
	// the level must collapse to one order rather than vanish
	snap := &Snapshot{
		Asks: []Level{{Price: 100, Size: 0.002, Count: 10}},
	}

	ob := book.NewOrderBook()
	require.NoError(t, snap.Apply(ob))

	assert.True(t, ob.VolumeAt(book.Sell, fpdecimal.FromFloat(100.0)).Equal(fpdecimal.FromFloat(0.002)),
		"expected level volume 0.002, got %s", ob.VolumeAt(book.Sell, fpdecimal.FromFloat(100.0)).String())
	assert.Equal(t, 1, ob.CountAt(book.Sell, fpdecimal.FromFloat(100.0)))
}

func TestApplyDuplicateLoad(t *testing.T) {
	snap := &Snapshot{
		Bids: []Level{{Price: 100, Size: 1}},
	}

	ob := book.NewOrderBook()
	require.NoError(t, snap.Apply(ob))

	// Loading the same snapshot again collides on synthetic IDs
	err := snap.Apply(ob)
	assert.True(t, errors.Is(err, book.ErrOrderExists))
}
