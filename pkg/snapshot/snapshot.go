package snapshot

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/marketflow/lob/pkg/book"
	"github.com/nikolaydubina/fpdecimal"
)

var (
	// ErrCrossedSnapshot is returned when a snapshot's best bid meets or
	// exceeds its best ask.
	ErrCrossedSnapshot = errors.New("snapshot is crossed")
	// ErrEmptySnapshot is returned when a snapshot has no levels at all.
	ErrEmptySnapshot = errors.New("snapshot has no levels")
)

// Level is one aggregated price level of a venue depth snapshot. Count
// is the number of distinct orders the venue reports at this price;
// venues that omit it report zero and the loader treats it as one.
type Level struct {
	Price float64 `json:"price"`
	Size  float64 `json:"size"`
	Count int     `json:"count,omitempty"`
}

// UnmarshalJSON accepts both the object form and the compact tuple form
// many venue feeds use: ["price", "size"] or ["price", "size", count].
func (l *Level) UnmarshalJSON(data []byte) error {
	if len(data) > 0 && data[0] == '[' {
		var tuple []json.Number
		if err := json.Unmarshal(data, &tuple); err != nil {
			return err
		}
		if len(tuple) < 2 {
			return fmt.Errorf("level tuple needs at least price and size, got %d fields", len(tuple))
		}

		price, err := tuple[0].Float64()
		if err != nil {
			return fmt.Errorf("invalid level price %q: %w", tuple[0], err)
		}
		size, err := tuple[1].Float64()
		if err != nil {
			return fmt.Errorf("invalid level size %q: %w", tuple[1], err)
		}

		l.Price = price
		l.Size = size
		l.Count = 0
		if len(tuple) > 2 {
			count, err := tuple[2].Int64()
			if err != nil {
				return fmt.Errorf("invalid level order count %q: %w", tuple[2], err)
			}
			l.Count = int(count)
		}
		return nil
	}

	type plain Level
	var p plain
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	*l = Level(p)
	return nil
}

// Snapshot is a normalized point-in-time view of one instrument's book,
// levels ordered best-first on both sides.
type Snapshot struct {
	Time time.Time `json:"time"`
	Bids []Level   `json:"bids"`
	Asks []Level   `json:"asks"`
}

// Parse decodes a snapshot from JSON and validates it.
func Parse(data []byte) (*Snapshot, error) {
	var snap Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("failed to decode snapshot: %w", err)
	}
	if err := snap.Validate(); err != nil {
		return nil, err
	}
	return &snap, nil
}

// Validate checks the snapshot for structural problems. A snapshot
// whose best bid meets or exceeds its best ask would violate the
// book's no-cross invariant on load, so it is rejected up front.
func (s *Snapshot) Validate() error {
	if len(s.Bids) == 0 && len(s.Asks) == 0 {
		return ErrEmptySnapshot
	}

	if len(s.Bids) > 0 && len(s.Asks) > 0 && s.Bids[0].Price >= s.Asks[0].Price {
		return ErrCrossedSnapshot
	}

	for i, lvl := range s.Bids {
		if lvl.Price <= 0 || lvl.Size <= 0 {
			return fmt.Errorf("invalid bid level %d: price=%v size=%v", i, lvl.Price, lvl.Size)
		}
	}
	for i, lvl := range s.Asks {
		if lvl.Price <= 0 || lvl.Size <= 0 {
			return fmt.Errorf("invalid ask level %d: price=%v size=%v", i, lvl.Price, lvl.Size)
		}
	}

	return nil
}

// Apply loads the snapshot into the book through the bulk-load path,
// bypassing the match loop. Each level expands to its reported order
// count using synthetic IDs of the form "bid-<level>-<pos>"; the last
// order at a level absorbs any rounding remainder so level volume is
// preserved exactly.
func (s *Snapshot) Apply(ob *book.OrderBook) error {
	if err := s.Validate(); err != nil {
		return err
	}

	if err := applySide(ob, book.Buy, "bid", s.Bids); err != nil {
		return err
	}
	return applySide(ob, book.Sell, "ask", s.Asks)
}

func applySide(ob *book.OrderBook, side book.Side, prefix string, levels []Level) error {
	for i, lvl := range levels {
		count := lvl.Count
		if count < 1 {
			count = 1
		}

		price := fpdecimal.FromFloat(lvl.Price)
		total := fpdecimal.FromFloat(lvl.Size)
		share := fpdecimal.FromFloat(lvl.Size / float64(count))
		if share.Equal(fpdecimal.Zero) {
			// The per-order share rounds below decimal precision; load
			// the level as a single order so no liquidity is lost
			count = 1
		}

		placed := fpdecimal.Zero
		for pos := 0; pos < count; pos++ {
			qty := share
			if pos == count-1 {
				qty = total.Sub(placed)
			} else if remaining := total.Sub(placed); qty.GreaterThan(remaining) {
				qty = remaining
			}
			if qty.LessThanOrEqual(fpdecimal.Zero) {
				break
			}

			id := fmt.Sprintf("%s-%d-%d", prefix, i, pos)
			order, err := book.NewLimitOrder(id, side, qty, price)
			if err != nil {
				return fmt.Errorf("failed to build order %s: %w", id, err)
			}
			if err := ob.RestoreOrder(order); err != nil {
				return fmt.Errorf("failed to restore order %s: %w", id, err)
			}
			placed = placed.Add(qty)
		}
	}
	return nil
}

// Capture extracts a snapshot of the book's top depth levels per side.
// depth <= 0 captures all levels.
func Capture(ob *book.OrderBook, depth int) *Snapshot {
	view := ob.Depth(depth)

	snap := &Snapshot{
		Time: time.Now().UTC(),
		Bids: make([]Level, 0, len(view.Bids)),
		Asks: make([]Level, 0, len(view.Asks)),
	}

	for _, lvl := range view.Bids {
		snap.Bids = append(snap.Bids, toLevel(lvl))
	}
	for _, lvl := range view.Asks {
		snap.Asks = append(snap.Asks, toLevel(lvl))
	}

	return snap
}

func toLevel(lvl book.DepthLevel) Level {
	price, _ := strconv.ParseFloat(lvl.Price.String(), 64)
	size, _ := strconv.ParseFloat(lvl.Volume.String(), 64)
	return Level{
		Price: price,
		Size:  size,
		Count: lvl.Orders,
	}
}
