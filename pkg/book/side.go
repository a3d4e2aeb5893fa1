package book

import (
	"fmt"
	"strings"

	"github.com/nikolaydubina/fpdecimal"
)

// sideBook is the sorted collection of price levels for one side.
// Levels form a doubly-linked list with the best price at the head
// (highest first for bids, lowest first for asks); the map gives O(1)
// lookup of an existing level by its price string.
type sideBook struct {
	side   Side
	head   *priceLevel
	tail   *priceLevel
	levels map[string]*priceLevel
	orders int
}

func newSideBook(side Side) *sideBook {
	return &sideBook{
		side:   side,
		levels: make(map[string]*priceLevel),
	}
}

// better reports whether price a has priority over price b on this side.
func (sb *sideBook) better(a, b fpdecimal.Decimal) bool {
	if sb.side == Buy {
		return a.GreaterThan(b)
	}
	return a.LessThan(b)
}

// bestLevel returns the level with the most favorable price, or nil.
func (sb *sideBook) bestLevel() *priceLevel {
	return sb.head
}

// insert locates or creates the level at the order's price and appends
// the order to its queue, keeping the level list sorted best-first.
func (sb *sideBook) insert(order *Order) *orderNode {
	price := order.Price()
	priceStr := price.String()

	if level, ok := sb.levels[priceStr]; ok {
		sb.orders++
		return level.append(order)
	}

	level := newPriceLevel(price)
	sb.levels[priceStr] = level

	if sb.head == nil {
		sb.head = level
		sb.tail = level
	} else if sb.better(price, sb.head.price) {
		// Insert at head
		level.nextLevel = sb.head
		sb.head.prevLevel = level
		sb.head = level
	} else if !sb.better(price, sb.tail.price) {
		// Insert at tail
		level.prevLevel = sb.tail
		sb.tail.nextLevel = level
		sb.tail = level
	} else {
		// Insert in middle
		current := sb.head
		for current != nil && sb.better(current.price, price) {
			current = current.nextLevel
		}
		level.nextLevel = current
		level.prevLevel = current.prevLevel
		current.prevLevel.nextLevel = level
		current.prevLevel = level
	}

	sb.orders++
	return level.append(order)
}

// remove unlinks the node from its level and excises the level from the
// sorted list once its queue is empty.
func (sb *sideBook) remove(node *orderNode) {
	level := node.level
	level.unlink(node)
	sb.orders--

	if !level.empty() {
		return
	}

	delete(sb.levels, level.price.String())

	if level.prevLevel != nil {
		level.prevLevel.nextLevel = level.nextLevel
	} else {
		sb.head = level.nextLevel
	}

	if level.nextLevel != nil {
		level.nextLevel.prevLevel = level.prevLevel
	} else {
		sb.tail = level.prevLevel
	}

	level.prevLevel = nil
	level.nextLevel = nil
}

// level returns the level at an exact price, or nil.
func (sb *sideBook) level(price fpdecimal.Decimal) *priceLevel {
	return sb.levels[price.String()]
}

// totalVolume sums the aggregate quantity across all levels.
func (sb *sideBook) totalVolume() fpdecimal.Decimal {
	total := fpdecimal.Zero
	for level := sb.head; level != nil; level = level.nextLevel {
		total = total.Add(level.volume)
	}
	return total
}

// volumeAt returns the aggregate quantity at one price, zero if absent.
func (sb *sideBook) volumeAt(price fpdecimal.Decimal) fpdecimal.Decimal {
	if level := sb.level(price); level != nil {
		return level.volume
	}
	return fpdecimal.Zero
}

// prices returns all level prices best-first.
func (sb *sideBook) prices() []fpdecimal.Decimal {
	out := make([]fpdecimal.Decimal, 0, len(sb.levels))
	for level := sb.head; level != nil; level = level.nextLevel {
		out = append(out, level.price)
	}
	return out
}

// depth returns up to n (price, volume, order count) entries best-first.
// n <= 0 means all levels.
func (sb *sideBook) depth(n int) []DepthLevel {
	if n <= 0 || n > len(sb.levels) {
		n = len(sb.levels)
	}

	out := make([]DepthLevel, 0, n)
	for level := sb.head; level != nil && len(out) < n; level = level.nextLevel {
		out = append(out, DepthLevel{
			Price:  level.price,
			Volume: level.volume,
			Orders: level.count,
		})
	}
	return out
}

// String implements fmt.Stringer interface
func (sb *sideBook) String() string {
	builder := strings.Builder{}
	for level := sb.head; level != nil; level = level.nextLevel {
		builder.WriteString(fmt.Sprintf("\n%s -> orders: %d, volume: %s", level.price.String(), level.count, level.volume.String()))
	}
	return builder.String()
}
