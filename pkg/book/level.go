package book

import (
	"github.com/nikolaydubina/fpdecimal"
)

// orderNode is an entry in the FIFO queue of a price level. Nodes form
// a doubly-linked list so that a cancel located through the order index
// unlinks in O(1).
type orderNode struct {
	order *Order
	prev  *orderNode
	next  *orderNode
	level *priceLevel
}

// priceLevel holds all resting orders at one exact price, oldest first.
// volume is the running sum of the remaining quantities in the queue.
type priceLevel struct {
	price  fpdecimal.Decimal
	head   *orderNode
	tail   *orderNode
	count  int
	volume fpdecimal.Decimal

	// neighbors in the side's sorted level list
	prevLevel *priceLevel
	nextLevel *priceLevel
}

func newPriceLevel(price fpdecimal.Decimal) *priceLevel {
	return &priceLevel{
		price:  price,
		volume: fpdecimal.Zero,
	}
}

// append adds an order at the queue tail and returns its node handle.
func (l *priceLevel) append(order *Order) *orderNode {
	node := &orderNode{
		order: order,
		level: l,
	}

	if l.tail == nil {
		l.head = node
		l.tail = node
	} else {
		node.prev = l.tail
		l.tail.next = node
		l.tail = node
	}

	l.count++
	l.volume = l.volume.Add(order.Quantity())

	return node
}

// front returns the oldest resting order without removing it.
func (l *priceLevel) front() *Order {
	if l.head == nil {
		return nil
	}
	return l.head.order
}

// unlink removes the node from the queue and deducts its order's
// remaining quantity from the level volume.
func (l *priceLevel) unlink(node *orderNode) {
	if node.prev != nil {
		node.prev.next = node.next
	} else {
		l.head = node.next
	}

	if node.next != nil {
		node.next.prev = node.prev
	} else {
		l.tail = node.prev
	}

	node.prev = nil
	node.next = nil
	node.level = nil

	l.count--
	l.volume = l.volume.Sub(node.order.Quantity())
}

// reduce deducts a filled quantity from the level volume. The caller
// has already decremented the order itself.
func (l *priceLevel) reduce(quantity fpdecimal.Decimal) {
	l.volume = l.volume.Sub(quantity)
}

func (l *priceLevel) empty() bool {
	return l.count == 0
}

// orders returns the queue contents in FIFO order.
func (l *priceLevel) orders() []*Order {
	out := make([]*Order, 0, l.count)
	for node := l.head; node != nil; node = node.next {
		out = append(out, node.order)
	}
	return out
}
