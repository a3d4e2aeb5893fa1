package book

import (
	"fmt"
	"testing"

	"github.com/nikolaydubina/fpdecimal"
)

func limitForTest(t *testing.T, id string, side Side, qty, price float64) *Order {
	t.Helper()
	order, err := NewLimitOrder(id, side, fpdecimal.FromFloat(qty), fpdecimal.FromFloat(price))
	if err != nil {
		t.Fatalf("NewLimitOrder(%s): %v", id, err)
	}
	return order
}

func TestPriceLevelFIFO(t *testing.T) {
	level := newPriceLevel(fpdecimal.FromFloat(100.0))

	for i := 0; i < 3; i++ {
		level.append(limitForTest(t, fmt.Sprintf("o%d", i), Sell, 1, 100))
	}

	orders := level.orders()
	if len(orders) != 3 {
		t.Fatalf("Expected 3 queued orders, got %d", len(orders))
	}
	for i, o := range orders {
		if o.ID() != fmt.Sprintf("o%d", i) {
			t.Errorf("Queue position %d holds %s, FIFO order broken", i, o.ID())
		}
	}
	if level.front().ID() != "o0" {
		t.Errorf("Expected o0 at the front, got %s", level.front().ID())
	}
	if !level.volume.Equal(fpdecimal.FromFloat(3.0)) {
		t.Errorf("Expected volume 3, got %s", level.volume.String())
	}
}

func TestPriceLevelUnlink(t *testing.T) {
	level := newPriceLevel(fpdecimal.FromFloat(100.0))

	n0 := level.append(limitForTest(t, "o0", Sell, 1, 100))
	n1 := level.append(limitForTest(t, "o1", Sell, 2, 100))
	n2 := level.append(limitForTest(t, "o2", Sell, 3, 100))

	// Middle removal keeps o0 -> o2 linked
	level.unlink(n1)
	orders := level.orders()
	if len(orders) != 2 || orders[0].ID() != "o0" || orders[1].ID() != "o2" {
		t.Errorf("Unexpected queue after middle unlink: %v", orders)
	}
	if !level.volume.Equal(fpdecimal.FromFloat(4.0)) {
		t.Errorf("Expected volume 4 after unlink, got %s", level.volume.String())
	}

	level.unlink(n0)
	level.unlink(n2)
	if !level.empty() {
		t.Error("Expected empty level after removing all orders")
	}
	if !level.volume.Equal(fpdecimal.Zero) {
		t.Errorf("Expected zero volume, got %s", level.volume.String())
	}
	if level.front() != nil {
		t.Error("Expected nil front on empty level")
	}
}

func TestSideBookOrdering(t *testing.T) {
	bids := newSideBook(Buy)
	for _, p := range []float64{100, 102, 98, 101} {
		bids.insert(limitForTest(t, fmt.Sprintf("b%v", p), Buy, 1, p))
	}

	prices := bids.prices()
	expected := []float64{102, 101, 100, 98}
	for i, want := range expected {
		if !prices[i].Equal(fpdecimal.FromFloat(want)) {
			t.Errorf("Bid level %d: expected %v, got %s", i, want, prices[i].String())
		}
	}
	if !bids.bestLevel().price.Equal(fpdecimal.FromFloat(102.0)) {
		t.Errorf("Expected best bid 102, got %s", bids.bestLevel().price.String())
	}

	asks := newSideBook(Sell)
	for _, p := range []float64{100, 102, 98, 101} {
		asks.insert(limitForTest(t, fmt.Sprintf("a%v", p), Sell, 1, p))
	}

	prices = asks.prices()
	expected = []float64{98, 100, 101, 102}
	for i, want := range expected {
		if !prices[i].Equal(fpdecimal.FromFloat(want)) {
			t.Errorf("Ask level %d: expected %v, got %s", i, want, prices[i].String())
		}
	}
}

func TestSideBookRemoveExcisesEmptyLevel(t *testing.T) {
	sb := newSideBook(Sell)
	n1 := sb.insert(limitForTest(t, "a1", Sell, 1, 100))
	sb.insert(limitForTest(t, "a2", Sell, 1, 101))

	sb.remove(n1)

	if sb.level(fpdecimal.FromFloat(100.0)) != nil {
		t.Error("Empty level must be removed from the map")
	}
	if !sb.bestLevel().price.Equal(fpdecimal.FromFloat(101.0)) {
		t.Errorf("Expected new best 101, got %s", sb.bestLevel().price.String())
	}
	if sb.orders != 1 {
		t.Errorf("Expected 1 order left, got %d", sb.orders)
	}

	// Same-price reinsert must create a fresh level
	sb.insert(limitForTest(t, "a3", Sell, 2, 100))
	if !sb.bestLevel().price.Equal(fpdecimal.FromFloat(100.0)) {
		t.Error("Reinserted level should be best again")
	}
}

func TestSideBookVolume(t *testing.T) {
	sb := newSideBook(Buy)
	sb.insert(limitForTest(t, "b1", Buy, 1.5, 100))
	sb.insert(limitForTest(t, "b2", Buy, 2.5, 100))
	sb.insert(limitForTest(t, "b3", Buy, 3, 99))

	if !sb.totalVolume().Equal(fpdecimal.FromFloat(7.0)) {
		t.Errorf("Expected total volume 7, got %s", sb.totalVolume().String())
	}
	if !sb.volumeAt(fpdecimal.FromFloat(100.0)).Equal(fpdecimal.FromFloat(4.0)) {
		t.Errorf("Expected volume 4 at 100, got %s", sb.volumeAt(fpdecimal.FromFloat(100.0)).String())
	}
	if !sb.volumeAt(fpdecimal.FromFloat(50.0)).Equal(fpdecimal.Zero) {
		t.Error("Expected zero volume at absent level")
	}
}

func TestOrderIndex(t *testing.T) {
	idx := newOrderIndex()
	level := newPriceLevel(fpdecimal.FromFloat(100.0))
	node := level.append(limitForTest(t, "o1", Buy, 1, 100))

	if err := idx.register("o1", node); err != nil {
		t.Fatalf("register failed: %v", err)
	}
	if err := idx.register("o1", node); err != ErrOrderExists {
		t.Errorf("Expected ErrOrderExists, got %v", err)
	}

	got, err := idx.lookup("o1")
	if err != nil || got != node {
		t.Errorf("lookup returned %v, %v", got, err)
	}
	if !idx.has("o1") || idx.len() != 1 {
		t.Error("Index state wrong after register")
	}

	if err := idx.unregister("o1"); err != nil {
		t.Fatalf("unregister failed: %v", err)
	}
	if err := idx.unregister("o1"); err != ErrNonexistentOrder {
		t.Errorf("Expected ErrNonexistentOrder, got %v", err)
	}
	if _, err := idx.lookup("o1"); err != ErrNonexistentOrder {
		t.Errorf("Expected ErrNonexistentOrder on lookup, got %v", err)
	}
}
