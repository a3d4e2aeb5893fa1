package book

import (
	"encoding/json"
	"strings"

	"github.com/marketflow/lob/pkg/messaging"
	"github.com/nikolaydubina/fpdecimal"
)

// Fill records one execution. Price is always the resting order's
// price: the maker side sets the execution price.
type Fill struct {
	OrderID  string
	Role     Role
	Price    fpdecimal.Decimal
	Quantity fpdecimal.Decimal
}

// MarshalJSON implements Marshaler interface
func (f *Fill) MarshalJSON() ([]byte, error) {
	customStruct := struct {
		OrderID  string `json:"orderID"`
		Role     Role   `json:"role"`
		Price    string `json:"price"`
		Quantity string `json:"quantity"`
	}{
		OrderID:  f.OrderID,
		Role:     f.Role,
		Price:    f.Price.String(),
		Quantity: f.Quantity.String(),
	}
	return json.Marshal(customStruct)
}

// Done contains information about the order execution result
type Done struct {
	// Initial order processed
	Order *Order
	// Original quantity of the order
	Quantity fpdecimal.Decimal
	// Fills executed, taker entry first, then makers in execution order
	Trades []Fill
	// Remaining quantity left for the initial order
	Left fpdecimal.Decimal
	// Total quantity executed for the initial order
	Processed fpdecimal.Decimal
	// Whether the remainder now rests in the book
	Stored bool
}

// newDone creates a new Done object for the given order
func newDone(order *Order) *Done {
	return &Done{
		Order:     order,
		Quantity:  order.OriginalQty(),
		Trades:    make([]Fill, 0),
		Left:      fpdecimal.Zero,
		Processed: fpdecimal.Zero,
		Stored:    false,
	}
}

// GetTrade returns the fill entry for an order ID, nil if absent
func (d *Done) GetTrade(id string) *Fill {
	for i := range d.Trades {
		if d.Trades[i].OrderID == id {
			return &d.Trades[i]
		}
	}
	return nil
}

// appendMatch records one execution against a resting maker order. The
// taker entry is created on the first match and kept at the front.
func (d *Done) appendMatch(maker *Order, quantity, price fpdecimal.Decimal) {
	if len(d.Trades) == 0 {
		d.Trades = append(d.Trades, Fill{
			OrderID:  d.Order.ID(),
			Role:     TAKER,
			Price:    price,
			Quantity: fpdecimal.Zero,
		})
	}

	d.Trades = append(d.Trades, Fill{
		OrderID:  maker.ID(),
		Role:     MAKER,
		Price:    price,
		Quantity: quantity,
	})
}

// setLeft fixes the remaining quantity and updates the taker entry so
// its quantity equals the total processed amount.
func (d *Done) setLeft(left fpdecimal.Decimal) {
	d.Left = left
	d.Processed = d.Quantity.Sub(left)

	for i := range d.Trades {
		if d.Trades[i].OrderID == d.Order.ID() {
			d.Trades[i].Quantity = d.Processed
			break
		}
	}
}

// formatDecimal renders decimals with exactly 3 decimal places, the
// format downstream consumers expect.
func formatDecimal(d fpdecimal.Decimal) string {
	val := d.String()
	parts := strings.Split(val, ".")
	if len(parts) == 1 {
		return val + ".000"
	} else if len(parts[1]) < 3 {
		return val + strings.Repeat("0", 3-len(parts[1]))
	}
	return val
}

// ToMessagingDoneMessage converts the Done object to a messaging.DoneMessage.
func (d *Done) ToMessagingDoneMessage() *messaging.DoneMessage {
	if d == nil || d.Order == nil {
		return nil
	}

	msgTrades := make([]messaging.Trade, len(d.Trades))
	for i, trade := range d.Trades {
		msgTrades[i] = messaging.Trade{
			OrderID:  trade.OrderID,
			Role:     string(trade.Role),
			Price:    formatDecimal(trade.Price),
			Quantity: formatDecimal(trade.Quantity),
		}
	}

	return &messaging.DoneMessage{
		OrderID:      d.Order.ID(),
		ExecutedQty:  formatDecimal(d.Processed),
		RemainingQty: formatDecimal(d.Left),
		Stored:       d.Stored,
		Trades:       msgTrades,
	}
}

// MarshalJSON implements json.Marshaler interface for Done
func (d *Done) MarshalJSON() ([]byte, error) {
	trades := make([]Fill, len(d.Trades))
	copy(trades, d.Trades)

	return json.Marshal(struct {
		Order     *Order `json:"order"`
		Trades    []Fill `json:"trades"`
		Left      string `json:"left"`
		Processed string `json:"processed"`
		Stored    bool   `json:"stored"`
	}{
		Order:     d.Order,
		Trades:    trades,
		Left:      d.Left.String(),
		Processed: d.Processed.String(),
		Stored:    d.Stored,
	})
}

// DepthLevel is one aggregated price level of a depth view.
type DepthLevel struct {
	Price  fpdecimal.Decimal
	Volume fpdecimal.Decimal
	Orders int
}

// DepthSnapshot is a read-only top-N view of both sides, best-first.
type DepthSnapshot struct {
	Bids []DepthLevel
	Asks []DepthLevel
}
