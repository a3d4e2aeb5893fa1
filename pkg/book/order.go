package book

import (
	"encoding/json"

	"github.com/nikolaydubina/fpdecimal"
)

// Side represents buy or sell side of the order
type Side int

// Order sides
const (
	Sell Side = iota
	Buy
)

// String returns side as string
func (s Side) String() string {
	switch s {
	case Buy:
		return "BUY"
	case Sell:
		return "SELL"
	default:
		return "UNKNOWN"
	}
}

// Opposite returns the contra side
func (s Side) Opposite() Side {
	if s == Buy {
		return Sell
	}
	return Buy
}

// Role represents maker or taker role
type Role string

// Order roles
const (
	MAKER Role = "MAKER"
	TAKER Role = "TAKER"
)

// OrderType represents type of the order
type OrderType string

// Order types
const (
	TypeMarket OrderType = "MARKET"
	TypeLimit  OrderType = "LIMIT"
)

// Order stores information about a single order. The quantity field
// holds the remaining (unfilled) quantity; originalQty never changes
// after construction. seq is the book-assigned arrival number used as
// the time-priority tie-break within a price level.
type Order struct {
	id          string
	orderType   OrderType
	side        Side
	quantity    fpdecimal.Decimal
	originalQty fpdecimal.Decimal
	price       fpdecimal.Decimal
	seq         uint64
	canceled    bool
	role        Role
}

// NewMarketOrder creates a new market Order
func NewMarketOrder(orderID string, side Side, quantity fpdecimal.Decimal) (*Order, error) {
	if quantity.LessThanOrEqual(fpdecimal.Zero) {
		return nil, ErrInvalidQuantity
	}

	return &Order{
		id:          orderID,
		orderType:   TypeMarket,
		side:        side,
		quantity:    quantity,
		originalQty: quantity,
		price:       fpdecimal.Zero,
	}, nil
}

// NewLimitOrder creates a new limit Order
func NewLimitOrder(orderID string, side Side, quantity, price fpdecimal.Decimal) (*Order, error) {
	if quantity.LessThanOrEqual(fpdecimal.Zero) {
		return nil, ErrInvalidQuantity
	}

	if price.LessThanOrEqual(fpdecimal.Zero) {
		return nil, ErrInvalidPrice
	}

	return &Order{
		id:          orderID,
		orderType:   TypeLimit,
		side:        side,
		quantity:    quantity,
		originalQty: quantity,
		price:       price,
	}, nil
}

// ID returns OrderID field copy
func (o *Order) ID() string {
	return o.id
}

// Side returns side of the Order
func (o *Order) Side() Side {
	return o.side
}

// OrderType returns type of the Order
func (o *Order) OrderType() OrderType {
	return o.orderType
}

// Quantity returns remaining quantity
func (o *Order) Quantity() fpdecimal.Decimal {
	return o.quantity
}

// OriginalQty returns originalQty field copy
func (o *Order) OriginalQty() fpdecimal.Decimal {
	return o.originalQty
}

// SetQuantity set Quantity field
func (o *Order) SetQuantity(quantity fpdecimal.Decimal) {
	o.quantity = quantity
}

// DecreaseQuantity subtracts from the remaining quantity
func (o *Order) DecreaseQuantity(quantity fpdecimal.Decimal) {
	o.quantity = o.quantity.Sub(quantity)
}

// Price returns Price field copy
func (o *Order) Price() fpdecimal.Decimal {
	return o.price
}

// Sequence returns the arrival number assigned when the order rested
func (o *Order) Sequence() uint64 {
	return o.seq
}

// IsCanceled returns Canceled status
func (o *Order) IsCanceled() bool {
	return o.canceled
}

// Cancel set Canceled status
func (o *Order) Cancel() bool {
	o.canceled = true
	return o.canceled
}

// IsMarketOrder returns true if Order is MARKET
func (o *Order) IsMarketOrder() bool {
	return o.orderType == TypeMarket
}

// IsLimitOrder returns true if Order is LIMIT
func (o *Order) IsLimitOrder() bool {
	return o.orderType == TypeLimit
}

// SetMaker sets Maker role
func (o *Order) SetMaker() {
	o.role = MAKER
}

// SetTaker sets Taker role
func (o *Order) SetTaker() {
	o.role = TAKER
}

// Role returns role of Order
func (o *Order) Role() Role {
	if o.role == MAKER {
		return MAKER
	}

	return TAKER
}

// MarshalJSON implements custom JSON marshaling for Order
func (o *Order) MarshalJSON() ([]byte, error) {
	type OrderJSON struct {
		ID          string    `json:"id"`
		OrderType   OrderType `json:"orderType"`
		Side        Side      `json:"side"`
		Quantity    string    `json:"quantity"`
		OriginalQty string    `json:"originalQty"`
		Price       string    `json:"price"`
		Sequence    uint64    `json:"sequence"`
		Canceled    bool      `json:"canceled"`
	}

	return json.Marshal(OrderJSON{
		ID:          o.id,
		OrderType:   o.orderType,
		Side:        o.side,
		Quantity:    o.quantity.String(),
		OriginalQty: o.originalQty.String(),
		Price:       o.price.String(),
		Sequence:    o.seq,
		Canceled:    o.canceled,
	})
}

// UnmarshalJSON implements custom JSON unmarshaling for Order
func (o *Order) UnmarshalJSON(data []byte) error {
	type OrderJSON struct {
		ID          string    `json:"id"`
		OrderType   OrderType `json:"orderType"`
		Side        Side      `json:"side"`
		Quantity    string    `json:"quantity"`
		OriginalQty string    `json:"originalQty"`
		Price       string    `json:"price"`
		Sequence    uint64    `json:"sequence"`
		Canceled    bool      `json:"canceled"`
	}

	var orderJSON OrderJSON
	if err := json.Unmarshal(data, &orderJSON); err != nil {
		return err
	}

	var err error

	o.id = orderJSON.ID
	o.orderType = orderJSON.OrderType
	o.side = orderJSON.Side

	o.quantity, err = fpdecimal.FromString(orderJSON.Quantity)
	if err != nil {
		o.quantity = fpdecimal.Zero
	}

	o.originalQty, err = fpdecimal.FromString(orderJSON.OriginalQty)
	if err != nil {
		o.originalQty = fpdecimal.Zero
	}

	o.price, err = fpdecimal.FromString(orderJSON.Price)
	if err != nil {
		o.price = fpdecimal.Zero
	}

	o.seq = orderJSON.Sequence
	o.canceled = orderJSON.Canceled

	return nil
}

// String implements Stringer interface
func (o *Order) String() string {
	j, _ := o.MarshalJSON()
	return string(j)
}
