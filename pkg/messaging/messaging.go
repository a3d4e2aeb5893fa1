package messaging

// MessageSender defines an interface for publishing order execution
// results. It decouples the book package from concrete transports
// like Kafka in the queue package.
type MessageSender interface {
	SendDoneMessage(done *DoneMessage) error
}

// DoneMessage is the wire representation of a processed order.
type DoneMessage struct {
	OrderID      string  `json:"orderID"`
	ExecutedQty  string  `json:"executedQty"`
	RemainingQty string  `json:"remainingQty"`
	Stored       bool    `json:"stored"`
	Trades       []Trade `json:"trades"`
}

// Trade represents a single fill between the incoming order and a
// resting order. Price is always the resting order's price.
type Trade struct {
	OrderID  string `json:"orderID"`
	Role     string `json:"role"`
	Price    string `json:"price"`
	Quantity string `json:"quantity"`
}
