package book

// orderIndex maps an order ID to the node holding its resting order.
// Every live order in either side book has exactly one entry here, and
// every entry points at a queued node; mutations to the side books and
// the index always happen together under the book's lock.
type orderIndex struct {
	entries map[string]*orderNode
}

func newOrderIndex() *orderIndex {
	return &orderIndex{
		entries: make(map[string]*orderNode),
	}
}

// register stores the node handle for an order ID.
func (idx *orderIndex) register(orderID string, node *orderNode) error {
	if _, exists := idx.entries[orderID]; exists {
		return ErrOrderExists
	}
	idx.entries[orderID] = node
	return nil
}

// lookup returns the node for an order ID.
func (idx *orderIndex) lookup(orderID string) (*orderNode, error) {
	node, exists := idx.entries[orderID]
	if !exists {
		return nil, ErrNonexistentOrder
	}
	return node, nil
}

// unregister drops the entry for an order ID.
func (idx *orderIndex) unregister(orderID string) error {
	if _, exists := idx.entries[orderID]; !exists {
		return ErrNonexistentOrder
	}
	delete(idx.entries, orderID)
	return nil
}

func (idx *orderIndex) has(orderID string) bool {
	_, exists := idx.entries[orderID]
	return exists
}

func (idx *orderIndex) len() int {
	return len(idx.entries)
}
