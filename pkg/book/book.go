package book

import (
	"context"
	"strings"
	"sync"

	"github.com/marketflow/lob/pkg/logging"
	"github.com/marketflow/lob/pkg/messaging"
	"github.com/marketflow/lob/pkg/otel"
	"github.com/nikolaydubina/fpdecimal"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

// OrderBook implements price-time priority matching for a single
// instrument. It owns one side book per side plus the order index;
// every mutating operation runs under a single exclusive critical
// section, so a match loop and the resting of its remainder are atomic
// from the caller's perspective.
type OrderBook struct {
	mu             sync.RWMutex
	bids           *sideBook
	asks           *sideBook
	index          *orderIndex
	seq            uint64
	lastTradePrice fpdecimal.Decimal
	sender         messaging.MessageSender
}

// NewOrderBook creates an empty OrderBook
func NewOrderBook() *OrderBook {
	return &OrderBook{
		bids:  newSideBook(Buy),
		asks:  newSideBook(Sell),
		index: newOrderIndex(),
	}
}

// SetMessageSender installs a sender for execution results. A nil
// sender disables publishing.
func (ob *OrderBook) SetMessageSender(sender messaging.MessageSender) {
	ob.mu.Lock()
	defer ob.mu.Unlock()
	ob.sender = sender
}

// Process matches the given order against the book. Limit orders rest
// any unfilled remainder; market orders never rest. Validation failures
// return before any state mutation.
func (ob *OrderBook) Process(ctx context.Context, order *Order) (*Done, error) {
	if order == nil {
		return nil, ErrInvalidArgument
	}

	ctx, span := otel.StartOrderSpan(ctx, otel.SpanProcessOrder,
		attribute.String(otel.AttributeOrderID, order.ID()),
		attribute.String(otel.AttributeOrderSide, order.Side().String()),
		attribute.String(otel.AttributeOrderType, string(order.OrderType())),
		attribute.String(otel.AttributeOrderQuantity, order.Quantity().String()),
		attribute.String(otel.AttributeOrderPrice, order.Price().String()),
	)
	defer otel.EndSpan(span)

	ob.mu.Lock()
	var done *Done
	var err error
	switch {
	case order.IsLimitOrder():
		done, err = ob.processLimitOrder(order)
	case order.IsMarketOrder():
		done, err = ob.processMarketOrder(order)
	default:
		err = ErrInvalidArgument
	}
	ob.mu.Unlock()

	if err != nil {
		otel.SetSpanStatus(span, codes.Error, "failed to process order")
		return done, err
	}

	otel.AddAttributes(span,
		attribute.String(otel.AttributeExecutedQuantity, done.Processed.String()),
		attribute.String(otel.AttributeRemainingQuantity, done.Left.String()),
		attribute.Int(otel.AttributeTradeCount, len(done.Trades)),
	)
	otel.SetSpanStatus(span, codes.Ok, "order processed successfully")

	if done.Processed.GreaterThan(fpdecimal.Zero) {
		metrics := otel.GetOrderBookMetrics()
		metrics.RecordMatchedOrders(ctx, string(order.OrderType()), 1)
		if fills := len(done.Trades) - 1; fills > 0 {
			metrics.RecordFills(ctx, int64(fills))
		}
	}

	ob.publish(ctx, done)

	return done, nil
}

// processLimitOrder runs the match loop for a limit order and rests the
// remainder. Caller holds the write lock.
func (ob *OrderBook) processLimitOrder(limitOrder *Order) (*Done, error) {
	if ob.index.has(limitOrder.ID()) {
		return nil, ErrOrderExists
	}

	done := newDone(limitOrder)
	limitOrder.SetTaker()

	remaining := ob.matchLoop(done, limitOrder, limitOrder.Price(), true)

	limitOrder.SetQuantity(remaining)
	if remaining.GreaterThan(fpdecimal.Zero) {
		ob.seq++
		limitOrder.seq = ob.seq
		node := ob.sideFor(limitOrder.Side()).insert(limitOrder)
		if err := ob.index.register(limitOrder.ID(), node); err != nil {
			return nil, err
		}
		done.Stored = true
	}

	done.setLeft(remaining)
	return done, nil
}

// processMarketOrder runs the match loop with no price bound. An empty
// opposing book fails with ErrEmptySide; an unfilled remainder after a
// partial fill is discarded, never rested. Caller holds the write lock.
func (ob *OrderBook) processMarketOrder(marketOrder *Order) (*Done, error) {
	if ob.index.has(marketOrder.ID()) {
		return nil, ErrOrderExists
	}

	if ob.sideFor(marketOrder.Side().Opposite()).bestLevel() == nil {
		return nil, ErrEmptySide
	}

	done := newDone(marketOrder)
	marketOrder.SetTaker()

	remaining := ob.matchLoop(done, marketOrder, fpdecimal.Zero, false)

	marketOrder.SetQuantity(remaining)
	done.setLeft(remaining)
	return done, nil
}

// matchLoop fills the incoming order against the opposing side, best
// level first and strictly FIFO within a level, until the order is
// exhausted, the opposing book empties, or (for priced orders) the best
// level no longer crosses. Fills execute at the resting order's price.
func (ob *OrderBook) matchLoop(done *Done, order *Order, limitPrice fpdecimal.Decimal, priced bool) fpdecimal.Decimal {
	remaining := order.Quantity()
	opposite := ob.sideFor(order.Side().Opposite())

	for remaining.GreaterThan(fpdecimal.Zero) {
		level := opposite.bestLevel()
		if level == nil {
			break
		}
		if priced && !crosses(order.Side(), limitPrice, level.price) {
			break
		}

		node := level.head
		maker := node.order
		maker.SetMaker()

		fill := min(remaining, maker.Quantity())
		remaining = remaining.Sub(fill)
		maker.DecreaseQuantity(fill)
		level.reduce(fill)
		ob.lastTradePrice = level.price

		done.appendMatch(maker, fill, level.price)

		if maker.Quantity().Equal(fpdecimal.Zero) {
			opposite.remove(node)
			_ = ob.index.unregister(maker.ID())
		}
	}

	return remaining
}

// Cancel removes a resting order from the book. A second cancel for the
// same ID fails with ErrNonexistentOrder.
func (ob *OrderBook) Cancel(orderID string) (*Order, error) {
	ob.mu.Lock()
	defer ob.mu.Unlock()

	node, err := ob.index.lookup(orderID)
	if err != nil {
		return nil, err
	}

	order := node.order
	ob.sideFor(order.Side()).remove(node)
	_ = ob.index.unregister(orderID)
	order.Cancel()

	return order, nil
}

// RestoreOrder places a limit order directly into the book without
// running the match loop. This is the bulk-load path used by snapshot
// ingestion; an order that would cross the opposing best is rejected so
// the no-cross invariant survives a restore.
func (ob *OrderBook) RestoreOrder(order *Order) error {
	if order == nil || !order.IsLimitOrder() {
		return ErrInvalidArgument
	}

	ob.mu.Lock()
	defer ob.mu.Unlock()

	if ob.index.has(order.ID()) {
		return ErrOrderExists
	}

	if best := ob.sideFor(order.Side().Opposite()).bestLevel(); best != nil {
		if crosses(order.Side(), order.Price(), best.price) {
			return ErrCrossedBook
		}
	}

	ob.seq++
	order.seq = ob.seq
	node := ob.sideFor(order.Side()).insert(order)
	return ob.index.register(order.ID(), node)
}

// GetOrder returns the resting order with the given ID, or nil.
func (ob *OrderBook) GetOrder(orderID string) *Order {
	ob.mu.RLock()
	defer ob.mu.RUnlock()

	node, err := ob.index.lookup(orderID)
	if err != nil {
		return nil
	}
	return node.order
}

// Has reports whether an order with the given ID rests in the book.
func (ob *OrderBook) Has(orderID string) bool {
	ob.mu.RLock()
	defer ob.mu.RUnlock()
	return ob.index.has(orderID)
}

// BestBid returns the highest bid price.
func (ob *OrderBook) BestBid() (fpdecimal.Decimal, error) {
	ob.mu.RLock()
	defer ob.mu.RUnlock()
	return ob.bestPrice(ob.bids)
}

// BestAsk returns the lowest ask price.
func (ob *OrderBook) BestAsk() (fpdecimal.Decimal, error) {
	ob.mu.RLock()
	defer ob.mu.RUnlock()
	return ob.bestPrice(ob.asks)
}

func (ob *OrderBook) bestPrice(sb *sideBook) (fpdecimal.Decimal, error) {
	level := sb.bestLevel()
	if level == nil {
		return fpdecimal.Zero, ErrEmptySide
	}
	return level.price, nil
}

// Spread returns best ask minus best bid. Fails with ErrEmptySide when
// either side has no liquidity.
func (ob *OrderBook) Spread() (fpdecimal.Decimal, error) {
	ob.mu.RLock()
	defer ob.mu.RUnlock()

	bid, err := ob.bestPrice(ob.bids)
	if err != nil {
		return fpdecimal.Zero, err
	}
	ask, err := ob.bestPrice(ob.asks)
	if err != nil {
		return fpdecimal.Zero, err
	}

	return ask.Sub(bid), nil
}

// Volume returns the total resting quantity on a side.
func (ob *OrderBook) Volume(side Side) fpdecimal.Decimal {
	ob.mu.RLock()
	defer ob.mu.RUnlock()
	return ob.sideFor(side).totalVolume()
}

// VolumeAt returns the resting quantity at one price on a side, zero if
// no level exists there.
func (ob *OrderBook) VolumeAt(side Side, price fpdecimal.Decimal) fpdecimal.Decimal {
	ob.mu.RLock()
	defer ob.mu.RUnlock()
	return ob.sideFor(side).volumeAt(price)
}

// Count returns the number of resting orders on a side.
func (ob *OrderBook) Count(side Side) int {
	ob.mu.RLock()
	defer ob.mu.RUnlock()
	return ob.sideFor(side).orders
}

// CountAll returns the number of resting orders in the whole book.
func (ob *OrderBook) CountAll() int {
	ob.mu.RLock()
	defer ob.mu.RUnlock()
	return ob.index.len()
}

// CountAt returns the number of resting orders at one price on a side.
func (ob *OrderBook) CountAt(side Side, price fpdecimal.Decimal) int {
	ob.mu.RLock()
	defer ob.mu.RUnlock()

	if level := ob.sideFor(side).level(price); level != nil {
		return level.count
	}
	return 0
}

// Depth returns the top n levels per side, best-first. n <= 0 returns
// all levels.
func (ob *OrderBook) Depth(n int) *DepthSnapshot {
	ob.mu.RLock()
	defer ob.mu.RUnlock()

	return &DepthSnapshot{
		Bids: ob.bids.depth(n),
		Asks: ob.asks.depth(n),
	}
}

// LastTradePrice returns the price of the most recent fill, zero if no
// trade has happened yet.
func (ob *OrderBook) LastTradePrice() fpdecimal.Decimal {
	ob.mu.RLock()
	defer ob.mu.RUnlock()
	return ob.lastTradePrice
}

// Clear atomically discards all book state.
func (ob *OrderBook) Clear() {
	ob.mu.Lock()
	defer ob.mu.Unlock()

	ob.bids = newSideBook(Buy)
	ob.asks = newSideBook(Sell)
	ob.index = newOrderIndex()
	ob.seq = 0
	ob.lastTradePrice = fpdecimal.Zero
}

// String implements fmt.Stringer interface
func (ob *OrderBook) String() string {
	ob.mu.RLock()
	defer ob.mu.RUnlock()

	builder := strings.Builder{}
	builder.WriteString("Ask:")
	builder.WriteString(ob.asks.String())
	builder.WriteString("\n")
	builder.WriteString("Bid:")
	builder.WriteString(ob.bids.String())
	builder.WriteString("\n")
	return builder.String()
}

func (ob *OrderBook) sideFor(side Side) *sideBook {
	if side == Buy {
		return ob.bids
	}
	return ob.asks
}

// publish sends the execution result to the configured sender.
func (ob *OrderBook) publish(ctx context.Context, done *Done) {
	ob.mu.RLock()
	sender := ob.sender
	ob.mu.RUnlock()

	if sender == nil || done == nil {
		return
	}

	ctx, span := otel.StartOrderSpan(ctx, otel.SpanPublishDone,
		attribute.String(otel.AttributeOrderID, done.Order.ID()),
		attribute.String(otel.AttributeExecutedQuantity, done.Processed.String()),
		attribute.String(otel.AttributeRemainingQuantity, done.Left.String()),
		attribute.Int(otel.AttributeTradeCount, len(done.Trades)),
	)
	defer otel.EndSpan(span)

	msg := done.ToMessagingDoneMessage()
	if msg == nil {
		otel.SetSpanStatus(span, codes.Error, "failed to convert order to message format")
		return
	}

	if err := sender.SendDoneMessage(msg); err != nil {
		otel.SetSpanStatus(span, codes.Error, "failed to send order message")
		logger := logging.FromContext(ctx)
		logger.Error().Err(err).Str("order_id", done.Order.ID()).Msg("Failed to publish execution result")
		return
	}

	otel.SetSpanStatus(span, codes.Ok, "order message sent successfully")
}

// crosses checks if the order price matches with the book price
func crosses(side Side, orderPrice, bookPrice fpdecimal.Decimal) bool {
	if side == Buy {
		return bookPrice.LessThanOrEqual(orderPrice)
	}
	return bookPrice.GreaterThanOrEqual(orderPrice)
}

// min returns the minimum of two decimals
func min(a, b fpdecimal.Decimal) fpdecimal.Decimal {
	if a.LessThan(b) {
		return a
	}
	return b
}
