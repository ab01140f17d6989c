package match

import (
	"github.com/shopspring/decimal"
)

// Side represents the order side (Buy/Sell).
type Side int8

const (
	Buy  Side = 1
	Sell Side = 2
)

func (s Side) String() string {
	switch s {
	case Buy:
		return "buy"
	case Sell:
		return "sell"
	}
	return "unknown"
}

// Opposite returns the side an order of this side matches against.
func (s Side) Opposite() Side {
	if s == Buy {
		return Sell
	}
	return Buy
}

// Order represents the state of an order in the order book.
// The same *Order is referenced by its price level and by the order index,
// so a quantity change made through one is visible through the other.
type Order struct {
	ID        string          `json:"id"`
	Side      Side            `json:"side"`
	Price     decimal.Decimal `json:"price"`
	Quantity  int64           `json:"quantity"`  // Remaining quantity
	Timestamp int64           `json:"timestamp"` // Unix nano, time the order entered its queue

	// Intrusive linked list pointers (ignored by JSON)
	next *Order
	prev *Order
}

// Clone returns a detached copy of the order, safe to hand out to callers.
func (o *Order) Clone() *Order {
	return &Order{
		ID:        o.ID,
		Side:      o.Side,
		Price:     o.Price,
		Quantity:  o.Quantity,
		Timestamp: o.Timestamp,
	}
}

// PlaceOrderCommand is the input command for placing an order.
// ID may be empty, in which case the order book generates one.
type PlaceOrderCommand struct {
	ID       string          `json:"id"`
	Side     Side            `json:"side"`
	Price    decimal.Decimal `json:"price"`
	Quantity int64           `json:"quantity"`
}

// Trade is a single fill between an incoming (taker) order and a resting (maker) order.
type Trade struct {
	TakerOrderID string          `json:"taker_order_id"`
	MakerOrderID string          `json:"maker_order_id"`
	Side         Side            `json:"side"` // Taker side
	Price        decimal.Decimal `json:"price"`
	Quantity     int64           `json:"quantity"`
}

// ExecutionReport describes the outcome of executing one incoming order.
type ExecutionReport struct {
	OrderID   string   `json:"order_id"`
	Resting   bool     `json:"resting"`   // The remainder was added to the book
	Filled    int64    `json:"filled"`    // Total quantity matched
	Remaining int64    `json:"remaining"` // Quantity left resting, zero when fully filled
	Trades    []*Trade `json:"trades"`
}

// FullyFilled reports whether the incoming order was consumed completely.
func (r *ExecutionReport) FullyFilled() bool {
	return !r.Resting && r.Remaining == 0
}

// DepthItem is the aggregated size of one price level.
type DepthItem struct {
	ID    uint32
	Price decimal.Decimal
	Size  int64
	Count int64
}

// Depth is a best-first view of both sides of the book.
type Depth struct {
	UpdateID uint64       `json:"update_id"`
	Asks     []*DepthItem `json:"asks"`
	Bids     []*DepthItem `json:"bids"`
}

// BookStats contains statistics about the order book queues
type BookStats struct {
	AskDepthCount int64
	AskOrderCount int64
	BidDepthCount int64
	BidOrderCount int64
}

// DepthChange represents a change in the order book depth.
type DepthChange struct {
	Side     Side
	Price    decimal.Decimal
	SizeDiff int64
}
