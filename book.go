package match

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// Book is the resting state of one instrument: a bid queue, an ask queue and an
// index from order id to the order stored in those queues.
//
// Book has no internal synchronization. It must be owned by a single goroutine
// (see OrderBook) or guarded by the caller.
type Book struct {
	bidQueue *queue
	askQueue *queue
	orders   map[string]*Order
}

// NewBook creates an empty book.
func NewBook() *Book {
	return &Book{
		bidQueue: NewBuyerQueue(),
		askQueue: NewSellerQueue(),
		orders:   make(map[string]*Order),
	}
}

func (b *Book) queueOf(side Side) *queue {
	if side == Buy {
		return b.bidQueue
	}
	return b.askQueue
}

func validateOrder(order *Order) error {
	if order == nil {
		return fmt.Errorf("%w: nil order", ErrInvalidOrder)
	}
	if len(order.ID) == 0 {
		return fmt.Errorf("%w: empty id", ErrInvalidOrder)
	}
	if order.Side != Buy && order.Side != Sell {
		return fmt.Errorf("%w: order %s has unknown side %d", ErrInvalidOrder, order.ID, order.Side)
	}
	if !order.Price.IsPositive() {
		return fmt.Errorf("%w: order %s has price %s", ErrInvalidOrder, order.ID, order.Price)
	}
	if order.Quantity <= 0 {
		return fmt.Errorf("%w: order %s has quantity %d", ErrInvalidOrder, order.ID, order.Quantity)
	}
	return nil
}

// AddOrder appends the order to the back of its price level and indexes it.
// If the id is already resting, the previous instance is taken out of its level
// first so the index and the levels never disagree.
func (b *Book) AddOrder(order *Order) error {
	if err := validateOrder(order); err != nil {
		return err
	}

	if existing, ok := b.orders[order.ID]; ok {
		b.queueOf(existing.Side).removeOrder(existing)
		delete(b.orders, existing.ID)
	}

	order.Timestamp = time.Now().UnixNano()
	b.queueOf(order.Side).pushBack(order)
	b.orders[order.ID] = order
	return nil
}

// Order returns a copy of the resting order with the given id.
func (b *Book) Order(id string) (*Order, bool) {
	order, ok := b.orders[id]
	if !ok {
		return nil, false
	}
	return order.Clone(), true
}

// Orders returns copies of every resting order: bids best price first, then
// asks best price first, arrival order within a level.
func (b *Book) Orders() []*Order {
	result := make([]*Order, 0, len(b.orders))
	result = b.bidQueue.appendSnapshot(result)
	result = b.askQueue.appendSnapshot(result)
	return result
}

// BidsAt returns copies of the bids resting at exactly price.
func (b *Book) BidsAt(price decimal.Decimal) []*Order {
	return b.bidQueue.ordersAt(price)
}

// AsksAt returns copies of the asks resting at exactly price.
func (b *Book) AsksAt(price decimal.Decimal) []*Order {
	return b.askQueue.ordersAt(price)
}

// RemoveOrder takes this exact order instance out of its level and out of the index.
// It returns false if the instance is not resting in the book.
func (b *Book) RemoveOrder(order *Order) bool {
	if order == nil {
		return false
	}

	indexed, ok := b.orders[order.ID]
	if !ok || indexed != order {
		return false
	}

	b.queueOf(order.Side).removeOrder(order)
	delete(b.orders, order.ID)
	return true
}

// DeleteOrder removes the order with the given id and returns it.
func (b *Book) DeleteOrder(id string) (*Order, error) {
	order, ok := b.orders[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrOrderNotFound, id)
	}

	b.RemoveOrder(order)
	return order, nil
}

// UpdateQuantity replaces the quantity of a resting order and moves it to the
// back of its price level, so the order loses its time priority. It returns the
// quantity the order had before the update. An id that is not resting fails with
// ErrOrderNotFound before the quantity is checked.
func (b *Book) UpdateQuantity(id string, quantity int64) (int64, error) {
	order, ok := b.orders[id]
	if !ok {
		return 0, fmt.Errorf("%w: %s", ErrOrderNotFound, id)
	}

	if quantity <= 0 {
		return 0, fmt.Errorf("%w: order %s quantity %d", ErrInvalidOrder, id, quantity)
	}

	oldQuantity := order.Quantity

	q := b.queueOf(order.Side)
	q.removeOrder(order)
	order.Quantity = quantity
	order.Timestamp = time.Now().UnixNano()
	q.pushBack(order)

	return oldQuantity, nil
}

// fill decrements a resting order by size without touching its queue position.
// An order that reaches zero is removed from the book.
func (b *Book) fill(order *Order, size int64) {
	b.queueOf(order.Side).fill(order, size)
	if order.Quantity == 0 {
		b.RemoveOrder(order)
	}
}

// Len returns the number of resting orders.
func (b *Book) Len() int {
	return len(b.orders)
}

// BestBid returns the highest bid price.
func (b *Book) BestBid() (decimal.Decimal, bool) {
	order := b.bidQueue.peekHeadOrder()
	if order == nil {
		return decimal.Zero, false
	}
	return order.Price, true
}

// BestAsk returns the lowest ask price.
func (b *Book) BestAsk() (decimal.Decimal, bool) {
	order := b.askQueue.peekHeadOrder()
	if order == nil {
		return decimal.Zero, false
	}
	return order.Price, true
}

// Depth returns up to limit aggregated levels per side, best price first.
func (b *Book) Depth(limit uint32) *Depth {
	return &Depth{
		Asks: b.askQueue.depth(limit),
		Bids: b.bidQueue.depth(limit),
	}
}

// Stats returns level and order counts for both sides.
func (b *Book) Stats() *BookStats {
	return &BookStats{
		AskDepthCount: b.askQueue.depthCount(),
		AskOrderCount: b.askQueue.orderCount(),
		BidDepthCount: b.bidQueue.depthCount(),
		BidOrderCount: b.bidQueue.orderCount(),
	}
}
