package match

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"

	"github.com/shopspring/decimal"
)

// CommandType represents the type of command sent to the order book.
type CommandType uint8

const (
	CmdPlaceOrder CommandType = iota
	CmdCancelOrder
	CmdUpdateQuantity
	CmdGetOrder
	CmdGetOrders
	CmdBidsAt
	CmdAsksAt
	CmdDepth
	CmdGetStats
	CmdSnapshot
	CmdRestore
)

// Response carries the outcome of a command back to its caller.
type Response struct {
	Error error
	Data  any
}

// InputEvent is the internal wrapper for all events entering the OrderBook consumer.
// Read queries travel through the same ring as mutations, so they always observe
// the book between two commands, never in the middle of one.
type InputEvent struct {
	Type     CommandType
	Order    *Order
	OrderID  string
	Price    decimal.Decimal
	Quantity int64
	Limit    uint32
	Snapshot *BookSnapshot
	Resp     chan *Response
}

// OrderBook serializes every operation on one instrument's Book through a
// single consumer goroutine. It is safe for concurrent use.
type OrderBook struct {
	marketID    string
	isShutdown  atomic.Bool
	book        *Book
	engine      *MatchingEngine
	ring        *RingBuffer[*InputEvent]
	ringSize    int64
	publishLog  PublishLog
	idGenerator IDGenerator
}

// OrderBookOption configures an OrderBook.
type OrderBookOption func(*OrderBook)

// WithPublishLog sets where BookLogs are published. Defaults to DiscardPublishLog.
func WithPublishLog(publishLog PublishLog) OrderBookOption {
	return func(book *OrderBook) {
		book.publishLog = publishLog
	}
}

// WithIDGenerator sets the generator for orders placed without an id. Defaults to XIDGenerator.
func WithIDGenerator(gen IDGenerator) OrderBookOption {
	return func(book *OrderBook) {
		book.idGenerator = gen
	}
}

// WithRingBufferSize sets the command ring capacity. It must be a power of 2.
func WithRingBufferSize(size int64) OrderBookOption {
	return func(book *OrderBook) {
		book.ringSize = size
	}
}

// NewOrderBook creates a new order book instance. Call Start to begin processing.
func NewOrderBook(marketID string, opts ...OrderBookOption) *OrderBook {
	book := &OrderBook{
		marketID:    marketID,
		ringSize:    DefaultRingBufferSize,
		publishLog:  NewDiscardPublishLog(),
		idGenerator: XIDGenerator{},
	}
	for _, opt := range opts {
		opt(book)
	}

	book.book = NewBook()
	book.engine = NewMatchingEngine(book.book,
		WithMarketID(marketID),
		WithEnginePublishLog(book.publishLog),
		WithEngineIDGenerator(book.idGenerator),
	)
	book.ring = NewRingBuffer[*InputEvent](book.ringSize, book)
	return book
}

// MarketID returns the market the book belongs to.
func (book *OrderBook) MarketID() string {
	return book.marketID
}

// Start processes commands until Shutdown is called. It blocks.
func (book *OrderBook) Start() error {
	book.ring.Run()
	return nil
}

// Shutdown stops accepting commands and waits for every command already
// submitted to be processed. It returns ctx.Err() if ctx ends first.
func (book *OrderBook) Shutdown(ctx context.Context) error {
	book.isShutdown.Store(true)

	if err := book.ring.Shutdown(ctx); err != nil {
		logger.Warn("order book shutdown timed out", "market_id", book.marketID, "pending", book.ring.GetPendingEvents())
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return err
	}

	logger.Info("order book shut down", "market_id", book.marketID)
	return nil
}

// PlaceOrder submits an order and waits until it has been matched and, if
// anything is left, rested. The report says whether the order rests and under
// which id.
//
// ErrTimeout only means the caller stopped waiting: the command is already in
// the ring and is still applied, so the order may rest or trade. Reconcile with
// Order or Snapshot.
func (book *OrderBook) PlaceOrder(ctx context.Context, cmd *PlaceOrderCommand) (*ExecutionReport, error) {
	if cmd == nil {
		return nil, ErrInvalidParam
	}

	order := &Order{
		ID:       cmd.ID,
		Side:     cmd.Side,
		Price:    cmd.Price,
		Quantity: cmd.Quantity,
	}

	data, err := book.submit(ctx, &InputEvent{Type: CmdPlaceOrder, Order: order})
	if err != nil {
		return nil, err
	}
	report, _ := data.(*ExecutionReport)
	return report, nil
}

// CancelOrder removes a resting order. It returns ErrOrderNotFound if the id is not resting.
// As with PlaceOrder, a cancel that returns ErrTimeout may still be applied.
func (book *OrderBook) CancelOrder(ctx context.Context, id string) error {
	if len(id) == 0 {
		return ErrInvalidParam
	}

	_, err := book.submit(ctx, &InputEvent{Type: CmdCancelOrder, OrderID: id})
	return err
}

// UpdateOrderQuantity replaces the quantity of a resting order, which moves it
// to the back of its price level. It returns ErrOrderNotFound if the id is not resting.
// An update that returns ErrTimeout may still be applied.
func (book *OrderBook) UpdateOrderQuantity(ctx context.Context, id string, quantity int64) error {
	if len(id) == 0 {
		return ErrInvalidParam
	}

	_, err := book.submit(ctx, &InputEvent{Type: CmdUpdateQuantity, OrderID: id, Quantity: quantity})
	return err
}

// Order returns a copy of the resting order with the given id.
func (book *OrderBook) Order(ctx context.Context, id string) (*Order, bool, error) {
	data, err := book.submit(ctx, &InputEvent{Type: CmdGetOrder, OrderID: id})
	if err != nil {
		return nil, false, err
	}
	order, _ := data.(*Order)
	return order, order != nil, nil
}

// Orders returns copies of every resting order.
func (book *OrderBook) Orders(ctx context.Context) ([]*Order, error) {
	data, err := book.submit(ctx, &InputEvent{Type: CmdGetOrders})
	if err != nil {
		return nil, err
	}
	orders, _ := data.([]*Order)
	return orders, nil
}

// BidsAt returns copies of the bids resting at exactly price.
func (book *OrderBook) BidsAt(ctx context.Context, price decimal.Decimal) ([]*Order, error) {
	data, err := book.submit(ctx, &InputEvent{Type: CmdBidsAt, Price: price})
	if err != nil {
		return nil, err
	}
	orders, _ := data.([]*Order)
	return orders, nil
}

// AsksAt returns copies of the asks resting at exactly price.
func (book *OrderBook) AsksAt(ctx context.Context, price decimal.Decimal) ([]*Order, error) {
	data, err := book.submit(ctx, &InputEvent{Type: CmdAsksAt, Price: price})
	if err != nil {
		return nil, err
	}
	orders, _ := data.([]*Order)
	return orders, nil
}

// Depth returns the current depth of the order book up to the specified limit.
func (book *OrderBook) Depth(ctx context.Context, limit uint32) (*Depth, error) {
	if limit == 0 {
		return nil, ErrInvalidParam
	}

	data, err := book.submit(ctx, &InputEvent{Type: CmdDepth, Limit: limit})
	if err != nil {
		return nil, err
	}
	depth, _ := data.(*Depth)
	return depth, nil
}

// Stats returns usage statistics for the order book.
func (book *OrderBook) Stats(ctx context.Context) (*BookStats, error) {
	data, err := book.submit(ctx, &InputEvent{Type: CmdGetStats})
	if err != nil {
		return nil, err
	}
	stats, _ := data.(*BookStats)
	return stats, nil
}

// Snapshot returns a copy of the book's state, taken between two commands.
func (book *OrderBook) Snapshot(ctx context.Context) (*BookSnapshot, error) {
	data, err := book.submit(ctx, &InputEvent{Type: CmdSnapshot})
	if err != nil {
		return nil, err
	}
	snap, _ := data.(*BookSnapshot)
	return snap, nil
}

// Restore replaces the book's state with snap. The snapshot must belong to the same market.
func (book *OrderBook) Restore(ctx context.Context, snap *BookSnapshot) error {
	if snap == nil {
		return ErrInvalidParam
	}

	_, err := book.submit(ctx, &InputEvent{Type: CmdRestore, Snapshot: snap})
	return err
}

// submit publishes ev to the ring and waits for its response.
func (book *OrderBook) submit(ctx context.Context, ev *InputEvent) (any, error) {
	if book.isShutdown.Load() {
		return nil, ErrShutdown
	}

	ev.Resp = make(chan *Response, 1)
	if !book.ring.Publish(ev) {
		return nil, ErrShutdown
	}

	select {
	case resp := <-ev.Resp:
		return resp.Data, resp.Error
	case <-ctx.Done():
		return nil, ErrTimeout
	}
}

// OnEvent runs on the consumer goroutine and applies one command to the book.
func (book *OrderBook) OnEvent(ev *InputEvent) {
	resp := &Response{}

	switch ev.Type {
	case CmdPlaceOrder:
		resp.Data, resp.Error = book.engine.Execute(ev.Order)
	case CmdCancelOrder:
		resp.Error = book.engine.Cancel(ev.OrderID)
	case CmdUpdateQuantity:
		resp.Error = book.engine.UpdateQuantity(ev.OrderID, ev.Quantity)
	case CmdGetOrder:
		if order, ok := book.book.Order(ev.OrderID); ok {
			resp.Data = order
		}
	case CmdGetOrders:
		resp.Data = book.book.Orders()
	case CmdBidsAt:
		resp.Data = book.book.BidsAt(ev.Price)
	case CmdAsksAt:
		resp.Data = book.book.AsksAt(ev.Price)
	case CmdDepth:
		depth := book.book.Depth(ev.Limit)
		depth.UpdateID = book.engine.SequenceID()
		resp.Data = depth
	case CmdGetStats:
		resp.Data = book.book.Stats()
	case CmdSnapshot:
		resp.Data = book.engine.Snapshot()
	case CmdRestore:
		resp.Error = book.engine.Restore(ev.Snapshot)
		if resp.Error == nil {
			logger.Info("order book restored", "market_id", book.marketID, "seq_id", ev.Snapshot.SeqID)
		}
	default:
		resp.Error = fmt.Errorf("%w: unknown command type %d", ErrInvalidParam, ev.Type)
	}

	if resp.Error != nil && !errors.Is(resp.Error, ErrOrderNotFound) {
		logger.Debug("command rejected", "market_id", book.marketID, "type", ev.Type, "error", resp.Error)
	}

	if ev.Resp != nil {
		select {
		case ev.Resp <- resp:
		default:
			// Non-blocking send, if no one is listening, just drop it
		}
	}
}
