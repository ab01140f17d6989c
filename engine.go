package match

import (
	"fmt"
	"sync/atomic"
	"time"
)

// MatchingEngine turns incoming orders into trades against a Book and rests
// whatever is left. It matches only against the opposite level quoted at
// exactly the incoming price; better priced levels are never swept.
//
// Like Book, a MatchingEngine is not safe for concurrent use. OrderBook wraps
// one behind a single consumer goroutine.
type MatchingEngine struct {
	marketID    string
	book        *Book
	publishLog  PublishLog
	idGenerator IDGenerator
	seqID       atomic.Uint64 // Last BookLog sequence ID
	tradeID     atomic.Uint64 // Last trade ID
}

// EngineOption configures a MatchingEngine.
type EngineOption func(*MatchingEngine)

// WithMarketID sets the market id stamped on every BookLog.
func WithMarketID(marketID string) EngineOption {
	return func(e *MatchingEngine) {
		e.marketID = marketID
	}
}

// WithEnginePublishLog sets where the engine publishes its BookLogs.
func WithEnginePublishLog(publishLog PublishLog) EngineOption {
	return func(e *MatchingEngine) {
		e.publishLog = publishLog
	}
}

// WithEngineIDGenerator sets the generator used for orders submitted without an id.
func WithEngineIDGenerator(gen IDGenerator) EngineOption {
	return func(e *MatchingEngine) {
		e.idGenerator = gen
	}
}

// NewMatchingEngine creates a matching engine over book.
func NewMatchingEngine(book *Book, opts ...EngineOption) *MatchingEngine {
	engine := &MatchingEngine{
		book:        book,
		publishLog:  NewDiscardPublishLog(),
		idGenerator: XIDGenerator{},
	}
	for _, opt := range opts {
		opt(engine)
	}
	return engine
}

// Book returns the book the engine operates on.
func (e *MatchingEngine) Book() *Book {
	return e.book
}

// SequenceID returns the sequence ID of the last published BookLog.
func (e *MatchingEngine) SequenceID() uint64 {
	return e.seqID.Load()
}

// Execute matches order against the resting orders at exactly order.Price on
// the opposite side, oldest first. A resting order that is only partially
// filled keeps its place at the head of the level. Any unfilled remainder is
// added to the book under the order's id; a fully filled order never enters it.
//
// An empty order.ID is replaced by a generated one once the order is accepted.
// Execute fails with ErrInvalidOrder, before touching the book or the order, if
// the order is malformed or its id is already resting.
func (e *MatchingEngine) Execute(order *Order) (*ExecutionReport, error) {
	if order == nil {
		return nil, fmt.Errorf("%w: nil order", ErrInvalidOrder)
	}
	candidate := *order
	if len(candidate.ID) == 0 {
		candidate.ID = e.idGenerator.NewID()
	}
	if err := validateOrder(&candidate); err != nil {
		return nil, err
	}
	if _, exists := e.book.orders[candidate.ID]; exists {
		return nil, fmt.Errorf("%w: duplicate id %s", ErrInvalidOrder, candidate.ID)
	}
	order.ID = candidate.ID

	// Pre-allocate slice and cache timestamp
	logs := make([]*BookLog, 0, 8)
	now := time.Now().UTC()

	report := &ExecutionReport{
		OrderID: order.ID,
		Trades:  make([]*Trade, 0),
	}
	remaining := order.Quantity

	targetQueue := e.book.queueOf(order.Side.Opposite())
	if unit := targetQueue.level(order.Price); unit != nil {
		for remaining > 0 && unit.head != nil {
			resting := unit.head
			size := min(resting.Quantity, remaining)

			trade := &Trade{
				TakerOrderID: order.ID,
				MakerOrderID: resting.ID,
				Side:         order.Side,
				Price:        resting.Price,
				Quantity:     size,
			}

			// removes the resting order, and the level once empty, when it reaches zero
			e.book.fill(resting, size)
			remaining -= size

			report.Trades = append(report.Trades, trade)
			logs = append(logs, newMatchLog(e.seqID.Add(1), e.tradeID.Add(1), e.marketID, trade, now))
		}
	}

	report.Filled = order.Quantity - remaining
	order.Quantity = remaining

	if remaining > 0 {
		if err := e.book.AddOrder(order); err != nil {
			// unreachable: the order was validated above and remaining is positive
			logger.Error("failed to rest order", "order_id", order.ID, "error", err)
		} else {
			report.Resting = true
			report.Remaining = remaining
			logs = append(logs, newOpenLog(e.seqID.Add(1), e.marketID, order, now))
		}
	}

	e.publish(logs)
	return report, nil
}

// Cancel removes the resting order with the given id.
func (e *MatchingEngine) Cancel(id string) error {
	order, err := e.book.DeleteOrder(id)
	if err != nil {
		return err
	}

	e.publish([]*BookLog{newCancelLog(e.seqID.Add(1), e.marketID, order, time.Now().UTC())})
	return nil
}

// UpdateQuantity replaces the quantity of a resting order. The order moves to
// the back of its price level.
func (e *MatchingEngine) UpdateQuantity(id string, quantity int64) error {
	oldQuantity, err := e.book.UpdateQuantity(id, quantity)
	if err != nil {
		return err
	}

	order := e.book.orders[id]
	e.publish([]*BookLog{newAmendLog(e.seqID.Add(1), e.marketID, order, oldQuantity, time.Now().UTC())})
	return nil
}

func (e *MatchingEngine) publish(logs []*BookLog) {
	if len(logs) == 0 || e.publishLog == nil {
		return
	}

	e.publishLog.Publish(logs...)
	for _, log := range logs {
		releaseBookLog(log)
	}
}
