package match

import (
	"github.com/huandu/skiplist"
	"github.com/shopspring/decimal"
)

// priceUnit is one price level: a FIFO of resting orders linked through Order.next/prev.
type priceUnit struct {
	price     decimal.Decimal
	totalSize int64
	head      *Order
	tail      *Order
	count     int64
}

// queue is one side of the book. Price levels are kept in a skiplist ordered
// best-first and addressed directly through priceList by their canonical key.
type queue struct {
	side        Side
	totalOrders int64
	depths      int64
	depthList   *skiplist.SkipList
	priceList   map[string]*skiplist.Element
}

// priceKey is the canonical form of a price. decimal.Decimal holds a *big.Int,
// so it cannot be used as a map key directly; the trimmed string form maps
// 9, 9.0 and 9.00 to the same level.
func priceKey(price decimal.Decimal) string {
	return price.String()
}

// NewBuyerQueue creates a new queue for buy orders (bids).
// The orders are sorted by price in descending order (highest price first).
func NewBuyerQueue() *queue {
	return &queue{
		side: Buy,
		depthList: skiplist.New(skiplist.GreaterThanFunc(func(lhs, rhs any) int {
			d1, _ := lhs.(decimal.Decimal)
			d2, _ := rhs.(decimal.Decimal)
			return d2.Cmp(d1)
		})),
		priceList: make(map[string]*skiplist.Element),
	}
}

// NewSellerQueue creates a new queue for sell orders (asks).
// The orders are sorted by price in ascending order (lowest price first).
func NewSellerQueue() *queue {
	return &queue{
		side: Sell,
		depthList: skiplist.New(skiplist.GreaterThanFunc(func(lhs, rhs any) int {
			d1, _ := lhs.(decimal.Decimal)
			d2, _ := rhs.(decimal.Decimal)
			return d1.Cmp(d2)
		})),
		priceList: make(map[string]*skiplist.Element),
	}
}

// level returns the price level at exactly price, or nil.
func (q *queue) level(price decimal.Decimal) *priceUnit {
	el, ok := q.priceList[priceKey(price)]
	if !ok {
		return nil
	}
	unit, _ := el.Value.(*priceUnit)
	return unit
}

// pushBack appends an order to the back of its price level, creating the level if absent.
func (q *queue) pushBack(order *Order) {
	key := priceKey(order.Price)

	el, ok := q.priceList[key]
	if !ok {
		unit := &priceUnit{
			price: order.Price,
		}
		el = q.depthList.Set(order.Price, unit)
		q.priceList[key] = el
		q.depths++
	}

	unit, _ := el.Value.(*priceUnit)
	order.prev = unit.tail
	order.next = nil
	if unit.tail != nil {
		unit.tail.next = order
	}
	unit.tail = order
	if unit.head == nil {
		unit.head = order
	}

	unit.totalSize += order.Quantity
	unit.count++
	q.totalOrders++
}

// contains reports whether this exact order instance is linked into the queue.
func (q *queue) contains(order *Order) bool {
	unit := q.level(order.Price)
	if unit == nil {
		return false
	}
	if order.prev != nil {
		return order.prev.next == order
	}
	return unit.head == order
}

// removeOrder unlinks an order instance from its price level.
// The level is deleted as soon as it becomes empty.
func (q *queue) removeOrder(order *Order) bool {
	key := priceKey(order.Price)
	skipElement, ok := q.priceList[key]
	if !ok {
		return false
	}
	unit, _ := skipElement.Value.(*priceUnit)

	if !q.contains(order) {
		return false
	}

	if order.prev != nil {
		order.prev.next = order.next
	} else {
		unit.head = order.next
	}

	if order.next != nil {
		order.next.prev = order.prev
	} else {
		unit.tail = order.prev
	}

	order.next = nil
	order.prev = nil

	unit.totalSize -= order.Quantity
	unit.count--
	q.totalOrders--

	if unit.count == 0 {
		q.depthList.RemoveElement(skipElement)
		delete(q.priceList, key)
		q.depths--
	}

	return true
}

// fill decrements a resting order in place. Its position in the level is kept.
func (q *queue) fill(order *Order, size int64) {
	if unit := q.level(order.Price); unit != nil {
		unit.totalSize -= size
	}
	order.Quantity -= size
}

// peekHeadOrder returns the order at the front of the queue (best price) without removing it.
func (q *queue) peekHeadOrder() *Order {
	el := q.depthList.Front()
	if el == nil {
		return nil
	}

	unit, _ := el.Value.(*priceUnit)
	return unit.head
}

// orderCount returns the total number of orders in the queue.
func (q *queue) orderCount() int64 {
	return q.totalOrders
}

// depthCount returns the number of price levels in the queue.
func (q *queue) depthCount() int64 {
	return q.depths
}

// ordersAt returns copies of the orders resting at price, in arrival order.
func (q *queue) ordersAt(price decimal.Decimal) []*Order {
	unit := q.level(price)
	if unit == nil {
		return []*Order{}
	}

	result := make([]*Order, 0, unit.count)
	for order := unit.head; order != nil; order = order.next {
		result = append(result, order.Clone())
	}
	return result
}

// appendSnapshot appends copies of every order, best price first and FIFO within a level.
func (q *queue) appendSnapshot(dst []*Order) []*Order {
	for elem := q.depthList.Front(); elem != nil; elem = elem.Next() {
		unit, _ := elem.Value.(*priceUnit)
		for order := unit.head; order != nil; order = order.next {
			dst = append(dst, order.Clone())
		}
	}
	return dst
}

// depth returns the order book depth up to the specified limit.
func (q *queue) depth(limit uint32) []*DepthItem {
	result := make([]*DepthItem, 0, limit)

	el := q.depthList.Front()

	var i uint32 = 0
	for i < limit && el != nil {
		unit, _ := el.Value.(*priceUnit)
		result = append(result, &DepthItem{
			ID:    i,
			Price: unit.price,
			Size:  unit.totalSize,
			Count: unit.count,
		})

		el = el.Next()
		i++
	}

	return result
}
