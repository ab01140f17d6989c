package match

import "errors"

var (
	ErrOrderNotFound = errors.New("order not found")
	ErrInvalidOrder  = errors.New("the order is invalid")
	ErrInvalidParam  = errors.New("the param is invalid")
	ErrTimeout       = errors.New("timeout")
	ErrShutdown      = errors.New("order book is shutting down")
	ErrSequenceGap   = errors.New("book log sequence gap")
)
