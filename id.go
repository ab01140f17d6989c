package match

import (
	"github.com/google/uuid"
	"github.com/rs/xid"
)

// IDGenerator produces order ids for orders submitted without one.
type IDGenerator interface {
	NewID() string
}

// XIDGenerator generates sortable 20 character ids. It is the default.
type XIDGenerator struct{}

func (XIDGenerator) NewID() string {
	return xid.New().String()
}

// UUIDGenerator generates random (version 4) UUIDs.
type UUIDGenerator struct{}

func (UUIDGenerator) NewID() string {
	return uuid.NewString()
}
