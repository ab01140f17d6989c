package match

const (
	// EngineVersion is the current version of the matching engine
	EngineVersion = "v1.0.0"

	// DefaultRingBufferSize is the default capacity of an order book's command ring.
	// Must be a power of 2.
	DefaultRingBufferSize = 1 << 12
)
