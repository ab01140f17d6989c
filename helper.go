package match

// CalculateDepthChange calculates the depth change based on the book log.
// It returns a DepthChange struct indicating which side and price level should be updated.
// Note: For LogTypeMatch, the side returned is the Maker's side (opposite of the log's side).
func CalculateDepthChange(log *BookLog) DepthChange {
	switch log.Type {
	case LogTypeOpen:
		return DepthChange{
			Side:     log.Side,
			Price:    log.Price,
			SizeDiff: log.Size,
		}
	case LogTypeCancel:
		return DepthChange{
			Side:     log.Side,
			Price:    log.Price,
			SizeDiff: -log.Size,
		}
	case LogTypeMatch:
		// Match reduces liquidity from the Maker side.
		return DepthChange{
			Side:     log.Side.Opposite(),
			Price:    log.Price,
			SizeDiff: -log.Size,
		}
	case LogTypeAmend:
		// The price never changes on a quantity update, so the level only moves by the difference.
		return DepthChange{
			Side:     log.Side,
			Price:    log.Price,
			SizeDiff: log.Size - log.OldSize,
		}
	}

	return DepthChange{}
}
