package broker

import (
	"context"
	"fmt"

	"github.com/newthinker/ashare/internal/strategy"
)

// SyncBook replaces the contents of book with the broker's current holdings.
// Symbols the book tracks that the broker no longer holds are cleared.
func SyncBook(ctx context.Context, b Broker, book *strategy.PositionBook) error {
	positions, err := b.GetPositions(ctx)
	if err != nil {
		return fmt.Errorf("broker: sync positions: %w", err)
	}

	held := make(map[string]int64, len(positions))
	for _, p := range positions {
		held[p.Symbol] = p.Quantity
	}
	for symbol := range book.Snapshot() {
		if _, ok := held[symbol]; !ok {
			book.Update(symbol, 0)
		}
	}
	for symbol, qty := range held {
		book.Update(symbol, qty)
	}
	return nil
}

// TotalUnrealizedPL returns the sum of unrealized P&L across positions.
func TotalUnrealizedPL(positions []Position) float64 {
	var total float64
	for _, pos := range positions {
		total += pos.UnrealizedPL
	}
	return total
}
