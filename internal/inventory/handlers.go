package inventory

import "context"

// ChangeHandler receives stock change events after commit, e.g. to invalidate report caches.
type ChangeHandler interface {
	HandleStockChanged(ctx context.Context, evt StockChangedEvent) error
}

// ChangeHandlers fans an event out to several handlers, returning the first error.
type ChangeHandlers []ChangeHandler

// HandleStockChanged implements ChangeHandler.
func (hs ChangeHandlers) HandleStockChanged(ctx context.Context, evt StockChangedEvent) error {
	var first error
	for _, h := range hs {
		if h == nil {
			continue
		}
		if err := h.HandleStockChanged(ctx, evt); err != nil && first == nil {
			first = err
		}
	}
	return first
}
