package inventory

import "time"

// StockChangedEvent is emitted after a committed transaction changed stock.
type StockChangedEvent struct {
	ProductIDs []int64
	Reason     Reason
	SaleID     int64
	At         time.Time
}
