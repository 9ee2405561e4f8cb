package reports

import "github.com/odyssey-erp/odyssey-pos/internal/shared"

// Period aggregates committed sales over a time window.
type Period struct {
	Count   int64        `json:"count"`
	Revenue shared.Money `json:"revenue"`
}

// Summary is the dashboard headline.
type Summary struct {
	Today         Period       `json:"today"`
	Week          Period       `json:"week"`
	Month         Period       `json:"month"`
	AllTime       Period       `json:"all_time"`
	AverageTicket shared.Money `json:"average_ticket"`
	LowStockCount int64        `json:"low_stock_count"`
}

// DayPoint is one day of a sales series. Date is YYYY-MM-DD.
type DayPoint struct {
	Date    string       `json:"date"`
	Count   int64        `json:"count"`
	Revenue shared.Money `json:"revenue"`
}

// WeekPoint is one ISO week of a sales series. Week is YYYY-Www, StartDate the Monday.
type WeekPoint struct {
	Week      string       `json:"week"`
	StartDate string       `json:"start_date"`
	Count     int64        `json:"count"`
	Revenue   shared.Money `json:"revenue"`
}

// MonthPoint is one calendar month of a sales series. Month is YYYY-MM.
type MonthPoint struct {
	Month   string       `json:"month"`
	Name    string       `json:"name"`
	Count   int64        `json:"count"`
	Revenue shared.Money `json:"revenue"`
}

// ProductSales ranks a product by units sold.
type ProductSales struct {
	ProductID int64        `json:"product_id"`
	Name      string       `json:"name"`
	Quantity  int64        `json:"quantity"`
	Revenue   shared.Money `json:"revenue"`
}

// CategorySales totals sale lines per category.
type CategorySales struct {
	CategoryID int64        `json:"category_id"`
	Name       string       `json:"name"`
	Quantity   int64        `json:"quantity"`
	Revenue    shared.Money `json:"revenue"`
}

// InventoryStatus counts active products by stock band.
type InventoryStatus struct {
	Low         int64 `json:"low"`
	Out         int64 `json:"out"`
	WellStocked int64 `json:"well_stocked"`
	TotalActive int64 `json:"total_active"`
}

// LowStockItem is an active product at or below its reorder level, sold-out included.
type LowStockItem struct {
	ProductID    int64  `json:"product_id"`
	Name         string `json:"name"`
	Category     string `json:"category"`
	SupplierName string `json:"supplier_name"`
	Unit         string `json:"unit"`
	CurrentStock int64  `json:"current_stock"`
	MinStock     int64  `json:"min_stock"`
}

// Dashboard bundles the widgets the back office loads on its landing page.
type Dashboard struct {
	Summary     Summary         `json:"summary"`
	Inventory   InventoryStatus `json:"inventory"`
	TopProducts []ProductSales  `json:"top_products"`
	DailySales  []DayPoint      `json:"daily_sales"`
}
