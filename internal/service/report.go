package service

import (
	"fmt"
	"sort"
	"time"

	"go-stock-ledger/internal/model"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Period selects the lower bound of a sales window.
type Period string

const (
	PeriodToday Period = "today"
	PeriodWeek  Period = "week"
	PeriodMonth Period = "month"
	PeriodAll   Period = "all"
)

func ParsePeriod(s string) (Period, error) {
	switch p := Period(s); p {
	case PeriodToday, PeriodWeek, PeriodMonth, PeriodAll:
		return p, nil
	case "":
		return PeriodMonth, nil
	default:
		return "", validationFailed(fmt.Sprintf("unknown period %q", s))
	}
}

// WindowStart returns the first instant of the period containing now, in loc.
// Weeks start on Sunday. PeriodAll has no bound and returns the zero time.
func WindowStart(p Period, now time.Time, loc *time.Location) time.Time {
	if loc == nil {
		loc = time.Local
	}
	local := now.In(loc)
	midnight := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, loc)

	switch p {
	case PeriodToday:
		return midnight
	case PeriodWeek:
		return midnight.AddDate(0, 0, -int(local.Weekday()))
	case PeriodMonth:
		return time.Date(local.Year(), local.Month(), 1, 0, 0, 0, 0, loc)
	default:
		return time.Time{}
	}
}

type WarehouseStock struct {
	WarehouseID uuid.UUID       `json:"warehouse_id"`
	Name        string          `json:"name"`
	Quantity    int             `json:"quantity"`
	Value       decimal.Decimal `json:"value"`
}

type PaymentBreakdown struct {
	Paid    decimal.Decimal `json:"paid"`
	Pending decimal.Decimal `json:"pending"`
	Partial decimal.Decimal `json:"partial"`
}

type SalesSummary struct {
	Period           Period              `json:"period"`
	Since            *time.Time          `json:"since,omitempty"`
	TotalSales       decimal.Decimal     `json:"total_sales"`
	TotalQuantity    int                 `json:"total_quantity"`
	TransactionCount int                 `json:"transaction_count"`
	Transactions     []model.Transaction `json:"transactions,omitempty"`
}

type DashboardStats struct {
	TotalProducts      int                 `json:"total_products"`
	TotalStockValue    decimal.Decimal     `json:"total_stock_value"`
	Warehouses         []WarehouseStock    `json:"warehouses"`
	PendingPayments    decimal.Decimal     `json:"pending_payments"`
	TodaySales         decimal.Decimal     `json:"today_sales"`
	WeekSales          decimal.Decimal     `json:"week_sales"`
	MonthSales         decimal.Decimal     `json:"month_sales"`
	CriticalCount      int                 `json:"critical_count"`
	OutOfStockCount    int                 `json:"out_of_stock_count"`
	RecentTransactions []model.Transaction `json:"recent_transactions"`
}

type StockMovementData struct {
	Date     string `json:"date"`
	Inbound  int    `json:"inbound"`
	Outbound int    `json:"outbound"`
}

const recentTransactionLimit = 5

// BuildDashboard aggregates the full collections. Stock held under warehouse ids
// that are not in warehouses is left out of the per-warehouse figures.
func BuildDashboard(products []model.Product, transactions []model.Transaction, warehouses []model.Warehouse, now time.Time, loc *time.Location) *DashboardStats {
	stats := &DashboardStats{
		TotalProducts:   len(products),
		TotalStockValue: decimal.Zero,
		Warehouses:      make([]WarehouseStock, 0, len(warehouses)),
	}

	for _, w := range warehouses {
		ws := WarehouseStock{WarehouseID: w.ID, Name: w.Name, Value: decimal.Zero}
		key := w.ID.String()
		for i := range products {
			qty := products[i].Stock.Get(key)
			ws.Quantity += qty
			ws.Value = ws.Value.Add(products[i].CostPrice.Mul(decimal.NewFromInt(int64(qty))))
		}
		stats.Warehouses = append(stats.Warehouses, ws)
	}

	for i := range products {
		stats.TotalStockValue = stats.TotalStockValue.Add(products[i].StockValue())
		switch products[i].Status() {
		case model.StockCritical:
			stats.CriticalCount++
		case model.StockOutOfStock:
			stats.OutOfStockCount++
		}
	}

	stats.PendingPayments = Payments(transactions).Outstanding()
	stats.TodaySales = Sales(transactions, PeriodToday, now, loc).TotalSales
	stats.WeekSales = Sales(transactions, PeriodWeek, now, loc).TotalSales
	stats.MonthSales = Sales(transactions, PeriodMonth, now, loc).TotalSales
	stats.RecentTransactions = Recent(transactions, recentTransactionLimit)
	return stats
}

// Sales sums exits dated at or after the period's window start.
func Sales(transactions []model.Transaction, p Period, now time.Time, loc *time.Location) *SalesSummary {
	start := WindowStart(p, now, loc)
	summary := &SalesSummary{Period: p, TotalSales: decimal.Zero}
	if !start.IsZero() {
		summary.Since = &start
	}

	for _, t := range transactions {
		if t.Type != model.TxExit || t.Date.Before(start) {
			continue
		}
		summary.TotalSales = summary.TotalSales.Add(t.TotalAmount)
		summary.TotalQuantity += t.Quantity
		summary.TransactionCount++
		summary.Transactions = append(summary.Transactions, t)
	}
	return summary
}

// Payments splits exit amounts by payment status.
func Payments(transactions []model.Transaction) *PaymentBreakdown {
	b := &PaymentBreakdown{Paid: decimal.Zero, Pending: decimal.Zero, Partial: decimal.Zero}
	for _, t := range transactions {
		if t.Type != model.TxExit {
			continue
		}
		switch t.PaymentStatus {
		case model.PaymentPaid:
			b.Paid = b.Paid.Add(t.TotalAmount)
		case model.PaymentPending:
			b.Pending = b.Pending.Add(t.TotalAmount)
		case model.PaymentPartial:
			b.Partial = b.Partial.Add(t.TotalAmount)
		}
	}
	return b
}

// Outstanding counts partially paid sales in full; no paid amount is recorded.
func (b *PaymentBreakdown) Outstanding() decimal.Decimal {
	return b.Pending.Add(b.Partial)
}

// Recent returns up to n transactions, newest first.
func Recent(transactions []model.Transaction, n int) []model.Transaction {
	sorted := make([]model.Transaction, len(transactions))
	copy(sorted, transactions)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Date.After(sorted[j].Date)
	})
	if len(sorted) > n {
		sorted = sorted[:n]
	}
	return sorted
}

// StockMovement buckets entry and exit quantities per local day for the last days days, oldest first.
func StockMovement(transactions []model.Transaction, days int, now time.Time, loc *time.Location) []StockMovementData {
	if loc == nil {
		loc = time.Local
	}
	if days <= 0 {
		days = 7
	}
	today := WindowStart(PeriodToday, now, loc)
	start := today.AddDate(0, 0, -(days - 1))

	result := make([]StockMovementData, days)
	index := make(map[string]int, days)
	for i := 0; i < days; i++ {
		day := start.AddDate(0, 0, i).Format("2006-01-02")
		result[i].Date = day
		index[day] = i
	}

	for _, t := range transactions {
		if t.Date.Before(start) {
			continue
		}
		i, ok := index[t.Date.In(loc).Format("2006-01-02")]
		if !ok {
			continue
		}
		if t.Type == model.TxEntry {
			result[i].Inbound += t.Quantity
		} else {
			result[i].Outbound += t.Quantity
		}
	}
	return result
}
