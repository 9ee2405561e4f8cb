package reports

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/odyssey-erp/odyssey-pos/internal/shared"
)

// ErrInvalidParam indicates an out-of-range report parameter.
var ErrInvalidParam = errors.New("reports: invalid parameter")

const (
	maxDays          = 366
	maxWeeks         = 52
	maxMonths        = 60
	maxTopProducts   = 100
	defaultDays      = 7
	defaultWeeks     = 12
	defaultMonths    = 12
	defaultTopLimits = 5

	// sharedLoadTimeout bounds a coalesced build once it no longer follows any one caller.
	sharedLoadTimeout = 30 * time.Second
)

// RepositoryPort describes the aggregations the service needs.
type RepositoryPort interface {
	SalesTotals(ctx context.Context, from, to time.Time) (Period, error)
	DailyTotals(ctx context.Context, from time.Time, loc *time.Location) ([]DayPoint, error)
	WeeklyTotals(ctx context.Context, from time.Time, loc *time.Location) ([]WeekPoint, error)
	MonthlyTotals(ctx context.Context, from time.Time, loc *time.Location) ([]MonthPoint, error)
	TopProducts(ctx context.Context, limit int) ([]ProductSales, error)
	CategorySales(ctx context.Context) ([]CategorySales, error)
	InventoryStatus(ctx context.Context) (InventoryStatus, error)
	LowStock(ctx context.Context) ([]LowStockItem, error)
}

// Service serves cached read-only reports.
type Service struct {
	repo        RepositoryPort
	cache       *Cache
	group       singleflight.Group
	logger      *slog.Logger
	loc         *time.Location
	now         func() time.Time
	loadTimeout time.Duration
}

// NewService builds Service. cache may be nil; loc defaults to UTC and fixes
// where "today" and day buckets start.
func NewService(repo RepositoryPort, cache *Cache, loc *time.Location, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	if loc == nil {
		loc = time.UTC
	}
	return &Service{repo: repo, cache: cache, logger: logger, loc: loc, now: time.Now, loadTimeout: sharedLoadTimeout}
}

// cached collapses concurrent builds of the same report and stores the result in Redis.
// The shared build is detached from the caller that started it, so one caller
// going away does not fail the others waiting on the same key. Redis failures
// degrade to a direct load.
func (s *Service) cached(ctx context.Context, dest any, loader func(context.Context) (any, error), parts ...string) error {
	key, err := s.cache.BuildKey(ctx, append([]string{"reports"}, parts...)...)
	if err != nil {
		s.logger.Warn("report cache unavailable", slog.Any("error", err))
		key = strings.Join(parts, ":")
	}
	ch := s.group.DoChan(key, func() (any, error) {
		lctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.loadTimeout)
		defer cancel()
		var raw json.RawMessage
		var loadErr error
		err := s.cache.FetchJSON(lctx, key, &raw, func(ctx context.Context) (any, error) {
			v, err := loader(ctx)
			loadErr = err
			return v, err
		})
		if err == nil || loadErr != nil || lctx.Err() != nil {
			return []byte(raw), err
		}
		s.logger.Warn("report cache unavailable", slog.String("key", key), slog.Any("error", err))
		v, err := loader(lctx)
		if err != nil {
			return nil, err
		}
		return json.Marshal(v)
	})
	select {
	case <-ctx.Done():
		return ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return res.Err
		}
		return json.Unmarshal(res.Val.([]byte), dest)
	}
}

// SalesSummary returns today, week, month and all-time totals.
func (s *Service) SalesSummary(ctx context.Context) (Summary, error) {
	var out Summary
	now := s.now().In(s.loc)
	err := s.cached(ctx, &out, func(ctx context.Context) (any, error) {
		return s.buildSummary(ctx, now)
	}, "summary", now.Format(time.DateOnly))
	return out, err
}

func (s *Service) buildSummary(ctx context.Context, now time.Time) (Summary, error) {
	today := startOfDay(now)
	week := startOfWeek(now)
	month := time.Date(today.Year(), today.Month(), 1, 0, 0, 0, 0, s.loc)

	var sum Summary
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) { sum.Today, err = s.repo.SalesTotals(gctx, today, time.Time{}); return })
	g.Go(func() (err error) { sum.Week, err = s.repo.SalesTotals(gctx, week, time.Time{}); return })
	g.Go(func() (err error) { sum.Month, err = s.repo.SalesTotals(gctx, month, time.Time{}); return })
	g.Go(func() (err error) { sum.AllTime, err = s.repo.SalesTotals(gctx, time.Time{}, time.Time{}); return })
	g.Go(func() error {
		st, err := s.repo.InventoryStatus(gctx)
		sum.LowStockCount = st.Low
		return err
	})
	if err := g.Wait(); err != nil {
		return Summary{}, err
	}
	if sum.AllTime.Count > 0 {
		count := shared.Money(sum.AllTime.Count)
		sum.AverageTicket = (sum.AllTime.Revenue + count/2) / count
	}
	return sum, nil
}

// DailySales returns a zero-filled series for the last days days, today included.
func (s *Service) DailySales(ctx context.Context, days int) ([]DayPoint, error) {
	if days == 0 {
		days = defaultDays
	}
	if days < 1 || days > maxDays {
		return nil, ErrInvalidParam
	}
	now := s.now().In(s.loc)
	var out []DayPoint
	err := s.cached(ctx, &out, func(ctx context.Context) (any, error) {
		return s.buildDaily(ctx, now, days)
	}, "daily", now.Format(time.DateOnly), strconv.Itoa(days))
	return out, err
}

func (s *Service) buildDaily(ctx context.Context, now time.Time, days int) ([]DayPoint, error) {
	first := startOfDay(now).AddDate(0, 0, -(days - 1))
	rows, err := s.repo.DailyTotals(ctx, first, s.loc)
	if err != nil {
		return nil, err
	}
	byDate := make(map[string]DayPoint, len(rows))
	for _, p := range rows {
		byDate[p.Date] = p
	}
	series := make([]DayPoint, 0, days)
	for i := 0; i < days; i++ {
		date := first.AddDate(0, 0, i).Format(time.DateOnly)
		p, ok := byDate[date]
		if !ok {
			p = DayPoint{Date: date}
		}
		series = append(series, p)
	}
	return series, nil
}

// WeeklySales returns a zero-filled series of the last weeks ISO weeks, the current one included.
func (s *Service) WeeklySales(ctx context.Context, weeks int) ([]WeekPoint, error) {
	if weeks == 0 {
		weeks = defaultWeeks
	}
	if weeks < 1 || weeks > maxWeeks {
		return nil, ErrInvalidParam
	}
	now := s.now().In(s.loc)
	var out []WeekPoint
	err := s.cached(ctx, &out, func(ctx context.Context) (any, error) {
		return s.buildWeekly(ctx, now, weeks)
	}, "weekly", now.Format(time.DateOnly), strconv.Itoa(weeks))
	return out, err
}

func (s *Service) buildWeekly(ctx context.Context, now time.Time, weeks int) ([]WeekPoint, error) {
	first := startOfWeek(now).AddDate(0, 0, -7*(weeks-1))
	rows, err := s.repo.WeeklyTotals(ctx, first, s.loc)
	if err != nil {
		return nil, err
	}
	byStart := make(map[string]WeekPoint, len(rows))
	for _, p := range rows {
		byStart[p.StartDate] = p
	}
	series := make([]WeekPoint, 0, weeks)
	for i := 0; i < weeks; i++ {
		start := first.AddDate(0, 0, 7*i)
		p := byStart[start.Format(time.DateOnly)]
		year, week := start.ISOWeek()
		p.Week = fmt.Sprintf("%04d-W%02d", year, week)
		p.StartDate = start.Format(time.DateOnly)
		series = append(series, p)
	}
	return series, nil
}

// MonthlySales returns a zero-filled series of the last months calendar months, the current one included.
func (s *Service) MonthlySales(ctx context.Context, months int) ([]MonthPoint, error) {
	if months == 0 {
		months = defaultMonths
	}
	if months < 1 || months > maxMonths {
		return nil, ErrInvalidParam
	}
	now := s.now().In(s.loc)
	var out []MonthPoint
	err := s.cached(ctx, &out, func(ctx context.Context) (any, error) {
		return s.buildMonthly(ctx, now, months)
	}, "monthly", now.Format(time.DateOnly), strconv.Itoa(months))
	return out, err
}

func (s *Service) buildMonthly(ctx context.Context, now time.Time, months int) ([]MonthPoint, error) {
	first := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, s.loc).AddDate(0, -(months - 1), 0)
	rows, err := s.repo.MonthlyTotals(ctx, first, s.loc)
	if err != nil {
		return nil, err
	}
	byMonth := make(map[string]MonthPoint, len(rows))
	for _, p := range rows {
		byMonth[p.Month] = p
	}
	series := make([]MonthPoint, 0, months)
	for i := 0; i < months; i++ {
		start := first.AddDate(0, i, 0)
		p := byMonth[start.Format("2006-01")]
		p.Month = start.Format("2006-01")
		p.Name = start.Month().String()
		series = append(series, p)
	}
	return series, nil
}

// TopProducts ranks products by units sold.
func (s *Service) TopProducts(ctx context.Context, limit int) ([]ProductSales, error) {
	if limit == 0 {
		limit = defaultTopLimits
	}
	if limit < 1 || limit > maxTopProducts {
		return nil, ErrInvalidParam
	}
	var out []ProductSales
	err := s.cached(ctx, &out, func(ctx context.Context) (any, error) {
		return s.repo.TopProducts(ctx, limit)
	}, "top_products", strconv.Itoa(limit))
	return out, err
}

// CategorySales totals sales per category.
func (s *Service) CategorySales(ctx context.Context) ([]CategorySales, error) {
	var out []CategorySales
	err := s.cached(ctx, &out, func(ctx context.Context) (any, error) {
		return s.repo.CategorySales(ctx)
	}, "category_sales")
	return out, err
}

// InventoryStatus counts active products by stock band.
func (s *Service) InventoryStatus(ctx context.Context) (InventoryStatus, error) {
	var out InventoryStatus
	err := s.cached(ctx, &out, func(ctx context.Context) (any, error) {
		return s.repo.InventoryStatus(ctx)
	}, "inventory_status")
	return out, err
}

// LowStock lists products at or below their reorder level.
func (s *Service) LowStock(ctx context.Context) ([]LowStockItem, error) {
	var out []LowStockItem
	err := s.cached(ctx, &out, func(ctx context.Context) (any, error) {
		return s.repo.LowStock(ctx)
	}, "low_stock")
	return out, err
}

// Dashboard loads the landing page widgets concurrently.
func (s *Service) Dashboard(ctx context.Context) (Dashboard, error) {
	var d Dashboard
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) { d.Summary, err = s.SalesSummary(gctx); return })
	g.Go(func() (err error) { d.Inventory, err = s.InventoryStatus(gctx); return })
	g.Go(func() (err error) { d.TopProducts, err = s.TopProducts(gctx, defaultTopLimits); return })
	g.Go(func() (err error) { d.DailySales, err = s.DailySales(gctx, defaultDays); return })
	if err := g.Wait(); err != nil {
		return Dashboard{}, err
	}
	return d, nil
}

// startOfWeek returns the Monday starting t's ISO week.
func startOfWeek(t time.Time) time.Time {
	day := startOfDay(t)
	weekday := (int(day.Weekday()) + 6) % 7 // Monday is day 0
	return day.AddDate(0, 0, -weekday)
}

func startOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}
