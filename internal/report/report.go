// Package report reduces orders loaded into memory into sales figures.
package report

import (
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/flicky/bakery-api/internal/model"
)

type Period string

const (
	PeriodDay   Period = "day"
	PeriodWeek  Period = "week"
	PeriodMonth Period = "month"
)

// PeriodSales is one bucket of the sales series.
type PeriodSales struct {
	Period  string          `json:"periodo"`
	Orders  int             `json:"pedidos"`
	Revenue decimal.Decimal `json:"ingresos"`
}

// ItemSales is a product or category tally.
type ItemSales struct {
	ID       uuid.UUID       `json:"id"`
	Name     string          `json:"nombre"`
	Quantity int             `json:"cantidad"`
	Revenue  decimal.Decimal `json:"ingresos"`
}

type Summary struct {
	Orders        int                       `json:"pedidos"`
	Revenue       decimal.Decimal           `json:"ingresos"`
	AverageTicket decimal.Decimal           `json:"ticket_promedio"`
	ByStatus      map[model.OrderStatus]int `json:"por_estado"`
}

// BucketKey names the period t falls in: 2024-03-09, 2024-W10 or 2024-03.
// Weeks follow ISO 8601.
func BucketKey(t time.Time, p Period) string {
	switch p {
	case PeriodWeek:
		year, week := t.ISOWeek()
		return fmt.Sprintf("%d-W%02d", year, week)
	case PeriodMonth:
		return t.Format("2006-01")
	default:
		return t.Format("2006-01-02")
	}
}

// SalesByPeriod buckets orders by creation time in loc, ascending by key.
func SalesByPeriod(orders []model.Order, p Period, loc *time.Location) []PeriodSales {
	buckets := make(map[string]*PeriodSales)
	for _, o := range orders {
		key := BucketKey(o.CreatedAt.In(loc), p)
		b, ok := buckets[key]
		if !ok {
			b = &PeriodSales{Period: key, Revenue: decimal.Zero}
			buckets[key] = b
		}
		b.Orders++
		b.Revenue = b.Revenue.Add(o.Total)
	}

	out := make([]PeriodSales, 0, len(buckets))
	for _, b := range buckets {
		out = append(out, *b)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Period < out[j].Period })
	return out
}

// TopProducts ranks products by units sold. limit <= 0 returns every product.
func TopProducts(orders []model.Order, limit int) []ItemSales {
	tally := make(map[uuid.UUID]*ItemSales)
	for _, o := range orders {
		for _, l := range o.Lines {
			add(tally, l.ProductID, l.ProductName, l)
		}
	}
	return rank(tally, limit)
}

// TopCategories ranks categories by units sold. names maps category ids to
// display names; unknown ids keep an empty name.
func TopCategories(orders []model.Order, names map[uuid.UUID]string, limit int) []ItemSales {
	tally := make(map[uuid.UUID]*ItemSales)
	for _, o := range orders {
		for _, l := range o.Lines {
			add(tally, l.CategoryID, names[l.CategoryID], l)
		}
	}
	return rank(tally, limit)
}

func Summarize(orders []model.Order) Summary {
	s := Summary{Revenue: decimal.Zero, AverageTicket: decimal.Zero, ByStatus: make(map[model.OrderStatus]int)}
	for _, o := range orders {
		s.Orders++
		s.Revenue = s.Revenue.Add(o.Total)
		s.ByStatus[o.Status]++
	}
	if s.Orders > 0 {
		s.AverageTicket = s.Revenue.Div(decimal.NewFromInt(int64(s.Orders))).Round(2)
	}
	return s
}

func add(tally map[uuid.UUID]*ItemSales, id uuid.UUID, name string, l model.OrderLine) {
	it, ok := tally[id]
	if !ok {
		it = &ItemSales{ID: id, Name: name, Revenue: decimal.Zero}
		tally[id] = it
	}
	it.Quantity += l.Quantity
	it.Revenue = it.Revenue.Add(l.Subtotal)
}

func rank(tally map[uuid.UUID]*ItemSales, limit int) []ItemSales {
	out := make([]ItemSales, 0, len(tally))
	for _, it := range tally {
		out = append(out, *it)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Quantity != out[j].Quantity {
			return out[i].Quantity > out[j].Quantity
		}
		if c := out[i].Revenue.Cmp(out[j].Revenue); c != 0 {
			return c > 0
		}
		return out[i].Name < out[j].Name
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}
