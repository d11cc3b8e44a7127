package billing

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"go-billing-pos/internal/database"
)

type PeriodType string

const (
	PeriodDay   PeriodType = "day"
	PeriodWeek  PeriodType = "week"
	PeriodMonth PeriodType = "month"
)

// Period is an inclusive date range in storage format.
type Period struct {
	From string `json:"from"`
	To   string `json:"to"`
}

// ParsePeriod turns a report selector into a date range:
// day "2024-05-01", ISO week "2024-W18", month "2024-05".
func ParsePeriod(kind PeriodType, value string) (Period, error) {
	value = strings.TrimSpace(value)
	switch kind {
	case PeriodDay:
		d, err := time.Parse(DateLayout, value)
		if err != nil {
			return Period{}, newError(ErrInvalidInput, "day must be YYYY-MM-DD, got %q", value)
		}
		return Period{From: d.Format(DateLayout), To: d.Format(DateLayout)}, nil

	case PeriodWeek:
		year, week, ok := strings.Cut(strings.ToUpper(value), "-W")
		if !ok {
			return Period{}, newError(ErrInvalidInput, "week must be YYYY-Www, got %q", value)
		}
		y, errY := strconv.Atoi(year)
		w, errW := strconv.Atoi(week)
		if errY != nil || errW != nil || w < 1 || w > 53 {
			return Period{}, newError(ErrInvalidInput, "week must be YYYY-Www, got %q", value)
		}
		monday := isoWeekStart(y, w)
		if _, got := monday.ISOWeek(); got != w {
			return Period{}, newError(ErrInvalidInput, "%d has no week %d", y, w)
		}
		return Period{From: monday.Format(DateLayout), To: monday.AddDate(0, 0, 6).Format(DateLayout)}, nil

	case PeriodMonth:
		m, err := time.Parse("2006-01", value)
		if err != nil {
			return Period{}, newError(ErrInvalidInput, "month must be YYYY-MM, got %q", value)
		}
		return Period{From: m.Format(DateLayout), To: m.AddDate(0, 1, -1).Format(DateLayout)}, nil
	}
	return Period{}, newError(ErrInvalidInput, "unknown period type %q", kind)
}

// isoWeekStart returns the Monday of ISO week w. Week 1 is the week holding January 4th.
func isoWeekStart(year, week int) time.Time {
	jan4 := time.Date(year, time.January, 4, 0, 0, 0, 0, time.UTC)
	offset := (int(jan4.Weekday()) + 6) % 7
	return jan4.AddDate(0, 0, -offset+(week-1)*7)
}

// PeriodTotal is net takings (bills minus returns) over a period.
type PeriodTotal struct {
	Period
	Total       decimal.Decimal `json:"total"`
	Sales       decimal.Decimal `json:"sales"`
	Refunds     decimal.Decimal `json:"refunds"`
	BillCount   int64           `json:"billCount"`
	ReturnCount int64           `json:"returnCount"`
}

func (s *Service) PeriodTotal(ctx context.Context, p Period) (*PeriodTotal, error) {
	report, err := database.GetSalesReport(s.db.WithContext(ctx), p.From, p.To)
	if err != nil {
		return nil, wrap("sales report", err)
	}
	return &PeriodTotal{
		Period:      p,
		Total:       report.Net(),
		Sales:       report.BillTotal,
		Refunds:     report.ReturnTotal,
		BillCount:   report.BillCount,
		ReturnCount: report.ReturnCount,
	}, nil
}

func (s *Service) CustomStats(ctx context.Context, kind PeriodType, value string) (*PeriodTotal, error) {
	p, err := ParsePeriod(kind, value)
	if err != nil {
		return nil, err
	}
	return s.PeriodTotal(ctx, p)
}

type Overview struct {
	Daily   decimal.Decimal `json:"daily"`
	Weekly  decimal.Decimal `json:"weekly"`
	Monthly decimal.Decimal `json:"monthly"`
}

// Overview reports today, the current ISO week and the current month.
func (s *Service) Overview(ctx context.Context) (*Overview, error) {
	now := s.now()
	year, week := now.ISOWeek()

	selectors := []struct {
		kind  PeriodType
		value string
	}{
		{PeriodDay, now.Format(DateLayout)},
		{PeriodWeek, fmt.Sprintf("%d-W%02d", year, week)},
		{PeriodMonth, now.Format("2006-01")},
	}

	totals := make([]decimal.Decimal, len(selectors))
	for i, sel := range selectors {
		t, err := s.CustomStats(ctx, sel.kind, sel.value)
		if err != nil {
			return nil, err
		}
		totals[i] = t.Total
	}
	return &Overview{Daily: totals[0], Weekly: totals[1], Monthly: totals[2]}, nil
}

// ProductStat is per-item movement over a period.
type ProductStat struct {
	Category       string          `json:"category"`
	Desc           string          `json:"desc"`
	SoldQty        decimal.Decimal `json:"soldQty"`
	SoldAmount     decimal.Decimal `json:"soldAmount"`
	ReturnedQty    decimal.Decimal `json:"returnedQty"`
	ReturnedAmount decimal.Decimal `json:"returnedAmount"`
	NetQty         decimal.Decimal `json:"netQty"`
	NetAmount      decimal.Decimal `json:"netAmount"`
}

type ProductStats struct {
	Period
	Items []ProductStat `json:"items"`
}

// ProductStats aggregates bill and return lines dated in the period, highest net amount first.
func (s *Service) ProductStats(ctx context.Context, kind PeriodType, value string) (*ProductStats, error) {
	p, err := ParsePeriod(kind, value)
	if err != nil {
		return nil, err
	}

	db := s.db.WithContext(ctx)
	bills, err := database.BillsBetween(db, p.From, p.To)
	if err != nil {
		return nil, wrap("load bills", err)
	}
	returns, err := database.ReturnsBetween(db, p.From, p.To)
	if err != nil {
		return nil, wrap("load returns", err)
	}

	stats := make(map[stockKey]*ProductStat)
	entry := func(category, desc string) *ProductStat {
		k := stockKey{Category: category, Name: desc}
		st, ok := stats[k]
		if !ok {
			st = &ProductStat{
				Category:       category,
				Desc:           desc,
				SoldQty:        decimal.Zero,
				SoldAmount:     decimal.Zero,
				ReturnedQty:    decimal.Zero,
				ReturnedAmount: decimal.Zero,
			}
			stats[k] = st
		}
		return st
	}

	for _, b := range bills {
		for _, it := range b.Items {
			st := entry(it.Category, it.Desc)
			st.SoldQty = st.SoldQty.Add(it.Qty)
			st.SoldAmount = st.SoldAmount.Add(it.Amount)
		}
	}
	for _, r := range returns {
		for _, it := range r.Items {
			st := entry(it.Category, it.Desc)
			st.ReturnedQty = st.ReturnedQty.Add(it.Qty)
			st.ReturnedAmount = st.ReturnedAmount.Add(it.Amount)
		}
	}

	out := &ProductStats{Period: p, Items: make([]ProductStat, 0, len(stats))}
	for _, st := range stats {
		st.NetQty = st.SoldQty.Sub(st.ReturnedQty)
		st.NetAmount = st.SoldAmount.Sub(st.ReturnedAmount)
		out.Items = append(out.Items, *st)
	}
	sort.Slice(out.Items, func(i, j int) bool {
		a, b := out.Items[i], out.Items[j]
		if c := a.NetAmount.Cmp(b.NetAmount); c != 0 {
			return c > 0
		}
		if a.Category != b.Category {
			return a.Category < b.Category
		}
		return a.Desc < b.Desc
	})
	return out, nil
}
