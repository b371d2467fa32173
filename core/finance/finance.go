// Package finance summarises the ledger.
package finance

import (
	"math"
	"sort"

	"github.com/trezcool/unilife/core/grade"
	"github.com/trezcool/unilife/core/record"
)

// MonthLayout is the layout of month keys, e.g. "2024-12".
const MonthLayout = "2006-01"

type CategoryTotal struct {
	Category string  `json:"category"`
	Total    float64 `json:"total"`
	Count    int     `json:"count"`
}

type Summary struct {
	Balance    float64         `json:"balance"`
	Income     float64         `json:"income"`
	Expenses   float64         `json:"expenses"` // positive total of the expense amounts
	Month      string          `json:"month"`
	MonthNet   float64         `json:"monthNet"`
	Categories []CategoryTotal `json:"categories"`
}

// Summarize totals txs, and the net of the transactions dated in month ("YYYY-MM").
// Categories are sorted by absolute total, largest first.
func Summarize(txs []record.Transaction, month string) Summary {
	s := Summary{Month: month}
	byCategory := make(map[string]*CategoryTotal)
	for _, tx := range txs {
		s.Balance += tx.Amount
		if tx.IsExpense() {
			s.Expenses -= tx.Amount
		} else {
			s.Income += tx.Amount
		}
		if !tx.Date.IsZero() && tx.Date.Format(MonthLayout) == month {
			s.MonthNet += tx.Amount
		}

		cat := tx.Category
		if cat == "" {
			cat = record.DefaultCategory
		}
		ct, ok := byCategory[cat]
		if !ok {
			ct = &CategoryTotal{Category: cat}
			byCategory[cat] = ct
		}
		ct.Total += tx.Amount
		ct.Count++
	}

	s.Categories = make([]CategoryTotal, 0, len(byCategory))
	for _, ct := range byCategory {
		ct.Total = grade.Round2(ct.Total)
		s.Categories = append(s.Categories, *ct)
	}
	sort.Slice(s.Categories, func(i, j int) bool {
		a, b := math.Abs(s.Categories[i].Total), math.Abs(s.Categories[j].Total)
		if a != b {
			return a > b
		}
		return s.Categories[i].Category < s.Categories[j].Category
	})

	s.Balance = grade.Round2(s.Balance)
	s.Income = grade.Round2(s.Income)
	s.Expenses = grade.Round2(s.Expenses)
	s.MonthNet = grade.Round2(s.MonthNet)
	return s
}
