package finance

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/trezcool/unilife/core/record"
)

func tx(date record.Date, amount float64, category string) record.Transaction {
	return record.Transaction{Date: date, Amount: amount, Category: category}
}

func TestSummarize(t *testing.T) {
	txs := []record.Transaction{
		tx(record.NewDate(2024, 12, 3), -245.9, "Food"),
		tx(record.NewDate(2024, 12, 1), 5000, "Bursary"),
		tx(record.NewDate(2024, 11, 28), -1200, "Rent"),
		tx(record.NewDate(2024, 12, 2), -54.1, "Food"),
		tx(record.NewDate(2024, 12, 5), -20, ""),
	}

	s := Summarize(txs, "2024-12")
	assert.Equal(t, 3480.0, s.Balance)
	assert.Equal(t, 5000.0, s.Income)
	assert.Equal(t, 1520.0, s.Expenses)
	assert.Equal(t, "2024-12", s.Month)
	assert.Equal(t, 4680.0, s.MonthNet)
	assert.Equal(t, []CategoryTotal{
		{Category: "Bursary", Total: 5000, Count: 1},
		{Category: "Rent", Total: -1200, Count: 1},
		{Category: "Food", Total: -300, Count: 2},
		{Category: record.DefaultCategory, Total: -20, Count: 1},
	}, s.Categories)
}

func TestSummarize_Empty(t *testing.T) {
	s := Summarize(nil, "2024-12")
	assert.Equal(t, Summary{Month: "2024-12", Categories: []CategoryTotal{}}, s)
}
