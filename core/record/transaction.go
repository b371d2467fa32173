package record

import (
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/trezcool/unilife/core"
)

const DefaultCategory = "Other"

// Transaction is a ledger entry: negative amounts are expenses, positive ones income.
type Transaction struct {
	Meta
	Date        Date    `json:"date"`
	Description string  `json:"description"`
	Amount      float64 `json:"amount"`
	Category    string  `json:"category"`
}

func (t Transaction) IsExpense() bool { return t.Amount < 0 }

// Transaction columns
const (
	ColDate        = "date"
	ColDescription = "description"
	ColAmount      = "amount"
	ColCategory    = "category"
)

var TransactionSchema = Schema[Transaction]{
	Table: TableTransactions,
	Fields: append([]Field{
		{JSON: "date", Column: ColDate},
		{JSON: "description", Column: ColDescription},
		{JSON: "amount", Column: ColAmount},
		{JSON: "category", Column: ColCategory},
	}, metaFields...),
	Ordering: []core.DBOrdering{{Field: ColDate, Ascending: false}},
	Less:     func(a, b Transaction) bool { return a.Date.After(b.Date) },
	Meta:     func(t *Transaction) *Meta { return &t.Meta },
	encode:   encodeTransaction,
	decode:   decodeTransaction,
}

func encodeTransaction(t Transaction) Record {
	rec := Record{
		ColDate:        encodeDate(t.Date),
		ColDescription: t.Description,
		ColAmount:      t.Amount,
		ColCategory:    t.Category,
	}
	t.Meta.encode(rec)
	return rec
}

func decodeTransaction(r *reader) Transaction {
	return Transaction{
		Meta:        decodeMeta(r),
		Date:        r.date(ColDate),
		Description: r.str(ColDescription),
		Amount:      r.float(ColAmount),
		Category:    r.str(ColCategory),
	}
}

// NewTransaction contains information needed to record a new Transaction, or to edit one.
type NewTransaction struct {
	Date        string  `json:"date" validate:"required,ymd"`
	Description string  `json:"description" validate:"required"`
	Amount      float64 `json:"amount" validate:"required"`
	Category    string  `json:"category"`
}

func (nt *NewTransaction) Validate(validate *validator.Validate) error {
	nt.Date = core.CleanString(nt.Date)
	nt.Description = core.CleanString(nt.Description)
	nt.Category = core.CleanString(nt.Category)
	if nt.Category == "" {
		nt.Category = DefaultCategory
	}
	return validate.Struct(nt)
}

// Finalize returns the Transaction described by the draft, under a temporary identifier.
func (nt NewTransaction) Finalize() Transaction {
	now := time.Now().UTC()
	return nt.Apply(Transaction{Meta: Meta{ID: NewTempID(), CreatedAt: now, UpdatedAt: now}})
}

// Apply overlays the draft on t, keeping t's Meta.
func (nt NewTransaction) Apply(t Transaction) Transaction {
	date, _ := ParseDate(nt.Date)
	t.Date = date
	t.Description = nt.Description
	t.Amount = nt.Amount
	t.Category = nt.Category
	return t
}
