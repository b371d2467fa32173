package echoapi

import (
	"sort"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/trezcool/unilife/core"
	"github.com/trezcool/unilife/core/record"
)

var orderingParam = "ordering"

// Ordering is bound from the "ordering" query param, e.g. "dueDate,-priority".
type Ordering struct {
	Orderings []core.DBOrdering
}

func (ord *Ordering) Bind(ctx echo.Context) {
	val := ctx.QueryParam(orderingParam)
	if val == "" {
		return
	}

	for _, field := range strings.Split(val, ",") {
		field = strings.TrimSpace(field)
		descending := strings.HasPrefix(field, "-")
		if descending {
			field = field[1:] // drop "-"
		}
		if field == "" {
			continue
		}
		ord.Orderings = append(ord.Orderings, core.DBOrdering{Field: field, Ascending: !descending})
	}
}

// columns maps the JSON field names of the ordering to schema columns.
func (ord *Ordering) columns(schema interface{ Column(string) (string, bool) }) ([]core.DBOrdering, error) {
	cols := make([]core.DBOrdering, 0, len(ord.Orderings))
	for _, o := range ord.Orderings {
		col, ok := schema.Column(o.Field)
		if !ok {
			return nil, core.NewValidationError(nil, core.FieldError{Field: orderingParam, Error: "unknown field " + o.Field})
		}
		cols = append(cols, core.DBOrdering{Field: col, Ascending: o.Ascending})
	}
	return cols, nil
}

// sortItems orders items by their encoded column values. Ties keep the collection order.
func sortItems[T any](schema record.Schema[T], items []T, ord Ordering) ([]T, error) {
	cols, err := ord.columns(schema)
	if err != nil || len(cols) == 0 {
		return items, err
	}

	recs := make([]record.Record, len(items))
	for i, v := range items {
		recs[i] = schema.Encode(v)
	}
	idx := make([]int, len(items))
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(a, b int) bool {
		for _, o := range cols {
			c := record.Compare(recs[idx[a]][o.Field], recs[idx[b]][o.Field])
			if c == 0 {
				continue
			}
			if o.Ascending {
				return c < 0
			}
			return c > 0
		}
		return false
	})

	sorted := make([]T, len(items))
	for i, j := range idx {
		sorted[i] = items[j]
	}
	return sorted, nil
}
