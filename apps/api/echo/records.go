package echoapi

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/unilife/core"
	"github.com/trezcool/unilife/core/finance"
	"github.com/trezcool/unilife/core/record"
	"github.com/trezcool/unilife/core/syncstore"
)

// drafter is a pointer to a draft D that validates into, and overlays onto, a T.
type drafter[T any, D any] interface {
	*D
	Validate(validate *validator.Validate) error
	Finalize() T
	Apply(v T) T
}

// listFilter narrows a list by query params.
type listFilter[T any] func(ctx echo.Context, items []T) ([]T, error)

type collectionAPI[T any, D any, PD drafter[T, D]] struct {
	coll     *syncstore.Collection[T]
	schema   record.Schema[T]
	validate *validator.Validate
	filter   listFilter[T]
}

func registerCollectionAPI[T any, D any, PD drafter[T, D]](
	g *echo.Group,
	coll *syncstore.Collection[T],
	schema record.Schema[T],
	validate *validator.Validate,
	filter listFilter[T],
) {
	api := collectionAPI[T, D, PD]{
		coll:     coll,
		schema:   schema,
		validate: validate,
		filter:   filter,
	}

	g.GET("", api.query)
	g.POST("", api.create)
	g.GET("/:id", api.retrieve)
	g.PUT("/:id", api.update)
	g.DELETE("/:id", api.destroy)
}

// Handlers

func (api *collectionAPI[T, D, PD]) query(ctx echo.Context) error {
	var ord Ordering
	ord.Bind(ctx)

	items := api.coll.All()
	if api.filter != nil {
		var err error
		if items, err = api.filter(ctx, items); err != nil {
			return err
		}
	}
	items, err := sortItems(api.schema, items, ord)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, items)
}

func (api *collectionAPI[T, D, PD]) retrieve(ctx echo.Context) error {
	v, ok := api.coll.Get(ctx.Param("id"))
	if !ok {
		return errHttpNotFound
	}
	return ctx.JSON(http.StatusOK, v)
}

func (api *collectionAPI[T, D, PD]) create(ctx echo.Context) error {
	var data D
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrapf(err, "binding to %T", data)
	}
	if err := PD(&data).Validate(api.validate); err != nil {
		return err
	}

	v, err := api.coll.Create(ctx.Request().Context(), PD(&data).Finalize())
	if err != nil {
		return storeError(err, "creating "+api.schema.Table)
	}
	return ctx.JSON(http.StatusCreated, v)
}

func (api *collectionAPI[T, D, PD]) update(ctx echo.Context) error {
	id := ctx.Param("id")
	cur, ok := api.coll.Get(id)
	if !ok {
		return errHttpNotFound
	}

	var data D
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrapf(err, "binding to %T", data)
	}
	if err := PD(&data).Validate(api.validate); err != nil {
		return err
	}

	v := PD(&data).Apply(cur)
	if err := api.coll.Update(ctx.Request().Context(), v); err != nil {
		return storeError(err, "updating "+api.schema.Table)
	}
	if saved, ok := api.coll.Get(id); ok {
		v = saved
	}
	return ctx.JSON(http.StatusOK, v)
}

func (api *collectionAPI[T, D, PD]) destroy(ctx echo.Context) error {
	if err := api.coll.Delete(ctx.Request().Context(), ctx.Param("id")); err != nil {
		return storeError(err, "deleting "+api.schema.Table)
	}
	return ctx.NoContent(http.StatusNoContent)
}

// Filters

func filterModules(ctx echo.Context, modules []record.Module) ([]record.Module, error) {
	semester := core.CleanString(ctx.QueryParam("semester"))
	if semester == "" {
		return modules, nil
	}
	filtered := make([]record.Module, 0, len(modules))
	for _, m := range modules {
		if strings.EqualFold(m.Semester, semester) {
			filtered = append(filtered, m)
		}
	}
	return filtered, nil
}

func filterTasks(ctx echo.Context, tasks []record.Task) ([]record.Task, error) {
	module := core.CleanString(ctx.QueryParam("module"))
	status := record.Status(core.CleanString(ctx.QueryParam("status"), true /* lower */))
	var completed *bool
	if val := ctx.QueryParam("completed"); val != "" {
		b, err := strconv.ParseBool(val)
		if err != nil {
			return nil, core.NewValidationError(nil, core.FieldError{Field: "completed", Error: "must be true or false"})
		}
		completed = &b
	}

	filtered := make([]record.Task, 0, len(tasks))
	for _, t := range tasks {
		if module != "" && !strings.EqualFold(t.ModuleCode, module) {
			continue
		}
		if status != "" && t.Status != status {
			continue
		}
		if completed != nil && t.Completed != *completed {
			continue
		}
		filtered = append(filtered, t)
	}
	return filtered, nil
}

func filterTransactions(ctx echo.Context, txs []record.Transaction) ([]record.Transaction, error) {
	month := core.CleanString(ctx.QueryParam("month"))
	category := core.CleanString(ctx.QueryParam("category"))
	if month != "" {
		if err := checkMonth(month); err != nil {
			return nil, err
		}
	}

	filtered := make([]record.Transaction, 0, len(txs))
	for _, t := range txs {
		if month != "" && t.Date.Format(finance.MonthLayout) != month {
			continue
		}
		if category != "" && !strings.EqualFold(t.Category, category) {
			continue
		}
		filtered = append(filtered, t)
	}
	return filtered, nil
}
