package echoapi

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/unilife/core"
	"github.com/trezcool/unilife/core/finance"
	"github.com/trezcool/unilife/core/grade"
	"github.com/trezcool/unilife/core/planner"
	"github.com/trezcool/unilife/core/record"
	"github.com/trezcool/unilife/core/syncstore"
)

func checkMonth(month string) error {
	if _, err := time.Parse(finance.MonthLayout, month); err != nil {
		return core.NewValidationError(nil, core.FieldError{Field: "month", Error: "must be a valid month (YYYY-MM)"})
	}
	return nil
}

// Academics

type academicsApi struct {
	store         *syncstore.Store
	profiles      Profiles
	validate      *validator.Validate
	defaultTarget float64
}

func registerAcademicsAPI(
	g *echo.Group,
	store *syncstore.Store,
	profiles Profiles,
	validate *validator.Validate,
	defaultTarget float64,
) {
	api := academicsApi{
		store:         store,
		profiles:      profiles,
		validate:      validate,
		defaultTarget: defaultTarget,
	}

	g.GET("/average", api.average)
	g.GET("/terms", api.terms)
	g.GET("/projection", api.projection)
	g.GET("/profile", api.profile)
	g.PUT("/profile", api.updateProfile)
}

type AverageResponse struct {
	Term     string  `json:"term,omitempty"`
	Modules  int     `json:"modules"`
	Average  float64 `json:"average"`
	Progress float64 `json:"progress"`
}

func (api *academicsApi) average(ctx echo.Context) error {
	modules := api.store.Modules().All()
	term := core.CleanString(ctx.QueryParam("term"))
	if term != "" {
		modules = grade.InTerm(modules, term)
	}
	return ctx.JSON(http.StatusOK, AverageResponse{
		Term:     term,
		Modules:  len(modules),
		Average:  grade.WeightedAverage(modules),
		Progress: grade.AverageProgress(modules),
	})
}

func (api *academicsApi) terms(ctx echo.Context) error {
	return ctx.JSON(http.StatusOK, grade.TermBreakdown(api.store.Modules().All()))
}

func (api *academicsApi) projection(ctx echo.Context) error {
	var target float64
	if val := ctx.QueryParam("target"); val != "" {
		t, err := strconv.ParseFloat(val, 64)
		if err != nil || t < 0 || t > 100 {
			return core.NewValidationError(nil, core.FieldError{Field: "target", Error: "must be a percentage (0 to 100)"})
		}
		target = t
	} else {
		p, err := api.profiles.Profile(ctx.Request().Context(), api.defaultTarget)
		if err != nil {
			return errors.Wrap(err, "getting profile")
		}
		target = p.TargetAverage
	}
	return ctx.JSON(http.StatusOK, grade.Project(api.store.Modules().All(), target))
}

func (api *academicsApi) profile(ctx echo.Context) error {
	p, err := api.profiles.Profile(ctx.Request().Context(), api.defaultTarget)
	if err != nil {
		return errors.Wrap(err, "getting profile")
	}
	return ctx.JSON(http.StatusOK, p)
}

func (api *academicsApi) updateProfile(ctx echo.Context) error {
	var data record.Profile
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to Profile")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}
	if err := api.profiles.SaveProfile(ctx.Request().Context(), data); err != nil {
		return errors.Wrap(err, "saving profile")
	}
	return ctx.JSON(http.StatusOK, data)
}

// Finances

type financesApi struct {
	store *syncstore.Store
}

func registerFinancesAPI(g *echo.Group, store *syncstore.Store) {
	api := financesApi{store: store}
	g.GET("/summary", api.summary)
}

func (api *financesApi) summary(ctx echo.Context) error {
	month := core.CleanString(ctx.QueryParam("month"))
	if month == "" {
		month = time.Now().Format(finance.MonthLayout)
	} else if err := checkMonth(month); err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, finance.Summarize(api.store.Transactions().All(), month))
}

// Planner

type plannerApi struct {
	store *syncstore.Store
}

func registerPlannerAPI(g *echo.Group, store *syncstore.Store) {
	api := plannerApi{store: store}
	g.GET("", api.overview)
}

type PlannerResponse struct {
	Date     record.Date     `json:"date"`
	Summary  planner.Summary `json:"summary"`
	DueToday []record.Task   `json:"dueToday"`
	ThisWeek []record.Task   `json:"thisWeek"`
}

func (api *plannerApi) overview(ctx echo.Context) error {
	today := record.Today()
	if val := core.CleanString(ctx.QueryParam("date")); val != "" {
		d, err := record.ParseDate(val)
		if err != nil {
			return core.NewValidationError(nil, core.FieldError{Field: "date", Error: "must be a valid date (YYYY-MM-DD)"})
		}
		today = d
	}
	module := core.CleanString(ctx.QueryParam("module"))

	tasks := api.store.Tasks().All()
	resp := PlannerResponse{
		Date:     today,
		Summary:  planner.Summarize(tasks, today),
		DueToday: planner.DueOn(tasks, today),
		ThisWeek: planner.ThisWeek(tasks, today, module),
	}
	if resp.DueToday == nil {
		resp.DueToday = []record.Task{}
	}
	if resp.ThisWeek == nil {
		resp.ThisWeek = []record.Task{}
	}
	return ctx.JSON(http.StatusOK, resp)
}
