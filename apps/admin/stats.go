package main

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/unilife/core/finance"
	"github.com/trezcool/unilife/core/grade"
	"github.com/trezcool/unilife/core/planner"
	"github.com/trezcool/unilife/core/record"
)

func (cli *commandLine) stats(term string) error {
	ctx := context.Background()
	store, closeStore, err := cli.openStore()
	if err != nil {
		return errors.Wrap(err, "opening record store")
	}
	defer func() { _ = closeStore() }()

	if err = store.Load(ctx); err != nil {
		return errors.Wrap(err, "loading records")
	}
	profile, err := cli.state.Profile(ctx, cli.defaultTarget)
	if err != nil {
		return errors.Wrap(err, "reading profile")
	}

	modules := store.Modules().All()
	var credits int
	for _, m := range modules {
		credits += m.Credits
	}
	p := cli.printer
	p.Fprintf(cli.out, "Modules: %d (%d credits)\n", len(modules), credits)
	p.Fprintf(cli.out, "Weighted average: %.2f\n", grade.WeightedAverage(modules))
	if term != "" {
		p.Fprintf(cli.out, "%s average: %.2f\n", term, grade.TermAverage(modules, term))
	}
	p.Fprintf(cli.out, "Average progress: %.2f%%\n", grade.AverageProgress(modules))

	proj := grade.Project(modules, profile.TargetAverage)
	onTrack := "no"
	if proj.OnTrack {
		onTrack = "yes"
	}
	p.Fprintf(cli.out, "Target %.2f: required %.2f, projected %.2f, on track: %s\n",
		proj.TargetAverage, proj.RequiredAverage, proj.FinalProjectedAverage, onTrack)

	tasks := planner.Summarize(store.Tasks().All(), record.Today())
	p.Fprintf(cli.out, "Tasks: %d, completed %d (%.2f%%), overdue %d\n", tasks.Total, tasks.Completed, tasks.Percent, tasks.Overdue)

	ledger := finance.Summarize(store.Transactions().All(), time.Now().Format(finance.MonthLayout))
	p.Fprintf(cli.out, "Balance: %.2f (income %.2f, expenses %.2f)\n", ledger.Balance, ledger.Income, ledger.Expenses)
	return nil
}
