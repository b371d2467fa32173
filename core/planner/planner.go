// Package planner answers the dashboard's questions about tasks.
package planner

import (
	"sort"
	"strings"

	"github.com/trezcool/unilife/core/grade"
	"github.com/trezcool/unilife/core/record"
)

// WeekDays is the look-ahead of ThisWeek, today included.
const WeekDays = 7

type Summary struct {
	Total     int     `json:"total"`
	Completed int     `json:"completed"`
	Percent   float64 `json:"percent"`
	Overdue   int     `json:"overdue"` // open tasks due before today
}

func Summarize(tasks []record.Task, today record.Date) Summary {
	var s Summary
	for _, t := range tasks {
		s.Total++
		switch {
		case t.Completed:
			s.Completed++
		case !t.DueDate.IsZero() && t.DueDate.Before(today):
			s.Overdue++
		}
	}
	if s.Total > 0 {
		s.Percent = grade.Round2(float64(s.Completed) * 100 / float64(s.Total))
	}
	return s
}

// DueOn returns the tasks due on day, in their original order.
func DueOn(tasks []record.Task, day record.Date) []record.Task {
	var due []record.Task
	for _, t := range tasks {
		if t.DueDate.Equal(day) {
			due = append(due, t)
		}
	}
	return due
}

// ThisWeek returns the open tasks due from today through the next six days, by due date.
// When moduleCode is set, only that module's tasks are returned (codes compare case-insensitively).
func ThisWeek(tasks []record.Task, today record.Date, moduleCode string) []record.Task {
	end := today.AddDays(WeekDays)
	var week []record.Task
	for _, t := range tasks {
		if t.Completed || t.DueDate.Before(today) || !t.DueDate.Before(end) {
			continue
		}
		if moduleCode != "" && !strings.EqualFold(t.ModuleCode, moduleCode) {
			continue
		}
		week = append(week, t)
	}
	sort.SliceStable(week, func(i, j int) bool { return week[i].DueDate.Before(week[j].DueDate) })
	return week
}
