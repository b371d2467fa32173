package planner

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/trezcool/unilife/core/record"
)

var today = record.NewDate(2024, 4, 10)

func task(title, module string, dueIn int, completed bool) record.Task {
	return record.Task{Title: title, ModuleCode: module, DueDate: today.AddDays(dueIn), Completed: completed}
}

func titles(tasks []record.Task) []string {
	ts := make([]string, 0, len(tasks))
	for _, t := range tasks {
		ts = append(ts, t.Title)
	}
	return ts
}

func TestSummarize(t *testing.T) {
	tasks := []record.Task{
		task("late", "COS 132", -2, false),
		task("late but done", "COS 132", -1, true),
		task("today", "WTW 114", 0, false),
		task("later", "", 12, true),
	}
	assert.Equal(t, Summary{Total: 4, Completed: 2, Percent: 50, Overdue: 1}, Summarize(tasks, today))
	assert.Equal(t, Summary{}, Summarize(nil, today))
}

func TestDueOn(t *testing.T) {
	tasks := []record.Task{task("a", "", 0, false), task("b", "", 1, false), task("c", "", 0, true)}
	assert.Equal(t, []string{"a", "c"}, titles(DueOn(tasks, today)))
	assert.Empty(t, DueOn(tasks, today.AddDays(5)))
}

func TestThisWeek(t *testing.T) {
	tasks := []record.Task{
		task("next week", "COS 132", 7, false),
		task("in six days", "COS 132", 6, false),
		task("yesterday", "COS 132", -1, false),
		task("tomorrow", "wtw 114", 1, false),
		task("today done", "COS 132", 0, true),
		task("today", "COS 132", 0, false),
	}

	tests := []struct {
		name   string
		module string
		want   []string
	}{
		{name: "all modules", want: []string{"today", "tomorrow", "in six days"}},
		{name: "one module", module: "cos 132", want: []string{"today", "in six days"}},
		{name: "unknown module", module: "PHY 171", want: []string{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, titles(ThisWeek(tasks, today, tt.module)))
		})
	}
}
