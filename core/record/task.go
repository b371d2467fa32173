package record

import (
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/trezcool/unilife/core"
)

type (
	Priority string
	Status   string
)

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"

	StatusTodo       Status = "todo"
	StatusInProgress Status = "inprogress"
	StatusDone       Status = "done"
)

var (
	Priorities = []Priority{PriorityLow, PriorityMedium, PriorityHigh}
	Statuses   = []Status{StatusTodo, StatusInProgress, StatusDone}
)

// Task is a to-do item. ModuleCode is a free-text join key on Module.Code.
type Task struct {
	Meta
	Title      string   `json:"title"`
	ModuleCode string   `json:"moduleCode"`
	DueDate    Date     `json:"dueDate"`
	Priority   Priority `json:"priority"`
	Status     Status   `json:"status"`
	Completed  bool     `json:"completed"`
}

// Normalize reconciles Completed and Status. Completed is authoritative:
// a completed task is done, and a task that is not completed cannot be done.
func (t *Task) Normalize() {
	switch {
	case t.Completed:
		t.Status = StatusDone
	case t.Status == StatusDone:
		t.Status = StatusTodo
	}
}

// Task columns
const (
	ColTitle      = "title"
	ColModuleCode = "module_code"
	ColDueDate    = "due_date"
	ColPriority   = "priority"
	ColStatus     = "status"
	ColCompleted  = "completed"
)

var TaskSchema = Schema[Task]{
	Table: TableTasks,
	Fields: append([]Field{
		{JSON: "title", Column: ColTitle},
		{JSON: "moduleCode", Column: ColModuleCode},
		{JSON: "dueDate", Column: ColDueDate},
		{JSON: "priority", Column: ColPriority},
		{JSON: "status", Column: ColStatus},
		{JSON: "completed", Column: ColCompleted},
	}, metaFields...),
	Ordering: []core.DBOrdering{{Field: ColDueDate, Ascending: true}},
	Less:     func(a, b Task) bool { return a.DueDate.Before(b.DueDate) },
	Meta:     func(t *Task) *Meta { return &t.Meta },
	encode:   encodeTask,
	decode:   decodeTask,
}

func encodeTask(t Task) Record {
	rec := Record{
		ColTitle:      t.Title,
		ColModuleCode: t.ModuleCode,
		ColDueDate:    encodeDate(t.DueDate),
		ColPriority:   string(t.Priority),
		ColStatus:     string(t.Status),
		ColCompleted:  t.Completed,
	}
	t.Meta.encode(rec)
	return rec
}

func decodeTask(r *reader) Task {
	return Task{
		Meta:       decodeMeta(r),
		Title:      r.str(ColTitle),
		ModuleCode: r.str(ColModuleCode),
		DueDate:    r.date(ColDueDate),
		Priority:   Priority(r.str(ColPriority)),
		Status:     Status(r.str(ColStatus)),
		Completed:  r.bool(ColCompleted),
	}
}

// NewTask contains information needed to create a new Task, or to edit one.
type NewTask struct {
	Title      string `json:"title" validate:"required"`
	ModuleCode string `json:"moduleCode"`
	DueDate    string `json:"dueDate" validate:"required,ymd"`
	Priority   string `json:"priority" validate:"priority"`
	Status     string `json:"status" validate:"taskstatus"`
	Completed  bool   `json:"completed"`
}

func (nt *NewTask) Validate(validate *validator.Validate) error {
	nt.Title = core.CleanString(nt.Title)
	nt.ModuleCode = core.CleanString(nt.ModuleCode)
	nt.DueDate = core.CleanString(nt.DueDate)
	nt.Priority = core.CleanString(nt.Priority, true /* lower */)
	nt.Status = core.CleanString(nt.Status, true /* lower */)
	if nt.Priority == "" {
		nt.Priority = string(PriorityMedium)
	}
	if nt.Status == "" {
		nt.Status = string(StatusTodo)
	}
	return validate.Struct(nt)
}

// Finalize returns the Task described by the draft, under a temporary identifier.
func (nt NewTask) Finalize() Task {
	now := time.Now().UTC()
	return nt.Apply(Task{Meta: Meta{ID: NewTempID(), CreatedAt: now, UpdatedAt: now}})
}

// Apply overlays the draft on t, keeping t's Meta.
func (nt NewTask) Apply(t Task) Task {
	due, _ := ParseDate(nt.DueDate)
	t.Title = nt.Title
	t.ModuleCode = nt.ModuleCode
	t.DueDate = due
	t.Priority = Priority(nt.Priority)
	t.Status = Status(nt.Status)
	t.Completed = nt.Completed
	t.Normalize()
	return t
}
