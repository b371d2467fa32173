package record

import (
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/unilife/core"
)

// Assessment types
const (
	AssessmentAssignment = "assignment"
	AssessmentTest       = "test"
	AssessmentExam       = "exam"
)

var AssessmentTypes = []string{AssessmentAssignment, AssessmentTest, AssessmentExam}

type Assessment struct {
	ID      string       `json:"id"`
	Name    string       `json:"name"`
	Type    string       `json:"type"`
	DueDate Date         `json:"dueDate"`
	Weight  null.Float64 `json:"weight"`
}

// Module is a course record.
type Module struct {
	Meta
	Code         string       `json:"code"`
	Name         string       `json:"name"`
	Semester     string       `json:"semester"`
	Credits      int          `json:"credits"`
	CurrentGrade float64      `json:"currentGrade"`
	TargetGrade  float64      `json:"targetGrade"`
	Progress     float64      `json:"progress"`
	CoverImage   null.String  `json:"coverImage"`
	Assessments  []Assessment `json:"assessments"`
	SpecialCode  null.Int64   `json:"specialCode"`
}

// Module columns
const (
	ColCode         = "code"
	ColName         = "name"
	ColSemester     = "semester"
	ColCredits      = "credits"
	ColCurrentGrade = "current_grade"
	ColTargetGrade  = "target_grade"
	ColProgress     = "progress"
	ColCoverImage   = "cover_image"
	ColAssessments  = "assessments"
	ColSpecialCode  = "special_code"

	// nested assessment columns
	ColAssessmentType = "type"
	ColWeight         = "weight"
)

var assessmentFields = []Field{
	{JSON: "id", Column: ColID},
	{JSON: "name", Column: ColName},
	{JSON: "type", Column: ColAssessmentType},
	{JSON: "dueDate", Column: ColDueDate},
	{JSON: "weight", Column: ColWeight},
}

var ModuleSchema = Schema[Module]{
	Table: TableModules,
	Fields: append([]Field{
		{JSON: "code", Column: ColCode},
		{JSON: "name", Column: ColName},
		{JSON: "semester", Column: ColSemester},
		{JSON: "credits", Column: ColCredits},
		{JSON: "currentGrade", Column: ColCurrentGrade},
		{JSON: "targetGrade", Column: ColTargetGrade},
		{JSON: "progress", Column: ColProgress},
		{JSON: "coverImage", Column: ColCoverImage},
		{JSON: "assessments", Column: ColAssessments},
		{JSON: "specialCode", Column: ColSpecialCode},
	}, metaFields...),
	Ordering: []core.DBOrdering{{Field: ColCreatedAt, Ascending: false}},
	Less:     func(a, b Module) bool { return a.CreatedAt.After(b.CreatedAt) },
	Meta:     func(m *Module) *Meta { return &m.Meta },
	encode:   encodeModule,
	decode:   decodeModule,
}

func encodeAssessment(a Assessment) Record {
	return Record{
		ColID:             a.ID,
		ColName:           a.Name,
		ColAssessmentType: a.Type,
		ColDueDate:        encodeDate(a.DueDate),
		ColWeight:         nullValue(a.Weight.Valid, a.Weight.Float64),
	}
}

func decodeAssessment(r *reader) Assessment {
	return Assessment{
		ID:      r.str(ColID),
		Name:    r.str(ColName),
		Type:    r.str(ColAssessmentType),
		DueDate: r.date(ColDueDate),
		Weight:  r.nullFloat(ColWeight),
	}
}

func encodeModule(m Module) Record {
	assessments := make([]Record, 0, len(m.Assessments))
	for _, a := range m.Assessments {
		assessments = append(assessments, encodeAssessment(a))
	}
	rec := Record{
		ColCode:         m.Code,
		ColName:         m.Name,
		ColSemester:     m.Semester,
		ColCredits:      int64(m.Credits),
		ColCurrentGrade: m.CurrentGrade,
		ColTargetGrade:  m.TargetGrade,
		ColProgress:     m.Progress,
		ColCoverImage:   nullValue(m.CoverImage.Valid, m.CoverImage.String),
		ColAssessments:  assessments,
		ColSpecialCode:  nullValue(m.SpecialCode.Valid, m.SpecialCode.Int64),
	}
	m.Meta.encode(rec)
	return rec
}

func decodeModule(r *reader) Module {
	m := Module{
		Meta:         decodeMeta(r),
		Code:         r.str(ColCode),
		Name:         r.str(ColName),
		Semester:     r.str(ColSemester),
		Credits:      int(r.int(ColCredits)),
		CurrentGrade: r.float(ColCurrentGrade),
		TargetGrade:  r.float(ColTargetGrade),
		Progress:     r.float(ColProgress),
		CoverImage:   r.nullStr(ColCoverImage),
		SpecialCode:  r.nullInt(ColSpecialCode),
	}
	for _, rec := range r.list(ColAssessments) {
		ar := &reader{rec: rec}
		a := decodeAssessment(ar)
		if ar.err != nil {
			r.fail(ColAssessments, ar.err)
			break
		}
		m.Assessments = append(m.Assessments, a)
	}
	return m
}

// NewAssessment contains the form fields of an Assessment.
type NewAssessment struct {
	ID      string   `json:"id"`
	Name    string   `json:"name" validate:"required"`
	Type    string   `json:"type" validate:"required,assessmenttype"`
	DueDate string   `json:"dueDate" validate:"omitempty,ymd"`
	Weight  *float64 `json:"weight" validate:"omitempty,grade"`
}

func (na NewAssessment) finalize() Assessment {
	id := na.ID
	if id == "" {
		id = uuid.New().String()
	}
	due, _ := ParseDate(na.DueDate)
	return Assessment{
		ID:      id,
		Name:    na.Name,
		Type:    na.Type,
		DueDate: due,
		Weight:  null.Float64FromPtr(na.Weight),
	}
}

// NewModule contains information needed to create a new Module, or to edit one.
type NewModule struct {
	Code         string          `json:"code" validate:"required"`
	Name         string          `json:"name" validate:"required"`
	Semester     string          `json:"semester" validate:"required"`
	Credits      int             `json:"credits" validate:"gte=0"`
	CurrentGrade float64         `json:"currentGrade" validate:"grade"`
	TargetGrade  float64         `json:"targetGrade" validate:"grade"`
	Progress     float64         `json:"progress" validate:"grade"`
	CoverImage   string          `json:"coverImage"`
	Assessments  []NewAssessment `json:"assessments" validate:"dive"`
	SpecialCode  *int64          `json:"specialCode" validate:"omitempty,gte=0"`
}

func (nm *NewModule) Validate(validate *validator.Validate) error {
	nm.Code = strings.ToUpper(core.CleanString(nm.Code))
	nm.Name = core.CleanString(nm.Name)
	nm.Semester = core.CleanString(nm.Semester)
	nm.CoverImage = core.CleanString(nm.CoverImage)
	for i := range nm.Assessments {
		nm.Assessments[i].Name = core.CleanString(nm.Assessments[i].Name)
		nm.Assessments[i].Type = core.CleanString(nm.Assessments[i].Type, true /* lower */)
	}
	return validate.Struct(nm)
}

// Finalize returns the Module described by the draft, under a temporary identifier.
func (nm NewModule) Finalize() Module {
	now := time.Now().UTC()
	return nm.Apply(Module{Meta: Meta{ID: NewTempID(), CreatedAt: now, UpdatedAt: now}})
}

// Apply overlays the draft on m, keeping m's Meta.
func (nm NewModule) Apply(m Module) Module {
	m.Code = nm.Code
	m.Name = nm.Name
	m.Semester = nm.Semester
	m.Credits = nm.Credits
	m.CurrentGrade = nm.CurrentGrade
	m.TargetGrade = nm.TargetGrade
	m.Progress = nm.Progress
	m.CoverImage = null.NewString(nm.CoverImage, nm.CoverImage != "")
	m.SpecialCode = null.Int64FromPtr(nm.SpecialCode)
	m.Assessments = make([]Assessment, 0, len(nm.Assessments))
	for _, na := range nm.Assessments {
		m.Assessments = append(m.Assessments, na.finalize())
	}
	return m
}
