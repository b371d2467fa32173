package record

import (
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/volatiletech/null/v8"
	"github.com/volatiletech/strmangle"
)

var (
	created = time.Date(2024, 2, 1, 9, 30, 0, 0, time.UTC)
	updated = time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
)

func sampleModule() Module {
	return Module{
		Meta: Meta{
			ID:        "6f1c9c5e-4a43-4f5e-9c36-1b7f1d3c2a11",
			OwnerID:   "8a1f6f0e-3b7d-4c1e-bf3c-0d9b7e6a5c44",
			CreatedAt: created,
			UpdatedAt: updated,
		},
		Code:         "COS 132",
		Name:         "Imperative Programming",
		Semester:     "2024",
		Credits:      16,
		CurrentGrade: 67.5,
		TargetGrade:  75,
		Progress:     40,
		CoverImage:   null.StringFrom("covers/cos132.png"),
		Assessments: []Assessment{
			{ID: "a1", Name: "Semester test 1", Type: AssessmentTest, DueDate: NewDate(2024, 3, 14), Weight: null.Float64From(25)},
			{ID: "a2", Name: "Practical 1", Type: AssessmentAssignment},
		},
		SpecialCode: null.Int64From(988),
	}
}

func TestModuleSchema_EncodeDecode(t *testing.T) {
	mod := sampleModule()
	rec := ModuleSchema.Encode(mod)

	assert.Equal(t, "COS 132", rec[ColCode])
	assert.Equal(t, int64(988), rec[ColSpecialCode])
	assert.Equal(t, created, rec[ColCreatedAt])
	assert.Len(t, rec[ColAssessments], 2)

	got, err := ModuleSchema.Decode(rec)
	require.NoError(t, err)
	assert.Equal(t, mod, got)
}

func TestModuleSchema_DecodeNulls(t *testing.T) {
	mod := sampleModule()
	mod.CoverImage = null.String{}
	mod.SpecialCode = null.Int64{}
	mod.Assessments = nil

	rec := ModuleSchema.Encode(mod)
	assert.Nil(t, rec[ColCoverImage])
	assert.Nil(t, rec[ColSpecialCode])

	got, err := ModuleSchema.Decode(rec)
	require.NoError(t, err)
	assert.False(t, got.CoverImage.Valid)
	assert.False(t, got.SpecialCode.Valid)
	assert.Empty(t, got.Assessments)
}

// rows as handed back by the sqlite driver: integers, text timestamps & JSON text lists
func TestModuleSchema_DecodeSQLRow(t *testing.T) {
	rec := Record{
		"id":            "6f1c9c5e-4a43-4f5e-9c36-1b7f1d3c2a11",
		"user_id":       "owner-1",
		"code":          "WTW 114",
		"name":          "Calculus",
		"semester":      "2024",
		"credits":       int64(16),
		"current_grade": int64(51),
		"target_grade":  []byte("70.5"),
		"progress":      float64(100),
		"cover_image":   nil,
		"assessments":   `[{"id":"x","name":"Exam","type":"exam","due_date":"2024-06-03","weight":50}]`,
		"special_code":  nil,
		"created_at":    "2024-02-01T09:30:00.000000Z",
		"updated_at":    []byte("2024-03-01 10:00:00+00:00"),
		"legacy_column": "ignored",
	}

	got, err := ModuleSchema.Decode(rec)
	require.NoError(t, err)
	assert.Equal(t, 16, got.Credits)
	assert.Equal(t, 51.0, got.CurrentGrade)
	assert.Equal(t, 70.5, got.TargetGrade)
	assert.Equal(t, created, got.CreatedAt)
	assert.Equal(t, updated, got.UpdatedAt)
	require.Len(t, got.Assessments, 1)
	assert.Equal(t, NewDate(2024, 6, 3), got.Assessments[0].DueDate)
	assert.Equal(t, null.Float64From(50), got.Assessments[0].Weight)
}

// notifications decoded from JSON: numbers are float64, lists are []interface{}
func TestTaskSchema_DecodeJSONNotification(t *testing.T) {
	payload := `{"id":"2b0c-11","user_id":"o","title":"Read ch. 4","module_code":"COS 132",
		"due_date":"2024-04-02","priority":"high","status":"todo","completed":false,
		"created_at":"2024-02-01T09:30:00Z","updated_at":null}`
	var rec Record
	require.NoError(t, json.Unmarshal([]byte(payload), &rec))

	got, err := TaskSchema.Decode(rec)
	require.NoError(t, err)
	assert.Equal(t, "Read ch. 4", got.Title)
	assert.Equal(t, NewDate(2024, 4, 2), got.DueDate)
	assert.Equal(t, PriorityHigh, got.Priority)
	assert.True(t, got.UpdatedAt.IsZero())
}

func TestSchema_DecodeInvalid(t *testing.T) {
	tests := []struct {
		name string
		rec  Record
	}{
		{name: "credits not a number", rec: Record{"credits": "lots"}},
		{name: "fractional credits", rec: Record{"credits": 1.5}},
		{name: "bad timestamp", rec: Record{"created_at": "yesterday"}},
		{name: "bad assessments", rec: Record{"assessments": "{"}},
		{name: "assessment item not an object", rec: Record{"assessments": []interface{}{"exam"}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ModuleSchema.Decode(tt.rec)
			assert.Error(t, err)
		})
	}
}

func TestSchema_Payloads(t *testing.T) {
	tx := Transaction{
		Meta:        Meta{ID: NewTempID(), OwnerID: "someone-else", CreatedAt: created, UpdatedAt: updated},
		Date:        NewDate(2024, 12, 3),
		Description: "Groceries",
		Amount:      -245.9,
		Category:    "Food",
	}

	ins := TransactionSchema.InsertPayload(tx, "owner-1")
	assert.NotContains(t, ins, ColID)
	assert.NotContains(t, ins, ColCreatedAt)
	assert.NotContains(t, ins, ColUpdatedAt)
	assert.Equal(t, "owner-1", ins[ColOwnerID])
	assert.Equal(t, "2024-12-03", ins[ColDate])
	assert.Equal(t, -245.9, ins[ColAmount])

	upd := TransactionSchema.UpdatePayload(tx)
	assert.NotContains(t, upd, ColOwnerID)
	assert.NotContains(t, upd, ColID)
	assert.Equal(t, "Groceries", upd[ColDescription])
}

// every explicit field pair must agree with the conventional camelCase <-> snake_case naming
func TestSchema_FieldPairs(t *testing.T) {
	schemas := map[string][]Field{
		TableModules:      ModuleSchema.Fields,
		TableTasks:        TaskSchema.Fields,
		TableTransactions: TransactionSchema.Fields,
		"assessments":     assessmentFields,
	}
	for table, fields := range schemas {
		seen := make(map[string]bool, len(fields))
		for _, f := range fields {
			assert.Falsef(t, seen[f.Column], "%s: duplicate column %q", table, f.Column)
			seen[f.Column] = true
			assert.Truef(t, strings.EqualFold(strmangle.CamelCase(f.Column), f.JSON),
				"%s: column %q does not match JSON name %q", table, f.Column, f.JSON)
		}
	}

	col, ok := ModuleSchema.Column("currentGrade")
	assert.True(t, ok)
	assert.Equal(t, ColCurrentGrade, col)
	_, ok = ModuleSchema.Column("current_grade")
	assert.False(t, ok)
}

// every column an entity encodes must be listed in its schema
func TestSchema_EncodedColumnsAreListed(t *testing.T) {
	check := func(table string, cols []string, rec Record) {
		assert.ElementsMatch(t, cols, keys(rec), table)
	}
	check(TableModules, ModuleSchema.Columns(), ModuleSchema.Encode(sampleModule()))
	check(TableTasks, TaskSchema.Columns(), TaskSchema.Encode(Task{}))
	check(TableTransactions, TransactionSchema.Columns(), TransactionSchema.Encode(Transaction{}))
}

func keys(rec Record) []string {
	ks := make([]string, 0, len(rec))
	for k := range rec {
		ks = append(ks, k)
	}
	return ks
}

func TestTempIDs(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 1000; i++ {
		id := NewTempID()
		assert.True(t, IsTempID(id))
		assert.False(t, seen[id], "duplicate temporary id")
		seen[id] = true
	}
	assert.False(t, IsTempID("6f1c9c5e-4a43-4f5e-9c36-1b7f1d3c2a11"))
	assert.True(t, IsTempID(""))
}

func TestChange_ID(t *testing.T) {
	assert.Equal(t, "n", Change{Type: ChangeInsert, New: Record{"id": "n"}}.ID())
	assert.Equal(t, "o", Change{Type: ChangeDelete, New: Record{}, Old: Record{"id": "o"}}.ID())
	assert.Equal(t, "o", Change{Type: ChangeUpdate, New: Record{}, Old: Record{"id": "o"}}.ID())
}

func TestFilter_Match(t *testing.T) {
	f := OwnerFilter("owner-1")
	assert.True(t, f.Match(Record{ColOwnerID: "owner-1"}))
	assert.True(t, f.Match(Record{ColOwnerID: []byte("owner-1")}))
	assert.False(t, f.Match(Record{ColOwnerID: "owner-2"}))
	assert.False(t, f.Match(Record{}))
	assert.True(t, Filter{}.Match(Record{}))
}

func TestDate_JSON(t *testing.T) {
	var d struct {
		Due Date `json:"due"`
	}
	require.NoError(t, json.Unmarshal([]byte(`{"due":"2024-12-01"}`), &d))
	assert.Equal(t, NewDate(2024, 12, 1), d.Due)

	data, err := json.Marshal(d)
	require.NoError(t, err)
	assert.JSONEq(t, `{"due":"2024-12-01"}`, string(data))

	require.NoError(t, json.Unmarshal([]byte(`{"due":null}`), &d))
	assert.True(t, d.Due.IsZero())
	data, _ = json.Marshal(d)
	assert.JSONEq(t, `{"due":null}`, string(data))

	assert.Error(t, json.Unmarshal([]byte(`{"due":"someday"}`), &d))
}

func TestCompare(t *testing.T) {
	now := time.Now()
	tests := []struct {
		a, b interface{}
		want int
	}{
		{nil, nil, 0},
		{nil, "a", -1},
		{"a", nil, 1},
		{"a", "b", -1},
		{now, now.Add(time.Second), -1},
		{int64(3), 2.5, 1},
		{16, int64(16), 0},
		{false, true, -1},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Compare(tt.a, tt.b), "Compare(%v, %v)", tt.a, tt.b)
	}
}
