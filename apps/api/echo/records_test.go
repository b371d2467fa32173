package echoapi_test

import (
	"context"
	"net/http"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/unilife/core/identity"
	"github.com/trezcool/unilife/core/record"
)

func moduleBody(t *testing.T, code, semester string, credits int, grade, progress float64) []byte {
	return marchallObj(t, record.NewModule{
		Code:         code,
		Name:         "Module " + code,
		Semester:     semester,
		Credits:      credits,
		CurrentGrade: grade,
		TargetGrade:  70,
		Progress:     progress,
	})
}

func createModule(t *testing.T, app testApp, body []byte) record.Module {
	t.Helper()
	rec := app.do(http.MethodPost, "/v1/modules", body)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var m record.Module
	unmarshal(t, rec, &m)
	return m
}

func Test_collectionAPI_create(t *testing.T) {
	app := setup(t)

	tests := []httpTest{
		{
			name:     "empty",
			method:   http.MethodPost,
			path:     "/v1/modules",
			body:     []byte(`{}`),
			wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, map[string]string{
				"code":     "this field is required",
				"name":     "this field is required",
				"semester": "this field is required",
			}),
		},
		{
			name:     "grade out of range",
			method:   http.MethodPost,
			path:     "/v1/modules",
			body:     moduleBody(t, "cos 132", "2024 S1", 16, 120, 100),
			wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, map[string]string{"currentGrade": "currentGrade must be between 0 and 100"}),
		},
		{
			name:     "bad due date",
			method:   http.MethodPost,
			path:     "/v1/tasks",
			body:     []byte(`{"title": "Essay", "dueDate": "12/03/2024"}`),
			wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, map[string]string{"dueDate": "dueDate must be a date formatted as YYYY-MM-DD"}),
		},
		{
			name:     "malformed json",
			method:   http.MethodPost,
			path:     "/v1/transactions",
			body:     []byte(`{"amount": `),
			wantCode: http.StatusBadRequest,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			checkCodeAndData(t, tt, app.do(tt.method, tt.path, tt.body))
		})
	}
	assert.Zero(t, app.store.Modules().Len())
	assert.Zero(t, app.store.Tasks().Len())

	t.Run("success", func(t *testing.T) {
		m := createModule(t, app, moduleBody(t, " cos 132 ", "2024 S1", 16, 75, 100))
		_, err := uuid.Parse(m.ID)
		assert.NoError(t, err, "stored id")
		assert.Equal(t, owner, m.OwnerID)
		assert.Equal(t, "COS 132", m.Code)
		assert.Equal(t, 1, app.remote.Count(record.TableModules))

		got, ok := app.store.Modules().Get(m.ID)
		require.True(t, ok)
		assert.Equal(t, m.Code, got.Code)
	})
}

func Test_collectionAPI_queryAndOrdering(t *testing.T) {
	app := setup(t)
	for _, body := range [][]byte{
		marchallObj(t, record.NewTask{Title: "Essay", ModuleCode: "ENG 110", DueDate: "2024-03-12", Priority: "low"}),
		marchallObj(t, record.NewTask{Title: "Lab", ModuleCode: "COS 132", DueDate: "2024-03-10", Priority: "high"}),
		marchallObj(t, record.NewTask{Title: "Quiz", ModuleCode: "cos 132", DueDate: "2024-03-11", Completed: true}),
	} {
		rec := app.do(http.MethodPost, "/v1/tasks", body)
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	}

	titles := func(t *testing.T, path string) []string {
		rec := app.do(http.MethodGet, path)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		var tasks []record.Task
		unmarshal(t, rec, &tasks)
		ts := make([]string, 0, len(tasks))
		for _, task := range tasks {
			ts = append(ts, task.Title)
		}
		return ts
	}

	assert.Equal(t, []string{"Lab", "Quiz", "Essay"}, titles(t, "/v1/tasks"))
	assert.Equal(t, []string{"Essay", "Quiz", "Lab"}, titles(t, "/v1/tasks?ordering=-dueDate"))
	assert.Equal(t, []string{"Essay", "Lab", "Quiz"}, titles(t, "/v1/tasks?ordering=title"))
	assert.Equal(t, []string{"Lab", "Quiz"}, titles(t, "/v1/tasks?module=COS%20132"))
	assert.Equal(t, []string{"Quiz"}, titles(t, "/v1/tasks?completed=true"))
	assert.Equal(t, []string{"Quiz"}, titles(t, "/v1/tasks?status=done"))

	checkCodeAndData(t, httpTest{
		wantCode: http.StatusBadRequest,
		wantData: marchallObj(t, map[string]string{"ordering": "unknown field nope"}),
	}, app.do(http.MethodGet, "/v1/tasks?ordering=nope"))
	checkCodeAndData(t, httpTest{
		wantCode: http.StatusBadRequest,
		wantData: marchallObj(t, map[string]string{"completed": "must be true or false"}),
	}, app.do(http.MethodGet, "/v1/tasks?completed=maybe"))
}

func Test_collectionAPI_updateAndDelete(t *testing.T) {
	app := setup(t)
	m := createModule(t, app, moduleBody(t, "COS 132", "2024 S1", 16, 50, 40))

	tests := []httpTest{
		{
			name:     "update unknown",
			method:   http.MethodPut,
			path:     "/v1/modules/" + uuid.NewString(),
			body:     moduleBody(t, "COS 132", "2024 S1", 16, 80, 100),
			wantCode: http.StatusNotFound,
			wantData: marchallObj(t, errNotFound),
		},
		{
			name:     "update invalid",
			method:   http.MethodPut,
			path:     "/v1/modules/" + m.ID,
			body:     moduleBody(t, "", "2024 S1", 16, 80, 100),
			wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, map[string]string{"code": "this field is required"}),
		},
		{
			name:     "delete unknown",
			method:   http.MethodDelete,
			path:     "/v1/modules/" + uuid.NewString(),
			wantCode: http.StatusNotFound,
			wantData: marchallObj(t, errNotFound),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			checkCodeAndData(t, tt, app.do(tt.method, tt.path, tt.body))
		})
	}

	t.Run("update", func(t *testing.T) {
		rec := app.do(http.MethodPut, "/v1/modules/"+m.ID, moduleBody(t, "COS 132", "2024 S1", 16, 80, 100))
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		var got record.Module
		unmarshal(t, rec, &got)
		assert.Equal(t, m.ID, got.ID)
		assert.Equal(t, 80.0, got.CurrentGrade)
		assert.Equal(t, m.CreatedAt, got.CreatedAt)

		rows, err := app.remote.Select(context.Background(), record.TableModules, record.OwnerFilter(owner), nil)
		require.NoError(t, err)
		require.Len(t, rows, 1)
		stored, err := record.ModuleSchema.Decode(rows[0])
		require.NoError(t, err)
		assert.Equal(t, 80.0, stored.CurrentGrade)
		assert.Equal(t, 100.0, stored.Progress)
	})

	t.Run("retrieve", func(t *testing.T) {
		rec := app.do(http.MethodGet, "/v1/modules/"+m.ID)
		require.Equal(t, http.StatusOK, rec.Code)
		var got record.Module
		unmarshal(t, rec, &got)
		assert.Equal(t, 80.0, got.CurrentGrade)
	})

	t.Run("delete", func(t *testing.T) {
		rec := app.do(http.MethodDelete, "/v1/modules/"+m.ID)
		assert.Equal(t, http.StatusNoContent, rec.Code)
		assert.Zero(t, app.remote.Count(record.TableModules))

		checkCodeAndData(t, httpTest{wantCode: http.StatusNotFound, wantData: marchallObj(t, errNotFound)},
			app.do(http.MethodGet, "/v1/modules/"+m.ID))
	})
}

func Test_collectionAPI_remoteFailure(t *testing.T) {
	app := setup(t)
	tx := marchallObj(t, record.NewTransaction{Date: "2024-03-01", Description: "Bursary", Amount: 5000})

	rec := app.do(http.MethodPost, "/v1/transactions", tx)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var saved record.Transaction
	unmarshal(t, rec, &saved)
	assert.Equal(t, record.DefaultCategory, saved.Category)

	app.remote.setDown(true)

	tests := []httpTest{
		{
			name:     "create",
			method:   http.MethodPost,
			path:     "/v1/transactions",
			body:     marchallObj(t, record.NewTransaction{Date: "2024-03-02", Description: "Coffee", Amount: -35}),
			wantCode: http.StatusBadGateway,
			wantData: marchallObj(t, errUnavailable),
		},
		{
			name:     "update",
			method:   http.MethodPut,
			path:     "/v1/transactions/" + saved.ID,
			body:     marchallObj(t, record.NewTransaction{Date: "2024-03-01", Description: "Bursary", Amount: 9000}),
			wantCode: http.StatusBadGateway,
			wantData: marchallObj(t, errUnavailable),
		},
		{
			name:     "delete",
			method:   http.MethodDelete,
			path:     "/v1/transactions/" + saved.ID,
			wantCode: http.StatusBadGateway,
			wantData: marchallObj(t, errUnavailable),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			checkCodeAndData(t, tt, app.do(tt.method, tt.path, tt.body))
		})
	}

	// every optimistic change was reverted
	txs := app.store.Transactions().All()
	require.Len(t, txs, 1)
	assert.Equal(t, saved.ID, txs[0].ID)
	assert.Equal(t, 5000.0, txs[0].Amount)
}

func Test_collectionAPI_noIdentity(t *testing.T) {
	app := setup(t, identity.Chain{})

	tests := []httpTest{
		{
			name:     "create",
			method:   http.MethodPost,
			path:     "/v1/tasks",
			body:     marchallObj(t, record.NewTask{Title: "Essay", DueDate: "2024-03-12"}),
			wantCode: http.StatusUnauthorized,
			wantData: marchallObj(t, errLogIn),
		},
		{
			name:     "refresh",
			method:   http.MethodPost,
			path:     "/v1/refresh",
			wantCode: http.StatusUnauthorized,
			wantData: marchallObj(t, errLogIn),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			checkCodeAndData(t, tt, app.do(tt.method, tt.path, tt.body))
		})
	}
	assert.Zero(t, app.store.Tasks().Len())
	assert.Zero(t, app.remote.Count(record.TableTasks))
}
