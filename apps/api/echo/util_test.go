package echoapi_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"reflect"
	"sync"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"

	. "github.com/trezcool/unilife/apps/api/echo"
	"github.com/trezcool/unilife/core"
	"github.com/trezcool/unilife/core/identity"
	"github.com/trezcool/unilife/core/record"
	"github.com/trezcool/unilife/core/syncstore"
	logsvc "github.com/trezcool/unilife/services/logger"
	inmemdb "github.com/trezcool/unilife/storage/database/inmem"
	"github.com/trezcool/unilife/storage/localstate"
	"github.com/trezcool/unilife/tests"
)

const owner = "4c1f3a52-8f7e-4b5e-9a0f-2d9b7e6c1a10"

var (
	errRemote = errors.New("connection refused")

	errNotFound    = httpErr{Error: "not found"}
	errLogIn       = httpErr{Error: "please log in"}
	errUnavailable = httpErr{Error: "record store unavailable; change reverted"}
)

type httpErr struct {
	Error string `json:"error"`
}

type httpTest struct {
	name     string
	method   string
	path     string
	body     []byte
	wantCode int
	wantData []byte
	extra    interface{}
}

// unreliableDB refuses writes while down is set.
type unreliableDB struct {
	*inmemdb.DB
	mu   sync.Mutex
	down bool
}

func (db *unreliableDB) setDown(down bool) {
	db.mu.Lock()
	db.down = down
	db.mu.Unlock()
}

func (db *unreliableDB) err() error {
	db.mu.Lock()
	defer db.mu.Unlock()
	if db.down {
		return errRemote
	}
	return nil
}

func (db *unreliableDB) Insert(ctx context.Context, table string, rec record.Record) (record.Record, error) {
	if err := db.err(); err != nil {
		return nil, err
	}
	return db.DB.Insert(ctx, table, rec)
}

func (db *unreliableDB) Update(ctx context.Context, table, id string, rec record.Record) error {
	if err := db.err(); err != nil {
		return err
	}
	return db.DB.Update(ctx, table, id, rec)
}

func (db *unreliableDB) Delete(ctx context.Context, table, id string) error {
	if err := db.err(); err != nil {
		return err
	}
	return db.DB.Delete(ctx, table, id)
}

type testApp struct {
	*Server
	store  *syncstore.Store
	remote *unreliableDB
	state  *localstate.Store
}

func setup(t *testing.T, ident ...syncstore.Identity) testApp {
	t.Helper()

	db, err := inmemdb.Open()
	require.NoError(t, err)
	remote := &unreliableDB{DB: db}

	var id syncstore.Identity = identity.Static(owner)
	if len(ident) > 0 {
		id = ident[0]
	}
	store := syncstore.NewStore(remote, id, logsvc.NewDiscardLogger())

	state := testutil.OpenState(t)

	validate, translator := core.NewValidator()
	record.InitValidators(validate, translator)

	conf := &core.Config{
		AppName:  "UniLife",
		Build:    "test",
		TestMode: true,
		Academic: core.AcademicConfig{TargetAverage: 60},
	}

	srv := NewServer(
		ServerDeps{
			Conf:           conf,
			Logger:         logsvc.NewDiscardLogger(),
			Store:          store,
			Profiles:       state,
			Validate:       validate,
			Translator:     translator,
			DisableReqLogs: true,
		},
	)
	return testApp{Server: srv, store: store, remote: remote, state: state}
}

func newRequest(method, path string, data ...[]byte) (*http.Request, *httptest.ResponseRecorder) {
	var body bytes.Buffer
	if len(data) > 0 {
		body.Write(data[0])
	}
	req := httptest.NewRequest(method, path, &body)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	return req, rec
}

func (app testApp) do(method, path string, data ...[]byte) *httptest.ResponseRecorder {
	req, rec := newRequest(method, path, data...)
	app.ServeHTTP(rec, req)
	return rec
}

func marchallObj(t *testing.T, obj interface{}) []byte {
	data, err := json.Marshal(obj)
	if err != nil {
		t.Fatalf("marchallObj(): %v", err)
	}
	return data
}

func unmarshal(t *testing.T, rec *httptest.ResponseRecorder, obj interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), obj), rec.Body.String())
}

func jsonBytesEqual(b1, b2 []byte) (bool, error) {
	var j1, j2 interface{}
	if err := json.Unmarshal(b1, &j1); err != nil {
		return false, err
	}
	if err := json.Unmarshal(b2, &j2); err != nil {
		return false, err
	}
	return reflect.DeepEqual(j1, j2), nil
}

func checkCodeAndData(t *testing.T, tt httpTest, rec *httptest.ResponseRecorder) {
	if rec.Code != tt.wantCode {
		t.Errorf("failed! code = %v; wantCode %v", rec.Code, tt.wantCode)
	}
	if tt.wantData == nil {
		return
	}
	ok, err := jsonBytesEqual(rec.Body.Bytes(), tt.wantData)
	if err != nil {
		t.Errorf("jsonBytesEqual() failed to compare; err %v", err)
	}
	if !ok {
		t.Errorf("failed! data = %v; wantData %v", rec.Body.String(), string(tt.wantData))
	}
}
