package echoapi

import (
	"bytes"
	"context"
	"encoding/json"
	"log"
	"net/http"
	"net/http/httptest"
	"reflect"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/trezcool/journal/core"
	"github.com/trezcool/journal/core/crud"
	"github.com/trezcool/journal/core/school"
	logsvc "github.com/trezcool/journal/services/logger"
	inmemdb "github.com/trezcool/journal/storage/database/inmem"
)

type testApp struct {
	server *Server
	db     *inmemdb.DB
	svc    *crud.Service
	reg    *crud.Registry
	logs   *bytes.Buffer
}

func newTestConfig() *core.Config {
	return &core.Config{
		Env:      "TEST",
		AppName:  "Journal",
		Build:    "test",
		TestMode: true,
		Server: core.ServerConfig{
			Address:         ":0",
			ShutdownTimeout: time.Second,
			BodyLimit:       "1K",
			DisableReqLogs:  true,
		},
		Paging: core.PagingConfig{DefaultLimit: 20, MaxLimit: 100},
		I18n:   core.I18nConfig{Locales: []string{"en", "ru"}},
	}
}

func setup(t *testing.T, conf ...*core.Config) *testApp {
	t.Helper()
	c := newTestConfig()
	if len(conf) > 0 {
		c = conf[0]
	}

	validate := core.NewValidator()
	reg, err := school.NewRegistry(validate)
	require.NoError(t, err)
	uni, err := core.NewTranslator(c.I18n.Locales...)
	require.NoError(t, err)

	logs := new(bytes.Buffer)
	db := inmemdb.Open()
	svc := crud.NewService(db, crud.NewValidator(validate), crud.NewPagingLimits(c.Paging))

	server := NewServer(Deps{
		Conf:       c,
		Logger:     logsvc.NewRollbarLogger(log.New(logs, "", 0), c),
		Registry:   reg,
		Service:    svc,
		Translator: uni,
	})
	return &testApp{server: server, db: db, svc: svc, reg: reg, logs: logs}
}

// create inserts rows through the service, bypassing HTTP.
func (app *testApp) create(t *testing.T, entity string, payloads ...crud.Payload) []int64 {
	t.Helper()
	d, ok := app.reg.Get(entity)
	require.True(t, ok, entity)
	ids := make([]int64, 0, len(payloads))
	for _, p := range payloads {
		id, err := app.svc.Create(context.Background(), crud.Scope{Entity: d}, p)
		require.NoError(t, err)
		ids = append(ids, id)
	}
	return ids
}

func (app *testApp) do(req *http.Request, rec *httptest.ResponseRecorder) *httptest.ResponseRecorder {
	app.server.ServeHTTP(rec, req)
	return rec
}

type httpTest struct {
	name     string
	method   string
	path     string
	body     []byte
	lang     string
	wantCode int
	wantData []byte
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

func (tt httpTest) request() (*http.Request, *httptest.ResponseRecorder) {
	req, rec := newRequest(tt.method, tt.path, tt.body)
	if tt.lang != "" {
		req.Header.Set("Accept-Language", tt.lang)
	}
	return req, rec
}

func marchallObj(t *testing.T, obj interface{}) []byte {
	data, err := json.Marshal(obj)
	if err != nil {
		t.Fatalf("marchallObj(): %v", err)
	}
	return data
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
	t.Helper()
	if rec.Code != tt.wantCode {
		t.Errorf("failed! code = %v; wantCode %v", rec.Code, tt.wantCode)
	}
	if tt.wantData == nil {
		if rec.Body.Len() != 0 {
			t.Errorf("failed! data = %v; want no data", rec.Body.String())
		}
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

func runHTTPTests(t *testing.T, app *testApp, tests []httpTest) {
	t.Helper()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := app.do(tt.request())
			checkCodeAndData(t, tt, rec)
		})
	}
}
