package echoapi_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"reflect"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	echoapi "github.com/trezcool/kelasi/apps/api/echo"
	"github.com/trezcool/kelasi/core"
	"github.com/trezcool/kelasi/core/classroom"
	"github.com/trezcool/kelasi/core/student"
	"github.com/trezcool/kelasi/services/email"
	"github.com/trezcool/kelasi/storage/database/inmem"
	"github.com/trezcool/kelasi/testutil"
)

var errMissingToken = httpErr{Error: "missing or malformed jwt"}

type testEnv struct {
	conf     *core.Config
	db       *inmemdb.DB
	store    *inmemdb.Store
	mailer   *emailsvc.ConsoleServiceMock
	server   *echoapi.Server
	schoolID int
}

func setup(t *testing.T) testEnv {
	orig := core.NowFunc
	core.NowFunc = func() time.Time { return time.Date(2025, 9, 1, 8, 0, 0, 0, time.UTC) }
	t.Cleanup(func() { core.NowFunc = orig })
	testutil.ParseTemplates(t)

	conf := testutil.NewConfig()
	logger := testutil.NewLogger(t)
	translator := core.NewTranslator()
	validate := core.NewValidator(translator)

	db := inmemdb.Open()
	store := inmemdb.NewStore(db)
	sch := testutil.CreateSchool(t, store.Schools(), "Complexe Scolaire Tujenge", "TJG")
	mailer := emailsvc.NewConsoleServiceMock(conf, logger)

	classSvc := classroom.NewService(store.Classes(), nil, logger, validate, translator)
	studentSvc := student.NewService(store, classSvc, store.AuditLogs(), mailer, logger, validate, translator, conf)

	server := echoapi.NewServer(echoapi.ServerDeps{
		Conf:       conf,
		Logger:     logger,
		StudentSvc: studentSvc,
		ClassSvc:   classSvc,
		Audit:      store.AuditLogs(),
		Translator: translator,
	})
	return testEnv{conf: conf, db: db, store: store, mailer: mailer, server: server, schoolID: sch.ID}
}

type httpErr struct {
	Error string `json:"error"`
	Kind  string `json:"kind,omitempty"`
}

type httpTest struct {
	name     string
	method   string
	path     string
	body     []byte
	token    string
	wantCode int
	wantData []byte
}

func newAuthRequest(method, path, token string, data ...[]byte) (*http.Request, *httptest.ResponseRecorder) {
	var body bytes.Buffer
	if len(data) > 0 {
		body.Write(data[0])
	}
	req := httptest.NewRequest(method, path, &body)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	return req, rec
}

func newRequest(method, path string, data ...[]byte) (*http.Request, *httptest.ResponseRecorder) {
	return newAuthRequest(method, path, "", data...)
}

// getToken returns a token for staff member 7 of `schoolID`.
func getToken(t *testing.T, conf *core.Config, schoolID int, isAdmin bool, roles ...string) string {
	actor := core.Actor{ID: 7, SchoolID: schoolID, Username: "mbuyi", Email: "mbuyi@tujenge.cd"}
	return signClaims(t, conf, echoapi.NewClaims(conf, actor, isAdmin, roles...))
}

func signClaims(t *testing.T, conf *core.Config, claims *echoapi.Claims) string {
	token, err := echoapi.GenerateToken(conf, claims)
	if err != nil {
		t.Fatalf("signClaims() failed: %v", err)
	}
	return token
}

func marchallObj(t *testing.T, obj interface{}) []byte {
	data, err := json.Marshal(obj)
	if err != nil {
		t.Fatalf("marchallObj() failed: %v", err)
	}
	return data
}

func unmarshallBody(t *testing.T, rec *httptest.ResponseRecorder, dest interface{}) {
	if err := json.Unmarshal(rec.Body.Bytes(), dest); err != nil {
		t.Fatalf("unmarshallBody() failed: %v; body %s", err, rec.Body.String())
	}
}

func jsonBytesEqual(t *testing.T, b1, b2 []byte) (bool, error) {
	var j1, j2 interface{}
	if err := json.Unmarshal(b1, &j1); err != nil {
		return false, err
	}
	if err := json.Unmarshal(b2, &j2); err != nil {
		return false, err
	}
	if reflect.DeepEqual(j1, j2) {
		return true, nil
	}
	if j1 == nil || j2 == nil {
		return false, nil
	}
	if _, isList := j1.([]interface{}); !isList {
		return false, nil
	}
	return assert.ElementsMatch(t, j1, j2), nil
}

func checkCodeAndData(t *testing.T, tt httpTest, rec *httptest.ResponseRecorder) {
	if rec.Code != tt.wantCode {
		t.Errorf("failed! code = %v; wantCode %v", rec.Code, tt.wantCode)
	}
	ok, err := jsonBytesEqual(t, rec.Body.Bytes(), tt.wantData)
	if err != nil {
		t.Errorf("jsonBytesEqual() failed to compare; err %v", err)
	}
	if !ok {
		t.Errorf("failed! data = %v; wantData %v", rec.Body.String(), string(tt.wantData))
	}
}
