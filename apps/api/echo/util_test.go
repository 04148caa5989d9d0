package echoapi

import (
	"bytes"
	"encoding/json"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"reflect"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"

	"github.com/trezcool/rollcall/core"
	"github.com/trezcool/rollcall/core/group"
	"github.com/trezcool/rollcall/core/roll"
	"github.com/trezcool/rollcall/services/lock"
	logsvc "github.com/trezcool/rollcall/services/logger"
	"github.com/trezcool/rollcall/services/metrics"
	"github.com/trezcool/rollcall/storage/database"
	sqlxrepos "github.com/trezcool/rollcall/storage/database/sqlx"
	"github.com/trezcool/rollcall/testutil"
)

var (
	errMissingToken = httpErr{Error: "missing or malformed jwt"}
	errForbidden    = httpErr{Error: "permission denied"}
	errNotFound     = httpErr{Error: "not found"}
)

type testEnv struct {
	app        Server
	conf       *core.Config
	grpRepo    group.Repository
	rollRepo   roll.Repository
	locker     *lock.Local
	adminToken string
	staffToken string
}

func setup(t *testing.T) *testEnv {
	conf := testutil.NewConfig(t)

	// set up DB & repos
	db := testutil.PrepareDB(t)
	env := &testEnv{
		conf:     conf,
		grpRepo:  sqlxrepos.NewGroupRepository(db),
		rollRepo: sqlxrepos.NewRollRepository(db),
		locker:   lock.NewLocal(),
	}

	logger := logsvc.NewRollbarLogger(log.New(io.Discard, "", 0), conf)
	logger.Enable(false)

	validate := validator.New()
	translator := core.NewTranslator()
	core.InitValidators(validate, translator)
	group.InitValidators(validate, translator)

	reg := prometheus.NewRegistry()
	if err := metrics.Register(reg); err != nil {
		t.Fatalf("metrics.Register() failed: %v", err)
	}

	// set up services
	grpSvc := group.NewService(group.ServiceDeps{
		Conf:     conf,
		Logger:   logger,
		Tx:       database.NewTransactor(db),
		Repo:     env.grpRepo,
		RollRepo: env.rollRepo,
		Locker:   env.locker,
		Observer: metrics.Observer{},
	})

	// set up server
	env.app = NewServer(ServerDeps{
		Conf:       conf,
		Logger:     logger,
		GroupSvc:   grpSvc,
		Validate:   validate,
		Translator: translator,
		Gatherer:   reg,
	})

	env.adminToken = getToken(t, conf, core.Person{ID: "1", Username: "admin"}, true)
	env.staffToken = getToken(t, conf, core.Person{ID: "2", Username: "staff"}, false)
	return env
}

type httpErr struct {
	Error string `json:"error"`
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

func getToken(t *testing.T, conf *core.Config, person core.Person, isAdmin bool) string {
	token, err := GenerateToken(conf, NewClaims(conf, person, isAdmin))
	if err != nil {
		t.Fatalf("getToken() failed: %v", err)
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

func marchallList(t *testing.T, objs ...interface{}) []byte {
	if objs == nil {
		objs = []interface{}{}
	}
	data, err := json.Marshal(objs)
	if err != nil {
		t.Fatalf("marchallList() failed: %v", err)
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
	if rec.Code != tt.wantCode {
		t.Errorf("failed! code = %v; wantCode %v", rec.Code, tt.wantCode)
	}
	if tt.wantData == nil {
		assert.Empty(t, rec.Body.String())
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

func runHTTPTests(t *testing.T, app Server, tests []httpTest) {
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(tt.method, tt.path, tt.token, tt.body)
			app.ServeHTTP(rec, req)
			checkCodeAndData(t, tt, rec)
		})
	}
}
