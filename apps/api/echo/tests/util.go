package tests

import (
	"bytes"
	"log"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/dgrijalva/jwt-go"

	"github.com/trezcool/ruhusa/apps/api/echo"
	"github.com/trezcool/ruhusa/core"
	"github.com/trezcool/ruhusa/core/workflow"
	logsvc "github.com/trezcool/ruhusa/services/logger"
	testutil "github.com/trezcool/ruhusa/tests"
)

var errMissingToken = httpErr{Error: "missing or malformed jwt"}

func setup(t *testing.T) (echoapi.Server, *testutil.Env) {
	t.Helper()

	env := testutil.NewEnv(t)
	validate, translator := core.NewValidator()
	workflow.RegisterValidators(validate, translator)

	server := echoapi.NewServer(
		echoapi.ServerDeps{
			Logger:         logsvc.NewStdLogger(log.New(new(bytes.Buffer), "", 0)),
			WorkflowSvc:    env.WfSvc,
			Validate:       validate,
			Translator:     translator,
			DisableReqLogs: true,
		},
	)
	return server, env
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
	extra    interface{}
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

func getToken(t *testing.T, claims *echoapi.Claims) string {
	t.Helper()
	claims.ExpiresAt = time.Now().Add(core.Conf.Server.JWTExpirationDelta).Unix()
	claims.IssuedAt = time.Now().Unix()

	token, err := echoapi.GenerateToken(claims)
	if err != nil {
		t.Fatalf("getToken() failed: %v", err)
	}
	return token
}

func studentToken(t *testing.T, userID string) string {
	return getToken(t, &echoapi.Claims{
		StandardClaims: jwt.StandardClaims{Subject: userID},
		IsStudent:      true,
	})
}

func teacherToken(t *testing.T, userID string) string {
	return getToken(t, &echoapi.Claims{
		StandardClaims: jwt.StandardClaims{Subject: userID},
		IsTeacher:      true,
	})
}

func adminToken(t *testing.T, userID string) string {
	return getToken(t, &echoapi.Claims{
		StandardClaims: jwt.StandardClaims{Subject: userID},
		IsAdmin:        true,
	})
}
