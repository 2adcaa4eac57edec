package tests

import (
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/trezcool/ruhusa/core/workflow"
	testutil "github.com/trezcool/ruhusa/tests"
)

func marshal(t *testing.T, v interface{}) []byte {
	t.Helper()
	data, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("marshalling body: %v", err)
	}
	return data
}

func unmarshal(t *testing.T, data []byte, v interface{}) {
	t.Helper()
	if err := json.Unmarshal(data, v); err != nil {
		t.Fatalf("unmarshalling %s: %v", data, err)
	}
}

func newRequestBody(t *testing.T, needsLab bool, labID string, studentIDs ...string) []byte {
	t.Helper()
	start := time.Now().UTC().Add(24 * time.Hour)
	return marshal(t, workflow.NewRequest{
		Type:       workflow.TypeOnDuty,
		Reason:     "hackathon",
		NeedsLab:   needsLab,
		LabID:      labID,
		StartDate:  start,
		EndDate:    start.Add(8 * time.Hour),
		StudentIDs: studentIDs,
	})
}

func TestWorkflowApi_accessControl(t *testing.T) {
	server, env := setup(t)
	cls := testutil.SeedClassroom(t, env)

	student := studentToken(t, cls.StudentA1.UserID)
	teacher := teacherToken(t, cls.TutorA.UserID)
	admin := adminToken(t, cls.HOD.UserID)

	body := newRequestBody(t, false, "", cls.StudentA1.ID)

	tests := []httpTest{
		{name: "create: no token", method: http.MethodPost, path: "/api/requests", body: body, wantCode: http.StatusUnauthorized, wantData: marshal(t, errMissingToken)},
		{name: "create: teachers cannot submit", method: http.MethodPost, path: "/api/requests", body: body, token: teacher, wantCode: http.StatusForbidden},
		{name: "decision: no token", method: http.MethodPost, path: "/api/requests/some-id/decision", wantCode: http.StatusUnauthorized, wantData: marshal(t, errMissingToken)},
		{name: "decision: students cannot decide", method: http.MethodPost, path: "/api/requests/some-id/decision", token: student, wantCode: http.StatusForbidden},
		{name: "pending: students have no inbox", method: http.MethodGet, path: "/api/requests/pending", token: student, wantCode: http.StatusForbidden},
		{name: "mine: teacher on student route", method: http.MethodGet, path: "/api/requests/mine", token: teacher, wantCode: http.StatusForbidden},
		{name: "group: student on teacher route", method: http.MethodGet, path: "/api/requests/group", token: student, wantCode: http.StatusForbidden},
		{name: "all: admins only", method: http.MethodGet, path: "/api/requests", token: teacher, wantCode: http.StatusForbidden},
		{name: "all: ok for admin", method: http.MethodGet, path: "/api/requests", token: admin, wantCode: http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(tt.method, tt.path, tt.token, tt.body)
			server.ServeHTTP(rec, req)

			assert.Equal(t, tt.wantCode, rec.Code)
			if tt.wantData != nil {
				assert.JSONEq(t, string(tt.wantData), rec.Body.String())
			}
		})
	}
}

func TestWorkflowApi_create(t *testing.T) {
	server, env := setup(t)
	cls := testutil.SeedClassroom(t, env)
	token := studentToken(t, cls.StudentA1.UserID)

	req, rec := newAuthRequest(http.MethodPost, "/api/requests", token, newRequestBody(t, false, "", cls.StudentA1.ID, cls.StudentB1.ID))
	server.ServeHTTP(rec, req)

	if !assert.Equal(t, http.StatusCreated, rec.Code, rec.Body.String()) {
		return
	}
	var created workflow.Request
	unmarshal(t, rec.Body.Bytes(), &created)
	assert.NotEmpty(t, created.ID)
	assert.Equal(t, workflow.StatusPending, created.Status)
	assert.Equal(t, cls.StudentA1.UserID, created.SubmitterID)
	assert.Len(t, created.Students, 2)
}

func TestWorkflowApi_createValidation(t *testing.T) {
	server, env := setup(t)
	cls := testutil.SeedClassroom(t, env)
	token := studentToken(t, cls.StudentA1.UserID)

	tests := []struct {
		name      string
		body      []byte
		wantField string
	}{
		{
			name: "no students",
			body: marshal(t, workflow.NewRequest{
				Type:      workflow.TypeOnDuty,
				Reason:    "hackathon",
				StartDate: time.Now().Add(24 * time.Hour),
				EndDate:   time.Now().Add(32 * time.Hour),
			}),
			wantField: "student_ids",
		},
		{
			name:      "lab flow without lab",
			body:      newRequestBody(t, true, "", cls.StudentA1.ID),
			wantField: "lab_id",
		},
		{
			name:      "unknown lab",
			body:      newRequestBody(t, true, "no-such-lab", cls.StudentA1.ID),
			wantField: "lab_id",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(http.MethodPost, "/api/requests", token, tt.body)
			server.ServeHTTP(rec, req)

			if !assert.Equal(t, http.StatusBadRequest, rec.Code, rec.Body.String()) {
				return
			}
			var fields map[string]string
			unmarshal(t, rec.Body.Bytes(), &fields)
			assert.Contains(t, fields, tt.wantField)
		})
	}
}

func TestWorkflowApi_createUnknownStudents(t *testing.T) {
	server, env := setup(t)
	cls := testutil.SeedClassroom(t, env)
	token := studentToken(t, cls.StudentA1.UserID)

	req, rec := newAuthRequest(http.MethodPost, "/api/requests", token, newRequestBody(t, false, "", cls.StudentA1.ID, "no-such-student"))
	server.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	var body httpErr
	unmarshal(t, rec.Body.Bytes(), &body)
	assert.Contains(t, body.Error, "unknown students")
	assert.Contains(t, body.Error, "no-such-student")
}

func TestWorkflowApi_decisionRoundTrip(t *testing.T) {
	server, env := setup(t)
	cls := testutil.SeedClassroom(t, env)

	req, rec := newAuthRequest(http.MethodPost, "/api/requests", studentToken(t, cls.StudentA1.UserID), newRequestBody(t, false, "", cls.StudentA1.ID))
	server.ServeHTTP(rec, req)
	if !assert.Equal(t, http.StatusCreated, rec.Code, rec.Body.String()) {
		return
	}
	var created workflow.Request
	unmarshal(t, rec.Body.Bytes(), &created)

	decide := func(token string, dec workflow.StepDecision) (*workflow.StepResult, int, string) {
		req, rec := newAuthRequest(http.MethodPost, "/api/requests/"+created.ID+"/decision", token, marshal(t, dec))
		server.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			return nil, rec.Code, rec.Body.String()
		}
		var res workflow.StepResult
		unmarshal(t, rec.Body.Bytes(), &res)
		return &res, rec.Code, rec.Body.String()
	}

	tutor := teacherToken(t, cls.TutorA.UserID)
	hod := teacherToken(t, cls.HOD.UserID)

	// the HOD's turn has not come yet
	_, code, body := decide(hod, workflow.StepDecision{Decision: workflow.DecisionApproved})
	assert.Equal(t, http.StatusConflict, code, body)

	res, code, body := decide(tutor, workflow.StepDecision{Decision: workflow.DecisionApproved, Comments: "ok"})
	if !assert.Equal(t, http.StatusOK, code, body) {
		return
	}
	assert.Equal(t, "step approved, forwarded to next approver", res.Message)
	assert.Equal(t, workflow.StatusPending, res.Status)

	// the tutor's step is spent
	_, code, body = decide(tutor, workflow.StepDecision{Decision: workflow.DecisionApproved})
	assert.Equal(t, http.StatusConflict, code, body)

	res, code, body = decide(hod, workflow.StepDecision{Decision: workflow.DecisionApproved})
	if !assert.Equal(t, http.StatusOK, code, body) {
		return
	}
	assert.Equal(t, "request approved", res.Message)
	assert.Equal(t, workflow.StatusApproved, res.Status)
}

func TestWorkflowApi_decisionValidation(t *testing.T) {
	server, env := setup(t)
	cls := testutil.SeedClassroom(t, env)
	token := teacherToken(t, cls.TutorA.UserID)

	req, rec := newAuthRequest(http.MethodPost, "/api/requests/some-id/decision", token, marshal(t, workflow.StepDecision{Decision: "MAYBE"}))
	server.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	var fields map[string]string
	unmarshal(t, rec.Body.Bytes(), &fields)
	assert.Contains(t, fields, "decision")
}

func TestWorkflowApi_views(t *testing.T) {
	server, env := setup(t)
	cls := testutil.SeedClassroom(t, env)

	req, rec := newAuthRequest(http.MethodPost, "/api/requests", studentToken(t, cls.StudentA1.UserID), newRequestBody(t, false, "", cls.StudentA1.ID, cls.StudentB1.ID))
	server.ServeHTTP(rec, req)
	if !assert.Equal(t, http.StatusCreated, rec.Code, rec.Body.String()) {
		return
	}

	t.Run("pending inbox", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodGet, "/api/requests/pending", teacherToken(t, cls.TutorB.UserID))
		server.ServeHTTP(rec, req)

		if !assert.Equal(t, http.StatusOK, rec.Code, rec.Body.String()) {
			return
		}
		var views []workflow.PendingStepView
		unmarshal(t, rec.Body.Bytes(), &views)
		if assert.Len(t, views, 1) {
			assert.Equal(t, workflow.RoleTutor, views[0].Role)
			assert.Equal(t, cls.GroupB.ID, views[0].GroupID)
		}
	})

	t.Run("mine", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodGet, "/api/requests/mine", studentToken(t, cls.StudentB1.UserID))
		server.ServeHTTP(rec, req)

		if !assert.Equal(t, http.StatusOK, rec.Code, rec.Body.String()) {
			return
		}
		var details []workflow.RequestDetail
		unmarshal(t, rec.Body.Bytes(), &details)
		if assert.Len(t, details, 1) {
			assert.Len(t, details[0].Approvals, 2)
		}
	})

	t.Run("mine: uninvolved student", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodGet, "/api/requests/mine", studentToken(t, cls.StudentA2.UserID))
		server.ServeHTTP(rec, req)

		if !assert.Equal(t, http.StatusOK, rec.Code, rec.Body.String()) {
			return
		}
		var details []workflow.RequestDetail
		unmarshal(t, rec.Body.Bytes(), &details)
		assert.Empty(t, details)
	})

	t.Run("mine: unknown user", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodGet, "/api/requests/mine", studentToken(t, "no-such-user"))
		server.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusNotFound, rec.Code, rec.Body.String())
	})

	t.Run("group", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodGet, "/api/requests/group", teacherToken(t, cls.TutorA.UserID))
		server.ServeHTTP(rec, req)

		if !assert.Equal(t, http.StatusOK, rec.Code, rec.Body.String()) {
			return
		}
		var details []workflow.RequestDetail
		unmarshal(t, rec.Body.Bytes(), &details)
		assert.Len(t, details, 1)
	})

	t.Run("group: unassigned teacher", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodGet, "/api/requests/group", teacherToken(t, cls.Incharge.UserID))
		server.ServeHTTP(rec, req)

		if !assert.Equal(t, http.StatusOK, rec.Code, rec.Body.String()) {
			return
		}
		var details []workflow.RequestDetail
		unmarshal(t, rec.Body.Bytes(), &details)
		assert.Empty(t, details)
	})

	t.Run("all", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodGet, "/api/requests", adminToken(t, "admin-user"))
		server.ServeHTTP(rec, req)

		if !assert.Equal(t, http.StatusOK, rec.Code, rec.Body.String()) {
			return
		}
		var details []workflow.RequestDetail
		unmarshal(t, rec.Body.Bytes(), &details)
		assert.Len(t, details, 1)
	})
}

func TestHome(t *testing.T) {
	server, _ := setup(t)

	req, rec := newRequest(http.MethodGet, "/")
	server.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Welcome")
}
