package workflow_test

import (
	"context"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"

	"github.com/trezcool/ruhusa/core"
	"github.com/trezcool/ruhusa/core/directory"
	"github.com/trezcool/ruhusa/core/workflow"
	testutil "github.com/trezcool/ruhusa/tests"
)

func TestService_CreateRequest_partitionsByGroup(t *testing.T) {
	env := testutil.NewEnv(t)
	cls := testutil.SeedClassroom(t, env)
	ctx := context.Background()

	nr := testutil.NewOnDutyRequest(cls.StudentA1.UserID, true, cls.Lab.ID,
		cls.StudentA1.ID, cls.StudentA2.ID, cls.StudentB1.ID)
	req, err := env.WfSvc.CreateRequest(ctx, nr)
	if err != nil {
		t.Fatalf("CreateRequest() failed: %v", err)
	}

	assert.Equal(t, workflow.StatusPending, req.Status)
	assert.Equal(t, workflow.FlowWithLab, req.Flow.Name)
	assert.Len(t, req.Students, 3)

	// one approval per distinct group, each with exactly one PENDING step at 0
	approvals, err := env.WfRepo.QueryApprovalsByRequest(ctx, req.ID)
	if err != nil {
		t.Fatalf("QueryApprovalsByRequest() failed: %v", err)
	}
	assert.Len(t, approvals, 2)

	tutorByGroup := map[string]string{
		cls.GroupA.ID: cls.TutorA.UserID,
		cls.GroupB.ID: cls.TutorB.UserID,
	}
	for _, appr := range approvals {
		assert.Equal(t, workflow.StatusPending, appr.Status)
		assert.Equal(t, 0, appr.CurrentStep)

		steps, err := env.WfRepo.QueryStepsByApproval(ctx, appr.ID)
		if err != nil {
			t.Fatalf("QueryStepsByApproval() failed: %v", err)
		}
		if assert.Len(t, steps, 1) {
			assert.Equal(t, 0, steps[0].Sequence)
			assert.Equal(t, workflow.StatusPending, steps[0].Status)
			assert.Equal(t, tutorByGroup[appr.GroupID], steps[0].ApproverID)
		}
	}

	// on-duty counters incremented by exactly 1
	for _, stdID := range []string{cls.StudentA1.ID, cls.StudentA2.ID, cls.StudentB1.ID} {
		std, err := env.DirRepo.GetStudentByID(ctx, stdID)
		if err != nil {
			t.Fatalf("GetStudentByID() failed: %v", err)
		}
		assert.Equal(t, 1, std.OnDutyCount)
	}
}

func TestService_CreateRequest_leaveDoesNotTouchCounters(t *testing.T) {
	env := testutil.NewEnv(t)
	cls := testutil.SeedClassroom(t, env)
	ctx := context.Background()

	nr := testutil.NewOnDutyRequest(cls.StudentA1.UserID, false, "", cls.StudentA1.ID)
	nr.Type = workflow.TypeLeave
	nr.Reason = "family event"
	if _, err := env.WfSvc.CreateRequest(ctx, nr); err != nil {
		t.Fatalf("CreateRequest() failed: %v", err)
	}

	std, err := env.DirRepo.GetStudentByID(ctx, cls.StudentA1.ID)
	if err != nil {
		t.Fatalf("GetStudentByID() failed: %v", err)
	}
	assert.Equal(t, 0, std.OnDutyCount)
}

func TestService_CreateRequest_onDutyCap(t *testing.T) {
	env := testutil.NewEnv(t)
	cls := testutil.SeedClassroom(t, env)
	ctx := context.Background()

	for i := 0; i < 10; i++ {
		if err := env.DirRepo.IncrementOnDutyCount(ctx, []string{cls.StudentA1.ID}); err != nil {
			t.Fatalf("IncrementOnDutyCount() failed: %v", err)
		}
	}

	nr := testutil.NewOnDutyRequest(cls.StudentA1.UserID, false, "", cls.StudentA1.ID, cls.StudentA2.ID)
	_, err := env.WfSvc.CreateRequest(ctx, nr)

	limitErr, ok := errors.Cause(err).(*workflow.OnDutyLimitError)
	if assert.True(t, ok, "want OnDutyLimitError, got %v", err) {
		assert.Equal(t, []string{cls.StudentA1.ID}, limitErr.StudentIDs)
	}

	// nothing written: no request, and the other student's counter untouched
	reqs, err := env.WfRepo.QueryAllRequests(ctx)
	if err != nil {
		t.Fatalf("QueryAllRequests() failed: %v", err)
	}
	assert.Empty(t, reqs)

	std, err := env.DirRepo.GetStudentByID(ctx, cls.StudentA2.ID)
	if err != nil {
		t.Fatalf("GetStudentByID() failed: %v", err)
	}
	assert.Equal(t, 0, std.OnDutyCount)
}

func TestService_CreateRequest_duplicateStudentIDsCountOnce(t *testing.T) {
	env := testutil.NewEnv(t)
	cls := testutil.SeedClassroom(t, env)
	ctx := context.Background()

	nr := testutil.NewOnDutyRequest(cls.StudentA1.UserID, false, "",
		cls.StudentA1.ID, cls.StudentA1.ID, cls.StudentA2.ID)
	req, err := env.WfSvc.CreateRequest(ctx, nr)
	if err != nil {
		t.Fatalf("CreateRequest() failed: %v", err)
	}

	// the repeated id collapses: one link, one approval for the group
	assert.Len(t, req.Students, 2)

	approvals, err := env.WfRepo.QueryApprovalsByRequest(ctx, req.ID)
	if err != nil {
		t.Fatalf("QueryApprovalsByRequest() failed: %v", err)
	}
	assert.Len(t, approvals, 1)

	std, err := env.DirRepo.GetStudentByID(ctx, cls.StudentA1.ID)
	if err != nil {
		t.Fatalf("GetStudentByID() failed: %v", err)
	}
	assert.Equal(t, 1, std.OnDutyCount)
}

func TestService_CreateRequest_unknownStudents(t *testing.T) {
	env := testutil.NewEnv(t)
	cls := testutil.SeedClassroom(t, env)

	nr := testutil.NewOnDutyRequest(cls.StudentA1.UserID, false, "", cls.StudentA1.ID, "nope")
	_, err := env.WfSvc.CreateRequest(context.Background(), nr)

	unkErr, ok := errors.Cause(err).(*workflow.UnknownStudentsError)
	if assert.True(t, ok, "want UnknownStudentsError, got %v", err) {
		assert.Equal(t, []string{"nope"}, unkErr.StudentIDs)
	}
}

func TestService_CreateRequest_badInput(t *testing.T) {
	env := testutil.NewEnv(t)
	cls := testutil.SeedClassroom(t, env)
	ctx := context.Background()

	tests := []struct {
		name   string
		mutate func(*workflow.NewRequest)
	}{
		{"empty reason", func(nr *workflow.NewRequest) { nr.Reason = "  " }},
		{"end before start", func(nr *workflow.NewRequest) { nr.StartDate, nr.EndDate = nr.EndDate, nr.StartDate }},
		{"lab needed but missing", func(nr *workflow.NewRequest) { nr.NeedsLab, nr.LabID = true, "" }},
		{"no students", func(nr *workflow.NewRequest) { nr.StudentIDs = nil }},
		{"bad type", func(nr *workflow.NewRequest) { nr.Type = "SABBATICAL" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			nr := testutil.NewOnDutyRequest(cls.StudentA1.UserID, false, "", cls.StudentA1.ID)
			tt.mutate(&nr)

			_, err := env.WfSvc.CreateRequest(ctx, nr)
			_, ok := errors.Cause(err).(*core.ValidationError)
			assert.True(t, ok, "want ValidationError, got %v", err)
		})
	}
}

func TestService_ProcessStep_fullApprovalRoundTrip(t *testing.T) {
	env := testutil.NewEnv(t)
	cls := testutil.SeedClassroom(t, env)
	ctx := context.Background()

	nr := testutil.NewOnDutyRequest(cls.StudentA1.UserID, true, cls.Lab.ID, cls.StudentA1.ID)
	req, err := env.WfSvc.CreateRequest(ctx, nr)
	if err != nil {
		t.Fatalf("CreateRequest() failed: %v", err)
	}

	approve := workflow.StepDecision{Decision: workflow.DecisionApproved, Comments: "ok"}

	res, err := env.WfSvc.ProcessStep(ctx, cls.TutorA.UserID, req.ID, approve)
	if err != nil {
		t.Fatalf("ProcessStep(tutor) failed: %v", err)
	}
	assert.Equal(t, workflow.StatusPending, res.Status)
	assert.Equal(t, "step approved, forwarded to next approver", res.Message)

	res, err = env.WfSvc.ProcessStep(ctx, cls.Incharge.UserID, req.ID, approve)
	if err != nil {
		t.Fatalf("ProcessStep(incharge) failed: %v", err)
	}
	assert.Equal(t, workflow.StatusPending, res.Status)

	res, err = env.WfSvc.ProcessStep(ctx, cls.HOD.UserID, req.ID, approve)
	if err != nil {
		t.Fatalf("ProcessStep(hod) failed: %v", err)
	}
	assert.Equal(t, workflow.StatusApproved, res.Status)
	assert.Equal(t, "request approved", res.Message)

	refreshed, err := env.WfRepo.GetRequestByID(ctx, req.ID)
	if err != nil {
		t.Fatalf("GetRequestByID() failed: %v", err)
	}
	assert.Equal(t, workflow.StatusApproved, refreshed.Status)
}

func TestService_ProcessStep_rejectionShortCircuits(t *testing.T) {
	env := testutil.NewEnv(t)
	cls := testutil.SeedClassroom(t, env)
	ctx := context.Background()

	nr := testutil.NewOnDutyRequest(cls.StudentA1.UserID, false, "", cls.StudentA1.ID, cls.StudentB1.ID)
	req, err := env.WfSvc.CreateRequest(ctx, nr)
	if err != nil {
		t.Fatalf("CreateRequest() failed: %v", err)
	}

	res, err := env.WfSvc.ProcessStep(ctx, cls.TutorB.UserID, req.ID,
		workflow.StepDecision{Decision: workflow.DecisionRejected, Comments: "attendance too low"})
	if err != nil {
		t.Fatalf("ProcessStep(reject) failed: %v", err)
	}
	assert.Equal(t, workflow.StatusRejected, res.Status)
	assert.Equal(t, "request rejected", res.Message)

	refreshed, err := env.WfRepo.GetRequestByID(ctx, req.ID)
	if err != nil {
		t.Fatalf("GetRequestByID() failed: %v", err)
	}
	assert.Equal(t, workflow.StatusRejected, refreshed.Status)

	// rejecting again finds no pending step for that approver
	_, err = env.WfSvc.ProcessStep(ctx, cls.TutorB.UserID, req.ID,
		workflow.StepDecision{Decision: workflow.DecisionRejected})
	assert.Equal(t, workflow.ErrNoPendingStep, errors.Cause(err))
}

func TestService_ProcessStep_lateApprovalCannotOverturnRejection(t *testing.T) {
	env := testutil.NewEnv(t)
	cls := testutil.SeedClassroom(t, env)
	ctx := context.Background()

	nr := testutil.NewOnDutyRequest(cls.StudentA1.UserID, false, "", cls.StudentA1.ID, cls.StudentB1.ID)
	req, err := env.WfSvc.CreateRequest(ctx, nr)
	if err != nil {
		t.Fatalf("CreateRequest() failed: %v", err)
	}

	approve := workflow.StepDecision{Decision: workflow.DecisionApproved}
	reject := workflow.StepDecision{Decision: workflow.DecisionRejected}

	if _, err = env.WfSvc.ProcessStep(ctx, cls.TutorB.UserID, req.ID, reject); err != nil {
		t.Fatalf("ProcessStep(reject) failed: %v", err)
	}

	// group A runs to completion regardless; the aggregate stays rejected
	if _, err = env.WfSvc.ProcessStep(ctx, cls.TutorA.UserID, req.ID, approve); err != nil {
		t.Fatalf("ProcessStep(tutorA) failed: %v", err)
	}
	res, err := env.WfSvc.ProcessStep(ctx, cls.HOD.UserID, req.ID, approve)
	if err != nil {
		t.Fatalf("ProcessStep(hod) failed: %v", err)
	}
	assert.Equal(t, workflow.StatusRejected, res.Status)
	assert.Equal(t, "rejected due to one group rejection", res.Message)
}

func TestService_ProcessStep_awaitingOtherGroups(t *testing.T) {
	env := testutil.NewEnv(t)
	cls := testutil.SeedClassroom(t, env)
	ctx := context.Background()

	nr := testutil.NewOnDutyRequest(cls.StudentA1.UserID, false, "", cls.StudentA1.ID, cls.StudentB1.ID)
	req, err := env.WfSvc.CreateRequest(ctx, nr)
	if err != nil {
		t.Fatalf("CreateRequest() failed: %v", err)
	}

	approve := workflow.StepDecision{Decision: workflow.DecisionApproved}

	if _, err = env.WfSvc.ProcessStep(ctx, cls.TutorA.UserID, req.ID, approve); err != nil {
		t.Fatalf("ProcessStep(tutorA) failed: %v", err)
	}
	res, err := env.WfSvc.ProcessStep(ctx, cls.HOD.UserID, req.ID, approve)
	if err != nil {
		t.Fatalf("ProcessStep(hod) failed: %v", err)
	}
	assert.Equal(t, workflow.StatusPending, res.Status)
	assert.Equal(t, "group approved, awaiting other groups", res.Message)

	// group B finishes, the whole request flips
	if _, err = env.WfSvc.ProcessStep(ctx, cls.TutorB.UserID, req.ID, approve); err != nil {
		t.Fatalf("ProcessStep(tutorB) failed: %v", err)
	}
	res, err = env.WfSvc.ProcessStep(ctx, cls.HOD.UserID, req.ID, approve)
	if err != nil {
		t.Fatalf("ProcessStep(hod, group B) failed: %v", err)
	}
	assert.Equal(t, workflow.StatusApproved, res.Status)
}

func TestService_ProcessStep_actingTwice(t *testing.T) {
	env := testutil.NewEnv(t)
	cls := testutil.SeedClassroom(t, env)
	ctx := context.Background()

	nr := testutil.NewOnDutyRequest(cls.StudentA1.UserID, false, "", cls.StudentA1.ID)
	req, err := env.WfSvc.CreateRequest(ctx, nr)
	if err != nil {
		t.Fatalf("CreateRequest() failed: %v", err)
	}

	approve := workflow.StepDecision{Decision: workflow.DecisionApproved}
	if _, err = env.WfSvc.ProcessStep(ctx, cls.TutorA.UserID, req.ID, approve); err != nil {
		t.Fatalf("ProcessStep() failed: %v", err)
	}
	_, err = env.WfSvc.ProcessStep(ctx, cls.TutorA.UserID, req.ID, approve)
	assert.Equal(t, workflow.ErrNoPendingStep, errors.Cause(err))
}

func TestService_ProcessStep_noLabStepWithoutLabAccess(t *testing.T) {
	env := testutil.NewEnv(t)
	cls := testutil.SeedClassroom(t, env)
	ctx := context.Background()

	nr := testutil.NewOnDutyRequest(cls.StudentA1.UserID, false, "", cls.StudentA1.ID)
	req, err := env.WfSvc.CreateRequest(ctx, nr)
	if err != nil {
		t.Fatalf("CreateRequest() failed: %v", err)
	}
	assert.Equal(t, workflow.FlowWithoutLab, req.Flow.Name)

	if _, err = env.WfSvc.ProcessStep(ctx, cls.TutorA.UserID, req.ID,
		workflow.StepDecision{Decision: workflow.DecisionApproved}); err != nil {
		t.Fatalf("ProcessStep() failed: %v", err)
	}

	// the incharge never gets a step; the HOD does
	_, err = env.WfRepo.GetPendingStepForUser(ctx, cls.Incharge.UserID, req.ID)
	assert.Equal(t, workflow.ErrNoPendingStep, errors.Cause(err))

	step, err := env.WfRepo.GetPendingStepForUser(ctx, cls.HOD.UserID, req.ID)
	if err != nil {
		t.Fatalf("GetPendingStepForUser(hod) failed: %v", err)
	}
	assert.Equal(t, 1, step.Sequence)
}

func TestService_ProcessStep_resolvesApproverFreshAtEachTransition(t *testing.T) {
	env := testutil.NewEnv(t)
	cls := testutil.SeedClassroom(t, env)
	ctx := context.Background()

	nr := testutil.NewOnDutyRequest(cls.StudentA1.UserID, false, "", cls.StudentA1.ID)
	req, err := env.WfSvc.CreateRequest(ctx, nr)
	if err != nil {
		t.Fatalf("CreateRequest() failed: %v", err)
	}

	// the department gets a new head between the tutor's and the HOD's turns
	newHod := testutil.CreateTeacher(t, env, "New Head", cls.Dept.ID)
	if err = env.DirSvc.SetHeadOfDepartment(ctx, cls.Dept.ID, newHod.ID); err != nil {
		t.Fatalf("SetHeadOfDepartment() failed: %v", err)
	}

	if _, err = env.WfSvc.ProcessStep(ctx, cls.TutorA.UserID, req.ID,
		workflow.StepDecision{Decision: workflow.DecisionApproved}); err != nil {
		t.Fatalf("ProcessStep() failed: %v", err)
	}

	step, err := env.WfRepo.GetPendingStepForUser(ctx, newHod.UserID, req.ID)
	if err != nil {
		t.Fatalf("GetPendingStepForUser(new hod) failed: %v", err)
	}
	assert.Equal(t, newHod.UserID, step.ApproverID)

	_, err = env.WfRepo.GetPendingStepForUser(ctx, cls.HOD.UserID, req.ID)
	assert.Equal(t, workflow.ErrNoPendingStep, errors.Cause(err))
}

func TestService_ProcessStep_resolverFailureRollsBack(t *testing.T) {
	env := testutil.NewEnv(t)
	ctx := context.Background()

	// a department with a tutor but no designated HOD
	dept, err := env.DirSvc.CreateDepartment(ctx, "Mechanical")
	if err != nil {
		t.Fatalf("CreateDepartment() failed: %v", err)
	}
	grp, err := env.DirSvc.CreateGroup(ctx, "MECH-A", dept.ID)
	if err != nil {
		t.Fatalf("CreateGroup() failed: %v", err)
	}
	tutor := testutil.CreateTeacher(t, env, "Tutor", dept.ID)
	if _, err = env.DirSvc.SetGroupApprover(ctx, grp.ID, string(workflow.RoleTutor), tutor.ID); err != nil {
		t.Fatalf("SetGroupApprover() failed: %v", err)
	}
	std := testutil.CreateStudent(t, env, "Student", grp.ID)

	req, err := env.WfSvc.CreateRequest(ctx, testutil.NewOnDutyRequest(std.UserID, false, "", std.ID))
	if err != nil {
		t.Fatalf("CreateRequest() failed: %v", err)
	}

	_, err = env.WfSvc.ProcessStep(ctx, tutor.UserID, req.ID,
		workflow.StepDecision{Decision: workflow.DecisionApproved})
	assert.Equal(t, workflow.ErrNoHodForDepartment, errors.Cause(err))

	// the step closure was rolled back; the tutor still holds the pending step
	step, err := env.WfRepo.GetPendingStepForUser(ctx, tutor.UserID, req.ID)
	if err != nil {
		t.Fatalf("GetPendingStepForUser() failed: %v", err)
	}
	assert.Equal(t, 0, step.Sequence)
	assert.Equal(t, workflow.StatusPending, step.Status)
}

func TestService_CreateRequest_unassignedApproverWritesNothing(t *testing.T) {
	env := testutil.NewEnv(t)
	ctx := context.Background()

	dept, err := env.DirSvc.CreateDepartment(ctx, "Civil")
	if err != nil {
		t.Fatalf("CreateDepartment() failed: %v", err)
	}
	grp, err := env.DirSvc.CreateGroup(ctx, "CIV-A", dept.ID)
	if err != nil {
		t.Fatalf("CreateGroup() failed: %v", err)
	}
	std := testutil.CreateStudent(t, env, "Student", grp.ID)

	_, err = env.WfSvc.CreateRequest(ctx, testutil.NewOnDutyRequest(std.UserID, false, "", std.ID))
	assert.Equal(t, workflow.ErrApproverNotFound, errors.Cause(err))

	reqs, err := env.WfRepo.QueryAllRequests(ctx)
	if err != nil {
		t.Fatalf("QueryAllRequests() failed: %v", err)
	}
	assert.Empty(t, reqs)

	refreshed, err := env.DirRepo.GetStudentByID(ctx, std.ID)
	if err != nil {
		t.Fatalf("GetStudentByID() failed: %v", err)
	}
	assert.Equal(t, 0, refreshed.OnDutyCount)
}

func TestService_ProcessStep_missingLabIncharge(t *testing.T) {
	env := testutil.NewEnv(t)
	cls := testutil.SeedClassroom(t, env)
	ctx := context.Background()

	bareLab, err := env.DirSvc.CreateLab(ctx, directory.Lab{Name: "Bare Lab"})
	if err != nil {
		t.Fatalf("CreateLab() failed: %v", err)
	}

	req, err := env.WfSvc.CreateRequest(ctx,
		testutil.NewOnDutyRequest(cls.StudentA1.UserID, true, bareLab.ID, cls.StudentA1.ID))
	if err != nil {
		t.Fatalf("CreateRequest() failed: %v", err)
	}

	_, err = env.WfSvc.ProcessStep(ctx, cls.TutorA.UserID, req.ID,
		workflow.StepDecision{Decision: workflow.DecisionApproved})
	assert.Equal(t, workflow.ErrLabInchargeMissing, errors.Cause(err))
}

func TestService_PendingForApprover_includesHistory(t *testing.T) {
	env := testutil.NewEnv(t)
	cls := testutil.SeedClassroom(t, env)
	ctx := context.Background()

	req, err := env.WfSvc.CreateRequest(ctx,
		testutil.NewOnDutyRequest(cls.StudentA1.UserID, true, cls.Lab.ID, cls.StudentA1.ID))
	if err != nil {
		t.Fatalf("CreateRequest() failed: %v", err)
	}
	if _, err = env.WfSvc.ProcessStep(ctx, cls.TutorA.UserID, req.ID,
		workflow.StepDecision{Decision: workflow.DecisionApproved, Comments: "good standing"}); err != nil {
		t.Fatalf("ProcessStep() failed: %v", err)
	}

	views, err := env.WfSvc.PendingForApprover(ctx, cls.Incharge.UserID)
	if err != nil {
		t.Fatalf("PendingForApprover() failed: %v", err)
	}
	if !assert.Len(t, views, 1) {
		return
	}

	view := views[0]
	assert.Equal(t, workflow.RoleLabIncharge, view.Role)
	assert.Equal(t, cls.GroupA.ID, view.GroupID)
	assert.Equal(t, req.ID, view.Request.ID)
	if assert.Len(t, view.History, 1) {
		assert.Equal(t, workflow.RoleTutor, view.History[0].Role)
		assert.Equal(t, workflow.StatusApproved, view.History[0].Status)
		assert.Equal(t, "good standing", view.History[0].Comments.String)
	}
}

func TestService_views(t *testing.T) {
	env := testutil.NewEnv(t)
	cls := testutil.SeedClassroom(t, env)
	ctx := context.Background()

	req, err := env.WfSvc.CreateRequest(ctx,
		testutil.NewOnDutyRequest(cls.StudentA1.UserID, false, "", cls.StudentA1.ID))
	if err != nil {
		t.Fatalf("CreateRequest() failed: %v", err)
	}

	mine, err := env.WfSvc.ForStudent(ctx, cls.StudentA1.UserID)
	if err != nil {
		t.Fatalf("ForStudent() failed: %v", err)
	}
	if assert.Len(t, mine, 1) {
		assert.Equal(t, req.ID, mine[0].Request.ID)
		assert.Len(t, mine[0].Approvals, 1)
	}

	other, err := env.WfSvc.ForStudent(ctx, cls.StudentB1.UserID)
	if err != nil {
		t.Fatalf("ForStudent() failed: %v", err)
	}
	assert.Empty(t, other)

	grpViews, err := env.WfSvc.ForAffiliatedGroups(ctx, cls.TutorA.UserID)
	if err != nil {
		t.Fatalf("ForAffiliatedGroups() failed: %v", err)
	}
	assert.Len(t, grpViews, 1)

	grpViews, err = env.WfSvc.ForAffiliatedGroups(ctx, cls.TutorB.UserID)
	if err != nil {
		t.Fatalf("ForAffiliatedGroups() failed: %v", err)
	}
	assert.Empty(t, grpViews)

	all, err := env.WfSvc.All(ctx)
	if err != nil {
		t.Fatalf("All() failed: %v", err)
	}
	assert.Len(t, all, 1)
}
