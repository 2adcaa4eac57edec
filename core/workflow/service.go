package workflow

import (
	"context"
	"fmt"
	"net/mail"
	"sort"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/ruhusa/core"
	"github.com/trezcool/ruhusa/core/directory"
)

// maxOnDutyPerStudent caps how many ON_DUTY requests a student can be part of.
// The counter is incremented at creation time, not at approval time.
const maxOnDutyPerStudent = 10

var (
	// errors
	ErrRequestNotFound      = errors.New("request not found")
	ErrFlowTemplateNotFound = errors.New("approval flow template not found")
	ErrNoPendingStep        = errors.New("no pending approval step for this user on this request")
)

// OnDutyLimitError reports the students already at the on-duty cap.
type OnDutyLimitError struct {
	StudentIDs []string
}

func (err *OnDutyLimitError) Error() string {
	return fmt.Sprintf("on-duty limit of %d reached for students: %s", maxOnDutyPerStudent, strings.Join(err.StudentIDs, ", "))
}

// UnknownStudentsError reports the student ids that did not resolve.
type UnknownStudentsError struct {
	StudentIDs []string
}

func (err *UnknownStudentsError) Error() string {
	return "unknown students: " + strings.Join(err.StudentIDs, ", ")
}

type (
	Repository interface {
		GetFlowTemplateByName(ctx context.Context, name string, exec ...core.DBExecutor) (FlowTemplate, error)
		GetFlowTemplateByID(ctx context.Context, id string, exec ...core.DBExecutor) (FlowTemplate, error)

		// CreateRequest inserts the request row and its student links.
		CreateRequest(ctx context.Context, req Request, studentIDs []string, exec ...core.DBExecutor) (Request, error)
		// GetRequestByID returns the request hydrated with its students and flow template.
		GetRequestByID(ctx context.Context, id string, exec ...core.DBExecutor) (Request, error)
		SetRequestStatus(ctx context.Context, requestID string, status Status, exec ...core.DBExecutor) error

		CreateApproval(ctx context.Context, appr Approval, exec ...core.DBExecutor) (Approval, error)
		GetApprovalByID(ctx context.Context, id string, exec ...core.DBExecutor) (Approval, error)
		QueryApprovalsByRequest(ctx context.Context, requestID string, exec ...core.DBExecutor) ([]Approval, error)
		SetApprovalStatus(ctx context.Context, approvalID string, status Status, exec ...core.DBExecutor) error
		AdvanceApproval(ctx context.Context, approvalID string, currentStep int, exec ...core.DBExecutor) error

		CreateApprovalStep(ctx context.Context, step ApprovalStep, exec ...core.DBExecutor) (ApprovalStep, error)
		// GetPendingStepForUser finds the single step on `requestID` held as
		// PENDING by `userID`; ErrNoPendingStep if there is none.
		GetPendingStepForUser(ctx context.Context, userID, requestID string, exec ...core.DBExecutor) (ApprovalStep, error)
		CloseApprovalStep(ctx context.Context, stepID string, status Status, comments string, decidedAt time.Time, exec ...core.DBExecutor) error
		QueryStepsByApproval(ctx context.Context, approvalID string, exec ...core.DBExecutor) ([]ApprovalStep, error)
		QueryPendingStepsForUser(ctx context.Context, userID string, exec ...core.DBExecutor) ([]ApprovalStep, error)

		QueryRequestsByStudent(ctx context.Context, studentID string, exec ...core.DBExecutor) ([]Request, error)
		QueryRequestsByGroups(ctx context.Context, groupIDs []string, exec ...core.DBExecutor) ([]Request, error)
		QueryAllRequests(ctx context.Context, exec ...core.DBExecutor) ([]Request, error)
	}

	ServiceInterface interface {
		CreateRequest(ctx context.Context, nr NewRequest) (Request, error)
		ProcessStep(ctx context.Context, actorUserID, requestID string, dec StepDecision) (StepResult, error)
		PendingForApprover(ctx context.Context, userID string) ([]PendingStepView, error)
		ForStudent(ctx context.Context, studentUserID string) ([]RequestDetail, error)
		ForAffiliatedGroups(ctx context.Context, teacherUserID string) ([]RequestDetail, error)
		All(ctx context.Context) ([]RequestDetail, error)
	}

	Service struct {
		db      core.DB
		repo    Repository
		dir     directory.Repository
		mailSvc core.EmailService
	}
)

var _ ServiceInterface = (*Service)(nil)

func NewService(db core.DB, repo Repository, dir directory.Repository, mailSvc core.EmailService) *Service {
	return &Service{db: db, repo: repo, dir: dir, mailSvc: mailSvc}
}

// CreateRequest validates and creates a request together with one approval per
// affected group, each holding its first pending step. All writes happen in one
// transaction: any failure leaves nothing behind, including on-duty increments.
func (svc *Service) CreateRequest(ctx context.Context, nr NewRequest) (Request, error) {
	if err := svc.checkNewRequest(nr); err != nil {
		return Request{}, err
	}
	// a repeated student id counts once: one link, one counter increment
	nr.StudentIDs = dedupeIDs(nr.StudentIDs)

	flow, err := svc.repo.GetFlowTemplateByName(ctx, FlowTemplateName(nr.NeedsLab))
	if err != nil {
		return Request{}, err
	}
	step0, ok := flow.StepAt(0)
	if !ok {
		return Request{}, errors.Errorf("flow template %q has no steps", flow.Name)
	}

	if nr.NeedsLab {
		if _, err = svc.dir.GetLabByID(ctx, nr.LabID); err != nil {
			if errors.Cause(err) == directory.ErrLabNotFound {
				return Request{}, core.NewValidationError(err, core.FieldError{Field: "lab_id", Error: "lab not found"})
			}
			return Request{}, err
		}
	}

	tx, err := svc.db.BeginTx(ctx, nil)
	if err != nil {
		return Request{}, errors.Wrap(err, "beginning transaction")
	}
	defer func() { _ = tx.Rollback() }()

	// student resolution and the on-duty cap check both read through the
	// transaction so a concurrent creation cannot slip a student past the cap.
	students, err := svc.dir.GetStudentsByID(ctx, nr.StudentIDs, tx)
	if err != nil {
		return Request{}, errors.Wrap(err, "getting students")
	}
	if missing := missingStudentIDs(nr.StudentIDs, students); len(missing) > 0 {
		return Request{}, &UnknownStudentsError{StudentIDs: missing}
	}
	if nr.Type == TypeOnDuty {
		var capped []string
		for _, std := range students {
			if std.OnDutyCount >= maxOnDutyPerStudent {
				capped = append(capped, std.ID)
			}
		}
		if len(capped) > 0 {
			return Request{}, &OnDutyLimitError{StudentIDs: capped}
		}
		if err = svc.dir.IncrementOnDutyCount(ctx, nr.StudentIDs, tx); err != nil {
			return Request{}, errors.Wrap(err, "incrementing on-duty counters")
		}
	}

	now := time.Now().UTC()
	req := Request{
		Type:        nr.Type,
		Category:    null.NewString(nr.Category, nr.Category != ""),
		NeedsLab:    nr.NeedsLab,
		Reason:      core.CleanString(nr.Reason),
		Description: null.NewString(nr.Description, nr.Description != ""),
		StartDate:   nr.StartDate,
		EndDate:     nr.EndDate,
		LabID:       null.NewString(nr.LabID, nr.NeedsLab && nr.LabID != ""),
		SubmitterID: nr.SubmitterID,
		FlowID:      flow.ID,
		Status:      StatusPending,
		ProofURL:    null.NewString(nr.ProofURL, nr.ProofURL != ""),
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if req, err = svc.repo.CreateRequest(ctx, req, nr.StudentIDs, tx); err != nil {
		return Request{}, errors.Wrap(err, "creating request")
	}
	req.Flow = &flow

	approvers := make([]string, 0, 2)
	for _, groupID := range partitionGroups(students) {
		appr := Approval{RequestID: req.ID, GroupID: groupID, CurrentStep: 0, Status: StatusPending, CreatedAt: now, UpdatedAt: now}
		if appr, err = svc.repo.CreateApproval(ctx, appr, tx); err != nil {
			return Request{}, errors.Wrap(err, "creating approval")
		}
		approverID, rerr := resolveApprover(ctx, svc.dir, groupID, step0.Role, req, tx)
		if rerr != nil {
			return Request{}, rerr
		}
		step := ApprovalStep{ApprovalID: appr.ID, Sequence: 0, ApproverID: approverID, Status: StatusPending, CreatedAt: now}
		if _, err = svc.repo.CreateApprovalStep(ctx, step, tx); err != nil {
			return Request{}, errors.Wrap(err, "creating approval step")
		}
		approvers = append(approvers, approverID)
	}

	if err = tx.Commit(); err != nil {
		return Request{}, errors.Wrap(err, "committing request creation")
	}

	if req, err = svc.repo.GetRequestByID(ctx, req.ID); err != nil {
		return Request{}, errors.Wrap(err, "reloading request")
	}
	svc.notifyApprovers(ctx, req, approvers)
	return req, nil
}

// ProcessStep consumes an approver's decision on their pending step and advances
// the owning approval: reject short-circuits the whole request; approve either
// opens the next step (resolved fresh) or closes the approval and recomputes the
// request's aggregate status. One transaction; a resolver failure rolls back the
// step closure along with everything else.
func (svc *Service) ProcessStep(ctx context.Context, actorUserID, requestID string, dec StepDecision) (StepResult, error) {
	if dec.Decision != DecisionApproved && dec.Decision != DecisionRejected {
		return StepResult{}, core.NewValidationError(nil, core.FieldError{Field: "decision", Error: "must be APPROVED or REJECTED"})
	}

	tx, err := svc.db.BeginTx(ctx, nil)
	if err != nil {
		return StepResult{}, errors.Wrap(err, "beginning transaction")
	}
	defer func() { _ = tx.Rollback() }()

	step, err := svc.repo.GetPendingStepForUser(ctx, actorUserID, requestID, tx)
	if err != nil {
		return StepResult{}, err
	}
	appr, err := svc.repo.GetApprovalByID(ctx, step.ApprovalID, tx)
	if err != nil {
		return StepResult{}, errors.Wrap(err, "getting approval")
	}
	req, err := svc.repo.GetRequestByID(ctx, requestID, tx)
	if err != nil {
		return StepResult{}, errors.Wrap(err, "getting request")
	}
	now := time.Now().UTC()

	if dec.Decision == DecisionRejected {
		if err = svc.repo.CloseApprovalStep(ctx, step.ID, StatusRejected, dec.Comments, now, tx); err != nil {
			return StepResult{}, errors.Wrap(err, "closing step")
		}
		if err = svc.repo.SetApprovalStatus(ctx, appr.ID, StatusRejected, tx); err != nil {
			return StepResult{}, errors.Wrap(err, "rejecting approval")
		}
		// rejection by any single group short-circuits the entire request
		if err = svc.repo.SetRequestStatus(ctx, req.ID, StatusRejected, tx); err != nil {
			return StepResult{}, errors.Wrap(err, "rejecting request")
		}
		if err = tx.Commit(); err != nil {
			return StepResult{}, errors.Wrap(err, "committing rejection")
		}
		svc.notifyStudents(ctx, req, StatusRejected)
		return StepResult{Message: "request rejected", Status: StatusRejected}, nil
	}

	if err = svc.repo.CloseApprovalStep(ctx, step.ID, StatusApproved, dec.Comments, now, tx); err != nil {
		return StepResult{}, errors.Wrap(err, "closing step")
	}

	if next, ok := req.Flow.StepAt(step.Sequence + 1); ok {
		approverID, rerr := resolveApprover(ctx, svc.dir, appr.GroupID, next.Role, req, tx)
		if rerr != nil {
			return StepResult{}, rerr
		}
		nextStep := ApprovalStep{ApprovalID: appr.ID, Sequence: next.Sequence, ApproverID: approverID, Status: StatusPending, CreatedAt: now}
		if _, err = svc.repo.CreateApprovalStep(ctx, nextStep, tx); err != nil {
			return StepResult{}, errors.Wrap(err, "creating next step")
		}
		if err = svc.repo.AdvanceApproval(ctx, appr.ID, next.Sequence, tx); err != nil {
			return StepResult{}, errors.Wrap(err, "advancing approval")
		}
		if err = tx.Commit(); err != nil {
			return StepResult{}, errors.Wrap(err, "committing step advance")
		}
		svc.notifyApprovers(ctx, req, []string{approverID})
		return StepResult{Message: "step approved, forwarded to next approver", Status: StatusPending}, nil
	}

	// group exhausted: close this approval and recompute the aggregate status
	// from a consistent snapshot of all the request's approvals.
	if err = svc.repo.SetApprovalStatus(ctx, appr.ID, StatusApproved, tx); err != nil {
		return StepResult{}, errors.Wrap(err, "approving approval")
	}
	approvals, err := svc.repo.QueryApprovalsByRequest(ctx, req.ID, tx)
	if err != nil {
		return StepResult{}, errors.Wrap(err, "querying approvals")
	}
	status := ComputeRequestStatus(approvals)
	if status != req.Status {
		if err = svc.repo.SetRequestStatus(ctx, req.ID, status, tx); err != nil {
			return StepResult{}, errors.Wrap(err, "updating request status")
		}
	}
	if err = tx.Commit(); err != nil {
		return StepResult{}, errors.Wrap(err, "committing group approval")
	}

	var msg string
	switch status {
	case StatusApproved:
		msg = "request approved"
		svc.notifyStudents(ctx, req, status)
	case StatusRejected:
		msg = "rejected due to one group rejection"
	default:
		msg = "group approved, awaiting other groups"
	}
	return StepResult{Message: msg, Status: status}, nil
}

// PendingForApprover returns the approver's inbox: each step they currently hold
// as PENDING, with the request detail and the closed lower-sequence history of
// the same approval.
func (svc *Service) PendingForApprover(ctx context.Context, userID string) ([]PendingStepView, error) {
	steps, err := svc.repo.QueryPendingStepsForUser(ctx, userID)
	if err != nil {
		return nil, errors.Wrap(err, "querying pending steps")
	}

	views := make([]PendingStepView, 0, len(steps))
	for _, step := range steps {
		appr, err := svc.repo.GetApprovalByID(ctx, step.ApprovalID)
		if err != nil {
			return nil, errors.Wrap(err, "getting approval")
		}
		req, err := svc.repo.GetRequestByID(ctx, appr.RequestID)
		if err != nil {
			return nil, errors.Wrap(err, "getting request")
		}
		all, err := svc.repo.QueryStepsByApproval(ctx, appr.ID)
		if err != nil {
			return nil, errors.Wrap(err, "querying steps")
		}
		history := make([]StepView, 0, len(all))
		for _, s := range all {
			if s.Sequence < step.Sequence && s.Status != StatusPending {
				history = append(history, stepView(s, req.Flow))
			}
		}
		views = append(views, PendingStepView{
			Step:    step,
			Role:    req.Flow.RoleAt(step.Sequence),
			GroupID: appr.GroupID,
			Request: req,
			History: history,
		})
	}
	return views, nil
}

// ForStudent returns the requests the student participates in.
func (svc *Service) ForStudent(ctx context.Context, studentUserID string) ([]RequestDetail, error) {
	std, err := svc.dir.GetStudentByUserID(ctx, studentUserID)
	if err != nil {
		return nil, err
	}
	reqs, err := svc.repo.QueryRequestsByStudent(ctx, std.ID)
	if err != nil {
		return nil, errors.Wrap(err, "querying requests by student")
	}
	return svc.requestDetails(ctx, reqs)
}

// ForAffiliatedGroups returns the requests touching any group the teacher is
// assigned to as an approver.
func (svc *Service) ForAffiliatedGroups(ctx context.Context, teacherUserID string) ([]RequestDetail, error) {
	tchr, err := svc.dir.GetTeacherByUserID(ctx, teacherUserID)
	if err != nil {
		return nil, err
	}
	groupIDs, err := svc.dir.QueryApproverGroupIDs(ctx, tchr.ID)
	if err != nil {
		return nil, errors.Wrap(err, "querying approver groups")
	}
	if len(groupIDs) == 0 {
		return []RequestDetail{}, nil
	}
	reqs, err := svc.repo.QueryRequestsByGroups(ctx, groupIDs)
	if err != nil {
		return nil, errors.Wrap(err, "querying requests by groups")
	}
	return svc.requestDetails(ctx, reqs)
}

// All is the unfiltered projection for administrative oversight.
func (svc *Service) All(ctx context.Context) ([]RequestDetail, error) {
	reqs, err := svc.repo.QueryAllRequests(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "querying requests")
	}
	return svc.requestDetails(ctx, reqs)
}

// helpers

// checkNewRequest re-checks the input preconditions at the service boundary;
// transports run the same rules through the validator for translated messages.
func (svc *Service) checkNewRequest(nr NewRequest) error {
	var flds []core.FieldError
	if nr.Type != TypeOnDuty && nr.Type != TypeLeave {
		flds = append(flds, core.FieldError{Field: "type", Error: "must be ON_DUTY or LEAVE"})
	}
	if core.CleanString(nr.Reason) == "" {
		flds = append(flds, core.FieldError{Field: "reason", Error: "this field is required"})
	}
	if nr.StartDate.IsZero() || nr.EndDate.IsZero() {
		flds = append(flds, core.FieldError{Field: "start_date", Error: "start and end dates are required"})
	} else if nr.EndDate.Before(nr.StartDate) {
		flds = append(flds, core.FieldError{Field: "end_date", Error: dateRangeText})
	}
	if nr.NeedsLab && nr.LabID == "" {
		flds = append(flds, core.FieldError{Field: "lab_id", Error: labRequiredText})
	}
	if len(nr.StudentIDs) == 0 {
		flds = append(flds, core.FieldError{Field: "student_ids", Error: "at least one student is required"})
	}
	if len(flds) > 0 {
		return core.NewValidationError(errors.New("invalid request"), flds...)
	}
	return nil
}

func (svc *Service) requestDetails(ctx context.Context, reqs []Request) ([]RequestDetail, error) {
	details := make([]RequestDetail, 0, len(reqs))
	for _, req := range reqs {
		detail, err := svc.requestDetail(ctx, req)
		if err != nil {
			return nil, err
		}
		details = append(details, detail)
	}
	return details, nil
}

func (svc *Service) requestDetail(ctx context.Context, req Request) (RequestDetail, error) {
	approvals, err := svc.repo.QueryApprovalsByRequest(ctx, req.ID)
	if err != nil {
		return RequestDetail{}, errors.Wrap(err, "querying approvals")
	}
	views := make([]ApprovalView, 0, len(approvals))
	for _, appr := range approvals {
		steps, err := svc.repo.QueryStepsByApproval(ctx, appr.ID)
		if err != nil {
			return RequestDetail{}, errors.Wrap(err, "querying steps")
		}
		stepViews := make([]StepView, 0, len(steps))
		for _, s := range steps {
			stepViews = append(stepViews, stepView(s, req.Flow))
		}
		views = append(views, ApprovalView{Approval: appr, Steps: stepViews})
	}
	return RequestDetail{Request: req, Approvals: views}, nil
}

func stepView(s ApprovalStep, flow *FlowTemplate) StepView {
	view := StepView{
		Sequence:   s.Sequence,
		Status:     s.Status,
		Comments:   s.Comments,
		ApproverID: s.ApproverID,
		DecidedAt:  s.DecidedAt,
	}
	if flow != nil {
		view.Role = flow.RoleAt(s.Sequence)
	}
	return view
}

// partitionGroups returns the distinct group ids of `students`, sorted for
// deterministic approval creation order.
func partitionGroups(students []directory.Student) []string {
	seen := make(map[string]struct{}, len(students))
	groupIDs := make([]string, 0, len(students))
	for _, std := range students {
		if _, ok := seen[std.GroupID]; !ok {
			seen[std.GroupID] = struct{}{}
			groupIDs = append(groupIDs, std.GroupID)
		}
	}
	sort.Strings(groupIDs)
	return groupIDs
}

// dedupeIDs drops repeated ids, keeping first-occurrence order.
func dedupeIDs(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

func missingStudentIDs(wanted []string, found []directory.Student) []string {
	have := make(map[string]struct{}, len(found))
	for _, std := range found {
		have[std.ID] = struct{}{}
	}
	var missing []string
	for _, id := range wanted {
		if _, ok := have[id]; !ok {
			missing = append(missing, id)
		}
	}
	return missing
}

// notifications are fire-and-forget side effects, decoupled from the
// transaction; failures are swallowed.

func (svc *Service) notifyApprovers(ctx context.Context, req Request, approverUserIDs []string) {
	if svc.mailSvc == nil {
		return
	}
	msgs := make([]*core.EmailMessage, 0, len(approverUserIDs))
	for _, userID := range approverUserIDs {
		tchr, err := svc.dir.GetTeacherByUserID(ctx, userID)
		if err != nil || tchr.Email == "" {
			continue
		}
		msgs = append(msgs, &core.EmailMessage{
			To:      []mail.Address{{Name: tchr.Name, Address: tchr.Email}},
			Subject: "Approval awaiting your decision",
			BodyStr: fmt.Sprintf("A %s request (%s) awaits your approval.", req.Type, req.ID),
		})
	}
	if len(msgs) > 0 {
		svc.mailSvc.SendMessages(msgs...)
	}
}

func (svc *Service) notifyStudents(ctx context.Context, req Request, status Status) {
	if svc.mailSvc == nil {
		return
	}
	msgs := make([]*core.EmailMessage, 0, len(req.Students))
	for _, std := range req.Students {
		if std.Email == "" {
			continue
		}
		msgs = append(msgs, &core.EmailMessage{
			To:      []mail.Address{{Name: std.Name, Address: std.Email}},
			Subject: fmt.Sprintf("Request %s", strings.ToLower(string(status))),
			BodyStr: fmt.Sprintf("Your %s request (%s) has been %s.", req.Type, req.ID, strings.ToLower(string(status))),
		})
	}
	if len(msgs) > 0 {
		svc.mailSvc.SendMessages(msgs...)
	}
}
