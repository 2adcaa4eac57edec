package sqlxrepos

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/pkg/errors"

	"github.com/trezcool/ruhusa/core"
	"github.com/trezcool/ruhusa/core/directory"
	"github.com/trezcool/ruhusa/core/workflow"
)

type workflowRepository struct {
	exec core.DBExecutor
}

var _ workflow.Repository = (*workflowRepository)(nil)

func NewWorkflowRepository(exec core.DBExecutor) *workflowRepository {
	return &workflowRepository{exec: exec}
}

func (repo workflowRepository) getExec(svcExec []core.DBExecutor) core.DBExecutor {
	if len(svcExec) > 0 {
		return svcExec[0]
	}
	return repo.exec
}

// flow templates

func (repo workflowRepository) getFlowTemplate(ctx context.Context, where, arg string, exec core.DBExecutor) (workflow.FlowTemplate, error) {
	var flow workflow.FlowTemplate
	err := exec.GetContext(ctx, &flow, `SELECT * FROM flow_templates WHERE `+where+` = $1`, arg)
	if err != nil {
		return workflow.FlowTemplate{}, trapNoRowsErr(err, workflow.ErrFlowTemplateNotFound, "getting flow template")
	}
	err = exec.SelectContext(ctx, &flow.Steps,
		`SELECT * FROM flow_steps WHERE flow_id = $1 ORDER BY sequence`, flow.ID)
	if err != nil {
		return workflow.FlowTemplate{}, errors.Wrap(err, "selecting flow steps")
	}
	return flow, nil
}

func (repo workflowRepository) GetFlowTemplateByName(ctx context.Context, name string, exec ...core.DBExecutor) (workflow.FlowTemplate, error) {
	return repo.getFlowTemplate(ctx, "name", name, repo.getExec(exec))
}

func (repo workflowRepository) GetFlowTemplateByID(ctx context.Context, id string, exec ...core.DBExecutor) (workflow.FlowTemplate, error) {
	return repo.getFlowTemplate(ctx, "id", id, repo.getExec(exec))
}

// requests

func (repo workflowRepository) CreateRequest(ctx context.Context, req workflow.Request, studentIDs []string, exec ...core.DBExecutor) (workflow.Request, error) {
	ex := repo.getExec(exec)
	req.ID = uuid.New().String()
	_, err := ex.ExecContext(ctx,
		`INSERT INTO requests (id, type, category, needs_lab, reason, description, start_date, end_date,
		                       lab_id, submitter_id, flow_id, status, proof_url, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)`,
		req.ID, req.Type, req.Category, req.NeedsLab, req.Reason, req.Description, req.StartDate, req.EndDate,
		req.LabID, req.SubmitterID, req.FlowID, req.Status, req.ProofURL, req.CreatedAt, req.UpdatedAt,
	)
	if err != nil {
		return workflow.Request{}, errors.Wrap(err, "inserting request")
	}
	for _, stdID := range studentIDs {
		_, err = ex.ExecContext(ctx,
			`INSERT INTO request_students (request_id, student_id) VALUES ($1, $2) ON CONFLICT DO NOTHING`,
			req.ID, stdID,
		)
		if err != nil {
			return workflow.Request{}, errors.Wrap(err, "linking request student")
		}
	}
	return req, nil
}

func (repo workflowRepository) GetRequestByID(ctx context.Context, id string, exec ...core.DBExecutor) (workflow.Request, error) {
	ex := repo.getExec(exec)
	// transactional reads lock the request row: step transitions on the same
	// request serialize, and the aggregate status recompute reads a snapshot
	// no concurrent transition can invalidate
	query := `SELECT * FROM requests WHERE id = $1`
	if len(exec) > 0 {
		query += ` FOR UPDATE`
	}
	var req workflow.Request
	err := ex.GetContext(ctx, &req, query, id)
	if err != nil {
		return workflow.Request{}, trapNoRowsErr(err, workflow.ErrRequestNotFound, "getting request")
	}
	return repo.hydrate(ctx, req, ex)
}

// hydrate attaches the request's students and flow template.
func (repo workflowRepository) hydrate(ctx context.Context, req workflow.Request, exec core.DBExecutor) (workflow.Request, error) {
	students := make([]directory.Student, 0, 2)
	err := exec.SelectContext(ctx, &students,
		`SELECT s.* FROM students s JOIN request_students rs ON rs.student_id = s.id
		 WHERE rs.request_id = $1 ORDER BY s.id`, req.ID)
	if err != nil {
		return workflow.Request{}, errors.Wrap(err, "selecting request students")
	}
	req.Students = students

	flow, err := repo.getFlowTemplate(ctx, "id", req.FlowID, exec)
	if err != nil {
		return workflow.Request{}, err
	}
	req.Flow = &flow
	return req, nil
}

func (repo workflowRepository) SetRequestStatus(ctx context.Context, requestID string, status workflow.Status, exec ...core.DBExecutor) error {
	_, err := repo.getExec(exec).ExecContext(ctx,
		`UPDATE requests SET status = $2, updated_at = $3 WHERE id = $1`,
		requestID, status, time.Now().UTC())
	return errors.Wrap(err, "updating request status")
}

// approvals

func (repo workflowRepository) CreateApproval(ctx context.Context, appr workflow.Approval, exec ...core.DBExecutor) (workflow.Approval, error) {
	appr.ID = uuid.New().String()
	_, err := repo.getExec(exec).ExecContext(ctx,
		`INSERT INTO approvals (id, request_id, group_id, current_step, status, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		appr.ID, appr.RequestID, appr.GroupID, appr.CurrentStep, appr.Status, appr.CreatedAt, appr.UpdatedAt,
	)
	if err != nil {
		return workflow.Approval{}, errors.Wrap(err, "inserting approval")
	}
	return appr, nil
}

func (repo workflowRepository) GetApprovalByID(ctx context.Context, id string, exec ...core.DBExecutor) (workflow.Approval, error) {
	var appr workflow.Approval
	err := repo.getExec(exec).GetContext(ctx, &appr, `SELECT * FROM approvals WHERE id = $1`, id)
	if err != nil {
		if errors.Cause(err) == sql.ErrNoRows {
			return workflow.Approval{}, errors.Wrapf(err, "approval %s not found", id)
		}
		return workflow.Approval{}, errors.Wrap(err, "getting approval")
	}
	return appr, nil
}

func (repo workflowRepository) QueryApprovalsByRequest(ctx context.Context, requestID string, exec ...core.DBExecutor) ([]workflow.Approval, error) {
	approvals := make([]workflow.Approval, 0, 2)
	err := repo.getExec(exec).SelectContext(ctx, &approvals,
		`SELECT * FROM approvals WHERE request_id = $1 ORDER BY group_id`, requestID)
	if err != nil {
		return nil, errors.Wrap(err, "selecting approvals")
	}
	return approvals, nil
}

func (repo workflowRepository) SetApprovalStatus(ctx context.Context, approvalID string, status workflow.Status, exec ...core.DBExecutor) error {
	_, err := repo.getExec(exec).ExecContext(ctx,
		`UPDATE approvals SET status = $2, updated_at = $3 WHERE id = $1`,
		approvalID, status, time.Now().UTC())
	return errors.Wrap(err, "updating approval status")
}

func (repo workflowRepository) AdvanceApproval(ctx context.Context, approvalID string, currentStep int, exec ...core.DBExecutor) error {
	_, err := repo.getExec(exec).ExecContext(ctx,
		`UPDATE approvals SET current_step = $2, updated_at = $3 WHERE id = $1`,
		approvalID, currentStep, time.Now().UTC())
	return errors.Wrap(err, "advancing approval")
}

// approval steps

func (repo workflowRepository) CreateApprovalStep(ctx context.Context, step workflow.ApprovalStep, exec ...core.DBExecutor) (workflow.ApprovalStep, error) {
	step.ID = uuid.New().String()
	_, err := repo.getExec(exec).ExecContext(ctx,
		`INSERT INTO approval_steps (id, approval_id, sequence, approver_id, status, comments, decided_at, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		step.ID, step.ApprovalID, step.Sequence, step.ApproverID, step.Status, step.Comments, step.DecidedAt, step.CreatedAt,
	)
	if err != nil {
		return workflow.ApprovalStep{}, errors.Wrap(err, "inserting approval step")
	}
	return step, nil
}

func (repo workflowRepository) GetPendingStepForUser(ctx context.Context, userID, requestID string, exec ...core.DBExecutor) (workflow.ApprovalStep, error) {
	// the step row is locked: a concurrent decision on the same step waits,
	// re-evaluates the closed row, fails the PENDING predicate and gets
	// ErrNoPendingStep instead of double-closing the step
	var step workflow.ApprovalStep
	err := repo.getExec(exec).GetContext(ctx, &step,
		`SELECT st.* FROM approval_steps st
		 JOIN approvals a ON a.id = st.approval_id
		 WHERE st.approver_id = $1 AND a.request_id = $2 AND st.status = 'PENDING'
		 ORDER BY a.group_id LIMIT 1
		 FOR UPDATE OF st`,
		userID, requestID)
	if err != nil {
		return workflow.ApprovalStep{}, trapNoRowsErr(err, workflow.ErrNoPendingStep, "getting pending step")
	}
	return step, nil
}

func (repo workflowRepository) CloseApprovalStep(ctx context.Context, stepID string, status workflow.Status, comments string, decidedAt time.Time, exec ...core.DBExecutor) error {
	_, err := repo.getExec(exec).ExecContext(ctx,
		`UPDATE approval_steps SET status = $2, comments = NULLIF($3, ''), decided_at = $4 WHERE id = $1`,
		stepID, status, comments, decidedAt)
	return errors.Wrap(err, "closing approval step")
}

func (repo workflowRepository) QueryStepsByApproval(ctx context.Context, approvalID string, exec ...core.DBExecutor) ([]workflow.ApprovalStep, error) {
	steps := make([]workflow.ApprovalStep, 0, 3)
	err := repo.getExec(exec).SelectContext(ctx, &steps,
		`SELECT * FROM approval_steps WHERE approval_id = $1 ORDER BY sequence`, approvalID)
	if err != nil {
		return nil, errors.Wrap(err, "selecting approval steps")
	}
	return steps, nil
}

func (repo workflowRepository) QueryPendingStepsForUser(ctx context.Context, userID string, exec ...core.DBExecutor) ([]workflow.ApprovalStep, error) {
	steps := make([]workflow.ApprovalStep, 0)
	err := repo.getExec(exec).SelectContext(ctx, &steps,
		`SELECT * FROM approval_steps WHERE approver_id = $1 AND status = 'PENDING' ORDER BY created_at DESC`,
		userID)
	if err != nil {
		return nil, errors.Wrap(err, "selecting pending steps")
	}
	return steps, nil
}

// request listings, latest first

func (repo workflowRepository) queryRequests(ctx context.Context, query string, exec core.DBExecutor, args ...interface{}) ([]workflow.Request, error) {
	reqs := make([]workflow.Request, 0)
	if err := exec.SelectContext(ctx, &reqs, query, args...); err != nil {
		return nil, errors.Wrap(err, "selecting requests")
	}
	for i, req := range reqs {
		hydrated, err := repo.hydrate(ctx, req, exec)
		if err != nil {
			return nil, err
		}
		reqs[i] = hydrated
	}
	return reqs, nil
}

func (repo workflowRepository) QueryRequestsByStudent(ctx context.Context, studentID string, exec ...core.DBExecutor) ([]workflow.Request, error) {
	return repo.queryRequests(ctx,
		`SELECT r.* FROM requests r JOIN request_students rs ON rs.request_id = r.id
		 WHERE rs.student_id = $1 ORDER BY r.created_at DESC`,
		repo.getExec(exec), studentID)
}

func (repo workflowRepository) QueryRequestsByGroups(ctx context.Context, groupIDs []string, exec ...core.DBExecutor) ([]workflow.Request, error) {
	return repo.queryRequests(ctx,
		`SELECT DISTINCT r.*
		 FROM requests r
		 JOIN request_students rs ON rs.request_id = r.id
		 JOIN students s ON s.id = rs.student_id
		 WHERE s.group_id = ANY($1) ORDER BY r.created_at DESC`,
		repo.getExec(exec), pq.Array(groupIDs))
}

func (repo workflowRepository) QueryAllRequests(ctx context.Context, exec ...core.DBExecutor) ([]workflow.Request, error) {
	return repo.queryRequests(ctx, `SELECT * FROM requests ORDER BY created_at DESC`, repo.getExec(exec))
}
