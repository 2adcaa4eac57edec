package dummydb

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/ruhusa/core"
	"github.com/trezcool/ruhusa/core/workflow"
)

type WorkflowRepository struct {
	db *DB
}

var _ workflow.Repository = (*WorkflowRepository)(nil)

func NewWorkflowRepository(db *DB) *WorkflowRepository {
	return &WorkflowRepository{db: db}
}

// SeedFlowTemplate registers a flow template; tests and local runs use it in
// place of the SQL seed migration.
func (repo *WorkflowRepository) SeedFlowTemplate(name string, roles ...workflow.Role) workflow.FlowTemplate {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	flow := workflow.FlowTemplate{ID: uuid.New().String(), Name: name}
	for i, role := range roles {
		flow.Steps = append(flow.Steps, workflow.FlowStep{
			ID:       uuid.New().String(),
			FlowID:   flow.ID,
			Sequence: i,
			Role:     role,
		})
	}
	repo.db.state.flows[flow.ID] = flow
	return flow
}

func (repo *WorkflowRepository) GetFlowTemplateByName(ctx context.Context, name string, exec ...core.DBExecutor) (workflow.FlowTemplate, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	for _, flow := range repo.db.state.flows {
		if flow.Name == name {
			return cloneFlow(flow), nil
		}
	}
	return workflow.FlowTemplate{}, workflow.ErrFlowTemplateNotFound
}

func (repo *WorkflowRepository) GetFlowTemplateByID(ctx context.Context, id string, exec ...core.DBExecutor) (workflow.FlowTemplate, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	if flow, ok := repo.db.state.flows[id]; ok {
		return cloneFlow(flow), nil
	}
	return workflow.FlowTemplate{}, workflow.ErrFlowTemplateNotFound
}

func (repo *WorkflowRepository) CreateRequest(ctx context.Context, req workflow.Request, studentIDs []string, exec ...core.DBExecutor) (workflow.Request, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	req.ID = uuid.New().String()
	req.Students, req.Flow = nil, nil
	repo.db.state.requests[req.ID] = req

	// set semantics: a repeated id links once
	seen := make(map[string]struct{}, len(studentIDs))
	links := make([]string, 0, len(studentIDs))
	for _, stdID := range studentIDs {
		if _, ok := seen[stdID]; ok {
			continue
		}
		seen[stdID] = struct{}{}
		links = append(links, stdID)
	}
	repo.db.state.requestStudents[req.ID] = links
	return req, nil
}

func (repo *WorkflowRepository) GetRequestByID(ctx context.Context, id string, exec ...core.DBExecutor) (workflow.Request, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	req, ok := repo.db.state.requests[id]
	if !ok {
		return workflow.Request{}, workflow.ErrRequestNotFound
	}
	return repo.hydrate(req), nil
}

// hydrate attaches students and the flow template. Callers must hold db.mu.
func (repo *WorkflowRepository) hydrate(req workflow.Request) workflow.Request {
	for _, stdID := range repo.db.state.requestStudents[req.ID] {
		if std, ok := repo.db.state.students[stdID]; ok {
			req.Students = append(req.Students, std)
		}
	}
	sort.Slice(req.Students, func(i, j int) bool { return req.Students[i].ID < req.Students[j].ID })
	if flow, ok := repo.db.state.flows[req.FlowID]; ok {
		flow = cloneFlow(flow)
		req.Flow = &flow
	}
	return req
}

func (repo *WorkflowRepository) SetRequestStatus(ctx context.Context, requestID string, status workflow.Status, exec ...core.DBExecutor) error {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	req, ok := repo.db.state.requests[requestID]
	if !ok {
		return workflow.ErrRequestNotFound
	}
	req.Status = status
	req.UpdatedAt = time.Now().UTC()
	repo.db.state.requests[requestID] = req
	return nil
}

func (repo *WorkflowRepository) CreateApproval(ctx context.Context, appr workflow.Approval, exec ...core.DBExecutor) (workflow.Approval, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	appr.ID = uuid.New().String()
	repo.db.state.approvals[appr.ID] = appr
	return appr, nil
}

func (repo *WorkflowRepository) GetApprovalByID(ctx context.Context, id string, exec ...core.DBExecutor) (workflow.Approval, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	if appr, ok := repo.db.state.approvals[id]; ok {
		return appr, nil
	}
	return workflow.Approval{}, workflow.ErrRequestNotFound
}

func (repo *WorkflowRepository) QueryApprovalsByRequest(ctx context.Context, requestID string, exec ...core.DBExecutor) ([]workflow.Approval, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	approvals := make([]workflow.Approval, 0, 2)
	for _, appr := range repo.db.state.approvals {
		if appr.RequestID == requestID {
			approvals = append(approvals, appr)
		}
	}
	sort.Slice(approvals, func(i, j int) bool { return approvals[i].GroupID < approvals[j].GroupID })
	return approvals, nil
}

func (repo *WorkflowRepository) SetApprovalStatus(ctx context.Context, approvalID string, status workflow.Status, exec ...core.DBExecutor) error {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	appr, ok := repo.db.state.approvals[approvalID]
	if !ok {
		return workflow.ErrRequestNotFound
	}
	appr.Status = status
	appr.UpdatedAt = time.Now().UTC()
	repo.db.state.approvals[approvalID] = appr
	return nil
}

func (repo *WorkflowRepository) AdvanceApproval(ctx context.Context, approvalID string, currentStep int, exec ...core.DBExecutor) error {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	appr, ok := repo.db.state.approvals[approvalID]
	if !ok {
		return workflow.ErrRequestNotFound
	}
	appr.CurrentStep = currentStep
	appr.UpdatedAt = time.Now().UTC()
	repo.db.state.approvals[approvalID] = appr
	return nil
}

func (repo *WorkflowRepository) CreateApprovalStep(ctx context.Context, step workflow.ApprovalStep, exec ...core.DBExecutor) (workflow.ApprovalStep, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	step.ID = uuid.New().String()
	repo.db.state.steps[step.ID] = step
	return step, nil
}

func (repo *WorkflowRepository) GetPendingStepForUser(ctx context.Context, userID, requestID string, exec ...core.DBExecutor) (workflow.ApprovalStep, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	for _, step := range repo.db.state.steps {
		if step.ApproverID != userID || step.Status != workflow.StatusPending {
			continue
		}
		if appr, ok := repo.db.state.approvals[step.ApprovalID]; ok && appr.RequestID == requestID {
			return step, nil
		}
	}
	return workflow.ApprovalStep{}, workflow.ErrNoPendingStep
}

func (repo *WorkflowRepository) CloseApprovalStep(ctx context.Context, stepID string, status workflow.Status, comments string, decidedAt time.Time, exec ...core.DBExecutor) error {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	step, ok := repo.db.state.steps[stepID]
	if !ok {
		return workflow.ErrNoPendingStep
	}
	step.Status = status
	step.Comments = null.NewString(comments, comments != "")
	step.DecidedAt = null.TimeFrom(decidedAt)
	repo.db.state.steps[stepID] = step
	return nil
}

func (repo *WorkflowRepository) QueryStepsByApproval(ctx context.Context, approvalID string, exec ...core.DBExecutor) ([]workflow.ApprovalStep, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	steps := make([]workflow.ApprovalStep, 0, 4)
	for _, step := range repo.db.state.steps {
		if step.ApprovalID == approvalID {
			steps = append(steps, step)
		}
	}
	sort.Slice(steps, func(i, j int) bool { return steps[i].Sequence < steps[j].Sequence })
	return steps, nil
}

func (repo *WorkflowRepository) QueryPendingStepsForUser(ctx context.Context, userID string, exec ...core.DBExecutor) ([]workflow.ApprovalStep, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	steps := make([]workflow.ApprovalStep, 0)
	for _, step := range repo.db.state.steps {
		if step.ApproverID == userID && step.Status == workflow.StatusPending {
			steps = append(steps, step)
		}
	}
	sort.Slice(steps, func(i, j int) bool { return steps[i].CreatedAt.Before(steps[j].CreatedAt) })
	return steps, nil
}

func (repo *WorkflowRepository) QueryRequestsByStudent(ctx context.Context, studentID string, exec ...core.DBExecutor) ([]workflow.Request, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	reqs := make([]workflow.Request, 0)
	for reqID, stdIDs := range repo.db.state.requestStudents {
		for _, id := range stdIDs {
			if id == studentID {
				if req, ok := repo.db.state.requests[reqID]; ok {
					reqs = append(reqs, repo.hydrate(req))
				}
				break
			}
		}
	}
	sortRequests(reqs)
	return reqs, nil
}

func (repo *WorkflowRepository) QueryRequestsByGroups(ctx context.Context, groupIDs []string, exec ...core.DBExecutor) ([]workflow.Request, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	wanted := make(map[string]struct{}, len(groupIDs))
	for _, id := range groupIDs {
		wanted[id] = struct{}{}
	}
	seen := make(map[string]struct{})
	reqs := make([]workflow.Request, 0)
	for _, appr := range repo.db.state.approvals {
		if _, ok := wanted[appr.GroupID]; !ok {
			continue
		}
		if _, ok := seen[appr.RequestID]; ok {
			continue
		}
		seen[appr.RequestID] = struct{}{}
		if req, ok := repo.db.state.requests[appr.RequestID]; ok {
			reqs = append(reqs, repo.hydrate(req))
		}
	}
	sortRequests(reqs)
	return reqs, nil
}

func (repo *WorkflowRepository) QueryAllRequests(ctx context.Context, exec ...core.DBExecutor) ([]workflow.Request, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	reqs := make([]workflow.Request, 0, len(repo.db.state.requests))
	for _, req := range repo.db.state.requests {
		reqs = append(reqs, repo.hydrate(req))
	}
	sortRequests(reqs)
	return reqs, nil
}

func cloneFlow(flow workflow.FlowTemplate) workflow.FlowTemplate {
	flow.Steps = append([]workflow.FlowStep(nil), flow.Steps...)
	return flow
}

// latest first, id as tie-breaker
func sortRequests(reqs []workflow.Request) {
	sort.Slice(reqs, func(i, j int) bool {
		if reqs[i].CreatedAt.Equal(reqs[j].CreatedAt) {
			return reqs[i].ID < reqs[j].ID
		}
		return reqs[i].CreatedAt.After(reqs[j].CreatedAt)
	})
}
