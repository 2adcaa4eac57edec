package workflow

import (
	"time"

	"github.com/volatiletech/null/v8"

	"github.com/trezcool/ruhusa/core/directory"
)

type RequestType string

const (
	TypeOnDuty RequestType = "ON_DUTY"
	TypeLeave  RequestType = "LEAVE"
)

type Status string

const (
	StatusPending  Status = "PENDING"
	StatusApproved Status = "APPROVED"
	StatusRejected Status = "REJECTED"
)

type Decision string

const (
	DecisionApproved Decision = "APPROVED"
	DecisionRejected Decision = "REJECTED"
)

// Role is an approving role within a flow template. HOD and LAB_INCHARGE are
// special-cased by the resolver; any other role resolves through the per-group
// approver table.
type Role string

const (
	RoleTutor       Role = "TUTOR"
	RoleLabIncharge Role = "LAB_INCHARGE"
	RoleHOD         Role = "HOD"
)

// Seeded flow template names.
const (
	FlowWithLab    = "od-with-lab"
	FlowWithoutLab = "od-without-lab"
)

// FlowTemplateName selects the flow a request must pass through. Purely a
// function of whether the request needs lab access.
func FlowTemplateName(needsLab bool) string {
	if needsLab {
		return FlowWithLab
	}
	return FlowWithoutLab
}

type (
	FlowStep struct {
		ID       string `db:"id" json:"-"`
		FlowID   string `db:"flow_id" json:"-"`
		Sequence int    `db:"sequence" json:"sequence"`
		Role     Role   `db:"role" json:"role"`
	}

	// FlowTemplate is a named, ordered list of roles. Steps are kept in
	// ascending sequence order starting at 0.
	FlowTemplate struct {
		ID    string     `db:"id" json:"id"`
		Name  string     `db:"name" json:"name"`
		Steps []FlowStep `db:"-" json:"steps"`
	}

	Request struct {
		ID          string      `db:"id" json:"id"`
		Type        RequestType `db:"type" json:"type"`
		Category    null.String `db:"category" json:"category"`
		NeedsLab    bool        `db:"needs_lab" json:"needs_lab"`
		Reason      string      `db:"reason" json:"reason"`
		Description null.String `db:"description" json:"description"`
		StartDate   time.Time   `db:"start_date" json:"start_date"`
		EndDate     time.Time   `db:"end_date" json:"end_date"`
		LabID       null.String `db:"lab_id" json:"lab_id"`
		SubmitterID string      `db:"submitter_id" json:"submitter_id"`
		FlowID      string      `db:"flow_id" json:"flow_id"`
		Status      Status      `db:"status" json:"status"`
		ProofURL    null.String `db:"proof_url" json:"proof_url"`
		CreatedAt   time.Time   `db:"created_at" json:"created_at"`
		UpdatedAt   time.Time   `db:"updated_at" json:"updated_at"`

		// hydrated
		Students []directory.Student `db:"-" json:"students,omitempty"`
		Flow     *FlowTemplate       `db:"-" json:"flow,omitempty"`
	}

	// Approval is the per-group approval record for one request. Its steps are
	// created lazily, one at a time, strictly in ascending sequence order.
	Approval struct {
		ID          string    `db:"id" json:"id"`
		RequestID   string    `db:"request_id" json:"request_id"`
		GroupID     string    `db:"group_id" json:"group_id"`
		CurrentStep int       `db:"current_step" json:"current_step"`
		Status      Status    `db:"status" json:"status"`
		CreatedAt   time.Time `db:"created_at" json:"created_at"`
		UpdatedAt   time.Time `db:"updated_at" json:"updated_at"`
	}

	ApprovalStep struct {
		ID         string      `db:"id" json:"id"`
		ApprovalID string      `db:"approval_id" json:"approval_id"`
		Sequence   int         `db:"sequence" json:"sequence"`
		ApproverID string      `db:"approver_id" json:"approver_id"` // resolved approver's user id
		Status     Status      `db:"status" json:"status"`
		Comments   null.String `db:"comments" json:"comments"`
		DecidedAt  null.Time   `db:"decided_at" json:"decided_at"`
		CreatedAt  time.Time   `db:"created_at" json:"created_at"`
	}
)

// StepAt returns the flow step at `seq`, if any.
func (ft FlowTemplate) StepAt(seq int) (FlowStep, bool) {
	for _, s := range ft.Steps {
		if s.Sequence == seq {
			return s, true
		}
	}
	return FlowStep{}, false
}

// RoleAt returns the role at `seq`; empty if the flow has no such step.
func (ft FlowTemplate) RoleAt(seq int) Role {
	if s, ok := ft.StepAt(seq); ok {
		return s.Role
	}
	return ""
}

// Inputs

type (
	NewRequest struct {
		Type        RequestType `json:"type" validate:"required,oneof=ON_DUTY LEAVE"`
		Category    string      `json:"category"`
		NeedsLab    bool        `json:"needs_lab"`
		Reason      string      `json:"reason" validate:"required"`
		Description string      `json:"description"`
		StartDate   time.Time   `json:"start_date" validate:"required"`
		EndDate     time.Time   `json:"end_date" validate:"required"`
		LabID       string      `json:"lab_id"`
		StudentIDs  []string    `json:"student_ids" validate:"required,min=1"`
		ProofURL    string      `json:"proof_url"`
		SubmitterID string      `json:"-"` // set from the authenticated user
	}

	StepDecision struct {
		Decision Decision `json:"decision" validate:"required,oneof=APPROVED REJECTED"`
		Comments string   `json:"comments"`
	}

	StepResult struct {
		Message string `json:"message"`
		Status  Status `json:"status"`
	}
)

// Read-only views

type (
	// StepView is one resolved checkpoint in an approval's history.
	StepView struct {
		Sequence   int         `json:"sequence"`
		Role       Role        `json:"role"`
		Status     Status      `json:"status"`
		Comments   null.String `json:"comments"`
		ApproverID string      `json:"approver_id"`
		DecidedAt  null.Time   `json:"decided_at"`
	}

	ApprovalView struct {
		Approval
		Steps []StepView `json:"steps"`
	}

	RequestDetail struct {
		Request   Request        `json:"request"`
		Approvals []ApprovalView `json:"approvals"`
	}

	// PendingStepView is an approver's inbox entry: the step awaiting them plus
	// the closed lower-sequence history of the same approval. Other groups'
	// approvals of the request are not exposed.
	PendingStepView struct {
		Step    ApprovalStep `json:"step"`
		Role    Role         `json:"role"`
		GroupID string       `json:"group_id"`
		Request Request      `json:"request"`
		History []StepView   `json:"history"`
	}
)

// ComputeRequestStatus derives a request's aggregate status from all of its
// approvals: any rejection rejects the request; all approved approves it;
// anything else leaves it pending.
func ComputeRequestStatus(approvals []Approval) Status {
	if len(approvals) == 0 {
		return StatusPending
	}
	allApproved := true
	for _, appr := range approvals {
		switch appr.Status {
		case StatusRejected:
			return StatusRejected
		case StatusApproved:
		default:
			allApproved = false
		}
	}
	if allApproved {
		return StatusApproved
	}
	return StatusPending
}
