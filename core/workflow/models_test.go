package workflow

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFlowTemplateName(t *testing.T) {
	assert.Equal(t, FlowWithLab, FlowTemplateName(true))
	assert.Equal(t, FlowWithoutLab, FlowTemplateName(false))
}

func TestFlowTemplate_StepAt(t *testing.T) {
	flow := FlowTemplate{
		Name: FlowWithLab,
		Steps: []FlowStep{
			{Sequence: 0, Role: RoleTutor},
			{Sequence: 1, Role: RoleLabIncharge},
			{Sequence: 2, Role: RoleHOD},
		},
	}

	step, ok := flow.StepAt(1)
	assert.True(t, ok)
	assert.Equal(t, RoleLabIncharge, step.Role)

	_, ok = flow.StepAt(3)
	assert.False(t, ok)

	assert.Equal(t, RoleHOD, flow.RoleAt(2))
	assert.Equal(t, Role(""), flow.RoleAt(5))
}

func TestComputeRequestStatus(t *testing.T) {
	appr := func(s Status) Approval { return Approval{Status: s} }

	tests := []struct {
		name      string
		approvals []Approval
		want      Status
	}{
		{"no approvals", nil, StatusPending},
		{"single pending", []Approval{appr(StatusPending)}, StatusPending},
		{"single approved", []Approval{appr(StatusApproved)}, StatusApproved},
		{"single rejected", []Approval{appr(StatusRejected)}, StatusRejected},
		{"all approved", []Approval{appr(StatusApproved), appr(StatusApproved)}, StatusApproved},
		{"one pending", []Approval{appr(StatusApproved), appr(StatusPending)}, StatusPending},
		{"rejection wins over pending", []Approval{appr(StatusPending), appr(StatusRejected)}, StatusRejected},
		{"rejection wins over approved", []Approval{appr(StatusApproved), appr(StatusRejected)}, StatusRejected},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ComputeRequestStatus(tt.approvals))
		})
	}
}
