package directory

import (
	"time"

	"github.com/volatiletech/null/v8"
)

type (
	Department struct {
		ID        string    `db:"id" json:"id"`
		Name      string    `db:"name" json:"name"`
		CreatedAt time.Time `db:"created_at" json:"created_at"`
	}

	// Group is a cohort of students belonging to one department. It is the
	// partition unit for request approvals.
	Group struct {
		ID           string    `db:"id" json:"id"`
		Name         string    `db:"name" json:"name"`
		DepartmentID string    `db:"department_id" json:"department_id"`
		CreatedAt    time.Time `db:"created_at" json:"created_at"`
	}

	Teacher struct {
		ID           string    `db:"id" json:"id"`
		UserID       string    `db:"user_id" json:"user_id"`
		Name         string    `db:"name" json:"name"`
		Email        string    `db:"email" json:"email"`
		DepartmentID string    `db:"department_id" json:"department_id"`
		CreatedAt    time.Time `db:"created_at" json:"created_at"`
	}

	Student struct {
		ID          string    `db:"id" json:"id"`
		UserID      string    `db:"user_id" json:"user_id"`
		Name        string    `db:"name" json:"name"`
		RegNo       string    `db:"reg_no" json:"reg_no"`
		Email       string    `db:"email" json:"email"`
		GroupID     string    `db:"group_id" json:"group_id"`
		OnDutyCount int       `db:"on_duty_count" json:"on_duty_count"`
		CreatedAt   time.Time `db:"created_at" json:"created_at"`
	}

	Lab struct {
		ID         string      `db:"id" json:"id"`
		Name       string      `db:"name" json:"name"`
		InchargeID null.String `db:"incharge_id" json:"incharge_id"` // teacher id
		CreatedAt  time.Time   `db:"created_at" json:"created_at"`
	}

	// GroupApprover maps (group, role) to the teacher approving that role's step
	// for the group. Unique per (group, role); the special-cased HOD and
	// lab-incharge roles never go through this table.
	GroupApprover struct {
		ID        string    `db:"id" json:"id"`
		GroupID   string    `db:"group_id" json:"group_id"`
		Role      string    `db:"role" json:"role"`
		TeacherID string    `db:"teacher_id" json:"teacher_id"`
		CreatedAt time.Time `db:"created_at" json:"created_at"`
	}
)
