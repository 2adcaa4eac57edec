package directory

import (
	"context"
	"errors"

	"github.com/trezcool/ruhusa/core"
)

var (
	// errors
	ErrDepartmentNotFound  = errors.New("department not found")
	ErrGroupNotFound       = errors.New("group not found")
	ErrTeacherNotFound     = errors.New("teacher not found")
	ErrStudentNotFound     = errors.New("student not found")
	ErrLabNotFound         = errors.New("lab not found")
	ErrApproverNotAssigned = errors.New("no approver assigned for this group and role")
	ErrNoHeadOfDepartment  = errors.New("department has no head of department")
)

type (
	Repository interface {
		CreateDepartment(ctx context.Context, dept Department, exec ...core.DBExecutor) (Department, error)
		CreateGroup(ctx context.Context, grp Group, exec ...core.DBExecutor) (Group, error)
		CreateTeacher(ctx context.Context, tchr Teacher, exec ...core.DBExecutor) (Teacher, error)
		CreateStudent(ctx context.Context, std Student, exec ...core.DBExecutor) (Student, error)
		CreateLab(ctx context.Context, lab Lab, exec ...core.DBExecutor) (Lab, error)
		// SetGroupApprover upserts the approving teacher for (group, role).
		SetGroupApprover(ctx context.Context, groupID, role, teacherID string, exec ...core.DBExecutor) (GroupApprover, error)
		// SetHeadOfDepartment designates the department's HOD, silently revoking
		// the previous holder. At most one holder per department.
		SetHeadOfDepartment(ctx context.Context, departmentID, teacherID string, exec ...core.DBExecutor) error

		GetDepartmentByID(ctx context.Context, id string, exec ...core.DBExecutor) (Department, error)
		GetGroupByID(ctx context.Context, id string, exec ...core.DBExecutor) (Group, error)
		GetTeacherByID(ctx context.Context, id string, exec ...core.DBExecutor) (Teacher, error)
		GetTeacherByUserID(ctx context.Context, userID string, exec ...core.DBExecutor) (Teacher, error)
		GetStudentByID(ctx context.Context, id string, exec ...core.DBExecutor) (Student, error)
		GetStudentByUserID(ctx context.Context, userID string, exec ...core.DBExecutor) (Student, error)
		// GetStudentsByID returns the students found for `ids`; missing ids are
		// simply absent from the result, the caller decides whether that is fatal.
		GetStudentsByID(ctx context.Context, ids []string, exec ...core.DBExecutor) ([]Student, error)
		GetLabByID(ctx context.Context, id string, exec ...core.DBExecutor) (Lab, error)
		GetGroupApprover(ctx context.Context, groupID, role string, exec ...core.DBExecutor) (GroupApprover, error)
		GetHeadOfDepartment(ctx context.Context, departmentID string, exec ...core.DBExecutor) (Teacher, error)
		// QueryApproverGroupIDs returns the ids of all groups the teacher is
		// assigned to as an approver, in any role.
		QueryApproverGroupIDs(ctx context.Context, teacherID string, exec ...core.DBExecutor) ([]string, error)
		// IncrementOnDutyCount bumps each student's on-duty counter by 1.
		IncrementOnDutyCount(ctx context.Context, studentIDs []string, exec ...core.DBExecutor) error
	}

	Service struct {
		repo Repository
	}
)

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

func (svc *Service) CreateDepartment(ctx context.Context, name string) (Department, error) {
	return svc.repo.CreateDepartment(ctx, Department{Name: core.CleanString(name)})
}

func (svc *Service) CreateGroup(ctx context.Context, name, departmentID string) (Group, error) {
	if _, err := svc.repo.GetDepartmentByID(ctx, departmentID); err != nil {
		return Group{}, err
	}
	return svc.repo.CreateGroup(ctx, Group{Name: core.CleanString(name), DepartmentID: departmentID})
}

func (svc *Service) CreateTeacher(ctx context.Context, tchr Teacher) (Teacher, error) {
	tchr.Name = core.CleanString(tchr.Name)
	tchr.Email = core.CleanString(tchr.Email, true /* lower */)
	if _, err := svc.repo.GetDepartmentByID(ctx, tchr.DepartmentID); err != nil {
		return Teacher{}, err
	}
	return svc.repo.CreateTeacher(ctx, tchr)
}

func (svc *Service) CreateStudent(ctx context.Context, std Student) (Student, error) {
	std.Name = core.CleanString(std.Name)
	std.Email = core.CleanString(std.Email, true /* lower */)
	if _, err := svc.repo.GetGroupByID(ctx, std.GroupID); err != nil {
		return Student{}, err
	}
	return svc.repo.CreateStudent(ctx, std)
}

func (svc *Service) CreateLab(ctx context.Context, lab Lab) (Lab, error) {
	lab.Name = core.CleanString(lab.Name)
	if lab.InchargeID.Valid {
		if _, err := svc.repo.GetTeacherByID(ctx, lab.InchargeID.String); err != nil {
			return Lab{}, err
		}
	}
	return svc.repo.CreateLab(ctx, lab)
}

func (svc *Service) SetGroupApprover(ctx context.Context, groupID, role, teacherID string) (GroupApprover, error) {
	if _, err := svc.repo.GetGroupByID(ctx, groupID); err != nil {
		return GroupApprover{}, err
	}
	if _, err := svc.repo.GetTeacherByID(ctx, teacherID); err != nil {
		return GroupApprover{}, err
	}
	return svc.repo.SetGroupApprover(ctx, groupID, role, teacherID)
}

func (svc *Service) SetHeadOfDepartment(ctx context.Context, departmentID, teacherID string) error {
	if _, err := svc.repo.GetDepartmentByID(ctx, departmentID); err != nil {
		return err
	}
	if _, err := svc.repo.GetTeacherByID(ctx, teacherID); err != nil {
		return err
	}
	return svc.repo.SetHeadOfDepartment(ctx, departmentID, teacherID)
}
