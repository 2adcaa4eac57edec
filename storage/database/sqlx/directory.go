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
)

type directoryRepository struct {
	exec core.DBExecutor
}

var _ directory.Repository = (*directoryRepository)(nil)

func NewDirectoryRepository(exec core.DBExecutor) *directoryRepository {
	return &directoryRepository{exec: exec}
}

func (repo directoryRepository) getExec(svcExec []core.DBExecutor) core.DBExecutor {
	if len(svcExec) > 0 {
		return svcExec[0]
	}
	return repo.exec
}

// trapNoRowsErr maps psql "no rows" to the given sentinel.
func trapNoRowsErr(err, notFound error, msg string) error {
	if errors.Cause(err) == sql.ErrNoRows {
		return notFound
	}
	return errors.Wrap(err, msg)
}

func (repo directoryRepository) CreateDepartment(ctx context.Context, dept directory.Department, exec ...core.DBExecutor) (directory.Department, error) {
	dept.ID = uuid.New().String()
	dept.CreatedAt = time.Now().UTC()
	_, err := repo.getExec(exec).ExecContext(ctx,
		`INSERT INTO departments (id, name, created_at) VALUES ($1, $2, $3)`,
		dept.ID, dept.Name, dept.CreatedAt,
	)
	if err != nil {
		return directory.Department{}, errors.Wrap(err, "inserting department")
	}
	return dept, nil
}

func (repo directoryRepository) CreateGroup(ctx context.Context, grp directory.Group, exec ...core.DBExecutor) (directory.Group, error) {
	grp.ID = uuid.New().String()
	grp.CreatedAt = time.Now().UTC()
	_, err := repo.getExec(exec).ExecContext(ctx,
		`INSERT INTO student_groups (id, name, department_id, created_at) VALUES ($1, $2, $3, $4)`,
		grp.ID, grp.Name, grp.DepartmentID, grp.CreatedAt,
	)
	if err != nil {
		return directory.Group{}, errors.Wrap(err, "inserting group")
	}
	return grp, nil
}

func (repo directoryRepository) CreateTeacher(ctx context.Context, tchr directory.Teacher, exec ...core.DBExecutor) (directory.Teacher, error) {
	tchr.ID = uuid.New().String()
	if tchr.UserID == "" {
		tchr.UserID = uuid.New().String()
	}
	tchr.CreatedAt = time.Now().UTC()
	_, err := repo.getExec(exec).ExecContext(ctx,
		`INSERT INTO teachers (id, user_id, name, email, department_id, created_at) VALUES ($1, $2, $3, $4, $5, $6)`,
		tchr.ID, tchr.UserID, tchr.Name, tchr.Email, tchr.DepartmentID, tchr.CreatedAt,
	)
	if err != nil {
		return directory.Teacher{}, errors.Wrap(err, "inserting teacher")
	}
	return tchr, nil
}

func (repo directoryRepository) CreateStudent(ctx context.Context, std directory.Student, exec ...core.DBExecutor) (directory.Student, error) {
	std.ID = uuid.New().String()
	if std.UserID == "" {
		std.UserID = uuid.New().String()
	}
	std.CreatedAt = time.Now().UTC()
	_, err := repo.getExec(exec).ExecContext(ctx,
		`INSERT INTO students (id, user_id, name, reg_no, email, group_id, on_duty_count, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		std.ID, std.UserID, std.Name, std.RegNo, std.Email, std.GroupID, std.OnDutyCount, std.CreatedAt,
	)
	if err != nil {
		return directory.Student{}, errors.Wrap(err, "inserting student")
	}
	return std, nil
}

func (repo directoryRepository) CreateLab(ctx context.Context, lab directory.Lab, exec ...core.DBExecutor) (directory.Lab, error) {
	lab.ID = uuid.New().String()
	lab.CreatedAt = time.Now().UTC()
	_, err := repo.getExec(exec).ExecContext(ctx,
		`INSERT INTO labs (id, name, incharge_id, created_at) VALUES ($1, $2, $3, $4)`,
		lab.ID, lab.Name, lab.InchargeID, lab.CreatedAt,
	)
	if err != nil {
		return directory.Lab{}, errors.Wrap(err, "inserting lab")
	}
	return lab, nil
}

func (repo directoryRepository) SetGroupApprover(ctx context.Context, groupID, role, teacherID string, exec ...core.DBExecutor) (directory.GroupApprover, error) {
	ga := directory.GroupApprover{
		ID:        uuid.New().String(),
		GroupID:   groupID,
		Role:      role,
		TeacherID: teacherID,
		CreatedAt: time.Now().UTC(),
	}
	_, err := repo.getExec(exec).ExecContext(ctx,
		`INSERT INTO group_approvers (id, group_id, role, teacher_id, created_at) VALUES ($1, $2, $3, $4, $5)
		 ON CONFLICT (group_id, role) DO UPDATE SET teacher_id = EXCLUDED.teacher_id`,
		ga.ID, ga.GroupID, ga.Role, ga.TeacherID, ga.CreatedAt,
	)
	if err != nil {
		return directory.GroupApprover{}, errors.Wrap(err, "upserting group approver")
	}
	return ga, nil
}

func (repo directoryRepository) SetHeadOfDepartment(ctx context.Context, departmentID, teacherID string, exec ...core.DBExecutor) error {
	// the upsert silently revokes the previous holder
	_, err := repo.getExec(exec).ExecContext(ctx,
		`INSERT INTO hod_designations (department_id, teacher_id, created_at) VALUES ($1, $2, $3)
		 ON CONFLICT (department_id) DO UPDATE SET teacher_id = EXCLUDED.teacher_id, created_at = EXCLUDED.created_at`,
		departmentID, teacherID, time.Now().UTC(),
	)
	return errors.Wrap(err, "upserting HOD designation")
}

func (repo directoryRepository) GetDepartmentByID(ctx context.Context, id string, exec ...core.DBExecutor) (directory.Department, error) {
	var dept directory.Department
	err := repo.getExec(exec).GetContext(ctx, &dept, `SELECT * FROM departments WHERE id = $1`, id)
	if err != nil {
		return directory.Department{}, trapNoRowsErr(err, directory.ErrDepartmentNotFound, "getting department")
	}
	return dept, nil
}

func (repo directoryRepository) GetGroupByID(ctx context.Context, id string, exec ...core.DBExecutor) (directory.Group, error) {
	var grp directory.Group
	err := repo.getExec(exec).GetContext(ctx, &grp, `SELECT * FROM student_groups WHERE id = $1`, id)
	if err != nil {
		return directory.Group{}, trapNoRowsErr(err, directory.ErrGroupNotFound, "getting group")
	}
	return grp, nil
}

func (repo directoryRepository) GetTeacherByID(ctx context.Context, id string, exec ...core.DBExecutor) (directory.Teacher, error) {
	var tchr directory.Teacher
	err := repo.getExec(exec).GetContext(ctx, &tchr, `SELECT * FROM teachers WHERE id = $1`, id)
	if err != nil {
		return directory.Teacher{}, trapNoRowsErr(err, directory.ErrTeacherNotFound, "getting teacher")
	}
	return tchr, nil
}

func (repo directoryRepository) GetTeacherByUserID(ctx context.Context, userID string, exec ...core.DBExecutor) (directory.Teacher, error) {
	var tchr directory.Teacher
	err := repo.getExec(exec).GetContext(ctx, &tchr, `SELECT * FROM teachers WHERE user_id = $1`, userID)
	if err != nil {
		return directory.Teacher{}, trapNoRowsErr(err, directory.ErrTeacherNotFound, "getting teacher by user")
	}
	return tchr, nil
}

func (repo directoryRepository) GetStudentByID(ctx context.Context, id string, exec ...core.DBExecutor) (directory.Student, error) {
	var std directory.Student
	err := repo.getExec(exec).GetContext(ctx, &std, `SELECT * FROM students WHERE id = $1`, id)
	if err != nil {
		return directory.Student{}, trapNoRowsErr(err, directory.ErrStudentNotFound, "getting student")
	}
	return std, nil
}

func (repo directoryRepository) GetStudentByUserID(ctx context.Context, userID string, exec ...core.DBExecutor) (directory.Student, error) {
	var std directory.Student
	err := repo.getExec(exec).GetContext(ctx, &std, `SELECT * FROM students WHERE user_id = $1`, userID)
	if err != nil {
		return directory.Student{}, trapNoRowsErr(err, directory.ErrStudentNotFound, "getting student by user")
	}
	return std, nil
}

func (repo directoryRepository) GetStudentsByID(ctx context.Context, ids []string, exec ...core.DBExecutor) ([]directory.Student, error) {
	students := make([]directory.Student, 0, len(ids))
	err := repo.getExec(exec).SelectContext(ctx, &students,
		`SELECT * FROM students WHERE id = ANY($1) ORDER BY id`, pq.Array(ids))
	if err != nil {
		return nil, errors.Wrap(err, "selecting students")
	}
	return students, nil
}

func (repo directoryRepository) GetLabByID(ctx context.Context, id string, exec ...core.DBExecutor) (directory.Lab, error) {
	var lab directory.Lab
	err := repo.getExec(exec).GetContext(ctx, &lab, `SELECT * FROM labs WHERE id = $1`, id)
	if err != nil {
		return directory.Lab{}, trapNoRowsErr(err, directory.ErrLabNotFound, "getting lab")
	}
	return lab, nil
}

func (repo directoryRepository) GetGroupApprover(ctx context.Context, groupID, role string, exec ...core.DBExecutor) (directory.GroupApprover, error) {
	var ga directory.GroupApprover
	err := repo.getExec(exec).GetContext(ctx, &ga,
		`SELECT * FROM group_approvers WHERE group_id = $1 AND role = $2`, groupID, role)
	if err != nil {
		return directory.GroupApprover{}, trapNoRowsErr(err, directory.ErrApproverNotAssigned, "getting group approver")
	}
	return ga, nil
}

func (repo directoryRepository) GetHeadOfDepartment(ctx context.Context, departmentID string, exec ...core.DBExecutor) (directory.Teacher, error) {
	var tchr directory.Teacher
	err := repo.getExec(exec).GetContext(ctx, &tchr,
		`SELECT t.* FROM teachers t JOIN hod_designations h ON h.teacher_id = t.id WHERE h.department_id = $1`,
		departmentID)
	if err != nil {
		return directory.Teacher{}, trapNoRowsErr(err, directory.ErrNoHeadOfDepartment, "getting HOD")
	}
	return tchr, nil
}

func (repo directoryRepository) QueryApproverGroupIDs(ctx context.Context, teacherID string, exec ...core.DBExecutor) ([]string, error) {
	groupIDs := make([]string, 0)
	err := repo.getExec(exec).SelectContext(ctx, &groupIDs,
		`SELECT DISTINCT group_id FROM group_approvers WHERE teacher_id = $1`, teacherID)
	if err != nil {
		return nil, errors.Wrap(err, "selecting approver groups")
	}
	return groupIDs, nil
}

func (repo directoryRepository) IncrementOnDutyCount(ctx context.Context, studentIDs []string, exec ...core.DBExecutor) error {
	_, err := repo.getExec(exec).ExecContext(ctx,
		`UPDATE students SET on_duty_count = on_duty_count + 1 WHERE id = ANY($1)`, pq.Array(studentIDs))
	return errors.Wrap(err, "incrementing on-duty counters")
}
