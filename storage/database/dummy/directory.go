package dummydb

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/trezcool/ruhusa/core"
	"github.com/trezcool/ruhusa/core/directory"
)

type directoryRepository struct {
	db *DB
}

var _ directory.Repository = (*directoryRepository)(nil)

func NewDirectoryRepository(db *DB) directory.Repository {
	return &directoryRepository{db: db}
}

func (repo *directoryRepository) CreateDepartment(ctx context.Context, dept directory.Department, exec ...core.DBExecutor) (directory.Department, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	dept.ID = uuid.New().String()
	dept.CreatedAt = time.Now().UTC()
	repo.db.state.departments[dept.ID] = dept
	return dept, nil
}

func (repo *directoryRepository) CreateGroup(ctx context.Context, grp directory.Group, exec ...core.DBExecutor) (directory.Group, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	grp.ID = uuid.New().String()
	grp.CreatedAt = time.Now().UTC()
	repo.db.state.groups[grp.ID] = grp
	return grp, nil
}

func (repo *directoryRepository) CreateTeacher(ctx context.Context, tchr directory.Teacher, exec ...core.DBExecutor) (directory.Teacher, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	tchr.ID = uuid.New().String()
	if tchr.UserID == "" {
		tchr.UserID = uuid.New().String()
	}
	tchr.CreatedAt = time.Now().UTC()
	repo.db.state.teachers[tchr.ID] = tchr
	return tchr, nil
}

func (repo *directoryRepository) CreateStudent(ctx context.Context, std directory.Student, exec ...core.DBExecutor) (directory.Student, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	std.ID = uuid.New().String()
	if std.UserID == "" {
		std.UserID = uuid.New().String()
	}
	std.CreatedAt = time.Now().UTC()
	repo.db.state.students[std.ID] = std
	return std, nil
}

func (repo *directoryRepository) CreateLab(ctx context.Context, lab directory.Lab, exec ...core.DBExecutor) (directory.Lab, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	lab.ID = uuid.New().String()
	lab.CreatedAt = time.Now().UTC()
	repo.db.state.labs[lab.ID] = lab
	return lab, nil
}

func (repo *directoryRepository) SetGroupApprover(ctx context.Context, groupID, role, teacherID string, exec ...core.DBExecutor) (directory.GroupApprover, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	ga := directory.GroupApprover{
		ID:        uuid.New().String(),
		GroupID:   groupID,
		Role:      role,
		TeacherID: teacherID,
		CreatedAt: time.Now().UTC(),
	}
	repo.db.state.groupApprovers[groupID+"|"+role] = ga
	return ga, nil
}

func (repo *directoryRepository) SetHeadOfDepartment(ctx context.Context, departmentID, teacherID string, exec ...core.DBExecutor) error {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	// overwriting revokes the previous holder
	repo.db.state.hods[departmentID] = teacherID
	return nil
}

func (repo *directoryRepository) GetDepartmentByID(ctx context.Context, id string, exec ...core.DBExecutor) (directory.Department, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	if dept, ok := repo.db.state.departments[id]; ok {
		return dept, nil
	}
	return directory.Department{}, directory.ErrDepartmentNotFound
}

func (repo *directoryRepository) GetGroupByID(ctx context.Context, id string, exec ...core.DBExecutor) (directory.Group, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	if grp, ok := repo.db.state.groups[id]; ok {
		return grp, nil
	}
	return directory.Group{}, directory.ErrGroupNotFound
}

func (repo *directoryRepository) GetTeacherByID(ctx context.Context, id string, exec ...core.DBExecutor) (directory.Teacher, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	if tchr, ok := repo.db.state.teachers[id]; ok {
		return tchr, nil
	}
	return directory.Teacher{}, directory.ErrTeacherNotFound
}

func (repo *directoryRepository) GetTeacherByUserID(ctx context.Context, userID string, exec ...core.DBExecutor) (directory.Teacher, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	for _, tchr := range repo.db.state.teachers {
		if tchr.UserID == userID {
			return tchr, nil
		}
	}
	return directory.Teacher{}, directory.ErrTeacherNotFound
}

func (repo *directoryRepository) GetStudentByID(ctx context.Context, id string, exec ...core.DBExecutor) (directory.Student, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	if std, ok := repo.db.state.students[id]; ok {
		return std, nil
	}
	return directory.Student{}, directory.ErrStudentNotFound
}

func (repo *directoryRepository) GetStudentByUserID(ctx context.Context, userID string, exec ...core.DBExecutor) (directory.Student, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	for _, std := range repo.db.state.students {
		if std.UserID == userID {
			return std, nil
		}
	}
	return directory.Student{}, directory.ErrStudentNotFound
}

func (repo *directoryRepository) GetStudentsByID(ctx context.Context, ids []string, exec ...core.DBExecutor) ([]directory.Student, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	// set semantics: a repeated id yields one row
	seen := make(map[string]struct{}, len(ids))
	students := make([]directory.Student, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		if std, ok := repo.db.state.students[id]; ok {
			students = append(students, std)
		}
	}
	return students, nil
}

func (repo *directoryRepository) GetLabByID(ctx context.Context, id string, exec ...core.DBExecutor) (directory.Lab, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	if lab, ok := repo.db.state.labs[id]; ok {
		return lab, nil
	}
	return directory.Lab{}, directory.ErrLabNotFound
}

func (repo *directoryRepository) GetGroupApprover(ctx context.Context, groupID, role string, exec ...core.DBExecutor) (directory.GroupApprover, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	if ga, ok := repo.db.state.groupApprovers[groupID+"|"+role]; ok {
		return ga, nil
	}
	return directory.GroupApprover{}, directory.ErrApproverNotAssigned
}

func (repo *directoryRepository) GetHeadOfDepartment(ctx context.Context, departmentID string, exec ...core.DBExecutor) (directory.Teacher, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	teacherID, ok := repo.db.state.hods[departmentID]
	if !ok {
		return directory.Teacher{}, directory.ErrNoHeadOfDepartment
	}
	tchr, ok := repo.db.state.teachers[teacherID]
	if !ok {
		return directory.Teacher{}, directory.ErrNoHeadOfDepartment
	}
	return tchr, nil
}

func (repo *directoryRepository) QueryApproverGroupIDs(ctx context.Context, teacherID string, exec ...core.DBExecutor) ([]string, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	seen := make(map[string]struct{})
	groupIDs := make([]string, 0)
	for _, ga := range repo.db.state.groupApprovers {
		if ga.TeacherID == teacherID {
			if _, ok := seen[ga.GroupID]; !ok {
				seen[ga.GroupID] = struct{}{}
				groupIDs = append(groupIDs, ga.GroupID)
			}
		}
	}
	return groupIDs, nil
}

func (repo *directoryRepository) IncrementOnDutyCount(ctx context.Context, studentIDs []string, exec ...core.DBExecutor) error {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	// set semantics: a repeated id increments once
	seen := make(map[string]struct{}, len(studentIDs))
	for _, id := range studentIDs {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		std, ok := repo.db.state.students[id]
		if !ok {
			return directory.ErrStudentNotFound
		}
		std.OnDutyCount++
		repo.db.state.students[id] = std
	}
	return nil
}
