package testutil

import (
	"context"
	"testing"
	"time"

	"github.com/volatiletech/null/v8"

	"github.com/trezcool/ruhusa/core"
	"github.com/trezcool/ruhusa/core/directory"
	"github.com/trezcool/ruhusa/core/workflow"
	dummydb "github.com/trezcool/ruhusa/storage/database/dummy"
)

// Conf installs a deterministic test configuration and returns it.
func Conf() *core.Config {
	if core.Conf == nil {
		core.Conf = &core.Config{
			TestMode:        true,
			Env:             "TEST",
			AppName:         "Ruhusa",
			SecretKey:       "t35t-53cr3t-k3y",
			DefaultFromName: "Ruhusa",
			DefaultFromAddr: "noreply@test.cd",
			Server: core.ServerConfig{
				Host:               "localhost",
				Port:               "8000",
				JWTExpirationDelta: time.Hour,
				ShutdownTimeout:    time.Second,
			},
		}
	}
	return core.Conf
}

// Env wires the dummy store with the domain services, flow templates seeded.
type Env struct {
	DB      *dummydb.DB
	DirRepo directory.Repository
	WfRepo  *dummydb.WorkflowRepository
	DirSvc  *directory.Service
	WfSvc   *workflow.Service
}

func NewEnv(t *testing.T) *Env {
	t.Helper()
	Conf()

	db, err := dummydb.Open()
	if err != nil {
		t.Fatalf("opening dummy DB: %v", err)
	}
	dirRepo := dummydb.NewDirectoryRepository(db)
	wfRepo := dummydb.NewWorkflowRepository(db)
	wfRepo.SeedFlowTemplate(workflow.FlowWithLab, workflow.RoleTutor, workflow.RoleLabIncharge, workflow.RoleHOD)
	wfRepo.SeedFlowTemplate(workflow.FlowWithoutLab, workflow.RoleTutor, workflow.RoleHOD)

	return &Env{
		DB:      db,
		DirRepo: dirRepo,
		WfRepo:  wfRepo,
		DirSvc:  directory.NewService(dirRepo),
		WfSvc:   workflow.NewService(db, wfRepo, dirRepo, nil),
	}
}

// Classroom is the shared directory fixture: one department, two groups with
// their tutors, a lab with an incharge and a designated HOD.
type Classroom struct {
	Dept             directory.Department
	GroupA, GroupB   directory.Group
	TutorA, TutorB   directory.Teacher
	Incharge, HOD    directory.Teacher
	StudentA1        directory.Student
	StudentA2        directory.Student
	StudentB1        directory.Student
	Lab              directory.Lab
}

func SeedClassroom(t *testing.T, env *Env) Classroom {
	t.Helper()
	ctx := testCtx()

	var cls Classroom
	var err error

	if cls.Dept, err = env.DirSvc.CreateDepartment(ctx, "Computer Science"); err != nil {
		t.Fatalf("creating department: %v", err)
	}
	if cls.GroupA, err = env.DirSvc.CreateGroup(ctx, "CSE-A", cls.Dept.ID); err != nil {
		t.Fatalf("creating group: %v", err)
	}
	if cls.GroupB, err = env.DirSvc.CreateGroup(ctx, "CSE-B", cls.Dept.ID); err != nil {
		t.Fatalf("creating group: %v", err)
	}

	cls.TutorA = CreateTeacher(t, env, "Tutor A", cls.Dept.ID)
	cls.TutorB = CreateTeacher(t, env, "Tutor B", cls.Dept.ID)
	cls.Incharge = CreateTeacher(t, env, "Lab Incharge", cls.Dept.ID)
	cls.HOD = CreateTeacher(t, env, "Head of Dept", cls.Dept.ID)

	if cls.Lab, err = env.DirSvc.CreateLab(ctx, directory.Lab{Name: "Networks Lab", InchargeID: null.StringFrom(cls.Incharge.ID)}); err != nil {
		t.Fatalf("creating lab: %v", err)
	}

	if _, err = env.DirSvc.SetGroupApprover(ctx, cls.GroupA.ID, string(workflow.RoleTutor), cls.TutorA.ID); err != nil {
		t.Fatalf("assigning tutor: %v", err)
	}
	if _, err = env.DirSvc.SetGroupApprover(ctx, cls.GroupB.ID, string(workflow.RoleTutor), cls.TutorB.ID); err != nil {
		t.Fatalf("assigning tutor: %v", err)
	}
	if err = env.DirSvc.SetHeadOfDepartment(ctx, cls.Dept.ID, cls.HOD.ID); err != nil {
		t.Fatalf("designating HOD: %v", err)
	}

	cls.StudentA1 = CreateStudent(t, env, "Student A1", cls.GroupA.ID)
	cls.StudentA2 = CreateStudent(t, env, "Student A2", cls.GroupA.ID)
	cls.StudentB1 = CreateStudent(t, env, "Student B1", cls.GroupB.ID)
	return cls
}

func testCtx() context.Context { return context.Background() }

// NewOnDutyRequest builds a valid on-duty submission for the given students.
func NewOnDutyRequest(submitterUserID string, needsLab bool, labID string, studentIDs ...string) workflow.NewRequest {
	start := time.Now().UTC().Add(24 * time.Hour)
	return workflow.NewRequest{
		Type:        workflow.TypeOnDuty,
		Reason:      "hackathon",
		NeedsLab:    needsLab,
		LabID:       labID,
		StartDate:   start,
		EndDate:     start.Add(8 * time.Hour),
		StudentIDs:  studentIDs,
		SubmitterID: submitterUserID,
	}
}

func CreateTeacher(t *testing.T, env *Env, name, deptID string) directory.Teacher {
	t.Helper()
	tchr, err := env.DirSvc.CreateTeacher(testCtx(), directory.Teacher{Name: name, DepartmentID: deptID})
	if err != nil {
		t.Fatalf("creating teacher %q: %v", name, err)
	}
	return tchr
}

func CreateStudent(t *testing.T, env *Env, name, groupID string) directory.Student {
	t.Helper()
	std, err := env.DirSvc.CreateStudent(testCtx(), directory.Student{Name: name, GroupID: groupID})
	if err != nil {
		t.Fatalf("creating student %q: %v", name, err)
	}
	return std
}
