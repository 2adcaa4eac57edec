package main

import (
	"context"
	"fmt"

	"github.com/volatiletech/null/v8"

	"github.com/trezcool/ruhusa/core/directory"
	"github.com/trezcool/ruhusa/core/workflow"
)

// seed loads a small demo directory: one department, two groups with their
// tutors, a shared lab, an HOD and a handful of students. Expects migrations
// to have run.
func (cli *commandLine) seed() error {
	ctx := context.Background()

	dept, err := cli.dirSvc.CreateDepartment(ctx, "Computer Science")
	if err != nil {
		return err
	}

	grpA, err := cli.dirSvc.CreateGroup(ctx, "CSE-A", dept.ID)
	if err != nil {
		return err
	}
	grpB, err := cli.dirSvc.CreateGroup(ctx, "CSE-B", dept.ID)
	if err != nil {
		return err
	}

	tutorA, err := cli.dirSvc.CreateTeacher(ctx, directory.Teacher{Name: "Alice Mwangi", Email: "alice@demo.cd", DepartmentID: dept.ID})
	if err != nil {
		return err
	}
	tutorB, err := cli.dirSvc.CreateTeacher(ctx, directory.Teacher{Name: "Benoit Kalala", Email: "benoit@demo.cd", DepartmentID: dept.ID})
	if err != nil {
		return err
	}
	incharge, err := cli.dirSvc.CreateTeacher(ctx, directory.Teacher{Name: "Clarisse Ilunga", Email: "clarisse@demo.cd", DepartmentID: dept.ID})
	if err != nil {
		return err
	}
	hod, err := cli.dirSvc.CreateTeacher(ctx, directory.Teacher{Name: "Didier Tshisekedi", Email: "didier@demo.cd", DepartmentID: dept.ID})
	if err != nil {
		return err
	}

	lab, err := cli.dirSvc.CreateLab(ctx, directory.Lab{Name: "Networks Lab", InchargeID: null.StringFrom(incharge.ID)})
	if err != nil {
		return err
	}

	for grpID, tutor := range map[string]directory.Teacher{grpA.ID: tutorA, grpB.ID: tutorB} {
		if _, err = cli.dirSvc.SetGroupApprover(ctx, grpID, string(workflow.RoleTutor), tutor.ID); err != nil {
			return err
		}
	}
	if err = cli.dirSvc.SetHeadOfDepartment(ctx, dept.ID, hod.ID); err != nil {
		return err
	}

	students := []directory.Student{
		{Name: "Esther Kabila", RegNo: "CSE-A-001", Email: "esther@demo.cd", GroupID: grpA.ID},
		{Name: "Fiston Mbuyi", RegNo: "CSE-A-002", Email: "fiston@demo.cd", GroupID: grpA.ID},
		{Name: "Gracia Nzuzi", RegNo: "CSE-B-001", Email: "gracia@demo.cd", GroupID: grpB.ID},
	}
	for _, std := range students {
		if _, err = cli.dirSvc.CreateStudent(ctx, std); err != nil {
			return err
		}
	}

	logger.Printf("seeded department %q, lab %q, %d groups, 4 teachers, %d students\n",
		dept.Name, lab.Name, 2, len(students))
	fmt.Println("done.")
	return nil
}
