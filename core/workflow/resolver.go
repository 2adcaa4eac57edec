package workflow

import (
	"context"

	"github.com/pkg/errors"

	"github.com/trezcool/ruhusa/core"
	"github.com/trezcool/ruhusa/core/directory"
)

var (
	// resolution errors
	ErrApproverNotFound   = errors.New("no approver found for group and role")
	ErrLabInchargeMissing = errors.New("lab has no incharge assigned")
	ErrNoHodForDepartment = errors.New("no head of department designated")
)

// resolveFunc maps (group, role) to the user id of the concrete approving person
// for `req`.
type resolveFunc func(ctx context.Context, dir directory.Repository, groupID string, role Role, req Request, exec ...core.DBExecutor) (string, error)

// roleResolvers holds the special-cased roles; their data sources differ from
// the ordinary per-group approver table (department-wide HOD designation and
// the lab record, respectively).
var roleResolvers = map[Role]resolveFunc{
	RoleHOD:         resolveHeadOfDepartment,
	RoleLabIncharge: resolveLabIncharge,
}

// resolveApprover resolves the approving person for a step. It is invoked at
// request creation (step 0) and again fresh at every transition, never cached,
// so organizational changes made between steps are honored.
func resolveApprover(ctx context.Context, dir directory.Repository, groupID string, role Role, req Request, exec ...core.DBExecutor) (string, error) {
	resolve, ok := roleResolvers[role]
	if !ok {
		resolve = resolveGroupApprover
	}
	return resolve(ctx, dir, groupID, role, req, exec...)
}

func resolveGroupApprover(ctx context.Context, dir directory.Repository, groupID string, role Role, req Request, exec ...core.DBExecutor) (string, error) {
	ga, err := dir.GetGroupApprover(ctx, groupID, string(role), exec...)
	if err != nil {
		if errors.Cause(err) == directory.ErrApproverNotAssigned {
			return "", errors.Wrapf(ErrApproverNotFound, "group %s, role %s", groupID, role)
		}
		return "", errors.Wrapf(err, "getting approver for group %s, role %s", groupID, role)
	}
	tchr, err := dir.GetTeacherByID(ctx, ga.TeacherID, exec...)
	if err != nil {
		return "", errors.Wrapf(err, "getting teacher %s", ga.TeacherID)
	}
	return tchr.UserID, nil
}

func resolveHeadOfDepartment(ctx context.Context, dir directory.Repository, groupID string, role Role, req Request, exec ...core.DBExecutor) (string, error) {
	grp, err := dir.GetGroupByID(ctx, groupID, exec...)
	if err != nil {
		return "", errors.Wrapf(err, "getting group %s", groupID)
	}
	hod, err := dir.GetHeadOfDepartment(ctx, grp.DepartmentID, exec...)
	if err != nil {
		if errors.Cause(err) == directory.ErrNoHeadOfDepartment {
			return "", errors.Wrapf(ErrNoHodForDepartment, "department %s", grp.DepartmentID)
		}
		return "", errors.Wrapf(err, "getting HOD of department %s", grp.DepartmentID)
	}
	return hod.UserID, nil
}

func resolveLabIncharge(ctx context.Context, dir directory.Repository, groupID string, role Role, req Request, exec ...core.DBExecutor) (string, error) {
	// the lab record only applies when the request actually needs lab access
	if !req.NeedsLab || !req.LabID.Valid {
		return resolveGroupApprover(ctx, dir, groupID, role, req, exec...)
	}
	lab, err := dir.GetLabByID(ctx, req.LabID.String, exec...)
	if err != nil {
		return "", errors.Wrapf(err, "getting lab %s", req.LabID.String)
	}
	if !lab.InchargeID.Valid {
		return "", errors.Wrapf(ErrLabInchargeMissing, "lab %s", lab.ID)
	}
	tchr, err := dir.GetTeacherByID(ctx, lab.InchargeID.String, exec...)
	if err != nil {
		return "", errors.Wrapf(err, "getting lab incharge %s", lab.InchargeID.String)
	}
	return tchr.UserID, nil
}
