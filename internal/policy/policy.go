// Package policy decides which role may perform which action on which
// resource. Every mutation in the services is checked here.
package policy

import (
	_ "embed"
	"fmt"

	"github.com/casbin/casbin/v2"
	casbinmodel "github.com/casbin/casbin/v2/model"
	"github.com/stemsi/perizinan-backend/internal/model"
)

//go:embed model.conf
var modelContent string

// Object is a protected resource.
type Object string

const (
	ObjectPerizinan Object = "perizinan"
	ObjectStudents  Object = "students"
	ObjectTeachers  Object = "teachers"
	ObjectSchedules Object = "schedules"
	ObjectReports   Object = "reports"
	ObjectBackup    Object = "backup"
	ObjectMedia     Object = "media"
)

// Action is an operation on an Object.
type Action string

const (
	ActionRead   Action = "read"
	ActionCreate Action = "create"
	ActionEdit   Action = "edit"
	ActionDecide Action = "decide"
	ActionDelete Action = "delete"
	ActionManage Action = "manage"
	ActionExport Action = "export"
	ActionUpload Action = "upload"
)

type rule struct {
	role   model.Role
	object Object
	action Action
}

var defaultRules = []rule{
	{model.RoleSubmitter, ObjectPerizinan, ActionCreate},
	{model.RoleSubmitter, ObjectPerizinan, ActionEdit},
	{model.RoleApprover, ObjectPerizinan, ActionEdit},
	{model.RoleApprover, ObjectPerizinan, ActionDecide},
	{model.RoleSubmitter, ObjectPerizinan, ActionDelete},
	{model.RoleAdmin, ObjectPerizinan, ActionDelete},
	{model.RoleAdmin, ObjectPerizinan, ActionRead},
	{model.RoleApprover, ObjectPerizinan, ActionRead},
	{model.RoleSubmitter, ObjectPerizinan, ActionRead},

	{model.RoleAdmin, ObjectStudents, ActionManage},
	{model.RoleAdmin, ObjectStudents, ActionRead},
	{model.RoleApprover, ObjectStudents, ActionRead},
	{model.RoleSubmitter, ObjectStudents, ActionRead},

	{model.RoleAdmin, ObjectTeachers, ActionManage},

	{model.RoleAdmin, ObjectSchedules, ActionManage},
	{model.RoleAdmin, ObjectSchedules, ActionRead},
	{model.RoleApprover, ObjectSchedules, ActionRead},
	{model.RoleSubmitter, ObjectSchedules, ActionRead},

	{model.RoleAdmin, ObjectReports, ActionExport},
	{model.RoleAdmin, ObjectBackup, ActionManage},

	{model.RoleSubmitter, ObjectMedia, ActionUpload},
	{model.RoleApprover, ObjectMedia, ActionUpload},
}

// Enforcer evaluates the role policy.
type Enforcer struct {
	e *casbin.SyncedEnforcer
}

// New creates an Enforcer loaded with the built-in rules.
func New() (*Enforcer, error) {
	m, err := casbinmodel.NewModelFromString(modelContent)
	if err != nil {
		return nil, fmt.Errorf("parse casbin model: %w", err)
	}

	e, err := casbin.NewSyncedEnforcer(m)
	if err != nil {
		return nil, fmt.Errorf("create casbin enforcer: %w", err)
	}

	rules := make([][]string, 0, len(defaultRules))
	for _, r := range defaultRules {
		rules = append(rules, []string{string(r.role), string(r.object), string(r.action)})
	}
	if _, err := e.AddPolicies(rules); err != nil {
		return nil, fmt.Errorf("load casbin policies: %w", err)
	}

	return &Enforcer{e: e}, nil
}

// Allowed reports whether role may perform act on obj. An enforcement error
// denies.
func (p *Enforcer) Allowed(role model.Role, obj Object, act Action) bool {
	ok, err := p.e.Enforce(string(role), string(obj), string(act))
	return err == nil && ok
}

// Roles lists the recognized roles allowed to perform act on obj.
func (p *Enforcer) Roles(obj Object, act Action) []model.Role {
	var roles []model.Role
	for _, r := range model.AllRoles {
		if p.Allowed(r, obj, act) {
			roles = append(roles, r)
		}
	}
	return roles
}
