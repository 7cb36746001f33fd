package authz

import (
	"maps"
	"slices"
)

// Action identifica uma operação protegida. O valor é também o sufixo da
// variável AUTHZ_RULE_<ACTION> que sobrescreve a regra padrão.
type Action string

const (
	ActionGetUser             Action = "get_user"
	ActionUpdateUser          Action = "update_user"
	ActionListUserOrgs        Action = "list_user_orgs"
	ActionReadOrg             Action = "read_org"
	ActionUpdateOrg           Action = "update_org"
	ActionDeleteOrg           Action = "delete_org"
	ActionListOrgMembers      Action = "list_org_members"
	ActionUpdateOrgMemberRole Action = "update_org_member_role"
	ActionDeleteOrgMember     Action = "delete_org_member"
	ActionInviteOrgMember     Action = "invite_org_member"
	ActionListInvitations     Action = "list_invitations"
	ActionCreateWorkspace     Action = "create_workspace"
	ActionListWorkspaces      Action = "list_workspaces"
	ActionUpdateWorkspace     Action = "update_workspace"
	ActionDeleteWorkspace     Action = "delete_workspace"
	ActionListWsMembers       Action = "list_workspace_members"
	ActionManageWsMembers     Action = "manage_workspace_members"
	ActionCreateForm          Action = "create_form"
	ActionReadForms           Action = "read_forms"
	ActionUpdateForm          Action = "update_form"
	ActionDeleteForm          Action = "delete_form"
	ActionUpdateFormFields    Action = "update_form_fields"
)

// Scope define qual linha de membership é consultada.
type Scope int

const (
	// ScopeUser: apenas o próprio usuário.
	ScopeUser Scope = iota
	// ScopeOrg: dono da organização ou membership de org.
	ScopeOrg
	// ScopeWorkspace: dono da organização ou membership de workspace.
	ScopeWorkspace
)

type policy struct {
	scope Scope
	rule  string
}

const (
	anyMember = "true"
	ownerOnly = "false"
)

// defaultPolicies é a tabela de papéis. As regras são expressões CEL sobre
// a variável role.
var defaultPolicies = map[Action]policy{
	ActionGetUser:      {ScopeUser, ownerOnly},
	ActionUpdateUser:   {ScopeUser, ownerOnly},
	ActionListUserOrgs: {ScopeUser, ownerOnly},

	ActionReadOrg:             {ScopeOrg, anyMember},
	ActionUpdateOrg:           {ScopeOrg, ownerOnly},
	ActionDeleteOrg:           {ScopeOrg, ownerOnly},
	ActionListOrgMembers:      {ScopeOrg, anyMember},
	ActionUpdateOrgMemberRole: {ScopeOrg, "role == 'Admin'"},
	ActionDeleteOrgMember:     {ScopeOrg, "role == 'Admin'"},
	ActionInviteOrgMember:     {ScopeOrg, "role == 'Admin'"},
	ActionListInvitations:     {ScopeOrg, anyMember},
	ActionCreateWorkspace:     {ScopeOrg, "role in ['Editor', 'Admin']"},
	ActionListWorkspaces:      {ScopeOrg, anyMember},

	ActionUpdateWorkspace:  {ScopeWorkspace, "role == 'Owner'"},
	ActionDeleteWorkspace:  {ScopeWorkspace, "role == 'Owner'"},
	ActionListWsMembers:    {ScopeWorkspace, anyMember},
	ActionManageWsMembers:  {ScopeWorkspace, "role in ['Owner', 'Admin']"},
	ActionCreateForm:       {ScopeWorkspace, anyMember},
	ActionReadForms:        {ScopeWorkspace, anyMember},
	ActionUpdateForm:       {ScopeWorkspace, "role in ['Owner', 'Admin']"},
	ActionDeleteForm:       {ScopeWorkspace, "role == 'Owner'"},
	ActionUpdateFormFields: {ScopeWorkspace, "role in ['Owner', 'Admin']"},
}

// Actions devolve todas as ações conhecidas, em ordem alfabética.
func Actions() []Action {
	return slices.Sorted(maps.Keys(defaultPolicies))
}
