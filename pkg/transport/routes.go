package transport

import (
	"context"
	"net/http"

	"github.com/raywall/form-builder-service/pkg/handler"
)

// HandlerFunc é a assinatura comum dos comandos expostos por HTTP.
type HandlerFunc func(ctx context.Context, req handler.Request) (any, error)

// Route liga um comando a um método e caminho. O nome aparece nos logs e
// como tag das métricas.
type Route struct {
	Name   string
	Method string
	Path   string
	Handle HandlerFunc
}

const (
	orgPath       = "/organizations/{orgId}"
	workspacePath = orgPath + "/workspaces/{workspaceId}"
	formPath      = workspacePath + "/forms/{formId}"
)

func Routes(h *handler.Handler) []Route {
	return []Route{
		{"signup", http.MethodPost, "/auth/signup", h.Signup},

		{"get_user", http.MethodGet, "/users/{userId}", h.GetUser},
		{"update_user", http.MethodPatch, "/users/{userId}", h.UpdateUser},
		{"list_user_orgs", http.MethodGet, "/users/{userId}/organizations", h.ListUserOrganizations},

		{"get_org", http.MethodGet, orgPath, h.GetOrganization},
		{"update_org", http.MethodPatch, orgPath, h.UpdateOrganization},
		{"delete_org", http.MethodDelete, orgPath, h.DeleteOrganization},
		{"list_org_members", http.MethodGet, orgPath + "/members", h.ListOrgMembers},
		{"update_org_member_role", http.MethodPatch, orgPath + "/members/{userId}", h.UpdateOrgMemberRole},
		{"delete_org_member", http.MethodDelete, orgPath + "/members/{userId}", h.DeleteOrgMember},

		{"create_invitation", http.MethodPost, orgPath + "/invitations", h.CreateInvitation},
		{"list_org_invitations", http.MethodGet, orgPath + "/invitations", h.ListOrgInvitations},
		{"respond_invitation", http.MethodPost, orgPath + "/invitations/respond", h.RespondInvitation},
		{"list_my_invitations", http.MethodGet, "/invitations", h.ListMyInvitations},

		{"create_workspace", http.MethodPost, orgPath + "/workspaces", h.CreateWorkspace},
		{"list_workspaces", http.MethodGet, orgPath + "/workspaces", h.ListWorkspaces},
		{"update_workspace", http.MethodPatch, workspacePath, h.UpdateWorkspace},
		{"delete_workspace", http.MethodDelete, workspacePath, h.DeleteWorkspace},
		{"list_workspace_members", http.MethodGet, workspacePath + "/members", h.ListWorkspaceMembers},
		{"add_workspace_member", http.MethodPost, workspacePath + "/members", h.AddWorkspaceMember},
		{"remove_workspace_member", http.MethodDelete, workspacePath + "/members/{userId}", h.RemoveWorkspaceMember},

		{"create_form", http.MethodPost, workspacePath + "/forms", h.CreateForm},
		{"list_forms", http.MethodGet, workspacePath + "/forms", h.ListForms},
		{"get_form", http.MethodGet, formPath, h.GetForm},
		{"update_form", http.MethodPatch, formPath, h.UpdateForm},
		{"delete_form", http.MethodDelete, formPath, h.DeleteForm},
		{"get_form_fields", http.MethodGet, formPath + "/fields", h.GetFormFields},
		{"update_form_fields", http.MethodPut, formPath + "/fields", h.UpdateFormFields},
	}
}
