package handler

import (
	"context"
	"errors"

	"github.com/raywall/form-builder-service/dyndb"
	"github.com/raywall/form-builder-service/pkg/apperr"
	"github.com/raywall/form-builder-service/pkg/authz"
	"github.com/raywall/form-builder-service/pkg/models"
)

var workspaceFields = map[string]fieldRule{
	"name":       nameField,
	"bookmarked": boolField,
}

type workspaceBody struct {
	Name string `json:"name" validate:"required"`
}

type workspaceMemberBody struct {
	UserID string      `json:"userId" validate:"required"`
	Role   models.Role `json:"role" validate:"required,oneof=Owner Admin Editor"`
}

func workspaceTarget(req Request) authz.Target {
	return authz.Target{OrgID: req.Param("orgId"), WorkspaceID: req.Param("workspaceId")}
}

// requireWorkspace garante que o workspace existe dentro da organização do
// caminho. Formulários são chaveados só pelo workspace, então a checagem
// impede o acesso cruzado entre organizações.
func (h *Handler) requireWorkspace(ctx context.Context, orgID, workspaceID string) (*models.Workspace, error) {
	ws, err := h.repo.GetWorkspace(ctx, orgID, workspaceID)
	if err != nil {
		return nil, storeErr(err, "workspace")
	}
	return ws, nil
}

// CreateWorkspace cria o workspace. Quem não é dono da organização passa a
// ser Owner do workspace criado.
func (h *Handler) CreateWorkspace(ctx context.Context, req Request) (any, error) {
	if err := requireParams(req, "orgId"); err != nil {
		return nil, err
	}
	orgID := req.Param("orgId")
	if _, err := h.authorize(ctx, req, authz.ActionCreateWorkspace, authz.Target{OrgID: orgID}); err != nil {
		return nil, err
	}

	var body workspaceBody
	if err := h.decode(req, &body); err != nil {
		return nil, err
	}

	now := h.timestamp()
	ws, err := models.NewWorkspace(orgID, h.newID(), body.Name, req.Caller.UserID, now)
	if err != nil {
		return nil, storeErr(err, "workspace")
	}
	if err := h.repo.CreateWorkspace(ctx, ws); err != nil {
		return nil, conditional(err, apperr.Conflict("workspace already exists"), "workspace")
	}

	if req.Caller.UserID != orgID {
		profile, err := h.callerProfile(ctx, req.Caller)
		if err != nil {
			return nil, err
		}
		m, err := models.NewWorkspaceMember(orgID, ws.WorkspaceID, profile, models.RoleOwner, req.Caller.UserID, now)
		if err != nil {
			return nil, storeErr(err, "workspace member")
		}
		if err := h.repo.AddWorkspaceMember(ctx, m); err != nil {
			return nil, storeErr(err, "workspace member")
		}
	}
	return &ws, nil
}

// ListWorkspaces devolve todos os workspaces ao dono e, aos demais, apenas
// aqueles em que têm membership.
func (h *Handler) ListWorkspaces(ctx context.Context, req Request) (any, error) {
	if err := requireParams(req, "orgId"); err != nil {
		return nil, err
	}
	orgID := req.Param("orgId")
	if _, err := h.authorize(ctx, req, authz.ActionListWorkspaces, authz.Target{OrgID: orgID}); err != nil {
		return nil, err
	}

	all, err := h.repo.ListWorkspaces(ctx, orgID)
	if err != nil {
		return nil, storeErr(err, "workspaces")
	}
	if req.Caller.UserID == orgID {
		return all, nil
	}

	memberships, err := h.repo.ListUserWorkspaceMemberships(ctx, req.Caller.UserID, orgID)
	if err != nil {
		return nil, storeErr(err, "workspaces")
	}
	visible := make(map[string]struct{}, len(memberships))
	for _, m := range memberships {
		visible[m.WorkspaceID] = struct{}{}
	}

	out := make([]models.Workspace, 0, len(visible))
	for _, ws := range all {
		if _, ok := visible[ws.WorkspaceID]; ok {
			out = append(out, ws)
		}
	}
	return out, nil
}

func (h *Handler) UpdateWorkspace(ctx context.Context, req Request) (any, error) {
	if err := requireParams(req, "orgId", "workspaceId"); err != nil {
		return nil, err
	}
	target := workspaceTarget(req)
	if _, err := h.authorize(ctx, req, authz.ActionUpdateWorkspace, target); err != nil {
		return nil, err
	}

	upd, err := h.buildUpdate(req, workspaceFields)
	if err != nil {
		return nil, err
	}
	if err := h.repo.UpdateWorkspace(ctx, target.OrgID, target.WorkspaceID, upd); err != nil {
		return nil, conditional(err, apperr.NotFound("workspace"), "workspace")
	}
	return &Message{Message: "workspace updated successfully"}, nil
}

// DeleteWorkspace remove o workspace; membros e formulários saem em cascata
// pelo reator.
func (h *Handler) DeleteWorkspace(ctx context.Context, req Request) (any, error) {
	if err := requireParams(req, "orgId", "workspaceId"); err != nil {
		return nil, err
	}
	target := workspaceTarget(req)
	if _, err := h.authorize(ctx, req, authz.ActionDeleteWorkspace, target); err != nil {
		return nil, err
	}

	if err := h.repo.DeleteWorkspace(ctx, target.OrgID, target.WorkspaceID); err != nil {
		return nil, conditional(err, apperr.NotFound("workspace"), "workspace")
	}
	return &Message{Message: "workspace deleted successfully"}, nil
}

func (h *Handler) ListWorkspaceMembers(ctx context.Context, req Request) (any, error) {
	if err := requireParams(req, "orgId", "workspaceId"); err != nil {
		return nil, err
	}
	target := workspaceTarget(req)
	if _, err := h.authorize(ctx, req, authz.ActionListWsMembers, target); err != nil {
		return nil, err
	}
	if _, err := h.requireWorkspace(ctx, target.OrgID, target.WorkspaceID); err != nil {
		return nil, err
	}

	members, err := h.repo.ListWorkspaceMembers(ctx, target.WorkspaceID)
	if err != nil {
		return nil, storeErr(err, "workspace members")
	}
	return members, nil
}

// AddWorkspaceMember dá acesso ao workspace a um membro da organização.
func (h *Handler) AddWorkspaceMember(ctx context.Context, req Request) (any, error) {
	if err := requireParams(req, "orgId", "workspaceId"); err != nil {
		return nil, err
	}
	target := workspaceTarget(req)
	decision, err := h.authorize(ctx, req, authz.ActionManageWsMembers, target)
	if err != nil {
		return nil, err
	}

	var body workspaceMemberBody
	if err := h.decode(req, &body); err != nil {
		return nil, err
	}
	if !decision.Role.Grants(body.Role) {
		return nil, apperr.Forbidden(string(authz.ActionManageWsMembers))
	}
	if body.UserID == target.OrgID {
		return nil, apperr.Conflict("the organization owner already has access to every workspace")
	}
	if _, err := h.requireWorkspace(ctx, target.OrgID, target.WorkspaceID); err != nil {
		return nil, err
	}

	om, err := h.repo.GetOrgMember(ctx, target.OrgID, body.UserID)
	if errors.Is(err, dyndb.ErrNotFound) {
		return nil, apperr.Validation("user is not a member of the organization")
	}
	if err != nil {
		return nil, storeErr(err, "member")
	}

	profile := models.Profile{UserID: om.UserID, FirstName: om.FirstName, LastName: om.LastName, Email: om.Email}
	m, err := models.NewWorkspaceMember(target.OrgID, target.WorkspaceID, profile, body.Role, req.Caller.UserID, h.timestamp())
	if err != nil {
		return nil, storeErr(err, "workspace member")
	}
	if err := h.repo.AddWorkspaceMember(ctx, m); err != nil {
		return nil, conditional(err, apperr.Conflict("user is already a member of the workspace"), "workspace member")
	}
	return &Message{Message: "workspace member added successfully"}, nil
}

func (h *Handler) RemoveWorkspaceMember(ctx context.Context, req Request) (any, error) {
	if err := requireParams(req, "orgId", "workspaceId", "userId"); err != nil {
		return nil, err
	}
	target := workspaceTarget(req)
	if _, err := h.authorize(ctx, req, authz.ActionManageWsMembers, target); err != nil {
		return nil, err
	}
	if _, err := h.requireWorkspace(ctx, target.OrgID, target.WorkspaceID); err != nil {
		return nil, err
	}

	if err := h.repo.DeleteWorkspaceMember(ctx, target.WorkspaceID, req.Param("userId")); err != nil {
		return nil, conditional(err, apperr.NotFound("workspace member"), "workspace member")
	}
	return &Message{Message: "workspace member removed successfully"}, nil
}
