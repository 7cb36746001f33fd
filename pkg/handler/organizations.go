package handler

import (
	"context"
	"errors"

	"github.com/rs/zerolog/log"

	"github.com/raywall/form-builder-service/dyndb"
	"github.com/raywall/form-builder-service/pkg/apperr"
	"github.com/raywall/form-builder-service/pkg/authz"
	"github.com/raywall/form-builder-service/pkg/models"
)

var orgFields = map[string]fieldRule{
	"name": nameField,
}

type roleBody struct {
	Role models.Role `json:"role" validate:"required"`
}

func (h *Handler) GetOrganization(ctx context.Context, req Request) (any, error) {
	if err := requireParams(req, "orgId"); err != nil {
		return nil, err
	}
	orgID := req.Param("orgId")
	if _, err := h.authorize(ctx, req, authz.ActionReadOrg, authz.Target{OrgID: orgID}); err != nil {
		return nil, err
	}

	org, err := h.repo.GetOrganization(ctx, orgID)
	if err != nil {
		return nil, storeErr(err, "organization")
	}
	return org, nil
}

// UpdateOrganization renomeia a organização. O novo nome chega às
// memberships e convites pelo reator.
func (h *Handler) UpdateOrganization(ctx context.Context, req Request) (any, error) {
	if err := requireParams(req, "orgId"); err != nil {
		return nil, err
	}
	orgID := req.Param("orgId")
	if _, err := h.authorize(ctx, req, authz.ActionUpdateOrg, authz.Target{OrgID: orgID}); err != nil {
		return nil, err
	}

	upd, err := h.buildUpdate(req, orgFields)
	if err != nil {
		return nil, err
	}
	if err := h.repo.UpdateOrganization(ctx, orgID, upd); err != nil {
		return nil, conditional(err, apperr.NotFound("organization"), "organization")
	}
	return &Message{Message: "organization updated successfully"}, nil
}

// DeleteOrganization remove a linha raiz; membros, convites e workspaces
// são removidos em cascata pelo reator.
func (h *Handler) DeleteOrganization(ctx context.Context, req Request) (any, error) {
	if err := requireParams(req, "orgId"); err != nil {
		return nil, err
	}
	orgID := req.Param("orgId")
	if _, err := h.authorize(ctx, req, authz.ActionDeleteOrg, authz.Target{OrgID: orgID}); err != nil {
		return nil, err
	}

	if err := h.repo.DeleteOrganization(ctx, orgID); err != nil {
		return nil, conditional(err, apperr.NotFound("organization"), "organization")
	}
	log.Ctx(ctx).Info().Str("org_id", orgID).Msg("organização removida")
	return &Message{Message: "organization deleted successfully"}, nil
}

// ListOrgMembers devolve o dono seguido dos membros.
func (h *Handler) ListOrgMembers(ctx context.Context, req Request) (any, error) {
	if err := requireParams(req, "orgId"); err != nil {
		return nil, err
	}
	orgID := req.Param("orgId")
	if _, err := h.authorize(ctx, req, authz.ActionListOrgMembers, authz.Target{OrgID: orgID}); err != nil {
		return nil, err
	}

	org, err := h.repo.GetOrganization(ctx, orgID)
	if err != nil {
		return nil, storeErr(err, "organization")
	}
	members, err := h.repo.ListOrgMembers(ctx, orgID)
	if err != nil {
		return nil, storeErr(err, "organization members")
	}

	owner := models.OrgMember{OrgID: orgID, UserID: orgID, Role: models.RoleOwner, OrgName: org.Name, CreatedAt: org.CreatedAt}
	user, err := h.repo.GetUser(ctx, orgID)
	switch {
	case err == nil:
		owner.FirstName, owner.LastName, owner.Email = user.FirstName, user.LastName, user.Email
	case !errors.Is(err, dyndb.ErrNotFound):
		return nil, storeErr(err, "user")
	}
	return append([]models.OrgMember{owner}, members...), nil
}

func (h *Handler) UpdateOrgMemberRole(ctx context.Context, req Request) (any, error) {
	if err := requireParams(req, "orgId", "userId"); err != nil {
		return nil, err
	}
	orgID, userID := req.Param("orgId"), req.Param("userId")
	if _, err := h.authorize(ctx, req, authz.ActionUpdateOrgMemberRole, authz.Target{OrgID: orgID}); err != nil {
		return nil, err
	}

	var body roleBody
	if err := h.decode(req, &body); err != nil {
		return nil, err
	}
	if !body.Role.Assignable() {
		return nil, apperr.Validation("invalid role %q", body.Role)
	}
	if userID == orgID {
		return nil, apperr.ForbiddenConflict("the organization owner role cannot be changed")
	}

	upd := dyndb.NewUpdate().Set("role", body.Role).Set("updatedAt", h.timestamp())
	if err := h.repo.UpdateOrgMember(ctx, orgID, userID, upd); err != nil {
		return nil, conditional(err, apperr.NotFound("member"), "member")
	}
	return &Message{Message: "member role updated successfully"}, nil
}

// DeleteOrgMember remove o vínculo; as memberships de workspace do usuário
// nessa organização saem em cascata pelo reator.
func (h *Handler) DeleteOrgMember(ctx context.Context, req Request) (any, error) {
	if err := requireParams(req, "orgId", "userId"); err != nil {
		return nil, err
	}
	orgID, userID := req.Param("orgId"), req.Param("userId")
	if _, err := h.authorize(ctx, req, authz.ActionDeleteOrgMember, authz.Target{OrgID: orgID}); err != nil {
		return nil, err
	}
	if userID == orgID {
		return nil, apperr.ForbiddenConflict("the organization owner cannot be removed")
	}

	if err := h.repo.DeleteOrgMember(ctx, orgID, userID); err != nil {
		return nil, conditional(err, apperr.NotFound("member"), "member")
	}
	return &Message{Message: "member removed successfully"}, nil
}
