package handler

import (
	"context"
	"errors"

	"github.com/raywall/form-builder-service/dyndb"
	"github.com/raywall/form-builder-service/pkg/apperr"
	"github.com/raywall/form-builder-service/pkg/authz"
	"github.com/raywall/form-builder-service/pkg/models"
)

var userFields = map[string]fieldRule{
	"firstName": nameField,
	"lastName":  nameField,
}

func (h *Handler) GetUser(ctx context.Context, req Request) (any, error) {
	if err := requireParams(req, "userId"); err != nil {
		return nil, err
	}
	userID := req.Param("userId")
	if _, err := h.authorize(ctx, req, authz.ActionGetUser, authz.Target{UserID: userID}); err != nil {
		return nil, err
	}

	user, err := h.repo.GetUser(ctx, userID)
	if err != nil {
		return nil, storeErr(err, "user")
	}
	return user, nil
}

// UpdateUser altera apenas nome e sobrenome; o reator replica a mudança nas
// memberships do usuário.
func (h *Handler) UpdateUser(ctx context.Context, req Request) (any, error) {
	if err := requireParams(req, "userId"); err != nil {
		return nil, err
	}
	userID := req.Param("userId")
	if _, err := h.authorize(ctx, req, authz.ActionUpdateUser, authz.Target{UserID: userID}); err != nil {
		return nil, err
	}

	upd, err := h.buildUpdate(req, userFields)
	if err != nil {
		return nil, err
	}
	if err := h.repo.UpdateUser(ctx, userID, upd); err != nil {
		return nil, conditional(err, apperr.NotFound("user"), "user")
	}
	return &Message{Message: "user updated successfully"}, nil
}

// OrgSummary descreve uma organização acessível ao usuário.
type OrgSummary struct {
	OrgID string      `json:"orgId"`
	Name  string      `json:"name"`
	Role  models.Role `json:"role"`
	Owned bool        `json:"owned"`
}

// ListUserOrganizations devolve a organização do próprio usuário seguida das
// organizações em que ele é membro.
func (h *Handler) ListUserOrganizations(ctx context.Context, req Request) (any, error) {
	if err := requireParams(req, "userId"); err != nil {
		return nil, err
	}
	userID := req.Param("userId")
	if _, err := h.authorize(ctx, req, authz.ActionListUserOrgs, authz.Target{UserID: userID}); err != nil {
		return nil, err
	}

	orgs := []OrgSummary{}
	own, err := h.repo.GetOrganization(ctx, userID)
	switch {
	case err == nil:
		orgs = append(orgs, OrgSummary{OrgID: own.OrgID, Name: own.Name, Role: models.RoleOwner, Owned: true})
	case !errors.Is(err, dyndb.ErrNotFound):
		return nil, storeErr(err, "organization")
	}

	members, err := h.repo.ListUserOrgMemberships(ctx, userID)
	if err != nil {
		return nil, storeErr(err, "organization")
	}
	for _, m := range members {
		orgs = append(orgs, OrgSummary{OrgID: m.OrgID, Name: m.OrgName, Role: m.Role})
	}
	return orgs, nil
}
