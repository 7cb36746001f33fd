package handler

import (
	"context"
	"errors"
	"slices"

	"github.com/rs/zerolog/log"

	"github.com/raywall/form-builder-service/dyndb"
	"github.com/raywall/form-builder-service/keyspace"
	"github.com/raywall/form-builder-service/pkg/apperr"
	"github.com/raywall/form-builder-service/pkg/authz"
	"github.com/raywall/form-builder-service/pkg/models"
)

const (
	msgAlreadyMember    = "Member with similar email already exists in the organization."
	msgInvited          = "Member invited successfully!"
	msgInvitationAnswer = "Invitation response submitted successfully!"
)

type invitationBody struct {
	Email string      `json:"email" validate:"required,email"`
	Role  models.Role `json:"role" validate:"required"`
}

type invitationResponseBody struct {
	Accepted *bool `json:"accepted" validate:"required"`
}

// CreateInvitation registra o convite e avisa o convidado por e-mail.
func (h *Handler) CreateInvitation(ctx context.Context, req Request) (any, error) {
	if err := requireParams(req, "orgId"); err != nil {
		return nil, err
	}
	orgID := req.Param("orgId")
	if _, err := h.authorize(ctx, req, authz.ActionInviteOrgMember, authz.Target{OrgID: orgID}); err != nil {
		return nil, err
	}

	var body invitationBody
	if err := h.decode(req, &body); err != nil {
		return nil, err
	}
	if !body.Role.Assignable() {
		return nil, apperr.Validation("invalid role %q", body.Role)
	}
	email := keyspace.NormalizeEmail(body.Email)

	org, err := h.repo.GetOrganization(ctx, orgID)
	if err != nil {
		return nil, storeErr(err, "organization")
	}
	member, err := h.isOrgMember(ctx, orgID, email)
	if err != nil {
		return nil, err
	}
	if member {
		return nil, apperr.ForbiddenConflict(msgAlreadyMember)
	}

	inviter, err := h.callerProfile(ctx, req.Caller)
	if err != nil {
		return nil, err
	}
	inv, err := models.NewInvitation(orgID, org.Name, email, body.Role, inviter, h.timestamp())
	if err != nil {
		return nil, storeErr(err, "invitation")
	}
	if err := h.repo.CreateInvitation(ctx, inv); err != nil {
		return nil, conditional(err, apperr.Conflict("an invitation is already pending for %s", email), "invitation")
	}

	h.notifier.Invitation(ctx, inv)
	return &Message{Message: msgInvited}, nil
}

// isOrgMember compara o e-mail com o do dono e com o de cada membro.
func (h *Handler) isOrgMember(ctx context.Context, orgID, email string) (bool, error) {
	owner, err := h.repo.GetUser(ctx, orgID)
	switch {
	case err == nil:
		if owner.Email == email {
			return true, nil
		}
	case !errors.Is(err, dyndb.ErrNotFound):
		return false, storeErr(err, "user")
	}

	members, err := h.repo.ListOrgMembers(ctx, orgID)
	if err != nil {
		return false, storeErr(err, "organization members")
	}
	return slices.ContainsFunc(members, func(m models.OrgMember) bool {
		return m.Email == email
	}), nil
}

func (h *Handler) ListOrgInvitations(ctx context.Context, req Request) (any, error) {
	if err := requireParams(req, "orgId"); err != nil {
		return nil, err
	}
	orgID := req.Param("orgId")
	if _, err := h.authorize(ctx, req, authz.ActionListInvitations, authz.Target{OrgID: orgID}); err != nil {
		return nil, err
	}

	invs, err := h.repo.ListOrgInvitations(ctx, orgID)
	if err != nil {
		return nil, storeErr(err, "invitations")
	}
	return invs, nil
}

// ListMyInvitations devolve os convites pendentes para o e-mail do chamador.
func (h *Handler) ListMyInvitations(ctx context.Context, req Request) (any, error) {
	if req.Caller.UserID == "" {
		return nil, apperr.Forbidden("list_my_invitations")
	}
	if req.Caller.Email == "" {
		return []models.Invitation{}, nil
	}

	invs, err := h.repo.ListInvitationsByEmail(ctx, keyspace.NormalizeEmail(req.Caller.Email))
	if err != nil {
		return nil, storeErr(err, "invitations")
	}
	return invs, nil
}

// RespondInvitation consome o convite do chamador. O convite é removido em
// qualquer desfecho e o autor é avisado da resposta.
func (h *Handler) RespondInvitation(ctx context.Context, req Request) (any, error) {
	if err := requireParams(req, "orgId"); err != nil {
		return nil, err
	}
	if req.Caller.UserID == "" || req.Caller.Email == "" {
		return nil, apperr.Forbidden("respond_invitation")
	}
	orgID := req.Param("orgId")
	email := keyspace.NormalizeEmail(req.Caller.Email)

	var body invitationResponseBody
	if err := h.decode(req, &body); err != nil {
		return nil, err
	}

	inv, err := h.repo.GetInvitation(ctx, orgID, email)
	if err != nil {
		return nil, storeErr(err, "invitation")
	}

	var joinErr error
	if *body.Accepted {
		joinErr = h.join(ctx, req.Caller, *inv)
	}

	if err := h.repo.DeleteInvitation(ctx, orgID, email); err != nil {
		return nil, storeErr(err, "invitation")
	}
	if joinErr != nil {
		return nil, joinErr
	}

	h.notifier.InvitationResponse(ctx, *inv, *body.Accepted)
	log.Ctx(ctx).Info().
		Str("org_id", orgID).
		Bool("accepted", *body.Accepted).
		Msg("convite respondido")
	return &Message{Message: msgInvitationAnswer}, nil
}

func (h *Handler) join(ctx context.Context, caller authz.Caller, inv models.Invitation) error {
	if caller.UserID == inv.OrgID {
		return apperr.Conflict("user is already a member of the organization")
	}
	profile, err := h.callerProfile(ctx, caller)
	if err != nil {
		return err
	}
	m, err := models.NewOrgMember(inv.OrgID, inv.OrgName, profile, inv.Role, inv.Inviter.UserID, h.timestamp())
	if err != nil {
		return storeErr(err, "member")
	}
	if err := h.repo.AddOrgMember(ctx, m); err != nil {
		return conditional(err, apperr.Conflict("user is already a member of the organization"), "member")
	}
	return nil
}
