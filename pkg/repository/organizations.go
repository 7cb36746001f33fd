package repository

import (
	"context"

	"github.com/raywall/form-builder-service/dyndb"
	"github.com/raywall/form-builder-service/keyspace"
	"github.com/raywall/form-builder-service/pkg/models"
)

func (r *Repository) GetOrganization(ctx context.Context, orgID string) (*models.Organization, error) {
	return get(ctx, r.orgs, keyspace.KindOrganization, keyspace.Ref{OrgID: orgID})
}

func (r *Repository) UpdateOrganization(ctx context.Context, orgID string, upd dyndb.Update) error {
	return update(ctx, r.rows, keyspace.KindOrganization, keyspace.Ref{OrgID: orgID}, upd)
}

func (r *Repository) DeleteOrganization(ctx context.Context, orgID string) error {
	return remove(ctx, r.rows, keyspace.KindOrganization, keyspace.Ref{OrgID: orgID}, dyndb.IfExists())
}

func (r *Repository) GetOrgMember(ctx context.Context, orgID, userID string) (*models.OrgMember, error) {
	return get(ctx, r.orgMembers, keyspace.KindOrgMember, keyspace.Ref{OrgID: orgID, UserID: userID})
}

// AddOrgMember falha com dyndb.ErrConditionFailed se o usuário já é membro.
func (r *Repository) AddOrgMember(ctx context.Context, m models.OrgMember) error {
	return r.orgMembers.Put(ctx, m, dyndb.IfNotExists())
}

func (r *Repository) UpdateOrgMember(ctx context.Context, orgID, userID string, upd dyndb.Update) error {
	return update(ctx, r.rows, keyspace.KindOrgMember, keyspace.Ref{OrgID: orgID, UserID: userID}, upd)
}

func (r *Repository) DeleteOrgMember(ctx context.Context, orgID, userID string) error {
	return remove(ctx, r.rows, keyspace.KindOrgMember, keyspace.Ref{OrgID: orgID, UserID: userID}, dyndb.IfExists())
}

func (r *Repository) ListOrgMembers(ctx context.Context, orgID string) ([]models.OrgMember, error) {
	scope, err := keyspace.OrgMembers(orgID)
	return list(ctx, r.orgMembers, r.index, scope, err)
}

// ListUserOrgMemberships devolve as organizações das quais o usuário é
// membro (sem incluir a própria).
func (r *Repository) ListUserOrgMemberships(ctx context.Context, userID string) ([]models.OrgMember, error) {
	scope, err := keyspace.UserOrgMemberships(userID)
	return list(ctx, r.orgMembers, r.index, scope, err)
}

func (r *Repository) GetInvitation(ctx context.Context, orgID, email string) (*models.Invitation, error) {
	return get(ctx, r.invitations, keyspace.KindInvitation, keyspace.Ref{OrgID: orgID, Email: email})
}

// CreateInvitation falha com dyndb.ErrConditionFailed se já há convite pendente.
func (r *Repository) CreateInvitation(ctx context.Context, inv models.Invitation) error {
	return r.invitations.Put(ctx, inv, dyndb.IfNotExists())
}

func (r *Repository) DeleteInvitation(ctx context.Context, orgID, email string) error {
	return remove(ctx, r.rows, keyspace.KindInvitation, keyspace.Ref{OrgID: orgID, Email: email})
}

func (r *Repository) ListOrgInvitations(ctx context.Context, orgID string) ([]models.Invitation, error) {
	scope, err := keyspace.OrgInvitations(orgID)
	return list(ctx, r.invitations, r.index, scope, err)
}

func (r *Repository) ListInvitationsByEmail(ctx context.Context, email string) ([]models.Invitation, error) {
	scope, err := keyspace.InvitationsByEmail(email)
	return list(ctx, r.invitations, r.index, scope, err)
}
