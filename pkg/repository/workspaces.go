package repository

import (
	"context"

	"github.com/raywall/form-builder-service/dyndb"
	"github.com/raywall/form-builder-service/keyspace"
	"github.com/raywall/form-builder-service/pkg/models"
)

func (r *Repository) GetWorkspace(ctx context.Context, orgID, workspaceID string) (*models.Workspace, error) {
	return get(ctx, r.workspaces, keyspace.KindWorkspace, keyspace.Ref{OrgID: orgID, WorkspaceID: workspaceID})
}

func (r *Repository) CreateWorkspace(ctx context.Context, ws models.Workspace) error {
	return r.workspaces.Put(ctx, ws, dyndb.IfNotExists())
}

func (r *Repository) UpdateWorkspace(ctx context.Context, orgID, workspaceID string, upd dyndb.Update) error {
	return update(ctx, r.rows, keyspace.KindWorkspace, keyspace.Ref{OrgID: orgID, WorkspaceID: workspaceID}, upd)
}

func (r *Repository) DeleteWorkspace(ctx context.Context, orgID, workspaceID string) error {
	return remove(ctx, r.rows, keyspace.KindWorkspace, keyspace.Ref{OrgID: orgID, WorkspaceID: workspaceID}, dyndb.IfExists())
}

// ListWorkspaces devolve os workspaces da organização, do mais novo para o
// mais antigo.
func (r *Repository) ListWorkspaces(ctx context.Context, orgID string) ([]models.Workspace, error) {
	scope, err := keyspace.OrgWorkspaces(orgID)
	if err != nil {
		return nil, err
	}
	return scoped(r.workspaces, r.index, scope).ScanForward(false).Collect(ctx)
}

func (r *Repository) GetWorkspaceMember(ctx context.Context, orgID, workspaceID, userID string) (*models.WorkspaceMember, error) {
	return get(ctx, r.wsMembers, keyspace.KindWorkspaceMember, keyspace.Ref{OrgID: orgID, WorkspaceID: workspaceID, UserID: userID})
}

// AddWorkspaceMember falha com dyndb.ErrConditionFailed se já é membro.
func (r *Repository) AddWorkspaceMember(ctx context.Context, m models.WorkspaceMember) error {
	return r.wsMembers.Put(ctx, m, dyndb.IfNotExists())
}

func (r *Repository) DeleteWorkspaceMember(ctx context.Context, workspaceID, userID string) error {
	return remove(ctx, r.rows, keyspace.KindWorkspaceMember, keyspace.Ref{WorkspaceID: workspaceID, UserID: userID}, dyndb.IfExists())
}

func (r *Repository) ListWorkspaceMembers(ctx context.Context, workspaceID string) ([]models.WorkspaceMember, error) {
	scope, err := keyspace.WorkspaceMembers(workspaceID)
	return list(ctx, r.wsMembers, r.index, scope, err)
}

// ListUserWorkspaceMemberships devolve os workspaces da organização dos
// quais o usuário é membro.
func (r *Repository) ListUserWorkspaceMemberships(ctx context.Context, userID, orgID string) ([]models.WorkspaceMember, error) {
	scope, err := keyspace.UserWorkspaceMemberships(userID, orgID)
	return list(ctx, r.wsMembers, r.index, scope, err)
}
