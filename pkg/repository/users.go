package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/raywall/form-builder-service/dyndb"
	"github.com/raywall/form-builder-service/keyspace"
	"github.com/raywall/form-builder-service/pkg/models"
)

func (r *Repository) GetUser(ctx context.Context, userID string) (*models.User, error) {
	return get(ctx, r.users, keyspace.KindUser, keyspace.Ref{UserID: userID})
}

// FindUserByEmail procura o usuário pelo índice de e-mail. Devolve
// dyndb.ErrNotFound quando não há cadastro.
func (r *Repository) FindUserByEmail(ctx context.Context, email string) (*models.User, error) {
	scope, err := keyspace.UsersByEmail(email)
	if err != nil {
		return nil, err
	}
	for user, err := range scoped(r.users, r.index, scope).All(ctx) {
		if err != nil {
			return nil, err
		}
		return &user, nil
	}
	return nil, dyndb.ErrNotFound
}

// EmailTaken indica se já existe usuário com o e-mail.
func (r *Repository) EmailTaken(ctx context.Context, email string) (bool, error) {
	_, err := r.FindUserByEmail(ctx, email)
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, dyndb.ErrNotFound):
		return false, nil
	}
	return false, err
}

func (r *Repository) UpdateUser(ctx context.Context, userID string, upd dyndb.Update) error {
	return update(ctx, r.rows, keyspace.KindUser, keyspace.Ref{UserID: userID}, upd)
}

// CreateAccount grava o usuário, a organização dele e o workspace inicial,
// nessa ordem. O stream não ordena itens distintos, então a organização
// precisa existir antes do INSERT do workspace chegar ao reator de
// contadores. O usuário é condicional para que dois cadastros simultâneos
// com o mesmo id não se sobreponham.
func (r *Repository) CreateAccount(ctx context.Context, user models.User, org models.Organization, ws models.Workspace) error {
	if err := r.users.Put(ctx, user, dyndb.IfNotExists()); err != nil {
		return err
	}
	if err := r.orgs.Put(ctx, org); err != nil {
		return fmt.Errorf("create organization %s: %w", org.OrgID, err)
	}
	if err := r.workspaces.Put(ctx, ws, dyndb.IfNotExists()); err != nil {
		return fmt.Errorf("create workspace %s: %w", ws.WorkspaceID, err)
	}
	return nil
}

// ListMemberships devolve as linhas de membership (org e workspace) que
// duplicam o perfil do usuário.
func (r *Repository) ListMemberships(ctx context.Context, userID string) ([]models.Row, error) {
	scope, err := keyspace.UserMemberships(userID)
	return list(ctx, r.rows, r.index, scope, err)
}
