// Package authz decide se um chamador pode executar uma ação sobre um alvo.
//
// O dono da organização (cujo id é o próprio orgId) sempre pode. Os demais
// dependem de uma única leitura da linha de membership, de org ou de
// workspace conforme o escopo da ação, e da regra CEL avaliada sobre o papel
// encontrado. Membership ausente nega o acesso sem erro.
package authz

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/cel-go/cel"
	"github.com/rs/zerolog/log"

	"github.com/raywall/form-builder-service/dyndb"
	"github.com/raywall/form-builder-service/pkg/models"
)

// MembershipReader é o subconjunto do repositório usado nas decisões.
type MembershipReader interface {
	GetOrgMember(ctx context.Context, orgID, userID string) (*models.OrgMember, error)
	GetWorkspaceMember(ctx context.Context, orgID, workspaceID, userID string) (*models.WorkspaceMember, error)
}

type Caller struct {
	UserID string
	Email  string
}

// Target identifica o recurso. Ações de usuário usam UserID, as demais
// OrgID e, no escopo de workspace, WorkspaceID.
type Target struct {
	UserID      string
	OrgID       string
	WorkspaceID string
}

type Decision struct {
	Allowed bool
	// Role é o papel efetivo; RoleOwner para o dono da organização.
	Role models.Role
}

type compiled struct {
	scope   Scope
	program cel.Program
}

type Resolver struct {
	members  MembershipReader
	policies map[Action]compiled
}

// NewResolver compila a tabela padrão, aplicando as sobrescritas recebidas
// (chave = nome da ação em minúsculas).
func NewResolver(members MembershipReader, overrides map[string]string) (*Resolver, error) {
	env, err := cel.NewEnv(cel.Variable("role", cel.StringType))
	if err != nil {
		return nil, fmt.Errorf("erro fatal CEL init: %w", err)
	}

	for action := range overrides {
		if _, ok := defaultPolicies[Action(action)]; !ok {
			return nil, fmt.Errorf("authz: regra para ação desconhecida '%s'", action)
		}
	}

	policies := make(map[Action]compiled, len(defaultPolicies))
	for action, p := range defaultPolicies {
		rule := p.rule
		if override, ok := overrides[string(action)]; ok {
			rule = override
		}

		ast, issues := env.Compile(rule)
		if issues != nil && issues.Err() != nil {
			return nil, fmt.Errorf("erro compilação CEL '%s' (%s): %w", rule, action, issues.Err())
		}
		if !ast.OutputType().IsExactType(cel.BoolType) {
			return nil, fmt.Errorf("regra de %s não é booleana: '%s'", action, rule)
		}
		prg, err := env.Program(ast)
		if err != nil {
			return nil, fmt.Errorf("erro programa CEL (%s): %w", action, err)
		}
		policies[action] = compiled{scope: p.scope, program: prg}
	}

	return &Resolver{members: members, policies: policies}, nil
}

// Authorize devolve a decisão. Erros só ocorrem em falhas de leitura ou
// em ações desconhecidas.
func (r *Resolver) Authorize(ctx context.Context, caller Caller, action Action, target Target) (Decision, error) {
	p, ok := r.policies[action]
	if !ok {
		return Decision{}, fmt.Errorf("authz: ação desconhecida '%s'", action)
	}
	logger := log.Ctx(ctx).With().Str("action", string(action)).Str("caller", caller.UserID).Logger()

	if caller.UserID == "" {
		return Decision{}, nil
	}

	if p.scope == ScopeUser {
		return Decision{Allowed: caller.UserID == target.UserID, Role: models.RoleOwner}, nil
	}
	if caller.UserID == target.OrgID {
		return Decision{Allowed: true, Role: models.RoleOwner}, nil
	}

	role, found, err := r.lookup(ctx, p.scope, caller.UserID, target)
	if err != nil {
		return Decision{}, err
	}
	if !found {
		logger.Debug().Msg("sem membership, acesso negado")
		return Decision{}, nil
	}

	out, _, err := p.program.Eval(map[string]any{"role": string(role)})
	if err != nil {
		return Decision{}, fmt.Errorf("erro execução CEL (%s): %w", action, err)
	}
	allowed, _ := out.Value().(bool)

	logger.Debug().Str("role", string(role)).Bool("allowed", allowed).Msg("decisão de acesso")
	return Decision{Allowed: allowed, Role: role}, nil
}

func (r *Resolver) lookup(ctx context.Context, scope Scope, userID string, target Target) (models.Role, bool, error) {
	switch scope {
	case ScopeOrg:
		m, err := r.members.GetOrgMember(ctx, target.OrgID, userID)
		if errors.Is(err, dyndb.ErrNotFound) {
			return "", false, nil
		}
		if err != nil {
			return "", false, err
		}
		return m.Role, true, nil

	case ScopeWorkspace:
		m, err := r.members.GetWorkspaceMember(ctx, target.OrgID, target.WorkspaceID, userID)
		if errors.Is(err, dyndb.ErrNotFound) {
			return "", false, nil
		}
		if err != nil {
			return "", false, err
		}
		// o workspace precisa pertencer à organização do caminho
		if m.OrgID != target.OrgID {
			return "", false, nil
		}
		return m.Role, true, nil
	}
	return "", false, nil
}
