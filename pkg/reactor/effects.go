package reactor

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/rs/zerolog/log"

	"github.com/raywall/form-builder-service/dyndb"
	"github.com/raywall/form-builder-service/keyspace"
	"github.com/raywall/form-builder-service/pkg/models"
)

// Contadores mantidos nas linhas pai.
const (
	CounterMembers    = "memberCount"
	CounterWorkspaces = "workspaceCount"
	CounterForms      = "formCount"
	CounterResponses  = "responseCount"
)

type target struct {
	kind keyspace.Kind
	ref  keyspace.Ref
}

// orgTargets são a organização e o usuário dono, que espelha os contadores.
func orgTargets(orgID string) []target {
	return []target{
		{keyspace.KindOrganization, keyspace.Ref{OrgID: orgID}},
		{keyspace.KindUser, keyspace.Ref{UserID: orgID}},
	}
}

func workspaceTarget(orgID, workspaceID string) target {
	return target{keyspace.KindWorkspace, keyspace.Ref{OrgID: orgID, WorkspaceID: workspaceID}}
}

func kindOf(rec dyndb.StreamRecord) keyspace.Kind {
	img := rec.NewImage
	if img == nil {
		img = rec.OldImage
	}
	if s, ok := img[keyspace.AttrType].(*types.AttributeValueMemberS); ok && s.Value != "" {
		return keyspace.Kind(s.Value)
	}

	var key keyspace.Key
	if err := attributevalue.UnmarshalMap(rec.Keys, &key); err != nil {
		return ""
	}
	kind, _, err := keyspace.Decode(key)
	if err != nil {
		return ""
	}
	return kind
}

// delta é +1 na inserção, -1 na remoção e 0 na modificação.
func delta(rec dyndb.StreamRecord) int64 {
	switch rec.EventName {
	case dyndb.EventInsert:
		return 1
	case dyndb.EventRemove:
		return -1
	}
	return 0
}

// image decodifica a imagem mais recente disponível.
func image(rec dyndb.StreamRecord, out any) error {
	img := rec.NewImage
	if img == nil {
		img = rec.OldImage
	}
	if err := attributevalue.UnmarshalMap(img, out); err != nil {
		return fmt.Errorf("decode %s image: %w", rec.EventName, err)
	}
	return nil
}

func images(rec dyndb.StreamRecord, old, cur any) error {
	if err := attributevalue.UnmarshalMap(rec.OldImage, old); err != nil {
		return fmt.Errorf("decode old image: %w", err)
	}
	if err := attributevalue.UnmarshalMap(rec.NewImage, cur); err != nil {
		return fmt.Errorf("decode new image: %w", err)
	}
	return nil
}

// count ajusta o contador em cada alvo. Pais já removidos são ignorados.
//
// Com deduplicação, cada alvo é reivindicado à parte e a reivindicação
// fica de pé mesmo se outra etapa do registro falhar: uma reentrega só
// repete os ajustes que não chegaram a ser aplicados.
func (d *Dispatcher) count(ctx context.Context, rec dyndb.StreamRecord, counter string, targets ...target) error {
	n := delta(rec)
	if n == 0 {
		return nil
	}
	var errs []error
	for _, t := range targets {
		step := stepID(rec, counter, t)
		if !d.claimStep(ctx, step) {
			continue
		}
		applied, err := d.store.AdjustCounter(ctx, t.kind, t.ref, counter, n)
		if err != nil {
			d.releaseStep(ctx, step)
			errs = append(errs, fmt.Errorf("%s on %s: %w", counter, t.kind, err))
			continue
		}
		if !applied {
			log.Ctx(ctx).Debug().Str("counter", counter).Str("parent", string(t.kind)).Msg("pai ausente, contador ignorado")
		}
	}
	return errors.Join(errs...)
}

func stepID(rec dyndb.StreamRecord, counter string, t target) string {
	if rec.EventID == "" {
		return ""
	}
	return rec.EventID + "#" + counter + "#" + string(t.kind)
}

// claimStep devolve false apenas quando a etapa já foi aplicada.
func (d *Dispatcher) claimStep(ctx context.Context, step string) bool {
	if d.dedup == nil || step == "" {
		return true
	}
	claimed, err := d.dedup.Claim(ctx, step)
	if err != nil {
		log.Ctx(ctx).Warn().Err(err).Str("step", step).Msg("deduplicação indisponível, aplicando etapa")
		return true
	}
	if !claimed {
		log.Ctx(ctx).Debug().Str("step", step).Msg("etapa já aplicada")
	}
	return claimed
}

func (d *Dispatcher) releaseStep(ctx context.Context, step string) {
	if d.dedup == nil || step == "" {
		return
	}
	if err := d.dedup.Release(ctx, step); err != nil {
		log.Ctx(ctx).Warn().Err(err).Str("step", step).Msg("falha ao liberar etapa")
	}
}

func (d *Dispatcher) cascade(ctx context.Context, scope keyspace.Scope, scopeErr error) error {
	if scopeErr != nil {
		return scopeErr
	}
	n, err := d.store.DeleteScope(ctx, scope)
	if n > 0 {
		log.Ctx(ctx).Info().Str("scope", scope.PK+"/"+scope.SKPrefix).Int("deleted", n).Msg("remoção em cascata")
	}
	if err != nil {
		d.recordPartial(err)
		return fmt.Errorf("cascade %s: %w", scope.PK, err)
	}
	return nil
}

// patch reescreve as linhas com a atualização, ignorando as já removidas.
func (d *Dispatcher) patch(ctx context.Context, rows []models.Row, upd dyndb.Update, kinds ...keyspace.Kind) error {
	var errs []error
	patched := 0
	for _, row := range rows {
		if len(kinds) > 0 && !slices.Contains(kinds, row.Type) {
			continue
		}
		ok, err := d.store.Patch(ctx, row, upd)
		if err != nil {
			errs = append(errs, fmt.Errorf("patch %s/%s: %w", row.PK, row.SK, err))
			continue
		}
		if ok {
			patched++
		}
	}
	log.Ctx(ctx).Debug().Int("patched", patched).Strs("fields", upd.Names()).Msg("cópias atualizadas")
	return errors.Join(errs...)
}

func (d *Dispatcher) onOrganization(ctx context.Context, rec dyndb.StreamRecord) error {
	switch rec.EventName {
	case dyndb.EventRemove:
		var org models.Organization
		if err := image(rec, &org); err != nil {
			return err
		}
		scope, err := keyspace.OrgChildren(org.OrgID)
		return d.cascade(ctx, scope, err)

	case dyndb.EventModify:
		var old, cur models.Organization
		if err := images(rec, &old, &cur); err != nil {
			return err
		}
		if old.Name == cur.Name {
			return nil
		}
		upd := dyndb.NewUpdate().Set("orgName", cur.Name)

		var errs []error
		for _, scope := range []func(string) (keyspace.Scope, error){keyspace.OrgMembers, keyspace.OrgInvitations} {
			s, err := scope(cur.OrgID)
			if err != nil {
				return err
			}
			rows, err := d.store.Keys(ctx, s)
			errs = append(errs, err, d.patch(ctx, rows, upd))
		}
		return errors.Join(errs...)
	}
	return nil
}

func (d *Dispatcher) onOrgMember(ctx context.Context, rec dyndb.StreamRecord) error {
	var m models.OrgMember
	if err := image(rec, &m); err != nil {
		return err
	}

	if rec.EventName == dyndb.EventRemove {
		scope, err := keyspace.UserWorkspaceMemberships(m.UserID, m.OrgID)
		if err := d.cascade(ctx, scope, err); err != nil {
			return err
		}
	}
	return d.count(ctx, rec, CounterMembers, orgTargets(m.OrgID)...)
}

func (d *Dispatcher) onWorkspace(ctx context.Context, rec dyndb.StreamRecord) error {
	var ws models.Workspace
	if err := image(rec, &ws); err != nil {
		return err
	}

	// a cascata vem antes: o contador só desce quando os filhos já saíram
	if rec.EventName == dyndb.EventRemove {
		scope, err := keyspace.WorkspaceChildren(ws.WorkspaceID)
		if err := d.cascade(ctx, scope, err); err != nil {
			return err
		}
	}
	return d.count(ctx, rec, CounterWorkspaces, orgTargets(ws.OrgID)...)
}

func (d *Dispatcher) onWorkspaceMember(ctx context.Context, rec dyndb.StreamRecord) error {
	var m models.WorkspaceMember
	if err := image(rec, &m); err != nil {
		return err
	}
	return d.count(ctx, rec, CounterMembers, workspaceTarget(m.OrgID, m.WorkspaceID))
}

func (d *Dispatcher) onForm(ctx context.Context, rec dyndb.StreamRecord) error {
	var f models.Form
	if err := image(rec, &f); err != nil {
		return err
	}

	if rec.EventName == dyndb.EventRemove {
		scope, err := keyspace.FormChildren(f.FormID)
		if err := d.cascade(ctx, scope, err); err != nil {
			return err
		}
	}
	targets := append([]target{workspaceTarget(f.OrgID, f.WorkspaceID)}, orgTargets(f.OrgID)...)
	return d.count(ctx, rec, CounterForms, targets...)
}

func (d *Dispatcher) onResponse(ctx context.Context, rec dyndb.StreamRecord) error {
	var r models.Response
	if err := image(rec, &r); err != nil {
		return err
	}

	targets := append([]target{
		{keyspace.KindForm, keyspace.Ref{WorkspaceID: r.WorkspaceID, FormID: r.FormID}},
		workspaceTarget(r.OrgID, r.WorkspaceID),
	}, orgTargets(r.OrgID)...)
	return d.count(ctx, rec, CounterResponses, targets...)
}

// onUser replica nome e e-mail alterados nas memberships do usuário, sem
// tocar no updatedAt das cópias.
func (d *Dispatcher) onUser(ctx context.Context, rec dyndb.StreamRecord) error {
	if rec.EventName != dyndb.EventModify {
		return nil
	}
	var old, cur models.User
	if err := images(rec, &old, &cur); err != nil {
		return err
	}

	upd := dyndb.NewUpdate()
	if old.FirstName != cur.FirstName {
		upd = upd.Set("firstName", cur.FirstName)
	}
	if old.LastName != cur.LastName {
		upd = upd.Set("lastName", cur.LastName)
	}
	if old.Email != cur.Email {
		upd = upd.Set("email", cur.Email)
	}
	if upd.IsEmpty() {
		return nil
	}

	rows, err := d.store.ListMemberships(ctx, cur.UserID)
	if err != nil && !errors.Is(err, dyndb.ErrTruncated) {
		return err
	}
	return errors.Join(err, d.patch(ctx, rows, upd, keyspace.KindOrgMember, keyspace.KindWorkspaceMember))
}
