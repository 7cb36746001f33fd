package keyspace

// Scope descreve uma consulta "todos os filhos de um pai": a partição e o
// prefixo da chave de ordenação, na tabela ou no índice GSI1.
type Scope struct {
	// OnIndex indica que PK/SKPrefix se referem a pk1/sk1 do GSI1.
	OnIndex  bool
	PK       string
	SKPrefix string
	// Kind, quando preenchido, restringe o resultado a um único tipo.
	Kind Kind
}

func OrgChildren(orgID string) (Scope, error) {
	if err := checkID("orgId", orgID); err != nil {
		return Scope{}, err
	}
	return Scope{PK: PrefixOrg + orgID}, nil
}

func OrgWorkspaces(orgID string) (Scope, error) {
	s, err := OrgChildren(orgID)
	s.SKPrefix, s.Kind = PrefixWorkspace, KindWorkspace
	return s, err
}

func OrgMembers(orgID string) (Scope, error) {
	s, err := OrgChildren(orgID)
	s.SKPrefix, s.Kind = PrefixUser, KindOrgMember
	return s, err
}

func OrgInvitations(orgID string) (Scope, error) {
	s, err := OrgChildren(orgID)
	s.SKPrefix, s.Kind = PrefixInvitation, KindInvitation
	return s, err
}

func WorkspaceChildren(workspaceID string) (Scope, error) {
	if err := checkID("workspaceId", workspaceID); err != nil {
		return Scope{}, err
	}
	return Scope{PK: PrefixWorkspace + workspaceID}, nil
}

func WorkspaceMembers(workspaceID string) (Scope, error) {
	s, err := WorkspaceChildren(workspaceID)
	s.SKPrefix, s.Kind = PrefixUser, KindWorkspaceMember
	return s, err
}

func WorkspaceForms(workspaceID string) (Scope, error) {
	s, err := WorkspaceChildren(workspaceID)
	s.SKPrefix, s.Kind = PrefixForm, KindForm
	return s, err
}

func FormChildren(formID string) (Scope, error) {
	if err := checkID("formId", formID); err != nil {
		return Scope{}, err
	}
	return Scope{PK: PrefixForm + formID}, nil
}

func FormFields(formID string) (Scope, error) {
	s, err := FormChildren(formID)
	s.SKPrefix, s.Kind = PrefixField, KindField
	return s, err
}

func FormResponses(formID string) (Scope, error) {
	s, err := FormChildren(formID)
	s.SKPrefix, s.Kind = PrefixResponse, KindResponse
	return s, err
}

// UserMemberships cobre todas as linhas de membership (org e workspace)
// que duplicam o perfil do usuário.
func UserMemberships(userID string) (Scope, error) {
	if err := checkID("userId", userID); err != nil {
		return Scope{}, err
	}
	return Scope{OnIndex: true, PK: PrefixUser + userID}, nil
}

// UserOrgMemberships lista as organizações das quais o usuário é membro.
func UserOrgMemberships(userID string) (Scope, error) {
	s, err := UserMemberships(userID)
	s.SKPrefix, s.Kind = PrefixOrg, KindOrgMember
	return s, err
}

// UserWorkspaceMemberships lista os workspaces de uma organização dos quais o
// usuário é membro.
func UserWorkspaceMemberships(userID, orgID string) (Scope, error) {
	if err := checkID("orgId", orgID); err != nil {
		return Scope{}, err
	}
	s, err := UserMemberships(userID)
	s.SKPrefix, s.Kind = PrefixOrg+orgID+separator+PrefixWorkspace, KindWorkspaceMember
	return s, err
}

func UsersByEmail(email string) (Scope, error) {
	if err := checkEmail(email); err != nil {
		return Scope{}, err
	}
	return Scope{OnIndex: true, PK: PrefixEmail + NormalizeEmail(email), SKPrefix: PrefixUser, Kind: KindUser}, nil
}

func InvitationsByEmail(email string) (Scope, error) {
	if err := checkEmail(email); err != nil {
		return Scope{}, err
	}
	return Scope{OnIndex: true, PK: PrefixEmail + NormalizeEmail(email), SKPrefix: PrefixInvitation, Kind: KindInvitation}, nil
}
