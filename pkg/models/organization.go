package models

import "github.com/raywall/form-builder-service/keyspace"

// Organization pertence a um único usuário: OrgID é o UserID do dono.
type Organization struct {
	Row
	OrgID          string `dynamodbav:"orgId" json:"orgId"`
	Name           string `dynamodbav:"name" json:"name"`
	MemberCount    int64  `dynamodbav:"memberCount" json:"memberCount"`
	WorkspaceCount int64  `dynamodbav:"workspaceCount" json:"workspaceCount"`
	FormCount      int64  `dynamodbav:"formCount" json:"formCount"`
	ResponseCount  int64  `dynamodbav:"responseCount" json:"responseCount"`
	CreatedAt      string `dynamodbav:"createdAt" json:"createdAt"`
	UpdatedAt      string `dynamodbav:"updatedAt" json:"updatedAt"`
}

func NewOrganization(ownerID, name, now string) (Organization, error) {
	row, err := newRow(keyspace.KindOrganization, keyspace.Ref{OrgID: ownerID})
	if err != nil {
		return Organization{}, err
	}
	return Organization{
		Row:       row,
		OrgID:     ownerID,
		Name:      TruncateName(name),
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

// OrgMember é o vínculo (organização, usuário) com o perfil duplicado do membro.
type OrgMember struct {
	Row
	OrgID     string `dynamodbav:"orgId" json:"orgId"`
	UserID    string `dynamodbav:"userId" json:"userId"`
	Role      Role   `dynamodbav:"role" json:"role"`
	OrgName   string `dynamodbav:"orgName" json:"orgName"`
	FirstName string `dynamodbav:"firstName" json:"firstName"`
	LastName  string `dynamodbav:"lastName" json:"lastName"`
	Email     string `dynamodbav:"email" json:"email"`
	CreatedBy string `dynamodbav:"createdBy" json:"createdBy"`
	CreatedAt string `dynamodbav:"createdAt" json:"createdAt"`
	UpdatedAt string `dynamodbav:"updatedAt" json:"updatedAt"`
}

func NewOrgMember(orgID, orgName string, user Profile, role Role, createdBy, now string) (OrgMember, error) {
	row, err := newRow(keyspace.KindOrgMember, keyspace.Ref{OrgID: orgID, UserID: user.UserID})
	if err != nil {
		return OrgMember{}, err
	}
	return OrgMember{
		Row:       row,
		OrgID:     orgID,
		UserID:    user.UserID,
		Role:      role,
		OrgName:   orgName,
		FirstName: user.FirstName,
		LastName:  user.LastName,
		Email:     keyspace.NormalizeEmail(user.Email),
		CreatedBy: createdBy,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

// Profile é o recorte do usuário duplicado em memberships e convites.
type Profile struct {
	UserID    string `dynamodbav:"userId" json:"userId"`
	FirstName string `dynamodbav:"firstName" json:"firstName"`
	LastName  string `dynamodbav:"lastName" json:"lastName"`
	Email     string `dynamodbav:"email" json:"email"`
}

// Invitation é um convite pendente para (organização, e-mail).
type Invitation struct {
	Row
	OrgID     string  `dynamodbav:"orgId" json:"orgId"`
	Email     string  `dynamodbav:"email" json:"email"`
	Role      Role    `dynamodbav:"role" json:"role"`
	OrgName   string  `dynamodbav:"orgName" json:"orgName"`
	Inviter   Profile `dynamodbav:"inviter" json:"inviter"`
	CreatedAt string  `dynamodbav:"createdAt" json:"createdAt"`
}

func NewInvitation(orgID, orgName, email string, role Role, inviter Profile, now string) (Invitation, error) {
	email = keyspace.NormalizeEmail(email)
	row, err := newRow(keyspace.KindInvitation, keyspace.Ref{OrgID: orgID, Email: email})
	if err != nil {
		return Invitation{}, err
	}
	return Invitation{
		Row:       row,
		OrgID:     orgID,
		Email:     email,
		Role:      role,
		OrgName:   orgName,
		Inviter:   inviter,
		CreatedAt: now,
	}, nil
}
