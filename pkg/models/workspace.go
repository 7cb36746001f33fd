package models

import "github.com/raywall/form-builder-service/keyspace"

// DefaultWorkspaceName é o nome do workspace criado no cadastro.
const DefaultWorkspaceName = "My Workspace"

type Workspace struct {
	Row
	OrgID         string `dynamodbav:"orgId" json:"orgId"`
	WorkspaceID   string `dynamodbav:"workspaceId" json:"workspaceId"`
	Name          string `dynamodbav:"name" json:"name"`
	CreatedBy     string `dynamodbav:"createdBy" json:"createdBy"`
	Bookmarked    bool   `dynamodbav:"bookmarked" json:"bookmarked"`
	MemberCount   int64  `dynamodbav:"memberCount" json:"memberCount"`
	FormCount     int64  `dynamodbav:"formCount" json:"formCount"`
	ResponseCount int64  `dynamodbav:"responseCount" json:"responseCount"`
	CreatedAt     string `dynamodbav:"createdAt" json:"createdAt"`
	UpdatedAt     string `dynamodbav:"updatedAt" json:"updatedAt"`
}

func NewWorkspace(orgID, workspaceID, name, createdBy, now string) (Workspace, error) {
	row, err := newRow(keyspace.KindWorkspace, keyspace.Ref{OrgID: orgID, WorkspaceID: workspaceID})
	if err != nil {
		return Workspace{}, err
	}
	return Workspace{
		Row:         row,
		OrgID:       orgID,
		WorkspaceID: workspaceID,
		Name:        TruncateName(name),
		CreatedBy:   createdBy,
		CreatedAt:   now,
		UpdatedAt:   now,
	}, nil
}

type WorkspaceMember struct {
	Row
	OrgID       string `dynamodbav:"orgId" json:"orgId"`
	WorkspaceID string `dynamodbav:"workspaceId" json:"workspaceId"`
	UserID      string `dynamodbav:"userId" json:"userId"`
	Role        Role   `dynamodbav:"role" json:"role"`
	FirstName   string `dynamodbav:"firstName" json:"firstName"`
	LastName    string `dynamodbav:"lastName" json:"lastName"`
	Email       string `dynamodbav:"email" json:"email"`
	CreatedBy   string `dynamodbav:"createdBy" json:"createdBy"`
	CreatedAt   string `dynamodbav:"createdAt" json:"createdAt"`
	UpdatedAt   string `dynamodbav:"updatedAt" json:"updatedAt"`
}

func NewWorkspaceMember(orgID, workspaceID string, user Profile, role Role, createdBy, now string) (WorkspaceMember, error) {
	row, err := newRow(keyspace.KindWorkspaceMember, keyspace.Ref{OrgID: orgID, WorkspaceID: workspaceID, UserID: user.UserID})
	if err != nil {
		return WorkspaceMember{}, err
	}
	return WorkspaceMember{
		Row:         row,
		OrgID:       orgID,
		WorkspaceID: workspaceID,
		UserID:      user.UserID,
		Role:        role,
		FirstName:   user.FirstName,
		LastName:    user.LastName,
		Email:       keyspace.NormalizeEmail(user.Email),
		CreatedBy:   createdBy,
		CreatedAt:   now,
		UpdatedAt:   now,
	}, nil
}
