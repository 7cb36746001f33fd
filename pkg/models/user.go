package models

import (
	"strings"

	"github.com/raywall/form-builder-service/keyspace"
)

// User é o perfil de quem se cadastrou. Os contadores espelham a
// organização do usuário e só são alterados pelos reatores.
type User struct {
	Row
	UserID         string `dynamodbav:"userId" json:"userId"`
	FirstName      string `dynamodbav:"firstName" json:"firstName"`
	LastName       string `dynamodbav:"lastName" json:"lastName"`
	Email          string `dynamodbav:"email" json:"email"`
	EmailVerified  bool   `dynamodbav:"emailVerified" json:"emailVerified"`
	MemberCount    int64  `dynamodbav:"memberCount" json:"memberCount"`
	WorkspaceCount int64  `dynamodbav:"workspaceCount" json:"workspaceCount"`
	FormCount      int64  `dynamodbav:"formCount" json:"formCount"`
	ResponseCount  int64  `dynamodbav:"responseCount" json:"responseCount"`
	CreatedAt      string `dynamodbav:"createdAt" json:"createdAt"`
	UpdatedAt      string `dynamodbav:"updatedAt" json:"updatedAt"`
}

func NewUser(userID, firstName, lastName, email, now string) (User, error) {
	email = keyspace.NormalizeEmail(email)
	row, err := newRow(keyspace.KindUser, keyspace.Ref{UserID: userID, Email: email})
	if err != nil {
		return User{}, err
	}
	return User{
		Row:       row,
		UserID:    userID,
		FirstName: firstName,
		LastName:  lastName,
		Email:     email,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

// DefaultOrgName é o nome inicial da organização: a parte local do e-mail.
func DefaultOrgName(email string) string {
	local, _, _ := strings.Cut(email, "@")
	return local
}
