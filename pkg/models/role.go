package models

// Role é o papel de um membro numa organização ou workspace.
type Role string

const (
	RoleOwner  Role = "Owner"
	RoleAdmin  Role = "Admin"
	RoleEditor Role = "Editor"
	RoleViewer Role = "Viewer"
)

// Valid indica se o papel é conhecido.
func (r Role) Valid() bool {
	switch r {
	case RoleOwner, RoleAdmin, RoleEditor, RoleViewer:
		return true
	}
	return false
}

// Assignable indica se o papel pode ser dado a um membro de organização
// por convite ou alteração. Owner é implícito ao criador.
func (r Role) Assignable() bool {
	return r == RoleAdmin || r == RoleEditor || r == RoleViewer
}

var roleRank = map[Role]int{
	RoleViewer: 1,
	RoleEditor: 2,
	RoleAdmin:  3,
	RoleOwner:  4,
}

// Grants indica se quem tem o papel r pode conceder o papel other, isto é,
// se other não está acima de r.
func (r Role) Grants(other Role) bool {
	return roleRank[r] > 0 && roleRank[other] <= roleRank[r]
}
