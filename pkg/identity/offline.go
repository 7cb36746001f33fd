package identity

import (
	"context"

	"github.com/google/uuid"
)

// Offline atribui ids localmente, sem provedor. Serve ao runtime local, onde
// não há user pool; senhas não são guardadas.
type Offline struct{}

func (Offline) SignUp(_ context.Context, _ Registration) (string, error) {
	return uuid.NewString(), nil
}
