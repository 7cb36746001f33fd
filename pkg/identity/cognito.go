// Package identity integra o provedor de identidade (Cognito User Pools).
package identity

import (
	"context"
	"errors"
	"net/http"

	"github.com/aws/aws-sdk-go-v2/aws"
	awshttp "github.com/aws/aws-sdk-go-v2/aws/transport/http"
	"github.com/aws/aws-sdk-go-v2/service/cognitoidentityprovider"
	"github.com/aws/aws-sdk-go-v2/service/cognitoidentityprovider/types"
	"github.com/aws/smithy-go"

	"github.com/raywall/form-builder-service/pkg/apperr"
)

const collaborator = "identity"

// MsgEmailExists é a resposta para um e-mail já cadastrado.
const MsgEmailExists = "user with given email already exists"

// CognitoClient é o subconjunto do SDK usado pelo provedor.
type CognitoClient interface {
	SignUp(ctx context.Context, params *cognitoidentityprovider.SignUpInput, optFns ...func(*cognitoidentityprovider.Options)) (*cognitoidentityprovider.SignUpOutput, error)
}

// Registration são os dados do cadastro.
type Registration struct {
	Email     string
	Password  string
	FirstName string
	LastName  string
}

type Provider struct {
	client   CognitoClient
	clientID string
}

func NewProvider(client CognitoClient, clientID string) *Provider {
	return &Provider{client: client, clientID: clientID}
}

// SignUp registra o usuário e devolve o id atribuído pelo provedor.
func (p *Provider) SignUp(ctx context.Context, reg Registration) (string, error) {
	out, err := p.client.SignUp(ctx, &cognitoidentityprovider.SignUpInput{
		ClientId: aws.String(p.clientID),
		Username: aws.String(reg.Email),
		Password: aws.String(reg.Password),
		UserAttributes: []types.AttributeType{
			{Name: aws.String("email"), Value: aws.String(reg.Email)},
			{Name: aws.String("given_name"), Value: aws.String(reg.FirstName)},
			{Name: aws.String("family_name"), Value: aws.String(reg.LastName)},
		},
	})
	if err != nil {
		return "", translate(err)
	}
	return aws.ToString(out.UserSub), nil
}

// translate converte a falha do provedor. Erros do cliente (4xx) repassam o
// status e a mensagem do provedor; os demais ficam opacos.
func translate(err error) error {
	var exists *types.UsernameExistsException
	if errors.As(err, &exists) {
		return &apperr.CollaboratorError{
			Collaborator: collaborator,
			StatusCode:   http.StatusBadRequest,
			Code:         exists.ErrorCode(),
			Public:       MsgEmailExists,
			Err:          err,
		}
	}

	ce := &apperr.CollaboratorError{Collaborator: collaborator, Err: err}

	var re *awshttp.ResponseError
	if errors.As(err, &re) {
		ce.StatusCode = re.HTTPStatusCode()
	}

	var ae smithy.APIError
	if errors.As(err, &ae) {
		ce.Code = ae.ErrorCode()
		if ae.ErrorFault() == smithy.FaultClient {
			ce.Public = ae.ErrorMessage()
			if ce.StatusCode == 0 {
				ce.StatusCode = http.StatusBadRequest
			}
		}
	}
	return ce
}
