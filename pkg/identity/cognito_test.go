package identity

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	awshttp "github.com/aws/aws-sdk-go-v2/aws/transport/http"
	"github.com/aws/aws-sdk-go-v2/service/cognitoidentityprovider"
	"github.com/aws/aws-sdk-go-v2/service/cognitoidentityprovider/types"
	smithyhttp "github.com/aws/smithy-go/transport/http"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/raywall/form-builder-service/pkg/apperr"
)

type MockCognito struct {
	mock.Mock
}

func (m *MockCognito) SignUp(ctx context.Context, params *cognitoidentityprovider.SignUpInput, optFns ...func(*cognitoidentityprovider.Options)) (*cognitoidentityprovider.SignUpOutput, error) {
	args := m.Called(ctx, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*cognitoidentityprovider.SignUpOutput), args.Error(1)
}

var reg = Registration{Email: "ana@x.io", Password: "Secret123!", FirstName: "Ana", LastName: "Lima"}

func TestSignUp_Success(t *testing.T) {
	client := new(MockCognito)
	client.On("SignUp", mock.Anything, mock.MatchedBy(func(in *cognitoidentityprovider.SignUpInput) bool {
		if in == nil || len(in.UserAttributes) != 3 {
			return false
		}
		return aws.ToString(in.ClientId) == "client-1" &&
			aws.ToString(in.Username) == "ana@x.io" &&
			aws.ToString(in.UserAttributes[1].Name) == "given_name" &&
			aws.ToString(in.UserAttributes[2].Value) == "Lima"
	})).Return(&cognitoidentityprovider.SignUpOutput{UserSub: aws.String("sub-1")}, nil)

	id, err := NewProvider(client, "client-1").SignUp(context.Background(), reg)
	require.NoError(t, err)
	assert.Equal(t, "sub-1", id)
	client.AssertExpectations(t)
}

func TestSignUp_EmailExists(t *testing.T) {
	client := new(MockCognito)
	client.On("SignUp", mock.Anything, mock.Anything).
		Return(nil, &types.UsernameExistsException{Message: aws.String("User already exists")})

	_, err := NewProvider(client, "c").SignUp(context.Background(), reg)
	require.Error(t, err)
	assert.Equal(t, http.StatusBadRequest, apperr.Status(err))
	assert.Equal(t, MsgEmailExists, apperr.PublicMessage(err))
}

func TestSignUp_ClientFaultForwardsStatusAndMessage(t *testing.T) {
	apiErr := &types.InvalidPasswordException{Message: aws.String("Password did not conform with policy")}
	wrapped := &awshttp.ResponseError{
		ResponseError: &smithyhttp.ResponseError{
			Response: &smithyhttp.Response{Response: &http.Response{StatusCode: http.StatusBadRequest}},
			Err:      apiErr,
		},
	}

	client := new(MockCognito)
	client.On("SignUp", mock.Anything, mock.Anything).Return(nil, wrapped)

	_, err := NewProvider(client, "c").SignUp(context.Background(), reg)
	assert.Equal(t, http.StatusBadRequest, apperr.Status(err))
	assert.Equal(t, "Password did not conform with policy", apperr.PublicMessage(err))

	var ce *apperr.CollaboratorError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, "InvalidPasswordException", ce.Code)
}

func TestSignUp_ServerFaultIsOpaque(t *testing.T) {
	client := new(MockCognito)
	client.On("SignUp", mock.Anything, mock.Anything).
		Return(nil, &types.InternalErrorException{Message: aws.String("node 7 exploded")})

	_, err := NewProvider(client, "c").SignUp(context.Background(), reg)
	assert.Equal(t, http.StatusInternalServerError, apperr.Status(err))
	assert.Equal(t, "internal server error", apperr.PublicMessage(err))

	client2 := new(MockCognito)
	client2.On("SignUp", mock.Anything, mock.Anything).Return(nil, errors.New("dial tcp: timeout"))
	_, err = NewProvider(client2, "c").SignUp(context.Background(), reg)
	assert.Equal(t, http.StatusInternalServerError, apperr.Status(err))
}
