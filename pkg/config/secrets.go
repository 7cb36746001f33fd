package config

import (
	"context"
	"encoding/json"
	"fmt"
	"reflect"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"
	"github.com/aws/aws-sdk-go-v2/service/ssm"
)

// Prefixos de referência a segredos aceitos em qualquer valor string:
//
//	ssm:/form-builder/prod/redis-password
//	secretsmanager:form-builder/prod#redisPassword
const (
	prefixSSM            = "ssm:"
	prefixSecretsManager = "secretsmanager:"
)

// Interfaces para abstrair o SDK da AWS (Permite Mocking)
type SSMClient interface {
	GetParameter(ctx context.Context, params *ssm.GetParameterInput, optFns ...func(*ssm.Options)) (*ssm.GetParameterOutput, error)
}

type SecretsClient interface {
	GetSecretValue(ctx context.Context, params *secretsmanager.GetSecretValueInput, optFns ...func(*secretsmanager.Options)) (*secretsmanager.GetSecretValueOutput, error)
}

// SecretResolver troca referências de segredo pelo valor armazenado.
type SecretResolver struct {
	ssm     SSMClient
	secrets SecretsClient
}

func NewSecretResolver(ssmClient SSMClient, secretsClient SecretsClient) *SecretResolver {
	return &SecretResolver{ssm: ssmClient, secrets: secretsClient}
}

func isSecretRef(value string) bool {
	return strings.HasPrefix(value, prefixSSM) || strings.HasPrefix(value, prefixSecretsManager)
}

// Resolve devolve o valor de uma referência; valores comuns voltam intactos.
func (r *SecretResolver) Resolve(ctx context.Context, value string) (string, error) {
	switch {
	case strings.HasPrefix(value, prefixSSM):
		if r.ssm == nil {
			return "", fmt.Errorf("referência %q sem cliente SSM", value)
		}
		path := strings.TrimPrefix(value, prefixSSM)
		out, err := r.ssm.GetParameter(ctx, &ssm.GetParameterInput{
			Name:           aws.String(path),
			WithDecryption: aws.Bool(true),
		})
		if err != nil {
			return "", fmt.Errorf("erro no SSM GetParameter %s: %w", path, err)
		}
		if out.Parameter == nil {
			return "", fmt.Errorf("parâmetro SSM %s sem valor", path)
		}
		return aws.ToString(out.Parameter.Value), nil

	case strings.HasPrefix(value, prefixSecretsManager):
		if r.secrets == nil {
			return "", fmt.Errorf("referência %q sem cliente SecretsManager", value)
		}
		id, field, _ := strings.Cut(strings.TrimPrefix(value, prefixSecretsManager), "#")
		out, err := r.secrets.GetSecretValue(ctx, &secretsmanager.GetSecretValueInput{
			SecretId: aws.String(id),
		})
		if err != nil {
			return "", fmt.Errorf("erro no SecretsManager %s: %w", id, err)
		}
		secret := aws.ToString(out.SecretString)
		if field == "" {
			return secret, nil
		}

		// segredo JSON: o fragmento escolhe a chave
		var data map[string]any
		if err := json.Unmarshal([]byte(secret), &data); err != nil {
			return "", fmt.Errorf("segredo %s não é um JSON: %w", id, err)
		}
		v, ok := data[field]
		if !ok {
			return "", fmt.Errorf("segredo %s não contém a chave %q", id, field)
		}
		return fmt.Sprint(v), nil
	}
	return value, nil
}

// Inject percorre a struct e resolve toda string que for uma referência.
func (r *SecretResolver) Inject(ctx context.Context, target any) error {
	v := reflect.ValueOf(target)
	if v.Kind() != reflect.Ptr || v.IsNil() {
		return fmt.Errorf("target deve ser um ponteiro para struct não nulo")
	}
	return walkStrings(v.Elem(), func(s string) (string, error) {
		if !isSecretRef(s) {
			return s, nil
		}
		return r.Resolve(ctx, s)
	})
}

func firstUnresolved(cfg *Config) (string, bool) {
	var found string
	_ = walkStrings(reflect.ValueOf(cfg).Elem(), func(s string) (string, error) {
		if found == "" && isSecretRef(s) {
			found = s
		}
		return s, nil
	})
	return found, found != ""
}

func walkStrings(v reflect.Value, fn func(string) (string, error)) error {
	switch v.Kind() {
	case reflect.Ptr:
		if !v.IsNil() {
			return walkStrings(v.Elem(), fn)
		}

	case reflect.Struct:
		for i := 0; i < v.NumField(); i++ {
			field := v.Field(i)
			if !field.CanSet() {
				continue
			}
			if err := walkStrings(field, fn); err != nil {
				return err
			}
		}

	case reflect.String:
		if !v.CanSet() {
			return nil
		}
		s, err := fn(v.String())
		if err != nil {
			return err
		}
		v.SetString(s)

	case reflect.Map:
		if v.IsNil() || v.Type().Elem().Kind() != reflect.String {
			return nil
		}
		iter := v.MapRange()
		for iter.Next() {
			s, err := fn(iter.Value().String())
			if err != nil {
				return err
			}
			v.SetMapIndex(iter.Key(), reflect.ValueOf(s).Convert(v.Type().Elem()))
		}

	case reflect.Slice:
		for j := 0; j < v.Len(); j++ {
			if err := walkStrings(v.Index(j), fn); err != nil {
				return err
			}
		}
	}
	return nil
}
