package app

import (
	"context"
	"sync"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"
	"github.com/aws/aws-sdk-go-v2/service/ssm"
)

var (
	awsCfg  aws.Config
	awsOnce sync.Once
	awsErr  error
)

// AWSConfig carrega a configuração da AWS (env vars, profile, IAM role) de forma lazy-singleton.
func AWSConfig(ctx context.Context, region string) (aws.Config, error) {
	awsOnce.Do(func() {
		opts := []func(*awsconfig.LoadOptions) error{}
		if region != "" {
			opts = append(opts, awsconfig.WithRegion(region))
		}
		awsCfg, awsErr = awsconfig.LoadDefaultConfig(ctx, opts...)
	})
	return awsCfg, awsErr
}

// lazySSM e lazySecrets só tocam a AWS quando existe uma referência de
// segredo a resolver.
type lazySSM struct{ region string }

func (l lazySSM) GetParameter(ctx context.Context, params *ssm.GetParameterInput, optFns ...func(*ssm.Options)) (*ssm.GetParameterOutput, error) {
	cfg, err := AWSConfig(ctx, l.region)
	if err != nil {
		return nil, err
	}
	return ssm.NewFromConfig(cfg).GetParameter(ctx, params, optFns...)
}

type lazySecrets struct{ region string }

func (l lazySecrets) GetSecretValue(ctx context.Context, params *secretsmanager.GetSecretValueInput, optFns ...func(*secretsmanager.Options)) (*secretsmanager.GetSecretValueOutput, error) {
	cfg, err := AWSConfig(ctx, l.region)
	if err != nil {
		return nil, err
	}
	return secretsmanager.NewFromConfig(cfg).GetSecretValue(ctx, params, optFns...)
}
