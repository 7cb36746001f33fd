package config

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/raywall/form-builder-service/envloader"
)

const rulePrefix = "AUTHZ_RULE_"

type loader struct {
	lookup  envloader.LookupFunc
	environ func() []string
	secrets *SecretResolver
}

// LoadOption ajusta a origem das variáveis e a resolução de segredos.
type LoadOption func(*loader)

// WithEnv troca o ambiente do processo pelo mapa informado.
func WithEnv(vars map[string]string) LoadOption {
	return func(l *loader) {
		l.lookup = func(key string) (string, bool) {
			v, ok := vars[key]
			return v, ok
		}
		l.environ = func() []string {
			out := make([]string, 0, len(vars))
			for k, v := range vars {
				out = append(out, k+"="+v)
			}
			return out
		}
	}
}

// WithSecrets habilita a resolução de referências ssm: e secretsmanager:.
func WithSecrets(r *SecretResolver) LoadOption {
	return func(l *loader) { l.secrets = r }
}

// Load lê, resolve e valida a configuração.
func Load(ctx context.Context, opts ...LoadOption) (*Config, error) {
	l := &loader{lookup: os.LookupEnv, environ: os.Environ}
	for _, opt := range opts {
		opt(l)
	}

	var cfg Config
	if err := envloader.LoadWith(&cfg, l.lookup); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	cfg.Rules = rulesFromEnv(l.environ())

	if l.secrets != nil {
		if err := l.secrets.Inject(ctx, &cfg); err != nil {
			return nil, fmt.Errorf("config: %w", err)
		}
	}

	if err := NewValidator().Validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func rulesFromEnv(environ []string) map[string]string {
	rules := make(map[string]string)
	for _, kv := range environ {
		key, value, ok := strings.Cut(kv, "=")
		if !ok || !strings.HasPrefix(key, rulePrefix) {
			continue
		}
		action := strings.ToLower(strings.TrimPrefix(key, rulePrefix))
		if action != "" {
			rules[action] = value
		}
	}
	return rules
}
