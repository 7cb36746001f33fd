package config

import (
	"strings"
	"time"
)

// Config é a configuração de todos os binários, lida de variáveis de ambiente.
type Config struct {
	Stage   string `env:"STAGE" envDefault:"dev" validate:"required"`
	Region  string `env:"AWS_REGION" envDefault:"us-east-1" validate:"required"`
	Runtime string `env:"RUNTIME" envDefault:"lambda" validate:"oneof=lambda local"`
	Port    int    `env:"PORT" envDefault:"8080" validate:"required_if=Runtime local"`

	Store    StoreConf
	Identity IdentityConf
	Mail     MailConf
	Reactor  ReactorConf
	Logging  LoggingConf
	Metrics  MetricsConf

	// Rules sobrescreve as regras de autorização. A chave é o nome da ação
	// em minúsculas (ex: "update_form_fields"), lida de AUTHZ_RULE_<ACAO>.
	Rules map[string]string
}

type StoreConf struct {
	Table           string        `env:"FORM_BUILDER_DATA_TABLE" validate:"required"`
	Index           string        `env:"FORM_BUILDER_GSI1" envDefault:"GSI1" validate:"required"`
	MaxPages        int           `env:"STORE_MAX_PAGES" envDefault:"100" validate:"gte=1"`
	BatchMaxRetries int           `env:"STORE_BATCH_MAX_RETRIES" envDefault:"5" validate:"gte=0,lte=20"`
	BatchBaseDelay  time.Duration `env:"STORE_BATCH_BASE_DELAY" envDefault:"50ms" validate:"gt=0"`
	BatchMaxDelay   time.Duration `env:"STORE_BATCH_MAX_DELAY" envDefault:"2s" validate:"gt=0"`
}

type IdentityConf struct {
	UserPoolClientID string `env:"USER_POOL_CLIENT_ID"`
}

type MailConf struct {
	// Sender vazio desliga o envio; as mensagens só vão para o log.
	Sender          string `env:"MAIL_SENDER" validate:"omitempty,email"`
	AppName         string `env:"MAIL_APP_NAME" envDefault:"vTwin Forms"`
	AppURL          string `env:"APP_URL" validate:"omitempty,url"`
	TemplatesBucket string `env:"MAIL_TEMPLATES_BUCKET"`
	TemplatesKey    string `env:"MAIL_TEMPLATES_KEY" validate:"required_with=TemplatesBucket"`
}

type ReactorConf struct {
	DLQURL             string        `env:"REACTOR_DLQ_URL" validate:"omitempty,url"`
	DedupRedisAddr     string        `env:"REACTOR_DEDUP_REDIS_ADDR" validate:"omitempty,hostname_port"`
	DedupRedisPassword string        `env:"REACTOR_DEDUP_REDIS_PASSWORD"`
	DedupTTL           time.Duration `env:"REACTOR_DEDUP_TTL" envDefault:"24h" validate:"gt=0"`
}

type LoggingConf struct {
	Enabled bool   `env:"LOG_ENABLED" envDefault:"true"`
	Level   string `env:"LOG_LEVEL" envDefault:"info" validate:"oneof=debug info warn error"`
	Format  string `env:"LOG_FORMAT" envDefault:"json" validate:"oneof=json console"`
}

type MetricsConf struct {
	Datadog DatadogConf
}

type DatadogConf struct {
	Enabled   bool   `env:"DD_METRICS_ENABLED"`
	Addr      string `env:"DD_AGENT_ADDR" envDefault:"127.0.0.1:8125" validate:"required_if=Enabled true"`
	Namespace string `env:"DD_NAMESPACE" envDefault:"form_builder."`
}

// IsLocal indica o runtime local (servidor HTTP e tabela em memória).
func (c *Config) IsLocal() bool {
	return c.Runtime == "local"
}

// AppBaseURL é a origem do front-end usada nos links dos e-mails.
func (c *Config) AppBaseURL() string {
	if c.Mail.AppURL != "" {
		return strings.TrimSuffix(c.Mail.AppURL, "/")
	}
	if c.Stage == "prod" {
		return "https://vtwinforms.com"
	}
	return "http://localhost:3000"
}
