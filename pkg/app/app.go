// Package app monta as dependências de todos os binários a partir da
// configuração: tabela, repositório, autorização, colaboradores externos,
// handlers, servidor HTTP e reatores.
package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cognitoidentityprovider"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/raywall/form-builder-service/dyndb"
	"github.com/raywall/form-builder-service/pkg/authz"
	"github.com/raywall/form-builder-service/pkg/config"
	"github.com/raywall/form-builder-service/pkg/handler"
	"github.com/raywall/form-builder-service/pkg/identity"
	"github.com/raywall/form-builder-service/pkg/logger"
	"github.com/raywall/form-builder-service/pkg/metrics"
	"github.com/raywall/form-builder-service/pkg/notify"
	"github.com/raywall/form-builder-service/pkg/observability"
	"github.com/raywall/form-builder-service/pkg/reactor"
	"github.com/raywall/form-builder-service/pkg/repository"
	"github.com/raywall/form-builder-service/pkg/transport"
)

// PumpInterval é o intervalo do stream local.
const PumpInterval = 200 * time.Millisecond

type App struct {
	Config     *config.Config
	Logger     zerolog.Logger
	Repo       *repository.Repository
	Handler    *handler.Handler
	Server     *transport.Server
	Dispatcher *reactor.Dispatcher

	// Stream é a tabela em memória do runtime local; nil no Lambda.
	Stream *dyndb.MemoryTable

	sqs     reactor.SQSClient
	closers []io.Closer
}

type options struct {
	env      map[string]string
	table    dyndb.Table
	identity handler.SignUpper
	mailer   notify.Mailer
	sqs      reactor.SQSClient
	redis    reactor.RedisClient
	metrics  observability.Provider
}

// Option substitui uma dependência; usado em testes e no runtime local.
type Option func(*options)

func WithEnv(env map[string]string) Option {
	return func(o *options) { o.env = env }
}

func WithTable(t dyndb.Table) Option {
	return func(o *options) { o.table = t }
}

func WithIdentity(s handler.SignUpper) Option {
	return func(o *options) { o.identity = s }
}

func WithMailer(m notify.Mailer) Option {
	return func(o *options) { o.mailer = m }
}

func WithSQS(c reactor.SQSClient) Option {
	return func(o *options) { o.sqs = c }
}

func WithRedis(c reactor.RedisClient) Option {
	return func(o *options) { o.redis = c }
}

func WithMetricsProvider(p observability.Provider) Option {
	return func(o *options) { o.metrics = p }
}

// New carrega a configuração e monta a aplicação.
func New(ctx context.Context, opts ...Option) (*App, error) {
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	region := os.Getenv("AWS_REGION")
	loadOpts := []config.LoadOption{
		config.WithSecrets(config.NewSecretResolver(lazySSM{region}, lazySecrets{region})),
	}
	if o.env != nil {
		loadOpts = append(loadOpts, config.WithEnv(o.env))
	}
	cfg, err := config.Load(ctx, loadOpts...)
	if err != nil {
		return nil, err
	}

	a := &App{Config: cfg, Logger: logger.Configure(cfg.Logging)}
	log.Logger = a.Logger
	zerolog.DefaultContextLogger = &a.Logger

	provider := o.metrics
	if provider == nil {
		if provider, err = observability.SetupMetrics(cfg.Metrics, cfg.Stage); err != nil {
			return nil, err
		}
	}
	a.closers = append(a.closers, provider)
	processor := metrics.NewProcessor(provider)

	table, err := a.table(ctx, o.table)
	if err != nil {
		return nil, err
	}
	a.Repo = repository.New(table,
		dyndb.WithMaxPages(cfg.Store.MaxPages),
		dyndb.WithBatchRetry(cfg.Store.BatchMaxRetries, cfg.Store.BatchBaseDelay, cfg.Store.BatchMaxDelay),
	)

	resolver, err := authz.NewResolver(a.Repo, cfg.Rules)
	if err != nil {
		return nil, err
	}
	idp, err := a.identity(ctx, o.identity)
	if err != nil {
		return nil, err
	}
	notifier, err := a.notifier(ctx, o.mailer)
	if err != nil {
		return nil, err
	}

	a.Handler = handler.New(handler.Deps{
		Repo:     a.Repo,
		Authz:    resolver,
		Identity: idp,
		Notifier: notifier,
	})
	a.Server = transport.NewServer(a.Handler,
		transport.WithLogger(a.Logger),
		transport.WithMetrics(processor),
	)

	if a.Dispatcher, err = a.dispatcher(ctx, processor, o.sqs, o.redis); err != nil {
		return nil, err
	}
	return a, nil
}

func (a *App) aws(ctx context.Context) (aws.Config, error) {
	cfg, err := AWSConfig(ctx, a.Config.Region)
	if err != nil {
		return aws.Config{}, fmt.Errorf("configuração da AWS: %w", err)
	}
	return cfg, nil
}

func (a *App) table(ctx context.Context, override dyndb.Table) (dyndb.Table, error) {
	schema := repository.TableConfig(a.Config.Store.Table, a.Config.Store.Index)
	switch {
	case override != nil:
		if mem, ok := override.(*dyndb.MemoryTable); ok {
			a.Stream = mem
		}
		return override, nil
	case a.Config.IsLocal():
		a.Stream = dyndb.NewMemoryTable(schema)
		return a.Stream, nil
	}

	cfg, err := a.aws(ctx)
	if err != nil {
		return nil, err
	}
	return dyndb.NewDynamoTable(dynamodb.NewFromConfig(cfg), schema), nil
}

func (a *App) identity(ctx context.Context, override handler.SignUpper) (handler.SignUpper, error) {
	switch {
	case override != nil:
		return override, nil
	case a.Config.Identity.UserPoolClientID == "":
		if !a.Config.IsLocal() {
			a.Logger.Warn().Msg("USER_POOL_CLIENT_ID ausente, cadastro sem provedor de identidade")
		}
		return identity.Offline{}, nil
	}

	cfg, err := a.aws(ctx)
	if err != nil {
		return nil, err
	}
	return identity.NewProvider(cognitoidentityprovider.NewFromConfig(cfg), a.Config.Identity.UserPoolClientID), nil
}

func (a *App) notifier(ctx context.Context, mailer notify.Mailer) (*notify.Notifier, error) {
	mail := a.Config.Mail

	var (
		catalog *notify.Catalog
		err     error
	)
	if mail.TemplatesBucket != "" {
		cfg, err := a.aws(ctx)
		if err != nil {
			return nil, err
		}
		catalog, err = notify.LoadCatalogFromS3(ctx, s3.NewFromConfig(cfg), mail.TemplatesBucket, mail.TemplatesKey)
		if err != nil {
			return nil, fmt.Errorf("modelos de e-mail: %w", err)
		}
	} else if catalog, err = notify.NewCatalog(); err != nil {
		return nil, err
	}

	if mailer == nil {
		mailer = notify.LogMailer{}
		if mail.Sender != "" {
			cfg, err := a.aws(ctx)
			if err != nil {
				return nil, err
			}
			mailer = notify.NewSESMailer(sesv2.NewFromConfig(cfg), mail.Sender)
		}
	}
	return notify.NewNotifier(catalog, mailer, mail.AppName, a.Config.AppBaseURL()), nil
}

func (a *App) dispatcher(ctx context.Context, processor *metrics.Processor, sqsClient reactor.SQSClient, redisClient reactor.RedisClient) (*reactor.Dispatcher, error) {
	rc := a.Config.Reactor
	opts := []reactor.Option{reactor.WithMetrics(processor)}

	if rc.DedupRedisAddr != "" {
		if redisClient == nil {
			client := reactor.NewRedisClient(rc.DedupRedisAddr, rc.DedupRedisPassword)
			a.closers = append(a.closers, client)
			redisClient = client
		}
		opts = append(opts, reactor.WithDeduper(reactor.NewRedisDeduper(redisClient, rc.DedupTTL)))
	}

	if rc.DLQURL != "" {
		if sqsClient == nil {
			cfg, err := a.aws(ctx)
			if err != nil {
				return nil, err
			}
			sqsClient = sqs.NewFromConfig(cfg)
		}
		a.sqs = sqsClient
		opts = append(opts, reactor.WithDeadLetter(reactor.NewSQSDeadLetter(sqsClient, rc.DLQURL)))
	}

	return reactor.NewDispatcher(a.Repo, opts...), nil
}

// Redriver consome a DLQ configurada.
func (a *App) Redriver() (*reactor.Redriver, error) {
	if a.sqs == nil {
		return nil, errors.New("REACTOR_DLQ_URL não configurada")
	}
	return reactor.NewRedriver(a.sqs, a.Config.Reactor.DLQURL, a.Dispatcher), nil
}

// RunLocal sobe o servidor HTTP e alimenta os reatores com o stream da
// tabela em memória até o contexto ser cancelado.
func (a *App) RunLocal(ctx context.Context) error {
	if a.Stream != nil {
		go a.Dispatcher.Pump(a.Logger.WithContext(ctx), a.Stream, PumpInterval)
	}
	return a.Server.ListenAndServe(ctx, a.Config.Port)
}

func (a *App) Close() error {
	var errs []error
	for _, c := range a.closers {
		errs = append(errs, c.Close())
	}
	return errors.Join(errs...)
}
