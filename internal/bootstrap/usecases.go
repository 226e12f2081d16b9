package bootstrap

import (
	"sync"

	"github.com/go-redis/redis/v8"
	"github.com/wekeepgrowing/stripe-cpq-connector/internal/adapter/repository"
	"github.com/wekeepgrowing/stripe-cpq-connector/internal/config"
	"github.com/wekeepgrowing/stripe-cpq-connector/internal/domain/entity"
	"github.com/wekeepgrowing/stripe-cpq-connector/internal/infrastructure/connection"
	"github.com/wekeepgrowing/stripe-cpq-connector/internal/infrastructure/database"
	"github.com/wekeepgrowing/stripe-cpq-connector/internal/infrastructure/lock"
	"github.com/wekeepgrowing/stripe-cpq-connector/internal/infrastructure/provider"
	"github.com/wekeepgrowing/stripe-cpq-connector/internal/usecase"
	"github.com/wekeepgrowing/stripe-cpq-connector/internal/usecase/translate"
	"github.com/wekeepgrowing/stripe-cpq-connector/pkg/messaging"
	"go.uber.org/zap"
)

// TranslatorFactory builds one translator per connection and reuses it.
// Translators keep no state between calls.
type TranslatorFactory struct {
	providers *provider.Factory
	repos     *database.Repositories
	logger    *zap.Logger

	mu          sync.Mutex
	translators map[string]*translate.Translator
}

func NewTranslatorFactory(providers *provider.Factory, repos *database.Repositories, logger *zap.Logger) *TranslatorFactory {
	return &TranslatorFactory{
		providers:   providers,
		repos:       repos,
		logger:      logger,
		translators: make(map[string]*translate.Translator),
	}
}

func (f *TranslatorFactory) Translator(conn *entity.Connection) usecase.Translator {
	f.mu.Lock()
	defer f.mu.Unlock()

	if t, ok := f.translators[conn.ID]; ok {
		return t
	}

	crm := f.providers.CRMProvider(conn)
	deps := translate.Dependencies{
		Connection: conn,
		CRM:        crm,
		CPQ:        repository.NewCPQRepository(crm, f.logger.With(zap.String("connection_id", conn.ID))),
		Billing:    f.providers.BillingProvider(conn),
	}
	if f.repos != nil {
		deps.SyncRecords = f.repos.SyncRecord
		deps.Links = f.repos.TranslationLink
	}

	t := translate.NewTranslator(deps, f.logger)
	f.translators[conn.ID] = t
	return t
}

// UseCases holds the wired application services
type UseCases struct {
	Translation *usecase.TranslationService
	Worker      *usecase.Worker
}

// NewUseCases wires the translation service and the job worker. The worker
// shares the redis client used for locks and the job channel.
func NewUseCases(
	cfg *config.Config,
	registry *connection.Registry,
	repos *database.Repositories,
	redisClient *redis.Client,
	logger *zap.Logger,
) *UseCases {
	translators := NewTranslatorFactory(provider.NewFactory(&cfg.Salesforce, logger), repos, logger)
	locker := lock.NewRedisLocker(redisClient, cfg.Redis.LockTTL, logger)
	channel := messaging.NewRedisClientFromConn(redisClient)

	translation := usecase.NewTranslationService(
		registry,
		translators,
		locker,
		repos.TranslationJob,
		channel,
		cfg.Redis.JobChannel,
		logger,
	)

	worker := usecase.NewWorker(channel, translation, usecase.WorkerConfig{
		Channel:     cfg.Redis.JobChannel,
		Concurrency: cfg.Redis.WorkerConcurrency,
	}, logger)

	return &UseCases{
		Translation: translation,
		Worker:      worker,
	}
}
