// Package service assembles the challenge service from configuration:
// store, pool catalog, simulation workers, manager and background jobs.
package service

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"runtime"
	"sync"
	"time"

	"github.com/go-co-op/gocron/v2"

	"github.com/okian/budgetgm/internal/adapters/http/api"
	"github.com/okian/budgetgm/internal/adapters/mq/queue"
	"github.com/okian/budgetgm/internal/adapters/mq/worker"
	"github.com/okian/budgetgm/internal/adapters/pool"
	"github.com/okian/budgetgm/internal/adapters/repository"
	"github.com/okian/budgetgm/internal/adapters/repository/postgres"
	"github.com/okian/budgetgm/internal/config"
	"github.com/okian/budgetgm/internal/domain/challenge"
	"github.com/okian/budgetgm/internal/domain/rating"
	"github.com/okian/budgetgm/internal/domain/roster"
	"github.com/okian/budgetgm/internal/domain/simulation"
	"github.com/okian/budgetgm/pkg/logger"
	"github.com/okian/budgetgm/pkg/metrics"
)

// Job names used in logs and scheduler metrics.
const (
	jobPregenerate = "pregenerate"
	jobPoolRefresh = "pool_refresh"
)

// ErrNotStarted is returned by accessors used before Start.
var ErrNotStarted = errors.New("service not started")

// Service owns the running components.
type Service struct {
	cfg *config.Config

	mu      sync.RWMutex
	started bool
	stopCh  chan struct{}
	loopWG  sync.WaitGroup

	store     challenge.Store
	closeDB   func() error
	catalog   *pool.Catalog
	workers   *worker.Pool
	manager   *challenge.Manager
	scheduler gocron.Scheduler

	// overrides for tests
	storeOverride  challenge.Store
	sourceOverride pool.Source
	now            func() time.Time

	logger logger.Logger
}

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithStore replaces the configured store driver.
func WithStore(store challenge.Store) Option {
	return func(s *Service) { s.storeOverride = store }
}

// WithPoolSource replaces the configured pool file.
func WithPoolSource(src pool.Source) Option {
	return func(s *Service) { s.sourceOverride = src }
}

// WithClock sets the clock used to resolve "today".
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// New constructs a Service; nothing is opened until Start.
func New(cfg *config.Config, opts ...Option) *Service {
	if cfg == nil {
		cfg = config.New()
	}
	s := &Service{
		cfg:    cfg,
		stopCh: make(chan struct{}),
		now:    time.Now,
		logger: logger.Get().Named("service"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start opens the store, loads the pool, starts workers and schedules jobs.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.started {
		return nil
	}
	if err := s.cfg.Validate(); err != nil {
		return err
	}
	loc, err := s.cfg.Location()
	if err != nil {
		return err
	}

	s.logger.Info(ctx, "starting challenge service...", logger.String("store", s.cfg.StoreDriver))
	s.stopCh = make(chan struct{})

	base, err := s.openStore()
	if err != nil {
		return err
	}
	s.store = repository.Retry(base,
		repository.WithName(s.cfg.StoreDriver),
		repository.WithAttempts(s.cfg.StoreAttempts),
		repository.WithBackoff(s.cfg.StoreBackoff),
		repository.WithTimeout(s.cfg.StoreTimeout),
	)

	source := s.sourceOverride
	if source == nil {
		source = pool.NewFileSource(s.cfg.PoolFile)
	}
	catalog := pool.NewCatalog(source, pool.WithRater(rating.NewRater(rating.WithPolicy(s.cfg.TierPolicy()))))
	if _, err := catalog.Refresh(ctx); err != nil {
		_ = s.closeStore(ctx)
		return fmt.Errorf("load player pool: %w", err)
	}
	s.catalog = catalog

	workerCount := s.cfg.WorkerCount
	if workerCount == 0 {
		workerCount = runtime.NumCPU()
	}
	jobs := queue.NewInMemoryQueue(queue.WithCapacity(s.cfg.QueueSize))
	s.workers = worker.NewPool(workerCount, jobs, simulation.New(simulation.WithGames(s.cfg.SeasonGames)))
	s.workers.Start(context.WithoutCancel(ctx))

	rosterOpts := []roster.Option{roster.WithBudget(s.cfg.Budget)}
	if s.cfg.PositionCap == 0 {
		rosterOpts = append(rosterOpts, roster.WithoutPositionCaps())
	} else {
		rosterOpts = append(rosterOpts, roster.WithPositionCap(s.cfg.PositionCap))
	}
	s.manager = challenge.NewManager(s.store, s.catalog, s.workers,
		challenge.WithClock(s.now),
		challenge.WithLocation(loc),
		challenge.WithConflictRetries(s.cfg.ConflictRetries),
		challenge.WithPerTier(s.cfg.PlayersPerTier),
		challenge.WithRosterOptions(rosterOpts...),
	)

	if err := s.schedule(loc); err != nil {
		_ = s.shutdownComponents(ctx)
		s.manager, s.catalog = nil, nil
		return err
	}
	if s.cfg.SystemMetricsInterval > 0 {
		s.loopWG.Add(1)
		go s.systemMetricsLoop(s.cfg.SystemMetricsInterval)
	}

	s.started = true
	s.logger.Info(ctx, "challenge service started",
		logger.Int("workers", workerCount),
		logger.Int("queueSize", s.cfg.QueueSize),
		logger.String("timezone", loc.String()),
	)
	return nil
}

func (s *Service) openStore() (challenge.Store, error) {
	if s.storeOverride != nil {
		return s.storeOverride, nil
	}
	switch s.cfg.StoreDriver {
	case config.StoreFile:
		st, err := repository.NewFileStore(s.cfg.DataDir)
		if err != nil {
			return nil, fmt.Errorf("open file store: %w", err)
		}
		return st, nil
	case config.StorePostgres:
		st, err := postgres.Open(s.cfg.DatabaseURL, s.cfg.DatabaseDebug)
		if err != nil {
			return nil, fmt.Errorf("open postgres store: %w", err)
		}
		s.closeDB = st.Close
		return st, nil
	default:
		return repository.NewMemoryStore(), nil
	}
}

// schedule registers the pregeneration and pool refresh jobs.
func (s *Service) schedule(loc *time.Location) error {
	if s.cfg.PregenerateCron == "" && s.cfg.PoolRefresh <= 0 {
		return nil
	}
	sched, err := gocron.NewScheduler(gocron.WithLocation(loc))
	if err != nil {
		return fmt.Errorf("create scheduler: %w", err)
	}
	if s.cfg.PregenerateCron != "" {
		if _, err := sched.NewJob(
			gocron.CronJob(s.cfg.PregenerateCron, false),
			gocron.NewTask(func() { _ = s.Pregenerate(context.Background()) }),
			gocron.WithName(jobPregenerate),
			gocron.WithSingletonMode(gocron.LimitModeReschedule),
		); err != nil {
			_ = sched.Shutdown()
			return fmt.Errorf("schedule %s: %w", jobPregenerate, err)
		}
	}
	if s.cfg.PoolRefresh > 0 {
		if _, err := sched.NewJob(
			gocron.DurationJob(s.cfg.PoolRefresh),
			gocron.NewTask(func() { _ = s.RefreshPool(context.Background()) }),
			gocron.WithName(jobPoolRefresh),
			gocron.WithSingletonMode(gocron.LimitModeReschedule),
		); err != nil {
			_ = sched.Shutdown()
			return fmt.Errorf("schedule %s: %w", jobPoolRefresh, err)
		}
	}
	sched.Start()
	s.scheduler = sched
	return nil
}

// Pregenerate creates today's challenge if it does not exist yet.
func (s *Service) Pregenerate(ctx context.Context) error {
	m, err := s.Manager()
	if err != nil {
		return err
	}
	doc, err := m.GetOrCreate(ctx, challenge.Today)
	if err != nil {
		metrics.RecordSchedulerRun(jobPregenerate, "error")
		s.logger.Error(ctx, "pregenerate failed", logger.Error(err))
		return err
	}
	metrics.RecordSchedulerRun(jobPregenerate, "ok")
	s.logger.Info(ctx, "challenge ready", logger.String("date", doc.Date))
	return nil
}

// RefreshPool reloads the canonical pool. Existing daily pools keep the
// players they were generated with.
func (s *Service) RefreshPool(ctx context.Context) error {
	s.mu.RLock()
	catalog := s.catalog
	s.mu.RUnlock()
	if catalog == nil {
		return ErrNotStarted
	}
	if _, err := catalog.Refresh(ctx); err != nil {
		metrics.RecordSchedulerRun(jobPoolRefresh, "error")
		s.logger.Warn(ctx, "pool refresh failed, keeping previous pool", logger.Error(err))
		return err
	}
	metrics.RecordSchedulerRun(jobPoolRefresh, "ok")
	return nil
}

// Manager returns the challenge manager.
func (s *Service) Manager() (*challenge.Manager, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.manager == nil {
		return nil, ErrNotStarted
	}
	return s.manager, nil
}

// Catalog returns the pool catalog.
func (s *Service) Catalog() (*pool.Catalog, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.catalog == nil {
		return nil, ErrNotStarted
	}
	return s.catalog, nil
}

// Handler returns the HTTP API over the running manager and catalog.
func (s *Service) Handler(opts ...api.Option) (http.Handler, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.manager == nil {
		return nil, ErrNotStarted
	}
	opts = append([]api.Option{api.WithMaxLimit(s.cfg.MaxLeaderboardLimit)}, opts...)
	return api.NewServer(s.manager, s.catalog, opts...).Routes(), nil
}

// Stop gracefully shuts down the service.
func (s *Service) Stop(ctx context.Context) error {
	// Jobs read the manager under the lock, so the scheduler stops first.
	s.mu.Lock()
	if !s.started {
		s.mu.Unlock()
		return nil
	}
	sched := s.scheduler
	s.scheduler = nil
	s.mu.Unlock()

	s.logger.Info(ctx, "stopping challenge service...")
	var errs []error
	if sched != nil {
		if err := sched.Shutdown(); err != nil {
			errs = append(errs, fmt.Errorf("scheduler: %w", err))
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.started {
		return errors.Join(errs...)
	}
	close(s.stopCh)
	s.loopWG.Wait()
	if err := s.shutdownComponents(ctx); err != nil {
		errs = append(errs, err)
	}

	s.started = false
	s.logger.Info(ctx, "challenge service stopped")
	return errors.Join(errs...)
}

// shutdownComponents stops the workers and closes the store.
func (s *Service) shutdownComponents(ctx context.Context) error {
	var errs []error
	if s.workers != nil {
		if err := s.workers.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("workers: %w", err))
		}
	}
	if err := s.closeStore(ctx); err != nil {
		errs = append(errs, fmt.Errorf("store: %w", err))
	}
	return errors.Join(errs...)
}

func (s *Service) closeStore(ctx context.Context) error {
	if s.closeDB == nil {
		return nil
	}
	err := s.closeDB()
	s.closeDB = nil
	if err != nil {
		s.logger.Warn(ctx, "closing store failed", logger.Error(err))
	}
	return err
}

// systemMetricsLoop samples runtime stats until Stop.
func (s *Service) systemMetricsLoop(interval time.Duration) {
	defer s.loopWG.Done()
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	var lastNumGC uint32
	for {
		var ms runtime.MemStats
		runtime.ReadMemStats(&ms)
		metrics.UpdateSystemMemoryUsage(ms.Alloc)
		metrics.UpdateSystemGoroutineCount(runtime.NumGoroutine())
		for i := lastNumGC; i < ms.NumGC && ms.NumGC-i <= uint32(len(ms.PauseNs)); i++ {
			pause := ms.PauseNs[i%uint32(len(ms.PauseNs))]
			metrics.RecordSystemGCPauseTime(float64(pause) / float64(time.Millisecond))
		}
		lastNumGC = ms.NumGC

		select {
		case <-s.stopCh:
			return
		case <-ticker.C:
		}
	}
}
