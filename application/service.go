package application

import (
	"context"
	"sort"

	logger "github.com/sirupsen/logrus"

	"github.com/forksync/forksync/config"
	"github.com/forksync/forksync/domain"
	"github.com/forksync/forksync/infrastructure/batch"
	providerPkg "github.com/forksync/forksync/infrastructure/provider"
	"github.com/forksync/forksync/infrastructure/ratelimit"
	"github.com/forksync/forksync/infrastructure/retry"
	"github.com/forksync/forksync/infrastructure/syncer"
)

// SyncService orchestrates the full sync flow: build the repository list
// from configuration, fan the sync operation out through the batch
// processor, and aggregate one result per repository.
type SyncService struct {
	providerRegistry *providerPkg.Registry
}

// NewSyncService creates a new service with the given provider registry.
func NewSyncService(providerRegistry *providerPkg.Registry) *SyncService {
	return &SyncService{providerRegistry: providerRegistry}
}

// RunOptions holds runtime options for a single run.
type RunOptions struct {
	DryRun         bool
	Verbose        bool
	RepoFilter     string // If set, only process this repository (CLI override)
	ProviderFilter string // If set, only process repos on this provider (CLI override)
	Strategy       string // If set, overrides sync.conflict_strategy
	Workers        int    // If set, overrides sync.max_workers
}

// Run executes one sync batch and returns the results sorted by
// repository name. Per-repository failures are captured in the results,
// never returned as an error.
func (s *SyncService) Run(
	ctx context.Context,
	cfg *config.Config,
	runOpts RunOptions,
) ([]domain.BatchResult, error) {
	if runOpts.Verbose {
		logger.SetLevel(logger.DebugLevel)
	}

	providers, err := s.buildProviders(cfg)
	if err != nil {
		return nil, err
	}

	repos := buildRepositories(cfg, runOpts)
	if len(repos) == 0 {
		logger.Warn("No repositories matched the configured filters")
		return []domain.BatchResult{}, nil
	}

	strategy := cfg.Sync.ConflictStrategy
	if runOpts.Strategy != "" {
		strategy = runOpts.Strategy
	}

	sync := syncer.New(providers, syncer.Options{
		DryRun:           runOpts.DryRun,
		Push:             cfg.Sync.Push,
		ConflictStrategy: syncer.ConflictStrategy(strategy),
		MaxAttempts:      cfg.Sync.Retry.Attempts(),
		Policy:           buildPolicy(cfg.Sync.Retry),
		Timeout:          cfg.Sync.Retry.Timeout(),
	})

	workers := cfg.Sync.MaxWorkers
	if runOpts.Workers > 0 {
		workers = runOpts.Workers
	}
	processor := batch.NewProcessor(syncer.OperationName, workers, cfg.Sync.Stagger())

	results := processor.ProcessRepositories(ctx, repos, sync.Operation())

	sort.Slice(results, func(i, j int) bool {
		return results[i].Name < results[j].Name
	})

	succeeded := 0
	for _, r := range results {
		if r.Success {
			succeeded++
		}
	}
	logger.Infof(
		"Run complete: %d repositories, %d synced, %d failed",
		len(results), succeeded, len(results)-succeeded,
	)
	return results, nil
}

// buildProviders instantiates one provider per configured entry and
// registers its rate limiter.
func (s *SyncService) buildProviders(cfg *config.Config) (map[string]domain.Provider, error) {
	providers := make(map[string]domain.Provider, len(cfg.Providers))
	for _, provCfg := range cfg.Providers {
		prov, err := s.providerRegistry.Get(provCfg.Type, provCfg.Token)
		if err != nil {
			return nil, err
		}
		providers[provCfg.Type] = prov

		ratelimit.For(provCfg.Type, ratelimit.Config{
			RequestsPerMinute: provCfg.RateLimit.RequestsPerMinute,
			RequestsPerHour:   provCfg.RateLimit.RequestsPerHour,
			MinInterval:       provCfg.RateLimit.MinInterval(),
		})
	}
	return providers, nil
}

// buildRepositories converts configured repositories into task
// descriptors, applying the CLI filters.
func buildRepositories(cfg *config.Config, runOpts RunOptions) []domain.Repository {
	repos := make([]domain.Repository, 0, len(cfg.Repositories))
	for _, rc := range cfg.Repositories {
		if runOpts.RepoFilter != "" && rc.Name != runOpts.RepoFilter {
			continue
		}
		if runOpts.ProviderFilter != "" && rc.Provider != runOpts.ProviderFilter {
			continue
		}
		repos = append(repos, domain.Repository{
			Name:         rc.Name,
			Path:         rc.Path,
			UpstreamURL:  rc.Upstream,
			ProviderName: rc.Provider,
			Branch:       rc.Branch,
			Config:       rc.Options,
		})
	}
	return repos
}

// buildPolicy maps the retry configuration onto a policy value.
func buildPolicy(rc config.RetryConfig) retry.Policy {
	if rc.Strategy == "linear" {
		return retry.LinearBackoff{
			BaseDelay: rc.BaseDelay(),
			MaxDelay:  rc.MaxDelay(),
		}
	}
	return retry.ExponentialBackoff{
		BaseDelay: rc.BaseDelay(),
		MaxDelay:  rc.MaxDelay(),
		Jitter:    rc.Jitter,
	}
}
