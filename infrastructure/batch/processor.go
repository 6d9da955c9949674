// Package batch fans one operation out over many repositories with a
// bounded worker pool and aggregates exactly one result per repository.
package batch

import (
	"context"
	"fmt"
	"sync"
	"time"

	logger "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/forksync/forksync/domain"
)

// DefaultMaxWorkers bounds parallelism when no explicit value is given.
const DefaultMaxWorkers = 4

// Processor applies an operation to many repositories concurrently.
// One repository's failure never cancels or blocks the others; the pool
// always drains to completion.
type Processor struct {
	maxWorkers int
	stagger    time.Duration
	operation  string
}

// NewProcessor creates a processor. maxWorkers at or below zero falls back
// to DefaultMaxWorkers; stagger is an inter-submission delay that keeps a
// burst of workers from hitting a provider at the same instant.
func NewProcessor(operation string, maxWorkers int, stagger time.Duration) *Processor {
	if maxWorkers <= 0 {
		maxWorkers = DefaultMaxWorkers
	}
	return &Processor{
		maxWorkers: maxWorkers,
		stagger:    stagger,
		operation:  operation,
	}
}

// ProcessRepositories runs op once per repository and returns one
// BatchResult per input, in no guaranteed order. An empty input returns
// an empty list without creating any workers. Errors raised by op are
// captured into the corresponding result and never escape the pool;
// cancelling ctx turns queued and in-flight work into failed results.
func (p *Processor) ProcessRepositories(
	ctx context.Context,
	repos []domain.Repository,
	op domain.Operation,
) []domain.BatchResult {
	if len(repos) == 0 {
		return []domain.BatchResult{}
	}

	logger.Infof(
		"Processing %d repositories with %d workers", len(repos), p.maxWorkers,
	)

	var (
		mu      sync.Mutex
		results = make([]domain.BatchResult, 0, len(repos))
	)
	appendResult := func(r domain.BatchResult) {
		mu.Lock()
		results = append(results, r)
		mu.Unlock()
	}

	group := &errgroup.Group{}
	group.SetLimit(p.maxWorkers)

	for i, repo := range repos {
		if i > 0 && p.stagger > 0 {
			select {
			case <-ctx.Done():
			case <-time.After(p.stagger):
			}
		}

		if ctx.Err() != nil {
			appendResult(p.cancelledResult(repo, ctx.Err()))
			continue
		}

		group.Go(func() error {
			appendResult(p.runOne(ctx, repo, op))
			return nil
		})
	}

	_ = group.Wait()
	return results
}

// runOne executes the operation for a single repository and converts any
// outcome (structured, error or panic) into a BatchResult.
func (p *Processor) runOne(
	ctx context.Context,
	repo domain.Repository,
	op domain.Operation,
) (result domain.BatchResult) {
	start := time.Now()

	defer func() {
		if r := recover(); r != nil {
			logger.Errorf("[%s] operation panicked: %v", repo.Name, r)
			result = domain.BatchResult{
				Name:      repo.Name,
				Path:      repo.Path,
				Operation: p.operation,
				Success:   false,
				Message:   fmt.Sprintf("operation panicked: %v", r),
				Err:       fmt.Errorf("panic: %v", r),
				Duration:  time.Since(start),
			}
		}
	}()

	if ctx.Err() != nil {
		return p.cancelledResult(repo, ctx.Err())
	}

	outcome, err := op(ctx, repo)
	result = domain.BatchResult{
		Name:      repo.Name,
		Path:      repo.Path,
		Operation: p.operation,
		Duration:  time.Since(start),
	}
	if err != nil {
		result.Success = false
		result.Message = err.Error()
		result.Err = err
		result.Details = outcome.Details
		logger.Errorf("[%s] %s failed: %v", repo.Name, p.operation, err)
		return result
	}

	result.Success = outcome.Success
	result.Message = outcome.Message
	result.Details = outcome.Details
	return result
}

func (p *Processor) cancelledResult(repo domain.Repository, err error) domain.BatchResult {
	return domain.BatchResult{
		Name:      repo.Name,
		Path:      repo.Path,
		Operation: p.operation,
		Success:   false,
		Message:   "batch cancelled before completion",
		Err:       err,
	}
}
