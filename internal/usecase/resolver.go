package usecase

import (
	"context"

	"github.com/sirupsen/logrus"

	"github.com/naka-gawa/github-fork-stats/internal/domain"
	"github.com/naka-gawa/github-fork-stats/internal/gateway"
)

// ForkTarget is a fork together with the branch of its parent it is measured against.
type ForkTarget struct {
	Fork         domain.ForkRef
	ParentBranch string
}

// Strategy is one way of counting a fork's commits.
type Strategy struct {
	Source domain.CountSource
	Count  func(ctx context.Context, f gateway.Fetcher, target ForkTarget, token string) (int, error)
}

// CompareStrategy counts the commits on the fork's default branch that the parent's
// default branch does not have. It is the only exact strategy.
var CompareStrategy = Strategy{
	Source: domain.CountSourceCompare,
	Count: func(ctx context.Context, f gateway.Fetcher, target ForkTarget, token string) (int, error) {
		return f.CompareAheadBy(ctx, target.Fork.Owner, target.Fork.Name, target.ParentBranch, target.Fork.DefaultBranch, token)
	},
}

// LastPageStrategy reads the total commit count of the fork's branch from the
// rel="last" link of a one-commit-per-page listing.
var LastPageStrategy = Strategy{
	Source: domain.CountSourceLastPage,
	Count: func(ctx context.Context, f gateway.Fetcher, target ForkTarget, token string) (int, error) {
		return f.CountCommitsByLastPage(ctx, target.Fork.Owner, target.Fork.Name, target.Fork.DefaultBranch, token)
	},
}

// ExhaustiveStrategy lists every commit of the fork's branch.
var ExhaustiveStrategy = Strategy{
	Source: domain.CountSourceExhaustive,
	Count: func(ctx context.Context, f gateway.Fetcher, target ForkTarget, token string) (int, error) {
		return f.CountCommits(ctx, target.Fork.Owner, target.Fork.Name, target.Fork.DefaultBranch, token)
	},
}

// HistoryStrategy asks the GraphQL API for the branch's commit history size.
var HistoryStrategy = Strategy{
	Source: domain.CountSourceHistory,
	Count: func(ctx context.Context, f gateway.Fetcher, target ForkTarget, token string) (int, error) {
		return f.CountCommitHistory(ctx, target.Fork.Owner, target.Fork.Name, target.Fork.DefaultBranch, token)
	},
}

// DefaultStrategies returns compare, then last-page, then exhaustive counting.
func DefaultStrategies() []Strategy {
	return []Strategy{CompareStrategy, LastPageStrategy, ExhaustiveStrategy}
}

// Resolution is a fork's commit count and the strategy that produced it.
type Resolution struct {
	Count  int
	Source domain.CountSource
}

// Resolver tries strategies in order until one succeeds.
type Resolver struct {
	fetcher    gateway.Fetcher
	strategies []Strategy
	logger     *logrus.Entry
}

// NewResolver creates a Resolver. With no strategies it uses DefaultStrategies.
func NewResolver(fetcher gateway.Fetcher, logger *logrus.Entry, strategies ...Strategy) *Resolver {
	if len(strategies) == 0 {
		strategies = DefaultStrategies()
	}
	return &Resolver{
		fetcher:    fetcher,
		strategies: strategies,
		logger:     logger.WithField("component", "resolver"),
	}
}

// Resolve never fails: when every strategy errors the count is 0 with source "none".
func (r *Resolver) Resolve(ctx context.Context, target ForkTarget, token string) Resolution {
	log := r.logger.WithField("fork", target.Fork.FullName)
	for _, s := range r.strategies {
		if ctx.Err() != nil {
			break
		}
		count, err := s.Count(ctx, r.fetcher, target, token)
		if err != nil {
			log.WithFields(logrus.Fields{"strategy": s.Source, "error": err}).Debug("Commit count strategy failed")
			continue
		}
		if count < 0 {
			count = 0
		}
		return Resolution{Count: count, Source: s.Source}
	}
	log.Warn("Could not count commits for fork. Setting commit count to 0.")
	return Resolution{Count: 0, Source: domain.CountSourceNone}
}
