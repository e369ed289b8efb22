// Package usecase contains the business logic of the application.
package usecase

import (
	"context"
	"sort"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/naka-gawa/github-fork-stats/internal/domain"
	apperrors "github.com/naka-gawa/github-fork-stats/internal/errors"
	"github.com/naka-gawa/github-fork-stats/internal/gateway"
)

const (
	defaultForkConcurrency = 8
	defaultTopContributors = 10
	defaultRecentWindow    = 48 * time.Hour
)

// Options tune how much work an Assembler does per request.
type Options struct {
	// ForkConcurrency bounds how many forks are resolved at the same time.
	ForkConcurrency int
	// MaxForks caps how many forks are resolved. Zero resolves every fork.
	MaxForks int
	// TopContributors is the number of contributors listed in a summary.
	TopContributors int
	// IncludeForkDetails fetches each fork's contributor stats for its top contributor and lines added.
	IncludeForkDetails bool
	// Strategies overrides the commit counting strategies.
	Strategies []Strategy
}

// Assembler is the use case for building repository summaries and details.
// It orchestrates the fetching and combining of data.
type Assembler struct {
	fetcher  gateway.Fetcher
	resolver *Resolver
	opts     Options
	logger   *logrus.Entry
	now      func() time.Time
}

// NewAssembler creates a new Assembler instance.
func NewAssembler(fetcher gateway.Fetcher, logger *logrus.Entry, opts Options) *Assembler {
	if opts.ForkConcurrency <= 0 {
		opts.ForkConcurrency = defaultForkConcurrency
	}
	if opts.TopContributors <= 0 {
		opts.TopContributors = defaultTopContributors
	}
	return &Assembler{
		fetcher:  fetcher,
		resolver: NewResolver(fetcher, logger, opts.Strategies...),
		opts:     opts,
		logger:   logger.WithField("component", "assembler"),
		now:      time.Now,
	}
}

// WithForkDetails returns a copy of the Assembler that does or does not enrich forks with details.
func (a *Assembler) WithForkDetails(enabled bool) *Assembler {
	c := *a
	c.opts.IncludeForkDetails = enabled
	return &c
}

// GetRepoSummary validates a repository URL and builds its fork and contributor summary.
func (a *Assembler) GetRepoSummary(ctx context.Context, repoURL, token string) (*domain.RepoSummary, error) {
	id, err := domain.ParseRepoURL(repoURL)
	if err != nil {
		return nil, err
	}
	log := a.logger.WithField("repo", id.FullName())
	log.Debug("Starting summary aggregation...")

	meta, err := a.fetcher.GetRepository(ctx, id.Owner, id.Name, token)
	if err != nil {
		return nil, err
	}

	var forkRefs []domain.ForkRef
	var committers []domain.ContributorRef

	eg, egCtx := errgroup.WithContext(ctx)
	eg.Go(func() error {
		var err error
		forkRefs, err = a.fetcher.ListForks(egCtx, id.Owner, id.Name, token)
		return err
	})
	eg.Go(func() error {
		var err error
		committers, err = a.fetcher.ListContributors(egCtx, id.Owner, id.Name, a.opts.TopContributors, token)
		return err
	})
	if err := eg.Wait(); err != nil {
		return nil, err
	}
	log.WithField("forks", len(forkRefs)).Debug("Fetched forks and contributors")

	if a.opts.MaxForks > 0 && len(forkRefs) > a.opts.MaxForks {
		forkRefs = forkRefs[:a.opts.MaxForks]
	}

	forks, err := a.resolveForks(ctx, forkRefs, meta.DefaultBranch, token)
	if err != nil {
		return nil, err
	}
	sort.SliceStable(forks, func(i, j int) bool {
		return forks[i].CommitCount > forks[j].CommitCount
	})

	if len(committers) > a.opts.TopContributors {
		committers = committers[:a.opts.TopContributors]
	}
	sort.SliceStable(committers, func(i, j int) bool {
		return committers[i].Commits > committers[j].Commits
	})

	counts := make([]float64, 0, len(forks))
	for _, f := range forks {
		counts = append(counts, float64(f.CommitCount))
	}

	summary := &domain.RepoSummary{
		Repository:       id,
		ForksCount:       meta.ForksCount,
		Forks:            forks,
		RecentCommitters: committers,
		ForkCommitStats:  distribution(counts),
	}
	if a.opts.IncludeForkDetails {
		summary.TopForkContributors = mergeForkContributors(forks)
	}
	log.Debug("Summary aggregation complete.")
	return summary, nil
}

// resolveForks counts every fork's commits with at most ForkConcurrency forks in flight.
// A fork whose count cannot be resolved keeps a count of 0; it never fails the batch.
func (a *Assembler) resolveForks(ctx context.Context, refs []domain.ForkRef, parentBranch, token string) ([]domain.ForkSummary, error) {
	forks := make([]domain.ForkSummary, len(refs))

	eg, egCtx := errgroup.WithContext(ctx)
	eg.SetLimit(a.opts.ForkConcurrency)
	for i, ref := range refs {
		i, ref := i, ref
		eg.Go(func() error {
			res := a.resolver.Resolve(egCtx, ForkTarget{Fork: ref, ParentBranch: parentBranch}, token)
			summary := domain.ForkSummary{
				ID:                ref.ID,
				Name:              ref.Name,
				FullName:          ref.FullName,
				URL:               ref.URL,
				CommitCount:       res.Count,
				CommitCountSource: res.Source,
				Approximate:       !res.Source.Exact(),
			}
			if a.opts.IncludeForkDetails {
				details, err := a.GetForkDetails(egCtx, ref.Owner, ref.Name, token)
				if err != nil {
					a.logger.WithFields(logrus.Fields{"fork": ref.FullName, "error": err}).Warn("Could not fetch fork details")
				} else {
					summary.TopContributor = details.TopContributor
					summary.LinesAdded = details.LinesAdded
					summary.TotalCommits = details.CommitCount
				}
			}
			forks[i] = summary
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}
	return forks, ctx.Err()
}

// GetRepoDetail builds the contributor and activity view of a repository.
func (a *Assembler) GetRepoDetail(ctx context.Context, owner, repo, token string) (*domain.RepoDetail, error) {
	if owner == "" || repo == "" {
		return nil, apperrors.NewBadRequestError("repository owner and name are required")
	}
	log := a.logger.WithField("repo", owner+"/"+repo)
	log.Debug("Starting detail aggregation...")

	var contributors []domain.ContributorStat
	var recent int
	statsUnavailable := false

	eg, egCtx := errgroup.WithContext(ctx)
	eg.Go(func() error {
		var err error
		contributors, err = a.fetcher.FetchContributorStats(egCtx, owner, repo, token)
		if apperrors.IsStatsUnavailable(err) {
			log.WithField("error", err).Warn("Contributor stats unavailable")
			contributors, statsUnavailable = []domain.ContributorStat{}, true
			return nil
		}
		return err
	})
	eg.Go(func() error {
		var err error
		recent, err = a.fetcher.CountCommitsSince(egCtx, owner, repo, a.now().Add(-defaultRecentWindow), token)
		return err
	})
	if err := eg.Wait(); err != nil {
		return nil, err
	}

	activity := AggregateActivity(contributors)
	log.Debug("Detail aggregation complete.")
	return &domain.RepoDetail{
		Repository:           domain.RepositoryIdentifier{Owner: owner, Name: repo},
		TotalCommits:         activity.TotalCommits,
		LinesAdded:           activity.LinesAdded,
		LinesDeleted:         activity.LinesDeleted,
		CommitsInLast48Hours: recent,
		Contributors:         contributors,
		CommitActivity:       activity.CommitActivity,
		WeeklyCommitStats:    activity.WeeklyCommitStats,
		StatsUnavailable:     statsUnavailable,
	}, nil
}

// GetForkDetails derives a fork's commit total, top contributor and lines added from
// its contributor stats.
func (a *Assembler) GetForkDetails(ctx context.Context, owner, repo, token string) (*domain.ForkDetails, error) {
	contributors, err := a.fetcher.FetchContributorStats(ctx, owner, repo, token)
	if err != nil {
		return nil, err
	}
	details := forkDetailsFromStats(contributors)
	return &details, nil
}
