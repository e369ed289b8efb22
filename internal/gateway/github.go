package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"time"

	"github.com/google/go-github/v62/github"
	"github.com/sirupsen/logrus"

	"github.com/naka-gawa/github-fork-stats/internal/domain"
	apperrors "github.com/naka-gawa/github-fork-stats/internal/errors"
)

const (
	forksPerPage   = 100
	commitsPerPage = 100
)

var (
	// ErrNoLastPage means the commits listing fit on one page, so no rel="last" link was sent.
	ErrNoLastPage = errors.New("no last page link")
	// ErrCompareUnavailable means GitHub could not compare the two branches.
	ErrCompareUnavailable = errors.New("compare unavailable")
)

// Fetcher defines the behavior of a gateway for fetching information from GitHub.
// An empty token means the gateway's default token, if any.
type Fetcher interface {
	GetRepository(ctx context.Context, owner, repo, token string) (*domain.RepoMeta, error)
	ListForks(ctx context.Context, owner, repo, token string) ([]domain.ForkRef, error)
	ListContributors(ctx context.Context, owner, repo string, limit int, token string) ([]domain.ContributorRef, error)
	CompareAheadBy(ctx context.Context, owner, repo, base, head, token string) (int, error)
	CountCommitsByLastPage(ctx context.Context, owner, repo, branch, token string) (int, error)
	CountCommits(ctx context.Context, owner, repo, branch, token string) (int, error)
	CountCommitHistory(ctx context.Context, owner, repo, branch, token string) (int, error)
	FetchContributorStats(ctx context.Context, owner, repo, token string) ([]domain.ContributorStat, error)
	CountCommitsSince(ctx context.Context, owner, repo string, since time.Time, token string) (int, error)
}

// GitHubGateway is the concrete implementation of the Fetcher interface.
type GitHubGateway struct {
	client *Client
	logger *logrus.Entry
}

var _ Fetcher = (*GitHubGateway)(nil)

// NewGitHubGateway is a constructor that creates a new instance of GitHubGateway.
func NewGitHubGateway(cfg Config, logger *logrus.Entry) (*GitHubGateway, error) {
	client, err := NewClient(cfg, logger)
	if err != nil {
		return nil, err
	}
	return &GitHubGateway{
		client: client,
		logger: logger.WithField("component", "gateway"),
	}, nil
}

func repoPath(owner, repo string) string {
	return fmt.Sprintf("repos/%s/%s", url.PathEscape(owner), url.PathEscape(repo))
}

// GetRepository fetches the default branch and fork count of a repository.
func (g *GitHubGateway) GetRepository(ctx context.Context, owner, repo, token string) (*domain.RepoMeta, error) {
	page, err := g.client.Get(ctx, repoPath(owner, repo), token)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch repository %s/%s: %w", owner, repo, err)
	}
	if page.NotFound() {
		return nil, apperrors.NewNotFoundError(fmt.Sprintf("repository %s/%s", owner, repo))
	}

	var r github.Repository
	if err := json.Unmarshal(page.Body, &r); err != nil {
		return nil, fmt.Errorf("failed to decode repository %s/%s: %w", owner, repo, err)
	}
	return &domain.RepoMeta{
		Owner:         r.GetOwner().GetLogin(),
		Name:          r.GetName(),
		FullName:      r.GetFullName(),
		DefaultBranch: r.GetDefaultBranch(),
		ForksCount:    r.GetForksCount(),
	}, nil
}

// ListForks walks every page of the forks listing, most starred first.
func (g *GitHubGateway) ListForks(ctx context.Context, owner, repo, token string) ([]domain.ForkRef, error) {
	query := url.Values{"per_page": {strconv.Itoa(forksPerPage)}, "sort": {"stargazers"}}
	items, err := g.client.CollectAll(ctx, repoPath(owner, repo)+"/forks?"+query.Encode(), token)
	if err != nil {
		return nil, fmt.Errorf("failed to list forks of %s/%s: %w", owner, repo, err)
	}
	repos, err := decodeItems[github.Repository](items)
	if err != nil {
		return nil, fmt.Errorf("failed to decode forks of %s/%s: %w", owner, repo, err)
	}

	forks := make([]domain.ForkRef, 0, len(repos))
	for _, r := range repos {
		forks = append(forks, domain.ForkRef{
			ID:            r.GetID(),
			Owner:         r.GetOwner().GetLogin(),
			Name:          r.GetName(),
			FullName:      r.GetFullName(),
			URL:           r.GetHTMLURL(),
			DefaultBranch: r.GetDefaultBranch(),
		})
	}
	g.logger.WithFields(logrus.Fields{"repo": owner + "/" + repo, "forks": len(forks)}).Debug("Listed forks")
	return forks, nil
}

// ListContributors fetches the first page of contributors, ordered by GitHub by contributions.
func (g *GitHubGateway) ListContributors(ctx context.Context, owner, repo string, limit int, token string) ([]domain.ContributorRef, error) {
	query := url.Values{"per_page": {strconv.Itoa(limit)}}
	page, err := g.client.Get(ctx, repoPath(owner, repo)+"/contributors?"+query.Encode(), token)
	if err != nil {
		return nil, fmt.Errorf("failed to list contributors of %s/%s: %w", owner, repo, err)
	}
	if page.NotFound() || !isList(page.Body) {
		return []domain.ContributorRef{}, nil
	}

	var contributors []*github.Contributor
	if err := json.Unmarshal(page.Body, &contributors); err != nil {
		return nil, fmt.Errorf("failed to decode contributors of %s/%s: %w", owner, repo, err)
	}
	refs := make([]domain.ContributorRef, 0, len(contributors))
	for _, c := range contributors {
		refs = append(refs, domain.ContributorRef{
			Name:      c.GetLogin(),
			AvatarURL: c.GetAvatarURL(),
			Commits:   c.GetContributions(),
		})
	}
	return refs, nil
}

// CompareAheadBy returns how many commits head has that base does not, compared within owner/repo.
func (g *GitHubGateway) CompareAheadBy(ctx context.Context, owner, repo, base, head, token string) (int, error) {
	endpoint := fmt.Sprintf("%s/compare/%s...%s", repoPath(owner, repo), base, head)
	page, err := g.client.Get(ctx, endpoint, token)
	if err != nil {
		return 0, fmt.Errorf("failed to compare %s...%s in %s/%s: %w", base, head, owner, repo, err)
	}
	if page.NotFound() {
		return 0, fmt.Errorf("failed to compare %s...%s in %s/%s: %w", base, head, owner, repo, ErrCompareUnavailable)
	}

	var comparison github.CommitsComparison
	if err := json.Unmarshal(page.Body, &comparison); err != nil {
		return 0, fmt.Errorf("failed to decode comparison for %s/%s: %w", owner, repo, err)
	}
	if comparison.AheadBy == nil {
		return 0, fmt.Errorf("comparison for %s/%s has no ahead_by: %w", owner, repo, ErrCompareUnavailable)
	}
	return comparison.GetAheadBy(), nil
}

// CountCommitsByLastPage requests one commit per page and reads the total from the
// page number of the rel="last" link.
func (g *GitHubGateway) CountCommitsByLastPage(ctx context.Context, owner, repo, branch, token string) (int, error) {
	query := url.Values{"sha": {branch}, "per_page": {"1"}}
	page, err := g.client.Get(ctx, repoPath(owner, repo)+"/commits?"+query.Encode(), token)
	if err != nil {
		return 0, fmt.Errorf("failed to list commits of %s/%s@%s: %w", owner, repo, branch, err)
	}
	if page.NotFound() {
		return 0, apperrors.NewNotFoundError(fmt.Sprintf("branch %s of %s/%s", branch, owner, repo))
	}

	last, ok := page.Links["last"]
	if !ok {
		return 0, ErrNoLastPage
	}
	count, ok := PageNumber(last)
	if !ok {
		return 0, fmt.Errorf("failed to read page number from %q: %w", last, ErrNoLastPage)
	}
	return count, nil
}

// CountCommits walks the whole commit listing of a branch and counts it. A missing
// branch or repository is an error, not zero commits.
func (g *GitHubGateway) CountCommits(ctx context.Context, owner, repo, branch, token string) (int, error) {
	query := url.Values{"sha": {branch}, "per_page": {strconv.Itoa(commitsPerPage)}}
	items, notFound, err := g.client.collect(ctx, repoPath(owner, repo)+"/commits?"+query.Encode(), token)
	if err != nil {
		return 0, fmt.Errorf("failed to list commits of %s/%s@%s: %w", owner, repo, branch, err)
	}
	if notFound {
		return 0, apperrors.NewNotFoundError(fmt.Sprintf("branch %s of %s/%s", branch, owner, repo))
	}
	return len(items), nil
}

// FetchContributorStats fetches GitHub's weekly per-contributor statistics. A body that
// is not a list (empty repository, repository too large to compute) is an empty result.
func (g *GitHubGateway) FetchContributorStats(ctx context.Context, owner, repo, token string) ([]domain.ContributorStat, error) {
	page, err := g.client.Get(ctx, repoPath(owner, repo)+"/stats/contributors", token)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch contributor stats of %s/%s: %w", owner, repo, err)
	}
	if page.NotFound() || !isList(page.Body) {
		g.logger.WithFields(logrus.Fields{"repo": owner + "/" + repo, "status": page.StatusCode}).Debug("Contributor stats are not a list, treating as empty")
		return []domain.ContributorStat{}, nil
	}

	var raw []*github.ContributorStats
	if err := json.Unmarshal(page.Body, &raw); err != nil {
		return nil, fmt.Errorf("failed to decode contributor stats of %s/%s: %w", owner, repo, err)
	}

	stats := make([]domain.ContributorStat, 0, len(raw))
	for _, s := range raw {
		weeks := make([]domain.WeekStat, 0, len(s.Weeks))
		for _, w := range s.Weeks {
			if w == nil || w.Week == nil {
				continue
			}
			weeks = append(weeks, domain.WeekStat{
				WeekStart: w.GetWeek().Unix(),
				Additions: w.GetAdditions(),
				Deletions: w.GetDeletions(),
				Commits:   w.GetCommits(),
			})
		}
		stats = append(stats, domain.ContributorStat{
			Author: domain.ContributorRef{
				Name:      s.GetAuthor().GetLogin(),
				AvatarURL: s.GetAuthor().GetAvatarURL(),
				Commits:   s.GetTotal(),
			},
			Total: s.GetTotal(),
			Weeks: weeks,
		})
	}
	return stats, nil
}

// CountCommitsSince counts the commits on the default branch authored after since.
func (g *GitHubGateway) CountCommitsSince(ctx context.Context, owner, repo string, since time.Time, token string) (int, error) {
	query := url.Values{"since": {since.UTC().Format(time.RFC3339)}, "per_page": {strconv.Itoa(commitsPerPage)}}
	items, err := g.client.CollectAll(ctx, repoPath(owner, repo)+"/commits?"+query.Encode(), token)
	if err != nil {
		return 0, fmt.Errorf("failed to list recent commits of %s/%s: %w", owner, repo, err)
	}
	return len(items), nil
}
