package usecase

import (
	"context"
	"io"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/mock"

	"github.com/naka-gawa/github-fork-stats/internal/domain"
)

// mockFetcher is a mock implementation of the gateway.Fetcher interface.
// It allows us to simulate the behavior of the GitHub gateway without making real API calls.
type mockFetcher struct {
	mock.Mock
}

func (m *mockFetcher) GetRepository(ctx context.Context, owner, repo, token string) (*domain.RepoMeta, error) {
	args := m.Called(ctx, owner, repo, token)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.RepoMeta), args.Error(1)
}

func (m *mockFetcher) ListForks(ctx context.Context, owner, repo, token string) ([]domain.ForkRef, error) {
	args := m.Called(ctx, owner, repo, token)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.ForkRef), args.Error(1)
}

func (m *mockFetcher) ListContributors(ctx context.Context, owner, repo string, limit int, token string) ([]domain.ContributorRef, error) {
	args := m.Called(ctx, owner, repo, limit, token)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.ContributorRef), args.Error(1)
}

func (m *mockFetcher) CompareAheadBy(ctx context.Context, owner, repo, base, head, token string) (int, error) {
	args := m.Called(ctx, owner, repo, base, head, token)
	return args.Int(0), args.Error(1)
}

func (m *mockFetcher) CountCommitsByLastPage(ctx context.Context, owner, repo, branch, token string) (int, error) {
	args := m.Called(ctx, owner, repo, branch, token)
	return args.Int(0), args.Error(1)
}

func (m *mockFetcher) CountCommits(ctx context.Context, owner, repo, branch, token string) (int, error) {
	args := m.Called(ctx, owner, repo, branch, token)
	return args.Int(0), args.Error(1)
}

func (m *mockFetcher) CountCommitHistory(ctx context.Context, owner, repo, branch, token string) (int, error) {
	args := m.Called(ctx, owner, repo, branch, token)
	return args.Int(0), args.Error(1)
}

func (m *mockFetcher) FetchContributorStats(ctx context.Context, owner, repo, token string) ([]domain.ContributorStat, error) {
	args := m.Called(ctx, owner, repo, token)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.ContributorStat), args.Error(1)
}

func (m *mockFetcher) CountCommitsSince(ctx context.Context, owner, repo string, since time.Time, token string) (int, error) {
	args := m.Called(ctx, owner, repo, since, token)
	return args.Int(0), args.Error(1)
}

func discardLogger() *logrus.Entry {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logrus.NewEntry(logger)
}
