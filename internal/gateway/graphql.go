package gateway

import (
	"context"
	"errors"
	"fmt"

	"github.com/shurcooL/githubv4"
)

// ErrTokenRequired is returned by GraphQL calls made without any token; GitHub's
// GraphQL API does not serve anonymous requests.
var ErrTokenRequired = errors.New("GraphQL API requires an access token")

// commitHistoryQuery counts every commit reachable from a branch.
type commitHistoryQuery struct {
	Repository struct {
		Ref struct {
			Target struct {
				Commit struct {
					History struct {
						TotalCount int
					}
				} `graphql:"... on Commit"`
			}
		} `graphql:"ref(qualifiedName: $branch)"`
	} `graphql:"repository(owner: $owner, name: $name)"`
}

// CountCommitHistory returns the total commit count of a branch through the GraphQL API.
func (g *GitHubGateway) CountCommitHistory(ctx context.Context, owner, repo, branch, token string) (int, error) {
	token = g.client.resolveToken(token)
	if token == "" {
		return 0, ErrTokenRequired
	}

	variables := map[string]interface{}{
		"owner":  githubv4.String(owner),
		"name":   githubv4.String(repo),
		"branch": githubv4.String(branch),
	}
	var q commitHistoryQuery
	if err := g.client.graphqlClient(token).Query(ctx, &q, variables); err != nil {
		return 0, fmt.Errorf("failed to execute GraphQL query for commit history: %w", err)
	}
	total := q.Repository.Ref.Target.Commit.History.TotalCount
	if total == 0 {
		return 0, fmt.Errorf("branch %s of %s/%s has no commit history", branch, owner, repo)
	}
	return total, nil
}
