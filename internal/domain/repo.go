// Package domain contains the core data structures and domain logic for the application.
package domain

import (
	"net/url"
	"strings"

	apperrors "github.com/naka-gawa/github-fork-stats/internal/errors"
)

const githubHost = "github.com"

// RepositoryIdentifier names a GitHub repository.
type RepositoryIdentifier struct {
	Owner string `json:"owner"`
	Name  string `json:"name"`
}

// FullName returns the "owner/name" form used by the GitHub API.
func (r RepositoryIdentifier) FullName() string {
	return r.Owner + "/" + r.Name
}

// ParseRepoURL extracts the owner and repository name from a GitHub repository URL.
// Only absolute http(s) URLs on github.com with at least two path segments are accepted.
func ParseRepoURL(raw string) (RepositoryIdentifier, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return RepositoryIdentifier{}, apperrors.NewInvalidURLError("Please enter a valid URL.")
	}

	u, err := url.Parse(raw)
	if err != nil || !u.IsAbs() || (u.Scheme != "https" && u.Scheme != "http") {
		return RepositoryIdentifier{}, apperrors.NewInvalidURLError("Please enter a valid URL.")
	}
	if !strings.EqualFold(u.Hostname(), githubHost) {
		return RepositoryIdentifier{}, apperrors.NewInvalidURLError("Please enter a GitHub repository URL.")
	}

	var segments []string
	for _, s := range strings.Split(u.Path, "/") {
		if s != "" {
			segments = append(segments, s)
		}
	}
	if len(segments) < 2 {
		return RepositoryIdentifier{}, apperrors.NewInvalidURLError("Invalid GitHub repository URL format.")
	}

	name := strings.TrimSuffix(segments[1], ".git")
	if name == "" {
		return RepositoryIdentifier{}, apperrors.NewInvalidURLError("Invalid GitHub repository URL format.")
	}
	return RepositoryIdentifier{Owner: segments[0], Name: name}, nil
}

// RepoMeta is the subset of repository metadata the aggregation needs.
type RepoMeta struct {
	Owner         string
	Name          string
	FullName      string
	DefaultBranch string
	ForksCount    int
}

// ForkRef identifies a fork as returned by the forks listing.
type ForkRef struct {
	ID            int64
	Owner         string
	Name          string
	FullName      string
	URL           string
	DefaultBranch string
}
