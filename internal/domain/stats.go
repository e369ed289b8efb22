package domain

// CountSource records which strategy produced a fork's commit count.
type CountSource string

const (
	CountSourceCompare    CountSource = "compare"
	CountSourceLastPage   CountSource = "last_page"
	CountSourceExhaustive CountSource = "exhaustive"
	CountSourceHistory    CountSource = "history"
	CountSourceNone       CountSource = "none"
)

// Exact reports whether the count is the number of commits unique to the fork.
// Every other source counts all commits on the fork's branch.
func (s CountSource) Exact() bool {
	return s == CountSourceCompare
}

// ContributorRef is a single actor's aggregate activity. Equality is by Name (login).
type ContributorRef struct {
	Name      string `json:"name"`
	AvatarURL string `json:"avatarUrl"`
	Commits   int    `json:"commits"`
}

// ForkSummary is one row of the forks table.
type ForkSummary struct {
	ID                int64           `json:"id"`
	Name              string          `json:"name"`
	FullName          string          `json:"fullName"`
	URL               string          `json:"url"`
	CommitCount       int             `json:"commitCount"`
	CommitCountSource CountSource     `json:"commitCountSource"`
	Approximate       bool            `json:"approximate"`
	TopContributor    *ContributorRef `json:"topContributor"`
	LinesAdded        int             `json:"linesAdded"`
	// TotalCommits is the contributor-stats commit total, set with the other details.
	TotalCommits      int             `json:"totalCommits,omitempty"`
}

// WeekStat is one week of a contributor's activity.
type WeekStat struct {
	WeekStart int64 `json:"w"`
	Additions int   `json:"a"`
	Deletions int   `json:"d"`
	Commits   int   `json:"c"`
}

// ContributorStat is GitHub's per-contributor weekly statistics.
type ContributorStat struct {
	Author ContributorRef `json:"author"`
	Total  int            `json:"total"`
	Weeks  []WeekStat     `json:"weeks"`
}

// CommitActivityPoint is the number of commits in the week starting on Week (YYYY-MM-DD).
type CommitActivityPoint struct {
	Week    string `json:"week"`
	Commits int    `json:"commits"`
}

// Distribution summarizes a series of counts.
type Distribution struct {
	Mean   float64 `json:"mean"`
	Median float64 `json:"median"`
	P90    float64 `json:"p90"`
	Max    float64 `json:"max"`
	StdDev float64 `json:"stdDev"`
}

// ForkContributor is a fork's top contributor merged across every fork they lead.
type ForkContributor struct {
	Name         string   `json:"name"`
	AvatarURL    string   `json:"avatarUrl"`
	Commits      int      `json:"commits"`
	Repositories []string `json:"repositories"`
}

// ForkDetails is the per-fork enrichment derived from a fork's own contributor stats.
type ForkDetails struct {
	CommitCount    int             `json:"commitCount"`
	TopContributor *ContributorRef `json:"topContributor"`
	LinesAdded     int             `json:"linesAdded"`
}

// RepoSummary is the top-level result for a repository URL.
type RepoSummary struct {
	Repository          RepositoryIdentifier `json:"repository"`
	ForksCount          int                  `json:"forksCount"`
	Forks               []ForkSummary        `json:"forks"`
	RecentCommitters    []ContributorRef     `json:"recentCommitters"`
	ForkCommitStats     Distribution         `json:"forkCommitStats"`
	TopForkContributors []ForkContributor    `json:"topForkContributors,omitempty"`
}

// RepoDetail is the top-level result for a single repository's activity.
type RepoDetail struct {
	Repository           RepositoryIdentifier  `json:"repository"`
	TotalCommits         int                   `json:"totalCommits"`
	LinesAdded           int                   `json:"linesAdded"`
	LinesDeleted         int                   `json:"linesDeleted"`
	CommitsInLast48Hours int                   `json:"commitsInLast48Hours"`
	Contributors         []ContributorStat     `json:"contributors"`
	CommitActivity       []CommitActivityPoint `json:"commitActivity"`
	WeeklyCommitStats    Distribution          `json:"weeklyCommitStats"`
	// StatsUnavailable is set when GitHub never finished computing contributor stats.
	StatsUnavailable bool `json:"statsUnavailable"`
}
