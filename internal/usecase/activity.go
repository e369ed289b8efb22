package usecase

import (
	"sort"
	"time"

	"github.com/montanaflynn/stats"

	"github.com/naka-gawa/github-fork-stats/internal/domain"
)

const weekLayout = "2006-01-02"

// Activity is the reduction of a repository's contributor stats.
type Activity struct {
	TotalCommits      int
	LinesAdded        int
	LinesDeleted      int
	CommitActivity    []domain.CommitActivityPoint
	WeeklyCommitStats domain.Distribution
}

// AggregateActivity sums commits and line changes across contributors and builds the
// weekly commit series. Weeks without commits are left out rather than zero-filled.
func AggregateActivity(contributors []domain.ContributorStat) Activity {
	var a Activity
	commitsByWeek := make(map[string]int)

	for _, c := range contributors {
		a.TotalCommits += c.Total
		for _, w := range c.Weeks {
			a.LinesAdded += w.Additions
			a.LinesDeleted += w.Deletions
			week := time.Unix(w.WeekStart, 0).UTC().Format(weekLayout)
			commitsByWeek[week] += w.Commits
		}
	}

	a.CommitActivity = make([]domain.CommitActivityPoint, 0, len(commitsByWeek))
	weekly := make([]float64, 0, len(commitsByWeek))
	for week, commits := range commitsByWeek {
		if commits == 0 {
			continue
		}
		a.CommitActivity = append(a.CommitActivity, domain.CommitActivityPoint{Week: week, Commits: commits})
		weekly = append(weekly, float64(commits))
	}
	sort.Slice(a.CommitActivity, func(i, j int) bool {
		return a.CommitActivity[i].Week < a.CommitActivity[j].Week
	})
	a.WeeklyCommitStats = distribution(weekly)
	return a
}

// distribution summarizes values; an empty input gives the zero Distribution.
func distribution(values []float64) domain.Distribution {
	if len(values) == 0 {
		return domain.Distribution{}
	}
	data := stats.Float64Data(values)
	var d domain.Distribution
	d.Mean, _ = data.Mean()
	d.Median, _ = data.Median()
	d.P90, _ = data.Percentile(90)
	d.Max, _ = data.Max()
	d.StdDev, _ = data.StandardDeviation()
	return d
}

// forkDetailsFromStats derives a fork's totals from its own contributor stats.
// The top contributor is the one with the largest total; the first one wins ties.
func forkDetailsFromStats(contributors []domain.ContributorStat) domain.ForkDetails {
	var d domain.ForkDetails
	for _, c := range contributors {
		d.CommitCount += c.Total
		for _, w := range c.Weeks {
			d.LinesAdded += w.Additions
		}
		if d.TopContributor == nil || c.Total > d.TopContributor.Commits {
			top := domain.ContributorRef{
				Name:      c.Author.Name,
				AvatarURL: c.Author.AvatarURL,
				Commits:   c.Total,
			}
			d.TopContributor = &top
		}
	}
	return d
}

// mergeForkContributors merges the top contributor of every fork with commits by login,
// summing commits and collecting the forks they lead. Sorted by commits, descending.
func mergeForkContributors(forks []domain.ForkSummary) []domain.ForkContributor {
	byName := make(map[string]*domain.ForkContributor)
	var order []string
	for _, f := range forks {
		if f.TopContributor == nil || f.CommitCount == 0 {
			continue
		}
		tc := f.TopContributor
		fc, ok := byName[tc.Name]
		if !ok {
			fc = &domain.ForkContributor{Name: tc.Name, AvatarURL: tc.AvatarURL, Repositories: []string{}}
			byName[tc.Name] = fc
			order = append(order, tc.Name)
		}
		fc.Commits += tc.Commits
		fc.Repositories = append(fc.Repositories, f.FullName)
	}

	merged := make([]domain.ForkContributor, 0, len(order))
	for _, name := range order {
		merged = append(merged, *byName[name])
	}
	sort.SliceStable(merged, func(i, j int) bool {
		return merged[i].Commits > merged[j].Commits
	})
	return merged
}
