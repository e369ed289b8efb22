package cmd

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strconv"

	"github.com/olekukonko/tablewriter"

	"github.com/naka-gawa/github-fork-stats/internal/domain"
)

var forkCSVHeader = []string{"Repository", "Total Commits", "Top Contributor", "Lines of Code Added"}

func writeJSON(w io.Writer, v any) error {
	// Marshal the results into a pretty-printed JSON string.
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func renderSummary(w io.Writer, s *domain.RepoSummary) {
	fmt.Fprintf(w, "%s: %d forks\n\n", s.Repository.FullName(), s.ForksCount)

	table := tablewriter.NewWriter(w)
	header := []string{"Fork", "Commits", "Source"}
	if s.TopForkContributors != nil {
		header = append(header, "Top Contributor", "Lines Added")
	}
	table.SetHeader(header)
	for _, f := range s.Forks {
		commits := strconv.Itoa(f.CommitCount)
		if f.Approximate && f.CommitCountSource != domain.CountSourceNone {
			commits = "~" + commits
		}
		row := []string{f.FullName, commits, string(f.CommitCountSource)}
		if s.TopForkContributors != nil {
			row = append(row, contributorName(f.TopContributor), strconv.Itoa(f.LinesAdded))
		}
		table.Append(row)
	}
	table.Render()

	if len(s.Forks) > 0 {
		fmt.Fprintf(w, "\nCommits per fork: mean %.1f, median %.1f, p90 %.1f, max %.0f\n",
			s.ForkCommitStats.Mean, s.ForkCommitStats.Median, s.ForkCommitStats.P90, s.ForkCommitStats.Max)
	}

	fmt.Fprintln(w, "\nRecent committers")
	committers := tablewriter.NewWriter(w)
	committers.SetHeader([]string{"Contributor", "Commits"})
	for _, c := range s.RecentCommitters {
		committers.Append([]string{c.Name, strconv.Itoa(c.Commits)})
	}
	committers.Render()

	if len(s.TopForkContributors) > 0 {
		fmt.Fprintln(w, "\nTop fork contributors")
		top := tablewriter.NewWriter(w)
		top.SetHeader([]string{"Contributor", "Commits", "Forks"})
		for _, c := range s.TopForkContributors {
			top.Append([]string{c.Name, strconv.Itoa(c.Commits), strconv.Itoa(len(c.Repositories))})
		}
		top.Render()
	}
}

func renderDetail(w io.Writer, d *domain.RepoDetail) {
	fmt.Fprintf(w, "%s\n\n", d.Repository.FullName())

	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"Metric", "Value"})
	table.Append([]string{"Total Commits", strconv.Itoa(d.TotalCommits)})
	table.Append([]string{"Lines Added", strconv.Itoa(d.LinesAdded)})
	table.Append([]string{"Lines Deleted", strconv.Itoa(d.LinesDeleted)})
	table.Append([]string{"Commits (last 48h)", strconv.Itoa(d.CommitsInLast48Hours)})
	table.Append([]string{"Weekly Commits (mean)", fmt.Sprintf("%.1f", d.WeeklyCommitStats.Mean)})
	table.Append([]string{"Weekly Commits (max)", fmt.Sprintf("%.0f", d.WeeklyCommitStats.Max)})
	table.Render()

	fmt.Fprintln(w, "\nContributors")
	contributors := tablewriter.NewWriter(w)
	contributors.SetHeader([]string{"Contributor", "Commits"})
	for _, c := range d.Contributors {
		contributors.Append([]string{c.Author.Name, strconv.Itoa(c.Total)})
	}
	contributors.Render()

	fmt.Fprintln(w, "\nWeekly activity")
	activity := tablewriter.NewWriter(w)
	activity.SetHeader([]string{"Week", "Commits"})
	for _, p := range d.CommitActivity {
		activity.Append([]string{p.Week, strconv.Itoa(p.Commits)})
	}
	activity.Render()
}

// writeForkCSV writes one row per fork: repository, commits, top contributor ("N/A"
// when unknown) and lines added. The commit column prefers the contributor-stats
// total and falls back to the resolved count when details are missing.
func writeForkCSV(w io.Writer, forks []domain.ForkSummary) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(forkCSVHeader); err != nil {
		return err
	}
	for _, f := range forks {
		record := []string{
			f.FullName,
			strconv.Itoa(totalCommits(f)),
			contributorName(f.TopContributor),
			strconv.Itoa(f.LinesAdded),
		}
		if err := cw.Write(record); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func contributorName(c *domain.ContributorRef) string {
	if c == nil || c.Name == "" {
		return "N/A"
	}
	return c.Name
}

func totalCommits(f domain.ForkSummary) int {
	if f.TotalCommits > 0 {
		return f.TotalCommits
	}
	return f.CommitCount
}
