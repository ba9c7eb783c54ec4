// Package report projects aggregated statistics into per-team output pages:
// HTML with charts, or machine-readable JSON/YAML frames, plus a terminal
// summary table.
package report

import (
	"fmt"
	"math"
	"slices"
	"strings"

	"github.com/HewlettPackard/zing-stats/internal/config"
)

// Synthetic team names always present in a report.
const (
	TeamAll    = "All"
	TeamGerrit = "gerrit"
	TeamGitHub = "github"
)

// Team is one reporting group of projects.
type Team struct {
	Name     string
	Projects []string

	// FileBase is the output file name without extension: "index" for the
	// All team, the sanitized team name otherwise.
	FileBase string
}

// BuildTeams fans the projects file out into reporting teams: All, the two
// backend pseudo-teams, then the real teams sorted by name. A project
// appears in All, its backend team, and its assigned team.
func BuildTeams(projects *config.ProjectsFile) []Team {
	byName := map[string][]string{
		TeamAll:    nil,
		TeamGerrit: nil,
		TeamGitHub: nil,
	}

	addEntries := func(entries []config.ProjectEntry, system string) {
		for _, entry := range entries {
			byName[TeamAll] = appendUnique(byName[TeamAll], entry.Name)
			byName[system] = appendUnique(byName[system], entry.Name)
			byName[entry.Team] = appendUnique(byName[entry.Team], entry.Name)
		}
	}

	addEntries(projects.Gerrit, TeamGerrit)
	addEntries(projects.GitHub, TeamGitHub)

	var rest []string

	for name := range byName {
		if name != TeamAll && name != TeamGerrit && name != TeamGitHub {
			rest = append(rest, name)
		}
	}

	slices.Sort(rest)

	ordered := append([]string{TeamAll, TeamGerrit, TeamGitHub}, rest...)
	teams := make([]Team, 0, len(ordered))

	for _, name := range ordered {
		teams = append(teams, Team{
			Name:     name,
			Projects: byName[name],
			FileBase: fileBase(name),
		})
	}

	return teams
}

func appendUnique(list []string, value string) []string {
	if slices.Contains(list, value) {
		return list
	}

	return append(list, value)
}

// fileBase sanitizes a team name into an output file stem: lowercased, with
// runs of non-word characters collapsed to single underscores. The All team
// maps to "index" so it serves as the directory landing page.
func fileBase(team string) string {
	if team == TeamAll {
		return "index"
	}

	var b strings.Builder

	lastUnderscore := false

	for _, r := range strings.ToLower(team) {
		wordChar := (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') || r == '_'
		if wordChar {
			b.WriteRune(r)

			lastUnderscore = false

			continue
		}

		if !lastUnderscore {
			b.WriteByte('_')

			lastUnderscore = true
		}
	}

	return b.String()
}

// DirName returns the range-specific output subdirectory: last_<N>h for
// ranges up to a day, last_<N>d beyond that (N rounded to one decimal).
func DirName(rangeHours int) string {
	if rangeHours <= 24 {
		return fmt.Sprintf("last_%dh", rangeHours)
	}

	days := math.Round(float64(rangeHours)/24*10) / 10

	return fmt.Sprintf("last_%gd", days)
}

// RangeLabel renders the report range for titles: "24 hours" or "7 days".
func RangeLabel(rangeHours int) string {
	if rangeHours <= 24 {
		return fmt.Sprintf("%d hours", rangeHours)
	}

	return fmt.Sprintf("%g days", float64(rangeHours)/24)
}
