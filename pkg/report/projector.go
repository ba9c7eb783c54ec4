package report

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/HewlettPackard/zing-stats/internal/config"
	"github.com/HewlettPackard/zing-stats/pkg/stats"
)

// Options configures the projector's output.
type Options struct {
	Title        string
	IssueLink    string
	ContactEmail string

	// Format selects the output encoding: html, json, or yaml.
	Format string

	RangeHours int
	OutputDir  string

	SystemCapacityDailyCIHours int
	CIJobRecommendedMaxMinutes int

	// Version is printed in the page footer when set.
	Version string
}

// Input is everything one projection run consumes.
type Input struct {
	// ByProject holds the aggregated series of every gathered project.
	ByProject map[string]stats.Series

	Projects *config.ProjectsFile
	NotFound []string

	Cutoff time.Time
	Now    time.Time
}

// Projector writes per-team report files from aggregated statistics.
type Projector struct {
	opts   Options
	logger *slog.Logger
}

// NewProjector creates a projector. logger may be nil.
func NewProjector(opts Options, logger *slog.Logger) *Projector {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	return &Projector{opts: opts, logger: logger}
}

// teamReport is the machine-readable projection of one team.
type teamReport struct {
	Team      string       `json:"team" yaml:"team"`
	Generated time.Time    `json:"generated" yaml:"generated"`
	Range     string       `json:"range" yaml:"range"`
	Summary   []SummaryRow `json:"summary" yaml:"summary"`
	Frame     *stats.Frame `json:"frame" yaml:"frame"`
}

// Write renders one file per team into <output_dir>/<range_dir>/.
func (p *Projector) Write(input *Input) error {
	dir := filepath.Join(p.opts.OutputDir, DirName(p.opts.RangeHours))

	err := os.MkdirAll(dir, 0o755)
	if err != nil {
		return fmt.Errorf("create report dir: %w", err)
	}

	teams := BuildTeams(input.Projects)
	window := stats.WindowFor(p.opts.RangeHours)
	systems := input.Projects.SystemOf()

	for _, team := range teams {
		series := make([]stats.Series, 0, len(team.Projects))

		for _, project := range team.Projects {
			if s, found := input.ByProject[project]; found {
				series = append(series, s)
			}
		}

		frame := stats.Resample(series, window, input.Cutoff, input.Now)
		summary := BuildSummary(input.ByProject, team.Projects, systems, input.NotFound)

		path, err := p.writeTeam(dir, team, teams, frame, summary, input)
		if err != nil {
			return err
		}

		p.logger.Info("wrote report", "team", team.Name, "path", path)
	}

	return nil
}

func (p *Projector) writeTeam(
	dir string,
	team Team,
	teams []Team,
	frame *stats.Frame,
	summary []SummaryRow,
	input *Input,
) (string, error) {
	switch p.opts.Format {
	case config.FormatJSON, config.FormatYAML:
		return p.writeMachine(dir, team, frame, summary, input)
	default:
		return p.writeHTML(dir, team, teams, frame, summary, input)
	}
}

func (p *Projector) writeMachine(
	dir string,
	team Team,
	frame *stats.Frame,
	summary []SummaryRow,
	input *Input,
) (string, error) {
	doc := teamReport{
		Team:      team.Name,
		Generated: input.Now,
		Range:     RangeLabel(p.opts.RangeHours),
		Summary:   summary,
		Frame:     frame,
	}

	var (
		data []byte
		err  error
	)

	if p.opts.Format == config.FormatJSON {
		data, err = json.MarshalIndent(doc, "", "    ")
	} else {
		data, err = yaml.Marshal(doc)
	}

	if err != nil {
		return "", fmt.Errorf("encode %s report for %s: %w", p.opts.Format, team.Name, err)
	}

	path := filepath.Join(dir, team.FileBase+"."+p.opts.Format)

	err = os.WriteFile(path, data, 0o644)
	if err != nil {
		return "", fmt.Errorf("write report %s: %w", path, err)
	}

	return path, nil
}
