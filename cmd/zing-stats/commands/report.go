package commands

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/HewlettPackard/zing-stats/internal/config"
	"github.com/HewlettPackard/zing-stats/pkg/changes"
	"github.com/HewlettPackard/zing-stats/pkg/gerrit"
	"github.com/HewlettPackard/zing-stats/pkg/github"
	"github.com/HewlettPackard/zing-stats/pkg/observability"
	"github.com/HewlettPackard/zing-stats/pkg/report"
	"github.com/HewlettPackard/zing-stats/pkg/rest"
	"github.com/HewlettPackard/zing-stats/pkg/snapshot"
	"github.com/HewlettPackard/zing-stats/pkg/stats"
	"github.com/HewlettPackard/zing-stats/pkg/version"
)

var (
	// ErrNoBackends is returned when neither backend URL is configured and
	// no snapshot is being replayed.
	ErrNoBackends = errors.New("no backend configured: set gerrit.url or github.url, or replay with --from-snapshot")

	// ErrProjectInBothBackends indicates a project name listed under both
	// gerrit and github; their aggregates would silently overwrite each other.
	ErrProjectInBothBackends = errors.New("project listed under both gerrit and github")
)

type gerritGatherFunc func(
	ctx context.Context,
	cfg gerrit.Config,
	session *rest.Session,
	logger *slog.Logger,
	metrics *observability.GatherMetrics,
) (*changes.Set, error)

type githubGatherFunc func(
	ctx context.Context,
	cfg github.Config,
	session *rest.Session,
	logger *slog.Logger,
	metrics *observability.GatherMetrics,
) (*changes.Set, []string, error)

type snapshotLoadFunc func(path string) (*snapshot.State, error)

type snapshotSaveFunc func(dir string, state *snapshot.State, ext string) (string, error)

type nowFunc func() time.Time

// ReportCommand holds configuration and dependencies for the report command.
type ReportCommand struct {
	root *RootFlags

	projectsPath string

	gerritURL   string
	gerritUser  string
	gerritToken string
	githubURL   string
	githubToken string

	rangeHours int
	querySize  int
	maxChanges int
	branches   []string

	outputDir string
	format    string

	title                string
	issueLink            string
	contactEmail         string
	capacityDailyCIHours int
	jobRecommendedMaxMin int

	insecureSkipVerify bool

	snapshotDir  string
	snapshotExt  string
	fromSnapshot string

	metricsTextfile string

	gatherGerrit gerritGatherFunc
	gatherGitHub githubGatherFunc
	loadSnapshot snapshotLoadFunc
	saveSnapshot snapshotSaveFunc
	now          nowFunc
}

// NewReportCommand creates the report command wired to the real backends.
func NewReportCommand(root *RootFlags) *cobra.Command {
	return newReportCommandWithDeps(root, gatherGerritChanges, gatherGitHubPulls, snapshot.Load, snapshot.Save, time.Now)
}

func newReportCommandWithDeps(
	root *RootFlags,
	gatherGerrit gerritGatherFunc,
	gatherGitHub githubGatherFunc,
	loadSnapshot snapshotLoadFunc,
	saveSnapshot snapshotSaveFunc,
	now nowFunc,
) *cobra.Command {
	rc := &ReportCommand{
		root:         root,
		gatherGerrit: gatherGerrit,
		gatherGitHub: gatherGitHub,
		loadSnapshot: loadSnapshot,
		saveSnapshot: saveSnapshot,
		now:          now,
	}

	cmd := &cobra.Command{
		Use:   "report",
		Short: "Gather changes and write per-team reports",
		Long: "Gather changes from the configured backends, aggregate CI and\n" +
			"change statistics, and write one report file per team.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return rc.run(cmd)
		},
	}

	flags := cmd.Flags()

	flags.StringVar(&rc.projectsPath, "projects", "", "projects file (JSON, required)")
	_ = cmd.MarkFlagRequired("projects")

	flags.StringVar(&rc.gerritURL, "gerrit-url", "", "Gerrit server URL")
	flags.StringVar(&rc.gerritUser, "gerrit-user", "", "Gerrit HTTP username")
	flags.StringVar(&rc.gerritToken, "gerrit-token", "", "Gerrit HTTP password/token")
	flags.StringVar(&rc.githubURL, "github-url", "", "GitHub Enterprise server URL")
	flags.StringVar(&rc.githubToken, "github-token", "", "GitHub bearer token")

	flags.IntVarP(&rc.rangeHours, "range-hours", "r", config.DefaultRangeHours, "report range in hours")
	flags.IntVarP(&rc.querySize, "query-size", "n", config.DefaultQuerySize, "changes requested per page")
	flags.IntVarP(&rc.maxChanges, "max-changes", "m", 0, "cap on stored changes per backend (0 = unlimited)")
	flags.StringArrayVarP(&rc.branches, "branch", "b", nil, "only report the named branches (repeatable)")

	flags.StringVarP(&rc.outputDir, "output-dir", "o", config.DefaultOutputDir, "report output directory")
	flags.StringVarP(&rc.format, "format", "f", config.FormatHTML, "report format: html, json, or yaml")

	flags.StringVar(&rc.title, "report-title", config.DefaultReportTitle, "report page title")
	flags.StringVar(&rc.issueLink, "report-issue-link", config.DefaultReportIssueLink, "issue tracker link in the page footer")
	flags.StringVar(&rc.contactEmail, "contact-email", config.DefaultContactEmail, "contact email in the page footer")
	flags.IntVar(&rc.capacityDailyCIHours, "system-capacity-daily-ci-hours",
		config.DefaultSystemCapacityDailyCIHours, "daily CI capacity reference line, in job hours")
	flags.IntVar(&rc.jobRecommendedMaxMin, "ci-job-recommended-max-minutes",
		config.DefaultCIJobRecommendedMaxMinutes, "recommended per-job duration reference line, in minutes")

	flags.BoolVar(&rc.insecureSkipVerify, "insecure-skip-verify", false, "disable TLS certificate verification")

	flags.StringVar(&rc.snapshotDir, "snapshot-dir", "", "save the gathered state into this directory")
	flags.StringVar(&rc.snapshotExt, "snapshot-ext", snapshot.ExtJSON,
		"snapshot codec by extension: .json, .gob, or .json.lz4")
	flags.StringVar(&rc.fromSnapshot, "from-snapshot", "", "replay a saved snapshot instead of gathering")

	flags.StringVar(&rc.metricsTextfile, "metrics-textfile", "", "write run metrics to this Prometheus textfile")

	return cmd
}

func (rc *ReportCommand) run(cmd *cobra.Command) error {
	cfg, err := config.LoadConfig(rc.root.ConfigPath)
	if err != nil {
		return err
	}

	rc.applyOverrides(cmd.Flags(), cfg)

	err = cfg.Validate()
	if err != nil {
		return fmt.Errorf("validate config: %w", err)
	}

	projects, err := config.LoadProjects(rc.projectsPath)
	if err != nil {
		return err
	}

	err = checkDisjoint(projects)
	if err != nil {
		return err
	}

	obsCfg := observability.DefaultConfig()
	obsCfg.ServiceVersion = version.Version
	obsCfg.LogLevel = rc.logLevel()
	obsCfg.LogJSON = rc.root.LogJSON
	obsCfg.MetricsTextfile = cfg.Output.MetricsTextfile
	obsCfg.OTLPEndpoint = os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT")
	obsCfg.OTLPHeaders = observability.ParseOTLPHeaders(os.Getenv("OTEL_EXPORTER_OTLP_HEADERS"))

	providers, err := observability.Init(obsCfg)
	if err != nil {
		return fmt.Errorf("init observability: %w", err)
	}

	runErr := rc.runPipeline(cmd, cfg, projects, providers)

	shutdownErr := providers.Shutdown(context.Background())
	if shutdownErr != nil {
		providers.Logger.Warn("telemetry shutdown failed", "error", shutdownErr)
	}

	return runErr
}

func (rc *ReportCommand) runPipeline(
	cmd *cobra.Command,
	cfg *config.Config,
	projects *config.ProjectsFile,
	providers observability.Providers,
) error {
	ctx := cmd.Context()
	logger := providers.Logger

	metrics, err := observability.NewGatherMetrics(providers.Meter)
	if err != nil {
		return fmt.Errorf("create gather metrics: %w", err)
	}

	state, err := rc.collect(ctx, cfg, projects, logger, metrics)
	if err != nil {
		return err
	}

	byProject, err := aggregate(ctx, state, logger, metrics)
	if err != nil {
		return err
	}

	projector := report.NewProjector(report.Options{
		Title:                      cfg.Report.Title,
		IssueLink:                  cfg.Report.IssueLink,
		ContactEmail:               cfg.Report.ContactEmail,
		Format:                     cfg.Report.Format,
		RangeHours:                 state.RangeHours,
		OutputDir:                  cfg.Output.Dir,
		SystemCapacityDailyCIHours: cfg.Report.SystemCapacityDailyCIHours,
		CIJobRecommendedMaxMinutes: cfg.Report.CIJobRecommendedMaxMinutes,
		Version:                    version.Version,
	}, logger)

	err = projector.Write(&report.Input{
		ByProject: byProject,
		Projects:  projects,
		NotFound:  state.NotFound,
		Cutoff:    state.Cutoff,
		Now:       state.GeneratedAt,
	})
	if err != nil {
		return err
	}

	if !rc.root.Quiet {
		names := append(projects.GerritNames(), projects.GitHubNames()...)
		rows := report.BuildSummary(byProject, names, projects.SystemOf(), state.NotFound)
		report.PrintSummary(cmd.OutOrStdout(), rows, state.NotFound, state.GeneratedAt)
	}

	return observability.WriteTextfile(cfg.Output.MetricsTextfile, providers.Registry)
}

// collect either replays a snapshot or gathers from the configured backends,
// saving a new snapshot when requested.
func (rc *ReportCommand) collect(
	ctx context.Context,
	cfg *config.Config,
	projects *config.ProjectsFile,
	logger *slog.Logger,
	metrics *observability.GatherMetrics,
) (*snapshot.State, error) {
	if rc.fromSnapshot != "" {
		state, err := rc.loadSnapshot(rc.fromSnapshot)
		if err != nil {
			return nil, err
		}

		logger.Info("replaying snapshot", "path", rc.fromSnapshot, "generated", state.GeneratedAt)

		return state, nil
	}

	if cfg.Gerrit.URL == "" && cfg.GitHub.URL == "" {
		return nil, ErrNoBackends
	}

	now := rc.now().UTC()
	state := &snapshot.State{
		GeneratedAt: now,
		RangeHours:  cfg.Gather.RangeHours,
		Cutoff:      now.Add(-time.Duration(cfg.Gather.RangeHours) * time.Hour),
	}

	if cfg.Gerrit.URL != "" && len(projects.Gerrit) > 0 {
		session := rest.NewSession(rest.Options{
			Username:           cfg.Gerrit.User,
			Password:           cfg.Gerrit.Token,
			InsecureSkipVerify: cfg.Gather.InsecureSkipVerify,
			Logger:             logger,
			ObserveRequest: func(obsCtx context.Context, elapsed time.Duration) {
				metrics.RecordRequest(obsCtx, string(changes.SourceGerrit), elapsed)
			},
		})

		set, err := rc.gatherGerrit(ctx, gerrit.Config{
			BaseURL:    cfg.Gerrit.URL,
			Projects:   projects.GerritNames(),
			Branches:   cfg.Gather.Branches,
			Cutoff:     state.Cutoff,
			PageSize:   cfg.Gather.QuerySize,
			MaxChanges: cfg.Gather.MaxChanges,
		}, session, logger, metrics)
		if err != nil {
			return nil, fmt.Errorf("gather gerrit changes: %w", err)
		}

		state.Gerrit = set
	}

	if cfg.GitHub.URL != "" && len(projects.GitHub) > 0 {
		session := rest.NewSession(rest.Options{
			BearerToken:        cfg.GitHub.Token,
			InsecureSkipVerify: cfg.Gather.InsecureSkipVerify,
			Logger:             logger,
			ObserveRequest: func(obsCtx context.Context, elapsed time.Duration) {
				metrics.RecordRequest(obsCtx, string(changes.SourceGitHub), elapsed)
			},
		})

		set, notFound, err := rc.gatherGitHub(ctx, github.Config{
			BaseURL:    cfg.GitHub.URL,
			Projects:   projects.GitHubNames(),
			Branches:   cfg.Gather.Branches,
			Cutoff:     state.Cutoff,
			MaxChanges: cfg.Gather.MaxChanges,
		}, session, logger, metrics)
		if err != nil {
			return nil, fmt.Errorf("gather github pull requests: %w", err)
		}

		state.GitHub = set
		state.NotFound = notFound
	}

	if cfg.Output.SnapshotDir != "" {
		path, err := rc.saveSnapshot(cfg.Output.SnapshotDir, state, rc.snapshotExt)
		if err != nil {
			return nil, err
		}

		logger.Info("saved snapshot", "path", path)
	}

	return state, nil
}

// aggregate folds both change sets into one project-keyed series map.
// checkDisjoint has already ruled out cross-backend project collisions.
func aggregate(
	ctx context.Context,
	state *snapshot.State,
	logger *slog.Logger,
	metrics *observability.GatherMetrics,
) (map[string]stats.Series, error) {
	aggregator := stats.NewAggregator(logger, metrics)
	byProject := make(map[string]stats.Series)

	for _, set := range []*changes.Set{state.Gerrit, state.GitHub} {
		if set == nil {
			continue
		}

		series, err := aggregator.Aggregate(ctx, set, state.Cutoff)
		if err != nil {
			return nil, err
		}

		for project, s := range series {
			byProject[project] = s
		}
	}

	return byProject, nil
}

// applyOverrides layers explicitly-set flags over the loaded configuration,
// so precedence is flag > env > file > default.
func (rc *ReportCommand) applyOverrides(flags *pflag.FlagSet, cfg *config.Config) {
	setIf := func(name string, apply func()) {
		if flags.Changed(name) {
			apply()
		}
	}

	setIf("gerrit-url", func() { cfg.Gerrit.URL = rc.gerritURL })
	setIf("gerrit-user", func() { cfg.Gerrit.User = rc.gerritUser })
	setIf("gerrit-token", func() { cfg.Gerrit.Token = rc.gerritToken })
	setIf("github-url", func() { cfg.GitHub.URL = rc.githubURL })
	setIf("github-token", func() { cfg.GitHub.Token = rc.githubToken })

	setIf("range-hours", func() { cfg.Gather.RangeHours = rc.rangeHours })
	setIf("query-size", func() { cfg.Gather.QuerySize = rc.querySize })
	setIf("max-changes", func() { cfg.Gather.MaxChanges = rc.maxChanges })
	setIf("branch", func() { cfg.Gather.Branches = rc.branches })
	setIf("insecure-skip-verify", func() { cfg.Gather.InsecureSkipVerify = rc.insecureSkipVerify })

	setIf("output-dir", func() { cfg.Output.Dir = rc.outputDir })
	setIf("format", func() { cfg.Report.Format = rc.format })
	setIf("report-title", func() { cfg.Report.Title = rc.title })
	setIf("report-issue-link", func() { cfg.Report.IssueLink = rc.issueLink })
	setIf("contact-email", func() { cfg.Report.ContactEmail = rc.contactEmail })
	setIf("system-capacity-daily-ci-hours", func() { cfg.Report.SystemCapacityDailyCIHours = rc.capacityDailyCIHours })
	setIf("ci-job-recommended-max-minutes", func() { cfg.Report.CIJobRecommendedMaxMinutes = rc.jobRecommendedMaxMin })

	setIf("snapshot-dir", func() { cfg.Output.SnapshotDir = rc.snapshotDir })
	setIf("metrics-textfile", func() { cfg.Output.MetricsTextfile = rc.metricsTextfile })
}

func (rc *ReportCommand) logLevel() slog.Level {
	switch {
	case rc.root.Quiet:
		return slog.LevelError
	case rc.root.Verbose:
		return slog.LevelDebug
	default:
		return slog.LevelInfo
	}
}

// checkDisjoint rejects projects files naming the same project under both
// backends.
func checkDisjoint(projects *config.ProjectsFile) error {
	gerritNames := make(map[string]bool, len(projects.Gerrit))

	for _, entry := range projects.Gerrit {
		gerritNames[entry.Name] = true
	}

	for _, entry := range projects.GitHub {
		if gerritNames[entry.Name] {
			return fmt.Errorf("%w: %s", ErrProjectInBothBackends, entry.Name)
		}
	}

	return nil
}

func gatherGerritChanges(
	ctx context.Context,
	cfg gerrit.Config,
	session *rest.Session,
	logger *slog.Logger,
	metrics *observability.GatherMetrics,
) (*changes.Set, error) {
	source := gerrit.NewSource(cfg, session, logger, metrics)

	err := source.Gather(ctx)
	if err != nil {
		return nil, err
	}

	return source.Set(), nil
}

func gatherGitHubPulls(
	ctx context.Context,
	cfg github.Config,
	session *rest.Session,
	logger *slog.Logger,
	metrics *observability.GatherMetrics,
) (*changes.Set, []string, error) {
	source := github.NewSource(cfg, session, logger, metrics)

	err := source.Gather(ctx)
	if err != nil {
		return nil, nil, err
	}

	return source.Set(), source.NotFound(), nil
}
