package commands

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/HewlettPackard/zing-stats/pkg/changes"
	"github.com/HewlettPackard/zing-stats/pkg/gerrit"
	"github.com/HewlettPackard/zing-stats/pkg/github"
	"github.com/HewlettPackard/zing-stats/pkg/observability"
	"github.com/HewlettPackard/zing-stats/pkg/rest"
	"github.com/HewlettPackard/zing-stats/pkg/snapshot"
)

var fixedNow = time.Date(2026, 8, 20, 12, 0, 0, 0, time.UTC)

func quietRoot() *RootFlags {
	return &RootFlags{Quiet: true}
}

func writeProjectsFile(t *testing.T, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "projects.json")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	return path
}

const testProjectsJSON = `{
  "gerrit": [{"name": "proj-a", "team": "Storage"}],
  "github": [{"name": "org/repo", "team": "Storage"}]
}`

func gerritTestSet(t *testing.T) *changes.Set {
	t.Helper()

	set := changes.NewSet(changes.SourceGerrit)
	mergedAt := fixedNow.Add(-time.Hour)

	require.NoError(t, set.Add(&changes.Change{
		LongID:    "proj~master~I1",
		Project:   "proj-a",
		Status:    changes.StatusMerged,
		CreatedAt: fixedNow.Add(-48 * time.Hour),
		UpdatedAt: fixedNow.Add(-2 * time.Hour),
		MergedAt:  &mergedAt,
	}))

	return set
}

func githubTestSet(t *testing.T) *changes.Set {
	t.Helper()

	set := changes.NewSet(changes.SourceGitHub)

	require.NoError(t, set.Add(&changes.Change{
		LongID:    "org/repo#1",
		Project:   "org/repo",
		Status:    changes.StatusOpen,
		CreatedAt: fixedNow.Add(-24 * time.Hour),
		UpdatedAt: fixedNow.Add(-3 * time.Hour),
	}))

	return set
}

func failGerrit(t *testing.T) gerritGatherFunc {
	return func(context.Context, gerrit.Config, *rest.Session, *slog.Logger, *observability.GatherMetrics) (*changes.Set, error) {
		t.Error("gerrit gather called unexpectedly")

		return changes.NewSet(changes.SourceGerrit), nil
	}
}

func failGitHub(t *testing.T) githubGatherFunc {
	return func(context.Context, github.Config, *rest.Session, *slog.Logger, *observability.GatherMetrics) (*changes.Set, []string, error) {
		t.Error("github gather called unexpectedly")

		return changes.NewSet(changes.SourceGitHub), nil, nil
	}
}

func TestReportCommand_GathersAndWritesReports(t *testing.T) {
	outDir := t.TempDir()
	projectsPath := writeProjectsFile(t, testProjectsJSON)

	var gotGerritCfg gerrit.Config

	var gotGitHubCfg github.Config

	gatherGerrit := func(_ context.Context, cfg gerrit.Config, _ *rest.Session, _ *slog.Logger, _ *observability.GatherMetrics) (*changes.Set, error) {
		gotGerritCfg = cfg

		return gerritTestSet(t), nil
	}

	gatherGitHub := func(_ context.Context, cfg github.Config, _ *rest.Session, _ *slog.Logger, _ *observability.GatherMetrics) (*changes.Set, []string, error) {
		gotGitHubCfg = cfg

		return githubTestSet(t), []string{"org/repo"}, nil
	}

	cmd := newReportCommandWithDeps(quietRoot(), gatherGerrit, gatherGitHub, snapshot.Load, snapshot.Save, func() time.Time { return fixedNow })
	cmd.SetArgs([]string{
		"--projects", projectsPath,
		"--gerrit-url", "https://gerrit.example.com",
		"--github-url", "https://github.example.com",
		"--output-dir", outDir,
		"--format", "json",
	})

	require.NoError(t, cmd.Execute())

	assert.Equal(t, "https://gerrit.example.com", gotGerritCfg.BaseURL)
	assert.Equal(t, []string{"proj-a"}, gotGerritCfg.Projects)
	assert.Equal(t, 100, gotGerritCfg.PageSize)
	assert.True(t, gotGerritCfg.Cutoff.Equal(fixedNow.Add(-168*time.Hour)))

	assert.Equal(t, []string{"org/repo"}, gotGitHubCfg.Projects)

	reportDir := filepath.Join(outDir, "last_7d")

	for _, name := range []string{"index.json", "gerrit.json", "github.json", "storage.json"} {
		assert.FileExists(t, filepath.Join(reportDir, name))
	}
}

func TestReportCommand_FlagOverridesRangeAndPageSize(t *testing.T) {
	outDir := t.TempDir()
	projectsPath := writeProjectsFile(t, `{"gerrit": [{"name": "proj-a", "team": "Storage"}]}`)

	var gotCfg gerrit.Config

	gatherGerrit := func(_ context.Context, cfg gerrit.Config, _ *rest.Session, _ *slog.Logger, _ *observability.GatherMetrics) (*changes.Set, error) {
		gotCfg = cfg

		return changes.NewSet(changes.SourceGerrit), nil
	}

	cmd := newReportCommandWithDeps(quietRoot(), gatherGerrit, failGitHub(t), snapshot.Load, snapshot.Save, func() time.Time { return fixedNow })
	cmd.SetArgs([]string{
		"--projects", projectsPath,
		"--gerrit-url", "https://gerrit.example.com",
		"--output-dir", outDir,
		"--format", "json",
		"-r", "24",
		"-n", "25",
		"-m", "500",
		"-b", "master",
		"-b", "stable",
	})

	require.NoError(t, cmd.Execute())

	assert.Equal(t, 25, gotCfg.PageSize)
	assert.Equal(t, 500, gotCfg.MaxChanges)
	assert.Equal(t, []string{"master", "stable"}, gotCfg.Branches)
	assert.True(t, gotCfg.Cutoff.Equal(fixedNow.Add(-24*time.Hour)))

	assert.FileExists(t, filepath.Join(outDir, "last_24h", "index.json"))
}

func TestReportCommand_NoBackendsConfigured(t *testing.T) {
	projectsPath := writeProjectsFile(t, testProjectsJSON)

	cmd := newReportCommandWithDeps(quietRoot(), failGerrit(t), failGitHub(t), snapshot.Load, snapshot.Save, func() time.Time { return fixedNow })
	cmd.SetArgs([]string{"--projects", projectsPath, "--output-dir", t.TempDir()})

	err := cmd.Execute()

	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNoBackends)
}

func TestReportCommand_RejectsProjectInBothBackends(t *testing.T) {
	projectsPath := writeProjectsFile(t, `{
  "gerrit": [{"name": "shared", "team": "Storage"}],
  "github": [{"name": "shared", "team": "Storage"}]
}`)

	cmd := newReportCommandWithDeps(quietRoot(), failGerrit(t), failGitHub(t), snapshot.Load, snapshot.Save, func() time.Time { return fixedNow })
	cmd.SetArgs([]string{"--projects", projectsPath, "--gerrit-url", "https://gerrit.example.com"})

	err := cmd.Execute()

	require.Error(t, err)
	assert.ErrorIs(t, err, ErrProjectInBothBackends)
}

func TestReportCommand_SavesSnapshotAfterGather(t *testing.T) {
	outDir := t.TempDir()
	snapDir := filepath.Join(t.TempDir(), "snapshots")
	projectsPath := writeProjectsFile(t, `{"gerrit": [{"name": "proj-a", "team": "Storage"}]}`)

	gatherGerrit := func(context.Context, gerrit.Config, *rest.Session, *slog.Logger, *observability.GatherMetrics) (*changes.Set, error) {
		return gerritTestSet(t), nil
	}

	var gotDir, gotExt string

	saveSnapshot := func(dir string, state *snapshot.State, ext string) (string, error) {
		gotDir, gotExt = dir, ext

		assert.True(t, state.GeneratedAt.Equal(fixedNow))
		assert.Equal(t, 168, state.RangeHours)
		require.NotNil(t, state.Gerrit)

		return filepath.Join(dir, "snapshot_test"+ext), nil
	}

	cmd := newReportCommandWithDeps(quietRoot(), gatherGerrit, failGitHub(t), snapshot.Load, saveSnapshot, func() time.Time { return fixedNow })
	cmd.SetArgs([]string{
		"--projects", projectsPath,
		"--gerrit-url", "https://gerrit.example.com",
		"--output-dir", outDir,
		"--format", "json",
		"--snapshot-dir", snapDir,
		"--snapshot-ext", ".gob",
	})

	require.NoError(t, cmd.Execute())

	assert.Equal(t, snapDir, gotDir)
	assert.Equal(t, ".gob", gotExt)
}

func TestReportCommand_ReplaysSnapshot(t *testing.T) {
	outDir := t.TempDir()
	projectsPath := writeProjectsFile(t, `{"gerrit": [{"name": "proj-a", "team": "Storage"}]}`)

	state := &snapshot.State{
		GeneratedAt: fixedNow,
		RangeHours:  168,
		Cutoff:      fixedNow.Add(-168 * time.Hour),
		Gerrit:      gerritTestSet(t),
	}

	var loadedPath string

	loadSnapshot := func(path string) (*snapshot.State, error) {
		loadedPath = path

		return state, nil
	}

	cmd := newReportCommandWithDeps(quietRoot(), failGerrit(t), failGitHub(t), loadSnapshot, snapshot.Save, func() time.Time { return fixedNow })
	cmd.SetArgs([]string{
		"--projects", projectsPath,
		"--from-snapshot", "/var/lib/zing/snapshot_old.json",
		"--output-dir", outDir,
		"--format", "json",
	})

	require.NoError(t, cmd.Execute())

	assert.Equal(t, "/var/lib/zing/snapshot_old.json", loadedPath)
	assert.FileExists(t, filepath.Join(outDir, "last_7d", "index.json"))
}

func TestReportCommand_RequiresProjectsFlag(t *testing.T) {
	cmd := newReportCommandWithDeps(quietRoot(), failGerrit(t), failGitHub(t), snapshot.Load, snapshot.Save, time.Now)
	cmd.SetArgs([]string{"--gerrit-url", "https://gerrit.example.com"})
	cmd.SilenceUsage = true
	cmd.SilenceErrors = true

	require.Error(t, cmd.Execute())
}
