package github_test

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/HewlettPackard/zing-stats/pkg/changes"
	"github.com/HewlettPackard/zing-stats/pkg/github"
	"github.com/HewlettPackard/zing-stats/pkg/rest"
)

var (
	testNow    = time.Date(2026, 8, 20, 12, 0, 0, 0, time.UTC)
	testCutoff = testNow.Add(-168 * time.Hour)
)

func githubTime(ts time.Time) string {
	return ts.Format("2006-01-02T15:04:05Z")
}

// testPR builds one PR list entry whose commit/comment URLs point back at the
// serving host.
func testPR(host string, id int, state, mergedAt string, created, updated time.Time) map[string]any {
	payload := map[string]any{
		"id":           id,
		"number":       id,
		"state":        state,
		"created_at":   githubTime(created),
		"updated_at":   githubTime(updated),
		"html_url":     fmt.Sprintf("http://%s/org/repo/pull/%d", host, id),
		"url":          fmt.Sprintf("http://%s/api/v3/repos/org/repo/pulls/%d", host, id),
		"commits_url":  fmt.Sprintf("http://%s/aux/commits/%d", host, id),
		"comments_url": fmt.Sprintf("http://%s/aux/comments/%d", host, id),
		"base": map[string]any{
			"ref":  "master",
			"repo": map[string]any{"full_name": "org/repo"},
		},
	}

	if mergedAt != "" {
		payload["merged_at"] = mergedAt
	}

	return payload
}

func writeJSON(t *testing.T, w http.ResponseWriter, v any) {
	t.Helper()

	data, err := json.Marshal(v)
	require.NoError(t, err)

	w.Write(data)
}

func gatherFrom(t *testing.T, server *httptest.Server, cfg github.Config) *github.Source {
	t.Helper()

	cfg.BaseURL = server.URL

	source := github.NewSource(cfg, rest.NewSession(rest.Options{}), nil, nil)

	require.NoError(t, source.Gather(context.Background()))

	return source
}

func TestSource_GatherBuildsChangesFromPRs(t *testing.T) {
	t.Parallel()

	created := testNow.Add(-48 * time.Hour)
	updated := testNow.Add(-2 * time.Hour)
	merged := testNow.Add(-time.Hour)

	mux := http.NewServeMux()
	mux.HandleFunc("/api/v3/repos/org/repo/pulls", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "all", r.URL.Query().Get("state"))
		assert.Equal(t, "updated", r.URL.Query().Get("sort"))
		assert.Equal(t, "dsc", r.URL.Query().Get("direction"))

		writeJSON(t, w, []any{testPR(r.Host, 101, "closed", githubTime(merged), created, updated)})
	})
	mux.HandleFunc("/aux/commits/101", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(t, w, []any{
			map[string]any{"sha": "aaa", "commit": map[string]any{"committer": map[string]any{"date": githubTime(created)}}},
			map[string]any{"sha": "bbb", "commit": map[string]any{"committer": map[string]any{"date": githubTime(updated)}}},
		})
	})
	mux.HandleFunc("/aux/comments/101", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(t, w, []any{
			map[string]any{"id": 7, "created_at": githubTime(updated), "body": "Build successful\n\n- https://logs.example.com/ci/unit : ok in 45s"},
		})
	})

	server := httptest.NewServer(mux)
	defer server.Close()

	source := gatherFrom(t, server, github.Config{Projects: []string{"org/repo"}, Cutoff: testCutoff})
	set := source.Set()

	require.Equal(t, 1, set.Len())
	assert.Empty(t, source.NotFound())

	got := set.Get("org/repo#101")
	require.NotNil(t, got)
	assert.Equal(t, changes.StatusMerged, got.Status)
	require.NotNil(t, got.MergedAt)
	assert.True(t, got.MergedAt.Equal(merged))
	assert.Equal(t, "org/repo", got.Project)
	assert.Equal(t, "master", got.Branch)

	require.Equal(t, 2, got.RevisionCount())
	newest := got.NewestRevision()
	require.Len(t, newest.Messages, 1)
	assert.Equal(t, "7", newest.Messages[0].ID)
}

func TestSource_GatherPaginatesViaLinkHeader(t *testing.T) {
	t.Parallel()

	updated := testNow.Add(-time.Hour)

	mux := http.NewServeMux()
	mux.HandleFunc("/api/v3/repos/org/repo/pulls", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Link", fmt.Sprintf(`<http://%s/page2>; rel="next"`, r.Host))
		writeJSON(t, w, []any{testPR(r.Host, 1, "open", "", updated, updated)})
	})
	mux.HandleFunc("/page2", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(t, w, []any{testPR(r.Host, 2, "open", "", updated, updated)})
	})
	mux.HandleFunc("/aux/", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(t, w, []any{})
	})

	server := httptest.NewServer(mux)
	defer server.Close()

	source := gatherFrom(t, server, github.Config{Projects: []string{"org/repo"}, Cutoff: testCutoff})

	assert.Equal(t, 2, source.Set().Len())
}

func TestSource_Gather404RecordsProjectNotFound(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "not found", http.StatusNotFound)
	}))
	defer server.Close()

	source := gatherFrom(t, server, github.Config{Projects: []string{"org/missing"}, Cutoff: testCutoff})

	assert.Equal(t, 0, source.Set().Len())
	assert.Equal(t, []string{"org/missing"}, source.NotFound())
}

func TestSource_GatherSynthesizesRevisionWhenNoCommits(t *testing.T) {
	t.Parallel()

	created := testNow.Add(-3 * time.Hour)
	updated := testNow.Add(-time.Hour)

	mux := http.NewServeMux()
	mux.HandleFunc("/api/v3/repos/org/repo/pulls", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(t, w, []any{testPR(r.Host, 5, "open", "", created, updated)})
	})
	mux.HandleFunc("/aux/", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(t, w, []any{})
	})

	server := httptest.NewServer(mux)
	defer server.Close()

	source := gatherFrom(t, server, github.Config{Projects: []string{"org/repo"}, Cutoff: testCutoff})

	got := source.Set().Get("org/repo#5")
	require.NotNil(t, got)
	require.Equal(t, 1, got.RevisionCount())
	assert.Equal(t, 1, got.Revisions[0].Number)
	assert.True(t, got.Revisions[0].CreatedAt.Equal(created))
}

func TestSource_GatherCutoffEndsOnlyThatProject(t *testing.T) {
	t.Parallel()

	stale := testCutoff.Add(-time.Hour)
	fresh := testNow.Add(-time.Hour)

	mux := http.NewServeMux()
	mux.HandleFunc("/api/v3/repos/org/old/pulls", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(t, w, []any{testPR(r.Host, 1, "open", "", stale, stale)})
	})
	mux.HandleFunc("/api/v3/repos/org/new/pulls", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(t, w, []any{testPR(r.Host, 2, "open", "", fresh, fresh)})
	})
	mux.HandleFunc("/aux/", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(t, w, []any{})
	})

	server := httptest.NewServer(mux)
	defer server.Close()

	source := gatherFrom(t, server, github.Config{Projects: []string{"org/old", "org/new"}, Cutoff: testCutoff})
	set := source.Set()

	assert.Equal(t, 1, set.Len())
	assert.True(t, set.Contains("org/new#2"))
}

func TestSource_GatherBranchFilterAndCap(t *testing.T) {
	t.Parallel()

	updated := testNow.Add(-time.Hour)

	mux := http.NewServeMux()
	mux.HandleFunc("/api/v3/repos/org/repo/pulls", func(w http.ResponseWriter, r *http.Request) {
		offBranch := testPR(r.Host, 1, "open", "", updated, updated)
		offBranch["base"] = map[string]any{"ref": "dev", "repo": map[string]any{"full_name": "org/repo"}}

		writeJSON(t, w, []any{
			offBranch,
			testPR(r.Host, 2, "open", "", updated, updated),
			testPR(r.Host, 3, "open", "", updated, updated),
		})
	})
	mux.HandleFunc("/aux/", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(t, w, []any{})
	})

	server := httptest.NewServer(mux)
	defer server.Close()

	source := gatherFrom(t, server, github.Config{
		Projects:   []string{"org/repo"},
		Branches:   []string{"master"},
		Cutoff:     testCutoff,
		MaxChanges: 1,
	})

	set := source.Set()

	assert.Equal(t, 1, set.Len())
	assert.True(t, set.Contains("org/repo#2"))
}
