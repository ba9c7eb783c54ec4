// Package github gathers pull requests from a GitHub Enterprise server,
// walking each configured project's PR listing in descending update order
// and hydrating every stored PR with its commit and comment lists.
package github

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"slices"
	"strings"
	"time"

	"github.com/HewlettPackard/zing-stats/pkg/changes"
	"github.com/HewlettPackard/zing-stats/pkg/observability"
	"github.com/HewlettPackard/zing-stats/pkg/rest"
)

// timestampLayout is the fixed GitHub API timestamp format.
const timestampLayout = "2006-01-02T15:04:05Z"

// Config holds the knobs for one gather run against a GitHub server.
type Config struct {
	// BaseURL is the server root; the /api/v3 path is appended here.
	BaseURL string

	// Projects are the owner/repo names to list PRs for.
	Projects []string

	// Branches restricts gathering to PRs targeting the named base
	// branches. Empty means all.
	Branches []string

	// Cutoff is the oldest update time of interest. The first PR older
	// than this ends the gather for its project.
	Cutoff time.Time

	// MaxChanges caps the total stored PRs across all projects.
	// Zero means unlimited.
	MaxChanges int
}

// Source gathers GitHub pull requests into an owned Set.
type Source struct {
	cfg      Config
	session  *rest.Session
	logger   *slog.Logger
	metrics  *observability.GatherMetrics
	set      *changes.Set
	notFound []string
}

// NewSource creates a gatherer for the given configuration.
// logger may be nil; metrics may be nil to disable instrumentation.
func NewSource(
	cfg Config,
	session *rest.Session,
	logger *slog.Logger,
	metrics *observability.GatherMetrics,
) *Source {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	return &Source{
		cfg:     cfg,
		session: session,
		logger:  logger,
		metrics: metrics,
		set:     changes.NewSet(changes.SourceGitHub),
	}
}

// Set returns the gathered pull requests. Valid after Gather returns nil.
func (s *Source) Set() *changes.Set {
	return s.set
}

// NotFound returns the projects whose PR listing answered 404 during the
// last gather, for flagging in the report.
func (s *Source) NotFound() []string {
	return s.notFound
}

// prPayload is the wire shape of one pull request list entry.
type prPayload struct {
	ID     int64  `json:"id"`
	Number int64  `json:"number"`
	State  string `json:"state"`

	CreatedAt string  `json:"created_at"`
	UpdatedAt string  `json:"updated_at"`
	MergedAt  *string `json:"merged_at"`

	HTMLURL string `json:"html_url"`
	URL     string `json:"url"`

	CommitsURL  string `json:"commits_url"`
	CommentsURL string `json:"comments_url"`

	Base struct {
		Ref  string `json:"ref"`
		Repo struct {
			FullName string `json:"full_name"`
		} `json:"repo"`
	} `json:"base"`
}

type commitPayload struct {
	SHA    string `json:"sha"`
	Commit struct {
		Committer struct {
			Date string `json:"date"`
		} `json:"committer"`
	} `json:"commit"`
}

type commentPayload struct {
	ID        int64  `json:"id"`
	CreatedAt string `json:"created_at"`
	Body      string `json:"body"`
}

// Gather lists PRs project by project. A 404 on a project listing is
// recorded and skipped; other failures abort the gather.
func (s *Source) Gather(ctx context.Context) error {
	s.notFound = nil

	s.logger.Info("gathering pull requests",
		"url", s.cfg.BaseURL, "projects", strings.Join(s.cfg.Projects, ", "))

	for _, project := range s.cfg.Projects {
		capped, err := s.gatherProject(ctx, project)
		if err != nil {
			return err
		}

		if capped {
			break
		}
	}

	s.metrics.RecordChanges(ctx, string(changes.SourceGitHub), s.set.Len())
	s.logger.Info("gathered pull requests", "count", s.set.Len())

	return nil
}

// gatherProject walks one project's PR pages. It reports capped=true when
// the global item cap ended the whole gather.
func (s *Source) gatherProject(ctx context.Context, project string) (bool, error) {
	base := strings.TrimSuffix(s.cfg.BaseURL, "/")
	pageURL := fmt.Sprintf("%s/api/v3/repos/%s/pulls", base, project)
	query := url.Values{
		"state":     []string{"all"},
		"sort":      []string{"updated"},
		"direction": []string{"dsc"},
	}

	for pageURL != "" {
		var page []prPayload

		header, err := s.session.GetJSON(ctx, pageURL, query, &page)
		if errors.Is(err, rest.ErrNotFound) {
			s.logger.Error("skipping project, 404 while listing pull requests: "+
				"check the configured token has access", "project", project)
			s.notFound = append(s.notFound, project)

			return false, nil
		}

		if err != nil {
			return false, err
		}

		s.metrics.RecordPage(ctx, string(changes.SourceGitHub))

		done, capped, err := s.storePage(ctx, project, page)
		if err != nil {
			return false, err
		}

		if capped {
			return true, nil
		}

		if done {
			return false, nil
		}

		// Follow-up pages carry their full query in the Link URL.
		pageURL = rest.NextLink(header)
		query = nil
	}

	return false, nil
}

func (s *Source) storePage(ctx context.Context, project string, page []prPayload) (done, capped bool, err error) {
	for i := range page {
		payload := &page[i]

		if len(s.cfg.Branches) > 0 && !slices.Contains(s.cfg.Branches, payload.Base.Ref) {
			s.logger.Debug("skipping pull request on unreported branch",
				"pr", payload.ID, "branch", payload.Base.Ref)

			continue
		}

		longID := fmt.Sprintf("%s#%d", project, payload.ID)

		if s.set.Contains(longID) {
			s.logger.Warn("pull request already stored, not storing again", "pr", longID)

			continue
		}

		if s.cfg.MaxChanges > 0 && s.set.Len() >= s.cfg.MaxChanges {
			s.logger.Warn("max changes reached, not storing more", "max", s.cfg.MaxChanges)

			return false, true, nil
		}

		updatedAt, err := parseTimestamp(payload.UpdatedAt)
		if err != nil {
			return false, false, fmt.Errorf("pull request %s: %w", longID, err)
		}

		if updatedAt.Before(s.cfg.Cutoff) {
			s.logger.Debug("pull request older than cutoff, skipping further PRs",
				"project", project, "updated", updatedAt, "cutoff", s.cfg.Cutoff)

			return true, false, nil
		}

		change, err := s.buildChange(ctx, project, longID, payload, updatedAt)
		if err != nil {
			return false, false, err
		}

		err = s.set.Add(change)
		if err != nil {
			return false, false, fmt.Errorf("store pull request %s: %w", longID, err)
		}
	}

	return false, false, nil
}

// buildChange converts a PR payload into a Change, fetching its commits and
// issue comments. Commits become revisions 1..N in list order; comments
// attach to the newest revision.
func (s *Source) buildChange(
	ctx context.Context,
	project, longID string,
	payload *prPayload,
	updatedAt time.Time,
) (*changes.Change, error) {
	createdAt, err := parseTimestamp(payload.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("pull request %s: %w", longID, err)
	}

	change := &changes.Change{
		LongID:    longID,
		Number:    payload.Number,
		Project:   project,
		Branch:    payload.Base.Ref,
		Status:    mapStatus(payload),
		CreatedAt: createdAt,
		UpdatedAt: updatedAt,
		URL:       payload.URL,
		ReviewURL: payload.HTMLURL,
	}

	if change.Status == changes.StatusMerged {
		mergedAt, err := s.mergedTime(longID, payload, updatedAt)
		if err != nil {
			return nil, err
		}

		change.MergedAt = &mergedAt
	}

	err = s.attachRevisions(ctx, change, payload)
	if err != nil {
		return nil, err
	}

	err = s.attachComments(ctx, change, payload)
	if err != nil {
		return nil, err
	}

	return change, nil
}

func (s *Source) attachRevisions(ctx context.Context, change *changes.Change, payload *prPayload) error {
	var commits []commitPayload

	_, err := s.session.GetJSON(ctx, payload.CommitsURL, nil, &commits)
	if err != nil {
		return fmt.Errorf("fetch commits for %s: %w", change.LongID, err)
	}

	for i, commit := range commits {
		committedAt, err := parseTimestamp(commit.Commit.Committer.Date)
		if err != nil {
			return fmt.Errorf("pull request %s commit %s: %w", change.LongID, commit.SHA, err)
		}

		change.AddRevision(&changes.Revision{
			Number:    i + 1,
			CreatedAt: committedAt,
		})
	}

	// A PR with no listed commits still needs a revision to hold comments.
	if change.RevisionCount() == 0 {
		change.AddRevision(&changes.Revision{
			Number:    1,
			CreatedAt: change.CreatedAt,
		})
	}

	return nil
}

func (s *Source) attachComments(ctx context.Context, change *changes.Change, payload *prPayload) error {
	var comments []commentPayload

	_, err := s.session.GetJSON(ctx, payload.CommentsURL, nil, &comments)
	if err != nil {
		return fmt.Errorf("fetch comments for %s: %w", change.LongID, err)
	}

	newest := change.NewestRevision()

	for _, comment := range comments {
		postedAt, err := parseTimestamp(comment.CreatedAt)
		if err != nil {
			return fmt.Errorf("pull request %s comment %d: %w", change.LongID, comment.ID, err)
		}

		newest.AddMessage(&changes.Message{
			ID:       fmt.Sprintf("%d", comment.ID),
			PostedAt: postedAt,
			Body:     comment.Body,
		})
	}

	return nil
}

func (s *Source) mergedTime(longID string, payload *prPayload, updatedAt time.Time) (time.Time, error) {
	if payload.MergedAt == nil || *payload.MergedAt == "" {
		s.logger.Warn("merged pull request missing merge timestamp, substituting updated",
			"pr", longID, "updated", updatedAt)

		return updatedAt, nil
	}

	mergedAt, err := parseTimestamp(*payload.MergedAt)
	if err != nil {
		return time.Time{}, fmt.Errorf("pull request %s: %w", longID, err)
	}

	return mergedAt, nil
}

func mapStatus(payload *prPayload) string {
	switch {
	case payload.MergedAt != nil && *payload.MergedAt != "":
		return changes.StatusMerged
	case payload.State == "open":
		return changes.StatusOpen
	default:
		return changes.StatusClosed
	}
}

func parseTimestamp(raw string) (time.Time, error) {
	ts, err := time.Parse(timestampLayout, raw)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse timestamp %q: %w", raw, err)
	}

	return ts, nil
}
