// Package gerrit gathers changes from a Gerrit code-review server over its
// REST API, walking /changes/ pages in descending update order until the
// report cutoff is reached.
package gerrit

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/HewlettPackard/zing-stats/pkg/changes"
	"github.com/HewlettPackard/zing-stats/pkg/observability"
	"github.com/HewlettPackard/zing-stats/pkg/rest"
)

// DefaultQuery is the change search predicate used when none is configured.
const DefaultQuery = "status:open OR status:closed"

// xssiPrefix is the fixed anti-XSSI guard Gerrit prepends to every JSON body.
const xssiPrefix = ")]}'\n"

// timestampLayout matches Gerrit timestamps after sub-microsecond truncation.
const timestampLayout = "2006-01-02 15:04:05.000000"

// Config holds the knobs for one gather run against a Gerrit server.
type Config struct {
	// BaseURL is the server root, without a trailing /changes/ path.
	BaseURL string

	// Query is the change search predicate. Empty selects DefaultQuery.
	Query string

	// Projects restricts gathering to the named projects. Empty means all.
	Projects []string

	// Branches restricts gathering to the named branches. Empty means all.
	Branches []string

	// Cutoff is the oldest update time of interest. The first change older
	// than this ends the gather.
	Cutoff time.Time

	// PageSize is the number of changes requested per page.
	PageSize int

	// MaxChanges caps the total stored changes. Zero means unlimited.
	MaxChanges int
}

// Source gathers Gerrit changes into an owned Set.
type Source struct {
	cfg     Config
	session *rest.Session
	logger  *slog.Logger
	metrics *observability.GatherMetrics
	set     *changes.Set
}

// NewSource creates a gatherer for the given configuration.
// logger may be nil; metrics may be nil to disable instrumentation.
func NewSource(
	cfg Config,
	session *rest.Session,
	logger *slog.Logger,
	metrics *observability.GatherMetrics,
) *Source {
	if cfg.Query == "" {
		cfg.Query = DefaultQuery
	}

	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	return &Source{
		cfg:     cfg,
		session: session,
		logger:  logger,
		metrics: metrics,
		set:     changes.NewSet(changes.SourceGerrit),
	}
}

// Set returns the gathered changes. Valid after Gather returns nil.
func (s *Source) Set() *changes.Set {
	return s.set
}

// changePayload is the wire shape of one ChangeInfo entity.
type changePayload struct {
	ID          string                     `json:"id"`
	ChangeID    string                     `json:"change_id"`
	Number      int64                      `json:"_number"`
	Project     string                     `json:"project"`
	Branch      string                     `json:"branch"`
	Status      string                     `json:"status"`
	Created     string                     `json:"created"`
	Updated     string                     `json:"updated"`
	Submitted   string                     `json:"submitted"`
	Revisions   map[string]revisionPayload `json:"revisions"`
	Messages    []messagePayload           `json:"messages"`
	MoreChanges bool                       `json:"_more_changes"`
}

type revisionPayload struct {
	Number  int    `json:"_number"`
	Created string `json:"created"`
}

type messagePayload struct {
	ID             string `json:"id"`
	Date           string `json:"date"`
	RevisionNumber int    `json:"_revision_number"`
	Message        string `json:"message"`
}

// Gather walks /changes/ pages in offset order, storing every qualifying
// change until the backend runs out of pages, the item cap is hit, or a
// change older than the cutoff appears.
func (s *Source) Gather(ctx context.Context) error {
	s.logger.Info("gathering changes", "url", s.cfg.BaseURL, "query", s.cfg.Query)

	endpoint := strings.TrimSuffix(s.cfg.BaseURL, "/") + "/changes/"
	offset := 0

	for {
		page, err := s.fetchPage(ctx, endpoint, offset)
		if err != nil {
			return err
		}

		s.metrics.RecordPage(ctx, string(changes.SourceGerrit))

		done, err := s.storePage(page)
		if err != nil {
			return err
		}

		if done || len(page) == 0 || !page[len(page)-1].MoreChanges {
			break
		}

		offset += s.cfg.PageSize
	}

	s.metrics.RecordChanges(ctx, string(changes.SourceGerrit), s.set.Len())
	s.logger.Info("gathered changes", "count", s.set.Len())

	return nil
}

func (s *Source) fetchPage(ctx context.Context, endpoint string, offset int) ([]changePayload, error) {
	s.logger.Debug("querying changes", "size", s.cfg.PageSize, "start", offset)

	query := url.Values{
		"q":     []string{s.cfg.Query},
		"o":     []string{"ALL_REVISIONS", "MESSAGES"},
		"start": []string{strconv.Itoa(offset)},
		"n":     []string{strconv.Itoa(s.cfg.PageSize)},
	}

	body, _, err := s.session.Get(ctx, endpoint, query)
	if err != nil {
		return nil, err
	}

	var page []changePayload

	err = json.Unmarshal(bytes.TrimPrefix(body, []byte(xssiPrefix)), &page)
	if err != nil {
		return nil, fmt.Errorf("decode changes page at offset %d: %w", offset, err)
	}

	return page, nil
}

// storePage applies the per-entity filters in order and stores the
// survivors. It reports done=true when the cap or the cutoff ended the
// whole gather.
func (s *Source) storePage(page []changePayload) (bool, error) {
	for i := range page {
		payload := &page[i]

		if len(s.cfg.Projects) > 0 && !slices.Contains(s.cfg.Projects, payload.Project) {
			continue
		}

		if len(s.cfg.Branches) > 0 && !slices.Contains(s.cfg.Branches, payload.Branch) {
			s.logger.Debug("skipping change on unreported branch",
				"change", payload.ID, "branch", payload.Branch)

			continue
		}

		if s.set.Contains(payload.ID) {
			s.logger.Warn("change id already stored, not storing again", "change", payload.ID)

			continue
		}

		if s.cfg.MaxChanges > 0 && s.set.Len() >= s.cfg.MaxChanges {
			s.logger.Warn("max changes reached, not storing more", "max", s.cfg.MaxChanges)

			return true, nil
		}

		updatedAt, err := ParseTimestamp(payload.Updated)
		if err != nil {
			return false, fmt.Errorf("change %s: %w", payload.ID, err)
		}

		if updatedAt.Before(s.cfg.Cutoff) {
			s.logger.Debug("change older than cutoff, not reading any more",
				"updated", updatedAt, "cutoff", s.cfg.Cutoff)

			return true, nil
		}

		change, err := s.buildChange(payload, updatedAt)
		if err != nil {
			return false, err
		}

		err = s.set.Add(change)
		if err != nil {
			return false, fmt.Errorf("store change %s: %w", payload.ID, err)
		}
	}

	return false, nil
}

func (s *Source) buildChange(payload *changePayload, updatedAt time.Time) (*changes.Change, error) {
	createdAt, err := ParseTimestamp(payload.Created)
	if err != nil {
		return nil, fmt.Errorf("change %s: %w", payload.ID, err)
	}

	base := strings.TrimSuffix(s.cfg.BaseURL, "/")

	change := &changes.Change{
		LongID:    payload.ID,
		Number:    payload.Number,
		Project:   payload.Project,
		Branch:    payload.Branch,
		Status:    mapStatus(payload.Status),
		CreatedAt: createdAt,
		UpdatedAt: updatedAt,
		URL:       fmt.Sprintf("%s/changes/%s", base, payload.ID),
		ReviewURL: fmt.Sprintf("%s/%d", base, payload.Number),
	}

	if change.Status == changes.StatusMerged {
		mergedAt, err := s.mergedTime(payload, updatedAt)
		if err != nil {
			return nil, err
		}

		change.MergedAt = &mergedAt
	}

	for sha, rev := range payload.Revisions {
		revCreatedAt, err := ParseTimestamp(rev.Created)
		if err != nil {
			return nil, fmt.Errorf("change %s revision %s: %w", payload.ID, sha, err)
		}

		change.AddRevision(&changes.Revision{
			Number:    rev.Number,
			CreatedAt: revCreatedAt,
		})
	}

	for _, msg := range payload.Messages {
		postedAt, err := ParseTimestamp(msg.Date)
		if err != nil {
			return nil, fmt.Errorf("change %s message %s: %w", payload.ID, msg.ID, err)
		}

		rev := change.Revision(msg.RevisionNumber)
		if rev == nil {
			s.logger.Warn("message references unknown revision, skipping",
				"change", payload.ID, "message", msg.ID, "revision", msg.RevisionNumber)

			continue
		}

		rev.AddMessage(&changes.Message{
			ID:       msg.ID,
			PostedAt: postedAt,
			Body:     msg.Message,
		})
	}

	return change, nil
}

// mergedTime returns the submitted timestamp, substituting the update time
// with a warning when the backend omitted it.
func (s *Source) mergedTime(payload *changePayload, updatedAt time.Time) (time.Time, error) {
	if payload.Submitted == "" {
		s.logger.Warn("merged change missing submitted timestamp, substituting updated",
			"change", payload.ID, "updated", updatedAt)

		return updatedAt, nil
	}

	mergedAt, err := ParseTimestamp(payload.Submitted)
	if err != nil {
		return time.Time{}, fmt.Errorf("change %s: %w", payload.ID, err)
	}

	return mergedAt, nil
}

func mapStatus(status string) string {
	switch status {
	case "NEW":
		return changes.StatusOpen
	case "MERGED":
		return changes.StatusMerged
	default:
		return changes.StatusClosed
	}
}

// ParseTimestamp parses a Gerrit "YYYY-MM-DD HH:MM:SS.fffffffff" timestamp,
// truncating sub-microsecond digits first.
func ParseTimestamp(raw string) (time.Time, error) {
	dot := strings.IndexByte(raw, '.')
	if dot >= 0 && len(raw)-dot-1 > 6 {
		raw = raw[:dot+7]
	}

	ts, err := time.Parse(timestampLayout, raw)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse timestamp %q: %w", raw, err)
	}

	return ts, nil
}
