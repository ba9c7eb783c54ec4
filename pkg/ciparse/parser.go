// Package ciparse extracts CI-run records and promotion outcomes from
// free-text review comments. Matching is done with hand-written matchers over
// two explicit run grammars and two job-line shapes; a comment that does not
// look like a CI report yields an empty result, never an error.
package ciparse

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// Grammar selects the run preamble shape to match, per backend.
type Grammar string

const (
	// GrammarAcknowledgement matches the patch-set acknowledgement preamble
	// posted by the code-review backend: "Patch Set <n>: Verified<score>"
	// followed by "Build <status>" and a job block.
	GrammarAcknowledgement Grammar = "acknowledgement"

	// GrammarBuildReport matches the bare build report posted on pull
	// requests: "Build <status>" followed directly by a job block.
	GrammarBuildReport Grammar = "build-report"
)

// ErrMalformedJobLine is returned when a job line matches a known shape but
// carries unrecognized trailing content. This is fatal rather than skipped:
// it signals a future report format the parser does not understand yet.
var ErrMalformedJobLine = errors.New("unexpected content in job line")

// Job is one named CI job within a run.
type Job struct {
	Name        string
	Result      string
	DurationSec int
	NonVoting   bool
}

// Run is one reported CI execution parsed from a single comment.
type Run struct {
	// Number is the patch-set number from the acknowledgement preamble,
	// empty for build-report grammar.
	Number string

	// VerifiedScore is the verification score token (e.g. "+1"), empty for
	// build-report grammar.
	VerifiedScore string

	Status string
	Jobs   []Job
}

const (
	ackPreamble      = "Patch Set "
	ackVerifiedMark  = ": Verified"
	buildPreamble    = "Build "
	jobLinePrefix    = "- "
	jobFieldSep      = " : "
	durationSep      = " in "
	nonVotingMarker  = " (non-voting)"
	jobPathSegment   = "/job/"
	schemeSep        = "://"
)

// ParseRun matches text against the given run grammar. A non-matching text
// returns (nil, nil): most comments are not CI reports. A matching text with
// a malformed job line returns ErrMalformedJobLine.
func ParseRun(text string, grammar Grammar) (*Run, error) {
	run := &Run{}
	rest := text

	if grammar == GrammarAcknowledgement {
		var matched bool

		run.Number, run.VerifiedScore, rest, matched = matchAckPreamble(rest)
		if !matched {
			return nil, nil
		}
	}

	status, jobsBlock, matched := matchBuildStatus(rest)
	if !matched {
		return nil, nil
	}

	run.Status = status

	jobs, err := parseJobs(jobsBlock)
	if err != nil {
		return nil, err
	}

	run.Jobs = jobs

	return run, nil
}

// matchAckPreamble consumes "Patch Set <n>: Verified<score>" plus trailing
// whitespace from the start of text.
func matchAckPreamble(text string) (number, score, rest string, ok bool) {
	rest, found := strings.CutPrefix(text, ackPreamble)
	if !found {
		return "", "", "", false
	}

	number, rest = cutDigits(rest)
	if number == "" {
		return "", "", "", false
	}

	rest, found = strings.CutPrefix(rest, ackVerifiedMark)
	if !found {
		return "", "", "", false
	}

	score, rest = cutToken(rest)
	if score == "" {
		return "", "", "", false
	}

	rest, found = cutWhitespace(rest)
	if !found {
		return "", "", "", false
	}

	return number, score, rest, true
}

// matchBuildStatus consumes "Build <status>" plus trailing whitespace and
// returns the non-empty remainder as the jobs block.
func matchBuildStatus(text string) (status, jobsBlock string, ok bool) {
	rest, found := strings.CutPrefix(text, buildPreamble)
	if !found {
		return "", "", false
	}

	status, rest = cutToken(rest)
	if status == "" {
		return "", "", false
	}

	rest, found = cutWhitespace(rest)
	if !found || rest == "" {
		return "", "", false
	}

	return status, rest, true
}

// parseJobs scans the job block line by line. Both accepted shapes are
// checked over the whole block; matches are concatenated format-then-order.
// Lines that match neither shape are ignored.
func parseJobs(block string) ([]Job, error) {
	lines := strings.Split(block, "\n")

	var jobs []Job

	for _, line := range lines {
		job, matched, err := matchJobLine(line, parseJenkinsJobName)
		if err != nil {
			return nil, err
		}

		if matched {
			jobs = append(jobs, job)
		}
	}

	for _, line := range lines {
		job, matched, err := matchJobLine(line, parseFlatPathJobName)
		if err != nil {
			return nil, err
		}

		if matched {
			jobs = append(jobs, job)
		}
	}

	return jobs, nil
}

type jobNameParser func(urlPart string) (string, bool)

// matchJobLine matches one job line: "- <url> : <result> in <elapsed>" with
// an optional non-voting marker. A structural mismatch skips the line; only
// trailing garbage after a full match is fatal.
func matchJobLine(line string, nameFrom jobNameParser) (Job, bool, error) {
	rest, found := strings.CutPrefix(line, jobLinePrefix)
	if !found {
		return Job{}, false, nil
	}

	sep := strings.Index(rest, jobFieldSep)
	if sep < 0 {
		return Job{}, false, nil
	}

	urlPart := rest[:sep]
	tail := rest[sep+len(jobFieldSep):]

	name, ok := nameFrom(urlPart)
	if !ok {
		return Job{}, false, nil
	}

	result, tail, ok := cutResult(tail)
	if !ok {
		return Job{}, false, nil
	}

	seconds, tail, ok := cutElapsed(tail)
	if !ok {
		return Job{}, false, nil
	}

	nonVoting := false

	if after, cut := strings.CutPrefix(tail, nonVotingMarker); cut {
		nonVoting = true
		tail = after
	}

	if tail != "" {
		return Job{}, false, fmt.Errorf("%w: %q", ErrMalformedJobLine, tail)
	}

	return Job{
		Name:        name,
		Result:      result,
		DurationSec: seconds,
		NonVoting:   nonVoting,
	}, true, nil
}

// parseJenkinsJobName extracts the job name from a Jenkins-style URL:
// <proto>://<path>/job/<name>/<build-number>/. The name is taken after the
// last "/job/" segment.
func parseJenkinsJobName(urlPart string) (string, bool) {
	_, hostPath, found := strings.Cut(urlPart, schemeSep)
	if !found {
		return "", false
	}

	jobIdx := strings.LastIndex(hostPath, jobPathSegment)
	if jobIdx < 0 {
		return "", false
	}

	tail, found := strings.CutSuffix(hostPath[jobIdx+len(jobPathSegment):], "/")
	if !found {
		return "", false
	}

	lastSlash := strings.LastIndex(tail, "/")
	if lastSlash < 0 {
		return "", false
	}

	name := tail[:lastSlash]
	buildNumber := tail[lastSlash+1:]

	if name == "" || !allDigits(buildNumber) || strings.ContainsAny(name, " \t") {
		return "", false
	}

	return name, true
}

// parseFlatPathJobName extracts the job name from a flat log-path URL:
// <proto>://<path>/<name>, where the name is the last path segment and must
// contain no digits (a trailing build number marks the Jenkins shape instead).
func parseFlatPathJobName(urlPart string) (string, bool) {
	_, hostPath, found := strings.Cut(urlPart, schemeSep)
	if !found {
		return "", false
	}

	lastSlash := strings.LastIndex(hostPath, "/")
	if lastSlash < 0 {
		return "", false
	}

	name := hostPath[lastSlash+1:]
	if name == "" || strings.ContainsAny(name, "0123456789") {
		return "", false
	}

	return name, true
}

func cutResult(tail string) (result, rest string, ok bool) {
	idx := strings.Index(tail, durationSep)
	if idx <= 0 {
		return "", "", false
	}

	result = tail[:idx]
	if strings.ContainsAny(result, " \t\n") {
		return "", "", false
	}

	return result, tail[idx+len(durationSep):], true
}

// cutElapsed parses the elapsed-time phrase: optional "<n>h ", optional
// "<n>m ", required "<n>s". Absent components contribute zero seconds.
func cutElapsed(tail string) (seconds int, rest string, ok bool) {
	total := 0

	if n, after, found := cutUnit(tail, "h "); found {
		total += n * 3600
		tail = after
	}

	if n, after, found := cutUnit(tail, "m "); found {
		total += n * 60
		tail = after
	}

	n, after, found := cutUnit(tail, "s")
	if !found {
		return 0, "", false
	}

	total += n

	return total, after, true
}

// cutUnit consumes "<digits><suffix>" from the start of text.
func cutUnit(text, suffix string) (value int, rest string, ok bool) {
	digits, after := cutDigits(text)
	if digits == "" {
		return 0, "", false
	}

	after, found := strings.CutPrefix(after, suffix)
	if !found {
		return 0, "", false
	}

	value, err := strconv.Atoi(digits)
	if err != nil {
		return 0, "", false
	}

	return value, after, true
}

func cutDigits(text string) (digits, rest string) {
	end := 0
	for end < len(text) && text[end] >= '0' && text[end] <= '9' {
		end++
	}

	return text[:end], text[end:]
}

// cutToken consumes a maximal run of non-whitespace characters.
func cutToken(text string) (token, rest string) {
	end := 0
	for end < len(text) && !isSpace(text[end]) {
		end++
	}

	return text[:end], text[end:]
}

// cutWhitespace consumes one or more whitespace characters.
func cutWhitespace(text string) (rest string, found bool) {
	end := 0
	for end < len(text) && isSpace(text[end]) {
		end++
	}

	return text[end:], end > 0
}

func isSpace(b byte) bool {
	return b == ' ' || b == '\t' || b == '\n' || b == '\r'
}

func allDigits(text string) bool {
	if text == "" {
		return false
	}

	for i := 0; i < len(text); i++ {
		if text[i] < '0' || text[i] > '9' {
			return false
		}
	}

	return true
}
