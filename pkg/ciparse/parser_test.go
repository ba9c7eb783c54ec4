package ciparse_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/HewlettPackard/zing-stats/pkg/ciparse"
)

const ackComment = "Patch Set 1: Verified+1\n\n" +
	"Build succeeded\n\n" +
	"- https://ci.example.com/job/test-check/1/ : SUCCESS in 7s"

func TestParseRun_Acknowledgement(t *testing.T) {
	t.Parallel()

	run, err := ciparse.ParseRun(ackComment, ciparse.GrammarAcknowledgement)

	require.NoError(t, err)
	require.NotNil(t, run)
	assert.Equal(t, "1", run.Number)
	assert.Equal(t, "+1", run.VerifiedScore)
	assert.Equal(t, "succeeded", run.Status)
	require.Len(t, run.Jobs, 1)
	assert.Equal(t, "test-check", run.Jobs[0].Name)
	assert.Equal(t, "SUCCESS", run.Jobs[0].Result)
	assert.Equal(t, 7, run.Jobs[0].DurationSec)
	assert.False(t, run.Jobs[0].NonVoting)
}

func TestParseRun_BuildReport(t *testing.T) {
	t.Parallel()

	text := "Build failed\n\n" +
		"- https://logs.example.com/ci/unit-tests : failed in 45s"

	run, err := ciparse.ParseRun(text, ciparse.GrammarBuildReport)

	require.NoError(t, err)
	require.NotNil(t, run)
	assert.Empty(t, run.Number)
	assert.Empty(t, run.VerifiedScore)
	assert.Equal(t, "failed", run.Status)
	require.Len(t, run.Jobs, 1)
	assert.Equal(t, "unit-tests", run.Jobs[0].Name)
	assert.Equal(t, 45, run.Jobs[0].DurationSec)
}

func TestParseRun_Durations(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		elapsed string
		want    int
	}{
		{name: "seconds only", elapsed: "45s", want: 45},
		{name: "minutes and seconds", elapsed: "2m 10s", want: 130},
		{name: "hours minutes seconds", elapsed: "1h 2m 3s", want: 3723},
		{name: "hours and seconds", elapsed: "1h 3s", want: 3603},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			text := "Build succeeded\n\n" +
				"- https://ci.example.com/job/slow-job/12/ : SUCCESS in " + tt.elapsed

			run, err := ciparse.ParseRun(text, ciparse.GrammarBuildReport)

			require.NoError(t, err)
			require.NotNil(t, run)
			require.Len(t, run.Jobs, 1)
			assert.Equal(t, tt.want, run.Jobs[0].DurationSec)
		})
	}
}

func TestParseRun_NonVoting(t *testing.T) {
	t.Parallel()

	text := "Build succeeded\n\n" +
		"- https://ci.example.com/job/lint/3/ : FAILURE in 2m 10s (non-voting)"

	run, err := ciparse.ParseRun(text, ciparse.GrammarBuildReport)

	require.NoError(t, err)
	require.NotNil(t, run)
	require.Len(t, run.Jobs, 1)
	assert.True(t, run.Jobs[0].NonVoting)
	assert.Equal(t, 130, run.Jobs[0].DurationSec)
}

func TestParseRun_MalformedJobLineIsFatal(t *testing.T) {
	t.Parallel()

	text := "Build succeeded\n\n" +
		"- https://ci.example.com/job/test-check/1/ : SUCCESS in 7s unexpected-tail"

	run, err := ciparse.ParseRun(text, ciparse.GrammarBuildReport)

	require.Error(t, err)
	assert.ErrorIs(t, err, ciparse.ErrMalformedJobLine)
	assert.Nil(t, run)
}

func TestParseRun_NonMatchingTextIsNotAnError(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		text    string
		grammar ciparse.Grammar
	}{
		{name: "plain comment", text: "LGTM, nice cleanup", grammar: ciparse.GrammarAcknowledgement},
		{name: "ack text under build-report grammar", text: ackComment, grammar: ciparse.GrammarBuildReport},
		{name: "preamble without jobs block", text: "Patch Set 3: Verified-1\n\n", grammar: ciparse.GrammarAcknowledgement},
		{name: "build status without jobs block", text: "Build succeeded", grammar: ciparse.GrammarBuildReport},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			run, err := ciparse.ParseRun(tt.text, tt.grammar)

			require.NoError(t, err)
			assert.Nil(t, run)
		})
	}
}

func TestParseRun_MixedJobShapesConcatenateFormatFirst(t *testing.T) {
	t.Parallel()

	text := "Build succeeded\n\n" +
		"- https://logs.example.com/ci/flat-job : ok in 10s\n" +
		"- https://ci.example.com/job/jenkins-job/4/ : SUCCESS in 20s"

	run, err := ciparse.ParseRun(text, ciparse.GrammarBuildReport)

	require.NoError(t, err)
	require.NotNil(t, run)
	require.Len(t, run.Jobs, 2)
	// Jenkins-shaped matches come first regardless of line order.
	assert.Equal(t, "jenkins-job", run.Jobs[0].Name)
	assert.Equal(t, "flat-job", run.Jobs[1].Name)
}

func TestParseRun_IgnoresUnrecognizedLines(t *testing.T) {
	t.Parallel()

	text := "Build succeeded\n\n" +
		"some prose the reporter added\n" +
		"- https://ci.example.com/job/test-check/1/ : SUCCESS in 7s\n" +
		"- not a job line at all"

	run, err := ciparse.ParseRun(text, ciparse.GrammarBuildReport)

	require.NoError(t, err)
	require.NotNil(t, run)
	assert.Len(t, run.Jobs, 1)
}
