package changes_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/HewlettPackard/zing-stats/pkg/changes"
)

func TestSet_AddRejectsDuplicates(t *testing.T) {
	t.Parallel()

	set := changes.NewSet(changes.SourceGerrit)

	err := set.Add(&changes.Change{LongID: "proj~master~I123", Project: "proj"})
	require.NoError(t, err)

	err = set.Add(&changes.Change{LongID: "proj~master~I123", Project: "proj"})
	require.Error(t, err)
	assert.ErrorIs(t, err, changes.ErrDuplicateChange)
	assert.Equal(t, 1, set.Len())
}

func TestSet_ContainsAndGet(t *testing.T) {
	t.Parallel()

	set := changes.NewSet(changes.SourceGitHub)
	change := &changes.Change{LongID: "org/repo#1", Project: "org/repo"}

	require.NoError(t, set.Add(change))

	assert.True(t, set.Contains("org/repo#1"))
	assert.False(t, set.Contains("org/repo#2"))
	assert.Same(t, change, set.Get("org/repo#1"))
	assert.Nil(t, set.Get("org/repo#2"))
}

func TestSet_ByProjectPreservesInsertionOrder(t *testing.T) {
	t.Parallel()

	set := changes.NewSet(changes.SourceGerrit)

	require.NoError(t, set.Add(&changes.Change{LongID: "a1", Project: "alpha"}))
	require.NoError(t, set.Add(&changes.Change{LongID: "b1", Project: "beta"}))
	require.NoError(t, set.Add(&changes.Change{LongID: "a2", Project: "alpha"}))

	grouped := set.ByProject()

	require.Len(t, grouped, 2)
	require.Len(t, grouped["alpha"], 2)
	assert.Equal(t, "a1", grouped["alpha"][0].LongID)
	assert.Equal(t, "a2", grouped["alpha"][1].LongID)

	assert.Equal(t, []string{"alpha", "beta"}, set.Projects())
}

func TestChange_AddRevisionKeepsNumberOrder(t *testing.T) {
	t.Parallel()

	change := &changes.Change{LongID: "c"}

	change.AddRevision(&changes.Revision{Number: 2})
	change.AddRevision(&changes.Revision{Number: 1})
	change.AddRevision(&changes.Revision{Number: 3})

	require.Equal(t, 3, change.RevisionCount())
	assert.Equal(t, 1, change.Revisions[0].Number)
	assert.Equal(t, 2, change.Revisions[1].Number)
	assert.Equal(t, 3, change.Revisions[2].Number)

	assert.Equal(t, 3, change.NewestRevision().Number)
	assert.Equal(t, 2, change.Revision(2).Number)
	assert.Nil(t, change.Revision(9))
}

func TestChange_Merged(t *testing.T) {
	t.Parallel()

	mergedAt := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name   string
		change changes.Change
		want   bool
	}{
		{name: "merged with timestamp", change: changes.Change{Status: changes.StatusMerged, MergedAt: &mergedAt}, want: true},
		{name: "merged without timestamp", change: changes.Change{Status: changes.StatusMerged}, want: false},
		{name: "open", change: changes.Change{Status: changes.StatusOpen}, want: false},
		{name: "closed", change: changes.Change{Status: changes.StatusClosed, MergedAt: &mergedAt}, want: false},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			assert.Equal(t, tt.want, tt.change.Merged())
		})
	}
}
