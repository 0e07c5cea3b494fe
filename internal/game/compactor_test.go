package game

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/user/frontline-missions/internal/types"
)

var (
	compactorAnchors = []string{
		"Dawn breaks over the hedgerows.",
		"Your platoon waits in the ditch.",
		"Smoke drifts across the field.",
		"Somewhere a dog barks.",
		"Orders come down the line.",
	}
	squadSentence   = "The squad moves toward the objective."
	quietSentence   = "Birds sing in the trees."
	contactSentence = "Sergeant Cole chose the flank and the enemy opens fire."
)

func compactorText(middle ...string) string {
	parts := append([]string{}, compactorAnchors[:2]...)
	parts = append(parts, middle...)
	parts = append(parts, compactorAnchors[2:]...)
	return strings.Join(parts, " ")
}

func compactorPlayer() types.Player {
	return types.Player{Name: "Miller", Class: types.ClassSniper}
}

func TestStoryCompactorBelowThreshold(t *testing.T) {
	// Setup
	archive := newMemoryArchive()
	compactor := NewStoryCompactor(archive, nil, 800, 800, nil)
	text := compactorText(squadSentence)

	// Test case 1: Short text is left alone and not archived
	result := compactor.Compact(context.Background(), "s1", 1, text, testMission(), compactorPlayer())
	assert.Equal(t, text, result.Text)
	assert.False(t, result.Compacted)
	assert.False(t, result.Archived)
	assert.Empty(t, archive.entries)
}

func TestStoryCompactorSelection(t *testing.T) {
	// Setup
	archive := newMemoryArchive()
	text := compactorText(squadSentence, quietSentence, contactSentence)
	anchors := strings.Join(compactorAnchors, " ")

	// Test case 1: A generous budget keeps every scoring sentence and drops the rest
	compactor := NewStoryCompactor(archive, nil, 50, 10000, nil)
	result := compactor.Compact(context.Background(), "s1", 3, text, testMission(), compactorPlayer())
	assert.True(t, result.Compacted)
	assert.True(t, result.Archived)
	assert.Equal(t, compactorText(squadSentence, contactSentence), result.Text)

	stored, err := archive.Get(context.Background(), "s1", "full_story_turn_3")
	require.NoError(t, err)
	assert.Equal(t, text, stored)

	// Test case 2: A tight budget prefers the highest score
	budget := len(anchors) + 1 + len(contactSentence)
	compactor = NewStoryCompactor(archive, nil, 50, budget, nil)
	result = compactor.Compact(context.Background(), "s1", 4, text, testMission(), compactorPlayer())
	assert.Equal(t, compactorText(contactSentence), result.Text)
	assert.LessOrEqual(t, len(result.Text), budget)

	// Test case 3: Anchors survive even when they alone exceed the budget
	compactor = NewStoryCompactor(archive, nil, 50, 1, nil)
	result = compactor.Compact(context.Background(), "s1", 5, text, testMission(), compactorPlayer())
	assert.Equal(t, anchors, result.Text)

	// Test case 4: Repeated sentences are kept once
	compactor = NewStoryCompactor(archive, nil, 50, 10000, nil)
	result = compactor.Compact(context.Background(), "s1", 6, compactorText(squadSentence, squadSentence), testMission(), compactorPlayer())
	assert.Equal(t, 1, strings.Count(result.Text, squadSentence))
}

func TestStoryCompactorBudgetHolds(t *testing.T) {
	// Setup
	compactor := NewStoryCompactor(nil, nil, 100, 300, nil)
	var b strings.Builder
	for i := 0; i < 60; i++ {
		b.WriteString("The squad advances on the enemy objective near the mission line. ")
	}
	text := b.String()

	// Test case 1: Output never exceeds the larger of budget and anchors
	result := compactor.Compact(context.Background(), "s1", 2, text, testMission(), compactorPlayer())
	anchors := len(strings.Join(splitSentences(text)[:2], " ")) + len(strings.Join(splitSentences(text)[57:], " ")) + 1
	assert.LessOrEqual(t, len(result.Text), max(300, anchors))
	assert.False(t, result.Archived)
}

func TestStoryCompactorArchiveFailure(t *testing.T) {
	// Setup
	archive := newMemoryArchive()
	archive.fail = true
	compactor := NewStoryCompactor(archive, nil, 50, 10000, nil)

	// Test case 1: Compaction goes ahead when the archive is down
	result := compactor.Compact(context.Background(), "s1", 2, compactorText(squadSentence, quietSentence), testMission(), compactorPlayer())
	assert.True(t, result.Compacted)
	assert.False(t, result.Archived)
	assert.NotContains(t, result.Text, quietSentence)
}

func TestSummarizeBridges(t *testing.T) {
	// Setup
	compactor := NewStoryCompactor(nil, nil, 0, 0, nil)

	// Test case 1: Middle sentences are bridged, anchors are not
	text := "Dawn breaks over the hedgerows. The enemy holds the ridge. " +
		"You chose the left flank. The enemy falls back to the farm. " +
		"Rain begins to fall. You chose to flank left. The enemy opens fire from the treeline."
	summary := compactor.Summarize(text, testMission(), compactorPlayer())
	assert.Equal(t, "Dawn breaks over the hedgerows. The enemy holds the ridge. "+
		"After careful consideration, you chose the left flank. Meanwhile, the enemy falls back to the farm. "+
		"Rain begins to fall. You chose to flank left. The enemy opens fire from the treeline.", summary)

	// Test case 2: Anchors that open with a bridge phrase survive verbatim
	text = "Dawn breaks over the hedgerows. The enemy holds the ridge. Smoke drifts across the lane. " +
		"Rain begins to fall. You chose to flank left. The enemy opens fire from the treeline."
	summary = compactor.Summarize(text, testMission(), compactorPlayer())
	for _, anchor := range []string{
		"Dawn breaks over the hedgerows.",
		"The enemy holds the ridge.",
		"Rain begins to fall.",
		"You chose to flank left.",
		"The enemy opens fire from the treeline.",
	} {
		assert.Contains(t, summary, anchor)
	}
	assert.NotContains(t, summary, "Meanwhile")
	assert.NotContains(t, summary, "After careful consideration")

	// Test case 3: Short text is returned as is
	summary = compactor.Summarize("We move out. You chose the left flank. The enemy waits.", testMission(), compactorPlayer())
	assert.Equal(t, "We move out. You chose the left flank. The enemy waits.", summary)
}

func TestSplitSentences(t *testing.T) {
	// Test case 1: Line breaks and punctuation split; list numerals do not
	text := "Intro line. Second one!\n\n1. Go left.\n2) Go right?\n**3.** Hold fast"
	assert.Equal(t, []string{"Intro line.", "Second one!", "1. Go left.", "2) Go right?", "**3.** Hold fast"}, splitSentences(text))

	// Test case 2: Decimal points are not sentence ends
	assert.Equal(t, []string{"Range is 1.5 miles."}, splitSentences("Range is 1.5 miles."))
}

func TestArchiveTag(t *testing.T) {
	assert.Equal(t, "full_story_turn_4", ArchiveTag(4))
}
