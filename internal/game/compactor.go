package game

import (
	"context"
	"fmt"
	"regexp"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/user/frontline-missions/internal/interfaces"
	"github.com/user/frontline-missions/internal/types"
)

// Compaction defaults, in characters
const (
	DefaultSummaryThreshold = 800
	DefaultSummaryBudget    = 800

	leadingAnchors  = 2
	trailingAnchors = 3
)

var (
	choiceMarkerPattern = regexp.MustCompile(`(?i)\bchose\b|\b[1-3]\b`)
	listNumeralPattern  = regexp.MustCompile(`^[\s*_#>\-]*\d+[.)]$`)

	narrativeBridges = []struct{ prefix, bridged string }{
		{"You chose", "After careful consideration, you chose"},
		{"The enemy", "Meanwhile, the enemy"},
	}
)

// ArchiveTag is the archive key of the full narrative at a turn
func ArchiveTag(turn int) string {
	return fmt.Sprintf("full_story_turn_%d", turn)
}

// Compaction is the outcome of one Compact call
type Compaction struct {
	Text      string
	Compacted bool
	Archived  bool
}

// StoryCompactor keeps the live narrative within a character budget
type StoryCompactor struct {
	archive   interfaces.ArchiveStore
	tables    *Tables
	threshold int
	budget    int
	logger    *zap.Logger
}

// NewStoryCompactor creates a compactor. Non-positive sizes select the defaults.
func NewStoryCompactor(archive interfaces.ArchiveStore, tables *Tables, threshold, budget int, logger *zap.Logger) *StoryCompactor {
	if tables == nil {
		tables = DefaultTables()
	}
	if threshold <= 0 {
		threshold = DefaultSummaryThreshold
	}
	if budget <= 0 {
		budget = DefaultSummaryBudget
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &StoryCompactor{
		archive:   archive,
		tables:    tables,
		threshold: threshold,
		budget:    budget,
		logger:    logger,
	}
}

// Compact archives and summarizes text once it exceeds the threshold
func (sc *StoryCompactor) Compact(ctx context.Context, sessionID string, turn int, text string, mission types.Mission, player types.Player) Compaction {
	if len(text) <= sc.threshold {
		return Compaction{Text: text}
	}

	result := Compaction{Compacted: true}
	if sc.archive != nil {
		tag := ArchiveTag(turn)
		if err := sc.archive.Put(ctx, sessionID, tag, text); err != nil {
			archiveFailures.Inc()
			sc.logger.Warn("Failed to archive narrative",
				zap.String("session_id", sessionID),
				zap.String("tag", tag),
				zap.Error(err))
		} else {
			result.Archived = true
		}
	}

	result.Text = sc.Summarize(text, mission, player)
	compactionsTotal.Inc()
	sc.logger.Debug("Compacted narrative",
		zap.String("session_id", sessionID),
		zap.Int("turn", turn),
		zap.Int("before", len(text)),
		zap.Int("after", len(result.Text)))
	return result
}

// Summarize reduces text to its anchor sentences plus the highest scoring middle sentences
func (sc *StoryCompactor) Summarize(text string, mission types.Mission, player types.Player) string {
	sentences := splitSentences(text)
	if len(sentences) <= leadingAnchors+trailingAnchors {
		return strings.Join(sentences, " ")
	}

	keep := make(map[int]bool, len(sentences))
	seen := make(map[string]bool, len(sentences))
	for i := 0; i < leadingAnchors; i++ {
		keep[i] = true
		seen[normalizeSentence(sentences[i])] = true
	}
	for i := len(sentences) - trailingAnchors; i < len(sentences); i++ {
		keep[i] = true
		seen[normalizeSentence(sentences[i])] = true
	}

	limit := max(sc.budget, len(compose(sentences, keep)))

	type candidate struct {
		index int
		score int
	}
	keyPhrases := sc.keyPhrases(mission, player)
	var candidates []candidate
	for i := leadingAnchors; i < len(sentences)-trailingAnchors; i++ {
		if score := sc.score(sentences[i], keyPhrases); score > 0 {
			candidates = append(candidates, candidate{index: i, score: score})
		}
	}
	sort.SliceStable(candidates, func(a, b int) bool {
		return candidates[a].score > candidates[b].score
	})

	for _, c := range candidates {
		norm := normalizeSentence(sentences[c.index])
		if seen[norm] {
			continue
		}
		keep[c.index] = true
		if len(compose(sentences, keep)) > limit {
			delete(keep, c.index)
			continue
		}
		seen[norm] = true
	}

	return compose(sentences, keep)
}

func (sc *StoryCompactor) keyPhrases(mission types.Mission, player types.Player) []string {
	kind := sc.tables.MissionKind(mission.Name)
	phrases := append([]string(nil), sc.tables.MissionKeyPhrases[kind]...)
	phrases = append(phrases, sc.tables.AlwaysKeyPhrases...)
	if player.Name != "" {
		phrases = append(phrases, strings.ToLower(player.Name))
	}
	if player.Class != "" {
		phrases = append(phrases, strings.ToLower(string(player.Class)))
	}
	return phrases
}

func (sc *StoryCompactor) score(sentence string, keyPhrases []string) int {
	lower := strings.ToLower(sentence)
	score := 0
	for _, phrase := range keyPhrases {
		if strings.Contains(lower, phrase) {
			score++
		}
	}
	if containsAny(lower, sc.tables.TacticalWords) {
		score++
	}
	if choiceMarkerPattern.MatchString(sentence) {
		score += 2
	}
	return score
}

// compose joins the kept sentences in order. Anchors stay verbatim; only middle sentences are bridged.
func compose(sentences []string, keep map[int]bool) string {
	parts := make([]string, 0, len(keep))
	for i, s := range sentences {
		if !keep[i] {
			continue
		}
		if i >= leadingAnchors && i < len(sentences)-trailingAnchors {
			s = bridge(s)
		}
		parts = append(parts, s)
	}
	return strings.Join(parts, " ")
}

func bridge(sentence string) string {
	for _, b := range narrativeBridges {
		if strings.HasPrefix(sentence, b.prefix) {
			return b.bridged + sentence[len(b.prefix):]
		}
	}
	return sentence
}

// splitSentences breaks text on line breaks and on sentence punctuation followed by a space,
// leaving list numerals such as "2." attached to their item
func splitSentences(text string) []string {
	var out []string
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		start := 0
		for i := 0; i < len(line); i++ {
			switch line[i] {
			case '.', '!', '?':
			default:
				continue
			}
			if i+1 < len(line) && line[i+1] != ' ' {
				continue
			}
			segment := strings.TrimSpace(line[start : i+1])
			if listNumeralPattern.MatchString(segment) {
				continue
			}
			if segment != "" {
				out = append(out, segment)
			}
			start = i + 1
		}
		if rest := strings.TrimSpace(line[start:]); rest != "" {
			out = append(out, rest)
		}
	}
	return out
}

func normalizeSentence(s string) string {
	return strings.ToLower(strings.Join(strings.Fields(s), " "))
}
