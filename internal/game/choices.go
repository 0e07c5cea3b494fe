package game

import (
	"regexp"
	"strconv"
	"strings"
)

// ChoiceCount is the number of options every turn offers
const ChoiceCount = 3

var (
	choiceLinePattern = regexp.MustCompile(`^[\s*_#>\-]*(?:(?i:choice|option)\s*)?([1-3])\s*[.):\-]\s*(.+)$`)
	markupReplacer    = strings.NewReplacer("*", "", "_", "", "#", "", "`", "", "\"", "", "“", "", "”", "")
	whitespacePattern = regexp.MustCompile(`\s+`)
)

// minChoiceLength is the shortest text still treated as a real option
const minChoiceLength = 6

type choiceMarker struct {
	number int
	text   string
}

// ExtractChoices parses narrative text into exactly three actions.
// The last complete 1-2-3 menu wins; missing options come from the fallback list.
func ExtractChoices(text string, tables *Tables) []string {
	markers := scanChoiceMarkers(text)
	picked := pickChoiceRun(markers)

	choices := make([]string, ChoiceCount)
	for _, m := range picked {
		cleaned := cleanChoice(m.text)
		if len(cleaned) < minChoiceLength {
			continue
		}
		if choices[m.number-1] == "" {
			choices[m.number-1] = cleaned
		}
	}

	for i := range choices {
		if choices[i] == "" {
			choices[i] = tables.FallbackChoices[i]
		}
	}
	return choices
}

// RecoveredChoiceCount reports how many options came from the text itself
func RecoveredChoiceCount(text string) int {
	count := 0
	for _, m := range pickChoiceRun(scanChoiceMarkers(text)) {
		if len(cleanChoice(m.text)) >= minChoiceLength {
			count++
		}
	}
	return count
}

func scanChoiceMarkers(text string) []choiceMarker {
	var markers []choiceMarker
	for _, line := range strings.Split(text, "\n") {
		match := choiceLinePattern.FindStringSubmatch(strings.TrimSpace(line))
		if match == nil {
			continue
		}
		n, _ := strconv.Atoi(match[1])
		markers = append(markers, choiceMarker{number: n, text: match[2]})
	}
	return markers
}

func pickChoiceRun(markers []choiceMarker) []choiceMarker {
	// Last complete 1, 2, 3 run
	for i := len(markers) - 3; i >= 0; i-- {
		if markers[i].number == 1 && markers[i+1].number == 2 && markers[i+2].number == 3 {
			return markers[i : i+3]
		}
	}

	// Last ascending run starting at 1
	for i := len(markers) - 1; i >= 0; i-- {
		if markers[i].number != 1 {
			continue
		}
		run := []choiceMarker{markers[i]}
		for j := i + 1; j < len(markers) && markers[j].number > run[len(run)-1].number; j++ {
			run = append(run, markers[j])
		}
		return run
	}

	// Whatever trailing markers remain, one per number
	seen := make(map[int]bool)
	var run []choiceMarker
	for i := len(markers) - 1; i >= 0; i-- {
		if seen[markers[i].number] {
			continue
		}
		seen[markers[i].number] = true
		run = append([]choiceMarker{markers[i]}, run...)
	}
	return run
}

func cleanChoice(raw string) string {
	s := markupReplacer.Replace(raw)
	s = whitespacePattern.ReplaceAllString(s, " ")
	s = strings.TrimSpace(s)
	s = strings.TrimRight(s, ". ")
	return s
}
