package workflow

import (
	"regexp"
	"strings"

	"scenariochat/scenario"
)

var wordSplitter = regexp.MustCompile(`[^a-z0-9]+`)

// ExtractScenarios finds registered scenarios mentioned by name in a request.
// Matching is literal but case-insensitive and tolerates possessives and
// punctuation; names the registry does not know are dropped silently.
// Order follows first mention, duplicates collapse.
func ExtractScenarios(request string, known []scenario.Info) []scenario.Info {
	lowerRequest := strings.ToLower(request)
	requestWords := wordSplitter.Split(lowerRequest, -1)

	type hit struct {
		info scenario.Info
		pos  int
	}
	var hits []hit
	seen := make(map[string]bool)

	for _, info := range known {
		name := strings.ToLower(strings.TrimSpace(info.Name))
		if name == "" || seen[info.ID] {
			continue
		}
		pos := -1
		if strings.Contains(name, " ") {
			pos = strings.Index(lowerRequest, name)
		} else {
			for _, w := range requestWords {
				if w == name || w == name+"s" {
					pos = strings.Index(lowerRequest, name)
					break
				}
			}
		}
		if pos >= 0 {
			seen[info.ID] = true
			hits = append(hits, hit{info: info, pos: pos})
		}
	}

	// insertion sort by first mention; the list is tiny
	for i := 1; i < len(hits); i++ {
		for j := i; j > 0 && hits[j].pos < hits[j-1].pos; j-- {
			hits[j], hits[j-1] = hits[j-1], hits[j]
		}
	}

	infos := make([]scenario.Info, len(hits))
	for i, h := range hits {
		infos[i] = h.info
	}
	return infos
}
