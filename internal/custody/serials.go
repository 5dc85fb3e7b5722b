package custody

import "strings"

// ParseSerials splits scanner or keyboard input into serials. Lines and
// commas both separate values; blanks are dropped and repeats collapse to
// the first occurrence.
func ParseSerials(text string) []string {
	var parts []string
	for _, line := range strings.Split(text, "\n") {
		parts = append(parts, strings.Split(line, ",")...)
	}
	return normalizeSerials(parts)
}

func normalizeSerials(serials []string) []string {
	seen := make(map[string]bool, len(serials))
	out := make([]string, 0, len(serials))
	for _, s := range serials {
		s = strings.TrimSpace(s)
		if s == "" || seen[s] {
			continue
		}
		seen[s] = true
		out = append(out, s)
	}
	return out
}
