package layout

import (
	"strings"
	"time"
)

const maxNameRunes = 60

// SanitizeFilename maps a custodian name to a filesystem-safe token. Runes
// outside [A-Za-z0-9_.-] become underscores, runs of underscores collapse
// and the result is trimmed and capped at 60 runes. An empty result is
// "Unknown".
func SanitizeFilename(name string) string {
	var b strings.Builder
	lastUnderscore := false
	for _, r := range strings.TrimSpace(name) {
		safe := r == '.' || r == '-' || r == '_' ||
			(r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9')
		if !safe {
			r = '_'
		}
		if r == '_' {
			if lastUnderscore {
				continue
			}
			lastUnderscore = true
		} else {
			lastUnderscore = false
		}
		b.WriteRune(r)
	}

	out := strings.Trim(b.String(), "_")
	if len(out) > maxNameRunes {
		out = strings.TrimRight(out[:maxNameRunes], "_")
	}
	if out == "" {
		return "Unknown"
	}
	return out
}

// DocumentName returns the receipt file name for a custodian on date.
func DocumentName(custodian string, date time.Time) string {
	return "DA2062_" + SanitizeFilename(custodian) + "_" + date.Format("20060102") + ".pdf"
}
