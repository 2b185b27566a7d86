package generate

import "strings"

// Normalize cleans a model response into the expected structured shape.
// Two fixes apply, in order:
//
//  1. If the first line merely echoes the control title, drop it.
//  2. The first line should carry the pipe-delimited header. When it does
//     not, the first later line containing "|" is promoted to the front; all
//     other lines keep their relative order.
//
// Well-formed responses pass through unchanged.
func Normalize(text, title string) string {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return ""
	}

	lines := strings.Split(trimmed, "\n")
	if titleEcho(lines[0], title) {
		lines = lines[1:]
	}
	if len(lines) == 0 {
		return ""
	}

	if !strings.Contains(lines[0], "|") {
		for i := 1; i < len(lines); i++ {
			if strings.Contains(lines[i], "|") {
				promoted := make([]string, 0, len(lines))
				promoted = append(promoted, lines[i])
				promoted = append(promoted, lines[:i]...)
				promoted = append(promoted, lines[i+1:]...)
				lines = promoted
				break
			}
		}
	}

	return strings.Join(lines, "\n")
}

func titleEcho(line, title string) bool {
	title = strings.TrimSpace(title)
	if title == "" {
		return false
	}
	return strings.TrimSpace(line) == title
}
