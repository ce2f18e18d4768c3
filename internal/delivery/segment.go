package delivery

import "strings"

// Segment splits text into chunks no longer than maxLen, preferring to
// break on paragraph boundaries ("\n\n") and falling back to line breaks,
// then hard-splitting only as a last resort (spec.md §4.10: "Messages >
// platform max length are segmented on paragraph boundaries").
func Segment(text string, maxLen int) []string {
	if len(text) <= maxLen {
		return []string{text}
	}

	paragraphs := strings.Split(text, "\n\n")
	var segments []string
	var cur strings.Builder

	flush := func() {
		if cur.Len() > 0 {
			segments = append(segments, cur.String())
			cur.Reset()
		}
	}

	for _, p := range paragraphs {
		candidate := p
		if cur.Len() > 0 {
			candidate = "\n\n" + p
		}
		if cur.Len()+len(candidate) <= maxLen {
			cur.WriteString(candidate)
			continue
		}

		flush()
		if len(p) <= maxLen {
			cur.WriteString(p)
			continue
		}

		// A single paragraph still exceeds maxLen; hard-split on lines.
		segments = append(segments, splitLines(p, maxLen)...)
	}
	flush()

	if len(segments) == 0 {
		return []string{text}
	}
	return segments
}

// splitLines hard-splits an over-length paragraph on line boundaries,
// and as a last resort on a byte boundary.
func splitLines(p string, maxLen int) []string {
	lines := strings.Split(p, "\n")
	var out []string
	var cur strings.Builder

	flush := func() {
		if cur.Len() > 0 {
			out = append(out, cur.String())
			cur.Reset()
		}
	}

	for _, line := range lines {
		candidate := line
		if cur.Len() > 0 {
			candidate = "\n" + line
		}
		if cur.Len()+len(candidate) <= maxLen {
			cur.WriteString(candidate)
			continue
		}
		flush()
		for len(line) > maxLen {
			out = append(out, line[:maxLen])
			line = line[maxLen:]
		}
		cur.WriteString(line)
	}
	flush()
	return out
}
