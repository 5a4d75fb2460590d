// Package fixture splits marker-delimited fixture documents into per-test
// segments.
//
// A marker is a line that starts with "# TEST_", followed by a non-empty
// identifier and a colon, for example "# TEST_1:". The identifier ends at the
// first colon after its first character and never spans lines.
package fixture

import "strings"

const markerPrefix = "# TEST_"

// Split cuts doc at every marker and returns the text between them. The first
// segment is the preamble before the first marker, so a document with N
// markers yields N+1 segments. Marker text is discarded; anything after the
// colon on the marker line stays in the following segment.
func Split(doc string) []string {
	var segments []string
	start := 0
	for lineStart := 0; lineStart < len(doc); {
		if end, ok := markerEnd(doc, lineStart); ok {
			segments = append(segments, doc[start:lineStart])
			start = end
		}

		next := strings.IndexByte(doc[lineStart:], '\n')
		if next < 0 {
			break
		}
		lineStart += next + 1
	}
	return append(segments, doc[start:])
}

// Tests returns the per-test segments of doc with the preamble dropped.
func Tests(doc string) []string {
	return Split(doc)[1:]
}

// markerEnd reports whether a marker begins at offset and, if so, the offset
// just past its closing colon.
func markerEnd(doc string, offset int) (int, bool) {
	if !strings.HasPrefix(doc[offset:], markerPrefix) {
		return 0, false
	}

	ident := offset + len(markerPrefix)
	if ident >= len(doc) || doc[ident] == '\n' {
		return 0, false
	}

	rest := doc[ident+1:]
	if eol := strings.IndexByte(rest, '\n'); eol >= 0 {
		rest = rest[:eol]
	}
	colon := strings.IndexByte(rest, ':')
	if colon < 0 {
		return 0, false
	}
	return ident + 1 + colon + 1, true
}
