// Package catalog reads the cleaned track catalog and derives ids and descriptive text from it.
package catalog

import (
	"regexp"
	"strings"
)

const unknown = "unknown"

var artistSeparators = regexp.MustCompile(`[,;]`)

// DescriptiveText builds the text that is embedded for a track: "<name> by <artists> genre <genre>".
// artists is the raw artists field as it appears in the cleaned table.
func DescriptiveText(name, artists, genre string) string {
	return name + " by " + artists + " genre " + genre
}

// SplitArtists splits a raw artists field on ',' and ';', trimming and dropping empty names.
func SplitArtists(raw string) []string {
	parts := artistSeparators.Split(raw, -1)

	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}

	return out
}

func orUnknown(s string) string {
	if strings.TrimSpace(s) == "" {
		return unknown
	}

	return s
}
