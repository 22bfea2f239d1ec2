// Cinegraph - Wikipedia and IMDb Film Catalog Crawler
// Copyright 2026 Cinegraph Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/cinegraph/cinegraph

package wikipedia

import (
	"regexp"
	"strings"
)

var fileAttachmentPattern = regexp.MustCompile(`File:[^.]+\.`)

// titleExceptions lists category members known to be franchise hubs or
// disambiguation pages rather than film articles.
var titleExceptions = map[string]struct{}{
	"Keerthi Chakra":                        {},
	"A Thousand Acres":                      {},
	"Star Trek":                             {},
	"Star Wars":                             {},
	"Final Destination":                     {},
	"Diary of a Wimpy Kid":                  {},
	"Diary of a Wimpy Kid: Rodrick Rules":   {},
	"Halloween H20: 20 Years Later (film)":  {},
	"The Ten (film)":                        {},
	"On Line":                               {},
}

// IsTitleCorrect reports whether a category member looks like an actual
// film article: list pages, series pages, known exceptions, and file
// attachments are noise.
func IsTitleCorrect(title string) bool {
	if title == "" {
		return false
	}
	if strings.HasPrefix(title, "List") && strings.Contains(title, "of") &&
		(strings.Contains(title, "film") || strings.Contains(title, "actor")) {
		return false
	}
	if strings.Contains(title, "film") && strings.Contains(title, "serie") {
		return false
	}
	if _, excepted := titleExceptions[title]; excepted {
		return false
	}
	return !fileAttachmentPattern.MatchString(title)
}
