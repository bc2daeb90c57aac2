package sanitize

import (
	"regexp"
	"strings"
)

const (
	// MaxFilenameLength is the maximum allowed length for the filename base.
	MaxFilenameLength = 120
	// DefaultName is the replacement name when nothing usable is left.
	DefaultName = "video"
)

var (
	unsafeChars = regexp.MustCompile(`[\\/:*?"<>|\x00-\x1f]+`)
	spaceRuns   = regexp.MustCompile(`\s+`)
)

// Name makes a single path element safe on every platform.
// The result never contains a separator and is never empty.
func Name(s string) string {
	name := unsafeChars.ReplaceAllString(s, "_")
	name = spaceRuns.ReplaceAllString(name, " ")
	name = strings.Trim(name, " .")
	if name == "" {
		return DefaultName
	}
	if len(name) > MaxFilenameLength {
		name = truncate(name, MaxFilenameLength)
	}
	return name
}

// BaseName builds the default output name `<title>_<videoID>`.
// Either part may be empty.
func BaseName(title, videoID string) string {
	title = strings.TrimSpace(title)
	videoID = strings.TrimSpace(videoID)
	switch {
	case title == "" && videoID == "":
		return DefaultName
	case title == "":
		return Name(videoID)
	case videoID == "":
		return Name(title)
	}
	id := Name(videoID)
	room := MaxFilenameLength - len(id) - 1
	return truncate(Name(title), room) + "_" + id
}

// truncate cuts s to at most n bytes without splitting a UTF-8 sequence.
func truncate(s string, n int) string {
	if n <= 0 {
		return ""
	}
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8Start(s[n]) {
		n--
	}
	return strings.TrimRight(s[:n], " .")
}

func utf8Start(b byte) bool {
	return b&0xC0 != 0x80
}
