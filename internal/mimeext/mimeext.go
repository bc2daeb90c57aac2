package mimeext

import (
	"strings"
)

// Extensions the platform serves progressive formats in.
const (
	ExtMP4  = "mp4"
	ExtWebM = "webm"
	ExtFLV  = "flv"
	Ext3GP  = "3gp"
)

// table is matched in order against the lowercased mime type.
var table = []struct {
	needle string
	ext    string
}{
	{"/mp4", ExtMP4},
	{"/webm", ExtWebM},
	{"/x-flv", ExtFLV},
	{"video/3gpp", Ext3GP},
}

// ExtFromMime returns the file extension (without dot) for a mime type
// such as `video/mp4; codecs="avc1.64001F"`. ok is false for unknown types.
func ExtFromMime(mime string) (ext string, ok bool) {
	mime = strings.ToLower(strings.TrimSpace(mime))
	if mime == "" {
		return "", false
	}
	if i := strings.Index(mime, ";"); i >= 0 {
		mime = strings.TrimSpace(mime[:i])
	}
	for _, e := range table {
		if strings.Contains(mime, e.needle) {
			return e.ext, true
		}
	}
	return "", false
}
