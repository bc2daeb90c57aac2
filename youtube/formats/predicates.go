package formats

import (
	"strings"

	"github.com/ytget/ytfetch/types"
)

const (
	mimeMP4 = "video/mp4"
	mimeFLV = "video/x-flv"

	qualityHD720  = "hd720"
	qualityMedium = "medium"
)

// hasDirectURL returns true when the format carries a download URL.
// Segments without one are not formats at all.
func hasDirectURL(format types.Format) bool {
	return strings.TrimSpace(format.URL) != ""
}

// containsFold reports whether substr occurs in s, ignoring case.
func containsFold(s, substr string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(substr))
}

// isMP4 matches "video/mp4" anywhere in the type, including codec suffixes.
func isMP4(format types.Format) bool {
	return containsFold(format.MimeType, mimeMP4)
}

// isFLV matches the flash container type.
func isFLV(format types.Format) bool {
	return containsFold(format.MimeType, mimeFLV)
}

// qualityIs checks the quality label by substring, so "hd720" also matches "hd720p60".
func qualityIs(format types.Format, label string) bool {
	return containsFold(format.Quality, label)
}

// itagEquals is an exact, case-sensitive comparison. An empty itag never matches.
func itagEquals(format types.Format, itag string) bool {
	return itag != "" && format.Itag == itag
}
