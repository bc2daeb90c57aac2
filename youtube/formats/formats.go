// Package formats parses the legacy format map and picks the format to download.
package formats

import (
	"net/url"
	"strings"

	"github.com/ytget/ytfetch/errs"
	"github.com/ytget/ytfetch/types"
)

// ParseMap parses a comma separated list of query-string segments, such as
//
//	url=http%3A%2F%2Fx.test%2Fv&itag=18&type=video%2Fmp4&quality=medium&s=abcde
//
// into formats in their original order. Values are percent-decoded and the
// first occurrence of a key wins.
//
// A segment holding a url starts a new format. A segment made of a single
// key=value pair without url is a loose field and completes the format
// before it. Any other segment without url is dropped.
func ParseMap(raw string) []types.Format {
	var out []types.Format
	var seen map[string]bool
	for _, segment := range strings.Split(raw, ",") {
		segment = strings.TrimSpace(segment)
		if segment == "" {
			continue
		}
		pairs := strings.Split(segment, "&")
		f, keys := parseSegment(pairs)
		if hasDirectURL(f) {
			out = append(out, f)
			seen = keys
			continue
		}
		if len(pairs) == 1 && len(out) > 0 {
			mergeLoose(&out[len(out)-1], f, seen)
		}
	}
	return out
}

func parseSegment(pairs []string) (types.Format, map[string]bool) {
	var f types.Format
	seen := map[string]bool{}
	for _, pair := range pairs {
		key, value, ok := strings.Cut(pair, "=")
		if !ok || value == "" || seen[key] {
			continue
		}
		dst := field(&f, key)
		if dst == nil {
			continue
		}
		seen[key] = true
		*dst = unescape(value)
	}
	return f, seen
}

// mergeLoose copies the fields of loose into f unless f already has them.
func mergeLoose(f *types.Format, loose types.Format, seen map[string]bool) {
	for _, key := range []string{"itag", "type", "quality", "sig", "s", "sp"} {
		src := *field(&loose, key)
		if src == "" || seen[key] {
			continue
		}
		seen[key] = true
		*field(f, key) = src
	}
}

// field maps a format map key to the Format field that stores it.
func field(f *types.Format, key string) *string {
	switch key {
	case "url":
		return &f.URL
	case "itag":
		return &f.Itag
	case "type":
		return &f.MimeType
	case "quality":
		return &f.Quality
	case "sig":
		return &f.Sig
	case "s":
		return &f.S
	case "sp":
		return &f.SigParam
	}
	return nil
}

// unescape decodes like a form value. Malformed escapes are kept verbatim.
func unescape(s string) string {
	if v, err := url.QueryUnescape(s); err == nil {
		return v
	}
	return s
}

// tier ranks candidates for SelectHighestQuality. Higher is better.
type tier int

const (
	tierNone tier = iota
	tierFLV
	tierMP4
	tierMP4Medium
	tierMP4HD720
)

// SelectHighestQuality returns the preferred format: hd720 MP4, then medium
// MP4, then any other MP4, then FLV, and finally the first candidate.
// Inside a tier the last occurrence wins. WebM and other containers only
// qualify through the first-candidate fallback.
func SelectHighestQuality(list []types.Format) (*types.Format, error) {
	if len(list) == 0 {
		return nil, errs.ErrNoMatchingFormat
	}

	var best [tierMP4HD720 + 1]int
	for i := range best {
		best[i] = -1
	}
	for i, f := range list {
		if isMP4(f) {
			if qualityIs(f, qualityHD720) {
				best[tierMP4HD720] = i
			} else {
				best[tierMP4] = i
			}
			if qualityIs(f, qualityMedium) {
				best[tierMP4Medium] = i
			}
		}
		if isFLV(f) {
			best[tierFLV] = i
		}
	}

	for t := tierMP4HD720; t > tierNone; t-- {
		if best[t] >= 0 {
			return &list[best[t]], nil
		}
	}
	return &list[0], nil
}

// SelectByItag returns the format with exactly this itag. When none
// matches it falls back to SelectHighestQuality.
func SelectByItag(list []types.Format, itag string) (*types.Format, error) {
	for i := range list {
		if itagEquals(list[i], itag) {
			return &list[i], nil
		}
	}
	return SelectHighestQuality(list)
}

// Select picks by itag when one is given, by quality otherwise.
func Select(list []types.Format, itag string) (*types.Format, error) {
	if itag == "" {
		return SelectHighestQuality(list)
	}
	return SelectByItag(list, itag)
}

// List returns the display triples in catalog order.
func List(list []types.Format) []types.FormatSummary {
	out := make([]types.FormatSummary, 0, len(list))
	for _, f := range list {
		out = append(out, types.FormatSummary{
			Itag:     f.Itag,
			Quality:  f.Quality,
			MimeType: f.MimeType,
		})
	}
	return out
}
