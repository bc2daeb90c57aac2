package page

import (
	"strings"

	"github.com/ytget/ytfetch/errs"
)

// Reason is the platform-side cause behind a missing format map.
type Reason string

const (
	ReasonAgeRestricted  Reason = "age-restricted"
	ReasonRateLimited    Reason = "rate-limited"
	ReasonGeoBlocked     Reason = "geo-blocked"
	ReasonContentWarning Reason = "content-warning"
	ReasonRemoved        Reason = "removed-by-user"
	ReasonCopyright      Reason = "copyright-claim"
	ReasonUnavailable    Reason = "unavailable"
)

// blockPhrases is scanned in order. The country phrase precedes the
// generic one because geo-block pages contain both.
var blockPhrases = []struct {
	phrase string
	reason Reason
}{
	{"this video has been age-restricted", ReasonAgeRestricted},
	{"large volume of requests", ReasonRateLimited},
	{"in your country", ReasonGeoBlocked},
	{"content warning", ReasonContentWarning},
	{"removed by the user", ReasonRemoved},
	{"copyright claim", ReasonCopyright},
	{"is not available", ReasonUnavailable},
}

var reasonErrs = map[Reason]error{
	ReasonAgeRestricted:  errs.ErrAgeRestricted,
	ReasonRateLimited:    errs.ErrRateLimited,
	ReasonGeoBlocked:     errs.ErrGeoBlocked,
	ReasonContentWarning: errs.ErrContentWarning,
	ReasonRemoved:        errs.ErrRemoved,
	ReasonCopyright:      errs.ErrCopyright,
}

// Classify scans page for a known block message, case-insensitively.
func Classify(page string) (Reason, bool) {
	lower := strings.ToLower(page)
	for _, bp := range blockPhrases {
		if strings.Contains(lower, bp.phrase) {
			return bp.reason, true
		}
	}
	return "", false
}

// UnavailableError reports a watch page that shows a block message instead
// of a player. It matches errs.ErrVideoUnavailable, the reason's own
// sentinel and errs.ErrPlatformFormatChanged with errors.Is.
type UnavailableError struct {
	Reason Reason
}

func (e *UnavailableError) Error() string {
	return "video unavailable: " + string(e.Reason)
}

// Unwrap exposes the sentinels this error matches.
func (e *UnavailableError) Unwrap() []error {
	out := []error{errs.ErrVideoUnavailable}
	if re, ok := reasonErrs[e.Reason]; ok {
		out = append(out, re)
	}
	return out
}
