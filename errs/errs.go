package errs

import (
	"errors"
	"fmt"
)

// Transport failures.
var (
	// ErrConnection indicates that a connection could not be established or broke mid-transfer.
	ErrConnection = errors.New("connection error")
	// ErrProtocolParse indicates a malformed status line, header block or redirect target.
	ErrProtocolParse = errors.New("protocol parse error")
	// ErrRedirectLimit indicates that the redirect chain exceeded the configured hop cap.
	ErrRedirectLimit = errors.New("redirect limit exceeded")
	// ErrUnexpectedStatus indicates a final response outside the 2xx range.
	ErrUnexpectedStatus = errors.New("unexpected status")
)

// ErrPlatformFormatChanged indicates that the watch page or player script no longer
// has a shape we know how to read. Catalog and cipher extraction failures wrap it.
var ErrPlatformFormatChanged = errors.New("platform format changed")

var (
	// ErrNoFormatsFound indicates that no format map could be located in the watch page.
	ErrNoFormatsFound = fmt.Errorf("no formats found: %w", ErrPlatformFormatChanged)
	// ErrVideoUnavailable indicates that the platform refuses to serve the video.
	ErrVideoUnavailable = fmt.Errorf("video unavailable: %w", ErrPlatformFormatChanged)
)

// Reasons attached to ErrVideoUnavailable.
var (
	// ErrAgeRestricted indicates that the video has an age restriction.
	ErrAgeRestricted = errors.New("age restricted")
	// ErrRateLimited indicates throttling or a captcha wall by the remote service.
	ErrRateLimited = errors.New("rate limited")
	// ErrGeoBlocked indicates the video is not available in the current region.
	ErrGeoBlocked = errors.New("geo blocked")
	// ErrContentWarning indicates the video sits behind a content warning interstitial.
	ErrContentWarning = errors.New("content warning")
	// ErrRemoved indicates the uploader removed the video.
	ErrRemoved = errors.New("removed by the user")
	// ErrCopyright indicates a takedown after a copyright claim.
	ErrCopyright = errors.New("copyright claim")
)

var (
	// ErrIO indicates that the destination file could not be opened or written.
	ErrIO = errors.New("io error")
	// ErrNoMatchingFormat indicates that no format could be selected from the catalog.
	ErrNoMatchingFormat = errors.New("no matching format")
	// ErrInvalidURL indicates a watch URL outside the accepted host and path shapes.
	ErrInvalidURL = errors.New("invalid video url")
)
