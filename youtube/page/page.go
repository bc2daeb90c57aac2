// Package page reads the legacy watch page: the embedded player config
// with its format maps, the block messages shown instead of a player, and
// the page title.
package page

import (
	"errors"
	"net/url"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/ytget/ytfetch/errs"
)

var (
	playerConfigRe = regexp.MustCompile(`(?s)ytplayer\.config\s*=\s*\{(.*?)\};`)

	// Format map keys in priority order.
	mapKeys = []string{
		"fmt_url_map",
		"fmt_stream_map",
		"url_encoded_fmt_stream_map",
	}
	adaptiveKey = "adaptive_fmts"

	keyRes = func() map[string]*regexp.Regexp {
		m := make(map[string]*regexp.Regexp, len(mapKeys)+1)
		for _, k := range append(mapKeys, adaptiveKey) {
			m[k] = regexp.MustCompile(`(?s)"` + regexp.QuoteMeta(k) + `":\s*"(.*?)"`)
		}
		return m
	}()

	jsonUnescaper = strings.NewReplacer(`\u0026`, "&", `\/`, "/")
)

// ExtractFormatMap returns the raw comma separated format map embedded in
// the watch page. The adaptive formats, when present, follow the primary
// map after a comma.
//
// When the page has no map it is classified: a known block message yields
// an *UnavailableError, anything else errs.ErrNoFormatsFound.
func ExtractFormatMap(page string) (string, error) {
	m := playerConfigRe.FindStringSubmatch(page)
	if m == nil {
		return "", classify(page)
	}
	config := jsonUnescaper.Replace(m[1])

	var primary string
	found := false
	for _, key := range mapKeys {
		if km := keyRes[key].FindStringSubmatch(config); km != nil {
			primary, found = km[1], true
			break
		}
	}
	if !found {
		return "", classify(page)
	}

	if am := keyRes[adaptiveKey].FindStringSubmatch(config); am != nil && am[1] != "" {
		if primary == "" {
			return am[1], nil
		}
		return primary + "," + am[1], nil
	}
	return primary, nil
}

func classify(page string) error {
	if reason, ok := Classify(page); ok {
		return &UnavailableError{Reason: reason}
	}
	return errs.ErrNoFormatsFound
}

// Title returns the text of the page's <title> element without the
// trailing " - YouTube".
func Title(page string) string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(page))
	if err != nil {
		return ""
	}
	title := strings.TrimSpace(doc.Find("title").First().Text())
	return strings.TrimSpace(strings.TrimSuffix(title, "- YouTube"))
}

// WatchLinks returns the video IDs of every /watch?v= link on a page,
// in document order and without duplicates.
func WatchLinks(page string) []string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(page))
	if err != nil {
		return nil
	}
	var ids []string
	seen := map[string]bool{}
	doc.Find(`a[href*="watch?v="]`).Each(func(_ int, s *goquery.Selection) {
		href, _ := s.Attr("href")
		u, err := url.Parse(href)
		if err != nil {
			return
		}
		id := u.Query().Get("v")
		if id != "" && !seen[id] {
			seen[id] = true
			ids = append(ids, id)
		}
	})
	return ids
}

// VideoID returns the v query parameter of a watch URL, or the first path
// element of a short link. It returns "" when neither is present.
func VideoID(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	if v := u.Query().Get("v"); v != "" {
		return v
	}
	host := strings.TrimPrefix(strings.ToLower(u.Hostname()), "www.")
	path := strings.Trim(u.Path, "/")
	switch {
	case host == "youtu.be" && path != "":
		id, _, _ := strings.Cut(path, "/")
		return id
	case strings.HasPrefix(path, "shorts/"), strings.HasPrefix(path, "embed/"):
		_, rest, _ := strings.Cut(path, "/")
		id, _, _ := strings.Cut(rest, "/")
		return id
	}
	return ""
}

// IsUnavailable reports whether err carries a classified block reason.
func IsUnavailable(err error) bool {
	var ue *UnavailableError
	return errors.As(err, &ue)
}
