// Package bypass recognizes bot-protection and search-engine block pages so
// a source can report "blocked" instead of "no results".
package bypass

import (
	"bytes"
	"net/http"
	"strings"
)

// Page is the slice of a fetched response the detectors look at.
type Page struct {
	StatusCode int
	Headers    http.Header
	Body       []byte
}

// Detector reports whether p was a block or challenge, and by whom.
type Detector func(p Page) (detected bool, by string)

// DefaultDetectors returns the detectors used by the fetcher.
func DefaultDetectors() []Detector {
	return []Detector{
		detectCloudflare,
		detectAkamai,
		detectDataDome,
		detectPerimeterX,
		detectGoogleSorry,
		detectRateLimited,
	}
}

// Analyze returns the name of the first detector that fires, or "".
func Analyze(p Page, detectors []Detector) string {
	for _, d := range detectors {
		if ok, by := d(p); ok {
			return by
		}
	}
	return ""
}

func header(h http.Header, key string) string {
	if h == nil {
		return ""
	}
	if v := h.Get(key); v != "" {
		return v
	}
	lk := strings.ToLower(key)
	for k, vals := range h {
		if strings.ToLower(k) == lk && len(vals) > 0 {
			return vals[0]
		}
	}
	return ""
}

func server(p Page) string { return strings.ToLower(header(p.Headers, "Server")) }

func bodyHas(p Page, needles ...string) bool {
	for _, n := range needles {
		if bytes.Contains(p.Body, []byte(n)) {
			return true
		}
	}
	return false
}

func detectCloudflare(p Page) (bool, string) {
	if p.StatusCode != http.StatusForbidden && p.StatusCode != http.StatusServiceUnavailable {
		return false, ""
	}
	if strings.Contains(server(p), "cloudflare") ||
		bodyHas(p, "cf-browser-verification", "cloudflare-nginx", "cf-turnstile", "Attention Required! | Cloudflare") {
		return true, "Cloudflare"
	}
	return false, ""
}

func detectAkamai(p Page) (bool, string) {
	if p.StatusCode != http.StatusForbidden {
		return false, ""
	}
	if strings.Contains(server(p), "akamai") ||
		(bodyHas(p, "Reference #") && bodyHas(p, "Access Denied")) {
		return true, "Akamai"
	}
	return false, ""
}

func detectDataDome(p Page) (bool, string) {
	if p.StatusCode != http.StatusForbidden {
		return false, ""
	}
	if strings.Contains(server(p), "datadome") ||
		header(p.Headers, "X-DataDome") != "" ||
		header(p.Headers, "X-DataDome-Response") != "" ||
		bodyHas(p, "geo.captcha-delivery.com", "datadome") {
		return true, "DataDome"
	}
	return false, ""
}

// Fiverr sits behind PerimeterX.
func detectPerimeterX(p Page) (bool, string) {
	if p.StatusCode != http.StatusForbidden {
		return false, ""
	}
	if header(p.Headers, "X-Px-Captcha") != "" ||
		bodyHas(p, "client.perimeterx.net", "px-captcha", "_pxBlock") {
		return true, "PerimeterX"
	}
	return false, ""
}

// Google answers scrapers with a 429 or a 200 "/sorry/" interstitial.
func detectGoogleSorry(p Page) (bool, string) {
	if bodyHas(p, "/sorry/index", "Our systems have detected unusual traffic", "g-recaptcha") {
		return true, "Google"
	}
	return false, ""
}

func detectRateLimited(p Page) (bool, string) {
	if p.StatusCode == http.StatusTooManyRequests {
		return true, "RateLimit"
	}
	return false, ""
}
