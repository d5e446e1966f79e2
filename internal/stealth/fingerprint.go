package stealth

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/lukman83/keepwarm/internal/chance"
	"github.com/lukman83/keepwarm/internal/httputil"
)

const (
	BrowserChrome  = "Chrome"
	BrowserEdge    = "Edge"
	BrowserFirefox = "Firefox"
	BrowserSafari  = "Safari"
)

// Inclusion odds for the optional header groups.
const (
	refererProbability  = 0.3
	dntProbability      = 0.2
	pragmaProbability   = 0.1
	xhrProbability      = 0.05
	viewportProbability = 0.3
	networkProbability  = 0.1
)

const defaultVersion = "120"

// Fingerprint represents a browser identity with matching UA and headers.
type Fingerprint struct {
	UserAgent  string
	Browser    string
	Version    string
	Platform   string
	ClientHint string
	Mobile     bool
	Headers    http.Header
}

// Synthesizer builds a fresh browser identity per request.
type Synthesizer struct {
	rand   chance.Source
	agents []string
}

// NewSynthesizer creates a synthesizer over the built-in user-agent pool.
func NewSynthesizer(r chance.Source) *Synthesizer {
	return &Synthesizer{rand: r, agents: userAgents}
}

// UserAgents returns a copy of the curated pool.
func UserAgents() []string {
	return append([]string(nil), userAgents...)
}

// Generate draws a user-agent and derives a consistent header set from it.
func (s *Synthesizer) Generate() Fingerprint {
	fp := s.identify(chance.Pick(s.rand, s.agents))

	h := httputil.BrowserHeaders()
	h.Set("Accept-Language", chance.Pick(s.rand, acceptLanguages))
	h.Set("Cache-Control", chance.Pick(s.rand, cacheControls))
	h.Set("Sec-Fetch-Dest", chance.Pick(s.rand, fetchDests))
	h.Set("Sec-Fetch-Mode", chance.Pick(s.rand, fetchModes))
	h.Set("Sec-Fetch-Site", chance.Pick(s.rand, fetchSites))
	s.addOptional(h)
	setIdentity(h, fp)
	fp.Headers = h
	return fp
}

// Rebind moves fp onto another user-agent, rewriting every header derived
// from it. The remaining headers are kept as drawn.
func (s *Synthesizer) Rebind(fp Fingerprint, ua string) Fingerprint {
	if ua == "" || ua == fp.UserAgent {
		return fp
	}
	out := s.identify(ua)
	out.Headers = fp.Headers.Clone()
	if out.Headers == nil {
		out.Headers = http.Header{}
	}
	setIdentity(out.Headers, out)
	return out
}

func (s *Synthesizer) identify(ua string) Fingerprint {
	browser, platform := DetectBrowser(ua)
	version := ExtractVersion(ua)
	return Fingerprint{
		UserAgent:  ua,
		Browser:    browser,
		Version:    version,
		Platform:   platform,
		ClientHint: ClientHint(s.rand, browser, version),
		Mobile:     isMobile(ua, platform),
	}
}

func setIdentity(h http.Header, fp Fingerprint) {
	h.Set("User-Agent", fp.UserAgent)

	// Gecko and WebKit do not send UA client hints.
	if fp.Browser != BrowserChrome && fp.Browser != BrowserEdge {
		for _, key := range []string{"Sec-Ch-Ua", "Sec-Ch-Ua-Mobile", "Sec-Ch-Ua-Platform", "Sec-Ch-Device-Memory", "Sec-Ch-Viewport-Width", "Sec-Ch-Viewport-Height"} {
			h.Del(key)
		}
		return
	}
	h.Set("Sec-Ch-Ua", fp.ClientHint)
	h.Set("Sec-Ch-Ua-Mobile", mobileFlag(fp.Mobile))
	h.Set("Sec-Ch-Ua-Platform", `"`+hintPlatform(fp.Platform)+`"`)
}

func (s *Synthesizer) addOptional(h http.Header) {
	if chance.Hit(s.rand, refererProbability) {
		h.Set("Referer", chance.Pick(s.rand, referers))
	}
	if chance.Hit(s.rand, dntProbability) {
		h.Set("Dnt", "1")
	}
	if chance.Hit(s.rand, pragmaProbability) {
		h.Set("Pragma", "no-cache")
	}
	if chance.Hit(s.rand, xhrProbability) {
		h.Set("X-Requested-With", "XMLHttpRequest")
	}
	if chance.Hit(s.rand, viewportProbability) {
		width := chance.Pick(s.rand, viewportWidths)
		height := int(float64(width) * chance.Between(s.rand, 0.5, 0.7))
		h.Set("Viewport-Width", strconv.Itoa(width))
		h.Set("Viewport-Height", strconv.Itoa(height))
		h.Set("Device-Memory", chance.Pick(s.rand, deviceMemories))
		h.Set("Sec-Ch-Device-Memory", chance.Pick(s.rand, deviceMemories))
		h.Set("Sec-Ch-Viewport-Width", strconv.Itoa(width))
		h.Set("Sec-Ch-Viewport-Height", strconv.Itoa(height))
	}
	if chance.Hit(s.rand, networkProbability) {
		h.Set("Downlink", strconv.Itoa(chance.IntBetween(s.rand, 5, 50)))
		h.Set("Rtt", strconv.Itoa(chance.IntBetween(s.rand, 50, 250)))
		h.Set("Ect", chance.Pick(s.rand, effectiveTypes))
	}
}

// DetectBrowser derives browser and platform names from a user-agent.
func DetectBrowser(ua string) (browser, platform string) {
	l := strings.ToLower(ua)

	switch {
	case strings.Contains(l, "firefox"):
		browser = BrowserFirefox
	case strings.Contains(l, "edg/"):
		browser = BrowserEdge
	case strings.Contains(l, "safari") && !strings.Contains(l, "chrome"):
		browser = BrowserSafari
	default:
		browser = BrowserChrome
	}

	// iOS agents say "like Mac OS X", so they are matched before macOS.
	switch {
	case strings.Contains(l, "windows"):
		platform = "Windows"
	case strings.Contains(l, "iphone"):
		platform = "iPhone"
	case strings.Contains(l, "ipad"):
		platform = "iPad"
	case strings.Contains(l, "android"):
		platform = "Android"
	case strings.Contains(l, "macintosh"), strings.Contains(l, "mac os"):
		platform = "Macintosh"
	case strings.Contains(l, "linux"):
		platform = "Linux"
	default:
		platform = "Windows"
	}
	return browser, platform
}

// ExtractVersion returns the browser major version, or "120" if none is found.
func ExtractVersion(ua string) string {
	l := strings.ToLower(ua)
	for _, marker := range []string{"edg/", "chrome/", "firefox/"} {
		if v, ok := majorAfter(l, marker); ok {
			return v
		}
	}
	if strings.Contains(l, "safari") {
		if v, ok := majorAfter(l, "version/"); ok {
			return v
		}
	}
	return defaultVersion
}

func majorAfter(ua, marker string) (string, bool) {
	_, rest, found := strings.Cut(ua, marker)
	if !found {
		return "", false
	}
	end := strings.IndexFunc(rest, func(r rune) bool { return r < '0' || r > '9' })
	if end == -1 {
		end = len(rest)
	}
	if end == 0 {
		return "", false
	}
	return rest[:end], true
}

// ClientHint builds a Sec-CH-UA brand list matching browser and version.
func ClientHint(r chance.Source, browser, version string) string {
	switch browser {
	case BrowserFirefox:
		return fmt.Sprintf(`"Firefox";v="%s", "Not)A;Brand";v="8"`, version)
	case BrowserSafari:
		return fmt.Sprintf(`"Safari";v="%s", "Not)A;Brand";v="8"`, version)
	case BrowserEdge:
		return fmt.Sprintf(`"Microsoft Edge";v="%s", "Chromium";v="%s", "Not/A)Brand";v="%d"`,
			version, version, chance.IntBetween(r, 8, 99))
	default:
		return fmt.Sprintf(`"Google Chrome";v="%s", "Chromium";v="%s", "Not/A)Brand";v="%d"`,
			version, version, chance.IntBetween(r, 8, 99))
	}
}

// PlatformOf returns the platform name for a user-agent.
func PlatformOf(ua string) string {
	_, platform := DetectBrowser(ua)
	return platform
}

func isMobile(ua, platform string) bool {
	switch platform {
	case "Android", "iPhone", "iPad":
		return true
	}
	return strings.Contains(ua, "Mobile") || strings.Contains(ua, "Android")
}

func mobileFlag(mobile bool) string {
	if mobile {
		return "?1"
	}
	return "?0"
}

func hintPlatform(platform string) string {
	switch platform {
	case "Macintosh":
		return "macOS"
	case "iPhone", "iPad":
		return "iOS"
	default:
		return platform
	}
}
