package useragent

import (
	"regexp"
	"strings"
)

// Device families, checked tablet first, then mobile, then desktop.
var (
	tabletPatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)ipad`),
		regexp.MustCompile(`(?i)tablet`),
		regexp.MustCompile(`(?i)playbook`),
		regexp.MustCompile(`(?i)kindle|silk`),
	}

	mobilePatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)mobile`),
		regexp.MustCompile(`(?i)iphone|ipod`),
		regexp.MustCompile(`(?i)android`),
		regexp.MustCompile(`(?i)blackberry|bb10`),
		regexp.MustCompile(`(?i)opera mini|iemobile|windows phone`),
		regexp.MustCompile(`(?i)webos`),
	}

	desktopPatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)windows nt`),
		regexp.MustCompile(`(?i)macintosh|mac os x`),
		regexp.MustCompile(`(?i)x11|linux`),
		regexp.MustCompile(`(?i)cros`),
	}

	// Android without a "Mobile" token is a tablet.
	androidPattern = regexp.MustCompile(`(?i)android`)
	mobileToken    = regexp.MustCompile(`(?i)mobile`)
)

// browserRule matches one browser. Order matters: Edge and Opera carry a
// Chrome token and must be checked before Chrome; Chrome and Firefox on iOS
// carry a Safari token and must be checked before Safari.
type browserRule struct {
	name    string
	match   func(ua string) bool
	version []*regexp.Regexp
}

var browserRules = []browserRule{
	{
		name:    "Edge",
		match:   containsAny("Edg/", "Edge/", "EdgA/", "EdgiOS/"),
		version: patterns(`Edg(?:e|A|iOS)?/([\d.]+)`),
	},
	{
		name:    "Opera",
		match:   containsAny("OPR/", "Opera"),
		version: patterns(`OPR/([\d.]+)`, `Opera[/ ]([\d.]+)`, `Version/([\d.]+)`),
	},
	{
		name:    "Samsung Internet",
		match:   containsAny("SamsungBrowser/"),
		version: patterns(`SamsungBrowser/([\d.]+)`),
	},
	{
		name:    "Chrome",
		match:   containsAny("Chrome/", "CriOS/"),
		version: patterns(`(?:Chrome|CriOS)/([\d.]+)`),
	},
	{
		name:    "Firefox",
		match:   containsAny("Firefox/", "FxiOS/"),
		version: patterns(`(?:Firefox|FxiOS)/([\d.]+)`),
	},
	{
		name:    "Safari",
		match:   containsAny("Safari/"),
		version: patterns(`Version/([\d.]+)`),
	},
	{
		name:    "Internet Explorer",
		match:   containsAny("MSIE ", "Trident/"),
		version: patterns(`MSIE ([\d.]+)`, `Trident/.*rv:([\d.]+)`),
	},
}

var windowsVersions = []struct {
	token   string
	version string
}{
	{"Windows NT 10.0", "10"},
	{"Windows NT 6.3", "8.1"},
	{"Windows NT 6.2", "8"},
	{"Windows NT 6.1", "7"},
	{"Windows NT 6.0", "Vista"},
	{"Windows NT 5.2", "XP"},
	{"Windows NT 5.1", "XP"},
	{"Windows NT 5.0", "2000"},
}

var linuxDistributions = []string{
	"Ubuntu",
	"Fedora",
	"Debian",
	"Red Hat",
	"CentOS",
	"Linux Mint",
	"Arch Linux",
	"openSUSE",
	"Gentoo",
}

var (
	iosVersion     = regexp.MustCompile(`(?:iPhone|iPad|iPod).*? OS (\d+(?:_\d+)*)`)
	macVersion     = regexp.MustCompile(`Mac OS X (\d+(?:[_.]\d+)*)`)
	androidVersion = regexp.MustCompile(`Android (\d+(?:\.\d+)*)`)
	windowsPhone   = regexp.MustCompile(`Windows Phone(?: OS)? ([\d.]+)`)
)

// Parse classifies a raw user agent string. Empty input yields device
// "unknown" and "Unknown" for every other field.
func Parse(ua string) Info {
	browser, version := detectBrowser(ua)
	osName, osVersion := detectOS(ua)

	return Info{
		DeviceType:      detectDevice(ua),
		Browser:         browser,
		BrowserVersion:  version,
		BrowserEngine:   detectEngine(ua),
		OperatingSystem: osName,
		OSVersion:       osVersion,
	}
}

func detectDevice(ua string) string {
	if ua == "" {
		return DeviceUnknown
	}

	if matchesAny(tabletPatterns, ua) || (androidPattern.MatchString(ua) && !mobileToken.MatchString(ua)) {
		return DeviceTablet
	}
	if matchesAny(mobilePatterns, ua) {
		return DeviceMobile
	}
	if matchesAny(desktopPatterns, ua) {
		return DeviceDesktop
	}
	return DeviceUnknown
}

func detectBrowser(ua string) (string, string) {
	for _, rule := range browserRules {
		if !rule.match(ua) {
			continue
		}
		for _, re := range rule.version {
			if m := re.FindStringSubmatch(ua); m != nil {
				return rule.name, m[1]
			}
		}
		return rule.name, Unknown
	}
	return Unknown, Unknown
}

func detectEngine(ua string) string {
	switch {
	case ua == "":
		return Unknown
	case strings.Contains(ua, "Edge/"):
		return "EdgeHTML"
	case strings.Contains(ua, "Trident/"), strings.Contains(ua, "MSIE "):
		return "Trident"
	case strings.Contains(ua, "iPhone"), strings.Contains(ua, "iPad"), strings.Contains(ua, "iPod"):
		// Every iOS browser renders with WebKit.
		return "WebKit"
	case strings.Contains(ua, "Chrome/"), strings.Contains(ua, "OPR/"):
		return "Blink"
	case strings.Contains(ua, "Firefox/"):
		return "Gecko"
	case strings.Contains(ua, "AppleWebKit/"):
		return "WebKit"
	case strings.Contains(ua, "Gecko/"):
		return "Gecko"
	case strings.Contains(ua, "Presto/"):
		return "Presto"
	default:
		return Unknown
	}
}

func detectOS(ua string) (string, string) {
	if m := windowsPhone.FindStringSubmatch(ua); m != nil {
		return "Windows Phone", m[1]
	}

	if strings.Contains(ua, "Windows") {
		for _, wv := range windowsVersions {
			if strings.Contains(ua, wv.token) {
				return "Windows", wv.version
			}
		}
		return "Windows", Unknown
	}

	// iOS user agents also say "like Mac OS X", so check them first.
	if m := iosVersion.FindStringSubmatch(ua); m != nil {
		return "iOS", strings.ReplaceAll(m[1], "_", ".")
	}
	if strings.Contains(ua, "iPhone") || strings.Contains(ua, "iPad") || strings.Contains(ua, "iPod") {
		return "iOS", Unknown
	}

	if m := macVersion.FindStringSubmatch(ua); m != nil {
		return "macOS", strings.ReplaceAll(m[1], "_", ".")
	}
	if strings.Contains(ua, "Macintosh") {
		return "macOS", Unknown
	}

	// Android user agents also say "Linux".
	if m := androidVersion.FindStringSubmatch(ua); m != nil {
		return "Android", m[1]
	}
	if strings.Contains(ua, "Android") {
		return "Android", Unknown
	}

	if strings.Contains(ua, "CrOS") {
		return "Chrome OS", Unknown
	}

	for _, distro := range linuxDistributions {
		if strings.Contains(ua, distro) {
			return "Linux", distro
		}
	}
	if strings.Contains(ua, "Linux") || strings.Contains(ua, "X11") {
		return "Linux", Unknown
	}

	return Unknown, Unknown
}

func matchesAny(res []*regexp.Regexp, s string) bool {
	for _, re := range res {
		if re.MatchString(s) {
			return true
		}
	}
	return false
}

func containsAny(tokens ...string) func(string) bool {
	return func(ua string) bool {
		for _, t := range tokens {
			if strings.Contains(ua, t) {
				return true
			}
		}
		return false
	}
}

func patterns(exprs ...string) []*regexp.Regexp {
	res := make([]*regexp.Regexp, len(exprs))
	for i, e := range exprs {
		res[i] = regexp.MustCompile(e)
	}
	return res
}
