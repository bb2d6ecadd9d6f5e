package session

import (
	"net"
	"net/http"
	"net/url"
	"strings"

	"github.com/0xmhha/session-analytics/pkg/useragent"
)

const (
	// Unknown is stored for any geo or client field the request does not
	// reveal.
	Unknown = useragent.Unknown

	fallbackIP       = "127.0.0.1"
	defaultLanguage  = "en"
	placeholderScore = "0"
)

// Request headers read by ExtractClientInfo.
const (
	HeaderForwardedFor   = "X-Forwarded-For"
	HeaderRealIP         = "X-Real-Ip"
	HeaderCFConnectingIP = "Cf-Connecting-Ip"
	HeaderCountry        = "X-Vercel-Ip-Country"
	HeaderRegion         = "X-Vercel-Ip-Region"
	HeaderCity           = "X-Vercel-Ip-City"
	HeaderTimezone       = "X-Vercel-Ip-Timezone"
)

// ExtractClientInfo builds the request-derived part of a session record.
// It performs no I/O: geo data comes only from upstream proxy headers.
func ExtractClientInfo(r *http.Request) Record {
	ua := r.Header.Get("User-Agent")
	info := useragent.Parse(ua)

	country := geoHeader(r, HeaderCountry)
	countryCode := Unknown
	if country != Unknown {
		countryCode = country
	}

	return Record{
		IPAddress:   ClientIP(r),
		Country:     country,
		CountryCode: countryCode,
		Region:      geoHeader(r, HeaderRegion),
		City:        geoHeader(r, HeaderCity),
		Timezone:    geoHeader(r, HeaderTimezone),

		DeviceType:      info.DeviceType,
		OperatingSystem: info.OperatingSystem,
		OSVersion:       info.OSVersion,

		Browser:          info.Browser,
		BrowserVersion:   info.BrowserVersion,
		BrowserEngine:    info.BrowserEngine,
		UserAgent:        ua,
		ScreenResolution: Unknown,
		ViewportSize:     Unknown,

		Language:            primaryLanguage(r.Header.Get("Accept-Language")),
		CookiesEnabled:      true,
		LocalStorageSupport: true,
		JavascriptEnabled:   true,

		Referrer: r.Header.Get("Referer"),

		LoginStatus:   false,
		GeoSource:     "server",
		SessionSource: "direct",

		PagesVisited: []string{},
		Events:       []Event{},

		CustomField1: placeholderScore,
		CustomField2: placeholderScore,
		CustomField3: placeholderScore,
	}
}

// ClientIP resolves the client address: the first X-Forwarded-For entry,
// then X-Real-IP, then CF-Connecting-IP, then the connection address, then
// 127.0.0.1.
func ClientIP(r *http.Request) string {
	if fwd := r.Header.Get(HeaderForwardedFor); fwd != "" {
		first, _, _ := strings.Cut(fwd, ",")
		if ip := strings.TrimSpace(first); ip != "" {
			return ip
		}
	}

	for _, h := range []string{HeaderRealIP, HeaderCFConnectingIP} {
		if ip := strings.TrimSpace(r.Header.Get(h)); ip != "" {
			return ip
		}
	}

	if r.RemoteAddr != "" {
		if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil && host != "" {
			return host
		}
		return r.RemoteAddr
	}

	return fallbackIP
}

// geoHeader returns a URL-decoded geo header or Unknown.
func geoHeader(r *http.Request, name string) string {
	v := strings.TrimSpace(r.Header.Get(name))
	if v == "" {
		return Unknown
	}
	if decoded, err := url.QueryUnescape(v); err == nil {
		return decoded
	}
	return v
}

func primaryLanguage(acceptLanguage string) string {
	first, _, _ := strings.Cut(acceptLanguage, ",")
	if lang := strings.TrimSpace(first); lang != "" {
		return lang
	}
	return defaultLanguage
}

func requestPath(r *http.Request) string {
	if r.URL == nil || r.URL.Path == "" {
		return "/"
	}
	return r.URL.Path
}
