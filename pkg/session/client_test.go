package session

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClientIP(t *testing.T) {
	tests := []struct {
		name       string
		headers    map[string]string
		remoteAddr string
		want       string
	}{
		{
			name:    "forwarded for wins",
			headers: map[string]string{HeaderForwardedFor: " 203.0.113.5 , 10.0.0.1", HeaderRealIP: "198.51.100.1"},
			want:    "203.0.113.5",
		},
		{
			name:    "real ip next",
			headers: map[string]string{HeaderRealIP: "198.51.100.1", HeaderCFConnectingIP: "198.51.100.2"},
			want:    "198.51.100.1",
		},
		{
			name:    "cloudflare next",
			headers: map[string]string{HeaderCFConnectingIP: "198.51.100.2"},
			want:    "198.51.100.2",
		},
		{
			name:    "empty forwarded entry falls through",
			headers: map[string]string{HeaderForwardedFor: " , 10.0.0.1", HeaderRealIP: "198.51.100.1"},
			want:    "198.51.100.1",
		},
		{
			name:       "connection address",
			remoteAddr: "[2001:db8::1]:443",
			want:       "2001:db8::1",
		},
		{
			name:       "connection address without port",
			remoteAddr: "192.0.2.9",
			want:       "192.0.2.9",
		},
		{
			name: "literal fallback",
			want: "127.0.0.1",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodGet, "/", nil)
			r.RemoteAddr = tt.remoteAddr
			for k, v := range tt.headers {
				r.Header.Set(k, v)
			}

			assert.Equal(t, tt.want, ClientIP(r))
		})
	}
}

func TestExtractClientInfo_Defaults(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/", nil)

	rec := ExtractClientInfo(r)

	assert.Equal(t, Unknown, rec.Country)
	assert.Equal(t, Unknown, rec.CountryCode)
	assert.Equal(t, Unknown, rec.Region)
	assert.Equal(t, Unknown, rec.City)
	assert.Equal(t, Unknown, rec.Timezone)
	assert.Equal(t, "en", rec.Language)
	assert.Equal(t, "unknown", rec.DeviceType)
	assert.Equal(t, Unknown, rec.Browser)
	assert.Empty(t, rec.Referrer)

	assert.True(t, rec.CookiesEnabled)
	assert.True(t, rec.LocalStorageSupport)
	assert.True(t, rec.JavascriptEnabled)
	assert.False(t, rec.LoginStatus)
	assert.Equal(t, "server", rec.GeoSource)
	assert.Equal(t, "direct", rec.SessionSource)
	assert.NotNil(t, rec.Events)
	assert.Empty(t, rec.Events)
	assert.Equal(t, "0", rec.CustomField1)
}

func TestExtractClientInfo_Headers(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.Header.Set("Accept-Language", "fr-CA,fr;q=0.9,en;q=0.5")
	r.Header.Set("Referer", "https://www.google.com/")
	r.Header.Set(HeaderCountry, "CA")
	r.Header.Set(HeaderRegion, "QC")
	r.Header.Set(HeaderCity, "Montr%C3%A9al")
	r.Header.Set(HeaderTimezone, "America/Toronto")
	r.Header.Set("User-Agent", "Mozilla/5.0 (iPhone; CPU iPhone OS 17_1 like Mac OS X) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.1 Mobile/15E148 Safari/604.1")

	rec := ExtractClientInfo(r)

	assert.Equal(t, "fr-CA", rec.Language)
	assert.Equal(t, "https://www.google.com/", rec.Referrer)
	assert.Equal(t, "CA", rec.Country)
	assert.Equal(t, "CA", rec.CountryCode)
	assert.Equal(t, "QC", rec.Region)
	assert.Equal(t, "Montréal", rec.City)
	assert.Equal(t, "America/Toronto", rec.Timezone)
	assert.Equal(t, "mobile", rec.DeviceType)
	assert.Equal(t, "Safari", rec.Browser)
	assert.Equal(t, "iOS", rec.OperatingSystem)
	assert.Equal(t, "17.1", rec.OSVersion)
	assert.Equal(t, "WebKit", rec.BrowserEngine)
}
