package useragent

import "testing"

const (
	chromeWindows  = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"
	edgeWindows    = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36 Edg/120.0.2210.91"
	operaWindows   = "Mozilla/5.0 (Windows NT 6.1; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36 OPR/106.0.0.0"
	firefoxUbuntu  = "Mozilla/5.0 (X11; Ubuntu; Linux x86_64; rv:121.0) Gecko/20100101 Firefox/121.0"
	safariMac      = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.1 Safari/605.1.15"
	safariIPhone   = "Mozilla/5.0 (iPhone; CPU iPhone OS 17_1 like Mac OS X) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.1 Mobile/15E148 Safari/604.1"
	safariIPad     = "Mozilla/5.0 (iPad; CPU OS 16_6 like Mac OS X) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/16.6 Mobile/15E148 Safari/604.1"
	chromeIOS      = "Mozilla/5.0 (iPhone; CPU iPhone OS 17_1 like Mac OS X) AppleWebKit/605.1.15 (KHTML, like Gecko) CriOS/120.0.6099.119 Mobile/15E148 Safari/604.1"
	chromeAndroid  = "Mozilla/5.0 (Linux; Android 14; Pixel 8) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.6099.43 Mobile Safari/537.36"
	androidTablet  = "Mozilla/5.0 (Linux; Android 13; SM-X700) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.6099.43 Safari/537.36"
	ie11Windows7   = "Mozilla/5.0 (Windows NT 6.1; Trident/7.0; rv:11.0) like Gecko"
	chromebook     = "Mozilla/5.0 (X11; CrOS x86_64 14541.0.0) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"
	samsungAndroid = "Mozilla/5.0 (Linux; Android 13; SM-S911B) AppleWebKit/537.36 (KHTML, like Gecko) SamsungBrowser/23.0 Chrome/115.0.0.0 Mobile Safari/537.36"
)

func TestParse(t *testing.T) {
	tests := []struct {
		name string
		ua   string
		want Info
	}{
		{
			name: "chrome on windows",
			ua:   chromeWindows,
			want: Info{DeviceDesktop, "Chrome", "120.0.0.0", "Blink", "Windows", "10"},
		},
		{
			name: "edge is not reported as chrome",
			ua:   edgeWindows,
			want: Info{DeviceDesktop, "Edge", "120.0.2210.91", "Blink", "Windows", "10"},
		},
		{
			name: "opera via OPR token",
			ua:   operaWindows,
			want: Info{DeviceDesktop, "Opera", "106.0.0.0", "Blink", "Windows", "7"},
		},
		{
			name: "firefox on ubuntu",
			ua:   firefoxUbuntu,
			want: Info{DeviceDesktop, "Firefox", "121.0", "Gecko", "Linux", "Ubuntu"},
		},
		{
			name: "safari on macos",
			ua:   safariMac,
			want: Info{DeviceDesktop, "Safari", "17.1", "WebKit", "macOS", "10.15.7"},
		},
		{
			name: "safari on iphone",
			ua:   safariIPhone,
			want: Info{DeviceMobile, "Safari", "17.1", "WebKit", "iOS", "17.1"},
		},
		{
			name: "safari on ipad is a tablet",
			ua:   safariIPad,
			want: Info{DeviceTablet, "Safari", "16.6", "WebKit", "iOS", "16.6"},
		},
		{
			name: "chrome on ios renders with webkit",
			ua:   chromeIOS,
			want: Info{DeviceMobile, "Chrome", "120.0.6099.119", "WebKit", "iOS", "17.1"},
		},
		{
			name: "chrome on android phone",
			ua:   chromeAndroid,
			want: Info{DeviceMobile, "Chrome", "120.0.6099.43", "Blink", "Android", "14"},
		},
		{
			name: "android without mobile token is a tablet",
			ua:   androidTablet,
			want: Info{DeviceTablet, "Chrome", "120.0.6099.43", "Blink", "Android", "13"},
		},
		{
			name: "internet explorer 11",
			ua:   ie11Windows7,
			want: Info{DeviceDesktop, "Internet Explorer", "11.0", "Trident", "Windows", "7"},
		},
		{
			name: "chromebook",
			ua:   chromebook,
			want: Info{DeviceDesktop, "Chrome", "120.0.0.0", "Blink", "Chrome OS", Unknown},
		},
		{
			name: "samsung internet",
			ua:   samsungAndroid,
			want: Info{DeviceMobile, "Samsung Internet", "23.0", "Blink", "Android", "13"},
		},
		{
			name: "empty",
			ua:   "",
			want: Info{DeviceUnknown, Unknown, Unknown, Unknown, Unknown, Unknown},
		},
		{
			name: "command line client",
			ua:   "curl/8.4.0",
			want: Info{DeviceUnknown, Unknown, Unknown, Unknown, Unknown, Unknown},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Parse(tt.ua)
			if got != tt.want {
				t.Errorf("Parse() = %+v\nwant      %+v", got, tt.want)
			}
		})
	}
}

func TestWindowsVersionTable(t *testing.T) {
	tests := map[string]string{
		"Windows NT 10.0": "10",
		"Windows NT 6.3":  "8.1",
		"Windows NT 6.2":  "8",
		"Windows NT 6.0":  "Vista",
		"Windows NT 5.1":  "XP",
		"Windows 98":      Unknown,
	}

	for token, want := range tests {
		osName, version := detectOS("Mozilla/5.0 (" + token + ")")
		if osName != "Windows" || version != want {
			t.Errorf("detectOS(%q) = %s %s, want Windows %s", token, osName, version, want)
		}
	}
}

func BenchmarkParse(b *testing.B) {
	for i := 0; i < b.N; i++ {
		Parse(chromeAndroid)
	}
}
