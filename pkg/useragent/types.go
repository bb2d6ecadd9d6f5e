// Package useragent classifies raw User-Agent strings into device type,
// browser, rendering engine and operating system.
//
// Parsing is pure: no I/O, no global state beyond the compiled pattern
// tables, and safe for concurrent use.
//
// Example usage:
//
//	info := useragent.Parse(r.Header.Get("User-Agent"))
//	fmt.Println(info.DeviceType, info.Browser, info.OperatingSystem)
package useragent

// Unknown is reported for any field the user agent does not reveal.
const Unknown = "Unknown"

// Device types.
const (
	DeviceMobile  = "mobile"
	DeviceTablet  = "tablet"
	DeviceDesktop = "desktop"
	DeviceUnknown = "unknown"
)

// Info is the result of parsing a user agent.
type Info struct {
	DeviceType      string
	Browser         string
	BrowserVersion  string
	BrowserEngine   string
	OperatingSystem string
	OSVersion       string
}
