package auth

import (
	"fmt"

	"github.com/mssola/useragent"
)

// DeviceName renders a User-Agent header as a short "Browser on OS" label
// for the login log. Unparseable agents still produce a readable string.
func DeviceName(rawUA string) string {
	if rawUA == "" {
		return "Unknown Device"
	}
	ua := useragent.New(rawUA)
	browser, _ := ua.Browser()
	if browser == "" {
		browser = "Unknown Browser"
	}
	os := ua.OSInfo().Name
	if os == "" {
		os = "Unknown OS"
	}
	return fmt.Sprintf("%s on %s", browser, os)
}
