//go:build integration

package integration

import (
	"fmt"
	"net/url"
	"time"
)

const TestPassword = "Solar-Panel-2024!"

// TestEmail generates a unique email using the current time
func TestEmail(suffix string) string {
	return fmt.Sprintf("test-%d-%s@example.com", time.Now().UnixNano(), suffix)
}

// TokenFromResetLink extracts the token query value from a reset link
func TokenFromResetLink(link string) string {
	u, err := url.Parse(link)
	if err != nil {
		return ""
	}
	return u.Query().Get("token")
}
