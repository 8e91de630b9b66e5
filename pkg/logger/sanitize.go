package logger

import (
	"net/url"
	"sort"
	"strings"
)

const redacted = "[REDACTED]"

// sensitiveParams are query keys whose values never reach the request log:
// reset tokens, and the personal data admins search users by.
var sensitiveParams = map[string]bool{
	"token":    true,
	"password": true,
	"email":    true,
	"name":     true,
	"phone":    true,
	"username": true,
	"csrf":     true,
}

// SanitizedEmail masks an email address for logging, e.g. "a***@*******.mx".
func SanitizedEmail(email string) string {
	local, domain, ok := strings.Cut(email, "@")
	if !ok || local == "" || domain == "" {
		return "[invalid-email]"
	}

	if len(local) > 1 {
		local = local[:1] + strings.Repeat("*", len(local)-1)
	}

	labels := strings.Split(domain, ".")
	for i := 0; i < len(labels)-1; i++ {
		labels[i] = strings.Repeat("*", len(labels[i]))
	}

	return local + "@" + strings.Join(labels, ".")
}

// RedactQuery returns rawQuery with the values of sensitive keys replaced.
// A query that cannot be parsed is redacted whole.
func RedactQuery(rawQuery string) string {
	if rawQuery == "" {
		return ""
	}
	values, err := url.ParseQuery(rawQuery)
	if err != nil {
		return redacted
	}

	keys := make([]string, 0, len(values))
	for k := range values {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	for _, k := range keys {
		for _, v := range values[k] {
			if b.Len() > 0 {
				b.WriteByte('&')
			}
			b.WriteString(url.QueryEscape(k))
			b.WriteByte('=')
			if sensitiveParams[strings.ToLower(k)] {
				b.WriteString(redacted)
			} else {
				b.WriteString(url.QueryEscape(v))
			}
		}
	}
	return b.String()
}
