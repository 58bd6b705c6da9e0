// Package privacy holds helpers for keeping PII out of logs.
package privacy

import "strings"

// AnonymizeIP truncates an IP for logging. IPv4 keeps the first two octets,
// IPv6 keeps the first two groups. Enough to correlate abuse patterns
// without storing a full address in log streams.
func AnonymizeIP(ip string) string {
	if ip == "" {
		return ""
	}
	if strings.Contains(ip, ".") {
		parts := strings.Split(ip, ".")
		if len(parts) == 4 {
			return parts[0] + "." + parts[1] + ".x.x"
		}
		return "invalid"
	}
	if strings.Contains(ip, ":") {
		parts := strings.Split(ip, ":")
		if len(parts) >= 2 {
			return parts[0] + ":" + parts[1] + "::"
		}
	}
	return "invalid"
}
