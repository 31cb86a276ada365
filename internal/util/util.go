package util

import (
	"net"
	"strings"
)

// MaskIdentity obscures a caller identity for responses and logs. IPv4
// addresses keep their first two octets, IPv6 addresses their first two
// groups. Anything else is truncated to its edges.
func MaskIdentity(identity string) string {
	trimmed := strings.TrimSpace(identity)
	if trimmed == "" {
		return ""
	}

	if ip := net.ParseIP(trimmed); ip != nil {
		if v4 := ip.To4(); v4 != nil {
			parts := strings.Split(trimmed, ".")
			if len(parts) == 4 {
				return parts[0] + "." + parts[1] + ".x.x"
			}
		}
		groups := strings.Split(trimmed, ":")
		if len(groups) > 2 {
			return groups[0] + ":" + groups[1] + ":..."
		}
	}

	return maskOpaque(trimmed)
}

// maskOpaque shows only the edges of an opaque identifier.
func maskOpaque(value string) string {
	if len(value) > 8 {
		return value[:4] + "..." + value[len(value)-4:]
	} else if len(value) > 4 {
		return value[:2] + "..." + value[len(value)-2:]
	} else if len(value) > 2 {
		return value[:1] + "..." + value[len(value)-1:]
	}
	return value
}
