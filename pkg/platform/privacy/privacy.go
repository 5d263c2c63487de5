// Package privacy reduces personal data before it reaches logs.
package privacy

import (
	"net/netip"

	"supplierhub/internal/masking"
)

// AnonymizeIP truncates IPv4 addresses to their /24 and IPv6 addresses to
// their /48 network. Unparseable input is returned as "invalid".
func AnonymizeIP(ip string) string {
	addr, err := netip.ParseAddr(ip)
	if err != nil {
		return "invalid"
	}
	bits := 48
	if addr.Is4() || addr.Is4In6() {
		addr = addr.Unmap()
		bits = 24
	}
	prefix, err := addr.Prefix(bits)
	if err != nil {
		return "invalid"
	}
	return prefix.String()
}

// RedactEmail masks an email address for log output.
func RedactEmail(email string) string {
	return masking.MaskEmail(email)
}
