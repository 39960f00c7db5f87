package adminauth

import "strconv"

// Fingerprint derives a stable caller identifier from the user agent and
// client address. It is a fast 32-bit rolling hash, not a security boundary:
// the same caller must map to the same value across the issuance and login
// requests so lockout state carries over, and collisions are tolerable.
func Fingerprint(userAgent, clientAddr string) string {
	data := userAgent + "-" + clientAddr
	var h int32
	for _, c := range data {
		h = (h<<5 - h) + int32(c)
	}
	v := int64(h)
	if v < 0 {
		v = -v
	}
	return strconv.FormatInt(v, 16)
}
