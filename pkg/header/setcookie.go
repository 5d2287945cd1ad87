package header

import (
	"strconv"
	"strings"
	"time"

	"github.com/gofetch/gofetch/pkg/logging"
)

// cookieOctet reports whether c may appear unescaped inside a cookie
// value: RFC 6265's cookie-octet = %x21 / %x23-2B / %x2D-3A / %x3C-5B /
// %x5D-7E, i.e. visible ASCII except DQUOTE, comma, semicolon and
// backslash. The scan stops at the first byte outside that set, which is
// how a closing quote around the value is left behind.
func cookieOctet(c byte) bool {
	return c > 32 && c <= 126 && c != '\\' && c != ',' && c != ';' && c != '"'
}

// ParseSetCookie parses a single Set-Cookie header value (RFC 6265). now
// is used to resolve Max-Age into an absolute expiry; ok is false if the
// value has no name or no '=' assignment, in which case the cookie should
// be discarded (mirrors the reference parser's "ignored" path).
func ParseSetCookie(s string, now time.Time) (cookie Cookie, ok bool) {
	s = skipLeadingSpace(s)
	s, name := ParseToken(s)
	s = skipLeadingSpace(s)

	if name == "" || len(s) == 0 || s[0] != '=' {
		logging.Debug("cookie without name or assignment ignored")
		return Cookie{}, false
	}
	cookie.Name = name

	s = s[1:]
	s = skipLeadingSpace(s)
	if len(s) > 0 && s[0] == '"' {
		s = s[1:]
	}
	i := 0
	for i < len(s) && cookieOctet(s[i]) {
		i++
	}
	cookie.Value = s[:i]
	s = s[i:]

	for len(s) > 0 {
		semi := strings.IndexByte(s, ';')
		if semi < 0 {
			break
		}
		s = s[semi+1:]
		s = skipLeadingSpace(s)

		s2, avName := ParseToken(s)
		if avName == "" {
			s = s2
			continue
		}

		// find end of name (up to '=' or ';')
		j := 0
		for j < len(s) && s[j] != '=' && s[j] != ';' {
			j++
		}

		if j < len(s) && s[j] == '=' {
			p := j + 1

			// Expires carries an RFC 1123/850/asctime date, which contains
			// spaces and commas, so it cannot be bounded by the same
			// cookie-octet scan as the other attribute values: take the
			// whole remainder up to the next ';'.
			if strings.EqualFold(avName, "expires") {
				end := p
				for end < len(s) && s[end] != ';' {
					end++
				}
				if t, ok := ParseDate(strings.TrimSpace(s[p:end])); ok {
					cookie.Expires = t
				}
				s = s[end:]
				continue
			}

			k := p
			for k < len(s) && s[k] > 32 && s[k] <= 126 && s[k] != ';' {
				k++
			}
			value := s[p:k]

			switch {
			case strings.EqualFold(avName, "max-age"):
				offset, err := strconv.ParseInt(value, 10, 64)
				if err == nil && offset > 0 {
					cookie.MaxAge = now.Add(time.Duration(offset) * time.Second)
				}
			case strings.EqualFold(avName, "domain"):
				if value != "" {
					if value[0] == '.' {
						v := value
						for len(v) > 0 && v[0] == '.' {
							v = v[1:]
						}
						cookie.Domain = v
						cookie.DomainDot = true
					} else {
						cookie.Domain = value
						cookie.DomainDot = false
					}
				}
			case strings.EqualFold(avName, "path"):
				cookie.Path = value
			default:
				logging.Debug("unsupported cookie-av", "name", avName)
			}
			s = s[k:]
		} else {
			switch {
			case strings.EqualFold(avName, "secure"):
				cookie.SecureOnly = true
			case strings.EqualFold(avName, "httponly"):
				cookie.HTTPOnly = true
			default:
				logging.Debug("unsupported cookie-av", "name", avName)
			}
			s = s[j:]
		}
	}

	return cookie, true
}

func skipLeadingSpace(s string) string {
	i := 0
	for i < len(s) && (s[i] == ' ' || s[i] == '\t' || s[i] == '\r' || s[i] == '\n') {
		i++
	}
	return s[i:]
}
