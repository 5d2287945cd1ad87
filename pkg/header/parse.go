package header

import "strings"

// TransferEncoding is the Transfer-Encoding header's recognized values.
type TransferEncoding int

const (
	TransferEncodingIdentity TransferEncoding = iota
	TransferEncodingChunked
)

// ContentEncoding is the Content-Encoding header's recognized values.
type ContentEncoding int

const (
	ContentEncodingIdentity ContentEncoding = iota
	ContentEncodingGzip
	ContentEncodingDeflate
)

// ParseLocation reads the Location header value: skip blanks, then the
// next whitespace-free run.
func ParseLocation(s string) string {
	s = skipBlank(s)
	i := 0
	for i < len(s) && !isBlank(s[i]) {
		i++
	}
	return s[:i]
}

// ParseTransferEncoding implements the byte-compatible quirk carried over
// from the reference parser: it compares the *entire* header value,
// case-insensitively, to "identity"; anything else — including a value
// like "gzip, chunked" — is treated as chunked. This is deliberate, not a
// bug: preserving it avoids silently changing framing behavior for
// servers that send such values.
func ParseTransferEncoding(s string) TransferEncoding {
	s = strings.TrimRight(skipBlank(s), " \t")
	if strings.EqualFold(s, "identity") {
		return TransferEncodingIdentity
	}
	return TransferEncodingChunked
}

// ParseContentEncoding maps gzip/x-gzip to Gzip, deflate to Deflate, and
// anything else to Identity.
func ParseContentEncoding(s string) ContentEncoding {
	s = skipBlank(s)
	s, token := ParseToken(s)
	switch {
	case strings.EqualFold(token, "gzip"), strings.EqualFold(token, "x-gzip"):
		return ContentEncodingGzip
	case strings.EqualFold(token, "deflate"):
		return ContentEncodingDeflate
	default:
		return ContentEncodingIdentity
	}
}

// ParseConnection reports whether the Connection header value is
// case-insensitively "keep-alive".
func ParseConnection(s string) bool {
	s = skipBlank(s)
	_, token := ParseToken(s)
	return strings.EqualFold(token, "keep-alive")
}

// ParseContentType parses a media-type value plus its charset parameter,
// if present ("text/html; charset=ISO-8859-4"). charset is "" if no
// charset parameter appears — this is not an error, just absence.
func ParseContentType(s string) (contentType, charset string) {
	s = skipBlank(s)
	i := 0
	for i < len(s) && (IsToken(s[i]) || s[i] == '/') {
		i++
	}
	contentType = s[:i]
	s = s[i:]

	for len(s) > 0 {
		var p Param
		s, p = ParseParam(s)
		if strings.EqualFold(p.Name, "charset") {
			charset = p.Value
			break
		}
		if p.Name == "" {
			break
		}
	}
	return contentType, charset
}

// ParseLink parses a single Link header value:
// "<URI>; rel=describedby; pri=2; type=text/html".
func ParseLink(s string) Link {
	var link Link
	s = skipBlank(s)

	if len(s) == 0 || s[0] != '<' {
		return link
	}
	s = s[1:]
	end := strings.IndexByte(s, '>')
	if end < 0 {
		return link
	}
	link.URI = s[:end]
	s = s[end+1:]
	s = skipBlank(s)

	for len(s) > 0 && s[0] == ';' {
		var p Param
		s, p = ParseParam(s)
		if p.Name == "" {
			break
		}
		switch {
		case strings.EqualFold(p.Name, "rel"):
			switch {
			case strings.EqualFold(p.Value, "describedby"):
				link.Rel = LinkRelDescribedBy
			case strings.EqualFold(p.Value, "duplicate"):
				link.Rel = LinkRelDuplicate
			}
		case strings.EqualFold(p.Name, "pri"):
			link.Pri = atoiLenient(p.Value)
		case strings.EqualFold(p.Name, "type"):
			// A bare media type continues past the '/' that ends the token.
			i := 0
			for i < len(s) && (IsToken(s[i]) || s[i] == '/') {
				i++
			}
			link.Type = p.Value + s[:i]
			s = s[i:]
		}
		s = skipBlank(s)
	}

	return link
}

// ParseDigestHeader parses a single Digest header value (RFC 3230):
// "algorithm=<encoded digest>".
func ParseDigestHeader(s string) Digest {
	var d Digest
	s = skipBlank(s)
	s, d.Algorithm = ParseToken(s)
	s = skipBlank(s)

	if len(s) > 0 && s[0] == '=' {
		s = s[1:]
		s = skipBlank(s)
		if len(s) > 0 && s[0] == '"' {
			_, v, _ := ParseQuotedString(s)
			d.EncodedDigest = v
		} else {
			i := 0
			for i < len(s) && !isBlank(s[i]) && s[i] != ',' && s[i] != ';' {
				i++
			}
			d.EncodedDigest = s[:i]
		}
	}
	return d
}

// ParseChallenge parses a single WWW-Authenticate challenge (RFC 2617):
// "Digest realm=\"r\", nonce=\"n\", qop=\"auth\"". Parameter names are
// matched case-insensitively against the resulting Params map.
func ParseChallenge(s string) Challenge {
	c := Challenge{Params: make(map[string]string)}
	s = skipBlank(s)
	s, c.AuthScheme = ParseToken(s)

	for {
		var p Param
		s, p = ParseParam(s)
		if p.Name != "" {
			c.Params[normalizeKey(p.Name)] = p.Value
		}
		s = skipBlank(s)
		if len(s) == 0 || s[0] != ',' {
			break
		}
		s = s[1:]
	}

	return c
}

func atoiLenient(s string) int {
	neg := false
	i := 0
	if i < len(s) && (s[i] == '-' || s[i] == '+') {
		neg = s[i] == '-'
		i++
	}
	n := 0
	for ; i < len(s) && s[i] >= '0' && s[i] <= '9'; i++ {
		n = n*10 + int(s[i]-'0')
	}
	if neg {
		n = -n
	}
	return n
}
