package message

import (
	"crypto/md5"
	"crypto/rand"
	"encoding/base64"
	"encoding/hex"
	"fmt"

	"github.com/gofetch/gofetch/pkg/buffer"
	"github.com/gofetch/gofetch/pkg/errors"
	"github.com/gofetch/gofetch/pkg/header"
	"github.com/gofetch/gofetch/pkg/logging"
)

// md5Hex mirrors libmget's mget_md5_printf_hex: format args through the
// printf-style buffer, hash the rendered bytes, and return the lowercase
// hex digest. The Digest authentication code builds every MD5 input this
// way (A1, A2, and the final response digest are all nested format+hash
// calls).
func md5Hex(format string, args ...interface{}) string {
	b := buffer.New(64)
	b.Printf(format, args...)
	sum := md5.Sum(b.Bytes())
	return hex.EncodeToString(sum[:])
}

// randomCNonce generates an 8-hex-digit client nonce, the Go equivalent
// of the reference implementation's `snprintf("%08lx", lrand48())`.
func randomCNonce() string {
	var buf [4]byte
	if _, err := rand.Read(buf[:]); err != nil {
		return "00000000"
	}
	return hex.EncodeToString(buf[:])
}

// AddCredentials attaches an Authorization header to req for the given
// challenge, generating a random cnonce for Digest authentication.
func AddCredentials(req *Request, challenge header.Challenge, username, password string) error {
	return addCredentials(req, challenge, username, password, "")
}

// AddCredentialsWithCNonce behaves like AddCredentials but uses a
// caller-supplied cnonce instead of a random one, for deterministic
// tests (spec scenario: fixed cnonce reproduces a fixed Authorization
// line).
func AddCredentialsWithCNonce(req *Request, challenge header.Challenge, username, password, cnonce string) error {
	return addCredentials(req, challenge, username, password, cnonce)
}

func addCredentials(req *Request, challenge header.Challenge, username, password, fixedCNonce string) error {
	switch {
	case equalFoldASCII(challenge.AuthScheme, "basic"):
		encoded := base64.StdEncoding.EncodeToString([]byte(username + ":" + password))
		req.AddHeader("Authorization", "Basic "+encoded)
		return nil

	case equalFoldASCII(challenge.AuthScheme, "digest"):
		return addDigestCredentials(req, challenge, username, password, fixedCNonce)

	default:
		return errors.NewAuthError("unsupported authentication scheme '" + challenge.AuthScheme + "'")
	}
}

func addDigestCredentials(req *Request, challenge header.Challenge, username, password, fixedCNonce string) error {
	realm := challenge.Param("realm")
	opaque := challenge.Param("opaque")
	nonce := challenge.Param("nonce")
	qop := challenge.Param("qop")
	algorithm := challenge.Param("algorithm")

	if qop != "" && qop != "auth" {
		logging.Error("unsupported quality of protection", "qop", qop)
		return errors.NewAuthError("unsupported quality of protection '" + qop + "'")
	}
	if algorithm != "" && algorithm != "MD5" && algorithm != "MD5-sess" {
		logging.Error("unsupported digest algorithm", "algorithm", algorithm)
		return errors.NewAuthError("unsupported algorithm '" + algorithm + "'")
	}
	if realm == "" || nonce == "" {
		return errors.NewAuthError("challenge missing realm or nonce")
	}

	// A1 = H(user ":" realm ":" password)
	a1 := md5Hex("%s:%s:%s", username, realm, password)

	cnonce := fixedCNonce
	if algorithm == "MD5-sess" {
		if cnonce == "" {
			cnonce = randomCNonce()
		}
		// A1 = H( H(user:realm:password) ":" nonce ":" cnonce )
		a1 = md5Hex("%s:%s:%s", a1, nonce, cnonce)
	}

	// A2 = H(method ":/" resource)
	a2 := md5Hex("%s:/%s", req.Method, req.EscapedResource)

	var responseDigest string
	usingAuthQop := qop == "auth"
	if usingAuthQop {
		if cnonce == "" {
			cnonce = randomCNonce()
		}
		// RFC 2617: response = H(A1:nonce:nc:cnonce:qop:A2), nc fixed at 00000001
		responseDigest = md5Hex("%s:%s:00000001:%s:%s:%s", a1, nonce, cnonce, qop, a2)
	} else {
		// RFC 2069 fallback: response = H(A1:nonce:A2)
		responseDigest = md5Hex("%s:%s:%s", a1, nonce, a2)
	}

	line := fmt.Sprintf(
		`Authorization: Digest username="%s", realm="%s", nonce="%s", uri="/%s", response="%s"`,
		username, realm, nonce, req.EscapedResource, responseDigest)

	if usingAuthQop {
		line += fmt.Sprintf(", qop=%s, nc=00000001, cnonce=\"%s\"", qop, cnonce)
	}
	if opaque != "" {
		line += fmt.Sprintf(", opaque=\"%s\"", opaque)
	}
	if algorithm != "" {
		line += ", algorithm=" + algorithm
	}

	req.AddHeaderLine(line)
	return nil
}

func equalFoldASCII(a, b string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := 0; i < len(a); i++ {
		ca, cb := a[i], b[i]
		if ca >= 'A' && ca <= 'Z' {
			ca += 'a' - 'A'
		}
		if cb >= 'A' && cb <= 'Z' {
			cb += 'a' - 'A'
		}
		if ca != cb {
			return false
		}
	}
	return true
}
