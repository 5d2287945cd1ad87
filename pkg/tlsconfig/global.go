package tlsconfig

import "sync/atomic"

// Process-wide SSL configuration: set once at startup (from the -insecure
// flag) and read by every Open call, the same lifecycle as the
// process-wide proxy snapshot in pkg/transport's proxy_global.go.
var (
	insecureTLS atomic.Bool
	profile     atomic.Pointer[VersionProfile]
)

// SetInsecureTLS sets whether every subsequent connection skips TLS
// certificate verification.
func SetInsecureTLS(v bool) {
	insecureTLS.Store(v)
}

// InsecureTLS reports the current process-wide insecure-TLS setting.
func InsecureTLS() bool {
	return insecureTLS.Load()
}

// SetProfile sets the process-wide TLS version profile used by every
// subsequent connection. Passing the zero VersionProfile resets to
// ProfileSecure.
func SetProfile(p VersionProfile) {
	if p.Min == 0 && p.Max == 0 {
		profile.Store(nil)
		return
	}
	profile.Store(&p)
}

// CurrentProfile returns the process-wide TLS version profile, defaulting
// to ProfileSecure if none has been set.
func CurrentProfile() VersionProfile {
	if p := profile.Load(); p != nil {
		return *p
	}
	return ProfileSecure
}
