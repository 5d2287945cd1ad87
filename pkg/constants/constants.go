// Package constants defines magic numbers and default values shared across
// the protocol engine.
package constants

import "time"

// Connection timeouts and limits
const (
	DefaultIdleTimeout    = 90 * time.Second
	DefaultConnTimeout    = 10 * time.Second
	DefaultReadTimeout    = 30 * time.Second
	DefaultPingInterval   = 15 * time.Second
	MaxConnectionIdleTime = 5 * time.Minute
	HealthCheckInterval   = 30 * time.Second
	CleanupInterval       = 30 * time.Second
)

// HTTP limits
const (
	MaxContentLength = 1024 * 1024 * 1024 * 1024 // 1TB
)

// Buffer limits
const (
	DefaultBodyMemLimit = 4 * 1024 * 1024   // 4MB
	MaxRawBufferSize    = 100 * 1024 * 1024 // 100MB cap for raw buffer
)

// Header and body-framing limits. HeaderNameTruncate mirrors libmget's
// fixed-size dispatch buffer: header names longer than this are truncated
// before case-insensitive matching, a deliberate byte-compatibility quirk
// rather than a bug.
const (
	HeaderNameTruncate  = 31
	ReasonPhraseMax     = 31
	MaxHeaderBlockSize  = 1 * 1024 * 1024 // guards against unbounded header accumulation while scanning for CRLFCRLF
	ChunkReadGrowth     = 1024            // minimum free scratch space kept while scanning for the end of the header block
	InitialScratchSize  = 102400          // mirrors mget's reusable 100KB connection scratch buffer
)
