package engine

// Limits configures the engine's three size caps plus the fuel budget
// per spec.md §3 ("Engine state"). A zero value means unenforced.
//
// Grounded on internal/server/config.go's Config/DefaultConfig pattern
// in the teacher repo: a plain struct with a Default constructor, no
// external config-file format.
type Limits struct {
	MaxFuel        int64
	MaxReplyBytes  int64
	MaxArgBytes    int64
	MaxMemoryBytes int64 // soft cap coordinated by the host adapter, not enforced here
}

// DefaultLimits returns conservative defaults suitable for untrusted
// scripts: 1,000,000 fuel units, a 512KiB reply cap and a 64KiB arg cap.
func DefaultLimits() Limits {
	return Limits{
		MaxFuel:       1_000_000,
		MaxReplyBytes: 512 * 1024,
		MaxArgBytes:   64 * 1024,
	}
}
