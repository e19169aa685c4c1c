//go:build !ecshim_debug

package ecshim

// checkInvariantsLocked is a no-op in production builds. Build with
// -tags ecshim_debug to enable the full structural check in
// invariants_debug.go.
func (s *Shim) checkInvariantsLocked() {}
