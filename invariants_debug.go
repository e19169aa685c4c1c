//go:build ecshim_debug

package ecshim

// checkInvariantsLocked walks the index and expiry list and panics if any
// of the structural invariants are violated. It is only compiled in when
// built with -tags ecshim_debug; production builds skip the cost
// entirely via the no-op in invariants_release.go.
//
// Must be called with s.mu held.
func (s *Shim) checkInvariantsLocked() {
	listed := 0
	for e := s.list.Front(); e != nil; e = e.Next() {
		rec, ok := e.Value.(*record)
		if !ok {
			panic("ecshim: expiry list element holds non-record value")
		}
		if rec.writing() {
			panic("ecshim: WRITING record present in expiry list")
		}
		if rec.listElem != e {
			panic("ecshim: record's listElem does not point back to its own list element")
		}
		if got := s.table[rec.blockNum]; got != rec {
			panic("ecshim: expiry list entry missing from index")
		}
		listed++
	}

	writing := 0
	for blockNum, rec := range s.table {
		if rec.blockNum != blockNum {
			panic("ecshim: index key does not match record's blockNum")
		}
		if rec.writing() {
			if rec.listElem != nil {
				panic("ecshim: WRITING record linked into expiry list")
			}
			writing++
		} else if rec.listElem == nil {
			panic("ecshim: WRITTEN record missing from expiry list")
		}
	}

	if listed+writing != len(s.table) {
		panic("ecshim: index size does not match WRITING+WRITTEN record count")
	}
	if len(s.table) > s.cacheSize {
		panic("ecshim: index size exceeds configured CacheSize")
	}
}
