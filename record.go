package ecshim

import "container/list"

// zeroFingerprint is the distinguished all-zero 16-byte MD5 value reserved
// to mean "all-zeros block". It is never produced by hashing real content:
// MD5 of block_size zero bytes is not the all-zero digest, so genuine
// content hashing to this value is not possible in practice.
var zeroFingerprint [16]byte

// record is the per-block tracking structure. Its state is entirely
// determined by timestamp: zero means WRITING (payload is data), non-zero
// means WRITTEN (payload is fingerprint). listElem is non-nil exactly when
// the record is WRITTEN and linked into the shim's expiry list; list
// membership is a property of that state, not a second owner of the
// record.
type record struct {
	blockNum    uint64
	timestamp   uint64 // 0 while WRITING
	data        []byte // in-flight source buffer while WRITING; nil means zero block
	fingerprint [16]byte
	listElem    *list.Element // non-nil while WRITTEN; Value is this *record
}

// writing reports whether the record is currently in the WRITING state.
func (r *record) writing() bool {
	return r.timestamp == 0
}

// isZero reports whether the record's WRITTEN content is the canonical
// all-zeros block.
func (r *record) isZero() bool {
	return r.fingerprint == zeroFingerprint
}
