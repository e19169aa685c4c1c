package bufpool

import "testing"

func TestGetReturnsExactBlockSize(t *testing.T) {
	p := New(4096)
	buf := p.Get()
	if len(buf) != 4096 {
		t.Fatalf("len(buf) = %d, want 4096", len(buf))
	}
	p.Put(buf)
}

func TestPutDropsMismatchedCapacity(t *testing.T) {
	p := New(4096)
	mismatched := make([]byte, 512)
	p.Put(mismatched) // must not panic

	buf := p.Get()
	if len(buf) != 4096 {
		t.Fatalf("len(buf) = %d, want 4096", len(buf))
	}
}

func TestReusedBufferIsRightSizeAfterRoundTrip(t *testing.T) {
	p := New(128)
	buf := p.Get()
	for i := range buf {
		buf[i] = byte(i)
	}
	p.Put(buf)

	buf2 := p.Get()
	if len(buf2) != 128 {
		t.Fatalf("len(buf2) = %d, want 128", len(buf2))
	}
}
