package store

import (
	"bytes"
	"sort"
	"testing"
)

func TestJournalKeyOrdersBySequence(t *testing.T) {
	var keys [][]byte
	for _, seq := range []uint64{0, 1, 2, 9, 10, 100, 1000000} {
		keys = append(keys, JournalKey("wf-1", seq))
	}

	sorted := make([][]byte, len(keys))
	copy(sorted, keys)
	sort.Slice(sorted, func(i, j int) bool { return bytes.Compare(sorted[i], sorted[j]) < 0 })

	for i := range keys {
		if !bytes.Equal(keys[i], sorted[i]) {
			t.Fatalf("JournalKey byte order does not match numeric order at index %d: %v vs %v", i, keys, sorted)
		}
	}
}

func TestJournalPrefixMatchesJournalKeys(t *testing.T) {
	prefix := JournalPrefix("wf-1")
	key := JournalKey("wf-1", 42)
	if !bytes.HasPrefix(key, prefix) {
		t.Fatalf("JournalKey(wf-1, 42) = %q does not have prefix %q", key, prefix)
	}

	other := JournalKey("wf-10", 0)
	if bytes.HasPrefix(other, prefix) {
		t.Fatalf("JournalPrefix(wf-1) must not match workflow wf-10, got %q", other)
	}
}

func TestPrefixEnd(t *testing.T) {
	cases := []struct {
		prefix []byte
		want   []byte
	}{
		{[]byte("a"), []byte("b")},
		{[]byte("ab"), []byte("ac")},
		{[]byte{0x01, 0xFF}, []byte{0x02}},
		{[]byte{0xFF, 0xFF}, nil},
	}
	for _, c := range cases {
		got := PrefixEnd(c.prefix)
		if !bytes.Equal(got, c.want) {
			t.Fatalf("PrefixEnd(%v) = %v, want %v", c.prefix, got, c.want)
		}
	}
}

func TestTimerKeyOrdersByFireTime(t *testing.T) {
	k1 := TimerKey(1000, "timer-b")
	k2 := TimerKey(1000, "timer-a")
	k3 := TimerKey(2000, "timer-a")

	if bytes.Compare(k2, k1) >= 0 {
		t.Fatalf("timers at the same fire time should order by timer id: %q vs %q", k2, k1)
	}
	if bytes.Compare(k1, k3) >= 0 {
		t.Fatalf("earlier fire time must sort first: %q vs %q", k1, k3)
	}
}

func TestTimerUpperBoundExcludesLaterTimers(t *testing.T) {
	ready := TimerKey(1000, "t1")
	notReady := TimerKey(1001, "t2")
	bound := TimerUpperBound(1000)

	if bytes.Compare(ready, bound) >= 0 {
		t.Fatalf("timer due at bound time must sort before the exclusive upper bound")
	}
	if bytes.Compare(notReady, bound) < 0 {
		t.Fatalf("timer due after bound time must sort at or after the exclusive upper bound")
	}
}

func TestStatusIndexKey(t *testing.T) {
	k := StatusIndexKey("Running", "wf-1")
	p := StatusIndexPrefix("Running")
	if !bytes.HasPrefix(k, p) {
		t.Fatalf("StatusIndexKey(Running, wf-1) = %q does not have prefix %q", k, p)
	}
}
