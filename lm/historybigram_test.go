package lm

import (
	"bufio"
	"bytes"
	"testing"
)

func TestHistoryBigramBasic(t *testing.T) {
	h := NewHistoryBigram()
	if h.UnigramFreq("各自") != 0 {
		t.Fatalf("fresh model should have zero unigram freq")
	}
	h.Add([]string{"各自", "努力"})
	if h.UnigramFreq("各自") <= 0 {
		t.Errorf("UnigramFreq(各自) should be positive after Add")
	}
	if h.UnigramFreq("努力") <= 0 {
		t.Errorf("UnigramFreq(努力) should be positive after Add")
	}
	s1 := h.Score("各自", "努力")
	s2 := h.Score("各自", "无关")
	if s1 <= s2 {
		t.Errorf("seen bigram should score higher than an unseen one: %g vs %g", s1, s2)
	}
}

func TestHistoryBigramForget(t *testing.T) {
	h := NewHistoryBigram()
	h.Add([]string{"各自", "努力"})
	before := h.UnigramFreq("努力")
	h.Forget("努力")
	after := h.UnigramFreq("努力")
	if after >= before {
		t.Errorf("Forget(努力) did not reduce its frequency: before=%g after=%g", before, after)
	}
}

func TestHistoryBigramPoolMigration(t *testing.T) {
	h := NewHistoryBigram()
	for i := 0; i < historyPoolCapacities[0]+1; i++ {
		h.Add([]string{"词"})
	}
	if len(h.pools[0].sentences) != historyPoolCapacities[0] {
		t.Errorf("pool 0 should stay at capacity; got %d sentences", len(h.pools[0].sentences))
	}
	if len(h.pools[1].sentences) != 1 {
		t.Errorf("one sentence should have migrated to pool 1; got %d", len(h.pools[1].sentences))
	}
}

func TestHistoryBigramRoundTrip(t *testing.T) {
	h := NewHistoryBigram()
	h.Add([]string{"各自", "努力"})
	h.Add([]string{"学习", "编程"})

	var buf bytes.Buffer
	w := bufio.NewWriter(&buf)
	if err := h.WriteBinary(w); err != nil {
		t.Fatalf("WriteBinary: %v", err)
	}

	h2, err := ReadHistoryBigram(bufio.NewReader(&buf))
	if err != nil {
		t.Fatalf("ReadHistoryBigram: %v", err)
	}
	if h2.UnigramFreq("各自") != h.UnigramFreq("各自") {
		t.Errorf("UnigramFreq(各自) mismatch after round trip: %g vs %g", h2.UnigramFreq("各自"), h.UnigramFreq("各自"))
	}
	if h2.bigramFreq("各自", "努力") != h.bigramFreq("各自", "努力") {
		t.Errorf("bigramFreq(各自,努力) mismatch after round trip")
	}
}
