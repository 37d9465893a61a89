package pinyin

import (
	"testing"

	"github.com/fcitx/libime-go/segment"
)

func TestParseUserPinyinSimple(t *testing.T) {
	g := ParseUserPinyin("nihao", None, Default)
	if !g.CheckGraph() {
		t.Fatal("graph invariant violated")
	}
	found := false
	for _, mid := range g.Next(g.Start()) {
		if g.Segment(g.Start(), mid) == "ni" {
			found = true
		}
	}
	if !found {
		t.Errorf("expected an edge spelling \"ni\" from the start node")
	}
}

func TestParseUserPinyinSeparator(t *testing.T) {
	g := ParseUserPinyin("xi'an", None, Default)
	if !g.CheckGraph() {
		t.Fatal("graph invariant violated")
	}
	// The apostrophe must be consumed by its own edge, not folded into
	// a syllable spelling.
	for i := 0; i < len(g.Data()); i++ {
		from := segment.NodeId(i)
		for _, to := range g.Next(from) {
			if seg := g.Segment(from, to); seg == "'" {
				return
			}
		}
	}
	t.Errorf("expected a dedicated separator edge")
}

func TestParseUserPinyinInnerSplit(t *testing.T) {
	g := ParseUserPinyin("xian", Inner, Default)
	if !g.CheckGraph() {
		t.Fatal("graph invariant violated")
	}
	sawSplit := false
	for _, mid := range g.Next(g.Start()) {
		if g.Segment(g.Start(), mid) == "xi" {
			sawSplit = true
		}
	}
	if !sawSplit {
		t.Errorf("expected the Inner fuzzy flag to also emit the xi + an split")
	}
}
