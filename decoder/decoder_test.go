package decoder

import (
	"testing"

	"github.com/fcitx/libime-go/dictionary"
	"github.com/fcitx/libime-go/lm"
	"github.com/fcitx/libime-go/segment"
)

// flatModel is a context-free test model: every word scores the same
// regardless of history, so the decoder's choice between candidates
// is driven entirely by dictionary.Cost.
type flatModel struct{ unknown map[string]bool }

func (m *flatModel) ScoreWord(in string, word string, out *string) lm.Weight {
	*out = word
	return 0
}
func (m *flatModel) ScoreSentenceEnd(in string) lm.Weight { return 0 }
func (m *flatModel) IsUnknown(word string) bool           { return m.unknown[word] }

type fakeEntry struct {
	from, to int
	word     string
	cost     lm.Weight
}

func fakeMatch(entries []fakeEntry) MatchPrefixFunc {
	return func(g *segment.Graph, ignore map[segment.NodeId]bool, cb dictionary.MatchCallback) {
		for _, e := range entries {
			from, to := segment.NodeId(e.from), segment.NodeId(e.to)
			if ignore[from] || ignore[to] {
				continue
			}
			if !cb([]segment.NodeId{from, to}, e.word, float32(e.cost), nil) {
				return
			}
		}
	}
}

func newTestGraph() *segment.Graph {
	g := segment.New("xx")
	g.AddEdge(0, 1)
	g.AddEdge(1, 2)
	g.AddEdge(0, 2)
	return g
}

func TestDecodeSingleSegmentWinsOnCost(t *testing.T) {
	g := newTestGraph()
	entries := []fakeEntry{
		{0, 1, "A", -0.5},
		{1, 2, "b", -0.5},
		{0, 2, "X", -0.9},
	}
	d := NewDecoder[string](fakeMatch(entries), &flatModel{})

	lat, ok := d.Decode(g, nil, 2, "", 0, 0, 0, 0)
	if !ok {
		t.Fatalf("Decode reported failure")
	}
	if len(lat.Results) == 0 {
		t.Fatalf("no results")
	}
	if lat.Results[0].Surface() != "X" {
		t.Fatalf("best result = %q, want %q", lat.Results[0].Surface(), "X")
	}
}

func TestDecodeNBestFindsAlternative(t *testing.T) {
	g := newTestGraph()
	entries := []fakeEntry{
		{0, 1, "A", -0.5},
		{1, 2, "b", -0.5},
		{0, 2, "X", -0.9},
	}
	d := NewDecoder[string](fakeMatch(entries), &flatModel{})

	lat, ok := d.Decode(g, nil, 2, "", 0, 0, 0, 0)
	if !ok {
		t.Fatalf("Decode reported failure")
	}
	if len(lat.Results) != 2 {
		t.Fatalf("Results = %d, want 2", len(lat.Results))
	}
	surfaces := map[string]bool{}
	for _, r := range lat.Results {
		surfaces[r.Surface()] = true
	}
	if !surfaces["X"] || !surfaces["Ab"] {
		t.Fatalf("expected both X and Ab among results, got %v", lat.Results)
	}
	if lat.Results[0].Score < lat.Results[1].Score {
		t.Fatalf("results not sorted by descending score: %+v", lat.Results)
	}
}

func TestDecodeNoCandidatesFails(t *testing.T) {
	g := newTestGraph()
	d := NewDecoder[string](fakeMatch(nil), &flatModel{})
	_, ok := d.Decode(g, nil, 1, "", 0, 0, 0, 0)
	if ok {
		t.Fatalf("Decode should fail when no candidate reaches the end node")
	}
}

func TestDecodeUnknownWordSharesCache(t *testing.T) {
	g := newTestGraph()
	entries := []fakeEntry{
		{0, 1, "unk1", -1},
		{0, 1, "unk2", -2},
		{1, 2, "b", 0},
	}
	d := NewDecoder[string](fakeMatch(entries), &flatModel{unknown: map[string]bool{"unk1": true, "unk2": true}})
	lat, ok := d.Decode(g, nil, 1, "", 0, 0, 0, 0)
	if !ok {
		t.Fatalf("Decode reported failure")
	}
	if len(lat.Results) != 1 {
		t.Fatalf("Results = %d, want 1", len(lat.Results))
	}
}
