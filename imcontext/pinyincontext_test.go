package imcontext

import (
	"testing"

	"github.com/fcitx/libime-go/decoder"
	"github.com/fcitx/libime-go/dictionary"
	"github.com/fcitx/libime-go/lm"
)

func surfacesOf(rs []decoder.SentenceResult[lm.UserState]) []string {
	out := make([]string, len(rs))
	for i, r := range rs {
		out[i] = r.Surface()
	}
	return out
}

// newTestUserLM builds a tiny UserLanguageModel over a fixed unigram
// vocabulary, enough to drive a decode without pulling in a real
// corpus. words are added as unigrams with the given weights: pairs of
// (word, weight).
func newTestUserLM(t *testing.T, words ...interface{}) *lm.UserLanguageModel {
	t.Helper()
	if len(words)%2 != 0 {
		t.Fatalf("newTestUserLM: odd number of word/weight arguments")
	}
	b := lm.NewBuilder(nil, "", "")
	b.AddNgram(nil, "<s>", lm.WEIGHT_LOG0, -1)
	b.AddNgram(nil, "</s>", -0.01, 0)
	for i := 0; i < len(words); i += 2 {
		word := words[i].(string)
		weight := lm.Weight(words[i+1].(float64))
		b.AddNgram(nil, word, weight, 0)
	}
	model := b.DumpHashed(0)
	static := lm.NewStaticLanguageModel(model)
	history := lm.NewHistoryBigram()
	return lm.NewUserLanguageModel(static, history, 0.5)
}

func newTestPinyinDict(t *testing.T) *dictionary.PinyinDictionary {
	t.Helper()
	d := dictionary.NewPinyinDictionary(1, nil)
	entries := [][3]string{
		{"ni", "你", "-0.5"},
		{"hao", "好", "-0.5"},
		{"xian", "仙", "-0.5"},
		{"ren", "人", "-0.5"},
	}
	for _, e := range entries {
		if err := d.AddWord(0, e[0], e[1], 0); err != nil {
			t.Fatalf("AddWord(%q, %q): %v", e[0], e[1], err)
		}
	}
	return d
}

func newTestPinyinContext(t *testing.T) *PinyinContext {
	t.Helper()
	dict := newTestPinyinDict(t)
	model := newTestUserLM(t, "你", -1.0, "好", -1.0, "仙", -1.0, "人", -1.0)
	return NewPinyinContext(dict, model)
}

func TestPinyinContextTypeAndCandidates(t *testing.T) {
	c := newTestPinyinContext(t)
	if !c.Type("nihao") {
		t.Fatalf("Type(\"nihao\") = false, want true")
	}
	if c.String() != "nihao" {
		t.Fatalf("String() = %q, want %q", c.String(), "nihao")
	}
	cands := c.Candidates()
	if len(cands) == 0 {
		t.Fatalf("expected at least one candidate after typing \"nihao\"")
	}
	found := false
	for _, r := range cands {
		if r.Surface() == "你好" {
			found = true
		}
	}
	if !found {
		t.Errorf("candidates = %v, want one with surface 你好", surfacesOf(cands))
	}
}

func TestPinyinContextSelectAndSentence(t *testing.T) {
	c := newTestPinyinContext(t)
	c.Type("nihao")
	cands := c.Candidates()
	if len(cands) == 0 {
		t.Fatalf("no candidates to select from")
	}
	idx := -1
	for i, r := range cands {
		if r.Surface() == "你好" {
			idx = i
		}
	}
	if idx < 0 {
		t.Fatalf("candidates = %v, want one with surface 你好", surfacesOf(cands))
	}
	c.Select(idx)

	if !c.Selected() {
		t.Fatalf("Selected() = false after Select")
	}
	if got := c.SelectedSentence(); got != "你好" {
		t.Fatalf("SelectedSentence() = %q, want %q", got, "你好")
	}
	if got := c.SelectedLength(); got != 2 {
		t.Fatalf("SelectedLength() = %d, want 2", got)
	}
	if c.Size() != 5 || c.consumed != 5 {
		t.Fatalf("expected the whole buffer consumed, size=%d consumed=%d", c.Size(), c.consumed)
	}
}

func TestPinyinContextEraseUnselects(t *testing.T) {
	c := newTestPinyinContext(t)
	c.Type("nihao")
	cands := c.Candidates()
	for i, r := range cands {
		if r.Surface() == "你好" {
			c.Select(i)
			break
		}
	}
	if !c.Selected() {
		t.Fatalf("setup: expected a selection before erasing")
	}

	// Erase from byte 0, reaching into the committed selection: it
	// must fall back to unselected raw input.
	c.Erase(0, 2)
	if c.Selected() {
		t.Fatalf("Selected() = true after erasing into the only selection")
	}
	if c.String() != "hao" {
		t.Fatalf("String() = %q after erase, want %q", c.String(), "hao")
	}
}

func TestPinyinContextPreeditRaw(t *testing.T) {
	c := newTestPinyinContext(t)
	c.PreeditMode = PinyinPreeditRaw
	c.Type("nihao")
	if got := c.Preedit(PinyinPreeditRaw); got != "nihao" {
		t.Fatalf("Preedit(raw) = %q, want %q", got, "nihao")
	}
}

func TestPinyinContextLearn(t *testing.T) {
	// No "ni'hao" dictionary entry: "nihao" can only decode as the
	// two single-syllable words 你+好, so selecting the best sentence
	// commits one selection group with two nodes, the shape learnWord
	// needs to treat this as a genuinely new multi-word phrase.
	c := newTestPinyinContext(t)
	c.Type("nihao")
	cands := c.Candidates()
	idx := -1
	for i, r := range cands {
		if r.Surface() == "你好" {
			idx = i
		}
	}
	if idx < 0 {
		t.Fatalf("candidates = %v, want one with surface 你好", surfacesOf(cands))
	}
	c.Select(idx)
	if got := c.SelectedSentence(); got != "你好" {
		t.Fatalf("SelectedSentence() = %q, want %q", got, "你好")
	}

	before := c.Model.History().UnigramFreq("你好")
	c.Learn()
	after := c.Model.History().UnigramFreq("你好")
	if after <= before {
		t.Errorf("UnigramFreq(你好) = %v after Learn, want an increase from %v", after, before)
	}
}
