package dictionary

import (
	"bytes"
	"testing"

	"github.com/fcitx/libime-go/pinyin"
	"github.com/fcitx/libime-go/segment"
)

func TestPinyinDictionaryAddAndMatchWords(t *testing.T) {
	d := NewPinyinDictionary(1, nil)
	if err := d.AddWord(0, "ni'hao", "你好", -1.5); err != nil {
		t.Fatalf("AddWord: %v", err)
	}
	syls, err := d.parseFullPinyin("ni'hao")
	if err != nil {
		t.Fatalf("parseFullPinyin: %v", err)
	}
	data := pinyin.EncodeFull(syls)

	var got []string
	d.MatchWords(0, data, func(hanzi string, cost float32) {
		got = append(got, hanzi)
		if cost != -1.5 {
			t.Errorf("cost = %v, want -1.5", cost)
		}
	})
	if len(got) != 1 || got[0] != "你好" {
		t.Fatalf("MatchWords = %v, want [你好]", got)
	}
}

func TestPinyinDictionaryRemoveWord(t *testing.T) {
	d := NewPinyinDictionary(1, nil)
	if err := d.AddWord(0, "ni", "你", 0); err != nil {
		t.Fatalf("AddWord: %v", err)
	}
	if !d.RemoveWord(0, "ni", "你") {
		t.Fatalf("RemoveWord reported not-present for an entry just added")
	}
	if d.RemoveWord(0, "ni", "你") {
		t.Fatalf("RemoveWord reported present after the entry was already removed")
	}
}

func TestPinyinDictionaryBinaryRoundTrip(t *testing.T) {
	d := NewPinyinDictionary(1, nil)
	if err := d.AddWord(0, "zhong'guo", "中国", -2.0); err != nil {
		t.Fatalf("AddWord: %v", err)
	}

	var buf bytes.Buffer
	if err := d.Save(0, &buf); err != nil {
		t.Fatalf("Save: %v", err)
	}

	loaded := NewPinyinDictionary(1, nil)
	if err := loaded.LoadBinary(0, bytes.NewReader(buf.Bytes())); err != nil {
		t.Fatalf("LoadBinary: %v", err)
	}

	syls, _ := loaded.parseFullPinyin("zhong'guo")
	data := pinyin.EncodeFull(syls)
	var got string
	loaded.MatchWords(0, data, func(hanzi string, cost float32) { got = hanzi })
	if got != "中国" {
		t.Fatalf("round-tripped dictionary missing entry, got %q", got)
	}
}

func TestPinyinDictionaryLoadTextSkipsMalformedLines(t *testing.T) {
	d := NewPinyinDictionary(1, nil)
	text := "# comment\n你好 ni'hao -1.0\nmalformed\n仙人 xian'ren\n"
	if err := d.LoadText(0, bytes.NewBufferString(text)); err != nil {
		t.Fatalf("LoadText: %v", err)
	}
	syls, _ := d.parseFullPinyin("xian'ren")
	data := pinyin.EncodeFull(syls)
	var got string
	d.MatchWords(0, data, func(hanzi string, cost float32) { got = hanzi })
	if got != "仙人" {
		t.Fatalf("expected 仙人 to load despite missing cost field, got %q", got)
	}
}

func TestPinyinDictionaryMatchPrefixOverSegmentGraph(t *testing.T) {
	d := NewPinyinDictionary(1, nil)
	if err := d.AddWord(0, "ni", "你", -0.1); err != nil {
		t.Fatalf("AddWord: %v", err)
	}
	if err := d.AddWord(0, "ni'hao", "你好", -0.2); err != nil {
		t.Fatalf("AddWord: %v", err)
	}

	g := pinyin.ParseUserPinyin("nihao", pinyin.None, pinyin.Default)
	state := NewPinyinMatchState()

	type match struct {
		word  string
		score float32
	}
	var matches []match
	d.MatchPrefix(g, nil, state, pinyin.None, func(path []segment.NodeId, word string, score float32, payload any) bool {
		matches = append(matches, match{word, score})
		if _, ok := payload.(*PinyinPayload); !ok {
			t.Errorf("payload for %q is not *PinyinPayload", word)
		}
		return true
	})

	found := map[string]bool{}
	for _, m := range matches {
		found[m.word] = true
	}
	if !found["你"] {
		t.Errorf("expected a match for 你, got %v", matches)
	}
	if !found["你好"] {
		t.Errorf("expected a match for 你好, got %v", matches)
	}
}

func TestPinyinDictionaryFuzzyMatchDemotesScore(t *testing.T) {
	d := NewPinyinDictionary(1, nil)
	// "si" (S_SH fuzzy partner of "shi" in baseTable) keyed word.
	if err := d.AddWord(0, "shi", "是", 0); err != nil {
		t.Fatalf("AddWord: %v", err)
	}

	g := pinyin.ParseUserPinyin("si", pinyin.None, pinyin.Default)
	state := NewPinyinMatchState()

	var sawFuzzy bool
	d.MatchPrefix(g, nil, state, pinyin.S_SH, func(path []segment.NodeId, word string, score float32, payload any) bool {
		if word == "是" {
			sawFuzzy = true
			if score >= 0 {
				t.Errorf("fuzzy match score %v should be demoted below 0", score)
			}
		}
		return true
	})
	if !sawFuzzy {
		t.Fatalf("expected a fuzzy S_SH match of 是 via \"si\"")
	}
}
