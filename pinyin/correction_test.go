package pinyin

import "testing"

func TestQwertyCorrectionProfile(t *testing.T) {
	p := NewQwertyCorrectionProfile()
	corrections := p.Corrections("ni")
	found := false
	for _, c := range corrections {
		if c == "nu" || c == "no" { // 'i' is adjacent to 'u' and 'o' on the top letter row ("qwertyuiop")
			found = true
		}
	}
	if !found {
		t.Errorf("expected a keyboard-adjacent correction of \"ni\"; got %v", corrections)
	}
	if !p.IsCorrection("ni", corrections[0]) {
		t.Errorf("IsCorrection should confirm a correction it just produced")
	}
	if p.IsCorrection("ni", "ni") {
		t.Errorf("IsCorrection should reject the identical spelling")
	}
}

func TestCorrectionProfileExpandTable(t *testing.T) {
	p := NewQwertyCorrectionProfile()
	expanded := p.ExpandTable(Default)

	if !expanded.Has("ni", None) {
		t.Fatal("expanded table should still contain the unmodified base entries")
	}

	// "ni" -> "no" is a correction ('i' neighbors 'o' on "qwertyuiop");
	// it should appear only once Correction is active.
	if expanded.Has("no", None) {
		t.Errorf("\"no\" should not resolve without the Correction flag active")
	}
	if !expanded.Has("no", Correction) {
		t.Errorf("\"no\" should resolve to ni's syllable once Correction is active")
	}
}
