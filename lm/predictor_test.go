package lm

import "testing"

func TestPredictorBasic(t *testing.T) {
	h := NewHistoryBigram()
	h.Add([]string{"各自", "努力", "学习"})
	h.Add([]string{"各自", "努力", "工作"})
	h.Add([]string{"各自", "努力", "工作"})

	p := NewPredictor(h)
	preds := p.Predict("努力", 5)
	if len(preds) == 0 {
		t.Fatal("expected at least one prediction")
	}
	if preds[0].Word != "工作" {
		t.Errorf("top prediction = %q; want 工作 (seen twice)", preds[0].Word)
	}

	none := p.Predict("没见过的词", 5)
	if len(none) != 0 {
		t.Errorf("expected no predictions for an unseen context; got %v", none)
	}
}

func TestPredictorTopK(t *testing.T) {
	h := NewHistoryBigram()
	h.Add([]string{"a", "b"})
	h.Add([]string{"a", "c"})
	h.Add([]string{"a", "d"})

	p := NewPredictor(h)
	preds := p.Predict("a", 2)
	if len(preds) != 2 {
		t.Errorf("Predict with topK=2 returned %d predictions", len(preds))
	}
}
