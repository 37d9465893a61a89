package lm

import "testing"

func TestUserLanguageModelFloor(t *testing.T) {
	builder := readyBuilder(simpleTrigramLM)
	model := builder.DumpHashed(0)
	static := NewStaticLanguageModel(model)
	history := NewHistoryBigram()
	history.Add([]string{"a", "b"})

	user := NewUserLanguageModel(static, history, 0.5)

	state := user.BeginState()
	var next State
	staticOnly := static.Score(static.BeginState(), static.Index("a"), &next)

	var userNext UserState
	mixed := user.Score(state, "a", &userNext)
	if float64(mixed) < float64(staticOnly)-1e-9 {
		t.Errorf("mixed score %g fell below static score %g", mixed, staticOnly)
	}
}

func TestUserLanguageModelZeroWeightMatchesStatic(t *testing.T) {
	builder := readyBuilder(simpleTrigramLM)
	model := builder.DumpHashed(0)
	static := NewStaticLanguageModel(model)
	history := NewHistoryBigram()
	history.Add([]string{"a", "b"})

	user := NewUserLanguageModel(static, history, 0)

	state := user.BeginState()
	var sOut State
	sWant := static.Score(static.BeginState(), static.Index("a"), &sOut)

	var uOut UserState
	got := user.Score(state, "a", &uOut)
	if got != sWant {
		t.Errorf("weight=0 should reproduce the static score exactly: got %g want %g", got, sWant)
	}
}
