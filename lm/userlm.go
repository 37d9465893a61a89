package lm

import (
	"encoding/binary"
	"math"
)

// logSumExp10 computes log10(10^a + 10^b) without overflowing for
// very negative a, b.
func logSumExp10(a, b float64) float64 {
	if a < b {
		a, b = b, a
	}
	if math.IsInf(a, -1) {
		return a
	}
	return a + math.Log10(1+math.Pow(10, b-a))
}

// UserState packs a StaticLanguageModel State together with the id of
// the word that produced it, so UserLanguageModel can look up the
// matching HistoryBigram context on the next Score call.
type UserState [StaticStateSize + 4]byte

func packUserState(s State, last WordId) UserState {
	var u UserState
	copy(u[:StaticStateSize], s[:])
	binary.BigEndian.PutUint32(u[StaticStateSize:], uint32(last))
	return u
}

func (u UserState) staticState() State {
	var s State
	copy(s[:], u[:StaticStateSize])
	return s
}

func (u UserState) lastWord() WordId {
	return WordId(binary.BigEndian.Uint32(u[StaticStateSize:]))
}

// UserLanguageModel mixes a fixed StaticLanguageModel with an
// adaptive HistoryBigram, never letting the mix score a word lower
// than the static model alone would.
type UserLanguageModel struct {
	static  *StaticLanguageModel
	history *HistoryBigram
	weight  float64
}

// NewUserLanguageModel builds a mixed model; weight in [0, 1] is how
// much the history model pulls scores toward itself.
func NewUserLanguageModel(static *StaticLanguageModel, history *HistoryBigram, weight float64) *UserLanguageModel {
	return &UserLanguageModel{static, history, weight}
}

func (m *UserLanguageModel) SetWeight(w float64) { m.weight = w }

// History returns the adaptive bigram model backing this language
// model, so a context can feed it newly learned sentences.
func (m *UserLanguageModel) History() *HistoryBigram { return m.history }

// Static returns the fixed model this one mixes adaptive history on
// top of, so a context's IsUnknown/Index checks against the
// vocabulary can bypass the history mix entirely.
func (m *UserLanguageModel) Static() *StaticLanguageModel { return m.static }

func (m *UserLanguageModel) BeginState() UserState {
	return packUserState(m.static.BeginState(), WORD_NIL)
}

func (m *UserLanguageModel) NullState() UserState {
	return packUserState(m.static.NullState(), WORD_NIL)
}

func (m *UserLanguageModel) Index(word string) WordId { return m.static.Index(word) }
func (m *UserLanguageModel) Unknown() WordId          { return m.static.Unknown() }
func (m *UserLanguageModel) BeginSentence() string    { return m.static.BeginSentence() }
func (m *UserLanguageModel) EndSentence() string      { return m.static.EndSentence() }

// Score scores word from state in, writing the successor state to
// out. When in carries a previous word and the history model has
// bigram or unigram evidence for it, the static score and the history
// score are mixed in probability space (log-sum-exp base 10); the
// result is floored at the static score, so history can only ever
// raise a word's likelihood, never lower it.
func (m *UserLanguageModel) Score(in UserState, word string, out *UserState) Weight {
	wid := m.static.Index(word)
	var outStatic State
	staticScore := m.static.Score(in.staticState(), wid, &outStatic)
	*out = packUserState(outStatic, wid)

	prev := in.lastWord()
	if prev == WORD_NIL || m.weight <= 0 || m.history == nil {
		return staticScore
	}

	prevStr := m.static.StringOf(prev)
	histScore := m.history.Score(prevStr, word)
	mixed := logSumExp10(
		float64(staticScore)+math.Log10(1-m.weight),
		float64(histScore)+math.Log10(m.weight),
	)
	if mixed <= float64(staticScore) {
		return staticScore
	}
	return Weight(mixed)
}

// ScoreWord is Score under the name the decoder's generic
// LanguageModel interface expects, shared with StaticLanguageModel.
func (m *UserLanguageModel) ScoreWord(in UserState, word string, out *UserState) Weight {
	return m.Score(in, word, out)
}

// IsUnknown reports whether word is out of the static model's
// vocabulary.
func (m *UserLanguageModel) IsUnknown(word string) bool { return m.static.IsUnknown(word) }

// ScoreSentenceEnd scores the end-of-sentence transition from in; it
// never consults the history model since </s> only ever comes from
// the static model's grammar.
func (m *UserLanguageModel) ScoreSentenceEnd(in UserState) Weight {
	return m.static.ScoreSentenceEnd(in.staticState())
}
