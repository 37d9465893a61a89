package lm

import "encoding/binary"

// StaticStateSize is the size of the opaque per-state buffer exposed
// to callers. It is sized generously (28 bytes, matching the ≥28
// byte floor called for when porting a KenLM-style state) even though
// this finite-state model only needs 4 bytes of it; callers must
// treat State as opaque and never rely on its layout.
const StaticStateSize = 28

// State is an opaque, fixed-size language-model state. Callers may
// only copy and compare it; StaticLanguageModel is the only thing
// that interprets its bytes.
type State [StaticStateSize]byte

func stateFromId(id StateId) State {
	var s State
	binary.BigEndian.PutUint32(s[:4], uint32(id))
	return s
}

func (s State) id() StateId { return StateId(binary.BigEndian.Uint32(s[:4])) }

// DefaultUnknownPenalty is log10(1/60,000,000), the default score
// assigned to a word this model has never seen.
const DefaultUnknownPenalty = Weight(-7.778151250383644)

// StaticLanguageModel wraps a finite-state n-gram Model (Hashed or
// Sorted, loaded from ARPA text or this package's binary format) with
// the narrow, opaque-state API the decoder and UserLanguageModel
// consume.
type StaticLanguageModel struct {
	model          Model
	vocab          *Vocab
	bos, eos       string
	bosId, eosId   WordId
	unknownPenalty Weight
}

func NewStaticLanguageModel(model Model) *StaticLanguageModel {
	vocab, bos, eos, bosId, eosId := model.Vocab()
	return &StaticLanguageModel{model, vocab, bos, eos, bosId, eosId, DefaultUnknownPenalty}
}

// SetUnknownPenalty overrides the default OOV score.
func (m *StaticLanguageModel) SetUnknownPenalty(w Weight) { m.unknownPenalty = w }

// BeginState is the state to start scoring a fresh sentence from.
func (m *StaticLanguageModel) BeginState() State { return stateFromId(m.model.Start()) }

// NullState is the state with no context at all; UserLanguageModel
// uses it as a sentinel for "no previous word yet".
func (m *StaticLanguageModel) NullState() State { return State{} }

// Index returns word's vocabulary id, or Unknown() if word is OOV.
func (m *StaticLanguageModel) Index(word string) WordId { return m.vocab.IdOf(word) }

// Unknown returns the reserved out-of-vocabulary word id.
func (m *StaticLanguageModel) Unknown() WordId { return WORD_UNK }

func (m *StaticLanguageModel) BeginSentence() string { return m.bos }
func (m *StaticLanguageModel) EndSentence() string   { return m.eos }

// StringOf renders a word id back to its surface string.
func (m *StaticLanguageModel) StringOf(w WordId) string { return m.vocab.StringOf(w) }

// Score consumes word from state in, writes the successor state to
// out, and returns the log10 probability. OOV hits the configured
// unknown-word penalty rather than WEIGHT_LOG0.
func (m *StaticLanguageModel) Score(in State, word WordId, out *State) Weight {
	q, w := m.model.NextI(in.id(), word)
	*out = stateFromId(q)
	if w == WEIGHT_LOG0 {
		return m.unknownPenalty
	}
	return w
}

// ScoreWord is Score for callers that only have the surface string,
// not its pre-resolved WordId (the decoder scores candidate words
// straight off dictionary matches).
func (m *StaticLanguageModel) ScoreWord(in State, word string, out *State) Weight {
	return m.Score(in, m.Index(word), out)
}

// IsUnknown reports whether word is out of vocabulary, so the decoder
// can cache one shared expansion per predecessor for unknown words.
func (m *StaticLanguageModel) IsUnknown(word string) bool { return m.Index(word) == m.Unknown() }

// ScoreSentenceEnd scores consuming the end-of-sentence marker from
// in, completing a sentence-level query.
func (m *StaticLanguageModel) ScoreSentenceEnd(in State) Weight {
	w := m.model.Final(in.id())
	if w == WEIGHT_LOG0 {
		return m.unknownPenalty
	}
	return w
}

// SentenceScore scores a whole sentence by sequentially folding Score
// over a single scratch state, exactly like the historical
// wordsScore: the same State value is read and overwritten on every
// iteration. Whether callers may rely on this in-place reuse is an
// open question in the source this is ported from; this behavior is
// kept deliberately rather than guessed away.
func (m *StaticLanguageModel) SentenceScore(words []string) Weight {
	state := m.BeginState()
	var total Weight
	for _, w := range words {
		var next State
		total += m.Score(state, m.Index(w), &next)
		state = next
	}
	total += m.ScoreSentenceEnd(state)
	return total
}
