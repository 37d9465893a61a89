package lm

// HistoryBigram is an online, adaptive bigram model built from the
// sentences a user has actually typed. Recent sentences live in a
// small, heavily weighted pool; as a pool fills, its oldest entries
// spill into the next, larger and more lightly weighted pool, so
// old history fades rather than being discarded outright.

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"math"

	"github.com/fcitx/libime-go/datrie"
)

const historyPoolCount = 3

var historyPoolCapacities = [historyPoolCount]int{128, 8192, 65536}

// alpha controls how much weight mass shifts to each successive,
// larger pool; p = 1/(1+alpha).
const alpha = 1.0

type historyPool struct {
	sentences [][]string
	unigram   *datrie.Trie[uint32]
	bigram    *datrie.Trie[uint32]
}

func newHistoryPool() *historyPool {
	return &historyPool{unigram: datrie.NewUint32(), bigram: datrie.NewUint32()}
}

// HistoryBigram scores a (previous word, current word) pair from the
// counts accumulated across its tiered pools, falling back to a plain
// unigram estimate when no bigram evidence exists.
type HistoryBigram struct {
	pools          [historyPoolCount]*historyPool
	weights        [historyPoolCount]float64
	totalMass      float64
	useOnlyUnigram bool
	unknownPenalty Weight
}

func NewHistoryBigram() *HistoryBigram {
	h := &HistoryBigram{unknownPenalty: DefaultUnknownPenalty}
	for i := range h.pools {
		h.pools[i] = newHistoryPool()
	}
	h.computeWeights()
	return h
}

func (h *HistoryBigram) computeWeights() {
	const n = historyPoolCount
	p := 1.0 / (1.0 + alpha)
	for i := 1; i <= n; i++ {
		cap := float64(historyPoolCapacities[i-1])
		if i < n {
			h.weights[i-1] = (1 - p) * math.Pow(p, float64(i-1)) / cap
		} else {
			h.weights[i-1] = math.Pow(p, float64(n-1)) / cap
		}
	}
}

// SetUseOnlyUnigram disables bigram evidence entirely, matching
// environments where the history is too sparse for bigrams to help.
func (h *HistoryBigram) SetUseOnlyUnigram(v bool) { h.useOnlyUnigram = v }

func (h *HistoryBigram) SetUnknownPenalty(w Weight) { h.unknownPenalty = w }

func bigramKey(prev, next string) []byte {
	return []byte(prev + "|" + next)
}

func (h *HistoryBigram) countSentence(i int, sentence []string, delta int32) {
	pool, w := h.pools[i], h.weights[i]
	for j, word := range sentence {
		bumpCount(pool.unigram, []byte(word), delta)
		h.totalMass += float64(delta) * w
		if j > 0 {
			bumpCount(pool.bigram, bigramKey(sentence[j-1], word), delta)
		}
	}
}

func bumpCount(t *datrie.Trie[uint32], key []byte, delta int32) {
	t.Update(key, func(cur uint32, existed bool) uint32 {
		v := int64(cur) + int64(delta)
		if v < 0 {
			v = 0
		}
		return uint32(v)
	})
}

func (h *HistoryBigram) addToPool(i int, sentence []string) []string {
	pool := h.pools[i]
	pool.sentences = append(pool.sentences, sentence)
	h.countSentence(i, sentence, 1)
	if len(pool.sentences) <= historyPoolCapacities[i] {
		return nil
	}
	oldest := pool.sentences[0]
	pool.sentences = pool.sentences[1:]
	h.countSentence(i, oldest, -1)
	return oldest
}

// Add records a sentence the user has committed, bracketing it with
// the sentence-boundary markers automatically.
func (h *HistoryBigram) Add(words []string) {
	sentence := make([]string, 0, len(words)+2)
	sentence = append(sentence, "<s>")
	sentence = append(sentence, words...)
	sentence = append(sentence, "</s>")
	full := h.addToPool(0, sentence)
	for i := 1; full != nil && i < historyPoolCount; i++ {
		full = h.addToPool(i, full)
	}
	// A sentence spilling off the last, largest pool is simply gone.
}

// Forget removes every recorded sentence containing word, across all
// pools, undoing its contribution to every count.
func (h *HistoryBigram) Forget(word string) {
	for i, pool := range h.pools {
		kept := pool.sentences[:0]
		for _, s := range pool.sentences {
			if containsWord(s, word) {
				h.countSentence(i, s, -1)
				continue
			}
			kept = append(kept, s)
		}
		pool.sentences = kept
	}
}

func containsWord(sentence []string, word string) bool {
	for _, w := range sentence {
		if w == word {
			return true
		}
	}
	return false
}

// UnigramFreq returns the pool-weighted unigram mass for word.
func (h *HistoryBigram) UnigramFreq(word string) float64 {
	var total float64
	key := []byte(word)
	for i, pool := range h.pools {
		if c := pool.unigram.ExactMatch(key); pool.unigram.IsValid(c) {
			total += float64(c) * h.weights[i]
		}
	}
	return total
}

func (h *HistoryBigram) bigramFreq(prev, next string) float64 {
	key := bigramKey(prev, next)
	var total float64
	for i, pool := range h.pools {
		if c := pool.bigram.ExactMatch(key); pool.bigram.IsValid(c) {
			total += float64(c) * h.weights[i]
		}
	}
	return total
}

// Score estimates log10 P(cur | prev) by interpolating a bigram
// estimate (68%) with a unigram fallback (32%), both Laplace-smoothed
// by half the weight of the freshest pool. A zero estimate scores as
// the configured unknown penalty; any other estimate is returned as
// its log10, with no floor.
func (h *HistoryBigram) Score(prev, cur string) Weight {
	w0 := h.weights[0]
	uPrev := h.UnigramFreq(prev)
	uCur := h.UnigramFreq(cur)

	var bw float64
	if !h.useOnlyUnigram {
		bw = h.bigramFreq(prev, cur)
	}

	p := 0.68*bw/(uPrev+w0/2) + 0.32*uCur/(h.totalMass+w0/2)
	if p > 1 {
		p = 1
	}
	if p <= 0 {
		return h.unknownPenalty
	}
	return Weight(math.Log10(p))
}

const historyBigramMagic = uint32(0x000fc315)
const historyBigramVersion = uint32(2)

// WriteBinary serializes every resident sentence (not the derived
// counts, which are rebuilt on load) so that Forget remains possible
// after a reload.
func (h *HistoryBigram) WriteBinary(w *bufio.Writer) error {
	if err := binary.Write(w, binary.BigEndian, historyBigramMagic); err != nil {
		return err
	}
	if err := binary.Write(w, binary.BigEndian, historyBigramVersion); err != nil {
		return err
	}
	if err := binary.Write(w, binary.BigEndian, uint32(historyPoolCount)); err != nil {
		return err
	}
	for _, pool := range h.pools {
		if err := binary.Write(w, binary.BigEndian, uint32(len(pool.sentences))); err != nil {
			return err
		}
		for _, sent := range pool.sentences {
			if err := binary.Write(w, binary.BigEndian, uint32(len(sent))); err != nil {
				return err
			}
			for _, word := range sent {
				b := []byte(word)
				if err := binary.Write(w, binary.BigEndian, uint32(len(b))); err != nil {
					return err
				}
				if _, err := w.Write(b); err != nil {
					return err
				}
			}
		}
	}
	return w.Flush()
}

// ReadHistoryBigram reconstructs a HistoryBigram from WriteBinary's
// format, re-deriving unigram/bigram counts from the saved sentences.
// A v1 stream (two pools) is accepted; its sentences load into the
// first two pools and the third pool starts empty.
func ReadHistoryBigram(r *bufio.Reader) (*HistoryBigram, error) {
	var magic, version, poolCount uint32
	if err := binary.Read(r, binary.BigEndian, &magic); err != nil {
		return nil, err
	}
	if magic != historyBigramMagic {
		return nil, fmt.Errorf("lm: bad history bigram magic %#x", magic)
	}
	if err := binary.Read(r, binary.BigEndian, &version); err != nil {
		return nil, err
	}
	if version != 1 && version != historyBigramVersion {
		return nil, fmt.Errorf("lm: unsupported history bigram version %d", version)
	}
	if err := binary.Read(r, binary.BigEndian, &poolCount); err != nil {
		return nil, err
	}
	h := NewHistoryBigram()
	for i := uint32(0); i < poolCount && int(i) < historyPoolCount; i++ {
		var nSent uint32
		if err := binary.Read(r, binary.BigEndian, &nSent); err != nil {
			return nil, err
		}
		for s := uint32(0); s < nSent; s++ {
			var nWord uint32
			if err := binary.Read(r, binary.BigEndian, &nWord); err != nil {
				return nil, err
			}
			sent := make([]string, nWord)
			for wIdx := uint32(0); wIdx < nWord; wIdx++ {
				var wLen uint32
				if err := binary.Read(r, binary.BigEndian, &wLen); err != nil {
					return nil, err
				}
				buf := make([]byte, wLen)
				if _, err := io.ReadFull(r, buf); err != nil {
					return nil, err
				}
				sent[wIdx] = string(buf)
			}
			h.addToPool(int(i), sent)
		}
	}
	return h, nil
}
