package lm

import (
	"sort"

	"github.com/fcitx/libime-go/datrie"
)

// Prediction is a candidate next word with its pool-weighted score.
type Prediction struct {
	Word  string
	Score float64
}

// Predictor suggests likely next words from the bigram evidence
// accumulated in a HistoryBigram, without touching the static model.
type Predictor struct {
	history *HistoryBigram
}

func NewPredictor(history *HistoryBigram) *Predictor {
	return &Predictor{history}
}

// Predict returns up to topK words that have followed prev in
// previously committed sentences, ranked by pool-weighted bigram
// count (ties broken lexicographically for determinism). topK <= 0
// means unlimited.
func (p *Predictor) Predict(prev string, topK int) []Prediction {
	prefix := bigramKey(prev, "")
	scores := map[string]float64{}

	for i, pool := range p.history.pools {
		w := p.history.weights[i]
		pos, ok := pool.bigram.Traverse(pool.bigram.Root(), prefix)
		if !ok {
			continue
		}
		pool.bigram.Foreach(pos, func(e datrie.Entry[uint32]) bool {
			full := pool.bigram.Suffix(e.Pos, len(prefix)+e.Depth)
			next := string(full[len(prefix):])
			scores[next] += float64(e.Value) * w
			return true
		})
	}

	out := make([]Prediction, 0, len(scores))
	for word, score := range scores {
		out = append(out, Prediction{word, score})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Score != out[j].Score {
			return out[i].Score > out[j].Score
		}
		return out[i].Word < out[j].Word
	})
	if topK > 0 && len(out) > topK {
		out = out[:topK]
	}
	return out
}
