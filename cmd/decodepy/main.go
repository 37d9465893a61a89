// Command decodepy decodes a corpus of raw pinyin keystroke lines
// against a compiled pinyin dictionary and language model, printing
// each line's best sentence and aggregate timing -- the pinyin-decode
// analogue of the teacher's cmd/score corpus-scoring loop.
package main

import (
	"bufio"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/golang/glog"

	"github.com/fcitx/libime-go/dictionary"
	"github.com/fcitx/libime-go/imcontext"
	"github.com/fcitx/libime-go/lm"
	"github.com/fcitx/libime-go/pinyin"
)

func main() {
	dictPath := flag.String("dict", "", "binary pinyin dictionary (buildpydict output)")
	arpaPath := flag.String("arpa", "", "ARPA-format language model (mutually exclusive with -lmbin)")
	lmbinPath := flag.String("lmbin", "", "mmapped binary language model (mutually exclusive with -arpa)")
	historyWeight := flag.Float64("history_weight", 0, "adaptive history-bigram mix weight in [0, 1]")
	fuzzy := flag.Bool("fuzzy", false, "decode with every fuzzy flag active")
	flag.Parse()
	defer glog.Flush()

	if *dictPath == "" {
		glog.Fatal("-dict is required")
	}
	if (*arpaPath == "") == (*lmbinPath == "") {
		glog.Fatal("exactly one of -arpa or -lmbin is required")
	}

	dictFile, err := os.Open(*dictPath)
	if err != nil {
		glog.Fatalf("opening %s: %v", *dictPath, err)
	}
	defer dictFile.Close()
	dict := dictionary.NewPinyinDictionary(1, nil)
	if err := dict.LoadBinary(0, dictFile); err != nil {
		glog.Fatalf("loading %s: %v", *dictPath, err)
	}

	var staticModel lm.Model
	if *arpaPath != "" {
		builder, err := lm.FromARPAFile(*arpaPath)
		if err != nil {
			glog.Fatalf("loading %s: %v", *arpaPath, err)
		}
		staticModel = builder.DumpHashed(0)
	} else {
		_, modelI, backing, err := lm.FromBinary(*lmbinPath)
		if err != nil {
			glog.Fatalf("loading %s: %v", *lmbinPath, err)
		}
		defer backing.Close()
		staticModel = modelI.(lm.Model)
	}

	static := lm.NewStaticLanguageModel(staticModel)
	history := lm.NewHistoryBigram()
	model := lm.NewUserLanguageModel(static, history, *historyWeight)

	fuzzyFlag := pinyin.None
	if *fuzzy {
		fuzzyFlag = pinyin.All
	}

	in := bufio.NewScanner(os.Stdin)
	var numLines, numRunes int
	elapsed := timed(func() {
		for in.Scan() {
			line := in.Text()
			if line == "" {
				continue
			}
			c := imcontext.NewPinyinContext(dict, model)
			c.Fuzzy = fuzzyFlag
			c.Type(line)
			if cands := c.Candidates(); len(cands) > 0 {
				c.Select(0)
			}
			fmt.Printf("%s\t%s\n", line, c.SelectedSentence())
			numLines++
			numRunes += c.SelectedLength()
		}
	})
	if err := in.Err(); err != nil {
		glog.Fatalf("reading stdin: %v", err)
	}
	glog.Infof("decoded %d lines, %d hanzi, in %v (%.1f lines/s)",
		numLines, numRunes, elapsed, float64(numLines)/elapsed.Seconds())
}

func timed(f func()) time.Duration {
	start := time.Now()
	f()
	return time.Since(start)
}
