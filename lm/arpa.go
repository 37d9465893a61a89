package lm

// ARPA file parsing. Tokenizes with a plain bufio.Scanner driven by a
// small explicit state machine instead of an iteratee combinator
// library; the line/token lexer below is otherwise unchanged.

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"strconv"
)

// arpaScanner walks an ARPA file one logical line at a time (blank
// lines and surrounding whitespace already stripped by lineSplit).
type arpaScanner struct {
	sc   *bufio.Scanner
	line []byte
	ok   bool
}

func newArpaScanner(r io.Reader) *arpaScanner {
	sc := bufio.NewScanner(r)
	sc.Split(lineSplit)
	s := &arpaScanner{sc: sc}
	s.advance()
	return s
}

func (s *arpaScanner) advance() {
	s.ok = s.sc.Scan()
	if s.ok {
		s.line = s.sc.Bytes()
	} else {
		s.line = nil
	}
}

// ParseARPA reads a complete ARPA-format language model from r and
// feeds every n-gram entry into builder.
func ParseARPA(r io.Reader, builder *Builder) error {
	s := newArpaScanner(r)

	if !s.ok || string(s.line) != `\data\` {
		return fmt.Errorf(`lm: arpa: expected \data\`)
	}
	s.advance()

	// Skip the n-gram-count section; we don't need the counts since
	// the builder grows its state space on demand.
	for s.ok && len(s.line) > 0 && s.line[0] != '\\' {
		s.advance()
	}

	for s.ok && len(s.line) > 0 && s.line[0] == '\\' && bytes.HasSuffix(s.line, []byte("-grams:")) {
		n, err := strconv.Atoi(string(s.line[1 : len(s.line)-len("-grams:")]))
		if err != nil || n <= 0 {
			return fmt.Errorf("lm: arpa: bad section header %q", s.line)
		}
		s.advance()

		ent := newNgramWeights(n, builder)
		for s.ok && (len(s.line) == 0 || s.line[0] != '\\') {
			if err := ent.setParts(s.line); err != nil {
				return fmt.Errorf("lm: arpa: %w", err)
			}
			builder.AddNgram(ent.context, ent.word, ent.p, ent.bow)
			s.advance()
		}
	}

	if err := s.sc.Err(); err != nil {
		return err
	}
	if !s.ok || string(s.line) != `\end\` {
		return fmt.Errorf(`lm: arpa: expected \end\`)
	}
	s.advance()
	if s.ok {
		return fmt.Errorf(`lm: arpa: trailing data after \end\`)
	}
	return s.sc.Err()
}

// ngramWeights parses the fields of one n-gram line of a fixed order.
type ngramWeights struct {
	n int
	// These are for avoiding repeated space allocation.
	p, bow  Weight
	context []string
	word    string
}

// newNgramWeights constructs scratch state for parsing n-grams of
// order n. builder is accepted but not retained; it only shapes the
// call site to read naturally alongside ParseARPA.
func newNgramWeights(n int, builder *Builder) *ngramWeights {
	return &ngramWeights{n, 0, 0, make([]string, n-1), ""}
}

func (it *ngramWeights) setParts(line []byte) error {
	// p
	x, xs := tokenSplit(line)
	if x == "" {
		return fmt.Errorf("expected log-probability")
	}
	f, err := strconv.ParseFloat(x, WEIGHT_SIZE)
	if err != nil {
		return err
	}
	it.p = Weight(f)
	// context
	for i := 1; i < it.n; i++ {
		x, xs = tokenSplit(xs)
		if x == "" {
			return fmt.Errorf("expected %d context word(s)", it.n-1)
		}
		it.context[i-1] = x
	}
	// word
	x, xs = tokenSplit(xs)
	if x == "" {
		return fmt.Errorf("expected word")
	}
	it.word = x
	// bow
	x, xs = tokenSplit(xs)
	if x == "" {
		it.bow = 0
	} else if f, err := strconv.ParseFloat(x, WEIGHT_SIZE); err == nil {
		it.bow = Weight(f)
	} else {
		return err
	}
	// no extra stuff
	if len(xs) != 0 {
		return fmt.Errorf("expected end of line")
	}
	return nil
}

// Low-level lexer code.

func isSpace(b byte) bool {
	switch b {
	case '\t', '\v', '\f', '\r', ' ':
		return true
	default:
		return false
	}
}

func lineSplit(data []byte, atEOF bool) (int, []byte, error) {
	l, r, n := -1, -1, 0
	// Skip leading spaces or newlines.
	for i, b := range data {
		if !isSpace(b) && b != '\n' {
			l = i
			break
		}
	}
	if l < 0 {
		return len(data), nil, nil
	}
	// Find newline.
	for i, b := range data[l+1:] {
		if b == '\n' {
			r, n = l+i, l+i+2
			break
		}
	}
	if r < 0 {
		if !atEOF {
			return l, nil, nil
		}
		r, n = len(data)-1, len(data)
	}
	// Trim trailing spaces.
	for isSpace(data[r]) {
		// At most we shall stop at l.
		r--
	}
	return n, data[l : r+1], nil
}

func tokenSplit(line []byte) (string, []byte) {
	// Assuming line has no leading space.
	r := -1
	for i, b := range line {
		if isSpace(b) {
			r = i
			break
		}
	}
	if r < 0 {
		r = len(line)
	}
	token := string(line[:r])
	// Skip trailing spaces.
	for i, b := range line[r:] {
		if !isSpace(b) {
			return token, line[r+i:]
		}
	}
	return token, nil
}
