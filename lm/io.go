package lm

import (
	"bufio"
	"compress/gzip"
	"encoding/gob"
	"fmt"
	"io"
	"os"
)

func FromGob(in io.Reader) (*Hashed, error) {
	var m Hashed
	if err := gob.NewDecoder(in).Decode(&m); err != nil {
		return nil, err
	}
	return &m, nil
}

func FromGobFile(path string) (*Hashed, error) {
	in, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer in.Close()
	return FromGob(in)
}

// FromARPA parses a complete ARPA-format language model from in into
// a fresh Builder. The caller picks DumpHashed or DumpSorted.
func FromARPA(in io.Reader) (*Builder, error) {
	builder := NewBuilder(nil, "", "")
	if err := ParseARPA(in, builder); err != nil {
		return nil, err
	}
	return builder, nil
}

// FromARPAFile opens path and parses it as an ARPA-format language
// model, transparently gunzipping when the file is gzip-compressed
// (sniffed from its magic bytes, not from the file extension).
func FromARPAFile(path string) (*Builder, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	br := bufio.NewReader(f)
	magic, err := br.Peek(2)
	if err != nil && err != io.EOF {
		return nil, err
	}
	var r io.Reader = br
	if len(magic) == 2 && magic[0] == 0x1f && magic[1] == 0x8b {
		gz, err := gzip.NewReader(br)
		if err != nil {
			return nil, err
		}
		defer gz.Close()
		r = gz
	}
	return FromARPA(r)
}

// FromBinary mmaps path and dispatches on its magic word to load
// either a Hashed or a Sorted model without copying the transition
// table. kind is MODEL_HASHED or MODEL_SORTED; model is the
// corresponding *Hashed or *Sorted. backing must be closed once model
// is no longer used.
func FromBinary(path string) (kind int, model interface{}, backing *MappedFile, err error) {
	backing, err = OpenMappedFile(path)
	if err != nil {
		return 0, nil, nil, err
	}
	switch {
	case len(backing.data) >= len(hashedMagic) && string(backing.data[:len(hashedMagic)]) == hashedMagic:
		var m Hashed
		if err = m.unsafeParseBinary(backing.data); err != nil {
			backing.Close()
			return 0, nil, nil, err
		}
		return MODEL_HASHED, &m, backing, nil
	case len(backing.data) >= len(MAGIC_SORTED) && string(backing.data[:len(MAGIC_SORTED)]) == MAGIC_SORTED:
		var m Sorted
		if err = m.UnsafeParseBinary(backing.data); err != nil {
			backing.Close()
			return 0, nil, nil, err
		}
		return MODEL_SORTED, &m, backing, nil
	default:
		backing.Close()
		return 0, nil, nil, fmt.Errorf("lm: unrecognized binary model magic in %s", path)
	}
}
