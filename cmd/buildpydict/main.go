// Command buildpydict compiles a text-format pinyin dictionary (lines
// of "hanzi full'pinyin [cost]") into the binary format
// dictionary.PinyinDictionary.LoadBinary reads.
package main

import (
	"flag"
	"os"

	"github.com/golang/glog"

	"github.com/fcitx/libime-go/dictionary"
)

func main() {
	input := flag.String("input", "-", "text dictionary path, - for stdin")
	output := flag.String("output", "-", "binary dictionary path, - for stdout")
	flag.Parse()
	defer glog.Flush()

	in := os.Stdin
	if *input != "-" {
		f, err := os.Open(*input)
		if err != nil {
			glog.Fatalf("opening %s: %v", *input, err)
		}
		defer f.Close()
		in = f
	}

	d := dictionary.NewPinyinDictionary(1, nil)
	if err := d.LoadText(0, in); err != nil {
		glog.Fatalf("loading %s: %v", *input, err)
	}

	out := os.Stdout
	if *output != "-" {
		f, err := os.Create(*output)
		if err != nil {
			glog.Fatalf("creating %s: %v", *output, err)
		}
		defer f.Close()
		out = f
	}
	if err := d.Save(0, out); err != nil {
		glog.Fatalf("writing %s: %v", *output, err)
	}
}
