package lexicon

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"strings"

	"github.com/hack-pad/hackpadfs"

	"github.com/kittclouds/gofeat/pkg/featstruct"
)

// Load reads a lexicon file from fsys and compiles it. See Read for the format.
func Load(fsys hackpadfs.FS, path string) (*Lexicon, error) {
	content, err := hackpadfs.ReadFile(fsys, path)
	if err != nil {
		return nil, fmt.Errorf("failed to read lexicon: %w", err)
	}
	lex, err := Read(bytes.NewReader(content))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return lex, nil
}

// Read parses lines of the form
//
//	word forms : [feature structure]
//
// Blank lines and lines starting with # are skipped. The result is compiled.
func Read(r io.Reader) (*Lexicon, error) {
	lex := New()
	sc := bufio.NewScanner(r)
	lineno := 0
	for sc.Scan() {
		lineno++
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		word, cat, ok := strings.Cut(line, ":")
		if !ok {
			return nil, fmt.Errorf("line %d: expected 'word : [features]'", lineno)
		}
		fs, err := featstruct.Parse(strings.TrimSpace(cat))
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", lineno, err)
		}
		lex.Add(word, fs)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("failed to read lexicon: %w", err)
	}
	lex.Compile()
	return lex, nil
}
