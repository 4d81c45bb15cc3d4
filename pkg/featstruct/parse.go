package featstruct

import (
	"regexp"
	"strconv"
	"strings"
)

var (
	nameRe       = regexp.MustCompile(`^\s*([^\s()"'\-=\[\],]+)\s*`)
	identRe      = regexp.MustCompile(`^\s*\((\d+)\)\s*`)
	reentranceRe = regexp.MustCompile(`^\s*->\s*`)
	assignRe     = regexp.MustCompile(`^\s*=\s*`)
	closeRe      = regexp.MustCompile(`^\s*]\s*`)
	commaRe      = regexp.MustCompile(`^\s*,\s*`)
	varRe        = regexp.MustCompile(`^\?(?:<[a-zA-Z_][a-zA-Z0-9_]*(?:=[a-zA-Z_][a-zA-Z0-9_]*)*>|[a-zA-Z_][a-zA-Z0-9_]*)`)
	intRe        = regexp.MustCompile(`^-?\d+`)
	symbolRe     = regexp.MustCompile(`^\w+`)
)

// Parse reads the single-line form written by String:
//
//	[num='sg', agr=(1)[per=3], subj=[agr->(1)], x=?v, y=?<a=b>, z=None]
//
// Values are quoted strings, integers, None, True, False, bare
// alphanumeric symbols (read as strings), variables, and nested
// structures. (N) before a value tags it; name->(N) refers back to the
// tagged value by identity. A structure may refer to a tag while that
// structure is still being read, so cyclic structures round-trip.
func Parse(s string) (*Struct, error) {
	fs, end, err := ParseAt(s, 0)
	if err != nil {
		return nil, err
	}
	if end != len(s) {
		return nil, &ParseError{Input: s, Offset: end, Expected: "end of string"}
	}
	return fs, nil
}

// MustParse is like Parse but panics on error.
func MustParse(s string) *Struct {
	fs, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return fs
}

// ParseAt reads one structure starting at byte offset pos of s and
// returns it with the offset just past it (and any trailing whitespace).
// Tags are local to the call.
func ParseAt(s string, pos int) (*Struct, int, error) {
	p := &parser{s: s, ids: make(map[string]any)}
	pos = skipSpace(s, pos)
	var id string
	if m := identRe.FindStringSubmatch(s[pos:]); m != nil {
		id = m[1]
		pos += len(m[0])
	}
	return p.parseStruct(pos, id)
}

type parser struct {
	s   string
	ids map[string]any
}

func (p *parser) fail(pos int, expected string) error {
	return &ParseError{Input: p.s, Offset: pos, Expected: expected}
}

func (p *parser) match(re *regexp.Regexp, pos int) []int {
	loc := re.FindStringSubmatchIndex(p.s[pos:])
	if loc == nil {
		return nil
	}
	for i := range loc {
		if loc[i] >= 0 {
			loc[i] += pos
		}
	}
	return loc
}

// parseStruct reads [ ... ] at pos. A non-empty id is registered before
// the features are read.
func (p *parser) parseStruct(pos int, id string) (*Struct, int, error) {
	if pos >= len(p.s) || p.s[pos] != '[' {
		return nil, pos, p.fail(pos, "open bracket")
	}
	pos++

	fs := &Struct{features: make(map[string]any)}
	if id != "" {
		p.ids[id] = fs
	}

	if m := p.match(closeRe, pos); m != nil {
		return fs, m[1], nil
	}

	for pos < len(p.s) {
		m := p.match(nameRe, pos)
		if m == nil {
			return nil, pos, p.fail(pos, "feature name")
		}
		name := p.s[m[2]:m[3]]
		pos = m[1]

		if m := p.match(reentranceRe, pos); m != nil {
			pos = m[1]
			m = p.match(identRe, pos)
			if m == nil {
				return nil, pos, p.fail(pos, "identifier")
			}
			target := p.s[m[2]:m[3]]
			pos = m[1]
			val, ok := p.ids[target]
			if !ok {
				return nil, pos, p.fail(pos, "bound identifier")
			}
			fs.features[name] = val
		} else {
			// The tag may come before or after the equals sign.
			id, pos2, err := p.tag(pos)
			if err != nil {
				return nil, pos2, err
			}
			pos = pos2
			m = p.match(assignRe, pos)
			if m == nil {
				return nil, pos, p.fail(pos, "equals sign")
			}
			pos = m[1]
			if id == "" {
				if id, pos, err = p.tag(pos); err != nil {
					return nil, pos, err
				}
			}
			val, end, err := p.parseValue(pos, id)
			if err != nil {
				return nil, end, err
			}
			pos = end
			fs.features[name] = val
			if id != "" {
				p.ids[id] = val
			}
		}

		if m := p.match(closeRe, pos); m != nil {
			return fs, m[1], nil
		}
		m = p.match(commaRe, pos)
		if m == nil {
			return nil, pos, p.fail(pos, "comma")
		}
		pos = m[1]
	}
	return nil, pos, p.fail(pos, "close bracket")
}

// tag reads an optional (N) at pos.
func (p *parser) tag(pos int) (string, int, error) {
	m := p.match(identRe, pos)
	if m == nil {
		return "", pos, nil
	}
	id := p.s[m[2]:m[3]]
	if _, dup := p.ids[id]; dup {
		return "", pos + 1, p.fail(pos+1, "new identifier")
	}
	return id, m[1], nil
}

func (p *parser) parseValue(pos int, id string) (any, int, error) {
	s := p.s
	if pos >= len(s) {
		return nil, pos, p.fail(pos, "value")
	}

	switch s[pos] {
	case '\'', '"':
		return p.parseString(pos)
	case '[':
		return p.parseStruct(pos, id)
	}

	if m := p.match(varRe, pos); m != nil {
		v, err := ParseVariable(s[m[0]:m[1]])
		if err != nil {
			return nil, pos, p.fail(pos, "variable")
		}
		return v, m[1], nil
	}
	for _, kw := range []struct {
		text string
		val  any
	}{{"None", nil}, {"True", true}, {"False", false}} {
		if strings.HasPrefix(s[pos:], kw.text) && p.atValueEnd(pos+len(kw.text)) {
			return kw.val, pos + len(kw.text), nil
		}
	}
	if m := p.match(intRe, pos); m != nil && p.atValueEnd(m[1]) {
		n, err := strconv.Atoi(s[m[0]:m[1]])
		if err != nil {
			return nil, pos, p.fail(pos, "integer")
		}
		return n, m[1], nil
	}
	if m := p.match(symbolRe, pos); m != nil {
		return s[m[0]:m[1]], m[1], nil
	}
	return nil, pos, p.fail(pos, "value")
}

// atValueEnd reports whether a value may end at pos.
func (p *parser) atValueEnd(pos int) bool {
	if pos == len(p.s) {
		return true
	}
	switch p.s[pos] {
	case ' ', '\t', '\n', '\r', ']', ',':
		return true
	}
	return false
}

// parseString reads a quoted string starting at pos. Backslash escapes
// \n, \t and \r; any other escaped character stands for itself.
func (p *parser) parseString(pos int) (any, int, error) {
	s := p.s
	quote := s[pos]
	var sb strings.Builder
	i := pos + 1
	for i < len(s) {
		c := s[i]
		switch {
		case c == quote:
			return sb.String(), i + 1, nil
		case c == '\\' && i+1 < len(s):
			i++
			switch s[i] {
			case 'n':
				sb.WriteByte('\n')
			case 't':
				sb.WriteByte('\t')
			case 'r':
				sb.WriteByte('\r')
			default:
				sb.WriteByte(s[i])
			}
		default:
			sb.WriteByte(c)
		}
		i++
	}
	return nil, i, p.fail(i, "close quote")
}

func skipSpace(s string, pos int) int {
	for pos < len(s) {
		switch s[pos] {
		case ' ', '\t', '\n', '\r':
			pos++
			continue
		}
		break
	}
	return pos
}
