package featstruct

import (
	"fmt"
	"strconv"
	"strings"
	"unicode/utf8"
)

// printer assigns reentrance tags in display order.
type printer struct {
	reentrant map[*Struct]bool
	ids       map[*Struct]int
}

func newPrinter(root *Struct) *printer {
	return &printer{reentrant: findReentrances(root), ids: make(map[*Struct]int)}
}

func (p *printer) tag(s *Struct) (int, bool) {
	if !p.reentrant[s] {
		return 0, false
	}
	id := len(p.ids) + 1
	p.ids[s] = id
	return id, true
}

// String returns the single-line form, e.g. [A=(1)[B='b'], C->(1)].
// Features are sorted by name, so equal-valued structures with the same
// reentrance print identically.
func (fs *Struct) String() string {
	var sb strings.Builder
	newPrinter(fs).repr(&sb, fs)
	return sb.String()
}

func (p *printer) repr(sb *strings.Builder, s *Struct) {
	if id, ok := p.tag(s); ok {
		fmt.Fprintf(sb, "(%d)", id)
	}
	sb.WriteByte('[')
	for i, name := range s.FeatureNames() {
		if i > 0 {
			sb.WriteString(", ")
		}
		val := s.features[name]
		child, isStruct := val.(*Struct)
		switch {
		case !isStruct:
			sb.WriteString(name)
			sb.WriteByte('=')
			sb.WriteString(reprValue(val))
		case p.ids[child] != 0:
			fmt.Fprintf(sb, "%s->(%d)", name, p.ids[child])
		default:
			sb.WriteString(name)
			sb.WriteByte('=')
			p.repr(sb, child)
		}
	}
	sb.WriteByte(']')
}

// Matrix returns the multi-line feature value matrix form.
func (fs *Struct) Matrix() string {
	return strings.Join(newPrinter(fs).matrix(fs), "\n")
}

func (p *printer) matrix(s *Struct) []string {
	id, reentrant := p.tag(s)

	if len(s.features) == 0 {
		if reentrant {
			return []string{fmt.Sprintf("(%d) []", id)}
		}
		return []string{"[]"}
	}

	names := s.FeatureNames()
	namew := 0
	for _, name := range names {
		namew = max(namew, width(name))
	}

	var lines []string
	for _, name := range names {
		val := s.features[name]
		child, isStruct := val.(*Struct)
		switch {
		case !isStruct:
			lines = append(lines, pad(name, namew)+" = "+reprValue(val))
		case p.ids[child] != 0:
			lines = append(lines, fmt.Sprintf("%s -> (%d)", pad(name, namew), p.ids[child]))
		default:
			if len(lines) > 0 && lines[len(lines)-1] != "" {
				lines = append(lines, "")
			}
			sub := p.matrix(child)
			indent := strings.Repeat(" ", namew+3)
			for i := range sub {
				sub[i] = indent + sub[i]
			}
			nameline := (len(sub) - 1) / 2
			sub[nameline] = pad(name, namew) + " =" + sub[nameline][namew+2:]
			lines = append(lines, sub...)
			lines = append(lines, "")
		}
	}
	if lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
	}

	maxw := 0
	for _, l := range lines {
		maxw = max(maxw, width(l))
	}
	for i, l := range lines {
		lines[i] = "[ " + pad(l, maxw) + " ]"
	}

	if reentrant {
		idstr := fmt.Sprintf("(%d) ", id)
		blank := strings.Repeat(" ", len(idstr))
		for i := range lines {
			lines[i] = blank + lines[i]
		}
		idline := (len(lines) - 1) / 2
		lines[idline] = idstr + lines[idline][len(idstr):]
	}
	return lines
}

func width(s string) int { return utf8.RuneCountInString(s) }

func pad(s string, w int) string {
	if n := width(s); n < w {
		return s + strings.Repeat(" ", w-n)
	}
	return s
}

// reprValue renders a non-structure value the way Parse reads it back.
func reprValue(v any) string {
	switch x := v.(type) {
	case nil:
		return "None"
	case string:
		return quote(x)
	case bool:
		if x {
			return "True"
		}
		return "False"
	case int:
		return strconv.Itoa(x)
	case VarTerm:
		return x.String()
	case *Struct:
		return x.String()
	}
	return fmt.Sprint(v)
}

// quote single-quotes s unless it holds a single quote and no double quote.
func quote(s string) string {
	q := byte('\'')
	if strings.IndexByte(s, '\'') >= 0 && strings.IndexByte(s, '"') < 0 {
		q = '"'
	}
	var sb strings.Builder
	sb.WriteByte(q)
	for i := 0; i < len(s); i++ {
		switch c := s[i]; c {
		case '\\', q:
			sb.WriteByte('\\')
			sb.WriteByte(c)
		case '\n':
			sb.WriteString(`\n`)
		case '\t':
			sb.WriteString(`\t`)
		case '\r':
			sb.WriteString(`\r`)
		default:
			sb.WriteByte(c)
		}
	}
	sb.WriteByte(q)
	return sb.String()
}
