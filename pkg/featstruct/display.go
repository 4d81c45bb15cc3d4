package featstruct

import (
	"bufio"
	"io"
	"strings"
)

// DisplayUnification writes the matrices of a and b side by side, unifies
// them under bindings, and writes the result (or "(FAILED)") centred
// below. The bindings are written too when the unification bound any
// variable. The result and error are those of Unify.
func DisplayUnification(w io.Writer, a, b *Struct, bindings *Bindings) (*Struct, error) {
	return Unifier{}.Display(w, a, b, bindings)
}

// Display is DisplayUnification with u doing the unification.
func (u Unifier) Display(w io.Writer, a, b *Struct, bindings *Bindings) (*Struct, error) {
	if bindings == nil {
		bindings = &Bindings{}
	}
	const indent = "  "
	bw := bufio.NewWriter(w)

	alines := strings.Split(a.Matrix(), "\n")
	blines := strings.Split(b.Matrix(), "\n")
	awidth, bwidth := width(alines[0]), width(blines[0])
	for len(alines) < len(blines) {
		alines = append(alines, "["+strings.Repeat(" ", awidth-2)+"]")
	}
	for len(blines) < len(alines) {
		blines = append(blines, "["+strings.Repeat(" ", bwidth-2)+"]")
	}
	for i := range alines {
		bw.WriteString(indent + pad(alines[i], awidth) + "   " + blines[i] + "\n")
	}
	bw.WriteString(indent + strings.Repeat("-", awidth) + "   " + strings.Repeat("-", bwidth) + "\n")

	linelen := awidth + bwidth + 3
	for _, banner := range []string{"|               |", "+-----UNIFY-----+", "|", "V"} {
		bw.WriteString(indent + center(banner, linelen) + "\n")
	}

	result, err := u.Unify(a, b, bindings)
	switch {
	case err != nil:
		bw.WriteString(indent + center("(ERROR) "+err.Error(), linelen) + "\n")
	case result == nil:
		bw.WriteString(indent + center("(FAILED)", linelen) + "\n")
	default:
		for _, l := range strings.Split(result.Matrix(), "\n") {
			bw.WriteString(indent + center(l, linelen) + "\n")
		}
		if bindings.Len() > 0 {
			bw.WriteString(center(bindings.String(), linelen) + "\n")
		}
	}
	if ferr := bw.Flush(); ferr != nil && err == nil {
		return result, ferr
	}
	return result, err
}

func center(s string, w int) string {
	n := width(s)
	if n >= w {
		return s
	}
	left := (w - n) / 2
	return strings.Repeat(" ", left) + s + strings.Repeat(" ", w-n-left)
}
