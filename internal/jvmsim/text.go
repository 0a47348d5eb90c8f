package jvmsim

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/sergi/go-diff/diffmatchpatch"
)

var labelPattern = regexp.MustCompile(`\bL[0-9]{3,}\b`)

// NormalizeLabels renumbers the labels of an assembly text in order of
// first appearance, starting with L001, so that texts generated at different
// label counter states compare equal.
func NormalizeLabels(text string) string {
	names := make(map[string]string)
	return labelPattern.ReplaceAllStringFunc(text, func(l string) string {
		n, ok := names[l]
		if !ok {
			n = fmt.Sprintf("L%03d", len(names)+1)
			names[l] = n
		}
		return n
	})
}

// Diff returns a line diff of two texts, with removed lines prefixed by "-"
// and added lines by "+". It returns "" if the texts are equal.
func Diff(want, got string) string {
	if want == got {
		return ""
	}
	dmp := diffmatchpatch.New()
	a, b, lines := dmp.DiffLinesToChars(want, got)
	diffs := dmp.DiffCharsToLines(dmp.DiffMain(a, b, false), lines)
	var sb strings.Builder
	for _, d := range diffs {
		prefix := "  "
		switch d.Type {
		case diffmatchpatch.DiffDelete:
			prefix = "- "
		case diffmatchpatch.DiffInsert:
			prefix = "+ "
		}
		for _, line := range strings.SplitAfter(d.Text, "\n") {
			if line == "" {
				continue
			}
			sb.WriteString(prefix + strings.TrimSuffix(line, "\n") + "\n")
		}
	}
	return sb.String()
}

// Instructions returns the instruction lines of a method in an assembly
// text, without labels, directives and comments, each as the mnemonic and
// operands separated by single spaces.
func Instructions(text, method string) []string {
	var out []string
	in := false
	for _, line := range strings.Split(text, "\n") {
		t := strings.TrimSpace(line)
		switch {
		case strings.HasPrefix(t, ".method") && strings.HasSuffix(t, " "+method):
			in = true
		case in && t == ".end method":
			return out
		case in && t != "" && !strings.HasPrefix(t, ".") && !strings.HasPrefix(t, ";") && !strings.HasSuffix(t, ":"):
			out = append(out, strings.Join(strings.Fields(t), " "))
		}
	}
	return out
}
