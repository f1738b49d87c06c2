package snapdiff

import (
	"fmt"
	"strings"

	"github.com/sergi/go-diff/diffmatchpatch"
)

// contextLines is the number of unchanged lines shown around each hunk.
const contextLines = 3

// opcode describes one run of the line diff. tag is 'e' (equal), 'd'
// (delete) or 'i' (insert); the half-open ranges index into the old and
// new line slices.
type opcode struct {
	tag            byte
	i1, i2, j1, j2 int
	lines          []string
}

// splitKeepEnds splits text into lines that keep their terminators, so a
// CRLF to LF rewrite still registers as a modification.
func splitKeepEnds(text string) []string {
	if text == "" {
		return nil
	}
	lines := strings.SplitAfter(text, "\n")
	if lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
	}

	return lines
}

// lineOpcodes runs a line-granularity diff and converts it into opcodes.
func lineOpcodes(oldText, newText string) []opcode {
	dmp := diffmatchpatch.New()
	src, dst, lineArray := dmp.DiffLinesToRunes(oldText, newText)
	diffs := dmp.DiffMainRunes(src, dst, false)
	diffs = dmp.DiffCharsToLines(diffs, lineArray)

	var codes []opcode
	oldIdx, newIdx := 0, 0
	for _, d := range diffs {
		lines := splitKeepEnds(d.Text)
		if len(lines) == 0 {
			continue
		}
		n := len(lines)
		switch d.Type {
		case diffmatchpatch.DiffEqual:
			codes = append(codes, opcode{'e', oldIdx, oldIdx + n, newIdx, newIdx + n, lines})
			oldIdx += n
			newIdx += n
		case diffmatchpatch.DiffDelete:
			codes = append(codes, opcode{'d', oldIdx, oldIdx + n, newIdx, newIdx, lines})
			oldIdx += n
		case diffmatchpatch.DiffInsert:
			codes = append(codes, opcode{'i', oldIdx, oldIdx, newIdx, newIdx + n, lines})
			newIdx += n
		}
	}

	return codes
}

// groupOpcodes trims leading and trailing context and splits the opcode
// stream wherever an equal run exceeds twice the context size.
func groupOpcodes(codes []opcode) [][]opcode {
	if len(codes) == 0 {
		return nil
	}

	const n = contextLines

	// Trim the ends in place on copies.
	if c := codes[0]; c.tag == 'e' && c.i2-c.i1 > n {
		keep := c.lines[len(c.lines)-n:]
		codes[0] = opcode{'e', c.i2 - n, c.i2, c.j2 - n, c.j2, keep}
	}
	if c := codes[len(codes)-1]; c.tag == 'e' && c.i2-c.i1 > n {
		keep := c.lines[:n]
		codes[len(codes)-1] = opcode{'e', c.i1, c.i1 + n, c.j1, c.j1 + n, keep}
	}

	var groups [][]opcode
	var group []opcode
	for _, c := range codes {
		if c.tag == 'e' && c.i2-c.i1 > 2*n {
			head := opcode{'e', c.i1, c.i1 + n, c.j1, c.j1 + n, c.lines[:n]}
			group = append(group, head)
			groups = append(groups, group)
			tail := opcode{'e', c.i2 - n, c.i2, c.j2 - n, c.j2, c.lines[len(c.lines)-n:]}
			group = []opcode{tail}
			continue
		}
		group = append(group, c)
	}
	if len(group) > 0 && !(len(group) == 1 && group[0].tag == 'e') {
		groups = append(groups, group)
	}

	return groups
}

// formatRange renders one side of a hunk header. A single line omits the
// count; an empty range points at the line before the change.
func formatRange(start, stop int) string {
	beginning := start + 1
	length := stop - start
	if length == 1 {
		return fmt.Sprintf("%d", beginning)
	}
	if length == 0 {
		beginning--
	}

	return fmt.Sprintf("%d,%d", beginning, length)
}

func chompLine(line string) string {
	line = strings.TrimSuffix(line, "\n")

	return strings.TrimSuffix(line, "\r")
}

// unifiedDiffLines renders a unified diff between two texts with a/ and b/
// path labels. The result is nil when the texts are identical at line
// granularity.
func unifiedDiffLines(oldText, newText, relPath string) []string {
	groups := groupOpcodes(lineOpcodes(oldText, newText))
	if len(groups) == 0 {
		return nil
	}

	out := []string{
		"--- a/" + relPath,
		"+++ b/" + relPath,
	}
	for _, group := range groups {
		first, last := group[0], group[len(group)-1]
		out = append(out, fmt.Sprintf("@@ -%s +%s @@",
			formatRange(first.i1, last.i2), formatRange(first.j1, last.j2)))
		for _, c := range group {
			var marker string
			switch c.tag {
			case 'e':
				marker = " "
			case 'd':
				marker = "-"
			case 'i':
				marker = "+"
			}
			for _, line := range c.lines {
				out = append(out, marker+chompLine(line))
			}
		}
	}

	return out
}
