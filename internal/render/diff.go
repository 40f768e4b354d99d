package render

import (
	"fmt"
	"strings"

	"github.com/sergi/go-diff/diffmatchpatch"
	"gopkg.in/yaml.v3"
)

// LineType represents the type of a diff line.
type LineType int

const (
	LineContext  LineType = iota // ' ' prefix - unchanged line
	LineAddition                 // '+' prefix - added line
	LineDeletion                 // '-' prefix - deleted line
)

// DiffLine represents a single line of a document diff.
type DiffLine struct {
	Type       LineType
	OldLineNum int // 0 if addition
	NewLineNum int // 0 if deletion
	Content    string
}

// Diff is a line diff between two documents.
type Diff struct {
	OldName   string
	NewName   string
	Lines     []DiffLine
	Additions int
	Deletions int
}

// Changed reports whether the documents differ.
func (d *Diff) Changed() bool {
	return d.Additions > 0 || d.Deletions > 0
}

// DiffSchemas compares two schema versions through their YAML form. Lifecycle
// headers are compared too, so a diff always shows version and status changes.
func DiffSchemas(a, b SchemaDTO) (*Diff, error) {
	oldDoc, err := yaml.Marshal(a)
	if err != nil {
		return nil, fmt.Errorf("encoding %s: %w", a.ID, err)
	}
	newDoc, err := yaml.Marshal(b)
	if err != nil {
		return nil, fmt.Errorf("encoding %s: %w", b.ID, err)
	}
	return DiffText(
		fmt.Sprintf("%s v%d", a.Key, a.Version), string(oldDoc),
		fmt.Sprintf("%s v%d", b.Key, b.Version), string(newDoc),
	), nil
}

// DiffText computes a line diff of two texts.
func DiffText(oldName, oldText, newName, newText string) *Diff {
	dmp := diffmatchpatch.New()
	oldChars, newChars, lines := dmp.DiffLinesToChars(oldText, newText)
	diffs := dmp.DiffCharsToLines(dmp.DiffMain(oldChars, newChars, false), lines)

	d := &Diff{OldName: oldName, NewName: newName}
	oldNum, newNum := 1, 1
	for _, chunk := range diffs {
		for _, line := range splitLines(chunk.Text) {
			switch chunk.Type {
			case diffmatchpatch.DiffEqual:
				d.Lines = append(d.Lines, DiffLine{Type: LineContext, OldLineNum: oldNum, NewLineNum: newNum, Content: line})
				oldNum++
				newNum++
			case diffmatchpatch.DiffDelete:
				d.Lines = append(d.Lines, DiffLine{Type: LineDeletion, OldLineNum: oldNum, Content: line})
				oldNum++
				d.Deletions++
			case diffmatchpatch.DiffInsert:
				d.Lines = append(d.Lines, DiffLine{Type: LineAddition, NewLineNum: newNum, Content: line})
				newNum++
				d.Additions++
			}
		}
	}
	return d
}

// splitLines splits text into lines without their terminators. A trailing
// newline does not produce an empty final line.
func splitLines(text string) []string {
	text = strings.TrimSuffix(text, "\n")
	if text == "" {
		return nil
	}
	return strings.Split(text, "\n")
}

// Unified renders the diff with +/- markers. Context lines farther than
// context lines from a change are elided; a negative context keeps them all.
func (d *Diff) Unified(context int) string {
	var sb strings.Builder
	sb.WriteString(DiffDeletionStyle.Render("--- " + d.OldName))
	sb.WriteString("\n")
	sb.WriteString(DiffAdditionStyle.Render("+++ " + d.NewName))
	sb.WriteString("\n")

	if !d.Changed() {
		sb.WriteString(MutedStyle.Render("(no changes)"))
		sb.WriteString("\n")
		return sb.String()
	}

	keep := d.visible(context)
	elided := false
	for i, line := range d.Lines {
		if !keep[i] {
			if !elided {
				sb.WriteString(MutedStyle.Render("@@"))
				sb.WriteString("\n")
				elided = true
			}
			continue
		}
		elided = false
		switch line.Type {
		case LineAddition:
			sb.WriteString(DiffAdditionStyle.Render("+" + line.Content))
		case LineDeletion:
			sb.WriteString(DiffDeletionStyle.Render("-" + line.Content))
		case LineContext:
			sb.WriteString(DiffContextStyle.Render(" " + line.Content))
		}
		sb.WriteString("\n")
	}
	fmt.Fprintf(&sb, "%s %s\n",
		DiffAdditionStyle.Render(fmt.Sprintf("+%d", d.Additions)),
		DiffDeletionStyle.Render(fmt.Sprintf("-%d", d.Deletions)))
	return sb.String()
}

func (d *Diff) visible(context int) []bool {
	keep := make([]bool, len(d.Lines))
	if context < 0 {
		for i := range keep {
			keep[i] = true
		}
		return keep
	}
	for i, line := range d.Lines {
		if line.Type == LineContext {
			continue
		}
		for j := max(0, i-context); j <= min(len(d.Lines)-1, i+context); j++ {
			keep[j] = true
		}
	}
	return keep
}
