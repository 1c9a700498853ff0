// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package ticketui

import (
	"fmt"
	"io"
	"strings"

	"github.com/alecthomas/chroma/v2/quick"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"
	"github.com/muesli/termenv"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	extast "github.com/yuin/goldmark/extension/ast"
	"github.com/yuin/goldmark/text"

	"github.com/bureau-foundation/tkr/lib/schema/ticket"
	"github.com/bureau-foundation/tkr/lib/tui"
)

var markdownParser = goldmark.New(goldmark.WithExtensions(extension.GFM))

// wrapBreakpoints are the characters besides spaces a long line may
// break after.
const wrapBreakpoints = " ,.;-+|/"

// renderMarkdown renders a ticket body section for the terminal at the
// given width. Soft line breaks become spaces so hard-wrapped source
// reflows to the pane.
func renderMarkdown(source string, theme tui.Theme, width int) string {
	if strings.TrimSpace(source) == "" {
		return ""
	}
	input := []byte(source)
	document := markdownParser.Parser().Parse(text.NewReader(input))

	// The output always goes to the bubbletea screen, so colors are
	// forced rather than detected from the (possibly non-tty) stderr.
	renderer := lipgloss.NewRenderer(io.Discard, termenv.WithProfile(termenv.ANSI256))
	renderer.SetColorProfile(termenv.ANSI256)

	writer := &markdownWriter{
		source:   input,
		theme:    theme,
		width:    width,
		renderer: renderer,
	}
	ast.Walk(document, writer.visit)
	return strings.TrimRight(writer.out.String(), "\n")
}

// markdownWriter accumulates inline content per block and wraps it
// when the block closes.
type markdownWriter struct {
	source   []byte
	theme    tui.Theme
	width    int
	renderer *lipgloss.Renderer

	out    strings.Builder
	inline strings.Builder

	// indent is the prefix for continuation lines; bullet, when set,
	// replaces it for the next line only.
	indent []string
	bullet string

	lists []listFrame
	cells []string

	bold, italic, struck int
	newlines             int
}

type listFrame struct {
	ordered bool
	next    int
	tight   bool
}

func (writer *markdownWriter) style() lipgloss.Style {
	return writer.renderer.NewStyle()
}

func (writer *markdownWriter) prefix() string {
	return strings.Join(writer.indent, "")
}

func (writer *markdownWriter) available() int {
	return max(writer.width-ansi.StringWidth(writer.prefix()), 10)
}

func (writer *markdownWriter) write(s string) {
	if s == "" {
		return
	}
	writer.out.WriteString(s)
	trimmed := strings.TrimRight(s, "\n")
	trailing := len(s) - len(trimmed)
	if trimmed == "" {
		writer.newlines += trailing
	} else {
		writer.newlines = trailing
	}
}

func (writer *markdownWriter) endLine() {
	if writer.newlines < 1 {
		writer.write("\n")
	}
}

func (writer *markdownWriter) blankLine() {
	if writer.out.Len() == 0 {
		return
	}
	for writer.newlines < 2 {
		writer.write("\n")
	}
}

func (writer *markdownWriter) tight() bool {
	return len(writer.lists) > 0 && writer.lists[len(writer.lists)-1].tight
}

// emit writes lines with the current prefixes.
func (writer *markdownWriter) emit(content string) {
	for index, line := range strings.Split(content, "\n") {
		if index == 0 && writer.bullet != "" {
			writer.write(writer.bullet + line)
			writer.bullet = ""
		} else {
			writer.write(writer.prefix() + line)
		}
		writer.write("\n")
	}
}

func (writer *markdownWriter) flush() string {
	content := writer.inline.String()
	writer.inline.Reset()
	return content
}

func (writer *markdownWriter) styled(content string) string {
	style := writer.style().Foreground(writer.theme.NormalText)
	if writer.bold > 0 {
		style = style.Bold(true)
	}
	if writer.italic > 0 {
		style = style.Italic(true)
	}
	if writer.struck > 0 {
		style = style.Strikethrough(true)
	}
	return style.Render(content)
}

func (writer *markdownWriter) faint(content string) string {
	return writer.style().Foreground(writer.theme.FaintText).Render(content)
}

func (writer *markdownWriter) visit(node ast.Node, entering bool) (ast.WalkStatus, error) {
	switch node := node.(type) {
	case *ast.Paragraph, *ast.TextBlock:
		if entering {
			writer.inline.Reset()
			break
		}
		if content := writer.flush(); content != "" {
			writer.emit(ansi.Wrap(content, writer.available(), wrapBreakpoints))
			if !writer.tight() {
				writer.blankLine()
			}
		}

	case *ast.Heading:
		if entering {
			writer.inline.Reset()
			break
		}
		content := ansi.Strip(writer.flush())
		if content == "" {
			break
		}
		style := writer.style().Bold(true).Foreground(writer.theme.NormalText)
		if node.Level <= 2 {
			style = style.Foreground(writer.theme.HeaderForeground)
		}
		writer.blankLine()
		writer.emit(ansi.Wrap(style.Render(content), writer.available(), wrapBreakpoints))
		writer.blankLine()

	case *ast.FencedCodeBlock:
		if entering {
			writer.code(node.Lines(), string(node.Language(writer.source)))
		}
		return ast.WalkSkipChildren, nil

	case *ast.CodeBlock:
		if entering {
			writer.code(node.Lines(), "")
		}
		return ast.WalkSkipChildren, nil

	case *ast.Blockquote:
		if entering {
			writer.indent = append(writer.indent, writer.faint("│")+" ")
		} else {
			writer.indent = writer.indent[:len(writer.indent)-1]
			writer.blankLine()
		}

	case *ast.List:
		if entering {
			writer.lists = append(writer.lists, listFrame{ordered: node.IsOrdered(), next: node.Start, tight: node.IsTight})
		} else {
			writer.lists = writer.lists[:len(writer.lists)-1]
			if !writer.tight() {
				writer.blankLine()
			}
		}

	case *ast.ListItem:
		writer.listItem(entering)

	case *ast.ThematicBreak:
		if entering {
			writer.blankLine()
			writer.emit(writer.style().Foreground(writer.theme.BorderColor).Render(strings.Repeat("─", writer.available())))
			writer.blankLine()
		}

	case *ast.HTMLBlock:
		if entering {
			var raw strings.Builder
			for index := 0; index < node.Lines().Len(); index++ {
				segment := node.Lines().At(index)
				raw.Write(segment.Value(writer.source))
			}
			if stripped := strings.TrimSpace(stripTags(raw.String())); stripped != "" {
				writer.emit(writer.faint(stripped))
				writer.blankLine()
			}
		}
		return ast.WalkSkipChildren, nil

	case *ast.Text:
		if entering {
			writer.inline.WriteString(writer.styled(string(node.Segment.Value(writer.source))))
			switch {
			case node.HardLineBreak():
				writer.inline.WriteString("\n")
			case node.SoftLineBreak():
				writer.inline.WriteString(" ")
			}
		}

	case *ast.String:
		if entering {
			writer.inline.WriteString(writer.styled(string(node.Value)))
		}

	case *ast.Emphasis:
		delta := 1
		if !entering {
			delta = -1
		}
		if node.Level >= 2 {
			writer.bold += delta
		} else {
			writer.italic += delta
		}

	case *ast.CodeSpan:
		if entering {
			var code strings.Builder
			for child := node.FirstChild(); child != nil; child = child.NextSibling() {
				switch child := child.(type) {
				case *ast.Text:
					code.Write(child.Segment.Value(writer.source))
				case *ast.String:
					code.Write(child.Value)
				}
			}
			writer.inline.WriteString(writer.faint(code.String()))
		}
		return ast.WalkSkipChildren, nil

	case *ast.Link:
		if !entering && len(node.Destination) > 0 {
			writer.inline.WriteString(" " + writer.faint("("+string(node.Destination)+")"))
		}

	case *ast.AutoLink:
		if entering {
			writer.inline.WriteString(writer.style().Foreground(writer.theme.FaintText).Underline(true).Render(string(node.URL(writer.source))))
		}

	case *ast.Image:
		if entering {
			writer.inline.WriteString(writer.faint("[image: " + string(node.Destination) + "]"))
		}
		return ast.WalkSkipChildren, nil

	case *ast.RawHTML:
		if entering {
			var raw strings.Builder
			for index := 0; index < node.Segments.Len(); index++ {
				segment := node.Segments.At(index)
				raw.Write(segment.Value(writer.source))
			}
			writer.inline.WriteString(writer.faint(stripTags(raw.String())))
		}
		return ast.WalkSkipChildren, nil

	case *extast.Strikethrough:
		if entering {
			writer.struck++
		} else {
			writer.struck--
		}

	case *extast.TaskCheckBox:
		if entering {
			if node.IsChecked {
				writer.inline.WriteString(writer.style().Foreground(writer.theme.StatusColor(ticket.StatusClosed)).Render("[x]") + " ")
			} else {
				writer.inline.WriteString(writer.styled("[ ] "))
			}
		}

	case *extast.Table:
		writer.blankLine()

	case *extast.TableHeader, *extast.TableRow:
		if entering {
			writer.cells = writer.cells[:0]
			break
		}
		row := strings.Join(writer.cells, writer.faint(" │ "))
		if _, header := node.(*extast.TableHeader); header {
			row = writer.style().Bold(true).Render(ansi.Strip(row))
		}
		writer.emit(ansi.Truncate(row, writer.available(), "…"))

	case *extast.TableCell:
		if entering {
			writer.inline.Reset()
		} else {
			writer.cells = append(writer.cells, strings.TrimSpace(writer.flush()))
		}
	}
	return ast.WalkContinue, nil
}

func (writer *markdownWriter) listItem(entering bool) {
	if len(writer.lists) == 0 {
		return
	}
	if !entering {
		writer.indent = writer.indent[:len(writer.indent)-1]
		if writer.tight() {
			writer.endLine()
		} else {
			writer.blankLine()
		}
		return
	}
	frame := &writer.lists[len(writer.lists)-1]
	marker := "• "
	if frame.ordered {
		marker = fmt.Sprintf("%d. ", frame.next)
		frame.next++
	}
	writer.bullet = writer.prefix() + marker
	writer.indent = append(writer.indent, strings.Repeat(" ", ansi.StringWidth(marker)))
}

// code writes a code block, highlighted with chroma when the fence
// names a language chroma knows.
func (writer *markdownWriter) code(lines *text.Segments, language string) {
	var source strings.Builder
	for index := 0; index < lines.Len(); index++ {
		segment := lines.At(index)
		source.Write(segment.Value(writer.source))
	}
	body := writer.faint(strings.TrimRight(source.String(), "\n"))
	if language != "" {
		var highlighted strings.Builder
		if err := quick.Highlight(&highlighted, source.String(), language, "terminal256", "monokai"); err == nil {
			body = strings.TrimRight(highlighted.String(), "\n")
		}
	}
	writer.blankLine()
	writer.emit(body)
	writer.blankLine()
}

// stripTags drops anything between angle brackets.
func stripTags(html string) string {
	var result strings.Builder
	inside := false
	for _, character := range html {
		switch {
		case character == '<':
			inside = true
		case character == '>':
			inside = false
		case !inside:
			result.WriteRune(character)
		}
	}
	return result.String()
}
