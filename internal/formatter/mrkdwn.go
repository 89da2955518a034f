// Package formatter converts generated Markdown into Slack mrkdwn and block payloads.
package formatter

import (
	"strconv"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	east "github.com/yuin/goldmark/extension/ast"
	"github.com/yuin/goldmark/text"
)

var (
	md = goldmark.New(goldmark.WithExtensions(extension.Strikethrough, extension.Linkify))

	// Slack requires these three to be entity-escaped in message text.
	escaper = strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;")
)

const listIndent = "    "

// ToMrkdwn converts CommonMark (as produced by Gemini) to Slack mrkdwn.
func ToMrkdwn(markdown string) string {
	if strings.TrimSpace(markdown) == "" {
		return markdown
	}
	src := []byte(markdown)
	doc := md.Parser().Parse(text.NewReader(src))
	r := &renderer{src: src}
	return strings.TrimRight(r.blocks(doc, "\n\n"), "\n")
}

type renderer struct {
	src []byte
}

func (r *renderer) blocks(parent ast.Node, sep string) string {
	var parts []string
	for c := parent.FirstChild(); c != nil; c = c.NextSibling() {
		if s := r.block(c); s != "" {
			parts = append(parts, s)
		}
	}
	return strings.Join(parts, sep)
}

func (r *renderer) block(n ast.Node) string {
	switch n := n.(type) {
	case *ast.Paragraph, *ast.TextBlock:
		return r.inlines(n)
	case *ast.Heading:
		return "*" + r.inlines(n) + "*"
	case *ast.FencedCodeBlock, *ast.CodeBlock:
		return "```\n" + escaper.Replace(r.lines(n)) + "```"
	case *ast.Blockquote:
		return prefixLines(r.blocks(n, "\n"), "> ")
	case *ast.List:
		return r.list(n)
	case *ast.ThematicBreak:
		return "───"
	case *ast.HTMLBlock:
		return escaper.Replace(strings.TrimRight(r.lines(n), "\n"))
	default:
		return r.blocks(n, "\n\n")
	}
}

func (r *renderer) list(l *ast.List) string {
	var items []string
	num := l.Start
	for c := l.FirstChild(); c != nil; c = c.NextSibling() {
		marker := "• "
		if l.IsOrdered() {
			marker = strconv.Itoa(num) + ". "
			num++
		}
		body := r.blocks(c, "\n")
		items = append(items, marker+strings.ReplaceAll(body, "\n", "\n"+listIndent))
	}
	return strings.Join(items, "\n")
}

func (r *renderer) lines(n ast.Node) string {
	var b strings.Builder
	lines := n.Lines()
	for i := 0; i < lines.Len(); i++ {
		seg := lines.At(i)
		b.Write(seg.Value(r.src))
	}
	return b.String()
}

func (r *renderer) inlines(parent ast.Node) string {
	var b strings.Builder
	for c := parent.FirstChild(); c != nil; c = c.NextSibling() {
		r.inline(&b, c)
	}
	return b.String()
}

func (r *renderer) inline(b *strings.Builder, n ast.Node) {
	switch n := n.(type) {
	case *ast.Text:
		b.WriteString(escaper.Replace(string(n.Segment.Value(r.src))))
		if n.SoftLineBreak() || n.HardLineBreak() {
			b.WriteByte('\n')
		}
	case *ast.String:
		b.WriteString(escaper.Replace(string(n.Value)))
	case *ast.CodeSpan:
		b.WriteString("`" + escaper.Replace(r.plain(n)) + "`")
	case *ast.Emphasis:
		mark := "_"
		if n.Level >= 2 {
			mark = "*"
		}
		b.WriteString(mark + r.inlines(n) + mark)
	case *east.Strikethrough:
		b.WriteString("~" + r.inlines(n) + "~")
	case *ast.Link:
		writeLink(b, string(n.Destination), r.inlines(n))
	case *ast.Image:
		writeLink(b, string(n.Destination), escaper.Replace(r.plain(n)))
	case *ast.AutoLink:
		url := string(n.URL(r.src))
		if n.AutoLinkType == ast.AutoLinkEmail && !strings.HasPrefix(url, "mailto:") {
			url = "mailto:" + url
		}
		writeLink(b, url, "")
	case *ast.RawHTML:
		for i := 0; i < n.Segments.Len(); i++ {
			seg := n.Segments.At(i)
			b.WriteString(escaper.Replace(string(seg.Value(r.src))))
		}
	default:
		b.WriteString(r.inlines(n))
	}
}

// plain returns the unescaped text content of n.
func (r *renderer) plain(n ast.Node) string {
	var b strings.Builder
	_ = ast.Walk(n, func(c ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		switch c := c.(type) {
		case *ast.Text:
			b.Write(c.Segment.Value(r.src))
		case *ast.String:
			b.Write(c.Value)
		}
		return ast.WalkContinue, nil
	})
	return b.String()
}

func writeLink(b *strings.Builder, url, label string) {
	b.WriteString("<" + url)
	if label != "" && label != url {
		b.WriteString("|" + label)
	}
	b.WriteString(">")
}

func prefixLines(s, prefix string) string {
	return prefix + strings.ReplaceAll(s, "\n", "\n"+prefix)
}
