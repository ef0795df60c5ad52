package application

import (
	"html"
	"regexp"
	"strings"

	"github.com/microcosm-cc/bluemonday"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/text"

	"github.com/ericfisherdev/forgewatch/internal/domain/model"
)

// commandLinePattern matches "/name args" on a single line.
var commandLinePattern = regexp.MustCompile(`^\s*/([A-Za-z][A-Za-z0-9_-]*)(?:\s+(.*))?$`)

// CommandRegistry holds the command handlers known to the dispatcher.
type CommandRegistry struct {
	handlers map[string]model.CommandHandler
}

// NewCommandRegistry creates a registry. Names are matched case-insensitively.
func NewCommandRegistry(handlers ...model.CommandHandler) *CommandRegistry {
	r := &CommandRegistry{handlers: make(map[string]model.CommandHandler, len(handlers))}
	for _, h := range handlers {
		r.handlers[strings.ToLower(h.Name())] = h
	}
	return r
}

// Lookup implements model.HandlerLookup.
func (r *CommandRegistry) Lookup(name string) (model.CommandHandler, bool) {
	h, ok := r.handlers[strings.ToLower(name)]
	return h, ok
}

// namedHandler is a handler known only by name, used for commands declared
// in configuration.
type namedHandler struct {
	name        string
	description string
}

// NewNamedHandler returns a handler with the given name and description.
func NewNamedHandler(name, description string) model.CommandHandler {
	return namedHandler{name: name, description: description}
}

func (h namedHandler) Name() string        { return h.name }
func (h namedHandler) Description() string { return h.description }

// CommandExtractor finds command lines in comment bodies. Lines inside code
// blocks, HTML blocks and block quotes are not commands.
type CommandExtractor struct {
	md        goldmark.Markdown
	sanitizer *bluemonday.Policy
	lookup    model.HandlerLookup
}

// NewCommandExtractor creates an extractor resolving handlers through lookup.
func NewCommandExtractor(lookup model.HandlerLookup) *CommandExtractor {
	return &CommandExtractor{
		md:        goldmark.New(goldmark.WithExtensions(extension.GFM)),
		sanitizer: bluemonday.StrictPolicy(),
		lookup:    lookup,
	}
}

// Extract returns the commands in c, in order of appearance. Inline HTML
// decides nothing about whether a line is a command, but arguments are taken
// from the line as written.
func (x *CommandExtractor) Extract(c model.Comment) []model.CommandInvocation {
	var invocations []model.CommandInvocation
	for _, line := range x.commandLines(c.Body) {
		m := commandLinePattern.FindStringSubmatch(x.plainText(line))
		if m == nil {
			continue
		}
		args := m[2]
		if raw := commandLinePattern.FindStringSubmatch(line); raw != nil {
			args = raw[2]
		}
		invocations = append(invocations, model.NewCommandInvocation(c.ID, c.Author, strings.ToLower(m[1]), args, x.lookup, c.CreatedAt))
	}
	return invocations
}

// ExtractAll returns the commands of every comment, oldest comment first.
func (x *CommandExtractor) ExtractAll(comments []model.Comment) []model.CommandInvocation {
	var invocations []model.CommandInvocation
	for _, c := range comments {
		invocations = append(invocations, x.Extract(c)...)
	}
	return invocations
}

// plainText strips inline HTML from a source line.
func (x *CommandExtractor) plainText(line string) string {
	return html.UnescapeString(x.sanitizer.Sanitize(line))
}

// commandLines returns the source lines of every paragraph in a markdown body.
func (x *CommandExtractor) commandLines(body string) []string {
	src := []byte(body)
	doc := x.md.Parser().Parse(text.NewReader(src))

	var lines []string
	_ = ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		switch n.Kind() {
		case ast.KindBlockquote, ast.KindFencedCodeBlock, ast.KindCodeBlock, ast.KindHTMLBlock:
			return ast.WalkSkipChildren, nil
		case ast.KindParagraph, ast.KindTextBlock:
			segments := n.Lines()
			for i := 0; i < segments.Len(); i++ {
				seg := segments.At(i)
				line := strings.TrimRight(string(seg.Value(src)), "\r\n")
				lines = append(lines, line)
			}
			return ast.WalkSkipChildren, nil
		}
		return ast.WalkContinue, nil
	})
	return lines
}
