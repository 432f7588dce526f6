package translate

import (
	"bytes"
	"fmt"
	"text/template"

	"golang.org/x/text/language"
	"golang.org/x/text/language/display"
)

const systemTemplate = `You translate AsciiDoc documentation pages from {{.From}} to {{.To}}.

Return only the translated page. Do not add commentary and do not wrap the page in a code fence.

Rules:
1. Keep exactly the same number of lines, in the same order. Blank lines stay blank.
2. Keep heading markers ("=", "==", ...) and list markers ("*", "**", ".", "-") exactly as they are.
3. Copy every line between "----" or "...." delimiters verbatim, delimiters included.
4. Keep attribute names (":name:") unchanged; translate attribute values only when they are prose.
5. Keep every xref:, <<...>>, include::, image::, video:: and audio:: macro. Translate link text only.
6. Keep block attribute lines such as "[source,go]" or "[NOTE]" unchanged.
{{- if .Strict}}

STRICT MODE. A previous translation broke the page structure.
Structure is more important than fluency. Translate each line on its own,
never merge or split lines, and when in doubt leave a line untranslated.
{{- end}}
`

const detectPrompt = `Identify the natural language of the text supplied by the user.
Reply with a single JSON object and nothing else:
{"code": "<BCP 47 tag>", "name": "<English language name>", "confidence": <0..1>, "status": "detected" | "uncertain"}`

// Prompts renders the instructions sent with every request.
type Prompts struct {
	system *template.Template
}

// NewPrompts parses the built-in templates.
func NewPrompts() (*Prompts, error) {
	tpl, err := template.New("system").Parse(systemTemplate)
	if err != nil {
		return nil, fmt.Errorf("system template parse: %w", err)
	}
	return &Prompts{system: tpl}, nil
}

// System renders the system prompt for a mode and direction.
func (p *Prompts) System(mode Mode, dir Direction) (string, error) {
	var buf bytes.Buffer
	err := p.system.Execute(&buf, struct {
		From, To string
		Strict   bool
	}{
		From:   languageName(dir.From),
		To:     languageName(dir.To),
		Strict: mode == Strict,
	})
	if err != nil {
		return "", fmt.Errorf("system template render: %w", err)
	}
	return buf.String(), nil
}

// User wraps the page text.
func (p *Prompts) User(text string) string {
	return text
}

// Detect returns the language identification prompt.
func (p *Prompts) Detect() string {
	return detectPrompt
}

// languageName turns a tag such as "ja" into "Japanese (ja)". Unknown tags
// are returned as is.
func languageName(tag string) string {
	t, err := language.Parse(tag)
	if err != nil {
		return tag
	}
	name := display.English.Tags().Name(t)
	if name == "" {
		return tag
	}
	return fmt.Sprintf("%s (%s)", name, tag)
}
