package util

import (
	"bytes"
	"strings"
	"text/template"
)

// templateFuncs are available to every prompt template.
var templateFuncs = template.FuncMap{
	"default": func(defaultVal, val string) string {
		if val == "" {
			return defaultVal
		}
		return val
	},
	"upper": strings.ToUpper,
	"lower": strings.ToLower,
	"trim":  strings.TrimSpace,
}

// ParseTemplate compiles a prompt template. Missing keys render as "".
//
// text/template is used instead of html/template: prompts are plain text and
// must not be HTML escaped.
func ParseTemplate(name, text string) (*template.Template, error) {
	return template.New(name).Funcs(templateFuncs).Option("missingkey=zero").Parse(text)
}

// RenderTemplate renders text with values. Templates without markers are returned unchanged.
func RenderTemplate(text string, values map[string]string) (string, error) {
	if !strings.Contains(text, "{{") { // fast path: no template markers
		return text, nil
	}

	tmpl, err := ParseTemplate("prompt", text)
	if err != nil {
		return "", err
	}

	return ExecuteTemplate(tmpl, values)
}

// ExecuteTemplate renders a compiled template with values.
func ExecuteTemplate(tmpl *template.Template, values map[string]string) (string, error) {
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, values); err != nil {
		return "", err
	}

	return buf.String(), nil
}
