package generate

import (
	"context"
	"strings"
	"text/template"
)

const letter = `Dear Hiring Manager,

I am writing to apply for the {{.Title}} position ({{.Description}}).
I am an early-career candidate who will require visa sponsorship, and I am keen to bring my skills to your team.
{{if .Resume}}
A summary of my background:

{{.Resume}}
{{end}}
Thank you for your time and consideration.

Kind regards
`

// Template renders a fixed letter offline.
type Template struct {
	tpl *template.Template
}

func NewTemplate() (*Template, error) {
	tpl, err := template.New("letter").Option("missingkey=error").Parse(letter)
	if err != nil {
		return nil, err
	}
	return &Template{tpl: tpl}, nil
}

func (t *Template) Generate(ctx context.Context, title, description, resume string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", fail("%v", err)
	}
	if strings.TrimSpace(title) == "" {
		return "", fail("empty title")
	}

	var b strings.Builder
	err := t.tpl.Execute(&b, struct{ Title, Description, Resume string }{
		Title:       strings.TrimSpace(title),
		Description: strings.TrimSpace(description),
		Resume:      strings.TrimSpace(resume),
	})
	if err != nil {
		return "", fail("render: %v", err)
	}
	return b.String(), nil
}
