// Package render turns a structured message into HTML and plain-text e-mail bodies.
// It has no side effects; every interpolated value is escaped for its HTML context
// except Item.HTML, which callers must have sanitized already.
package render

import (
	"bytes"
	"fmt"
	htmltemplate "html/template"
	"strings"
	texttemplate "text/template"
)

type Fact struct {
	Label string
	Value string
	Mono  bool // render as a copyable code block
}

type Action struct {
	Label string
	URL   string
}

// Item is a titled block of rich content. HTML must already be sanitized markup.
type Item struct {
	Title string
	HTML  string
	Text  string
}

type Credentials struct {
	Email        string
	TempPassword string
}

// Message is the branded layout shared by every e-mail.
type Message struct {
	Product     string
	Logo        string
	Subject     string
	Preheader   string
	Heading     string
	Greeting    string
	Paragraphs  []string
	Callout     string
	Credentials *Credentials
	Facts       []Fact
	Items       []Item
	Steps       []string
	Action      *Action
	Closing     []string
	Support     string
}

var funcs = htmltemplate.FuncMap{
	"trusted": func(s string) htmltemplate.HTML { return htmltemplate.HTML(s) },
}

var (
	htmlTmpl = htmltemplate.Must(htmltemplate.New("html").Funcs(funcs).Parse(htmlLayout))
	textTmpl = texttemplate.Must(texttemplate.New("text").Funcs(texttemplate.FuncMap{
		"inc": func(i int) int { return i + 1 },
	}).Parse(textLayout))
)

// Render returns the HTML and text bodies for msg.
func Render(msg Message) (string, string, error) {
	if msg.Subject == "" {
		return "", "", fmt.Errorf("render: subject is required")
	}
	var h, t bytes.Buffer
	if err := htmlTmpl.Execute(&h, msg); err != nil {
		return "", "", fmt.Errorf("render html: %w", err)
	}
	if err := textTmpl.Execute(&t, msg); err != nil {
		return "", "", fmt.Errorf("render text: %w", err)
	}
	return h.String(), collapseBlankLines(t.String()), nil
}

func collapseBlankLines(s string) string {
	lines := strings.Split(s, "\n")
	out := make([]string, 0, len(lines))
	blank := false
	for _, l := range lines {
		l = strings.TrimRight(l, " \t")
		if l == "" {
			if blank {
				continue
			}
			blank = true
		} else {
			blank = false
		}
		out = append(out, l)
	}
	return strings.TrimSpace(strings.Join(out, "\n")) + "\n"
}

const htmlLayout = `<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="UTF-8">
<meta name="viewport" content="width=device-width, initial-scale=1.0">
<title>{{.Subject}}</title>
</head>
<body style="margin:0; padding:0; background-color:#f4f4f4; font-family:Arial, Helvetica, sans-serif;">
{{- if .Preheader}}
<div style="display:none; max-height:0; overflow:hidden;">{{.Preheader}}</div>
{{- end}}
<table width="100%" cellpadding="0" cellspacing="0" border="0" role="presentation">
<tr><td align="center" style="padding:20px 0;">
<table width="100%" cellpadding="0" cellspacing="0" border="0" role="presentation" style="max-width:600px; width:100%; background-color:#000d0a; color:#fcf9f4;">
<tr><td style="padding:30px 20px 10px;">
{{- if .Logo}}
<img src="{{.Logo}}" alt="{{.Product}} Logo" width="100" style="display:block; border:0; width:100px; height:auto; margin-bottom:20px;">
{{- end}}
<h1 style="margin:0 0 16px; font-size:24px; color:#5da38a;">{{.Heading}}</h1>
<p style="margin:0 0 16px; font-size:16px;">{{.Greeting}}</p>
{{- range .Paragraphs}}
<p style="margin:0 0 16px; font-size:16px; line-height:1.5;">{{.}}</p>
{{- end}}
</td></tr>
{{- if .Callout}}
<tr><td style="padding:0 20px;">
<p style="background-color:#3a1f1f; border-left:4px solid #e06c6c; padding:12px; margin:0 0 16px;">{{.Callout}}</p>
</td></tr>
{{- end}}
{{- with .Credentials}}
<tr><td style="padding:0 20px;">
<h2 style="font-size:18px; color:#5da38a;">Your Account Credentials</h2>
<p style="margin:0 0 8px;">Email: {{.Email}}</p>
<p style="background-color:#515A58; padding:10px; border-radius:12px; text-align:center; font-family:monospace; font-size:18px;" aria-label="Temporary Password">{{.TempPassword}}</p>
<p style="font-size:14px;">You will be prompted to change your password when you first log in.</p>
</td></tr>
{{- end}}
{{- if .Facts}}
<tr><td style="padding:0 20px;">
<table width="100%" cellpadding="6" cellspacing="0" border="0" role="presentation">
{{- range .Facts}}
<tr><td style="font-weight:bold; width:40%;">{{.Label}}</td><td{{if .Mono}} style="font-family:monospace; background-color:#515A58; border-radius:6px;"{{end}}>{{.Value}}</td></tr>
{{- end}}
</table>
</td></tr>
{{- end}}
{{- if .Items}}
<tr><td style="padding:10px 20px;">
{{- range .Items}}
<h3 style="margin:16px 0 6px; font-size:16px; color:#5da38a;">{{.Title}}</h3>
<div style="font-size:15px; line-height:1.5;">{{trusted .HTML}}</div>
{{- end}}
</td></tr>
{{- end}}
{{- if .Steps}}
<tr><td style="padding:10px 20px;">
<h2 style="font-size:18px; color:#5da38a;">Getting Started</h2>
<ol>
{{- range .Steps}}
<li style="margin-bottom:6px;">{{.}}</li>
{{- end}}
</ol>
</td></tr>
{{- end}}
{{- with .Action}}
<tr><td align="center" style="padding:10px 20px 20px;">
<a href="{{.URL}}" style="display:inline-block; background-color:#5da38a; color:#fcf9f4; text-decoration:none; padding:12px 44px; border-radius:12px;">{{.Label}}</a>
</td></tr>
{{- end}}
<tr><td style="padding:10px 20px 30px; font-size:14px;">
{{- range .Closing}}
<p style="margin:0 0 12px;">{{.}}</p>
{{- end}}
<p style="margin:0;">If you have any questions, contact us at <a href="mailto:{{.Support}}" style="color:#5da38a;">{{.Support}}</a>.</p>
<p style="margin:12px 0 0;">The {{.Product}} Team</p>
</td></tr>
</table>
</td></tr>
</table>
</body>
</html>
`

const textLayout = `{{.Greeting}}

{{range .Paragraphs}}{{.}}

{{end}}{{if .Callout}}{{.Callout}}

{{end}}{{with .Credentials}}Your account credentials
Email: {{.Email}}
Temporary password: {{.TempPassword}}
You will be prompted to change your password when you first log in.

{{end}}{{range .Facts}}{{.Label}}: {{.Value}}
{{end}}
{{range .Items}}{{.Title}}
{{.Text}}

{{end}}{{if .Steps}}Getting started:
{{range $i, $s := .Steps}}{{inc $i}}. {{$s}}
{{end}}
{{end}}{{with .Action}}{{.Label}}: {{.URL}}

{{end}}{{range .Closing}}{{.}}

{{end}}If you have any questions, contact us at {{.Support}}

The {{.Product}} Team
`
