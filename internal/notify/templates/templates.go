// Package templates renders the notification emails.
package templates

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"

	"supplierhub/internal/notify"
)

//go:embed html/*.html
var files embed.FS

const brand = " - VEXIM"

var subjects = map[notify.Template]string{
	notify.TemplateContactRequestNotification: "New Contact Request" + brand,
	notify.TemplateContactRequestReceived:     "Contact Request Received" + brand,
	notify.TemplateContactResponse:            "Supplier Response" + brand,
	notify.TemplateContactForwarded:           "New Contact Request" + brand,
	notify.TemplateContactApproved:            "Contact Request Forwarded" + brand,
	notify.TemplateContactRejected:            "Contact Request Update" + brand,
	notify.TemplateContactUnlocked:            "Buyer Contact Unlocked" + brand,
}

// Rendered is a ready-to-send email body.
type Rendered struct {
	Subject string
	HTML    string
}

// Renderer holds one parsed template set per notification.
type Renderer struct {
	sets map[notify.Template]*template.Template
}

// New parses every embedded template. It fails if a known template has no
// file or subject.
func New() (*Renderer, error) {
	r := &Renderer{sets: make(map[notify.Template]*template.Template, len(subjects))}
	for name := range subjects {
		set, err := template.New(string(name)).Option("missingkey=zero").
			ParseFS(files, "html/layout.html", "html/"+string(name)+".html")
		if err != nil {
			return nil, fmt.Errorf("parse template %s: %w", name, err)
		}
		r.sets[name] = set
	}
	return r, nil
}

// Render executes name with data. Missing fields render as empty strings.
func (r *Renderer) Render(name notify.Template, data map[string]string) (*Rendered, error) {
	set, ok := r.sets[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", notify.ErrUnknownTemplate, name)
	}
	if data == nil {
		data = map[string]string{}
	}
	var buf bytes.Buffer
	if err := set.ExecuteTemplate(&buf, "layout", data); err != nil {
		return nil, fmt.Errorf("render %s: %w", name, err)
	}
	return &Rendered{Subject: subjects[name], HTML: buf.String()}, nil
}
