package notifications

import (
	"bytes"
	"embed"
	"fmt"
	htmpl "html/template"
	texttpl "text/template"
	"time"
)

//go:embed templates/*.tmpl
var templateFS embed.FS

var (
	textTemplates = texttpl.Must(texttpl.ParseFS(templateFS, "templates/*.txt.tmpl"))
	htmlTemplates = htmpl.Must(htmpl.ParseFS(templateFS, "templates/*.html.tmpl"))
)

type emailData struct {
	FirstName string
	URL       string
	ExpiresIn string
}

// PasswordResetMessage carries the plaintext reset URL. It is the only place
// the plaintext token leaves the process.
func PasswordResetMessage(to, name, resetURL string, ttl time.Duration) (Message, error) {
	data := emailData{FirstName: firstName(name), URL: resetURL, ExpiresIn: humanMinutes(ttl)}
	return render(to, "Your password reset token (valid for "+data.ExpiresIn+")", "password_reset", data)
}

func WelcomeMessage(to, name, url string) (Message, error) {
	data := emailData{FirstName: firstName(name), URL: url}
	return render(to, "Welcome to the Tourhub family!", "welcome", data)
}

func render(to, subject, name string, data emailData) (Message, error) {
	var text, html bytes.Buffer
	if err := textTemplates.ExecuteTemplate(&text, name+".txt.tmpl", data); err != nil {
		return Message{}, fmt.Errorf("render %s text: %w", name, err)
	}
	if err := htmlTemplates.ExecuteTemplate(&html, name+".html.tmpl", data); err != nil {
		return Message{}, fmt.Errorf("render %s html: %w", name, err)
	}
	return Message{To: to, Subject: subject, Text: text.String(), HTML: html.String()}, nil
}

func firstName(name string) string {
	for i, r := range name {
		if r == ' ' {
			return name[:i]
		}
	}
	return name
}

func humanMinutes(d time.Duration) string {
	m := int(d.Minutes())
	if m == 1 {
		return "1 minute"
	}
	return fmt.Sprintf("%d minutes", m)
}
