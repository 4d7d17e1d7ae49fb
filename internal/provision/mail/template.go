package mail

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
)

const CredentialsSubject = "Your Account Credentials"

//go:embed templates/*.html
var templateFS embed.FS

var credentialsTmpl = template.Must(template.ParseFS(templateFS, "templates/credentials.html"))

type CredentialsData struct {
	FullName string
	Email    string
	Password string
}

// RenderCredentials builds the welcome message addressed to data.Email.
func RenderCredentials(data CredentialsData) (Message, error) {
	var body bytes.Buffer
	if err := credentialsTmpl.Execute(&body, data); err != nil {
		return Message{}, fmt.Errorf("mail: render credentials: %w", err)
	}
	return Message{
		To:      data.Email,
		Subject: CredentialsSubject,
		HTML:    body.String(),
	}, nil
}
