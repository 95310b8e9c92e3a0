package email

import (
	"bytes"
	"context"
	"fmt"
	htmltemplate "html/template"
	texttemplate "text/template"

	"github.com/redmonkez12/storefront-users/internal/logging"
	"github.com/redmonkez12/storefront-users/internal/user"
)

const (
	subjectPasswordReset   = "Request Reset Password"
	subjectPasswordChanged = "Your password has been reset successfully"
	signature              = "Ecommerce Website"
)

// Message is a transactional email with a plain text and an HTML part
type Message struct {
	To      string `json:"to"`
	Subject string `json:"subject"`
	Text    string `json:"text"`
	HTML    string `json:"html"`
}

// Sender delivers a composed message
type Sender interface {
	Send(ctx context.Context, msg Message) error
}

// Service composes the password reset emails and hands them to a Sender
type Service struct {
	sender      Sender
	frontendURL string
	logger      *logging.Logger
}

func NewService(sender Sender, frontendURL string, logger *logging.Logger) *Service {
	return &Service{
		sender:      sender,
		frontendURL: frontendURL,
		logger:      logger,
	}
}

type templateData struct {
	Name      string
	ResetLink string
	Signature string
}

// SendPasswordResetEmail sends the reset link for token to u.
// This method is designed to be called in a goroutine
func (s *Service) SendPasswordResetEmail(ctx context.Context, u *user.User, token string) error {
	data := templateData{
		Name:      u.Name,
		ResetLink: fmt.Sprintf("%s/reset-password/%s", s.frontendURL, token),
		Signature: signature,
	}

	msg, err := compose(u.Email, subjectPasswordReset, "reset", data)
	if err != nil {
		return err
	}

	if err := s.sender.Send(ctx, msg); err != nil {
		return fmt.Errorf("send email: %w", err)
	}

	s.logger.Info("password reset email sent", "user_id", u.ID)
	return nil
}

// SendPasswordChangedEmail confirms a completed reset to u
func (s *Service) SendPasswordChangedEmail(ctx context.Context, u *user.User) error {
	data := templateData{
		Name:      u.Name,
		Signature: signature,
	}

	msg, err := compose(u.Email, subjectPasswordChanged, "changed", data)
	if err != nil {
		return err
	}

	if err := s.sender.Send(ctx, msg); err != nil {
		return fmt.Errorf("send email: %w", err)
	}

	s.logger.Info("password changed email sent", "user_id", u.ID)
	return nil
}

func compose(to, subject, name string, data templateData) (Message, error) {
	var text, html bytes.Buffer

	if err := textTemplates.ExecuteTemplate(&text, name, data); err != nil {
		return Message{}, fmt.Errorf("execute text template: %w", err)
	}
	if err := htmlTemplates.ExecuteTemplate(&html, name, data); err != nil {
		return Message{}, fmt.Errorf("execute html template: %w", err)
	}

	return Message{
		To:      to,
		Subject: subject,
		Text:    text.String(),
		HTML:    html.String(),
	}, nil
}

var textTemplates = texttemplate.Must(texttemplate.New("text").Parse(`
{{- define "reset" -}}
Hello {{.Name}},

You requested to reset your password.
Please open this link to reset your password:

{{.ResetLink}}

Regards,
{{.Signature}}
{{end}}

{{- define "changed" -}}
Hello {{.Name}},

Your password has been reset successfully.
If you did not do this, request a new password reset right away.

Regards,
{{.Signature}}
{{end}}`))

var htmlTemplates = htmltemplate.Must(htmltemplate.New("html").Parse(`
{{- define "layout-start" -}}
<!DOCTYPE html>
<html>
<head>
    <meta charset="UTF-8">
    <style>
        body {
            font-family: Arial, sans-serif;
            line-height: 1.6;
            color: #333;
            max-width: 600px;
            margin: 0 auto;
            padding: 20px;
        }
        .content {
            background-color: #f9f9f9;
            padding: 30px;
            border-radius: 5px;
        }
        .button {
            display: inline-block;
            background-color: #4F46E5;
            color: white !important;
            padding: 12px 30px;
            text-decoration: none;
            border-radius: 5px;
            margin: 20px 0;
        }
    </style>
</head>
<body>
    <div class="content">
{{- end}}

{{- define "layout-end" -}}
        <p style="margin-top: 30px;">Regards,<br>{{.Signature}}</p>
    </div>
</body>
</html>
{{- end}}

{{- define "reset" -}}
{{template "layout-start" .}}
        <p>Hello {{.Name}},</p>
        <p>You requested to reset your password.</p>
        <p>Please click the link below to reset your password.</p>
        <a href="{{.ResetLink}}" class="button" style="color: white !important;">Reset Password</a>
        <p style="word-break: break-all; color: #4F46E5;">{{.ResetLink}}</p>
{{template "layout-end" .}}
{{- end}}

{{- define "changed" -}}
{{template "layout-start" .}}
        <p>Hello {{.Name}},</p>
        <p>Your password has been reset successfully.</p>
        <p>If you did not do this, request a new password reset right away.</p>
{{template "layout-end" .}}
{{- end}}`))
