package notify

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"net/http"
	"net/url"

	"github.com/resend/resend-go/v2"
)

var emailTemplate = template.Must(template.New("email").Parse(`<!DOCTYPE html>
<html>
<head><meta charset="utf-8" /></head>
<body style="font-family: Georgia, serif; background: #faf7f0; color: #1c1917;">
  <div style="max-width: 560px; margin: 40px auto; background: #fff; border: 1px solid #e7e0d4; border-radius: 16px;">
    <div style="background: #1c1917; padding: 28px 32px; text-align: center;">
      <h1 style="color: #faf7f0; font-size: 18px; font-weight: 400; margin: 0;">New Memorial Message</h1>
      <p style="color: #b89a5c; font-size: 12px; text-transform: uppercase;">Awaiting your approval</p>
    </div>
    <div style="padding: 32px;">
      <p><small>From</small><br />{{.Name}}</p>
      <p><small>Submitted</small><br />{{.Submitted}}</p>
      <p><small>Message</small></p>
      <blockquote style="font-style: italic;">{{.Content}}</blockquote>
      <p>
        <a href="{{.ApproveURL}}" style="background: #166534; color: #fff; padding: 12px 24px; border-radius: 10px; text-decoration: none;">Approve Message</a>
        <a href="{{.RejectURL}}" style="background: #fef2f2; color: #991b1b; padding: 12px 24px; border-radius: 10px; text-decoration: none;">Reject Message</a>
      </p>
      <hr />
      <p style="font-size: 12px;">Or visit the <a href="{{.DashboardURL}}">admin dashboard</a> to manage all pending messages.</p>
    </div>
  </div>
</body>
</html>
`))

type emailView struct {
	Notification
	Submitted string
}

// Render returns the subject line and HTML body for n.
func Render(n Notification) (subject, html string, err error) {
	var body bytes.Buffer
	view := emailView{
		Notification: n,
		Submitted:    n.CreatedAt.UTC().Format("January 2, 2006 at 15:04 MST"),
	}
	if err := emailTemplate.Execute(&body, view); err != nil {
		return "", "", fmt.Errorf("render email: %w", err)
	}
	return fmt.Sprintf("New memorial message from %s: awaiting approval", n.Name), body.String(), nil
}

// ResendOptions configures ResendNotifier.
//
// BaseURL overrides the Resend API endpoint. HTTPClient defaults to
// http.DefaultClient; the per-call context bounds every request either way.
type ResendOptions struct {
	APIKey     string
	From       string
	BaseURL    string
	HTTPClient *http.Client
}

// ResendNotifier sends HTML e-mail through the Resend API.
type ResendNotifier struct {
	emails resend.EmailsSvc
	from   string
}

func NewResendNotifier(opts ResendOptions) (*ResendNotifier, error) {
	hc := opts.HTTPClient
	if hc == nil {
		hc = http.DefaultClient
	}

	client := resend.NewCustomClient(hc, opts.APIKey)
	if opts.BaseURL != "" {
		u, err := url.Parse(opts.BaseURL)
		if err != nil {
			return nil, fmt.Errorf("resend base url: %w", err)
		}
		if u.Path == "" || u.Path[len(u.Path)-1] != '/' {
			u.Path += "/"
		}
		client.BaseURL = u
	}

	return &ResendNotifier{emails: client.Emails, from: opts.From}, nil
}

func (r *ResendNotifier) Notify(ctx context.Context, n Notification) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	subject, html, err := Render(n)
	if err != nil {
		return err
	}

	_, err = r.emails.SendWithContext(ctx, &resend.SendEmailRequest{
		From:    r.from,
		To:      []string{n.To},
		Subject: subject,
		Html:    html,
	})
	if err != nil {
		return fmt.Errorf("send mail: %w", err)
	}
	return nil
}
