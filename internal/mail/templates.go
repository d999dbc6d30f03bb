package mail

import (
	"bytes"
	"fmt"
	htmltemplate "html/template"
	texttemplate "text/template"
	"time"
)

var otpHTML = htmltemplate.Must(htmltemplate.New("otp").Parse(`<!DOCTYPE html>
<html>
<body style="font-family: Arial, sans-serif; color: #1f2937;">
  <h2>Babsy Gutscheine</h2>
  <p>Ihr Login-Code lautet:</p>
  <p style="font-size: 32px; font-weight: bold; letter-spacing: 6px;">{{.Code}}</p>
  <p>Der Code ist {{.Minutes}} Minuten gültig. Falls Sie keinen Code angefordert haben, können Sie diese E-Mail ignorieren.</p>
</body>
</html>`))

var otpText = texttemplate.Must(texttemplate.New("otp").Parse(`Babsy Gutscheine

Ihr Login-Code: {{.Code}}

Der Code ist {{.Minutes}} Minuten gültig.
`))

var welcomeHTML = htmltemplate.Must(htmltemplate.New("welcome").Parse(`<!DOCTYPE html>
<html>
<body style="font-family: Arial, sans-serif; color: #1f2937;">
  <h2>Willkommen, {{.BusinessName}}!</h2>
  <p>Vielen Dank für Ihre Registrierung als Partner bei Babsy Gutscheine.</p>
  <p>Wir prüfen Ihr Profil und schalten es so bald wie möglich frei. Danach können Sie Gutscheine erstellen.</p>
  <p><a href="{{.DashboardURL}}">Zum Partner-Bereich</a></p>
</body>
</html>`))

var welcomeText = texttemplate.Must(texttemplate.New("welcome").Parse(`Willkommen, {{.BusinessName}}!

Vielen Dank für Ihre Registrierung als Partner bei Babsy Gutscheine.
Wir prüfen Ihr Profil und schalten es so bald wie möglich frei.

Partner-Bereich: {{.DashboardURL}}
`))

// OTPMessage renders the login code email
func OTPMessage(to, code string, validFor time.Duration) (Message, error) {
	data := struct {
		Code    string
		Minutes int
	}{Code: code, Minutes: int(validFor.Minutes())}

	return render(to, "Ihr Login-Code für Babsy Gutscheine", otpHTML, otpText, data)
}

// PartnerWelcomeMessage renders the email sent after partner registration
func PartnerWelcomeMessage(to, businessName, appURL string) (Message, error) {
	data := struct {
		BusinessName string
		DashboardURL string
	}{BusinessName: businessName, DashboardURL: appURL + "/partner"}

	return render(to, "Willkommen als Babsy Partner", welcomeHTML, welcomeText, data)
}

func render(to, subject string, html *htmltemplate.Template, text *texttemplate.Template, data interface{}) (Message, error) {
	var htmlBuf, textBuf bytes.Buffer
	if err := html.Execute(&htmlBuf, data); err != nil {
		return Message{}, fmt.Errorf("render %s html: %w", html.Name(), err)
	}
	if err := text.Execute(&textBuf, data); err != nil {
		return Message{}, fmt.Errorf("render %s text: %w", text.Name(), err)
	}
	return Message{
		To:      to,
		Subject: subject,
		HTML:    htmlBuf.String(),
		Text:    textBuf.String(),
	}, nil
}
