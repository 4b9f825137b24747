package mail

import (
	"bytes"
	"html/template"
	"time"
)

var otpTemplate = template.Must(template.New("otp").Parse(`<p>Hello {{.Name}},</p>
<p>Your OTP for password reset is: <b>{{.Code}}</b></p>
<p>This code expires in {{.ValidFor}}.</p>`))

// OTPMessage renders the password reset email carrying a one-time code.
func OTPMessage(to, name, code string, validFor time.Duration) (Message, error) {
	var buf bytes.Buffer
	err := otpTemplate.Execute(&buf, struct {
		Name     string
		Code     string
		ValidFor string
	}{
		Name:     name,
		Code:     code,
		ValidFor: validFor.Round(time.Minute).String(),
	})
	if err != nil {
		return Message{}, err
	}

	return Message{
		To:      []string{to},
		Subject: "Password Reset OTP",
		Body:    buf.String(),
		HTML:    true,
	}, nil
}
