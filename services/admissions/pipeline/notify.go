package pipeline

import (
	"fmt"
	"net/smtp"
	"strings"

	"github.com/jordan-wright/email"
)

type SmtpConfig struct {
	Server       string `json:"server"`
	Port         int    `json:"port"`
	EmailAddress string `json:"email_address"`
	Password     string `json:"password"`
}

// Notifier mails the completion report of a run to an operator. A
// zero-value notifier is a no-op, mail is strictly optional.
type Notifier struct {
	Smtp SmtpConfig `json:"smtp"`
	To   string     `json:"to"`
}

func (n Notifier) Enabled() bool {
	return n.Smtp.Server != "" && n.To != ""
}

func (n Notifier) SendReport(stats Stats) error {
	if !n.Enabled() {
		return nil
	}

	mail := email.NewEmail()
	mail.From = fmt.Sprintf("Admissions Pipeline <%s>", n.Smtp.EmailAddress)
	mail.To = []string{n.To}
	mail.Subject = fmt.Sprintf("pipeline run finished: %d fetched, %d verified", stats.Fetched, stats.Verified)
	mail.Text = []byte(RenderStats(stats))

	err := mail.Send(
		fmt.Sprintf("%s:%d", n.Smtp.Server, n.Smtp.Port),
		smtp.PlainAuth("", n.Smtp.EmailAddress, n.Smtp.Password, n.Smtp.Server),
	)
	if err != nil && strings.Contains(err.Error(), "server doesn't support AUTH") {
		return mail.Send(fmt.Sprintf("%s:%d", n.Smtp.Server, n.Smtp.Port), nil)
	}
	return err
}
