package email

import (
	"bytes"
	"fmt"
	"html/template"
	"net/smtp"
)

// EmailConfig holds SMTP configuration
type EmailConfig struct {
	SMTPHost     string
	SMTPPort     int
	SMTPUsername string
	SMTPPassword string
	FromName     string
	FromEmail    string
	FrontendURL  string
}

// EmailService handles email sending
type EmailService struct {
	config EmailConfig
}

// NewEmailService creates a new email service
func NewEmailService(config EmailConfig) *EmailService {
	return &EmailService{config: config}
}

// PaymentConfirmation holds the data rendered into the payment confirmation email
type PaymentConfirmation struct {
	OrderNo       string
	Total         float64
	PaymentMethod string
	PaidAt        string
	OrderURL      string
}

// SendPaymentConfirmedEmail notifies the customer that their payment settled
func (s *EmailService) SendPaymentConfirmedEmail(toEmail string, data PaymentConfirmation) error {
	data.OrderURL = fmt.Sprintf("%s/orders/%s", s.config.FrontendURL, data.OrderNo)

	htmlContent, err := s.renderPaymentConfirmedEmail(data)
	if err != nil {
		return fmt.Errorf("failed to render email template: %w", err)
	}

	subject := fmt.Sprintf("Payment received for order %s", data.OrderNo)
	message := s.buildHTMLEmail(toEmail, subject, htmlContent)

	return s.sendEmail(toEmail, message)
}

// sendEmail sends an email using SMTP
func (s *EmailService) sendEmail(to string, message []byte) error {
	addr := fmt.Sprintf("%s:%d", s.config.SMTPHost, s.config.SMTPPort)
	auth := smtp.PlainAuth("", s.config.SMTPUsername, s.config.SMTPPassword, s.config.SMTPHost)

	if err := smtp.SendMail(addr, auth, s.config.FromEmail, []string{to}, message); err != nil {
		return fmt.Errorf("failed to send email: %w", err)
	}
	return nil
}

// buildHTMLEmail builds an HTML email message with proper headers
func (s *EmailService) buildHTMLEmail(to, subject, htmlContent string) []byte {
	headers := fmt.Sprintf("From: %s <%s>\r\n", s.config.FromName, s.config.FromEmail)
	headers += fmt.Sprintf("To: %s\r\n", to)
	headers += fmt.Sprintf("Subject: %s\r\n", subject)
	headers += "MIME-Version: 1.0\r\n"
	headers += "Content-Type: text/html; charset=\"UTF-8\"\r\n"
	headers += "\r\n"

	return []byte(headers + htmlContent)
}

const paymentConfirmedTemplate = `<!DOCTYPE html>
<html>
<head>
  <meta charset="UTF-8">
</head>
<body style="font-family: Arial, sans-serif; color: #333;">
  <div style="max-width: 600px; margin: 0 auto; padding: 20px;">
    <h2>Payment received</h2>
    <p>We have received your payment for order <strong>{{.OrderNo}}</strong>.</p>
    <table style="border-collapse: collapse; width: 100%;">
      <tr><td style="padding: 4px 0;">Amount</td><td style="padding: 4px 0;"><strong>{{printf "%.2f" .Total}}</strong></td></tr>
      <tr><td style="padding: 4px 0;">Payment method</td><td style="padding: 4px 0;">{{.PaymentMethod}}</td></tr>
      <tr><td style="padding: 4px 0;">Paid at</td><td style="padding: 4px 0;">{{.PaidAt}}</td></tr>
    </table>
    <p style="margin-top: 20px;">
      <a href="{{.OrderURL}}" style="background-color: #2563eb; color: #fff; padding: 10px 20px; text-decoration: none; border-radius: 4px;">View your order</a>
    </p>
    <p style="color: #888; font-size: 12px;">If you did not make this purchase, please contact support.</p>
  </div>
</body>
</html>`

// renderPaymentConfirmedEmail renders the payment confirmation HTML body
func (s *EmailService) renderPaymentConfirmedEmail(data PaymentConfirmation) (string, error) {
	tmpl, err := template.New("payment_confirmed").Parse(paymentConfirmedTemplate)
	if err != nil {
		return "", err
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}
