package mailer

import (
	"fmt"
	"os"
	"time"

	"github.com/shopspring/decimal"
	"gopkg.in/gomail.v2"
)

type IEmailService interface {
	SendOfferIssued(toEmail, courseTitle string, amount decimal.Decimal, expiresAt time.Time) error
	SendRequestRejected(toEmail, courseTitle, notes string) error
	SendRefundCompleted(toEmail, courseTitle string, amount decimal.Decimal) error
	SendOfferExpired(toEmail, courseTitle string) error
}

type emailService struct {
	dialer      *gomail.Dialer
	senderEmail string
	frontendURL string // Added to construct links
}

func NewEmailService(host string, port int, username, password, senderEmail string) IEmailService {
	d := gomail.NewDialer(host, port, username, password)

	// Get Frontend URL from ENV or default to a safe placeholder
	frontendURL := os.Getenv("FRONTEND_URL")

	return &emailService{
		dialer:      d,
		senderEmail: senderEmail,
		frontendURL: frontendURL,
	}
}

func (s *emailService) send(toEmail, subject, body string) error {
	m := gomail.NewMessage()
	m.SetHeader("From", s.senderEmail)
	m.SetHeader("To", toEmail)
	m.SetHeader("Subject", subject)
	m.SetBody("text/html", body)

	if err := s.dialer.DialAndSend(m); err != nil {
		fmt.Printf("[MAILER ERROR] Failed to send %q to %s: %v\n", subject, toEmail, err)
		return err
	}

	fmt.Printf("[MAILER] %q sent to %s\n", subject, toEmail)
	return nil
}

func (s *emailService) SendOfferIssued(toEmail, courseTitle string, amount decimal.Decimal, expiresAt time.Time) error {
	reviewLink := fmt.Sprintf("%s/refunds", s.frontendURL)

	body := fmt.Sprintf(`
		<div style="font-family: Arial, sans-serif; padding: 20px; color: #333;">
			<h2>Refund Offer for %s</h2>
			<p>Our team has reviewed your refund request and made you an offer:</p>
			<h1 style="color: #4CAF50;">%s</h1>
			<p>You can accept or decline this offer from your dashboard:</p>
			<a href="%s" style="background-color: #007BFF; color: white; padding: 10px 20px; text-decoration: none; border-radius: 5px; display: inline-block;">Review Offer</a>
			<p>This offer is valid until <strong>%s</strong>. After that it expires automatically.</p>
		</div>
	`, courseTitle, amount.StringFixed(0), reviewLink, expiresAt.Format("2 January 2006, 15:04 MST"))

	return s.send(toEmail, "Your Refund Offer Is Ready", body)
}

func (s *emailService) SendRequestRejected(toEmail, courseTitle, notes string) error {
	body := fmt.Sprintf(`
		<div style="font-family: Arial, sans-serif; padding: 20px; color: #333;">
			<h2>Refund Request Update for %s</h2>
			<p>Unfortunately your refund request could not be approved.</p>
			<p><em>%s</em></p>
			<p>If you believe this is a mistake, please contact our support team.</p>
		</div>
	`, courseTitle, notes)

	return s.send(toEmail, "Refund Request Rejected", body)
}

func (s *emailService) SendRefundCompleted(toEmail, courseTitle string, amount decimal.Decimal) error {
	body := fmt.Sprintf(`
		<div style="font-family: Arial, sans-serif; padding: 20px; color: #333;">
			<h2>Refund Confirmed for %s</h2>
			<p>You accepted the refund offer. The amount below will be returned to your original payment method within 5-10 business days:</p>
			<h1 style="color: #4CAF50;">%s</h1>
			<p>Thank you for giving us a try.</p>
		</div>
	`, courseTitle, amount.StringFixed(0))

	return s.send(toEmail, "Your Refund Is On Its Way", body)
}

func (s *emailService) SendOfferExpired(toEmail, courseTitle string) error {
	body := fmt.Sprintf(`
		<div style="font-family: Arial, sans-serif; padding: 20px; color: #333;">
			<h2>Refund Offer Expired for %s</h2>
			<p>Your refund offer was not accepted in time and has expired.</p>
			<p>You may submit a new refund request if you are still within the refund window.</p>
		</div>
	`, courseTitle)

	return s.send(toEmail, "Refund Offer Expired", body)
}
