package utils

import (
	"fmt"

	"github.com/keighl/postmark"

	"organic-grocery/models"
)

// EmailService sends transactional mail through Postmark. A nil inner
// client (no API token configured) makes every send fail loudly rather
// than silently dropping OTP codes.
type EmailService struct {
	client *postmark.Client
	from   string
}

// NewEmailService builds an EmailService from explicit configuration.
func NewEmailService(apiToken, from string) *EmailService {
	var client *postmark.Client
	if apiToken != "" {
		client = postmark.NewClient(apiToken, "")
	}
	return &EmailService{client: client, from: from}
}

// SendEmail sends a basic HTML email to the specified recipient.
func (es *EmailService) SendEmail(toEmail, subject, htmlContent string) error {
	if es.client == nil {
		return fmt.Errorf("email service not configured")
	}
	_, err := es.client.SendEmail(postmark.Email{
		From:     es.from,
		To:       toEmail,
		Subject:  subject,
		HtmlBody: htmlContent,
		TextBody: htmlContent,
	})
	if err != nil {
		return fmt.Errorf("failed to send email: %w", err)
	}
	return nil
}

// SendOTPEmail delivers a login code to the user.
func (es *EmailService) SendOTPEmail(toEmail, code, name string) error {
	subject := "Your Login Code - Organic Grocery"
	htmlContent := fmt.Sprintf(
		"<h2>Hello %s!</h2>"+
			"<p>To complete your login, please use the code below:</p>"+
			"<div style=\"font-size:24px;font-weight:bold;letter-spacing:3px\">%s</div>"+
			"<p>This code will expire in 10 minutes.</p>"+
			"<p><strong>Important:</strong> never share this code with anyone. Our team will never ask for it.</p>",
		name, code,
	)
	return es.SendEmail(toEmail, subject, htmlContent)
}

// SendOrderConfirmationEmail sends an order confirmation to the user.
func (es *EmailService) SendOrderConfirmationEmail(toEmail, name string, order models.Order) error {
	subject := "Order Confirmation - Organic Grocery"
	htmlContent := fmt.Sprintf(
		"<strong>Dear %s,</strong><br><br>Thank you for your purchase! Your order <strong>%s</strong> has been placed successfully.<br><br>"+
			"Items Total: <strong>%.2f</strong><br>Tax: <strong>%.2f</strong><br>Delivery Fee: <strong>%.2f</strong><br>"+
			"Grand Total: <strong>%.2f</strong><br><br>Thank you for shopping with us!",
		name, order.OrderNumber, order.Subtotal, order.Tax, order.DeliveryFee, order.GrandTotal,
	)
	return es.SendEmail(toEmail, subject, htmlContent)
}
