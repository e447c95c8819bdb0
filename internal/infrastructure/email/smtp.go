package email

import (
	"fmt"

	"gopkg.in/gomail.v2"

	"lumina/internal/shared/config"
)

type SMTPConfig struct {
	Host        string
	Port        int
	Username    string
	Password    string
	FromAddress string
	FromName    string
}

// SMTPEmailService delivers transactional and digest email over SMTP. All
// bodies go through the markdown renderer so content generation stays
// plain text.
type SMTPEmailService struct {
	config   SMTPConfig
	dialer   *gomail.Dialer
	renderer *Renderer
}

func NewSMTPEmailService(config SMTPConfig) *SMTPEmailService {
	return &SMTPEmailService{
		config:   config,
		dialer:   gomail.NewDialer(config.Host, config.Port, config.Username, config.Password),
		renderer: NewRenderer(),
	}
}

func NewSMTPEmailServiceFromConfig(cfg *config.EmailConfig) *SMTPEmailService {
	return NewSMTPEmailService(SMTPConfig{
		Host:        cfg.SMTPHost,
		Port:        cfg.SMTPPort,
		Username:    cfg.SMTPUser,
		Password:    cfg.SMTPPassword,
		FromAddress: cfg.FromAddress,
		FromName:    cfg.FromName,
	})
}

// SendPurchaseConfirmationEmail confirms a verified purchase.
func (s *SMTPEmailService) SendPurchaseConfirmationEmail(to, displayName, productName string) error {
	subject := "Your subscription is active"
	body := fmt.Sprintf(`Hi %s,

Your **%s** subscription is now active. Thanks for subscribing!

You can manage your subscription anytime from the app settings.`, displayName, productName)

	return s.SendMarkdownEmail(to, subject, body)
}

// SendMigrationNoticeEmail tells the user their old billing was cancelled
// after switching providers.
func (s *SMTPEmailService) SendMigrationNoticeEmail(to, displayName, oldProvider string) error {
	subject := "Your billing has moved"
	body := fmt.Sprintf(`Hi %s,

Your subscription billing has moved to your app store account. Your previous
billing via **%s** has been cancelled, so you will not be charged twice.

No action is needed on your part.`, displayName, oldProvider)

	return s.SendMarkdownEmail(to, subject, body)
}

// SendExpiryReminderEmail warns the user their subscription is about to lapse.
func (s *SMTPEmailService) SendExpiryReminderEmail(to, displayName string, daysLeft int) error {
	subject := "Your subscription is expiring soon"
	body := fmt.Sprintf(`Hi %s,

Your subscription expires in **%d days**. Renew from the app to keep your
premium features.`, displayName, daysLeft)

	return s.SendMarkdownEmail(to, subject, body)
}

// SendMarkdownEmail renders a markdown body and delivers it with a plain
// text alternative.
func (s *SMTPEmailService) SendMarkdownEmail(to, subject, bodyMarkdown string) error {
	htmlBody, err := s.renderer.RenderEmail(subject, bodyMarkdown)
	if err != nil {
		return fmt.Errorf("failed to render email body: %w", err)
	}

	return s.sendEmail(to, subject, htmlBody, bodyMarkdown)
}

func (s *SMTPEmailService) sendEmail(to, subject, htmlBody, plainBody string) error {
	m := gomail.NewMessage()
	m.SetAddressHeader("From", s.config.FromAddress, s.config.FromName)
	m.SetHeader("To", to)
	m.SetHeader("Subject", subject)
	m.SetBody("text/plain", plainBody)
	m.AddAlternative("text/html", htmlBody)

	if err := s.dialer.DialAndSend(m); err != nil {
		return fmt.Errorf("failed to send email: %w", err)
	}

	return nil
}
