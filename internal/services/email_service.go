package services

import (
	"context"
	"fmt"
	"html"
	"pharmacist/internal/config"
	"pharmacist/internal/models"
	"time"

	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"
)

// DoseMailer e-mails a dose reminder to a user
type DoseMailer interface {
	SendDoseReminder(ctx context.Context, user *models.User, dose models.Dose) error
}

type EmailService struct {
	client    *sendgrid.Client
	fromEmail string
	fromName  string
	loc       *time.Location
}

// NewEmailService returns ErrDisabled when SendGrid is not configured
func NewEmailService(cfg *config.Config) (*EmailService, error) {
	if cfg.Email.SendGridAPIKey == "" || cfg.Email.FromEmail == "" {
		return nil, ErrDisabled
	}

	return &EmailService{
		client:    sendgrid.NewSendClient(cfg.Email.SendGridAPIKey),
		fromEmail: cfg.Email.FromEmail,
		fromName:  cfg.Email.FromName,
		loc:       cfg.Location(),
	}, nil
}

// SendDoseReminder tells the user a dose is due
func (s *EmailService) SendDoseReminder(ctx context.Context, user *models.User, dose models.Dose) error {
	if user.Email == nil || *user.Email == "" {
		return fmt.Errorf("user %d has no email address", user.ID)
	}

	message := buildDoseReminderEmail(s.fromName, s.fromEmail, user, dose, s.loc)

	response, err := s.client.SendWithContext(ctx, message)
	if err != nil {
		return err
	}
	if response.StatusCode >= 400 {
		return fmt.Errorf("failed to send email to %s: %d", *user.Email, response.StatusCode)
	}
	return nil
}

func buildDoseReminderEmail(fromName, fromEmail string, user *models.User, dose models.Dose, loc *time.Location) *mail.SGMailV3 {
	from := mail.NewEmail(fromName, fromEmail)
	to := mail.NewEmail(displayName(user), *user.Email)

	at := dose.ScheduledTime.In(loc).Format("15:04")
	subject := fmt.Sprintf("یادآوری مصرف %s", dose.MedicationName)

	what := dose.MedicationName
	if dose.Dosage != "" {
		what = fmt.Sprintf("%s (%s)", dose.MedicationName, dose.Dosage)
	}

	plainContent := fmt.Sprintf("سلام %s، زمان مصرف %s ساعت %s است.", displayName(user), what, at)
	htmlContent := fmt.Sprintf(`<div dir="rtl"><p>سلام %s،</p><p>زمان مصرف <strong>%s</strong> ساعت %s است.</p></div>`,
		html.EscapeString(displayName(user)), html.EscapeString(what), at)

	return mail.NewSingleEmail(from, subject, to, plainContent, htmlContent)
}

func displayName(user *models.User) string {
	name := user.FirstName
	if user.LastName != "" {
		if name != "" {
			name += " "
		}
		name += user.LastName
	}
	if name == "" {
		return "کاربر گرامی"
	}
	return name
}
