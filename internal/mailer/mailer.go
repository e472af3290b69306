package mailer

import (
	"fmt"
	"net/smtp"
	"time"

	"github.com/rs/zerolog"
)

type SMTPConfig struct {
	Host     string
	Port     int
	From     string
	Password string
}

func (c SMTPConfig) addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// SendBookingConfirmedEmail notifies the user that a room booking went through.
func SendBookingConfirmedEmail(log *zerolog.Logger, cfg SMTPConfig, userName, roomName, recipientEmail string, startTime time.Time) error {
	subject := "Your room booking is confirmed"
	body := fmt.Sprintf(
		"Hello %s!\n\nYour booking of room %q starting at %s has been confirmed.\nSee you there!",
		userName, roomName, startTime.Format("2006-01-02 15:04"),
	)

	msg := fmt.Sprintf("From: %s\r\nTo: %s\r\nSubject: %s\r\n\r\n%s",
		cfg.From, recipientEmail, subject, body,
	)

	auth := smtp.PlainAuth("", cfg.From, cfg.Password, cfg.Host)

	if err := smtp.SendMail(cfg.addr(), auth, cfg.From, []string{recipientEmail}, []byte(msg)); err != nil {
		log.Warn().Msgf("failed to send email to %s: %v", recipientEmail, err)
		return fmt.Errorf("send email: %w", err)
	}

	log.Info().Msgf("booking confirmation email sent to %s", recipientEmail)
	return nil
}
