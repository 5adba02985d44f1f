package utils

import (
	"bytes"
	"context"
	"fmt"
	"log"
	"time"

	"github.com/wneessen/go-mail"
)

// Attachment est une pièce jointe en mémoire
type Attachment struct {
	Name    string
	Content []byte
}

// Email est un message HTML prêt à être envoyé
type Email struct {
	To          string
	Subject     string
	HTML        string
	Attachments []Attachment
}

// Mailer envoie des emails. SMTPMailer en est l'implémentation go-mail.
type Mailer interface {
	Send(ctx context.Context, email Email) error
}

type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
	Timeout  time.Duration
}

type SMTPMailer struct {
	cfg SMTPConfig
}

func NewSMTPMailer(cfg SMTPConfig) *SMTPMailer {
	if cfg.Port == 0 {
		cfg.Port = 587
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 15 * time.Second
	}
	return &SMTPMailer{cfg: cfg}
}

// BuildMessage construit le message go-mail sans l'envoyer
func (m *SMTPMailer) BuildMessage(email Email) (*mail.Msg, error) {
	msg := mail.NewMsg()
	if err := msg.From(m.cfg.From); err != nil {
		return nil, fmt.Errorf("expéditeur invalide: %w", err)
	}
	if err := msg.To(email.To); err != nil {
		return nil, fmt.Errorf("destinataire invalide: %w", err)
	}
	msg.Subject(email.Subject)
	msg.SetBodyString(mail.TypeTextHTML, email.HTML)

	for _, a := range email.Attachments {
		if err := msg.AttachReader(a.Name, bytes.NewReader(a.Content)); err != nil {
			return nil, fmt.Errorf("pièce jointe %s: %w", a.Name, err)
		}
	}
	return msg, nil
}

func (m *SMTPMailer) Send(ctx context.Context, email Email) error {
	if m.cfg.Host == "" {
		log.Printf("⚠️ SMTP non configuré, email ignoré: %q → %s", email.Subject, email.To)
		return nil
	}

	msg, err := m.BuildMessage(email)
	if err != nil {
		return err
	}

	client, err := mail.NewClient(m.cfg.Host,
		mail.WithPort(m.cfg.Port),
		mail.WithSMTPAuth(mail.SMTPAuthLogin),
		mail.WithUsername(m.cfg.Username),
		mail.WithPassword(m.cfg.Password),
		mail.WithTLSPolicy(mail.TLSMandatory),
		mail.WithTimeout(m.cfg.Timeout),
	)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, m.cfg.Timeout)
	defer cancel()

	log.Println("📤 Envoi de l'e-mail à", email.To)
	return client.DialAndSendWithContext(ctx, msg)
}
