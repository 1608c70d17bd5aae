package main

import (
	"context"
	"crypto/tls"
	"errors"
	"net/textproto"
	"time"

	"github.com/go-logr/logr"
	"github.com/wneessen/go-mail"
)

// Dispatcher sends report documents over an implicit-TLS SMTP session.
// Every Send opens and closes its own connection.
type Dispatcher struct {
	log      logr.Logger
	host     string
	port     int
	username string
	password string
	timeout  time.Duration

	// tlsConfig overrides the default verification settings when non-nil.
	tlsConfig *tls.Config
}

func newDispatcher(log logr.Logger, cfg *Config) *Dispatcher {
	return &Dispatcher{
		log:      log,
		host:     cfg.SMTPServer,
		port:     cfg.SMTPPort,
		username: cfg.SenderMail,
		password: cfg.SenderPassword,
		timeout:  cfg.SMTPTimeout,
	}
}

// Send delivers doc to its single recipient. Errors are *AuthenticationError,
// *TransportError or *DeliveryError and are never retried here.
func (d *Dispatcher) Send(ctx context.Context, doc *ReportDocument) error {
	msg, err := doc.Message()
	if err != nil {
		return &DeliveryError{Err: err}
	}

	opts := []mail.Option{
		mail.WithPort(d.port),
		mail.WithSSL(),
		mail.WithSMTPAuth(mail.SMTPAuthPlain),
		mail.WithUsername(d.username),
		mail.WithPassword(d.password),
		mail.WithTimeout(d.timeout),
	}
	if d.tlsConfig != nil {
		opts = append(opts, mail.WithTLSConfig(d.tlsConfig))
	}

	client, err := mail.NewClient(d.host, opts...)
	if err != nil {
		return &TransportError{Err: err}
	}

	if err := client.DialWithContext(ctx); err != nil {
		return classifyDialError(err)
	}
	defer func() {
		if err := client.Close(); err != nil {
			d.log.V(1).Info("smtp close", "err", err)
		}
	}()

	if err := client.Send(msg); err != nil {
		return &DeliveryError{Err: err}
	}
	d.log.Info("report sent", "to", doc.To, "server", d.host, "subject", doc.Subject)
	return nil
}

// classifyDialError separates credential rejections (5.3.x replies during
// AUTH) from connection and TLS failures.
func classifyDialError(err error) error {
	var tpErr *textproto.Error
	if errors.As(err, &tpErr) && tpErr.Code >= 530 && tpErr.Code <= 539 {
		return &AuthenticationError{Err: err}
	}
	return &TransportError{Err: err}
}
