package probe

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net"
	"net/smtp"
	"strconv"
	"strings"
)

// EmailProber checks the SMTP relay: dial, EHLO, optional STARTTLS, and an
// AUTH exchange when credentials are configured. No mail is sent.
type EmailProber struct{}

func (EmailProber) Probe(ctx context.Context, values map[string]any) error {
	host := getString(values, "host")
	if host == "" {
		return errors.New("host is not set")
	}
	addr := net.JoinHostPort(host, strconv.Itoa(getInt(values, "port")))

	var dialer net.Dialer
	conn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return fmt.Errorf("dial: %w", err)
	}
	defer conn.Close()

	// the SMTP exchange below is not context-aware; the deadline keeps it
	// inside the probe budget
	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetDeadline(deadline)
	}

	client, err := smtp.NewClient(conn, host)
	if err != nil {
		return fmt.Errorf("smtp handshake: %w", err)
	}
	defer client.Close()

	if getBool(values, "use_starttls") {
		if ok, _ := client.Extension("STARTTLS"); !ok {
			return errors.New("relay does not offer STARTTLS")
		}
		if err := client.StartTLS(&tls.Config{ServerName: host}); err != nil {
			return fmt.Errorf("starttls: %w", err)
		}
	}

	if username := getString(values, "username"); username != "" {
		auth := smtp.PlainAuth("", username, getString(values, "password"), host)
		if err := client.Auth(auth); err != nil {
			if isSMTPAuthFailure(err) {
				return fmt.Errorf("%w: relay refused credentials", ErrCredentialRejected)
			}
			return fmt.Errorf("auth: %w", err)
		}
	}

	return client.Quit()
}

func isSMTPAuthFailure(err error) bool {
	// 535 is the canonical authentication-credentials-invalid reply
	msg := err.Error()
	return strings.HasPrefix(msg, "535") || strings.Contains(msg, "535 ")
}
