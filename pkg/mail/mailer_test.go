package mail

import (
	"bytes"
	"context"
	"crypto/tls"
	"io"
	"net"
	"net/smtp"
	"testing"

	"github.com/stretchr/testify/require"
)

type fakeSMTPClient struct {
	mailFrom string
	rcptTo   []string
	data     bytes.Buffer
	quit     bool
}

func (f *fakeSMTPClient) Mail(from string) error { f.mailFrom = from; return nil }
func (f *fakeSMTPClient) Rcpt(to string) error   { f.rcptTo = append(f.rcptTo, to); return nil }
func (f *fakeSMTPClient) Data() (io.WriteCloser, error) {
	return nopWriteCloser{&f.data}, nil
}
func (f *fakeSMTPClient) Quit() error                       { f.quit = true; return nil }
func (f *fakeSMTPClient) Close() error                      { return nil }
func (f *fakeSMTPClient) StartTLS(*tls.Config) error        { return nil }
func (f *fakeSMTPClient) Auth(smtp.Auth) error              { return nil }
func (f *fakeSMTPClient) Extension(string) (bool, string)   { return false, "" }

type nopWriteCloser struct{ io.Writer }

func (nopWriteCloser) Close() error { return nil }

func newTestMailer(t *testing.T, cfg SMTPSettings, client smtpClient) Mailer {
	t.Helper()

	mailer, err := NewSMTPMailer(cfg)
	require.NoError(t, err)

	m := mailer.(*smtpMailer)
	m.dialFn = func(context.Context, SMTPSettings) (net.Conn, smtpClient, error) {
		server, conn := net.Pipe()
		_ = server.Close()
		return conn, client, nil
	}
	m.authFn = func(smtpClient, SMTPSettings) error { return nil }

	return m
}

func TestSMTPMailerDisabled(t *testing.T) {
	mailer, err := NewSMTPMailer(SMTPSettings{Enabled: false})
	require.NoError(t, err)

	err = mailer.Send(context.Background(), Message{To: "a@x.com", Subject: "hi"})
	require.ErrorIs(t, err, ErrSMTPDisabled)
}

func TestSMTPMailerSend(t *testing.T) {
	client := &fakeSMTPClient{}
	mailer := newTestMailer(t, SMTPSettings{
		Enabled: true,
		Host:    "smtp.example.com",
		Port:    587,
		From:    "noreply@snipurl.dev",
	}, client)

	err := mailer.Send(context.Background(), Message{
		To:      "alice@example.com",
		Subject: "E-mail verification",
		Body:    "your code is 123456\n",
	})
	require.NoError(t, err)
	require.Equal(t, "noreply@snipurl.dev", client.mailFrom)
	require.Equal(t, []string{"alice@example.com"}, client.rcptTo)
	require.Contains(t, client.data.String(), "Subject: E-mail verification")
	require.Contains(t, client.data.String(), "your code is 123456")
	require.True(t, client.quit)
}

func TestSMTPMailerRejectsBadRecipient(t *testing.T) {
	client := &fakeSMTPClient{}
	mailer := newTestMailer(t, SMTPSettings{
		Enabled: true,
		Host:    "smtp.example.com",
		Port:    587,
		From:    "noreply@snipurl.dev",
	}, client)

	err := mailer.Send(context.Background(), Message{To: "not-an-address"})
	require.Error(t, err)
	require.Empty(t, client.mailFrom)
}

func TestFormatMessageEscapesHeaders(t *testing.T) {
	msg := formatMessage("a@x.com", "b@y.com", "subject\r\ninjected", "body")
	require.NotContains(t, msg, "subject\r\ninjected")
	require.Contains(t, msg, "subject injected")
}
