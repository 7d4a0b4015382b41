package mail

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net"
	"strconv"
	"strings"

	"github.com/emersion/go-sasl"
	"github.com/emersion/go-smtp"
)

type sendMailFunc func(addr string, auth sasl.Client, from string, to []string, r io.Reader) error

// SMTPSender submits messages with STARTTLS and PLAIN authentication.
type SMTPSender struct {
	addr     string
	username string
	password string
	sendMail sendMailFunc
}

func NewSMTPSender(host string, port int, username, password string) (*SMTPSender, error) {
	host = strings.TrimSpace(host)
	if host == "" {
		return nil, fmt.Errorf("smtp host is required")
	}
	if port <= 0 || port > 65535 {
		return nil, fmt.Errorf("invalid smtp port %d", port)
	}

	return &SMTPSender{
		addr:     net.JoinHostPort(host, strconv.Itoa(port)),
		username: username,
		password: password,
		sendMail: smtp.SendMail,
	}, nil
}

func (s *SMTPSender) Send(ctx context.Context, from string, to []string, msg []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	var auth sasl.Client
	if s.username != "" {
		auth = sasl.NewPlainClient("", s.username, s.password)
	}

	if err := s.sendMail(s.addr, auth, from, to, bytes.NewReader(msg)); err != nil {
		return fmt.Errorf("smtp send to %s failed: %w", s.addr, err)
	}
	return nil
}
