// Package smtpserver accepts letters over SMTP and files each one as an
// incoming mail record.
package smtpserver

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/emersion/go-sasl"
	"github.com/emersion/go-smtp"

	"github.io/infrasutra/orgmail/internal/intake"
	"github.io/infrasutra/orgmail/internal/store"
)

const (
	defaultDomain = "orgmail"
	storeTimeout  = 10 * time.Second
)

type AuthConfig struct {
	Enabled  bool
	Username string
	Password string
}

type Server struct {
	smtp   *smtp.Server
	logger *slog.Logger
}

func New(adder intake.Adder, converter *intake.Converter, logger *slog.Logger, addr string, authCfg AuthConfig) *Server {
	logger = logger.With("component", "smtp")
	backend := &backend{
		adder:        adder,
		converter:    converter,
		logger:       logger,
		authEnabled:  authCfg.Enabled,
		authUsername: authCfg.Username,
		authPassword: authCfg.Password,
	}
	server := smtp.NewServer(backend)
	server.Addr = addr
	server.Domain = defaultDomain
	server.AllowInsecureAuth = true
	server.ReadTimeout = 15 * time.Second
	server.WriteTimeout = 15 * time.Second
	server.MaxRecipients = 100
	server.MaxMessageBytes = 25 << 20

	return &Server{smtp: server, logger: logger}
}

func (s *Server) ListenAndServe() error {
	s.logger.Info("smtp server listening", "addr", s.smtp.Addr)
	return s.smtp.ListenAndServe()
}

func (s *Server) Close() error {
	return s.smtp.Close()
}

type backend struct {
	adder        intake.Adder
	converter    *intake.Converter
	logger       *slog.Logger
	authEnabled  bool
	authUsername string
	authPassword string
}

func (b *backend) NewSession(_ *smtp.Conn) (smtp.Session, error) {
	return &session{backend: b}, nil
}

type session struct {
	backend       *backend
	from          string
	to            []string
	authenticated bool
}

func (s *session) AuthMechanisms() []string {
	if s.backend.authEnabled {
		return []string{sasl.Plain}
	}
	return nil
}

func (s *session) Auth(mech string) (sasl.Server, error) {
	if !s.backend.authEnabled {
		return nil, errors.New("authentication not enabled")
	}
	if mech != sasl.Plain {
		return nil, errors.New("unsupported authentication mechanism")
	}
	return sasl.NewPlainServer(func(identity, username, password string) error {
		if username == s.backend.authUsername && password == s.backend.authPassword {
			s.authenticated = true
			return nil
		}
		return errors.New("invalid credentials")
	}), nil
}

func (s *session) Mail(from string, _ *smtp.MailOptions) error {
	if s.backend.authEnabled && !s.authenticated {
		return smtp.ErrAuthRequired
	}
	s.from = normalizeEmail(from)
	return nil
}

func (s *session) Rcpt(to string, _ *smtp.RcptOptions) error {
	if s.backend.authEnabled && !s.authenticated {
		return smtp.ErrAuthRequired
	}
	s.to = append(s.to, normalizeEmail(to))
	return nil
}

func (s *session) Data(r io.Reader) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return err
	}

	record, err := s.backend.converter.Convert(data, store.Incoming)
	if err != nil {
		s.backend.logger.Warn("parse smtp message", "from", s.from, "error", err)
		return &smtp.SMTPError{
			Code:         554,
			EnhancedCode: smtp.EnhancedCode{5, 6, 0},
			Message:      "Message could not be parsed",
		}
	}
	if record.Name == "unknown" && s.from != "" {
		record.Name = s.from
	}

	ctx, cancel := context.WithTimeout(context.Background(), storeTimeout)
	defer cancel()
	saved, err := s.backend.adder.AddMail(ctx, record)
	if err != nil {
		s.backend.logger.Error("store smtp message", "error", err)
		return fmt.Errorf("store message: %w", err)
	}

	s.backend.logger.Info("incoming mail received",
		"id", saved.ID,
		"number", saved.Number,
		"from", s.from,
		"recipients", len(s.to),
	)
	return nil
}

func (s *session) Reset() {
	s.from = ""
	s.to = nil
}

func (s *session) Logout() error {
	return nil
}

func normalizeEmail(email string) string {
	return strings.TrimSpace(strings.ToLower(email))
}
