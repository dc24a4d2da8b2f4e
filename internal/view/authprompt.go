package view

import (
	"context"
	"strings"

	"github.io/infrasutra/orgmail/internal/auth"
	"github.io/infrasutra/orgmail/internal/store"
)

const MsgRequiredFields = "Please fill in all required fields."

type AuthMode string

const (
	ModeLogin  AuthMode = "login"
	ModeSignup AuthMode = "signup"
)

type Sessions interface {
	Login(ctx context.Context, email, password string) (store.UserProfile, error)
	Signup(ctx context.Context, req store.SignupRequest) (store.UserProfile, error)
}

// AuthPrompt is the login/signup overlay.
type AuthPrompt struct {
	Open       bool
	Mode       AuthMode
	Name       string
	Email      string
	Password   string
	Department string
	Error      string
}

// Show opens the prompt in mode with an empty form.
func (p *AuthPrompt) Show(mode AuthMode) {
	*p = AuthPrompt{Open: true, Mode: mode}
}

// SetMode switches between login and signup and keeps what was typed.
func (p *AuthPrompt) SetMode(mode AuthMode) {
	p.Mode = mode
}

func (p *AuthPrompt) Close() {
	p.Open = false
}

func (p *AuthPrompt) missing() []string {
	var fields []string
	if p.Mode == ModeSignup && strings.TrimSpace(p.Name) == "" {
		fields = append(fields, "name")
	}
	if strings.TrimSpace(p.Email) == "" {
		fields = append(fields, "email")
	}
	if p.Password == "" {
		fields = append(fields, "password")
	}
	return fields
}

// Submit validates the form and starts a session. With a field missing it
// sets Error and makes no store call. On success the prompt closes.
func (p *AuthPrompt) Submit(ctx context.Context, sessions Sessions) (store.UserProfile, error) {
	p.Error = ""
	if fields := p.missing(); len(fields) > 0 {
		p.Error = MsgRequiredFields
		return store.UserProfile{}, &store.ValidationError{Fields: fields}
	}

	email := strings.ToLower(strings.TrimSpace(p.Email))
	var (
		profile store.UserProfile
		err     error
	)
	if p.Mode == ModeSignup {
		department := strings.TrimSpace(p.Department)
		if department == "" {
			department = auth.DefaultDepartment
		}
		profile, err = sessions.Signup(ctx, store.SignupRequest{
			Name:       p.Name,
			Email:      email,
			Password:   p.Password,
			Department: department,
		})
	} else {
		profile, err = sessions.Login(ctx, email, p.Password)
	}
	if err != nil {
		p.Error = err.Error()
		return store.UserProfile{}, err
	}
	p.Close()
	return profile, nil
}
