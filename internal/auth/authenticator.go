// Package auth authenticates (username, password) pairs against the
// host's pluggable authentication stack (PAM) and returns the
// environment published by the opened session. Grounded on
// original_source/src/authentication/authenticator.rs, which performs
// the same four-step PAM conversation (authenticate, acct_mgmt,
// open_session, envlist) via the pam_client crate; this is the
// equivalent Go binding, github.com/msteinert/pam/v2 — no example repo
// in the retrieval corpus touches PAM, so this one dependency is named
// rather than grounded in the pack (see DESIGN.md).
package auth

import (
	"fmt"

	"github.com/msteinert/pam/v2"

	"github.com/illgrenoble/webx-session-manager/internal/session"
)

// Service authenticates against a single named PAM service.
type Service struct {
	serviceName string
}

// NewService returns a Service bound to the given PAM service name
// (conventionally "login" or "webx").
func NewService(serviceName string) *Service {
	return &Service{serviceName: serviceName}
}

// Authenticate opens a PAM conversation seeded with the credentials,
// performs authentication, account management (rejecting expired/locked
// accounts — spec.md §9 "Open question — account-management step"), and
// opens a session, returning its published environment. Any step failing
// yields a [session.KindAuthentication] error whose message never echoes
// the password.
func (s *Service) Authenticate(creds session.Credentials) (session.EnvironmentList, error) {
	password := creds.Password()

	respond := func(style pam.Style, _ string) (string, error) {
		switch style {
		case pam.PromptEchoOff, pam.PromptEchoOn:
			return password, nil
		default:
			return "", nil
		}
	}

	tx, err := pam.StartFunc(s.serviceName, creds.Username, respond)
	if err != nil {
		return session.EnvironmentList{}, fmt.Errorf("opening PAM conversation: %w", err)
	}
	defer tx.End() //nolint:errcheck // best-effort teardown

	if err := tx.Authenticate(pam.Flags(0)); err != nil {
		return session.EnvironmentList{}, fmt.Errorf("authenticate: %w", err)
	}
	if err := tx.AcctMgmt(pam.Flags(0)); err != nil {
		return session.EnvironmentList{}, fmt.Errorf("account management: %w", err)
	}
	if err := tx.OpenSession(pam.Flags(0)); err != nil {
		return session.EnvironmentList{}, fmt.Errorf("opening session: %w", err)
	}

	raw, err := tx.GetEnvList()
	if err != nil {
		return session.EnvironmentList{}, fmt.Errorf("reading published environment: %w", err)
	}

	entries := make([]session.EnvEntry, 0, len(raw))
	for name, value := range raw {
		entries = append(entries, session.EnvEntry{Name: name, Value: value})
	}
	return session.NewEnvironmentList(entries...), nil
}

var _ session.Authenticator = (*Service)(nil)
