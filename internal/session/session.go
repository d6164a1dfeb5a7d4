// Package session owns the remote spreadsheet authentication state.
//
// A Session moves Uninitialized → Initializing → Ready once Init has loaded
// the OAuth client configuration. SignIn moves Ready → Authenticated and
// SignOut moves back to Ready. Only an Authenticated session hands out an
// HTTP client; every other state yields core.ErrRemoteUnauthenticated.
package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	oauth2api "google.golang.org/api/oauth2/v2"
	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"

	"struk/internal/core"
)

type State int

const (
	Uninitialized State = iota
	Initializing
	Ready
	Authenticated
)

func (s State) String() string {
	switch s {
	case Uninitialized:
		return "uninitialized"
	case Initializing:
		return "initializing"
	case Ready:
		return "ready"
	case Authenticated:
		return "authenticated"
	default:
		return "unknown"
	}
}

// Scopes requested at sign-in.
var Scopes = []string{
	sheets.SpreadsheetsScope,
	oauth2api.UserinfoEmailScope,
	oauth2api.UserinfoProfileScope,
}

// Options describe where the OAuth client and token live. ClientJSON wins
// over ClientFile. An empty TokenFile keeps the token in memory only.
type Options struct {
	ClientJSON  string
	ClientFile  string
	TokenFile   string
	RedirectURL string
}

// Account is the signed-in user's public identity.
type Account struct {
	Email    string
	Name     string
	PhotoURL string
}

type Session struct {
	opts Options

	mu       sync.Mutex
	state    State
	cfg      *oauth2.Config
	token    *oauth2.Token
	initDone chan struct{}
	initErr  error

	// accountEndpoint overrides the userinfo endpoint in tests.
	accountEndpoint string
}

func New(opts Options) *Session {
	return &Session{opts: opts}
}

func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Init loads the client configuration and, when a token file exists,
// restores the signed-in state. Concurrent callers wait for the same
// initialization and get the same result.
func (s *Session) Init(ctx context.Context) error {
	s.mu.Lock()
	if s.initDone != nil {
		done := s.initDone
		s.mu.Unlock()
		select {
		case <-done:
		case <-ctx.Done():
			return ctx.Err()
		}
		s.mu.Lock()
		defer s.mu.Unlock()
		return s.initErr
	}
	done := make(chan struct{})
	s.initDone = done
	s.initErr = nil
	s.state = Initializing
	s.mu.Unlock()

	cfg, tok, err := s.load(ctx)

	s.mu.Lock()
	defer s.mu.Unlock()
	defer close(done)
	if err != nil {
		// Waiters still see err; the next Init starts over.
		s.state = Uninitialized
		s.initErr = err
		s.initDone = nil
		return err
	}
	s.cfg = cfg
	s.state = Ready
	if tok != nil {
		s.token = tok
		s.state = Authenticated
	}
	slog.DebugContext(ctx, "Session initialized", "state", s.state.String())
	return nil
}

func (s *Session) load(ctx context.Context) (*oauth2.Config, *oauth2.Token, error) {
	var raw []byte
	switch {
	case strings.TrimSpace(s.opts.ClientJSON) != "":
		raw = []byte(s.opts.ClientJSON)
	case strings.TrimSpace(s.opts.ClientFile) != "":
		b, err := os.ReadFile(s.opts.ClientFile)
		if err != nil {
			return nil, nil, fmt.Errorf("read oauth client file: %w", err)
		}
		raw = b
	default:
		return nil, nil, fmt.Errorf("%w: no oauth client configured", core.ErrRemoteUnauthenticated)
	}
	cfg, err := google.ConfigFromJSON(raw, Scopes...)
	if err != nil {
		return nil, nil, fmt.Errorf("parse oauth client: %w", err)
	}
	if s.opts.RedirectURL != "" {
		cfg.RedirectURL = s.opts.RedirectURL
	}

	if s.opts.TokenFile == "" {
		return cfg, nil, nil
	}
	tok, err := LoadToken(s.opts.TokenFile)
	if errors.Is(err, os.ErrNotExist) {
		return cfg, nil, nil
	}
	if err != nil {
		slog.WarnContext(ctx, "Ignoring unreadable token file", "path", s.opts.TokenFile, "error", err)
		return cfg, nil, nil
	}
	return cfg, tok, nil
}

// Config returns the OAuth client configuration once initialized.
func (s *Session) Config() (*oauth2.Config, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == Uninitialized || s.state == Initializing {
		return nil, fmt.Errorf("%w: session is %s", core.ErrRemoteUnauthenticated, s.state)
	}
	return s.cfg, nil
}

// SignIn stores tok and moves the session to Authenticated.
func (s *Session) SignIn(ctx context.Context, tok *oauth2.Token) error {
	if tok == nil || (tok.AccessToken == "" && tok.RefreshToken == "") {
		return fmt.Errorf("%w: empty token", core.ErrRemoteUnauthenticated)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != Ready && s.state != Authenticated {
		return fmt.Errorf("%w: cannot sign in while %s", core.ErrRemoteUnauthenticated, s.state)
	}
	if s.opts.TokenFile != "" {
		if err := SaveToken(s.opts.TokenFile, tok); err != nil {
			return err
		}
	}
	s.token = tok
	s.state = Authenticated
	slog.InfoContext(ctx, "Signed in")
	return nil
}

// Exchange trades an authorization code for a token and signs in with it.
func (s *Session) Exchange(ctx context.Context, code string) (*oauth2.Token, error) {
	cfg, err := s.Config()
	if err != nil {
		return nil, err
	}
	tok, err := cfg.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("%w: token exchange: %w", core.ErrRemoteUnauthenticated, err)
	}
	return tok, s.SignIn(ctx, tok)
}

// SignOut forgets the token and removes the token file.
func (s *Session) SignOut() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != Authenticated {
		return nil
	}
	s.token = nil
	s.state = Ready
	if s.opts.TokenFile != "" {
		if err := os.Remove(s.opts.TokenFile); err != nil && !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("remove token file: %w", err)
		}
	}
	return nil
}

// HTTPClient returns an authorized client that refreshes the token as
// needed.
func (s *Session) HTTPClient(ctx context.Context) (*http.Client, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != Authenticated {
		return nil, fmt.Errorf("%w: session is %s", core.ErrRemoteUnauthenticated, s.state)
	}
	return s.cfg.Client(ctx, s.token), nil
}

// Account looks up the signed-in user's email and photo.
func (s *Session) Account(ctx context.Context) (Account, error) {
	hc, err := s.HTTPClient(ctx)
	if err != nil {
		return Account{}, err
	}
	opts := []option.ClientOption{option.WithHTTPClient(hc)}
	if s.accountEndpoint != "" {
		opts = append(opts, option.WithEndpoint(s.accountEndpoint))
	}
	svc, err := oauth2api.NewService(ctx, opts...)
	if err != nil {
		return Account{}, fmt.Errorf("%w: userinfo service: %w", core.ErrRemoteTransient, err)
	}
	info, err := svc.Userinfo.Get().Context(ctx).Do()
	if err != nil {
		return Account{}, Classify("userinfo", err)
	}
	return Account{Email: info.Email, Name: info.Name, PhotoURL: info.Picture}, nil
}

// LoadToken reads a JSON-encoded token.
func LoadToken(path string) (*oauth2.Token, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var tok oauth2.Token
	if err := json.Unmarshal(b, &tok); err != nil {
		return nil, fmt.Errorf("decode token %s: %w", path, err)
	}
	return &tok, nil
}

// SaveToken writes tok as JSON with owner-only permissions.
func SaveToken(path string, tok *oauth2.Token) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return fmt.Errorf("create token directory: %w", err)
		}
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o600)
	if err != nil {
		return fmt.Errorf("open token file: %w", err)
	}
	defer f.Close()
	if err := json.NewEncoder(f).Encode(tok); err != nil {
		return fmt.Errorf("write token: %w", err)
	}
	return nil
}
