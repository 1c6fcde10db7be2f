package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"golang.org/x/oauth2"
)

const appDir = "meetfinder"

// FileTokenProvider keeps one JSON token per account in the user cache
// directory and refreshes it through conf. Refreshed tokens are written back.
type FileTokenProvider struct {
	dir  string
	conf *oauth2.Config
	mu   sync.Mutex
}

// NewFileTokenProvider stores tokens under dir. An empty dir means
// $XDG_CACHE_HOME/meetfinder or the platform equivalent.
func NewFileTokenProvider(dir string, conf *oauth2.Config) (*FileTokenProvider, error) {
	if dir == "" {
		base, err := os.UserCacheDir()
		if err != nil {
			return nil, fmt.Errorf("failed to locate cache directory: %w", err)
		}
		dir = filepath.Join(base, appDir)
	}
	return &FileTokenProvider{dir: dir, conf: conf}, nil
}

// Dir returns the directory holding token files.
func (p *FileTokenProvider) Dir() string {
	return p.dir
}

func (p *FileTokenProvider) path(account string) string {
	if account == "" {
		account = DefaultAccount
	}
	// Account names come from tool arguments; keep them inside dir.
	safe := strings.NewReplacer("/", "_", "\\", "_", "..", "_").Replace(account)
	return filepath.Join(p.dir, safe+".token")
}

// Load reads the cached token for account.
func (p *FileTokenProvider) Load(account string) (*oauth2.Token, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.load(account)
}

func (p *FileTokenProvider) load(account string) (*oauth2.Token, error) {
	raw, err := os.ReadFile(p.path(account))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s (run `meetfinder login`)", ErrNoToken, account)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read token for %s: %w", account, err)
	}
	var tok oauth2.Token
	if err := json.Unmarshal(raw, &tok); err != nil {
		return nil, fmt.Errorf("corrupt token file for %s: %w", account, err)
	}
	return &tok, nil
}

// Save writes tok for account with owner-only permissions.
func (p *FileTokenProvider) Save(account string, tok *oauth2.Token) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.save(account, tok)
}

func (p *FileTokenProvider) save(account string, tok *oauth2.Token) error {
	if err := os.MkdirAll(p.dir, 0o700); err != nil {
		return fmt.Errorf("failed to create token directory: %w", err)
	}
	raw, err := json.Marshal(tok)
	if err != nil {
		return fmt.Errorf("failed to encode token: %w", err)
	}
	if err := os.WriteFile(p.path(account), raw, 0o600); err != nil {
		return fmt.Errorf("failed to write token file: %w", err)
	}
	return nil
}

func (p *FileTokenProvider) HasTokenForAccount(account string) bool {
	_, err := os.Stat(p.path(account))
	return err == nil
}

// TokenSource returns a refreshing source for the cached token. Without an
// oauth2 config the cached token is served as is.
func (p *FileTokenProvider) TokenSource(ctx context.Context, account string) (oauth2.TokenSource, error) {
	tok, err := p.Load(account)
	if err != nil {
		return nil, err
	}
	if p.conf == nil {
		return oauth2.StaticTokenSource(tok), nil
	}
	// The source outlives the request that created it.
	base := p.conf.TokenSource(context.WithoutCancel(ctx), tok)
	return &persistingSource{base: base, last: tok.AccessToken, save: func(t *oauth2.Token) error {
		return p.Save(account, t)
	}}, nil
}

// persistingSource writes a token back whenever the underlying source
// refreshed it.
type persistingSource struct {
	base oauth2.TokenSource
	save func(*oauth2.Token) error

	mu   sync.Mutex
	last string
}

func (s *persistingSource) Token() (*oauth2.Token, error) {
	tok, err := s.base.Token()
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if tok.AccessToken != s.last {
		if err := s.save(tok); err != nil {
			return nil, err
		}
		s.last = tok.AccessToken
	}
	return tok, nil
}
