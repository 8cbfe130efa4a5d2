// Package auth translates Google OAuth credentials into verified user
// profiles. It holds no state beyond client configuration; persistence is
// entirely the caller's concern.
package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Profile is the verified identity triple handed to the user directory.
// Name and Picture may be blank; callers substitute safe defaults rather
// than failing.
type Profile struct {
	Email   string
	Name    string
	Picture string
}

// ErrExternalAuth is returned whenever Google rejects a credential, the
// payload lacks an email, or the token was minted for a different client.
var ErrExternalAuth = errors.New("external auth failed")

const (
	defaultAuthURL      = "https://accounts.google.com/o/oauth2/v2/auth"
	defaultTokenURL     = "https://oauth2.googleapis.com/token"
	defaultTokenInfoURL = "https://oauth2.googleapis.com/tokeninfo"
	defaultUserInfoURL  = "https://www.googleapis.com/oauth2/v3/userinfo"
)

// Resolver exchanges OAuth codes and verifies mobile ID tokens against
// Google. Endpoint URLs are fields so tests can point the resolver at a
// local server.
type Resolver struct {
	ClientID     string
	ClientSecret string
	RedirectURI  string

	AuthURLBase  string
	TokenURL     string
	TokenInfoURL string
	UserInfoURL  string

	HTTPClient *http.Client
}

// NewResolver builds a Resolver against the real Google endpoints with a
// bounded HTTP timeout so a slow provider cannot stall request handling.
func NewResolver(clientID, clientSecret, redirectURI string) *Resolver {
	return &Resolver{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		RedirectURI:  redirectURI,
		AuthURLBase:  defaultAuthURL,
		TokenURL:     defaultTokenURL,
		TokenInfoURL: defaultTokenInfoURL,
		UserInfoURL:  defaultUserInfoURL,
		HTTPClient:   &http.Client{Timeout: 5 * time.Second},
	}
}

// AuthURL returns the provider consent URL carrying the given opaque state.
func (r *Resolver) AuthURL(state string) string {
	q := url.Values{
		"client_id":     {r.ClientID},
		"redirect_uri":  {r.RedirectURI},
		"response_type": {"code"},
		"scope":         {"profile email"},
		"access_type":   {"offline"},
		"state":         {state},
	}
	return r.AuthURLBase + "?" + q.Encode()
}

// ExchangeCode swaps an authorization code for tokens and fetches the
// userinfo document. Any provider-side failure maps to ErrExternalAuth.
func (r *Resolver) ExchangeCode(ctx context.Context, code string) (Profile, error) {
	form := url.Values{
		"code":          {code},
		"client_id":     {r.ClientID},
		"client_secret": {r.ClientSecret},
		"redirect_uri":  {r.RedirectURI},
		"grant_type":    {"authorization_code"},
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.TokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		return Profile{}, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	var tok struct {
		AccessToken string `json:"access_token"`
	}
	if err := r.doJSON(req, &tok); err != nil {
		return Profile{}, err
	}
	if tok.AccessToken == "" {
		return Profile{}, fmt.Errorf("%w: empty access token", ErrExternalAuth)
	}

	req, err = http.NewRequestWithContext(ctx, http.MethodGet, r.UserInfoURL, nil)
	if err != nil {
		return Profile{}, err
	}
	req.Header.Set("Authorization", "Bearer "+tok.AccessToken)

	var info struct {
		Email   string `json:"email"`
		Name    string `json:"name"`
		Picture string `json:"picture"`
	}
	if err := r.doJSON(req, &info); err != nil {
		return Profile{}, err
	}
	if info.Email == "" {
		return Profile{}, fmt.Errorf("%w: no email in userinfo", ErrExternalAuth)
	}
	return Profile{Email: info.Email, Name: info.Name, Picture: info.Picture}, nil
}

// VerifyIDToken validates a mobile sign-in ID token via the tokeninfo
// endpoint and checks the audience against our client id.
func (r *Resolver) VerifyIDToken(ctx context.Context, idToken string) (Profile, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		r.TokenInfoURL+"?id_token="+url.QueryEscape(idToken), nil)
	if err != nil {
		return Profile{}, err
	}

	var info struct {
		Aud     string `json:"aud"`
		Email   string `json:"email"`
		Name    string `json:"name"`
		Picture string `json:"picture"`
	}
	if err := r.doJSON(req, &info); err != nil {
		return Profile{}, err
	}
	if info.Aud != r.ClientID {
		return Profile{}, fmt.Errorf("%w: token audience mismatch", ErrExternalAuth)
	}
	if info.Email == "" {
		return Profile{}, fmt.Errorf("%w: no email in token", ErrExternalAuth)
	}
	return Profile{Email: info.Email, Name: info.Name, Picture: info.Picture}, nil
}

func (r *Resolver) doJSON(req *http.Request, out any) error {
	resp, err := r.HTTPClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrExternalAuth, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: provider returned %d", ErrExternalAuth, resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%w: decode response: %v", ErrExternalAuth, err)
	}
	return nil
}
