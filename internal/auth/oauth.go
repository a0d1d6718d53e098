package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/rs/xid"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/github"
)

const githubAPIURL = "https://api.github.com"

// GitHubUser is the subset of GitHub's /user response used for sign-in.
type GitHubUser struct {
	ID    int64  `json:"id"`    // stable numeric id, the link key
	Login string `json:"login"` // becomes the local username
	Email string `json:"email"` // empty when the user hides it
}

// NoReplyEmail returns the address GitHub itself uses for users who keep
// their email private.
func (u *GitHubUser) NoReplyEmail() string {
	return fmt.Sprintf("%d+%s@users.noreply.github.com", u.ID, u.Login)
}

// GitHubProvider runs the OAuth 2.0 authorization code flow against GitHub.
//
//  1. AuthURL sends the browser to GitHub with a random state value
//  2. GitHub redirects back with ?code=...&state=...
//  3. Exchange trades the code for an access token (server to server, using
//     the client secret) and reads the profile from the /user API
type GitHubProvider struct {
	config *oauth2.Config
	apiURL string
}

// NewGitHubProvider builds a provider for an OAuth App registered at
// https://github.com/settings/developers. callbackURL must match the app's
// "Authorization callback URL" exactly.
func NewGitHubProvider(clientID, clientSecret, callbackURL string) *GitHubProvider {
	return newGitHubProvider(clientID, clientSecret, callbackURL, github.Endpoint, githubAPIURL)
}

func newGitHubProvider(clientID, clientSecret, callbackURL string, endpoint oauth2.Endpoint, apiURL string) *GitHubProvider {
	return &GitHubProvider{
		config: &oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			RedirectURL:  callbackURL,
			Scopes:       []string{"read:user", "user:email"},
			Endpoint:     endpoint,
		},
		apiURL: apiURL,
	}
}

// NewState returns an unguessable value for the OAuth state parameter.
// The handler stores it in a short-lived cookie and compares it on callback.
func NewState() string {
	return xid.New().String()
}

// AuthURL is where the browser is redirected to approve the sign-in.
func (p *GitHubProvider) AuthURL(state string) string {
	return p.config.AuthCodeURL(state, oauth2.AccessTypeOnline)
}

// Exchange completes the flow and returns the GitHub profile.
func (p *GitHubProvider) Exchange(ctx context.Context, code string) (*GitHubUser, error) {
	token, err := p.config.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("auth: exchanging OAuth code: %w", err)
	}

	// Client adds "Authorization: Bearer <access token>" to every request.
	client := p.config.Client(ctx, token)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.apiURL+"/user", nil)
	if err != nil {
		return nil, fmt.Errorf("auth: building GitHub /user request: %w", err)
	}
	req.Header.Set("Accept", "application/vnd.github+json")

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("auth: calling GitHub /user API: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("auth: GitHub /user API returned status %d", resp.StatusCode)
	}

	var user GitHubUser
	if err := json.NewDecoder(resp.Body).Decode(&user); err != nil {
		return nil, fmt.Errorf("auth: decoding GitHub /user response: %w", err)
	}
	if user.ID == 0 || user.Login == "" {
		return nil, fmt.Errorf("auth: GitHub returned an incomplete profile")
	}

	return &user, nil
}
