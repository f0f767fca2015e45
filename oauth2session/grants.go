package oauth2session

// Grant type values accepted by the token endpoint.
const (
	grantClientCredentials = "client_credentials"
	grantAuthorizationCode = "authorization_code"
	grantRefreshToken      = "refresh_token"
)

// tokenRequest is the JSON body sent to the token endpoint. Exactly the fields
// relevant to the grant type are populated.
type tokenRequest struct {
	GrantType    string `json:"grant_type"`
	ClientID     string `json:"client_id"`
	ClientSecret string `json:"client_secret"`
	UserToken    string `json:"user_token,omitempty"`
	Code         string `json:"code,omitempty"`
	RedirectURI  string `json:"redirect_uri,omitempty"`
	RefreshToken string `json:"refresh_token,omitempty"`
}

// tokenResponse is the JSON body returned by the token endpoint.
type tokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token,omitempty"`
	TokenType    string `json:"token_type"`
	Scope        string `json:"scope,omitempty"`
	ExpiresIn    int64  `json:"expires_in"`
}

// grant is one of the three authentication modes. Exactly one is active per
// session; switching modes re-runs initialization and replaces prior state.
type grant interface {
	// request builds the initial-exchange body for this grant.
	request(cfg Config) tokenRequest

	// reissuable reports whether the initial exchange can be re-run to renew
	// the session when no refresh token is available.
	reissuable() bool

	// name identifies the grant in logs.
	name() string
}

// clientCredentialsGrant is pure machine-to-machine authentication.
type clientCredentialsGrant struct{}

func (clientCredentialsGrant) request(cfg Config) tokenRequest {
	return tokenRequest{
		GrantType:    grantClientCredentials,
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
	}
}

func (clientCredentialsGrant) reissuable() bool { return true }
func (clientCredentialsGrant) name() string     { return grantClientCredentials }

// userTokenGrant exchanges a caller-supplied user access token (obtained
// elsewhere, e.g. a frontend) together with the client credentials for a
// session token scoped to that user's permissions.
type userTokenGrant struct {
	userToken string
}

func (g userTokenGrant) request(cfg Config) tokenRequest {
	return tokenRequest{
		GrantType:    grantClientCredentials,
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		UserToken:    g.userToken,
	}
}

func (userTokenGrant) reissuable() bool { return true }
func (userTokenGrant) name() string     { return "client_credentials+user_token" }

// authorizationCodeGrant redeems a one-time authorization code. The code
// cannot be replayed, so renewal strictly requires a refresh token.
type authorizationCodeGrant struct {
	code        string
	redirectURI string
}

func (g authorizationCodeGrant) request(cfg Config) tokenRequest {
	return tokenRequest{
		GrantType:    grantAuthorizationCode,
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		Code:         g.code,
		RedirectURI:  g.redirectURI,
	}
}

func (authorizationCodeGrant) reissuable() bool { return false }
func (authorizationCodeGrant) name() string     { return grantAuthorizationCode }

// AuthorizeCodeRequest asks the authorize-code endpoint for a redirect URL the
// caller's web front end sends the user to. State is echoed back for CSRF
// correlation; when empty a random value is generated.
type AuthorizeCodeRequest struct {
	ClientID       string `json:"client_id"`
	RedirectURI    string `json:"redirect_uri"`
	State          string `json:"state"`
	TargetTenantID int64  `json:"target_tenant_id,omitempty"`
}

// AuthorizeCode is the authorize-code endpoint's response.
type AuthorizeCode struct {
	RedirectURL string `json:"redirect_url"`
	State       string `json:"state"`
}
