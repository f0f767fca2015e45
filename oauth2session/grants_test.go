package oauth2session

import "testing"

func TestGrantRequests(t *testing.T) {
	cfg := Config{ClientID: "cid", ClientSecret: "secret"}

	tests := []struct {
		name       string
		grant      grant
		want       tokenRequest
		reissuable bool
	}{
		{
			name:  "client credentials",
			grant: clientCredentialsGrant{},
			want: tokenRequest{
				GrantType:    grantClientCredentials,
				ClientID:     "cid",
				ClientSecret: "secret",
			},
			reissuable: true,
		},
		{
			name:  "client credentials with user token",
			grant: userTokenGrant{userToken: "ut-1"},
			want: tokenRequest{
				GrantType:    grantClientCredentials,
				ClientID:     "cid",
				ClientSecret: "secret",
				UserToken:    "ut-1",
			},
			reissuable: true,
		},
		{
			name:  "authorization code",
			grant: authorizationCodeGrant{code: "c1", redirectURI: "https://app/cb"},
			want: tokenRequest{
				GrantType:    grantAuthorizationCode,
				ClientID:     "cid",
				ClientSecret: "secret",
				Code:         "c1",
				RedirectURI:  "https://app/cb",
			},
			reissuable: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.grant.request(cfg); got != tt.want {
				t.Errorf("request() = %+v, want %+v", got, tt.want)
			}
			if got := tt.grant.reissuable(); got != tt.reissuable {
				t.Errorf("reissuable() = %v, want %v", got, tt.reissuable)
			}
			if tt.grant.name() == "" {
				t.Error("grant name must not be empty")
			}
		})
	}
}
