package oauth_test

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/ErlanBelekov/xblt/internal/domain"
	"github.com/ErlanBelekov/xblt/internal/oauth"
	"github.com/lestrrat-go/jwx/v2/jwa"
	"github.com/lestrrat-go/jwx/v2/jwk"
	"github.com/lestrrat-go/jwx/v2/jws"
	"github.com/lestrrat-go/jwx/v2/jwt"
	"golang.org/x/oauth2"
)

const (
	testClientID = "client-id.apps.googleusercontent.com"
	testKID      = "test-kid"
)

// fakeGoogle serves a JWKS document and a token endpoint that hands out
// whatever id_token the test set last.
type fakeGoogle struct {
	srv     *httptest.Server
	key     jwk.Key
	idToken string
}

func newFakeGoogle(t *testing.T) *fakeGoogle {
	t.Helper()

	raw, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}
	key, err := jwk.FromRaw(raw)
	if err != nil {
		t.Fatalf("jwk from raw: %v", err)
	}
	_ = key.Set(jwk.KeyIDKey, testKID)
	_ = key.Set(jwk.AlgorithmKey, jwa.RS256)

	pub, err := jwk.PublicKeyOf(key)
	if err != nil {
		t.Fatalf("public key: %v", err)
	}
	_ = pub.Set(jwk.KeyIDKey, testKID)
	_ = pub.Set(jwk.AlgorithmKey, jwa.RS256)
	set := jwk.NewSet()
	_ = set.AddKey(pub)

	fg := &fakeGoogle{key: key}

	mux := http.NewServeMux()
	mux.HandleFunc("/certs", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(set)
	})
	mux.HandleFunc("/token", func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil || r.PostForm.Get("code") != "good-code" {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusBadRequest)
			_, _ = w.Write([]byte(`{"error":"invalid_grant"}`))
			return
		}
		resp := map[string]any{
			"access_token": "access",
			"token_type":   "Bearer",
			"expires_in":   3600,
		}
		if fg.idToken != "" {
			resp["id_token"] = fg.idToken
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(resp)
	})
	fg.srv = httptest.NewServer(mux)
	t.Cleanup(fg.srv.Close)

	return fg
}

func (fg *fakeGoogle) sign(t *testing.T, claims map[string]any) string {
	t.Helper()

	tok := jwt.New()
	for k, v := range claims {
		if err := tok.Set(k, v); err != nil {
			t.Fatalf("set %s: %v", k, err)
		}
	}
	hdrs := jws.NewHeaders()
	_ = hdrs.Set(jws.KeyIDKey, testKID)

	signed, err := jwt.Sign(tok, jwt.WithKey(jwa.RS256, fg.key, jws.WithProtectedHeaders(hdrs)))
	if err != nil {
		t.Fatalf("sign id_token: %v", err)
	}
	return string(signed)
}

func (fg *fakeGoogle) provider(t *testing.T) *oauth.GoogleProvider {
	t.Helper()

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	p, err := oauth.NewGoogleProvider(ctx, oauth.GoogleConfig{
		ClientID:     testClientID,
		ClientSecret: "secret",
		RedirectURL:  "http://localhost:8080/users/google/callback",
		Endpoint: oauth2.Endpoint{
			AuthURL:   fg.srv.URL + "/auth",
			TokenURL:  fg.srv.URL + "/token",
			AuthStyle: oauth2.AuthStyleInParams,
		},
		JWKSURL: fg.srv.URL + "/certs",
	})
	if err != nil {
		t.Fatalf("new provider: %v", err)
	}
	return p
}

func validClaims() map[string]any {
	return map[string]any{
		jwt.IssuerKey:     "https://accounts.google.com",
		jwt.AudienceKey:   testClientID,
		jwt.SubjectKey:    "google-123",
		jwt.IssuedAtKey:   time.Now(),
		jwt.ExpirationKey: time.Now().Add(time.Hour),
		"email":           "new@x.com",
		"email_verified":  true,
		"name":            "Ada Lovelace",
	}
}

func TestAuthCodeURL_CarriesStateAndClient(t *testing.T) {
	fg := newFakeGoogle(t)
	p := fg.provider(t)

	u, err := url.Parse(p.AuthCodeURL("state-xyz"))
	if err != nil {
		t.Fatalf("parse url: %v", err)
	}
	q := u.Query()
	if q.Get("state") != "state-xyz" {
		t.Errorf("state = %q", q.Get("state"))
	}
	if q.Get("client_id") != testClientID {
		t.Errorf("client_id = %q", q.Get("client_id"))
	}
	if q.Get("redirect_uri") != "http://localhost:8080/users/google/callback" {
		t.Errorf("redirect_uri = %q", q.Get("redirect_uri"))
	}
	if q.Get("scope") != "openid profile email" {
		t.Errorf("scope = %q", q.Get("scope"))
	}
}

func TestExchange_ValidIDToken_ReturnsProfile(t *testing.T) {
	fg := newFakeGoogle(t)
	fg.idToken = fg.sign(t, validClaims())

	profile, err := fg.provider(t).Exchange(context.Background(), "good-code")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := domain.OAuthProfile{
		Provider:   domain.ProviderGoogle,
		ProviderID: "google-123",
		Email:      "new@x.com",
		Name:       "Ada Lovelace",
	}
	if *profile != want {
		t.Errorf("profile = %+v, want %+v", *profile, want)
	}
}

func TestExchange_UnverifiedEmail_DroppedFromProfile(t *testing.T) {
	fg := newFakeGoogle(t)
	claims := validClaims()
	claims["email_verified"] = false
	fg.idToken = fg.sign(t, claims)

	profile, err := fg.provider(t).Exchange(context.Background(), "good-code")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if profile.Email != "" {
		t.Errorf("email = %q, want empty", profile.Email)
	}
}

func TestExchange_NoEmailClaim(t *testing.T) {
	fg := newFakeGoogle(t)
	claims := validClaims()
	delete(claims, "email")
	delete(claims, "email_verified")
	fg.idToken = fg.sign(t, claims)

	profile, err := fg.provider(t).Exchange(context.Background(), "good-code")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if profile.Email != "" {
		t.Errorf("email = %q, want empty", profile.Email)
	}
}

func TestExchange_Rejects(t *testing.T) {
	cases := map[string]func(map[string]any){
		"wrong audience": func(c map[string]any) { c[jwt.AudienceKey] = "someone-else" },
		"wrong issuer":   func(c map[string]any) { c[jwt.IssuerKey] = "https://evil.example" },
		"expired": func(c map[string]any) {
			c[jwt.IssuedAtKey] = time.Now().Add(-2 * time.Hour)
			c[jwt.ExpirationKey] = time.Now().Add(-time.Hour)
		},
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			fg := newFakeGoogle(t)
			claims := validClaims()
			mutate(claims)
			fg.idToken = fg.sign(t, claims)

			if _, err := fg.provider(t).Exchange(context.Background(), "good-code"); err == nil {
				t.Fatal("expected verification error")
			}
		})
	}
}

func TestExchange_MissingIDToken(t *testing.T) {
	fg := newFakeGoogle(t)

	_, err := fg.provider(t).Exchange(context.Background(), "good-code")
	if !errors.Is(err, oauth.ErrMissingIDToken) {
		t.Errorf("want ErrMissingIDToken, got %v", err)
	}
}

func TestExchange_BadCode(t *testing.T) {
	fg := newFakeGoogle(t)
	fg.idToken = fg.sign(t, validClaims())

	if _, err := fg.provider(t).Exchange(context.Background(), "bad-code"); err == nil {
		t.Fatal("expected exchange error")
	}
}
