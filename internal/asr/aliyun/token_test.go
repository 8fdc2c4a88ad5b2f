package aliyun

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/skypro1111/asr-gateway/internal/asr"
)

func TestSignRequest(t *testing.T) {
	// Pinned canonical-string signature: POST, accept, empty-body MD5,
	// content type, date and resource path joined by newlines.
	sig := signRequest(
		"test-secret",
		"application/json",
		"1B2M2Y8AsgTpgAmY7PhCfg==",
		"application/json",
		"Mon, 01 Sep 2025 00:00:00 GMT",
	)
	if sig != "VpjyV2+Fuc9DH9m8RsYmkRpPfM0=" {
		t.Errorf("Expected pinned signature, got %q", sig)
	}
}

func TestExtractToken(t *testing.T) {
	tests := []struct {
		name    string
		xml     string
		token   string
		wantErr bool
		authErr bool
	}{
		{
			name:  "valid response",
			xml:   `<CreateTokenResponse><Token><Id>abc123token</Id><ExpireTime>1756684800</ExpireTime></Token></CreateTokenResponse>`,
			token: "abc123token",
		},
		{
			name:    "error element",
			xml:     `<Error><Code>InvalidAccessKeyId.NotFound</Code><Message>Specified access key is not found.</Message></Error>`,
			wantErr: true,
			authErr: true,
		},
		{
			name:    "errmsg element",
			xml:     `<Response><ErrMsg>signature mismatch</ErrMsg></Response>`,
			wantErr: true,
			authErr: true,
		},
		{
			name:    "unexpected format",
			xml:     `<html>not a token</html>`,
			wantErr: true,
		},
		{
			name:    "missing token id",
			xml:     `<CreateTokenResponse><Token></Token></CreateTokenResponse>`,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			token, err := extractToken(tt.xml)
			if tt.wantErr {
				if err == nil {
					t.Fatal("Expected error, got nil")
				}
				if tt.authErr && !errors.Is(err, asr.ErrAuthenticationFailed) {
					t.Errorf("Expected ErrAuthenticationFailed, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("Expected no error, got %v", err)
			}
			if token != tt.token {
				t.Errorf("Expected token %q, got %q", tt.token, token)
			}
		})
	}
}

func TestFetchSignsRequest(t *testing.T) {
	var gotAuth, gotDate, gotMD5 string

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotDate = r.Header.Get("Date")
		gotMD5 = r.Header.Get("Content-MD5")
		w.Write([]byte(`<CreateTokenResponse><Token><Id>fresh-token</Id></Token></CreateTokenResponse>`))
	}))
	defer server.Close()

	tc := NewTokenClient("test-ak", "test-secret")
	tc.tokenURL = server.URL
	tc.now = func() time.Time {
		return time.Date(2025, time.September, 1, 0, 0, 0, 0, time.UTC)
	}

	token, err := tc.Fetch()
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if token != "fresh-token" {
		t.Errorf("Expected token %q, got %q", "fresh-token", token)
	}
	if gotDate != "Mon, 01 Sep 2025 00:00:00 GMT" {
		t.Errorf("Expected pinned Date header, got %q", gotDate)
	}
	if gotMD5 != "1B2M2Y8AsgTpgAmY7PhCfg==" {
		t.Errorf("Expected empty-body Content-MD5, got %q", gotMD5)
	}
	want := "Dataplus test-ak:VpjyV2+Fuc9DH9m8RsYmkRpPfM0="
	if gotAuth != want {
		t.Errorf("Expected Authorization %q, got %q", want, gotAuth)
	}
}

func TestFetchAuthFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		w.Write([]byte(`<Error><Code>Forbidden</Code><Message>no</Message></Error>`))
	}))
	defer server.Close()

	tc := NewTokenClient("test-ak", "test-secret")
	tc.tokenURL = server.URL

	_, err := tc.Fetch()
	if !errors.Is(err, asr.ErrAuthenticationFailed) {
		t.Errorf("Expected ErrAuthenticationFailed, got %v", err)
	}
}

func TestFetchVendorError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte("boom"))
	}))
	defer server.Close()

	tc := NewTokenClient("test-ak", "test-secret")
	tc.tokenURL = server.URL

	_, err := tc.Fetch()
	if err == nil {
		t.Fatal("Expected error, got nil")
	}
	if errors.Is(err, asr.ErrAuthenticationFailed) {
		t.Errorf("Expected plain request failure, got auth error: %v", err)
	}
}
