package xunfei

import (
	"encoding/base64"
	"net/url"
	"strings"
	"testing"
	"time"
)

func TestAuthURL(t *testing.T) {
	now := time.Date(2025, time.September, 1, 0, 0, 0, 0, time.UTC)

	signed, err := authURL("wss://iat-api.xfyun.cn/v2/iat", "test-key", "test-secret", now)
	if err != nil {
		t.Fatalf("Failed to build auth URL: %v", err)
	}

	parsed, err := url.Parse(signed)
	if err != nil {
		t.Fatalf("Failed to parse signed URL: %v", err)
	}
	query := parsed.Query()

	if got := query.Get("host"); got != "iat-api.xfyun.cn" {
		t.Errorf("Expected host query %q, got %q", "iat-api.xfyun.cn", got)
	}
	if got := query.Get("date"); got != "Mon, 01 Sep 2025 00:00:00 GMT" {
		t.Errorf("Expected GMT date query, got %q", got)
	}

	raw, err := base64.StdEncoding.DecodeString(query.Get("authorization"))
	if err != nil {
		t.Fatalf("Failed to decode authorization: %v", err)
	}
	auth := string(raw)

	if !strings.Contains(auth, `api_key="test-key"`) {
		t.Errorf("Expected api_key in authorization, got %q", auth)
	}
	if !strings.Contains(auth, `algorithm="hmac-sha256"`) {
		t.Errorf("Expected hmac-sha256 algorithm, got %q", auth)
	}
	if !strings.Contains(auth, `headers="host date request-line"`) {
		t.Errorf("Expected signed headers list, got %q", auth)
	}
	// Pinned HMAC-SHA256 over "host: H\ndate: D\nGET /v2/iat HTTP/1.1".
	if !strings.Contains(auth, `signature="WKONjf5vnIz4x+YuLU8+F0OJVAugp5LfIT/NM7vLY2w="`) {
		t.Errorf("Expected pinned signature, got %q", auth)
	}
}

func TestAuthURLInvalidGateway(t *testing.T) {
	if _, err := authURL("://bad", "k", "s", time.Now()); err == nil {
		t.Error("Expected error for invalid gateway URL")
	}
}
