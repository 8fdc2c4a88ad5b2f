// Package aliyun implements the streaming adapter for the Alibaba Cloud
// NLS real-time transcription gateway: a short-lived bearer token is
// fetched via a signed REST call, then audio is pushed over a WebSocket
// that echoes incremental JSON result frames.
package aliyun

import (
	"crypto/hmac"
	"crypto/md5"
	"crypto/sha1"
	"encoding/base64"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/skypro1111/asr-gateway/internal/asr"
)

const (
	defaultTokenURL = "https://nls-meta.cn-shanghai.aliyuncs.com/pop/2018-05-18/tokens"
	tokenResource   = "/pop/2018-05-18/tokens"
)

var (
	tokenIDPattern = regexp.MustCompile(`<Id>([^<]+)</Id>`)
	errCodePattern = regexp.MustCompile(`<Code>([^<]+)</Code>`)
	errMsgPattern  = regexp.MustCompile(`<Message>([^<]+)</Message>`)
	errMsg2Pattern = regexp.MustCompile(`<ErrMsg>([^<]*)</ErrMsg>`)
)

// TokenClient obtains short-lived access tokens from the NLS metadata
// service using the vendor's canonical-string HMAC-SHA1 signature.
type TokenClient struct {
	accessKeyID     string
	accessKeySecret string
	tokenURL        string
	httpClient      *http.Client

	// now is replaceable in tests to pin the Date header.
	now func() time.Time
}

// NewTokenClient creates a token client for the given access key pair.
func NewTokenClient(accessKeyID, accessKeySecret string) *TokenClient {
	return &TokenClient{
		accessKeyID:     accessKeyID,
		accessKeySecret: accessKeySecret,
		tokenURL:        defaultTokenURL,
		httpClient:      &http.Client{Timeout: 10 * time.Second},
		now:             time.Now,
	}
}

// Fetch requests a fresh token. The signing inputs are derived per
// request and discarded after the signature is computed.
func (t *TokenClient) Fetch() (string, error) {
	date := t.now().UTC().Format(http.TimeFormat)

	// Content-MD5 of the empty request body.
	sum := md5.Sum(nil)
	contentMD5 := base64.StdEncoding.EncodeToString(sum[:])
	contentType := "application/json"
	accept := "application/json"

	signature := signRequest(t.accessKeySecret, accept, contentMD5, contentType, date)

	req, err := http.NewRequest(http.MethodPost, t.tokenURL, strings.NewReader(""))
	if err != nil {
		return "", fmt.Errorf("failed to create token request: %w", err)
	}
	req.Header.Set("Accept", accept)
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Content-MD5", contentMD5)
	req.Header.Set("Date", date)
	req.Header.Set("Authorization", fmt.Sprintf("Dataplus %s:%s", t.accessKeyID, signature))

	resp, err := t.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: token request: %v", asr.ErrConnectionError, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read token response: %w", err)
	}

	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		return "", fmt.Errorf("%w: HTTP %d: %s", asr.ErrAuthenticationFailed, resp.StatusCode, string(body))
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("token request failed: HTTP %d: %s", resp.StatusCode, string(body))
	}

	return extractToken(string(body))
}

// signRequest computes the HMAC-SHA1 signature over the vendor's
// canonical string: method, accept, content digest, content type, date
// and resource path joined by newlines.
func signRequest(secret, accept, contentMD5, contentType, date string) string {
	stringToSign := strings.Join([]string{
		http.MethodPost,
		accept,
		contentMD5,
		contentType,
		date,
		tokenResource,
	}, "\n")

	mac := hmac.New(sha1.New, []byte(secret))
	mac.Write([]byte(stringToSign))
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}

// extractToken pulls the token ID out of the XML response, surfacing
// vendor error elements when present.
func extractToken(xml string) (string, error) {
	xml = strings.TrimSpace(xml)

	if strings.Contains(xml, "<Error>") {
		code := "unknown"
		msg := "unknown error"
		if m := errCodePattern.FindStringSubmatch(xml); m != nil {
			code = m[1]
		}
		if m := errMsgPattern.FindStringSubmatch(xml); m != nil {
			msg = m[1]
		}
		return "", fmt.Errorf("%w: %s: %s", asr.ErrAuthenticationFailed, code, msg)
	}
	if m := errMsg2Pattern.FindStringSubmatch(xml); m != nil && m[1] != "" {
		return "", fmt.Errorf("%w: %s", asr.ErrAuthenticationFailed, m[1])
	}

	if !strings.Contains(xml, "<CreateTokenResponse>") {
		return "", fmt.Errorf("unexpected token response format: %s", xml)
	}

	m := tokenIDPattern.FindStringSubmatch(xml)
	if m == nil {
		return "", fmt.Errorf("token response missing token ID: %s", xml)
	}
	return m[1], nil
}
