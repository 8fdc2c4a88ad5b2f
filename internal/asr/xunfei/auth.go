// Package xunfei implements the streaming adapter for the iFlytek IAT
// real-time recognition API. Authentication is inline: the WebSocket
// URL itself carries an HMAC-SHA256 signature over a canonical header
// block, so no token pre-fetch round trip is needed.
package xunfei

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"net/http"
	"net/url"
	"time"
)

// authURL builds the authenticated WebSocket URL. The canonical string
// is "host: H\ndate: D\nGET <path> HTTP/1.1" signed with the API
// secret; the resulting authorization header is base64-encoded into the
// query string.
func authURL(gatewayURL, apiKey, apiSecret string, now time.Time) (string, error) {
	parsed, err := url.Parse(gatewayURL)
	if err != nil {
		return "", fmt.Errorf("invalid gateway URL: %w", err)
	}

	host := parsed.Host
	// RFC1123 with the GMT zone the vendor's signature check expects.
	date := now.UTC().Format(http.TimeFormat)

	signatureOrigin := fmt.Sprintf("host: %s\ndate: %s\nGET %s HTTP/1.1", host, date, parsed.Path)

	mac := hmac.New(sha256.New, []byte(apiSecret))
	mac.Write([]byte(signatureOrigin))
	signature := base64.StdEncoding.EncodeToString(mac.Sum(nil))

	authorizationOrigin := fmt.Sprintf(
		`api_key="%s",algorithm="hmac-sha256",headers="host date request-line",signature="%s"`,
		apiKey, signature,
	)
	authorization := base64.StdEncoding.EncodeToString([]byte(authorizationOrigin))

	query := url.Values{}
	query.Set("authorization", authorization)
	query.Set("date", date)
	query.Set("host", host)

	return gatewayURL + "?" + query.Encode(), nil
}
