// auth.go implements HMAC request signing for the private WebSocket
// channel. The venue expects, on connect, a signature over
// "<timestamp><method><path>" with the API secret, plus the passphrase
// signed with the same secret.
package exchange

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"strconv"
	"time"
)

// Credentials holds the venue API key material. Loaded from config (or
// environment overrides) and never logged.
type Credentials struct {
	Key        string
	Secret     string
	Passphrase string
}

// Configured reports whether all key material is present.
func (c Credentials) Configured() bool {
	return c.Key != "" && c.Secret != "" && c.Passphrase != ""
}

// signPayload computes the base64 HMAC-SHA256 of payload under secret.
func signPayload(secret, payload string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(payload))
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}

// connectAuth builds the signed fields for the private-channel connect
// message.
func connectAuth(creds Credentials) map[string]string {
	ts := strconv.FormatInt(time.Now().UnixMilli(), 10)
	return map[string]string{
		"key":        creds.Key,
		"timestamp":  ts,
		"signature":  signPayload(creds.Secret, ts+"GET"+"/ws/private"),
		"passphrase": signPayload(creds.Secret, creds.Passphrase),
	}
}
