package meta

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// AppSecretProof generates the appsecret_proof parameter for Graph API calls.
// proof = hex(HMAC-SHA256(key = app secret, message = access token))
func AppSecretProof(appSecret, accessToken string) string {
	if appSecret == "" || accessToken == "" {
		return ""
	}
	h := hmac.New(sha256.New, []byte(appSecret))
	h.Write([]byte(accessToken))
	return hex.EncodeToString(h.Sum(nil))
}

// NormalizeAccountID ensures the ad account id carries the "act_" prefix.
func NormalizeAccountID(id string) string {
	id = strings.TrimSpace(id)
	if id == "" || strings.HasPrefix(id, "act_") {
		return id
	}
	return "act_" + id
}
