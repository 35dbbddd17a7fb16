package mercadopago

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// VerifySignature はWebhookの X-Signature ヘッダ（ts=...,v1=...）を検証する。
// manifestは id:<dataId>;request-id:<requestId>;ts:<ts>; のHMAC-SHA256。
// シークレット未設定時はRequireSignature次第: true=不合格、false=スキップして合格。
func (c *Client) VerifySignature(signatureHeader string, requestID string, dataID string) bool {
	if c.cfg.WebhookSecret == "" {
		return !c.cfg.RequireSignature
	}

	if signatureHeader == "" {
		return false
	}

	parts := map[string]string{}
	for _, entry := range strings.Split(signatureHeader, ",") {
		kv := strings.SplitN(strings.TrimSpace(entry), "=", 2)
		if len(kv) == 2 && kv[0] != "" && kv[1] != "" {
			parts[kv[0]] = kv[1]
		}
	}

	ts := parts["ts"]
	v1 := parts["v1"]
	if ts == "" || v1 == "" {
		return false
	}

	manifest := "id:" + dataID + ";request-id:" + requestID + ";ts:" + ts + ";"

	mac := hmac.New(sha256.New, []byte(c.cfg.WebhookSecret))
	mac.Write([]byte(manifest))
	digest := hex.EncodeToString(mac.Sum(nil))

	return hmac.Equal([]byte(digest), []byte(v1))
}
