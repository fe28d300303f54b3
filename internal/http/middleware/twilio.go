package middleware

import (
	"crypto/hmac"
	"crypto/sha1"
	"encoding/base64"
	"net/http"
	"sort"
	"strings"
)

// TwilioSignature validates the X-Twilio-Signature header on webhook routes:
// base64(HMAC-SHA1(auth token, public URL + sorted form params)). Validation
// is skipped when the auth token or the public webhook URL is not configured,
// so local development keeps working without tunnel setup.
func TwilioSignature(authToken, webhookURL string) func(http.Handler) http.Handler {
	enabled := authToken != "" && webhookURL != ""

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !enabled || !strings.HasPrefix(r.URL.Path, "/webhooks/") {
				next.ServeHTTP(w, r)
				return
			}

			if err := r.ParseForm(); err != nil {
				http.Error(w, "malformed form payload", http.StatusBadRequest)
				return
			}

			expected := computeTwilioSignature(authToken, webhookURL, r.PostForm)
			provided := r.Header.Get("X-Twilio-Signature")
			if !hmac.Equal([]byte(expected), []byte(provided)) {
				http.Error(w, "invalid webhook signature", http.StatusForbidden)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func computeTwilioSignature(authToken, webhookURL string, form map[string][]string) string {
	keys := make([]string, 0, len(form))
	for key := range form {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	var payload strings.Builder
	payload.WriteString(webhookURL)
	for _, key := range keys {
		for _, value := range form[key] {
			payload.WriteString(key)
			payload.WriteString(value)
		}
	}

	mac := hmac.New(sha1.New, []byte(authToken))
	mac.Write([]byte(payload.String()))
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}
