package security

import (
	"bytes"
	"compress/gzip"
	"encoding/base64"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"unicode/utf8"
)

// Header names whose values never reach the audit log.
var sensitiveHeaders = map[string]bool{
	"authorization":        true,
	"proxy-authorization":  true,
	"cookie":               true,
	"set-cookie":           true,
	"api-key":              true,
	"x-api-key":            true,
	"x-auth-token":         true,
	"x-amz-security-token": true,
	"openai-organization":  true,
	"openai-project":       true,
}

// Field and query parameter names, compared after removing '-' and '_'
// and lower-casing. Exact matches only, so usage counters such as
// "prompt_tokens" or "max_tokens" stay readable.
var sensitiveKeys = map[string]bool{
	"password":          true,
	"secret":            true,
	"token":             true,
	"auth":              true,
	"authorization":     true,
	"apikey":            true,
	"accesstoken":       true,
	"refreshtoken":      true,
	"sessiontoken":      true,
	"clientsecret":      true,
	"privatekey":        true,
	"credential":        true,
	"credentials":       true,
	"accesskeyid":       true,
	"secretaccesskey":   true,
	"xamzcredential":    true,
	"xamzsignature":     true,
	"xamzsecuritytoken": true,
}

// Suffixes that mark a key as sensitive regardless of its prefix.
var sensitiveSuffixes = []string{"password", "secret", "apikey", "accesstoken", "privatekey"}

const redactedValue = "[REDACTED]"

// SanitizeHeaders removes sensitive headers from an HTTP header map.
// Returns a new map with sensitive values redacted.
func SanitizeHeaders(headers http.Header) map[string]string {
	sanitized := make(map[string]string, len(headers))
	for key, values := range headers {
		if sensitiveHeaders[strings.ToLower(key)] {
			sanitized[key] = redactedValue
			continue
		}
		sanitized[key] = strings.Join(values, ", ")
	}
	return sanitized
}

// SanitizeBody returns body as JSON with sensitive fields redacted. Gzip
// bodies are inflated first, binary bodies are base64 wrapped and bodies
// larger than maxSize are replaced by a preview.
func SanitizeBody(body []byte, maxSize int) json.RawMessage {
	if len(body) == 0 {
		return nil
	}

	if len(body) >= 2 && body[0] == 0x1f && body[1] == 0x8b {
		decompressed, err := decompressGzip(body)
		if err != nil {
			return wrapBinaryAsJSON(body, "gzip-compressed (decompression failed)")
		}
		body = decompressed
	}

	if !utf8.Valid(body) {
		return wrapBinaryAsJSON(body, "binary (non-UTF8)")
	}

	if maxSize > 0 && len(body) > maxSize {
		return marshalWrapped(map[string]any{
			"_truncated": true,
			"_size":      len(body),
			"_preview":   previewOf(body, maxSize),
		})
	}

	var data any
	if err := json.Unmarshal(body, &data); err != nil {
		return marshalWrapped(map[string]any{"_raw": string(body), "_format": "text"})
	}

	result, err := json.Marshal(sanitizeValue(data))
	if err != nil {
		return marshalWrapped(map[string]any{"_raw": string(body), "_format": "text"})
	}
	return json.RawMessage(result)
}

// SanitizeURL redacts sensitive query parameters from a URL, keeping the
// order and encoding of the remaining parameters.
func SanitizeURL(rawURL string) string {
	base, query, found := strings.Cut(rawURL, "?")
	if !found {
		return rawURL
	}

	fragment := ""
	if i := strings.IndexByte(query, '#'); i >= 0 {
		query, fragment = query[:i], query[i:]
	}

	params := strings.Split(query, "&")
	for i, param := range params {
		key, _, hasValue := strings.Cut(param, "=")
		if hasValue && isSensitiveKey(key) {
			params[i] = key + "=" + redactedValue
		}
	}
	return base + "?" + strings.Join(params, "&") + fragment
}

func isSensitiveKey(key string) bool {
	k := strings.ToLower(strings.NewReplacer("-", "", "_", "").Replace(key))
	if sensitiveKeys[k] {
		return true
	}
	for _, suffix := range sensitiveSuffixes {
		if strings.HasSuffix(k, suffix) {
			return true
		}
	}
	return false
}

func sanitizeValue(v any) any {
	switch val := v.(type) {
	case map[string]any:
		sanitized := make(map[string]any, len(val))
		for key, value := range val {
			if isSensitiveKey(key) {
				sanitized[key] = redactedValue
				continue
			}
			sanitized[key] = sanitizeValue(value)
		}
		return sanitized
	case []any:
		sanitized := make([]any, len(val))
		for i, value := range val {
			sanitized[i] = sanitizeValue(value)
		}
		return sanitized
	default:
		return val
	}
}

// previewOf cuts body at maxSize without splitting a UTF-8 sequence.
func previewOf(body []byte, maxSize int) string {
	cut := maxSize
	for cut > 0 && !utf8.RuneStart(body[cut]) {
		cut--
	}
	return string(body[:cut])
}

func decompressGzip(data []byte) ([]byte, error) {
	reader, err := gzip.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	defer reader.Close()
	return io.ReadAll(reader)
}

func wrapBinaryAsJSON(data []byte, format string) json.RawMessage {
	return marshalWrapped(map[string]any{
		"_binary": true,
		"_format": format,
		"_size":   len(data),
		"_base64": base64.StdEncoding.EncodeToString(data),
	})
}

func marshalWrapped(v map[string]any) json.RawMessage {
	result, _ := json.Marshal(v)
	return json.RawMessage(result)
}
