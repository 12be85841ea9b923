package service

import (
	"html"
	"sort"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/microcosm-cc/bluemonday"

	"github.com/layer-3/walletauth/core"
)

const (
	MaxMetadataKeys        = 16
	MaxMetadataKeyLength   = 64
	MaxMetadataValueLength = 256

	MetadataIP        = "ip"
	MetadataUserAgent = "userAgent"
)

var strictPolicy = bluemonday.StrictPolicy()

// SanitizeMetadata turns client supplied login metadata into bounded plain text.
// Values are stored as text, so consumers rendering them into HTML must escape them.
// Scalars are stringified, nested values and empty keys are dropped and markup is stripped.
// Keys are taken in sorted order when more than MaxMetadataKeys are supplied.
func SanitizeMetadata(raw map[string]any) core.ConnectionMetadata {
	keys := make([]string, 0, len(raw))
	for k := range raw {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	meta := make(core.ConnectionMetadata)
	for _, k := range keys {
		if len(meta) == MaxMetadataKeys {
			break
		}

		value, ok := scalarString(raw[k])
		if !ok {
			continue
		}
		key := truncate(strings.TrimSpace(plainText(k)), MaxMetadataKeyLength)
		if key == "" {
			continue
		}
		meta[key] = truncate(plainText(value), MaxMetadataValueLength)
	}
	return meta
}

// ConnectionAttributes sanitizes raw and stamps the server observed client address and user agent
func ConnectionAttributes(raw map[string]any, ip, userAgent string) core.ConnectionMetadata {
	meta := SanitizeMetadata(raw)
	if ip != "" {
		meta[MetadataIP] = truncate(ip, MaxMetadataValueLength)
	}
	if userAgent != "" {
		meta[MetadataUserAgent] = truncate(plainText(userAgent), MaxMetadataValueLength)
	}
	return meta
}

// plainText strips markup and returns the remaining text unescaped.
// The strict policy entity-encodes what it keeps, which would otherwise alter stored values.
func plainText(s string) string {
	return html.UnescapeString(strictPolicy.Sanitize(s))
}

func scalarString(v any) (string, bool) {
	switch val := v.(type) {
	case string:
		return val, true
	case bool:
		return strconv.FormatBool(val), true
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64), true
	case int:
		return strconv.Itoa(val), true
	case int64:
		return strconv.FormatInt(val, 10), true
	default:
		return "", false
	}
}

func truncate(s string, max int) string {
	if utf8.RuneCountInString(s) <= max {
		return s
	}
	runes := []rune(s)
	return string(runes[:max])
}
