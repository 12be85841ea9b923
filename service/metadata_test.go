package service

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSanitizeMetadata(t *testing.T) {
	meta := SanitizeMetadata(map[string]any{
		"wallet":  "MetaMask",
		"version": float64(11.5),
		"mobile":  true,
		"nested":  map[string]any{"a": "b"},
		"list":    []any{"x"},
		"html":    `<script>alert(1)</script>hello`,
		"<b></b>": "dropped key",
	})

	assert.Equal(t, "MetaMask", meta["wallet"])
	assert.Equal(t, "11.5", meta["version"])
	assert.Equal(t, "true", meta["mobile"])
	assert.Equal(t, "hello", meta["html"])
	assert.NotContains(t, meta, "nested")
	assert.NotContains(t, meta, "list")
	assert.Len(t, meta, 4)
}

func TestSanitizeMetadata_KeepsPlainText(t *testing.T) {
	meta := SanitizeMetadata(map[string]any{
		"note":    "a & b",
		"emoji":   "Tom & Jerry <3 it's",
		"quoted":  `say "hi"`,
		"a & b":   "key",
		"styling": "<i>x</i> > y",
	})

	assert.Equal(t, "a & b", meta["note"])
	assert.Equal(t, "Tom & Jerry <3 it's", meta["emoji"])
	assert.Equal(t, `say "hi"`, meta["quoted"])
	assert.Equal(t, "key", meta["a & b"])
	assert.Equal(t, "x > y", meta["styling"])
}

func TestSanitizeMetadata_TruncatesAfterUnescaping(t *testing.T) {
	value := strings.Repeat("x", MaxMetadataValueLength-1) + "&b"
	meta := SanitizeMetadata(map[string]any{"note": value})

	assert.Equal(t, strings.Repeat("x", MaxMetadataValueLength-1)+"&", meta["note"])
}

func TestSanitizeMetadata_Bounds(t *testing.T) {
	raw := make(map[string]any)
	for i := 0; i < 40; i++ {
		raw[fmt.Sprintf("k%02d", i)] = "v"
	}
	raw[strings.Repeat("k", 100)] = strings.Repeat("é", 1000)

	meta := SanitizeMetadata(raw)
	assert.Len(t, meta, MaxMetadataKeys)
	assert.Contains(t, meta, "k00")
	assert.NotContains(t, meta, "k39")

	long := SanitizeMetadata(map[string]any{strings.Repeat("k", 100): strings.Repeat("é", 1000)})
	for k, v := range long {
		assert.Len(t, []rune(k), MaxMetadataKeyLength)
		assert.Len(t, []rune(v), MaxMetadataValueLength)
	}
}

func TestConnectionAttributes(t *testing.T) {
	meta := ConnectionAttributes(map[string]any{"ip": "spoofed", "wallet": "Phantom"}, "10.1.2.3", "Mozilla/5.0 (X11; Linux) Gecko & co")

	assert.Equal(t, "10.1.2.3", meta[MetadataIP])
	assert.Equal(t, "Mozilla/5.0 (X11; Linux) Gecko & co", meta[MetadataUserAgent])
	assert.Equal(t, "Phantom", meta["wallet"])

	assert.Empty(t, ConnectionAttributes(nil, "", ""))
}
