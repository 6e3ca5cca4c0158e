package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseString(t *testing.T) {
	assert.Equal(t, "fallback", ParseString("BLOCKFALL_TEST_UNSET", "fallback"))

	t.Setenv("BLOCKFALL_TEST_STR", "value")
	assert.Equal(t, "value", ParseString("BLOCKFALL_TEST_STR", "fallback"))

	t.Setenv("BLOCKFALL_TEST_STR", "")
	assert.Equal(t, "fallback", ParseString("BLOCKFALL_TEST_STR", "fallback"))
}

func TestParseInt(t *testing.T) {
	assert.Equal(t, 7, ParseInt("BLOCKFALL_TEST_UNSET", 7))

	t.Setenv("BLOCKFALL_TEST_INT", "42")
	assert.Equal(t, 42, ParseInt("BLOCKFALL_TEST_INT", 7))

	t.Setenv("BLOCKFALL_TEST_INT", "not-a-number")
	assert.Equal(t, 7, ParseInt("BLOCKFALL_TEST_INT", 7))
}

func TestParseBool(t *testing.T) {
	assert.True(t, ParseBool("BLOCKFALL_TEST_UNSET", true))

	tests := map[string]bool{
		"true": true, "1": true, "yes": true,
		"false": false, "0": false, "no": false,
	}
	for raw, want := range tests {
		t.Setenv("BLOCKFALL_TEST_BOOL", raw)
		assert.Equal(t, want, ParseBool("BLOCKFALL_TEST_BOOL", !want), "input %q", raw)
	}

	t.Setenv("BLOCKFALL_TEST_BOOL", "maybe")
	assert.True(t, ParseBool("BLOCKFALL_TEST_BOOL", true))
}

func TestFromEnv_Defaults(t *testing.T) {
	cfg := FromEnv()
	assert.Equal(t, ":8080", cfg.Listen)
	assert.Equal(t, "badger", cfg.StoreBackend)
	assert.True(t, cfg.Metrics)
}

func TestFromEnv_Overrides(t *testing.T) {
	t.Setenv("BLOCKFALL_LISTEN", ":9999")
	t.Setenv("BLOCKFALL_STORE", "memory")
	t.Setenv("BLOCKFALL_METRICS", "false")

	cfg := FromEnv()
	assert.Equal(t, ":9999", cfg.Listen)
	assert.Equal(t, "memory", cfg.StoreBackend)
	assert.False(t, cfg.Metrics)
}
