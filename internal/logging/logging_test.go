package logging

import (
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
)

func TestParseLevel(t *testing.T) {
	cases := map[string]struct {
		level zerolog.Level
		ok    bool
	}{
		"":        {zerolog.InfoLevel, false},
		"DEBUG":   {zerolog.DebugLevel, true},
		" warn ":  {zerolog.WarnLevel, true},
		"warning": {zerolog.WarnLevel, true},
		"off":     {zerolog.Disabled, true},
		"loud":    {zerolog.InfoLevel, false},
	}
	for raw, want := range cases {
		lvl, ok := parseLevel(raw)
		assert.Equal(t, want.ok, ok, raw)
		assert.Equal(t, want.level, lvl, raw)
	}
}

func TestApplyEnvOverrides(t *testing.T) {
	t.Setenv(EnvLogLevel, "error")
	t.Setenv(EnvLogPretty, "nope")

	s := defaultSettings(ProfileCLI)
	applyEnvOverrides(&s)

	assert.Equal(t, zerolog.ErrorLevel, s.level)
	assert.True(t, s.pretty, "unparseable bool keeps the profile default")
}
