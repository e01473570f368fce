package dispatch

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseConfigYAML(t *testing.T) {
	data := []byte(`
defaults:
  mode: background
triggers:
  - unit: sync
    expression: "*/10 * * * *"
  - unit: cleanup
    expression: "0 3 * * *"
`)

	cfg, err := ParseConfig(data)
	require.NoError(t, err)
	assert.Equal(t, "background", cfg.Defaults.Mode)
	require.Len(t, cfg.Triggers, 2)
	assert.Equal(t, "sync", cfg.Triggers[0].Unit)
	assert.Equal(t, "0 3 * * *", cfg.Triggers[1].Expression)
}

func TestParseConfigJSON(t *testing.T) {
	data := []byte(`{"defaults":{"mode":"ui_async"},"triggers":[{"unit":"sync","expression":"* * * * *"}]}`)

	cfg, err := ParseConfig(data)
	require.NoError(t, err)
	assert.Equal(t, "ui_async", cfg.Defaults.Mode)
	require.Len(t, cfg.Triggers, 1)
}

func TestParseConfigRejectsUnknownMode(t *testing.T) {
	_, err := ParseConfig([]byte("defaults:\n  mode: warp\n"))
	require.Error(t, err)
	assert.Equal(t, ErrCodeInvalidMode, ErrorCode(err))
}

func TestParseConfigRejectsIncompleteTrigger(t *testing.T) {
	_, err := ParseConfig([]byte("triggers:\n  - unit: sync\n"))
	require.Error(t, err)

	_, err = ParseConfig([]byte("triggers:\n  - expression: '* * * * *'\n"))
	require.Error(t, err)
}

func TestParseConfigTimeout(t *testing.T) {
	cfg, err := ParseConfig([]byte("defaults:\n  mode: inline\n  timeout: 5s\n"))
	require.NoError(t, err)
	assert.Equal(t, 5*time.Second, cfg.Defaults.Timeout.Std())

	cfg, err = ParseConfig([]byte(`{"defaults":{"timeout":"250ms"}}`))
	require.NoError(t, err)
	assert.Equal(t, 250*time.Millisecond, cfg.Defaults.Timeout.Std())

	// bare integers are nanoseconds
	cfg, err = ParseConfig([]byte("defaults:\n  timeout: 1000000000\n"))
	require.NoError(t, err)
	assert.Equal(t, time.Second, cfg.Defaults.Timeout.Std())

	_, err = ParseConfig([]byte("defaults:\n  timeout: soon\n"))
	require.Error(t, err)
	assert.Equal(t, "INVALID_CONFIG", ErrorCode(err))
}

func TestDefaultOptions(t *testing.T) {
	opts, err := DefaultOptions[int](Defaults{Mode: "background", Timeout: Duration(time.Second)})
	require.NoError(t, err)
	assert.Len(t, opts, 2)

	u := MustUnit(ActionFunc[int](func(ctx context.Context, _ int) error { return nil }), opts...)
	assert.Equal(t, Background, u.Mode())

	_, err = DefaultOptions[int](Defaults{Mode: "bogus"})
	require.Error(t, err)
}

func TestParseModeRoundTrip(t *testing.T) {
	for _, mode := range []Mode{Inline, Background, UISync, UIAsync} {
		parsed, err := ParseMode(mode.String())
		require.NoError(t, err)
		assert.Equal(t, mode, parsed)
	}

	_, err := ParseMode("bogus")
	require.Error(t, err)
}
