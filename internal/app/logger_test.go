package app

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLoggerFormats(t *testing.T) {
	var buf bytes.Buffer
	newLogger(&Config{AppEnv: "staging", LogFormat: "json"}, &buf).Info("ledger entry recorded", "amount", 5)

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	require.Equal(t, "ledger entry recorded", line["msg"])
	require.Equal(t, "staging", line["env"])
	require.EqualValues(t, 5, line["amount"])
	require.Contains(t, line, "source")

	buf.Reset()
	newLogger(&Config{AppEnv: "development", LogFormat: "pretty"}, &buf).Info("started")
	require.Contains(t, buf.String(), "msg=started")
	require.Contains(t, buf.String(), "env=development")
}
