package yahb

import (
	"bytes"
	"github.com/hhkbp2/testify/require"
	"strings"
	"testing"
)

func TestFlogf(t *testing.T) {
	saved := logLevel
	defer func() { logLevel = saved }()

	require.Nil(t, SetLogLevel("warn"))
	var buf bytes.Buffer
	Flogf(&buf, LevelInfo, "dropped %d", 1)
	require.Equal(t, 0, buf.Len())
	Flogf(&buf, LevelError, "kept %d", 2)
	line := buf.String()
	require.True(t, strings.Contains(line, "[ERROR] kept 2"))
	require.True(t, strings.HasSuffix(line, "\n"))

	require.NotNil(t, SetLogLevel("loud"))
}
