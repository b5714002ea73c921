package shell

import (
	"testing"

	"gophistory/internal/app/client"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScript(t *testing.T) {
	tests := []struct {
		shell string
		hook  string
	}{
		{shell: "zsh", hook: "add-zsh-hook preexec _gophistory_preexec"},
		{shell: "bash", hook: "PROMPT_COMMAND="},
	}

	for _, tt := range tests {
		t.Run(tt.shell, func(t *testing.T) {
			script, err := Script(tt.shell)

			require.NoError(t, err)
			assert.Contains(t, script, "export "+client.SessionEnv+"=")
			assert.Contains(t, script, "gophistory history start --")
			assert.Contains(t, script, "gophistory history end --exit")
			assert.Contains(t, script, tt.hook)
		})
	}
}

func TestScript_NewSessionEachTime(t *testing.T) {
	first, err := Script("zsh")
	require.NoError(t, err)
	second, err := Script("zsh")
	require.NoError(t, err)

	assert.NotEqual(t, first, second)
}

func TestScript_Unsupported(t *testing.T) {
	_, err := Script("fish")
	assert.Error(t, err)
}
