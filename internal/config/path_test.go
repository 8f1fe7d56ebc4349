package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExpandPath(t *testing.T) {
	home, err := os.UserHomeDir()
	require.NoError(t, err)
	t.Setenv("CHATLEDGER_TEST_DIR", "/srv/chats")

	tests := []struct {
		name string
		in   string
		want string
	}{
		{name: "tilde prefix", in: "~/chats/exports", want: filepath.Join(home, "chats", "exports")},
		{name: "bare tilde", in: "~", want: home},
		{name: "env var", in: "$CHATLEDGER_TEST_DIR/inbox", want: "/srv/chats/inbox"},
		{name: "plain path untouched", in: "/var/lib/chatledger.db", want: "/var/lib/chatledger.db"},
		{name: "tilde mid-path untouched", in: "/data/~backup", want: "/data/~backup"},
		{name: "empty", in: "", want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ExpandPath(tt.in))
		})
	}
}
