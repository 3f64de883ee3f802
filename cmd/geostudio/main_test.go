package main

import (
	"bytes"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"finitefield.org/geostudio-web/internal/config"
)

func execute(t *testing.T, args ...string) string {
	t.Helper()
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(append(args, "--config", filepath.Join(t.TempDir(), "absent.yaml")))
	require.NoError(t, cmd.Execute())
	return out.String()
}

func TestPagesListsEveryPage(t *testing.T) {
	out := execute(t, "pages")
	for _, want := range []string{"home", "Services", "case-studies", "page:contact"} {
		require.Contains(t, out, want)
	}
}

func TestPagesResolvesInput(t *testing.T) {
	out := execute(t, "pages", "team", "blog")
	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 3)
	require.Regexp(t, `^"team"\s+team\s+true$`, lines[1])
	require.Regexp(t, `^"blog"\s+home\s+false$`, lines[2])
}

func TestVersion(t *testing.T) {
	out := execute(t, "version")
	require.True(t, strings.HasPrefix(out, "geostudio dev"))
}

func TestNewAppWithDefaults(t *testing.T) {
	cfg := config.DefaultConfig()
	a, err := newApp(cfg, zap.NewNop())
	require.NoError(t, err)
	require.Equal(t, cfg.Server.Addr, a.server.Addr)
	require.Equal(t, 0, a.shells.Len())
}

func TestSessionKeysEphemeralWhenUnset(t *testing.T) {
	hash, block, err := sessionKeys(config.SessionConfig{}, zap.NewNop())
	require.NoError(t, err)
	require.Len(t, hash, 32)
	require.Nil(t, block)

	hash, block, err = sessionKeys(config.SessionConfig{
		HashKey:  "0123456789abcdef0123456789abcdef",
		BlockKey: "0123456789abcdef",
	}, zap.NewNop())
	require.NoError(t, err)
	require.Equal(t, []byte("0123456789abcdef0123456789abcdef"), hash)
	require.Len(t, block, 16)
}
