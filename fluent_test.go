package sudo

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBuilder_Cmd(t *testing.T) {
	t.Parallel()

	cmd := Cmd("pkexec").
		Arg("--disable-internal-agent").
		Arg("id").
		Dir("/tmp").
		Env("FOO", "bar").
		Build()

	assert.Equal(t, "pkexec", cmd.Cmd)
	assert.Equal(t, []string{"--disable-internal-agent", "id"}, cmd.Args)
	assert.Equal(t, "/tmp", cmd.Dir)
	assert.Equal(t, []string{"FOO=bar"}, cmd.Env)
}

func TestBuilder_Args(t *testing.T) {
	t.Parallel()

	cmd := Cmd("echo").
		Args("hello", "world").
		Build()

	assert.Equal(t, "echo", cmd.Cmd)
	assert.Equal(t, []string{"hello", "world"}, cmd.Args)
}

func TestBuilder_EnvMapSorted(t *testing.T) {
	t.Parallel()

	cmd := Cmd("env").
		EnvMap(map[string]string{"ZED": "1", "ALPHA": "2"}).
		Env("DISPLAY", ":0").
		Build()

	assert.Equal(t, []string{"ALPHA=2", "ZED=1", "DISPLAY=:0"}, cmd.Env)
}

func TestBuilder_Streams(t *testing.T) {
	t.Parallel()

	var stdout, stderr strings.Builder

	cmd := Cmd("sh").
		Stdout(&stdout).
		Stderr(&stderr).
		Build()

	assert.NotNil(t, cmd.Stdout)
	assert.NotNil(t, cmd.Stderr)
}
