package main

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	root := newRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func TestRootCmd_Subcommands(t *testing.T) {
	root := newRootCmd()

	for _, name := range []string{"translate", "contract", "migrate", "version"} {
		cmd, _, err := root.Find([]string{name})
		require.NoError(t, err, name)
		assert.Equal(t, name, cmd.Name())
	}
}

func TestVersionCmd(t *testing.T) {
	out, err := execute(t, "version")

	require.NoError(t, err)
	assert.Contains(t, out, "connector "+Version)
}

func TestTranslateCmd_ArgumentValidation(t *testing.T) {
	tests := []struct {
		name string
		args []string
		want string
	}{
		{"missing record id", []string{"translate", "--connection", "acme"}, "accepts 1 arg(s)"},
		{"missing connection", []string{"translate", "8015e00000InitAAA"}, `required flag(s) "connection" not set`},
		{"contract without connection", []string{"contract", "8015e00000InitAAA"}, `required flag(s) "connection" not set`},
		{"migrate with args", []string{"migrate", "extra"}, "unknown command"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := execute(t, tt.args...)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestLoad_MissingConfig(t *testing.T) {
	_, err := execute(t, "migrate", "--config", t.TempDir()+"/missing.yaml")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read config file")
}
