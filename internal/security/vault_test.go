package security

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVault_RoundTrip(t *testing.T) {
	v := NewVault(t.TempDir())
	assert.False(t, v.Exists())

	creds := VaultCredentials{OpenAIKey: "sk-vault-123456", OpenAIBaseURL: "http://localhost:11434/v1"}
	require.NoError(t, v.Save("hunter2", creds))
	assert.True(t, v.Exists())

	info, err := os.Stat(v.Path())
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())

	raw, err := os.ReadFile(v.Path())
	require.NoError(t, err)
	assert.NotContains(t, string(raw), "sk-vault-123456")

	got, err := v.Load("hunter2")
	require.NoError(t, err)
	assert.Equal(t, creds, got)
}

func TestVault_WrongPassword(t *testing.T) {
	v := NewVault(t.TempDir())
	require.NoError(t, v.Save("right", VaultCredentials{OpenAIKey: "sk-x"}))

	_, err := v.Load("wrong")
	assert.ErrorIs(t, err, ErrWrongPassword)
}

func TestVault_EmptyPassword(t *testing.T) {
	v := NewVault(t.TempDir())
	assert.Error(t, v.Save("", VaultCredentials{OpenAIKey: "sk-x"}))
}

func TestVault_Missing(t *testing.T) {
	_, err := NewVault(t.TempDir()).Load("pw")
	assert.Error(t, err)
}
