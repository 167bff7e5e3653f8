package patterns

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "patterns.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestDefaultLibrary(t *testing.T) {
	lib := Default()

	assert.Equal(t, 13, lib.Size(Urgency))
	assert.Equal(t, 14, lib.Size(Threat))
	assert.Equal(t, 5, lib.Size(PaymentAction))
	assert.Len(t, lib.Tactics(), 6)
	assert.Equal(t, lib.Size(Urgency)+lib.Size(Threat)+lib.Size(Sensitive), lib.Size(Suspicious))
}

func TestHitsKeepTableOrder(t *testing.T) {
	lib := Default()
	got := lib.Hits(Threat, "police will arrest you, account blocked")
	assert.Equal(t, []string{"blocked", "police", "arrest"}, got)
	assert.Nil(t, lib.Hits(Threat, "hello there"))
}

func TestIsLegitimateHost(t *testing.T) {
	lib := Default()
	cases := map[string]bool{
		"sbi.co.in":               true,
		"www.onlinesbi.sbi.co.in": true,
		"HDFCBANK.COM":            true,
		"sbi-verify.fake.com":     false,
		"sbi.co.in.evil.com":      false,
		"notsbi.co.in":            false,
	}
	for host, want := range cases {
		assert.Equal(t, want, lib.IsLegitimateHost(host), host)
	}
}

func TestLoadEmptyPathReturnsDefaults(t *testing.T) {
	lib, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, Default().Size(Financial), lib.Size(Financial))
}

func TestLoadOverlayReplacesNamedLists(t *testing.T) {
	path := writeFile(t, "urgency:\n  - Quickly\n  - quickly\n  - ' NOW '\n")

	lib, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 2, lib.Size(Urgency))
	assert.Equal(t, []string{"quickly", "now"}, lib.Hits(Urgency, "do it now, quickly"))
	assert.Equal(t, Default().Size(Threat), lib.Size(Threat))
}

func TestLoadRejectsEmptyList(t *testing.T) {
	path := writeFile(t, "threat: []\n")

	_, err := Load(path)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrEmptyList))
}

func TestLoadRejectsInvalidTactic(t *testing.T) {
	path := writeFile(t, "tactics:\n  - label: ''\n    keywords: [x]\n")

	_, err := Load(path)
	require.Error(t, err)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
}

func TestPatternsCompile(t *testing.T) {
	lib := Default()
	assert.Equal(t, []string{"scammer@ybl"}, lib.UPIPattern().FindAllString("pay scammer@ybl now", -1))
	assert.Equal(t, []string{"+91 9876543210"}, lib.PhonePattern().FindAllString("call +91 9876543210", -1))
	assert.Equal(t, []string{"http://x.io/a"}, lib.URLPattern().FindAllString(`see "http://x.io/a"`, -1))
}
