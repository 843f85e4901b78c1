package templates

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"leverguard/pkg/errors"
)

func TestRegistryLoadAndRender(t *testing.T) {
	base := t.TempDir()
	dir := filepath.Join(base, "prompts")
	require.NoError(t, os.MkdirAll(dir, 0o755))

	path := filepath.Join(dir, "greeting.tmpl")
	require.NoError(t, os.WriteFile(path, []byte("Hello {{.Name}}\n"), 0o644))

	reg, err := NewRegistry(base)
	require.NoError(t, err)
	assert.Equal(t, []string{"prompts/greeting"}, reg.List())

	tmpl, err := reg.GetTemplate("prompts/greeting")
	require.NoError(t, err)

	rendered, err := tmpl.Render(map[string]string{"Name": "Alice"})
	require.NoError(t, err)
	assert.Equal(t, "Hello Alice", rendered)

	// parsed content is kept even when the file changes
	require.NoError(t, os.WriteFile(path, []byte("Hi {{.Name}}"), 0o644))
	rendered, err = tmpl.Render(map[string]string{"Name": "Bob"})
	require.NoError(t, err)
	assert.Equal(t, "Hello Bob", rendered)
}

func TestRegistryLazyLoad(t *testing.T) {
	base := t.TempDir()
	reg, err := NewRegistry(base)
	require.NoError(t, err)

	path := filepath.Join(base, "notifications", "late.tmpl")
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte("Asset {{.Asset}}"), 0o644))

	rendered, err := reg.Render("notifications/late", map[string]string{"Asset": "ETH"})
	require.NoError(t, err)
	assert.Equal(t, "Asset ETH", rendered)

	_, err = reg.Render("notifications/missing", nil)
	assert.True(t, errors.Is(err, errors.ErrNotFound))
}

func TestRegistryMissingKey(t *testing.T) {
	base := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(base, "t.tmpl"), []byte("{{.Missing}}"), 0o644))

	reg, err := NewRegistry(base)
	require.NoError(t, err)

	_, err = reg.Render("t", map[string]string{})
	assert.Error(t, err)
}

func TestFuncs(t *testing.T) {
	base := t.TempDir()
	content := `{{fixed .Price 2}}|{{comma .Amount}}|{{utc .At}}`
	require.NoError(t, os.WriteFile(filepath.Join(base, "f.tmpl"), []byte(content), 0o644))

	reg, err := NewRegistry(base)
	require.NoError(t, err)

	at := time.Date(2025, 3, 1, 14, 30, 0, 0, time.FixedZone("CET", 3600))
	out, err := reg.Render("f", map[string]any{
		"Price":  decimal.NewFromInt(3500),
		"Amount": decimal.NewFromInt(75000),
		"At":     at,
	})
	require.NoError(t, err)
	assert.Equal(t, "3500.00|75,000|2025-03-01 13:30:00 UTC", out)
}

func TestEmbeddedTemplates(t *testing.T) {
	reg := Get()

	for _, id := range []string{PositionRiskPrompt, CriticalAlert} {
		_, err := reg.GetTemplate(id)
		assert.NoError(t, err, id)
	}
}
