package compose

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mpalmer79/quirk-trade-appraisal-VolkswagenMA/internal/leads"
)

func sampleRaw() map[string]any {
	return map[string]any{
		"name":         "Jane Driver",
		"email":        "jane@example.com",
		"phone":        "617-555-1234",
		"vin":          "1hgcm82633a004352",
		"year":         "2019",
		"make":         "Volkswagen",
		"model":        "Atlas",
		"notes":        "<script>alert(1)</script> & more",
		"zeta":         "last",
		"alpha":        "first extra",
		"blank":        "  ",
		"form-name":    "trade-in",
		"bot-field":    "",
		"company":      "",
		"website_trap": "x",
	}
}

func newComposer(t *testing.T) *Composer {
	t.Helper()
	c, err := NewComposer("", "website_trap")
	require.NoError(t, err)
	return c
}

func TestComposeIsDeterministic(t *testing.T) {
	c := newComposer(t)
	now := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)

	first, err := c.Compose(sampleRaw(), leads.NormalizeAt(sampleRaw(), now))
	require.NoError(t, err)
	second, err := c.Compose(sampleRaw(), leads.NormalizeAt(sampleRaw(), now))
	require.NoError(t, err)

	assert.Equal(t, first.HTML, second.HTML)
	assert.Equal(t, first.Text, second.Text)
}

func TestComposeEscapesHTML(t *testing.T) {
	c := newComposer(t)
	email, err := c.Compose(sampleRaw(), leads.Normalize(sampleRaw()))
	require.NoError(t, err)

	assert.Contains(t, email.HTML, "&lt;script&gt;alert(1)&lt;/script&gt; &amp; more")
	assert.NotContains(t, email.HTML, "<script>")
	assert.Contains(t, email.Text, "<script>alert(1)</script> & more")
}

func TestRowsOrdering(t *testing.T) {
	c := newComposer(t)
	lead := leads.NormalizeAt(sampleRaw(), time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC))
	rows := c.Rows(Merge(sampleRaw(), lead))

	keys := make([]string, 0, len(rows))
	for _, r := range rows {
		keys = append(keys, r.Key)
	}
	assert.Equal(t, []string{
		"name", "email", "phone", "vin", "year", "make", "model", "notes",
		"alpha", "submittedAt", "zeta",
	}, keys)
}

func TestMergeLeadWins(t *testing.T) {
	raw := map[string]any{"vin": "abc", "phone": "(617) 555-1234", "extra": []any{"a", "b"}}
	merged := Merge(raw, leads.Normalize(raw))

	assert.Equal(t, "ABC", merged["vin"])
	assert.Equal(t, "6175551234", merged["phone"])
	assert.Equal(t, "a, b", merged["extra"])
}

func TestSubjectCollapsesWhitespace(t *testing.T) {
	c := newComposer(t)
	subject, err := c.Subject(&leads.Lead{Name: " Jane  Driver ", Make: "Volkswagen"})
	require.NoError(t, err)
	assert.Equal(t, "Trade-In Appraisal: Jane Driver Volkswagen", subject)
}

func TestNewComposerRejectsBadTemplate(t *testing.T) {
	_, err := NewComposer("{{.Nope}}", "")
	assert.Error(t, err)

	_, err = NewComposer("{{.Name", "")
	assert.Error(t, err)
}

func TestLabel(t *testing.T) {
	assert.Equal(t, "Exterior Color", Label("extColor"))
	assert.Equal(t, "custom_field", Label("custom_field"))
}

func TestRenderTextLines(t *testing.T) {
	text := RenderText([]Row{{Key: "name", Label: "Name", Value: "Jane"}})
	assert.True(t, strings.HasSuffix(text, "Name: Jane\n"))
}
