package autofill

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/chromedp/chromedp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"redgen/events"
)

func TestScriptEmbedsEscapedValues(t *testing.T) {
	script, err := Script(events.FillFormPayload{
		Title:       `Cat "Sunset" </script>`,
		Description: "line1\nline2",
		Tags:        "brand, sunset",
	})
	require.NoError(t, err)

	assert.Contains(t, script, `"selector":"#work_title_en"`)
	assert.Contains(t, script, `"selector":"#work_tags"`)
	assert.Contains(t, script, `"selector":"#work_description_en"`)
	assert.Contains(t, script, `"value":"brand, sunset"`)
	assert.Contains(t, script, `Cat \"Sunset\" \u003c/script\u003e`)
	assert.Contains(t, script, `line1\nline2`)
	assert.True(t, strings.HasPrefix(script, "(() => {"))
}

type fakeRunner struct {
	calls int
	err   error
}

func (f *fakeRunner) Run(ctx context.Context, actions ...chromedp.Action) error {
	f.calls++
	return f.err
}

func TestFillWrapsRunnerError(t *testing.T) {
	r := &fakeRunner{err: errors.New("no tab")}
	_, err := New(r, "https://upload.example.com").Fill(context.Background(), "", events.FillFormPayload{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "https://upload.example.com")
	assert.Equal(t, 1, r.calls)
}
