// Package autofill writes a listing into the marketplace upload form. A field whose
// element is missing is skipped; only a failure to reach the page is an error.
package autofill

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/chromedp/chromedp"

	"redgen/events"
)

// Field selectors of the English upload form.
const (
	TitleSelector       = "#work_title_en"
	TagsSelector        = "#work_tags"
	DescriptionSelector = "#work_description_en"
)

type fieldSpec struct {
	Name     string `json:"name"`
	Selector string `json:"selector"`
	Value    string `json:"value"`
	TextArea bool   `json:"textArea"`
}

// Result lists which fields were found and written.
type Result struct {
	Filled  []string `json:"filled"`
	Skipped []string `json:"skipped"`
}

// Runner executes chromedp actions in a fresh tab; renderer.Browser implements it.
type Runner interface {
	Run(ctx context.Context, actions ...chromedp.Action) error
}

type Filler struct {
	runner    Runner
	uploadURL string
}

func New(runner Runner, uploadURL string) *Filler {
	return &Filler{runner: runner, uploadURL: uploadURL}
}

// Fill opens url (or the configured upload page) and writes p into the form.
func (f *Filler) Fill(ctx context.Context, url string, p events.FillFormPayload) (Result, error) {
	if url == "" {
		url = f.uploadURL
	}
	script, err := Script(p)
	if err != nil {
		return Result{}, err
	}

	var res Result
	err = f.runner.Run(ctx,
		chromedp.Navigate(url),
		chromedp.WaitReady("body", chromedp.ByQuery),
		chromedp.Evaluate(script, &res),
	)
	if err != nil {
		return Result{}, fmt.Errorf("autofill %s: %w", url, err)
	}
	return res, nil
}

// Script builds the page script. Values go through the native value setter and are
// announced with input/change events so framework-managed inputs pick them up.
func Script(p events.FillFormPayload) (string, error) {
	fields := []fieldSpec{
		{Name: "title", Selector: TitleSelector, Value: p.Title},
		{Name: "tags", Selector: TagsSelector, Value: p.Tags, TextArea: true},
		{Name: "description", Selector: DescriptionSelector, Value: p.Description, TextArea: true},
	}
	b, err := json.Marshal(fields)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf(fillTemplate, b), nil
}

const fillTemplate = `(() => {
  const fields = %s;
  const inputSetter = Object.getOwnPropertyDescriptor(window.HTMLInputElement.prototype, "value")?.set;
  const areaSetter = Object.getOwnPropertyDescriptor(window.HTMLTextAreaElement.prototype, "value")?.set;
  const out = { filled: [], skipped: [] };
  for (const f of fields) {
    const el = document.querySelector(f.selector);
    if (!el) { out.skipped.push(f.name); continue; }
    el.focus();
    const native = el instanceof HTMLTextAreaElement ? areaSetter : inputSetter;
    const setter = native || (f.textArea ? areaSetter : inputSetter);
    if (setter) { setter.call(el, f.value); } else { el.value = f.value; }
    el.dispatchEvent(new Event("input", { bubbles: true }));
    el.dispatchEvent(new Event("change", { bubbles: true }));
    el.blur();
    out.filled.push(f.name);
  }
  return out;
})()`
