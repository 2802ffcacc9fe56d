package listing

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestCollection(t *testing.T) {
	a, b := New(time.Now()), New(time.Now())

	c := Collection{}.Prepend(a).Prepend(b)
	assert.Equal(t, []string{b.ID, a.ID}, []string{c[0].ID, c[1].ID})

	got, ok := c.Find(a.ID)
	assert.True(t, ok)
	assert.Equal(t, a.ID, got.ID)

	_, ok = c.Find("missing")
	assert.False(t, ok)

	edited, _ := EditField(a, FieldTitle, "edited")
	replaced, ok := c.Replace(edited)
	assert.True(t, ok)
	assert.Equal(t, "edited", replaced[1].GeneratedData.Title)
	assert.Equal(t, "", c[1].GeneratedData.Title)

	_, ok = c.Replace(New(time.Now()))
	assert.False(t, ok)

	deleted, ok := c.Delete(b.ID)
	assert.True(t, ok)
	assert.Len(t, deleted, 1)
	assert.Len(t, c, 2)

	_, ok = c.Delete("missing")
	assert.False(t, ok)
}
