package llm

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type toyOutput struct {
	Title string `json:"title"`
	Score int    `json:"score"`
}

func TestExtractJSON_PlainObject(t *testing.T) {
	got, err := ExtractJSON[toyOutput](`{"title":"ok","score":3}`, nil)
	require.NoError(t, err)
	assert.Equal(t, toyOutput{Title: "ok", Score: 3}, got)
}

func TestExtractJSON_CodeFences(t *testing.T) {
	raw := "Here is the result:\n```json\n{\"title\":\"fenced\",\"score\":1}\n```\nLet me know if you need changes."
	got, err := ExtractJSON[toyOutput](raw, nil)
	require.NoError(t, err)
	assert.Equal(t, "fenced", got.Title)
}

func TestExtractJSON_SurroundingProse(t *testing.T) {
	raw := `Sure! {"title":"embedded","score":2} Hope that helps.`
	got, err := ExtractJSON[toyOutput](raw, nil)
	require.NoError(t, err)
	assert.Equal(t, "embedded", got.Title)
}

func TestExtractJSON_NestedBracesAndStrings(t *testing.T) {
	raw := `{"title":"has {braces} and \"quotes\"","score":5}`
	got, err := ExtractJSON[toyOutput](raw, nil)
	require.NoError(t, err)
	assert.Equal(t, `has {braces} and "quotes"`, got.Title)
}

func TestExtractJSON_LineComments(t *testing.T) {
	raw := "{\n\"title\":\"commented\", // model chatter\n\"score\":4\n}"
	got, err := ExtractJSON[toyOutput](raw, nil)
	require.NoError(t, err)
	assert.Equal(t, 4, got.Score)
}

func TestExtractJSON_CommentMarkerInsideString(t *testing.T) {
	raw := `{"title":"https://example.com//path","score":1}`
	got, err := ExtractJSON[toyOutput](raw, nil)
	require.NoError(t, err)
	assert.Equal(t, "https://example.com//path", got.Title)
}

func TestExtractJSON_NoObject(t *testing.T) {
	_, err := ExtractJSON[toyOutput]("sorry, I cannot help with that", nil)
	assert.ErrorIs(t, err, ErrInvalidOutput)
}

func TestExtractJSON_UnbalancedObject(t *testing.T) {
	_, err := ExtractJSON[toyOutput](`{"title":"cut off`, nil)
	assert.ErrorIs(t, err, ErrInvalidOutput)
}

func TestExtractJSON_ValidatorRejects(t *testing.T) {
	validator := func(o toyOutput) error {
		if o.Score < 0 {
			return fmt.Errorf("score must not be negative")
		}
		return nil
	}

	got, err := ExtractJSON[toyOutput](`{"title":"ok","score":1}`, validator)
	require.NoError(t, err)
	assert.Equal(t, 1, got.Score)

	_, err = ExtractJSON[toyOutput](`{"title":"bad","score":-2}`, validator)
	assert.ErrorIs(t, err, ErrInvalidOutput)
}
