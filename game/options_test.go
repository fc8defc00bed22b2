package game

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/bitterfly/go-chaos/fabrica/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func quizJSON(questions, answers int) string {
	qs := make([]string, 0, questions)
	for i := 0; i < questions; i++ {
		as := make([]string, 0, answers)
		for j := 0; j < answers; j++ {
			as = append(as, fmt.Sprintf("%q", fmt.Sprintf("resposta %d", j)))
		}
		qs = append(qs, fmt.Sprintf(`{"title":"pergunta %d","answers":[%s]}`, i, strings.Join(as, ",")))
	}
	return "[" + strings.Join(qs, ",") + "]"
}

func assertInvalid(t *testing.T, err error, field string) {
	t.Helper()
	var verr *ValidationError
	require.True(t, errors.As(err, &verr), "expected validation error, got %v", err)
	assert.Equal(t, field, verr.Field)
}

func TestDecode_Quiz(t *testing.T) {
	_, err := Decode(schema.Quiz, json.RawMessage(quizJSON(10, 5)))
	require.NoError(t, err)

	_, err = Decode(schema.Quiz, json.RawMessage(quizJSON(11, 2)))
	assertInvalid(t, err, "options")

	_, err = Decode(schema.Quiz, json.RawMessage(quizJSON(1, 1)))
	assertInvalid(t, err, "options[0].answers")

	_, err = Decode(schema.Quiz, json.RawMessage(quizJSON(1, 6)))
	assertInvalid(t, err, "options[0].answers")

	_, err = Decode(schema.Quiz, json.RawMessage(`[]`))
	assertInvalid(t, err, "options")
}

func TestDecode_TrueOrFalse(t *testing.T) {
	_, err := Decode(schema.TrueOrFalse, json.RawMessage(`[{"title":"O céu é azul","answer":true}]`))
	require.NoError(t, err)

	_, err = Decode(schema.TrueOrFalse, json.RawMessage(`[{"title":"<b></b>","answer":true}]`))
	assertInvalid(t, err, "options[0].title")

	nine := make([]string, 9)
	for i := range nine {
		nine[i] = `{"title":"q","answer":false}`
	}
	_, err = Decode(schema.TrueOrFalse, json.RawMessage("["+strings.Join(nine, ",")+"]"))
	assertInvalid(t, err, "options")
}

func TestDecode_GroupSort(t *testing.T) {
	_, err := Decode(schema.GroupSort, json.RawMessage(`[{"title":"Frutas","items":["maçã"]},{"title":"Legumes","items":["cenoura","batata"]}]`))
	require.NoError(t, err)

	_, err = Decode(schema.GroupSort, json.RawMessage(`[{"title":"Frutas","items":["maçã"]},{"title":"Legumes","items":[]}]`))
	assertInvalid(t, err, "options[1].items")

	_, err = Decode(schema.GroupSort, json.RawMessage(`[{"title":"Frutas","items":["maçã"]}]`))
	assertInvalid(t, err, "options")
}

func TestDecode_Words(t *testing.T) {
	_, err := Decode(schema.Anagram, json.RawMessage(`["abacaxi","maçã"]`))
	require.NoError(t, err)

	_, err = Decode(schema.Anagram, json.RawMessage(`["duas palavras"]`))
	assertInvalid(t, err, "options[0]")

	_, err = Decode(schema.WordSearch, json.RawMessage(`["paralelepipedos"]`))
	require.NoError(t, err)

	_, err = Decode(schema.WordSearch, json.RawMessage(`["inconstitucional"]`))
	assertInvalid(t, err, "options[0]")
}

func TestDecode_MatchUpAndMemory(t *testing.T) {
	_, err := Decode(schema.MatchUp, json.RawMessage(`[{"word":"efêmero","meaning":"passageiro"}]`))
	require.NoError(t, err)

	_, err = Decode(schema.MatchUp, json.RawMessage(`[{"word":"efêmero","meaning":""}]`))
	assertInvalid(t, err, "options[0]")

	_, err = Decode(schema.MemoryGame, json.RawMessage(`["gato"]`))
	assertInvalid(t, err, "options")

	_, err = Decode(schema.MemoryGame, json.RawMessage(`["gato","cachorro"]`))
	require.NoError(t, err)
}

func TestDecode_Malformed(t *testing.T) {
	_, err := Decode(schema.Quiz, json.RawMessage(`{"title":"x"}`))
	assertInvalid(t, err, "options")

	_, err = Decode(schema.MatchUp, json.RawMessage(`[{"word":"a","meaning":"b","extra":1}]`))
	assertInvalid(t, err, "options")

	_, err = Decode(schema.Quiz, nil)
	assertInvalid(t, err, "options")

	_, err = Decode(schema.Kind("sudoku"), json.RawMessage(`[]`))
	assert.ErrorIs(t, err, ErrUnknownKind)
}

func TestNormalize_ConvertsRichText(t *testing.T) {
	raw := `[{"title":{"blocks":[{"key":"k","text":"Verdade?","type":"unstyled","depth":0,
		"inlineStyleRanges":[{"offset":0,"length":8,"style":"BOLD"}],"entityRanges":[],"data":{}}],"entityMap":{}},
		"answer":true}]`
	data, err := Normalize(schema.TrueOrFalse, json.RawMessage(raw))
	require.NoError(t, err)
	assert.JSONEq(t, `[{"title":"<b>Verdade?</b>","answer":true}]`, string(data))
}

func TestNormalize_TooLarge(t *testing.T) {
	long := strings.Repeat("a", 600)
	cards := make([]string, 12)
	for i := range cards {
		cards[i] = fmt.Sprintf("%q", long)
	}
	_, err := Normalize(schema.MemoryGame, json.RawMessage("["+strings.Join(cards, ",")+"]"))
	assert.ErrorIs(t, err, ErrOptionsTooLarge)
}

func TestResolveLayout(t *testing.T) {
	l, err := ResolveLayout(0)
	require.NoError(t, err)
	assert.Equal(t, 1, l)

	l, err = ResolveLayout(7)
	require.NoError(t, err)
	assert.Equal(t, 7, l)

	_, err = ResolveLayout(8)
	assertInvalid(t, err, "layout")

	layouts := Layouts()
	require.Len(t, layouts, 7)
	assert.Equal(t, "/storage/layout/layout3.png", layouts[2].Image)
}
