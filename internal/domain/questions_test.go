package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testOutline() *QuestionOutline {
	return &QuestionOutline{
		Title: "Date night",
		Chapters: []Chapter{
			{Title: "Warm up", Questions: []ImportedQuestion{
				{Question: "Favourite food?", Variant: VariantOpenEnded},
				{Question: "Who cooks?", Variant: VariantBinary, Options: []string{"Player 1", "Player 2"}},
			}},
			{Title: "Empty"},
			{Title: "Deep", Questions: []ImportedQuestion{
				{Question: "Dream trip?", Variant: VariantPoolSelection},
			}},
		},
	}
}

func TestAdvanceCursor(t *testing.T) {
	room := NewRoom("test")

	_, err := room.AdvanceCursor()
	assert.ErrorIs(t, err, ErrNoImportedQuestions)

	room.SetImportedQuestions(testOutline())
	assert.Equal(t, 3, room.ImportedQuestions.TotalQuestions())

	pos, err := room.AdvanceCursor()
	require.NoError(t, err)
	assert.Equal(t, 0, pos.ChapterIndex)
	assert.Equal(t, 0, pos.QuestionIndex)
	assert.True(t, pos.IsNewChapter)
	assert.False(t, pos.IsLastQuestion)
	assert.Equal(t, "Favourite food?", pos.Question.Question)

	pos, err = room.AdvanceCursor()
	require.NoError(t, err)
	assert.Equal(t, 1, pos.QuestionIndex)
	assert.False(t, pos.IsNewChapter)

	current, ok := room.CurrentQuestion()
	require.True(t, ok)
	assert.Equal(t, "Who cooks?", current.Question)

	pos, err = room.AdvanceCursor()
	require.NoError(t, err)
	assert.Equal(t, 2, pos.ChapterIndex, "empty chapters are skipped")
	assert.Equal(t, 0, pos.QuestionIndex)
	assert.True(t, pos.IsNewChapter)
	assert.True(t, pos.IsLastQuestion)

	pos, err = room.AdvanceCursor()
	assert.NoError(t, err)
	assert.Nil(t, pos)
}

func TestSetImportedQuestionsCopiesOutline(t *testing.T) {
	outline := testOutline()
	room := NewRoom("test")
	room.SetImportedQuestions(outline)

	outline.Chapters[0].Questions[1].Options[0] = "changed"
	outline.Chapters[0].Title = "changed"

	assert.Equal(t, "Player 1", room.ImportedQuestions.Chapters[0].Questions[1].Options[0])
	assert.Equal(t, "Warm up", room.ImportedQuestions.Chapters[0].Title)

	_, err := room.AdvanceCursor()
	require.NoError(t, err)
	room.SetImportedQuestions(outline)
	assert.Nil(t, room.QuestionCursor)

	room.ClearImportedQuestions()
	assert.Nil(t, room.ImportedQuestions)
	_, ok := room.CurrentQuestion()
	assert.False(t, ok)
}

func TestImportedQuestionSpec(t *testing.T) {
	q := ImportedQuestion{Question: "Who cooks?", Variant: VariantBinary, Options: []string{"P1", "P2"}, AnswerForBoth: true}
	spec := q.Spec()
	assert.NoError(t, ValidateRoundSpec(spec))

	spec.Options[0] = "changed"
	assert.Equal(t, "P1", q.Options[0])
}

func TestKindOf(t *testing.T) {
	assert.Equal(t, KindConflict, KindOf(ErrNotHost))
	assert.Equal(t, KindNotFound, KindOf(ErrRoomNotFound))
	assert.Equal(t, KindValidation, KindOf(NewValidationError("bad %d", 1)))
	assert.Equal(t, KindInternal, KindOf(assert.AnError))
}
