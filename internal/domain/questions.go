package domain

import "slices"

// QuestionOutline is an externally validated list of chapters, played in reading order
type QuestionOutline struct {
	Title    string    `json:"title"`
	Chapters []Chapter `json:"chapters"`
}

// Chapter groups imported questions under a heading
type Chapter struct {
	Title     string             `json:"title"`
	Questions []ImportedQuestion `json:"questions"`
}

// ImportedQuestion is one question of an outline
type ImportedQuestion struct {
	Question      string   `json:"question" yaml:"question"`
	Variant       Variant  `json:"variant" yaml:"variant"`
	Options       []string `json:"options,omitempty" yaml:"options"`
	AnswerForBoth bool     `json:"answerForBoth" yaml:"answerForBoth"`
}

// Spec converts the question into a round spec
func (q ImportedQuestion) Spec() RoundSpec {
	return RoundSpec{
		Question:      q.Question,
		Variant:       q.Variant,
		Options:       slices.Clone(q.Options),
		AnswerForBoth: q.AnswerForBoth,
	}
}

// QuestionCursor points at the last question handed out
type QuestionCursor struct {
	ChapterIndex  int `json:"chapterIndex"`
	QuestionIndex int `json:"questionIndex"`
}

// CursorPosition is the result of advancing the cursor
type CursorPosition struct {
	ChapterIndex   int              `json:"chapterIndex"`
	QuestionIndex  int              `json:"questionIndex"`
	Question       ImportedQuestion `json:"question"`
	IsNewChapter   bool             `json:"isNewChapter"`
	IsLastQuestion bool             `json:"isLastQuestion"`
}

// TotalQuestions counts questions across all chapters
func (o *QuestionOutline) TotalQuestions() int {
	if o == nil {
		return 0
	}
	total := 0
	for _, ch := range o.Chapters {
		total += len(ch.Questions)
	}
	return total
}

func (o *QuestionOutline) clone() *QuestionOutline {
	if o == nil {
		return nil
	}
	c := &QuestionOutline{Title: o.Title, Chapters: make([]Chapter, len(o.Chapters))}
	for i, ch := range o.Chapters {
		questions := make([]ImportedQuestion, len(ch.Questions))
		for j, q := range ch.Questions {
			q.Options = slices.Clone(q.Options)
			questions[j] = q
		}
		c.Chapters[i] = Chapter{Title: ch.Title, Questions: questions}
	}
	return c
}

// next returns the position after (ch, q) in reading order, skipping empty chapters
func (o *QuestionOutline) next(ch, q int) (int, int, bool) {
	q++
	for ch < len(o.Chapters) {
		if q < len(o.Chapters[ch].Questions) {
			return ch, q, true
		}
		ch++
		q = 0
	}
	return 0, 0, false
}

// SetImportedQuestions installs an outline and rewinds the cursor
func (r *Room) SetImportedQuestions(outline *QuestionOutline) {
	r.ImportedQuestions = outline.clone()
	r.QuestionCursor = nil
}

// ClearImportedQuestions removes the outline and the cursor
func (r *Room) ClearImportedQuestions() {
	r.ImportedQuestions = nil
	r.QuestionCursor = nil
}

// AdvanceCursor moves to the next question, chapter-major.
// It returns nil, nil once the outline is exhausted.
func (r *Room) AdvanceCursor() (*CursorPosition, error) {
	outline := r.ImportedQuestions
	if outline == nil {
		return nil, ErrNoImportedQuestions
	}

	ch, q := 0, -1
	if r.QuestionCursor != nil {
		ch, q = r.QuestionCursor.ChapterIndex, r.QuestionCursor.QuestionIndex
	}

	nextCh, nextQ, ok := outline.next(ch, q)
	if !ok {
		return nil, nil
	}

	isNewChapter := r.QuestionCursor == nil || nextCh != ch
	r.QuestionCursor = &QuestionCursor{ChapterIndex: nextCh, QuestionIndex: nextQ}

	_, _, more := outline.next(nextCh, nextQ)
	return &CursorPosition{
		ChapterIndex:   nextCh,
		QuestionIndex:  nextQ,
		Question:       outline.Chapters[nextCh].Questions[nextQ],
		IsNewChapter:   isNewChapter,
		IsLastQuestion: !more,
	}, nil
}

// CurrentQuestion returns the question under the cursor without moving it
func (r *Room) CurrentQuestion() (*ImportedQuestion, bool) {
	if r.ImportedQuestions == nil || r.QuestionCursor == nil {
		return nil, false
	}
	ch, q := r.QuestionCursor.ChapterIndex, r.QuestionCursor.QuestionIndex
	if ch >= len(r.ImportedQuestions.Chapters) || q >= len(r.ImportedQuestions.Chapters[ch].Questions) {
		return nil, false
	}
	question := r.ImportedQuestions.Chapters[ch].Questions[q]
	return &question, true
}
