// Package questions parses and validates question outlines for import into a room.
//
// An outline is a YAML (or JSON) document:
//
//	title: Road trip
//	chapters:
//	  - title: Warm up
//	    questions:
//	      - question: Favorite snack?
//	      - question: Window or aisle?
//	        variant: binary
//	        options: [Window, Aisle]
package questions

import (
	"bytes"
	"errors"
	"io"
	"strings"

	"gopkg.in/yaml.v3"

	"duoquiz/internal/domain"
)

// MaxContentSize bounds an uploaded outline
const MaxContentSize = 1 << 20

type document struct {
	Title    string    `yaml:"title"`
	Chapters []chapter `yaml:"chapters"`
}

type chapter struct {
	Title     string                    `yaml:"title"`
	Questions []domain.ImportedQuestion `yaml:"questions"`
}

// Parse decodes an outline. Questions without a variant are open-ended.
func Parse(content []byte) (*domain.QuestionOutline, error) {
	if len(bytes.TrimSpace(content)) == 0 {
		return nil, domain.NewValidationError("Question file is empty")
	}
	if len(content) > MaxContentSize {
		return nil, domain.NewValidationError("Question file is too large")
	}

	dec := yaml.NewDecoder(bytes.NewReader(content))
	dec.KnownFields(true)

	var doc document
	if err := dec.Decode(&doc); err != nil && !errors.Is(err, io.EOF) {
		return nil, domain.NewValidationError("Invalid question file: %s", parseMessage(err))
	}

	outline := &domain.QuestionOutline{
		Title:    strings.TrimSpace(doc.Title),
		Chapters: make([]domain.Chapter, 0, len(doc.Chapters)),
	}
	for _, ch := range doc.Chapters {
		questions := make([]domain.ImportedQuestion, 0, len(ch.Questions))
		for _, q := range ch.Questions {
			q.Question = strings.TrimSpace(q.Question)
			if q.Variant == "" {
				q.Variant = domain.VariantOpenEnded
			}
			questions = append(questions, q)
		}
		outline.Chapters = append(outline.Chapters, domain.Chapter{
			Title:     strings.TrimSpace(ch.Title),
			Questions: questions,
		})
	}

	return outline, nil
}

// Validate checks that the outline can be played start to finish
func Validate(outline *domain.QuestionOutline) error {
	if outline == nil || len(outline.Chapters) == 0 {
		return domain.NewValidationError("At least one chapter is required")
	}

	for i, ch := range outline.Chapters {
		if ch.Title == "" {
			return domain.NewValidationError("Chapter %d: title is required", i+1)
		}
		if len(ch.Questions) == 0 {
			return domain.NewValidationError("Chapter %q: at least one question is required", ch.Title)
		}
		for j, q := range ch.Questions {
			if err := domain.ValidateRoundSpec(q.Spec()); err != nil {
				return domain.NewValidationError("Chapter %q, question %d: %s", ch.Title, j+1, err.Error())
			}
		}
	}
	return nil
}

// parseMessage strips the decoder prefix from yaml errors
func parseMessage(err error) string {
	var typeErr *yaml.TypeError
	if errors.As(err, &typeErr) && len(typeErr.Errors) > 0 {
		return typeErr.Errors[0]
	}
	return strings.TrimPrefix(err.Error(), "yaml: ")
}
