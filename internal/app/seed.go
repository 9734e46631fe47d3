package app

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"nexture/pkg/domain"
)

type curriculumFile struct {
	Books []curriculumBook `yaml:"books"`
}

type curriculumBook struct {
	Step      int      `yaml:"step"`
	Index     int      `yaml:"index"`
	Title     string   `yaml:"title"`
	Author    string   `yaml:"author"`
	Contents  string   `yaml:"contents"`
	Questions []string `yaml:"questions"`
}

// SeedCurriculum loads the curriculum catalog from a YAML file and
// upserts every entry. Safe to run on every startup.
func (a *App) SeedCurriculum(path string) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read curriculum file: %w", err)
	}
	var file curriculumFile
	if err := yaml.Unmarshal(raw, &file); err != nil {
		return fmt.Errorf("parse curriculum file: %w", err)
	}
	if len(file.Books) == 0 {
		return fmt.Errorf("curriculum file %s lists no books", path)
	}
	for i, book := range file.Books {
		entry := domain.CurriculumEntry{
			Step:      book.Step,
			Index:     book.Index,
			Title:     strings.TrimSpace(book.Title),
			Author:    strings.TrimSpace(book.Author),
			Contents:  book.Contents,
			Questions: book.Questions,
		}
		if err := validateCurriculumEntry(entry); err != nil {
			return fmt.Errorf("curriculum book %d: %w", i+1, err)
		}
		if err := a.store.SaveCurriculumEntry(entry); err != nil {
			return fmt.Errorf("save curriculum entry (%d,%d): %w", entry.Step, entry.Index, err)
		}
	}
	return nil
}

func validateCurriculumEntry(entry domain.CurriculumEntry) error {
	if entry.Step < 1 || entry.Index < 1 {
		return fmt.Errorf("step and index must start at 1, got (%d,%d)", entry.Step, entry.Index)
	}
	if entry.Title == "" {
		return fmt.Errorf("title is required")
	}
	if len(entry.Questions) == 0 {
		return fmt.Errorf("at least one question is required")
	}
	for i, q := range entry.Questions {
		if strings.TrimSpace(q) == "" {
			return fmt.Errorf("question %d is blank", i+1)
		}
	}
	return nil
}
