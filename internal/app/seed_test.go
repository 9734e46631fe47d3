package app

import (
	"os"
	"path/filepath"
	"testing"
)

const curriculumYAML = `books:
  - step: 1
    index: 1
    title: 어린 왕자
    author: 생텍쥐페리
    contents: 사막에 불시착한 조종사가 어린 왕자를 만나는 이야기.
    questions:
      - Q1
      - Q2
  - step: 1
    index: 2
    title: 마당을 나온 암탉
    author: 황선미
    contents: 양계장을 떠난 암탉 잎싹의 이야기.
    questions:
      - Q1
`

func writeCurriculumFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "curriculum.yaml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write curriculum file: %v", err)
	}
	return path
}

func TestSeedCurriculum(t *testing.T) {
	a, memStore := newTestApp(t, &fakeGenerator{})
	path := writeCurriculumFile(t, curriculumYAML)

	if err := a.SeedCurriculum(path); err != nil {
		t.Fatalf("seed: %v", err)
	}
	entries, err := memStore.ListCurriculum()
	if err != nil || len(entries) != 2 {
		t.Fatalf("entries = %d err=%v", len(entries), err)
	}
	entry, ok, _ := memStore.GetCurriculumEntry(1, 2)
	if !ok || entry.Title != "마당을 나온 암탉" {
		t.Fatalf("entry = %+v ok=%v", entry, ok)
	}

	// Re-seeding is an upsert, not a duplicate.
	if err := a.SeedCurriculum(path); err != nil {
		t.Fatalf("re-seed: %v", err)
	}
	entries, _ = memStore.ListCurriculum()
	if len(entries) != 2 {
		t.Fatalf("entries after re-seed = %d", len(entries))
	}
}

func TestSeedCurriculumRejectsBadEntries(t *testing.T) {
	a, _ := newTestApp(t, &fakeGenerator{})

	cases := map[string]string{
		"zero step": `books:
  - step: 0
    index: 1
    title: 책
    questions: [Q1]
`,
		"missing title": `books:
  - step: 1
    index: 1
    questions: [Q1]
`,
		"no questions": `books:
  - step: 1
    index: 1
    title: 책
    questions: []
`,
		"empty file": `books: []`,
	}
	for name, content := range cases {
		path := writeCurriculumFile(t, content)
		if err := a.SeedCurriculum(path); err == nil {
			t.Fatalf("%s: expected error", name)
		}
	}
}
