package domain

import "time"

// Stream identifies which message stream of a chat session a message
// belongs to. The scripted interview and the free-form assistant helper
// are stored separately and never merged.
type Stream string

const (
	StreamInterview Stream = "interview"
	StreamAssistant Stream = "assistant"
)

// DetailMode selects which view of a chat session a detail lookup returns.
type DetailMode int

const (
	DetailMessages DetailMode = iota
	DetailBookReport
	DetailFinalReport
)

type User struct {
	ID           string    `json:"id"`
	LoginID      string    `json:"loginId"`
	Name         string    `json:"name"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"createdAt"`
}

// CurriculumEntry is one book in the fixed curriculum, addressed by
// (step, index), both starting at 1. Entries are seeded externally and
// never mutated by this service.
type CurriculumEntry struct {
	Step      int      `json:"step"`
	Index     int      `json:"index"`
	Title     string   `json:"title"`
	Author    string   `json:"author"`
	Contents  string   `json:"contents"`
	Questions []string `json:"questions"`
}

// ChatSession tracks a user's position in the curriculum and the
// interview question cursor. QuestionCursor is nil only in the terminal
// state: the interview finished, step/index stay resolvable.
type ChatSession struct {
	ID             string    `json:"chatId"`
	UserID         string    `json:"-"`
	Title          string    `json:"title"`
	CreatedAt      time.Time `json:"createdAt"`
	CurrentStep    int       `json:"currentStep"`
	CurrentIndex   int       `json:"currentIndex"`
	QuestionCursor *int      `json:"questionCursor"`
}

// InterviewDone reports whether the scripted interview reached its
// terminal state.
func (s ChatSession) InterviewDone() bool {
	return s.QuestionCursor == nil
}

type Message struct {
	ID        string    `json:"id"`
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"createdAt"`
}

// BookReport is the user-authored write-up collected after the
// interview completes. One per chat session, overwrite on resubmit.
type BookReport struct {
	Subject      string    `json:"subject"`
	Summary      string    `json:"summary"`
	BookReview   string    `json:"bookReview"`
	DebateReview string    `json:"debateReview"`
	CreatedAt    time.Time `json:"createdAt"`
}

// Scores are the four evaluation subscores, each in [1,5].
type Scores struct {
	SummaryAccuracy int `json:"summary_accuracy"`
	Expression      int `json:"expression"`
	LogicalThinking int `json:"logical_thinking"`
	Manner          int `json:"manner"`
}

// FinalReport is the generated evaluation of a book report against the
// book's reference summary. One per chat session, never user-edited.
type FinalReport struct {
	Title     string    `json:"title"`
	Author    string    `json:"author"`
	Subject   string    `json:"subject"`
	Summary   string    `json:"summary"`
	Scores    Scores    `json:"scores"`
	Reason    string    `json:"reason"`
	CreatedAt time.Time `json:"createdAt"`
}

// FinalReportSnapshot is the canonical form a final report takes inside
// an aggregate report window. CreatedAt is a string so the snapshot
// serializes identically no matter which store it round-tripped through.
type FinalReportSnapshot struct {
	ChatID    string `json:"chatId"`
	Title     string `json:"title"`
	Author    string `json:"author"`
	Scores    Scores `json:"scores"`
	Reason    string `json:"reason"`
	CreatedAt string `json:"createdAt"`
}

// AggregateReport is the per-user roll-up over the most recent final
// reports (at most four). Regenerated only when the window changes.
type AggregateReport struct {
	Pros      string                `json:"pros"`
	Cons      string                `json:"cons"`
	Reports   []FinalReportSnapshot `json:"reports"`
	CreatedAt time.Time             `json:"createdAt"`
}

// SessionSummary is the listing view of a chat session.
type SessionSummary struct {
	ChatID         string    `json:"chatId"`
	Title          string    `json:"title"`
	CreatedAt      time.Time `json:"createdAt"`
	CurrentStep    int       `json:"currentStep"`
	CurrentIndex   int       `json:"currentIndex"`
	QuestionCursor *int      `json:"questionCursor"`
	HasBookReport  bool      `json:"hasBookReport"`
	HasFinalReport bool      `json:"hasFinalReport"`
}

// BookInfo is the public view of a curriculum entry without questions.
type BookInfo struct {
	Title    string `json:"title"`
	Author   string `json:"author"`
	Contents string `json:"contents"`
}
