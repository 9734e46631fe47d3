package store

import (
	"errors"

	"nexture/pkg/domain"
)

// ErrChatSessionNotFound is returned by cursor updates when the target
// session does not exist for the given user.
var ErrChatSessionNotFound = errors.New("chat session not found")

// Store defines persistence operations for users, the curriculum, chat
// sessions, their message streams, and the derived reports.
//
// Chat-scoped operations take the owning user ID so a session is never
// visible outside its creator. Multi-step updates are plain
// read-compute-write: the service assumes at most one in-flight turn
// per session.
type Store interface {
	// users
	SaveUser(domain.User) error
	HasUserLoginID(loginID string) (bool, error)
	GetUserByLoginID(loginID string) (domain.User, bool, error)
	GetUserByID(id string) (domain.User, bool, error)
	SearchLoginIDs(prefix string, limit int) ([]string, error)

	// curriculum (read-mostly; Save is used by seeding only)
	SaveCurriculumEntry(domain.CurriculumEntry) error
	GetCurriculumEntry(step, index int) (domain.CurriculumEntry, bool, error)
	HasCurriculumStep(step int) (bool, error)
	ListCurriculum() ([]domain.CurriculumEntry, error)

	// chat sessions
	CreateChatSession(domain.ChatSession) error
	GetChatSession(userID, chatID string) (domain.ChatSession, bool, error)
	LatestChatSession(userID string) (domain.ChatSession, bool, error)
	ListChatSessions(userID string) ([]domain.ChatSession, error)
	// SetQuestionCursor overwrites the cursor; nil marks the interview
	// terminal. Returns ErrChatSessionNotFound when no session matches.
	SetQuestionCursor(userID, chatID string, cursor *int) error

	// messages, per stream, ordered by timestamp
	AppendMessage(userID, chatID string, stream domain.Stream, msg domain.Message) error
	ListMessages(userID, chatID string, stream domain.Stream) ([]domain.Message, error)

	// singleton reports keyed by chat session (save = full overwrite)
	SaveBookReport(userID, chatID string, report domain.BookReport) error
	GetBookReport(userID, chatID string) (domain.BookReport, bool, error)
	HasBookReport(userID, chatID string) (bool, error)
	SaveFinalReport(userID, chatID string, report domain.FinalReport) error
	GetFinalReport(userID, chatID string) (domain.FinalReport, bool, error)
	HasFinalReport(userID, chatID string) (bool, error)

	// ListFinalReports returns final reports with their chat IDs,
	// ordered by session creation time descending, capped at limit
	// (0 = no cap).
	ListFinalReports(userID string, limit int) ([]OwnedFinalReport, error)
	ListBookReports(userID string) ([]domain.BookReport, error)

	// one aggregate report per user
	SaveAggregateReport(userID string, report domain.AggregateReport) error
	GetAggregateReport(userID string) (domain.AggregateReport, bool, error)
}

// OwnedFinalReport pairs a final report with the chat session that
// produced it.
type OwnedFinalReport struct {
	ChatID string             `json:"chatId"`
	Report domain.FinalReport `json:"report"`
}

// SessionStore persists session tokens.
type SessionStore interface {
	NewSession(userID string) (string, error)
	GetUserIDByToken(token string) (string, bool, error)
	DeleteSession(token string) error
}
