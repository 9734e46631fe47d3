package app

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"nexture/pkg/domain"
)

// CreateSession opens a new chat session at the user's next curriculum
// position: the very first entry for a new user, otherwise one advance
// past the latest session's position. The interview starts at cursor 0.
func (a *App) CreateSession(userID string) (string, domain.BookInfo, error) {
	step, index := initialPosition()
	if latest, ok, err := a.store.LatestChatSession(userID); err != nil {
		return "", domain.BookInfo{}, fmt.Errorf("fetch latest session: %w", err)
	} else if ok {
		step, index, err = a.advance(latest.CurrentStep, latest.CurrentIndex)
		if err != nil {
			return "", domain.BookInfo{}, err
		}
	}

	entry, ok, err := a.store.GetCurriculumEntry(step, index)
	if err != nil {
		return "", domain.BookInfo{}, fmt.Errorf("fetch curriculum entry: %w", err)
	}
	if !ok {
		return "", domain.BookInfo{}, ErrCurriculumNotFound
	}

	cursor := 0
	session := domain.ChatSession{
		ID:             uuid.NewString(),
		UserID:         userID,
		Title:          entry.Title,
		CreatedAt:      time.Now().UTC(),
		CurrentStep:    step,
		CurrentIndex:   index,
		QuestionCursor: &cursor,
	}
	if err := a.store.CreateChatSession(session); err != nil {
		return "", domain.BookInfo{}, fmt.Errorf("create session: %w", err)
	}
	return session.ID, domain.BookInfo{
		Title:    entry.Title,
		Author:   entry.Author,
		Contents: entry.Contents,
	}, nil
}

// ListSessions returns the user's sessions, newest first, with report
// presence flags.
func (a *App) ListSessions(userID string) ([]domain.SessionSummary, error) {
	sessions, err := a.store.ListChatSessions(userID)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	summaries := make([]domain.SessionSummary, 0, len(sessions))
	for _, session := range sessions {
		hasBook, err := a.store.HasBookReport(userID, session.ID)
		if err != nil {
			return nil, fmt.Errorf("check book report: %w", err)
		}
		hasFinal, err := a.store.HasFinalReport(userID, session.ID)
		if err != nil {
			return nil, fmt.Errorf("check final report: %w", err)
		}
		summaries = append(summaries, domain.SessionSummary{
			ChatID:         session.ID,
			Title:          session.Title,
			CreatedAt:      session.CreatedAt,
			CurrentStep:    session.CurrentStep,
			CurrentIndex:   session.CurrentIndex,
			QuestionCursor: session.QuestionCursor,
			HasBookReport:  hasBook,
			HasFinalReport: hasFinal,
		})
	}
	return summaries, nil
}

// SessionMessages is the transcript view of a session.
type SessionMessages struct {
	Title     string           `json:"title"`
	Author    string           `json:"author"`
	Step      int              `json:"step"`
	StepIndex int              `json:"stepIndex"`
	Messages  []domain.Message `json:"messages"`
}

// BookReportDetail is the book-report view of a session.
type BookReportDetail struct {
	Title        string    `json:"title"`
	Author       string    `json:"author"`
	Subject      string    `json:"subject"`
	Summary      string    `json:"summary"`
	BookReview   string    `json:"bookReview"`
	DebateReview string    `json:"debateReview"`
	CreatedAt    time.Time `json:"createdAt"`
}

// FinalReportDetail is the final-report view of a session, pairing the
// generated reference summary with the student's own.
type FinalReportDetail struct {
	Title          string        `json:"title"`
	Author         string        `json:"author"`
	Subject        string        `json:"subject"`
	GoldSummary    string        `json:"goldSummary"`
	StudentSummary string        `json:"studentSummary"`
	Scores         domain.Scores `json:"scores"`
	Reason         string        `json:"reason"`
	CreatedAt      time.Time     `json:"createdAt"`
}

// SessionDetail returns one of the three session views, dispatched on
// the closed DetailMode enum.
func (a *App) SessionDetail(userID, chatID string, mode domain.DetailMode) (any, error) {
	session, entry, err := a.resolveSession(userID, chatID)
	if err != nil {
		return nil, err
	}

	switch mode {
	case domain.DetailMessages:
		messages, err := a.store.ListMessages(userID, chatID, domain.StreamInterview)
		if err != nil {
			return nil, fmt.Errorf("load messages: %w", err)
		}
		return SessionMessages{
			Title:     entry.Title,
			Author:    entry.Author,
			Step:      session.CurrentStep,
			StepIndex: session.CurrentIndex,
			Messages:  messages,
		}, nil

	case domain.DetailBookReport:
		bookReport, err := a.requireBookReport(userID, chatID)
		if err != nil {
			return nil, err
		}
		return BookReportDetail{
			Title:        entry.Title,
			Author:       entry.Author,
			Subject:      bookReport.Subject,
			Summary:      bookReport.Summary,
			BookReview:   bookReport.BookReview,
			DebateReview: bookReport.DebateReview,
			CreatedAt:    bookReport.CreatedAt,
		}, nil

	case domain.DetailFinalReport:
		bookReport, err := a.requireBookReport(userID, chatID)
		if err != nil {
			return nil, err
		}
		finalReport, ok, err := a.store.GetFinalReport(userID, chatID)
		if err != nil {
			return nil, fmt.Errorf("load final report: %w", err)
		}
		if !ok {
			return nil, ErrFinalReportNotFound
		}
		return FinalReportDetail{
			Title:          entry.Title,
			Author:         entry.Author,
			Subject:        bookReport.Subject,
			GoldSummary:    finalReport.Summary,
			StudentSummary: bookReport.Summary,
			Scores:         finalReport.Scores,
			Reason:         finalReport.Reason,
			CreatedAt:      finalReport.CreatedAt,
		}, nil

	default:
		return nil, fmt.Errorf("unknown detail mode %d", mode)
	}
}

// CurrentBook returns the book a session is working through.
func (a *App) CurrentBook(userID, chatID string) (domain.BookInfo, error) {
	_, entry, err := a.resolveSession(userID, chatID)
	if err != nil {
		return domain.BookInfo{}, err
	}
	return domain.BookInfo{
		Title:    entry.Title,
		Author:   entry.Author,
		Contents: entry.Contents,
	}, nil
}

// Curriculum returns the full catalog ordered by step then index.
func (a *App) Curriculum() ([]domain.CurriculumEntry, error) {
	entries, err := a.store.ListCurriculum()
	if err != nil {
		return nil, fmt.Errorf("list curriculum: %w", err)
	}
	return entries, nil
}

// resolveSession loads a session and its curriculum entry, translating
// absences into the domain error taxonomy.
func (a *App) resolveSession(userID, chatID string) (domain.ChatSession, domain.CurriculumEntry, error) {
	session, ok, err := a.store.GetChatSession(userID, chatID)
	if err != nil {
		return domain.ChatSession{}, domain.CurriculumEntry{}, fmt.Errorf("fetch session: %w", err)
	}
	if !ok {
		return domain.ChatSession{}, domain.CurriculumEntry{}, ErrChatNotFound
	}
	entry, ok, err := a.store.GetCurriculumEntry(session.CurrentStep, session.CurrentIndex)
	if err != nil {
		return domain.ChatSession{}, domain.CurriculumEntry{}, fmt.Errorf("fetch curriculum entry: %w", err)
	}
	if !ok {
		return domain.ChatSession{}, domain.CurriculumEntry{}, ErrCurriculumNotFound
	}
	return session, entry, nil
}

func (a *App) requireBookReport(userID, chatID string) (domain.BookReport, error) {
	bookReport, ok, err := a.store.GetBookReport(userID, chatID)
	if err != nil {
		return domain.BookReport{}, fmt.Errorf("load book report: %w", err)
	}
	if !ok {
		return domain.BookReport{}, ErrBookReportNotFound
	}
	return bookReport, nil
}
