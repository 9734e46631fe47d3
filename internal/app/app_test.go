package app

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"nexture/pkg/domain"
	"nexture/pkg/store"
)

// fakeGenerator replays queued completions and counts calls.
type fakeGenerator struct {
	mu    sync.Mutex
	calls int
	queue []string
	err   error
}

func (f *fakeGenerator) GenerateText(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.err != nil {
		return "", f.err
	}
	if len(f.queue) > 0 {
		next := f.queue[0]
		f.queue = f.queue[1:]
		return next, nil
	}
	return "좋은 생각이에요, 잘 들었어요.", nil
}

func (f *fakeGenerator) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func newTestApp(t *testing.T, gen *fakeGenerator) (*App, *store.MemoryStore) {
	t.Helper()
	memStore := store.NewMemoryStore()
	a, err := New(Config{
		Store:         memStore,
		Sessions:      store.NewMemorySessionStore(),
		Generator:     gen,
		RetryAttempts: 3,
		RetryDelay:    time.Millisecond,
	})
	if err != nil {
		t.Fatalf("new app: %v", err)
	}
	return a, memStore
}

func seedCurriculum(t *testing.T, memStore *store.MemoryStore, entries ...domain.CurriculumEntry) {
	t.Helper()
	for _, entry := range entries {
		if err := memStore.SaveCurriculumEntry(entry); err != nil {
			t.Fatalf("seed curriculum: %v", err)
		}
	}
}

func threeQuestionEntry(step, index int) domain.CurriculumEntry {
	return domain.CurriculumEntry{
		Step:      step,
		Index:     index,
		Title:     "어린 왕자",
		Author:    "생텍쥐페리",
		Contents:  "사막에 불시착한 조종사가 어린 왕자를 만나는 이야기.",
		Questions: []string{"Q1", "Q2", "Q3"},
	}
}

func TestCreateSessionWalksCurriculum(t *testing.T) {
	gen := &fakeGenerator{}
	a, memStore := newTestApp(t, gen)
	seedCurriculum(t, memStore,
		threeQuestionEntry(1, 1),
		threeQuestionEntry(1, 2),
		threeQuestionEntry(2, 1),
	)

	positions := [][2]int{{1, 1}, {1, 2}, {2, 1}}
	for i, want := range positions {
		chatID, book, err := a.CreateSession("user-1")
		if err != nil {
			t.Fatalf("create session %d: %v", i, err)
		}
		if book.Title != "어린 왕자" {
			t.Fatalf("unexpected book: %+v", book)
		}
		session, ok, err := memStore.GetChatSession("user-1", chatID)
		if err != nil || !ok {
			t.Fatalf("fetch session %d: ok=%v err=%v", i, ok, err)
		}
		if session.CurrentStep != want[0] || session.CurrentIndex != want[1] {
			t.Fatalf("session %d at (%d,%d), want (%d,%d)",
				i, session.CurrentStep, session.CurrentIndex, want[0], want[1])
		}
		if session.QuestionCursor == nil || *session.QuestionCursor != 0 {
			t.Fatalf("session %d cursor = %v, want 0", i, session.QuestionCursor)
		}
	}

	// Curriculum is exhausted.
	if _, _, err := a.CreateSession("user-1"); !errors.Is(err, ErrCurriculumNotFound) {
		t.Fatalf("expected curriculum exhaustion, got %v", err)
	}
}

func TestFirstTurnEmitsFirstQuestionWithoutGeneration(t *testing.T) {
	gen := &fakeGenerator{}
	a, memStore := newTestApp(t, gen)
	seedCurriculum(t, memStore, threeQuestionEntry(1, 1))

	chatID, _, err := a.CreateSession("user-1")
	if err != nil {
		t.Fatalf("create session: %v", err)
	}

	reply, err := a.ProcessInterviewTurn(context.Background(), "user-1", chatID, "안녕하세요")
	if err != nil {
		t.Fatalf("turn: %v", err)
	}
	if reply != "Q1" {
		t.Fatalf("reply = %q, want Q1", reply)
	}
	if gen.callCount() != 0 {
		t.Fatalf("generation calls = %d, want 0", gen.callCount())
	}
	session, _, _ := memStore.GetChatSession("user-1", chatID)
	if session.QuestionCursor == nil || *session.QuestionCursor != 1 {
		t.Fatalf("cursor = %v, want 1", session.QuestionCursor)
	}
}

func TestInterviewWalkToCompletion(t *testing.T) {
	gen := &fakeGenerator{queue: []string{"공감해요.", "정말 좋네요."}}
	a, memStore := newTestApp(t, gen)
	seedCurriculum(t, memStore, threeQuestionEntry(1, 1))

	chatID, _, err := a.CreateSession("user-1")
	if err != nil {
		t.Fatalf("create session: %v", err)
	}
	ctx := context.Background()

	if reply, err := a.ProcessInterviewTurn(ctx, "user-1", chatID, "hi"); err != nil || reply != "Q1" {
		t.Fatalf("turn 1 = %q, %v", reply, err)
	}
	if reply, err := a.ProcessInterviewTurn(ctx, "user-1", chatID, "answer A"); err != nil || reply != "공감해요.\n\nQ3" {
		t.Fatalf("turn 2 = %q, %v", reply, err)
	}
	reply, err := a.ProcessInterviewTurn(ctx, "user-1", chatID, "answer B")
	if err != nil {
		t.Fatalf("turn 3: %v", err)
	}
	if reply != "정말 좋네요.\n\n"+completionMessage {
		t.Fatalf("turn 3 = %q", reply)
	}

	session, _, _ := memStore.GetChatSession("user-1", chatID)
	if session.QuestionCursor != nil {
		t.Fatalf("cursor = %v, want nil", session.QuestionCursor)
	}
	if session.CurrentStep != 1 || session.CurrentIndex != 1 {
		t.Fatalf("terminal session lost its position: (%d,%d)", session.CurrentStep, session.CurrentIndex)
	}

	// A turn after the terminal state is invalid, but the user message
	// is still persisted.
	if _, err := a.ProcessInterviewTurn(ctx, "user-1", chatID, "one more"); !errors.Is(err, ErrInvalidChatState) {
		t.Fatalf("expected invalid state, got %v", err)
	}
	messages, _ := memStore.ListMessages("user-1", chatID, domain.StreamInterview)
	last := messages[len(messages)-1]
	if last.Role != "user" || last.Content != "one more" {
		t.Fatalf("last message = %+v, want the rejected user message", last)
	}
}

func TestInterviewTurnUnknownChat(t *testing.T) {
	gen := &fakeGenerator{}
	a, memStore := newTestApp(t, gen)
	seedCurriculum(t, memStore, threeQuestionEntry(1, 1))

	if _, err := a.ProcessInterviewTurn(context.Background(), "user-1", "missing", "hi"); !errors.Is(err, ErrChatNotFound) {
		t.Fatalf("expected chat not found, got %v", err)
	}
}

func TestInterviewTurnGenerationFailure(t *testing.T) {
	gen := &fakeGenerator{err: errors.New("provider down")}
	a, memStore := newTestApp(t, gen)
	seedCurriculum(t, memStore, threeQuestionEntry(1, 1))

	chatID, _, err := a.CreateSession("user-1")
	if err != nil {
		t.Fatalf("create session: %v", err)
	}
	ctx := context.Background()
	if _, err := a.ProcessInterviewTurn(ctx, "user-1", chatID, "hi"); err != nil {
		t.Fatalf("first turn needs no generation: %v", err)
	}

	if _, err := a.ProcessInterviewTurn(ctx, "user-1", chatID, "answer"); !errors.Is(err, ErrLLMRetryFailed) {
		t.Fatalf("expected retry failure, got %v", err)
	}
	// The failed turn persisted the user message but no assistant reply.
	messages, _ := memStore.ListMessages("user-1", chatID, domain.StreamInterview)
	last := messages[len(messages)-1]
	if last.Role != "user" || last.Content != "answer" {
		t.Fatalf("last message = %+v", last)
	}
}

func TestAssistantTurnSeparateStream(t *testing.T) {
	gen := &fakeGenerator{queue: []string{"그건 이런 뜻이에요."}}
	a, memStore := newTestApp(t, gen)
	seedCurriculum(t, memStore, threeQuestionEntry(1, 1))

	chatID, _, err := a.CreateSession("user-1")
	if err != nil {
		t.Fatalf("create session: %v", err)
	}

	answer, err := a.ProcessAssistantTurn(context.Background(), "user-1", chatID, "이 책 어려워요")
	if err != nil {
		t.Fatalf("assistant turn: %v", err)
	}
	if answer != "그건 이런 뜻이에요." {
		t.Fatalf("answer = %q", answer)
	}

	// The interview stream stays untouched and the cursor did not move.
	interview, _ := memStore.ListMessages("user-1", chatID, domain.StreamInterview)
	if len(interview) != 0 {
		t.Fatalf("interview stream has %d messages, want 0", len(interview))
	}
	helper, _ := memStore.ListMessages("user-1", chatID, domain.StreamAssistant)
	if len(helper) != 2 {
		t.Fatalf("assistant stream has %d messages, want 2", len(helper))
	}
	session, _, _ := memStore.GetChatSession("user-1", chatID)
	if session.QuestionCursor == nil || *session.QuestionCursor != 0 {
		t.Fatalf("cursor = %v, want 0", session.QuestionCursor)
	}
}

func completeBookReport(t *testing.T, a *App, userID, chatID string) {
	t.Helper()
	if err := a.CreateBookReport(userID, chatID, "주제", "요약", "느낀점", "토론 후 느낀점"); err != nil {
		t.Fatalf("create book report: %v", err)
	}
}

func TestCreateFinalReportRequiresBookReport(t *testing.T) {
	gen := &fakeGenerator{}
	a, memStore := newTestApp(t, gen)
	seedCurriculum(t, memStore, threeQuestionEntry(1, 1))

	chatID, _, err := a.CreateSession("user-1")
	if err != nil {
		t.Fatalf("create session: %v", err)
	}
	if _, err := a.CreateFinalReport(context.Background(), "user-1", chatID); !errors.Is(err, ErrBookReportNotFound) {
		t.Fatalf("expected book report not found, got %v", err)
	}
	if gen.callCount() != 0 {
		t.Fatalf("generation calls = %d, want 0", gen.callCount())
	}
}

func TestCreateFinalReportPipeline(t *testing.T) {
	gen := &fakeGenerator{queue: []string{
		"줄거리 요약이에요.",
		"```json\n{\"summary_accuracy\": 4, \"expression\": 5, \"logical_thinking\": 3, \"manner\": 4, \"reason\": \"잘했어요.\"}\n```",
	}}
	a, memStore := newTestApp(t, gen)
	seedCurriculum(t, memStore, threeQuestionEntry(1, 1))

	chatID, _, err := a.CreateSession("user-1")
	if err != nil {
		t.Fatalf("create session: %v", err)
	}
	completeBookReport(t, a, "user-1", chatID)

	report, err := a.CreateFinalReport(context.Background(), "user-1", chatID)
	if err != nil {
		t.Fatalf("create final report: %v", err)
	}
	if report.Summary != "줄거리 요약이에요." {
		t.Fatalf("summary = %q", report.Summary)
	}
	want := domain.Scores{SummaryAccuracy: 4, Expression: 5, LogicalThinking: 3, Manner: 4}
	if report.Scores != want {
		t.Fatalf("scores = %+v, want %+v", report.Scores, want)
	}
	if report.Reason != "잘했어요." {
		t.Fatalf("reason = %q", report.Reason)
	}
	stored, ok, err := memStore.GetFinalReport("user-1", chatID)
	if err != nil || !ok {
		t.Fatalf("stored report: ok=%v err=%v", ok, err)
	}
	if stored.Scores != want {
		t.Fatalf("stored scores = %+v", stored.Scores)
	}
}

func TestCreateFinalReportRetriesBadEvaluation(t *testing.T) {
	gen := &fakeGenerator{queue: []string{
		"줄거리 요약이에요.",
		"no json at all",
		`{"summary_accuracy": 9, "expression": 1, "logical_thinking": 1, "manner": 1, "reason": "out of range"}`,
		`{"summary_accuracy": 5, "expression": 4, "logical_thinking": 4, "manner": 5, "reason": "좋아요."}`,
	}}
	a, memStore := newTestApp(t, gen)
	seedCurriculum(t, memStore, threeQuestionEntry(1, 1))

	chatID, _, err := a.CreateSession("user-1")
	if err != nil {
		t.Fatalf("create session: %v", err)
	}
	completeBookReport(t, a, "user-1", chatID)

	report, err := a.CreateFinalReport(context.Background(), "user-1", chatID)
	if err != nil {
		t.Fatalf("create final report: %v", err)
	}
	if report.Scores.SummaryAccuracy != 5 {
		t.Fatalf("scores = %+v", report.Scores)
	}
}

func TestCreateFinalReportExhaustsParseRetries(t *testing.T) {
	gen := &fakeGenerator{queue: []string{
		"줄거리 요약이에요.",
		"garbage", "garbage", "garbage",
	}}
	a, memStore := newTestApp(t, gen)
	seedCurriculum(t, memStore, threeQuestionEntry(1, 1))

	chatID, _, err := a.CreateSession("user-1")
	if err != nil {
		t.Fatalf("create session: %v", err)
	}
	completeBookReport(t, a, "user-1", chatID)

	if _, err := a.CreateFinalReport(context.Background(), "user-1", chatID); !errors.Is(err, ErrLLMRetryFailed) {
		t.Fatalf("expected retry failure, got %v", err)
	}
	if _, ok, _ := memStore.GetFinalReport("user-1", chatID); ok {
		t.Fatalf("no report should be stored after exhaustion")
	}
}

func TestSessionDetailModes(t *testing.T) {
	gen := &fakeGenerator{queue: []string{
		"줄거리 요약이에요.",
		`{"summary_accuracy": 4, "expression": 4, "logical_thinking": 4, "manner": 4, "reason": "이유"}`,
	}}
	a, memStore := newTestApp(t, gen)
	seedCurriculum(t, memStore, threeQuestionEntry(1, 1))

	chatID, _, err := a.CreateSession("user-1")
	if err != nil {
		t.Fatalf("create session: %v", err)
	}
	ctx := context.Background()
	if _, err := a.ProcessInterviewTurn(ctx, "user-1", chatID, "hi"); err != nil {
		t.Fatalf("turn: %v", err)
	}

	detail, err := a.SessionDetail("user-1", chatID, domain.DetailMessages)
	if err != nil {
		t.Fatalf("messages detail: %v", err)
	}
	messages, ok := detail.(SessionMessages)
	if !ok {
		t.Fatalf("detail type = %T", detail)
	}
	if len(messages.Messages) != 2 {
		t.Fatalf("messages = %d, want 2", len(messages.Messages))
	}

	if _, err := a.SessionDetail("user-1", chatID, domain.DetailBookReport); !errors.Is(err, ErrBookReportNotFound) {
		t.Fatalf("expected book report not found, got %v", err)
	}
	completeBookReport(t, a, "user-1", chatID)

	if _, err := a.SessionDetail("user-1", chatID, domain.DetailFinalReport); !errors.Is(err, ErrFinalReportNotFound) {
		t.Fatalf("expected final report not found, got %v", err)
	}
	if _, err := a.CreateFinalReport(ctx, "user-1", chatID); err != nil {
		t.Fatalf("create final report: %v", err)
	}

	detail, err = a.SessionDetail("user-1", chatID, domain.DetailFinalReport)
	if err != nil {
		t.Fatalf("final detail: %v", err)
	}
	final, ok := detail.(FinalReportDetail)
	if !ok {
		t.Fatalf("detail type = %T", detail)
	}
	if final.GoldSummary != "줄거리 요약이에요." || final.StudentSummary != "요약" {
		t.Fatalf("summaries = %q / %q", final.GoldSummary, final.StudentSummary)
	}
}

func TestListSessionsReportsFlags(t *testing.T) {
	gen := &fakeGenerator{}
	a, memStore := newTestApp(t, gen)
	seedCurriculum(t, memStore, threeQuestionEntry(1, 1), threeQuestionEntry(1, 2))

	first, _, err := a.CreateSession("user-1")
	if err != nil {
		t.Fatalf("create session: %v", err)
	}
	completeBookReport(t, a, "user-1", first)
	if _, _, err := a.CreateSession("user-1"); err != nil {
		t.Fatalf("create second session: %v", err)
	}

	summaries, err := a.ListSessions("user-1")
	if err != nil {
		t.Fatalf("list sessions: %v", err)
	}
	if len(summaries) != 2 {
		t.Fatalf("sessions = %d, want 2", len(summaries))
	}
	// Newest first.
	if summaries[1].ChatID != first {
		t.Fatalf("expected oldest session last")
	}
	if !summaries[1].HasBookReport || summaries[1].HasFinalReport {
		t.Fatalf("flags = %+v", summaries[1])
	}
	if summaries[0].HasBookReport {
		t.Fatalf("new session should have no book report")
	}
}
