package app

import (
	"context"
	"fmt"
	"strings"
	"time"

	"nexture/internal/util"
	"nexture/pkg/domain"
)

// completionMessage closes the interview after the last scripted question.
const completionMessage = "오늘 질문은 모두 끝났어요. 이제 감상문을 작성해볼까요?"

const empathyPromptFormat = `사용자가 이렇게 말했어요:
"%s"
너무 길지 않게, 따뜻하고 자연스럽게 공감해주세요. 해요(~요, 비격식 존대)체를 써서 대답해주세요.`

// ProcessInterviewTurn runs one turn of the scripted interview. The
// user message is persisted before anything else, so it survives even
// when the turn fails later. Turn output depends on the cursor: the
// first turn returns the first question verbatim with no generation
// call; later turns return a generated acknowledgment plus either the
// next question or the fixed completion message.
func (a *App) ProcessInterviewTurn(ctx context.Context, userID, chatID, userMessage string) (string, error) {
	if err := a.appendMessage(userID, chatID, domain.StreamInterview, "user", userMessage); err != nil {
		return "", fmt.Errorf("persist user message: %w", err)
	}

	session, entry, err := a.resolveSession(userID, chatID)
	if err != nil {
		return "", err
	}
	if session.InterviewDone() {
		return "", ErrInvalidChatState
	}
	cursor := *session.QuestionCursor
	questions := entry.Questions

	// First turn: the opening question is scripted, not generated.
	if cursor == 0 {
		if len(questions) == 0 {
			return "", ErrCurriculumNotFound
		}
		next := 1
		if err := a.store.SetQuestionCursor(userID, chatID, &next); err != nil {
			return "", fmt.Errorf("update cursor: %w", err)
		}
		firstQuestion := questions[0]
		if err := a.appendMessage(userID, chatID, domain.StreamInterview, "assistant", firstQuestion); err != nil {
			return "", fmt.Errorf("persist question: %w", err)
		}
		return firstQuestion, nil
	}

	ack, err := a.gen.GenerateText(ctx, "", fmt.Sprintf(empathyPromptFormat, userMessage))
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrLLMRetryFailed, err)
	}
	if err := a.appendMessage(userID, chatID, domain.StreamInterview, "assistant", ack); err != nil {
		return "", fmt.Errorf("persist acknowledgment: %w", err)
	}

	if cursor+1 < len(questions) {
		nextQuestion := questions[cursor+1]
		next := cursor + 1
		if err := a.store.SetQuestionCursor(userID, chatID, &next); err != nil {
			return "", fmt.Errorf("update cursor: %w", err)
		}
		if err := a.appendMessage(userID, chatID, domain.StreamInterview, "assistant", nextQuestion); err != nil {
			return "", fmt.Errorf("persist question: %w", err)
		}
		return ack + "\n\n" + nextQuestion, nil
	}

	// Last question consumed: close the interview.
	if err := a.appendMessage(userID, chatID, domain.StreamInterview, "assistant", completionMessage); err != nil {
		return "", fmt.Errorf("persist completion message: %w", err)
	}
	if err := a.store.SetQuestionCursor(userID, chatID, nil); err != nil {
		return "", fmt.Errorf("update cursor: %w", err)
	}
	return ack + "\n\n" + completionMessage, nil
}

// ProcessAssistantTurn answers a free-form question about the book on
// the assistant-help stream. It never touches the interview cursor.
func (a *App) ProcessAssistantTurn(ctx context.Context, userID, chatID, userMessage string) (string, error) {
	if err := a.appendMessage(userID, chatID, domain.StreamAssistant, "user", userMessage); err != nil {
		return "", fmt.Errorf("persist user message: %w", err)
	}

	session, entry, err := a.resolveSession(userID, chatID)
	if err != nil {
		return "", err
	}
	if session.InterviewDone() {
		return "", ErrInvalidChatState
	}

	history, err := a.store.ListMessages(userID, chatID, domain.StreamAssistant)
	if err != nil {
		return "", fmt.Errorf("load assistant messages: %w", err)
	}

	answer, err := a.gen.GenerateText(ctx, "", assistantPrompt(entry.Contents, history, userMessage))
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrLLMRetryFailed, err)
	}
	if err := a.appendMessage(userID, chatID, domain.StreamAssistant, "assistant", answer); err != nil {
		return "", fmt.Errorf("persist answer: %w", err)
	}
	return answer, nil
}

// assistantPrompt builds the help prompt from the book contents, the
// two messages preceding the current question, and the question itself.
func assistantPrompt(contents string, history []domain.Message, userMessage string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "책 내용:\n%s\n\n", contents)
	if len(history) > 2 {
		recent := history[len(history)-3 : len(history)-1]
		b.WriteString("이전 대화 내용:\n")
		for _, msg := range recent {
			fmt.Fprintf(&b, "%s: %s\n", msg.Role, msg.Content)
		}
		b.WriteString("\n")
	}
	fmt.Fprintf(&b, "사용자가 이렇게 물어봤어요:\n\"%s\"\n", userMessage)
	b.WriteString("너무 길지 않게, 따뜻하고 자연스럽게 답변해주세요. 해요(~요, 비격식 존대)체를 써서 대답해주세요.")
	return b.String()
}

func (a *App) appendMessage(userID, chatID string, stream domain.Stream, role, content string) error {
	return a.store.AppendMessage(userID, chatID, stream, domain.Message{
		ID:        util.NewID(),
		Role:      role,
		Content:   content,
		CreatedAt: time.Now().UTC(),
	})
}
