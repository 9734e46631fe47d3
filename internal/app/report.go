package app

import (
	"context"
	"fmt"
	"strings"
	"time"

	"nexture/internal/util"
	"nexture/pkg/ai"
	"nexture/pkg/domain"
)

const summarySystemFormat = `다음은 '%s'라는 책의 정보입니다.
저자: %s
내용: %s`

const summaryUserPrompt = `이 책의 줄거리를 간단하게 2단락 이내로 요약해 주세요.
해요체로 작성하고, '단락'이라는 단어를 넣지 마세요.`

const evalSystemFormat = `당신은 청소년 교육 전문가입니다. 다음 내용에 기초하여 학생의 독서감상 능력에 대한 최종 평가를 내려주세요.
책 제목: %s
저자: %s
**출력물은 반드시 아래 JSON 형식으로 작성해 주세요.**
[출력 JSON 형식]
{ "summary_accuracy": 숫자, # 줄거리와 학생요약이 일치하는지(1~5점),
"expression": 숫자, # 표현력이나 문장 구성이 풍부한지, 자신의 감정을 잘 드러냈는지(1~5점)
"logical_thinking": 숫자, # 논리적 사고력을 가지고 있는지, 구조가 잘 잡혀있는지, 논리적 비약이 없는지(1~5점)
"manner": 숫자, # 독서 감상 대화에 성의를 가지고 임했는지, 말투가 적절했는지, 독서 감상문의 길이가 충분히 긴 지(1~5점)
"reason": "문자열" # 각 평가 항목에 대한 구체적인 피드백과 점수를 준 이유를 5~7 문장으로 설명, 말투는 비격식 존대(해요체)로 작성
}`

const evalUserFormat = `[입력정보]
줄거리: %s
학생 요약: %s
학생의 책을 읽고 느낀점: %s
학생의 토론 내용:
%s
학생의 토론 후 느낀점: %s`

// CreateBookReport stores the user-authored write-up for a session.
// Resubmitting overwrites the previous report.
func (a *App) CreateBookReport(userID, chatID, subject, summary, bookReview, debateReview string) error {
	if _, ok, err := a.store.GetChatSession(userID, chatID); err != nil {
		return fmt.Errorf("fetch session: %w", err)
	} else if !ok {
		return ErrChatNotFound
	}
	report := domain.BookReport{
		Subject:      subject,
		Summary:      summary,
		BookReview:   bookReview,
		DebateReview: debateReview,
		CreatedAt:    time.Now().UTC(),
	}
	if err := a.store.SaveBookReport(userID, chatID, report); err != nil {
		return fmt.Errorf("save book report: %w", err)
	}
	return nil
}

// evaluation is the structured object the evaluation call must return.
type evaluation struct {
	SummaryAccuracy int    `json:"summary_accuracy"`
	Expression      int    `json:"expression"`
	LogicalThinking int    `json:"logical_thinking"`
	Manner          int    `json:"manner"`
	Reason          string `json:"reason"`
}

func (e evaluation) valid() bool {
	for _, score := range []int{e.SummaryAccuracy, e.Expression, e.LogicalThinking, e.Manner} {
		if score < 1 || score > 5 {
			return false
		}
	}
	return true
}

// CreateFinalReport generates and persists the evaluation of a
// session's book report: one retried call for the reference summary,
// then up to the configured number of generate-and-parse attempts for
// the structured scores. The result overwrites any previous final
// report for the session.
func (a *App) CreateFinalReport(ctx context.Context, userID, chatID string) (domain.FinalReport, error) {
	session, entry, err := a.resolveSession(userID, chatID)
	if err != nil {
		return domain.FinalReport{}, err
	}
	bookReport, err := a.requireBookReport(userID, chatID)
	if err != nil {
		return domain.FinalReport{}, err
	}
	transcript, err := a.store.ListMessages(userID, session.ID, domain.StreamInterview)
	if err != nil {
		return domain.FinalReport{}, fmt.Errorf("load transcript: %w", err)
	}

	summary, err := a.gen.GenerateText(ctx,
		fmt.Sprintf(summarySystemFormat, entry.Title, entry.Author, entry.Contents),
		summaryUserPrompt,
	)
	if err != nil {
		return domain.FinalReport{}, fmt.Errorf("%w: %v", ErrLLMRetryFailed, err)
	}

	evalSystem := fmt.Sprintf(evalSystemFormat, entry.Title, entry.Author)
	evalUser := fmt.Sprintf(evalUserFormat,
		summary,
		bookReport.Summary,
		bookReport.BookReview,
		renderTranscript(transcript),
		bookReport.DebateReview,
	)

	var lastErr error
	for attempt := 0; attempt < a.retryCount; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return domain.FinalReport{}, ctx.Err()
			case <-time.After(a.retryDelay):
			}
		}

		raw, err := a.gen.GenerateText(ctx, evalSystem, evalUser)
		if err != nil {
			lastErr = err
			continue
		}
		var eval evaluation
		if err := ai.ExtractObject(raw, &eval); err != nil {
			lastErr = err
			continue
		}
		if !eval.valid() {
			lastErr = fmt.Errorf("evaluation scores out of range: %+v", eval)
			continue
		}

		report := domain.FinalReport{
			Title:   entry.Title,
			Author:  entry.Author,
			Subject: bookReport.Subject,
			Summary: summary,
			Scores: domain.Scores{
				SummaryAccuracy: eval.SummaryAccuracy,
				Expression:      eval.Expression,
				LogicalThinking: eval.LogicalThinking,
				Manner:          eval.Manner,
			},
			Reason:    eval.Reason,
			CreatedAt: time.Now().UTC(),
		}
		if err := a.store.SaveFinalReport(userID, chatID, report); err != nil {
			return domain.FinalReport{}, fmt.Errorf("save final report: %w", err)
		}
		return report, nil
	}
	util.LoggerFromContext(ctx).Warn("final report generation exhausted retries", "chat_id", chatID, "error", lastErr)
	return domain.FinalReport{}, fmt.Errorf("%w: %v", ErrLLMRetryFailed, lastErr)
}

// ListFinalReports returns all of the user's final reports, newest
// session first.
func (a *App) ListFinalReports(userID string) ([]domain.FinalReportSnapshot, error) {
	owned, err := a.store.ListFinalReports(userID, 0)
	if err != nil {
		return nil, fmt.Errorf("list final reports: %w", err)
	}
	return snapshotWindow(owned), nil
}

// ListBookReports returns all of the user's book reports, newest
// session first.
func (a *App) ListBookReports(userID string) ([]domain.BookReport, error) {
	reports, err := a.store.ListBookReports(userID)
	if err != nil {
		return nil, fmt.Errorf("list book reports: %w", err)
	}
	return reports, nil
}

func renderTranscript(messages []domain.Message) string {
	var b strings.Builder
	for _, msg := range messages {
		fmt.Fprintf(&b, "%s: %s\n", msg.Role, msg.Content)
	}
	return b.String()
}
