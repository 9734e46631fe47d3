package app

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"nexture/pkg/ai"
	"nexture/pkg/domain"
	"nexture/pkg/store"
)

// aggregateWindowSize caps how many recent final reports feed the
// aggregate report.
const aggregateWindowSize = 4

const aggregateSystemPrompt = `당신은 청소년 독서 교육 전문가입니다. 아래는 학생의 최근 독서 평가 기록입니다. 기록 전체를 보고 학생의 강점과 보완할 점을 정리해주세요.
**출력물은 반드시 아래 JSON 형식으로 작성해 주세요.**
[출력 JSON 형식]
{ "pros": "문자열", # 학생의 강점을 3~5 문장으로 설명, 말투는 비격식 존대(해요체)로 작성
"cons": "문자열" # 학생이 보완하면 좋을 점을 3~5 문장으로 설명, 말투는 비격식 존대(해요체)로 작성
}`

// CreateAggregateReport rolls the user's most recent final reports up
// into a pros/cons summary. The stored report is returned untouched
// when the report window has not changed since it was generated, so
// repeated calls cost no generation.
func (a *App) CreateAggregateReport(ctx context.Context, userID string) (domain.AggregateReport, error) {
	owned, err := a.store.ListFinalReports(userID, aggregateWindowSize)
	if err != nil {
		return domain.AggregateReport{}, fmt.Errorf("list final reports: %w", err)
	}
	if len(owned) == 0 {
		return domain.AggregateReport{}, ErrFinalReportNotFound
	}
	window := snapshotWindow(owned)

	stored, ok, err := a.store.GetAggregateReport(userID)
	if err != nil {
		return domain.AggregateReport{}, fmt.Errorf("load aggregate report: %w", err)
	}
	if ok && sameWindow(stored.Reports, window) {
		return stored, nil
	}

	raw, err := a.gen.GenerateText(ctx, aggregateSystemPrompt, renderWindow(window))
	if err != nil {
		return domain.AggregateReport{}, fmt.Errorf("%w: %v", ErrLLMRetryFailed, err)
	}
	var parsed struct {
		Pros string `json:"pros"`
		Cons string `json:"cons"`
	}
	if err := ai.ExtractObject(raw, &parsed); err != nil {
		return domain.AggregateReport{}, fmt.Errorf("%w: %v", ErrLLMRetryFailed, err)
	}

	report := domain.AggregateReport{
		Pros:      parsed.Pros,
		Cons:      parsed.Cons,
		Reports:   window,
		CreatedAt: time.Now().UTC(),
	}
	if err := a.store.SaveAggregateReport(userID, report); err != nil {
		return domain.AggregateReport{}, fmt.Errorf("save aggregate report: %w", err)
	}
	return report, nil
}

// AggregateReport returns the stored aggregate report without
// regenerating it.
func (a *App) AggregateReport(userID string) (domain.AggregateReport, error) {
	report, ok, err := a.store.GetAggregateReport(userID)
	if err != nil {
		return domain.AggregateReport{}, fmt.Errorf("load aggregate report: %w", err)
	}
	if !ok {
		return domain.AggregateReport{}, ErrFinalReportNotFound
	}
	return report, nil
}

// snapshotWindow converts final reports into their canonical snapshot
// form: fixed field order and string timestamps, so equality of two
// windows is equality of their serializations.
func snapshotWindow(owned []store.OwnedFinalReport) []domain.FinalReportSnapshot {
	window := make([]domain.FinalReportSnapshot, 0, len(owned))
	for _, item := range owned {
		window = append(window, domain.FinalReportSnapshot{
			ChatID:    item.ChatID,
			Title:     item.Report.Title,
			Author:    item.Report.Author,
			Scores:    item.Report.Scores,
			Reason:    item.Report.Reason,
			CreatedAt: item.Report.CreatedAt.UTC().Format(time.RFC3339Nano),
		})
	}
	return window
}

func sameWindow(a, b []domain.FinalReportSnapshot) bool {
	rawA, errA := json.Marshal(a)
	rawB, errB := json.Marshal(b)
	if errA != nil || errB != nil {
		return false
	}
	return bytes.Equal(rawA, rawB)
}

// renderWindow turns the snapshot window into the compact text block
// the aggregate prompt consumes.
func renderWindow(window []domain.FinalReportSnapshot) string {
	var b strings.Builder
	for i, snapshot := range window {
		fmt.Fprintf(&b, "%d. '%s' (%s)\n", i+1, snapshot.Title, snapshot.Author)
		fmt.Fprintf(&b, "줄거리 정확도: %d, 표현력: %d, 논리적 사고력: %d, 태도: %d\n",
			snapshot.Scores.SummaryAccuracy,
			snapshot.Scores.Expression,
			snapshot.Scores.LogicalThinking,
			snapshot.Scores.Manner,
		)
		fmt.Fprintf(&b, "평가 근거: %s\n\n", snapshot.Reason)
	}
	return b.String()
}
