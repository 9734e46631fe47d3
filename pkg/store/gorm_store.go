package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"gorm.io/datatypes"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	gormlogger "gorm.io/gorm/logger"

	"nexture/pkg/domain"
)

const migrateLockID int64 = 52105210

// GormStore implements Store using GORM + Postgres.
type GormStore struct {
	db *gorm.DB
}

// NewGormStore opens the DB and runs auto-migrations.
func NewGormStore(dsn string) (*GormStore, error) {
	gormLog := gormlogger.New(
		log.New(os.Stdout, "\r\n", log.LstdFlags),
		gormlogger.Config{
			SlowThreshold:             time.Second,
			LogLevel:                  gormlogger.Warn,
			IgnoreRecordNotFoundError: true,
			Colorful:                  false,
		},
	)
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{Logger: gormLog})
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	if err := withMigrationLock(db, func(tx *gorm.DB) error {
		if err := tx.AutoMigrate(
			&UserModel{},
			&CurriculumEntryModel{},
			&ChatSessionModel{},
			&MessageModel{},
			&BookReportModel{},
			&FinalReportModel{},
			&AggregateReportModel{},
		); err != nil {
			return fmt.Errorf("auto migrate: %w", err)
		}
		return nil
	}); err != nil {
		return nil, err
	}
	return &GormStore{db: db}, nil
}

func withMigrationLock(db *gorm.DB, fn func(*gorm.DB) error) error {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("get sql db: %w", err)
	}
	conn, err := sqlDB.Conn(ctx)
	if err != nil {
		return fmt.Errorf("open sql conn: %w", err)
	}
	defer conn.Close()
	if err := execAdvisory(ctx, conn, "SELECT pg_advisory_lock($1)", migrateLockID); err != nil {
		return fmt.Errorf("acquire migrate lock: %w", err)
	}
	defer func() {
		_ = execAdvisory(ctx, conn, "SELECT pg_advisory_unlock($1)", migrateLockID)
	}()
	return fn(db)
}

func execAdvisory(ctx context.Context, conn *sql.Conn, query string, lockID int64) error {
	_, err := conn.ExecContext(ctx, query, lockID)
	return err
}

// SaveUser registers or updates a user.
func (s *GormStore) SaveUser(u domain.User) error {
	model := userToModel(u)
	return s.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{"login_id", "name", "password_hash"}),
	}).Create(&model).Error
}

// HasUserLoginID checks if a login ID is taken.
func (s *GormStore) HasUserLoginID(loginID string) (bool, error) {
	var count int64
	if err := s.db.Model(&UserModel{}).Where("login_id = ?", loginID).Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// GetUserByLoginID looks up a user by login ID.
func (s *GormStore) GetUserByLoginID(loginID string) (domain.User, bool, error) {
	var model UserModel
	if err := s.db.Where("login_id = ?", loginID).First(&model).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return domain.User{}, false, nil
		}
		return domain.User{}, false, err
	}
	return userFromModel(model), true, nil
}

// SearchLoginIDs returns login IDs starting with prefix, ascending, capped at limit.
func (s *GormStore) SearchLoginIDs(prefix string, limit int) ([]string, error) {
	var ids []string
	q := s.db.Model(&UserModel{}).
		Where("login_id LIKE ?", escapeLike(prefix)+"%").
		Order("login_id ASC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Pluck("login_id", &ids).Error; err != nil {
		return nil, err
	}
	return ids, nil
}

func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}

// GetUserByID returns a user by ID.
func (s *GormStore) GetUserByID(id string) (domain.User, bool, error) {
	var model UserModel
	if err := s.db.First(&model, "id = ?", id).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return domain.User{}, false, nil
		}
		return domain.User{}, false, err
	}
	return userFromModel(model), true, nil
}

// SaveCurriculumEntry upserts one curriculum entry (seeding only).
func (s *GormStore) SaveCurriculumEntry(entry domain.CurriculumEntry) error {
	model := curriculumToModel(entry)
	return s.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "step"}, {Name: "idx"}},
		DoUpdates: clause.AssignmentColumns([]string{"title", "author", "contents", "questions"}),
	}).Create(&model).Error
}

// GetCurriculumEntry retrieves the entry at (step, index).
func (s *GormStore) GetCurriculumEntry(step, index int) (domain.CurriculumEntry, bool, error) {
	var model CurriculumEntryModel
	if err := s.db.Where("step = ? AND idx = ?", step, index).First(&model).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return domain.CurriculumEntry{}, false, nil
		}
		return domain.CurriculumEntry{}, false, err
	}
	return curriculumFromModel(model), true, nil
}

// HasCurriculumStep checks whether a step contains any entries.
func (s *GormStore) HasCurriculumStep(step int) (bool, error) {
	var count int64
	if err := s.db.Model(&CurriculumEntryModel{}).Where("step = ?", step).Limit(1).Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// ListCurriculum returns the whole catalog ordered by step then index.
func (s *GormStore) ListCurriculum() ([]domain.CurriculumEntry, error) {
	var models []CurriculumEntryModel
	if err := s.db.Order("step ASC").Order("idx ASC").Find(&models).Error; err != nil {
		return nil, err
	}
	entries := make([]domain.CurriculumEntry, 0, len(models))
	for _, m := range models {
		entries = append(entries, curriculumFromModel(m))
	}
	return entries, nil
}

// CreateChatSession creates a new chat session record.
func (s *GormStore) CreateChatSession(session domain.ChatSession) error {
	model := sessionToModel(session)
	return s.db.Create(&model).Error
}

// GetChatSession returns one session owned by the user.
func (s *GormStore) GetChatSession(userID, chatID string) (domain.ChatSession, bool, error) {
	var model ChatSessionModel
	if err := s.db.Where("user_id = ? AND id = ?", userID, chatID).First(&model).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return domain.ChatSession{}, false, nil
		}
		return domain.ChatSession{}, false, err
	}
	return sessionFromModel(model), true, nil
}

// LatestChatSession returns the most recently created session of a user.
func (s *GormStore) LatestChatSession(userID string) (domain.ChatSession, bool, error) {
	var model ChatSessionModel
	err := s.db.Where("user_id = ?", userID).
		Order("created_at DESC").
		First(&model).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return domain.ChatSession{}, false, nil
		}
		return domain.ChatSession{}, false, err
	}
	return sessionFromModel(model), true, nil
}

// ListChatSessions returns all sessions of a user, newest first.
func (s *GormStore) ListChatSessions(userID string) ([]domain.ChatSession, error) {
	var models []ChatSessionModel
	if err := s.db.Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&models).Error; err != nil {
		return nil, err
	}
	sessions := make([]domain.ChatSession, 0, len(models))
	for _, m := range models {
		sessions = append(sessions, sessionFromModel(m))
	}
	return sessions, nil
}

// SetQuestionCursor overwrites the interview cursor (nil = terminal).
func (s *GormStore) SetQuestionCursor(userID, chatID string, cursor *int) error {
	res := s.db.Model(&ChatSessionModel{}).
		Where("user_id = ? AND id = ?", userID, chatID).
		Update("question_cursor", cursor)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrChatSessionNotFound
	}
	return nil
}

// AppendMessage records a message on one of the session's streams.
func (s *GormStore) AppendMessage(userID, chatID string, stream domain.Stream, msg domain.Message) error {
	model := MessageModel{
		ID:        msg.ID,
		ChatID:    chatID,
		UserID:    userID,
		Stream:    string(stream),
		Role:      msg.Role,
		Content:   msg.Content,
		CreatedAt: msg.CreatedAt,
	}
	return s.db.Create(&model).Error
}

// ListMessages returns a stream's messages in chronological order.
func (s *GormStore) ListMessages(userID, chatID string, stream domain.Stream) ([]domain.Message, error) {
	var models []MessageModel
	if err := s.db.Where("user_id = ? AND chat_id = ? AND stream = ?", userID, chatID, string(stream)).
		Order("created_at ASC").
		Find(&models).Error; err != nil {
		return nil, err
	}
	msgs := make([]domain.Message, 0, len(models))
	for _, m := range models {
		msgs = append(msgs, domain.Message{
			ID:        m.ID,
			Role:      m.Role,
			Content:   m.Content,
			CreatedAt: m.CreatedAt,
		})
	}
	return msgs, nil
}

// SaveBookReport overwrites the session's book report.
func (s *GormStore) SaveBookReport(userID, chatID string, report domain.BookReport) error {
	model := BookReportModel{
		ChatID:       chatID,
		UserID:       userID,
		Subject:      report.Subject,
		Summary:      report.Summary,
		BookReview:   report.BookReview,
		DebateReview: report.DebateReview,
		CreatedAt:    report.CreatedAt,
	}
	return s.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "chat_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"subject", "summary", "book_review", "debate_review", "created_at"}),
	}).Create(&model).Error
}

// GetBookReport returns the session's book report.
func (s *GormStore) GetBookReport(userID, chatID string) (domain.BookReport, bool, error) {
	var model BookReportModel
	if err := s.db.Where("user_id = ? AND chat_id = ?", userID, chatID).First(&model).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return domain.BookReport{}, false, nil
		}
		return domain.BookReport{}, false, err
	}
	return bookReportFromModel(model), true, nil
}

// HasBookReport checks book report existence via a bounded count.
func (s *GormStore) HasBookReport(userID, chatID string) (bool, error) {
	var count int64
	if err := s.db.Model(&BookReportModel{}).
		Where("user_id = ? AND chat_id = ?", userID, chatID).
		Limit(1).Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// SaveFinalReport overwrites the session's final report.
func (s *GormStore) SaveFinalReport(userID, chatID string, report domain.FinalReport) error {
	model := finalReportToModel(userID, chatID, report)
	return s.db.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "chat_id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"title", "author", "subject", "summary",
			"summary_accuracy", "expression", "logical_thinking", "manner",
			"reason", "created_at",
		}),
	}).Create(&model).Error
}

// GetFinalReport returns the session's final report.
func (s *GormStore) GetFinalReport(userID, chatID string) (domain.FinalReport, bool, error) {
	var model FinalReportModel
	if err := s.db.Where("user_id = ? AND chat_id = ?", userID, chatID).First(&model).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return domain.FinalReport{}, false, nil
		}
		return domain.FinalReport{}, false, err
	}
	return finalReportFromModel(model), true, nil
}

// HasFinalReport checks final report existence via a bounded count.
func (s *GormStore) HasFinalReport(userID, chatID string) (bool, error) {
	var count int64
	if err := s.db.Model(&FinalReportModel{}).
		Where("user_id = ? AND chat_id = ?", userID, chatID).
		Limit(1).Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// ListFinalReports returns final reports ordered by the owning
// session's creation time, newest first.
func (s *GormStore) ListFinalReports(userID string, limit int) ([]OwnedFinalReport, error) {
	query := s.db.Model(&FinalReportModel{}).
		Joins("JOIN chat_session_models ON chat_session_models.id = final_report_models.chat_id").
		Where("final_report_models.user_id = ?", userID).
		Order("chat_session_models.created_at DESC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	var models []FinalReportModel
	if err := query.Find(&models).Error; err != nil {
		return nil, err
	}
	reports := make([]OwnedFinalReport, 0, len(models))
	for _, m := range models {
		reports = append(reports, OwnedFinalReport{
			ChatID: m.ChatID,
			Report: finalReportFromModel(m),
		})
	}
	return reports, nil
}

// ListBookReports returns book reports ordered by the owning session's
// creation time, newest first.
func (s *GormStore) ListBookReports(userID string) ([]domain.BookReport, error) {
	var models []BookReportModel
	if err := s.db.Model(&BookReportModel{}).
		Joins("JOIN chat_session_models ON chat_session_models.id = book_report_models.chat_id").
		Where("book_report_models.user_id = ?", userID).
		Order("chat_session_models.created_at DESC").
		Find(&models).Error; err != nil {
		return nil, err
	}
	reports := make([]domain.BookReport, 0, len(models))
	for _, m := range models {
		reports = append(reports, bookReportFromModel(m))
	}
	return reports, nil
}

// SaveAggregateReport overwrites the user's aggregate report.
func (s *GormStore) SaveAggregateReport(userID string, report domain.AggregateReport) error {
	rawReports, err := json.Marshal(report.Reports)
	if err != nil {
		return fmt.Errorf("marshal snapshots: %w", err)
	}
	model := AggregateReportModel{
		UserID:    userID,
		Pros:      report.Pros,
		Cons:      report.Cons,
		Reports:   datatypes.JSON(rawReports),
		CreatedAt: report.CreatedAt,
	}
	return s.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"pros", "cons", "reports", "created_at"}),
	}).Create(&model).Error
}

// GetAggregateReport returns the user's aggregate report.
func (s *GormStore) GetAggregateReport(userID string) (domain.AggregateReport, bool, error) {
	var model AggregateReportModel
	if err := s.db.First(&model, "user_id = ?", userID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return domain.AggregateReport{}, false, nil
		}
		return domain.AggregateReport{}, false, err
	}
	var snapshots []domain.FinalReportSnapshot
	if len(model.Reports) > 0 {
		if err := json.Unmarshal(model.Reports, &snapshots); err != nil {
			return domain.AggregateReport{}, false, fmt.Errorf("unmarshal snapshots: %w", err)
		}
	}
	return domain.AggregateReport{
		Pros:      model.Pros,
		Cons:      model.Cons,
		Reports:   snapshots,
		CreatedAt: model.CreatedAt,
	}, true, nil
}

func userToModel(u domain.User) UserModel {
	return UserModel{
		ID:           u.ID,
		LoginID:      u.LoginID,
		Name:         u.Name,
		PasswordHash: u.PasswordHash,
		CreatedAt:    u.CreatedAt,
	}
}

func userFromModel(m UserModel) domain.User {
	return domain.User{
		ID:           m.ID,
		LoginID:      m.LoginID,
		Name:         m.Name,
		PasswordHash: m.PasswordHash,
		CreatedAt:    m.CreatedAt,
	}
}

func curriculumToModel(entry domain.CurriculumEntry) CurriculumEntryModel {
	questions, _ := json.Marshal(entry.Questions)
	return CurriculumEntryModel{
		Step:      entry.Step,
		Index:     entry.Index,
		Title:     entry.Title,
		Author:    entry.Author,
		Contents:  entry.Contents,
		Questions: datatypes.JSON(questions),
	}
}

func curriculumFromModel(m CurriculumEntryModel) domain.CurriculumEntry {
	var questions []string
	if len(m.Questions) > 0 {
		_ = json.Unmarshal(m.Questions, &questions)
	}
	return domain.CurriculumEntry{
		Step:      m.Step,
		Index:     m.Index,
		Title:     m.Title,
		Author:    m.Author,
		Contents:  m.Contents,
		Questions: questions,
	}
}

func sessionToModel(s domain.ChatSession) ChatSessionModel {
	return ChatSessionModel{
		ID:             s.ID,
		UserID:         s.UserID,
		Title:          s.Title,
		CreatedAt:      s.CreatedAt,
		CurrentStep:    s.CurrentStep,
		CurrentIndex:   s.CurrentIndex,
		QuestionCursor: s.QuestionCursor,
	}
}

func sessionFromModel(m ChatSessionModel) domain.ChatSession {
	return domain.ChatSession{
		ID:             m.ID,
		UserID:         m.UserID,
		Title:          m.Title,
		CreatedAt:      m.CreatedAt,
		CurrentStep:    m.CurrentStep,
		CurrentIndex:   m.CurrentIndex,
		QuestionCursor: m.QuestionCursor,
	}
}

func bookReportFromModel(m BookReportModel) domain.BookReport {
	return domain.BookReport{
		Subject:      m.Subject,
		Summary:      m.Summary,
		BookReview:   m.BookReview,
		DebateReview: m.DebateReview,
		CreatedAt:    m.CreatedAt,
	}
}

func finalReportToModel(userID, chatID string, r domain.FinalReport) FinalReportModel {
	return FinalReportModel{
		ChatID:          chatID,
		UserID:          userID,
		Title:           r.Title,
		Author:          r.Author,
		Subject:         r.Subject,
		Summary:         r.Summary,
		SummaryAccuracy: r.Scores.SummaryAccuracy,
		Expression:      r.Scores.Expression,
		LogicalThinking: r.Scores.LogicalThinking,
		Manner:          r.Scores.Manner,
		Reason:          r.Reason,
		CreatedAt:       r.CreatedAt,
	}
}

func finalReportFromModel(m FinalReportModel) domain.FinalReport {
	return domain.FinalReport{
		Title:   m.Title,
		Author:  m.Author,
		Subject: m.Subject,
		Summary: m.Summary,
		Scores: domain.Scores{
			SummaryAccuracy: m.SummaryAccuracy,
			Expression:      m.Expression,
			LogicalThinking: m.LogicalThinking,
			Manner:          m.Manner,
		},
		Reason:    m.Reason,
		CreatedAt: m.CreatedAt,
	}
}
