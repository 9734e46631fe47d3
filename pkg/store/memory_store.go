package store

import (
	"sort"
	"strings"
	"sync"

	"nexture/pkg/domain"
)

type curriculumKey struct {
	step  int
	index int
}

type chatKey struct {
	userID string
	chatID string
}

// MemoryStore is an in-memory Store used by tests and local runs.
type MemoryStore struct {
	mu sync.RWMutex

	users      map[string]domain.User // by ID
	loginIndex map[string]string      // loginID -> user ID

	curriculum map[curriculumKey]domain.CurriculumEntry

	sessions map[chatKey]domain.ChatSession
	messages map[chatKey]map[domain.Stream][]domain.Message

	bookReports  map[chatKey]domain.BookReport
	finalReports map[chatKey]domain.FinalReport
	aggregates   map[string]domain.AggregateReport
}

// NewMemoryStore returns an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		users:        make(map[string]domain.User),
		loginIndex:   make(map[string]string),
		curriculum:   make(map[curriculumKey]domain.CurriculumEntry),
		sessions:     make(map[chatKey]domain.ChatSession),
		messages:     make(map[chatKey]map[domain.Stream][]domain.Message),
		bookReports:  make(map[chatKey]domain.BookReport),
		finalReports: make(map[chatKey]domain.FinalReport),
		aggregates:   make(map[string]domain.AggregateReport),
	}
}

func (s *MemoryStore) SaveUser(u domain.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if old, ok := s.users[u.ID]; ok && old.LoginID != u.LoginID {
		delete(s.loginIndex, old.LoginID)
	}
	s.users[u.ID] = u
	s.loginIndex[u.LoginID] = u.ID
	return nil
}

func (s *MemoryStore) HasUserLoginID(loginID string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.loginIndex[loginID]
	return ok, nil
}

func (s *MemoryStore) GetUserByLoginID(loginID string) (domain.User, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.loginIndex[loginID]
	if !ok {
		return domain.User{}, false, nil
	}
	u, ok := s.users[id]
	return u, ok, nil
}

func (s *MemoryStore) GetUserByID(id string) (domain.User, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.users[id]
	return u, ok, nil
}

func (s *MemoryStore) SearchLoginIDs(prefix string, limit int) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var ids []string
	for loginID := range s.loginIndex {
		if strings.HasPrefix(loginID, prefix) {
			ids = append(ids, loginID)
		}
	}
	sort.Strings(ids)
	if limit > 0 && len(ids) > limit {
		ids = ids[:limit]
	}
	return ids, nil
}

func (s *MemoryStore) SaveCurriculumEntry(entry domain.CurriculumEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.curriculum[curriculumKey{entry.Step, entry.Index}] = entry
	return nil
}

func (s *MemoryStore) GetCurriculumEntry(step, index int) (domain.CurriculumEntry, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	entry, ok := s.curriculum[curriculumKey{step, index}]
	return entry, ok, nil
}

func (s *MemoryStore) HasCurriculumStep(step int) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for key := range s.curriculum {
		if key.step == step {
			return true, nil
		}
	}
	return false, nil
}

func (s *MemoryStore) ListCurriculum() ([]domain.CurriculumEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	entries := make([]domain.CurriculumEntry, 0, len(s.curriculum))
	for _, entry := range s.curriculum {
		entries = append(entries, entry)
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].Step != entries[j].Step {
			return entries[i].Step < entries[j].Step
		}
		return entries[i].Index < entries[j].Index
	})
	return entries, nil
}

func (s *MemoryStore) CreateChatSession(session domain.ChatSession) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[chatKey{session.UserID, session.ID}] = session
	return nil
}

func (s *MemoryStore) GetChatSession(userID, chatID string) (domain.ChatSession, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	session, ok := s.sessions[chatKey{userID, chatID}]
	return session, ok, nil
}

func (s *MemoryStore) LatestChatSession(userID string) (domain.ChatSession, bool, error) {
	sessions, err := s.ListChatSessions(userID)
	if err != nil || len(sessions) == 0 {
		return domain.ChatSession{}, false, err
	}
	return sessions[0], true, nil
}

func (s *MemoryStore) ListChatSessions(userID string) ([]domain.ChatSession, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var sessions []domain.ChatSession
	for key, session := range s.sessions {
		if key.userID == userID {
			sessions = append(sessions, session)
		}
	}
	sort.Slice(sessions, func(i, j int) bool {
		return sessions[i].CreatedAt.After(sessions[j].CreatedAt)
	})
	return sessions, nil
}

func (s *MemoryStore) SetQuestionCursor(userID, chatID string, cursor *int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := chatKey{userID, chatID}
	session, ok := s.sessions[key]
	if !ok {
		return ErrChatSessionNotFound
	}
	if cursor == nil {
		session.QuestionCursor = nil
	} else {
		v := *cursor
		session.QuestionCursor = &v
	}
	s.sessions[key] = session
	return nil
}

func (s *MemoryStore) AppendMessage(userID, chatID string, stream domain.Stream, msg domain.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := chatKey{userID, chatID}
	if s.messages[key] == nil {
		s.messages[key] = make(map[domain.Stream][]domain.Message)
	}
	s.messages[key][stream] = append(s.messages[key][stream], msg)
	return nil
}

func (s *MemoryStore) ListMessages(userID, chatID string, stream domain.Stream) ([]domain.Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	msgs := s.messages[chatKey{userID, chatID}][stream]
	out := make([]domain.Message, len(msgs))
	copy(out, msgs)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

func (s *MemoryStore) SaveBookReport(userID, chatID string, report domain.BookReport) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.bookReports[chatKey{userID, chatID}] = report
	return nil
}

func (s *MemoryStore) GetBookReport(userID, chatID string) (domain.BookReport, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	report, ok := s.bookReports[chatKey{userID, chatID}]
	return report, ok, nil
}

func (s *MemoryStore) HasBookReport(userID, chatID string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.bookReports[chatKey{userID, chatID}]
	return ok, nil
}

func (s *MemoryStore) SaveFinalReport(userID, chatID string, report domain.FinalReport) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.finalReports[chatKey{userID, chatID}] = report
	return nil
}

func (s *MemoryStore) GetFinalReport(userID, chatID string) (domain.FinalReport, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	report, ok := s.finalReports[chatKey{userID, chatID}]
	return report, ok, nil
}

func (s *MemoryStore) HasFinalReport(userID, chatID string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.finalReports[chatKey{userID, chatID}]
	return ok, nil
}

func (s *MemoryStore) ListFinalReports(userID string, limit int) ([]OwnedFinalReport, error) {
	sessions, err := s.ListChatSessions(userID)
	if err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	var reports []OwnedFinalReport
	for _, session := range sessions {
		report, ok := s.finalReports[chatKey{userID, session.ID}]
		if !ok {
			continue
		}
		reports = append(reports, OwnedFinalReport{ChatID: session.ID, Report: report})
		if limit > 0 && len(reports) == limit {
			break
		}
	}
	return reports, nil
}

func (s *MemoryStore) ListBookReports(userID string) ([]domain.BookReport, error) {
	sessions, err := s.ListChatSessions(userID)
	if err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	var reports []domain.BookReport
	for _, session := range sessions {
		if report, ok := s.bookReports[chatKey{userID, session.ID}]; ok {
			reports = append(reports, report)
		}
	}
	return reports, nil
}

func (s *MemoryStore) SaveAggregateReport(userID string, report domain.AggregateReport) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.aggregates[userID] = report
	return nil
}

func (s *MemoryStore) GetAggregateReport(userID string) (domain.AggregateReport, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	report, ok := s.aggregates[userID]
	return report, ok, nil
}
