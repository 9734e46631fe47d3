package app

import "errors"

var (
	// ErrInvalidCredentials is returned when the supplied credentials do not match.
	// The message is safe to show to end users and does not enable account enumeration.
	ErrInvalidCredentials = errors.New("아이디 또는 비밀번호가 올바르지 않습니다")

	ErrLoginAndPasswordRequired = errors.New("login id and password required")
	ErrSearchPrefixRequired     = errors.New("search prefix required")
	ErrLoginIDTaken             = errors.New("이미 존재하는 사용자 ID입니다")
	ErrUserNotFound             = errors.New("user not found")

	// ErrChatNotFound covers both a missing session and a session owned
	// by a different user; the two are indistinguishable to callers.
	ErrChatNotFound       = errors.New("chat not found")
	ErrCurriculumNotFound = errors.New("curriculum entry not found")

	// ErrInvalidChatState is returned when an interview turn is requested
	// on a session whose interview already reached its terminal state.
	ErrInvalidChatState = errors.New("interview is finished or the session is corrupted")

	ErrBookReportNotFound  = errors.New("book report not found")
	ErrFinalReportNotFound = errors.New("final report not found")

	// ErrLLMRetryFailed is returned when every generation attempt for an
	// operation failed or came back empty.
	ErrLLMRetryFailed = errors.New("LLM 호출이 3회 모두 실패했습니다")
)
