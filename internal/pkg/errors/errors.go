package errors

import (
	"errors"
	"fmt"
)

// 預定義錯誤類型
var (
	// 版本源相關
	ErrVersionNotFound   = errors.New("local version not found")
	ErrNetworkFailed     = errors.New("release feed unreachable")
	ErrRateLimited       = errors.New("release feed rate limited")
	ErrMalformedResponse = errors.New("release feed response malformed")

	// 更新流程相關
	ErrUpdateInProgress   = errors.New("update already in progress")
	ErrNoUpdateAvailable  = errors.New("no update available")
	ErrProcessFailed      = errors.New("external process failed")
	ErrRestartUnavailable = errors.New("process manager restart unavailable")

	// 調度相關
	ErrScheduleActive = errors.New("update schedule already active")

	// 配置相關
	ErrConfigInvalid     = errors.New("configuration is invalid")
	ErrConfigParseFailed = errors.New("failed to parse configuration")
)

// Error 自定義錯誤類型
type Error struct {
	Code    string
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// New 創建新錯誤
func New(code, message string) error {
	return &Error{
		Code:    code,
		Message: message,
	}
}

// Wrap 包裝錯誤
func Wrap(err error, code, message string) error {
	return &Error{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// Is 轉發到標準庫，方便調用方統一導入本包
func Is(err, target error) bool {
	return errors.Is(err, target)
}
