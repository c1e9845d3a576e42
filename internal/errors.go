package internal

import (
	"errors"
	"fmt"
	"net/http"
)

// StorageError represents errors accessing local history or cache files
type StorageError struct {
	Path string
	Op   string // "open", "read", "write", "migrate"
	Err  error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage error: %s %s: %v", e.Op, e.Path, e.Err)
}

func (e *StorageError) Unwrap() error {
	return e.Err
}

// ExportError represents errors during export
type ExportError struct {
	Format string
	Path   string
	Err    error
}

func (e *ExportError) Error() string {
	return fmt.Sprintf("export error [%s] %s: %v", e.Format, e.Path, e.Err)
}

func (e *ExportError) Unwrap() error {
	return e.Err
}

// APIError is returned when the backend answers with a non-2xx status
type APIError struct {
	Op         string
	Endpoint   string
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api error [%s] %s: HTTP %d %s", e.Op, e.Endpoint, e.StatusCode, http.StatusText(e.StatusCode))
}

// NetworkError is returned when the backend could not be reached
type NetworkError struct {
	Op       string
	Endpoint string
	Err      error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("network error [%s] %s: %v", e.Op, e.Endpoint, e.Err)
}

func (e *NetworkError) Unwrap() error {
	return e.Err
}

// DecodeError is returned when a response body cannot be parsed
type DecodeError struct {
	Op  string
	Err error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decode error [%s]: %v", e.Op, e.Err)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

// ValidationError is returned before any I/O when input is unusable
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// AuthRequiredError is returned by the guard when no usable session exists
type AuthRequiredError struct {
	Reason string
}

func (e *AuthRequiredError) Error() string {
	if e.Reason == "" {
		return "not authenticated, please login first (dlogic login)"
	}
	return fmt.Sprintf("not authenticated (%s), please login first (dlogic login)", e.Reason)
}

// UserMessage converts an error into text suitable for display as an
// assistant message. Only a nil error yields an empty string.
func UserMessage(err error) string {
	if err == nil {
		return ""
	}

	var netErr *NetworkError
	if errors.As(err, &netErr) {
		if isConnectFailure(netErr.Err) {
			return "バックエンドサーバーに接続できません。サーバーが起動しているか確認してください。"
		}
		return "ネットワークエラーが発生しました。インターネット接続を確認してください。"
	}

	var apiErr *APIError
	if errors.As(err, &apiErr) {
		switch apiErr.StatusCode {
		case http.StatusNotFound:
			return "APIエンドポイントが見つかりません。"
		case http.StatusInternalServerError:
			return "サーバー内部エラーが発生しました。"
		}
	}

	var authErr *AuthRequiredError
	if errors.As(err, &authErr) {
		return "ログインが必要です。dlogic login を実行してください。"
	}

	msg := err.Error()
	if msg == "" {
		msg = "不明なエラー"
	}
	return "エラーが発生しました: " + msg
}
