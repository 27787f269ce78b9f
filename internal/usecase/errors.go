package usecase

import (
	"errors"
	"fmt"
	"time"
)

type HTTPError struct {
	Status  int
	Message string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("%d: %s", e.Status, e.Message)
}

func NewHTTPError(status int, message string) error {
	return &HTTPError{
		Status:  status,
		Message: message,
	}
}

func AsHTTPError(err error) (*HTTPError, bool) {
	var he *HTTPError
	ok := errors.As(err, &he)
	return he, ok
}

// orderId採番の約束（mainでuuid実装を注入する）
type IDGenerator interface {
	NewID() string
}

// 現在時刻の約束
type Clock interface {
	Now() time.Time
}
