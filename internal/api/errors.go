package api

import (
	"context"
	"errors"
	"fmt"
	"net"
)

// ErrTimeout возвращается, когда запрос превысил отведённое время.
var (
	ErrTimeout = errors.New("request timed out")
	// ErrNetworkUnreachable возвращается при сетевых сбоях до получения ответа.
	ErrNetworkUnreachable = errors.New("backend unreachable")
	// ErrMalformedResponse возвращается при успешном статусе с нечитаемым телом.
	ErrMalformedResponse = errors.New("malformed response body")
)

// ServerError описывает отказ сервера с полезной нагрузкой detail.
type ServerError struct {
	StatusCode int
	Detail     string
}

func (e *ServerError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("server rejected request (status %d): %s", e.StatusCode, e.Detail)
	}
	return fmt.Sprintf("server rejected request (status %d)", e.StatusCode)
}

// UserMessage выбирает сообщение для показа пользователю: detail сервера,
// если он есть, иначе обобщённое сообщение о вероятной причине.
func UserMessage(err error) string {
	var srvErr *ServerError
	if errors.As(err, &srvErr) && srvErr.Detail != "" {
		return srvErr.Detail
	}
	switch {
	case errors.Is(err, ErrTimeout):
		return "İstek zaman aşımına uğradı, lütfen tekrar deneyin"
	case errors.Is(err, ErrNetworkUnreachable):
		return "Sunucuya ulaşılamadı, bağlantınızı kontrol edin"
	default:
		return "İşlem başarısız oldu, lütfen tekrar deneyin"
	}
}

func classifyTransportError(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %v", ErrTimeout, err)
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return fmt.Errorf("%w: %v", ErrTimeout, err)
	}
	return fmt.Errorf("%w: %v", ErrNetworkUnreachable, err)
}
