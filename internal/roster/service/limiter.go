package service

import "errors"

var ErrTooManyImports = errors.New("too many imports in progress, try again shortly")

// UploadLimiter bounds how many imports run at once in this process.
type UploadLimiter struct {
	slots chan struct{}
}

func NewUploadLimiter(n int) *UploadLimiter {
	if n <= 0 {
		n = 1
	}
	return &UploadLimiter{slots: make(chan struct{}, n)}
}

// TryAcquire takes a slot without waiting. A nil limiter always succeeds.
func (l *UploadLimiter) TryAcquire() bool {
	if l == nil {
		return true
	}
	select {
	case l.slots <- struct{}{}:
		return true
	default:
		return false
	}
}

func (l *UploadLimiter) Release() {
	if l == nil {
		return
	}
	<-l.slots
}
