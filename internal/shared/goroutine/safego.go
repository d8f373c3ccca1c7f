// Package goroutine launches background work with panic recovery.
package goroutine

import (
	"fmt"
	"runtime/debug"

	"github.com/vendora-inc/vendora/internal/shared/logger"
)

// SafeGo runs fn on a new goroutine. A panic is logged with its stack instead
// of taking the process down.
func SafeGo(log logger.Interface, name string, fn func()) {
	go func() {
		defer func() {
			if r := recover(); r != nil {
				log.Errorw("goroutine panicked",
					"goroutine", name,
					"panic", fmt.Sprintf("%v", r),
					"stack", string(debug.Stack()),
				)
			}
		}()
		fn()
	}()
}
