// Copyright (c) 2025 cocowh. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package utils

import (
	"fmt"
	"runtime/debug"
	"sync"

	"github.com/cocowh/eludris/pkg/logger"
)

// PanicHandlerFunc handles a value recovered in the goroutine named by
// component. onPanic may be nil.
type PanicHandlerFunc func(component string, recovered any, onPanic func(err error))

var (
	mu      sync.RWMutex
	handler PanicHandlerFunc = logPanic
)

// PanicHandler recovers a panic in the calling goroutine and hands it to the
// installed handler. It must be deferred directly:
//
//	defer utils.PanicHandler("gateway reader", nil)
func PanicHandler(component string, onPanic func(err error)) {
	r := recover()
	if r == nil {
		return
	}
	mu.RLock()
	h := handler
	mu.RUnlock()
	h(component, r, onPanic)
}

func logPanic(component string, recovered any, onPanic func(err error)) {
	logger.Errorf("%s: recovered panic: %v\n%s", component, recovered, debug.Stack())
	if onPanic != nil {
		onPanic(fmt.Errorf("%s: panic: %v", component, recovered))
	}
}

// SetPanicHandler installs f and returns the previous handler. A nil f
// restores the logging handler.
func SetPanicHandler(f PanicHandlerFunc) PanicHandlerFunc {
	if f == nil {
		f = logPanic
	}
	mu.Lock()
	defer mu.Unlock()
	prev := handler
	handler = f
	return prev
}
