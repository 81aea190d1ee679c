// Package netsdk owns the global lifecycle of the Hikvision NET_DVR library.
// The library keeps process-wide state behind NET_DVR_Init/NET_DVR_Cleanup,
// so at most one Handle may be open per process.
package netsdk

import (
	"errors"
	"fmt"
	"strconv"
	"sync"
	"sync/atomic"
)

// Binding - entry points of the external NET_DVR library.
// Real integrations link the proprietary SDK via cgo and implement this,
// tests use a fake.
type Binding interface {
	Init() error
	Cleanup() error
	BuildVersion() uint32
}

var (
	ErrInit = errors.New("netsdk: init failed")
	ErrBusy = errors.New("netsdk: another handle is open")
)

// busy - process-wide slot, NET_DVR init/cleanup is not reference counted
var busy atomic.Bool

// Handle brackets the SDK's initialized state. Single owner, use Open/Close.
type Handle struct {
	binding Binding

	closeOnce sync.Once
	closeErr  error
	closed    atomic.Bool
}

// Open calls the binding's Init exactly once. Fails with ErrBusy when
// another handle is still open, or with a wrapped ErrInit when the
// library reports failure.
func Open(b Binding) (*Handle, error) {
	if !busy.CompareAndSwap(false, true) {
		return nil, ErrBusy
	}

	if err := b.Init(); err != nil {
		busy.Store(false)
		return nil, fmt.Errorf("%w: %s", ErrInit, err)
	}

	return &Handle{binding: b}, nil
}

// Close calls the binding's Cleanup exactly once, no matter how many
// times Close runs. Safe on every exit path.
func (h *Handle) Close() error {
	h.closeOnce.Do(func() {
		h.closed.Store(true)
		h.closeErr = h.binding.Cleanup()
		busy.Store(false)
	})
	return h.closeErr
}

// Version queries the current build version and formats it. Best-effort:
// the SDK-reported value is not validated. Empty string after Close.
func (h *Handle) Version() string {
	if h.closed.Load() {
		return ""
	}
	return FormatBuildVersion(h.binding.BuildVersion())
}

// FormatBuildVersion unpacks the 32-bit build version into a dotted
// string, most-significant byte first: 0x01020304 => "1.2.3.4".
func FormatBuildVersion(v uint32) string {
	b := make([]byte, 0, 15)
	b = strconv.AppendUint(b, uint64(v>>24), 10)
	b = append(b, '.')
	b = strconv.AppendUint(b, uint64(v>>16&0xFF), 10)
	b = append(b, '.')
	b = strconv.AppendUint(b, uint64(v>>8&0xFF), 10)
	b = append(b, '.')
	b = strconv.AppendUint(b, uint64(v&0xFF), 10)
	return string(b)
}

// Unavailable - default binding for builds without the proprietary
// library linked in.
type Unavailable struct{}

func (Unavailable) Init() error          { return errors.New("NET_DVR library not linked") }
func (Unavailable) Cleanup() error       { return nil }
func (Unavailable) BuildVersion() uint32 { return 0 }
