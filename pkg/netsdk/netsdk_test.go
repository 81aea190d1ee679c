package netsdk

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFormatBuildVersion(t *testing.T) {
	tests := []struct {
		value uint32
		want  string
	}{
		{0x00000000, "0.0.0.0"},
		{0xFFFFFFFF, "255.255.255.255"},
		{0x01020304, "1.2.3.4"},
		{0x05040A00, "5.4.10.0"},
		{0x00000001, "0.0.0.1"},
		{0xFF000000, "255.0.0.0"},
	}
	for _, tc := range tests {
		require.Equal(t, tc.want, FormatBuildVersion(tc.value))
	}
}

func TestFormatBuildVersionRoundTrip(t *testing.T) {
	// every byte value in every position survives the round trip
	values := []uint32{0, 1, 9, 10, 99, 100, 127, 128, 200, 255}
	for _, a := range values {
		for _, b := range values {
			v := a<<24 | b<<16 | (255-a)<<8 | (255 - b)
			s := FormatBuildVersion(v)

			var b0, b1, b2, b3 uint32
			n, err := fmt.Sscanf(s, "%d.%d.%d.%d", &b0, &b1, &b2, &b3)
			require.NoError(t, err)
			require.Equal(t, 4, n)
			require.Equal(t, v, b0<<24|b1<<16|b2<<8|b3)
		}
	}
}

type fakeBinding struct {
	inits    int
	cleanups int
	version  uint32

	initErr    error
	cleanupErr error
}

func (f *fakeBinding) Init() error {
	f.inits++
	return f.initErr
}

func (f *fakeBinding) Cleanup() error {
	f.cleanups++
	return f.cleanupErr
}

func (f *fakeBinding) BuildVersion() uint32 {
	return f.version
}

func TestHandleLifecycle(t *testing.T) {
	b := &fakeBinding{version: 0x06010900}

	h, err := Open(b)
	require.NoError(t, err)
	require.Equal(t, 1, b.inits)

	require.Equal(t, "6.1.9.0", h.Version())
	require.Equal(t, h.Version(), h.Version()) // idempotent

	require.NoError(t, h.Close())
	require.NoError(t, h.Close()) // second close is a no-op
	require.Equal(t, 1, b.cleanups)

	require.Equal(t, "", h.Version())
}

func TestOpenInitError(t *testing.T) {
	b := &fakeBinding{initErr: errors.New("no dongle")}

	h, err := Open(b)
	require.Nil(t, h)
	require.ErrorIs(t, err, ErrInit)
	require.Equal(t, 1, b.inits)
	require.Equal(t, 0, b.cleanups)

	// failed init must release the process-wide slot
	h, err = Open(&fakeBinding{})
	require.NoError(t, err)
	require.NoError(t, h.Close())
}

func TestOpenBusy(t *testing.T) {
	h1, err := Open(&fakeBinding{})
	require.NoError(t, err)

	h2, err := Open(&fakeBinding{})
	require.Nil(t, h2)
	require.ErrorIs(t, err, ErrBusy)

	require.NoError(t, h1.Close())

	h3, err := Open(&fakeBinding{})
	require.NoError(t, err)
	require.NoError(t, h3.Close())
}

func TestCloseCleanupError(t *testing.T) {
	b := &fakeBinding{cleanupErr: errors.New("busy channel")}

	h, err := Open(b)
	require.NoError(t, err)

	err = h.Close()
	require.Error(t, err)
	require.Equal(t, err, h.Close()) // same error on repeat
	require.Equal(t, 1, b.cleanups)
}

func TestUnavailable(t *testing.T) {
	h, err := Open(Unavailable{})
	require.Nil(t, h)
	require.ErrorIs(t, err, ErrInit)
}
