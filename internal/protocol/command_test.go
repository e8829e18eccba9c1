package protocol

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"chronometer/internal/log"
	"chronometer/internal/timer"
)

type report struct {
	err  error
	tags map[string]string
}

func newTestHandler() (*CommandHandler, *clock.Mock, *[]report) {
	mock := clock.NewMock()
	reports := &[]report{}

	h := &CommandHandler{
		Timer:  timer.New(timer.Opts{Clock: mock}),
		Logger: log.NewNoopLogger(),
		Reporter: func(err error, tags map[string]string) {
			*reports = append(*reports, report{err, tags})
		},
	}

	return h, mock, reports
}

func TestHandleLifecycle(t *testing.T) {
	h, mock, _ := newTestHandler()
	mock.Add(1500 * time.Millisecond)

	reply, err := h.Handle("start")
	require.NoError(t, err)
	assert.Equal(t, "started 1.500000", reply)

	reply, err = h.Handle("state")
	require.NoError(t, err)
	assert.Equal(t, "running", reply)

	mock.Add(2 * time.Millisecond)
	reply, err = h.Handle("LAP  first   split ")
	require.NoError(t, err)
	assert.Equal(t, "lap 1 1.502000 0.002000 first   split", reply)

	mock.Add(10 * time.Millisecond)
	reply, err = h.Handle("elapsed")
	require.NoError(t, err)
	assert.Equal(t, "0.012000", reply)

	reply, err = h.Handle("stop")
	require.NoError(t, err)
	assert.Equal(t, "stopped 1.512000", reply)

	reply, err = h.Handle("started")
	require.NoError(t, err)
	assert.Equal(t, "1.500000", reply)

	reply, err = h.Handle("stopped")
	require.NoError(t, err)
	assert.Equal(t, "1.512000", reply)

	reply, err = h.Handle("last")
	require.NoError(t, err)
	assert.Equal(t, "2 1.512000 0.010000", reply)

	reply, err = h.Handle("laps")
	require.NoError(t, err)
	assert.Equal(t, strings.Join([]string{
		"0 1.500000 0.000000",
		"1 1.502000 0.002000 first   split",
		"2 1.512000 0.010000",
	}, "\n"), reply)

	reply, err = h.Handle("reset")
	require.NoError(t, err)
	assert.Equal(t, "ok", reply)
	assert.Equal(t, timer.Idle, h.Timer.State())
}

func TestHandleRestart(t *testing.T) {
	h, mock, _ := newTestHandler()

	_, err := h.Handle("start")
	require.NoError(t, err)

	mock.Add(time.Second)
	reply, err := h.Handle("restart")
	require.NoError(t, err)
	assert.Equal(t, "started 1.000000", reply)
}

func TestHandleErrors(t *testing.T) {
	h, _, _ := newTestHandler()

	_, err := h.Handle("stopped")
	assert.True(t, errors.Is(err, timer.ErrNotStarted))

	_, err = h.Handle("last")
	assert.True(t, errors.Is(err, timer.ErrNotStarted))

	_, err = h.Handle("start")
	require.NoError(t, err)

	_, err = h.Handle("start")
	assert.True(t, errors.Is(err, timer.ErrRequiresReset))

	_, err = h.Handle("stopped")
	assert.True(t, errors.Is(err, timer.ErrNotStopped))

	_, err = h.Handle("rewind")
	assert.EqualError(t, err, "protocol: unknown command: rewind")

	_, err = h.Handle("   ")
	assert.Error(t, err)
}

func TestServe(t *testing.T) {
	h, _, reports := newTestHandler()

	in := strings.NewReader("stop\n\nstart\nlap\nstop\nlap\nhelp\nquit\nstate\n")
	var out bytes.Buffer

	require.NoError(t, h.Serve(context.Background(), in, &out))

	assert.Equal(t, strings.Join([]string{
		"error: timer: cannot stop: timer must be started first",
		"started 0.000000",
		"lap 1 0.000000 0.000000",
		"stopped 0.000000",
		"error: timer: cannot add lap: timer must be reset",
		helpText,
		"",
	}, "\n"), out.String())

	require.Len(t, *reports, 2)
	assert.Equal(t, map[string]string{"command": "stop", "code": "not_started"}, (*reports)[0].tags)
	assert.Equal(t, map[string]string{"command": "lap", "code": "requires_reset"}, (*reports)[1].tags)
	assert.Equal(t, timer.Stopped, h.Timer.State(), "commands after quit are not served")
}

func TestServeExit(t *testing.T) {
	h, _, reports := newTestHandler()

	var out bytes.Buffer
	require.NoError(t, h.Serve(context.Background(), strings.NewReader("start\nEXIT\nstop\n"), &out))

	assert.Equal(t, "started 0.000000\n", out.String())
	assert.Empty(t, *reports)
	assert.Equal(t, timer.Running, h.Timer.State(), "commands after exit are not served")
}

func TestServeCancelledWhileWaitingForInput(t *testing.T) {
	h, _, _ := newTestHandler()

	pr, pw := io.Pipe()
	t.Cleanup(func() { pw.Close() })

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var out bytes.Buffer
	served := make(chan error, 1)
	go func() {
		served <- h.Serve(ctx, pr, &out)
	}()

	_, err := io.WriteString(pw, "start\n")
	require.NoError(t, err)
	require.Eventually(t, func() bool {
		return h.Timer.State() == timer.Running
	}, time.Second, time.Millisecond)

	// Serve is now blocked waiting for the next line.
	cancel()

	select {
	case err := <-served:
		assert.Equal(t, context.Canceled, err)
	case <-time.After(time.Second):
		t.Fatal("serve did not return after cancellation")
	}

	assert.Equal(t, "started 0.000000\n", out.String())
}

func TestServeReadError(t *testing.T) {
	h, _, _ := newTestHandler()

	pr, pw := io.Pipe()
	go func() {
		io.WriteString(pw, "start\n")
		pw.CloseWithError(errors.New("disk on fire"))
	}()

	var out bytes.Buffer
	err := h.Serve(context.Background(), pr, &out)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "protocol: error reading command: disk on fire")
	assert.Equal(t, "started 0.000000\n", out.String())
}

func TestHandleConcurrentLapIndices(t *testing.T) {
	h, _, _ := newTestHandler()

	_, err := h.Handle("start")
	require.NoError(t, err)

	const workers, perWorker = 8, 25

	var (
		mutex   sync.Mutex
		indices = make(map[int]bool)
		wg      sync.WaitGroup
	)

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()

			for j := 0; j < perWorker; j++ {
				reply, err := h.Handle("lap")
				if !assert.NoError(t, err) {
					return
				}

				idx, err := strconv.Atoi(strings.Fields(reply)[1])
				if !assert.NoError(t, err) {
					return
				}

				mutex.Lock()
				assert.False(t, indices[idx], "index reported twice: %d", idx)
				indices[idx] = true
				mutex.Unlock()
			}
		}()
	}
	wg.Wait()

	require.Len(t, indices, workers*perWorker)
	for idx := 1; idx <= workers*perWorker; idx++ {
		assert.True(t, indices[idx], "missing index: %d", idx)
	}

	reply, err := h.Handle("last")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(reply, strconv.Itoa(workers*perWorker)+" "))
}

func TestServeUnknownCommandReport(t *testing.T) {
	h, _, reports := newTestHandler()

	var out bytes.Buffer
	require.NoError(t, h.Serve(context.Background(), strings.NewReader("Frobnicate now\n"), &out))

	assert.Equal(t, "error: protocol: unknown command: Frobnicate\n", out.String())
	require.Len(t, *reports, 1)
	assert.Equal(t, map[string]string{"command": "frobnicate"}, (*reports)[0].tags)
}

func TestServeCancelled(t *testing.T) {
	h, _, _ := newTestHandler()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var out bytes.Buffer
	err := h.Serve(ctx, strings.NewReader("start\n"), &out)
	assert.Equal(t, context.Canceled, err)
	assert.Empty(t, out.String())
	assert.Equal(t, timer.Idle, h.Timer.State())
}

func TestHelp(t *testing.T) {
	h, _, _ := newTestHandler()

	reply, err := h.Handle("help")
	require.NoError(t, err)
	assert.Contains(t, reply, "lap [description]")
}
