// Package crash implements signal-triggered crash capture (orig §4.9).
//
// Grounded on internal/app/app.go's signal.Notify/sigChan shutdown idiom,
// redirected from graceful-shutdown signals to the fatal set, plus
// internal/metrics/metrics.go's defer/recover guard for the uncaught-
// panic half of the contract. Go gives no access to native symbol tables
// the way the original platform's crash reporter parses them, so frames
// here carry the raw runtime/debug.Stack() text per frame line rather
// than a demangled module/address/symbol triple — StackFrame.Symbol
// holds that line, Module and Address stay zero.
package crash

import (
	"os"
	"os/signal"
	"runtime/debug"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/Oreo-Mcflurry/ProbySDK/pkg/model"
)

// fatalSignals mirrors orig §4.9's list. SIGKILL and SIGSTOP are
// deliberately absent: Go's runtime cannot intercept either.
var fatalSignals = []os.Signal{
	syscall.SIGABRT,
	syscall.SIGBUS,
	syscall.SIGFPE,
	syscall.SIGILL,
	syscall.SIGSEGV,
	syscall.SIGTRAP,
}

// EmergencyFlusher is the engine's synchronous drain-and-persist hook,
// called from the crash path per orig §4.9 step 4.
type EmergencyFlusher interface {
	EmergencyFlush()
}

// Config wires the collector to the engine's emergency flush path.
type Config struct {
	Flusher EmergencyFlusher
	Logger  *logrus.Logger
}

// Collector installs a signal handler (and recovers from in-process
// panics) that builds a Crash entry, hands it to the engine, triggers an
// emergency flush, then re-raises the signal so the OS still records a
// native crash report.
//
// The emergency entry's backing array is preallocated at Start, per orig
// §4.9's note that the signal path should avoid heap allocation where
// practical; Go's signal delivery itself already runs on a regular
// goroutine stack (not a restricted signal-handler context the way a
// native SIGSEGV handler would), so this is a best-effort nod to that
// guidance rather than a hard requirement.
type Collector struct {
	cfg  Config
	sink func(model.LogEntry)

	mu       sync.Mutex
	sigChan  chan os.Signal
	stopChan chan struct{}
	wg       sync.WaitGroup

	frameBuf []model.StackFrame
}

// New builds a Collector. sink is the engine-provided ingestion callback.
func New(cfg Config, sink func(model.LogEntry)) *Collector {
	if cfg.Logger == nil {
		cfg.Logger = logrus.StandardLogger()
	}
	return &Collector{
		cfg:      cfg,
		sink:     sink,
		frameBuf: make([]model.StackFrame, 0, 64),
	}
}

func (c *Collector) Start() error {
	c.sigChan = make(chan os.Signal, 1)
	c.stopChan = make(chan struct{})
	signal.Notify(c.sigChan, fatalSignals...)

	c.wg.Add(1)
	go c.loop()
	return nil
}

func (c *Collector) Stop() error {
	if c.stopChan == nil {
		return nil
	}
	signal.Stop(c.sigChan)
	close(c.stopChan)
	c.wg.Wait()
	return nil
}

func (c *Collector) loop() {
	defer c.wg.Done()
	for {
		select {
		case <-c.stopChan:
			return
		case sig := <-c.sigChan:
			c.handle(sig)
		}
	}
}

// handle implements orig §4.9's five-step sequence for a caught signal.
func (c *Collector) handle(sig os.Signal) {
	c.sink(c.buildEntry("signal", sig.String(), ""))

	if c.cfg.Flusher != nil {
		c.cfg.Flusher.EmergencyFlush()
	}

	signal.Stop(c.sigChan)
	signal.Reset(sig)
	if osSig, ok := sig.(syscall.Signal); ok {
		syscall.Kill(syscall.Getpid(), osSig)
	}
}

// RecoverPanic is deferred by host code at the top of a goroutine to
// capture an uncaught exception per orig §4.9's "uncaught-exception
// hook". Unlike a caught signal, a recovered panic does not re-raise —
// the caller's own defer chain already owns unwinding, and Go provides
// no equivalent of re-throwing the original panic value after recovery
// without losing the original stack.
func (c *Collector) RecoverPanic() {
	r := recover()
	if r == nil {
		return
	}

	reason := ""
	if err, ok := r.(error); ok {
		reason = err.Error()
	} else {
		reason = toString(r)
	}

	c.sink(c.buildEntry("panic", "", reason))
	if c.cfg.Flusher != nil {
		c.cfg.Flusher.EmergencyFlush()
	}
}

func (c *Collector) buildEntry(kind, signalName, reason string) model.LogEntry {
	c.mu.Lock()
	frames := c.parseStack(debug.Stack())
	c.mu.Unlock()

	extra := model.NewCrashExtra(model.CrashExtra{
		Signal:        signalName,
		ExceptionType: kind,
		Reason:        reason,
		Frames:        frames,
		Thread:        "main",
	})

	msg := "crash captured"
	if signalName != "" {
		msg = "fatal signal: " + signalName
	} else if reason != "" {
		msg = "uncaught panic: " + reason
	}

	return model.NewEntry(time.Now(), model.LevelFatal, model.CategoryCrash, msg, model.SourceSite{}, nil, &extra)
}

// parseStack splits a runtime/debug.Stack() dump into per-line frames,
// reusing the collector's preallocated buffer so the crash path allocates
// a fresh backing array only when the stack is deeper than usual. Each
// line becomes a single-field frame (orig §4.9: "unparsable symbols
// become single-field frames") since Go's stack text has no fixed
// module/address column layout to parse out reliably.
func (c *Collector) parseStack(stack []byte) []model.StackFrame {
	frames := c.frameBuf[:0]
	lines := strings.Split(strings.TrimSpace(string(stack)), "\n")
	for i, line := range lines {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		frames = append(frames, model.StackFrame{Index: i, Symbol: line})
	}
	out := make([]model.StackFrame, len(frames))
	copy(out, frames)
	return out
}

func toString(v interface{}) string {
	if s, ok := v.(string); ok {
		return s
	}
	if stringer, ok := v.(interface{ String() string }); ok {
		return stringer.String()
	}
	return "unrecognized panic value"
}
