package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"
)

// InterruptHandler cancels a long-running command on SIGINT or SIGTERM and
// tells the user what happened to their data.
type InterruptHandler struct {
	writer      io.Writer
	cancelFunc  context.CancelFunc
	operation   string
	interrupted bool
	mu          sync.Mutex
}

// NewInterruptHandler creates a new interrupt handler.
func NewInterruptHandler(writer io.Writer) *InterruptHandler {
	if writer == nil {
		writer = os.Stdout
	}
	return &InterruptHandler{
		writer: writer,
	}
}

// HandleInterrupts returns a context canceled on the first interrupt. The
// signal watch stops when ctx is done.
func (h *InterruptHandler) HandleInterrupts(ctx context.Context, operation string) context.Context {
	ctx, cancel := context.WithCancel(ctx)
	h.mu.Lock()
	h.cancelFunc = cancel
	h.operation = operation
	h.mu.Unlock()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		defer signal.Stop(sigChan)
		select {
		case <-sigChan:
			h.interrupt()
		case <-ctx.Done():
		}
	}()

	return ctx
}

// interrupt marks the handler interrupted, prints the message once and
// cancels the context.
func (h *InterruptHandler) interrupt() {
	h.mu.Lock()
	defer h.mu.Unlock()

	if !h.interrupted {
		h.interrupted = true
		h.showInterruptMessage()
	}
	if h.cancelFunc != nil {
		h.cancelFunc()
	}
}

func (h *InterruptHandler) showInterruptMessage() {
	operation := h.operation
	if operation == "" {
		operation = "Operation"
	}

	msg := "\n\n" + FormatWarning(operation+" interrupted!") +
		"\n" + FormatInfo("Records are only written once a step completes, so nothing was half-saved.") + "\n"

	if _, err := fmt.Fprint(h.writer, msg); err != nil {
		slog.Warn("Failed to write interrupt message", "error", err)
	}
}

// WasInterrupted returns true if the process was interrupted.
func (h *InterruptHandler) WasInterrupted() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.interrupted
}
