// Package cli handles cmd line input for looking up item prices by hand
package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/bastiangx/marketserve/internal/utils"
	"github.com/bastiangx/marketserve/pkg/catalog"
	"github.com/bastiangx/marketserve/pkg/lookup"
	"github.com/charmbracelet/log"
)

// completePrefix marks a line as a completion request instead of a lookup.
const completePrefix = "?"

// Service is the lookup backend the CLI drives.
type Service interface {
	Lookup(ctx context.Context, itemName string) (*lookup.Result, error)
	Complete(prefix string, limit int) []catalog.Item
}

// Options controls the input loop.
type Options struct {
	Timeout       time.Duration
	MaxQuery      int
	CompleteLimit int
	// IconDir is shown next to the item when set
	IconDir string
}

// InputHandler reads item names line by line and prints their prices.
// Lines starting with "?" list catalog names with that prefix instead.
type InputHandler struct {
	service Service
	opts    Options
	in      io.Reader
	out     io.Writer
}

// NewInputHandler creates a handler on stdin/stdout
func NewInputHandler(service Service, opts Options) *InputHandler {
	return NewInputHandlerWithIO(service, opts, os.Stdin, os.Stdout)
}

// NewInputHandlerWithIO creates a handler on the given streams.
func NewInputHandlerWithIO(service Service, opts Options, in io.Reader, out io.Writer) *InputHandler {
	if opts.Timeout <= 0 {
		opts.Timeout = 15 * time.Second
	}
	if opts.MaxQuery <= 0 {
		opts.MaxQuery = 100
	}
	if opts.CompleteLimit <= 0 {
		opts.CompleteLimit = 10
	}
	return &InputHandler{service: service, opts: opts, in: in, out: out}
}

// Start runs the input loop until stdin closes.
func (h *InputHandler) Start(ctx context.Context) error {
	fmt.Fprintln(h.out, titleStyle.Render("marketserve CLI"))
	fmt.Fprintln(h.out, "type an item name and press Enter, or ?prefix to list names (Ctrl+D to exit):")

	reader := bufio.NewReader(h.in)
	for {
		fmt.Fprint(h.out, "> ")
		line, err := reader.ReadString('\n')
		line = strings.TrimSpace(line)
		if line != "" {
			h.handleInput(ctx, line)
		}
		if err != nil {
			if errors.Is(err, io.EOF) {
				fmt.Fprintln(h.out)
				return nil
			}
			return err
		}
	}
}

// handleInput looks up or completes a single line.
func (h *InputHandler) handleInput(ctx context.Context, line string) {
	if prefix, ok := strings.CutPrefix(line, completePrefix); ok {
		h.handleComplete(strings.TrimSpace(prefix))
		return
	}

	if utils.RuneLen(line) > h.opts.MaxQuery {
		log.Errorf("Query too long: %d characters (max %d)", utils.RuneLen(line), h.opts.MaxQuery)
		return
	}
	if !utils.IsValidQuery(line) {
		log.Errorf("Invalid query: %q", line)
		return
	}

	ctx, cancel := context.WithTimeout(ctx, h.opts.Timeout)
	defer cancel()

	start := time.Now()
	result, err := h.service.Lookup(ctx, line)
	log.Debugf("Took [ %v ] for '%s'", time.Since(start), line)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			log.Errorf("Lookup for '%s' timed out", line)
		} else {
			log.Errorf("Lookup for '%s' failed: %v", line, err)
		}
		return
	}

	Render(h.out, result, h.opts.IconDir)
}

func (h *InputHandler) handleComplete(prefix string) {
	if !utils.IsValidQuery(prefix) {
		log.Errorf("Missing prefix after %q", completePrefix)
		return
	}

	items := h.service.Complete(prefix, h.opts.CompleteLimit)
	if len(items) == 0 {
		log.Warnf("No items start with '%s'", prefix)
		return
	}
	for i, item := range items {
		fmt.Fprintf(h.out, "%2d. %s %s\n", i+1, nameStyle.Render(item.Name), mutedStyle.Render(fmt.Sprintf("#%d", item.ID)))
	}
}
