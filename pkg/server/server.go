package server

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/bastiangx/marketserve/internal/utils"
	"github.com/bastiangx/marketserve/pkg/catalog"
	"github.com/bastiangx/marketserve/pkg/lookup"
	"github.com/charmbracelet/log"
	"github.com/vmihailenco/msgpack/v5"
)

// Request limits
const (
	DefaultRequestTimeout = 15 * time.Second
	DefaultMaxQuery       = 100
	DefaultCompleteLimit  = 10
	MaxCompleteLimit      = 64
)

// Service is what the server exposes over IPC.
type Service interface {
	Lookup(ctx context.Context, itemName string) (*lookup.Result, error)
	Complete(prefix string, limit int) []catalog.Item
}

// Options bounds request handling.
type Options struct {
	RequestTimeout time.Duration
	MaxQuery       int
	CompleteLimit  int
}

// Server handles IPC for item lookups
type Server struct {
	service Service
	opts    Options
	decoder *msgpack.Decoder

	// mu guards encoder; handlers respond concurrently
	mu      sync.Mutex
	encoder *msgpack.Encoder

	wg sync.WaitGroup
}

// NewServer creates a server using stdin/stdout for IPC
func NewServer(service Service, opts Options) *Server {
	return NewServerWithIO(service, opts, os.Stdin, os.Stdout)
}

// NewServerWithIO creates a server over the given streams.
func NewServerWithIO(service Service, opts Options, r io.Reader, w io.Writer) *Server {
	if opts.RequestTimeout <= 0 {
		opts.RequestTimeout = DefaultRequestTimeout
	}
	if opts.MaxQuery <= 0 {
		opts.MaxQuery = DefaultMaxQuery
	}
	if opts.CompleteLimit <= 0 {
		opts.CompleteLimit = DefaultCompleteLimit
	}
	return &Server{
		service: service,
		opts:    opts,
		decoder: msgpack.NewDecoder(bufio.NewReader(r)),
		encoder: msgpack.NewEncoder(w),
	}
}

// Start reads requests until the input closes. Each request runs in its
// own goroutine; Start waits for the running ones before returning.
func (s *Server) Start(ctx context.Context) error {
	log.Debug("Starting Server.")
	defer s.wg.Wait()

	s.sendResponse(StatusResponse{Status: "ready"})

	for {
		raw, err := s.decoder.DecodeRaw()
		if err != nil {
			if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
				log.Debug("Input closed, stopping server.")
				return nil
			}
			log.Errorf("Reading request: %v", err)
			return err
		}

		var request Request
		if err := msgpack.Unmarshal(raw, &request); err != nil {
			log.Errorf("Unmarshaling request: %v", err)
			s.sendError("", "Invalid msgpack request", 400)
			continue
		}

		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			s.handleRequest(ctx, request)
		}()
	}
}

// handleRequest dispatches one request and turns panics into a generic error
func (s *Server) handleRequest(ctx context.Context, request Request) {
	defer func() {
		if rec := recover(); rec != nil {
			log.Errorf("Request %s (%s) panicked: %v", request.ID, request.Action, rec)
			s.sendError(request.ID, "Internal server error", 500)
		}
	}()

	switch request.Action {
	case ActionLookup:
		s.handleLookup(ctx, request)
	case ActionComplete:
		s.handleComplete(request)
	case ActionHealth:
		s.sendResponse(StatusResponse{ID: request.ID, Status: "ok"})
	default:
		s.sendError(request.ID, fmt.Sprintf("Unknown action: %s", request.Action), 400)
	}
}

// validateQuery returns a client-facing message for a bad query, or "".
func (s *Server) validateQuery(q string) string {
	switch {
	case utils.IsBlank(q):
		return "Missing 'q' parameter"
	case utils.RuneLen(q) > s.opts.MaxQuery:
		return fmt.Sprintf("Query exceeds maximum length of %d characters", s.opts.MaxQuery)
	case !utils.IsValidQuery(q):
		return "Query contains control characters"
	}
	return ""
}

func (s *Server) handleLookup(ctx context.Context, request Request) {
	if msg := s.validateQuery(request.Query); msg != "" {
		log.Debugf("Rejected lookup %s: %s", request.ID, msg)
		s.sendError(request.ID, msg, 400)
		return
	}

	ctx, cancel := context.WithTimeout(ctx, s.opts.RequestTimeout)
	defer cancel()

	start := time.Now()
	result, err := s.service.Lookup(ctx, request.Query)
	elapsed := time.Since(start)

	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			log.Warnf("Lookup '%s' timed out after %v", request.Query, elapsed)
			s.sendError(request.ID, "request timed out", 504)
			return
		}
		log.Errorf("Lookup '%s' failed: %v", request.Query, err)
		s.sendError(request.ID, "Internal server error", 500)
		return
	}

	s.sendResponse(toLookupResponse(request.ID, result, elapsed))
}

func (s *Server) handleComplete(request Request) {
	if msg := s.validateQuery(request.Query); msg != "" {
		s.sendError(request.ID, msg, 400)
		return
	}

	limit := request.Limit
	if limit < 1 {
		limit = s.opts.CompleteLimit
	}
	if limit > MaxCompleteLimit {
		limit = MaxCompleteLimit
	}

	start := time.Now()
	items := s.service.Complete(request.Query, limit)
	elapsed := time.Since(start)

	suggestions := make([]ItemInfo, len(items))
	for i, item := range items {
		suggestions[i] = itemInfo(item)
	}
	s.sendResponse(CompleteResponse{
		ID:          request.ID,
		Suggestions: suggestions,
		Count:       len(suggestions),
		TimeTaken:   elapsed.Milliseconds(),
	})
}

func toLookupResponse(id string, result *lookup.Result, elapsed time.Duration) LookupResponse {
	resp := LookupResponse{
		ID:           id,
		Servers:      make([]ServerPrice, len(result.Summary.Servers)),
		Found:        result.Summary.Found,
		NoData:       result.NoData,
		Alternatives: result.Alternatives,
		TimeTaken:    elapsed.Milliseconds(),
	}
	if result.Item != nil {
		info := itemInfo(*result.Item)
		resp.Item = &info
	}
	for i, sv := range result.Summary.Servers {
		resp.Servers[i] = ServerPrice{
			ID:    sv.ID,
			Name:  sv.Name,
			State: string(sv.State),
			HQ:    sv.HQPrice,
			NQ:    sv.NQPrice,
		}
	}
	return resp
}

func itemInfo(item catalog.Item) ItemInfo {
	return ItemInfo{ID: item.ID, Name: item.Name, Icon: item.Icon}
}

// sendResponse encodes response onto the output stream.
func (s *Server) sendResponse(response any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.encoder.Encode(response); err != nil {
		log.Errorf("Encoding response: %v", err)
	}
}

// sendError sends an error response
func (s *Server) sendError(id, message string, code int) {
	s.sendResponse(ErrorResponse{
		ID:    id,
		Error: message,
		Code:  code,
	})
}
