package server

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"time"
	"unicode/utf8"

	"github.com/charmbracelet/log"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/bastiangx/nextword/internal/logger"
	"github.com/bastiangx/nextword/internal/utils"
	"github.com/bastiangx/nextword/pkg/config"
	"github.com/bastiangx/nextword/pkg/engine"
	"github.com/bastiangx/nextword/pkg/ngram"
	"github.com/bastiangx/nextword/pkg/predict"
)

// Engine is the part of the prediction engine the server drives.
type Engine interface {
	PredictCandidates(partial string, limit int) []predict.Candidate
	CommitWord(raw string) int
	CommitSentence(text string) int
	Backspace()
	Context() []string
	ClearHistory(ctx context.Context) error
	Stats() engine.Stats
	RunMaintenance(maxAgeDays int) ngram.PruneResult
}

// Server handles msgpack IPC for one engine session
type Server struct {
	engine       Engine
	dec          *msgpack.Decoder
	out          *bufio.Writer
	enc          *msgpack.Encoder
	maxLimit     int
	maxPrefix    int
	requestCount int
	log          *log.Logger
}

// NewServer creates a server reading requests from r and writing responses to w.
func NewServer(e Engine, cfg config.ServerConfig, r io.Reader, w io.Writer) *Server {
	out := bufio.NewWriter(w)
	defaults := config.DefaultConfig().Server
	if cfg.MaxLimit <= 0 {
		cfg.MaxLimit = defaults.MaxLimit
	}
	if cfg.MaxPrefix <= 0 {
		cfg.MaxPrefix = defaults.MaxPrefix
	}
	return &Server{
		engine:    e,
		dec:       msgpack.NewDecoder(bufio.NewReader(r)),
		out:       out,
		enc:       msgpack.NewEncoder(out),
		maxLimit:  cfg.MaxLimit,
		maxPrefix: cfg.MaxPrefix,
		log:       logger.New("server"),
	}
}

// SetLogger replaces the server's logger.
func (s *Server) SetLogger(l *log.Logger) {
	if l != nil {
		s.log = l
	}
}

// Start answers requests until the input ends or ctx is cancelled.
// A request that cannot be decoded ends the session since the stream
// cannot be resynchronized.
func (s *Server) Start(ctx context.Context) error {
	s.log.Debug("Starting server")

	if err := s.send(map[string]string{"status": "ready"}); err != nil {
		return err
	}

	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		var req Request
		if err := s.dec.Decode(&req); err != nil {
			if errors.Is(err, io.EOF) {
				s.log.Debugf("Input closed after %d requests", s.requestCount)
				return nil
			}
			s.log.Errorf("Decoding request: %v", err)
			s.sendError("", "Invalid msgpack request", 400)
			return fmt.Errorf("decode request: %w", err)
		}

		s.requestCount++
		if err := s.handleRequest(ctx, req); err != nil {
			return err
		}
	}
}

// handleRequest dispatches one request. Only write failures are returned.
func (s *Server) handleRequest(ctx context.Context, req Request) error {
	switch req.Op {
	case OpPredict:
		return s.handlePredict(req)
	case OpWord:
		n := s.engine.CommitWord(req.Text)
		return s.sendAck(req.ID, n)
	case OpSentence:
		n := s.engine.CommitSentence(req.Text)
		return s.sendAck(req.ID, n)
	case OpBackspace:
		s.engine.Backspace()
		return s.sendAck(req.ID, 0)
	case OpClear:
		if err := s.engine.ClearHistory(ctx); err != nil {
			s.log.Errorf("Clearing history: %v", err)
			return s.sendError(req.ID, "Failed to clear history", 500)
		}
		return s.sendAck(req.ID, 0)
	case OpStats:
		return s.send(StatsResponse{ID: req.ID, Status: "ok", Stats: s.engine.Stats()})
	case OpMaintain:
		if req.MaxAgeDays < 0 {
			return s.sendError(req.ID, "days must not be negative", 400)
		}
		res := s.engine.RunMaintenance(req.MaxAgeDays)
		return s.send(MaintainResponse{
			ID:       req.ID,
			Status:   "ok",
			Bigrams:  res.Bigrams,
			Trigrams: res.Trigrams,
			Unigrams: res.Unigrams,
		})
	case OpHealth:
		return s.send(map[string]string{"id": req.ID, "status": "ok"})
	case "":
		return s.sendError(req.ID, "Missing 'op' field", 400)
	default:
		return s.sendError(req.ID, fmt.Sprintf("Unknown op: %s", req.Op), 400)
	}
}

// handlePredict validates the request, asks the engine for candidates and
// ranks them 1..n in order.
func (s *Server) handlePredict(req Request) error {
	if utf8.RuneCountInString(req.Text) > s.maxPrefix {
		s.log.Debugf("Prefix too long in request %s", req.ID)
		return s.sendError(req.ID, fmt.Sprintf("Prefix exceeds maximum length of %d characters", s.maxPrefix), 400)
	}
	if req.Limit < 0 {
		return s.sendError(req.ID, "Limit must not be negative", 400)
	}
	limit := min(req.Limit, s.maxLimit)

	start := time.Now()
	candidates := s.engine.PredictCandidates(req.Text, limit)
	elapsed := time.Since(start)

	ranks := utils.CreateRankList(len(candidates))
	suggestions := make([]Suggestion, len(candidates))
	for i, c := range candidates {
		suggestions[i] = Suggestion{Word: c.Word, Rank: ranks[i]}
		if req.Verbose {
			suggestions[i].Score = c.Score
			suggestions[i].Sources = c.Sources
		}
	}
	s.log.Debugf("Took [ %v ] for prefix '%s'", elapsed, req.Text)

	return s.send(PredictResponse{
		ID:          req.ID,
		Suggestions: suggestions,
		Count:       len(suggestions),
		TimeTaken:   elapsed.Microseconds(),
	})
}

func (s *Server) sendAck(id string, learned int) error {
	return s.send(AckResponse{
		ID:      id,
		Status:  "ok",
		Learned: learned,
		Context: s.engine.Context(),
	})
}

func (s *Server) sendError(id, message string, code int) error {
	return s.send(ErrorResponse{ID: id, Error: message, Code: code})
}

// send encodes one response and flushes it to the client.
func (s *Server) send(response any) error {
	if err := s.enc.Encode(response); err != nil {
		s.log.Errorf("Encoding response: %v", err)
		return fmt.Errorf("encode response: %w", err)
	}
	if err := s.out.Flush(); err != nil {
		return fmt.Errorf("write response: %w", err)
	}
	return nil
}
