package server

import (
	"errors"
	"fmt"
	"io"
	"os"
	"time"
	"unicode/utf8"

	"github.com/charmbracelet/log"
	"github.com/keylex/keylex/internal/utils"
	"github.com/keylex/keylex/pkg/config"
	"github.com/keylex/keylex/pkg/dict"
	"github.com/keylex/keylex/pkg/predict"
	"github.com/keylex/keylex/pkg/suggest"

	"github.com/vmihailenco/msgpack/v5"
)

const defaultCompleteLimit = 10

// Server handles the msgpack IPC for keylex lookups. Any of the backing
// surfaces may be nil; the matching op then answers 503 instead of being
// absent from the protocol.
type Server struct {
	engine    *predict.Engine
	completer *suggest.Completer
	corrector *suggest.Corrector
	words     *dict.Store
	unihan    *dict.Store
	cfg       *config.Config

	reader io.Reader
	writer io.Writer
}

// NewServer builds a server over stdin/stdout for the loaded surfaces.
// The typo corrector is derived from the completer here, after seeding.
func NewServer(engine *predict.Engine, completer *suggest.Completer, words, unihan *dict.Store, cfg *config.Config) *Server {
	s := &Server{
		engine:    engine,
		completer: completer,
		words:     words,
		unihan:    unihan,
		cfg:       cfg,
		reader:    os.Stdin,
		writer:    os.Stdout,
	}
	if completer != nil && cfg.Server.EnableCorrection {
		s.corrector = completer.Corrector()
	}
	return s
}

// Start announces readiness, then serves requests until the client closes
// the stream. A malformed message is answered with an error response and
// ends the session: msgpack objects carry no outer framing, so a broken
// message leaves no safe way to find the next one.
func (s *Server) Start() error {
	log.Debug("Starting keylex IPC server")

	dec := msgpack.NewDecoder(s.reader)
	enc := msgpack.NewEncoder(s.writer)

	s.send(enc, s.health(""))

	for {
		var req Request
		if err := dec.Decode(&req); err != nil {
			if errors.Is(err, io.EOF) {
				log.Debug("Client closed the stream")
				return nil
			}
			log.Errorf("Decoding request: %v", err)
			s.sendError(enc, "", "invalid msgpack request", 400)
			return fmt.Errorf("server: decode request: %w", err)
		}
		s.dispatch(enc, req)
	}
}

func (s *Server) dispatch(enc *msgpack.Encoder, req Request) {
	switch req.Op {
	case "predict":
		s.handlePredict(enc, req)
	case "complete":
		s.handleComplete(enc, req)
	case "define":
		s.handleDefine(enc, req)
	case "unihan":
		s.handleUnihan(enc, req)
	case "health":
		s.send(enc, s.health(req.ID))
	default:
		s.sendError(enc, req.ID, fmt.Sprintf("unknown op: %q", req.Op), 400)
	}
}

func (s *Server) handlePredict(enc *msgpack.Encoder, req Request) {
	if s.engine == nil {
		s.sendError(enc, req.ID, "prediction model not loaded", 503)
		return
	}

	limit := s.clampLimit(req.Limit, s.cfg.Predict.Limit)

	start := time.Now()
	predictions := s.engine.Predict(req.Context)
	elapsed := time.Since(start)

	if len(predictions) > limit {
		predictions = predictions[:limit]
	}

	ranks := utils.CreateRankList(len(predictions))
	items := make([]PredictionItem, len(predictions))
	for i, p := range predictions {
		items[i] = PredictionItem{Token: p.Token, Score: p.Score, Rank: ranks[i]}
	}

	s.send(enc, PredictResponse{
		ID:          req.ID,
		Predictions: items,
		Count:       len(items),
		TimeTaken:   elapsed.Microseconds(),
	})
}

func (s *Server) handleComplete(enc *msgpack.Encoder, req Request) {
	if s.completer == nil {
		s.sendError(enc, req.ID, "completion dictionary not loaded", 503)
		return
	}

	prefix := req.Prefix
	if prefix == "" {
		s.sendError(enc, req.ID, "missing prefix", 400)
		return
	}
	if len(prefix) < s.cfg.Server.MinPrefix {
		s.sendError(enc, req.ID, fmt.Sprintf("prefix shorter than %d", s.cfg.Server.MinPrefix), 400)
		return
	}
	if len(prefix) > s.cfg.Server.MaxPrefix {
		s.sendError(enc, req.ID, fmt.Sprintf("prefix longer than %d", s.cfg.Server.MaxPrefix), 400)
		return
	}

	limit := s.clampLimit(req.Limit, defaultCompleteLimit)

	start := time.Now()
	var suggestions []suggest.Suggestion
	if !s.cfg.Server.EnableFilter || utils.IsValidInput(prefix) {
		suggestions = s.completer.Complete(prefix, limit)
	}

	wasCorrected := false
	corrected := ""
	if len(suggestions) == 0 && s.corrector != nil && utils.IsValidInput(prefix) {
		if word, ok := s.corrector.Correct(prefix); ok {
			wasCorrected = true
			corrected = word
			suggestions = s.correctedSuggestions(prefix, word, limit)
		}
	}
	elapsed := time.Since(start)

	ranks := utils.CreateRankList(len(suggestions))
	items := make([]CompletionSuggestion, len(suggestions))
	for i, sg := range suggestions {
		items[i] = CompletionSuggestion{Word: sg.Word, Rank: ranks[i], Frequency: sg.Frequency}
	}

	s.send(enc, CompletionResponse{
		ID:              req.ID,
		Suggestions:     items,
		Count:           len(items),
		TimeTaken:       elapsed.Microseconds(),
		WasCorrected:    wasCorrected,
		CorrectedPrefix: corrected,
	})
}

// correctedSuggestions offers the corrected word itself, then words
// extending it, deduplicated against the typed prefix.
func (s *Server) correctedSuggestions(prefix, word string, limit int) []suggest.Suggestion {
	filter := utils.NewSuggestionFilter(prefix)
	var suggestions []suggest.Suggestion

	if filter.ShouldInclude(word) {
		frequency, _ := s.completer.Frequency(word)
		suggestions = append(suggestions, suggest.Suggestion{Word: word, Frequency: frequency})
	}
	for _, sg := range s.completer.Complete(word, limit) {
		if filter.ShouldInclude(sg.Word) {
			suggestions = append(suggestions, sg)
		}
	}
	if len(suggestions) > limit {
		suggestions = suggestions[:limit]
	}
	return suggestions
}

func (s *Server) handleDefine(enc *msgpack.Encoder, req Request) {
	if s.words == nil {
		s.sendError(enc, req.ID, "word dictionary not loaded", 503)
		return
	}
	if req.Word == "" {
		s.sendError(enc, req.ID, "missing word", 400)
		return
	}

	start := time.Now()
	definition, found, err := s.words.Get(req.Word)
	if err != nil {
		log.Errorf("Define %q: %v", req.Word, err)
		s.sendError(enc, req.ID, "dictionary lookup failed", 500)
		return
	}

	s.send(enc, DefineResponse{
		ID:         req.ID,
		Word:       req.Word,
		Definition: definition,
		Found:      found,
		TimeTaken:  time.Since(start).Microseconds(),
	})
}

func (s *Server) handleUnihan(enc *msgpack.Encoder, req Request) {
	if s.unihan == nil {
		s.sendError(enc, req.ID, "unihan dictionary not loaded", 503)
		return
	}

	cp := req.Codepoint
	if cp == 0 && req.Char != "" {
		r, _ := utf8.DecodeRuneInString(req.Char)
		if r != utf8.RuneError {
			cp = uint32(r)
		}
	}
	if cp == 0 {
		s.sendError(enc, req.ID, "missing codepoint", 400)
		return
	}

	start := time.Now()
	entry, found, err := s.unihan.UnihanEntry(cp)
	if err != nil {
		log.Errorf("Unihan %#x: %v", cp, err)
		s.sendError(enc, req.ID, "unihan lookup failed", 500)
		return
	}

	s.send(enc, UnihanResponse{
		ID:            req.ID,
		Codepoint:     cp,
		Found:         found,
		Radical:       entry.Radical,
		RadicalStroke: entry.RadicalStroke,
		TotalStroke:   entry.TotalStroke,
		Simplified:    entry.Simplified,
		TimeTaken:     time.Since(start).Microseconds(),
	})
}

func (s *Server) health(id string) HealthResponse {
	return HealthResponse{
		ID:       id,
		Status:   "ready",
		Predict:  s.engine != nil,
		Complete: s.completer != nil,
		Define:   s.words != nil,
		Unihan:   s.unihan != nil,
	}
}

// clampLimit applies the request limit, falling back to fallback and
// capping at the configured maximum.
func (s *Server) clampLimit(limit, fallback int) int {
	if limit < 1 {
		limit = fallback
	}
	if max := s.cfg.Server.MaxLimit; max > 0 && limit > max {
		limit = max
	}
	return limit
}

func (s *Server) send(enc *msgpack.Encoder, response interface{}) {
	if err := enc.Encode(response); err != nil {
		log.Errorf("Encoding response: %v", err)
	}
}

func (s *Server) sendError(enc *msgpack.Encoder, id, message string, code int) {
	s.send(enc, ErrorResponse{ID: id, Error: message, Code: code})
}
