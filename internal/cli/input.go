// Package cli handles cmd line input and lookups for DBG and testing various features
package cli

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/charmbracelet/log"
	"github.com/keylex/keylex/internal/utils"
	"github.com/keylex/keylex/pkg/config"
	"github.com/keylex/keylex/pkg/dict"
	"github.com/keylex/keylex/pkg/predict"
	"github.com/keylex/keylex/pkg/suggest"
)

// InputHandler processes user input from stdin against whichever lookup
// surfaces were loaded at startup. Plain lines are treated as prediction
// contexts; colon commands reach the other surfaces:
//
//	:complete <prefix>   word completions for a typed prefix
//	:define <word>       dictionary definition lookup
//	:unihan <char|hex>   per-character metadata (literal char, 4E00, U+4E00)
//	:config [rebuild]    show the loaded config path, or rewrite defaults
type InputHandler struct {
	engine          *predict.Engine
	completer       *suggest.Completer
	corrector       *suggest.Corrector
	words           *dict.Store
	unihan          *dict.Store
	configPath      string
	minPrefixLength int
	maxPrefixLength int
	limit           int
	noFilter        bool
}

// NewInputHandler handles initialization of the InputHandler with basic parameters.
// Any of the surfaces may be nil; the matching commands report unavailability.
// configPath is the config file the process loaded, or "" for builtin defaults.
func NewInputHandler(engine *predict.Engine, completer *suggest.Completer, words, unihan *dict.Store, configPath string, minLength, maxLength, limit int, noFilter bool) *InputHandler {
	h := &InputHandler{
		engine:          engine,
		completer:       completer,
		words:           words,
		unihan:          unihan,
		configPath:      configPath,
		minPrefixLength: minLength,
		maxPrefixLength: maxLength,
		limit:           limit,
		noFilter:        noFilter,
	}
	if completer != nil {
		h.corrector = completer.Corrector()
	}
	return h
}

// Start begins the interface loop.
// It continuously prompts for input, reads a line from stdin,
// and passes the trimmed input to the handleInput() for processing.
// Loop terminates if an error occurs while reading from stdin
func (h *InputHandler) Start() error {
	log.Print("keylex CLI")
	reader := bufio.NewReader(os.Stdin)
	log.Print("type a context for predictions, or :complete / :define / :unihan (Ctrl+C to exit):")

	for {
		log.Print("> ")
		line, err := reader.ReadString('\n')
		if err != nil {
			return err
		}
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		h.handleInput(line)
	}
}

// handleInput routes a single line: colon commands go to their surface,
// anything else is a prediction context. When no prediction engine is
// loaded the line falls through to completion so the loop stays usable
// with dictionary-only data.
func (h *InputHandler) handleInput(line string) {
	if strings.HasPrefix(line, ":") {
		h.handleCommand(line)
		return
	}

	if len(line) < h.minPrefixLength {
		log.Errorf("Input too short: %s", line)
		return
	}
	if len(line) > h.maxPrefixLength {
		log.Errorf("Input too long: %s", line)
		return
	}

	// input filtering by default (unless --no-filter flag is used)
	if !h.noFilter {
		if !utils.IsValidInput(line) {
			log.Infof("No results found for input: '%s'", line)
			return
		}
	} else {
		log.Debug("Input filtering disabled")
	}

	if h.engine == nil {
		h.complete(line)
		return
	}
	h.predict(line)
}

func (h *InputHandler) handleCommand(line string) {
	fields := strings.Fields(line)
	arg := ""
	if len(fields) > 1 {
		arg = strings.Join(fields[1:], " ")
	}

	switch fields[0] {
	case ":complete":
		if arg == "" {
			log.Error("Usage: :complete <prefix>")
			return
		}
		h.complete(arg)
	case ":define":
		if arg == "" {
			log.Error("Usage: :define <word>")
			return
		}
		h.define(arg)
	case ":unihan":
		if arg == "" {
			log.Error("Usage: :unihan <char|hex codepoint>")
			return
		}
		h.unihanLookup(arg)
	case ":config":
		h.configCommand(arg)
	default:
		log.Errorf("Unknown command: %s", fields[0])
	}
}

// configCommand reports the config file in use, and on "rebuild" rewrites
// the default config.toml with builtin defaults. Rebuild is the escape
// hatch for a file damaged beyond section recovery.
func (h *InputHandler) configCommand(arg string) {
	switch arg {
	case "":
		log.Printf("config: %s", config.GetActiveConfigPath(h.configPath))
	case "rebuild":
		if err := config.RebuildConfigFile(); err != nil {
			log.Errorf("Rebuild failed: %v", err)
			return
		}
		log.Printf("Wrote defaults to %s", config.GetActiveConfigPath(""))
		log.Print("Restart to pick up the rebuilt file")
	default:
		log.Error("Usage: :config [rebuild]")
	}
}

func (h *InputHandler) predict(context string) {
	start := time.Now()
	log.Debug("Processing prediction request", "context", context)

	predictions := h.engine.Predict(context)
	if h.limit > 0 && len(predictions) > h.limit {
		predictions = predictions[:h.limit]
	}

	elapsed := time.Since(start)
	log.Debugf("Took [ %v ] for context '%s'", elapsed, context)

	if len(predictions) == 0 {
		log.Warnf("No predictions found for context: '%s'", context)
		return
	}

	log.Printf("Found %d predictions for context '%s':", len(predictions), context)
	for i, p := range predictions {
		fmtScore := utils.FormatWithCommas(p.Score)
		clToken := fmt.Sprintf("\033[38;5;75m%s\033[0m", p.Token)
		log.Printf("%2d. %-40s (score: %8s)", i+1, clToken, fmtScore)
	}
}

func (h *InputHandler) complete(prefix string) {
	if h.completer == nil {
		log.Error("No completion data loaded")
		return
	}

	start := time.Now()
	log.Debug("Processing completion request", "prefix", prefix)

	suggestions := h.completer.Complete(prefix, h.limit)
	if len(suggestions) == 0 && h.corrector != nil {
		if corrected, ok := h.corrector.Correct(prefix); ok {
			log.Printf("No matches for '%s', corrected to '%s'", prefix, corrected)
			suggestions = h.completer.Complete(corrected, h.limit)
		}
	}

	elapsed := time.Since(start)
	log.Debugf("Took [ %v ] for prefix '%s'", elapsed, prefix)

	if len(suggestions) == 0 {
		log.Warnf("No suggestions found for prefix: '%s'", prefix)
		return
	}

	log.Printf("Found %d suggestions for prefix '%s':", len(suggestions), prefix)
	for i, s := range suggestions {
		fmtFreq := utils.FormatWithCommas(s.Frequency)
		clWord := fmt.Sprintf("\033[38;5;75m%s\033[0m", s.Word)
		log.Printf("%2d. %-40s (freq: %8s)", i+1, clWord, fmtFreq)
	}
}

func (h *InputHandler) define(word string) {
	if h.words == nil {
		log.Error("No dictionary store loaded")
		return
	}

	start := time.Now()
	definition, found, err := h.words.Get(word)
	elapsed := time.Since(start)
	log.Debugf("Took [ %v ] for word '%s'", elapsed, word)

	if err != nil {
		log.Errorf("Lookup failed for '%s': %v", word, err)
		return
	}
	if !found {
		log.Warnf("No definition found for: '%s'", word)
		return
	}

	clWord := fmt.Sprintf("\033[38;5;75m%s\033[0m", word)
	log.Printf("%s: %s", clWord, definition)
}

func (h *InputHandler) unihanLookup(arg string) {
	if h.unihan == nil {
		log.Error("No character metadata store loaded")
		return
	}

	cp, err := parseCodepointArg(arg)
	if err != nil {
		log.Errorf("Bad codepoint %q: %v", arg, err)
		return
	}

	start := time.Now()
	entry, found, err := h.unihan.UnihanEntry(cp)
	elapsed := time.Since(start)
	log.Debugf("Took [ %v ] for U+%04X", elapsed, cp)

	if err != nil {
		log.Errorf("Lookup failed for U+%04X: %v", cp, err)
		return
	}
	if !found {
		log.Warnf("No metadata found for: U+%04X", cp)
		return
	}

	clChar := fmt.Sprintf("\033[38;5;75m%c\033[0m", rune(cp))
	log.Printf("%s U+%04X  radical %d  radical strokes %d  total strokes %d  simplified %v",
		clChar, cp, entry.Radical, entry.RadicalStroke, entry.TotalStroke, entry.Simplified)
}

// parseCodepointArg reads a character argument as hex first ("4E00" or
// "U+4E00"), falling back to a literal single character. Hex wins for
// ambiguous single letters like "e", which is harmless since Unihan
// records never cover ASCII code points.
func parseCodepointArg(arg string) (uint32, error) {
	hex := strings.TrimPrefix(strings.TrimPrefix(arg, "U+"), "u+")
	if cp, err := strconv.ParseUint(hex, 16, 32); err == nil {
		if cp > utf8.MaxRune {
			return 0, fmt.Errorf("codepoint out of range")
		}
		return uint32(cp), nil
	}
	if utf8.RuneCountInString(arg) == 1 {
		r, _ := utf8.DecodeRuneInString(arg)
		if r == utf8.RuneError {
			return 0, fmt.Errorf("invalid encoding")
		}
		return uint32(r), nil
	}
	return 0, fmt.Errorf("want a single character or hex codepoint")
}
