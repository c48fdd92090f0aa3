// Package cli provides an interactive loop for trying the engine by hand:
// type text to teach it and see what it predicts next.
package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/log"
	"github.com/dustin/go-humanize"

	"github.com/bastiangx/nextword/internal/utils"
	"github.com/bastiangx/nextword/pkg/engine"
	"github.com/bastiangx/nextword/pkg/ngram"
	"github.com/bastiangx/nextword/pkg/predict"
	"github.com/bastiangx/nextword/pkg/tokenize"
)

// Engine is what the CLI drives.
type Engine interface {
	PredictCandidates(partial string, limit int) []predict.Candidate
	CommitWord(raw string) int
	CommitSentence(text string) int
	Backspace()
	Context() []string
	ResetContext()
	ClearHistory(ctx context.Context) error
	Stats() engine.Stats
	RunMaintenance(maxAgeDays int) ngram.PruneResult
}

var (
	wordStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("75"))
	contextStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("245")).Italic(true)
)

const helpText = `commands:
  <text>        commit words, terminal punctuation ends the sentence
  ?<prefix>     show completions for prefix in the current context
  :next         show next-word predictions
  :back         forget the last context word
  :reset        drop the context
  :stats        show table sizes
  :prune [days] remove rare entries idle for more than days
  :clear        wipe learned history
  :help         show this help`

// InputHandler reads lines from stdin, feeds them to the engine and prints
// its predictions.
type InputHandler struct {
	engine          Engine
	maxPrefixLength int
	suggestLimit    int
	noFilter        bool
	requestCount    int
	log             *log.Logger
}

// NewInputHandler handles initialization of the InputHandler with basic parameters
func NewInputHandler(e Engine, maxLength, limit int, noFilter bool) *InputHandler {
	return &InputHandler{
		engine:          e,
		maxPrefixLength: maxLength,
		suggestLimit:    limit,
		noFilter:        noFilter,
		log:             log.Default(),
	}
}

// SetLogger replaces the logger used for output.
func (h *InputHandler) SetLogger(l *log.Logger) {
	if l != nil {
		h.log = l
	}
}

// Start runs the loop on stdin until EOF or ctx is cancelled.
func (h *InputHandler) Start(ctx context.Context) error {
	h.log.Print("nextword CLI")
	h.log.Print("type text and press Enter to teach it, :help for commands (Ctrl+C to exit):")
	return h.Run(ctx, os.Stdin)
}

// Run processes lines from r until EOF or ctx is cancelled.
func (h *InputHandler) Run(ctx context.Context, r io.Reader) error {
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		if err := ctx.Err(); err != nil {
			return err
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		h.handleInput(ctx, line)
	}
	return scanner.Err()
}

func (h *InputHandler) handleInput(ctx context.Context, line string) {
	h.requestCount++

	switch {
	case strings.HasPrefix(line, "?"):
		h.handlePrefix(strings.TrimPrefix(line, "?"))
	case strings.HasPrefix(line, ":"):
		h.handleCommand(ctx, strings.Fields(line[1:]))
	default:
		h.handleText(line)
	}
}

func (h *InputHandler) handleCommand(ctx context.Context, args []string) {
	if len(args) == 0 {
		h.log.Print(helpText)
		return
	}
	switch args[0] {
	case "next":
		h.show("", h.engine.PredictCandidates("", h.suggestLimit))
	case "back":
		h.engine.Backspace()
		h.showContext()
	case "reset":
		h.engine.ResetContext()
		h.showContext()
	case "stats":
		s := h.engine.Stats()
		h.log.Printf("bigrams: %s  trigrams: %s  words: %s  dictionary: %s",
			humanize.Comma(int64(s.Bigrams)), humanize.Comma(int64(s.Trigrams)),
			humanize.Comma(int64(s.Unigrams)), humanize.Comma(int64(s.DictionaryWords)))
		h.log.Printf("cache: %d hits, %d misses", s.Cache["cacheHits"], s.Cache["cacheMisses"])
		h.showContext()
	case "prune":
		days := 0
		if len(args) > 1 {
			n, err := strconv.Atoi(args[1])
			if err != nil || n < 0 {
				h.log.Errorf("Invalid number of days: %s", args[1])
				return
			}
			days = n
		}
		res := h.engine.RunMaintenance(days)
		h.log.Printf("pruned %d bigrams, %d trigrams, %d words", res.Bigrams, res.Trigrams, res.Unigrams)
	case "clear":
		if err := h.engine.ClearHistory(ctx); err != nil {
			h.log.Errorf("Failed to clear history: %v", err)
			return
		}
		h.log.Print("learned history cleared")
	case "help":
		h.log.Print(helpText)
	default:
		h.log.Errorf("Unknown command: %s", args[0])
	}
}

// handlePrefix validates a partial word and prints completions for it.
func (h *InputHandler) handlePrefix(prefix string) {
	prefix = strings.TrimSpace(prefix)
	if prefix == "" {
		h.log.Errorf("Missing prefix after '?'")
		return
	}
	if utf8.RuneCountInString(prefix) > h.maxPrefixLength {
		h.log.Errorf("Prefix too long: %s", prefix)
		return
	}

	// input filtering by default (unless --no-filter flag is used)
	if !h.noFilter {
		if !utils.IsValidInput(prefix) {
			h.log.Warnf("No suggestions found for prefix: '%s' (filtered out)", prefix)
			return
		}
	} else {
		h.log.Debug("Input filtering disabled - allowing all inputs")
	}

	start := time.Now()
	candidates := h.engine.PredictCandidates(prefix, h.suggestLimit)
	h.log.Debugf("Took [ %v ] for prefix '%s'", time.Since(start), prefix)
	h.show(prefix, candidates)
}

// handleText commits a line the way a keyboard would: word by word, then
// the whole sentence when it ends with terminal punctuation.
func (h *InputHandler) handleText(line string) {
	learned := h.engine.CommitWord(line)
	if tokenize.EndsSentence(line) {
		h.engine.CommitSentence(line)
	}
	h.log.Debugf("Learned %d words", learned)
	h.showContext()
	h.show("", h.engine.PredictCandidates("", h.suggestLimit))
}

func (h *InputHandler) showContext() {
	ctx := h.engine.Context()
	if len(ctx) == 0 {
		h.log.Print(contextStyle.Render("context: (empty)"))
		return
	}
	h.log.Print(contextStyle.Render("context: " + strings.Join(ctx, " ")))
}

func (h *InputHandler) show(prefix string, candidates []predict.Candidate) {
	if len(candidates) == 0 {
		if prefix == "" {
			h.log.Print("no next-word predictions yet")
		} else {
			h.log.Warnf("No suggestions found for prefix: '%s'", prefix)
		}
		return
	}
	if prefix == "" {
		h.log.Printf("Next word (%d):", len(candidates))
	} else {
		h.log.Printf("Found %d suggestions for prefix '%s':", len(candidates), prefix)
	}
	for i, c := range candidates {
		h.log.Printf("%2d. %-30s (score: %4d  %s)", i+1, wordStyle.Render(c.Word), c.Score, describeSources(c.Sources))
	}
}

func describeSources(sources []predict.Contribution) string {
	parts := make([]string, 0, len(sources))
	for _, s := range sources {
		if s.Tier == predict.TierDictionary {
			parts = append(parts, s.Tier.String())
			continue
		}
		parts = append(parts, fmt.Sprintf("%s×%d", s.Tier, s.Frequency))
	}
	return strings.Join(parts, " + ")
}
