// Package translate turns a primary page into its secondary-language variant
// through a remote text-generation service.
package translate

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/docsync/docsync/internal/logging"
	"github.com/docsync/docsync/internal/usage"
)

var (
	// ErrService wraps every failure of the remote call itself. A reply that
	// arrives but is structurally wrong is not an ErrService.
	ErrService = errors.New("translation service error")

	// ErrEmptyReply is returned when the service answers with no text.
	ErrEmptyReply = errors.New("empty reply")
)

// Mode selects the instruction profile.
type Mode int

const (
	// Normal favours fluent output while keeping structure.
	Normal Mode = iota
	// Strict preserves structure even at the cost of fluency.
	Strict
)

func (m Mode) String() string {
	if m == Strict {
		return "strict"
	}
	return "normal"
}

// Direction is a translation from one language tag to another.
type Direction struct {
	From string
	To   string
}

func (d Direction) String() string {
	return d.From + "->" + d.To
}

// Request is one page translation.
type Request struct {
	Page      string
	Text      string
	Mode      Mode
	Direction Direction
}

// Result is a translated page.
type Result struct {
	Text             string
	Model            string
	PromptTokens     int
	CompletionTokens int
}

// Translator translates whole pages.
type Translator interface {
	Translate(ctx context.Context, req Request) (Result, error)
}

// Completion is the raw answer of a backend.
type Completion struct {
	Text             string
	PromptTokens     int
	CompletionTokens int
}

// Backend is a text-generation service.
type Backend interface {
	Name() string
	Model() string
	Complete(ctx context.Context, system, user string) (Completion, error)
}

// Options configures a Client.
type Options struct {
	// Timeout bounds each remote call. Zero means no limit beyond ctx.
	Timeout time.Duration
	// Ledger receives one record per remote call. May be nil.
	Ledger *usage.Ledger
	Logger *zap.Logger
}

// Client implements Translator on top of a Backend.
type Client struct {
	backend Backend
	prompts *Prompts
	timeout time.Duration
	ledger  *usage.Ledger
	logger  *zap.Logger
}

var _ Translator = (*Client)(nil)

// New returns a client for backend.
func New(backend Backend, opts Options) (*Client, error) {
	prompts, err := NewPrompts()
	if err != nil {
		return nil, err
	}
	logger := logging.OrNop(opts.Logger)
	return &Client{
		backend: backend,
		prompts: prompts,
		timeout: opts.Timeout,
		ledger:  opts.Ledger,
		logger:  logger.Named("translate"),
	}, nil
}

// Translate sends the page to the backend. The reply is unwrapped from any
// code fence and given the same trailing-newline convention as the input.
func (c *Client) Translate(ctx context.Context, req Request) (Result, error) {
	system, err := c.prompts.System(req.Mode, req.Direction)
	if err != nil {
		return Result{}, err
	}
	user := c.prompts.User(req.Text)

	comp, err := c.call(ctx, system, user, req.Direction, req.Mode)
	if err != nil {
		return Result{}, fmt.Errorf("translate %s (%s): %w", req.Page, req.Mode, err)
	}

	text := StripFence(comp.Text)
	if strings.TrimSpace(text) == "" {
		return Result{}, fmt.Errorf("translate %s (%s): %w: %w", req.Page, req.Mode, ErrService, ErrEmptyReply)
	}
	text = matchTrailingNewline(text, req.Text)

	c.logger.Debug("page translated",
		zap.String("page", req.Page),
		zap.String("mode", req.Mode.String()),
		zap.Int("lines_in", lineCount(req.Text)),
		zap.Int("lines_out", lineCount(text)))

	return Result{
		Text:             text,
		Model:            c.backend.Model(),
		PromptTokens:     comp.PromptTokens,
		CompletionTokens: comp.CompletionTokens,
	}, nil
}

// DetectLanguage asks the backend which language text is written in.
// Service failures are returned as errors; malformed answers are returned as
// a DetectionParseError.
func (c *Client) DetectLanguage(ctx context.Context, text string) (Detection, error) {
	comp, err := c.call(ctx, c.prompts.Detect(), sample(text, 2000), Direction{}, Normal)
	if err != nil {
		return nil, fmt.Errorf("detect language: %w", err)
	}
	return ParseDetection(comp.Text), nil
}

func (c *Client) call(ctx context.Context, system, user string, dir Direction, mode Mode) (Completion, error) {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	start := time.Now()
	comp, err := c.backend.Complete(ctx, system, user)
	if err != nil {
		return Completion{}, fmt.Errorf("%w: %s: %w", ErrService, c.backend.Name(), err)
	}

	c.logger.Debug("completion",
		zap.String("backend", c.backend.Name()),
		zap.String("model", c.backend.Model()),
		zap.Duration("elapsed", time.Since(start)),
		zap.Int("prompt_tokens", comp.PromptTokens),
		zap.Int("completion_tokens", comp.CompletionTokens))

	if err := c.ledger.Append(usage.Record{
		Model:            c.backend.Model(),
		Direction:        dir.String(),
		Mode:             mode.String(),
		PromptTokens:     comp.PromptTokens,
		CompletionTokens: comp.CompletionTokens,
	}); err != nil {
		c.logger.Warn("usage ledger append failed", zap.Error(err))
	}
	return comp, nil
}

// StripFence removes a single Markdown code fence wrapping the whole reply.
func StripFence(s string) string {
	t := strings.TrimSpace(s)
	if !strings.HasPrefix(t, "```") {
		return s
	}
	nl := strings.IndexByte(t, '\n')
	if nl < 0 {
		return s
	}
	body := t[nl+1:]
	end := strings.LastIndex(body, "```")
	if end < 0 || strings.TrimSpace(body[end+3:]) != "" {
		return s
	}
	return strings.TrimSuffix(body[:end], "\n")
}

func matchTrailingNewline(out, in string) string {
	out = strings.TrimRight(out, "\n")
	if strings.HasSuffix(in, "\n") {
		out += "\n"
	}
	return out
}

func lineCount(s string) int {
	if s == "" {
		return 0
	}
	return strings.Count(strings.TrimSuffix(s, "\n"), "\n") + 1
}

func sample(s string, n int) string {
	if len(s) <= n {
		return s
	}
	// Back off to a rune boundary.
	for n > 0 && (s[n]&0xC0) == 0x80 {
		n--
	}
	return s[:n]
}
