// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package llm adapts chat-completion services into classification oracles:
// a prompt goes in, a typed verdict comes out, and nothing the model says can
// turn into a pipeline error.
package llm

import (
	"bytes"
	"context"
	"fmt"
	"math"
	"text/template"
	"time"
	"unicode/utf8"

	"github.com/rs/zerolog"

	"github.com/pdiddy/citereview/internal/metrics"
)

// DefaultMaxInputChars bounds the document text sent in one request.
const DefaultMaxInputChars = 400_000

// backoffBase controls the base duration for exponential backoff. Tests
// override this to avoid real sleeps.
var backoffBase = time.Second

// PromptSpec is one oracle question: a system template and a user template.
// Both are executed with a PromptData value.
type PromptSpec struct {
	Name   string
	System *template.Template
	User   *template.Template
}

// NewPromptSpec parses the two templates and panics on a syntax error.
func NewPromptSpec(name, system, user string) PromptSpec {
	return PromptSpec{
		Name:   name,
		System: template.Must(template.New(name + "-system").Parse(system)),
		User:   template.Must(template.New(name + "-user").Parse(user)),
	}
}

// PromptData is what templates see: call-site fields under .Data and the
// (possibly truncated) document under .Document.
type PromptData struct {
	Data     any
	Document string
}

// Verdict is the outcome of one oracle question.
type Verdict struct {
	Result ParseResult
	Raw    string
	// Err is set when the backend failed after all retries.
	Err error
}

// Ok reports whether a payload was decoded.
func (v Verdict) Ok() bool {
	return v.Err == nil && v.Result.Ok()
}

// Oracle asks structured questions of a ChatBackend.
type Oracle struct {
	Backend       ChatBackend
	MaxInputChars int
	MaxRetries    int
	Log           zerolog.Logger
	Metrics       *metrics.Recorder
}

// Ask renders spec, sends it, and decodes the reply into out via ParseJSON.
// Transport failures are retried with exponential backoff; a final failure
// or an unparseable reply is reported in the Verdict, never as an error.
func (o *Oracle) Ask(ctx context.Context, spec PromptSpec, data any, document string, out any) Verdict {
	pd := PromptData{Data: data, Document: Truncate(document, o.maxInputChars())}

	system, err := render(spec.System, pd)
	if err != nil {
		return Verdict{Err: fmt.Errorf("rendering %s system prompt: %w", spec.Name, err)}
	}
	user, err := render(spec.User, pd)
	if err != nil {
		return Verdict{Err: fmt.Errorf("rendering %s user prompt: %w", spec.Name, err)}
	}

	reply, err := o.callWithRetry(ctx, system, user)
	o.Metrics.Call("llm", err)
	if err != nil {
		o.Log.Warn().Err(err).Str("prompt", spec.Name).Msg("llm call failed")
		return Verdict{Err: err}
	}

	result := ParseJSON(reply, out)
	o.Metrics.Parsed(result.String())
	ev := o.Log.Debug()
	if result != Strict {
		ev = o.Log.Info()
	}
	ev.Str("prompt", spec.Name).Str("parse", result.String()).Msg("llm reply")
	return Verdict{Result: result, Raw: reply}
}

func (o *Oracle) maxInputChars() int {
	if o.MaxInputChars > 0 {
		return o.MaxInputChars
	}
	return DefaultMaxInputChars
}

// callWithRetry calls the backend with exponential backoff.
func (o *Oracle) callWithRetry(ctx context.Context, system, user string) (string, error) {
	maxRetries := o.MaxRetries
	if maxRetries <= 0 {
		maxRetries = 3
	}
	var lastErr error
	for attempt := 0; attempt <= maxRetries; attempt++ {
		if attempt > 0 {
			backoff := time.Duration(math.Pow(2, float64(attempt-1))) * backoffBase
			select {
			case <-ctx.Done():
				return "", ctx.Err()
			case <-time.After(backoff):
			}
		}
		reply, err := o.Backend.Chat(ctx, system, user)
		if err == nil {
			return reply, nil
		}
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		lastErr = err
	}
	return "", fmt.Errorf("after %d retries: %w", maxRetries, lastErr)
}

// Truncate cuts text to at most max bytes on a rune boundary.
func Truncate(text string, max int) string {
	if max <= 0 || len(text) <= max {
		return text
	}
	cut := max
	for cut > 0 && !utf8.RuneStart(text[cut]) {
		cut--
	}
	return text[:cut]
}

func render(t *template.Template, data PromptData) (string, error) {
	var buf bytes.Buffer
	if err := t.Execute(&buf, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}
