package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
)

// ErrGatewayUnavailable is raised when the underlying chat-completion call
// cannot be completed after all retries. It is fatal to the current run.
var ErrGatewayUnavailable = errors.New("llm gateway unavailable")

type OutputMode string

const (
	ModeStructured OutputMode = "structured"
	ModeText       OutputMode = "text"
)

type GatewayRequest struct {
	Task        string
	Prompt      string
	Mode        OutputMode
	Temperature float32
}

// GatewayResponse is the discriminated outcome of a gateway call. Exactly one
// of the following holds: Degraded is set with a reason (sentinel, the stage
// degrades gracefully), Data/Raw carry parsed structured output, or Text
// carries free text.
type GatewayResponse struct {
	Data     map[string]interface{}
	Raw      string
	Text     string
	Degraded bool
	Reason   string
}

// Decode unmarshals a structured response into target. Only valid for
// non-degraded structured responses.
func (r *GatewayResponse) Decode(target interface{}) error {
	if r.Degraded {
		return fmt.Errorf("cannot decode degraded response: %s", r.Reason)
	}
	if err := json.Unmarshal([]byte(r.Raw), target); err != nil {
		return fmt.Errorf("failed to decode structured response: %w", err)
	}
	return nil
}

type Gateway interface {
	Generate(ctx context.Context, req GatewayRequest) (*GatewayResponse, error)
}

const (
	structuredSystemPrompt = "You are an expert HR evaluator. Always return valid JSON only, no additional text."
	textSystemPrompt       = "You are an expert HR evaluator. Provide clear, professional responses."
)

var errEmptyResponse = errors.New("empty model response")

type malformedError struct {
	cause error
}

func (e *malformedError) Error() string {
	return fmt.Sprintf("malformed structured response: %v", e.cause)
}

func (e *malformedError) Unwrap() error { return e.cause }

type llmGateway struct {
	completer   ChatCompleter
	policy      RetryPolicy
	callTimeout time.Duration
	sink        TraceSink
	log         *logrus.Entry
}

// NewLLMGateway wraps a chat-completion collaborator with bounded retries,
// per-attempt timeouts, and structured-output parsing. sink may be nil.
func NewLLMGateway(completer ChatCompleter, maxAttempts int, backoffBase, callTimeout time.Duration, sink TraceSink) Gateway {
	return &llmGateway{
		completer: completer,
		policy: RetryPolicy{
			MaxAttempts: maxAttempts,
			Backoff:     ExponentialBackoff(backoffBase),
			// Empty responses degrade immediately; everything else
			// (transport and parse failures) is retried.
			Retryable: func(err error) bool {
				return !errors.Is(err, errEmptyResponse)
			},
		},
		callTimeout: callTimeout,
		sink:        sink,
		log:         logrus.WithField("component", "llm_gateway"),
	}
}

func (g *llmGateway) Generate(ctx context.Context, req GatewayRequest) (*GatewayResponse, error) {
	systemPrompt := textSystemPrompt
	structured := req.Mode == ModeStructured
	if structured {
		systemPrompt = structuredSystemPrompt
	}

	var response GatewayResponse

	err := g.policy.Do(ctx, func(ctx context.Context, attempt int) error {
		attemptCtx, cancel := context.WithTimeout(ctx, g.callTimeout)
		defer cancel()

		start := time.Now()
		raw, err := g.completer.Complete(attemptCtx, systemPrompt, req.Prompt, req.Temperature, structured)
		duration := time.Since(start)

		if err != nil {
			g.record(req.Task, attempt, duration, OutcomeTransport, err)
			return err
		}

		if strings.TrimSpace(raw) == "" {
			g.record(req.Task, attempt, duration, OutcomeEmpty, errEmptyResponse)
			return errEmptyResponse
		}

		if !structured {
			g.record(req.Task, attempt, duration, OutcomeOK, nil)
			response = GatewayResponse{Text: strings.TrimSpace(raw)}
			return nil
		}

		jsonStr := extractJSON(raw)
		var data map[string]interface{}
		if err := json.Unmarshal([]byte(jsonStr), &data); err != nil {
			g.record(req.Task, attempt, duration, OutcomeMalformed, err)
			return &malformedError{cause: err}
		}

		g.record(req.Task, attempt, duration, OutcomeOK, nil)
		response = GatewayResponse{Data: data, Raw: jsonStr}
		return nil
	})

	if err == nil {
		return &response, nil
	}

	if errors.Is(err, errEmptyResponse) {
		g.log.WithField("task", req.Task).Warn("degraded: empty response from model")
		return &GatewayResponse{Degraded: true, Reason: "empty response from model"}, nil
	}

	var malformed *malformedError
	if errors.As(err, &malformed) {
		g.log.WithField("task", req.Task).Warnf("degraded: %v", malformed)
		return &GatewayResponse{Degraded: true, Reason: "model returned unparseable structured output"}, nil
	}

	return nil, fmt.Errorf("%w: task %s failed after %d attempts: %v",
		ErrGatewayUnavailable, req.Task, g.policy.MaxAttempts, err)
}

func (g *llmGateway) record(task string, attempt int, duration time.Duration, outcome string, err error) {
	if g.sink == nil {
		return
	}
	event := TraceEvent{
		Task:     task,
		Attempt:  attempt,
		Duration: duration,
		Outcome:  outcome,
	}
	if err != nil {
		event.Error = err.Error()
	}
	g.sink.Record(event)
}

// extractJSON pulls a JSON object or array out of text that may contain
// markdown fences or other wrapping.
func extractJSON(text string) string {
	text = strings.ReplaceAll(text, "```json", "")
	text = strings.ReplaceAll(text, "```", "")

	startObj := strings.Index(text, "{")
	startArr := strings.Index(text, "[")
	endObj := strings.LastIndex(text, "}")
	endArr := strings.LastIndex(text, "]")

	if startObj != -1 && endObj != -1 && endObj > startObj {
		return text[startObj : endObj+1]
	} else if startArr != -1 && endArr != -1 && endArr > startArr {
		return text[startArr : endArr+1]
	}

	return text
}
