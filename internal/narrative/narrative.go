// Package narrative turns savings figures into a short plain-English summary
// for the dashboard, using OpenAI when a key is configured.
package narrative

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/lox/campuswatt/internal/httputil"
	"github.com/lox/campuswatt/internal/metrics"
	"github.com/lox/campuswatt/internal/savings"
)

var ErrDisabled = errors.New("narrative: no OpenAI API key configured")

const (
	SourceOpenAI   = "openai"
	SourceTemplate = "template"
)

const requestTimeout = 15 * time.Second

const systemPrompt = `You write one short paragraph (at most three sentences) for a campus facilities dashboard.
Explain the energy figures you are given in plain English. Use the numbers exactly as given.
Do not invent causes or recommendations that are not supported by the figures.`

// Facts are the figures a narrative is written from.
type Facts struct {
	Building   string
	Comparison savings.Comparison
	// Scheduled savings from switching AHUs off outside class time.
	ScheduleKWh     decimal.Decimal
	ScheduleDollars decimal.Decimal
	Date            string
}

type Narrative struct {
	Text   string `json:"text"`
	Source string `json:"source"`
}

type Writer struct {
	client *openai.Client
	model  string
	logger *zap.Logger
}

// NewWriter returns a Writer. With an empty apiKey every call falls back to
// the template.
func NewWriter(apiKey, model string, logger *zap.Logger, opts ...option.RequestOption) *Writer {
	if logger == nil {
		logger = zap.NewNop()
	}
	if model == "" {
		model = string(openai.ChatModelGPT4oMini)
	}
	w := &Writer{model: model, logger: logger.Named("narrative")}
	if apiKey != "" {
		opts = append([]option.RequestOption{
			option.WithAPIKey(apiKey),
			option.WithHTTPClient(httputil.NewClient(requestTimeout)),
		}, opts...)
		client := openai.NewClient(opts...)
		w.client = &client
	}
	return w
}

func (w *Writer) Enabled() bool { return w.client != nil }

// Generate asks the model for a narrative. It returns ErrDisabled without a key.
func (w *Writer) Generate(ctx context.Context, f Facts) (string, error) {
	if w.client == nil {
		return "", ErrDisabled
	}
	resp, err := w.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: openai.ChatModel(w.model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(systemPrompt),
			openai.UserMessage(prompt(f)),
		},
	})
	if err != nil {
		return "", fmt.Errorf("chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("chat completion: no choices returned")
	}
	text := strings.TrimSpace(resp.Choices[0].Message.Content)
	if text == "" {
		return "", errors.New("chat completion: empty message")
	}
	return text, nil
}

// Summarize prefers the model and falls back to the template on any failure.
func (w *Writer) Summarize(ctx context.Context, f Facts) Narrative {
	text, err := w.Generate(ctx, f)
	if err == nil {
		metrics.NarrativesGenerated.WithLabelValues(SourceOpenAI).Inc()
		return Narrative{Text: text, Source: SourceOpenAI}
	}
	if !errors.Is(err, ErrDisabled) {
		w.logger.Warn("openai narrative failed, using template", zap.Error(err))
	}
	metrics.NarrativesGenerated.WithLabelValues(SourceTemplate).Inc()
	return Narrative{Text: Template(f), Source: SourceTemplate}
}

func prompt(f Facts) string {
	c := f.Comparison
	var b strings.Builder
	fmt.Fprintf(&b, "Building: %s\n", f.Building)
	fmt.Fprintf(&b, "Timeframe: %s\n", c.Timeframe)
	fmt.Fprintf(&b, "Current period %s: %s kWh over %d readings\n", c.Current.Label, c.Current.Usage.StringFixed(1), c.Current.Count)
	fmt.Fprintf(&b, "Same period last year %s: %s kWh over %d readings\n", c.PreviousYear.Label, c.PreviousYear.Usage.StringFixed(1), c.PreviousYear.Count)
	fmt.Fprintf(&b, "Change: %s kWh saved (%s%%), $%s, verdict %s\n", c.AbsoluteKWh.StringFixed(1), c.Percent.StringFixed(1), c.Dollars.StringFixed(2), c.Verdict)
	if f.Date != "" {
		fmt.Fprintf(&b, "AHU schedule for %s avoids %s kWh ($%s) of air handler runtime\n", f.Date, f.ScheduleKWh.StringFixed(0), f.ScheduleDollars.StringFixed(2))
	}
	return b.String()
}

// Template writes the narrative without a model.
func Template(f Facts) string {
	c := f.Comparison
	var b strings.Builder
	if c.Current.Count == 0 {
		fmt.Fprintf(&b, "No energy readings are available for building %s.", f.Building)
	} else {
		fmt.Fprintf(&b, "Building %s used %s kWh in %s", f.Building, c.Current.Usage.StringFixed(1), c.Current.Label)
		switch {
		case c.PreviousYear.Count == 0:
			b.WriteString(", with no readings from the same period last year to compare against.")
		case c.Verdict == savings.Better:
			fmt.Fprintf(&b, ", %s kWh (%s%%) less than %s, saving $%s.",
				c.AbsoluteKWh.StringFixed(1), c.Percent.StringFixed(1), c.PreviousYear.Label, c.Dollars.StringFixed(2))
		case c.Verdict == savings.Worse:
			fmt.Fprintf(&b, ", %s kWh (%s%%) more than %s, costing an extra $%s.",
				c.AbsoluteKWh.Neg().StringFixed(1), c.Percent.Neg().StringFixed(1), c.PreviousYear.Label, c.Dollars.Neg().StringFixed(2))
		default:
			fmt.Fprintf(&b, ", the same as %s.", c.PreviousYear.Label)
		}
	}
	if f.Date != "" && f.ScheduleKWh.IsPositive() {
		fmt.Fprintf(&b, " Following the class-driven AHU schedule on %s avoids %s kWh, about $%s.",
			f.Date, f.ScheduleKWh.StringFixed(0), f.ScheduleDollars.StringFixed(2))
	}
	return b.String()
}
