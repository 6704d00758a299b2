package narrative

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/openai/openai-go/v3/option"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lox/campuswatt/internal/savings"
)

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func betterFacts() Facts {
	return Facts{
		Building: "14",
		Comparison: savings.Comparison{
			Timeframe:    savings.Day,
			Current:      savings.Period{Usage: d("3000"), Label: "2025-08-01", Count: 96},
			PreviousYear: savings.Period{Usage: d("3250"), Label: "2024-08-01", Count: 96},
			AbsoluteKWh:  d("250"),
			Percent:      d("7.6923"),
			Dollars:      d("30"),
			Verdict:      savings.Better,
		},
		ScheduleKWh:     d("405"),
		ScheduleDollars: d("48.6"),
		Date:            "2025-08-01",
	}
}

func TestTemplate(t *testing.T) {
	tests := []struct {
		name  string
		facts func() Facts
		want  []string
	}{
		{
			name:  "better",
			facts: betterFacts,
			want: []string{
				"Building 14 used 3000.0 kWh in 2025-08-01, 250.0 kWh (7.7%) less than 2024-08-01, saving $30.00.",
				"avoids 405 kWh, about $48.60.",
			},
		},
		{
			name: "worse",
			facts: func() Facts {
				f := betterFacts()
				f.Comparison.AbsoluteKWh = d("-100")
				f.Comparison.Percent = d("-5")
				f.Comparison.Dollars = d("-12")
				f.Comparison.Verdict = savings.Worse
				return f
			},
			want: []string{"100.0 kWh (5.0%) more than 2024-08-01, costing an extra $12.00."},
		},
		{
			name: "no prior year",
			facts: func() Facts {
				f := betterFacts()
				f.Comparison.PreviousYear = savings.Period{Usage: decimal.Zero}
				return f
			},
			want: []string{"no readings from the same period last year"},
		},
		{
			name: "no readings",
			facts: func() Facts {
				return Facts{Building: "99", Comparison: savings.Comparison{Verdict: savings.Same}}
			},
			want: []string{"No energy readings are available for building 99."},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Template(tt.facts())
			for _, w := range tt.want {
				assert.Contains(t, got, w)
			}
		})
	}
}

func TestSummarize_Disabled(t *testing.T) {
	w := NewWriter("", "", nil)
	assert.False(t, w.Enabled())

	_, err := w.Generate(context.Background(), betterFacts())
	assert.ErrorIs(t, err, ErrDisabled)

	n := w.Summarize(context.Background(), betterFacts())
	assert.Equal(t, SourceTemplate, n.Source)
	assert.Equal(t, Template(betterFacts()), n.Text)
}

func fakeOpenAI(t *testing.T, handler http.HandlerFunc) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return srv
}

func TestSummarize_OpenAI(t *testing.T) {
	var gotBody map[string]any
	srv := fakeOpenAI(t, func(w http.ResponseWriter, r *http.Request) {
		assert.True(t, strings.HasSuffix(r.URL.Path, "/chat/completions"), r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		body, _ := io.ReadAll(r.Body)
		require.NoError(t, json.Unmarshal(body, &gotBody))

		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `{
			"id": "chatcmpl-1",
			"object": "chat.completion",
			"created": 1754000000,
			"model": "gpt-4o-mini",
			"choices": [{
				"index": 0,
				"finish_reason": "stop",
				"message": {"role": "assistant", "content": "  Building 14 used less energy than last year.  "}
			}]
		}`)
	})

	w := NewWriter("test-key", "", nil, option.WithBaseURL(srv.URL+"/"), option.WithMaxRetries(0))
	n := w.Summarize(context.Background(), betterFacts())

	assert.Equal(t, SourceOpenAI, n.Source)
	assert.Equal(t, "Building 14 used less energy than last year.", n.Text)
	assert.Equal(t, "gpt-4o-mini", gotBody["model"])
	msgs, ok := gotBody["messages"].([]any)
	require.True(t, ok)
	assert.Len(t, msgs, 2)
}

func TestSummarize_FallsBackOnError(t *testing.T) {
	srv := fakeOpenAI(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		io.WriteString(w, `{"error":{"message":"boom","type":"server_error"}}`)
	})

	w := NewWriter("test-key", "", nil, option.WithBaseURL(srv.URL+"/"), option.WithMaxRetries(0))
	_, err := w.Generate(context.Background(), betterFacts())
	require.Error(t, err)
	assert.False(t, errors.Is(err, ErrDisabled))

	n := w.Summarize(context.Background(), betterFacts())
	assert.Equal(t, SourceTemplate, n.Source)
}
