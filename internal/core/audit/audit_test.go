package audit

import "testing"

func intPtr(v int) *int { return &v }

func TestBackendCallLog_Failed(t *testing.T) {
	tests := []struct {
		name string
		log  BackendCallLog
		want bool
	}{
		{"2xx", BackendCallLog{ResponseStatus: intPtr(200)}, false},
		{"429", BackendCallLog{ResponseStatus: intPtr(429)}, true},
		{"transport error", BackendCallLog{ErrorMessage: "connection reset"}, true},
		{"no response recorded", BackendCallLog{}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.log.Failed(); got != tt.want {
				t.Errorf("expected %v, got %v", tt.want, got)
			}
		})
	}
}

func TestSummarize(t *testing.T) {
	logs := []BackendCallLog{
		{Backend: "openai", DurationMs: 120, ResponseStatus: intPtr(200)},
		{Backend: "openai", DurationMs: 80, ResponseStatus: intPtr(500)},
		{Backend: "bedrock", DurationMs: 50, ErrorMessage: "timeout"},
	}

	summary := Summarize(logs)

	if summary.Calls != 3 || summary.Failures != 2 {
		t.Errorf("expected 3 calls and 2 failures, got %+v", summary)
	}
	if summary.DurationMs != 250 {
		t.Errorf("expected 250ms, got %d", summary.DurationMs)
	}
	if summary.ByBackend["openai"] != 2 || summary.ByBackend["bedrock"] != 1 {
		t.Errorf("unexpected per-backend counts %v", summary.ByBackend)
	}
}

func TestSummarize_Empty(t *testing.T) {
	if summary := Summarize(nil); summary.Calls != 0 || summary.DurationMs != 0 {
		t.Errorf("expected empty summary, got %+v", summary)
	}
}
