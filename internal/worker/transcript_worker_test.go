package worker_test

import (
	"errors"
	"testing"

	"prayogai-rag/internal/model"
	"prayogai-rag/internal/worker"
)

func TestDecode(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		wantErr bool
	}{
		{"assistant reply", `{"id":7,"bot_id":"b1","role":"assistant","content":"hi","failed":true,"latency_ms":120}`, false},
		{"user turn", `{"bot_id":"b1","role":"user","content":"hello"}`, false},
		{"missing bot", `{"role":"user","content":"hello"}`, true},
		{"unknown role", `{"bot_id":"b1","role":"system","content":"x"}`, true},
		{"not json", `nope`, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg, err := worker.Decode([]byte(tt.body))
			if (err != nil) != tt.wantErr {
				t.Fatalf("Decode() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil {
				return
			}
			if msg.ID != 0 {
				t.Errorf("expected the queued id to be dropped, got %d", msg.ID)
			}
			if msg.BotID != "b1" {
				t.Errorf("unexpected bot id %q", msg.BotID)
			}
		})
	}

	msg, _ := worker.Decode([]byte(`{"bot_id":"b1","role":"assistant","content":"hi","failed":true,"latency_ms":120}`))
	if !msg.Failed || msg.LatencyMS != 120 {
		t.Errorf("lost reply metadata: %+v", msg)
	}
	if _, err := worker.Decode([]byte(`{"role":"user"}`)); !errors.Is(err, model.ErrInvalidInput) {
		t.Errorf("expected invalid input, got %v", err)
	}
}
