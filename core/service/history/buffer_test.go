package history

import (
	"fmt"
	"testing"

	"github.com/starkeranthonio-sudo/churn-predictor-backend/core/domain"
)

func TestMessageBufferFIFOEviction(t *testing.T) {
	b := NewMessageBuffer(50)

	for i := 0; i < 51; i++ {
		b.Append(domain.ScoredMessage{ID: fmt.Sprintf("msg-%d", i)})
	}

	if b.Len() != 50 {
		t.Fatalf("length = %d, want 50", b.Len())
	}

	snap := b.Snapshot(50)
	for _, m := range snap {
		if m.ID == "msg-0" {
			t.Error("oldest message still present after eviction")
		}
	}
	if snap[0].ID != "msg-1" || snap[49].ID != "msg-50" {
		t.Errorf("snapshot bounds = %s..%s, want msg-1..msg-50", snap[0].ID, snap[49].ID)
	}
}

func TestMessageBufferSnapshot(t *testing.T) {
	b := NewMessageBuffer(50)
	for i := 0; i < 5; i++ {
		b.Append(domain.ScoredMessage{ID: fmt.Sprintf("msg-%d", i)})
	}

	tests := []struct {
		n       int
		wantLen int
		first   string
	}{
		{n: 3, wantLen: 3, first: "msg-2"},
		{n: 5, wantLen: 5, first: "msg-0"},
		{n: 20, wantLen: 5, first: "msg-0"},
		{n: 0, wantLen: 0},
	}

	for _, tt := range tests {
		snap := b.Snapshot(tt.n)
		if len(snap) != tt.wantLen {
			t.Errorf("Snapshot(%d) length = %d, want %d", tt.n, len(snap), tt.wantLen)
			continue
		}
		if tt.wantLen > 0 && snap[0].ID != tt.first {
			t.Errorf("Snapshot(%d)[0] = %s, want %s", tt.n, snap[0].ID, tt.first)
		}
	}

	// Snapshot must not mutate the buffer.
	if b.Len() != 5 {
		t.Errorf("length after snapshots = %d, want 5", b.Len())
	}
}

func TestAlertBufferFIFOEviction(t *testing.T) {
	b := NewAlertBuffer(20)

	for i := 0; i < 25; i++ {
		b.Append(domain.AlertEvent{MessageID: fmt.Sprintf("alert-%d", i)})
	}

	if b.Len() != 20 {
		t.Fatalf("length = %d, want 20", b.Len())
	}

	snap := b.Snapshot(10)
	if len(snap) != 10 {
		t.Fatalf("snapshot length = %d, want 10", len(snap))
	}
	if snap[0].MessageID != "alert-15" || snap[9].MessageID != "alert-24" {
		t.Errorf("snapshot bounds = %s..%s, want alert-15..alert-24",
			snap[0].MessageID, snap[9].MessageID)
	}
}
