package ingest

import (
	"context"
	"errors"
	"testing"

	"github.com/starkeranthonio-sudo/churn-predictor-backend/core/domain"
	"github.com/starkeranthonio-sudo/churn-predictor-backend/pkg/apperr"
)

type recordingProducer struct {
	inbound []*domain.InboundMessage
	err     error
}

func (p *recordingProducer) PublishInbound(_ context.Context, msg *domain.InboundMessage) error {
	if p.err != nil {
		return p.err
	}
	p.inbound = append(p.inbound, msg)
	return nil
}

func (p *recordingProducer) PublishScored(context.Context, *domain.ScoredMessage) error { return nil }
func (p *recordingProducer) PublishAlert(context.Context, *domain.AlertEvent) error     { return nil }

func TestSubmitPublishes(t *testing.T) {
	producer := &recordingProducer{}
	svc := New(producer)

	if err := svc.Submit(context.Background(), "client-1", "hello there"); err != nil {
		t.Fatalf("Submit() error = %v", err)
	}

	if len(producer.inbound) != 1 {
		t.Fatalf("published = %d, want 1", len(producer.inbound))
	}
	msg := producer.inbound[0]
	if msg.ClientID != "client-1" || msg.Text != "hello there" {
		t.Errorf("published message = %+v", msg)
	}
	if msg.Timestamp.IsZero() {
		t.Error("timestamp not stamped")
	}
}

func TestSubmitValidates(t *testing.T) {
	svc := New(&recordingProducer{})

	for name, args := range map[string][2]string{
		"empty clientId":      {"", "text"},
		"whitespace clientId": {"   ", "text"},
		"empty text":          {"client-1", ""},
		"whitespace text":     {"client-1", "\n\t"},
	} {
		err := svc.Submit(context.Background(), args[0], args[1])
		if err == nil {
			t.Errorf("%s: Submit() = nil, want validation error", name)
			continue
		}
		if appErr := apperr.AsAppError(err); appErr.Code != apperr.CodeMissingField {
			t.Errorf("%s: code = %s, want %s", name, appErr.Code, apperr.CodeMissingField)
		}
	}
}

func TestBrokerErrorWrapped(t *testing.T) {
	svc := New(&recordingProducer{err: errors.New("connection reset")})

	err := svc.Submit(context.Background(), "client-1", "text")
	if err == nil {
		t.Fatal("Submit() = nil, want broker error")
	}
	if appErr := apperr.AsAppError(err); appErr.Code != apperr.CodeBrokerError {
		t.Errorf("code = %s, want %s", appErr.Code, apperr.CodeBrokerError)
	}
}
