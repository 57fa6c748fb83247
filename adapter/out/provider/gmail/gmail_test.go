package gmail

import (
	"strings"
	"testing"
)

func TestCleanBodyStripsMarkupAndNoise(t *testing.T) {
	raw := `<div>Hello, I have a serious problem with my subscription billing</div>
Visit https://example.com/help for more
Contact me at someone@example.com please, my account is broken
Unsubscribe
short`

	body := CleanBody(raw)

	if strings.Contains(body, "<div>") || strings.Contains(body, "https://") {
		t.Fatalf("markup or URLs survived cleaning: %q", body)
	}
	if strings.Contains(body, "someone@example.com") {
		t.Fatalf("email address survived cleaning: %q", body)
	}
	if strings.Contains(body, "Unsubscribe") {
		t.Fatalf("footer line survived cleaning: %q", body)
	}
	if !strings.Contains(body, "serious problem with my subscription billing") {
		t.Fatalf("meaningful content lost: %q", body)
	}
}

func TestCleanBodyCapsLength(t *testing.T) {
	raw := strings.Repeat("this line carries enough words to be kept around\n", 40)
	if body := CleanBody(raw); len(body) > maxBodyLen {
		t.Fatalf("body not capped: %d chars", len(body))
	}
}

func TestParseSender(t *testing.T) {
	name, email := ParseSender(`Marie Dubois <marie@example.com>`)
	if name != "Marie Dubois" || email != "marie@example.com" {
		t.Fatalf("got %q, %q", name, email)
	}

	name, email = ParseSender("bare@example.com")
	if name != "bare@example.com" || email != "bare@example.com" {
		t.Fatalf("got %q, %q", name, email)
	}
}
