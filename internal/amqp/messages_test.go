package amqp

import (
	"testing"
	"time"
)

func TestSubmissionExportMessageRoundTrip(t *testing.T) {
	msg := NewSubmissionExportMessage(42, 3)
	if msg.Timestamp.IsZero() {
		t.Fatalf("expected timestamp to be set")
	}

	body, err := msg.ToJSON()
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	got, err := SubmissionExportMessageFromJSON(body)
	if err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if got.ID != 42 || got.Version != 3 {
		t.Fatalf("got %+v, want id=42 version=3", got)
	}
	if !got.Timestamp.Truncate(time.Second).Equal(msg.Timestamp.Truncate(time.Second)) {
		t.Fatalf("timestamp mismatch: %v vs %v", got.Timestamp, msg.Timestamp)
	}
}

func TestSubmissionExportMessageFromJSONInvalid(t *testing.T) {
	if _, err := SubmissionExportMessageFromJSON([]byte("not json")); err == nil {
		t.Fatalf("expected error for malformed payload")
	}
}
