package amqp

import (
	"testing"
	"time"
)

func TestTransactionEvent_JSONRoundTrip(t *testing.T) {
	event := NewTransactionEvent("tx-42", ActionDeleted)

	body, err := event.ToJSON()
	if err != nil {
		t.Fatalf("ToJSON: %v", err)
	}

	decoded, err := TransactionEventFromJSON(body)
	if err != nil {
		t.Fatalf("FromJSON: %v", err)
	}
	if decoded.ID != "tx-42" || decoded.Action != ActionDeleted {
		t.Errorf("decoded = %+v", decoded)
	}
	if decoded.Timestamp.IsZero() {
		t.Error("timestamp should survive the round trip")
	}
}

func TestTransactionEventFromJSON_Malformed(t *testing.T) {
	if _, err := TransactionEventFromJSON([]byte("{not json")); err == nil {
		t.Error("expected error for malformed payload")
	}
}

func TestNewTransactionEvent_SetsTimestamp(t *testing.T) {
	before := time.Now()
	event := NewTransactionEvent("tx-1", ActionCreated)
	if event.Timestamp.Before(before) {
		t.Error("timestamp should be set at creation")
	}
}
