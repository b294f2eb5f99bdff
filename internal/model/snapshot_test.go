package model

import (
	"encoding/json"
	"errors"
	"math"
	"strings"
	"testing"
	"time"
)

func TestDecodeSnapshot_RoundTrip(t *testing.T) {
	date := time.Date(2024, 4, 20, 0, 0, 0, 0, time.UTC)
	snap := SentimentSnapshot{
		Schema:     SchemaVersion,
		Date:       date,
		Score:      0.81,
		Provenance: ProvenanceCached,
		Status:     Status{Label: "Greed", Severity: SeverityNeutral},
	}
	payload, err := json.Marshal(snap)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	got, err := DecodeSnapshot[SentimentSnapshot](payload)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.Score != 0.81 || got.Provenance != ProvenanceCached || !got.Date.Equal(date) {
		t.Errorf("decoded %+v, want the original snapshot back", got)
	}
}

func TestDecodeSnapshot_RejectsForeignSchema(t *testing.T) {
	_, err := DecodeSnapshot[SentimentSnapshot]([]byte(`{"schema":2,"score":0.5}`))
	if !errors.Is(err, ErrSchemaMismatch) {
		t.Fatalf("expected ErrSchemaMismatch, got %v", err)
	}
	// A payload without a schema field decodes as schema 0 and is
	// rejected the same way.
	_, err = DecodeSnapshot[SentimentSnapshot]([]byte(`{"score":0.5}`))
	if !errors.Is(err, ErrSchemaMismatch) {
		t.Fatalf("expected ErrSchemaMismatch for a missing schema, got %v", err)
	}
}

func TestDecodeSnapshot_RejectsMalformedPayload(t *testing.T) {
	if _, err := DecodeSnapshot[RankSnapshot]([]byte(`{"schema":`)); err == nil {
		t.Fatal("expected an error for truncated JSON")
	}
}

func TestOptFloat_NaNBecomesNull(t *testing.T) {
	chart := IndexChart{
		Dates: []time.Time{
			time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
			time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC),
		},
		Values: OptSeries([]float64{math.NaN(), 101.5}),
	}
	payload, err := json.Marshal(chart)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if !strings.Contains(string(payload), `"values":[null,101.5]`) {
		t.Errorf("payload %s, want the warm-up NaN encoded as null", payload)
	}
	v := 3.5
	if got := OptFloat(v); got == nil || *got != v {
		t.Error("finite values must survive OptFloat unchanged")
	}
}

func TestSeverity_JSONNames(t *testing.T) {
	payload, err := json.Marshal(Status{Label: "Warning", Severity: SeverityBearish})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if !strings.Contains(string(payload), `"severity":"bearish"`) {
		t.Errorf("payload %s, want the severity spelled by name", payload)
	}

	var got Status
	if err := json.Unmarshal(payload, &got); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if got.Severity != SeverityBearish {
		t.Errorf("severity %v, want bearish", got.Severity)
	}

	var bad Severity
	if err := json.Unmarshal([]byte(`"panic"`), &bad); err == nil {
		t.Error("expected an error for an unknown severity name")
	}
}
