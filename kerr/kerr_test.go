package kerr

import "testing"

func TestErrorForCodeClassification(t *testing.T) {
	cases := []struct {
		name              string
		code              int16
		wantRetriable     bool
		wantStaleMetadata bool
		wantRebalance     bool
		wantNeedsRejoin   bool
	}{
		{"not-leader", 6, true, true, false, false},
		{"replica-not-available", 9, true, true, false, false},
		{"unknown-leader-epoch", 45, true, true, false, false},
		{"leader-not-available", 5, true, true, false, false},
		{"broker-not-available", 8, true, true, false, false},
		{"unknown-topic-or-partition", 3, true, true, false, false},
		{"network-exception", 51, true, true, false, false},
		{"not-coordinator", 16, true, true, false, false},
		{"illegal-sasl-state", 34, false, false, false, false},
		{"rebalance-in-progress", 27, false, false, true, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			pe := ErrorForCode(tc.code)
			if pe == nil {
				t.Fatalf("expected non-nil ProtocolError for code %d", tc.code)
			}
			if pe.Retriable != tc.wantRetriable {
				t.Errorf("Retriable = %v, want %v", pe.Retriable, tc.wantRetriable)
			}
			if pe.StaleMetadata != tc.wantStaleMetadata {
				t.Errorf("StaleMetadata = %v, want %v", pe.StaleMetadata, tc.wantStaleMetadata)
			}
			if pe.RebalanceInProgress != tc.wantRebalance {
				t.Errorf("RebalanceInProgress = %v, want %v", pe.RebalanceInProgress, tc.wantRebalance)
			}
			if pe.NeedsRejoin != tc.wantNeedsRejoin {
				t.Errorf("NeedsRejoin = %v, want %v", pe.NeedsRejoin, tc.wantNeedsRejoin)
			}
		})
	}
}

func TestErrorForCodeZeroIsNil(t *testing.T) {
	if ErrorForCode(0) != nil {
		t.Fatal("expected nil for error code 0")
	}
}

func TestMultipleErrorsFindBy(t *testing.T) {
	m := &MultipleErrors{}
	m.Add("topic-a", nil)
	m.Add("topic-b", New(KindProtocol, "boom"))

	if m.ErrOrNil() == nil {
		t.Fatal("expected non-nil aggregate error")
	}
	if m.FindBy("topic-a") != nil {
		t.Fatal("topic-a should have no recorded error")
	}
	if m.FindBy("topic-b") == nil {
		t.Fatal("topic-b should have a recorded error")
	}
}
