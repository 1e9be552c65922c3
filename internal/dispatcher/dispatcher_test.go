package dispatcher

import (
	"testing"
	"time"

	"github.com/CryptoBitwise/Hydra-Intelligence-System/internal/intel"
)

var testBase = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func insight(competitor, kind string, threat intel.ThreatLevel) *intel.Insight {
	return &intel.Insight{
		ID:          "in-1",
		Competitor:  competitor,
		PatternKind: kind,
		Threat:      threat,
	}
}

func TestDispatcher_ThresholdFilter(t *testing.T) {
	d := New(intel.ThreatHigh, 15*time.Minute, func() time.Time { return testBase })

	tests := []struct {
		name      string
		threat    intel.ThreatLevel
		wantAlert bool
	}{
		{name: "below threshold", threat: intel.ThreatMedium, wantAlert: false},
		{name: "at threshold", threat: intel.ThreatHigh, wantAlert: true},
		{name: "above threshold", threat: intel.ThreatCritical, wantAlert: true},
		{name: "info", threat: intel.ThreatInfo, wantAlert: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			alert := d.OfferInsight(insight("acme", "pattern-"+tt.name, tt.threat))
			if (alert != nil) != tt.wantAlert {
				t.Errorf("OfferInsight(threat=%s) alert = %v, wantAlert %v", tt.threat, alert, tt.wantAlert)
			}
		})
	}

	// Below-threshold drops are silent, not counted as suppressed.
	if got := d.SuppressedCount(); got != 0 {
		t.Errorf("SuppressedCount() = %d, want 0", got)
	}
}

func TestDispatcher_Suppression(t *testing.T) {
	now := testBase
	d := New(intel.ThreatHigh, 15*time.Minute, func() time.Time { return now })

	first := d.OfferInsight(insight("acme", "cost-cutting signal", intel.ThreatHigh))
	if first == nil {
		t.Fatal("first offer returned nil, want alert")
	}
	if !first.SuppressedUntil.Equal(testBase.Add(15 * time.Minute)) {
		t.Errorf("SuppressedUntil = %v, want %v", first.SuppressedUntil, testBase.Add(15*time.Minute))
	}

	// Within cooldown: dropped and counted, even at higher severity.
	now = testBase.Add(5 * time.Minute)
	if got := d.OfferInsight(insight("acme", "cost-cutting signal", intel.ThreatCritical)); got != nil {
		t.Errorf("suppressed offer returned %v, want nil", got)
	}
	if got := d.SuppressedCount(); got != 1 {
		t.Errorf("SuppressedCount() = %d, want 1", got)
	}

	// A different subject for the same competitor is independent.
	if got := d.OfferInsight(insight("acme", "aggressive expansion", intel.ThreatHigh)); got == nil {
		t.Error("different subject suppressed, want alert")
	}

	// Same subject for a different competitor is independent.
	if got := d.OfferInsight(insight("globex", "cost-cutting signal", intel.ThreatHigh)); got == nil {
		t.Error("different competitor suppressed, want alert")
	}
}

func TestDispatcher_CooldownExpiryRefires(t *testing.T) {
	now := testBase
	d := New(intel.ThreatHigh, 15*time.Minute, func() time.Time { return now })

	first := d.OfferInsight(insight("acme", "cost-cutting signal", intel.ThreatHigh))
	if first == nil {
		t.Fatal("first offer returned nil")
	}

	// The first alert expired with its suppression window, so the re-fire
	// is a fresh alert, not a continuation.
	now = testBase.Add(16 * time.Minute)
	second := d.OfferInsight(insight("acme", "cost-cutting signal", intel.ThreatCritical))
	if second == nil {
		t.Fatal("post-cooldown offer returned nil, want new alert")
	}
	if second.SubjectID == first.SubjectID {
		t.Errorf("SubjectID reused across lifecycles: %s", second.SubjectID)
	}
	if !second.FirstSeenAt.Equal(now) {
		t.Errorf("FirstSeenAt = %v, want re-fire time %v", second.FirstSeenAt, now)
	}
	if second.Threat != intel.ThreatCritical {
		t.Errorf("Threat = %s, want critical", second.Threat)
	}
	if !second.SuppressedUntil.Equal(now.Add(15 * time.Minute)) {
		t.Errorf("SuppressedUntil = %v, want %v", second.SuppressedUntil, now.Add(15*time.Minute))
	}
}

func TestDispatcher_RefireIndependentOfSnapshot(t *testing.T) {
	refire := func(snapshotBetween bool) *intel.Alert {
		now := testBase
		d := New(intel.ThreatHigh, 15*time.Minute, func() time.Time { return now })
		d.OfferInsight(insight("acme", "cost-cutting signal", intel.ThreatHigh))

		now = testBase.Add(16 * time.Minute)
		if snapshotBetween {
			d.Snapshot("acme")
		}
		return d.OfferInsight(insight("acme", "cost-cutting signal", intel.ThreatHigh))
	}

	// Whether anyone read a snapshot between expiry and re-fire must not
	// change the re-fired alert's lifecycle fields.
	direct := refire(false)
	viaSnapshot := refire(true)
	if direct == nil || viaSnapshot == nil {
		t.Fatalf("re-fire returned nil: direct=%v snapshot=%v", direct, viaSnapshot)
	}
	want := testBase.Add(16 * time.Minute)
	if !direct.FirstSeenAt.Equal(want) {
		t.Errorf("FirstSeenAt without snapshot = %v, want %v", direct.FirstSeenAt, want)
	}
	if !viaSnapshot.FirstSeenAt.Equal(want) {
		t.Errorf("FirstSeenAt with snapshot = %v, want %v", viaSnapshot.FirstSeenAt, want)
	}
}

func TestDispatcher_NegativeCooldownAlwaysAlerts(t *testing.T) {
	now := testBase
	d := New(intel.ThreatHigh, -5*time.Minute, func() time.Time { return now })

	for i := 0; i < 3; i++ {
		if got := d.OfferInsight(insight("acme", "cost-cutting signal", intel.ThreatHigh)); got == nil {
			t.Fatalf("offer %d returned nil with negative cooldown, want alert", i)
		}
		now = now.Add(time.Second)
	}
	if got := d.SuppressedCount(); got != 0 {
		t.Errorf("SuppressedCount() = %d, want 0", got)
	}
}

func TestDispatcher_OfferSignal(t *testing.T) {
	d := New(intel.ThreatHigh, 15*time.Minute, func() time.Time { return testBase })

	sig := &intel.Signal{
		ID:         "sig-1",
		Head:       intel.HeadPriceWatch,
		Competitor: "acme",
		Threat:     intel.ThreatCritical,
	}
	alert := d.OfferSignal(sig)
	if alert == nil {
		t.Fatal("OfferSignal() = nil, want alert")
	}
	if alert.Subject != string(intel.HeadPriceWatch) {
		t.Errorf("Subject = %q, want head kind %q", alert.Subject, intel.HeadPriceWatch)
	}
}

func TestDispatcher_ForwardedAlertIsCopy(t *testing.T) {
	now := testBase
	d := New(intel.ThreatHigh, 15*time.Minute, func() time.Time { return now })

	first := d.OfferInsight(insight("acme", "cost-cutting signal", intel.ThreatHigh))
	firstThreat := first.Threat

	now = testBase.Add(16 * time.Minute)
	d.OfferInsight(insight("acme", "cost-cutting signal", intel.ThreatCritical))

	// The re-fire must not mutate the record already handed out.
	if first.Threat != firstThreat {
		t.Errorf("earlier alert mutated by re-fire: Threat = %s, want %s", first.Threat, firstThreat)
	}
}

func TestDispatcher_Snapshot(t *testing.T) {
	now := testBase
	d := New(intel.ThreatHigh, 15*time.Minute, func() time.Time { return now })

	d.OfferInsight(insight("acme", "cost-cutting signal", intel.ThreatHigh))
	d.OfferInsight(insight("acme", "aggressive expansion", intel.ThreatCritical))

	if got := d.Snapshot("acme"); len(got) != 2 {
		t.Fatalf("Snapshot() = %d alerts, want 2", len(got))
	}
	if got := d.Snapshot("globex"); got != nil {
		t.Errorf("Snapshot(globex) = %v, want nil", got)
	}

	// Lapsed alerts expire out of the snapshot.
	now = testBase.Add(20 * time.Minute)
	if got := d.Snapshot("acme"); len(got) != 0 {
		t.Errorf("Snapshot() after cooldown lapse = %d alerts, want 0", len(got))
	}
}
