package worker

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"familybudget/internal/core"
	applog "familybudget/internal/log"
)

type fakePublisher struct {
	alerts []core.Alert
}

func (p *fakePublisher) PublishAlert(_ context.Context, a core.Alert) error {
	p.alerts = append(p.alerts, a)
	return nil
}

func TestPublisherSink(t *testing.T) {
	p := &fakePublisher{}
	a := core.Alert{Kind: core.AlertMonthly, Key: "monthly:2024-02", FamilyID: "fam"}
	if err := NewPublisherSink(p).Deliver(context.Background(), a); err != nil {
		t.Fatal(err)
	}
	if len(p.alerts) != 1 || p.alerts[0].Key != a.Key {
		t.Errorf("published %+v", p.alerts)
	}
}

func TestLogSink(t *testing.T) {
	var buf bytes.Buffer
	cfg := applog.DefaultConfig()
	cfg.Output = &buf
	logger := applog.New(cfg)

	a := core.Alert{Kind: core.AlertDaily, Key: "daily:2024-05-10", FamilyID: "fam", Message: "Daily limit exceeded"}
	if err := NewLogSink(logger).Deliver(context.Background(), a); err != nil {
		t.Fatal(err)
	}
	out := buf.String()
	for _, want := range []string{"Daily limit exceeded", "alert_key=daily:2024-05-10", "family_id=fam"} {
		if !strings.Contains(out, want) {
			t.Errorf("log output %q missing %q", out, want)
		}
	}
}

func TestLogSink_UsesContextLogger(t *testing.T) {
	var buf bytes.Buffer
	cfg := applog.DefaultConfig()
	cfg.Output = &buf
	ctx := applog.NewContext(context.Background(), applog.New(cfg))

	a := core.Alert{Kind: core.AlertSingle, Key: "entry:e1", FamilyID: "fam", Message: "Expense too large"}
	if err := NewLogSink(nil).Deliver(ctx, a); err != nil {
		t.Fatal(err)
	}
	if out := buf.String(); !strings.Contains(out, "Expense too large") || !strings.Contains(out, "alert_kind=single") {
		t.Errorf("log output %q", out)
	}
}
