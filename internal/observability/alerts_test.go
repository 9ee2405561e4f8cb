package observability

import (
	"os"
	"path/filepath"
	"regexp"
	"testing"
	"time"

	"gopkg.in/yaml.v3"

	jobmetrics "github.com/odyssey-erp/odyssey-pos/internal/jobs"
)

type alertRule struct {
	Alert       string            `yaml:"alert"`
	Expr        string            `yaml:"expr"`
	For         string            `yaml:"for"`
	Labels      map[string]string `yaml:"labels"`
	Annotations map[string]string `yaml:"annotations"`
}

type alertGroup struct {
	Name  string      `yaml:"name"`
	Rules []alertRule `yaml:"rules"`
}

type alertFile struct {
	Groups []alertGroup `yaml:"groups"`
}

var metricName = regexp.MustCompile(`odyssey_[a-z_]+`)

func loadPOSRules(t *testing.T) []alertRule {
	t.Helper()
	data, err := os.ReadFile(filepath.Join("..", "..", "deploy", "prometheus", "alerts", "pos.yml"))
	if err != nil {
		t.Fatalf("read alert file: %v", err)
	}
	var file alertFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		t.Fatalf("unmarshal alert file: %v", err)
	}
	for _, g := range file.Groups {
		if g.Name == "pos" {
			return g.Rules
		}
	}
	t.Fatal("pos alert group missing")
	return nil
}

func TestPOSAlertRules(t *testing.T) {
	rules := loadPOSRules(t)

	expected := map[string]struct {
		severity string
		runbook  string
		metrics  []string
	}{
		"CheckoutFailureRate": {"critical", "docs/runbook-pos.md#checkout-failures", []string{"odyssey_pos_checkouts_total"}},
		"CheckoutLatency":     {"warning", "docs/runbook-pos.md#checkout-latency", []string{"odyssey_pos_checkout_duration_seconds_bucket"}},
		"StockLedgerDrift":    {"critical", "docs/runbook-pos.md#stock-drift", []string{"odyssey_inventory_drift_products"}},
		"ReconcileJobStale":   {"warning", "docs/runbook-pos.md#reconcile-stale", []string{"odyssey_job_last_success_timestamp_seconds"}},
	}
	if len(rules) != len(expected) {
		t.Fatalf("expected %d rules, got %d", len(expected), len(rules))
	}

	for _, rule := range rules {
		want, ok := expected[rule.Alert]
		if !ok {
			t.Fatalf("unexpected rule %q", rule.Alert)
		}
		if got := rule.Labels["severity"]; got != want.severity {
			t.Errorf("%s: severity %q, want %q", rule.Alert, got, want.severity)
		}
		if got := rule.Annotations["runbook"]; got != want.runbook {
			t.Errorf("%s: runbook %q, want %q", rule.Alert, got, want.runbook)
		}
		if rule.Annotations["summary"] == "" || rule.Annotations["description"] == "" {
			t.Errorf("%s: summary and description annotations are required", rule.Alert)
		}
		if _, err := time.ParseDuration(rule.For); err != nil {
			t.Errorf("%s: hold duration %q: %v", rule.Alert, rule.For, err)
		}
		used := metricName.FindAllString(rule.Expr, -1)
		if !sameSet(used, want.metrics) {
			t.Errorf("%s: expression uses %v, want %v", rule.Alert, used, want.metrics)
		}
	}
}

// A renamed collector must not leave an alert querying a series that no
// longer exists.
func TestAlertExpressionsUseExportedMetrics(t *testing.T) {
	m := NewMetrics()
	m.ObserveCheckout("failed", 10*time.Millisecond, 0)
	m.SetStockDrift(0)
	jobs := jobmetrics.NewMetrics(m.Registerer())
	_ = jobs.Track("inventory:reconcile").End(nil)

	families, err := m.registry.Gather()
	if err != nil {
		t.Fatalf("gather: %v", err)
	}
	exported := make(map[string]bool, len(families))
	for _, mf := range families {
		name := mf.GetName()
		exported[name] = true
		if mf.GetType().String() == "HISTOGRAM" {
			for _, suffix := range []string{"_bucket", "_sum", "_count"} {
				exported[name+suffix] = true
			}
		}
	}

	for _, rule := range loadPOSRules(t) {
		for _, name := range metricName.FindAllString(rule.Expr, -1) {
			if !exported[name] {
				t.Errorf("%s: expression references %s, which no collector exports", rule.Alert, name)
			}
		}
	}
}

func sameSet(got, want []string) bool {
	seen := make(map[string]bool, len(got))
	for _, g := range got {
		seen[g] = true
	}
	if len(seen) != len(want) {
		return false
	}
	for _, w := range want {
		if !seen[w] {
			return false
		}
	}
	return true
}
