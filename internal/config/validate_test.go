package config

import (
	"strings"
	"testing"
)

// hasIssue reports whether issues contains an Issue with the given severity,
// path, and a Message containing msgSubstr.
func hasIssue(t *testing.T, issues []Issue, sev IssueSeverity, path, msgSubstr string) bool {
	t.Helper()
	for _, iss := range issues {
		if iss.Severity == sev && iss.Path == path && strings.Contains(iss.Message, msgSubstr) {
			return true
		}
	}
	return false
}

func validConfig() Config {
	return Config{
		LogLevel:       "info",
		LogFormat:      "text",
		LineTerminator: "os",
		Jobs:           1,
		Metrics:        Metrics{Backend: "none", Job: "sandpaper"},
	}
}

func TestValidate_ValidMinimal(t *testing.T) {
	t.Parallel()
	if issues := Validate(validConfig()); len(issues) != 0 {
		t.Fatalf("expected no issues, got %v", issues)
	}
	if err := Errors(nil); err != nil {
		t.Fatalf("Errors(nil) = %v", err)
	}
}

func TestValidate_Cases(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		mutate func(c *Config)
		sev    IssueSeverity
		path   string
		msg    string
	}{
		{"bad_level", func(c *Config) { c.LogLevel = "loud" }, SeverityError, "log_level", "unknown log level"},
		{"bad_format", func(c *Config) { c.LogFormat = "xml" }, SeverityError, "log_format", "unknown log format"},
		{"bad_terminator", func(c *Config) { c.LineTerminator = "cr" }, SeverityError, "line_terminator", "unknown line_terminator"},
		{"zero_jobs", func(c *Config) { c.Jobs = 0 }, SeverityError, "jobs", "jobs must be >= 1"},
		{"bad_backend", func(c *Config) { c.Metrics.Backend = "statsd" }, SeverityError, "metrics.backend", "unknown metrics backend"},
		{"push_without_url", func(c *Config) { c.Metrics.Backend = "pushgateway" }, SeverityError, "metrics.pushgateway_url", "requires pushgateway_url"},
		{"push_without_job", func(c *Config) {
			c.Metrics = Metrics{Backend: "pushgateway", PushgatewayURL: "http://x"}
		}, SeverityError, "metrics.job", "must not be empty"},
		{"datadog_without_addr", func(c *Config) { c.Metrics.Backend = "datadog" }, SeverityError, "metrics.datadog_addr", "requires datadog_addr"},
		{"addr_without_backend", func(c *Config) { c.Metrics.DatadogAddr = "127.0.0.1:8125" }, SeverityWarning, "metrics.datadog_addr", "will not be sent"},
		{"url_without_backend", func(c *Config) { c.Metrics.PushgatewayURL = "http://x" }, SeverityWarning, "metrics.pushgateway_url", "will not be pushed"},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			c := validConfig()
			tt.mutate(&c)
			issues := Validate(c)
			if !hasIssue(t, issues, tt.sev, tt.path, tt.msg) {
				t.Fatalf("expected %s issue at %s containing %q, got %v", tt.sev, tt.path, tt.msg, issues)
			}
		})
	}
}

func TestErrors_IgnoresWarnings(t *testing.T) {
	t.Parallel()
	warn := []Issue{{Severity: SeverityWarning, Path: "x", Message: "careful"}}
	if err := Errors(warn); err != nil {
		t.Fatalf("Errors(warnings) = %v, want nil", err)
	}
	err := Errors(append(warn, Issue{Severity: SeverityError, Path: "jobs", Message: "bad"}))
	if err == nil || !strings.Contains(err.Error(), "error at jobs: bad") {
		t.Fatalf("Errors = %v", err)
	}
}
