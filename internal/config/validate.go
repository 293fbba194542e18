package config

import (
	"fmt"
	"strings"
)

// IssueSeverity represents the severity of a configuration issue.
type IssueSeverity string

const (
	// SeverityError indicates a configuration error that should block execution.
	SeverityError IssueSeverity = "error"
	// SeverityWarning indicates a configuration warning that should be surfaced
	// to users but may not necessarily block execution.
	SeverityWarning IssueSeverity = "warning"
)

// Issue describes a single validation finding.
//
// Path is a dotted path into the config (e.g. "metrics.pushgateway_url").
type Issue struct {
	Severity IssueSeverity
	Path     string
	Message  string
}

// Error implements the error interface so an Issue can be treated as a single
// error in contexts that expect error.
func (i Issue) Error() string {
	return fmt.Sprintf("%s at %s: %s", i.Severity, i.Path, i.Message)
}

// Validate performs static checks over c and returns the findings. It does
// not mutate c.
func Validate(c Config) []Issue {
	var issues []Issue

	switch strings.ToLower(c.LogLevel) {
	case "debug", "info", "warn", "warning", "error":
	default:
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     "log_level",
			Message:  fmt.Sprintf("unknown log level %q", c.LogLevel),
		})
	}

	switch strings.ToLower(c.LogFormat) {
	case "text", "json":
	default:
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     "log_format",
			Message:  fmt.Sprintf("unknown log format %q (want text or json)", c.LogFormat),
		})
	}

	if _, err := c.Terminator(); err != nil {
		issues = append(issues, Issue{Severity: SeverityError, Path: "line_terminator", Message: err.Error()})
	}

	if c.Jobs < 1 {
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     "jobs",
			Message:  fmt.Sprintf("jobs must be >= 1, got %d", c.Jobs),
		})
	}

	issues = append(issues, validateMetrics(c.Metrics)...)
	return issues
}

func validateMetrics(m Metrics) []Issue {
	var issues []Issue
	switch m.Backend {
	case "", "none":
		if m.PushgatewayURL != "" {
			issues = append(issues, Issue{
				Severity: SeverityWarning,
				Path:     "metrics.pushgateway_url",
				Message:  "pushgateway_url is set but metrics.backend is none; metrics will not be pushed",
			})
		}
		if m.DatadogAddr != "" {
			issues = append(issues, Issue{
				Severity: SeverityWarning,
				Path:     "metrics.datadog_addr",
				Message:  "datadog_addr is set but metrics.backend is none; metrics will not be sent",
			})
		}
	case "pushgateway":
		if strings.TrimSpace(m.PushgatewayURL) == "" {
			issues = append(issues, Issue{
				Severity: SeverityError,
				Path:     "metrics.pushgateway_url",
				Message:  "pushgateway backend requires pushgateway_url",
			})
		}
		if strings.TrimSpace(m.Job) == "" {
			issues = append(issues, Issue{
				Severity: SeverityError,
				Path:     "metrics.job",
				Message:  "metrics.job must not be empty; it is used for metrics labeling",
			})
		}
	case "datadog":
		if strings.TrimSpace(m.DatadogAddr) == "" {
			issues = append(issues, Issue{
				Severity: SeverityError,
				Path:     "metrics.datadog_addr",
				Message:  "datadog backend requires datadog_addr",
			})
		}
	default:
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     "metrics.backend",
			Message:  fmt.Sprintf("unknown metrics backend %q (want none, pushgateway or datadog)", m.Backend),
		})
	}
	return issues
}

// Errors returns the error-severity issues joined as one error, or nil.
func Errors(issues []Issue) error {
	var msgs []string
	for _, iss := range issues {
		if iss.Severity == SeverityError {
			msgs = append(msgs, iss.Error())
		}
	}
	if len(msgs) == 0 {
		return nil
	}
	return fmt.Errorf("invalid configuration: %s", strings.Join(msgs, "; "))
}
