// Package ruleset loads a SandPaper from a YAML (or JSON) rule-set file.
//
//	name: people
//	rules:
//	  - rule: strip
//	  - rule: lower
//	    column_filter: "^email$"
//	  - rule: translate_date
//	    column_filter: ".*_date$"
//	    translations: {"YYYY-MM-DD": "YYYY"}
//	  - rule: add_columns
//	    additions:
//	      full_name: "{first} {last}"
//	      source: {literal: import}
//	      adult: {expr: "record['age'] >= 18"}
//	  - rule: order_columns
//	    order: [full_name]
//
// Mappings keep their document order. callable_filter and {expr: ...} are
// Starlark expressions, see package script.
package ruleset

import (
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/tbroadley/sandpaper/internal/script"
	"github.com/tbroadley/sandpaper/pkg/sandpaper"
)

// ErrInvalid is wrapped by every error describing a malformed rule-set.
var ErrInvalid = errors.New("invalid rule-set")

// Load reads and parses the rule-set file at path.
func Load(path string) (*sandpaper.SandPaper, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read rule-set: %w", err)
	}
	s, err := Parse(b)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return s, nil
}

// Parse builds a SandPaper from a rule-set document.
func Parse(data []byte) (*sandpaper.SandPaper, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalid, err)
	}
	if len(doc.Content) == 0 {
		return nil, fmt.Errorf("%w: empty document", ErrInvalid)
	}
	root := doc.Content[0]
	if root.Kind != yaml.MappingNode {
		return nil, invalid(root, "top level must be a mapping")
	}

	top, err := mapping(root, "name", "rules")
	if err != nil {
		return nil, err
	}

	s := sandpaper.New()
	if n, ok := top["name"]; ok {
		name, err := str(n)
		if err != nil {
			return nil, err
		}
		if err := s.SetName(name); err != nil {
			return nil, invalid(n, err.Error())
		}
	}

	rules, ok := top["rules"]
	if !ok {
		return s, nil
	}
	if rules.Kind != yaml.SequenceNode {
		return nil, invalid(rules, "rules must be a list")
	}
	for i, n := range rules.Content {
		if err := addRule(s, i, n); err != nil {
			return nil, err
		}
	}
	return s, nil
}

type builder struct {
	keys  []string
	build func(s *sandpaper.SandPaper, f fields, filters []sandpaper.FilterOption) error
}

var valueKeys = []string{"column_filter", "value_filter", "callable_filter"}

func caseRule(m func(*sandpaper.SandPaper, ...sandpaper.FilterOption) *sandpaper.SandPaper) builder {
	return builder{build: func(s *sandpaper.SandPaper, _ fields, fs []sandpaper.FilterOption) error {
		m(s, fs...)
		return nil
	}}
}

func stripRule(m func(*sandpaper.SandPaper, string, ...sandpaper.FilterOption) *sandpaper.SandPaper) builder {
	return builder{keys: []string{"content"}, build: func(s *sandpaper.SandPaper, f fields, fs []sandpaper.FilterOption) error {
		content, err := f.optString("content")
		if err != nil {
			return err
		}
		m(s, content, fs...)
		return nil
	}}
}

func amountRule(m func(*sandpaper.SandPaper, float64, ...sandpaper.FilterOption) *sandpaper.SandPaper) builder {
	return builder{keys: []string{"amount"}, build: func(s *sandpaper.SandPaper, f fields, fs []sandpaper.FilterOption) error {
		amount := 1.0
		if n, ok := f["amount"]; ok {
			if err := n.Decode(&amount); err != nil {
				return invalid(n, "amount must be a number")
			}
		}
		m(s, amount, fs...)
		return nil
	}}
}

func pairsRule(key string, m func(*sandpaper.SandPaper, []sandpaper.Pair, ...sandpaper.FilterOption) *sandpaper.SandPaper) builder {
	return builder{keys: []string{key}, build: func(s *sandpaper.SandPaper, f fields, fs []sandpaper.FilterOption) error {
		pairs, err := f.pairs(key)
		if err != nil {
			return err
		}
		m(s, pairs, fs...)
		return nil
	}}
}

// valueRules take filters; recordRules do not.
var valueRules = map[string]builder{
	"lower":          caseRule((*sandpaper.SandPaper).Lower),
	"upper":          caseRule((*sandpaper.SandPaper).Upper),
	"capitalize":     caseRule((*sandpaper.SandPaper).Capitalize),
	"title":          caseRule((*sandpaper.SandPaper).Title),
	"fold":           caseRule((*sandpaper.SandPaper).Fold),
	"normalize":      caseRule((*sandpaper.SandPaper).Normalize),
	"lstrip":         stripRule((*sandpaper.SandPaper).LStrip),
	"rstrip":         stripRule((*sandpaper.SandPaper).RStrip),
	"strip":          stripRule((*sandpaper.SandPaper).Strip),
	"increment":      amountRule((*sandpaper.SandPaper).Increment),
	"decrement":      amountRule((*sandpaper.SandPaper).Decrement),
	"replace":        pairsRule("replacements", (*sandpaper.SandPaper).Replace),
	"translate_text": pairsRule("translations", (*sandpaper.SandPaper).TranslateText),
	"translate_date": pairsRule("translations", (*sandpaper.SandPaper).TranslateDate),
	"coerce": {keys: []string{"type", "format"}, build: func(s *sandpaper.SandPaper, f fields, fs []sandpaper.FilterOption) error {
		typ, err := f.reqString("type")
		if err != nil {
			return err
		}
		format, err := f.optString("format")
		if err != nil {
			return err
		}
		s.Coerce(typ, format, fs...)
		return nil
	}},
}

var recordRules = map[string]builder{
	"add_columns": {keys: []string{"additions"}, build: func(s *sandpaper.SandPaper, f fields, _ []sandpaper.FilterOption) error {
		adds, err := f.additions("additions")
		if err != nil {
			return err
		}
		s.AddColumns(adds...)
		return nil
	}},
	"remove_columns": {keys: []string{"columns"}, build: func(s *sandpaper.SandPaper, f fields, _ []sandpaper.FilterOption) error {
		cols, err := f.strings("columns")
		if err != nil {
			return err
		}
		s.RemoveColumns(cols...)
		return nil
	}},
	"rename_columns": {keys: []string{"renames"}, build: func(s *sandpaper.SandPaper, f fields, _ []sandpaper.FilterOption) error {
		pairs, err := f.pairs("renames")
		if err != nil {
			return err
		}
		s.RenameColumns(pairs)
		return nil
	}},
	"order_columns": {keys: []string{"order", "ignore_missing"}, build: func(s *sandpaper.SandPaper, f fields, _ []sandpaper.FilterOption) error {
		order, err := f.strings("order")
		if err != nil {
			return err
		}
		var ignore bool
		if n, ok := f["ignore_missing"]; ok {
			if err := n.Decode(&ignore); err != nil {
				return invalid(n, "ignore_missing must be a boolean")
			}
		}
		s.OrderColumns(order, ignore)
		return nil
	}},
}

// RuleNames lists the rule names a rule-set file may use.
func RuleNames() []string {
	out := make([]string, 0, len(valueRules)+len(recordRules))
	for k := range valueRules {
		out = append(out, k)
	}
	for k := range recordRules {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

func addRule(s *sandpaper.SandPaper, i int, n *yaml.Node) error {
	wrap := func(name string, err error) error {
		if errors.Is(err, ErrInvalid) {
			return fmt.Errorf("rule %d (%s): %w", i, name, err)
		}
		return fmt.Errorf("%w: rule %d (%s): %w", ErrInvalid, i, name, err)
	}

	if n.Kind != yaml.MappingNode {
		return wrap("?", invalid(n, "rule must be a mapping"))
	}
	var nameNode *yaml.Node
	for j := 0; j+1 < len(n.Content); j += 2 {
		if n.Content[j].Value == "rule" {
			nameNode = n.Content[j+1]
		}
	}
	if nameNode == nil {
		return wrap("?", invalid(n, "missing rule"))
	}
	name := nameNode.Value

	b, isValue := valueRules[name]
	if !isValue {
		var ok bool
		if b, ok = recordRules[name]; !ok {
			return wrap(name, invalid(nameNode, fmt.Sprintf("unknown rule %q", name)))
		}
	}

	allowed := append([]string{"rule"}, b.keys...)
	if isValue {
		allowed = append(allowed, valueKeys...)
	}
	f, err := mapping(n, allowed...)
	if err != nil {
		return wrap(name, err)
	}

	var filters []sandpaper.FilterOption
	if isValue {
		if filters, err = f.filters(i); err != nil {
			return wrap(name, err)
		}
	}
	if err := b.build(s, f, filters); err != nil {
		return wrap(name, err)
	}
	// Registration errors are recorded on s rather than returned.
	if err := s.Err(); err != nil {
		return fmt.Errorf("%w: rule %d (%s): %w", ErrInvalid, i, name, err)
	}
	return nil
}

type fields map[string]*yaml.Node

// mapping indexes the keys of n, rejecting keys outside allowed.
func mapping(n *yaml.Node, allowed ...string) (fields, error) {
	f := make(fields, len(n.Content)/2)
	for j := 0; j+1 < len(n.Content); j += 2 {
		k, v := n.Content[j], n.Content[j+1]
		ok := false
		for _, a := range allowed {
			if k.Value == a {
				ok = true
				break
			}
		}
		if !ok {
			return nil, invalid(k, fmt.Sprintf("unknown key %q (want one of %s)", k.Value, strings.Join(allowed, ", ")))
		}
		if _, dup := f[k.Value]; dup {
			return nil, invalid(k, fmt.Sprintf("duplicate key %q", k.Value))
		}
		f[k.Value] = v
	}
	return f, nil
}

func (f fields) filters(i int) ([]sandpaper.FilterOption, error) {
	var out []sandpaper.FilterOption
	if n, ok := f["column_filter"]; ok {
		p, err := str(n)
		if err != nil {
			return nil, err
		}
		out = append(out, sandpaper.ColumnFilter(p))
	}
	if n, ok := f["value_filter"]; ok {
		p, err := str(n)
		if err != nil {
			return nil, err
		}
		out = append(out, sandpaper.ValueFilter(p))
	}
	if n, ok := f["callable_filter"]; ok {
		src, err := str(n)
		if err != nil {
			return nil, err
		}
		e, err := script.Compile(fmt.Sprintf("rule_%d_filter", i), src)
		if err != nil {
			return nil, invalid(n, err.Error())
		}
		out = append(out, sandpaper.CallableFilterAs("expr: "+src, e.Predicate))
	}
	return out, nil
}

func (f fields) optString(key string) (string, error) {
	n, ok := f[key]
	if !ok {
		return "", nil
	}
	return str(n)
}

func (f fields) reqString(key string) (string, error) {
	n, ok := f[key]
	if !ok {
		return "", fmt.Errorf("%w: missing %s", ErrInvalid, key)
	}
	return str(n)
}

func (f fields) strings(key string) ([]string, error) {
	n, ok := f[key]
	if !ok {
		return nil, fmt.Errorf("%w: missing %s", ErrInvalid, key)
	}
	if n.Kind == yaml.ScalarNode {
		s, err := str(n)
		return []string{s}, err
	}
	if n.Kind != yaml.SequenceNode {
		return nil, invalid(n, key+" must be a list of strings")
	}
	out := make([]string, 0, len(n.Content))
	for _, c := range n.Content {
		s, err := str(c)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, nil
}

// pairs reads an ordered mapping of strings.
func (f fields) pairs(key string) ([]sandpaper.Pair, error) {
	n, ok := f[key]
	if !ok {
		return nil, fmt.Errorf("%w: missing %s", ErrInvalid, key)
	}
	if n.Kind != yaml.MappingNode {
		return nil, invalid(n, key+" must be a mapping")
	}
	out := make([]sandpaper.Pair, 0, len(n.Content)/2)
	for j := 0; j+1 < len(n.Content); j += 2 {
		from, err := str(n.Content[j])
		if err != nil {
			return nil, err
		}
		to, err := str(n.Content[j+1])
		if err != nil {
			return nil, err
		}
		out = append(out, sandpaper.Pair{From: from, To: to})
	}
	return out, nil
}

// additions reads column: template | {literal: v} | {expr: src} entries.
// Non-string scalars are literals.
func (f fields) additions(key string) ([]sandpaper.Addition, error) {
	n, ok := f[key]
	if !ok {
		return nil, fmt.Errorf("%w: missing %s", ErrInvalid, key)
	}
	if n.Kind != yaml.MappingNode {
		return nil, invalid(n, key+" must be a mapping")
	}
	var out []sandpaper.Addition
	for j := 0; j+1 < len(n.Content); j += 2 {
		col, err := str(n.Content[j])
		if err != nil {
			return nil, err
		}
		v := n.Content[j+1]
		switch v.Kind {
		case yaml.ScalarNode:
			if v.Tag == "!!str" {
				out = append(out, sandpaper.Template(col, v.Value))
				continue
			}
			lit, err := scalar(v)
			if err != nil {
				return nil, err
			}
			out = append(out, sandpaper.Literal(col, lit))
		case yaml.MappingNode:
			spec, err := mapping(v, "literal", "expr", "template")
			if err != nil {
				return nil, err
			}
			if len(spec) != 1 {
				return nil, invalid(v, fmt.Sprintf("addition %q needs exactly one of literal, expr or template", col))
			}
			switch {
			case spec["literal"] != nil:
				lit, err := scalar(spec["literal"])
				if err != nil {
					return nil, err
				}
				out = append(out, sandpaper.Literal(col, lit))
			case spec["template"] != nil:
				t, err := str(spec["template"])
				if err != nil {
					return nil, err
				}
				out = append(out, sandpaper.Template(col, t))
			default:
				src, err := str(spec["expr"])
				if err != nil {
					return nil, err
				}
				e, err := script.Compile(col, src)
				if err != nil {
					return nil, invalid(spec["expr"], err.Error())
				}
				out = append(out, sandpaper.ComputedAs(col, "expr: "+src, e.Compute))
			}
		default:
			return nil, invalid(v, fmt.Sprintf("addition %q must be a string or a mapping", col))
		}
	}
	return out, nil
}

func str(n *yaml.Node) (string, error) {
	if n.Kind != yaml.ScalarNode {
		return "", invalid(n, "expected a string")
	}
	return n.Value, nil
}

// scalar decodes a literal the way readers type cells: whole numbers as
// int64, other numbers as float64.
func scalar(n *yaml.Node) (any, error) {
	if n.Kind != yaml.ScalarNode {
		return nil, invalid(n, "literal must be a scalar")
	}
	switch n.Tag {
	case "!!null":
		return nil, nil
	case "!!int":
		var i int64
		if err := n.Decode(&i); err != nil {
			return nil, invalid(n, err.Error())
		}
		return i, nil
	case "!!float":
		var f float64
		if err := n.Decode(&f); err != nil {
			return nil, invalid(n, err.Error())
		}
		return f, nil
	case "!!bool":
		var b bool
		if err := n.Decode(&b); err != nil {
			return nil, invalid(n, err.Error())
		}
		return b, nil
	default:
		return n.Value, nil
	}
}

func invalid(n *yaml.Node, msg string) error {
	return fmt.Errorf("%w: line %d: %s", ErrInvalid, n.Line, msg)
}
