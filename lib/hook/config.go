package hook

import (
	"errors"
	"fmt"
	"sort"

	"github.com/ValentinKolb/dHook/lib/derive"
	"github.com/ValentinKolb/dHook/lib/derive/fizzbuzz"
	"github.com/ValentinKolb/dHook/lib/derive/wordcount"
	"github.com/ValentinKolb/dHook/lib/target"
)

// Kind selects the deriver of a hook.
type Kind string

const (
	KindFizzBuzz  Kind = "fizzbuzz"
	KindWordCount Kind = "wordcount"
)

// Kinds returns all known hook kinds.
func Kinds() []Kind {
	return []Kind{KindFizzBuzz, KindWordCount}
}

// Option names recognized by OnStart.
const (
	OptTargets = "targets"
	OptTable   = "table"
	OptColumn  = "column"
)

var (
	// ErrConfig wraps every configuration error returned by OnStart.
	ErrConfig = errors.New("hook: invalid configuration")
	// ErrUnknownKind is returned by OnStart for a kind without deriver.
	ErrUnknownKind = errors.New("hook: unknown kind")
)

// ParseKind returns the kind with the given name.
func ParseKind(s string) (Kind, error) {
	for _, k := range Kinds() {
		if string(k) == s {
			return k, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownKind, s)
}

// config is the parsed, immutable configuration of a ready dispatcher.
type config struct {
	targets target.Specs
	deriver derive.Deriver
	ignored []string // options not used by the kind
}

// parseConfig validates the options for kind and builds its deriver.
func parseConfig(kind Kind, conf map[string]string) (*config, error) {
	targets, err := target.ParseSpecs(conf[OptTargets])
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrConfig, OptTargets, err)
	}

	cfg := &config{targets: targets}
	known := map[string]bool{OptTargets: true}

	switch kind {
	case KindFizzBuzz:
		cfg.deriver = fizzbuzz.New()
	case KindWordCount:
		known[OptTable], known[OptColumn] = true, true

		tableName := wordcount.DefaultTable
		if v, ok := conf[OptTable]; ok {
			if v == "" {
				return nil, fmt.Errorf("%w: %s must not be empty", ErrConfig, OptTable)
			}
			tableName = v
		}

		columnSpec := wordcount.DefaultColumn
		if v, ok := conf[OptColumn]; ok {
			columnSpec = v
		}
		column, err := wordcount.ParseColumn(columnSpec)
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %w", ErrConfig, OptColumn, err)
		}
		cfg.deriver = wordcount.New(tableName, column)
	default:
		return nil, fmt.Errorf("%w: %w: %q", ErrConfig, ErrUnknownKind, kind)
	}

	for k := range conf {
		if !known[k] {
			cfg.ignored = append(cfg.ignored, k)
		}
	}
	sort.Strings(cfg.ignored)
	return cfg, nil
}
