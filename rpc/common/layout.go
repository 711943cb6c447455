package common

import (
	"fmt"
	"os"

	"github.com/ValentinKolb/dHook/lib/derive/fizzbuzz"
	"github.com/ValentinKolb/dHook/lib/derive/wordcount"
	"github.com/ValentinKolb/dHook/lib/hook"
	"gopkg.in/yaml.v3"
)

// --------------------------------------------------------------------------
// Table layout (YAML)
// --------------------------------------------------------------------------

// TableType selects the table implementation hosting a table.
type TableType string

const (
	TableTypeLocal  TableType = "ltable" // in-memory table on this node
	TableTypeRemote TableType = "dtable" // table replicated by a raft shard
)

// HookConfig attaches a hook to a table.
type HookConfig struct {
	// Name of the hook, unique per table (default: the kind)
	Name string `yaml:"name,omitempty"`
	// Kind of the hook (fizzbuzz, wordcount)
	Kind string `yaml:"kind"`
	// Options passed to the hook on start (targets, table, column)
	Options map[string]string `yaml:"options,omitempty"`
}

// TableConfig declares a table served by the server.
type TableConfig struct {
	// ShardID is the id used to address the table (and the raft shard for dtables)
	ShardID uint64 `yaml:"id"`
	// Name of the table, used by hooks to open the table
	Name string `yaml:"name"`
	// Type of the table
	Type TableType `yaml:"type"`
	// Families declared by the table (empty = any family)
	Families []string `yaml:"families,omitempty"`
	// Hooks run after every mutation of the table, in order
	Hooks []HookConfig `yaml:"hooks,omitempty"`
}

// Layout is the set of tables served by a server.
type Layout struct {
	// MaxVersions kept per column (0 = engine default)
	MaxVersions int           `yaml:"max_versions,omitempty"`
	Tables      []TableConfig `yaml:"tables"`
}

// DefaultLayout returns a single node layout with both hooks wired:
// numbers (1) feeds fizzbuzz (2), docs (3) feeds words (4).
// Derived table names and families are taken from the derivers.
func DefaultLayout() *Layout {
	// the default column spec is a constant, it always parses
	countColumn, _ := wordcount.ParseColumn(wordcount.DefaultColumn)

	return &Layout{
		Tables: []TableConfig{
			{
				ShardID:  1,
				Name:     "numbers",
				Type:     TableTypeLocal,
				Families: []string{"n"},
				Hooks: []HookConfig{{
					Kind:    string(hook.KindFizzBuzz),
					Options: map[string]string{hook.OptTargets: "n"},
				}},
			},
			{
				ShardID:  2,
				Name:     fizzbuzz.TableName,
				Type:     TableTypeLocal,
				Families: fizzbuzz.Families(),
			},
			{
				ShardID:  3,
				Name:     "docs",
				Type:     TableTypeLocal,
				Families: []string{"text"},
				Hooks: []HookConfig{{
					Kind:    string(hook.KindWordCount),
					Options: map[string]string{hook.OptTargets: "text"},
				}},
			},
			{
				ShardID:  4,
				Name:     wordcount.DefaultTable,
				Type:     TableTypeLocal,
				Families: []string{string(countColumn.Family)},
			},
		},
	}
}

// LoadLayout reads and validates a YAML layout file.
func LoadLayout(path string) (*Layout, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read layout: %w", err)
	}
	return ParseLayout(data)
}

// ParseLayout parses and validates a YAML layout.
func ParseLayout(data []byte) (*Layout, error) {
	var l Layout
	if err := yaml.Unmarshal(data, &l); err != nil {
		return nil, fmt.Errorf("parse layout: %w", err)
	}
	if err := l.Validate(); err != nil {
		return nil, err
	}
	return &l, nil
}

// Validate checks that ids and names are unique and types are known.
// Hook names default to the hook kind.
func (l *Layout) Validate() error {
	if len(l.Tables) == 0 {
		return fmt.Errorf("layout: no tables")
	}

	ids := make(map[uint64]bool)
	names := make(map[string]bool)
	for i := range l.Tables {
		t := &l.Tables[i]
		if t.Name == "" {
			return fmt.Errorf("layout: table %d has no name", t.ShardID)
		}
		if ids[t.ShardID] {
			return fmt.Errorf("layout: duplicate table id %d", t.ShardID)
		}
		if names[t.Name] {
			return fmt.Errorf("layout: duplicate table name %s", t.Name)
		}
		ids[t.ShardID], names[t.Name] = true, true

		switch t.Type {
		case TableTypeLocal, TableTypeRemote:
		case "":
			t.Type = TableTypeLocal
		default:
			return fmt.Errorf("layout: table %s has invalid type %q", t.Name, t.Type)
		}
		if t.Type == TableTypeRemote && t.ShardID == 0 {
			return fmt.Errorf("layout: replicated table %s needs a non-zero id", t.Name)
		}

		hookNames := make(map[string]bool)
		for j := range t.Hooks {
			h := &t.Hooks[j]
			if h.Kind == "" {
				return fmt.Errorf("layout: hook %d of table %s has no kind", j, t.Name)
			}
			if h.Name == "" {
				h.Name = h.Kind
			}
			if hookNames[h.Name] {
				return fmt.Errorf("layout: duplicate hook %s on table %s", h.Name, t.Name)
			}
			hookNames[h.Name] = true
		}
	}
	return nil
}

// HasRemoteTable checks if the layout contains any replicated table
func (l *Layout) HasRemoteTable() bool {
	for _, t := range l.Tables {
		if t.Type == TableTypeRemote {
			return true
		}
	}
	return false
}
