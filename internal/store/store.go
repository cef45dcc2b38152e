// Package store loads and saves the birthday configuration file.
//
// The file is TOML with a single array of tables:
//
//	[[birthdays]]
//	name = "Alice"
//	date = "29/02/1992"
//	timezone = "Europe/Paris"
//
// Keys the program does not know about, at the top level or inside an entry, are
// kept and written back on save.
package store

import (
	"bytes"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
	"github.com/tartampluch/bday/internal/config"
	"github.com/tartampluch/bday/internal/datespec"
	"github.com/tartampluch/bday/internal/engine"
)

const (
	keyBirthdays = "birthdays"
	keyName      = "name"
	keyDate      = "date"
	keyTimezone  = "timezone"
)

// ErrConfigNotFound is returned when none of the candidate paths holds a file.
var ErrConfigNotFound = errors.New(config.ErrConfigNotFound)

// IOError reports a filesystem failure on an existing configuration file.
type IOError struct {
	Path string
	Op   string
	Err  error
}

func (e *IOError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.Path, e.Err)
}

func (e *IOError) Unwrap() error { return e.Err }

// ParseError reports a syntactic or structural problem in the configuration file.
type ParseError struct {
	Path string
	Err  error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("%s %s: %v (%s)", config.ErrConfigParse, e.Path, e.Err, config.HintDeleteConfig)
}

func (e *ParseError) Unwrap() error { return e.Err }

// ConfigFile is the configuration file and its entries, in file order.
type ConfigFile struct {
	Path    string
	Entries []engine.StoredEntry

	// extra holds top-level keys other than birthdays.
	extra map[string]any
}

// New returns an empty configuration targeted at path.
func New(path string) *ConfigFile {
	return &ConfigFile{Path: path}
}

// Default returns an empty configuration targeted at DefaultPath.
func Default() *ConfigFile {
	return New(DefaultPath())
}

type record struct {
	Name     string            `toml:"name"`
	Date     datespec.DateSpec `toml:"date"`
	Timezone string            `toml:"timezone,omitempty"`
}

type document struct {
	Birthdays []record `toml:"birthdays"`
}

// Load reads the configuration. With an explicit path only that file is consulted;
// otherwise the candidates of CandidatePaths are tried in order.
func Load(explicit string) (*ConfigFile, error) {
	if explicit != "" {
		return LoadFrom([]string{explicit})
	}
	return LoadFrom(CandidatePaths())
}

// LoadFrom reads the first path that is a regular file.
func LoadFrom(paths []string) (*ConfigFile, error) {
	for _, p := range paths {
		if !isRegularFile(p) {
			continue
		}
		return loadFile(p)
	}
	return nil, ErrConfigNotFound
}

// Open loads the configuration, falling back to an empty one when no file exists.
// The fallback targets the explicit path when given, DefaultPath otherwise.
func Open(explicit string) (*ConfigFile, error) {
	cf, err := Load(explicit)
	if errors.Is(err, ErrConfigNotFound) {
		target := explicit
		if target == "" {
			target = DefaultPath()
		}
		slog.Debug(config.MsgConfigMissing,
			config.LogKeyComponent, config.CompStore,
			config.LogKeyFile, target)
		return New(target), nil
	}
	return cf, err
}

func loadFile(path string) (*ConfigFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &IOError{Path: path, Op: config.ErrConfigRead, Err: err}
	}

	var doc document
	if _, err := toml.Decode(string(data), &doc); err != nil {
		return nil, &ParseError{Path: path, Err: err}
	}

	var raw map[string]any
	if _, err := toml.Decode(string(data), &raw); err != nil {
		return nil, &ParseError{Path: path, Err: err}
	}
	rawTables := tablesOf(raw[keyBirthdays])

	cf := &ConfigFile{Path: path, extra: withoutKeys(raw, keyBirthdays)}
	for i, r := range doc.Birthdays {
		if r.Name == "" {
			return nil, &ParseError{Path: path, Err: fmt.Errorf("%s #%d: %s", keyBirthdays, i+1, config.ErrEntryName)}
		}
		if r.Date.IsZero() {
			return nil, &ParseError{Path: path, Err: fmt.Errorf("%s #%d: %s", keyBirthdays, i+1, config.ErrEntryDate)}
		}
		entry := engine.StoredEntry{Name: r.Name, Date: r.Date, Timezone: r.Timezone}
		if i < len(rawTables) {
			entry.Extra = withoutKeys(rawTables[i], keyName, keyDate, keyTimezone)
		}
		cf.Entries = append(cf.Entries, entry)
	}

	slog.Debug(config.MsgConfigLoaded,
		config.LogKeyComponent, config.CompStore,
		config.LogKeyFile, path,
		config.LogKeyCount, len(cf.Entries))
	return cf, nil
}

// Append adds an entry at the end.
func (c *ConfigFile) Append(e engine.StoredEntry) {
	c.Entries = append(c.Entries, e)
}

// Contains reports whether an entry with the same name and date already exists.
func (c *ConfigFile) Contains(e engine.StoredEntry) bool {
	name := engine.NormalizeName(e.Name)
	for _, existing := range c.Entries {
		if engine.NormalizeName(existing.Name) == name && existing.Date.Equal(e.Date) {
			return true
		}
	}
	return false
}

// Save writes the whole file, creating its directory if needed.
func (c *ConfigFile) Save() error {
	data, err := c.encode()
	if err != nil {
		return fmt.Errorf("%s: %w", config.ErrConfigEncode, err)
	}

	if dir := filepath.Dir(c.Path); dir != "" {
		if err := os.MkdirAll(dir, config.DirPermUserRWX); err != nil {
			return &IOError{Path: c.Path, Op: config.ErrConfigWrite, Err: err}
		}
	}
	if err := os.WriteFile(c.Path, data, config.FilePermUserRW); err != nil {
		return &IOError{Path: c.Path, Op: config.ErrConfigWrite, Err: err}
	}

	slog.Debug(config.MsgConfigSaved,
		config.LogKeyComponent, config.CompStore,
		config.LogKeyFile, c.Path,
		config.LogKeyCount, len(c.Entries))
	return nil
}

// encode prefers the typed document, which keeps name/date/timezone in that order.
// When unknown keys must be preserved it falls back to a generic map.
func (c *ConfigFile) encode() ([]byte, error) {
	var buf bytes.Buffer
	enc := toml.NewEncoder(&buf)

	if !c.hasExtras() {
		doc := document{Birthdays: make([]record, 0, len(c.Entries))}
		for _, e := range c.Entries {
			doc.Birthdays = append(doc.Birthdays, record{Name: e.Name, Date: e.Date, Timezone: e.Timezone})
		}
		if err := enc.Encode(doc); err != nil {
			return nil, err
		}
		return buf.Bytes(), nil
	}

	out := make(map[string]any, len(c.extra)+1)
	for k, v := range c.extra {
		out[k] = v
	}
	tables := make([]map[string]any, 0, len(c.Entries))
	for _, e := range c.Entries {
		t := make(map[string]any, len(e.Extra)+3)
		for k, v := range e.Extra {
			t[k] = v
		}
		t[keyName] = e.Name
		t[keyDate] = e.Date.String()
		if e.Timezone != "" {
			t[keyTimezone] = e.Timezone
		}
		tables = append(tables, t)
	}
	out[keyBirthdays] = tables

	if err := enc.Encode(out); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (c *ConfigFile) hasExtras() bool {
	if len(c.extra) > 0 {
		return true
	}
	for _, e := range c.Entries {
		if len(e.Extra) > 0 {
			return true
		}
	}
	return false
}

// tablesOf extracts the array of tables decoded into an untyped value.
func tablesOf(v any) []map[string]any {
	switch t := v.(type) {
	case []map[string]any:
		return t
	case []any:
		out := make([]map[string]any, 0, len(t))
		for _, item := range t {
			m, _ := item.(map[string]any)
			out = append(out, m)
		}
		return out
	default:
		return nil
	}
}

// withoutKeys copies m minus the given keys; it returns nil when nothing is left.
func withoutKeys(m map[string]any, keys ...string) map[string]any {
	var out map[string]any
	for k, v := range m {
		skip := false
		for _, key := range keys {
			if k == key {
				skip = true
				break
			}
		}
		if skip {
			continue
		}
		if out == nil {
			out = make(map[string]any)
		}
		out[k] = v
	}
	return out
}
