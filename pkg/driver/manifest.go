package driver

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/delyan-kirov/BC/pkg/foreign"
)

// ManifestFileName is the project manifest looked up by FindManifest.
const ManifestFileName = "bc.yml"

// ErrManifestNotFound is returned when no manifest exists in a directory or
// any of its parents.
var ErrManifestNotFound = errors.New(ManifestFileName + " not found")

// Manifest represents the parsed contents of bc.yml.
type Manifest struct {
	Path    string
	Name    string
	Entry   string
	Trace   bool
	Arena   ArenaConfig
	Limits  LimitsConfig
	Foreign []ForeignSpec
}

// ArenaConfig sizes the per-load arena.
type ArenaConfig struct {
	BlockSize int   `yaml:"block_size"`
	MaxBytes  int64 `yaml:"max_bytes"`
}

// LimitsConfig bounds recursion in the lexer and evaluator.
type LimitsConfig struct {
	MaxDepth   int `yaml:"max_depth"`
	MaxNesting int `yaml:"max_nesting"`
}

// ForeignSpec exposes a host routine under a language-level name.
type ForeignSpec struct {
	Name    string     `yaml:"name"`
	Host    string     `yaml:"host"`
	Args    stringList `yaml:"args"`
	Returns string     `yaml:"returns"`
}

// ValidationError aggregates manifest validation failures.
type ValidationError struct {
	Issues []string
}

func (e *ValidationError) Error() string {
	if len(e.Issues) == 0 {
		return "manifest: invalid configuration"
	}
	var b strings.Builder
	b.WriteString("manifest validation failed:")
	for _, issue := range e.Issues {
		b.WriteString("\n- ")
		b.WriteString(issue)
	}
	return b.String()
}

type manifestFile struct {
	Name    string        `yaml:"name"`
	Entry   string        `yaml:"entry"`
	Trace   bool          `yaml:"trace"`
	Arena   ArenaConfig   `yaml:"arena"`
	Limits  LimitsConfig  `yaml:"limits"`
	Foreign []ForeignSpec `yaml:"foreign"`
}

// stringList accepts either a YAML sequence or a comma separated scalar.
type stringList []string

func (s *stringList) UnmarshalYAML(value *yaml.Node) error {
	switch value.Kind {
	case yaml.ScalarNode:
		if value.Tag == "!!null" || strings.TrimSpace(value.Value) == "" {
			*s = nil
			return nil
		}
		parts := strings.Split(value.Value, ",")
		out := make([]string, 0, len(parts))
		for _, part := range parts {
			out = append(out, strings.TrimSpace(part))
		}
		*s = out
		return nil
	case yaml.SequenceNode:
		var items []string
		if err := value.Decode(&items); err != nil {
			return err
		}
		*s = items
		return nil
	default:
		return fmt.Errorf("manifest: expected a list of types")
	}
}

// LoadManifest parses bc.yml from disk, returning a validated manifest.
func LoadManifest(path string) (*Manifest, error) {
	if path == "" {
		return nil, fmt.Errorf("manifest: empty path")
	}
	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("manifest: resolve %s: %w", path, err)
	}
	file, err := os.Open(absPath)
	if err != nil {
		return nil, fmt.Errorf("manifest: open %s: %w", absPath, err)
	}
	defer file.Close()
	return ParseManifest(file, absPath)
}

// ParseManifest decodes a manifest from r. path is recorded for resolving
// the entry file.
func ParseManifest(r io.Reader, path string) (*Manifest, error) {
	decoder := yaml.NewDecoder(r)
	decoder.KnownFields(true)

	var raw manifestFile
	if err := decoder.Decode(&raw); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("manifest: %s is empty", path)
		}
		return nil, fmt.Errorf("manifest: parse %s: %w", path, err)
	}

	manifest := raw.toManifest(path)
	if err := manifest.validate(); err != nil {
		return nil, err
	}
	return manifest, nil
}

func (mf manifestFile) toManifest(path string) *Manifest {
	m := &Manifest{
		Path:   path,
		Name:   strings.TrimSpace(mf.Name),
		Entry:  strings.TrimSpace(mf.Entry),
		Trace:  mf.Trace,
		Arena:  mf.Arena,
		Limits: mf.Limits,
	}
	for _, spec := range mf.Foreign {
		spec.Name = strings.TrimSpace(spec.Name)
		spec.Host = strings.TrimSpace(spec.Host)
		spec.Returns = strings.TrimSpace(spec.Returns)
		if spec.Host == "" {
			spec.Host = spec.Name
		}
		m.Foreign = append(m.Foreign, spec)
	}
	return m
}

func (m *Manifest) validate() error {
	var issues []string
	if m.Entry != "" && filepath.Ext(m.Entry) != ".se" {
		issues = append(issues, fmt.Sprintf("entry %q must be a .se file", m.Entry))
	}
	if m.Arena.BlockSize < 0 {
		issues = append(issues, "arena.block_size must not be negative")
	}
	if m.Arena.MaxBytes < 0 {
		issues = append(issues, "arena.max_bytes must not be negative")
	}
	if m.Limits.MaxDepth < 0 {
		issues = append(issues, "limits.max_depth must not be negative")
	}
	if m.Limits.MaxNesting < 0 {
		issues = append(issues, "limits.max_nesting must not be negative")
	}
	seen := make(map[string]struct{}, len(m.Foreign))
	for idx, spec := range m.Foreign {
		label := "foreign[" + strconv.Itoa(idx) + "]"
		if spec.Name == "" {
			issues = append(issues, label+": name is required")
			continue
		}
		label = fmt.Sprintf("foreign %q", spec.Name)
		if _, dup := seen[spec.Name]; dup {
			issues = append(issues, label+": declared more than once")
		}
		seen[spec.Name] = struct{}{}
		if _, err := spec.Descriptor(); err != nil {
			issues = append(issues, fmt.Sprintf("%s: %v", label, err))
		}
	}
	if len(issues) > 0 {
		return &ValidationError{Issues: issues}
	}
	return nil
}

// Descriptor converts the declaration into a call descriptor.
func (s ForeignSpec) Descriptor() (foreign.Descriptor, error) {
	desc := foreign.Descriptor{Name: s.Name}
	for _, arg := range s.Args {
		t, err := foreign.ParseType(arg)
		if err != nil {
			return desc, err
		}
		if t == foreign.Void {
			return desc, fmt.Errorf("void is not an argument type")
		}
		desc.Args = append(desc.Args, t)
	}
	returns := s.Returns
	if returns == "" {
		returns = "void"
	}
	t, err := foreign.ParseType(returns)
	if err != nil {
		return desc, err
	}
	desc.Return = t
	return desc, nil
}

// Bind registers every foreign alias of the manifest in table.
func (m *Manifest) Bind(table *foreign.Table) error {
	for _, spec := range m.Foreign {
		desc, err := spec.Descriptor()
		if err != nil {
			return fmt.Errorf("manifest: foreign %q: %w", spec.Name, err)
		}
		if spec.Host == spec.Name {
			if entry, ok := table.Lookup(spec.Name); ok {
				if !entry.SameSignature(desc) {
					return fmt.Errorf("manifest: foreign %q declared as %s but host routine is %s", spec.Name, desc, entry.Descriptor)
				}
				continue
			}
		}
		if err := table.Alias(spec.Host, desc); err != nil {
			return fmt.Errorf("manifest: %w", err)
		}
	}
	return nil
}

// EntryPath resolves the entry file relative to the manifest.
func (m *Manifest) EntryPath() string {
	if m.Entry == "" || filepath.IsAbs(m.Entry) {
		return m.Entry
	}
	return filepath.Join(filepath.Dir(m.Path), m.Entry)
}

// Dir is the directory holding the manifest.
func (m *Manifest) Dir() string { return filepath.Dir(m.Path) }

// ApplyEnv lets BC_TRACE override the manifest's trace flag.
func (m *Manifest) ApplyEnv(getenv func(string) string) {
	switch strings.ToLower(strings.TrimSpace(getenv("BC_TRACE"))) {
	case "1", "true", "yes", "on":
		m.Trace = true
	case "0", "false", "no", "off":
		m.Trace = false
	}
}

// FindManifest walks up from dir looking for bc.yml.
func FindManifest(dir string) (string, error) {
	current, err := filepath.Abs(dir)
	if err != nil {
		return "", err
	}
	for {
		candidate := filepath.Join(current, ManifestFileName)
		info, err := os.Stat(candidate)
		if err == nil && !info.IsDir() {
			return candidate, nil
		}
		if err != nil && !errors.Is(err, os.ErrNotExist) {
			return "", err
		}
		parent := filepath.Dir(current)
		if parent == current {
			return "", ErrManifestNotFound
		}
		current = parent
	}
}
