// Package commandset loads named, ordered lists of modem commands from YAML
// or JSON documents and turns them into modem.CommandSpec values.
package commandset

import (
	"bytes"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/invopop/jsonschema"
	"gopkg.in/yaml.v3"

	"i4.energy/across/atrunner/at"
	"i4.energy/across/atrunner/modem"
)

//go:embed sets/*.yaml
var builtinFS embed.FS

var (
	// ErrUnknownSet is returned by Builtin for names without an embedded set.
	ErrUnknownSet = errors.New("unknown command set")
	// ErrEmptySet is returned for documents without commands.
	ErrEmptySet = errors.New("command set has no commands")
)

// Set is a named batch of commands as written in a command set document.
type Set struct {
	Name        string    `yaml:"name" json:"name" jsonschema:"required,description=Identifier used in logs"`
	Description string    `yaml:"description,omitempty" json:"description,omitempty"`
	Commands    []Command `yaml:"commands" json:"commands" jsonschema:"required,minItems=1"`
}

// Command is one entry of a Set.
type Command struct {
	// Command is sent as is, followed by a carriage return.
	Command string `yaml:"command" json:"command" jsonschema:"required,minLength=1,example=AT+CREG?"`
	// Status requires an "OK" line in the response.
	Status bool `yaml:"status,omitempty" json:"status,omitempty"`
	// Expect must be contained in at least one response line.
	Expect string `yaml:"expect,omitempty" json:"expect,omitempty" jsonschema:"example=+CSQ:"`
	// Attempts bounds retries, defaults to 1.
	Attempts int `yaml:"attempts,omitempty" json:"attempts,omitempty" jsonschema:"minimum=1,default=1"`
	// Delay is waited after sending, before polling for the response.
	Delay string `yaml:"delay,omitempty" json:"delay,omitempty" jsonschema:"example=2s"`
	// Match selects how "OK" is detected.
	Match string `yaml:"match,omitempty" json:"match,omitempty" jsonschema:"enum=exact,enum=substring,default=exact"`
	// PollInterval and PollMax override the response poll budget.
	PollInterval string `yaml:"poll_interval,omitempty" json:"poll_interval,omitempty" jsonschema:"example=100ms"`
	PollMax      int    `yaml:"poll_max,omitempty" json:"poll_max,omitempty" jsonschema:"minimum=1"`
}

// Spec converts the entry to a validated modem.CommandSpec.
func (c Command) Spec() (modem.CommandSpec, error) {
	spec := modem.CommandSpec{
		Text:              c.Command,
		RequireStatusOK:   c.Status,
		RequiredSubstring: c.Expect,
		MaxAttempts:       c.Attempts,
	}
	if spec.MaxAttempts == 0 {
		spec.MaxAttempts = 1
	}

	policy, ok := at.ParseMatchPolicy(c.Match)
	if !ok {
		return modem.CommandSpec{}, fmt.Errorf("command %q: unknown match policy %q", c.Command, c.Match)
	}
	spec.StatusMatch = policy

	if c.Delay != "" {
		d, err := time.ParseDuration(strings.TrimSpace(c.Delay))
		if err != nil {
			return modem.CommandSpec{}, fmt.Errorf("command %q: parse delay: %w", c.Command, err)
		}
		spec.PostSendDelay = d
	}

	if c.PollInterval != "" || c.PollMax != 0 {
		spec.Poll = modem.PollBudget{Interval: modem.DefaultPollInterval, MaxPolls: modem.DefaultMaxPolls}
		if c.PollInterval != "" {
			d, err := time.ParseDuration(strings.TrimSpace(c.PollInterval))
			if err != nil {
				return modem.CommandSpec{}, fmt.Errorf("command %q: parse poll_interval: %w", c.Command, err)
			}
			spec.Poll.Interval = d
		}
		if c.PollMax != 0 {
			spec.Poll.MaxPolls = c.PollMax
		}
	}

	if err := spec.Validate(); err != nil {
		return modem.CommandSpec{}, err
	}
	return spec, nil
}

// Specs converts every command of the set, in order.
func (s *Set) Specs() ([]modem.CommandSpec, error) {
	if len(s.Commands) == 0 {
		return nil, fmt.Errorf("%s: %w", s.Name, ErrEmptySet)
	}
	specs := make([]modem.CommandSpec, 0, len(s.Commands))
	for i, c := range s.Commands {
		spec, err := c.Spec()
		if err != nil {
			return nil, fmt.Errorf("%s: command #%d: %w", s.Name, i, err)
		}
		specs = append(specs, spec)
	}
	return specs, nil
}

// Parse decodes a YAML document. JSON documents parse as well, JSON being
// a subset of YAML. Unknown fields are rejected.
func Parse(data []byte) (*Set, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	set := &Set{}
	if err := dec.Decode(set); err != nil {
		return nil, fmt.Errorf("failed to parse command set: %w", err)
	}
	if err := set.validate(); err != nil {
		return nil, err
	}
	return set, nil
}

// Load reads a command set file, choosing the decoder by extension.
func Load(file string) (*Set, error) {
	data, err := os.ReadFile(file)
	if err != nil {
		return nil, fmt.Errorf("failed to read command set: %w", err)
	}

	switch ext := filepath.Ext(file); ext {
	case ".yaml", ".yml":
		return Parse(data)
	case ".json":
		set := &Set{}
		dec := json.NewDecoder(bytes.NewReader(data))
		dec.DisallowUnknownFields()
		if err := dec.Decode(set); err != nil {
			return nil, fmt.Errorf("failed to parse JSON command set: %w", err)
		}
		if err := set.validate(); err != nil {
			return nil, err
		}
		return set, nil
	default:
		return nil, fmt.Errorf("unsupported command set format: %s", ext)
	}
}

func (s *Set) validate() error {
	if strings.TrimSpace(s.Name) == "" {
		return errors.New("command set has no name")
	}
	if len(s.Commands) == 0 {
		return fmt.Errorf("%s: %w", s.Name, ErrEmptySet)
	}
	_, err := s.Specs()
	return err
}

// Builtin returns the embedded set called name.
func Builtin(name string) (*Set, error) {
	data, err := builtinFS.ReadFile(path.Join("sets", name+".yaml"))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrUnknownSet, name)
		}
		return nil, err
	}
	return Parse(data)
}

// BuiltinNames lists the embedded sets in alphabetical order.
func BuiltinNames() []string {
	entries, err := builtinFS.ReadDir("sets")
	if err != nil {
		return nil
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, strings.TrimSuffix(e.Name(), ".yaml"))
	}
	sort.Strings(names)
	return names
}

// Resolve loads ref as a file when it names an existing path or carries a
// set file extension, and as a builtin set otherwise.
func Resolve(ref string) (*Set, error) {
	switch filepath.Ext(ref) {
	case ".yaml", ".yml", ".json":
		return Load(ref)
	}
	if _, err := os.Stat(ref); err == nil {
		return Load(ref)
	}
	return Builtin(ref)
}

// Schema describes the command set document format.
func Schema() *jsonschema.Schema {
	reflector := jsonschema.Reflector{
		ExpandedStruct:            true,
		AllowAdditionalProperties: false,
	}
	schema := reflector.Reflect(&Set{})
	schema.Title = "AT command set"
	return schema
}
