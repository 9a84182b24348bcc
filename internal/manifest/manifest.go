// Package manifest describes the properties a host exchanges with the control
// and binds host property bags to session settings.
package manifest

import (
	_ "embed"
	"fmt"
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/lexiqai/live-translator/internal/config"
	"github.com/lexiqai/live-translator/internal/session"
)

//go:embed manifest.yaml
var defaultManifest []byte

// Usage is how a property flows between host and control
type Usage string

const (
	UsageInput  Usage = "input"
	UsageOutput Usage = "output"
	UsageBound  Usage = "bound" // both directions
)

// Input property names understood by Bind
const (
	PropSubscriptionKey = "subscriptionKey"
	PropRegion          = "region"
	PropSourceLanguage  = "sourceLanguage"
	PropTargetLanguage  = "targetLanguage"
	PropMicButtonColor  = "micButtonColor"
	PropStopButtonColor = "stopButtonColor"
)

// Manifest describes the control and its properties
type Manifest struct {
	Control    Control    `yaml:"control"`
	Properties []Property `yaml:"properties"`
}

type Control struct {
	Namespace   string `yaml:"namespace"`
	Name        string `yaml:"name"`
	Version     string `yaml:"version"`
	Description string `yaml:"description,omitempty"`
}

type Property struct {
	Name        string `yaml:"name"`
	Usage       Usage  `yaml:"usage"`
	Required    bool   `yaml:"required,omitempty"`
	Default     string `yaml:"default,omitempty"`
	Description string `yaml:"description,omitempty"`
}

// Binding is the result of resolving one host property bag
type Binding struct {
	Settings config.Settings
	// HostState is the host's copy of the bound state property. It never
	// drives a transition.
	HostState string
	// Unknown lists bag keys the manifest does not declare
	Unknown []string
	// Missing lists required inputs that resolved to blank
	Missing []string
}

// Default returns the manifest embedded in the binary
func Default() (*Manifest, error) {
	return Parse(defaultManifest)
}

// Load reads a manifest from disk, or returns the embedded one for an empty path
func Load(path string) (*Manifest, error) {
	if path == "" {
		return Default()
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read manifest: %w", err)
	}
	return Parse(data)
}

// Parse decodes and validates a manifest
func Parse(data []byte) (*Manifest, error) {
	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("failed to parse manifest: %w", err)
	}
	if err := m.Validate(); err != nil {
		return nil, err
	}
	return &m, nil
}

// Validate ensures the manifest declares a usable property set
func (m *Manifest) Validate() error {
	if m.Control.Name == "" {
		return fmt.Errorf("control.name is required")
	}

	outputs := session.Snapshot{}.Outputs()
	seen := make(map[string]bool, len(m.Properties))
	for _, p := range m.Properties {
		if p.Name == "" {
			return fmt.Errorf("property name is required")
		}
		if seen[p.Name] {
			return fmt.Errorf("property %q declared twice", p.Name)
		}
		seen[p.Name] = true

		switch p.Usage {
		case UsageInput:
			if !isInput(p.Name) {
				return fmt.Errorf("input property %q is not supported", p.Name)
			}
		case UsageOutput, UsageBound:
			if _, ok := outputs[p.Name]; !ok {
				return fmt.Errorf("output property %q is not produced by the control", p.Name)
			}
		default:
			return fmt.Errorf("property %q has invalid usage %q", p.Name, p.Usage)
		}
	}
	return nil
}

func isInput(name string) bool {
	switch name {
	case PropSubscriptionKey, PropRegion, PropSourceLanguage, PropTargetLanguage, PropMicButtonColor, PropStopButtonColor:
		return true
	}
	return false
}

// Property returns the named property declaration
func (m *Manifest) Property(name string) (Property, bool) {
	for _, p := range m.Properties {
		if p.Name == name {
			return p, true
		}
	}
	return Property{}, false
}

// Bind resolves a host property bag. For each input, a non-blank bag value
// wins, then base, then the manifest default.
func (m *Manifest) Bind(bag map[string]any, base config.Settings) Binding {
	var b Binding
	b.Settings = base

	for key := range bag {
		if _, ok := m.Property(key); !ok {
			b.Unknown = append(b.Unknown, key)
		}
	}
	sort.Strings(b.Unknown)

	for _, p := range m.Properties {
		value := stringValue(bag[p.Name])

		if p.Usage == UsageBound && p.Name == session.OutputState {
			b.HostState = value
			continue
		}
		if p.Usage != UsageInput {
			continue
		}

		field := settingsField(&b.Settings, p.Name)
		if value != "" {
			*field = value
		} else if strings.TrimSpace(*field) == "" {
			*field = p.Default
		}
		if p.Required && strings.TrimSpace(*field) == "" {
			b.Missing = append(b.Missing, p.Name)
		}
	}
	return b
}

// Outputs returns the snapshot values of every output and bound property
func (m *Manifest) Outputs(snap session.Snapshot) map[string]string {
	all := snap.Outputs()
	out := make(map[string]string, len(all))
	for _, p := range m.Properties {
		if p.Usage == UsageOutput || p.Usage == UsageBound {
			out[p.Name] = all[p.Name]
		}
	}
	return out
}

func settingsField(s *config.Settings, name string) *string {
	switch name {
	case PropSubscriptionKey:
		return &s.SubscriptionKey
	case PropRegion:
		return &s.Region
	case PropSourceLanguage:
		return &s.SourceLanguage
	case PropTargetLanguage:
		return &s.TargetLanguage
	case PropMicButtonColor:
		return &s.Theme.MicColor
	case PropStopButtonColor:
		return &s.Theme.StopColor
	}
	panic("manifest: unsupported input " + name)
}

func stringValue(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(t)
	default:
		return strings.TrimSpace(fmt.Sprint(t))
	}
}
