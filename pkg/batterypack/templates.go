// SPDX-License-Identifier: MPL-2.0

package batterypack

import (
	"errors"
	"fmt"
	"strings"
)

// DefaultTemplateName is picked when a pack has several templates and the
// caller names none.
const DefaultTemplateName = "default"

var (
	// ErrNoTemplates is returned when a pack ships no templates at all.
	ErrNoTemplates = errors.New("pack has no templates")

	// ErrTemplateNotFound is returned when the requested template does not exist.
	ErrTemplateNotFound = errors.New("template not found")

	// ErrTemplateAmbiguous is returned when a template must be chosen but
	// none was named and there is no default.
	ErrTemplateAmbiguous = errors.New("template ambiguous")
)

type (
	// TemplateConfig is one entry of a pack's template table.
	TemplateConfig struct {
		// Path is the directory of the template inside the pack archive.
		Path string `json:"path" toml:"path"`
		// Description is shown when listing templates.
		Description string `json:"description,omitempty" toml:"description,omitempty"`
	}

	// TemplateDescriptor identifies a template archive on a distribution
	// point. Name is the archive (pack crate) name and Template the entry
	// inside it; Version may be empty to mean "latest".
	TemplateDescriptor struct {
		Name     string `json:"name"`
		Template string `json:"template,omitempty"`
		Version  string `json:"version,omitempty"`
		Source   string `json:"source,omitempty"`
	}

	// TemplateChoiceError lists the candidates when selection cannot proceed.
	TemplateChoiceError struct {
		Pack       PackName
		Requested  string
		Candidates []string
		Err        error
	}
)

// Error implements the error interface.
func (e *TemplateChoiceError) Error() string {
	available := strings.Join(e.Candidates, ", ")
	if e.Requested != "" {
		return fmt.Sprintf("%s: %q in %s (available: %s)", e.Err, e.Requested, e.Pack, available)
	}
	return fmt.Sprintf("%s: %s offers %s; pick one explicitly", e.Err, e.Pack, available)
}

// Unwrap returns the sentinel.
func (e *TemplateChoiceError) Unwrap() error { return e.Err }

// String renders the descriptor as name[@version][/template].
func (d TemplateDescriptor) String() string {
	s := d.Name
	if d.Version != "" {
		s += "@" + d.Version
	}
	if d.Template != "" {
		s += "/" + d.Template
	}
	return s
}

// SelectTemplate resolves which template of m to use. An explicit name must
// exist. Otherwise a sole template wins, then DefaultTemplateName; anything
// else is ambiguous and the caller is expected to ask the user.
func (m *PackManifest) SelectTemplate(requested string) (string, TemplateConfig, error) {
	names := m.TemplateNames()
	if len(names) == 0 {
		return "", TemplateConfig{}, fmt.Errorf("%w: %s", ErrNoTemplates, m.name)
	}

	if requested != "" {
		if cfg, ok := m.templates[requested]; ok {
			return requested, cfg, nil
		}
		return "", TemplateConfig{}, &TemplateChoiceError{Pack: m.name, Requested: requested, Candidates: names, Err: ErrTemplateNotFound}
	}

	if len(names) == 1 {
		return names[0], m.templates[names[0]], nil
	}
	if cfg, ok := m.templates[DefaultTemplateName]; ok {
		return DefaultTemplateName, cfg, nil
	}
	return "", TemplateConfig{}, &TemplateChoiceError{Pack: m.name, Candidates: names, Err: ErrTemplateAmbiguous}
}
