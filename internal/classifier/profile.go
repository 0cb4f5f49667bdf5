package classifier

import (
	_ "embed"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"formscan/internal/domain"
)

//go:embed keywords.yaml
var defaultKeywords []byte

// FormProfile is the keyword list and hit threshold for one form type.
type FormProfile struct {
	MinMatches int      `yaml:"min_matches"`
	Keywords   []string `yaml:"keywords"`
}

// Profile maps every specific form type to its keyword profile. Generic has
// no profile: it is what scoring falls back to.
type Profile struct {
	Forms map[domain.FormType]FormProfile `yaml:"forms"`
}

// DefaultProfile returns the embedded keyword profile.
func DefaultProfile() *Profile {
	p, err := parseProfile(defaultKeywords)
	if err != nil {
		panic(fmt.Sprintf("classifier: embedded keywords.yaml: %v", err))
	}
	return p
}

// LoadProfile reads a keyword profile from a YAML file.
func LoadProfile(path string) (*Profile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading keyword profile: %w", err)
	}
	return parseProfile(data)
}

func parseProfile(data []byte) (*Profile, error) {
	p := &Profile{}
	if err := yaml.Unmarshal(data, p); err != nil {
		return nil, fmt.Errorf("parsing keyword profile: %w", err)
	}
	if len(p.Forms) == 0 {
		return nil, fmt.Errorf("keyword profile lists no forms")
	}
	for ft, fp := range p.Forms {
		if !ft.Valid() || ft == domain.FormTypeGeneric {
			return nil, fmt.Errorf("keyword profile: %w: %q", domain.ErrUnknownFormType, ft)
		}
		if len(fp.Keywords) == 0 {
			return nil, fmt.Errorf("keyword profile: %s has no keywords", ft)
		}
		if fp.MinMatches < 1 {
			fp.MinMatches = 1
			p.Forms[ft] = fp
		}
	}
	return p, nil
}

// WithThresholds returns a copy of p with the given per-form thresholds
// applied. Keys are form type names; unknown keys are an error.
func (p *Profile) WithThresholds(overrides map[string]int) (*Profile, error) {
	out := &Profile{Forms: make(map[domain.FormType]FormProfile, len(p.Forms))}
	for ft, fp := range p.Forms {
		fp.Keywords = append([]string(nil), fp.Keywords...)
		out.Forms[ft] = fp
	}
	for key, n := range overrides {
		ft := domain.FormType(strings.ToUpper(key))
		fp, ok := out.Forms[ft]
		if !ok {
			return nil, fmt.Errorf("threshold override: %w: %q", domain.ErrUnknownFormType, key)
		}
		if n < 1 {
			n = 1
		}
		fp.MinMatches = n
		out.Forms[ft] = fp
	}
	return out, nil
}

// formTypes returns the profiled form types in classification priority order.
func (p *Profile) formTypes() []domain.FormType {
	var out []domain.FormType
	for _, ft := range domain.FormTypes() {
		if _, ok := p.Forms[ft]; ok {
			out = append(out, ft)
		}
	}
	return out
}
