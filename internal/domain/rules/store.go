package rules

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/rawbytes"
	"github.com/knadh/koanf/v2"

	"github.com/okian/riskmap/internal/domain/landmark"
)

// Default values applied to rule definitions that omit optional fields.
const (
	defaultBlendFactor = 0.5
	defaultFillColor   = "#FF4D4D"
	defaultOpacity     = 0.25
	defaultStrokeStyle = "solid"
)

// A clamp region needs at least three landmarks to span a convex hull.
const minClampRegionSize = 3

// Option applies a configuration option to the Store.
type Option func(*Store)

// WithRulesDir loads rule files from a directory instead of the embedded
// defaults. Every *.yaml file in the directory defines one area.
func WithRulesDir(dir string) Option {
	return func(s *Store) {
		s.rulesDir = dir
	}
}

// Store holds one validated, immutable RuleSet per treatment area. All
// loading and validation happens in NewStore so a malformed rule file
// fails at startup, never mid-request. A Store is safe for concurrent
// readers.
type Store struct {
	topo     *landmark.Topology
	rulesDir string
	sets     map[string]*RuleSet
}

// NewStore loads and validates all rule files. It returns
// ErrConfiguration when any file fails schema validation or references a
// landmark the topology does not know.
func NewStore(topo *landmark.Topology, opts ...Option) (*Store, error) {
	s := &Store{
		topo: topo,
		sets: make(map[string]*RuleSet),
	}
	for _, opt := range opts {
		opt(s)
	}

	files, err := s.readRuleFiles()
	if err != nil {
		return nil, err
	}

	v := validator.New(validator.WithRequiredStructEnabled())
	for name, data := range files {
		set, err := parseRuleSet(data)
		if err != nil {
			return nil, fmt.Errorf("rule file %s: %w: %w", name, ErrConfiguration, err)
		}
		applyDefaults(set)
		if err := v.Struct(set); err != nil {
			return nil, fmt.Errorf("rule file %s: %w: %w", name, ErrConfiguration, err)
		}
		if err := s.validateAnchors(set); err != nil {
			return nil, fmt.Errorf("rule file %s: %w", name, err)
		}
		area := strings.ToLower(set.Area)
		if _, exists := s.sets[area]; exists {
			return nil, fmt.Errorf("duplicate area %q: %w", area, ErrConfiguration)
		}
		s.sets[area] = set
	}
	if len(s.sets) == 0 {
		return nil, fmt.Errorf("no rule files found: %w", ErrConfiguration)
	}
	return s, nil
}

// Get returns the validated rule set for the area, or ErrUnknownArea.
func (s *Store) Get(area string) (*RuleSet, error) {
	set, ok := s.sets[strings.ToLower(strings.TrimSpace(area))]
	if !ok {
		return nil, fmt.Errorf("area %q: %w", area, ErrUnknownArea)
	}
	return set, nil
}

// Areas returns all loaded area names, sorted.
func (s *Store) Areas() []string {
	areas := make([]string, 0, len(s.sets))
	for area := range s.sets {
		areas = append(areas, area)
	}
	sort.Strings(areas)
	return areas
}

// readRuleFiles returns raw YAML per file, from the configured directory
// or the embedded defaults.
func (s *Store) readRuleFiles() (map[string][]byte, error) {
	files := make(map[string][]byte)
	if s.rulesDir != "" {
		entries, err := os.ReadDir(s.rulesDir)
		if err != nil {
			return nil, fmt.Errorf("read rules dir: %w: %w", ErrConfiguration, err)
		}
		for _, e := range entries {
			if e.IsDir() || !strings.HasSuffix(e.Name(), ".yaml") {
				continue
			}
			data, err := os.ReadFile(filepath.Join(s.rulesDir, e.Name()))
			if err != nil {
				return nil, fmt.Errorf("read rule file %s: %w: %w", e.Name(), ErrConfiguration, err)
			}
			files[e.Name()] = data
		}
		return files, nil
	}

	entries, err := defaultRules.ReadDir("assets")
	if err != nil {
		return nil, fmt.Errorf("read embedded rules: %w: %w", ErrConfiguration, err)
	}
	for _, e := range entries {
		data, err := defaultRules.ReadFile("assets/" + e.Name())
		if err != nil {
			return nil, fmt.Errorf("read embedded rule file %s: %w: %w", e.Name(), ErrConfiguration, err)
		}
		files[e.Name()] = data
	}
	return files, nil
}

func parseRuleSet(data []byte) (*RuleSet, error) {
	k := koanf.New(".")
	if err := k.Load(rawbytes.Provider(data), yaml.Parser()); err != nil {
		return nil, fmt.Errorf("parse yaml: %w", err)
	}
	var set RuleSet
	if err := k.UnmarshalWithConf("", &set, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, fmt.Errorf("unmarshal rule set: %w", err)
	}
	return &set, nil
}

func applyDefaults(set *RuleSet) {
	for i := range set.Points {
		p := &set.Points[i]
		if p.Kind == PointBoneProjected && p.BlendFactor == 0 {
			p.BlendFactor = defaultBlendFactor
		}
	}
	for i := range set.Zones {
		z := &set.Zones[i]
		if z.Style.FillColor == "" {
			z.Style.FillColor = defaultFillColor
		}
		if z.Style.Opacity == 0 {
			z.Style.Opacity = defaultOpacity
		}
		if z.Style.StrokeStyle == "" {
			z.Style.StrokeStyle = defaultStrokeStyle
		}
	}
}

// validateAnchors checks every landmark reference in the set against the
// topology. A rule referencing an unknown anchor is a configuration
// error, not a runtime fallback case.
func (s *Store) validateAnchors(set *RuleSet) error {
	seen := make(map[string]bool)
	for region, members := range set.ClampRegions {
		if len(members) < minClampRegionSize {
			return fmt.Errorf("clamp region %q has %d landmarks, need %d: %w",
				region, len(members), minClampRegionSize, ErrConfiguration)
		}
		for _, name := range members {
			if !s.topo.Knows(name) {
				return fmt.Errorf("clamp region %q references unknown landmark %q: %w", region, name, ErrConfiguration)
			}
		}
	}
	for _, p := range set.Points {
		if seen[p.ID] {
			return fmt.Errorf("duplicate rule id %q: %w", p.ID, ErrConfiguration)
		}
		seen[p.ID] = true
		for _, name := range p.Anchors {
			if !s.topo.Knows(name) {
				return fmt.Errorf("point rule %q references unknown anchor %q: %w", p.ID, name, ErrConfiguration)
			}
		}
		if p.Kind == PointBoneProjected {
			if p.BoneAnchor == "" {
				return fmt.Errorf("point rule %q is bone-projected but has no bone anchor: %w", p.ID, ErrConfiguration)
			}
			if !s.topo.Knows(p.BoneAnchor) {
				return fmt.Errorf("point rule %q references unknown bone anchor %q: %w", p.ID, p.BoneAnchor, ErrConfiguration)
			}
		}
		if p.ClampRegion != "" {
			if _, ok := set.ClampRegions[p.ClampRegion]; !ok {
				return fmt.Errorf("point rule %q references undefined clamp region %q: %w", p.ID, p.ClampRegion, ErrConfiguration)
			}
		}
	}
	for _, z := range set.Zones {
		if seen[z.ID] {
			return fmt.Errorf("duplicate rule id %q: %w", z.ID, ErrConfiguration)
		}
		seen[z.ID] = true
		for _, name := range z.Anchors {
			if !s.topo.Knows(name) {
				return fmt.Errorf("zone rule %q references unknown anchor %q: %w", z.ID, name, ErrConfiguration)
			}
		}
		switch z.Kind {
		case ZonePolylineBuffer:
			if len(z.Anchors) < 2 {
				return fmt.Errorf("zone rule %q needs at least two anchors for a polyline: %w", z.ID, ErrConfiguration)
			}
			if z.BufferPx <= 0 {
				return fmt.Errorf("zone rule %q needs a positive buffer distance: %w", z.ID, ErrConfiguration)
			}
		case ZoneCircleAroundAnchor:
			if z.RadiusPx <= 0 && z.RadiusUnit <= 0 {
				return fmt.Errorf("zone rule %q needs a positive radius: %w", z.ID, ErrConfiguration)
			}
		}
	}
	return nil
}
