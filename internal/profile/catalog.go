package profile

import (
	"fmt"
	"strings"

	"pressbox/internal/services"
)

// Catalog maps profile names to compression parameters. Resolution is pure:
// no side effects, stable ordering for display.
type Catalog struct {
	ordered []Profile
	byName  map[string]Profile
}

// NewCatalog builds a catalog from the provided profiles, rejecting duplicate
// names, invalid parameters, and monotonicity violations.
func NewCatalog(profiles []Profile) (*Catalog, error) {
	c := &Catalog{
		ordered: make([]Profile, 0, len(profiles)),
		byName:  make(map[string]Profile, len(profiles)),
	}
	for _, p := range profiles {
		if err := p.Validate(); err != nil {
			return nil, err
		}
		key := strings.ToLower(strings.TrimSpace(p.Name))
		if _, exists := c.byName[key]; exists {
			return nil, fmt.Errorf("duplicate profile %q", p.Name)
		}
		c.byName[key] = p
		c.ordered = append(c.ordered, p)
	}
	if err := c.checkMonotonic(); err != nil {
		return nil, err
	}
	return c, nil
}

// checkMonotonic enforces the speed/quality tradeoff invariant: a profile with
// a higher quality score must never have both a strictly worse scale factor
// and a strictly worse frame stride than a lower-quality profile.
func (c *Catalog) checkMonotonic() error {
	for _, hi := range c.ordered {
		for _, lo := range c.ordered {
			if hi.QualityScore <= lo.QualityScore {
				continue
			}
			if hi.ScaleFactor < lo.ScaleFactor && hi.FrameStride > lo.FrameStride {
				return fmt.Errorf(
					"profile %s (quality %d) dominated by %s (quality %d) on both scale and stride",
					hi.Name, hi.QualityScore, lo.Name, lo.QualityScore,
				)
			}
		}
	}
	return nil
}

// Resolve returns the profile registered under name.
func (c *Catalog) Resolve(name string) (Profile, error) {
	key := strings.ToLower(strings.TrimSpace(name))
	if p, ok := c.byName[key]; ok {
		return p, nil
	}
	return Profile{}, services.Wrap(
		services.ErrProfileNotFound,
		"profile",
		"resolve",
		fmt.Sprintf("unknown compression profile %q", name),
		nil,
	)
}

// Profiles returns the catalog contents in registration order.
func (c *Catalog) Profiles() []Profile {
	cp := make([]Profile, len(c.ordered))
	copy(cp, c.ordered)
	return cp
}

// Names returns the ordered profile names.
func (c *Catalog) Names() []string {
	names := make([]string, 0, len(c.ordered))
	for _, p := range c.ordered {
		names = append(names, p.Name)
	}
	return names
}

var defaultCatalog = mustCatalog([]Profile{
	{Name: "maximum-speed", ScaleFactor: 0.30, TargetFrameRate: 8, FrameStride: 8, VideoBitrateBps: 200_000, QualityScore: 1},
	{Name: "high-speed", ScaleFactor: 0.40, TargetFrameRate: 12, FrameStride: 6, VideoBitrateBps: 300_000, QualityScore: 2},
	{Name: "fast", ScaleFactor: 0.50, TargetFrameRate: 15, FrameStride: 4, VideoBitrateBps: 500_000, QualityScore: 3},
	{Name: "rapid", ScaleFactor: 0.60, TargetFrameRate: 20, FrameStride: 3, VideoBitrateBps: 800_000, QualityScore: 4},
	{Name: "balanced", ScaleFactor: 0.75, TargetFrameRate: 24, FrameStride: 2, VideoBitrateBps: 2_500_000, AudioBitrateBps: 128_000, QualityScore: 7},
	{Name: "high", ScaleFactor: 0.85, TargetFrameRate: 30, FrameStride: 1, VideoBitrateBps: 3_000_000, AudioBitrateBps: 128_000, QualityScore: 9},
	{Name: "premium", ScaleFactor: 0.90, TargetFrameRate: 30, FrameStride: 1, VideoBitrateBps: 4_000_000, AudioBitrateBps: 128_000, QualityScore: 10},
})

func mustCatalog(profiles []Profile) *Catalog {
	c, err := NewCatalog(profiles)
	if err != nil {
		panic(err)
	}
	return c
}

// DefaultCatalog returns the built-in profile table. The catalog is immutable;
// callers receive the shared instance.
func DefaultCatalog() *Catalog {
	return defaultCatalog
}
