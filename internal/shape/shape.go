// Package shape draws randomized request shapes for synthetic traffic:
// which path to hit, which client identity to present, how long to idle
// between requests, and how large a burst should be.
package shape

import (
	"fmt"
	"math/rand"
	"time"

	"github.com/oklog/ulid/v2"
)

// Shape describes a single request to issue.
type Shape struct {
	Path      string
	Agent     string
	RequestID string
}

// PathOption is one weighted entry in the path table. Pick receives the
// sampler's random source so parameterized paths can vary per draw.
type PathOption struct {
	Weight int
	Pick   func(r *rand.Rand) string
}

// FixedPath returns a PathOption that always yields the same path.
func FixedPath(weight int, path string) PathOption {
	return PathOption{Weight: weight, Pick: func(*rand.Rand) string { return path }}
}

// Profile holds the shaping constants. The zero value normalizes to the
// default storefront profile; tests substitute narrower profiles to pin
// paths or shrink timings.
type Profile struct {
	Paths  []PathOption
	Agents []string

	// LongThinkOdds is the 1-in-N chance that a think pause lasts
	// LongThink instead of a short jitter from [ThinkMin, ThinkMax].
	LongThinkOdds int
	LongThink     time.Duration
	ThinkMin      time.Duration
	ThinkMax      time.Duration

	// BurstEvery is the iteration period of burst mode; a burst issues
	// between BurstMin and BurstMax extra back-to-back requests.
	BurstEvery int64
	BurstMin   int
	BurstMax   int
}

// DefaultProfile returns the storefront traffic profile: one dominant
// page, several secondary service paths, a rare login, and a rare
// cache-busting miss.
func DefaultProfile() Profile {
	return Profile{}.normalize()
}

func (p Profile) normalize() Profile {
	if len(p.Paths) == 0 {
		p.Paths = defaultPaths()
	}
	if len(p.Agents) == 0 {
		p.Agents = defaultAgents
	}
	if p.LongThinkOdds <= 0 {
		p.LongThinkOdds = 20
	}
	if p.LongThink <= 0 {
		p.LongThink = time.Second
	}
	if p.ThinkMax <= 0 {
		p.ThinkMin = 20 * time.Millisecond
		p.ThinkMax = 250 * time.Millisecond
	}
	if p.ThinkMin < 0 {
		p.ThinkMin = 0
	}
	if p.ThinkMin > p.ThinkMax {
		p.ThinkMin = p.ThinkMax
	}
	if p.BurstEvery <= 0 {
		p.BurstEvery = 50
	}
	if p.BurstMin <= 0 {
		p.BurstMin = 10
	}
	if p.BurstMax <= 0 {
		p.BurstMax = 34
	}
	if p.BurstMax < p.BurstMin {
		p.BurstMax = p.BurstMin
	}
	return p
}

func defaultPaths() []PathOption {
	return []PathOption{
		FixedPath(40, "/productpage"),
		{Weight: 22, Pick: productAPIPath},
		FixedPath(14, "/details/0"),
		FixedPath(12, "/reviews/0"),
		FixedPath(8, "/ratings/0"),
		FixedPath(2, "/login"),
		{Weight: 2, Pick: cacheBusterPath},
	}
}

// productAPIPath mostly asks for the one product the demo catalog has;
// one draw in ten substitutes a random id so the API's not-found route
// sees traffic too.
func productAPIPath(r *rand.Rand) string {
	if r.Intn(10) == 0 {
		return fmt.Sprintf("/api/v1/products/%d", 1+r.Intn(9))
	}
	return "/api/v1/products/0"
}

func cacheBusterPath(r *rand.Rand) string {
	return fmt.Sprintf("/assets/missing-%08x.js?cb=%08x", r.Uint32(), r.Uint32())
}

var defaultAgents = []string{
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.4 Safari/605.1.15",
	"Mozilla/5.0 (X11; Linux x86_64; rv:125.0) Gecko/20100101 Firefox/125.0",
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64; rv:125.0) Gecko/20100101 Firefox/125.0",
	"Mozilla/5.0 (iPhone; CPU iPhone OS 17_4 like Mac OS X) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.4 Mobile/15E148 Safari/604.1",
	"curl/8.5.0",
}

// Sampler draws shapes and timing decisions from a single owned random
// source. Each worker holds its own Sampler, so draws need no locking,
// and seeding the fleet makes a whole run reproducible.
type Sampler struct {
	rnd     *rand.Rand
	entropy *ulid.MonotonicEntropy
	profile Profile
	total   int
}

// NewSampler builds a sampler over the given profile. The profile is
// normalized first, so a zero Profile yields default shaping.
func NewSampler(seed int64, profile Profile) *Sampler {
	profile = profile.normalize()
	total := 0
	for _, opt := range profile.Paths {
		total += opt.Weight
	}
	// Request ids draw from their own source: ULID entropy consumption
	// varies with wall-clock millisecond boundaries and would otherwise
	// perturb the seeded decision stream.
	return &Sampler{
		rnd:     rand.New(rand.NewSource(seed)),
		entropy: ulid.Monotonic(rand.New(rand.NewSource(^seed)), 0),
		profile: profile,
		total:   total,
	}
}

// Next draws one request shape.
func (s *Sampler) Next() Shape {
	return Shape{
		Path:      s.pickPath(),
		Agent:     s.profile.Agents[s.rnd.Intn(len(s.profile.Agents))],
		RequestID: ulid.MustNew(ulid.Now(), s.entropy).String(),
	}
}

func (s *Sampler) pickPath() string {
	if s.total <= 0 {
		return s.profile.Paths[0].Pick(s.rnd)
	}
	n := s.rnd.Intn(s.total)
	cumulative := 0
	for _, opt := range s.profile.Paths {
		cumulative += opt.Weight
		if n < cumulative {
			return opt.Pick(s.rnd)
		}
	}
	return s.profile.Paths[len(s.profile.Paths)-1].Pick(s.rnd)
}

// ThinkTime returns the pause before the next request: usually a short
// jitter, occasionally a full LongThink to mimic a distracted user.
func (s *Sampler) ThinkTime() time.Duration {
	if s.rnd.Intn(s.profile.LongThinkOdds) == 0 {
		return s.profile.LongThink
	}
	span := int64(s.profile.ThinkMax - s.profile.ThinkMin)
	return s.profile.ThinkMin + time.Duration(s.rnd.Int63n(span+1))
}

// BurstSize returns how many extra back-to-back requests the next burst
// issues, uniform over [BurstMin, BurstMax].
func (s *Sampler) BurstSize() int {
	return s.profile.BurstMin + s.rnd.Intn(s.profile.BurstMax-s.profile.BurstMin+1)
}

// BurstEvery reports the iteration period of burst mode.
func (s *Sampler) BurstEvery() int64 {
	return s.profile.BurstEvery
}
