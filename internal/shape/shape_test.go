package shape

import (
	"strings"
	"testing"
)

func pathBucket(path string) string {
	switch {
	case path == "/productpage":
		return "productpage"
	case strings.HasPrefix(path, "/api/v1/products/"):
		return "api"
	case path == "/details/0":
		return "details"
	case path == "/reviews/0":
		return "reviews"
	case path == "/ratings/0":
		return "ratings"
	case path == "/login":
		return "login"
	case strings.HasPrefix(path, "/assets/missing-"):
		return "assets"
	default:
		return ""
	}
}

func TestPathDistribution(t *testing.T) {
	s := NewSampler(42, DefaultProfile())

	const draws = 100000
	counts := map[string]int{}
	for i := 0; i < draws; i++ {
		sh := s.Next()
		bucket := pathBucket(sh.Path)
		if bucket == "" {
			t.Fatalf("draw %d: path %q not in the enumerated set", i, sh.Path)
		}
		counts[bucket]++
	}

	want := map[string]float64{
		"productpage": 0.40,
		"api":         0.22,
		"details":     0.14,
		"reviews":     0.12,
		"ratings":     0.08,
		"login":       0.02,
		"assets":      0.02,
	}
	for bucket, fraction := range want {
		got := float64(counts[bucket]) / draws
		if got < fraction-0.02 || got > fraction+0.02 {
			t.Errorf("bucket %s: fraction %.4f, want %.2f +/- 0.02", bucket, got, fraction)
		}
	}
}

func TestProductAPIParameterSplit(t *testing.T) {
	s := NewSampler(7, DefaultProfile())

	fixed, randomized := 0, 0
	for i := 0; i < 200000; i++ {
		path := s.Next().Path
		switch {
		case path == "/api/v1/products/0":
			fixed++
		case strings.HasPrefix(path, "/api/v1/products/"):
			randomized++
		}
	}
	total := fixed + randomized
	if total == 0 {
		t.Fatal("no API paths drawn")
	}
	got := float64(fixed) / float64(total)
	if got < 0.87 || got > 0.93 {
		t.Errorf("fixed-parameter fraction = %.4f, want about 0.9", got)
	}
}

func TestCacheBusterCarriesQueryToken(t *testing.T) {
	s := NewSampler(13, DefaultProfile())

	for i := 0; i < 100000; i++ {
		path := s.Next().Path
		if !strings.HasPrefix(path, "/assets/missing-") {
			continue
		}
		if !strings.Contains(path, "?cb=") {
			t.Fatalf("cache-buster path %q has no query token", path)
		}
		return
	}
	t.Fatal("no cache-buster path drawn in 100000 draws")
}

func TestThinkTimeRange(t *testing.T) {
	prof := DefaultProfile()
	s := NewSampler(3, prof)

	long := 0
	const draws = 20000
	for i := 0; i < draws; i++ {
		d := s.ThinkTime()
		if d == prof.LongThink {
			long++
			continue
		}
		if d < prof.ThinkMin || d > prof.ThinkMax {
			t.Fatalf("think time %v outside [%v, %v]", d, prof.ThinkMin, prof.ThinkMax)
		}
	}
	got := float64(long) / draws
	if got < 0.03 || got > 0.07 {
		t.Errorf("long-think fraction = %.4f, want about 0.05", got)
	}
}

func TestBurstSizeBounds(t *testing.T) {
	prof := DefaultProfile()
	s := NewSampler(11, prof)

	seen := map[int]bool{}
	for i := 0; i < 10000; i++ {
		n := s.BurstSize()
		if n < prof.BurstMin || n > prof.BurstMax {
			t.Fatalf("burst size %d outside [%d, %d]", n, prof.BurstMin, prof.BurstMax)
		}
		seen[n] = true
	}
	if !seen[prof.BurstMin] || !seen[prof.BurstMax] {
		t.Errorf("bounds never drawn in 10000 tries: min=%v max=%v", seen[prof.BurstMin], seen[prof.BurstMax])
	}
}

func TestRequestIDs(t *testing.T) {
	s := NewSampler(5, DefaultProfile())

	seen := make(map[string]bool, 10000)
	for i := 0; i < 10000; i++ {
		id := s.Next().RequestID
		if len(id) != 26 {
			t.Fatalf("request id %q: want 26 characters", id)
		}
		if seen[id] {
			t.Fatalf("duplicate request id %q after %d draws", id, i)
		}
		seen[id] = true
	}
}

func TestSeededDrawsRepeat(t *testing.T) {
	a := NewSampler(99, DefaultProfile())
	b := NewSampler(99, DefaultProfile())

	for i := 0; i < 1000; i++ {
		as, bs := a.Next(), b.Next()
		if as.Path != bs.Path || as.Agent != bs.Agent {
			t.Fatalf("draw %d diverged: (%s, %s) vs (%s, %s)", i, as.Path, as.Agent, bs.Path, bs.Agent)
		}
		if at, bt := a.ThinkTime(), b.ThinkTime(); at != bt {
			t.Fatalf("think time diverged at draw %d: %v vs %v", i, at, bt)
		}
		if ab, bb := a.BurstSize(), b.BurstSize(); ab != bb {
			t.Fatalf("burst size diverged at draw %d: %d vs %d", i, ab, bb)
		}
	}
}

func TestFixedPathProfile(t *testing.T) {
	prof := Profile{Paths: []PathOption{FixedPath(1, "/productpage")}}
	s := NewSampler(1, prof)

	for i := 0; i < 100; i++ {
		if got := s.Next().Path; got != "/productpage" {
			t.Fatalf("draw %d: path %q, want /productpage", i, got)
		}
	}
}

func TestAgentPool(t *testing.T) {
	s := NewSampler(21, DefaultProfile())

	agents := map[string]bool{}
	for i := 0; i < 5000; i++ {
		agents[s.Next().Agent] = true
	}
	if len(agents) != len(defaultAgents) {
		t.Errorf("saw %d distinct agents, want %d", len(agents), len(defaultAgents))
	}
	if !agents["curl/8.5.0"] {
		t.Error("non-browser agent never drawn")
	}
}
