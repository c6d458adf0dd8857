package kubeconfig

import (
	"context"
	"crypto/tls"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gofrs/flock"
)

// Prober reports whether a cluster API server answers at all.
type Prober func(ctx context.Context, server string) bool

// NewLivezProber probes GET <server>/livez with certificate
// verification off; kind clusters sign with ephemeral CAs that no
// local trust store knows. Any HTTP response counts as reachable, a
// transport error does not.
func NewLivezProber(timeout time.Duration) Prober {
	if timeout <= 0 {
		timeout = 2 * time.Second
	}
	client := &http.Client{
		Timeout: timeout,
		Transport: &http.Transport{
			TLSClientConfig:   &tls.Config{InsecureSkipVerify: true},
			DisableKeepAlives: true,
		},
	}
	return func(ctx context.Context, server string) bool {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, strings.TrimRight(server, "/")+"/livez", nil)
		if err != nil {
			return false
		}
		resp, err := client.Do(req)
		if err != nil {
			return false
		}
		resp.Body.Close()
		return true
	}
}

// Decision records what happened to one inspected context.
type Decision struct {
	Context   string
	Server    string
	Reachable bool
	Removed   bool
}

type Result struct {
	Decisions []Decision
	Removed   int
	Changed   bool // whether the file was mutated
}

type PruneOptions struct {
	Prefix string // context name prefix filter, empty selects all
	DryRun bool
	Probe  Prober
}

// Prune probes every selected context and drops the dead ones,
// together with the cluster and user entries no surviving context
// references. Entries never referenced by a selected context are left
// alone.
func Prune(ctx context.Context, f *File, opt PruneOptions) Result {
	if opt.Probe == nil {
		opt.Probe = NewLivezProber(0)
	}

	servers := make(map[string]string, len(f.Clusters))
	for _, c := range f.Clusters {
		servers[c.Name] = c.Server()
	}

	doomed := map[string]bool{}
	var res Result
	for _, c := range f.Contexts {
		if opt.Prefix != "" && !strings.HasPrefix(c.Name, opt.Prefix) {
			continue
		}
		d := Decision{Context: c.Name, Server: servers[c.ClusterName()]}
		if d.Server != "" {
			d.Reachable = opt.Probe(ctx, d.Server)
		}
		if !d.Reachable {
			d.Removed = true
			doomed[c.Name] = true
		}
		res.Decisions = append(res.Decisions, d)
	}
	res.Removed = len(doomed)
	if len(doomed) == 0 || opt.DryRun {
		return res
	}
	res.Changed = true

	// Shared cluster and user entries stay while any surviving context
	// still points at them.
	doomedClusters := map[string]bool{}
	doomedUsers := map[string]bool{}
	for _, c := range f.Contexts {
		if doomed[c.Name] {
			doomedClusters[c.ClusterName()] = true
			doomedUsers[c.UserName()] = true
		}
	}
	for _, c := range f.Contexts {
		if !doomed[c.Name] {
			delete(doomedClusters, c.ClusterName())
			delete(doomedUsers, c.UserName())
		}
	}

	var contexts []ContextEntry
	for _, c := range f.Contexts {
		if !doomed[c.Name] {
			contexts = append(contexts, c)
		}
	}
	f.Contexts = contexts

	var clusters []ClusterEntry
	for _, c := range f.Clusters {
		if !doomedClusters[c.Name] {
			clusters = append(clusters, c)
		}
	}
	f.Clusters = clusters

	var users []UserEntry
	for _, u := range f.Users {
		if !doomedUsers[u.Name] {
			users = append(users, u)
		}
	}
	f.Users = users

	if doomed[f.CurrentContext] {
		f.CurrentContext = ""
	}
	return res
}

// WithLock holds the advisory lock guarding kubeconfig rewrites while
// fn runs. The context bounds how long acquisition may retry.
func WithLock(ctx context.Context, path string, fn func() error) error {
	lock := flock.New(path + ".lock")
	locked, err := lock.TryLockContext(ctx, 250*time.Millisecond)
	if err != nil {
		return fmt.Errorf("lock %s: %w", lock.Path(), err)
	}
	if !locked {
		return fmt.Errorf("lock %s: already held", lock.Path())
	}
	defer lock.Unlock()
	return fn()
}
