package resolve

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"

	"github.com/tidwall/gjson"
)

// CommandRunner executes one external command and returns its stdout.
type CommandRunner func(ctx context.Context, name string, args ...string) ([]byte, error)

// KubectlOptions tune ingress gateway discovery.
type KubectlOptions struct {
	Namespace string // service namespace, default istio-system
	Service   string // gateway service name, default istio-ingressgateway
	PortName  string // named service port to expose, default http2
}

func (o *KubectlOptions) normalize() {
	if o.Namespace == "" {
		o.Namespace = "istio-system"
	}
	if o.Service == "" {
		o.Service = "istio-ingressgateway"
	}
	if o.PortName == "" {
		o.PortName = "http2"
	}
}

func runCommand(ctx context.Context, name string, args ...string) ([]byte, error) {
	out, err := exec.CommandContext(ctx, name, args...).Output()
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) && len(exitErr.Stderr) > 0 {
			return nil, fmt.Errorf("%w: %s", err, strings.TrimSpace(string(exitErr.Stderr)))
		}
		return nil, err
	}
	return out, nil
}

// fromKubectl discovers the ingress gateway address for one cluster:
// the service's LoadBalancer ingress when it has one, otherwise the
// first node's InternalIP plus the service NodePort. The kubectl
// context defaults to kind-<name> so kind multicluster demos resolve
// with zero configuration.
func (r *Resolver) fromKubectl(ctx context.Context, spec Spec) (string, error) {
	kctx := spec.Context
	if kctx == "" {
		kctx = "kind-" + spec.Name
	}
	k := r.opt.Kubectl

	svcJSON, err := r.opt.Runner(ctx, "kubectl",
		"--context", kctx, "--namespace", k.Namespace,
		"get", "service", k.Service, "--output", "json")
	if err != nil {
		return "", fmt.Errorf("target %s: kubectl get service %s/%s: %w", spec.Name, k.Namespace, k.Service, err)
	}

	port := gjson.GetBytes(svcJSON, fmt.Sprintf(`spec.ports.#(name==%q)`, k.PortName))
	if !port.Exists() {
		return "", fmt.Errorf("target %s: service %s/%s has no port named %q", spec.Name, k.Namespace, k.Service, k.PortName)
	}

	if ingress := gjson.GetBytes(svcJSON, "status.loadBalancer.ingress.0"); ingress.Exists() {
		host := ingress.Get("ip").String()
		if host == "" {
			host = ingress.Get("hostname").String()
		}
		if host != "" {
			if p := port.Get("port").Int(); p > 0 {
				return fmt.Sprintf("http://%s:%d", host, p), nil
			}
		}
	}

	nodePort := port.Get("nodePort").Int()
	if nodePort == 0 {
		return "", fmt.Errorf("target %s: service %s/%s port %q has no load balancer ingress and no nodePort",
			spec.Name, k.Namespace, k.Service, k.PortName)
	}

	nodesJSON, err := r.opt.Runner(ctx, "kubectl", "--context", kctx, "get", "nodes", "--output", "json")
	if err != nil {
		return "", fmt.Errorf("target %s: kubectl get nodes: %w", spec.Name, err)
	}
	host := gjson.GetBytes(nodesJSON, `items.0.status.addresses.#(type=="InternalIP").address`).String()
	if host == "" {
		return "", fmt.Errorf("target %s: no node InternalIP found via context %s", spec.Name, kctx)
	}
	return fmt.Sprintf("http://%s:%d", host, nodePort), nil
}
