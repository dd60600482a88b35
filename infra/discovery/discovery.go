// Package discovery wraps the service center (Consul) behind the small
// surface the fleet needs: register self, resolve instances by name, and
// subscribe to a stream of Insert/Remove deltas that drives both the dynamic
// LB channel and the pusher's gateway map.
package discovery

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/hashicorp/consul/api"
	"github.com/webitel/im-chat-service/config"
)

// Instance is one live endpoint of a named service.
type Instance struct {
	ID      string
	Name    string
	Address string
	Port    int
	Tags    []string
}

func (i Instance) Addr() string {
	return fmt.Sprintf("%s:%d", i.Address, i.Port)
}

type Op int16

const (
	OpInsert Op = iota + 1
	OpRemove
)

// Delta is one membership change observed on a subscribed service.
type Delta struct {
	Op       Op
	Instance Instance
}

// Registration describes this process to the service center.
type Registration struct {
	Name            string
	Address         string
	Port            int
	Tags            []string
	GRPCHealthCheck bool
}

// InstanceID derives the deterministic registration id for a service on this
// host, so a restart replaces the previous registration instead of leaking it.
func InstanceID(name string) string {
	host, err := os.Hostname()
	if err != nil {
		host = "localhost"
	}
	return fmt.Sprintf("%s-%s", host, name)
}

type Registry struct {
	client  *api.Client
	logger  *slog.Logger
	timeout time.Duration
}

func New(cfg config.ServiceCenterConfig, logger *slog.Logger) (*Registry, error) {
	conf := api.DefaultConfig()
	conf.Address = cfg.Addr()
	conf.Scheme = "http"
	if cfg.Protocol == "https" {
		conf.Scheme = "https"
	}

	client, err := api.NewClient(conf)
	if err != nil {
		return nil, fmt.Errorf("discovery: connect service center: %w", err)
	}

	return &Registry{
		client:  client,
		logger:  logger.With(slog.String("component", "discovery")),
		timeout: cfg.Timeout,
	}, nil
}

// Register announces the service and installs its health check. With
// GRPCHealthCheck set, the service center probes the standard gRPC health
// service; otherwise it falls back to a TCP check.
func (r *Registry) Register(reg Registration) error {
	check := &api.AgentServiceCheck{
		Interval:                       "10s",
		Timeout:                        "5s",
		DeregisterCriticalServiceAfter: "1m",
	}
	if reg.GRPCHealthCheck {
		check.GRPC = fmt.Sprintf("%s:%d", reg.Address, reg.Port)
	} else {
		check.TCP = fmt.Sprintf("%s:%d", reg.Address, reg.Port)
	}

	err := r.client.Agent().ServiceRegister(&api.AgentServiceRegistration{
		ID:      InstanceID(reg.Name),
		Name:    reg.Name,
		Address: reg.Address,
		Port:    reg.Port,
		Tags:    reg.Tags,
		Check:   check,
	})
	if err != nil {
		return fmt.Errorf("discovery: register %s: %w", reg.Name, err)
	}

	r.logger.Info("SERVICE_REGISTERED",
		slog.String("name", reg.Name),
		slog.String("id", InstanceID(reg.Name)),
		slog.String("addr", fmt.Sprintf("%s:%d", reg.Address, reg.Port)),
	)
	return nil
}

func (r *Registry) Deregister(name string) error {
	if err := r.client.Agent().ServiceDeregister(InstanceID(name)); err != nil {
		return fmt.Errorf("discovery: deregister %s: %w", name, err)
	}
	r.logger.Info("SERVICE_DEREGISTERED", slog.String("name", name))
	return nil
}

// QueryWithName resolves the currently passing instances of a service.
func (r *Registry) QueryWithName(ctx context.Context, name string) ([]Instance, error) {
	entries, _, err := r.client.Health().ServiceMultipleTags(
		name, nil, true, (&api.QueryOptions{}).WithContext(ctx))
	if err != nil {
		return nil, fmt.Errorf("discovery: query %s: %w", name, err)
	}
	return toInstances(name, entries), nil
}

// Subscribe streams membership deltas for a named service using blocking
// queries. The first batch replays every live instance as an Insert. The
// channel closes when ctx is cancelled.
func (r *Registry) Subscribe(ctx context.Context, name string) <-chan Delta {
	out := make(chan Delta, 16)

	go func() {
		defer close(out)

		known := make(map[string]Instance)
		var waitIndex uint64

		for {
			opts := (&api.QueryOptions{
				WaitIndex: waitIndex,
				WaitTime:  time.Minute,
			}).WithContext(ctx)

			entries, meta, err := r.client.Health().ServiceMultipleTags(name, nil, true, opts)
			if err != nil {
				if ctx.Err() != nil {
					return
				}
				r.logger.Warn("SUBSCRIBE_QUERY_FAILED",
					slog.String("service", name), slog.Any("err", err))
				select {
				case <-ctx.Done():
					return
				case <-time.After(2 * time.Second):
				}
				continue
			}
			waitIndex = meta.LastIndex

			next := make(map[string]Instance, len(entries))
			for _, ins := range toInstances(name, entries) {
				next[ins.Addr()] = ins
			}

			for _, d := range Diff(known, next) {
				select {
				case <-ctx.Done():
					return
				case out <- d:
				}
			}
			known = next
		}
	}()

	return out
}

// Poll is the fallback for service centers without blocking queries:
// resolve every interval, diff against the previous set, emit the changes.
func (r *Registry) Poll(ctx context.Context, name string, interval time.Duration) <-chan Delta {
	out := make(chan Delta, 16)

	go func() {
		defer close(out)

		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		known := make(map[string]Instance)
		for {
			instances, err := r.QueryWithName(ctx, name)
			if err != nil {
				if ctx.Err() != nil {
					return
				}
				r.logger.Warn("POLL_QUERY_FAILED",
					slog.String("service", name), slog.Any("err", err))
			} else {
				next := make(map[string]Instance, len(instances))
				for _, ins := range instances {
					next[ins.Addr()] = ins
				}
				for _, d := range Diff(known, next) {
					select {
					case <-ctx.Done():
						return
					case out <- d:
					}
				}
				known = next
			}

			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
			}
		}
	}()

	return out
}

// Diff computes the Insert/Remove deltas turning prev into next, keyed by
// instance address.
func Diff(prev, next map[string]Instance) []Delta {
	var deltas []Delta
	for addr, ins := range next {
		if _, ok := prev[addr]; !ok {
			deltas = append(deltas, Delta{Op: OpInsert, Instance: ins})
		}
	}
	for addr, ins := range prev {
		if _, ok := next[addr]; !ok {
			deltas = append(deltas, Delta{Op: OpRemove, Instance: ins})
		}
	}
	return deltas
}

func toInstances(name string, entries []*api.ServiceEntry) []Instance {
	out := make([]Instance, 0, len(entries))
	for _, e := range entries {
		addr := e.Service.Address
		if addr == "" {
			addr = e.Node.Address
		}
		out = append(out, Instance{
			ID:      e.Service.ID,
			Name:    name,
			Address: addr,
			Port:    e.Service.Port,
			Tags:    e.Service.Tags,
		})
	}
	return out
}
