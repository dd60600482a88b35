// Package client provides the dynamic load-balanced gRPC channel: a resolver
// whose endpoint set is driven by discovery deltas, so sub-channels are
// created and torn down as fleet instances come and go.
package client

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/webitel/im-chat-service/api/chatpb"
	"github.com/webitel/im-chat-service/infra/discovery"
	"go.opentelemetry.io/contrib/instrumentation/google.golang.org/grpc/otelgrpc"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/resolver"
)

// Scheme is the target scheme the fleet dials: discovery:///<service-name>.
const Scheme = "discovery"

const roundRobinServiceConfig = `{"loadBalancingConfig":[{"round_robin":{}}]}`

// Dial opens a load-balanced channel to every live instance of a named
// service. The channel re-resolves continuously; callers keep it for the
// process lifetime.
func Dial(reg *discovery.Registry, service string, logger *slog.Logger) (*grpc.ClientConn, error) {
	conn, err := grpc.NewClient(
		fmt.Sprintf("%s:///%s", Scheme, service),
		grpc.WithResolvers(NewBuilder(reg, logger)),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithDefaultServiceConfig(roundRobinServiceConfig),
		grpc.WithDefaultCallOptions(chatpb.CallOption()),
		grpc.WithStatsHandler(otelgrpc.NewClientHandler()),
	)
	if err != nil {
		return nil, fmt.Errorf("client: dial %s: %w", service, err)
	}
	return conn, nil
}

// DialPeer opens a direct (non-balanced) channel to a single fleet peer.
// The pusher uses it to reach each gateway individually.
func DialPeer(addr string) (*grpc.ClientConn, error) {
	conn, err := grpc.NewClient(
		addr,
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithDefaultCallOptions(chatpb.CallOption()),
		grpc.WithStatsHandler(otelgrpc.NewClientHandler()),
	)
	if err != nil {
		return nil, fmt.Errorf("client: dial peer %s: %w", addr, err)
	}
	return conn, nil
}

// Builder implements resolver.Builder on top of the discovery subscription.
type Builder struct {
	registry *discovery.Registry
	logger   *slog.Logger
}

func NewBuilder(reg *discovery.Registry, logger *slog.Logger) *Builder {
	return &Builder{
		registry: reg,
		logger:   logger.With(slog.String("component", "lb-resolver")),
	}
}

func (b *Builder) Scheme() string { return Scheme }

func (b *Builder) Build(target resolver.Target, cc resolver.ClientConn, _ resolver.BuildOptions) (resolver.Resolver, error) {
	ctx, cancel := context.WithCancel(context.Background())
	r := &dynamicResolver{
		service: target.Endpoint(),
		cc:      cc,
		cancel:  cancel,
		logger:  b.logger,
	}
	go r.watch(ctx, b.registry)
	return r, nil
}

// dynamicResolver applies Insert/Remove deltas to the channel's address set.
type dynamicResolver struct {
	service string
	cc      resolver.ClientConn
	cancel  context.CancelFunc
	logger  *slog.Logger
}

func (r *dynamicResolver) watch(ctx context.Context, reg *discovery.Registry) {
	addrs := make(map[string]struct{})

	for delta := range reg.Subscribe(ctx, r.service) {
		addr := delta.Instance.Addr()
		switch delta.Op {
		case discovery.OpInsert:
			addrs[addr] = struct{}{}
			r.logger.Info("ENDPOINT_INSERT",
				slog.String("service", r.service), slog.String("addr", addr))
		case discovery.OpRemove:
			delete(addrs, addr)
			r.logger.Info("ENDPOINT_REMOVE",
				slog.String("service", r.service), slog.String("addr", addr))
		}

		state := resolver.State{Addresses: make([]resolver.Address, 0, len(addrs))}
		for a := range addrs {
			state.Addresses = append(state.Addresses, resolver.Address{Addr: a})
		}
		if err := r.cc.UpdateState(state); err != nil {
			r.logger.Debug("RESOLVER_STATE_REJECTED",
				slog.String("service", r.service), slog.Any("err", err))
		}
	}
}

// ResolveNow is a no-op: the subscription stream keeps the set current.
func (r *dynamicResolver) ResolveNow(resolver.ResolveNowOptions) {}

func (r *dynamicResolver) Close() { r.cancel() }
