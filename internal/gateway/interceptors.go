package gateway

import (
	"context"
	"fmt"
	"net"
	"net/netip"
	"path"
	"strings"
	"time"

	"github.com/yanun0323/logs"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/peer"
	"google.golang.org/grpc/status"
)

const unauthenticatedMsg = "No valid auth token"

// Whitelist holds the peer addresses allowed to call the gateway. Entries are
// single IPs or CIDR prefixes.
type Whitelist struct {
	addrs    map[netip.Addr]struct{}
	prefixes []netip.Prefix
}

// ParseWhitelist accepts entries separated by commas or whitespace.
func ParseWhitelist(raw string) (*Whitelist, error) {
	w := &Whitelist{addrs: make(map[netip.Addr]struct{})}
	fields := strings.FieldsFunc(raw, func(r rune) bool {
		return r == ',' || r == ' ' || r == '\t' || r == '\n'
	})
	for _, field := range fields {
		if strings.Contains(field, "/") {
			prefix, err := netip.ParsePrefix(field)
			if err != nil {
				return nil, fmt.Errorf("whitelist entry %q: %w", field, err)
			}
			w.prefixes = append(w.prefixes, prefix.Masked())
			continue
		}
		addr, err := netip.ParseAddr(field)
		if err != nil {
			return nil, fmt.Errorf("whitelist entry %q: %w", field, err)
		}
		w.addrs[addr.WithZone("").Unmap()] = struct{}{}
	}
	if len(w.addrs) == 0 && len(w.prefixes) == 0 {
		return nil, fmt.Errorf("whitelist is empty")
	}
	return w, nil
}

func (w *Whitelist) Allows(addr netip.Addr) bool {
	if w == nil || !addr.IsValid() {
		return false
	}
	addr = addr.WithZone("").Unmap()
	if _, ok := w.addrs[addr]; ok {
		return true
	}
	for _, p := range w.prefixes {
		if p.Contains(addr) {
			return true
		}
	}
	return false
}

// UnaryServerInterceptor rejects calls from peers outside the list before
// they reach the service.
func (w *Whitelist) UnaryServerInterceptor() grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		addr, ok := peerAddr(ctx)
		if !ok || !w.Allows(addr) {
			logs.Errorf("event=rpc_rejected method=%s peer=%s", path.Base(info.FullMethod), peerString(ctx))
			return nil, status.Error(codes.Unauthenticated, unauthenticatedMsg)
		}
		return handler(ctx, req)
	}
}

// LoggingInterceptor writes one line per RPC.
func LoggingInterceptor() grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		start := time.Now()
		resp, err := handler(ctx, req)
		method := path.Base(info.FullMethod)
		elapsed := time.Since(start).Milliseconds()
		if err != nil {
			logs.Errorf("event=rpc method=%s code=%s elapsed_ms=%d peer=%s err=%q",
				method, status.Code(err), elapsed, peerString(ctx), status.Convert(err).Message())
			return resp, err
		}
		logs.Infof("event=rpc method=%s code=%s elapsed_ms=%d peer=%s", method, codes.OK, elapsed, peerString(ctx))
		return resp, nil
	}
}

func peerAddr(ctx context.Context) (netip.Addr, bool) {
	p, ok := peer.FromContext(ctx)
	if !ok || p.Addr == nil {
		return netip.Addr{}, false
	}
	host, _, err := net.SplitHostPort(p.Addr.String())
	if err != nil {
		host = p.Addr.String()
	}
	addr, err := netip.ParseAddr(host)
	if err != nil {
		return netip.Addr{}, false
	}
	return addr, true
}

func peerString(ctx context.Context) string {
	if p, ok := peer.FromContext(ctx); ok && p.Addr != nil {
		return p.Addr.String()
	}
	return "unknown"
}
