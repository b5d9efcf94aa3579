package mcpserver

import (
	"context"
	"fmt"
	"log"
	"net"
	"net/http"
	"strings"
)

// IPAuthMiddleware restricts access to the MCP server by client IP. Entries
// may be single addresses or CIDR blocks.
type IPAuthMiddleware struct {
	allowedIPs    []string
	allowedNets   []*net.IPNet
	enableLogging bool
}

// NewIPAuthMiddleware parses the allowlist and builds the middleware.
func NewIPAuthMiddleware(allowedIPs []string, enableLogging bool) (*IPAuthMiddleware, error) {
	if len(allowedIPs) == 0 {
		return nil, fmt.Errorf("no allowed IPs specified")
	}

	middleware := &IPAuthMiddleware{
		allowedIPs:    allowedIPs,
		allowedNets:   make([]*net.IPNet, 0, len(allowedIPs)),
		enableLogging: enableLogging,
	}

	for _, entry := range allowedIPs {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}

		if strings.Contains(entry, "/") {
			_, network, err := net.ParseCIDR(entry)
			if err != nil {
				return nil, fmt.Errorf("invalid CIDR block %s: %v", entry, err)
			}
			middleware.allowedNets = append(middleware.allowedNets, network)
			continue
		}

		ip := net.ParseIP(entry)
		if ip == nil {
			return nil, fmt.Errorf("invalid IP address: %s", entry)
		}

		// Single address becomes a host-only network.
		var cidr string
		if ip.To4() != nil {
			cidr = entry + "/32"
		} else {
			cidr = entry + "/128"
		}

		_, network, err := net.ParseCIDR(cidr)
		if err != nil {
			return nil, fmt.Errorf("failed to create CIDR for IP %s: %v", entry, err)
		}
		middleware.allowedNets = append(middleware.allowedNets, network)
	}

	if middleware.enableLogging {
		log.Printf("IP auth middleware initialized with %d allowed IP ranges", len(middleware.allowedNets))
	}

	return middleware, nil
}

// Middleware returns the HTTP middleware function enforcing the allowlist.
func (m *IPAuthMiddleware) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		clientIP := extractClientIPFromRequest(r)

		if !m.isIPAllowed(clientIP) {
			if m.enableLogging {
				log.Printf("Access denied for IP: %s (Path: %s, Method: %s, User-Agent: %s)",
					clientIP, r.URL.Path, r.Method, r.Header.Get("User-Agent"))
			}

			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusForbidden)
			if _, err := w.Write([]byte(`{"error": {"code": -32603, "message": "Access denied: IP not authorized"}}`)); err != nil {
				log.Printf("Failed to write error response: %v", err)
			}
			return
		}

		if m.enableLogging {
			log.Printf("Access granted for IP: %s (Path: %s, Method: %s)",
				clientIP, r.URL.Path, r.Method)
		}

		ctx := context.WithValue(r.Context(), clientIPContextKey, clientIP)
		ctx = context.WithValue(ctx, authMethodContextKey, "ip")
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// extractClientIPFromRequest resolves the real client IP, honoring proxy
// headers before falling back to the connection address.
func extractClientIPFromRequest(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		// X-Forwarded-For can carry multiple hops, use the first entry.
		parts := strings.Split(xff, ",")
		if len(parts) > 0 {
			candidate := strings.TrimSpace(parts[0])
			if candidate != "" {
				return candidate
			}
		}
	}

	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return strings.TrimSpace(xri)
	}

	ip, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		// RemoteAddr without a port, use it as-is.
		return r.RemoteAddr
	}
	return ip
}

func (m *IPAuthMiddleware) isIPAllowed(ipStr string) bool {
	if ipStr == "" {
		return false
	}

	clientIP := net.ParseIP(ipStr)
	if clientIP == nil {
		if m.enableLogging {
			log.Printf("Failed to parse client IP: %s", ipStr)
		}
		return false
	}

	for _, network := range m.allowedNets {
		if network.Contains(clientIP) {
			return true
		}
	}

	return false
}

// IsIPAllowed reports whether the given IP passes the allowlist.
func (m *IPAuthMiddleware) IsIPAllowed(ipStr string) bool {
	return m.isIPAllowed(ipStr)
}

// GetAllowedIPs returns the configured allowlist entries.
func (m *IPAuthMiddleware) GetAllowedIPs() []string {
	return m.allowedIPs
}

// LocalhostIPs contains the loopback addresses used as the default allowlist.
var LocalhostIPs = []string{"127.0.0.1", "::1"}
