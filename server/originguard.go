// Copyright (c) 2024-2025 BeeAI Labs
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.
package server

import (
	"fmt"
	"net"
	"net/http"

	"github.com/beeai-labs/interpreter/utils/log"
	"github.com/beeai-labs/interpreter/utils/stringset"
)

// OriginGuardConfig restricts which callers may reach pod-spawning
// endpoints. Execution costs a sandbox pod per call, so by default only
// internal callers are allowed.
type OriginGuardConfig struct {
	// PublicSpawnEnabled disables the guard entirely.
	PublicSpawnEnabled bool `yaml:"public_spawn_enabled"`

	// HostAllowlist is a set of Host header values (ports ignored) that may
	// spawn pods.
	HostAllowlist []string `yaml:"host_allowlist"`

	// IPAllowlist is a set of client CIDRs that may spawn pods. Bare IPs
	// are accepted and treated as /32 (or /128).
	IPAllowlist []string `yaml:"ip_allowlist"`

	// TrustLoopback always allows loopback clients. On by default via
	// applyDefaults in cmd config, so local development works out of the
	// box.
	TrustLoopback bool `yaml:"trust_loopback"`
}

type originGuard struct {
	config OriginGuardConfig
	hosts  stringset.Set
	nets   []*net.IPNet
}

func newOriginGuard(config OriginGuardConfig) (*originGuard, error) {
	g := &originGuard{
		config: config,
		hosts:  stringset.FromSlice(config.HostAllowlist),
	}
	for _, c := range config.IPAllowlist {
		if !containsSlash(c) {
			if ip := net.ParseIP(c); ip != nil {
				if ip.To4() != nil {
					c += "/32"
				} else {
					c += "/128"
				}
			}
		}
		_, ipnet, err := net.ParseCIDR(c)
		if err != nil {
			return nil, fmt.Errorf("parse allowlist cidr %q: %s", c, err)
		}
		g.nets = append(g.nets, ipnet)
	}
	return g, nil
}

func containsSlash(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] == '/' {
			return true
		}
	}
	return false
}

// allowed decides whether r may spawn pods.
func (g *originGuard) allowed(r *http.Request) bool {
	if g.config.PublicSpawnEnabled {
		return true
	}

	host := r.Host
	if h, _, err := net.SplitHostPort(host); err == nil {
		host = h
	}
	if g.hosts.Has(host) {
		return true
	}

	clientIP := clientIP(r)
	if clientIP == nil {
		return false
	}
	if g.config.TrustLoopback && clientIP.IsLoopback() {
		return true
	}
	for _, n := range g.nets {
		if n.Contains(clientIP) {
			return true
		}
	}
	return false
}

// Middleware returns the guard as an HTTP middleware.
func (g *originGuard) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !g.allowed(r) {
			log.With("remote_addr", r.RemoteAddr, "host", r.Host).Info(
				"Rejected spawn request from untrusted origin")
			http.Error(w, "Forbidden", http.StatusForbidden)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func clientIP(r *http.Request) net.IP {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		host = r.RemoteAddr
	}
	return net.ParseIP(host)
}
