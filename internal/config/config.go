// Package config parses construction-time inputs for a replica: self ID,
// listen address, and peer URL list. How these values are delivered to the
// process (flags here, env vars or a deployment template elsewhere) is
// deliberately decoupled from the rest of the replica — this package only
// has to produce them at initialization.
//
// There is no independent read/write quorum size to configure: majority is
// always derived as N/2+1 from the peer list's length (see register.Core.Attach).
// There is also no data directory flag — state does not survive a restart.
package config

import (
	"flag"
	"fmt"
	"strings"
)

// ReplicaConfig is the immutable construction-time input to a replica.
type ReplicaConfig struct {
	SelfID      string
	ListenAddr  string
	PeerURLs    []string // self excluded; http://host:port form
	HTTPTimeout string   // informational only; Parse never sets it and /health does not report it
}

// Parse reads flags from args (typically os.Args[1:]) into a ReplicaConfig.
//
//	--id     self tiebreaker, must be unique cluster-wide
//	--addr   listen address, e.g. ":8080"
//	--peers  comma-separated peer base URLs, e.g. "http://h1:8081,http://h2:8082"
func Parse(args []string) (ReplicaConfig, error) {
	fs := flag.NewFlagSet("abdreg-server", flag.ContinueOnError)
	id := fs.String("id", "node1", "unique replica tiebreaker")
	addr := fs.String("addr", ":8080", "listen address (host:port)")
	peers := fs.String("peers", "", "comma-separated peer base URLs (e.g. http://host:8081,http://host:8082)")

	if err := fs.Parse(args); err != nil {
		return ReplicaConfig{}, err
	}

	cfg := ReplicaConfig{
		SelfID:     *id,
		ListenAddr: *addr,
	}
	if *peers != "" {
		for _, p := range strings.Split(*peers, ",") {
			p = strings.TrimSpace(p)
			if p == "" {
				continue
			}
			if !strings.Contains(p, "://") {
				return ReplicaConfig{}, fmt.Errorf("invalid peer URL %q: must include scheme (http://)", p)
			}
			cfg.PeerURLs = append(cfg.PeerURLs, p)
		}
	}
	return cfg, nil
}

// N is the total replica count this configuration implies: self plus peers.
func (c ReplicaConfig) N() int {
	return len(c.PeerURLs) + 1
}
