// Package playground provides the interactive operator console for spinning
// up, wiring together, and tearing down simulated network peers.
package playground

import (
	"bufio"
	"fmt"
	"io"
	"time"

	"github.com/peerlab/playground/internal/config"
	mdtls "github.com/peerlab/playground/internal/dtls"
	"github.com/peerlab/playground/internal/node"
	"github.com/peerlab/playground/internal/peernet"
	"github.com/peerlab/playground/pkg/command"
	"github.com/peerlab/playground/pkg/tracer"
)

// Harness is the composition root: it owns the node registry and runs the
// command loop until an exit command or end of input. All registry
// mutations happen on the goroutine that calls Run.
type Harness struct {
	reg     *node.Registry
	sc      *bufio.Scanner
	out     io.Writer
	host    string
	netCfg  peernet.Config
	trans   peernet.Transport
	traceCh chan tracer.TraceEvent
}

// New creates a Harness reading whitespace-delimited tokens from in and
// writing console output to out.
func New(cfg *config.Config, in io.Reader, out io.Writer) (*Harness, error) {
	trans, err := buildTransport(cfg)
	if err != nil {
		return nil, err
	}
	host := cfg.Net.Host
	if host == "" {
		host = "127.0.0.1"
	}
	sc := bufio.NewScanner(in)
	sc.Split(bufio.ScanWords)
	h := &Harness{
		reg:  node.NewRegistry(),
		sc:   sc,
		out:  out,
		host: host,
		netCfg: peernet.Config{
			ConnTimeout: time.Duration(cfg.Net.ConnTimeout) * time.Second,
			PingPeriod:  time.Duration(cfg.Net.PingPeriod) * time.Second,
		},
		trans: trans,
	}
	if debug {
		h.traceCh = make(chan tracer.TraceEvent, 2000)
	}
	return h, nil
}

func buildTransport(cfg *config.Config) (peernet.Transport, error) {
	timeout := time.Duration(cfg.Net.ConnTimeout) * time.Second
	switch cfg.Net.Transport {
	case "", "tcp":
		return peernet.TCPTransport{Timeout: timeout}, nil
	case "dtls":
		dcfg, err := mdtls.NewDTLSConfig(cfg)
		if err != nil {
			return nil, err
		}
		return peernet.DTLSTransport{Config: dcfg, Timeout: timeout}, nil
	default:
		return nil, fmt.Errorf("unknown transport %q", cfg.Net.Transport)
	}
}

// Run executes the command loop. It returns after a successful exit command
// or once the input is exhausted; either way every node has been stopped
// and joined before it returns.
func (h *Harness) Run() error {
	fmt.Fprintln(h.out, "p2p network library playground (type help for more info)")
	fmt.Fprintln(h.out, "========================================================")

	for {
		fmt.Fprint(h.out, "> ")
		kw, ok := h.nextToken()
		if !ok {
			break
		}
		kind, ok := command.Lookup(kw)
		if !ok {
			fmt.Fprintf(h.out, "invalid command %q\n", kw)
			continue
		}
		if quit := h.dispatch(kind); quit {
			return nil
		}
	}

	// End of input performs the same orderly shutdown as exit.
	h.stopAll()
	return h.sc.Err()
}

func (h *Harness) nextToken() (string, bool) {
	if h.sc.Scan() {
		return h.sc.Text(), true
	}
	return "", false
}

// stopAll stops and joins every registered node, then empties the registry.
func (h *Harness) stopAll() {
	for _, id := range h.reg.List() {
		n, ok := h.reg.Find(id)
		if !ok {
			continue
		}
		n.StopJoin()
		_ = h.reg.Remove(id)
	}
}
