package playground

import (
	"fmt"
	"strconv"
	"time"

	"github.com/peerlab/playground/internal/node"
	"github.com/peerlab/playground/pkg/command"
)

// dispatch runs the handler for one command kind. It returns true when the
// console loop must terminate.
func (h *Harness) dispatch(kind command.Kind) (quit bool) {
	switch kind {
	case command.KindAdd:
		h.cmdAdd()
	case command.KindAddPeer:
		h.cmdAddPeer()
	case command.KindDelPeer:
		h.cmdDelPeer()
	case command.KindDel:
		h.cmdDel()
	case command.KindLs:
		h.cmdLs()
	case command.KindHelp:
		h.cmdHelp()
	case command.KindTrace:
		h.cmdTrace()
	case command.KindExit:
		h.stopAll()
		return true
	}
	return false
}

// invalidArg is the sentinel readInt yields for malformed input; handlers
// must short-circuit on it instead of proceeding.
const invalidArg = -1

// readInt reads one token and parses it as a non-negative integer. On a
// missing token, a parse failure, or a negative value it reports the error
// and returns invalidArg.
func (h *Harness) readInt() int {
	tok, ok := h.nextToken()
	if !ok {
		fmt.Fprintln(h.out, "expect a non-negative integer")
		return invalidArg
	}
	v, err := strconv.Atoi(tok)
	if err != nil || v < 0 {
		fmt.Fprintln(h.out, "expect a non-negative integer")
		return invalidArg
	}
	return v
}

func (h *Harness) cmdAdd() {
	id := h.readInt()
	if id < 0 {
		return
	}
	if _, ok := h.reg.Find(node.ID(id)); ok {
		fmt.Fprintln(h.out, "net id already exists")
		return
	}
	port := h.readInt()
	if port < 0 {
		return
	}
	if port >= 1<<16 {
		fmt.Fprintln(h.out, "port should be < 65536")
		return
	}
	n := node.New(node.ID(id), h.host, uint16(port), h.netCfg, h.trans, h.traceCh, h.out)
	if err := h.reg.Insert(node.ID(id), n); err != nil {
		// Unreachable given the check above; never leak a running node.
		n.StopJoin()
		fmt.Fprintln(h.out, err)
	}
}

// lookupNode reads a node id token and resolves it in the registry.
func (h *Harness) lookupNode() (*node.Node, bool) {
	id := h.readInt()
	if id < 0 {
		return nil, false
	}
	n, ok := h.reg.Find(node.ID(id))
	if !ok {
		fmt.Fprintln(h.out, "net id does not exist")
		return nil, false
	}
	return n, true
}

func (h *Harness) cmdAddPeer() {
	n, ok := h.lookupNode()
	if !ok {
		return
	}
	p, ok := h.lookupNode()
	if !ok {
		return
	}
	n.AddPeer(p.ListenAddr())
}

func (h *Harness) cmdDelPeer() {
	n, ok := h.lookupNode()
	if !ok {
		return
	}
	p, ok := h.lookupNode()
	if !ok {
		return
	}
	n.DelPeer(p.ListenAddr())
}

func (h *Harness) cmdDel() {
	n, ok := h.lookupNode()
	if !ok {
		return
	}
	n.StopJoin()
	_ = h.reg.Remove(n.ID())
}

func (h *Harness) cmdLs() {
	for _, id := range h.reg.List() {
		fmt.Fprintf(h.out, "%d\n", id)
	}
}

func (h *Harness) cmdHelp() {
	fmt.Fprint(h.out,
		"add <node-id> <port> -- start a node (create a peer network instance)\n"+
			"addpeer <node-id> <peer-id> -- add a peer to a given node\n"+
			"delpeer <node-id> <peer-id> -- remove a peer from a given node\n"+
			"del <node-id> -- remove a node (destroy a peer network instance)\n"+
			"ls -- list all node ids\n"+
			"exit -- quit the program\n"+
			"help -- show this info\n")
	if debug {
		fmt.Fprint(h.out, "trace -- dump buffered frame trace events\n")
	}
}

// cmdTrace dumps buffered frame trace events in debug builds. The tracer is
// a no-op in release builds, so there is nothing to show there.
func (h *Harness) cmdTrace() {
	if !debug {
		fmt.Fprintln(h.out, "trace is not available in release builds")
		return
	}
	for {
		select {
		case ev := <-h.traceCh:
			fmt.Fprintf(h.out, "%s %s %s -> %s op=0x%02X len=%d\n",
				ev.TS.Format(time.RFC3339Nano), ev.Dir, ev.Local, ev.Remote, ev.Op, ev.Len)
		default:
			return
		}
	}
}
