// Package command defines the console command kinds.
package command

// Kind represents a command type for console operations.
type Kind int

// Console commands understood by the playground.
const (
	// KindInvalid is the zero Kind; it never appears in the table.
	KindInvalid Kind = iota
	// KindAdd creates and starts a node.
	KindAdd
	// KindAddPeer adds a peer to a given node.
	KindAddPeer
	// KindDelPeer removes a peer from a given node.
	KindDelPeer
	// KindDel stops and removes a node.
	KindDel
	// KindLs lists all node ids.
	KindLs
	// KindExit stops every node and quits.
	KindExit
	// KindHelp shows the command summary.
	KindHelp
	// KindTrace dumps buffered frame trace events (debug builds).
	KindTrace
)

var keywords = map[string]Kind{
	"add":     KindAdd,
	"addpeer": KindAddPeer,
	"delpeer": KindDelPeer,
	"del":     KindDel,
	"ls":      KindLs,
	"exit":    KindExit,
	"help":    KindHelp,
	"trace":   KindTrace,
}

// Lookup maps a command keyword to its Kind.
func Lookup(keyword string) (Kind, bool) {
	k, ok := keywords[keyword]
	return k, ok
}

// String returns the keyword for the Kind.
func (k Kind) String() string {
	for kw, kind := range keywords {
		if kind == k {
			return kw
		}
	}
	return "invalid"
}
