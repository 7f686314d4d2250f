package playground

import (
	"bytes"
	"strings"
	"testing"

	"github.com/peerlab/playground/internal/config"
	"github.com/peerlab/playground/pkg/command"
	log "github.com/sirupsen/logrus"
)

func init() {
	// Reduce log output during fuzzing so the fuzzer is not slowed and logs are not flooded.
	log.SetLevel(log.PanicLevel)
}

// FuzzReadInt fuzzes the integer-argument helper with arbitrary token
// streams. Invalid input must yield the sentinel, never a panic, and a
// valid result is always non-negative.
func FuzzReadInt(f *testing.F) {
	f.Add("")
	f.Add("0")
	f.Add("123")
	f.Add("-1")
	f.Add("65536")
	f.Add("not a number")
	f.Add("  12  34 ")
	f.Add("9999999999999999999999")
	f.Fuzz(func(t *testing.T, input string) {
		h, err := New(config.Default(), strings.NewReader(input), &bytes.Buffer{})
		if err != nil {
			t.Fatal(err)
		}
		v := h.readInt()
		if v < invalidArg {
			t.Fatalf("readInt returned %d, below the sentinel", v)
		}
	})
}

// FuzzCommandLookup ensures arbitrary keywords either resolve to a known
// command kind or are rejected, mirroring the dispatcher's miss path.
func FuzzCommandLookup(f *testing.F) {
	f.Add("add")
	f.Add("exit")
	f.Add("")
	f.Add("ADD")
	f.Add("add\x00peer")
	f.Fuzz(func(t *testing.T, keyword string) {
		kind, ok := command.Lookup(keyword)
		if ok && kind == command.KindInvalid {
			t.Fatalf("lookup of %q returned ok with the invalid kind", keyword)
		}
		if !ok && kind != command.KindInvalid {
			t.Fatalf("lookup miss of %q returned kind %v", keyword, kind)
		}
	})
}
