package ui

import (
	"fmt"
	"io"
	"strings"

	"github.com/thetangentline/pcftraffic/internal/stats"
)

// Renderer defines the minimal interface used by the engine.
type Renderer interface {
	Render(snap stats.Snapshot)
	RenderFinal(snap stats.Snapshot)
}

// packetRenderer rewrites a single status line with the running packet total.
type packetRenderer struct {
	w           io.Writer
	lastLineLen int
}

// NewPacketRenderer returns a renderer that keeps "<total> packets sent" on
// the current line of w.
func NewPacketRenderer(w io.Writer) Renderer {
	return &packetRenderer{w: w}
}

func (r *packetRenderer) Render(snap stats.Snapshot) {
	line := fmt.Sprintf("%d packets sent", snap.Packets)
	pad := ""
	if r.lastLineLen > len(line) {
		// Blank out the tail of a longer previous line.
		pad = strings.Repeat(" ", r.lastLineLen-len(line))
	}
	fmt.Fprint(r.w, "\r"+line+pad)
	r.lastLineLen = len(line)
}

func (r *packetRenderer) RenderFinal(snap stats.Snapshot) {
	if r.lastLineLen == 0 {
		return
	}
	fmt.Fprintln(r.w)
}

type nopRenderer struct{}

func (nopRenderer) Render(stats.Snapshot)      {}
func (nopRenderer) RenderFinal(stats.Snapshot) {}

// Nop returns a renderer that prints nothing.
func Nop() Renderer {
	return nopRenderer{}
}
