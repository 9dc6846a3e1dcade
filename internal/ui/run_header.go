package ui

import (
	"fmt"
	"io"
	"strconv"
)

// PrintRunHeader echoes the parsed timestamp run configuration as
// "host port rate path", where rate is requests per minute.
func PrintRunHeader(w io.Writer, host string, port int, rate float64, path string) {
	fmt.Fprintln(w, host, port, strconv.FormatFloat(rate, 'g', -1, 64), path)
}
