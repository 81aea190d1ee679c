package shell

import (
	"os"
	"os/signal"
	"strings"
	"syscall"
)

// QuoteSplit splits a command line, respecting single and double quotes.
// Returns nil on an unterminated quote.
func QuoteSplit(s string) []string {
	var a []string

	for len(s) > 0 {
		switch c := s[0]; c {
		case '\t', '\n', '\r', ' ':
			s = s[1:]
		case '"', '\'':
			i := strings.IndexByte(s[1:], c)
			if i < 0 {
				return nil
			}
			a = append(a, s[1:i+1])
			s = s[i+2:]
		default:
			if i := strings.IndexAny(s, "\t\n\r "); i > 0 {
				a = append(a, s[:i])
				s = s[i:]
			} else {
				a = append(a, s)
				s = ""
			}
		}
	}

	return a
}

// RunUntilSignal blocks until SIGINT or SIGTERM and returns the signal.
func RunUntilSignal() os.Signal {
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
	return <-sigs
}
