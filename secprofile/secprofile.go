// Package secprofile queries the TLS security profiles stored in the modem.
package secprofile

import (
	"bytes"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/allbin/go-sequans"
)

const (
	queryCommand = "AT+SQNSPCFG"
	entryPrefix  = "+SQNSPCFG: "

	// responseSize holds the listing of a handful of profiles
	responseSize = 256
)

// Transport is the part of a sequans.Link the checker needs.
type Transport interface {
	Command(command string, buf []byte) sequans.ResponseResult
}

var _ Transport = (*sequans.Link)(nil)

// Checker looks up security profiles.
type Checker struct {
	link   Transport
	logger *slog.Logger
}

// New creates a Checker. A nil logger means slog.Default().
func New(link Transport, logger *slog.Logger) *Checker {
	if logger == nil {
		logger = slog.Default()
	}
	return &Checker{link: link, logger: logger}
}

// Profiles returns the ids of every configured security profile, in the
// order the modem lists them.
func (c *Checker) Profiles() ([]int, error) {
	buf := make([]byte, responseSize)
	if result := c.link.Command(queryCommand, buf); result != sequans.ResponseOK {
		return nil, fmt.Errorf("query security profiles: %w", result.Err())
	}

	if end := bytes.IndexByte(buf, 0); end >= 0 {
		buf = buf[:end]
	}
	return parseProfiles(buf), nil
}

// Exists reports whether a security profile with id is configured. A failed
// query is logged and reported as false.
func (c *Checker) Exists(id int) bool {
	ids, err := c.Profiles()
	if err != nil {
		c.logger.Error("Failed to query security profile", "id", id, "error", err)
		return false
	}

	for _, got := range ids {
		if got == id {
			return true
		}
	}
	return false
}

// parseProfiles reads the leading id of every +SQNSPCFG line
func parseProfiles(response []byte) []int {
	var ids []int

	lines := bytes.FieldsFunc(response, func(r rune) bool {
		return r == '\r' || r == '\n'
	})
	for _, line := range lines {
		rest, ok := bytes.CutPrefix(line, []byte(entryPrefix))
		if !ok {
			continue
		}
		if id, ok := leadingInt(rest); ok {
			ids = append(ids, id)
		}
	}
	return ids
}

// leadingInt parses the digits at the start of b, the way %d would
func leadingInt(b []byte) (int, bool) {
	end := 0
	for end < len(b) && b[end] >= '0' && b[end] <= '9' {
		end++
	}
	if end == 0 {
		return 0, false
	}
	n, err := strconv.Atoi(string(b[:end]))
	if err != nil {
		return 0, false
	}
	return n, true
}
