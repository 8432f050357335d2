package object

import (
	"bytes"
	"fmt"
	"strconv"
	"time"
)

// Signature is a commit identity line: "Name <email> <unix-seconds> <±hhmm>"
// (spec §3 "Identity lines").
type Signature struct {
	Name  string
	Email string
	When  time.Time
}

// Decode parses raw into s, tolerating the malformed inputs git itself
// tolerates (missing angle brackets, empty name/email, no timestamp).
func (s *Signature) Decode(raw []byte) {
	*s = Signature{}
	if len(raw) == 0 {
		return
	}

	open := bytes.IndexByte(raw, '<')
	shut := bytes.IndexByte(raw, '>')
	if open < 0 || shut < 0 || shut < open {
		s.Name = string(bytes.TrimSpace(raw))
		return
	}

	s.Name = string(bytes.TrimSpace(raw[:open]))
	s.Email = string(raw[open+1 : shut])

	rest := bytes.TrimSpace(raw[shut+1:])
	if len(rest) == 0 {
		return
	}

	fields := bytes.Fields(rest)
	sec, err := strconv.ParseInt(string(fields[0]), 10, 64)
	if err != nil {
		return
	}

	loc := time.UTC
	if len(fields) > 1 {
		if l, err := parseOffset(string(fields[1])); err == nil {
			loc = l
		}
	}
	s.When = time.Unix(sec, 0).In(loc)
}

// parseOffset turns a "+hhmm"/"-hhmm" token into a fixed-offset Location.
func parseOffset(tok string) (*time.Location, error) {
	if len(tok) != 5 {
		return nil, fmt.Errorf("malformed timezone %q", tok)
	}

	sign := 1
	switch tok[0] {
	case '-':
		sign = -1
	case '+':
	default:
		return nil, fmt.Errorf("malformed timezone %q", tok)
	}

	hh, err := strconv.Atoi(tok[1:3])
	if err != nil {
		return nil, err
	}
	mm, err := strconv.Atoi(tok[3:5])
	if err != nil {
		return nil, err
	}

	offset := sign * (hh*3600 + mm*60)
	return time.FixedZone(tok, offset), nil
}

// String renders s in the on-disk encoding used by commit headers.
func (s Signature) String() string {
	when := s.When
	_, offset := when.Zone()
	sign := "+"
	if offset < 0 {
		sign = "-"
		offset = -offset
	}
	hh := offset / 3600
	mm := (offset % 3600) / 60

	return fmt.Sprintf("%s <%s> %d %s%02d%02d", s.Name, s.Email, when.Unix(), sign, hh, mm)
}
