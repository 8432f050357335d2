package object

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"

	"github.com/ash-vcs/ash/plumbing"
)

// ErrParentNotFound is returned by Commit.Parent when the index is out of
// range of ParentHashes.
var ErrParentNotFound = errors.New("parent not found")

// Commit is a tree snapshot plus history and identity headers (spec §3
// "Commit"). Unlike the single-parent original this tracks ParentHashes as
// a slice so merge commits can record more than one parent.
type Commit struct {
	Hash         plumbing.Hash
	TreeHash     plumbing.Hash
	ParentHashes []plumbing.Hash
	Author       Signature
	Committer    Signature
	Message      string
}

// NewCommit builds a Commit directly from its headers and message, without
// going through the object store; its Hash is left unset until Store
// computes it.
func NewCommit(tree plumbing.Hash, parents []plumbing.Hash, author, committer Signature, message string) *Commit {
	return &Commit{
		TreeHash:     tree,
		ParentHashes: parents,
		Author:       author,
		Committer:    committer,
		Message:      message,
	}
}

// ID returns the commit's OID.
func (c *Commit) ID() plumbing.Hash { return c.Hash }

// Type always returns plumbing.CommitObject.
func (c *Commit) Type() plumbing.ObjectType { return plumbing.CommitObject }

// NumParents returns the number of recorded parents.
func (c *Commit) NumParents() int { return len(c.ParentHashes) }

// Parent returns the i-th parent hash.
func (c *Commit) Parent(i int) (plumbing.Hash, error) {
	if i < 0 || i >= len(c.ParentHashes) {
		return plumbing.ZeroHash, ErrParentNotFound
	}
	return c.ParentHashes[i], nil
}

// IsMerge reports whether c has more than one parent.
func (c *Commit) IsMerge() bool { return len(c.ParentHashes) > 1 }

// Bytes serialises c into its canonical payload: "tree <oid>" then zero or
// more "parent <oid>" lines, then "author <ident>", "committer <ident>", a
// blank line, then the message (spec §3 "Commit").
func (c *Commit) Bytes() []byte {
	var buf bytes.Buffer

	fmt.Fprintf(&buf, "tree %s\n", c.TreeHash)
	for _, p := range c.ParentHashes {
		fmt.Fprintf(&buf, "parent %s\n", p)
	}
	fmt.Fprintf(&buf, "author %s\n", c.Author)
	fmt.Fprintf(&buf, "committer %s\n", c.Committer)
	buf.WriteByte('\n')
	buf.WriteString(c.Message)

	return buf.Bytes()
}

// Decode parses a commit's canonical payload back into headers and message.
func (c *Commit) Decode(hash plumbing.Hash, kind plumbing.ObjectType, payload []byte) error {
	if kind != plumbing.CommitObject {
		return ErrUnsupportedObject
	}

	c.Hash = hash
	c.ParentHashes = nil

	r := bufio.NewReader(bytes.NewReader(payload))
	inMessage := false
	var msg bytes.Buffer

	for {
		line, err := r.ReadBytes('\n')
		if err != nil && err != io.EOF {
			return err
		}

		trimmed := bytes.TrimRight(line, "\n")

		if !inMessage {
			if len(trimmed) == 0 {
				inMessage = true
			} else {
				split := bytes.SplitN(trimmed, []byte(" "), 2)
				if len(split) != 2 {
					return fmt.Errorf("malformed commit header: %q", trimmed)
				}
				switch string(split[0]) {
				case "tree":
					c.TreeHash = plumbing.NewHash(string(split[1]))
				case "parent":
					c.ParentHashes = append(c.ParentHashes, plumbing.NewHash(string(split[1])))
				case "author":
					c.Author.Decode(split[1])
				case "committer":
					c.Committer.Decode(split[1])
				}
			}
		} else {
			msg.Write(trimmed)
			msg.WriteByte('\n')
		}

		if err == io.EOF {
			break
		}
	}

	c.Message = msg.String()
	return nil
}

// String renders c the way "log" does: the commit line, the author and
// date lines, then the whole message indented by four spaces.
func (c *Commit) String() string {
	return fmt.Sprintf(
		"commit %s\nAuthor: %s <%s>\nDate:   %s\n\n%s\n",
		c.Hash, c.Author.Name, c.Author.Email, c.Author.When.Format("Mon Jan 2 15:04:05 2006 -0700"), indent(c.Message),
	)
}

func indent(message string) string {
	lines := bytes.Split([]byte(message), []byte("\n"))
	var buf bytes.Buffer
	for i, line := range lines {
		if i == len(lines)-1 && len(line) == 0 {
			break
		}
		buf.WriteString("    ")
		buf.Write(line)
		buf.WriteByte('\n')
	}
	return string(bytes.TrimRight(buf.Bytes(), "\n"))
}
