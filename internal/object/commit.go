package object

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"
	"time"

	gerrors "grit/internal/errors"
)

// Signature identifies who made a commit and when.
type Signature struct {
	Name  string
	Email string
	When  time.Time
	// Zone is the "+hhmm"/"-hhmm" offset written next to the timestamp.
	// When empty the offset of When's location is used.
	Zone string
}

func (s Signature) zone() string {
	if s.Zone != "" {
		return s.Zone
	}
	return s.When.Format("-0700")
}

func (s Signature) String() string {
	return fmt.Sprintf("%s <%s> %d %s", s.Name, s.Email, s.When.Unix(), s.zone())
}

// Commit points at a root tree and, except for the first commit, at the
// commit that preceded it. Commits are never modified after creation.
type Commit struct {
	Tree      ID
	Parent    *ID
	Author    Signature
	Committer Signature
	Message   string

	id      ID
	encoded []byte
}

// NewCommit builds a commit whose committer is the author.
func NewCommit(tree ID, parent *ID, author Signature, message string) *Commit {
	c := &Commit{
		Tree:      tree,
		Parent:    parent,
		Author:    author,
		Committer: author,
		Message:   message,
	}
	c.encoded = Frame(KindCommit, c.payload())
	c.id = Sum(c.encoded)
	return c
}

func (c *Commit) payload() []byte {
	var b strings.Builder
	fmt.Fprintf(&b, "tree %s\n", c.Tree)
	if c.Parent != nil {
		fmt.Fprintf(&b, "parent %s\n", *c.Parent)
	}
	fmt.Fprintf(&b, "author %s\n", c.Author)
	fmt.Fprintf(&b, "committer %s\n\n", c.Committer)
	b.WriteString(c.Message)
	return []byte(b.String())
}

func (c *Commit) ID() ID          { return c.id }
func (c *Commit) Kind() Kind      { return KindCommit }
func (c *Commit) Encoded() []byte { return c.encoded }

// Title is the first line of the message.
func (c *Commit) Title() string {
	title, _, _ := strings.Cut(c.Message, "\n")
	return title
}

// ParseCommit decodes a framed commit object.
func ParseCommit(raw []byte) (*Commit, error) {
	kind, payload, err := Parse(raw)
	if err != nil {
		return nil, err
	}
	if kind != KindCommit {
		return nil, gerrors.ValidationError(fmt.Sprintf("object is a %s, not a commit", kind))
	}

	headers, message, ok := bytes.Cut(payload, []byte("\n\n"))
	if !ok {
		return nil, gerrors.Corrupt("commit has no message separator", nil)
	}

	c := &Commit{Message: string(message)}
	for _, line := range strings.Split(string(headers), "\n") {
		key, value, _ := strings.Cut(line, " ")
		switch key {
		case "tree":
			if c.Tree, err = ParseID(value); err != nil {
				return nil, gerrors.Corrupt("commit tree", err)
			}
		case "parent":
			parent, err := ParseID(value)
			if err != nil {
				return nil, gerrors.Corrupt("commit parent", err)
			}
			c.Parent = &parent
		case "author":
			if c.Author, err = parseSignature(value); err != nil {
				return nil, err
			}
		case "committer":
			if c.Committer, err = parseSignature(value); err != nil {
				return nil, err
			}
		default:
			return nil, gerrors.Corrupt(fmt.Sprintf("unknown commit header %q", key), nil)
		}
	}
	if c.Tree.IsZero() {
		return nil, gerrors.Corrupt("commit has no tree", nil)
	}

	c.encoded = raw
	c.id = Sum(raw)
	return c, nil
}

func parseSignature(s string) (Signature, error) {
	open := strings.LastIndex(s, " <")
	closing := strings.LastIndex(s, "> ")
	if open < 0 || closing < open {
		return Signature{}, gerrors.Corrupt(fmt.Sprintf("malformed signature %q", s), nil)
	}
	fields := strings.Fields(s[closing+2:])
	if len(fields) != 2 {
		return Signature{}, gerrors.Corrupt(fmt.Sprintf("malformed signature time %q", s), nil)
	}
	secs, err := strconv.ParseInt(fields[0], 10, 64)
	if err != nil {
		return Signature{}, gerrors.Corrupt("malformed signature timestamp", err)
	}
	zone, err := time.Parse("-0700", fields[1])
	if err != nil {
		return Signature{}, gerrors.Corrupt("malformed signature zone", err)
	}
	return Signature{
		Name:  s[:open],
		Email: s[open+2 : closing],
		When:  time.Unix(secs, 0).In(zone.Location()),
		Zone:  fields[1],
	}, nil
}
