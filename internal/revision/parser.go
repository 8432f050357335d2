// Package revision implements the revision expression grammar of spec
// §4.8: `expr := ref (suffix)*`, `ref := 'HEAD' | '@' | name | <hex-oid>`,
// `suffix := '^' [N] | '~' N`.
package revision

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/ash-vcs/ash/plumbing"
	"github.com/ash-vcs/ash/plumbing/object"
	"github.com/ash-vcs/ash/storage"
)

// Sentinel errors the parser distinguishes (spec §7 "NotFound"/"Ambiguous",
// plus the grammar's own structural failures).
var (
	// ErrNotFound is returned when the base ref names nothing resolvable.
	ErrNotFound = errors.New("revision: not found")
	// ErrSyntax is returned for a malformed expression.
	ErrSyntax = errors.New("revision: malformed expression")
	// ErrNoParent is returned when a suffix walks past a commit with no
	// (or no Nth) parent.
	ErrNoParent = errors.New("revision: no such parent")
	// ErrNotCommit is returned by ResolveCommit when the final OID isn't a commit.
	ErrNotCommit = errors.New("revision: not a commit")
)

// HintKind classifies an accumulated Hint.
type HintKind int

const (
	// HintAmbiguous records an OID prefix with more than one match.
	HintAmbiguous HintKind = iota
	// HintNotFound records an expression that failed to resolve.
	HintNotFound
)

// Hint is a non-fatal diagnostic the parser accumulates so a CLI surface
// can re-emit it (spec §4.8: "exposes them as a ... field on the parser
// object, not as error payloads").
type Hint struct {
	Kind    HintKind
	Message string
}

// Parser resolves revision expressions against an object store and
// reference store, accumulating Hints as it goes.
type Parser struct {
	objects storage.ObjectStorer
	refs    storage.ReferenceStorer
	Hints   []Hint
}

// New returns a Parser reading through objects and refs.
func New(objects storage.ObjectStorer, refs storage.ReferenceStorer) *Parser {
	return &Parser{objects: objects, refs: refs}
}

type suffixOp struct {
	caret bool // false => tilde
	n     int
}

// Resolve parses and resolves expr to an OID.
func (p *Parser) Resolve(expr string) (plumbing.Hash, error) {
	base, suffixes, err := p.tokenize(expr)
	if err != nil {
		return plumbing.ZeroHash, err
	}

	oid, err := p.resolveBase(base)
	if err != nil {
		return plumbing.ZeroHash, err
	}

	for _, op := range suffixes {
		oid, err = p.applySuffix(oid, op)
		if err != nil {
			return plumbing.ZeroHash, err
		}
	}
	return oid, nil
}

// ResolveCommit is Resolve, additionally verifying the final OID names a
// commit (spec §4.8 point 4).
func (p *Parser) ResolveCommit(expr string) (plumbing.Hash, error) {
	oid, err := p.Resolve(expr)
	if err != nil {
		return plumbing.ZeroHash, err
	}
	obj, err := p.objects.Load(oid)
	if err != nil {
		return plumbing.ZeroHash, err
	}
	if obj.Type() != plumbing.CommitObject {
		return plumbing.ZeroHash, ErrNotCommit
	}
	return oid, nil
}

// tokenize splits expr into its base ref substring and an ordered list of
// suffix operations, scanning with the shared token set.
func (p *Parser) tokenize(expr string) (string, []suffixOp, error) {
	sc := newScanner(strings.NewReader(expr))

	var base strings.Builder
	for {
		tok, data, err := sc.scan()
		if err != nil {
			return "", nil, err
		}
		if tok == eof || tok == caret || tok == tilde {
			return base.String(), p.tokenizeSuffixes(sc, tok, data, expr)
		}
		if tok == tokenError || tok == control {
			return "", nil, fmt.Errorf("%w: unexpected character %q in %q", ErrSyntax, data, expr)
		}
		base.WriteString(data)
	}
}

func (p *Parser) tokenizeSuffixes(sc *scanner, firstTok token, firstData, expr string) ([]suffixOp, error) {
	var ops []suffixOp
	tok, data := firstTok, firstData

	for tok != eof {
		switch tok {
		case caret:
			n, nextTok, nextData, err := p.scanOptionalNumber(sc)
			if err != nil {
				return nil, err
			}
			ops = append(ops, suffixOp{caret: true, n: n})
			tok, data = nextTok, nextData
		case tilde:
			n, nextTok, nextData, err := p.scanRequiredNumber(sc)
			if err != nil {
				return nil, err
			}
			ops = append(ops, suffixOp{caret: false, n: n})
			tok, data = nextTok, nextData
		default:
			return nil, fmt.Errorf("%w: unexpected suffix %q in %q", ErrSyntax, data, expr)
		}
	}
	return ops, nil
}

// scanOptionalNumber reads a trailing 'N' after '^', defaulting to 1 when
// absent, and returns the token that follows it (caret/tilde/eof).
func (p *Parser) scanOptionalNumber(sc *scanner) (int, token, string, error) {
	tok, data, err := sc.scan()
	if err != nil {
		return 0, 0, "", err
	}
	if tok != number {
		return 1, tok, data, nil
	}
	n, err := strconv.Atoi(data)
	if err != nil {
		return 0, 0, "", fmt.Errorf("%w: %v", ErrSyntax, err)
	}
	next, nextData, err := sc.scan()
	if err != nil {
		return 0, 0, "", err
	}
	return n, next, nextData, nil
}

func (p *Parser) scanRequiredNumber(sc *scanner) (int, token, string, error) {
	tok, data, err := sc.scan()
	if err != nil {
		return 0, 0, "", err
	}
	if tok != number {
		return 0, 0, "", fmt.Errorf("%w: '~' requires a generation count", ErrSyntax)
	}
	n, err := strconv.Atoi(data)
	if err != nil {
		return 0, 0, "", fmt.Errorf("%w: %v", ErrSyntax, err)
	}
	next, nextData, err := sc.scan()
	if err != nil {
		return 0, 0, "", err
	}
	return n, next, nextData, nil
}

func (p *Parser) resolveBase(base string) (plumbing.Hash, error) {
	if base == "HEAD" || base == "@" {
		oid, ok, err := p.refs.ReadRef(plumbing.HEAD)
		if err != nil {
			return plumbing.ZeroHash, err
		}
		if !ok {
			p.hint(HintNotFound, "HEAD does not resolve to a commit yet")
			return plumbing.ZeroHash, ErrNotFound
		}
		return oid, nil
	}

	branch := plumbing.NewBranchReferenceName(base)
	if oid, ok, err := p.refs.ReadRef(branch); err != nil {
		return plumbing.ZeroHash, err
	} else if ok {
		return oid, nil
	}

	if plumbing.IsValidHexPrefix(base) {
		oid, err := p.objects.Resolve(base)
		if err == nil {
			return oid, nil
		}
		var ambiguous *storage.AmbiguousError
		if errors.As(err, &ambiguous) {
			var names []string
			for _, h := range ambiguous.Candidates {
				names = append(names, h.String())
			}
			p.hint(HintAmbiguous, fmt.Sprintf("%q is ambiguous: %s", base, strings.Join(names, ", ")))
			return plumbing.ZeroHash, err
		}
		if errors.Is(err, storage.ErrNotFound) {
			p.hint(HintNotFound, fmt.Sprintf("%q did not resolve to any object", base))
			return plumbing.ZeroHash, ErrNotFound
		}
		return plumbing.ZeroHash, err
	}

	p.hint(HintNotFound, fmt.Sprintf("%q did not resolve to any reference or object", base))
	return plumbing.ZeroHash, ErrNotFound
}

func (p *Parser) applySuffix(oid plumbing.Hash, op suffixOp) (plumbing.Hash, error) {
	if op.caret && op.n == 0 {
		return oid, nil
	}

	steps := op.n
	if op.caret {
		steps = 1
	}

	cur := oid
	for i := 0; i < steps; i++ {
		obj, err := p.objects.Load(cur)
		if err != nil {
			return plumbing.ZeroHash, err
		}
		commit, ok := obj.(*object.Commit)
		if !ok {
			return plumbing.ZeroHash, fmt.Errorf("%w: %s is not a commit", ErrNoParent, cur)
		}

		idx := 0
		if op.caret {
			idx = op.n - 1
		}
		parent, err := commit.Parent(idx)
		if err != nil {
			return plumbing.ZeroHash, fmt.Errorf("%w: %v", ErrNoParent, err)
		}
		cur = parent
	}
	return cur, nil
}

func (p *Parser) hint(kind HintKind, message string) {
	p.Hints = append(p.Hints, Hint{Kind: kind, Message: message})
}
