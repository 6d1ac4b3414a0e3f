package script

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// Keywords accepted as the first token of a script line.
const (
	keywordOpen  = "open"
	keywordClose = "close"
	keywordWait  = "wait"
	keywordPump  = "pump"
	keywordPause = "pause"

	commentPrefix = "#"
)

// maxWaitSeconds keeps every wait, and the script total, representable as a time.Duration.
const maxWaitSeconds = int(math.MaxInt64 / int64(time.Second))

var (
	waitUnits = map[string]int{"s": 1, "m": 60, "h": 3600}
	pumpUnits = map[string]struct{}{"hz": {}}
)

// ErrEmptyScript is returned by callers that refuse to run a script without operations.
var ErrEmptyScript = errors.New("script has no operations")

// SyntaxError describes the first malformed line of a script.
type SyntaxError struct {
	Line   int    // 1-based line number in the submitted text
	Token  string // offending token, empty when a token is missing
	Reason string
}

func (e *SyntaxError) Error() string {
	if e.Token == "" {
		return fmt.Sprintf("script syntax error on line %d: %s", e.Line, e.Reason)
	}
	return fmt.Sprintf("script syntax error on line %d at %q: %s", e.Line, e.Token, e.Reason)
}

// ValveSet is the set of valve aliases a script may reference.
type ValveSet map[string]struct{}

// NewValveSet builds a ValveSet from aliases. Aliases are matched case-insensitively.
func NewValveSet(aliases ...string) ValveSet {
	vs := make(ValveSet, len(aliases))
	for _, a := range aliases {
		vs[strings.ToLower(strings.TrimSpace(a))] = struct{}{}
	}
	return vs
}

// Has reports whether alias is a known valve.
func (vs ValveSet) Has(alias string) bool {
	_, ok := vs[alias]
	return ok
}

// Parse converts script text into a Script. The whole text is rejected on the
// first error; a partially parsed script is never returned.
func Parse(text string, valves ValveSet) (Script, error) {
	var (
		ops      []Operation
		expected int
	)

	for i, raw := range strings.Split(strings.ToLower(text), "\n") {
		lineNo := i + 1
		line := strings.TrimSpace(strings.TrimSuffix(raw, "\r"))
		if line == "" || strings.HasPrefix(line, commentPrefix) {
			continue
		}

		tokens := strings.Split(line, " ")
		op, err := parseLine(lineNo, tokens, valves)
		if err != nil {
			return Script{}, err
		}
		if w, ok := op.(Wait); ok {
			if w.Seconds > maxWaitSeconds-expected {
				return Script{}, &SyntaxError{Line: lineNo, Token: tokens[1], Reason: "total duration is out of range"}
			}
			expected += w.Seconds
		}
		ops = append(ops, op)
	}

	return Script{Operations: ops, ExpectedSeconds: expected}, nil
}

func parseLine(lineNo int, tokens []string, valves ValveSet) (Operation, error) {
	keyword, args := tokens[0], tokens[1:]

	switch keyword {
	case keywordOpen, keywordClose:
		if err := expectArgs(lineNo, keyword, args, 1, "a valve"); err != nil {
			return nil, err
		}
		valve := args[0]
		if !valves.Has(valve) {
			return nil, &SyntaxError{Line: lineNo, Token: valve, Reason: "unknown valve"}
		}
		if keyword == keywordOpen {
			return Open{Valve: valve}, nil
		}
		return Close{Valve: valve}, nil

	case keywordWait:
		if err := expectArgs(lineNo, keyword, args, 2, "a duration and a unit (s, m, h)"); err != nil {
			return nil, err
		}
		n, err := parseCount(lineNo, args[0], "duration")
		if err != nil {
			return nil, err
		}
		mult, ok := waitUnits[args[1]]
		if !ok {
			return nil, &SyntaxError{Line: lineNo, Token: args[1], Reason: "wait unit must be one of s, m, h"}
		}
		if n > maxWaitSeconds/mult {
			return nil, &SyntaxError{Line: lineNo, Token: args[0], Reason: "duration is out of range"}
		}
		return Wait{Seconds: n * mult}, nil

	case keywordPump:
		if err := expectArgs(lineNo, keyword, args, 2, "a frequency and the unit hz"); err != nil {
			return nil, err
		}
		hz, err := parseCount(lineNo, args[0], "frequency")
		if err != nil {
			return nil, err
		}
		if _, ok := pumpUnits[args[1]]; !ok {
			return nil, &SyntaxError{Line: lineNo, Token: args[1], Reason: "pump unit must be hz"}
		}
		return Pump{Hz: hz}, nil

	case keywordPause:
		if err := expectArgs(lineNo, keyword, args, 0, "no arguments"); err != nil {
			return nil, err
		}
		return Pause{}, nil

	default:
		return nil, &SyntaxError{Line: lineNo, Token: keyword, Reason: "unknown operation"}
	}
}

func expectArgs(lineNo int, keyword string, args []string, want int, what string) error {
	if len(args) == want {
		return nil
	}
	token := keyword
	if len(args) > want {
		token = args[want]
	}
	return &SyntaxError{Line: lineNo, Token: token, Reason: fmt.Sprintf("%s takes %s", keyword, what)}
}

// parseCount accepts plain decimal digits only, so "+5" and "-1" are rejected.
func parseCount(lineNo int, tok, what string) (int, error) {
	if tok == "" || strings.TrimLeft(tok, "0123456789") != "" {
		return 0, &SyntaxError{Line: lineNo, Token: tok, Reason: what + " is not an integer"}
	}
	n, err := strconv.Atoi(tok)
	if err != nil {
		return 0, &SyntaxError{Line: lineNo, Token: tok, Reason: what + " is out of range"}
	}
	return n, nil
}
