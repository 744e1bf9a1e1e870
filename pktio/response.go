package pktio

import "github.com/pkg/errors"

// ErrInvalidData is returned when a solicited response violates the shape
// implied by its command Kind — e.g. a second intermediate line where the
// kind allows only one.
var ErrInvalidData = errors.New("pktio: invalid data")

// accumulator assembles the lines of one in-flight command's response,
// applying the terminator rules of driver core §4.3.
type accumulator struct {
	kind           Kind
	expectedPrefix string
	resp           Response
	sawIntermediate bool
}

func newAccumulator(kind Kind, expectedPrefix string) *accumulator {
	return &accumulator{kind: kind, expectedPrefix: expectedPrefix}
}

// feedResult is the outcome of feeding one solicited line to the
// accumulator.
type feedResult struct {
	terminated   bool
	pendingData  bool // MultiDataWithoutPrefix: caller should now look for binary data
	err          error
}

// feed applies the four-table terminator search of §4.3 to line and updates
// the accumulated response.
func (a *accumulator) feed(table TokenTable, line string) feedResult {
	switch {
	case table.hasPrefixAny(table.ExtraSuccess, line):
		a.resp.Status = true
		a.resp.Terminator = line
		return feedResult{terminated: true}
	case table.hasPrefixAny(table.Success, line):
		a.resp.Status = true
		a.resp.Terminator = line
		return feedResult{terminated: true}
	case table.hasPrefixAny(table.Error, line):
		a.resp.Status = false
		a.resp.Terminator = line
		return feedResult{terminated: true}
	default:
		return a.feedIntermediate(line)
	}
}

func (a *accumulator) feedIntermediate(line string) feedResult {
	switch a.kind {
	case WithoutPrefix, WithPrefix:
		if a.sawIntermediate {
			return feedResult{err: errors.WithMessage(ErrInvalidData, "second intermediate line for a single-line command")}
		}
		a.sawIntermediate = true
		a.resp.Lines = append(a.resp.Lines, Line{Text: line})
		return feedResult{}
	case MultiWithPrefix, MultiWithoutPrefix:
		a.resp.Lines = append(a.resp.Lines, Line{Text: line})
		return feedResult{}
	case MultiDataWithoutPrefix:
		a.resp.Lines = append(a.resp.Lines, Line{Text: line})
		return feedResult{pendingData: true}
	case WithoutPrefixNoResultCode, WithPrefixNoResultCode:
		a.resp.Lines = append(a.resp.Lines, Line{Text: line})
		a.resp.Status = true
		a.resp.Terminator = line
		return feedResult{terminated: true}
	case NoResult:
		return feedResult{err: errors.WithMessage(ErrInvalidData, "unexpected intermediate line for a no-result command")}
	default:
		return feedResult{err: errors.WithMessage(ErrInvalidData, "unknown command kind")}
	}
}

// appendRaw appends a binary payload entry of exactly len(data) bytes,
// produced while draining a MultiDataWithoutPrefix command (§4.4.1).
func (a *accumulator) appendRaw(data []byte) {
	raw := make([]byte, len(data))
	copy(raw, data)
	a.resp.Lines = append(a.resp.Lines, Line{Raw: raw})
}
