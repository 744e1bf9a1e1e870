// Package reg tracks 3GPP circuit-switched and packet-switched
// registration state from +CREG/+CGREG/+CEREG lines (both URC and query
// forms) and emits a change event whenever CS or PS status changes.
package reg

import (
	"sync"

	"github.com/modemcore/cellular/atutil"
)

// RAT is a radio access technology.
type RAT int

const (
	RATInvalid RAT = iota
	RATGSM
	RATEDGE
	RATLTE
	RATCatM1
	RATNBIoT
	ratMax
)

// Status is a CS or PS registration status, as reported by +CREG/+CGREG/+CEREG.
type Status int

const (
	NotRegisteredSearching Status = iota
	RegisteredHome
	Searching
	Denied
	UnknownStatus
	Roaming
	statusMax
)

const (
	sentinelLAC    = 0xFFFF
	sentinelCellID = 0xFFFFFFFF
)

// Domain is which half of a Record a parsed line updates.
type Domain int

const (
	DomainCS Domain = iota // +CREG
	DomainPS                // +CGREG / +CEREG
)

// Record is the registration state record ("at-data") shared between the
// worker goroutine (sole writer) and callers (readers), guarded by State.
type Record struct {
	CSRegStatus Status
	PSRegStatus Status

	CSRejectType, CSRejectCause int
	PSRejectType, PSRejectCause int

	RAT RAT

	CellID     uint32
	LAC, TAC   uint16
	RAC        uint8
}

func newRecord() Record {
	return Record{
		CSRegStatus: UnknownStatus,
		PSRegStatus: UnknownStatus,
		RAT:         RATInvalid,
		CellID:      sentinelCellID,
		LAC:         sentinelLAC,
		TAC:         sentinelLAC,
		RAC:         sentinelLAC & 0xFF,
	}
}

// Event is emitted after a CS or PS status change, carrying the whole
// record as it stood immediately after the update.
type Event struct {
	Domain Domain
	Record Record
	// PLMN is always the placeholder "FFF" — registration URCs carry no
	// PLMN of their own (§4.6).
	PLMN string
}

// State is the at-data lock: a Record guarded by a mutex, updated only by
// the worker goroutine that parses registration lines and read by any
// number of callers.
type State struct {
	mu     sync.RWMutex
	record Record
	onEvent func(Event)
}

// NewState builds a State in its power-on-reset shape. onEvent, if
// non-nil, is invoked synchronously on the worker goroutine strictly
// after the triggering update is visible to readers (§5).
func NewState(onEvent func(Event)) *State {
	return &State{record: newRecord(), onEvent: onEvent}
}

// Snapshot returns a copy of the current record.
func (s *State) Snapshot() Record {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.record
}

// ApplyLine parses a +CREG/+CGREG/+CEREG line and updates the record.
// domain selects whether CS or PS fields are written; urc selects the
// token's position indexing (§4.6: <stat> is the 1st field of a URC and
// the 2nd of a query response, where the modem echoes <n> before <stat>).
func (s *State) ApplyLine(domain Domain, line string, urc bool) error {
	line = atutil.Payload(line)
	line = atutil.RemoveAllDoubleQuotes(line)
	line = atutil.RemoveAllWhitespace(line)

	// §4.6: <stat> is the 1st comma-separated field (1-based) for a URC —
	// no leading token — and the 2nd for a query response, which echoes
	// the command's own <n> ahead of it.
	tk := atutil.NewTokenizer(line)
	skip := 0
	if !urc {
		skip = 1
	}
	for i := 0; i < skip; i++ {
		if _, ok := tk.Next(); !ok {
			return atutil.ErrBadParameter
		}
	}

	statTok, ok := tk.Next()
	if !ok {
		return atutil.ErrBadParameter
	}
	statVal, err := atutil.Strtoi(statTok, 10)
	if err != nil {
		return err
	}
	status, err := statusFromWire(statVal)
	if err != nil {
		return err
	}

	lacTok, _ := tk.Next()
	cellTok, _ := tk.Next()
	ratTok, _ := tk.Next()

	// The reject fields are only present on a Denied line, and are preceded
	// by one more field (the cause type) this record does not track.
	var rejectTypeTok, rejectCauseTok string
	if status == Denied {
		_, _ = tk.Next() // cause type, unused
		rejectTypeTok, _ = tk.Next()
		rejectCauseTok, _ = tk.Next()
	}

	s.mu.Lock()
	rec := s.record
	changed, ratErr := s.applyLocked(&rec, domain, status, lacTok, cellTok, ratTok, rejectTypeTok, rejectCauseTok)
	s.record = rec
	s.mu.Unlock()

	if changed && s.onEvent != nil {
		s.onEvent(Event{Domain: domain, Record: rec, PLMN: "FFF"})
	}
	return ratErr
}

func (s *State) applyLocked(rec *Record, domain Domain, status Status, lacTok, cellTok, ratTok, rejectTypeTok, rejectCauseTok string) (bool, error) {
	var prev Status
	if domain == DomainCS {
		prev = rec.CSRegStatus
		rec.CSRegStatus = status
	} else {
		prev = rec.PSRegStatus
		rec.PSRegStatus = status
	}

	registered := status == RegisteredHome || status == Roaming
	var ratErr error

	if registered {
		if lac, err := atutil.Strtoi(lacTok, 16); err == nil {
			rec.LAC = uint16(lac)
			rec.TAC = uint16(lac)
		}
		if cell, err := strtoi32Hex(cellTok); err == nil {
			rec.CellID = cell
		}
		if rat, err := atutil.Strtoi(ratTok, 10); err == nil {
			if parsed, err := ratFromWire(rat); err == nil {
				rec.RAT = parsed
			} else {
				ratErr = err
			}
		}
	} else {
		rec.LAC = sentinelLAC
		rec.TAC = sentinelLAC
		rec.RAC = sentinelLAC & 0xFF
		rec.CellID = sentinelCellID
		rec.RAT = RATInvalid
	}

	if status == Denied {
		rt, _ := atutil.Strtoi(rejectTypeTok, 10)
		rc, _ := atutil.Strtoi(rejectCauseTok, 10)
		if domain == DomainCS {
			rec.CSRejectType, rec.CSRejectCause = int(rt), int(rc)
		} else {
			rec.PSRejectType, rec.PSRejectCause = int(rt), int(rc)
		}
	} else {
		if domain == DomainCS {
			rec.CSRejectType, rec.CSRejectCause = 0, 0
		} else {
			rec.PSRejectType, rec.PSRejectCause = 0, 0
		}
	}

	return prev != status, ratErr
}

// strtoi32Hex parses a hex cell id into a uint32, returning an error for
// an empty token (a line that omits the cell id).
func strtoi32Hex(tok string) (uint32, error) {
	if tok == "" {
		return 0, atutil.ErrBadParameter
	}
	v, err := atutil.Strtoi(tok, 16)
	if err != nil {
		return 0, err
	}
	return uint32(v), nil
}

func statusFromWire(v int32) (Status, error) {
	switch v {
	case 0:
		return NotRegisteredSearching, nil
	case 1:
		return RegisteredHome, nil
	case 2:
		return Searching, nil
	case 3:
		return Denied, nil
	case 4:
		return UnknownStatus, nil
	case 5:
		return Roaming, nil
	default:
		return UnknownStatus, atutil.ErrUnknown
	}
}

// wireRatMax bounds the 3GPP <AcT> enum this driver accepts (0..9); a token
// at or beyond it is not a valid AcT value at all, not merely one this
// driver leaves unmapped.
const wireRatMax = 10

// ratFromWire remaps the wire RAT enum (rat == 7 means LTE) into RAT.
// Unrecognized-but-in-range values report Invalid; values at or beyond
// wireRatMax are a parse error (§4.6: "any other valid enum value yields
// Invalid; values ≥ max are a parse error").
func ratFromWire(v int32) (RAT, error) {
	if v >= wireRatMax || v < 0 {
		return RATInvalid, atutil.ErrBadParameter
	}
	if v == 7 {
		return RATLTE, nil
	}
	switch v {
	case 0:
		return RATGSM, nil
	case 3:
		return RATEDGE, nil
	case 8:
		return RATCatM1, nil
	case 9:
		return RATNBIoT, nil
	default:
		return RATInvalid, nil
	}
}
