// Package query implements the pure line-to-struct parsers for the 3GPP
// query commands the driver core issues: COPS, CEDRXS, CPSMS, CCLK,
// CRSM/HPLMN, CIMI, CCID, CGMR/CGSN/CGMM/CGMI, CGPADDR and CPIN (§4.7).
// None of these hold state or talk to a transport; each takes one
// already-delimited response line and returns a typed result.
package query

import (
	"strings"

	"github.com/modemcore/cellular/atutil"
	"github.com/modemcore/cellular/reg"
)

// OperatorFormat is the +COPS <format> field.
type OperatorFormat int32

const (
	FormatLong OperatorFormat = iota
	FormatShort
	FormatNumeric
)

// OperatorSelection is the parsed result of +COPS?.
type OperatorSelection struct {
	Mode   int32
	Format OperatorFormat
	Name   string
	MCC    string // populated only when Format == FormatNumeric
	MNC    string
	RAT    reg.RAT
}

const regModeMax = 5 // 0..4: automatic, manual, deregister, set-only, manual/automatic

// ParseCOPS parses a +COPS: <mode>,<format>,<name>,<rat> line.
func ParseCOPS(line string) (OperatorSelection, error) {
	payload := atutil.RemoveAllWhitespace(atutil.Payload(line))
	tk := atutil.NewTokenizer(payload)

	modeTok, ok := tk.Next()
	if !ok {
		return OperatorSelection{}, ErrBadParameter
	}
	mode, err := atutil.Strtoi(modeTok, 10)
	if err != nil || mode < 0 || mode >= regModeMax {
		return OperatorSelection{}, ErrBadParameter
	}

	formatTok, ok := tk.Next()
	if !ok {
		return OperatorSelection{}, ErrBadParameter
	}
	formatVal, err := atutil.Strtoi(formatTok, 10)
	if err != nil || formatVal < int32(FormatLong) || formatVal > int32(FormatNumeric) {
		return OperatorSelection{}, ErrBadParameter
	}
	format := OperatorFormat(formatVal)

	nameTok, _ := tk.Next()
	name, err := atutil.RemoveOutermostDoubleQuote(nameTok)
	if err != nil {
		return OperatorSelection{}, err
	}

	ratTok, _ := tk.Next()
	var rat reg.RAT
	if ratTok != "" {
		ratVal, err := atutil.Strtoi(ratTok, 10)
		if err != nil {
			return OperatorSelection{}, err
		}
		rat, err = ratFromWire(ratVal)
		if err != nil {
			return OperatorSelection{}, err
		}
	}

	result := OperatorSelection{Mode: mode, Format: format, Name: name, RAT: rat}
	if format == FormatNumeric {
		if len(name) != 5 && len(name) != 6 {
			return OperatorSelection{}, ErrBadParameter
		}
		result.MCC = name[:3]
		result.MNC = name[3:]
	}
	return result, nil
}

// ratWireMax mirrors reg.wireRatMax: the 3GPP <AcT> enum this driver
// accepts (0..9); a token at or beyond it is a parse error.
const ratWireMax = 10

// ratFromWire mirrors reg.ratFromWire without importing its unexported
// helper — the wire encoding is part of the 3GPP AT interface, not a
// registration-package implementation detail, so each parser owns its own
// copy of the small remap.
func ratFromWire(v int32) (reg.RAT, error) {
	if v >= ratWireMax || v < 0 {
		return reg.RATInvalid, ErrBadParameter
	}
	if v == 7 {
		return reg.RATLTE, nil
	}
	switch v {
	case 0:
		return reg.RATGSM, nil
	case 3:
		return reg.RATEDGE, nil
	case 8:
		return reg.RATCatM1, nil
	case 9:
		return reg.RATNBIoT, nil
	default:
		return reg.RATInvalid, nil
	}
}

const edrxListMax = 6

// EDRXEntry is one (act, value) pair of a +CEDRXS? response.
type EDRXEntry struct {
	Act   int32
	Value uint8 // 4-bit eDRX cycle length value
}

// ParseCEDRXS parses a +CEDRXS: line listing up to edrxListMax
// (act, 4-bit binary value) pairs.
func ParseCEDRXS(line string) ([]EDRXEntry, error) {
	payload := atutil.RemoveAllDoubleQuotes(atutil.RemoveAllWhitespace(atutil.Payload(line)))
	tk := atutil.NewTokenizer(payload)

	var entries []EDRXEntry
	for len(entries) < edrxListMax {
		actTok, ok := tk.Next()
		if !ok || actTok == "" {
			break
		}
		act, err := atutil.Strtoi(actTok, 10)
		if err != nil {
			return nil, err
		}
		valTok, ok := tk.Next()
		if !ok {
			return nil, ErrBadParameter
		}
		val, err := atutil.Strtoi(valTok, 2)
		if err != nil {
			return nil, err
		}
		entries = append(entries, EDRXEntry{Act: act, Value: uint8(val)})
	}
	return entries, nil
}

// PSMSettings is the parsed result of +CPSMS?, timer fields normalized to
// seconds via DecodeT3412/DecodeT3324.
type PSMSettings struct {
	Mode              int32
	RAUSeconds        uint32
	ReadyTimerSeconds uint32
	TAUSeconds        uint32
	ActiveTimeSeconds uint32
}

// ParseCPSMS parses a +CPSMS: mode,RAU,ready_timer,TAU,active_time line.
func ParseCPSMS(line string) (PSMSettings, error) {
	payload := atutil.RemoveAllDoubleQuotes(atutil.RemoveAllWhitespace(atutil.Payload(line)))
	tk := atutil.NewTokenizer(payload)

	modeTok, ok := tk.Next()
	if !ok {
		return PSMSettings{}, ErrBadParameter
	}
	mode, err := atutil.Strtoi(modeTok, 10)
	if err != nil {
		return PSMSettings{}, err
	}

	rau, err := decodeTimerToken(tk, DecodeT3412)
	if err != nil {
		return PSMSettings{}, err
	}
	ready, err := decodeTimerToken(tk, DecodeT3324)
	if err != nil {
		return PSMSettings{}, err
	}
	tau, err := decodeTimerToken(tk, DecodeT3412)
	if err != nil {
		return PSMSettings{}, err
	}
	active, err := decodeTimerToken(tk, DecodeT3324)
	if err != nil {
		return PSMSettings{}, err
	}

	return PSMSettings{
		Mode:              mode,
		RAUSeconds:        rau,
		ReadyTimerSeconds: ready,
		TAUSeconds:        tau,
		ActiveTimeSeconds: active,
	}, nil
}

func decodeTimerToken(tk *atutil.Tokenizer, decode func(byte) (uint32, error)) (uint32, error) {
	tok, _ := tk.Next()
	if tok == "" {
		return 0, nil
	}
	v, err := atutil.Strtoi(tok, 2)
	if err != nil {
		return 0, err
	}
	return decode(byte(v))
}

// ClockTime is the parsed result of +CCLK?.
type ClockTime struct {
	Year, Month, Day       int
	Hour, Minute, Second   int
	TZQuarterHours         int // signed, quarter-hour offset from UTC
}

// ParseCCLK parses a +CCLK: "yy/MM/dd,hh:mm:ss±zz" line.
func ParseCCLK(line string) (ClockTime, error) {
	payload := atutil.Payload(line)
	payload, err := atutil.RemoveOutermostDoubleQuote(atutil.RemoveAllWhitespace(payload))
	if err != nil {
		return ClockTime{}, err
	}

	dateAndRest := strings.SplitN(payload, ",", 2)
	if len(dateAndRest) != 2 {
		return ClockTime{}, ErrBadParameter
	}
	dateTok := atutil.NewTokenizer(dateAndRest[0])
	year, ok1 := dateTok.NextSep('/')
	month, ok2 := dateTok.NextSep('/')
	day := dateTok.Remainder()
	if !ok1 || !ok2 || day == "" {
		return ClockTime{}, ErrBadParameter
	}

	sign := 1
	rest := dateAndRest[1]
	signIdx := strings.IndexAny(rest, "+-")
	if signIdx < 0 {
		return ClockTime{}, ErrBadParameter
	}
	if rest[signIdx] == '-' {
		sign = -1
	}
	timeTok := atutil.NewTokenizer(rest[:signIdx])
	hour, ok3 := timeTok.NextSep(':')
	minute, ok4 := timeTok.NextSep(':')
	second := timeTok.Remainder()
	if !ok3 || !ok4 || second == "" {
		return ClockTime{}, ErrBadParameter
	}
	tzTok := rest[signIdx+1:]

	fields := []struct {
		tok string
		max int32
	}{{year, 99}, {month, 12}, {day, 31}, {hour, 23}, {minute, 59}, {second, 59}, {tzTok, 96}}
	values := make([]int32, len(fields))
	for i, f := range fields {
		v, err := atutil.Strtoi(f.tok, 10)
		if err != nil || v < 0 || v > f.max {
			return ClockTime{}, ErrBadParameter
		}
		values[i] = v
	}

	return ClockTime{
		Year: int(values[0]), Month: int(values[1]), Day: int(values[2]),
		Hour: int(values[3]), Minute: int(values[4]), Second: int(values[5]),
		TZQuarterHours: sign * int(values[6]),
	}, nil
}

// HPLMN is the parsed result of a CRSM READ BINARY of EF 6F62 (home PLMN).
type HPLMN struct {
	MCC string
	MNC string
}

// ParseHPLMN parses a +CRSM: <sw1>,<sw2>,<response> line, applying the
// TS 51.011 §10.3.37 nibble-swap to recover MCC/MNC from the hex blob.
func ParseHPLMN(line string) (HPLMN, error) {
	payload := atutil.RemoveAllDoubleQuotes(atutil.RemoveAllWhitespace(atutil.Payload(line)))
	tk := atutil.NewTokenizer(payload)

	sw1Tok, ok := tk.Next()
	if !ok {
		return HPLMN{}, ErrBadParameter
	}
	sw1, err := atutil.Strtoi(sw1Tok, 10)
	if err != nil {
		return HPLMN{}, err
	}
	if sw1 != 144 && sw1 != 145 && sw1 != 146 {
		return HPLMN{}, ErrBadParameter
	}

	sw2Tok, ok := tk.Next()
	if !ok {
		return HPLMN{}, ErrBadParameter
	}
	sw2, err := atutil.Strtoi(sw2Tok, 10)
	if err != nil {
		return HPLMN{}, err
	}
	if sw2 == 64 {
		return HPLMN{}, ErrMemoryFailure
	}

	hex := tk.Remainder()
	if len(hex) < 18 { // >= 9 bytes, 2 hex chars each
		return HPLMN{}, ErrBadParameter
	}

	// Bytes (hex-pair) 0,1,2 hold, high nibble first: MCC digit2,MCC digit1 /
	// MNC digit3,MCC digit3 / MNC digit2,MNC digit1, so each byte stores its
	// two digits nibble-swapped.
	b0, err := atutil.Strtoi(hex[0:2], 16)
	if err != nil {
		return HPLMN{}, err
	}
	b1, err := atutil.Strtoi(hex[2:4], 16)
	if err != nil {
		return HPLMN{}, err
	}
	b2, err := atutil.Strtoi(hex[4:6], 16)
	if err != nil {
		return HPLMN{}, err
	}
	if b0 == 0xFF && b1 == 0xFF && b2 == 0xFF {
		return HPLMN{}, ErrBadParameter
	}

	mccD1 := b0 & 0x0F
	mccD2 := (b0 >> 4) & 0x0F
	mccD3 := b1 & 0x0F
	mncD3 := (b1 >> 4) & 0x0F
	mncD1 := b2 & 0x0F
	mncD2 := (b2 >> 4) & 0x0F

	mcc := digits(mccD1, mccD2, mccD3)
	var mnc string
	if mncD3 == 0xF {
		mnc = digits(mncD1, mncD2)
	} else {
		mnc = digits(mncD1, mncD2, mncD3)
	}
	return HPLMN{MCC: mcc, MNC: mnc}, nil
}

func digits(vs ...int32) string {
	b := make([]byte, len(vs))
	for i, v := range vs {
		b[i] = "0123456789ABCDEF"[v]
	}
	return string(b)
}

// ParseCIMI parses a +CIMI response (a bare IMSI line, no prefix).
func ParseCIMI(line string) (string, error) {
	return trimmedCopy(line, 15)
}

// ParseCCID parses a +CCID/+ICCID response.
func ParseCCID(line string) (string, error) {
	return trimmedCopy(atutil.Payload(line), 20)
}

// ParseCGMR parses a +CGMR (firmware revision) response.
func ParseCGMR(line string) (string, error) { return trimmedCopy(line, 64) }

// ParseCGSN parses a +CGSN (IMEI) response.
func ParseCGSN(line string) (string, error) { return trimmedCopy(line, 20) }

// ParseCGMM parses a +CGMM (model) response.
func ParseCGMM(line string) (string, error) { return trimmedCopy(line, 64) }

// ParseCGMI parses a +CGMI (manufacturer) response.
func ParseCGMI(line string) (string, error) { return trimmedCopy(line, 64) }

func trimmedCopy(line string, max int) (string, error) {
	s := atutil.RemoveTrailingWhitespace(atutil.RemoveLeadingWhitespace(line))
	s, err := atutil.RemoveOutermostDoubleQuote(s)
	if err != nil {
		return "", err
	}
	if len(s) > max {
		return "", ErrBadParameter
	}
	return s, nil
}

// ParseCGPADDR parses a +CGPADDR: <cid>[,<addr>] response. When the modem
// reports only the context id (no address allocated yet) this returns the
// literal "0,0,0,0" rather than an empty string — a quirk preserved from
// the original driver, which always writes the comma-joined string even
// when every address octet is unset (§9 open question).
func ParseCGPADDR(line string) (string, error) {
	payload := atutil.RemoveAllWhitespace(atutil.Payload(line))
	idx := strings.IndexByte(payload, ',')
	if idx < 0 {
		return "0,0,0,0", nil
	}
	return payload[idx+1:], nil
}

// SimLockStatus is the SIM-lock state reported by +CPIN?.
type SimLockStatus int32

const (
	SimLockUnknown SimLockStatus = iota
	SimLockReady
	SimLockPIN
	SimLockPUK
	SimLockPIN2
	SimLockPUK2
	SimLockPHNetPIN
	SimLockPHNetPUK
	SimLockPHNetSubPIN
	SimLockPHNetSubPUK
	SimLockPHSPPIN
	SimLockPHSPPUK
	SimLockPHCorpPIN
	SimLockPHCorpPUK
)

var cpinStatusWords = map[string]SimLockStatus{
	"READY":          SimLockReady,
	"SIM PIN":        SimLockPIN,
	"SIM PUK":        SimLockPUK,
	"SIM PIN2":       SimLockPIN2,
	"SIM PUK2":       SimLockPUK2,
	"PH-NET PIN":     SimLockPHNetPIN,
	"PH-NET PUK":     SimLockPHNetPUK,
	"PH-NETSUB PIN":  SimLockPHNetSubPIN,
	"PH-NETSUB PUK":  SimLockPHNetSubPUK,
	"PH-SP PIN":      SimLockPHSPPIN,
	"PH-SP PUK":      SimLockPHSPPUK,
	"PH-CORP PIN":    SimLockPHCorpPIN,
	"PH-CORP PUK":    SimLockPHCorpPUK,
}

// ParseCPIN parses a +CPIN: <status> response into a SimLockStatus,
// reporting SimLockUnknown for any status word not in the table (§4.7).
func ParseCPIN(line string) SimLockStatus {
	payload := atutil.RemoveTrailingWhitespace(atutil.RemoveLeadingWhitespace(atutil.Payload(line)))
	if status, ok := cpinStatusWords[payload]; ok {
		return status
	}
	return SimLockUnknown
}
