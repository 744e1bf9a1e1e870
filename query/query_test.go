package query

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/modemcore/cellular/reg"
)

func TestParseCOPSNumeric(t *testing.T) {
	got, err := ParseCOPS(`+COPS: 0,2,"310410",7`)
	require.NoError(t, err)
	assert.Equal(t, int32(0), got.Mode)
	assert.Equal(t, FormatNumeric, got.Format)
	assert.Equal(t, "310", got.MCC)
	assert.Equal(t, "410", got.MNC)
	assert.Equal(t, reg.RATLTE, got.RAT)
}

func TestParseCOPSLong(t *testing.T) {
	got, err := ParseCOPS(`+COPS: 0,0,"Vodafone",2`)
	require.NoError(t, err)
	assert.Equal(t, FormatLong, got.Format)
	assert.Equal(t, "Vodafone", got.Name)
	assert.Empty(t, got.MCC)
}

func TestParseCOPSBadMode(t *testing.T) {
	_, err := ParseCOPS(`+COPS: 9,0,"x",0`)
	assert.Error(t, err)
}

func TestParseCEDRXS(t *testing.T) {
	got, err := ParseCEDRXS(`+CEDRXS: 4,"0011"`)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, int32(4), got[0].Act)
	assert.Equal(t, uint8(3), got[0].Value)
}

func TestDecodeT3412(t *testing.T) {
	patterns := []struct {
		name string
		b    byte
		want uint32
	}{
		{"10min*3", 0b000_00011, 30 * 60},
		{"1h*2", 0b001_00010, 2 * 60 * 60},
		{"10h*1", 0b010_00001, 10 * 60 * 60},
		{"2s*3", 0b011_00011, 6},
		{"30s*4", 0b100_00100, 120},
		{"1min*5", 0b101_00101, 300},
		{"deactivated", 0b111_00000, DeactivatedTimer},
	}
	for _, p := range patterns {
		t.Run(p.name, func(t *testing.T) {
			got, err := DecodeT3412(p.b)
			require.NoError(t, err)
			assert.Equal(t, p.want, got)
		})
	}
}

func TestDecodeT3324(t *testing.T) {
	patterns := []struct {
		name string
		b    byte
		want uint32
	}{
		{"2s*3", 0b000_00011, 6},
		{"1min*15", 0b001_01111, 15 * 60},
		{"6min*2", 0b010_00010, 12 * 60},
		{"deactivated", 0b111_00000, DeactivatedTimer},
	}
	for _, p := range patterns {
		t.Run(p.name, func(t *testing.T) {
			got, err := DecodeT3324(p.b)
			require.NoError(t, err)
			assert.Equal(t, p.want, got)
		})
	}
}

func TestDecodeTimerMonotonicInValueForFixedUnit(t *testing.T) {
	// §8: for a fixed unit, decode is monotonic in value.
	var prev uint32
	for v := byte(0); v <= 0x1F; v++ {
		b := byte(0b011_00000) | v // 2s unit
		got, err := DecodeT3412(b)
		require.NoError(t, err)
		assert.GreaterOrEqual(t, got, prev)
		prev = got
	}
}

func TestParseCPSMS(t *testing.T) {
	// mode=1, RAU unit=2s value=3 -> 6s, ready unit=1min value=0 -> 0s,
	// TAU unit=10min value=5 -> 50min, active unit=2s value=15 -> 30s.
	got, err := ParseCPSMS(`+CPSMS: 1,"01100011","00100000","00000101","00001111"`)
	require.NoError(t, err)
	assert.Equal(t, int32(1), got.Mode)
	assert.Equal(t, uint32(6), got.RAUSeconds)
	assert.Equal(t, uint32(0), got.ReadyTimerSeconds)
	assert.Equal(t, uint32(50*60), got.TAUSeconds)
	assert.Equal(t, uint32(30), got.ActiveTimeSeconds)
}

func TestParseCCLK(t *testing.T) {
	got, err := ParseCCLK(`+CCLK: "23/05/17,10:42:31+08"`)
	require.NoError(t, err)
	assert.Equal(t, ClockTime{Year: 23, Month: 5, Day: 17, Hour: 10, Minute: 42, Second: 31, TZQuarterHours: 8}, got)
}

func TestParseCCLKNegativeTZ(t *testing.T) {
	got, err := ParseCCLK(`+CCLK: "23/05/17,10:42:31-20"`)
	require.NoError(t, err)
	assert.Equal(t, -20, got.TZQuarterHours)
}

func TestParseHPLMN(t *testing.T) {
	// MCC=310, MNC=410 (3-digit): nibble-swapped bytes per TS 51.011 §10.3.37.
	got, err := ParseHPLMN(`+CRSM: 144,0,"130014FFFFFFFFFFFF"`)
	require.NoError(t, err)
	assert.Equal(t, "310", got.MCC)
	assert.Equal(t, "410", got.MNC)
}

func TestParseHPLMNTwoDigitMNC(t *testing.T) {
	// MCC=234, MNC=15 (2-digit, signaled by an F high nibble on byte 1).
	got, err := ParseHPLMN(`+CRSM: 144,0,"32F451FFFFFFFFFFFF"`)
	require.NoError(t, err)
	assert.Equal(t, "234", got.MCC)
	assert.Equal(t, "15", got.MNC)
}

func TestParseHPLMNMemoryFailure(t *testing.T) {
	_, err := ParseHPLMN(`+CRSM: 144,64,"130014FFFFFFFFFFFF"`)
	assert.ErrorIs(t, err, ErrMemoryFailure)
}

func TestParseHPLMNRejectsAllFBlob(t *testing.T) {
	// §8: an unprovisioned EF_HPLMN reads back as all 0xFF; the parser
	// must reject it rather than report MCC="FFF".
	_, err := ParseHPLMN(`+CRSM: 144,0,"FFFFFFFFFFFFFFFFFF"`)
	assert.ErrorIs(t, err, ErrBadParameter)
}

func TestParseCOPSRejectsOutOfRangeRAT(t *testing.T) {
	_, err := ParseCOPS(`+COPS: 0,0,"Vodafone",10`)
	assert.Error(t, err)
}

func TestParseCGPADDROnlyContextID(t *testing.T) {
	got, err := ParseCGPADDR(`+CGPADDR: 1`)
	require.NoError(t, err)
	assert.Equal(t, "0,0,0,0", got)
}

func TestParseCGPADDRWithAddress(t *testing.T) {
	got, err := ParseCGPADDR(`+CGPADDR: 1,10.20.30.40`)
	require.NoError(t, err)
	assert.Equal(t, "10.20.30.40", got)
}

func TestParseCPIN(t *testing.T) {
	assert.Equal(t, SimLockReady, ParseCPIN("+CPIN: READY"))
	assert.Equal(t, SimLockPUK, ParseCPIN("+CPIN: SIM PUK"))
	assert.Equal(t, SimLockUnknown, ParseCPIN("+CPIN: GARBAGE"))
}

func TestParseCGMRTrims(t *testing.T) {
	got, err := ParseCGMR("  R01A08  ")
	require.NoError(t, err)
	assert.Equal(t, "R01A08", got)
}
