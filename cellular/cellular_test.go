package cellular

import (
	"context"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/modemcore/cellular/reg"
)

func newTestContext(t *testing.T) (*Context, net.Conn) {
	t.Helper()
	host, modem := net.Pipe()
	ctx, err := Init(host)
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = ctx.Cleanup()
	})
	return ctx, modem
}

func exchange(t *testing.T, modem net.Conn, wantCmd, reply string) {
	t.Helper()
	buf := make([]byte, 128)
	require.NoError(t, modem.SetReadDeadline(time.Now().Add(2*time.Second)))
	n, err := modem.Read(buf)
	require.NoError(t, err)
	assert.Equal(t, wantCmd, string(buf[:n]))
	require.NoError(t, modem.SetWriteDeadline(time.Now().Add(2*time.Second)))
	_, err = modem.Write([]byte(reply))
	require.NoError(t, err)
}

func TestGetModemInfo(t *testing.T) {
	c, modem := newTestContext(t)

	type out struct {
		info ModemInfo
		err  error
	}
	done := make(chan out, 1)
	go func() {
		info, err := c.GetModemInfo(context.Background())
		done <- out{info, err}
	}()

	exchange(t, modem, "AT+CGMI\r", "\r\nACME\r\n\r\nOK\r\n")
	exchange(t, modem, "AT+CGMM\r", "\r\nWidget9000\r\n\r\nOK\r\n")
	exchange(t, modem, "AT+CGMR\r", "\r\nR01A08\r\n\r\nOK\r\n")
	exchange(t, modem, "AT+CGSN\r", "\r\n123456789012345\r\n\r\nOK\r\n")

	res := <-done
	require.NoError(t, res.err)
	assert.Equal(t, ModemInfo{
		Manufacturer:    "ACME",
		Model:           "Widget9000",
		FirmwareVersion: "R01A08",
		IMEI:            "123456789012345",
	}, res.info)
}

func TestRfOnRfOff(t *testing.T) {
	c, modem := newTestContext(t)

	done := make(chan error, 1)
	go func() { done <- c.RfOn(context.Background()) }()
	exchange(t, modem, "AT+CFUN=1\r", "\r\nOK\r\n")
	require.NoError(t, <-done)

	go func() { done <- c.RfOff(context.Background()) }()
	exchange(t, modem, "AT+CFUN=4\r", "\r\nOK\r\n")
	require.NoError(t, <-done)
}

func TestRegistrationURCUpdatesSnapshot(t *testing.T) {
	c, modem := newTestContext(t)

	var mu sync.Mutex
	var events []string
	c.RegisterUrcNetworkRegistrationCallback(func(ev reg.Event) {
		mu.Lock()
		events = append(events, domainLabel(ev.Domain))
		mu.Unlock()
	})

	require.NoError(t, modem.SetWriteDeadline(time.Now().Add(2*time.Second)))
	_, err := modem.Write([]byte("\r\n+CEREG: 1,\"1A2B\",\"01AB0123\",7\r\n"))
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		return c.regSt.Snapshot().PSRegStatus == reg.RegisteredHome
	}, time.Second, 5*time.Millisecond)

	mu.Lock()
	assert.Equal(t, []string{"ps"}, events)
	mu.Unlock()

	type out struct {
		rec reg.Record
		err error
	}
	done := make(chan out, 1)
	go func() {
		rec, err := c.GetRegisteredNetwork(context.Background())
		done <- out{rec, err}
	}()
	exchange(t, modem, "AT+COPS?\r", "\r\n+COPS: 0,0,\"Carrier\",7\r\n\r\nOK\r\n")
	res := <-done
	require.NoError(t, res.err)
	assert.Equal(t, uint16(0x1A2B), res.rec.LAC)
	assert.Equal(t, uint32(0x01AB0123), res.rec.CellID)
	assert.Equal(t, reg.RATLTE, res.rec.RAT)
}

func TestGetRegisteredNetworkReturnsErrUnknownOnInvalidRAT(t *testing.T) {
	c, modem := newTestContext(t)

	type out struct {
		rec reg.Record
		err error
	}
	done := make(chan out, 1)
	go func() {
		rec, err := c.GetRegisteredNetwork(context.Background())
		done <- out{rec, err}
	}()
	exchange(t, modem, "AT+COPS?\r", "\r\n+COPS: 0,0,\"Carrier\",2\r\n\r\nOK\r\n")
	res := <-done
	assert.ErrorIs(t, res.err, ErrUnknown)
}

func TestCleanupIsIdempotentAndInvalidatesHandle(t *testing.T) {
	c, modem := newTestContext(t)
	_ = modem

	require.NoError(t, c.Cleanup())
	require.NoError(t, c.Cleanup())

	_, err := c.GetRegisteredNetwork(context.Background())
	assert.ErrorIs(t, err, ErrInvalidHandle)
}

func TestInitRejectsNilTransport(t *testing.T) {
	_, err := Init(nil)
	assert.ErrorIs(t, err, ErrBadParameter)
}
