package cellular

import (
	"context"
	"strconv"

	"github.com/modemcore/cellular/atbroker"
	"github.com/modemcore/cellular/pktio"
	"github.com/modemcore/cellular/query"
	"github.com/modemcore/cellular/reg"
)

// ModemInfo is the result of GetModemInfo: manufacturer, model, firmware
// revision and IMEI, each a trimmed copy bounded as query.ParseCGMI et al.
// describe (§4.7).
type ModemInfo struct {
	Manufacturer string
	Model        string
	FirmwareVersion string
	IMEI         string
}

// SimCardInfo is the result of GetSimCardInfo: IMSI and ICCID.
type SimCardInfo struct {
	IMSI  string
	ICCID string
}

// ServiceStatus is the result of GetServiceStatus: a snapshot of the
// registration record plus the current operator selection, taken under
// the at-data lock (§4.9: "get_service_status ... Returns a snapshot
// taken under the AT-data lock").
type ServiceStatus struct {
	Registration reg.Record
	Operator     query.OperatorSelection
}

func (c *Context) send(ctx context.Context, body string, kind pktio.Kind, prefix string) (atbroker.Result, error) {
	if err := c.checkOpen(); err != nil {
		return atbroker.Result{}, err
	}
	res, err := c.broker.Send(ctx, atbroker.Command{Body: body, Kind: kind, ExpectedPrefix: prefix})
	if err != nil {
		return res, translateBrokerErr(err)
	}
	return res, nil
}

func translateBrokerErr(err error) error {
	switch err {
	case context.DeadlineExceeded, context.Canceled:
		return ErrTimeout
	case atbroker.ErrClosed:
		return ErrInvalidHandle
	default:
		return err
	}
}

func firstLine(res atbroker.Result) (string, error) {
	if len(res.Lines) == 0 {
		return "", ErrInvalidData
	}
	return res.Lines[0], nil
}

// GetModemInfo issues CGMI, CGMM, CGMR and CGSN in turn and assembles the
// results.
func (c *Context) GetModemInfo(ctx context.Context) (ModemInfo, error) {
	var info ModemInfo

	res, err := c.send(ctx, "+CGMI", pktio.WithoutPrefix, "")
	if err != nil {
		return info, err
	}
	line, err := firstLine(res)
	if err != nil {
		return info, err
	}
	if info.Manufacturer, err = query.ParseCGMI(line); err != nil {
		return info, ErrInvalidData
	}

	res, err = c.send(ctx, "+CGMM", pktio.WithoutPrefix, "")
	if err != nil {
		return info, err
	}
	if line, err = firstLine(res); err != nil {
		return info, err
	}
	if info.Model, err = query.ParseCGMM(line); err != nil {
		return info, ErrInvalidData
	}

	res, err = c.send(ctx, "+CGMR", pktio.WithoutPrefix, "")
	if err != nil {
		return info, err
	}
	if line, err = firstLine(res); err != nil {
		return info, err
	}
	if info.FirmwareVersion, err = query.ParseCGMR(line); err != nil {
		return info, ErrInvalidData
	}

	res, err = c.send(ctx, "+CGSN", pktio.WithoutPrefix, "")
	if err != nil {
		return info, err
	}
	if line, err = firstLine(res); err != nil {
		return info, err
	}
	if info.IMEI, err = query.ParseCGSN(line); err != nil {
		return info, ErrInvalidData
	}

	return info, nil
}

// GetSimCardInfo issues CIMI and CCID and assembles the results.
func (c *Context) GetSimCardInfo(ctx context.Context) (SimCardInfo, error) {
	var info SimCardInfo

	res, err := c.send(ctx, "+CIMI", pktio.WithoutPrefix, "")
	if err != nil {
		return info, err
	}
	line, err := firstLine(res)
	if err != nil {
		return info, err
	}
	if info.IMSI, err = query.ParseCIMI(line); err != nil {
		return info, ErrInvalidData
	}

	res, err = c.send(ctx, "+CCID", pktio.WithPrefix, "+CCID:")
	if err != nil {
		return info, err
	}
	if line, err = firstLine(res); err != nil {
		return info, err
	}
	if info.ICCID, err = query.ParseCCID(line); err != nil {
		return info, ErrInvalidData
	}

	return info, nil
}

// GetSimCardLockStatus issues AT+CPIN? and returns the parsed SIM-lock
// state.
func (c *Context) GetSimCardLockStatus(ctx context.Context) (query.SimLockStatus, error) {
	res, err := c.send(ctx, "+CPIN?", pktio.WithPrefix, "+CPIN:")
	if err != nil {
		return query.SimLockUnknown, err
	}
	line, err := firstLine(res)
	if err != nil {
		return query.SimLockUnknown, err
	}
	return query.ParseCPIN(line), nil
}

// GetRegisteredNetwork issues AT+COPS? to resolve the network the modem is
// currently camped on and returns a snapshot of the tracked CS/PS
// registration record with its RAT replaced by the resolved one; the
// tracked record itself is not updated. ErrUnknown is returned
// when the resolved RAT is RATInvalid — the one case this API names it.
func (c *Context) GetRegisteredNetwork(ctx context.Context) (reg.Record, error) {
	res, err := c.send(ctx, "+COPS?", pktio.WithPrefix, "+COPS:")
	if err != nil {
		return reg.Record{}, err
	}
	line, err := firstLine(res)
	if err != nil {
		return reg.Record{}, err
	}
	ops, err := query.ParseCOPS(line)
	if err != nil {
		return reg.Record{}, ErrInvalidData
	}
	if ops.RAT == reg.RATInvalid {
		return reg.Record{}, ErrUnknown
	}

	rec := c.regSt.Snapshot()
	rec.RAT = ops.RAT
	return rec, nil
}

// GetServiceStatus queries CREG?, CGREG? and CEREG? (the last only if PS
// is not already registered), then COPS?, updating the tracked
// registration record along the way and returning a snapshot taken
// immediately afterward (§4.9).
func (c *Context) GetServiceStatus(ctx context.Context) (ServiceStatus, error) {
	var status ServiceStatus

	if err := c.queryReg(ctx, "+CREG?", "+CREG:", reg.DomainCS); err != nil {
		return status, err
	}
	if err := c.queryReg(ctx, "+CGREG?", "+CGREG:", reg.DomainPS); err != nil {
		return status, err
	}
	if ps := c.regSt.Snapshot().PSRegStatus; ps != reg.RegisteredHome && ps != reg.Roaming {
		if err := c.queryReg(ctx, "+CEREG?", "+CEREG:", reg.DomainPS); err != nil {
			return status, err
		}
	}

	res, err := c.send(ctx, "+COPS?", pktio.WithPrefix, "+COPS:")
	if err != nil {
		return status, err
	}
	line, err := firstLine(res)
	if err != nil {
		return status, err
	}
	ops, err := query.ParseCOPS(line)
	if err != nil {
		return status, ErrInvalidData
	}

	status.Registration = c.regSt.Snapshot()
	status.Operator = ops
	return status, nil
}

func (c *Context) queryReg(ctx context.Context, cmd, prefix string, domain reg.Domain) error {
	res, err := c.send(ctx, cmd, pktio.WithPrefix, prefix)
	if err != nil {
		return err
	}
	line, err := firstLine(res)
	if err != nil {
		return err
	}
	if err := c.regSt.ApplyLine(domain, line, false); err != nil {
		return ErrInvalidData
	}
	return nil
}

// GetNetworkTime issues AT+CCLK? and returns the parsed clock.
func (c *Context) GetNetworkTime(ctx context.Context) (query.ClockTime, error) {
	res, err := c.send(ctx, "+CCLK?", pktio.WithPrefix, "+CCLK:")
	if err != nil {
		return query.ClockTime{}, err
	}
	line, err := firstLine(res)
	if err != nil {
		return query.ClockTime{}, err
	}
	ct, err := query.ParseCCLK(line)
	if err != nil {
		return query.ClockTime{}, ErrInvalidData
	}
	return ct, nil
}

// GetIPAddress issues AT+CGPADDR=<cid> and returns the parsed address
// string, preserving the "0,0,0,0" literal quirk (§9 open question).
func (c *Context) GetIPAddress(ctx context.Context, cid int) (string, error) {
	res, err := c.send(ctx, cgpaddrCmd(cid), pktio.WithPrefix, "+CGPADDR:")
	if err != nil {
		return "", err
	}
	line, err := firstLine(res)
	if err != nil {
		return "", err
	}
	addr, err := query.ParseCGPADDR(line)
	if err != nil {
		return "", ErrInvalidData
	}
	return addr, nil
}

func cgpaddrCmd(cid int) string {
	return "+CGPADDR=" + strconv.Itoa(cid)
}

// SetPdnConfig issues AT+CGDCONT=<cid>,"IP",<apn> to define a PDN/PDP
// context; apn must be non-empty.
func (c *Context) SetPdnConfig(ctx context.Context, cid int, apn string) error {
	if apn == "" {
		return ErrBadParameter
	}
	_, err := c.send(ctx, "+CGDCONT="+strconv.Itoa(cid)+`,"IP","`+apn+`"`, pktio.NoResult, "")
	return err
}

// SetPsmSettings issues AT+CPSMS=1,,,<tau>,<active_time> with the timer
// fields pre-encoded by the caller as raw binary-string tokens (the wire
// format §4.7 describes); the encode side is out of this core's scope
// (only the decode/query side is specified, §7 "COMPONENT DESIGN").
func (c *Context) SetPsmSettings(ctx context.Context, tauBits, activeBits string) error {
	_, err := c.send(ctx, `+CPSMS=1,,,"`+tauBits+`","`+activeBits+`"`, pktio.NoResult, "")
	return err
}

// GetPsmSettings issues AT+CPSMS? and returns the parsed PSM settings.
func (c *Context) GetPsmSettings(ctx context.Context) (query.PSMSettings, error) {
	res, err := c.send(ctx, "+CPSMS?", pktio.WithPrefix, "+CPSMS:")
	if err != nil {
		return query.PSMSettings{}, err
	}
	line, err := firstLine(res)
	if err != nil {
		return query.PSMSettings{}, err
	}
	settings, err := query.ParseCPSMS(line)
	if err != nil {
		return query.PSMSettings{}, ErrInvalidData
	}
	return settings, nil
}

// SetEidrxSettings issues AT+CEDRXS=<mode>,<act>,<value> to request an
// eDRX cycle.
func (c *Context) SetEidrxSettings(ctx context.Context, mode, act int32, valueBits string) error {
	_, err := c.send(ctx, "+CEDRXS="+strconv.Itoa(int(mode))+","+strconv.Itoa(int(act))+`,"`+valueBits+`"`, pktio.NoResult, "")
	return err
}

// GetEidrxSettings issues AT+CEDRXS? and returns the parsed eDRX entries.
func (c *Context) GetEidrxSettings(ctx context.Context) ([]query.EDRXEntry, error) {
	res, err := c.send(ctx, "+CEDRXS?", pktio.WithPrefix, "+CEDRXS:")
	if err != nil {
		return nil, err
	}
	line, err := firstLine(res)
	if err != nil {
		return nil, err
	}
	entries, err := query.ParseCEDRXS(line)
	if err != nil {
		return nil, ErrInvalidData
	}
	return entries, nil
}

// RfOn issues AT+CFUN=1, enabling the modem's radio.
func (c *Context) RfOn(ctx context.Context) error {
	_, err := c.send(ctx, "+CFUN=1", pktio.NoResult, "")
	return err
}

// RfOff issues AT+CFUN=4 (airplane/minimum-functionality mode, no SIM
// access lost), disabling the modem's radio.
func (c *Context) RfOff(ctx context.Context) error {
	_, err := c.send(ctx, "+CFUN=4", pktio.NoResult, "")
	return err
}
