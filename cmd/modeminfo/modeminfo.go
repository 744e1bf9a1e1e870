// SPDX-License-Identifier: MIT
//
// Copyright © 2018 Kent Gibson <warthog618@gmail.com>.

// modeminfo collects and displays modem identity, SIM and registration
// information using the cellular driver core.
//
// This serves as an example of how to interact with a modem, as well as
// providing information which may be useful for debugging.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/modemcore/cellular"
	"github.com/modemcore/cellular/comm"
	"github.com/modemcore/cellular/serial"
	"github.com/modemcore/cellular/trace"
)

var version = "undefined"

func main() {
	dev := flag.String("d", "/dev/ttyUSB0", "path to modem device")
	baud := flag.Int("b", 115200, "baud rate")
	timeout := flag.Duration("t", 2*time.Second, "timeout period for the whole query sequence")
	verbose := flag.Bool("v", false, "log modem interactions")
	vsn := flag.Bool("version", false, "report version and exit")
	flag.Parse()
	if *vsn {
		fmt.Printf("%s %s\n", os.Args[0], version)
		os.Exit(0)
	}

	m, err := serial.New(serial.WithPort(*dev), serial.WithBaud(*baud))
	if err != nil {
		log.Println(err)
		return
	}
	var transport comm.Transport = m
	if *verbose {
		transport = trace.New(m)
	}

	c, err := cellular.Init(transport)
	if err != nil {
		log.Println(err)
		return
	}
	defer c.Cleanup()

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	info, err := c.GetModemInfo(ctx)
	if err != nil {
		fmt.Println("modem info:", err)
	} else {
		fmt.Printf("manufacturer: %s\nmodel: %s\nfirmware: %s\nIMEI: %s\n",
			info.Manufacturer, info.Model, info.FirmwareVersion, info.IMEI)
	}

	sim, err := c.GetSimCardInfo(ctx)
	if err != nil {
		fmt.Println("sim info:", err)
	} else {
		fmt.Printf("IMSI: %s\nICCID: %s\n", sim.IMSI, sim.ICCID)
	}

	lock, err := c.GetSimCardLockStatus(ctx)
	if err != nil {
		fmt.Println("sim lock status:", err)
	} else {
		fmt.Printf("SIM lock status: %d\n", lock)
	}

	status, err := c.GetServiceStatus(ctx)
	if err != nil {
		fmt.Println("service status:", err)
		return
	}
	fmt.Printf("CS registration: %d  PS registration: %d  RAT: %d\n",
		status.Registration.CSRegStatus, status.Registration.PSRegStatus, status.Registration.RAT)
	fmt.Printf("operator: %s (MCC=%s MNC=%s)\n", status.Operator.Name, status.Operator.MCC, status.Operator.MNC)
}
