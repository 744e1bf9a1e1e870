// SPDX-License-Identifier: MIT
//
// Copyright © 2018 Kent Gibson <warthog618@gmail.com>.

// urcwatch connects to a modem and prints every registration change and
// unsolicited result code it reports, until interrupted.
//
// This serves as an example of the asynchronous notification path
// described by the driver core: registration transitions arrive on their
// own callback, independent of any command in flight.
package main

import (
	"flag"
	"fmt"
	"os"
	"os/signal"

	"github.com/modemcore/cellular"
	"github.com/modemcore/cellular/comm"
	"github.com/modemcore/cellular/reg"
	"github.com/modemcore/cellular/serial"
	"github.com/modemcore/cellular/trace"
)

func main() {
	dev := flag.String("d", "/dev/ttyUSB0", "path to modem device")
	baud := flag.Int("b", 115200, "baud rate")
	verbose := flag.Bool("v", false, "log modem interactions")
	flag.Parse()

	m, err := serial.New(serial.WithPort(*dev), serial.WithBaud(*baud))
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	var transport comm.Transport = m
	if *verbose {
		transport = trace.New(m)
	}

	c, err := cellular.Init(transport)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	defer c.Cleanup()

	c.RegisterUrcNetworkRegistrationCallback(func(ev reg.Event) {
		domain := "CS"
		status := ev.Record.CSRegStatus
		if ev.Domain == reg.DomainPS {
			domain = "PS"
			status = ev.Record.PSRegStatus
		}
		fmt.Printf("%s registration: status=%d rat=%d lac=%#04x cell=%#08x\n",
			domain, status, ev.Record.RAT, ev.Record.LAC, ev.Record.CellID)
	})
	c.RegisterUrcPdnEventCallback(func(line string) {
		fmt.Println("PDN event:", line)
	})
	c.RegisterUrcSignalStrengthChangedCallback(func(line string) {
		fmt.Println("signal:", line)
	})
	c.RegisterUrcGenericCallback(func(line string) {
		fmt.Println("URC:", line)
	})
	c.RegisterModemEventCallback(func(line string) {
		fmt.Println("modem event:", line)
	})

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt)
	<-sig
}
