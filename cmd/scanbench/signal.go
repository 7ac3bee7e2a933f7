// Copyright (c) 2013-2014 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package main

import (
	"os"
	"os/signal"
	"syscall"
)

// signals defines the signals that are handled to do a clean shutdown.
var signals = []os.Signal{os.Interrupt, syscall.SIGTERM}

// interruptListener listens for OS signals and closes the returned channel on
// the first one.  A second signal is only logged; the scan drains the blocks
// it already submitted before returning.
func interruptListener() <-chan struct{} {
	c := make(chan struct{})

	go func() {
		interruptChannel := make(chan os.Signal, 1)
		signal.Notify(interruptChannel, signals...)

		sig := <-interruptChannel
		log.Infof("Received signal (%s).  Finishing scan of submitted "+
			"blocks...", sig)
		close(c)

		for sig := range interruptChannel {
			log.Infof("Received signal (%s).  Already shutting "+
				"down...", sig)
		}
	}()

	return c
}
