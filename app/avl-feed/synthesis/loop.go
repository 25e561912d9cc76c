package synthesis

import (
	"context"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/iqskr/AVLSystem/business/data/feed"
)

// RunSynthesisLoop runs a cycle every interval until shutdownSignal is received.
// Cycle failures are logged and the loop carries on.
func RunSynthesisLoop(log *log.Logger,
	pipeline *Pipeline,
	interval time.Duration,
	shutdownSignal chan os.Signal) error {

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sleepChan := make(chan bool)
	sleep := time.Duration(0) //sleep for zero seconds the first time

	for {

		go func() {
			time.Sleep(sleep)
			sleepChan <- true
		}()

		select {
		case <-shutdownSignal:
			log.Printf("Exiting on shutdown signal")
			return nil
		case <-sleepChan:
			break
		}

		// mark the time we start working
		start := time.Now()

		result := pipeline.RunCycle(ctx, start)
		if result.State == Done {
			log.Printf("cycle done, emitted %s", fmtEmitted(result))
		}

		// attempt to run the loop every interval by subtracting the time it took to perform the work
		workTook := time.Now().Sub(start)

		log.Printf("work took %s\n", fmtDuration(workTook))

		// if the work took longer than interval don't sleep at all on the next loop
		if workTook >= interval {
			sleep = time.Duration(0)
		} else {
			sleep = interval - workTook
		}
	}
}

//fmtEmitted lists how many messages of each kind result emitted
func fmtEmitted(result CycleResult) string {
	parts := make([]string, 0, len(feed.Kinds))
	for _, kind := range feed.Kinds {
		parts = append(parts, fmt.Sprintf("%s:%d", kind, result.Emitted[kind]))
	}
	return strings.Join(parts, " ")
}

//fmtDuration returns a string presentation of time.Duration for logging
func fmtDuration(d time.Duration) string {
	d = d.Round(time.Millisecond)
	h := d / time.Hour
	d -= h * time.Hour
	m := d / time.Minute
	d -= m * time.Minute
	s := d / time.Second
	d -= s * time.Second
	mill := d / time.Millisecond
	return fmt.Sprintf("%02d:%02d:%02d.%03d", h, m, s, mill)
}
