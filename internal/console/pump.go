package console

import (
	"log"
	"time"

	"github.com/sweeney/motor-switch/internal/logic"
)

// Banner is written to the port when the pump starts.
const Banner = "Listening for serial commands..."

// Pump reads lines from port and hands each to the command loop via out,
// writing the loop's reply back to the port. Read failures, EOF included,
// are sent too so the loop reports them; after a failure the pump waits
// errDelay before reading again. When the port itself has been closed the
// pump reports it once and returns. Closing done stops the pump.
func Pump(port Port, out chan<- logic.Request, done <-chan struct{}, errDelay time.Duration) {
	if err := port.WriteLine(Banner); err != nil {
		log.Printf("console: write banner: %v", err)
	}

	for {
		line, err := port.ReadLine()

		reply := make(chan logic.Outcome, 1)
		req := logic.Request{Line: line, Source: logic.SourceSerial, Err: err, Reply: reply}
		select {
		case out <- req:
		case <-done:
			return
		}

		select {
		case o := <-reply:
			if werr := port.WriteLine(o.Message); werr != nil {
				log.Printf("console: write reply: %v", werr)
			}
		case <-done:
			return
		}

		if err == nil {
			continue
		}
		if IsClosed(err) {
			log.Printf("console: port closed, no longer reading commands")
			return
		}
		select {
		case <-time.After(errDelay):
		case <-done:
			return
		}
	}
}
