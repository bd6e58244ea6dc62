package main

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	gomidi "gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/drivers"
	_ "gitlab.com/gomidi/midi/v2/drivers/rtmididrv"

	"go-pulse/clock"
	"go-pulse/midi"
)

func main() {
	if len(os.Args) < 2 {
		usage()
		return
	}

	switch os.Args[1] {
	case "list":
		listPorts()
	case "poll":
		pollDevices()
	case "clock":
		runClock(os.Args[2:])
	default:
		usage()
	}
}

func usage() {
	fmt.Println("MIDI Clock Test")
	fmt.Println("")
	fmt.Println("Commands:")
	fmt.Println("  list                  - List all MIDI output ports")
	fmt.Println("  poll                  - Poll for device changes")
	fmt.Println("  clock <port> [bpm]    - Send 4 bars of MIDI clock to a port")
}

func listPorts() {
	fmt.Println("=== MIDI Output Ports ===")
	fmt.Println("(waiting up to 3 seconds...)")

	ch := make(chan []drivers.Out, 1)
	go func() {
		ch <- gomidi.GetOutPorts()
	}()

	select {
	case outs := <-ch:
		for i, p := range outs {
			fmt.Printf("  %d: %s\n", i, p.String())
		}
	case <-time.After(3 * time.Second):
		fmt.Println("\nTIMEOUT! CoreMIDI is hung.")
		fmt.Println("Fix: sudo killall coreaudiod midiserver")
	}
}

func pollDevices() {
	fmt.Println("Polling for device changes every 2 seconds. Ctrl+C to exit.")

	last := ""
	for {
		var names []string
		for _, p := range gomidi.GetOutPorts() {
			names = append(names, p.String())
		}
		current := strings.Join(names, ",")

		if current != last {
			fmt.Printf("\n[%s] Device change detected!\n", time.Now().Format("15:04:05"))
			fmt.Printf("  Outputs: %v\n", names)
			last = current
		}

		time.Sleep(2 * time.Second)
	}
}

// runClock drives a real scheduler against one port for four bars.
func runClock(args []string) {
	if len(args) < 1 {
		usage()
		return
	}
	portName := args[0]
	bpm := 120.0
	if len(args) > 1 {
		v, err := strconv.ParseFloat(args[1], 64)
		if err != nil {
			fmt.Printf("Bad bpm %q: %v\n", args[1], err)
			return
		}
		bpm = v
	}

	ports := midi.NewPortManager()
	defer ports.Close()

	sender, err := ports.Sender(portName)
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		return
	}

	sched := clock.NewPulseScheduler(clock.WallTimer{}, bpm)
	sched.AddSink(midi.NewSink(portName, sender))

	bars := 4.0
	duration := time.Duration(clock.BarsToMillis(bars, bpm) * float64(time.Millisecond))
	fmt.Printf("Clocking %s at %.1f bpm for %.0f bars (%s)...\n", portName, bpm, bars, duration)

	sched.Start()
	time.Sleep(duration)
	ticks, _, _ := sched.State()
	sched.Stop()

	fmt.Printf("Done. %d ticks scheduled.\n", ticks)
}
