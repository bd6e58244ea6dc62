package main

import (
	"context"
	"fmt"
	"net"
	"os"

	tea "github.com/charmbracelet/bubbletea"

	"go-pulse/clock"
	"go-pulse/config"
	"go-pulse/debug"
	"go-pulse/midi"
	"go-pulse/osc"
	"go-pulse/tui"
)

func main() {
	debug.EnableFromEnv()
	defer debug.Disable()

	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("Error loading config: %v\n", err)
		os.Exit(1)
	}

	ports := midi.NewPortManager()
	defer ports.Close()

	sched := clock.NewPulseScheduler(clock.WallTimer{}, cfg.Tempo)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if cfg.OSC.Enabled {
		srv := osc.NewServer(cfg.OSC.Host, sched)
		for _, s := range cfg.OSC.Slaves {
			addr, err := net.ResolveUDPAddr("udp", s)
			if err != nil {
				debug.Log("osc", "bad slave address %q: %v", s, err)
				continue
			}
			srv.Sink().AddSlave(addr)
		}
		sched.AddSink(srv.Sink())
		go func() {
			if err := srv.Run(ctx); err != nil {
				debug.Log("osc", "server exited: %v", err)
			}
		}()
	}

	m := tui.NewModel(sched, ports, cfg)
	p := tea.NewProgram(m, tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}

	sched.Stop()
	if err := cfg.Save(); err != nil {
		fmt.Printf("Error saving config: %v\n", err)
	}
}
