package midi

import (
	"sync"
	"time"

	"github.com/pkg/errors"
	gomidi "gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/drivers"
	_ "gitlab.com/gomidi/midi/v2/drivers/rtmididrv" // Register MIDI driver
)

// scanTimeout guards port enumeration: CoreMIDI can hang and we would
// rather show no ports than block the caller forever.
const scanTimeout = 3 * time.Second

// PortManager opens MIDI output ports lazily and caches their senders.
type PortManager struct {
	mu      sync.RWMutex
	senders map[string]func(gomidi.Message) error
}

func NewPortManager() *PortManager {
	return &PortManager{
		senders: make(map[string]func(gomidi.Message) error),
	}
}

// Ports returns the names of all MIDI output ports currently present.
// Returns nil if the scan times out.
func (pm *PortManager) Ports() []string {
	ch := make(chan []drivers.Out, 1)
	go func() {
		ch <- gomidi.GetOutPorts()
	}()

	select {
	case outs := <-ch:
		names := make([]string, 0, len(outs))
		for _, p := range outs {
			names = append(names, p.String())
		}
		return names
	case <-time.After(scanTimeout):
		// User needs to run: sudo killall coreaudiod midiserver
		return nil
	}
}

// Sender returns a send function for the named output port, opening the
// port on first use.
func (pm *PortManager) Sender(portName string) (func(gomidi.Message) error, error) {
	pm.mu.RLock()
	if sender, ok := pm.senders[portName]; ok {
		pm.mu.RUnlock()
		return sender, nil
	}
	pm.mu.RUnlock()

	pm.mu.Lock()
	defer pm.mu.Unlock()

	// Double-check after acquiring write lock
	if sender, ok := pm.senders[portName]; ok {
		return sender, nil
	}

	for _, port := range gomidi.GetOutPorts() {
		if port.String() == portName {
			sender, err := gomidi.SendTo(port)
			if err != nil {
				return nil, errors.Wrapf(err, "opening MIDI port %q", portName)
			}
			pm.senders[portName] = sender
			return sender, nil
		}
	}
	return nil, errors.Errorf("no MIDI output port named %q", portName)
}

// Close releases the MIDI driver and all open ports.
func (pm *PortManager) Close() {
	pm.mu.Lock()
	pm.senders = make(map[string]func(gomidi.Message) error)
	pm.mu.Unlock()
	gomidi.CloseDriver()
}
