package config

import (
	"encoding/json"
	"testing"
)

func TestDefaults(t *testing.T) {
	cfg := DefaultConfig()
	if cfg.Tempo != 120 {
		t.Errorf("default tempo = %f, want 120", cfg.Tempo)
	}
	if cfg.OSC.Enabled {
		t.Error("OSC enabled by default")
	}
}

func TestRoundTrip(t *testing.T) {
	cfg := &Config{
		Tempo:     174,
		MIDIPorts: []string{"IAC Driver Bus 1"},
		OSC: OSCConfig{
			Enabled: true,
			Host:    "0.0.0.0",
			Slaves:  []string{"192.168.1.20:5775"},
		},
	}
	data, err := json.Marshal(cfg)
	if err != nil {
		t.Fatal(err)
	}
	var got Config
	if err := json.Unmarshal(data, &got); err != nil {
		t.Fatal(err)
	}
	if got.Tempo != 174 || len(got.MIDIPorts) != 1 || !got.OSC.Enabled || len(got.OSC.Slaves) != 1 {
		t.Errorf("round trip mangled config: %+v", got)
	}
}

func TestMIDIPortList(t *testing.T) {
	cfg := DefaultConfig()
	cfg.AddMIDIPort("a")
	cfg.AddMIDIPort("b")
	cfg.AddMIDIPort("a")
	if len(cfg.MIDIPorts) != 2 {
		t.Fatalf("got %d ports, want 2", len(cfg.MIDIPorts))
	}
	if !cfg.HasMIDIPort("a") || !cfg.HasMIDIPort("b") {
		t.Error("added ports not found")
	}
	cfg.RemoveMIDIPort("a")
	if cfg.HasMIDIPort("a") || !cfg.HasMIDIPort("b") {
		t.Errorf("remove mangled list: %v", cfg.MIDIPorts)
	}
}
