package emulator

import "sync"

// tvState is the mutable state behind the emulated services.
type tvState struct {
	mu      sync.Mutex
	volume  int
	muted   bool
	power   string
	buttons []string
	toasts  int
}

func newTVState() *tvState {
	return &tvState{volume: 10, power: "Active"}
}

func (s *tvState) setVolume(v int) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.volume = min(max(v, 0), 100)
	return s.volume
}

func (s *tvState) stepVolume(delta int) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.volume = min(max(s.volume+delta, 0), 100)
	return s.volume
}

func (s *tvState) volumeLevel() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.volume
}

func (s *tvState) audio() (int, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.volume, s.muted
}

func (s *tvState) setMuted(m bool) {
	s.mu.Lock()
	s.muted = m
	s.mu.Unlock()
}

func (s *tvState) setPower(p string) {
	s.mu.Lock()
	s.power = p
	s.mu.Unlock()
}

func (s *tvState) powerState() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.power
}

func (s *tvState) press(name string) {
	s.mu.Lock()
	s.buttons = append(s.buttons, name)
	s.mu.Unlock()
}

func (s *tvState) pressed() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.buttons...)
}

func (s *tvState) nextToast() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.toasts++
	return s.toasts
}
