package ui

import "sync"

// Players is the number of pads the shared input carries.
const Players = 2

// SharedInput holds the pad bitmasks written by the Ebiten thread and read
// by the emulation goroutine. Bits follow the core's SetInput layout.
type SharedInput struct {
	mu      sync.Mutex
	buttons [Players]uint32
}

// Set stores the pressed-button mask of one player.
func (si *SharedInput) Set(player int, buttons uint32) {
	if player < 0 || player >= Players {
		return
	}
	si.mu.Lock()
	si.buttons[player] = buttons
	si.mu.Unlock()
}

// Read returns every player's mask.
func (si *SharedInput) Read() [Players]uint32 {
	si.mu.Lock()
	defer si.mu.Unlock()
	return si.buttons
}

// SharedFramebuffer holds pixel data written by the emulation goroutine
// and read by Ebiten's Draw() method. Uses separate write and read buffers
// so the emu goroutine can write new data while Draw uses the read copy.
type SharedFramebuffer struct {
	mu           sync.Mutex
	writePixels  []byte
	readPixels   []byte
	stride       int
	activeHeight int
	frame        uint64 // frames published so far
}

// NewSharedFramebuffer allocates room for the largest frame a core can
// produce: maxHeight rows of stride bytes.
func NewSharedFramebuffer(stride, maxHeight int) *SharedFramebuffer {
	return &SharedFramebuffer{
		writePixels: make([]byte, stride*maxHeight),
		readPixels:  make([]byte, stride*maxHeight),
	}
}

// Update copies framebuffer data from the emulation goroutine.
func (sf *SharedFramebuffer) Update(pixels []byte, stride, activeHeight int) {
	sf.mu.Lock()
	n := min(stride*activeHeight, len(sf.writePixels), len(pixels))
	copy(sf.writePixels[:n], pixels[:n])
	sf.stride = stride
	sf.activeHeight = activeHeight
	sf.frame++
	sf.mu.Unlock()
}

// Read returns a snapshot of the current framebuffer state. The pixels
// stay valid until the next Read.
func (sf *SharedFramebuffer) Read() (pixels []byte, stride, activeHeight int) {
	sf.mu.Lock()
	defer sf.mu.Unlock()
	n := min(sf.stride*sf.activeHeight, len(sf.writePixels))
	copy(sf.readPixels[:n], sf.writePixels[:n])
	return sf.readPixels[:n], sf.stride, sf.activeHeight
}

// Frames returns how many frames have been published.
func (sf *SharedFramebuffer) Frames() uint64 {
	sf.mu.Lock()
	defer sf.mu.Unlock()
	return sf.frame
}

// EmuControl coordinates pause, resume and stop between the Ebiten thread
// and the emulation goroutine. The goroutine only parks between frames,
// so a caller holding a pause may touch the core safely.
type EmuControl struct {
	mu       sync.Mutex
	cond     *sync.Cond
	pauseReq bool
	paused   bool
	stopped  bool
}

// NewEmuControl creates a new emulation control.
func NewEmuControl() *EmuControl {
	ec := &EmuControl{}
	ec.cond = sync.NewCond(&ec.mu)
	return ec
}

// RequestPause asks the emulation goroutine to pause and blocks until it
// has parked or stopped.
func (ec *EmuControl) RequestPause() {
	ec.mu.Lock()
	defer ec.mu.Unlock()
	ec.pauseReq = true
	for !ec.paused && !ec.stopped {
		ec.cond.Wait()
	}
}

// RequestResume releases a pause.
func (ec *EmuControl) RequestResume() {
	ec.mu.Lock()
	ec.pauseReq = false
	ec.cond.Broadcast()
	ec.mu.Unlock()
}

// CheckPause is called by the emulation goroutine between frames. It parks
// while a pause is requested and returns false once the goroutine should
// exit.
func (ec *EmuControl) CheckPause() bool {
	ec.mu.Lock()
	defer ec.mu.Unlock()
	for ec.pauseReq && !ec.stopped {
		if !ec.paused {
			ec.paused = true
			ec.cond.Broadcast()
		}
		ec.cond.Wait()
	}
	ec.paused = false
	return !ec.stopped
}

// Stop signals the emulation goroutine to exit.
func (ec *EmuControl) Stop() {
	ec.mu.Lock()
	ec.stopped = true
	ec.cond.Broadcast()
	ec.mu.Unlock()
}

// IsPaused reports whether a pause is requested or in effect.
func (ec *EmuControl) IsPaused() bool {
	ec.mu.Lock()
	defer ec.mu.Unlock()
	return ec.pauseReq
}
