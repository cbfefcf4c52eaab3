package vizmap

import "time"

// frameStats holds per-frame timing. Only populated in debug mode.
type frameStats struct {
	layerTime   time.Duration
	composeTime time.Duration
	layers      int
	redrawn     int
}

// debugLog writes frame timing at debug level. Frames with no redraw are
// skipped to keep the log readable.
func (s *Scene) debugLog(stats frameStats) {
	if !s.cfg.Debug || stats.redrawn == 0 {
		return
	}
	s.logger.Debug("frame",
		"layers", stats.layers,
		"redrawn", stats.redrawn,
		"layer_time", stats.layerTime,
		"compose_time", stats.composeTime,
		"total", stats.layerTime+stats.composeTime)
}
