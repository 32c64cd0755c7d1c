// Package logging provides structured logging with per-module log levels.
//
// Output goes to the systemd journal when journald is reachable and to
// stdout when a terminal, pipe, or file is attached; to both when both are.
//
// Initialize once at startup:
//
//	logging.Initialize(logging.Config{
//		Level:  "info",
//		Format: "text",
//		Modules: map[string]string{
//			"decoder": "debug",
//			"hotplug": "warn",
//		},
//	})
//
// Then fetch a logger per module:
//
//	logger := logging.GetLogger("decoder").With("video_device", "/dev/video1")
//	logger.Debug("Allocated request", "fd", fd)
//
// Levels can be changed later with SetLevels, which the configuration
// watcher does on every reload of the config file. Loggers keep their
// identity across Initialize and SetLevels.
//
// # Viewing Logs
//
//	journalctl -t v4l2codecs
//	journalctl -t v4l2codecs -f MODULE=decoder
//	journalctl -t v4l2codecs -p err VIDEO_DEVICE=/dev/video1
//
// # Configuration
//
//	[logging]
//	level = "info"
//	format = "text"
//
//	[logging.modules]
//	decoder = "debug"
//	hotplug = "info"
//	metrics = "warn"
package logging
