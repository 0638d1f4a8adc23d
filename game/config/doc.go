// Package config provides configuration loading for the Hazard Run server.
//
// The config package handles:
//   - Loading the server configuration from a JSON file
//   - Default values for every setting
//   - Validation of ports, id lengths, name lengths and draw delay
//
// Configuration Format:
//
//	{
//	  "server": {"host": "0.0.0.0", "port": 8080},
//	  "game":   {"max_name_length": 20, "session_id_length": 5, "draw_delay": "4s"},
//	  "log":    {"level": "info", "format": "console"},
//	  "nats":   {"url": "nats://localhost:4222", "subject": "hazardrun.events"}
//	}
//
// A draw_delay of zero leaves draws to the clients; a positive value makes the
// server draw the next hazard on its own timer.
//
// Usage:
//
//	cfg, err := config.Load("hazardrun.json")
//	if errors.Is(err, config.ErrConfigNotFound) {
//		cfg = config.Default()
//	}
package config
