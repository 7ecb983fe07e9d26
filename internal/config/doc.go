// Package config loads cmdembed settings.
//
// Settings come from three layers, higher layers overriding lower:
//
//  1. Built-in defaults (Default)
//  2. A TOML file, default "cmdembed.toml", which may @include others
//  3. Environment variables prefixed CMDEMBED_
//
// Command line flags are applied by the caller on the returned Config.
//
// Example file:
//
//	[logging]
//	level = "info"
//	file = ""
//
//	[extensions]
//	paths = ["ext"]
//	timeout = "5s"
//
//	[cache]
//	size = 128
//	dir = ""
//
//	[dt]
//	location = "Local"
//
//	[dt.formats]
//	default = "2006-01-02 15:04"
//	long = "dt-long|Monday, January 2, 2006"
package config
