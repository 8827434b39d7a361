// Package timesync converts build engine timestamps to wall-clock time.
//
// The engine stamps events with ticks: 100-nanosecond intervals since
// 0001-01-01 00:00:00, read from the clock of the machine that ran the build.
// Ticks carry no zone, so the Converter is told which location they were
// recorded in and anchors them there.
package timesync
