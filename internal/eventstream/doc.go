// Package eventstream replays and records build event logs.
//
// An event log is JSON Lines: one event object per line. Keys may be written
// in camelCase or PascalCase, as different producers emit them:
//
//	{"kind":"ProjectStarted","projectFile":"/src/A/A.csproj","evaluationId":1,"timestamp":638400000000000000}
//	{"kind":"MessageRaised","projectFile":"/src/A/A.csproj","taskName":"Csc","commandLine":"csc.exe a.cs"}
//
// Stream decodes a log and dispatches each event to a buildevent.Dispatcher.
// Recorder is a listener that writes the events of a live source in the same
// format, so any build can be replayed later.
package eventstream
