package consts

import "time"

// CountdownState defines the lifecycle state of the shutdown countdown.
type CountdownState string

const (
	StateIdle         CountdownState = "IDLE"          // No shutdown requested
	StateCountingDown CountdownState = "COUNTING_DOWN" // Countdown task active
	StateExecuting    CountdownState = "EXECUTING"     // Stop issued, power-off scheduled
)

// Shutdown countdown
const (
	CountdownStart       = 15
	CountdownTick        = time.Second
	DefaultPowerOffDelay = 5 * time.Minute
)

// Remote console defaults
const (
	DefaultHost     = "localhost"
	DefaultPort     = 25575
	DefaultPassword = ""
	DialTimeout     = 5 * time.Second
)

// Supervisor defaults
const (
	DefaultConfigFile   = "nightowl_config.yml"
	DefaultLogFile      = "logs/latest.log"
	DefaultInterval     = 30 * time.Minute
	DefaultThreshold    = 1
	DefaultStatusSocket = "/tmp/nightowl.sock"
	StatusDialTimeout   = 5 * time.Second
)

// Chat tag prefixed to every message sent to the server.
const SayTag = "<nightowl> "

// Log line triggers, matched as case-sensitive substrings.
const (
	TriggerSleep  = "nightowl sleep"
	TriggerCancel = "nightowl cancel"
	TriggerResume = "nightowl resume"
	TriggerPause  = "nightowl pause"
	TriggerHelp   = "nightowl help"

	// WebRelayMarker tags lines relayed from the web map chat bridge.
	WebRelayMarker = "WEB"
)

// Remote console commands
const (
	CmdList = "list"
	CmdSay  = "say"
	CmdStop = "stop"
)

// Personal.AI order the ending
