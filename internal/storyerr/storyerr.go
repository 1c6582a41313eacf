// Package storyerr defines the error taxonomy shared across the story
// engine. Callers should compare with errors.Is against these sentinels
// and use errors.As to recover typed detail where one is defined below.
package storyerr

import "errors"

var (
	// InvalidNumber means a phone string could not be parsed as a
	// number under any attempted region.
	InvalidNumber = errors.New("invalid phone number")

	// NotLoaded means an accessor was invoked on a Player (or an
	// inbound request wrapper) before Load completed.
	NotLoaded = errors.New("record not loaded")

	// StoryNavigationError means a Scene could not play a room: no room
	// visited yet with nothing queued, an unknown room name, or a room
	// method that failed. Scene.Play returns it wrapped after rewinding
	// the ScriptInfo, and the router answers with the error response.
	// An empty room queue with no matching Choices entry is not an
	// error: the Scene replays the previous room itself.
	StoryNavigationError = errors.New("story navigation error")

	// ShardFrozen means code attempted to assign a shard field
	// directly instead of calling Append/Move. This is a programmer
	// error and is fatal for the request that triggers it.
	ShardFrozen = errors.New("shard is frozen: use Append or Move")

	// DataIntegrityError means a serialized record was missing
	// required fields; the load falls back to defaults and logs.
	DataIntegrityError = errors.New("data integrity error")

	// VoiceGatewayError means the voice platform returned a non-2xx
	// response. Logged; does not crash the process.
	VoiceGatewayError = errors.New("voice gateway error")

	// TaskError wraps an error returned from a Task's Execute. Logged;
	// optionally re-raised for process-bring-up tasks.
	TaskError = errors.New("task error")

	// NoSuchCapability means no catalog number possesses the
	// requested capability set.
	NoSuchCapability = errors.New("no number with requested capabilities")
)
