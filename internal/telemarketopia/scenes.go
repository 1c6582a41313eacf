package telemarketopia

import "github.com/aeturnum/spins-halp-line/internal/storyengine"

// buildMazeScene wires the entry -> intro -> puzzle -> (ghost detour) ->
// queue chain played once per player before they ever join a
// conference. Every Choices entry uses path "*" because the maze itself
// doesn't branch on path beyond the flavor text each room already picks
// based on rc.Script[KeyPath].
func buildMazeScene(entry, intro, puzzle, ghost, queue storyengine.Room) *storyengine.Scene {
	return &storyengine.Scene{
		Name:  "tele.Maze",
		Start: []string{entry.Name()},
		Choices: map[string]map[string]map[string][]string{
			entry.Name(): {
				"*": {"*": {intro.Name()}},
			},
			intro.Name(): {
				"*": {"*": {puzzle.Name()}},
			},
			puzzle.Name(): {
				"*": {
					"9": {ghost.Name()},
					"*": {queue.Name()},
				},
			},
			ghost.Name(): {
				"*": {"*": {queue.Name()}},
			},
		},
	}
}

// buildHoldingScene is the single-room WAITING-state scene: holdingRoom
// handles every subsequent visit itself via its own State/Data, so this
// scene never lists a Choices entry for it at all.
func buildHoldingScene(holding storyengine.Room) *storyengine.Scene {
	return &storyengine.Scene{
		Name:    "tele.Holding",
		Start:   []string{holding.Name()},
		Choices: map[string]map[string]map[string][]string{},
	}
}
