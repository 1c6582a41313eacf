// Package telemarketopia implements the reference two-path narrative:
// callers are assigned to the CLAVAE or KAREN track on first contact,
// worked through a short content maze, queued for a live conference
// with a stranger from the other track, and — if both agree to push
// further after that conference — walked through a destruction-puzzle
// climax resolved over SMS and a second, direct-dial conference.
// Grounded in original_source/stories/telemarketopia.py,
// tele_story_objects.py, tele_constants.py, and
// telemarketopia_conferences.py.
package telemarketopia

import "github.com/aeturnum/spins-halp-line/internal/conference"

// ScriptName is this narrative's name, used as both the shared-state key
// suffix ("script:Telemarketopia") and the ScriptInfo map key on Player.
const ScriptName = "Telemarketopia"

// Path identifies one of the two narrative tracks.
type Path string

const (
	PathClavae Path = "Clavae"
	PathKaren  Path = "Karen"
)

// Shared-state list field names, matching the six core lists spec.md §3
// names plus the two finalist lists §4.11 adds.
const (
	FieldClavaePlayers  = "clavae_players"
	FieldKarenPlayers   = "karen_players"
	FieldClavaeWaiting  = "clavae_waiting_for_conf"
	FieldKarenWaiting   = "karen_waiting_for_conf"
	FieldClavaeInConf   = "clavae_in_conf"
	FieldKarenInConf    = "karen_in_conf"
	FieldClavaeFinalist = "clavae_final"
	FieldKarenFinalist  = "karen_final"
)

// SharedStateFields is the full field list a sharedstate.Manager for
// this narrative must be constructed with.
var SharedStateFields = []string{
	FieldClavaePlayers, FieldKarenPlayers,
	FieldClavaeWaiting, FieldKarenWaiting,
	FieldClavaeInConf, FieldKarenInConf,
	FieldClavaeFinalist, FieldKarenFinalist,
}

// Number library labels resolved at wiring time via
// mediacatalog.NumberLibrary.FromLabel.
const (
	LabelTipLine    = "tipline"
	LabelConference = "conference"
	LabelFinal      = "final"
)

// Script state labels, in addition to storymodel.StateNew/StateEnd.
const (
	StateWaiting = "WAITING"
)

// ScriptInfo.Data keys specific to this narrative.
const (
	KeyPath         = "path"
	KeyFinalChoice  = "final_choice"
	KeyPartner      = "partner"
	KeyHasLeftMenu  = "has_decision_text"
)

func clavaeConfig() conference.PathConfig {
	return conference.PathConfig{
		PlayersList:   FieldClavaePlayers,
		WaitingList:   FieldClavaeWaiting,
		InConfList:    FieldClavaeInConf,
		FinalConfList: FieldClavaeFinalist,
		IntroAsset:    AssetClavaeConferenceIntro,
	}
}

func karenConfig() conference.PathConfig {
	return conference.PathConfig{
		PlayersList:   FieldKarenPlayers,
		WaitingList:   FieldKarenWaiting,
		InConfList:    FieldKarenInConf,
		FinalConfList: FieldKarenFinalist,
		IntroAsset:    AssetKarenConferenceIntro,
	}
}

// Media asset ids. These are placeholder catalog ids (no real audio
// assets per spec Non-goals); a production show would point these at
// real Resource Space ids.
const (
	AssetTipLineGreeting       = 1001
	AssetClavaeContent         = 1002
	AssetKarenContent          = 1003
	AssetFinalPuzzle           = 1004
	AssetQueueHold             = 1005
	AssetClavaeConferenceIntro = 1006
	AssetKarenConferenceIntro  = 1007
	AssetConferenceNudge       = 1008
	AssetGhostEasterEgg        = 1009
	AssetFinalRight            = 1010
	AssetFinalWrong            = 1011
)

// climaxAssets maps the (Clavae choice digit, Karen choice digit) pair
// from each path's post-conference menu — spec's /climax/{1-3}/{1-3} —
// to the ending clip played when a caller dials back into the climax
// number. Asset ids 1100-1108 are placeholders, one per combination, in
// row-major (clavae, karen) order.
var climaxAssets = map[[2]string]int64{
	{"1", "1"}: 1100, {"1", "2"}: 1101, {"1", "3"}: 1102,
	{"2", "1"}: 1103, {"2", "2"}: 1104, {"2", "3"}: 1105,
	{"3", "1"}: 1106, {"3", "2"}: 1107, {"3", "3"}: 1108,
}

// ClimaxAsset resolves the ending clip for one pair's combination of
// post-conference choices, defaulting to the "both destroyed" clip for
// any combination outside the documented 1-3 range.
func ClimaxAsset(clavaeChoice, karenChoice string) int64 {
	if asset, ok := climaxAssets[[2]string{clavaeChoice, karenChoice}]; ok {
		return asset
	}
	return climaxAssets[[2]string{"3", "3"}]
}

// FinalClimaxAsset resolves the ending clip for the destruction-puzzle
// callback, result being "right" or "wrong" as decided by
// finalAnswerHandler.
func FinalClimaxAsset(result string) int64 {
	if result == "right" {
		return AssetFinalRight
	}
	return AssetFinalWrong
}

// SMS copy, grounded in tele_constants.py's TextTask bodies.
const (
	TextClavaeRecruit   = "A voice on the line: \"We've been waiting for someone like you. Clavae remembers.\""
	TextKarenRecruit    = "A chipper voice texts: \"Hi hon! Karen here from the block association, so glad you called!\""
	TextConfReady       = "Someone else is on the line with a story like yours. Text READY when you want to be connected."
	TextConfReminder    = "Still there? Text READY whenever you want us to try connecting you."
	TextUnreadyReplied  = "No worries — we'll find you someone else to talk to soon."
	TextUnreadyNoReply  = "We didn't hear back in time, so we let your match go. We'll try again soon."
	TextPostConfMenu    = "Reply 1 to hear that intro again, 2 to keep waiting for another conversation, or 3 if you're ready to go further."
	TextFinalPuzzle1    = "If you're really ready, here's what you need to know before the end."
	TextFinalPuzzle2    = "When you're ready, call back and tell us the code. Three digits. You'll know it when you hear it."
	TextFinalPrompt     = "What's the code?"
	TextFinalCorrect    = "That's it. That's the code. Don't hang up."
	TextFinalWrong      = "That's not it. Try again, or don't. It's not really up to us anymore."
	finalPasscode       = "462"
)
