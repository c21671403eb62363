// Package bot turns chat text into intake actions and renders the replies.
package bot

import (
	"slices"
	"strings"
	"unicode"

	"waterbot/internal/core"
)

const (
	// DefaultHistoryLimit applies to /history without an argument.
	DefaultHistoryLimit = core.DefaultHistoryLimit
	// MaxHistoryLimit caps /history n.
	MaxHistoryLimit = core.MaxHistoryLimit
)

// Button labels of the reply keyboard.
const (
	ButtonStats = "Stats"
	ButtonUndo  = "Undo"
)

// QuickAmounts are the quick-add buttons, in keyboard order.
var QuickAmounts = []int{100, 200, 300, 500, 1000}

// Labels accepted in addition to the keyboard buttons, lowercased.
var (
	statsLabels = []string{"stats", "статистика"}
	undoLabels  = []string{"undo", "отменить"}
)

type ActionKind int

const (
	ActionUnknown ActionKind = iota
	ActionStart
	ActionHelp
	ActionAdd
	ActionSetGoal
	ActionStats
	ActionUndo
	ActionHistory
)

func (k ActionKind) String() string {
	switch k {
	case ActionStart:
		return "start"
	case ActionHelp:
		return "help"
	case ActionAdd:
		return "add"
	case ActionSetGoal:
		return "set_goal"
	case ActionStats:
		return "stats"
	case ActionUndo:
		return "undo"
	case ActionHistory:
		return "history"
	default:
		return "unknown"
	}
}

// Action is one parsed user request. AmountML carries the amount for
// ActionAdd and the goal for ActionSetGoal; Limit is used by ActionHistory.
type Action struct {
	Kind     ActionKind
	AmountML int
	Limit    int
}

// Parse interprets a chat message. Malformed amounts return
// core.ErrInvalidAmount and malformed goals core.ErrInvalidGoal together with
// the action kind, so the caller can answer with the right usage hint.
// Text that matches nothing is ActionUnknown with a nil error.
func Parse(text string) (Action, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return Action{Kind: ActionUnknown}, nil
	}

	if strings.HasPrefix(text, "/") {
		return parseCommand(text)
	}

	lower := strings.ToLower(text)
	switch {
	case slices.Contains(statsLabels, lower):
		return Action{Kind: ActionStats}, nil
	case slices.Contains(undoLabels, lower):
		return Action{Kind: ActionUndo}, nil
	case looksNumeric(text):
		ml, err := core.ParseAmount(text)
		if err != nil {
			return Action{Kind: ActionAdd}, err
		}
		return Action{Kind: ActionAdd, AmountML: ml}, nil
	}
	return Action{Kind: ActionUnknown}, nil
}

func parseCommand(text string) (Action, error) {
	name, args, _ := strings.Cut(text[1:], " ")
	// Group chats address commands as /stats@SomeBot.
	name, _, _ = strings.Cut(name, "@")
	args = strings.TrimSpace(args)

	switch strings.ToLower(name) {
	case "start":
		return Action{Kind: ActionStart}, nil
	case "help":
		return Action{Kind: ActionHelp}, nil
	case "stats":
		return Action{Kind: ActionStats}, nil
	case "undo":
		return Action{Kind: ActionUndo}, nil
	case "goal":
		goal, err := core.ParseGoal(args)
		if err != nil {
			return Action{Kind: ActionSetGoal}, err
		}
		return Action{Kind: ActionSetGoal, AmountML: goal}, nil
	case "add":
		ml, err := core.ParseAmount(args)
		if err != nil {
			return Action{Kind: ActionAdd}, err
		}
		return Action{Kind: ActionAdd, AmountML: ml}, nil
	case "history":
		return Action{Kind: ActionHistory, Limit: core.HistoryLimit(args)}, nil
	}
	return Action{Kind: ActionUnknown}, nil
}

// looksNumeric reports whether text is meant as an amount, including
// malformed ones like "-5" or "+abc".
func looksNumeric(text string) bool {
	r := []rune(text)[0]
	return r == '+' || r == '-' || unicode.IsDigit(r)
}
