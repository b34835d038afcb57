package authentik

import (
	"fmt"
	"strings"
)

// Action selects which authentik event series is aggregated.
type Action string

const (
	ActionLogin       Action = "login"
	ActionLoginFailed Action = "login_failed"
)

// Actions lists every recognised action in a stable order.
var Actions = []Action{ActionLogin, ActionLoginFailed}

// InvalidActionError reports a query value outside the recognised action set.
type InvalidActionError struct {
	Value string
}

func (e *InvalidActionError) Error() string {
	if e.Value == "" {
		return "action is required"
	}
	return fmt.Sprintf("unrecognized action %q (expected one of %s)", e.Value, actionList())
}

// ParseAction validates a raw query value. Matching is exact: the value is
// forwarded verbatim to authentik, so "Login" is rejected rather than folded.
func ParseAction(value string) (Action, error) {
	for _, action := range Actions {
		if string(action) == value {
			return action, nil
		}
	}
	return "", &InvalidActionError{Value: value}
}

func (a Action) String() string {
	return string(a)
}

func actionList() string {
	names := make([]string, 0, len(Actions))
	for _, action := range Actions {
		names = append(names, string(action))
	}
	return strings.Join(names, ", ")
}
