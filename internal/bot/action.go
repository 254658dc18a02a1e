package bot

import (
	"strings"

	"github.com/castilh0s-archives/chatbot-example/internal/nlu"
)

// ActionKind is the closed set of structured directives the resolver knows.
// Names not in the set decode to ActionUnknown so the unhandled path stays
// visible instead of silently falling through on a string compare.
type ActionKind string

const (
	ActionDetailedApplication ActionKind = "detailed-application"
	ActionGetWeather          ActionKind = "get_weather"
	ActionListColors          ActionKind = "iphone_colors"
	ActionSaveFavoriteColor   ActionKind = "iphone_colors.favourite"
	ActionBuyIphone           ActionKind = "buy-iphone"
	ActionUnknown             ActionKind = "unknown"
)

// legacyWeatherAction is the action name the first revision of the agent used.
const legacyWeatherAction = "get-dash-weather"

// Action is an NLU directive decoded once at the boundary.
type Action struct {
	Kind       ActionKind
	Name       string
	Parameters map[string]any
	Contexts   []nlu.Context
}

// DecodeAction classifies the action of a query result. The returned bool is
// false when the result carries no action at all.
func DecodeAction(result *nlu.QueryResult) (Action, bool) {
	if result == nil || result.Action == "" {
		return Action{}, false
	}

	action := Action{
		Name:       result.Action,
		Parameters: result.Parameters,
		Contexts:   result.OutputContexts,
	}

	switch result.Action {
	case string(ActionDetailedApplication):
		action.Kind = ActionDetailedApplication
	case string(ActionGetWeather), legacyWeatherAction:
		action.Kind = ActionGetWeather
	case string(ActionListColors):
		action.Kind = ActionListColors
	case string(ActionSaveFavoriteColor):
		action.Kind = ActionSaveFavoriteColor
	case string(ActionBuyIphone):
		action.Kind = ActionBuyIphone
	default:
		action.Kind = ActionUnknown
	}

	return action, true
}

// CurrentContext returns the first (current) dialog context. Only the first
// context is ever consulted.
func (a Action) CurrentContext() (nlu.Context, bool) {
	if len(a.Contexts) == 0 {
		return nlu.Context{}, false
	}
	return a.Contexts[0], true
}

// StringParam extracts a named string parameter of the action itself.
func (a Action) StringParam(name string) string {
	if a.Parameters == nil {
		return ""
	}
	if s, ok := a.Parameters[name].(string); ok {
		return s
	}
	return ""
}

// applicationContextMarkers identify a job-application dialog context by
// substring match on the context name.
var applicationContextMarkers = []string{
	"job_application",
	"job-application-details_dialog_context",
	"dialog_context",
}

// isApplicationContext reports whether the context belongs to the
// job-application dialog and carries structured parameters.
func isApplicationContext(ctx nlu.Context) bool {
	if ctx.Parameters == nil {
		return false
	}
	for _, marker := range applicationContextMarkers {
		if strings.Contains(ctx.Name, marker) {
			return true
		}
	}
	return false
}

// ApplicationSlots are the five pieces of information the job-application
// dialog collects. Absent or explicitly empty slots are empty strings.
type ApplicationSlots struct {
	Phone       string
	Name        string
	PreviousJob string
	Years       string
	Vacancy     string
}

// ApplicationSlotsFrom reads the slots out of a dialog context.
func ApplicationSlotsFrom(ctx nlu.Context) ApplicationSlots {
	return ApplicationSlots{
		Phone:       ctx.StringParam("phone-number"),
		Name:        ctx.StringParam("user-name"),
		PreviousJob: ctx.StringParam("previous-job"),
		Years:       ctx.StringParam("years-of-experience"),
		Vacancy:     ctx.StringParam("job-vacancy"),
	}
}

// ApplicationState is the dialog stage computed from slot presence. The
// resolver holds no session state for this; the stage is recomputed from the
// context payload on every turn.
type ApplicationState int

const (
	// ApplicationIncomplete covers every slot combination with no special
	// handling; the ordinary fragment sequence is delivered.
	ApplicationIncomplete ApplicationState = iota
	// ApplicationAwaitingYears means name and previous job are filled but
	// neither years of experience nor phone number are.
	ApplicationAwaitingYears
	// ApplicationReadyToSubmit means all five slots are filled.
	ApplicationReadyToSubmit
)

// State classifies the slots into a dialog stage.
func (s ApplicationSlots) State() ApplicationState {
	switch {
	case s.Phone == "" && s.Name != "" && s.PreviousJob != "" && s.Years == "":
		return ApplicationAwaitingYears
	case s.Phone != "" && s.Name != "" && s.PreviousJob != "" && s.Years != "" && s.Vacancy != "":
		return ApplicationReadyToSubmit
	default:
		return ApplicationIncomplete
	}
}

// yearsOfExperienceOptions is the fixed quick-reply set offered while waiting
// for the years-of-experience slot.
var yearsOfExperienceOptions = []string{
	"Less than 1 year",
	"Less than 10 years",
	"More than 10 years",
}
