package bot

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/castilh0s-archives/chatbot-example/pkg/logging"
)

// WeatherService looks up the current weather description for a city. The
// bool is false when the service has no forecast for the city.
type WeatherService interface {
	CurrentDescription(ctx context.Context, city string) (string, bool, error)
}

// ColorStore reads the color catalog and per-user color preferences.
type ColorStore interface {
	ReadAll(ctx context.Context) ([]string, error)
	ReadUserColor(ctx context.Context, userID string) (string, error)
	UpdateUserColor(ctx context.Context, color, userID string) error
}

// EmailNotifier delivers a notification email. Fire-and-forget from the
// resolver's perspective; failures are logged by the implementation.
type EmailNotifier interface {
	Notify(ctx context.Context, subject, content string) error
}

const applicationEmailSubject = "New job application"

// Resolver inspects a decoded action and picks the reply strategy: a custom
// side effect, an overriding send, or handoff to the plain fragment sequence.
type Resolver struct {
	scheduler  *Scheduler
	dispatcher Dispatcher
	weather    WeatherService
	colors     ColorStore
	email      EmailNotifier
	interval   time.Duration
	logger     *logging.Logger
}

// ResolverOption customizes resolver behavior.
type ResolverOption func(*Resolver)

// WithInterval overrides the pacing interval used for fragment delivery.
func WithInterval(interval time.Duration) ResolverOption {
	return func(r *Resolver) {
		r.interval = interval
	}
}

// NewResolver creates a resolver. weather, colors and email may each be nil
// when the corresponding integration is not configured; the affected actions
// then fall back to plain fragment delivery.
func NewResolver(scheduler *Scheduler, dispatcher Dispatcher, weather WeatherService, colors ColorStore, email EmailNotifier, logger *logging.Logger, opts ...ResolverOption) *Resolver {
	if scheduler == nil {
		panic("bot: scheduler cannot be nil")
	}
	if dispatcher == nil {
		panic("bot: dispatcher cannot be nil")
	}
	if logger == nil {
		logger = logging.Default()
	}
	r := &Resolver{
		scheduler:  scheduler,
		dispatcher: dispatcher,
		weather:    weather,
		colors:     colors,
		email:      email,
		interval:   DefaultInterval,
		logger:     logger,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Resolve dispatches on the action kind. Unrecognized actions deliver the
// supplied fragments unmodified.
func (r *Resolver) Resolve(ctx context.Context, recipientID string, action Action, fragments []Fragment) {
	r.logger.Info("resolving action", "action", action.Name, "kind", action.Kind, "recipient_id", recipientID)

	switch action.Kind {
	case ActionDetailedApplication:
		r.resolveApplication(ctx, recipientID, action, fragments)
	case ActionGetWeather:
		r.resolveWeather(ctx, recipientID, action, fragments)
	case ActionListColors:
		r.resolveListColors(ctx, recipientID)
	case ActionSaveFavoriteColor:
		r.resolveSaveColor(ctx, recipientID, action)
	case ActionBuyIphone:
		r.resolveBuyIphone(ctx, recipientID)
	default:
		r.deliver(ctx, recipientID, fragments)
	}
}

// deliver hands the fragments to the sequencing pipeline.
func (r *Resolver) deliver(ctx context.Context, recipientID string, fragments []Fragment) {
	r.scheduler.Schedule(ctx, recipientID, Plan(fragments, r.interval))
}

// send dispatches a single immediate send, logging and absorbing failure.
func (r *Resolver) send(ctx context.Context, recipientID string, out OutboundSend) {
	if err := r.dispatcher.Dispatch(ctx, recipientID, out); err != nil {
		r.logger.Error("action reply failed", "recipient_id", recipientID, "kind", out.Kind, "error", err)
	}
}

func (r *Resolver) resolveApplication(ctx context.Context, recipientID string, action Action, fragments []Fragment) {
	current, ok := action.CurrentContext()
	if !ok || !isApplicationContext(current) {
		r.logger.Warn("application action without a job-application context", "recipient_id", recipientID)
		return
	}

	slots := ApplicationSlotsFrom(current)

	switch slots.State() {
	case ApplicationAwaitingYears:
		r.send(ctx, recipientID, QuickReplySend(FirstText(fragments), yearsOfExperienceOptions))
	case ApplicationReadyToSubmit:
		if r.email != nil {
			if err := r.email.Notify(ctx, applicationEmailSubject, applicationEmailBody(slots)); err != nil {
				r.logger.Error("application email failed", "recipient_id", recipientID, "error", err)
			}
		}
		r.deliver(ctx, recipientID, fragments)
	default:
		r.deliver(ctx, recipientID, fragments)
	}
}

// applicationEmailBody formats the summary email. The wording, including the
// doubled periods, matches what the recruiting inbox has parsed since the
// first revision.
func applicationEmailBody(slots ApplicationSlots) string {
	return "A new job enquiery from " + slots.Name +
		" for the job: " + slots.Vacancy +
		".<br> Previous job position: " + slots.PreviousJob + "." +
		".<br> Years of experience: " + slots.Years + "." +
		".<br> Phone number: " + slots.Phone + "."
}

func (r *Resolver) resolveWeather(ctx context.Context, recipientID string, action Action, fragments []Fragment) {
	city := action.StringParam("geo-city")
	if city == "" || r.weather == nil {
		r.deliver(ctx, recipientID, fragments)
		return
	}

	// The lookup runs off the handler goroutine; the reply lands whenever the
	// weather API answers.
	go func() {
		description, found, err := r.weather.CurrentDescription(ctx, city)
		switch {
		case err != nil:
			r.logger.Error("weather lookup failed", "city", city, "error", err)
			r.send(ctx, recipientID, TextSend("Weather forecast is not available"))
		case !found:
			r.send(ctx, recipientID, TextSend(fmt.Sprintf("No weather forecast available for %s", city)))
		default:
			r.send(ctx, recipientID, TextSend(fmt.Sprintf("%s %s", FirstText(fragments), description)))
		}
	}()
}

func (r *Resolver) resolveListColors(ctx context.Context, recipientID string) {
	if r.colors == nil {
		r.send(ctx, recipientID, TextSend("Color information is not available right now."))
		return
	}
	colors, err := r.colors.ReadAll(ctx)
	if err != nil {
		r.logger.Error("color catalog read failed", "error", err)
		r.send(ctx, recipientID, TextSend("Color information is not available right now."))
		return
	}
	reply := fmt.Sprintf("iPhone 8 is available in %s. What is your favourite color?", strings.Join(colors, ", "))
	r.send(ctx, recipientID, TextSend(reply))
}

func (r *Resolver) resolveSaveColor(ctx context.Context, recipientID string, action Action) {
	color := action.StringParam("color")
	if color == "" || r.colors == nil {
		return
	}
	if err := r.colors.UpdateUserColor(ctx, color, recipientID); err != nil {
		r.logger.Error("color preference update failed", "recipient_id", recipientID, "error", err)
		return
	}
	r.send(ctx, recipientID, TextSend(fmt.Sprintf("Oh, I like %s, too. I'll remember that.", color)))
}

func (r *Resolver) resolveBuyIphone(ctx context.Context, recipientID string) {
	if r.colors == nil {
		r.send(ctx, recipientID, TextSend("Which color would you like your iPhone in?"))
		return
	}
	color, err := r.colors.ReadUserColor(ctx, recipientID)
	if err != nil {
		r.logger.Error("color preference read failed", "recipient_id", recipientID, "error", err)
		color = ""
	}
	if color == "" {
		r.send(ctx, recipientID, TextSend("Which color would you like your iPhone in?"))
		return
	}
	r.send(ctx, recipientID, QuickReplySend(
		fmt.Sprintf("Would you like to buy a %s iPhone?", color),
		[]string{"Yes", "No"},
	))
}
