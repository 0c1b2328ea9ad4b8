package form

import (
	"context"
	"fmt"

	cloudevents "github.com/cloudevents/sdk-go/v2"
	"github.com/google/uuid"

	"github.com/goliatone/go-optionform/pkg/mask"
)

// EventSettingsSaved is the CloudEvents type emitted after a save or import
// changed options.
const EventSettingsSaved = "com.optionform.settings.saved"

// EventEmitter receives settings events. A cloudevents client can be
// adapted with a one-line wrapper around Send.
type EventEmitter interface {
	EmitEvent(ctx context.Context, event cloudevents.Event) error
}

// EventEmitterFunc adapts a function to EventEmitter.
type EventEmitterFunc func(ctx context.Context, event cloudevents.Event) error

func (fn EventEmitterFunc) EmitEvent(ctx context.Context, event cloudevents.Event) error {
	return fn(ctx, event)
}

// SavedPayload is the data of a settings-saved event.
type SavedPayload struct {
	Form   string     `json:"form"`
	Action Action     `json:"action"`
	Saved  []string   `json:"saved"`
	Values mask.Value `json:"values"`
}

func (f *Form) emitSaved(ctx context.Context, res Result) error {
	if f.emitter == nil {
		return nil
	}
	event, err := f.savedEvent(ctx, res)
	if err != nil {
		return err
	}
	return f.emitter.EmitEvent(ctx, event)
}

func (f *Form) savedEvent(ctx context.Context, res Result) (cloudevents.Event, error) {
	values := mask.NewMap()
	for _, name := range res.Saved {
		opt, ok := f.Lookup(name)
		if !ok {
			continue
		}
		value, err := opt.Value(ctx)
		if err != nil {
			return cloudevents.Event{}, err
		}
		values.Set(name, value)
	}

	event := cloudevents.NewEvent()
	event.SetID(uuid.NewString())
	event.SetType(EventSettingsSaved)
	event.SetSource("optionform/" + f.slug)
	event.SetSubject(f.slug)
	event.SetTime(f.now())
	payload := SavedPayload{
		Form:   f.slug,
		Action: res.Action,
		Saved:  append([]string(nil), res.Saved...),
		Values: mask.FromMap(values),
	}
	if err := event.SetData(cloudevents.ApplicationJSON, payload); err != nil {
		return cloudevents.Event{}, fmt.Errorf("form: encode event: %w", err)
	}
	return event, nil
}
