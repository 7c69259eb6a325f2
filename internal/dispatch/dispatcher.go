package dispatch

import (
	"context"
	"fmt"

	"mira/internal/intent"
	"mira/internal/logging"
	"mira/internal/plugins"
)

// Result carries both plugin outputs. PluginResult feeds the assembled
// context; ShortcutReply is an alternate immediate answer the orchestrator may
// use without consulting the language model. They are kept separate because
// the two are not always equal: a failed weather lookup leaves PluginResult
// empty but still sets an apology on the shortcut path.
type Result struct {
	PluginResult  string
	ShortcutReply string
}

const weatherApology = "Sorry, couldn't fetch weather data."

// Dispatcher routes a classified message to the matching deterministic plugin.
// It never touches conversation memory.
type Dispatcher struct {
	weather  *plugins.WeatherPlugin
	math     *plugins.MathPlugin
	calendar *plugins.CalendarPlugin
	logger   logging.Logger
}

// NewDispatcher wires the three plugin collaborators.
func NewDispatcher(weather *plugins.WeatherPlugin, math *plugins.MathPlugin, calendar *plugins.CalendarPlugin) *Dispatcher {
	return &Dispatcher{
		weather:  weather,
		math:     math,
		calendar: calendar,
		logger:   logging.NewComponentLogger("Dispatcher"),
	}
}

// Dispatch invokes the plugin for the given intent. Plugin failures are
// absorbed: they surface only as an apology on the shortcut path, never as an
// error to the caller.
func (d *Dispatcher) Dispatch(ctx context.Context, in intent.Intent, message string) Result {
	switch in {
	case intent.IntentWeather:
		report, err := d.weather.Current(ctx, message)
		if err != nil {
			d.logger.Warn("Weather plugin failed: %v", err)
			return Result{ShortcutReply: weatherApology}
		}
		formatted := fmt.Sprintf("Temperature in %s: %.1f°C", report.City, report.TemperatureC)
		return Result{PluginResult: formatted, ShortcutReply: formatted}

	case intent.IntentMath:
		if result, ok := d.math.Evaluate(message); ok {
			return Result{PluginResult: result, ShortcutReply: result}
		}
		return Result{}

	case intent.IntentDate:
		// An empty answer means no date/time pattern matched; that is a
		// no-op, not a failure.
		if result := d.calendar.Answer(message); result != "" {
			return Result{PluginResult: result, ShortcutReply: result}
		}
		return Result{}

	default:
		return Result{}
	}
}
