package weather

import (
	"context"
	"strings"

	"github.com/hupe1980/tourmesh/core"
	"github.com/hupe1980/tourmesh/tool"
)

// ToolName is the name the model uses to request a forecast.
const ToolName = "Weather Forecast"

const toolDescription = `Use this tool before drafting an itinerary, once the exact travel dates are known.
Query each day of the trip separately so activities can be planned around the weather.
Input: a date as YYYY-MM-DD, optionally followed by a comma and a place (e.g. "2025-03-14, Recife").
Without a place the current destination is used.`

// NewTool wraps the client as the "Weather Forecast" tool.
func NewTool(client *Client, optFns ...func(o *tool.FunctionToolOptions)) tool.Tool {
	return tool.NewFunctionTool(ToolName, toolDescription, func(ctx context.Context, input string) (string, error) {
		date, place := parseInput(input)
		if place == "" {
			place = core.VarsFromContext(ctx).Get(core.VarDestination)
		}

		if place == "" {
			return "", tool.NewToolError(ToolName, "no place given and no destination is set; ask the user for the destination", tool.CodeValidation)
		}

		f, err := client.Forecast(ctx, date, place)
		if err != nil {
			return "", err
		}

		return f.Format(), nil
	}, optFns...)
}

func parseInput(input string) (date, place string) {
	input = strings.Trim(strings.TrimSpace(input), "\"'`")
	date, place, _ = strings.Cut(input, ",")

	return strings.TrimSpace(date), strings.TrimSpace(place)
}
