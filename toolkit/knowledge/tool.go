package knowledge

import (
	"context"
	"fmt"
	"strings"

	"github.com/hupe1980/tourmesh/core"
	"github.com/hupe1980/tourmesh/tool"
)

// ToolName is the name the model uses to query the knowledge base.
const ToolName = "Query Knowledge Base"

const toolDescription = `Use this tool once the destination and the user's interests are known, to find sights and attractions that match those interests.
Input: a short description of what to look for (e.g. "beaches and seafood restaurants").`

// NewTool exposes the store as the "Query Knowledge Base" tool. The
// destination is read from the session variables.
func NewTool(store *Store, topK int, optFns ...func(o *tool.FunctionToolOptions)) tool.Tool {
	return tool.NewFunctionTool(ToolName, toolDescription, func(ctx context.Context, input string) (string, error) {
		destination := core.VarsFromContext(ctx).Get(core.VarDestination)
		if destination == "" {
			return "", tool.NewToolError(ToolName, "no destination is set; ask the user where they are travelling to", tool.CodeValidation)
		}

		query := strings.Trim(strings.TrimSpace(input), "\"'`")

		chunks, err := store.Query(ctx, destination, destination+" "+query, topK)
		if err != nil {
			return "", err
		}

		if len(chunks) == 0 {
			return fmt.Sprintf("No information about %q found in the knowledge base for %s.", query, destination), nil
		}

		return JoinChunks(chunks), nil
	}, optFns...)
}
