package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"
	"github.com/spf13/cobra"

	"portforge/internal/corpus"
	"portforge/internal/progress"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp <corpus>",
	Short: "Start an MCP server exposing corpus and progress tools",
	Args:  cobra.ExactArgs(1),
	RunE:  runMCP,
}

func runMCP(cmd *cobra.Command, args []string) error {
	e, err := buildEnv(args[0], false)
	if err != nil {
		return err
	}
	defer e.close()

	notesDir := filepath.Join(e.cfg.Output.Dir, "notes")

	s := mcpserver.NewMCPServer("portforge", "1.0.0", mcpserver.WithToolCapabilities(false))

	s.AddTool(listUnitsTool(), makeListUnitsHandler(e.units, e.store))
	s.AddTool(getUnitSourceTool(), makeUnitSourceHandler(e.units))
	s.AddTool(getNotesTool(), makeNotesHandler(notesDir))
	s.AddTool(portStatusTool(), makePortStatusHandler(e.units, e.store))

	return mcpserver.ServeStdio(s)
}

func init() {
	rootCmd.AddCommand(mcpCmd)
}

// --- Tool schema builders ---

var readOnlyAnnotation = mcp.ToolAnnotation{
	ReadOnlyHint:    mcp.ToBoolPtr(true),
	DestructiveHint: mcp.ToBoolPtr(false),
	IdempotentHint:  mcp.ToBoolPtr(true),
	OpenWorldHint:   mcp.ToBoolPtr(false),
}

func listUnitsTool() mcp.Tool {
	return mcp.NewTool("list_units",
		mcp.WithDescription("List corpus units in processing order with line counts and conversion state."),
		mcp.WithToolAnnotation(readOnlyAnnotation),
		mcp.WithString("state",
			mcp.Description("Optional filter: 'pending' or 'converted'"),
		),
	)
}

func getUnitSourceTool() mcp.Tool {
	return mcp.NewTool("get_unit_source",
		mcp.WithDescription("Get the original source text of one corpus unit."),
		mcp.WithToolAnnotation(readOnlyAnnotation),
		mcp.WithString("name",
			mcp.Required(),
			mcp.Description("Unit name (file base name without extension)"),
		),
	)
}

func getNotesTool() mcp.Tool {
	return mcp.NewTool("get_conversion_notes",
		mcp.WithDescription("Get the summary and discussion notes recorded for a converted unit."),
		mcp.WithToolAnnotation(readOnlyAnnotation),
		mcp.WithString("name",
			mcp.Required(),
			mcp.Description("Unit name"),
		),
	)
}

func portStatusTool() mcp.Tool {
	return mcp.NewTool("port_status",
		mcp.WithDescription("Get overall porting progress: total, converted, and pending unit counts."),
		mcp.WithToolAnnotation(readOnlyAnnotation),
	)
}

// --- Handler factories ---

func makeListUnitsHandler(units []corpus.Unit, st progress.Store) mcpserver.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		filter := strings.ToLower(req.GetString("state", ""))

		var sb strings.Builder
		count := 0
		for _, u := range corpus.Order(units) {
			done, err := st.IsConverted(u.Name)
			if err != nil {
				return mcp.NewToolResultError(fmt.Sprintf("progress lookup failed: %v", err)), nil
			}
			state := "pending"
			if done {
				state = "converted"
			}
			if filter != "" && filter != state {
				continue
			}
			count++
			fmt.Fprintf(&sb, "- **%s** (%d lines, %s)\n", u.Name, u.Lines, state)
		}

		return mcp.NewToolResultText(fmt.Sprintf("## Units (%d)\n\n%s", count, sb.String())), nil
	}
}

func makeUnitSourceHandler(units []corpus.Unit) mcpserver.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		name := req.GetString("name", "")
		if name == "" {
			return mcp.NewToolResultError("name is required"), nil
		}

		for _, u := range units {
			if u.Name == name {
				return mcp.NewToolResultText(fmt.Sprintf("## %s (%d lines)\n\n```\n%s\n```",
					u.RelPath, u.Lines, u.Source)), nil
			}
		}

		return mcp.NewToolResultError(fmt.Sprintf("unit %q not in corpus — call list_units to see available names", name)), nil
	}
}

func makeNotesHandler(notesDir string) mcpserver.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		name := req.GetString("name", "")
		if name == "" {
			return mcp.NewToolResultError("name is required"), nil
		}

		data, err := os.ReadFile(filepath.Join(notesDir, name+".md"))
		if err != nil {
			if os.IsNotExist(err) {
				return mcp.NewToolResultText(fmt.Sprintf("No notes recorded for %q yet.", name)), nil
			}
			return mcp.NewToolResultError(fmt.Sprintf("read notes failed: %v", err)), nil
		}
		return mcp.NewToolResultText(string(data)), nil
	}
}

func makePortStatusHandler(units []corpus.Unit, st progress.Store) mcpserver.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		converted := 0
		for _, u := range units {
			done, err := st.IsConverted(u.Name)
			if err != nil {
				return mcp.NewToolResultError(fmt.Sprintf("progress lookup failed: %v", err)), nil
			}
			if done {
				converted++
			}
		}
		return mcp.NewToolResultText(fmt.Sprintf(
			"## Porting status\n\n**Total:** %d  \n**Converted:** %d  \n**Pending:** %d\n",
			len(units), converted, len(units)-converted)), nil
	}
}
