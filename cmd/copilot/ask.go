package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/zhouzirui/copilot-extension/backend/internal/model/chat"
	"github.com/zhouzirui/copilot-extension/backend/internal/render"
)

func newAskCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "ask <text...>",
		Short: "Send one query and print the reply",
		Example: `  copilot ask what is the weather in Austin
  copilot ask --endpoint sales show the sales forecast`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			text := strings.TrimSpace(strings.Join(args, " "))
			if text == "" {
				return fmt.Errorf("query text is empty")
			}

			result := a.client().Query(cmd.Context(), text)
			printResult(cmd.OutOrStdout(), result)
			return nil
		},
	}
}

func printResult(w io.Writer, result chat.QueryResult) {
	if result.Text != "" {
		fmt.Fprintln(w, result.Text)
	}
	if component, ok := render.RenderComponent(result.Component); ok {
		fmt.Fprintln(w, render.Terminal(component))
	}
}
