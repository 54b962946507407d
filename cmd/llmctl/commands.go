package main

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/cugtyt/llmruntime/internal/llminterface"
	"github.com/cugtyt/llmruntime/pkg/api"
)

func newChatCmd(opts *options) *cobra.Command {
	var (
		model       string
		system      string
		agentID     string
		maxTokens   int
		temperature float64
	)

	cmd := &cobra.Command{
		Use:   "chat <message>",
		Short: "Send one message and print the reply",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			req := api.ChatRequest{
				AgentID:   agentID,
				Model:     model,
				MaxTokens: maxTokens,
			}
			if system != "" {
				req.Messages = append(req.Messages, llminterface.Message{Role: llminterface.RoleSystem, Content: system})
			}
			req.Messages = append(req.Messages, llminterface.Message{Role: llminterface.RoleUser, Content: strings.Join(args, " ")})
			if cmd.Flags().Changed("temperature") {
				req.Temperature = &temperature
			}

			out, err := opts.client().Chat(cmd.Context(), req)
			if err != nil {
				return err
			}
			if opts.asJSON {
				return printJSON(cmd.OutOrStdout(), out)
			}
			return printResponse(cmd.OutOrStdout(), out)
		},
	}

	cmd.Flags().StringVarP(&model, "model", "m", "", "model to use instead of the runtime default")
	cmd.Flags().StringVarP(&system, "system", "s", "", "system prompt")
	cmd.Flags().StringVar(&agentID, "agent", "", "agent id recorded with the exchange")
	cmd.Flags().IntVar(&maxTokens, "max-tokens", 0, "completion token cap")
	cmd.Flags().Float64Var(&temperature, "temperature", llminterface.DefaultTemperature, "sampling temperature")
	return cmd
}

func newGetCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "get <request-id>",
		Short: "Show a stored exchange",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ex, err := opts.client().GetResponse(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), ex)
		},
	}
}

func newDeleteCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <request-id>",
		Short: "Remove a stored exchange",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := opts.client().DeleteResponse(cmd.Context(), args[0]); err != nil {
				return err
			}
			_, err := fmt.Fprintf(cmd.OutOrStdout(), "deleted %s\n", args[0])
			return err
		},
	}
}

func newModelCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "model",
		Short: "Print the runtime default model",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			model, err := opts.client().DefaultModel(cmd.Context())
			if err != nil {
				return err
			}
			if opts.asJSON {
				return printJSON(cmd.OutOrStdout(), api.ModelInfo{Model: model})
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), model)
			return err
		},
	}
}

func newHealthCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Check the runtime health",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			health, err := opts.client().GetHealth(cmd.Context())
			if err != nil {
				return err
			}
			if opts.asJSON {
				return printJSON(cmd.OutOrStdout(), health)
			}

			w := cmd.OutOrStdout()
			fmt.Fprintf(w, "%s %s: %s (up %s)\n", health.Service, health.Version, health.Status, health.Uptime)
			names := make([]string, 0, len(health.Components))
			for name := range health.Components {
				names = append(names, name)
			}
			sort.Strings(names)
			for _, name := range names {
				fmt.Fprintf(w, "  %s: %s\n", name, health.Components[name])
			}
			return nil
		},
	}
}

func printResponse(w io.Writer, out *api.ChatResponse) error {
	resp := out.Response
	if resp.Content != "" {
		fmt.Fprintln(w, resp.Content)
	}
	for _, tc := range resp.ToolCalls {
		args, _ := json.Marshal(tc.Arguments)
		fmt.Fprintf(w, "-> %s(%s) [%s]\n", tc.Name, args, tc.ID)
	}
	_, err := fmt.Fprintf(w, "[%s] %s finish=%s%s\n", out.RequestID, out.Model, resp.FinishReason, usageSuffix(resp.Usage))
	return err
}

func usageSuffix(u *llminterface.Usage) string {
	if u == nil {
		return ""
	}
	return fmt.Sprintf(" tokens=%d/%d", u.PromptTokens, u.CompletionTokens)
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
