package main

import (
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/cugtyt/llmruntime/pkg/api"
)

const defaultServer = "http://localhost:8080"

type options struct {
	server  string
	timeout time.Duration
	asJSON  bool
}

func (o *options) client() *api.Client {
	c := api.NewClient(o.server)
	c.SetTimeout(o.timeout)
	return c
}

func newRootCmd() *cobra.Command {
	opts := &options{}

	server := os.Getenv("LLM_RUNTIME_URL")
	if server == "" {
		server = defaultServer
	}

	root := &cobra.Command{
		Use:          "llmctl",
		Short:        "Talk to a running llm-runtime",
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVar(&opts.server, "server", server, "runtime base URL")
	root.PersistentFlags().DurationVar(&opts.timeout, "timeout", 3*time.Minute, "request timeout")
	root.PersistentFlags().BoolVar(&opts.asJSON, "json", false, "print raw JSON")

	root.AddCommand(newChatCmd(opts))
	root.AddCommand(newGetCmd(opts))
	root.AddCommand(newDeleteCmd(opts))
	root.AddCommand(newModelCmd(opts))
	root.AddCommand(newHealthCmd(opts))
	return root
}
