package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sync/atomic"

	"github.com/spf13/cobra"

	"github.com/KonamiWu/lenslink/internal/agent"
	"github.com/KonamiWu/lenslink/internal/device"
	"github.com/KonamiWu/lenslink/internal/protocol"
)

func newToolCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "tool <call.json | ->",
		Short: "Run one agent tool call against the glasses",
		Long: `Run one agent tool call against the glasses and print the reply.

The call is a JSON object such as
  {"tool": "thinkar_device_tool_brightness", "args": {"operation": "set", "level": 60}}
Pass "-" to read it from stdin.`,
		Args: cobra.ExactArgs(1),
		RunE: runTool,
	}
}

func readCall(arg string) ([]byte, error) {
	if arg == "-" {
		data, err := io.ReadAll(os.Stdin)
		if err != nil {
			return nil, fmt.Errorf("failed to read stdin: %w", err)
		}
		return data, nil
	}
	return []byte(arg), nil
}

func printReply(resp agent.Response) error {
	b, err := json.MarshalIndent(resp, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(b))
	return nil
}

func runTool(cmd *cobra.Command, args []string) error {
	data, err := readCall(args[0])
	if err != nil {
		return err
	}

	call, err := agent.DecodeCall(data, printReply)
	if err != nil {
		return err
	}
	tool := agent.ParseTool(call.Tool)
	if tool == agent.ToolUnknown {
		return fmt.Errorf("unknown tool %q", call.Tool)
	}

	ctx, cancel := signalContext()
	defer cancel()

	var ctrl atomic.Pointer[device.Controller]
	l, closeLink, err := connect(ctx, func(ev protocol.Event) {
		if c := ctrl.Load(); c != nil {
			c.HandleEvent(ev)
		}
	})
	if err != nil {
		return err
	}
	defer closeLink()

	c := device.New(l, device.WithLogger(logger))
	ctrl.Store(c)

	router := agent.NewRouter(agent.WithLogger(logger))
	c.Register(router)

	outcome := router.Dispatch(ctx, call)
	logger.Debug().Stringer("outcome", outcome).Str("tool", tool.ReplyName()).Msg("tool call finished")

	if outcome == agent.OutcomeNotImplemented && !agent.RepliesTo(tool) {
		fmt.Printf("%s is not available on this client.\n", tool)
		if params := agent.Params(tool, call.Args); params != nil {
			fmt.Println("Decoded arguments:")
			return printResult(params)
		}
	}
	return nil
}
