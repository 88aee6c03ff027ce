package main

// registry.go — cmd/duxnetd's node registry subcommand tree (C3/C4).

import (
	"strings"

	"github.com/spf13/cobra"

	core "duxnet/core"
)

type RegistryController struct{}

func (RegistryController) Register(id, address string, caps []string) (*core.Node, error) {
	return app.Registry.Register(id, address, caps, nil)
}

func (RegistryController) Heartbeat(id, status string) error {
	return app.Registry.Heartbeat(id, core.NodeStatus(status))
}

func (RegistryController) Deregister(id string) error { return app.Registry.Deregister(id) }

func (RegistryController) Get(id string) (*core.Node, error) { return app.Registry.Get(id) }

func (RegistryController) ListByCapabilities(caps []string) []*core.Node {
	return app.Registry.ListByCapabilities(caps, core.MatchAll)
}

var registryCmd = &cobra.Command{
	Use:   "registry",
	Short: "Manage registered compute/API nodes",
}

var registryRegisterCmd = &cobra.Command{
	Use:   "register <node-id> <address> [capability,...]",
	Short: "Register or update a node",
	Args:  cobra.RangeArgs(2, 3),
	RunE: func(cmd *cobra.Command, args []string) error {
		var caps []string
		if len(args) == 3 && args[2] != "" {
			caps = strings.Split(args[2], ",")
		}
		n, err := RegistryController{}.Register(args[0], args[1], caps)
		if err != nil {
			return err
		}
		return printJSON(cmd, n)
	},
}

var registryHeartbeatCmd = &cobra.Command{
	Use:   "heartbeat <node-id> <status>",
	Short: "Update a node's liveness status (online|offline|busy)",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return RegistryController{}.Heartbeat(args[0], args[1])
	},
}

var registryDeregisterCmd = &cobra.Command{
	Use:   "deregister <node-id>",
	Short: "Soft-delete a node",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return RegistryController{}.Deregister(args[0])
	},
}

var registryInfoCmd = &cobra.Command{
	Use:   "info <node-id>",
	Short: "Show node details",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		n, err := RegistryController{}.Get(args[0])
		if err != nil {
			return err
		}
		return printJSON(cmd, n)
	},
}

var registryListCmd = &cobra.Command{
	Use:   "list [capability,...]",
	Short: "List nodes matching all of the given capabilities",
	Args:  cobra.RangeArgs(0, 1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var caps []string
		if len(args) == 1 && args[0] != "" {
			caps = strings.Split(args[0], ",")
		}
		return printJSON(cmd, RegistryController{}.ListByCapabilities(caps))
	},
}

func init() {
	registryCmd.AddCommand(registryRegisterCmd, registryHeartbeatCmd, registryDeregisterCmd, registryInfoCmd, registryListCmd)
}

// RegistryRoute is exported for registration in the root CLI.
var RegistryRoute = registryCmd
