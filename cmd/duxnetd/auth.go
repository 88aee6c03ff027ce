package main

// auth.go — cmd/duxnetd's auth subcommand tree: node identity issuance,
// revocation, and population statistics for the Authenticator (C2).
// Signing and verification stay internal collaborators driven by the
// orchestrator and escrow engine; nothing here exposes a node's secret.

import (
	"encoding/base64"
	"strconv"

	"github.com/spf13/cobra"

	core "duxnet/core"
)

type AuthController struct{}

func (AuthController) Register(nodeID string, level core.AuthLevel) (string, error) {
	secret, err := app.Auth.Register(nodeID, level)
	if err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(secret), nil
}

func (AuthController) Revoke(nodeID string) bool { return app.Auth.Revoke(nodeID) }

func (AuthController) Identity(nodeID string) (core.NodeIdentity, error) {
	return app.Auth.Identity(nodeID)
}

func (AuthController) Stats() core.AuthStats { return app.Auth.Stats() }

var authCmd = &cobra.Command{
	Use:   "auth",
	Short: "Manage node identities and authorization",
}

var authRegisterCmd = &cobra.Command{
	Use:   "register <node-id> <level>",
	Short: "Issue a fresh HMAC secret for a node at the given level (0=none,1=basic,2=signed,3=verified)",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		level, err := strconv.Atoi(args[1])
		if err != nil {
			return err
		}
		secret, err := AuthController{}.Register(args[0], core.AuthLevel(level))
		if err != nil {
			return err
		}
		return printJSON(cmd, map[string]string{"node_id": args[0], "secret": secret})
	},
}

var authRevokeCmd = &cobra.Command{
	Use:   "revoke <node-id>",
	Short: "Remove a node's identity entirely",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return printJSON(cmd, map[string]bool{"revoked": AuthController{}.Revoke(args[0])})
	},
}

var authInfoCmd = &cobra.Command{
	Use:   "info <node-id>",
	Short: "Show a node's identity, without its secret",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := AuthController{}.Identity(args[0])
		if err != nil {
			return err
		}
		return printJSON(cmd, id)
	},
}

var authStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show per-auth-level node counts and the rate-limited node count",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return printJSON(cmd, AuthController{}.Stats())
	},
}

func init() {
	authCmd.AddCommand(authRegisterCmd, authRevokeCmd, authInfoCmd, authStatsCmd)
}

// AuthRoute is exported for registration in the root CLI.
var AuthRoute = authCmd
