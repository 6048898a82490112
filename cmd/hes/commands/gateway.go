package commands

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/rfmesh/hes/internal/cli/output"
	"github.com/rfmesh/hes/internal/controlplane"
)

var gatewayAdminAddr string

var gatewayCmd = &cobra.Command{
	Use:   "gateway",
	Short: "Inspect and manage connected gateways",
	Long: `Talk to a running "hes start" process's admin gRPC surface to list
connected gateways or force-disconnect one.

Requires controlplane.enabled: true in the target process's configuration.`,
}

var gatewayListCmd = &cobra.Command{
	Use:   "list",
	Short: "List connected gateways",
	RunE:  runGatewayList,
}

var gatewayKickCmd = &cobra.Command{
	Use:   "kick <gateway-id>",
	Short: "Force-disconnect a gateway",
	Args:  cobra.ExactArgs(1),
	RunE:  runGatewayKick,
}

func init() {
	gatewayCmd.PersistentFlags().StringVar(&gatewayAdminAddr, "admin-addr", "localhost:8090", "admin gRPC address of a running hes start process")
	gatewayCmd.AddCommand(gatewayListCmd)
	gatewayCmd.AddCommand(gatewayKickCmd)
}

func dialAdmin(ctx context.Context) (*controlplane.Client, func(), error) {
	cc, err := grpc.NewClient(gatewayAdminAddr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, nil, fmt.Errorf("dial admin surface at %s: %w", gatewayAdminAddr, err)
	}
	return controlplane.NewClient(cc), func() { _ = cc.Close() }, nil
}

func runGatewayList(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	client, closeConn, err := dialAdmin(ctx)
	if err != nil {
		return err
	}
	defer closeConn()

	resp, err := client.GatewayStatus(ctx, &controlplane.GatewayStatusRequest{})
	if err != nil {
		return fmt.Errorf("gateway status: %w", err)
	}

	if len(resp.Gateways) == 0 {
		fmt.Println("No gateways connected")
		return nil
	}

	table := output.NewTableData("GATEWAY ID", "PAN ID", "SOURCE ADDR")
	for _, gw := range resp.Gateways {
		table.AddRow(gw.GatewayID, gw.PanID, gw.SourceAddr)
	}
	return output.PrintTable(os.Stdout, table)
}

func runGatewayKick(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	client, closeConn, err := dialAdmin(ctx)
	if err != nil {
		return err
	}
	defer closeConn()

	resp, err := client.KickGateway(ctx, &controlplane.KickGatewayRequest{GatewayID: args[0]})
	if err != nil {
		return fmt.Errorf("kick gateway %q: %w", args[0], err)
	}
	if resp.Disconnected {
		fmt.Printf("Gateway %s disconnected\n", args[0])
	}
	return nil
}
