// portd-l3 wires the L3 address-and-route reconciliation core to a kernel
// routing socket and a CONFIG Redis instance, and runs startup reconciliation
// once before handing control back to the host.
//
// The daemon's main event loop, CONFIG transaction commit, privilege
// acquisition, and CLI argument parsing beyond what's here are external
// collaborators this command does not implement — see SPEC_FULL.md.
package main

import (
	"fmt"
	"os"

	"github.com/go-redis/redis/v8"
	"github.com/spf13/cobra"

	"github.com/newtron-network/portd/pkg/portd"
	"github.com/newtron-network/portd/pkg/portd/store"
	"github.com/newtron-network/portd/pkg/util"
)

var (
	redisAddr string
	verbose   bool
)

var rootCmd = &cobra.Command{
	Use:   "portd-l3",
	Short: "L3 address and connected-route reconciliation daemon",
	RunE:  run,
}

func main() {
	rootCmd.PersistentFlags().StringVar(&redisAddr, "config-redis", "localhost:6379", "address of the CONFIG Redis instance")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(cmd *cobra.Command, args []string) error {
	if verbose {
		util.SetLogLevel("debug")
	}

	client := redis.NewClient(&redis.Options{Addr: redisAddr, DB: 4})
	cfg := store.New(client)

	kernel, err := portd.OpenKernelChannel()
	if err != nil {
		return fmt.Errorf("opening kernel channel: %w", err)
	}
	defer kernel.Close()

	portd.SetIPForwarding(portd.FamilyV4, true)
	portd.SetIPForwarding(portd.FamilyV6, true)

	routes := portd.NewConnectedRouteWriter(cfg)
	engine := portd.NewReconfigEngine(kernel, routes)
	startup := portd.NewStartupReconciler(kernel, cfg)

	vrfPorts, err := startup.Run()
	if err != nil {
		return fmt.Errorf("startup reconciliation: %w", err)
	}

	total := 0
	for _, ports := range vrfPorts {
		total += len(ports)
	}
	util.WithField("ports", total).Info("startup reconciliation complete")

	// Control now passes to the host's main event loop, which calls
	// engine.ReconfigureIfModified per CONFIG change batch. That loop, and
	// the CONFIG transaction commit it drives, live outside this core.
	_ = engine
	return nil
}
