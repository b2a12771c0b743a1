// Command uectl is the console client of the UE profile repository.
//
// Example usage:
//
//	# Print the blank form
//	uectl template
//
//	# Create a profile
//	uectl create --set supi=imsi-001010000000001 --set plmnid.mcc=001 --set plmnid.mnc=01
//
//	# Generate ten profiles and list them
//	uectl generate -n 10 --set plmnid.mcc=208 --set plmnid.mnc=93
//	uectl list --supi 20893
//
// The repository URL and API token come from the client section of the
// configuration, UEPROFILE_CLIENT_BASE_URL and UEPROFILE_CLIENT_TOKEN, or
// the --server and --token flags.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := newRootCmd(os.Stdout, os.Stderr).ExecuteContext(ctx)
	stop()
	if err != nil {
		os.Exit(1)
	}
}
