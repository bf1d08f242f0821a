package main

import "fmt"

// Print helper functions for consistent output formatting.
func printSuccess(msg string) {
	fmt.Printf("\033[0;32m[OK]\033[0m %s\n", msg)
}

func printInfo(msg string) {
	fmt.Printf("\033[0;34m[INFO]\033[0m %s\n", msg)
}

func printError(msg string) {
	fmt.Printf("\033[0;31m[ERROR]\033[0m %s\n", msg)
}

func printHelp() {
	fmt.Println("LunaLift Edge Gateway")
	fmt.Println()
	fmt.Println("Usage: edge-gateway [OPTIONS]")
	fmt.Println()
	fmt.Println("Options:")
	fmt.Println("  -c, --config FILE    Gateway config (YAML, defaults when omitted)")
	fmt.Println("  -p, --port PORT      Listen port (overrides server.port)")
	fmt.Println("  --origin URL         Origin site (overrides origin.url)")
	fmt.Println("  -d, --debug          Enable debug logging")
	fmt.Println("  -v, --version        Print version and exit")
	fmt.Println("  -h, --help           Show this help")
	fmt.Println()
	fmt.Println("Operational endpoints:")
	fmt.Println("  /_gateway/health     Liveness and analytics queue depth")
	fmt.Println("  /_gateway/stats      Counters as JSON (localhost only)")
	fmt.Println("  /_gateway/metrics    Prometheus exposition")
	fmt.Println()
	fmt.Println("Examples:")
	fmt.Println("  edge-gateway --origin http://127.0.0.1:3000")
	fmt.Println("  edge-gateway -c configs/gateway.yaml -p 8081 -d")
}
