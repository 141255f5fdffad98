// Package cli implements the interactive command-line interface for
// StatRelay. It exposes live deployment counters, session counts and a
// request encoder for poking deployed games by hand.
package cli

import (
	"bufio"
	"context"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/olekukonko/tablewriter"
	"github.com/rs/zerolog/log"

	"github.com/statrelay-project/statrelay/internal/config"
	"github.com/statrelay-project/statrelay/internal/dispatch"
	"github.com/statrelay-project/statrelay/internal/events"
	"github.com/statrelay-project/statrelay/internal/protocol"
	"github.com/statrelay-project/statrelay/internal/session"
)

// CLI provides an interactive command-line interface.
type CLI struct {
	cfg        *config.Config
	eventBus   *events.Bus
	dispatcher *dispatch.Dispatcher
	sessions   *session.Registry
}

// NewCLI creates a new CLI handler.
func NewCLI(cfg *config.Config, eventBus *events.Bus, dispatcher *dispatch.Dispatcher, sessions *session.Registry) *CLI {
	return &CLI{
		cfg:        cfg,
		eventBus:   eventBus,
		dispatcher: dispatcher,
		sessions:   sessions,
	}
}

// Start begins the interactive CLI loop.
func (c *CLI) Start(ctx context.Context) {
	fmt.Println("\nStatRelay CLI ready. Type 'help' for available commands.")
	fmt.Println("─────────────────────────────────────────────────────")

	reader := newLineReader()
	if reader == nil {
		log.Warn().Msg("CLI: failed to initialize line reader, CLI disabled")
		<-ctx.Done()
		return
	}

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		line, err := reader.ReadLine("statrelay> ")
		if err != nil {
			if err == io.EOF {
				return
			}
			continue
		}

		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		parts := strings.Fields(line)
		cmd := strings.ToLower(parts[0])
		args := parts[1:]

		if err := c.execute(ctx, cmd, args); err != nil {
			fmt.Printf("Error: %v\n", err)
		}
	}
}

// execute processes a single CLI command.
func (c *CLI) execute(ctx context.Context, cmd string, args []string) error {
	switch cmd {
	case "help", "h", "?":
		c.printHelp()
	case "status", "s":
		c.printStatus()
	case "games", "g":
		c.printGames()
	case "sessions":
		c.printSessions()
	case "encode":
		return c.cmdEncode(args)
	case "quit", "exit", "q":
		fmt.Println("Shutting down StatRelay...")
		c.eventBus.Emit(ctx, events.Event{
			Type:   events.EventShutdown,
			Source: "cli",
		})
	default:
		fmt.Printf("Unknown command: '%s'. Type 'help' for available commands.\n", cmd)
	}
	return nil
}

// printHelp displays available commands.
func (c *CLI) printHelp() {
	fmt.Println("\n╔══════════════════════════════════════════════════════════════╗")
	fmt.Println("║                    StatRelay CLI Commands                    ║")
	fmt.Println("╠══════════════════════════════════════════════════════════════╣")
	fmt.Println("║  status             Show request counters per deployment    ║")
	fmt.Println("║  games              List deployed games and their versions  ║")
	fmt.Println("║  sessions           Show live session counts per scope      ║")
	fmt.Println("║  encode <game> <pid> <hex>                                  ║")
	fmt.Println("║                     Build a data parameter for a game       ║")
	fmt.Println("║  quit               Shutdown StatRelay                      ║")
	fmt.Println("║  help               Show this help message                  ║")
	fmt.Println("╚══════════════════════════════════════════════════════════════╝")
	fmt.Println()
}

// printStatus displays per-deployment counters in a formatted table.
func (c *CLI) printStatus() {
	deployments := c.dispatcher.Deployments()

	fmt.Println()

	tw := tablewriter.NewWriter(os.Stdout)
	tw.SetHeader([]string{"Game", "Accepted", "Rejected", "Sessions Issued"})
	tw.SetBorder(true)
	tw.SetAutoWrapText(false)

	for _, dep := range deployments {
		stats := dep.Stats()
		tw.Append([]string{
			dep.Name,
			fmt.Sprintf("%d", stats.Accepted),
			fmt.Sprintf("%d", stats.Rejected),
			fmt.Sprintf("%d", stats.SessionsIssued),
		})
	}

	tw.Render()
	fmt.Println()
}

// printGames lists each deployment's protocol configuration.
func (c *CLI) printGames() {
	deployments := c.dispatcher.Deployments()

	fmt.Println()

	tw := tablewriter.NewWriter(os.Stdout)
	tw.SetHeader([]string{"Game", "Game ID", "Request", "Response", "Encrypted", "Session Required"})
	tw.SetBorder(true)
	tw.SetAutoWrapText(false)

	for _, dep := range deployments {
		cfg := dep.Config
		tw.Append([]string{
			dep.Name,
			cfg.GameID,
			cfg.RequestVersion.String(),
			cfg.ResponseVersion.String(),
			fmt.Sprintf("%v", cfg.Encrypted),
			fmt.Sprintf("%v", cfg.RequireSession),
		})
	}

	tw.Render()
	fmt.Println()
}

// printSessions shows live session counts per scope.
func (c *CLI) printSessions() {
	counts := c.sessions.Counts()

	scopes := make([]string, 0, len(counts))
	for scope := range counts {
		scopes = append(scopes, scope)
	}
	sort.Strings(scopes)

	fmt.Println()

	tw := tablewriter.NewWriter(os.Stdout)
	tw.SetHeader([]string{"Scope", "Live Sessions"})
	tw.SetBorder(true)

	total := 0
	for _, scope := range scopes {
		tw.Append([]string{scope, fmt.Sprintf("%d", counts[scope])})
		total += counts[scope]
	}

	tw.Render()
	fmt.Printf("Total: %d\n\n", total)
}

// cmdEncode builds a client-side data parameter for a deployed game,
// useful for exercising a deployment with curl.
func (c *CLI) cmdEncode(args []string) error {
	if len(args) < 3 {
		return fmt.Errorf("usage: encode <game> <pid> <hex payload>")
	}

	dep, ok := c.dispatcher.Deployment(args[0])
	if !ok {
		return fmt.Errorf("unknown game '%s'", args[0])
	}

	pid, err := strconv.ParseInt(args[1], 10, 32)
	if err != nil {
		return fmt.Errorf("invalid pid '%s'", args[1])
	}

	payload, err := hex.DecodeString(args[2])
	if err != nil {
		return fmt.Errorf("invalid hex payload: %v", err)
	}

	data := protocol.EncodeRequest(payload, int32(pid), dep.Config)
	fmt.Printf("\n  data=%s\n\n", data)
	return nil
}

// lineReader is a simple cross-platform line reader.
type lineReader struct {
	scanner *bufio.Scanner
}

func newLineReader() *lineReader {
	return &lineReader{scanner: bufio.NewScanner(os.Stdin)}
}

func (lr *lineReader) ReadLine(prompt string) (string, error) {
	fmt.Print(prompt)
	if !lr.scanner.Scan() {
		if err := lr.scanner.Err(); err != nil {
			return "", err
		}
		return "", io.EOF
	}
	return lr.scanner.Text(), nil
}
