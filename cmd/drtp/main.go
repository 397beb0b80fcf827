// Package main implements the DRTP command-line client and server: a
// single sender transmits one file to a single receiver over UDP using
// Go-Back-N with cumulative ACKs.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/kulaginds/drtp-go/internal/config"
	"github.com/kulaginds/drtp-go/internal/drtp"
	"github.com/kulaginds/drtp-go/internal/logging"
	"github.com/kulaginds/drtp-go/internal/monitor"
	"github.com/kulaginds/drtp-go/internal/transport/udp"
)

var (
	appName    = "DRTP"
	appVersion = "dev" // injected at build time via -ldflags
)

func main() {
	args, action := parseFlags()
	if action == "error" {
		os.Exit(2)
	}
	if action != "" {
		return
	}
	if err := run(args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// parsedArgs holds the parsed command line arguments.
type parsedArgs struct {
	server      bool
	client      bool
	ip          string
	port        int
	file        string
	window      int
	discard     int
	logLevel    string
	showPackets bool
	monitor     bool
	monitorAddr string
}

// parseFlags parses os.Args and returns the parsed args.
func parseFlags() (parsedArgs, string) {
	return parseFlagsWithArgs(os.Args[1:])
}

// parseFlagsWithArgs parses the given arguments and returns the parsed
// args. The returned string is non-empty ("help"/"version"/"error") when
// the caller already produced output and should exit without calling
// run; "error" means the arguments could not be parsed.
func parseFlagsWithArgs(args []string) (parsedArgs, string) {
	fs := flag.NewFlagSet("drtp", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	server := fs.Bool("s", false, "")
	fs.BoolVar(server, "server", false, "run as the receiver")
	client := fs.Bool("c", false, "")
	fs.BoolVar(client, "client", false, "run as the sender")
	ip := fs.String("i", "127.0.0.1", "")
	fs.StringVar(ip, "ip", "127.0.0.1", "IPv4 address")
	port := fs.Int("p", 8088, "")
	fs.IntVar(port, "port", 8088, "port, 1024-65535")
	file := fs.String("f", "", "")
	fs.StringVar(file, "file", "", "file to send (required with -c)")
	window := fs.Int("w", 3, "")
	fs.IntVar(window, "window", 3, "sliding window size")
	discard := fs.Int("d", -1, "")
	fs.IntVar(discard, "discard", -1, "receiver: drop this data seq once, for testing")
	logLevel := fs.String("log-level", "info", "log level (debug, info, warn, error)")
	showPackets := fs.Bool("show-packets", false, "trace every packet sent/received at debug level")
	monitorFlag := fs.Bool("monitor", false, "serve a live progress WebSocket")
	monitorAddr := fs.String("monitor-addr", ":7077", "address the progress WebSocket listens on")
	helpFlag := fs.Bool("help", false, "show help")
	versionFlag := fs.Bool("version", false, "show version")

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return parsedArgs{}, "help"
		}
		return parsedArgs{}, "error"
	}

	if *helpFlag {
		showHelp()
		return parsedArgs{}, "help"
	}
	if *versionFlag {
		showVersion()
		return parsedArgs{}, "version"
	}

	return parsedArgs{
		server:      *server,
		client:      *client,
		ip:          strings.TrimSpace(*ip),
		port:        *port,
		file:        strings.TrimSpace(*file),
		window:      *window,
		discard:     *discard,
		logLevel:    strings.TrimSpace(*logLevel),
		showPackets: *showPackets,
		monitor:     *monitorFlag,
		monitorAddr: strings.TrimSpace(*monitorAddr),
	}, ""
}

// run loads configuration from args, sets up logging and dispatches to
// the client or server transfer loop.
func run(args parsedArgs) error {
	if args.server == args.client {
		return fmt.Errorf("exactly one of -s/--server or -c/--client is required")
	}

	mode := config.ModeServer
	if args.client {
		mode = config.ModeClient
	}

	cfg, err := config.LoadWithOverrides(config.LoadOptions{
		Mode:        mode,
		IP:          args.ip,
		Port:        args.port,
		File:        args.file,
		Window:      args.window,
		Discard:     args.discard,
		LogLevel:    args.logLevel,
		ShowPackets: args.showPackets,
		Monitor:     args.monitor,
		MonitorAddr: args.monitorAddr,
	})
	if err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	logging.SetLevelFromString(cfg.Logging.Level)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	var reporter drtp.Reporter
	if cfg.Monitor.Enabled {
		b := monitor.New()
		reporter = b
		go func() {
			if err := b.ListenAndServe(cfg.Monitor.Addr); err != nil {
				logging.Error("monitor: %v", err)
			}
		}()
		defer b.Close()
		logging.Info("live progress monitor listening on %s/ws", cfg.Monitor.Addr)
	}

	if cfg.Mode == config.ModeClient {
		return runClient(ctx, cfg, reporter)
	}
	return runServer(ctx, cfg, reporter)
}

// runClient sends cfg.Transfer.File to cfg.Network.IP:Port and tears the
// connection down once every chunk is acknowledged.
func runClient(ctx context.Context, cfg *config.Config, reporter drtp.Reporter) error {
	chunks, err := drtp.FrameFile(cfg.Transfer.File)
	if err != nil {
		return err
	}
	logging.Info("framed %s into %d chunks", cfg.Transfer.File, len(chunks))

	ep, err := udp.Connect(cfg.Network.IP, cfg.Network.Port)
	if err != nil {
		return err
	}
	defer ep.Close()

	dataAck, state, err := drtp.ClientHandshake(ep, cfg.Transfer.RTO)
	if err != nil {
		return err
	}
	logging.Info("handshake complete, state=%s", state)

	sender := drtp.NewSender(ep, chunks, dataAck, cfg.Transfer.Window, cfg.Transfer.RTO, reporter, cfg.Logging.ShowPackets)
	if err := sender.Run(ctx); err != nil {
		return fmt.Errorf("transfer: %w", err)
	}
	logging.Info("all %d chunks acknowledged", len(chunks))

	state, err = drtp.ClientTeardown(ep, cfg.Transfer.RTO)
	if err != nil {
		return err
	}
	logging.Info("teardown complete, state=%s", state)

	return nil
}

// runServer accepts one incoming transfer, reassembles it and writes the
// result to output/<filename>.
func runServer(ctx context.Context, cfg *config.Config, reporter drtp.Reporter) error {
	ep, err := udp.Bind(cfg.Network.IP, cfg.Network.Port)
	if err != nil {
		return err
	}
	defer ep.Close()

	go func() {
		<-ctx.Done()
		_ = ep.Close()
	}()

	peer, state, err := drtp.ServerHandshake(ep, cfg.Transfer.ReceiverIdle)
	if err != nil {
		return err
	}
	logging.Info("handshake complete with %s, state=%s", peer, state)

	receiver := drtp.NewReceiver(ep, cfg.Transfer.ReceiverIdle, cfg.Transfer.Discard, reporter, cfg.Logging.ShowPackets)
	outcome, err := receiver.Run()
	if err != nil {
		return fmt.Errorf("transfer: %w", err)
	}

	logging.Info("throughput: %s", drtp.Throughput(outcome.TotalBytes, outcome.Elapsed))

	name, content, err := drtp.Reassemble(outcome.Accepted)
	if err != nil {
		return err
	}

	if err := drtp.WriteOutput("output", name, content); err != nil {
		return err
	}
	logging.Info("wrote output/%s (%d bytes)", name, len(content))

	return nil
}

func showHelp() {
	fmt.Println(appName)
	fmt.Println("USAGE: drtp (-s|-c) [options]")
	fmt.Println("OPTIONS:")
	fmt.Println("  -s, --server        run as the receiver")
	fmt.Println("  -c, --client        run as the sender")
	fmt.Println("  -i, --ip            IPv4 address (default 127.0.0.1)")
	fmt.Println("  -p, --port          port, 1024-65535 (default 8088)")
	fmt.Println("  -f, --file          file to send, required with -c")
	fmt.Println("  -w, --window        sliding window size (default 3)")
	fmt.Println("  -d, --discard       receiver: drop this data seq once, for testing")
	fmt.Println("  -log-level          log level: debug, info, warn, error (default info)")
	fmt.Println("  -show-packets       trace every packet sent/received at debug level")
	fmt.Println("  -monitor            serve a live progress WebSocket")
	fmt.Println("  -monitor-addr       address the progress WebSocket listens on (default :7077)")
	fmt.Println("  -version            show version information")
	fmt.Println("  -help               show this help message")
	fmt.Println("EXAMPLES:")
	fmt.Println("  drtp -s -p 8088")
	fmt.Println("  drtp -c -f photo.jpg -i 127.0.0.1 -p 8088 -w 5")
}

func showVersion() {
	fmt.Printf("%s %s\n", appName, appVersion)
	fmt.Println("Protocol: DRTP (Go-Back-N over UDP)")
}
