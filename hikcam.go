package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/jonas-koeritz/hikcam/config"
	"github.com/jonas-koeritz/hikcam/libhikvision"
)

const (
	// exitUsage is returned when the command line could not be parsed
	exitUsage = 255
	// exitMaxCode is returned for SDK error codes that do not fit an exit status
	exitMaxCode = 254
)

// exitStatus carries a process exit status through cobra's error return
type exitStatus int

func (e exitStatus) Error() string {
	return fmt.Sprintf("exit status %d", int(e))
}

func exitFor(code libhikvision.ErrorCode) error {
	switch {
	case code == libhikvision.CodeNoError:
		return nil
	case code > exitMaxCode:
		return exitStatus(exitMaxCode)
	}
	return exitStatus(code)
}

type cli struct {
	stdout io.Writer
	stderr io.Writer

	verbose    bool
	configPath string
	initPolicy string
	device     config.DeviceConfig
	outFile    string
	frames     int
	outDir     string
	timeout    time.Duration

	cfg       *config.Config
	log       zerolog.Logger
	newDriver func(cfg *config.Config, log *zerolog.Logger) libhikvision.Driver
}

func newISAPIDriver(cfg *config.Config, log *zerolog.Logger) libhikvision.Driver {
	return libhikvision.NewISAPIDriver(libhikvision.ISAPIOptions{
		Scheme:  cfg.Device.Scheme,
		Timeout: cfg.Device.Timeout,
		Logger:  log,
	})
}

func newLogger(w io.Writer, verbose bool) zerolog.Logger {
	level := zerolog.WarnLevel
	if verbose {
		level = zerolog.DebugLevel
	}
	return zerolog.New(zerolog.ConsoleWriter{Out: w, TimeFormat: "15:04:05"}).
		Level(level).
		With().
		Timestamp().
		Logger()
}

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	return (&cli{stdout: stdout, stderr: stderr, newDriver: newISAPIDriver}).execute(args)
}

func (c *cli) execute(args []string) int {
	stderr := c.stderr
	rootCmd := c.rootCommand()
	rootCmd.SetArgs(args)

	err := rootCmd.Execute()
	if err == nil {
		return 0
	}

	var status exitStatus
	if errors.As(err, &status) {
		return int(status)
	}
	fmt.Fprintf(stderr, "Error: %s\n", err)
	return exitUsage
}

func (c *cli) rootCommand() *cobra.Command {
	defaults := config.Default()

	var rootCmd = &cobra.Command{
		Use:           "hikcam",
		Short:         "hikcam is a tool to capture still images from Hikvision network cameras",
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			c.log = newLogger(c.stderr, c.verbose)
			return c.loadConfig(cmd)
		},
	}
	rootCmd.SetOut(c.stdout)
	rootCmd.SetErr(c.stderr)

	rootCmd.PersistentFlags().BoolVarP(&c.verbose, "verbose", "v", false, "Print verbose output")
	rootCmd.PersistentFlags().StringVar(&c.configPath, "config", "", "Read settings from a YAML file")
	rootCmd.PersistentFlags().StringVar(&c.initPolicy, "init-policy", string(defaults.InitPolicy), "What to do when the SDK fails to initialize (degrade or fail-fast)")

	var capture = &cobra.Command{
		Use:   "capture",
		Short: "Capture photo to a jpeg file",
		Example: "  hikcam capture -i 192.168.1.64\n" +
			"  hikcam capture -i 192.168.1.64 --port 8000 -o /tmp/capture.jpg -u admin -p 12345",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cmd.SilenceUsage = true
			return c.capture()
		},
	}
	c.deviceFlags(capture, defaults)
	capture.Flags().StringVarP(&c.outFile, "outfile", "o", defaults.Capture.OutFile, "The output jpeg file path")

	var preview = &cobra.Command{
		Use:   "preview",
		Short: "Save frames of the live view to a directory",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cmd.SilenceUsage = true
			ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer cancel()
			return c.preview(ctx)
		},
	}
	c.deviceFlags(preview, defaults)
	preview.Flags().IntVar(&c.frames, "frames", 10, "Number of frames to save")
	preview.Flags().StringVar(&c.outDir, "outdir", "preview", "Directory the frames are written to")
	preview.Flags().DurationVar(&c.timeout, "timeout", 30*time.Second, "Stop after this time even if fewer frames arrived")

	var discover = &cobra.Command{
		Use:   "discover",
		Short: "Find cameras on the local network",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cmd.SilenceUsage = true
			return c.discover()
		},
	}
	discover.Flags().DurationVar(&c.timeout, "timeout", 3*time.Second, "How long to wait for replies")

	rootCmd.AddCommand(capture)
	rootCmd.AddCommand(preview)
	rootCmd.AddCommand(discover)

	return rootCmd
}

func (c *cli) deviceFlags(cmd *cobra.Command, defaults *config.Config) {
	cmd.Flags().StringVarP(&c.device.Address, "ip", "i", defaults.Device.Address, "The IP of camera")
	cmd.Flags().IntVar(&c.device.Port, "port", defaults.Device.Port, "The port of camera (the ISAPI driver speaks HTTP, use 80 or 443 for a real device)")
	cmd.Flags().StringVarP(&c.device.Username, "username", "u", defaults.Device.Username, "The user name for login camera")
	cmd.Flags().StringVarP(&c.device.Password, "password", "p", defaults.Device.Password, "The password for login camera")
	cmd.MarkFlagRequired("ip")
}

// loadConfig reads the config file and lets explicitly set flags override it
func (c *cli) loadConfig(cmd *cobra.Command) error {
	cfg := config.Default()
	if c.configPath != "" {
		loaded, err := config.Load(c.configPath)
		if err != nil {
			return err
		}
		cfg = loaded
	}

	flags := cmd.Flags()
	if flags.Changed("ip") {
		cfg.Device.Address = c.device.Address
	}
	if flags.Changed("port") {
		cfg.Device.Port = c.device.Port
	}
	if flags.Changed("username") {
		cfg.Device.Username = c.device.Username
	}
	if flags.Changed("password") {
		cfg.Device.Password = c.device.Password
	}
	if flags.Changed("outfile") {
		cfg.Capture.OutFile = c.outFile
	}
	if flags.Changed("init-policy") {
		policy := config.InitPolicy(c.initPolicy)
		if err := policy.Validate(); err != nil {
			return err
		}
		cfg.InitPolicy = policy
	}

	c.cfg = cfg
	return nil
}

// openSession initializes the SDK and logs in. A failed login is reported
// by the session and leaves it without a handle.
func (c *cli) openSession() (*libhikvision.Session, error) {
	session := libhikvision.NewSession(c.newDriver(c.cfg, &c.log),
		libhikvision.WithStatusWriter(c.stdout),
		libhikvision.WithLogger(c.log),
		libhikvision.WithSDKLog(c.cfg.SDKLog),
		libhikvision.WithChannel(c.cfg.Capture.Channel),
		libhikvision.WithJPEGParams(c.cfg.JPEGParams()),
	)

	if err := session.Initialize(); err != nil {
		if c.cfg.InitPolicy == config.InitFailFast {
			session.Shutdown()
			if status := exitFor(session.LastError()); status != nil {
				return nil, status
			}
			return nil, exitStatus(exitMaxCode)
		}
		c.log.Warn().Err(err).Msg("SDK initialization failed, continuing")
	}

	device := c.cfg.Device
	if _, err := session.Login(device.Address, device.Port, device.Username, device.Password); err != nil {
		c.log.Debug().Err(err).Str("address", device.Address).Msg("login failed")
	}
	return session, nil
}

func (c *cli) capture() error {
	session, err := c.openSession()
	if err != nil {
		return err
	}

	if _, err := session.Capture(c.cfg.Capture.OutFile); err != nil {
		c.log.Debug().Err(err).Msg("capture failed")
	}
	if err := session.Logout(); err != nil {
		c.log.Warn().Err(err).Msg("logout failed")
	}
	session.Shutdown()

	return exitFor(session.LastError())
}

func (c *cli) preview(ctx context.Context) error {
	session, err := c.openSession()
	if err != nil {
		return err
	}
	defer session.Shutdown()

	if _, ok := session.Handle(); !ok {
		return exitFor(session.LastError())
	}

	if err := os.MkdirAll(c.outDir, 0o755); err != nil {
		return err
	}

	frames := make(chan libhikvision.Frame, 4)
	err = session.StartPreview(func(frame libhikvision.Frame) {
		select {
		case frames <- frame:
		default:
			// drop frames while the previous one is still being written
		}
	})
	if err != nil {
		if err := session.Logout(); err != nil {
			c.log.Warn().Err(err).Msg("logout failed")
		}
		return exitFor(session.LastError())
	}

	timeout := time.NewTimer(c.timeout)
	defer timeout.Stop()

	saved := 0
	for saved < c.frames {
		select {
		case frame := <-frames:
			path := filepath.Join(c.outDir, fmt.Sprintf("frame_%04d.jpg", saved+1))
			if err := os.WriteFile(path, frame.Data, 0o644); err != nil {
				c.log.Error().Err(err).Str("path", path).Msg("writing frame")
				continue
			}
			saved++
			fmt.Fprintf(c.stdout, "Saved frame %d (%dx%d) to %s\n", frame.Seq, frame.Width, frame.Height, path)
		case <-timeout.C:
			c.log.Warn().Int("saved", saved).Msg("live view timed out")
			saved = c.frames
		case <-ctx.Done():
			saved = c.frames
		}
	}

	if err := session.StopPreview(); err != nil {
		c.log.Warn().Err(err).Msg("stopping live view failed")
	}
	if err := session.Logout(); err != nil {
		c.log.Warn().Err(err).Msg("logout failed")
	}
	return exitFor(session.LastError())
}

func (c *cli) discover() error {
	devices, err := libhikvision.Discover(c.timeout)
	if err != nil {
		c.log.Error().Err(err).Msg("discovery failed")
		return exitStatus(1)
	}
	printDevices(c.stdout, devices)
	return nil
}

func printDevices(w io.Writer, devices []libhikvision.DiscoveredDevice) {
	if len(devices) == 0 {
		fmt.Fprintln(w, "No devices found")
		return
	}

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "IP\tPORT\tHTTP\tMODEL\tSERIAL\tMAC\tFIRMWARE\tACTIVATED")
	for _, d := range devices {
		fmt.Fprintf(tw, "%s\t%d\t%d\t%s\t%s\t%s\t%s\t%t\n",
			d.IPv4Address, d.CommandPort, d.HTTPPort, d.DeviceDescription, d.SerialNumber, d.MAC, d.SoftwareVersion, d.Activated)
	}
	tw.Flush()
}
