package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"sort"
	"strings"
	"syscall"
	"time"

	"go.uber.org/zap"
	"golang.org/x/term"

	"github.com/wippyai/opc-classic"
	"github.com/wippyai/opc-classic/activation"
	"github.com/wippyai/opc-classic/addrspace"
	"github.com/wippyai/opc-classic/client"
	"github.com/wippyai/opc-classic/com"
	"github.com/wippyai/opc-classic/config"
	"github.com/wippyai/opc-classic/da"
	"github.com/wippyai/opc-classic/mailbox"
	"github.com/wippyai/opc-classic/server"
	"github.com/wippyai/opc-classic/telemetry"
)

// writes collects repeated -write item=value flags.
type writes map[string]string

func (w writes) String() string {
	var parts []string
	for k, v := range w {
		parts = append(parts, k+"="+v)
	}
	sort.Strings(parts)
	return strings.Join(parts, ",")
}

func (w writes) Set(s string) error {
	k, v, ok := strings.Cut(s, "=")
	if !ok || k == "" {
		return fmt.Errorf("expected item=value, got %q", s)
	}
	w[k] = v
	return nil
}

func main() {
	toWrite := writes{}
	var (
		cfgFile     = flag.String("config", "", "Path to YAML config file")
		seedFile    = flag.String("seed", "", "Path to address space seed (overrides config)")
		list        = flag.Bool("list", false, "List registered servers and exit")
		browse      = flag.Bool("browse", false, "Print the address space")
		read        = flag.String("read", "", "Items to read (comma-separated)")
		watch       = flag.String("watch", "", "Items to subscribe to (comma-separated)")
		duration    = flag.Duration("for", 0, "Stop watching after this long (0 = until interrupted)")
		interactive = flag.Bool("i", false, "Interactive mode with TUI")
		trace       = flag.Bool("trace", false, "Enable stdout traces and metrics")
	)
	flag.Var(toWrite, "write", "Write item=value (repeatable)")
	flag.Parse()

	if !*list && !*browse && *read == "" && *watch == "" && len(toWrite) == 0 && !*interactive {
		fmt.Fprintln(os.Stderr, "Usage: opcda [-config file] [-seed file] -list")
		fmt.Fprintln(os.Stderr, "       opcda -seed plant.yaml -browse")
		fmt.Fprintln(os.Stderr, "       opcda -seed plant.yaml -read a.b,a.c -write a.b=1")
		fmt.Fprintln(os.Stderr, "       opcda -seed plant.yaml -watch a.b [-for 10s]")
		fmt.Fprintln(os.Stderr, "       opcda -seed plant.yaml -i  (interactive mode)")
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	h, err := setup(ctx, *cfgFile, *seedFile, *trace)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	defer h.close()

	if *interactive {
		if !term.IsTerminal(int(os.Stdout.Fd())) {
			fmt.Fprintln(os.Stderr, "Error: -i needs a terminal")
			os.Exit(1)
		}
		err = runInteractive(h)
	} else {
		err = h.run(ctx, *list, *browse, splitList(*read), toWrite, splitList(*watch), *duration)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func splitList(s string) []string {
	if s == "" {
		return nil
	}
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// host is the in-process server class plus a client bound to it.
type host struct {
	cfg      *config.Config
	cfgFile  string
	log      *zap.Logger
	reg      *activation.Registry
	space    *addrspace.Space
	clsid    com.GUID
	client   *client.Client
	shutdown telemetry.Shutdown
}

func setup(ctx context.Context, cfgFile, seedFile string, trace bool) (*host, error) {
	cfg := config.Default()
	if cfgFile != "" {
		var err error
		if cfg, err = config.Load(cfgFile); err != nil {
			return nil, err
		}
	}
	if seedFile != "" {
		cfg.AddressSpace.Seed = seedFile
	}
	if trace {
		cfg.Telemetry.Enabled = true
	}

	log, err := cfg.Log.Build()
	if err != nil {
		return nil, err
	}
	server.SetLogger(log.Named("server"))
	client.SetLogger(log.Named("client"))
	mailbox.SetLogger(log.Named("mailbox"))
	activation.SetLogger(log.Named("activation"))
	config.SetLogger(log.Named("config"))

	shutdown, err := telemetry.Init(ctx, cfg.Telemetry, os.Stderr)
	if err != nil {
		return nil, err
	}

	space, err := cfg.AddressSpace.Build()
	if err != nil {
		_ = shutdown(ctx)
		return nil, err
	}
	opts, err := cfg.Server.Options(nil)
	if err != nil {
		_ = shutdown(ctx)
		return nil, err
	}
	reg := activation.NewRegistry()
	clsid, err := server.Register(reg, space, opts)
	if err != nil {
		_ = shutdown(ctx)
		return nil, err
	}

	available, _, err := cfg.Client.VersionSets()
	if err != nil {
		_ = shutdown(ctx)
		return nil, err
	}
	c, err := client.New(client.WithRegistry(reg), client.WithVersions(available))
	if err != nil {
		_ = shutdown(ctx)
		return nil, err
	}

	return &host{
		cfg:      cfg,
		cfgFile:  cfgFile,
		log:      log,
		reg:      reg,
		space:    space,
		clsid:    clsid,
		client:   c,
		shutdown: shutdown,
	}, nil
}

func (h *host) close() {
	h.client.Close()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := h.shutdown(ctx); err != nil {
		h.log.Warn("telemetry shutdown", zap.Error(err))
	}
	_ = h.log.Sync()
}

func (h *host) run(ctx context.Context, list, browse bool, reads []string, toWrite writes, watch []string, d time.Duration) error {
	if list {
		return h.list()
	}

	srv, err := h.client.CreateServer(h.clsid)
	if err != nil {
		return fmt.Errorf("create server: %w", err)
	}
	status, err := srv.GetStatus()
	if err != nil {
		return fmt.Errorf("status: %w", err)
	}
	fmt.Printf("Server: %s (%s) %d.%d.%d\n", status.VendorInfo, srv.Version(),
		status.MajorVersion, status.MinorVersion, status.BuildNumber)

	if browse {
		if err := printTree(srv); err != nil {
			return err
		}
	}

	if len(toWrite) > 0 {
		ids := make([]string, 0, len(toWrite))
		for id := range toWrite {
			ids = append(ids, id)
		}
		sort.Strings(ids)
		vqts := make([]client.VQT, len(ids))
		for i, id := range ids {
			vqts[i] = client.VQT{Value: com.NewString(toWrite[id])}
		}
		codes, err := srv.WriteItems(ids, vqts)
		if err != nil {
			return fmt.Errorf("write: %w", err)
		}
		for i, id := range ids {
			fmt.Printf("  write %s: %s\n", id, describe(srv, codes[i]))
		}
	}

	if len(reads) > 0 {
		values, codes, err := srv.ReadItems(reads, nil)
		if err != nil {
			return fmt.Errorf("read: %w", err)
		}
		for i, id := range reads {
			if codes[i].Failed() {
				fmt.Printf("  %s: %s\n", id, describe(srv, codes[i]))
				continue
			}
			fmt.Printf("  %s = %s [%s] %s\n", id, values[i].Value, da.QualityString(values[i].Quality),
				values[i].Timestamp.Format(time.RFC3339Nano))
		}
	}

	if len(watch) > 0 {
		return h.watch(ctx, watch, d)
	}
	return nil
}

func (h *host) list() error {
	available, required, err := h.cfg.Client.VersionSets()
	if err != nil {
		return err
	}
	servers, err := h.client.ListServers(client.ServerFilter{Available: available, Required: required})
	if err != nil {
		return err
	}
	fmt.Printf("Servers (%s):\n", available)
	for _, s := range servers {
		fmt.Printf("  %s %s  %s\n", s.CLSID.String(), s.ProgID, s.UserType)
	}
	return nil
}

// describe names code with the server's error text when it has one.
func describe(srv *client.Server, code opc.HRESULT) string {
	if code.Succeeded() {
		return "ok"
	}
	if text, err := srv.ErrorString(code); err == nil && text != "" {
		return fmt.Sprintf("%s (%s)", text, code)
	}
	return code.String()
}

func printTree(srv *client.Server) error {
	var walk func(id, indent string) error
	walk = func(id, indent string) error {
		elems, err := srv.BrowseAll(client.BrowseRequest{ItemID: id, Filter: da.FilterAll})
		if err != nil {
			return fmt.Errorf("browse %q: %w", id, err)
		}
		for _, e := range elems {
			marker := "+"
			if e.IsItem {
				marker = "-"
			}
			fmt.Printf("%s%s %s\n", indent, marker, e.Name)
			if e.HasChildren {
				if err := walk(e.ItemID, indent+"  "); err != nil {
					return err
				}
			}
		}
		return nil
	}
	return walk("", "  ")
}

// watch subscribes to items through the mailbox-backed client and prints
// every change. The config file, when given, is watched and re-applied
// to the address space.
func (h *host) watch(ctx context.Context, items []string, d time.Duration) error {
	if d > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d)
		defer cancel()
	}

	srv, err := client.SpawnServer(h.clsid, []client.Option{client.WithRegistry(h.reg)}, h.cfg.Mailbox.Options()...)
	if err != nil {
		return err
	}
	defer srv.Close()

	g, err := srv.AddGroup(ctx, "watch", true, h.cfg.Server.MinUpdateRate, 1)
	if err != nil {
		return fmt.Errorf("add group: %w", err)
	}
	defs := make([]client.ItemDef, len(items))
	for i, id := range items {
		defs[i] = client.ItemDef{ItemID: id, Active: true, ClientHandle: uint32(i)}
	}
	_, codes, err := g.AddItems(ctx, defs)
	if err != nil {
		return fmt.Errorf("add items: %w", err)
	}
	for i, c := range codes {
		if c.Failed() {
			fmt.Printf("  %s: %s\n", items[i], c)
		}
	}

	changes := make(chan client.DataChange, 16)
	cookie, err := g.Subscribe(ctx, client.DataHandlerFuncs{
		DataChange: func(c client.DataChange) {
			select {
			case changes <- c:
			default:
				h.log.Warn("dropped data change", zap.Uint32("group", c.Group))
			}
		},
	})
	if err != nil {
		return fmt.Errorf("subscribe: %w", err)
	}

	if h.cfgFile != "" {
		go func() {
			err := config.Watch(ctx, h.cfgFile, func(c *config.Config) {
				if err := c.AddressSpace.Reseed(h.space); err != nil {
					h.log.Warn("reseed", zap.Error(err))
				}
			})
			if err != nil {
				h.log.Warn("config watch", zap.Error(err))
			}
		}()
	}

	for {
		select {
		case <-ctx.Done():
			unsubCtx, cancel := context.WithTimeout(context.Background(), time.Second)
			defer cancel()
			_ = g.Unsubscribe(unsubCtx, cookie)
			return nil
		case c := <-changes:
			for _, it := range c.Items {
				fmt.Printf("  %s %s = %s [%s]\n", it.Timestamp.Format(time.TimeOnly), items[it.ClientHandle],
					it.Value, da.QualityString(it.Quality))
			}
		}
	}
}
