// Command arena-devnode runs a local upload node: the HTTP upload and
// gateway endpoints, and optionally the EnvelopeStore gRPC service over the
// same store.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/pflag"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"
	"google.golang.org/grpc"

	"xdao.co/arena/config"
	"xdao.co/arena/devnode"
	"xdao.co/arena/storage/grpccas"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	os.Exit(run(ctx, os.Args[1:], os.Stderr))
}

type options struct {
	configPath string
	listen     string
	grpcListen string
	storeDirs  []string
	storeGRPC  []string
	maxBody    int64
	rateLimit  float64
	rateBurst  int
	dev        bool
}

func parseFlags(args []string, errOut io.Writer) (options, error) {
	fs := pflag.NewFlagSet("arena-devnode", pflag.ContinueOnError)
	fs.SetOutput(errOut)
	var o options
	fs.StringVar(&o.configPath, "config", "", "JSONC config file")
	fs.StringVar(&o.listen, "listen", "", "HTTP listen address (overrides config)")
	fs.StringVar(&o.grpcListen, "grpc-listen", "", "EnvelopeStore gRPC listen address (overrides config; empty disables)")
	fs.StringArrayVar(&o.storeDirs, "store-dir", nil, "localfs store directory (repeatable; replaces configured stores)")
	fs.StringArrayVar(&o.storeGRPC, "store-grpc", nil, "remote EnvelopeStore host:port (repeatable; replaces configured stores)")
	fs.Int64Var(&o.maxBody, "max-body-bytes", 0, "upload body limit (overrides config)")
	fs.Float64Var(&o.rateLimit, "rate", -1, "requests per second per client; 0 disables (overrides config)")
	fs.IntVar(&o.rateBurst, "burst", 0, "rate limiter burst (overrides config)")
	fs.BoolVar(&o.dev, "dev", false, "human-readable logs")
	if err := fs.Parse(args); err != nil {
		return o, err
	}
	if fs.NArg() != 0 {
		return o, fmt.Errorf("unexpected arguments: %v", fs.Args())
	}
	return o, nil
}

// resolve merges the config file with flag overrides.
func (o options) resolve() (config.Config, error) {
	cfg := config.Default()
	if o.configPath != "" {
		var err error
		if cfg, err = config.LoadFile(o.configPath); err != nil {
			return cfg, err
		}
	}
	n := &cfg.Node
	if o.listen != "" {
		n.Listen = o.listen
	}
	if o.grpcListen != "" {
		n.GRPCListen = o.grpcListen
	}
	if len(o.storeDirs)+len(o.storeGRPC) > 0 {
		n.Stores = nil
		for i, d := range o.storeDirs {
			n.Stores = append(n.Stores, config.Store{Kind: config.StoreLocalFS, ID: fmt.Sprintf("localfs-%d", i), Dir: d})
		}
		for i, t := range o.storeGRPC {
			n.Stores = append(n.Stores, config.Store{Kind: config.StoreGRPC, ID: fmt.Sprintf("grpc-%d", i), Target: t})
		}
	}
	if o.maxBody > 0 {
		n.MaxBodyBytes = o.maxBody
	}
	if o.rateLimit >= 0 {
		n.RateLimit = o.rateLimit
	}
	if o.rateBurst > 0 {
		n.RateBurst = o.rateBurst
	}
	return cfg, cfg.Validate()
}

func run(ctx context.Context, args []string, errOut io.Writer) int {
	o, err := parseFlags(args, errOut)
	if err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return 0
		}
		fmt.Fprintln(errOut, err)
		return 2
	}
	cfg, err := o.resolve()
	if err != nil {
		fmt.Fprintln(errOut, err)
		return 2
	}
	log, err := cfg.NewLogger(o.dev)
	if err != nil {
		fmt.Fprintln(errOut, err)
		return 2
	}
	defer func() { _ = log.Sync() }()

	if err := serve(ctx, cfg, log, nil); err != nil {
		log.Error("devnode stopped", zap.Error(err))
		return 1
	}
	return 0
}

// serve runs until ctx is done. If ready is non-nil it receives the bound
// HTTP address once the listener is open.
func serve(ctx context.Context, cfg config.Config, log *zap.Logger, ready chan<- string) error {
	store, closeStores, err := cfg.Node.OpenStores()
	if err != nil {
		return err
	}
	defer func() { _ = closeStores() }()

	node, err := devnode.New(devnode.Options{
		Store:        store,
		Log:          log,
		MaxBodyBytes: cfg.Node.MaxBodyBytes,
		RateLimit:    rate.Limit(cfg.Node.RateLimit),
		RateBurst:    cfg.Node.RateBurst,
	})
	if err != nil {
		return err
	}

	lis, err := net.Listen("tcp", cfg.Node.Listen)
	if err != nil {
		return err
	}
	httpSrv := &http.Server{Handler: node.Handler(), ReadHeaderTimeout: 10 * time.Second}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("http listening", zap.String("addr", lis.Addr().String()))
		if err := httpSrv.Serve(lis); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	var grpcSrv *grpc.Server
	if cfg.Node.GRPCListen != "" {
		glis, err := net.Listen("tcp", cfg.Node.GRPCListen)
		if err != nil {
			_ = lis.Close()
			return err
		}
		grpcSrv = grpc.NewServer(grpc.UnaryInterceptor(grpccas.LoggingInterceptor(log)))
		grpccas.RegisterEnvelopeStoreServer(grpcSrv, grpccas.NewServer(store))
		g.Go(func() error {
			log.Info("grpc listening", zap.String("addr", glis.Addr().String()))
			return grpcSrv.Serve(glis)
		})
	}

	if ready != nil {
		ready <- lis.Addr().String()
	}

	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if grpcSrv != nil {
			grpcSrv.GracefulStop()
		}
		return httpSrv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}
