// Command ringrt-echo is a thin demonstration binary for the echo
// example: it opens a runtime, listens on a TCP port, and serves
// connections until interrupted.
package main

import (
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/ringrt/ringrt"
	"github.com/ringrt/ringrt/async"
	"github.com/ringrt/ringrt/examples/echo"
	"github.com/ringrt/ringrt/internal/logging"
)

func main() {
	var (
		port    = flag.Uint("port", 7007, "TCP port to listen on")
		verbose = flag.Bool("v", false, "verbose logging")
	)
	flag.Parse()

	logConfig := logging.DefaultConfig()
	if *verbose {
		logConfig.Level = logging.LevelDebug
	}
	logger := logging.NewLogger(logConfig)

	rt, err := ringrt.New(ringrt.Options{Logger: logger})
	if err != nil {
		fmt.Fprintf(os.Stderr, "ringrt-echo: %v\n", err)
		os.Exit(1)
	}
	defer rt.Close()

	stopped := make(chan error, 1)
	rt.Spawn(func(ctx *async.Ctx) (any, error) {
		fd, err := echo.Listen(ctx, rt.Engine(), [4]byte{0, 0, 0, 0}, uint16(*port))
		if err != nil {
			stopped <- err
			return nil, err
		}
		logger.Info("listening", "port", *port, "fd", fd)
		err = echo.Serve(ctx, rt.Reactor(), rt.Engine(), fd)
		stopped <- err
		return nil, err
	})

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	for {
		select {
		case sig := <-sigCh:
			logger.Info("received signal, shutting down", "signal", sig.String())
			return
		case err := <-stopped:
			if err != nil {
				logger.Error("echo server stopped", "error", err.Error())
			}
			return
		default:
			rt.Run()
		}
	}
}
