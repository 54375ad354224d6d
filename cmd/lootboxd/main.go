package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"golang.org/x/sync/errgroup"

	"github.com/KristianPeter/blo-box/config"
	"github.com/KristianPeter/blo-box/internal/access"
	"github.com/KristianPeter/blo-box/internal/draw"
	"github.com/KristianPeter/blo-box/internal/ledger"
	"github.com/KristianPeter/blo-box/internal/lootbox"
	"github.com/KristianPeter/blo-box/internal/pool"
	"github.com/KristianPeter/blo-box/internal/registry"
	"github.com/KristianPeter/blo-box/internal/server"
)

func main() {
	port := flag.Int("port", 8080, "HTTP port")
	configPath := flag.String("config", "config/config.json", "Config file path")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	if cfg.Port != 0 {
		*port = cfg.Port
	}

	// Allow environment variable override
	if envPort := os.Getenv("PORT"); envPort != "" {
		if p, err := strconv.Atoi(envPort); err == nil {
			*port = p
		}
	}

	acl := access.NewList()
	for _, admin := range cfg.Admins {
		acl.Grant(common.HexToAddress(admin), access.CapabilityAdmin)
	}
	if len(cfg.Admins) == 0 {
		log.Printf("WARNING: no admins configured, every privileged path will fail")
	}

	pauser := access.NewSwitch()
	reg := registry.NewMemory()
	rng := draw.NewBlockSource(draw.NewClockEnv(common.HexToHash(cfg.BeaconSeed)))
	controller := lootbox.New(pool.New(), ledger.New(), reg, acl, pauser, rng, common.HexToAddress(cfg.Vault))

	srv := server.New(controller, reg, acl, pauser)
	httpSrv := &http.Server{
		Addr:    fmt.Sprintf(":%d", *port),
		Handler: srv.Router(),
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Printf("lootboxd starting on %s", httpSrv.Addr)
		if err := httpSrv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		log.Printf("lootboxd shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return httpSrv.Shutdown(shutdownCtx)
	})
	if err := g.Wait(); err != nil {
		log.Fatal(err)
	}
}
