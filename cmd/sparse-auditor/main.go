package main

import (
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/MystenLabs/sparse-nodes/advrpc"
	"github.com/MystenLabs/sparse-nodes/auditor"
	"github.com/MystenLabs/sparse-nodes/ffi"
	"github.com/MystenLabs/sparse-nodes/sncore"
	"github.com/rs/zerolog"
)

var (
	addr       string
	servAddr   string
	servPkPath string
	keyPath    string
	syncEvery  time.Duration
)

func main() {
	flag.StringVar(&addr, "addr", "0.0.0.0:6061", "listen address (host:port)")
	flag.StringVar(&servAddr, "serv", "127.0.0.1:6060", "server address to mirror")
	flag.StringVar(&servPkPath, "serv-pk", "", "server public keyset path")
	flag.StringVar(&keyPath, "key", "", "private keyset path, empty for a throwaway key")
	flag.DurationVar(&syncEvery, "sync-every", time.Second, "how often to pull new checkpoints")
	flag.Parse()

	log := zerolog.New(os.Stderr).With().Timestamp().
		Str("service", "sparse-auditor").Logger()

	if servPkPath == "" {
		log.Fatal().Msg("-serv-pk is required")
	}
	servPk, err := ffi.LoadVerifier(servPkPath)
	if err != nil {
		log.Fatal().Err(err).Str("path", servPkPath).Msg("load server key")
	}

	var sig sncore.Signer
	if keyPath == "" {
		log.Warn().Msg("no -key given, using a throwaway signing key")
		sig, _ = ffi.MakeKeys()
	} else {
		s, err := ffi.LoadSigner(keyPath)
		if err != nil {
			log.Fatal().Err(err).Str("path", keyPath).Msg("load signing key")
		}
		sig = s
	}

	a := auditor.New(sig, servPk)
	l := auditor.NewRpcServer(a).Serve(addr)
	log.Info().Str("addr", l.Addr()).Str("serv", servAddr).Msg("serving")

	servCli := advrpc.Dial(servAddr)
	tick := time.NewTicker(syncEvery)
	done := make(chan struct{})
	go func() {
		for {
			select {
			case <-tick.C:
				if blame := a.Sync(servCli); blame != sncore.BlameNone {
					log.Error().Uint64("blame", uint64(blame)).Msg("server failed audit")
				} else {
					log.Debug().Uint64("epochs", a.Len()).Msg("synced")
				}
			case <-done:
				return
			}
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh
	log.Info().Msg("shutting down")
	close(done)
	tick.Stop()
	l.Close()
}
