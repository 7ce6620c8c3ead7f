package main

import (
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/MystenLabs/sparse-nodes/ffi"
	"github.com/MystenLabs/sparse-nodes/server"
	"github.com/MystenLabs/sparse-nodes/sncore"
	"github.com/MystenLabs/sparse-nodes/store"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
)

var (
	addr        string
	metricsAddr string
	dbPath      string
	keyPath     string
	encName     string
)

func parseEnc(s string) (sncore.Encoding, bool) {
	switch s {
	case "counters":
		return sncore.EncCounters, false
	case "chains":
		return sncore.EncChains, false
	case "mhc":
		return sncore.EncMHC, false
	default:
		return 0, true
	}
}

func main() {
	flag.StringVar(&addr, "addr", "0.0.0.0:6060", "listen address (host:port)")
	flag.StringVar(&metricsAddr, "metrics-addr", "", "prometheus listen address, empty to disable")
	flag.StringVar(&dbPath, "db", "sparse.db", "sqlite path, empty for in-memory")
	flag.StringVar(&keyPath, "key", "", "private keyset path, empty for a throwaway key")
	flag.StringVar(&encName, "enc", "mhc", "stream encoding: counters, chains, or mhc")
	flag.Parse()

	log := zerolog.New(os.Stderr).With().Timestamp().
		Str("service", "sparse-server").Logger()

	enc, errb := parseEnc(encName)
	if errb {
		log.Fatal().Str("enc", encName).Msg("unknown encoding")
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

	var st store.StreamStore
	if dbPath == "" {
		st = store.NewMemStore()
	} else {
		db, err := store.NewDB(dbPath)
		if err != nil {
			log.Fatal().Err(err).Str("path", dbPath).Msg("open store")
		}
		st = db
	}

	s, err := server.New(enc, sig, st, prometheus.DefaultRegisterer)
	if err != nil {
		log.Fatal().Err(err).Msg("recover server")
	}

	l := server.NewRpcServer(s).Serve(addr)
	log.Info().Str("addr", l.Addr()).Str("enc", encName).Msg("serving")

	if metricsAddr != "" {
		go func() {
			http.Handle("/metrics", promhttp.Handler())
			if err := http.ListenAndServe(metricsAddr, nil); err != nil {
				log.Error().Err(err).Msg("metrics listener")
			}
		}()
		log.Info().Str("addr", metricsAddr).Msg("metrics up")
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh
	log.Info().Msg("shutting down")
	l.Close()
	if err := st.Close(); err != nil {
		log.Error().Err(err).Msg("close store")
	}
}
