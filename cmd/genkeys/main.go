package main

import (
	"flag"
	"os"

	"github.com/MystenLabs/sparse-nodes/ffi"
	"github.com/rs/zerolog"
)

var out string

func main() {
	flag.StringVar(&out, "out", "sig", "output prefix, writes <out>.key and <out>.pub")
	flag.Parse()

	log := zerolog.New(os.Stderr).With().Timestamp().Logger()
	priv := out + ".key"
	pub := out + ".pub"
	if err := ffi.GenerateKeys(priv, pub); err != nil {
		log.Fatal().Err(err).Msg("generate keys")
	}
	log.Info().Str("priv", priv).Str("pub", pub).Msg("wrote keyset")
}
