package main

import (
	"fmt"
	"net/http"
	"os"

	flags "github.com/jessevdk/go-flags"
	logf "sigs.k8s.io/controller-runtime/pkg/log"
	"sigs.k8s.io/controller-runtime/pkg/log/zap"

	"demoblaze-e2e/tools/spira-stub/stub"
)

type options struct {
	Listen string `long:"listen" default:":8089" description:"address to serve on"`
	User   string `long:"user" env:"SPIRA_USER" default:"stub" description:"accepted user name"`
	APIKey string `long:"api-key" env:"SPIRA_APIKEY" default:"stub-key" description:"accepted API key"`
}

func main() {
	var opts options
	parser := flags.NewParser(&opts, flags.Default)
	parser.ShortDescription = "Spira stub"
	parser.LongDescription = "In-memory stand-in for the Spira test management REST API"
	if _, err := parser.Parse(); err != nil {
		code := 1
		if fe, ok := err.(*flags.Error); ok && fe.Type == flags.ErrHelp {
			code = 0
		}
		os.Exit(code)
	}

	logf.SetLogger(zap.New(zap.UseDevMode(true)))
	fmt.Printf("spira-stub listening on %s\n", opts.Listen)
	if err := http.ListenAndServe(opts.Listen, stub.NewServer(opts.User, opts.APIKey)); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
