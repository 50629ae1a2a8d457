// Command nacc-node runs the sandboxed per-machine tool server.
// Grounded on the teacher's main.go flag parsing (-h/-c) and
// TOML-config-then-gin-Run startup shape.
package main

import (
	"flag"
	"fmt"
	"net/http"
	"os"

	"github.com/Vasanthadithya-mundrathi/NACC/node"
)

func main() {
	var cfgPath string
	var help bool

	flag.BoolVar(&help, "h", false, "Print this help screen")
	flag.StringVar(&cfgPath, "c", "", "Path to config file")
	flag.Parse()

	if help {
		fmt.Println("nacc-node [options]")
		flag.PrintDefaults()
		return
	}

	if cfgPath == "" {
		fmt.Println("Missing required option -c")
		flag.PrintDefaults()
		os.Exit(1)
	}

	cfg, err := node.LoadConfigFromTomlFile(cfgPath)
	if err != nil {
		fmt.Println("[-] failed to load config:", err)
		os.Exit(1)
	}

	fmt.Printf("[+] node_id: <%s>\n", cfg.NodeID)
	fmt.Printf("[+] root_dir: <%s>\n", cfg.RootDir)
	fmt.Printf("[+] webservice: <%s>\n", cfg.Listen)

	server := node.NewServer(cfg)

	if cfg.TLSEnabled() {
		httpServer := &http.Server{Addr: cfg.Listen, Handler: server.Router()}
		if err := node.ConfigureTLS(httpServer, cfg.TLS.Cert, cfg.TLS.Key, nil); err != nil {
			fmt.Println("[-] failed to configure TLS:", err)
			os.Exit(1)
		}
		if err := httpServer.ListenAndServeTLS("", ""); err != nil {
			fmt.Println("[-] server exited:", err)
			os.Exit(1)
		}
		return
	}

	if err := server.Router().Run(cfg.Listen); err != nil {
		fmt.Println("[-] server exited:", err)
		os.Exit(1)
	}
}
