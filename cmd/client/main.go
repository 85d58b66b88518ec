// confab-client is a minimal line-oriented terminal client: it connects
// to a confab server, pumps stdin lines to the socket and server lines
// to stdout. Any telnet-style tool works too; this one just exists so
// the repo is usable out of the box.
package main

import (
	"bufio"
	"flag"
	"fmt"
	"net"
	"os"

	"github.com/marcwhitt/confab/pkg/version"
)

func main() {
	addr := flag.String("addr", "localhost:12345", "Server address (host:port)")
	showVersion := flag.Bool("version", false, "Print version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Println("confab-client", version.Full())
		return
	}

	conn, err := net.Dial("tcp", *addr)
	if err != nil {
		fmt.Fprintf(os.Stderr, "connect %s: %v\n", *addr, err)
		os.Exit(1)
	}
	defer conn.Close()

	// Server -> stdout, copied as bytes arrive.
	done := make(chan struct{})
	go func() {
		defer close(done)
		buf := make([]byte, 4096)
		for {
			n, err := conn.Read(buf)
			if n > 0 {
				os.Stdout.Write(buf[:n])
			}
			if err != nil {
				return
			}
		}
	}()

	// Stdin -> server, one line at a time.
	in := bufio.NewScanner(os.Stdin)
	for in.Scan() {
		if _, err := fmt.Fprintln(conn, in.Text()); err != nil {
			break
		}
	}

	<-done
	fmt.Println("\nDisconnected.")
}
