package main

import (
	"fmt"
	"os"
	"sort"
	"strings"

	cli "github.com/spf13/pflag"

	"jarvis/internal/ipc"
)

const usage = `usage: jarvis-ctl [--socket PATH] <command>

commands:
  enable    start listening
  disable   stop listening (refused on always-on devices)
  toggle    flip the listening state
  status    print activation state and mode
  stats     print command counters
  say TEXT  run TEXT through the command pipeline
`

func main() {
	socket := cli.String("socket", ipc.DefaultSocketPath, "Control socket path")
	cli.Parse()

	args := cli.Args()
	if len(args) == 0 {
		fmt.Print(usage)
		os.Exit(2)
	}

	req := ipc.Request{Cmd: args[0]}
	if req.Cmd == "say" {
		if len(args) < 2 {
			fmt.Println("say needs text")
			os.Exit(2)
		}
		req.Arg = strings.Join(args[1:], " ")
	}

	reply, err := ipc.Send(*socket, req)
	if err != nil {
		fmt.Println("jarvisd not running:", err)
		os.Exit(1)
	}

	if reply.Stats != nil {
		keys := make([]string, 0, len(reply.Stats))
		for k := range reply.Stats {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			fmt.Printf("%s: %d\n", k, reply.Stats[k])
		}
		return
	}

	fmt.Println(reply.Msg)
	if !reply.OK {
		os.Exit(1)
	}
}
