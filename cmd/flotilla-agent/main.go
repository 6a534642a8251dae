package main

import (
	"fmt"
	"os"
)

var AppVersion string

func usage() {
	fmt.Fprintln(os.Stderr, "Usage: flotilla-agent <command> [flags]")
	fmt.Fprintln(os.Stderr, "")
	fmt.Fprintln(os.Stderr, "Commands:")
	fmt.Fprintln(os.Stderr, "  enroll    Exchange an enrollment token for agent credentials")
	fmt.Fprintln(os.Stderr, "  version   Print the agent version")
}

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}

	var err error
	switch os.Args[1] {
	case "enroll":
		err = runEnroll(os.Args[2:])
	case "version":
		fmt.Println(AppVersion)
	default:
		usage()
		os.Exit(2)
	}

	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
