package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

const version = "0.3.0"

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print pjc's version number",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("pjc %s; Jasmin code generator\n", version)
		},
	}
}
